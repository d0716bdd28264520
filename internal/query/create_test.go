package query

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/astropay/activityfeed/internal/apperr"
	"github.com/astropay/activityfeed/internal/domain"
)

func TestCreateRejectsMissingUserID(t *testing.T) {
	w := &Writer{}
	_, err := w.Create(context.Background(), domain.NewTransactionInput{
		TransactionType: domain.TransactionTypeCard,
		Product:         domain.ProductCard,
		Status:          domain.StatusCompleted,
		Amount:          decimal.NewFromInt(10),
	})
	appErr, ok := apperr.As(err)
	assert.True(t, ok)
	assert.Equal(t, apperr.KindValidation, appErr.Kind)
}

func TestCreateRejectsInvalidTransactionType(t *testing.T) {
	w := &Writer{}
	_, err := w.Create(context.Background(), domain.NewTransactionInput{
		UserID:          "user-1",
		TransactionType: "not_a_type",
		Product:         domain.ProductCard,
		Status:          domain.StatusCompleted,
	})
	appErr, ok := apperr.As(err)
	assert.True(t, ok)
	assert.Equal(t, apperr.KindValidation, appErr.Kind)
}

func TestCreateRejectsInvalidProduct(t *testing.T) {
	w := &Writer{}
	_, err := w.Create(context.Background(), domain.NewTransactionInput{
		UserID:          "user-1",
		TransactionType: domain.TransactionTypeCard,
		Product:         "NotAProduct",
		Status:          domain.StatusCompleted,
	})
	appErr, ok := apperr.As(err)
	assert.True(t, ok)
	assert.Equal(t, apperr.KindValidation, appErr.Kind)
}

func TestCreateRejectsInvalidStatus(t *testing.T) {
	w := &Writer{}
	_, err := w.Create(context.Background(), domain.NewTransactionInput{
		UserID:          "user-1",
		TransactionType: domain.TransactionTypeCard,
		Product:         domain.ProductCard,
		Status:          "not_a_status",
	})
	appErr, ok := apperr.As(err)
	assert.True(t, ok)
	assert.Equal(t, apperr.KindValidation, appErr.Kind)
}
