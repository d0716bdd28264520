// Package cursor implements the opaque keyset-pagination cursor used
// by the query service: a base64url encoding of a small canonical JSON
// object carrying the last row's (created_at, id) pair.
package cursor

import (
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type payload struct {
	ID        string `json:"id"`
	CreatedAt string `json:"created_at"`
}

// Cursor is the decoded position of the last item on the previous page.
type Cursor struct {
	ID        uuid.UUID
	CreatedAt time.Time
}

// Encode produces an opaque cursor string for the given row. Field
// order in the JSON is fixed (id, created_at) so the same row always
// encodes to the same string.
func Encode(id uuid.UUID, createdAt time.Time) string {
	p := payload{ID: id.String(), CreatedAt: createdAt.UTC().Format(time.RFC3339Nano)}
	b, _ := json.Marshal(p)
	return base64.URLEncoding.WithPadding(base64.NoPadding).EncodeToString(b)
}

// Decode parses an opaque cursor string. Any malformed input — bad
// base64, bad JSON, an unparseable UUID or timestamp — is reported by
// returning ok=false rather than an error, matching the pagination
// contract that an invalid cursor behaves exactly like "no cursor".
func Decode(s string) (c Cursor, ok bool) {
	if s == "" {
		return Cursor{}, false
	}
	raw, err := base64.URLEncoding.WithPadding(base64.NoPadding).DecodeString(s)
	if err != nil {
		return Cursor{}, false
	}
	var p payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return Cursor{}, false
	}
	id, err := uuid.Parse(p.ID)
	if err != nil {
		return Cursor{}, false
	}
	ts, err := time.Parse(time.RFC3339Nano, p.CreatedAt)
	if err != nil {
		return Cursor{}, false
	}
	return Cursor{ID: id, CreatedAt: ts}, true
}
