package sqlutil

import (
	"encoding/json"

	"github.com/sqlc-dev/pqtype"
)

// Helper functions for converting between raw JSON bytes and nullable JSONB columns

// ToNullRawMessage wraps data for a JSONB column. Empty data becomes SQL NULL.
func ToNullRawMessage(data []byte) pqtype.NullRawMessage {
	if len(data) == 0 {
		return pqtype.NullRawMessage{Valid: false}
	}
	return pqtype.NullRawMessage{RawMessage: json.RawMessage(data), Valid: true}
}

// FromNullRawMessage unwraps a JSONB column. ok is false for SQL NULL.
func FromNullRawMessage(val pqtype.NullRawMessage) (data []byte, ok bool) {
	if !val.Valid {
		return nil, false
	}
	return []byte(val.RawMessage), true
}
