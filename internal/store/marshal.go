package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/botloom/botloom/internal/flow"
)

// marshalContent serializes a content snapshot to JSON TEXT for storage.
// Storage JSON is the block-tagged form from internal/flow; content identity
// is the separate canonical hash stored alongside it.
func marshalContent(c flow.Content) (string, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("marshal content: %w", err)
	}
	return string(data), nil
}

// unmarshalContent parses stored JSON TEXT back into a content snapshot.
func unmarshalContent(data string) (flow.Content, error) {
	var c flow.Content
	if err := json.Unmarshal([]byte(data), &c); err != nil {
		return flow.Content{}, fmt.Errorf("unmarshal content: %w", err)
	}
	return c, nil
}

// Timestamps are stored as RFC 3339 with nanoseconds in UTC, which sorts
// lexically the same as chronologically.

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}

func formatNullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func parseNullableTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid {
		return nil, nil
	}
	t, err := parseTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
