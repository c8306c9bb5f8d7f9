package journal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Statement status values.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Record is one journaled statement.
type Record struct {
	ID        string   `json:"id"`
	Session   string   `json:"session"`
	Seq       int64    `json:"seq"`
	Backend   string   `json:"backend"`
	Operation string   `json:"operation,omitempty"`
	Query     string   `json:"query"`
	BindTypes []string `json:"bind_types,omitempty"`
	Status    string   `json:"status"`
	ErrorCode string   `json:"error_code,omitempty"`
	Error     string   `json:"error,omitempty"`
	RowCount  int      `json:"row_count"`
}

// marshalBindTypes stores bind type names as a compact JSON array.
func marshalBindTypes(types []string) (string, error) {
	if types == nil {
		types = []string{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(types); err != nil {
		return "", fmt.Errorf("marshal bind types: %w", err)
	}
	// Encoder adds a trailing newline
	return strings.TrimSpace(buf.String()), nil
}

func unmarshalBindTypes(data string) ([]string, error) {
	if data == "" || data == "[]" {
		return nil, nil
	}
	var types []string
	if err := json.Unmarshal([]byte(data), &types); err != nil {
		return nil, fmt.Errorf("unmarshal bind types: %w", err)
	}
	return types, nil
}
