package store

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// JSONB is a JSON object stored in a jsonb column.
type JSONB map[string]any

// Value implements driver.Valuer.
func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	b, err := json.Marshal(map[string]any(j))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (j *JSONB) Scan(value any) error {
	if value == nil {
		*j = nil
		return nil
	}
	b, err := scanBytes(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, j)
}

// JSONList is a JSON array stored in a jsonb column.
type JSONList []any

// Value implements driver.Valuer.
func (l JSONList) Value() (driver.Value, error) {
	if l == nil {
		return nil, nil
	}
	b, err := json.Marshal([]any(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (l *JSONList) Scan(value any) error {
	if value == nil {
		*l = nil
		return nil
	}
	b, err := scanBytes(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, l)
}

// StringList is an ordered list of strings stored in a jsonb column.
type StringList []string

// Value implements driver.Valuer.
func (s StringList) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(s))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (s *StringList) Scan(value any) error {
	if value == nil {
		*s = nil
		return nil
	}
	b, err := scanBytes(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, s)
}

func scanBytes(value any) ([]byte, error) {
	switch v := value.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("unsupported jsonb source type %T", value)
	}
}
