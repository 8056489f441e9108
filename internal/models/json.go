package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
)

// JSON stores loosely structured metadata in a jsonb column.
type JSON map[string]interface{}

func NewJSON(m map[string]interface{}) JSON {
	return JSON(m)
}

// Value implements driver.Valuer.
func (j JSON) Value() (driver.Value, error) {
	return json.Marshal(j)
}

// Scan implements sql.Scanner.
func (j *JSON) Scan(value interface{}) error {
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, j)
}

func (j JSON) MarshalJSON() ([]byte, error) {
	if j == nil {
		return []byte("null"), nil
	}
	return json.Marshal(map[string]interface{}(j))
}

func (j *JSON) UnmarshalJSON(data []byte) error {
	if j == nil {
		return errors.New("nil pointer")
	}
	return json.Unmarshal(data, (*map[string]interface{})(j))
}
