package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// Collection names used by the persistence collaborator.
const (
	CollectionProjects = "projects"
	CollectionNiches   = "niches"
)

// JSONArray stores a raw JSON array as text in the database.
type JSONArray json.RawMessage

// Value implements the driver.Valuer interface for database serialization.
func (a JSONArray) Value() (driver.Value, error) {
	if len(a) == 0 {
		return "[]", nil
	}
	return string(a), nil
}

// Scan implements the sql.Scanner interface for database deserialization.
func (a *JSONArray) Scan(value interface{}) error {
	if value == nil {
		*a = JSONArray("[]")
		return nil
	}
	switch v := value.(type) {
	case []byte:
		*a = append(JSONArray(nil), v...)
	case string:
		*a = JSONArray(v)
	default:
		return errors.New("failed to scan JSONArray")
	}
	return nil
}

// MarshalJSON emits the stored array verbatim.
func (a JSONArray) MarshalJSON() ([]byte, error) {
	if len(a) == 0 {
		return []byte("[]"), nil
	}
	return a, nil
}

// UnmarshalJSON keeps the raw array.
func (a *JSONArray) UnmarshalJSON(data []byte) error {
	*a = append((*a)[:0], data...)
	return nil
}

// Collection is one named JSON collection row.
type Collection struct {
	Name      string    `gorm:"type:text;primaryKey" json:"name"`
	Data      JSONArray `gorm:"type:text;not null" json:"data"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for Collection.
func (Collection) TableName() string {
	return "collections"
}
