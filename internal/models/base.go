package models

import (
	"github.com/jonatan-cruz/proyecto-intermodular-dam-25-26--Jonatan-Jose/internal/utils"
)

// Base carries the public 7-digit code every entity is addressed by.
// The code doubles as the Mongo _id, so uniqueness comes with the
// collection.
type Base struct {
	Code utils.Code `bson:"_id" json:"code"`
}

// SetCode assigns the allocated code to the record.
func (m *Base) SetCode(code utils.Code) {
	m.Code = code
}

// HasCode reports whether a code has been allocated yet.
func (m *Base) HasCode() bool {
	return !m.Code.IsZero()
}
