// Package form holds the schema-registry models: business submodules and the
// dynamic field definitions making up their entry forms.
package form

import "time"

// FieldType enumerates the supported input types.
type FieldType string

const (
	TypeText    FieldType = "text"
	TypeNumber  FieldType = "number"
	TypeDate    FieldType = "date"
	TypeBoolean FieldType = "boolean"
	TypeSelect  FieldType = "select"
)

// Valid reports whether ft names a supported field type.
func (ft FieldType) Valid() bool {
	switch ft {
	case TypeText, TypeNumber, TypeDate, TypeBoolean, TypeSelect:
		return true
	}
	return false
}

// Section partitions a submodule's fields into once-per-record header inputs
// and repeating detail (line-item) columns.
type Section string

const (
	SectionHeader Section = "header"
	SectionDetail Section = "detail"
)

// Valid reports whether s names a known section.
func (s Section) Valid() bool {
	return s == SectionHeader || s == SectionDetail
}

// Field defines one input of a submodule's form. Key is the stable machine
// name used as the property name in stored entry data; Position orders fields
// within a (submodule, section) partition.
type Field struct {
	ID          string    `json:"id"`
	SubmoduleID string    `json:"formDefinitionId"`
	Key         string    `json:"key"`
	Label       string    `json:"label"`
	Type        FieldType `json:"type"`
	Section     Section   `json:"section"`
	Position    int       `json:"position"`
	Required    bool      `json:"required"`
	Placeholder string    `json:"placeholder,omitempty"`
	Options     []string  `json:"options,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// FieldPatch is a partial update to a Field. Nil members are left unchanged.
type FieldPatch struct {
	Key         *string
	Label       *string
	Type        *FieldType
	Position    *int
	Required    *bool
	Placeholder *string
	Options     *[]string
}

// Submodule is a business transaction category (e.g. "Purchase Order") owning
// its own form schema, entries and document number sequence.
type Submodule struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	MainModule string    `json:"mainModule"`
	Position   int       `json:"position"`
	CreatedAt  time.Time `json:"createdAt"`
}
