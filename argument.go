package modinput

import "encoding/xml"

// ArgumentDataType constrains the values a configuration argument accepts.
type ArgumentDataType string

const (
	DataTypeBoolean ArgumentDataType = "boolean"
	DataTypeNumber  ArgumentDataType = "number"
	DataTypeString  ArgumentDataType = "string"
)

// Argument declares one configuration parameter inside a Scheme.
type Argument struct {
	XMLName xml.Name `xml:"arg"`

	// Parameter name as it appears in stanza configuration.
	Name string `xml:"name,attr"`

	Title       string `xml:"title,omitempty"`
	Description string `xml:"description,omitempty"`

	// Validation expression evaluated host-side (for example
	// is_pos_int('port')). Structural type checking happens through
	// DataType regardless.
	Validation string `xml:"validation,omitempty"`

	DataType         ArgumentDataType `xml:"data_type"`
	RequiredOnEdit   bool             `xml:"required_on_edit"`
	RequiredOnCreate bool             `xml:"required_on_create"`
}

// NewArgument creates an argument with the host's defaults: string typed,
// optional on create and on edit.
func NewArgument(name string) *Argument {
	return &Argument{
		Name:     name,
		DataType: DataTypeString,
	}
}

// WithTitle sets the display title.
func (a *Argument) WithTitle(title string) *Argument {
	a.Title = title
	return a
}

// WithDescription sets the human-readable description.
func (a *Argument) WithDescription(description string) *Argument {
	a.Description = description
	return a
}

// WithValidation sets the host-side validation expression.
func (a *Argument) WithValidation(validation string) *Argument {
	a.Validation = validation
	return a
}

// WithDataType sets the value type.
func (a *Argument) WithDataType(dt ArgumentDataType) *Argument {
	a.DataType = dt
	return a
}

// WithRequiredOnCreate marks the argument mandatory when a stanza is created.
func (a *Argument) WithRequiredOnCreate(v bool) *Argument {
	a.RequiredOnCreate = v
	return a
}

// WithRequiredOnEdit marks the argument mandatory when a stanza is edited.
func (a *Argument) WithRequiredOnEdit(v bool) *Argument {
	a.RequiredOnEdit = v
	return a
}
