package model

// Field names an item attribute that a setField operation can overwrite.
type Field string

// Settable fields.
const (
	FieldCustom Field = "custom"
	FieldUPC    Field = "upc"
	FieldMin    Field = "min"
	FieldMax    Field = "max"
	FieldBin    Field = "bin"
	FieldQty    Field = "qty"
)

// Fields lists every settable field in a stable order.
var Fields = []Field{FieldCustom, FieldUPC, FieldMin, FieldMax, FieldBin, FieldQty}

// Valid reports whether f is a known field.
func (f Field) Valid() bool {
	switch f {
	case FieldCustom, FieldUPC, FieldMin, FieldMax, FieldBin, FieldQty:
		return true
	}
	return false
}

// Numeric reports whether f holds an integer rather than text.
func (f Field) Numeric() bool {
	switch f {
	case FieldMin, FieldMax, FieldQty:
		return true
	}
	return false
}
