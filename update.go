package toolbox

// Update markers. Values of these types inside an UpdateItem payload select
// the update verb applied to the attribute they stand for; any other value is
// an implicit SetValue.

type updateMarker interface{ updateMarker() }

func isUpdateMarker(v any) bool {
	_, ok := v.(updateMarker)
	return ok
}

// SetOperation replaces the attribute value as a whole.
type SetOperation struct{ Value any }

// RemoveOperation removes the attribute.
type RemoveOperation struct{}

// AddOperation adds to a number or inserts elements into a set.
type AddOperation struct{ Value any }

// DeleteOperation removes elements from a set.
type DeleteOperation struct{ Value any }

// AppendOperation appends elements to a list.
type AppendOperation struct{ Value any }

// PrependOperation prepends elements to a list.
type PrependOperation struct{ Value any }

// SumOperation sets a number to Left + Right. Operands are numbers or Get references.
type SumOperation struct{ Left, Right any }

// SubtractOperation sets a number to Left - Right.
type SubtractOperation struct{ Left, Right any }

// GetOperation references another attribute of the same item, optionally
// falling back to a value when that attribute does not exist.
type GetOperation struct {
	Path        string
	Fallback    any
	HasFallback bool

	// storage path of the reference, resolved by the update parser
	segments []pathSegment
}

func (SetOperation) updateMarker()      {}
func (RemoveOperation) updateMarker()   {}
func (AddOperation) updateMarker()      {}
func (DeleteOperation) updateMarker()   {}
func (AppendOperation) updateMarker()   {}
func (PrependOperation) updateMarker()  {}
func (SumOperation) updateMarker()      {}
func (SubtractOperation) updateMarker() {}
func (GetOperation) updateMarker()      {}

// SetValue marks v as a full replacement of the attribute.
func SetValue(v any) SetOperation { return SetOperation{Value: v} }

// Remove marks the attribute for removal.
func Remove() RemoveOperation { return RemoveOperation{} }

// Add adds v to a number attribute, or the elements of v to a set attribute.
func Add(v any) AddOperation { return AddOperation{Value: v} }

// Delete removes the elements of v from a set attribute.
func Delete(v any) DeleteOperation { return DeleteOperation{Value: v} }

// Append appends the elements of v to a list attribute.
func Append(v any) AppendOperation { return AppendOperation{Value: v} }

// Prepend prepends the elements of v to a list attribute.
func Prepend(v any) PrependOperation { return PrependOperation{Value: v} }

// Sum sets a number attribute to a + b.
func Sum(a, b any) SumOperation { return SumOperation{Left: a, Right: b} }

// Subtract sets a number attribute to a - b.
func Subtract(a, b any) SubtractOperation { return SubtractOperation{Left: a, Right: b} }

// Get references the attribute at path. With a fallback, the value resolves
// to fallback when the referenced attribute does not exist.
func Get(path string, fallback ...any) GetOperation {
	g := GetOperation{Path: path}
	if len(fallback) > 0 {
		g.Fallback = fallback[0]
		g.HasFallback = true
	}
	return g
}
