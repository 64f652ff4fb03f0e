/*
Package toolbox – attribute schema model.

An Attribute is one node of a schema tree: any, primitive (string, number,
binary, boolean), set, list, map, record or anyOf. Attributes are built with
the constructors below and frozen by NewSchema, which assigns their paths and
validates their options.
*/
package toolbox

// AttributeType is the type tag of an attribute.
type AttributeType string

const (
	TypeAny     AttributeType = "any"
	TypeString  AttributeType = "string"
	TypeNumber  AttributeType = "number"
	TypeBinary  AttributeType = "binary"
	TypeBoolean AttributeType = "boolean"
	TypeSet     AttributeType = "set"
	TypeList    AttributeType = "list"
	TypeMap     AttributeType = "map"
	TypeRecord  AttributeType = "record"
	TypeAnyOf   AttributeType = "anyOf"
)

func (t AttributeType) isPrimitive() bool {
	switch t {
	case TypeString, TypeNumber, TypeBinary, TypeBoolean:
		return true
	}
	return false
}

// RequiredOption tells when an attribute value must be provided.
type RequiredOption string

const (
	// Never: optional in puts and updates.
	Never RequiredOption = "never"
	// AtLeastOnce: required in puts, optional in updates.
	AtLeastOnce RequiredOption = "atLeastOnce"
	// Always: required in puts and updates.
	Always RequiredOption = "always"
)

// Attribute is a node of a schema. The set of implementations is closed.
type Attribute interface {
	Type() AttributeType
	// Path is the location of the attribute in its schema, set at freeze time.
	Path() string
	Required() RequiredOption
	Hidden() bool
	IsKey() bool
	// SavedAs is the storage name of the attribute ("" when not renamed).
	SavedAs() string

	base() *attributeBase
	freeze(path string) (Attribute, error)
}

// Transformer converts primitive values on their way to storage (Parse) and
// back (Format).
type Transformer interface {
	Parse(value any) any
	Format(value any) any
}

// defaultValue is a constant, a generator or a link to the whole item.
type defaultValue struct {
	value    any
	generate func() any
	link     func(Item) any
}

func (d *defaultValue) isLink() bool { return d != nil && d.link != nil }

func (d *defaultValue) resolve(item Item) any {
	switch {
	case d == nil:
		return nil
	case d.link != nil:
		return d.link(item)
	case d.generate != nil:
		return d.generate()
	}
	return cloneValue(d.value)
}

type defaults struct {
	key    *defaultValue
	put    *defaultValue
	update *defaultValue
	// set by Default/Link, resolved to key or put at freeze time
	auto *defaultValue
}

func (d defaults) slot(op Operation) *defaultValue {
	switch op {
	case OperationKey:
		return d.key
	case OperationPut:
		return d.put
	case OperationUpdate:
		return d.update
	}
	return nil
}

func (d defaults) defined() bool {
	return d.key != nil || d.put != nil || d.update != nil || d.auto != nil
}

type attributeBase struct {
	path      string
	required  RequiredOption
	hidden    bool
	key       bool
	savedAs   string
	defaults  defaults
	enum      []any
	transform Transformer
}

func newBase() attributeBase { return attributeBase{required: AtLeastOnce} }

func (a *attributeBase) base() *attributeBase { return a }

func (a *attributeBase) Path() string             { return a.path }
func (a *attributeBase) Required() RequiredOption { return a.required }
func (a *attributeBase) Hidden() bool             { return a.hidden }
func (a *attributeBase) IsKey() bool              { return a.key }
func (a *attributeBase) SavedAs() string          { return a.savedAs }

// Enum returns the allowed values of a primitive attribute (nil when unconstrained).
func (a *attributeBase) Enum() []any { return a.enum }

// storageName is the name the attribute is saved under in its parent.
func storageName(name string, attr Attribute) string {
	if s := attr.SavedAs(); s != "" {
		return s
	}
	return name
}

// ─── attribute kinds ─────────────────────────────────────────────────────────

// AnyAttribute accepts any value.
type AnyAttribute struct{ attributeBase }

// PrimitiveAttribute is a string, number, binary or boolean attribute.
type PrimitiveAttribute struct {
	attributeBase
	kind AttributeType
}

// SetAttribute is a set of primitives.
type SetAttribute struct {
	attributeBase
	elements Attribute
}

// ListAttribute is an ordered list of elements of one attribute type.
type ListAttribute struct {
	attributeBase
	elements Attribute
}

// MapAttribute has named, independently configured children.
type MapAttribute struct {
	attributeBase
	attributes Attributes
	names      []string
}

// RecordAttribute maps dynamic string keys to elements of one attribute type.
type RecordAttribute struct {
	attributeBase
	keys     *PrimitiveAttribute
	elements Attribute
}

// AnyOfAttribute accepts a value matching any of its elements, tried in order.
type AnyOfAttribute struct {
	attributeBase
	elements []Attribute
}

// Attributes maps attribute names to attributes.
type Attributes map[string]Attribute

func (*AnyAttribute) Type() AttributeType         { return TypeAny }
func (a *PrimitiveAttribute) Type() AttributeType { return a.kind }
func (*SetAttribute) Type() AttributeType         { return TypeSet }
func (*ListAttribute) Type() AttributeType        { return TypeList }
func (*MapAttribute) Type() AttributeType         { return TypeMap }
func (*RecordAttribute) Type() AttributeType      { return TypeRecord }
func (*AnyOfAttribute) Type() AttributeType       { return TypeAnyOf }

// Transform returns the transformer of a primitive attribute (or nil).
func (a *PrimitiveAttribute) Transform() Transformer { return a.transform }

func (a *SetAttribute) Elements() Attribute  { return a.elements }
func (a *ListAttribute) Elements() Attribute { return a.elements }

// Attribute returns the child attribute called name.
func (a *MapAttribute) Attribute(name string) (Attribute, bool) {
	attr, ok := a.attributes[name]
	return attr, ok
}

// Names returns the child names in walking order.
func (a *MapAttribute) Names() []string { return a.names }

func (a *RecordAttribute) Keys() *PrimitiveAttribute { return a.keys }
func (a *RecordAttribute) Elements() Attribute       { return a.elements }

func (a *AnyOfAttribute) Elements() []Attribute { return a.elements }

// ─── constructors ────────────────────────────────────────────────────────────

// Any defines an attribute accepting any value.
func Any(opts ...AttributeOption) *AnyAttribute {
	a := &AnyAttribute{attributeBase: newBase()}
	applyOptions(&a.attributeBase, opts)
	return a
}

func primitive(kind AttributeType, opts []AttributeOption) *PrimitiveAttribute {
	a := &PrimitiveAttribute{attributeBase: newBase(), kind: kind}
	applyOptions(&a.attributeBase, opts)
	return a
}

// String defines a string attribute.
func String(opts ...AttributeOption) *PrimitiveAttribute { return primitive(TypeString, opts) }

// Number defines a number attribute.
func Number(opts ...AttributeOption) *PrimitiveAttribute { return primitive(TypeNumber, opts) }

// Binary defines a binary attribute.
func Binary(opts ...AttributeOption) *PrimitiveAttribute { return primitive(TypeBinary, opts) }

// Boolean defines a boolean attribute.
func Boolean(opts ...AttributeOption) *PrimitiveAttribute { return primitive(TypeBoolean, opts) }

// SetOf defines a set attribute. elements must be a required, visible,
// unrenamed, default-free primitive.
func SetOf(elements Attribute, opts ...AttributeOption) *SetAttribute {
	a := &SetAttribute{attributeBase: newBase(), elements: elements}
	applyOptions(&a.attributeBase, opts)
	return a
}

// ListOf defines a list attribute.
func ListOf(elements Attribute, opts ...AttributeOption) *ListAttribute {
	a := &ListAttribute{attributeBase: newBase(), elements: elements}
	applyOptions(&a.attributeBase, opts)
	return a
}

// MapOf defines a map attribute with named children.
func MapOf(attributes Attributes, opts ...AttributeOption) *MapAttribute {
	a := &MapAttribute{attributeBase: newBase(), attributes: attributes}
	applyOptions(&a.attributeBase, opts)
	return a
}

// RecordOf defines a record attribute. keys must be a string attribute.
func RecordOf(keys *PrimitiveAttribute, elements Attribute, opts ...AttributeOption) *RecordAttribute {
	a := &RecordAttribute{attributeBase: newBase(), keys: keys, elements: elements}
	applyOptions(&a.attributeBase, opts)
	return a
}

// AnyOf defines a union attribute.
func AnyOf(elements []Attribute, opts ...AttributeOption) *AnyOfAttribute {
	a := &AnyOfAttribute{attributeBase: newBase(), elements: elements}
	applyOptions(&a.attributeBase, opts)
	return a
}

// ─── paths ───────────────────────────────────────────────────────────────────

func joinPath(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "." + name
}

// describePath is used in error messages for the schema root.
func describePath(path string) string {
	if path == "" {
		return "root"
	}
	return path
}
