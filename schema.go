/*
Package toolbox – schemas.

NewSchema freezes a set of attribute definitions: it copies every attribute,
assigns its path and validates its options, so that misconfigured schemas fail
at definition time rather than on first use. Frozen schemas are immutable and
safe for concurrent use.
*/
package toolbox

import "fmt"

// Schema is a frozen, ordered set of attributes describing an item.
type Schema struct {
	root     *MapAttribute
	keyNames []string
}

// NewSchema freezes attrs into a Schema.
func NewSchema(attrs Attributes) (*Schema, error) {
	root := &MapAttribute{attributeBase: newBase(), attributes: attrs}
	root.required = Always
	seen := map[string]string{}
	for _, name := range sortedKeys(attrs) {
		attr := attrs[name]
		if attr == nil {
			return nil, NewError(ErrInvalidAttributeOption,
				fmt.Sprintf("Invalid attribute %s: definition is nil", name), WithPath(name))
		}
		savedAs := storageName(name, attr)
		if other, ok := seen[savedAs]; ok {
			return nil, NewError(ErrSchemaDuplicateSavedAs,
				fmt.Sprintf("Invalid schema: Attributes %s and %s are both saved as '%s'", other, name, savedAs),
				WithPath(name), WithPayload(map[string]any{"savedAs": savedAs}))
		}
		seen[savedAs] = name
	}
	frozen, err := root.freezeChildren("")
	if err != nil {
		return nil, err
	}
	s := &Schema{root: frozen}
	for _, name := range frozen.names {
		if frozen.attributes[name].IsKey() {
			s.keyNames = append(s.keyNames, name)
		}
	}
	return s, nil
}

// MustSchema is NewSchema that panics on error, for package-level definitions.
func MustSchema(attrs Attributes) *Schema {
	s, err := NewSchema(attrs)
	if err != nil {
		panic(err)
	}
	return s
}

// And returns a new schema holding the attributes of s plus attrs.
func (s *Schema) And(attrs Attributes) (*Schema, error) {
	merged := make(Attributes, len(s.root.attributes)+len(attrs))
	for name, attr := range s.root.attributes {
		merged[name] = attr
	}
	for _, name := range sortedKeys(attrs) {
		if _, ok := merged[name]; ok {
			return nil, NewError(ErrSchemaDuplicateAttributeNames,
				fmt.Sprintf("Invalid schema: attribute %s is already defined", name),
				WithPath(name))
		}
		merged[name] = attrs[name]
	}
	return NewSchema(merged)
}

// Attribute returns the frozen attribute called name.
func (s *Schema) Attribute(name string) (Attribute, bool) { return s.root.Attribute(name) }

// Names returns the attribute names in walking order.
func (s *Schema) Names() []string { return s.root.names }

// KeyAttributeNames returns the names of the attributes tagged as key.
func (s *Schema) KeyAttributeNames() []string { return s.keyNames }

// SavedAs returns the storage name of the attribute called name.
func (s *Schema) SavedAs(name string) string {
	if attr, ok := s.root.attributes[name]; ok {
		return storageName(name, attr)
	}
	return name
}

// ─── freezing ────────────────────────────────────────────────────────────────

// freezeBase copies the shared options, resolves Default/Link into the key
// or put slot and rejects primitive-only options.
func freezeBase(b attributeBase, kind AttributeType, path string) (attributeBase, error) {
	b.path = path
	if b.defaults.auto != nil {
		if b.key {
			// puts and updates also need the key attributes
			for _, slot := range []**defaultValue{&b.defaults.key, &b.defaults.put, &b.defaults.update} {
				if *slot == nil {
					*slot = b.defaults.auto
				}
			}
		} else if b.defaults.put == nil {
			b.defaults.put = b.defaults.auto
		}
		b.defaults.auto = nil
	}
	if !kind.isPrimitive() {
		if b.enum != nil {
			return b, NewError(ErrInvalidAttributeOption,
				fmt.Sprintf("Invalid option at path %s: enum is only allowed on primitive attributes", describePath(path)),
				WithPath(path), WithPayload(map[string]any{"option": "enum"}))
		}
		if b.transform != nil {
			return b, NewError(ErrInvalidAttributeOption,
				fmt.Sprintf("Invalid option at path %s: transform is only allowed on primitive attributes", describePath(path)),
				WithPath(path), WithPayload(map[string]any{"option": "transform"}))
		}
	}
	switch b.required {
	case Never, AtLeastOnce, Always:
	default:
		return b, NewError(ErrInvalidAttributeOption,
			fmt.Sprintf("Invalid required option at path %s: %q", describePath(path), b.required),
			WithPath(path), WithPayload(map[string]any{"option": "required", "received": b.required}))
	}
	return b, nil
}

func (a *AnyAttribute) freeze(path string) (Attribute, error) {
	b, err := freezeBase(a.attributeBase, TypeAny, path)
	if err != nil {
		return nil, err
	}
	return &AnyAttribute{attributeBase: b}, nil
}

func (a *PrimitiveAttribute) freeze(path string) (Attribute, error) {
	b, err := freezeBase(a.attributeBase, a.kind, path)
	if err != nil {
		return nil, err
	}
	if !a.kind.isPrimitive() {
		return nil, NewError(ErrInvalidAttributeOption,
			fmt.Sprintf("Invalid primitive type at path %s: %s", describePath(path), a.kind), WithPath(path))
	}
	for _, v := range b.enum {
		if !matchesPrimitive(a.kind, v) {
			return nil, NewError(ErrInvalidEnumValueType,
				fmt.Sprintf("Invalid enum value type at path %s. Expected: %s. Received: %v.", describePath(path), a.kind, v),
				WithPath(path), WithPayload(map[string]any{"expectedType": a.kind, "enumValue": v}))
		}
	}
	for _, d := range []*defaultValue{b.defaults.key, b.defaults.put, b.defaults.update} {
		if d == nil || d.generate != nil || d.link != nil || isUpdateMarker(d.value) {
			continue
		}
		if !matchesPrimitive(a.kind, d.value) {
			return nil, NewError(ErrInvalidDefaultValueType,
				fmt.Sprintf("Invalid default value type at path %s: Expected: %s. Received: %v.", describePath(path), a.kind, d.value),
				WithPath(path), WithPayload(map[string]any{"expectedType": a.kind, "defaultValue": d.value}))
		}
	}
	return &PrimitiveAttribute{attributeBase: b, kind: a.kind}, nil
}

func (a *SetAttribute) freeze(path string) (Attribute, error) {
	b, err := freezeBase(a.attributeBase, TypeSet, path)
	if err != nil {
		return nil, err
	}
	if a.elements == nil || !a.elements.Type().isPrimitive() {
		return nil, NewError(ErrSetInvalidElements,
			fmt.Sprintf("Invalid set elements at path %s: Set elements must be primitives", describePath(path)),
			WithPath(path))
	}
	if err := validateElements(a.elements, path, "Set", setElementCodes); err != nil {
		return nil, err
	}
	elements, err := a.elements.freeze(path + "[x]")
	if err != nil {
		return nil, err
	}
	return &SetAttribute{attributeBase: b, elements: elements}, nil
}

func (a *ListAttribute) freeze(path string) (Attribute, error) {
	b, err := freezeBase(a.attributeBase, TypeList, path)
	if err != nil {
		return nil, err
	}
	if err := validateElements(a.elements, path, "List", listElementCodes); err != nil {
		return nil, err
	}
	elements, err := a.elements.freeze(path + "[n]")
	if err != nil {
		return nil, err
	}
	return &ListAttribute{attributeBase: b, elements: elements}, nil
}

func (a *MapAttribute) freeze(path string) (Attribute, error) {
	b, err := freezeBase(a.attributeBase, TypeMap, path)
	if err != nil {
		return nil, err
	}
	c := &MapAttribute{attributeBase: b, attributes: a.attributes}
	seen := map[string]bool{}
	for _, name := range sortedKeys(a.attributes) {
		attr := a.attributes[name]
		if attr == nil {
			return nil, NewError(ErrInvalidAttributeOption,
				fmt.Sprintf("Invalid attribute %s: definition is nil", joinPath(path, name)),
				WithPath(joinPath(path, name)))
		}
		savedAs := storageName(name, attr)
		if seen[savedAs] {
			return nil, NewError(ErrMapDuplicateSavedAs,
				fmt.Sprintf("Invalid map attributes at path %s: More than two attributes are saved as '%s'", describePath(path), savedAs),
				WithPath(path), WithPayload(map[string]any{"savedAs": savedAs}))
		}
		seen[savedAs] = true
	}
	return c.freezeChildren(path)
}

// freezeChildren freezes every child of m in lexical order into a copy of m.
func (m *MapAttribute) freezeChildren(path string) (*MapAttribute, error) {
	out := &MapAttribute{attributeBase: m.attributeBase, attributes: make(Attributes, len(m.attributes))}
	out.path = path
	for _, name := range sortedKeys(m.attributes) {
		frozen, err := m.attributes[name].freeze(joinPath(path, name))
		if err != nil {
			return nil, err
		}
		out.attributes[name] = frozen
		out.names = append(out.names, name)
	}
	return out, nil
}

func (a *RecordAttribute) freeze(path string) (Attribute, error) {
	b, err := freezeBase(a.attributeBase, TypeRecord, path)
	if err != nil {
		return nil, err
	}
	if a.keys == nil || a.keys.kind != TypeString {
		return nil, NewError(ErrRecordInvalidKeys,
			fmt.Sprintf("Invalid record keys at path %s: Record keys must be a string attribute", describePath(path)),
			WithPath(path))
	}
	if err := validateElements(a.keys, path, "Record", recordElementCodes); err != nil {
		return nil, err
	}
	if err := validateElements(a.elements, path, "Record", recordElementCodes); err != nil {
		return nil, err
	}
	keys, err := a.keys.freeze(path + ".{key}")
	if err != nil {
		return nil, err
	}
	elements, err := a.elements.freeze(path + ".{value}")
	if err != nil {
		return nil, err
	}
	return &RecordAttribute{attributeBase: b, keys: keys.(*PrimitiveAttribute), elements: elements}, nil
}

func (a *AnyOfAttribute) freeze(path string) (Attribute, error) {
	b, err := freezeBase(a.attributeBase, TypeAnyOf, path)
	if err != nil {
		return nil, err
	}
	if len(a.elements) == 0 {
		return nil, NewError(ErrAnyOfMissingElements,
			fmt.Sprintf("Invalid anyOf elements at path %s: anyOf attributes must have at least one element", describePath(path)),
			WithPath(path))
	}
	c := &AnyOfAttribute{attributeBase: b}
	for _, e := range a.elements {
		if err := validateElements(e, path, "AnyOf", anyOfElementCodes); err != nil {
			return nil, err
		}
		frozen, err := e.freeze(path)
		if err != nil {
			return nil, err
		}
		c.elements = append(c.elements, frozen)
	}
	return c, nil
}

type elementCodes struct {
	optional, hidden, savedAs, defaulted ErrorCode
}

var (
	listElementCodes   = elementCodes{ErrListOptionalElements, ErrListHiddenElements, ErrListSavedAsElements, ErrListDefaultedElements}
	setElementCodes    = elementCodes{ErrSetOptionalElements, ErrSetHiddenElements, ErrSetSavedAsElements, ErrSetDefaultedElements}
	recordElementCodes = elementCodes{ErrRecordOptionalElements, ErrRecordHiddenElements, ErrRecordSavedAsElements, ErrRecordDefaultedElements}
	anyOfElementCodes  = elementCodes{ErrAnyOfOptionalElements, ErrAnyOfHiddenElements, ErrAnyOfSavedAsElements, ErrAnyOfDefaultedElements}
)

// validateElements checks that an element attribute carries no container-level option.
func validateElements(e Attribute, path, kind string, codes elementCodes) error {
	p := describePath(path)
	if e == nil {
		return NewError(codes.optional, fmt.Sprintf("Invalid %s elements at path %s: elements are missing", kind, p), WithPath(path))
	}
	if e.Required() == Never {
		return NewError(codes.optional,
			fmt.Sprintf("Invalid %s elements at path %s: %s elements must be required", kind, p, kind), WithPath(path))
	}
	if e.Hidden() {
		return NewError(codes.hidden,
			fmt.Sprintf("Invalid %s elements at path %s: %s elements cannot be hidden", kind, p, kind), WithPath(path))
	}
	if e.SavedAs() != "" {
		return NewError(codes.savedAs,
			fmt.Sprintf("Invalid %s elements at path %s: %s elements cannot be renamed (have savedAs option)", kind, p, kind), WithPath(path))
	}
	if e.base().defaults.defined() {
		return NewError(codes.defaulted,
			fmt.Sprintf("Invalid %s elements at path %s: %s elements cannot have default values", kind, p, kind), WithPath(path))
	}
	return nil
}

// matchesPrimitive reports whether v is a valid Go value for the primitive kind.
func matchesPrimitive(kind AttributeType, v any) bool {
	switch kind {
	case TypeString:
		_, ok := v.(string)
		return ok
	case TypeNumber:
		return isNumber(v)
	case TypeBinary:
		_, ok := v.([]byte)
		return ok
	case TypeBoolean:
		_, ok := v.(bool)
		return ok
	}
	return false
}
