/*
Package toolbox – cloned-input parser.

Parsing an item runs in three phases:

  - cloned: the input is deep-copied, unknown top-level keys are kept;
  - parsed: defaults of the active operation are applied, values are
    validated against their attribute and transformed;
  - collapsed: attribute names are rewritten to their storage names and
    missing values are dropped.

An ItemParser runs each phase at most once and only when asked for, so a
caller that only needs the parsed values never pays for the rest.
*/
package toolbox

import "fmt"

// Operation selects the default slot and the required levels of a parse.
type Operation string

const (
	OperationKey    Operation = "key"
	OperationPut    Operation = "put"
	OperationUpdate Operation = "update"
)

// requiringOptions lists the required levels enforced by each operation.
var requiringOptions = map[Operation][]RequiredOption{
	OperationKey:    {Always},
	OperationPut:    {Always, AtLeastOnce},
	OperationUpdate: {Always},
}

// Filters restricts the attributes walked at the top level.
type Filters struct {
	// Key keeps only the attributes tagged as key.
	Key bool
}

// ExtensionParser lets an operation short-circuit the parsing of a value,
// e.g. to accept update markers. When handled is false the value is parsed
// normally.
type ExtensionParser func(attr Attribute, input any, opts ParseOptions) (parsed, collapsed any, handled bool, err error)

// ParseOptions configures a parse.
type ParseOptions struct {
	Operation Operation
	// RequiringOptions overrides the required levels enforced by Operation.
	RequiringOptions []RequiredOption
	Filters          Filters
	NoTransform      bool
	Extension        ExtensionParser
}

func (o ParseOptions) normalize() ParseOptions {
	if o.Operation == "" {
		o.Operation = OperationPut
	}
	if o.RequiringOptions == nil {
		o.RequiringOptions = requiringOptions[o.Operation]
	}
	return o
}

func (o ParseOptions) requires(level RequiredOption) bool {
	for _, r := range o.RequiringOptions {
		if r == level {
			return true
		}
	}
	return false
}

// withoutExtension is used for values that cannot carry operation syntax,
// such as set elements and record keys.
func (o ParseOptions) withoutExtension() ParseOptions {
	o.Extension = nil
	return o
}

// ParsedItem holds the three snapshots of a fully parsed item.
type ParsedItem struct {
	Cloned    Item
	Parsed    Item
	Collapsed Item
}

// ItemParser is a resumable three-phase parse of one item.
type ItemParser struct {
	schema *Schema
	input  any
	opts   ParseOptions

	phase     int
	err       error
	cloned    Item
	parsed    Item
	collapsed Item
}

// NewItemParser prepares the parse of input against schema. Nothing runs
// until a phase is requested.
func NewItemParser(schema *Schema, input any, opts ParseOptions) *ItemParser {
	return &ItemParser{schema: schema, input: input, opts: opts.normalize()}
}

// ParseItem runs all three phases.
func ParseItem(schema *Schema, input any, opts ParseOptions) (ParsedItem, error) {
	p := NewItemParser(schema, input, opts)
	collapsed, err := p.Collapsed()
	if err != nil {
		return ParsedItem{}, err
	}
	return ParsedItem{Cloned: p.cloned, Parsed: p.parsed, Collapsed: collapsed}, nil
}

// Cloned returns the deep-copied input.
func (p *ItemParser) Cloned() (Item, error) {
	if err := p.advance(1); err != nil {
		return nil, err
	}
	return p.cloned, nil
}

// Parsed returns the validated, defaulted and transformed item, keyed by
// attribute names.
func (p *ItemParser) Parsed() (Item, error) {
	if err := p.advance(2); err != nil {
		return nil, err
	}
	return p.parsed, nil
}

// Collapsed returns the parsed item keyed by storage names.
func (p *ItemParser) Collapsed() (Item, error) {
	if err := p.advance(3); err != nil {
		return nil, err
	}
	return p.collapsed, nil
}

func (p *ItemParser) advance(target int) error {
	for p.phase < target && p.err == nil {
		switch p.phase {
		case 0:
			p.cloned, p.err = cloneItem(p.input)
		case 1:
			p.err = p.parse()
		case 2:
			// collapsed values are produced alongside the parsed ones
		}
		p.phase++
	}
	return p.err
}

func cloneItem(input any) (Item, error) {
	m, ok := toStringMap(input)
	if !ok {
		return nil, NewError(ErrInvalidItem,
			fmt.Sprintf("Items should be objects. Received: %T.", input),
			WithPayload(map[string]any{"received": input}))
	}
	return cloneValue(Item(m)).(Item), nil
}

func (p *ItemParser) parse() error {
	root := p.schema.root
	names := root.names
	if p.opts.Filters.Key {
		names = p.schema.keyNames
	}
	input := applyDefaults(root.attributes, names, p.cloned, p.opts.Operation)
	p.parsed = Item{}
	p.collapsed = Item{}
	for _, name := range names {
		attr := root.attributes[name]
		parsed, collapsed, err := parseAttribute(attr, input[name], p.opts)
		if err != nil {
			return err
		}
		if parsed != nil {
			p.parsed[name] = parsed
		}
		if collapsed != nil {
			p.collapsed[storageName(name, attr)] = collapsed
		}
	}
	return nil
}

// applyDefaults returns a shallow copy of input where missing attributes
// receive the default of the active slot. Constants and generators run
// first; links then see the defaulted item.
func applyDefaults(attrs Attributes, names []string, input map[string]any, op Operation) Item {
	out := make(Item, len(input))
	for k, v := range input {
		out[k] = v
	}
	var links []string
	for _, name := range names {
		if out[name] != nil {
			continue
		}
		d := attrs[name].base().defaults.slot(op)
		if d == nil {
			continue
		}
		if d.isLink() {
			links = append(links, name)
			continue
		}
		if v := d.resolve(out); v != nil {
			out[name] = v
		}
	}
	for _, name := range links {
		if v := attrs[name].base().defaults.slot(op).resolve(out); v != nil {
			out[name] = v
		}
	}
	return out
}

// ParseAttributeValue parses one value against attr.
func ParseAttributeValue(attr Attribute, input any, opts ParseOptions) (parsed, collapsed any, err error) {
	return parseAttribute(attr, input, opts.normalize())
}

func parseAttribute(attr Attribute, input any, opts ParseOptions) (any, any, error) {
	if input != nil && opts.Extension != nil {
		parsed, collapsed, handled, err := opts.Extension(attr, input, opts)
		if err != nil {
			return nil, nil, err
		}
		if handled {
			return parsed, collapsed, nil
		}
	}
	if input == nil {
		if opts.requires(attr.Required()) {
			return nil, nil, NewError(ErrAttributeRequired,
				fmt.Sprintf("Attribute %s is required.", describePath(attr.Path())),
				WithPath(attr.Path()))
		}
		return nil, nil, nil
	}

	switch a := attr.(type) {
	case *AnyAttribute:
		v := cloneValue(input)
		return v, v, nil
	case *PrimitiveAttribute:
		return parsePrimitive(a, input, opts)
	case *SetAttribute:
		return parseSet(a, input, opts)
	case *ListAttribute:
		return parseList(a, input, opts)
	case *MapAttribute:
		return parseMap(a, input, opts)
	case *RecordAttribute:
		return parseRecord(a, input, opts)
	case *AnyOfAttribute:
		return parseAnyOf(a, input, opts)
	}
	return nil, nil, NewError(ErrInvalidAttributeInput,
		fmt.Sprintf("Unsupported attribute type at path %s", describePath(attr.Path())),
		WithPath(attr.Path()))
}

func invalidInput(attr Attribute, expected string, input any) *Error {
	return NewError(ErrInvalidAttributeInput,
		fmt.Sprintf("Attribute %s should be a %s.", describePath(attr.Path()), expected),
		WithPath(attr.Path()),
		WithPayload(map[string]any{"received": input, "expected": expected}))
}

func parsePrimitive(a *PrimitiveAttribute, input any, opts ParseOptions) (any, any, error) {
	if !matchesPrimitive(a.kind, input) {
		return nil, nil, invalidInput(a, string(a.kind), input)
	}
	if a.enum != nil {
		found := false
		for _, e := range a.enum {
			if valuesEqual(e, input) {
				found = true
				break
			}
		}
		if !found {
			return nil, nil, NewError(ErrInvalidEnumValue,
				fmt.Sprintf("Attribute %s should be one of: %v.", describePath(a.path), a.enum),
				WithPath(a.path),
				WithPayload(map[string]any{"received": input, "expected": a.enum}))
		}
	}
	v := cloneValue(input)
	if a.transform != nil && !opts.NoTransform {
		v = a.transform.Parse(v)
	}
	return v, v, nil
}

func parseSet(a *SetAttribute, input any, opts ParseOptions) (any, any, error) {
	set, ok := input.(Set)
	if !ok || len(set) == 0 {
		return nil, nil, invalidInput(a, "non-empty set", input)
	}
	seen := make(map[string]bool, len(set))
	out := make(Set, 0, len(set))
	for _, e := range set {
		if e == nil {
			return nil, nil, NewError(ErrInvalidAttributeInput,
				fmt.Sprintf("Attribute %s should not contain null elements.", describePath(a.path)),
				WithPath(a.path), WithPayload(map[string]any{"received": input}))
		}
		parsed, _, err := parseAttribute(a.elements, e, opts.withoutExtension())
		if err != nil {
			return nil, nil, err
		}
		key := primitiveKey(parsed)
		if seen[key] {
			return nil, nil, NewError(ErrInvalidAttributeInput,
				fmt.Sprintf("Attribute %s should be a set of unique values.", describePath(a.path)),
				WithPath(a.path), WithPayload(map[string]any{"duplicate": e}))
		}
		seen[key] = true
		out = append(out, parsed)
	}
	return out, out, nil
}

func parseList(a *ListAttribute, input any, opts ParseOptions) (any, any, error) {
	list, ok := toAnySlice(input)
	if !ok {
		return nil, nil, invalidInput(a, "list", input)
	}
	parsed := make([]any, 0, len(list))
	collapsed := make([]any, 0, len(list))
	for _, e := range list {
		p, c, err := parseAttribute(a.elements, e, opts)
		if err != nil {
			return nil, nil, err
		}
		if p == nil {
			continue
		}
		parsed = append(parsed, p)
		collapsed = append(collapsed, c)
	}
	return parsed, collapsed, nil
}

func parseMap(a *MapAttribute, input any, opts ParseOptions) (any, any, error) {
	m, ok := toStringMap(input)
	if !ok {
		return nil, nil, invalidInput(a, "map", input)
	}
	for _, k := range sortedKeys(m) {
		if _, known := a.attributes[k]; !known {
			return nil, nil, NewError(ErrUnknownMapAttribute,
				fmt.Sprintf("Attribute %s has no attribute called %s.", describePath(a.path), k),
				WithPath(joinPath(a.path, k)))
		}
	}
	m = applyDefaults(a.attributes, a.names, m, opts.Operation)
	parsed := map[string]any{}
	collapsed := map[string]any{}
	for _, name := range a.names {
		attr := a.attributes[name]
		p, c, err := parseAttribute(attr, m[name], opts)
		if err != nil {
			return nil, nil, err
		}
		if p != nil {
			parsed[name] = p
		}
		if c != nil {
			collapsed[storageName(name, attr)] = c
		}
	}
	return parsed, collapsed, nil
}

func parseRecord(a *RecordAttribute, input any, opts ParseOptions) (any, any, error) {
	m, ok := toStringMap(input)
	if !ok {
		return nil, nil, invalidInput(a, "record", input)
	}
	parsed := map[string]any{}
	collapsed := map[string]any{}
	for _, k := range sortedKeys(m) {
		key, _, err := parseAttribute(a.keys, k, opts.withoutExtension())
		if err != nil {
			return nil, nil, err
		}
		p, c, err := parseAttribute(a.elements, m[k], opts)
		if err != nil {
			return nil, nil, err
		}
		ks, ok := key.(string)
		if !ok {
			return nil, nil, invalidInput(a.keys, "string", key)
		}
		if p == nil {
			continue
		}
		parsed[ks] = p
		collapsed[ks] = c
	}
	return parsed, collapsed, nil
}

func parseAnyOf(a *AnyOfAttribute, input any, opts ParseOptions) (any, any, error) {
	for _, e := range a.elements {
		p, c, err := parseAttribute(e, input, opts)
		if err == nil {
			return p, c, nil
		}
	}
	return nil, nil, NewError(ErrInvalidAnyOfInput,
		fmt.Sprintf("Attribute %s does not match any of the possible sub-types.", describePath(a.path)),
		WithPath(a.path), WithPayload(map[string]any{"received": input}))
}
