package toolbox

import (
	"fmt"
	"sort"
)

// updateExtension returns the extension parser that accepts update markers,
// resolving Get references against schema.
func updateExtension(schema *Schema) ExtensionParser {
	var ext ExtensionParser
	ext = func(attr Attribute, input any, opts ParseOptions) (any, any, bool, error) {
		switch v := input.(type) {
		case RemoveOperation:
			if attr.Required() != Never {
				return nil, nil, true, NewError(ErrAttributeRequired,
					fmt.Sprintf("Attribute %s is required and cannot be removed", describePath(attr.Path())),
					WithPath(attr.Path()))
			}
			return v, v, true, nil
		case GetOperation:
			p, c, err := parseReference(schema, attr, v, opts)
			return p, c, true, err
		case SetOperation:
			p, c, err := parseAttribute(attr, v.Value, opts.withoutExtension())
			if err != nil {
				return nil, nil, true, err
			}
			return SetOperation{Value: p}, SetOperation{Value: c}, true, nil
		}

		switch a := attr.(type) {
		case *AnyAttribute:
			return parseAnyUpdate(schema, a, input, opts)
		case *PrimitiveAttribute:
			if a.kind == TypeNumber {
				return parseNumberUpdate(schema, a, input, opts)
			}
		case *SetAttribute:
			return parseSetUpdate(a, input, opts)
		case *ListAttribute:
			return parseListUpdate(schema, a, input, opts)
		case *RecordAttribute:
			return parseRecordUpdate(a, input, opts)
		case *AnyOfAttribute:
			// each element gets its own chance
			return nil, nil, false, nil
		}
		if isUpdateMarker(input) {
			return nil, nil, true, unsupportedMarker(attr, input)
		}
		return nil, nil, false, nil
	}
	return ext
}

func unsupportedMarker(attr Attribute, marker any) *Error {
	return NewError(ErrInvalidAttributeInput,
		fmt.Sprintf("Attribute %s of type %s does not support %T updates.", describePath(attr.Path()), attr.Type(), marker),
		WithPath(attr.Path()), WithPayload(map[string]any{"received": marker}))
}

// parseReference resolves a Get marker. The collapsed marker carries the
// storage path of the reference; the fallback is parsed against attr and may
// itself be a reference.
func parseReference(schema *Schema, attr Attribute, g GetOperation, opts ParseOptions) (any, any, error) {
	segments, _, err := resolvePath(schema, g.Path)
	if err != nil {
		return nil, nil, NewError(ErrInvalidReference,
			fmt.Sprintf("Invalid reference at path %s: %s does not exist in the schema", describePath(attr.Path()), g.Path),
			WithPath(attr.Path()), WithPayload(map[string]any{"reference": g.Path}), WithCause(err))
	}
	parsed := GetOperation{Path: g.Path, HasFallback: g.HasFallback, segments: segments}
	collapsed := parsed
	if g.HasFallback {
		fallbackOpts := opts
		fallbackOpts.Extension = func(a Attribute, in any, o ParseOptions) (any, any, bool, error) {
			if ref, ok := in.(GetOperation); ok {
				p, c, err := parseReference(schema, a, ref, o)
				return p, c, true, err
			}
			return nil, nil, false, nil
		}
		p, c, err := parseAttribute(attr, g.Fallback, fallbackOpts)
		if err != nil {
			return nil, nil, err
		}
		parsed.Fallback, collapsed.Fallback = p, c
	}
	return parsed, collapsed, nil
}

// parseOperand parses a value that may be replaced by a reference.
func parseOperand(schema *Schema, attr Attribute, v any, opts ParseOptions) (any, any, error) {
	if g, ok := v.(GetOperation); ok {
		return parseReference(schema, attr, g, opts)
	}
	return parseAttribute(attr, v, opts.withoutExtension())
}

func parseOperands(schema *Schema, attr Attribute, a, b any, opts ParseOptions) (pa, ca, pb, cb any, err error) {
	if pa, ca, err = parseOperand(schema, attr, a, opts); err != nil {
		return
	}
	pb, cb, err = parseOperand(schema, attr, b, opts)
	return
}

func parseNumberUpdate(schema *Schema, a *PrimitiveAttribute, input any, opts ParseOptions) (any, any, bool, error) {
	switch v := input.(type) {
	case AddOperation:
		p, c, err := parseAttribute(a, v.Value, opts.withoutExtension())
		if err != nil {
			return nil, nil, true, err
		}
		return AddOperation{Value: p}, AddOperation{Value: c}, true, nil
	case SumOperation:
		pa, ca, pb, cb, err := parseOperands(schema, a, v.Left, v.Right, opts)
		if err != nil {
			return nil, nil, true, err
		}
		return SumOperation{Left: pa, Right: pb}, SumOperation{Left: ca, Right: cb}, true, nil
	case SubtractOperation:
		pa, ca, pb, cb, err := parseOperands(schema, a, v.Left, v.Right, opts)
		if err != nil {
			return nil, nil, true, err
		}
		return SubtractOperation{Left: pa, Right: pb}, SubtractOperation{Left: ca, Right: cb}, true, nil
	}
	if isUpdateMarker(input) {
		return nil, nil, true, unsupportedMarker(a, input)
	}
	return nil, nil, false, nil
}

func parseSetUpdate(a *SetAttribute, input any, opts ParseOptions) (any, any, bool, error) {
	switch v := input.(type) {
	case AddOperation:
		p, c, err := parseAttribute(a, v.Value, opts.withoutExtension())
		if err != nil {
			return nil, nil, true, err
		}
		return AddOperation{Value: p}, AddOperation{Value: c}, true, nil
	case DeleteOperation:
		p, c, err := parseAttribute(a, v.Value, opts.withoutExtension())
		if err != nil {
			return nil, nil, true, err
		}
		return DeleteOperation{Value: p}, DeleteOperation{Value: c}, true, nil
	}
	if isUpdateMarker(input) {
		return nil, nil, true, unsupportedMarker(a, input)
	}
	return nil, nil, false, nil
}

func parseListUpdate(schema *Schema, a *ListAttribute, input any, opts ParseOptions) (any, any, bool, error) {
	switch v := input.(type) {
	case AppendOperation:
		p, c, err := parseOperand(schema, a, v.Value, opts)
		if err != nil {
			return nil, nil, true, err
		}
		return AppendOperation{Value: p}, AppendOperation{Value: c}, true, nil
	case PrependOperation:
		p, c, err := parseOperand(schema, a, v.Value, opts)
		if err != nil {
			return nil, nil, true, err
		}
		return PrependOperation{Value: p}, PrependOperation{Value: c}, true, nil
	case map[int]any:
		indexes := make([]int, 0, len(v))
		for i := range v {
			indexes = append(indexes, i)
		}
		sort.Ints(indexes)
		parsed := make(map[int]any, len(v))
		collapsed := make(map[int]any, len(v))
		for _, i := range indexes {
			if i < 0 {
				return nil, nil, true, NewError(ErrInvalidAttributeInput,
					fmt.Sprintf("Attribute %s: list index %d is negative.", describePath(a.path), i),
					WithPath(a.path))
			}
			if rm, ok := v[i].(RemoveOperation); ok {
				parsed[i], collapsed[i] = rm, rm
				continue
			}
			p, c, err := parseAttribute(a.elements, v[i], opts)
			if err != nil {
				return nil, nil, true, err
			}
			if p != nil {
				parsed[i], collapsed[i] = p, c
			}
		}
		return parsed, collapsed, true, nil
	}
	if isUpdateMarker(input) {
		return nil, nil, true, unsupportedMarker(a, input)
	}
	return nil, nil, false, nil
}

func parseRecordUpdate(a *RecordAttribute, input any, opts ParseOptions) (any, any, bool, error) {
	m, ok := toStringMap(input)
	if !ok {
		if isUpdateMarker(input) {
			return nil, nil, true, unsupportedMarker(a, input)
		}
		return nil, nil, false, nil
	}
	parsed := map[string]any{}
	collapsed := map[string]any{}
	for _, k := range sortedKeys(m) {
		key, _, err := parseAttribute(a.keys, k, opts.withoutExtension())
		if err != nil {
			return nil, nil, true, err
		}
		ks, _ := key.(string)
		if rm, ok := m[k].(RemoveOperation); ok {
			parsed[ks], collapsed[ks] = rm, rm
			continue
		}
		p, c, err := parseAttribute(a.elements, m[k], opts)
		if err != nil {
			return nil, nil, true, err
		}
		if p != nil {
			parsed[ks], collapsed[ks] = p, c
		}
	}
	return parsed, collapsed, true, nil
}

// parseAnyUpdate accepts every marker on untyped attributes. Sum and Subtract
// operands and Append/Prepend values may still be references.
func parseAnyUpdate(schema *Schema, a *AnyAttribute, input any, opts ParseOptions) (any, any, bool, error) {
	switch v := input.(type) {
	case SumOperation:
		pa, ca, pb, cb, err := parseOperands(schema, a, v.Left, v.Right, opts)
		if err != nil {
			return nil, nil, true, err
		}
		return SumOperation{Left: pa, Right: pb}, SumOperation{Left: ca, Right: cb}, true, nil
	case SubtractOperation:
		pa, ca, pb, cb, err := parseOperands(schema, a, v.Left, v.Right, opts)
		if err != nil {
			return nil, nil, true, err
		}
		return SubtractOperation{Left: pa, Right: pb}, SubtractOperation{Left: ca, Right: cb}, true, nil
	case AppendOperation:
		p, c, err := parseOperand(schema, a, v.Value, opts)
		if err != nil {
			return nil, nil, true, err
		}
		return AppendOperation{Value: p}, AppendOperation{Value: c}, true, nil
	case PrependOperation:
		p, c, err := parseOperand(schema, a, v.Value, opts)
		if err != nil {
			return nil, nil, true, err
		}
		return PrependOperation{Value: p}, PrependOperation{Value: c}, true, nil
	case AddOperation, DeleteOperation:
		c := cloneValue(v)
		return c, c, true, nil
	}
	return nil, nil, false, nil
}
