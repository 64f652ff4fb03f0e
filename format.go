/*
Package toolbox – saved item formatter.

FormatSavedItem is the inverse of parsing for reads: it walks a stored item
against the schema, renames storage names back to attribute names, reverses
transforms and drops hidden attributes.
*/
package toolbox

import (
	"fmt"
	"strings"
)

// FormatOptions configures FormatSavedItem.
type FormatOptions struct {
	// Partial tolerates missing required attributes, e.g. for UPDATED_NEW
	// responses.
	Partial bool
	// Attributes lists the projected attribute paths. Attributes outside of
	// the projection are skipped. nil means all attributes.
	Attributes []string
	// PartitionKey and SortKey identify the item in error messages.
	PartitionKey any
	SortKey      any
}

// FormatSavedItem formats a stored item (storage names, Go values as
// returned by FromAttributeValues) into a logical item.
func FormatSavedItem(schema *Schema, item Item, opts FormatOptions) (Item, error) {
	f := formatter{opts: opts}
	out, err := f.formatAttributes(schema.root.attributes, schema.root.names, item, opts.Attributes)
	if err != nil {
		return nil, err
	}
	return Item(out), nil
}

type formatter struct {
	opts FormatOptions
}

func (f formatter) formatAttributes(attrs Attributes, names []string, saved map[string]any, projection []string) (map[string]any, error) {
	out := map[string]any{}
	for _, name := range names {
		attr := attrs[name]
		if attr.Hidden() {
			continue
		}
		projected, children := matchProjection(name, projection)
		if !projected {
			continue
		}
		v, err := f.format(attr, saved[storageName(name, attr)], children)
		if err != nil {
			return nil, err
		}
		if v != nil {
			out[name] = v
		}
	}
	return out, nil
}

// matchProjection reports whether the attribute called name is projected
// and, when only some of its children are, the child paths relative to it.
func matchProjection(name string, paths []string) (bool, []string) {
	if paths == nil {
		return true, nil
	}
	var children []string
	for _, p := range paths {
		switch {
		case p == name:
			return true, nil
		case strings.HasPrefix(p, name+"."):
			children = append(children, p[len(name)+1:])
		case strings.HasPrefix(p, name+"["):
			children = append(children, p[len(name):])
		}
	}
	return len(children) > 0, children
}

func (f formatter) missing(attr Attribute) error {
	if f.opts.Partial || attr.Required() == Never {
		return nil
	}
	msg := fmt.Sprintf("Missing required attribute in saved item: %s.", describePath(attr.Path()))
	if f.opts.PartitionKey != nil {
		msg += fmt.Sprintf(" (partition key: %v", f.opts.PartitionKey)
		if f.opts.SortKey != nil {
			msg += fmt.Sprintf(", sort key: %v", f.opts.SortKey)
		}
		msg += ")"
	}
	return NewError(ErrSavedAttributeRequired, msg,
		WithPath(attr.Path()),
		WithPayload(map[string]any{"partitionKey": f.opts.PartitionKey, "sortKey": f.opts.SortKey}))
}

func invalidSaved(attr Attribute, expected string, received any) *Error {
	return NewError(ErrInvalidSavedAttribute,
		fmt.Sprintf("Invalid attribute in saved item: %s. Should be a %s.", describePath(attr.Path()), expected),
		WithPath(attr.Path()),
		WithPayload(map[string]any{"received": received, "expected": expected}))
}

func (f formatter) format(attr Attribute, saved any, projection []string) (any, error) {
	if saved == nil {
		return nil, f.missing(attr)
	}
	switch a := attr.(type) {
	case *AnyAttribute:
		return cloneValue(saved), nil
	case *PrimitiveAttribute:
		if !matchesPrimitive(a.kind, saved) {
			return nil, invalidSaved(a, string(a.kind), saved)
		}
		v := cloneValue(saved)
		if a.transform != nil {
			v = a.transform.Format(v)
		}
		return v, nil
	case *SetAttribute:
		set, ok := saved.(Set)
		if !ok {
			return nil, invalidSaved(a, "set", saved)
		}
		out := make(Set, 0, len(set))
		for _, e := range set {
			v, err := f.format(a.elements, e, nil)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case *ListAttribute:
		list, ok := toAnySlice(saved)
		if !ok {
			return nil, invalidSaved(a, "list", saved)
		}
		out := make([]any, 0, len(list))
		for _, e := range list {
			v, err := f.format(a.elements, e, nil)
			if err != nil {
				return nil, err
			}
			if v != nil {
				out = append(out, v)
			}
		}
		return out, nil
	case *MapAttribute:
		m, ok := toStringMap(saved)
		if !ok {
			return nil, invalidSaved(a, "map", saved)
		}
		return f.formatAttributes(a.attributes, a.names, m, projection)
	case *RecordAttribute:
		m, ok := toStringMap(saved)
		if !ok {
			return nil, invalidSaved(a, "record", saved)
		}
		out := map[string]any{}
		for _, k := range sortedKeys(m) {
			key, err := f.format(a.keys, k, nil)
			if err != nil {
				return nil, err
			}
			v, err := f.format(a.elements, m[k], nil)
			if err != nil {
				return nil, err
			}
			if ks, ok := key.(string); ok && v != nil {
				out[ks] = v
			}
		}
		return out, nil
	case *AnyOfAttribute:
		for _, e := range a.elements {
			if v, err := f.format(e, saved, projection); err == nil {
				return v, nil
			}
		}
		return nil, invalidSaved(a, "value matching one of the anyOf elements", saved)
	}
	return nil, invalidSaved(attr, string(attr.Type()), saved)
}
