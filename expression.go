/*
Package toolbox – expression building blocks.

Condition, projection and update expressions share one expression parser
state: a running expression string plus the ExpressionAttributeNames and
ExpressionAttributeValues tables. Placeholders are numbered per parser and
carry the parser prefix and an optional namespace id, so that tables of
independent parsers can be merged without collision:

	#c_1, :c_1      condition parser
	#c2_1, :c2_1    condition parser with id "2"
	#p_1            projection parser
	#s_1, :s_1      SET verb of an update
*/
package toolbox

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Expression is a compiled expression with its placeholder tables.
type Expression struct {
	Expression string
	Names      map[string]string
	// Values holds Go values; they are converted to wire values with
	// ToAttributeValues when the command is built.
	Values map[string]any
}

// IsEmpty reports whether no expression was produced.
func (e Expression) IsEmpty() bool { return e.Expression == "" }

// AttributeValues converts Values to their wire form.
func (e Expression) AttributeValues() (map[string]types.AttributeValue, error) {
	if len(e.Values) == 0 {
		return nil, nil
	}
	return ToAttributeValues(e.Values)
}

// mergeNames copies src into dst, allocating dst when needed.
func mergeNames(dst map[string]string, src map[string]string) map[string]string {
	if len(src) == 0 {
		return dst
	}
	if dst == nil {
		dst = make(map[string]string, len(src))
	}
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func mergeValues(dst map[string]any, src map[string]any) map[string]any {
	if len(src) == 0 {
		return dst
	}
	if dst == nil {
		dst = make(map[string]any, len(src))
	}
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

type expressionParser struct {
	prefix string
	id     string

	expression strings.Builder
	names      map[string]string
	values     map[string]any
	nameIndex  map[string]string
	nameCount  int
	valueCount int
}

func newExpressionParser(prefix, id string) *expressionParser {
	return &expressionParser{
		prefix:    prefix,
		id:        id,
		names:     map[string]string{},
		values:    map[string]any{},
		nameIndex: map[string]string{},
	}
}

// appendName returns the placeholder of name, registering it on first use.
func (p *expressionParser) appendName(name string) string {
	if placeholder, ok := p.nameIndex[name]; ok {
		return placeholder
	}
	p.nameCount++
	placeholder := fmt.Sprintf("#%s%s_%d", p.prefix, p.id, p.nameCount)
	p.names[placeholder] = name
	p.nameIndex[name] = placeholder
	return placeholder
}

func (p *expressionParser) appendValue(value any) string {
	p.valueCount++
	placeholder := fmt.Sprintf(":%s%s_%d", p.prefix, p.id, p.valueCount)
	p.values[placeholder] = value
	return placeholder
}

// appendPath registers one name placeholder per named segment. Indexes are
// written inline.
func (p *expressionParser) appendPath(segments []pathSegment) string {
	var b strings.Builder
	for i, seg := range segments {
		if seg.isIndex {
			b.WriteString("[" + strconv.Itoa(seg.index) + "]")
			continue
		}
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(p.appendName(seg.name))
	}
	return b.String()
}

func (p *expressionParser) write(parts ...string) {
	for _, s := range parts {
		p.expression.WriteString(s)
	}
}

// sub runs fn against a fresh expression buffer and returns what it wrote.
// Placeholder tables and counters are shared.
func (p *expressionParser) sub(fn func() error) (string, error) {
	saved := p.expression.String()
	p.expression.Reset()
	err := fn()
	out := p.expression.String()
	p.expression.Reset()
	p.expression.WriteString(saved)
	return out, err
}

func (p *expressionParser) result() Expression {
	return Expression{Expression: p.expression.String(), Names: p.names, Values: p.values}
}

// ─── attribute paths ─────────────────────────────────────────────────────────

type pathSegment struct {
	name    string
	index   int
	isIndex bool
}

func (s pathSegment) String() string {
	if s.isIndex {
		return "[" + strconv.Itoa(s.index) + "]"
	}
	return s.name
}

func formatSegments(segments []pathSegment) string {
	var b strings.Builder
	for i, seg := range segments {
		if !seg.isIndex && i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(seg.String())
	}
	return b.String()
}

func invalidPath(path, reason string) *Error {
	return NewError(ErrInvalidExpressionAttributePath,
		fmt.Sprintf("Unable to match expression attribute path with schema: %s (%s)", path, reason),
		WithPath(path), WithPayload(map[string]any{"attributePath": path}))
}

// parsePath splits an attribute path such as "a.b[2].c" into segments.
func parsePath(path string) ([]pathSegment, error) {
	if path == "" {
		return nil, invalidPath(path, "empty path")
	}
	var segments []pathSegment
	i := 0
	for i < len(path) {
		switch path[i] {
		case '[':
			end := strings.IndexByte(path[i:], ']')
			if end < 0 {
				return nil, invalidPath(path, "unclosed index")
			}
			n, err := strconv.Atoi(path[i+1 : i+end])
			if err != nil || n < 0 {
				return nil, invalidPath(path, "invalid index")
			}
			segments = append(segments, pathSegment{index: n, isIndex: true})
			i += end + 1
		case '.':
			if len(segments) == 0 || i+1 >= len(path) {
				return nil, invalidPath(path, "unexpected dot")
			}
			i++
			if path[i] == '.' || path[i] == '[' {
				return nil, invalidPath(path, "empty segment")
			}
		default:
			if len(segments) > 0 && path[i-1] != '.' {
				return nil, invalidPath(path, "missing dot")
			}
			end := strings.IndexAny(path[i:], ".[")
			if end < 0 {
				end = len(path) - i
			}
			segments = append(segments, pathSegment{name: path[i : i+end]})
			i += end
		}
	}
	if segments[0].isIndex {
		return nil, invalidPath(path, "path must start with an attribute name")
	}
	return segments, nil
}

// resolvePath checks that path exists in schema and returns its storage
// segments and the attribute found at its end.
func resolvePath(schema *Schema, path string) ([]pathSegment, Attribute, error) {
	segments, err := parsePath(path)
	if err != nil {
		return nil, nil, err
	}
	attr, ok := schema.Attribute(segments[0].name)
	if !ok {
		return nil, nil, invalidPath(path, "unknown attribute "+segments[0].name)
	}
	head := pathSegment{name: storageName(segments[0].name, attr)}
	rest, leaf, err := resolveSegments(attr, segments[1:], path)
	if err != nil {
		return nil, nil, err
	}
	return append([]pathSegment{head}, rest...), leaf, nil
}

func resolveSegments(attr Attribute, segments []pathSegment, path string) ([]pathSegment, Attribute, error) {
	if len(segments) == 0 {
		return nil, attr, nil
	}
	seg := segments[0]
	var (
		out  pathSegment
		next Attribute
	)
	switch a := attr.(type) {
	case *AnyAttribute:
		return append([]pathSegment{}, segments...), a, nil
	case *AnyOfAttribute:
		for _, e := range a.elements {
			if resolved, leaf, err := resolveSegments(e, segments, path); err == nil {
				return resolved, leaf, nil
			}
		}
		return nil, nil, invalidPath(path, "no anyOf element matches "+formatSegments(segments))
	case *MapAttribute:
		if seg.isIndex {
			return nil, nil, invalidPath(path, "map attribute "+describePath(a.path)+" cannot be indexed")
		}
		child, ok := a.attributes[seg.name]
		if !ok {
			return nil, nil, invalidPath(path, "unknown attribute "+seg.name)
		}
		out, next = pathSegment{name: storageName(seg.name, child)}, child
	case *ListAttribute:
		if !seg.isIndex {
			return nil, nil, invalidPath(path, "list attribute "+describePath(a.path)+" expects an index")
		}
		out, next = seg, a.elements
	case *RecordAttribute:
		if seg.isIndex {
			return nil, nil, invalidPath(path, "record attribute "+describePath(a.path)+" cannot be indexed")
		}
		key := seg.name
		if t := a.keys.transform; t != nil {
			if s, ok := t.Parse(key).(string); ok {
				key = s
			}
		}
		out, next = pathSegment{name: key}, a.elements
	default:
		return nil, nil, invalidPath(path, fmt.Sprintf("%s attribute %s has no children", attr.Type(), describePath(attr.Path())))
	}
	rest, leaf, err := resolveSegments(next, segments[1:], path)
	if err != nil {
		return nil, nil, err
	}
	return append([]pathSegment{out}, rest...), leaf, nil
}
