package toolbox

import (
	"fmt"
	"strings"
)

// Condition is a condition or filter tree. Exactly one shape is expected per
// node; when several are set the first one in this order wins: comparison
// (Eq, Ne, Lt, Lte, Gt, Gte), Exists, Between, Not, And/Or, two-argument
// functions (BeginsWith, Contains, Type), In.
//
// Attr is the attribute path the node applies to ("a.b[2].c"). Size compares
// the size of the attribute at that path instead of its value. Values are
// parsed against the attribute they are compared with, so transforms apply;
// use Ref to compare with another attribute.
type Condition struct {
	Attr string
	Size string

	Eq  any
	Ne  any
	Lt  any
	Lte any
	Gt  any
	Gte any

	Exists  *bool
	Between []any
	In      []any

	BeginsWith any
	Contains   any
	Type       any

	Not *Condition
	And []Condition
	Or  []Condition
}

// AttrRef references another attribute as a condition value.
type AttrRef struct{ Attr string }

// Ref builds an attribute reference usable as a condition value.
func Ref(path string) AttrRef { return AttrRef{Attr: path} }

// Exists is a shortcut for Condition{Attr: path, Exists: &true}.
func Exists(path string) Condition {
	t := true
	return Condition{Attr: path, Exists: &t}
}

// NotExists is a shortcut for Condition{Attr: path, Exists: &false}.
func NotExists(path string) Condition {
	f := false
	return Condition{Attr: path, Exists: &f}
}

// attribute type descriptors accepted by Type.
var attributeTypeDescriptors = map[string]bool{
	"S": true, "SS": true, "N": true, "NS": true, "B": true, "BS": true,
	"BOOL": true, "NULL": true, "L": true, "M": true,
}

// conditionValueOptions parse condition values without defaults or
// required checks.
var conditionValueOptions = ParseOptions{Operation: "condition", RequiringOptions: []RequiredOption{}}

type conditionParser struct {
	*expressionParser
	schema *Schema
}

// ParseCondition compiles c against schema. id namespaces the placeholders
// (#c{id}_N, :c{id}_N) so that several conditions can be merged.
func ParseCondition(schema *Schema, c Condition, id string) (Expression, error) {
	p := &conditionParser{expressionParser: newExpressionParser("c", id), schema: schema}
	if err := p.parse(c); err != nil {
		return Expression{}, err
	}
	return p.result(), nil
}

func invalidCondition(c Condition, reason string) *Error {
	return NewError(ErrInvalidCondition,
		fmt.Sprintf("Invalid condition: %s", reason),
		WithPath(c.Attr), WithPayload(map[string]any{"condition": c}))
}

var comparisonOperators = []string{"=", "<>", "<", "<=", ">", ">="}

func (c Condition) comparison() (op string, value any, ok bool) {
	for i, v := range []any{c.Eq, c.Ne, c.Lt, c.Lte, c.Gt, c.Gte} {
		if v != nil {
			return comparisonOperators[i], v, true
		}
	}
	return "", nil, false
}

func (p *conditionParser) parse(c Condition) error {
	if op, value, ok := c.comparison(); ok {
		return p.parseComparison(c, op, value)
	}
	switch {
	case c.Exists != nil:
		target, _, err := p.target(c)
		if err != nil {
			return err
		}
		if *c.Exists {
			p.write("attribute_exists(", target, ")")
		} else {
			p.write("attribute_not_exists(", target, ")")
		}
		return nil
	case c.Between != nil:
		return p.parseBetween(c)
	case c.Not != nil:
		inner, err := p.sub(func() error { return p.parse(*c.Not) })
		if err != nil {
			return err
		}
		p.write("NOT (", inner, ")")
		return nil
	case c.And != nil:
		return p.parseLogical(c, c.And, "AND")
	case c.Or != nil:
		return p.parseLogical(c, c.Or, "OR")
	case c.BeginsWith != nil:
		return p.parseFunction(c, "begins_with", c.BeginsWith)
	case c.Contains != nil:
		return p.parseFunction(c, "contains", c.Contains)
	case c.Type != nil:
		return p.parseType(c)
	case c.In != nil:
		return p.parseIn(c)
	}
	return invalidCondition(c, "no condition operator found")
}

// target appends the attribute (or its size) the condition applies to.
func (p *conditionParser) target(c Condition) (string, Attribute, error) {
	switch {
	case c.Size != "":
		segments, attr, err := resolvePath(p.schema, c.Size)
		if err != nil {
			return "", nil, err
		}
		return "size(" + p.appendPath(segments) + ")", attr, nil
	case c.Attr != "":
		segments, attr, err := resolvePath(p.schema, c.Attr)
		if err != nil {
			return "", nil, err
		}
		return p.appendPath(segments), attr, nil
	}
	return "", nil, invalidCondition(c, "missing attribute path")
}

// value appends a value or an attribute reference. Sizes are compared with
// raw numbers.
func (p *conditionParser) value(attr Attribute, v any, size bool) (string, error) {
	if ref, ok := v.(AttrRef); ok {
		segments, _, err := resolvePath(p.schema, ref.Attr)
		if err != nil {
			return "", err
		}
		return p.appendPath(segments), nil
	}
	if size {
		if !isNumber(v) {
			return "", NewError(ErrInvalidCondition,
				fmt.Sprintf("Invalid condition: size of %s must be compared with a number", attr.Path()),
				WithPath(attr.Path()), WithPayload(map[string]any{"received": v}))
		}
		return p.appendValue(v), nil
	}
	_, collapsed, err := parseAttribute(attr, v, conditionValueOptions)
	if err != nil {
		return "", err
	}
	return p.appendValue(collapsed), nil
}

func (p *conditionParser) parseComparison(c Condition, op string, v any) error {
	target, attr, err := p.target(c)
	if err != nil {
		return err
	}
	value, err := p.value(attr, v, c.Size != "")
	if err != nil {
		return err
	}
	p.write(target, " ", op, " ", value)
	return nil
}

func (p *conditionParser) parseBetween(c Condition) error {
	if len(c.Between) != 2 {
		return invalidCondition(c, "between expects exactly two values")
	}
	target, attr, err := p.target(c)
	if err != nil {
		return err
	}
	low, err := p.value(attr, c.Between[0], c.Size != "")
	if err != nil {
		return err
	}
	high, err := p.value(attr, c.Between[1], c.Size != "")
	if err != nil {
		return err
	}
	p.write(target, " BETWEEN ", low, " AND ", high)
	return nil
}

func (p *conditionParser) parseLogical(c Condition, children []Condition, op string) error {
	if len(children) == 0 {
		return invalidCondition(c, strings.ToLower(op)+" expects at least one condition")
	}
	parts := make([]string, 0, len(children))
	for _, child := range children {
		child := child
		part, err := p.sub(func() error { return p.parse(child) })
		if err != nil {
			return err
		}
		parts = append(parts, part)
	}
	p.write("(", strings.Join(parts, ") "+op+" ("), ")")
	return nil
}

func (p *conditionParser) parseFunction(c Condition, fn string, v any) error {
	target, attr, err := p.target(c)
	if err != nil {
		return err
	}
	valueAttr := attr
	if fn == "contains" {
		switch a := attr.(type) {
		case *SetAttribute:
			valueAttr = a.elements
		case *ListAttribute:
			valueAttr = a.elements
		}
	}
	value, err := p.value(valueAttr, v, false)
	if err != nil {
		return err
	}
	p.write(fn, "(", target, ", ", value, ")")
	return nil
}

func (p *conditionParser) parseType(c Condition) error {
	descriptor, ok := c.Type.(string)
	if !ok || !attributeTypeDescriptors[descriptor] {
		return invalidCondition(c, fmt.Sprintf("invalid attribute type %v", c.Type))
	}
	target, _, err := p.target(c)
	if err != nil {
		return err
	}
	p.write("attribute_type(", target, ", ", p.appendValue(descriptor), ")")
	return nil
}

func (p *conditionParser) parseIn(c Condition) error {
	if len(c.In) == 0 {
		return invalidCondition(c, "in expects at least one value")
	}
	target, attr, err := p.target(c)
	if err != nil {
		return err
	}
	values := make([]string, 0, len(c.In))
	for _, v := range c.In {
		value, err := p.value(attr, v, c.Size != "")
		if err != nil {
			return err
		}
		values = append(values, value)
	}
	p.write(target, " IN (", strings.Join(values, ", "), ")")
	return nil
}
