package toolbox

import (
	"sort"
	"strings"
)

// updateExpressionParser accumulates the clauses of the four update verbs.
// Each verb owns its placeholder tables; they are merged in Expression.
type updateExpressionParser struct {
	set    *expressionParser
	remove *expressionParser
	add    *expressionParser
	delete *expressionParser

	setClauses    []string
	removeClauses []string
	addClauses    []string
	deleteClauses []string

	emptyList string
}

func newUpdateExpressionParser() *updateExpressionParser {
	return &updateExpressionParser{
		set:    newExpressionParser("s", ""),
		remove: newExpressionParser("r", ""),
		add:    newExpressionParser("a", ""),
		delete: newExpressionParser("d", ""),
	}
}

// ParseUpdateExpression compiles a collapsed update item (storage names,
// update markers) into an update expression.
func ParseUpdateExpression(item Item) Expression {
	p := newUpdateExpressionParser()
	for _, name := range sortedKeys(item) {
		p.walk([]pathSegment{{name: name}}, item[name])
	}
	return p.result()
}

func (p *updateExpressionParser) walk(path []pathSegment, value any) {
	switch v := value.(type) {
	case nil:
	case SetOperation:
		p.setClause(path, p.set.appendValue(v.Value))
	case RemoveOperation:
		p.removeClauses = append(p.removeClauses, p.remove.appendPath(path))
	case AddOperation:
		p.addClauses = append(p.addClauses, p.add.appendPath(path)+" "+p.add.appendValue(v.Value))
	case DeleteOperation:
		p.deleteClauses = append(p.deleteClauses, p.delete.appendPath(path)+" "+p.delete.appendValue(v.Value))
	case AppendOperation:
		target := p.set.appendPath(path)
		p.setClauses = append(p.setClauses,
			target+" = list_append(if_not_exists("+target+", "+p.emptyListValue()+"), "+p.operand(v.Value)+")")
	case PrependOperation:
		target := p.set.appendPath(path)
		p.setClauses = append(p.setClauses,
			target+" = list_append("+p.operand(v.Value)+", if_not_exists("+target+", "+p.emptyListValue()+"))")
	case SumOperation:
		p.setClause(path, p.operand(v.Left)+" + "+p.operand(v.Right))
	case SubtractOperation:
		p.setClause(path, p.operand(v.Left)+" - "+p.operand(v.Right))
	case GetOperation:
		p.setClause(path, p.operand(v))
	case Item:
		p.walkMap(path, v)
	case map[string]any:
		p.walkMap(path, v)
	case map[int]any:
		indexes := make([]int, 0, len(v))
		for i := range v {
			indexes = append(indexes, i)
		}
		sort.Ints(indexes)
		for _, i := range indexes {
			p.walk(appendSegment(path, pathSegment{index: i, isIndex: true}), v[i])
		}
	case []any:
		for i, e := range v {
			p.walk(appendSegment(path, pathSegment{index: i, isIndex: true}), e)
		}
	default:
		p.setClause(path, p.set.appendValue(v))
	}
}

func (p *updateExpressionParser) walkMap(path []pathSegment, m map[string]any) {
	for _, k := range sortedKeys(m) {
		p.walk(appendSegment(path, pathSegment{name: k}), m[k])
	}
}

func appendSegment(path []pathSegment, seg pathSegment) []pathSegment {
	out := make([]pathSegment, len(path), len(path)+1)
	copy(out, path)
	return append(out, seg)
}

func (p *updateExpressionParser) setClause(path []pathSegment, rhs string) {
	p.setClauses = append(p.setClauses, p.set.appendPath(path)+" = "+rhs)
}

// operand writes a SET operand: a value placeholder or a reference,
// guarded by if_not_exists when the reference has a fallback.
func (p *updateExpressionParser) operand(v any) string {
	g, ok := v.(GetOperation)
	if !ok {
		return p.set.appendValue(v)
	}
	ref := p.set.appendPath(g.segments)
	if !g.HasFallback {
		return ref
	}
	return "if_not_exists(" + ref + ", " + p.operand(g.Fallback) + ")"
}

// emptyListValue interns the empty list used to guard list_append.
func (p *updateExpressionParser) emptyListValue() string {
	if p.emptyList == "" {
		p.emptyList = p.set.appendValue([]any{})
	}
	return p.emptyList
}

func (p *updateExpressionParser) result() Expression {
	var clauses []string
	verbs := []struct {
		keyword string
		clauses []string
	}{
		{"SET", p.setClauses},
		{"REMOVE", p.removeClauses},
		{"ADD", p.addClauses},
		{"DELETE", p.deleteClauses},
	}
	for _, verb := range verbs {
		if len(verb.clauses) > 0 {
			clauses = append(clauses, verb.keyword+" "+strings.Join(verb.clauses, ", "))
		}
	}
	out := Expression{Expression: strings.Join(clauses, " ")}
	for _, e := range []*expressionParser{p.set, p.remove, p.add, p.delete} {
		out.Names = mergeNames(out.Names, e.names)
		out.Values = mergeValues(out.Values, e.values)
	}
	return out
}
