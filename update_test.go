package toolbox

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func updateSchema() *Schema {
	return MustSchema(Attributes{
		"id":    String(KeyAttribute()),
		"count": Number(Optional()),
		"name":  String(Optional(), SavedAs("n")),
		"tags":  SetOf(String(), Optional()),
		"list":  ListOf(String(), Optional()),
		"nums":  ListOf(Number(), Optional()),
		"map": MapOf(Attributes{
			"a": String(Optional()),
			"b": Number(Optional()),
		}, Optional()),
		"rec": RecordOf(String(), Number(), Optional()),
		"any": Any(Optional()),
	})
}

func parseUpdate(s *Schema, item Item) (ParsedItem, error) {
	return ParseItem(s, item, ParseOptions{Operation: OperationUpdate, Extension: updateExtension(s)})
}

// compileUpdate parses item for an update and compiles everything but the key.
func compileUpdate(t *testing.T, s *Schema, item Item) Expression {
	t.Helper()
	item["id"] = "1"
	parsed, err := parseUpdate(s, item)
	require.NoError(t, err)
	delete(parsed.Collapsed, "id")
	return ParseUpdateExpression(parsed.Collapsed)
}

func TestUpdateExpression_Set(t *testing.T) {
	expr := compileUpdate(t, updateSchema(), Item{"name": "x", "count": 3})
	assert.Equal(t, "SET #s_1 = :s_1, #s_2 = :s_2", expr.Expression)
	assert.Equal(t, map[string]string{"#s_1": "count", "#s_2": "n"}, expr.Names)
	assert.Equal(t, map[string]any{":s_1": 3, ":s_2": "x"}, expr.Values)
}

func TestUpdateExpression_Remove(t *testing.T) {
	expr := compileUpdate(t, updateSchema(), Item{"name": Remove()})
	assert.Equal(t, "REMOVE #r_1", expr.Expression)
	assert.Equal(t, map[string]string{"#r_1": "n"}, expr.Names)
	assert.Empty(t, expr.Values)
}

func TestUpdateExpression_AddAndDelete(t *testing.T) {
	expr := compileUpdate(t, updateSchema(), Item{"count": Add(2)})
	assert.Equal(t, "ADD #a_1 :a_1", expr.Expression)
	assert.Equal(t, map[string]any{":a_1": 2}, expr.Values)

	expr = compileUpdate(t, updateSchema(), Item{"tags": Add(StringSet("a"))})
	assert.Equal(t, "ADD #a_1 :a_1", expr.Expression)
	assert.Equal(t, map[string]any{":a_1": Set{"a"}}, expr.Values)

	expr = compileUpdate(t, updateSchema(), Item{"tags": Delete(StringSet("b"))})
	assert.Equal(t, "DELETE #d_1 :d_1", expr.Expression)
	assert.Equal(t, map[string]string{"#d_1": "tags"}, expr.Names)
}

func TestUpdateExpression_VerbOrder(t *testing.T) {
	expr := compileUpdate(t, updateSchema(), Item{
		"count": Sum(Get("count", 0), 1),
		"name":  Remove(),
		"tags":  Delete(StringSet("x")),
	})
	assert.Equal(t, "SET #s_1 = if_not_exists(#s_1, :s_1) + :s_2 REMOVE #r_1 DELETE #d_1 :d_1", expr.Expression)
	assert.Equal(t, map[string]string{"#s_1": "count", "#r_1": "n", "#d_1": "tags"}, expr.Names)
	assert.Equal(t, map[string]any{":s_1": 0, ":s_2": 1, ":d_1": Set{"x"}}, expr.Values)
}

func TestUpdateExpression_Subtract(t *testing.T) {
	expr := compileUpdate(t, updateSchema(), Item{"count": Subtract(Get("count"), 5)})
	assert.Equal(t, "SET #s_1 = #s_1 - :s_1", expr.Expression)
	assert.Equal(t, map[string]any{":s_1": 5}, expr.Values)
}

func TestUpdateExpression_AppendPrepend(t *testing.T) {
	expr := compileUpdate(t, updateSchema(), Item{"list": Append([]any{"c"})})
	assert.Equal(t, "SET #s_1 = list_append(if_not_exists(#s_1, :s_1), :s_2)", expr.Expression)
	assert.Equal(t, map[string]any{":s_1": []any{}, ":s_2": []any{"c"}}, expr.Values)

	expr = compileUpdate(t, updateSchema(), Item{"list": Prepend([]any{"a"})})
	assert.Equal(t, "SET #s_1 = list_append(:s_1, if_not_exists(#s_1, :s_2))", expr.Expression)
	assert.Equal(t, map[string]any{":s_1": []any{"a"}, ":s_2": []any{}}, expr.Values)
}

func TestUpdateExpression_EmptyListIsInternedOnce(t *testing.T) {
	expr := compileUpdate(t, updateSchema(), Item{
		"list": Append([]any{"c"}),
		"nums": Append([]any{1}),
	})
	assert.Equal(t,
		"SET #s_1 = list_append(if_not_exists(#s_1, :s_1), :s_2), #s_2 = list_append(if_not_exists(#s_2, :s_1), :s_3)",
		expr.Expression)
	assert.Len(t, expr.Values, 3)
}

func TestUpdateExpression_ListIndexes(t *testing.T) {
	expr := compileUpdate(t, updateSchema(), Item{"list": map[int]any{3: Remove(), 1: "x"}})
	assert.Equal(t, "SET #s_1[1] = :s_1 REMOVE #r_1[3]", expr.Expression)
	assert.Equal(t, map[string]string{"#s_1": "list", "#r_1": "list"}, expr.Names)

	// a plain list value is written element by element
	expr = compileUpdate(t, updateSchema(), Item{"list": []any{"a", "b"}})
	assert.Equal(t, "SET #s_1[0] = :s_1, #s_1[1] = :s_2", expr.Expression)

	// SetValue replaces the list as a whole
	expr = compileUpdate(t, updateSchema(), Item{"list": SetValue([]any{"a", "b"})})
	assert.Equal(t, "SET #s_1 = :s_1", expr.Expression)
	assert.Equal(t, map[string]any{":s_1": []any{"a", "b"}}, expr.Values)
}

func TestUpdateExpression_NestedMap(t *testing.T) {
	expr := compileUpdate(t, updateSchema(), Item{"map": map[string]any{"a": "x", "b": Remove()}})
	assert.Equal(t, "SET #s_1.#s_2 = :s_1 REMOVE #r_1.#r_2", expr.Expression)
	assert.Equal(t, map[string]string{
		"#s_1": "map", "#s_2": "a",
		"#r_1": "map", "#r_2": "b",
	}, expr.Names)

	expr = compileUpdate(t, updateSchema(), Item{"map": SetValue(map[string]any{"a": "x"})})
	assert.Equal(t, "SET #s_1 = :s_1", expr.Expression)
	assert.Equal(t, map[string]any{":s_1": map[string]any{"a": "x"}}, expr.Values)
}

func TestUpdateExpression_Record(t *testing.T) {
	expr := compileUpdate(t, updateSchema(), Item{"rec": map[string]any{"x": 1, "y": Remove()}})
	assert.Equal(t, "SET #s_1.#s_2 = :s_1 REMOVE #r_1.#r_2", expr.Expression)
	assert.Equal(t, "x", expr.Names["#s_2"])
	assert.Equal(t, "y", expr.Names["#r_2"])
}

func TestUpdateExpression_References(t *testing.T) {
	expr := compileUpdate(t, updateSchema(), Item{"any": Get("name")})
	assert.Equal(t, "SET #s_2 = #s_1", expr.Expression)
	assert.Equal(t, map[string]string{"#s_1": "n", "#s_2": "any"}, expr.Names)

	expr = compileUpdate(t, updateSchema(), Item{"nums": Append(Get("nums"))})
	assert.Equal(t, "SET #s_1 = list_append(if_not_exists(#s_1, :s_1), #s_1)", expr.Expression)

	expr = compileUpdate(t, updateSchema(), Item{"any": Add(1)})
	assert.Equal(t, "ADD #a_1 :a_1", expr.Expression)
}

func TestUpdateExpression_Empty(t *testing.T) {
	expr := ParseUpdateExpression(Item{})
	assert.True(t, expr.IsEmpty())
	assert.Empty(t, expr.Names)
}

func TestUpdateExtension_Errors(t *testing.T) {
	s := updateSchema()
	cases := []struct {
		name string
		item Item
		code ErrorCode
	}{
		{"add to string", Item{"name": Add("x")}, ErrInvalidAttributeInput},
		{"append to set", Item{"tags": Append([]any{"x"})}, ErrInvalidAttributeInput},
		{"delete from number", Item{"count": Delete(1)}, ErrInvalidAttributeInput},
		{"add wrong type", Item{"count": Add("x")}, ErrInvalidAttributeInput},
		{"unknown reference", Item{"count": Get("missing")}, ErrInvalidReference},
		{"negative index", Item{"list": map[int]any{-1: "x"}}, ErrInvalidAttributeInput},
		{"set empty set", Item{"tags": SetValue(Set{})}, ErrInvalidAttributeInput},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tc.item["id"] = "1"
			_, err := parseUpdate(s, tc.item)
			requireCode(t, err, tc.code)
		})
	}
}

func TestUpdateExtension_RemoveRequired(t *testing.T) {
	s := MustSchema(Attributes{"id": String(KeyAttribute()), "title": String()})
	_, err := parseUpdate(s, Item{"id": "1", "title": Remove()})
	requireCode(t, err, ErrAttributeRequired)
	assert.Equal(t, "title", err.(*Error).Path)
}

func TestUpdateExtension_ParsedKeepsMarkers(t *testing.T) {
	s := updateSchema()
	parsed, err := parseUpdate(s, Item{"id": "1", "count": Add(1), "name": SetValue("x")})
	require.NoError(t, err)
	assert.Equal(t, AddOperation{Value: 1}, parsed.Parsed["count"])
	assert.Equal(t, SetOperation{Value: "x"}, parsed.Parsed["name"])
	assert.Equal(t, SetOperation{Value: "x"}, parsed.Collapsed["n"])
}
