package toolbox

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func conditionSchema() *Schema {
	return MustSchema(Attributes{
		"email": String(KeyAttribute(), SavedAs("pk")),
		"sort":  String(KeyAttribute(), SavedAs("sk")),
		"age":   Number(Optional()),
		"name":  String(Optional(), Transform(Prefix("N"))),
		"tags":  SetOf(String(), Optional()),
		"list":  ListOf(MapOf(Attributes{"x": Number()}), Optional()),
		"map":   MapOf(Attributes{"deep": String(Optional(), SavedAs("d"))}, Optional()),
		"rec":   RecordOf(String(Transform(Prefix("K"))), Number(), Optional()),
		"any":   Any(Optional()),
	})
}

func TestParseCondition_Comparison(t *testing.T) {
	expr, err := ParseCondition(conditionSchema(), Condition{Attr: "email", Gt: "test"}, "")
	require.NoError(t, err)
	assert.Equal(t, "#c_1 > :c_1", expr.Expression)
	assert.Equal(t, map[string]string{"#c_1": "pk"}, expr.Names)
	assert.Equal(t, map[string]any{":c_1": "test"}, expr.Values)

	ops := []struct {
		c    Condition
		want string
	}{
		{Condition{Attr: "age", Eq: 1}, "#c_1 = :c_1"},
		{Condition{Attr: "age", Ne: 1}, "#c_1 <> :c_1"},
		{Condition{Attr: "age", Lt: 1}, "#c_1 < :c_1"},
		{Condition{Attr: "age", Lte: 1}, "#c_1 <= :c_1"},
		{Condition{Attr: "age", Gte: 1}, "#c_1 >= :c_1"},
	}
	for _, op := range ops {
		expr, err := ParseCondition(conditionSchema(), op.c, "")
		require.NoError(t, err)
		assert.Equal(t, op.want, expr.Expression)
	}
}

func TestParseCondition_Namespaced(t *testing.T) {
	expr, err := ParseCondition(conditionSchema(), Condition{Attr: "email", Gt: "test"}, "2")
	require.NoError(t, err)
	assert.Equal(t, "#c2_1 > :c2_1", expr.Expression)
	assert.Equal(t, map[string]string{"#c2_1": "pk"}, expr.Names)
	assert.Equal(t, map[string]any{":c2_1": "test"}, expr.Values)
}

func TestParseCondition_ValuesAreTransformed(t *testing.T) {
	expr, err := ParseCondition(conditionSchema(), Condition{Attr: "name", Eq: "x"}, "")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{":c_1": "N#x"}, expr.Values)

	_, err = ParseCondition(conditionSchema(), Condition{Attr: "age", Eq: "x"}, "")
	requireCode(t, err, ErrInvalidAttributeInput)
}

func TestParseCondition_Exists(t *testing.T) {
	expr, err := ParseCondition(conditionSchema(), Exists("age"), "")
	require.NoError(t, err)
	assert.Equal(t, "attribute_exists(#c_1)", expr.Expression)
	assert.Empty(t, expr.Values)

	expr, err = ParseCondition(conditionSchema(), NotExists("email"), "")
	require.NoError(t, err)
	assert.Equal(t, "attribute_not_exists(#c_1)", expr.Expression)
	assert.Equal(t, map[string]string{"#c_1": "pk"}, expr.Names)
}

func TestParseCondition_Between(t *testing.T) {
	expr, err := ParseCondition(conditionSchema(), Condition{Attr: "age", Between: []any{1, 5}}, "")
	require.NoError(t, err)
	assert.Equal(t, "#c_1 BETWEEN :c_1 AND :c_2", expr.Expression)
	assert.Equal(t, map[string]any{":c_1": 1, ":c_2": 5}, expr.Values)

	_, err = ParseCondition(conditionSchema(), Condition{Attr: "age", Between: []any{1}}, "")
	requireCode(t, err, ErrInvalidCondition)
}

func TestParseCondition_Logical(t *testing.T) {
	expr, err := ParseCondition(conditionSchema(), Condition{And: []Condition{
		{Attr: "age", Gte: 18},
		{Attr: "email", BeginsWith: "a"},
	}}, "")
	require.NoError(t, err)
	assert.Equal(t, "(#c_1 >= :c_1) AND (begins_with(#c_2, :c_2))", expr.Expression)

	expr, err = ParseCondition(conditionSchema(), Condition{Not: &Condition{Attr: "age", Lt: 3}}, "")
	require.NoError(t, err)
	assert.Equal(t, "NOT (#c_1 < :c_1)", expr.Expression)

	expr, err = ParseCondition(conditionSchema(), Condition{Or: []Condition{
		{Attr: "age", Lt: 1},
		{And: []Condition{{Attr: "age", Gt: 10}, Exists("name")}},
	}}, "")
	require.NoError(t, err)
	assert.Equal(t, "(#c_1 < :c_1) OR ((#c_1 > :c_2) AND (attribute_exists(#c_2)))", expr.Expression)
	assert.Equal(t, map[string]string{"#c_1": "age", "#c_2": "name"}, expr.Names)

	_, err = ParseCondition(conditionSchema(), Condition{And: []Condition{}}, "")
	requireCode(t, err, ErrInvalidCondition)
}

func TestParseCondition_Size(t *testing.T) {
	expr, err := ParseCondition(conditionSchema(), Condition{Size: "tags", Gt: 2}, "")
	require.NoError(t, err)
	assert.Equal(t, "size(#c_1) > :c_1", expr.Expression)
	assert.Equal(t, map[string]any{":c_1": 2}, expr.Values)

	_, err = ParseCondition(conditionSchema(), Condition{Size: "tags", Gt: "2"}, "")
	requireCode(t, err, ErrInvalidCondition)
}

func TestParseCondition_Functions(t *testing.T) {
	expr, err := ParseCondition(conditionSchema(), Condition{Attr: "tags", Contains: "a"}, "")
	require.NoError(t, err)
	assert.Equal(t, "contains(#c_1, :c_1)", expr.Expression)
	assert.Equal(t, map[string]any{":c_1": "a"}, expr.Values)

	expr, err = ParseCondition(conditionSchema(), Condition{Attr: "any", Type: "S"}, "")
	require.NoError(t, err)
	assert.Equal(t, "attribute_type(#c_1, :c_1)", expr.Expression)
	assert.Equal(t, map[string]any{":c_1": "S"}, expr.Values)

	_, err = ParseCondition(conditionSchema(), Condition{Attr: "any", Type: "STRING"}, "")
	requireCode(t, err, ErrInvalidCondition)

	expr, err = ParseCondition(conditionSchema(), Condition{Attr: "age", In: []any{1, 2}}, "")
	require.NoError(t, err)
	assert.Equal(t, "#c_1 IN (:c_1, :c_2)", expr.Expression)

	_, err = ParseCondition(conditionSchema(), Condition{Attr: "age", In: []any{}}, "")
	requireCode(t, err, ErrInvalidCondition)
}

func TestParseCondition_Paths(t *testing.T) {
	expr, err := ParseCondition(conditionSchema(), Condition{Attr: "map.deep", Eq: "v"}, "")
	require.NoError(t, err)
	assert.Equal(t, "#c_1.#c_2 = :c_1", expr.Expression)
	assert.Equal(t, map[string]string{"#c_1": "map", "#c_2": "d"}, expr.Names)

	expr, err = ParseCondition(conditionSchema(), Condition{Attr: "list[2].x", Lt: 4}, "")
	require.NoError(t, err)
	assert.Equal(t, "#c_1[2].#c_2 < :c_1", expr.Expression)

	expr, err = ParseCondition(conditionSchema(), Condition{Attr: "rec.a", Eq: 1}, "")
	require.NoError(t, err)
	assert.Equal(t, "K#a", expr.Names["#c_2"])

	expr, err = ParseCondition(conditionSchema(), Condition{Attr: "any.free[0].form", Eq: 1}, "")
	require.NoError(t, err)
	assert.Equal(t, "#c_1.#c_2[0].#c_3 = :c_1", expr.Expression)
}

func TestParseCondition_AttributeReference(t *testing.T) {
	expr, err := ParseCondition(conditionSchema(), Condition{Attr: "age", Gt: Ref("list[0].x")}, "")
	require.NoError(t, err)
	assert.Equal(t, "#c_1 > #c_2[0].#c_3", expr.Expression)
	assert.Equal(t, map[string]string{"#c_1": "age", "#c_2": "list", "#c_3": "x"}, expr.Names)
	assert.Empty(t, expr.Values)
}

func TestParseCondition_Errors(t *testing.T) {
	cases := []struct {
		name string
		c    Condition
		code ErrorCode
	}{
		{"no operator", Condition{Attr: "age"}, ErrInvalidCondition},
		{"no attribute", Condition{Eq: 1}, ErrInvalidCondition},
		{"unknown attribute", Condition{Attr: "unknown", Eq: 1}, ErrInvalidExpressionAttributePath},
		{"unknown child", Condition{Attr: "map.other", Eq: 1}, ErrInvalidExpressionAttributePath},
		{"list without index", Condition{Attr: "list.x", Eq: 1}, ErrInvalidExpressionAttributePath},
		{"indexed map", Condition{Attr: "map[0]", Eq: 1}, ErrInvalidExpressionAttributePath},
		{"primitive child", Condition{Attr: "age.x", Eq: 1}, ErrInvalidExpressionAttributePath},
		{"malformed path", Condition{Attr: "map..deep", Eq: 1}, ErrInvalidExpressionAttributePath},
		{"unclosed index", Condition{Attr: "list[0", Eq: 1}, ErrInvalidExpressionAttributePath},
		{"unknown reference", Condition{Attr: "age", Eq: Ref("nope")}, ErrInvalidExpressionAttributePath},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseCondition(conditionSchema(), tc.c, "")
			requireCode(t, err, tc.code)
		})
	}
}

func TestParsePath(t *testing.T) {
	segments, err := parsePath("a.b[12].c")
	require.NoError(t, err)
	assert.Equal(t, "a.b[12].c", formatSegments(segments))
	assert.Len(t, segments, 4)

	for _, bad := range []string{"", "[0]", ".a", "a.", "a[x]", "a[-1]", "a[0]b"} {
		_, err := parsePath(bad)
		var e *Error
		require.True(t, errors.As(err, &e), bad)
		assert.Equal(t, ErrInvalidExpressionAttributePath, e.Code, bad)
	}
}
