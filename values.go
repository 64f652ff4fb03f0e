package toolbox

import (
	"bytes"
	"fmt"
	"reflect"
	"sort"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"golang.org/x/exp/constraints"
)

// Item is a logical or saved item: attribute name → value.
type Item map[string]any

// Set is an unordered collection of unique primitive values. Elements keep
// their insertion order so that generated expressions are deterministic.
type Set []any

// Numeric is any Go numeric kind accepted for number attributes.
type Numeric interface {
	constraints.Integer | constraints.Float
}

// NewSet builds a Set from values.
func NewSet(values ...any) Set { return Set(append([]any{}, values...)) }

// StringSet builds a Set of strings.
func StringSet(values ...string) Set {
	s := make(Set, len(values))
	for i, v := range values {
		s[i] = v
	}
	return s
}

// NumberSet builds a Set of numbers.
func NumberSet[N Numeric](values ...N) Set {
	s := make(Set, len(values))
	for i, v := range values {
		s[i] = v
	}
	return s
}

// BinarySet builds a Set of binary values.
func BinarySet(values ...[]byte) Set {
	s := make(Set, len(values))
	for i, v := range values {
		s[i] = v
	}
	return s
}

// Has reports whether v is an element of the set.
func (s Set) Has(v any) bool {
	for _, e := range s {
		if valuesEqual(e, v) {
			return true
		}
	}
	return false
}

func isNumber(v any) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return true
	}
	return false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func toInt(v any) (int, bool) {
	f, ok := toFloat(v)
	if !ok || f != float64(int(f)) {
		return 0, false
	}
	return int(f), true
}

// valuesEqual compares primitives; numbers compare by value across Go kinds.
func valuesEqual(a, b any) bool {
	if fa, ok := toFloat(a); ok {
		fb, ok := toFloat(b)
		return ok && fa == fb
	}
	if ba, ok := a.([]byte); ok {
		bb, ok := b.([]byte)
		return ok && bytes.Equal(ba, bb)
	}
	if a == nil || b == nil {
		return a == b
	}
	if !reflect.TypeOf(a).Comparable() || !reflect.TypeOf(b).Comparable() {
		return false
	}
	return a == b
}

// primitiveKey returns a string identifying a primitive value, used for set uniqueness.
func primitiveKey(v any) string {
	if f, ok := toFloat(v); ok {
		return "N:" + strconv.FormatFloat(f, 'g', -1, 64)
	}
	switch x := v.(type) {
	case string:
		return "S:" + x
	case []byte:
		return "B:" + string(x)
	case bool:
		return "BOOL:" + strconv.FormatBool(x)
	}
	return fmt.Sprintf("%T:%v", v, v)
}

// toStringMap accepts Item and map[string]any.
func toStringMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case Item:
		return map[string]any(m), true
	case map[string]any:
		return m, true
	}
	return nil, false
}

// toAnySlice accepts []any and any other slice kind except []byte and Set.
func toAnySlice(v any) ([]any, bool) {
	switch s := v.(type) {
	case []any:
		return s, true
	case []byte, Set, nil:
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

// cloneValue deep-copies maps, slices, sets and binaries. Other values are
// immutable and returned as is.
func cloneValue(v any) any {
	switch x := v.(type) {
	case Item:
		out := make(Item, len(x))
		for k, e := range x {
			out[k] = cloneValue(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = cloneValue(e)
		}
		return out
	case map[int]any:
		out := make(map[int]any, len(x))
		for k, e := range x {
			out[k] = cloneValue(e)
		}
		return out
	case Set:
		out := make(Set, len(x))
		for i, e := range x {
			out[i] = cloneValue(e)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = cloneValue(e)
		}
		return out
	case []byte:
		return append([]byte{}, x...)
	}
	return v
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ─── wire conversion ─────────────────────────────────────────────────────────

// ToAttributeValue converts a collapsed Go value to its DynamoDB wire form.
// Set becomes SS, NS or BS depending on its elements; everything else goes
// through attributevalue.Marshal.
func ToAttributeValue(v any) (types.AttributeValue, error) {
	switch x := v.(type) {
	case nil:
		return &types.AttributeValueMemberNULL{Value: true}, nil
	case Set:
		return setToAttributeValue(x)
	case Item:
		return mapToAttributeValue(x)
	case map[string]any:
		return mapToAttributeValue(x)
	case []byte:
		return &types.AttributeValueMemberB{Value: x}, nil
	case []any:
		list := make([]types.AttributeValue, len(x))
		for i, e := range x {
			av, err := ToAttributeValue(e)
			if err != nil {
				return nil, err
			}
			list[i] = av
		}
		return &types.AttributeValueMemberL{Value: list}, nil
	}
	if s, ok := toAnySlice(v); ok {
		return ToAttributeValue(s)
	}
	return attributevalue.Marshal(v)
}

func mapToAttributeValue(m map[string]any) (types.AttributeValue, error) {
	avs, err := ToAttributeValues(m)
	if err != nil {
		return nil, err
	}
	return &types.AttributeValueMemberM{Value: avs}, nil
}

func setToAttributeValue(s Set) (types.AttributeValue, error) {
	if len(s) == 0 {
		return nil, fmt.Errorf("toolbox: cannot marshal an empty set")
	}
	switch s[0].(type) {
	case string:
		out := make([]string, len(s))
		for i, e := range s {
			str, ok := e.(string)
			if !ok {
				return nil, fmt.Errorf("toolbox: mixed set element %T", e)
			}
			out[i] = str
		}
		return &types.AttributeValueMemberSS{Value: out}, nil
	case []byte:
		out := make([][]byte, len(s))
		for i, e := range s {
			b, ok := e.([]byte)
			if !ok {
				return nil, fmt.Errorf("toolbox: mixed set element %T", e)
			}
			out[i] = b
		}
		return &types.AttributeValueMemberBS{Value: out}, nil
	}
	out := make([]string, len(s))
	for i, e := range s {
		if !isNumber(e) {
			return nil, fmt.Errorf("toolbox: invalid set element %T", e)
		}
		av, err := attributevalue.Marshal(e)
		if err != nil {
			return nil, err
		}
		n, ok := av.(*types.AttributeValueMemberN)
		if !ok {
			return nil, fmt.Errorf("toolbox: invalid number set element %v", e)
		}
		out[i] = n.Value
	}
	return &types.AttributeValueMemberNS{Value: out}, nil
}

// ToAttributeValues converts a collapsed item to a wire item.
func ToAttributeValues(item map[string]any) (map[string]types.AttributeValue, error) {
	out := make(map[string]types.AttributeValue, len(item))
	for k, v := range item {
		av, err := ToAttributeValue(v)
		if err != nil {
			return nil, fmt.Errorf("toolbox: marshal %q: %w", k, err)
		}
		out[k] = av
	}
	return out, nil
}

// FromAttributeValue converts a wire value to a Go value: sets become Set,
// lists []any, maps map[string]any and numbers float64.
func FromAttributeValue(av types.AttributeValue) (any, error) {
	switch x := av.(type) {
	case *types.AttributeValueMemberSS:
		return StringSet(x.Value...), nil
	case *types.AttributeValueMemberBS:
		return BinarySet(x.Value...), nil
	case *types.AttributeValueMemberNS:
		s := make(Set, len(x.Value))
		for i, n := range x.Value {
			var f float64
			if err := attributevalue.Unmarshal(&types.AttributeValueMemberN{Value: n}, &f); err != nil {
				return nil, err
			}
			s[i] = f
		}
		return s, nil
	case *types.AttributeValueMemberL:
		out := make([]any, len(x.Value))
		for i, e := range x.Value {
			v, err := FromAttributeValue(e)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	case *types.AttributeValueMemberM:
		out, err := FromAttributeValues(x.Value)
		if err != nil {
			return nil, err
		}
		return map[string]any(out), nil
	}
	var out any
	if err := attributevalue.Unmarshal(av, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// FromAttributeValues converts a wire item to an Item.
func FromAttributeValues(avs map[string]types.AttributeValue) (Item, error) {
	out := make(Item, len(avs))
	for k, av := range avs {
		v, err := FromAttributeValue(av)
		if err != nil {
			return nil, fmt.Errorf("toolbox: unmarshal %q: %w", k, err)
		}
		out[k] = v
	}
	return out, nil
}
