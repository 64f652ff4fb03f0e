package toolbox

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func savedUser() Item {
	return Item{
		"pk":       "USER#u1",
		"sk":       "profile",
		"name":     "Ann",
		"age":      float64(42),
		"address":  map[string]any{"city": "Berlin", "z": "10115"},
		"tags":     Set{"a", "b"},
		"friends":  []any{"bob"},
		"secret":   "hidden",
		"_unknown": "ignored",
	}
}

func TestFormatSavedItem(t *testing.T) {
	s := MustSchema(userAttributes())
	item, err := FormatSavedItem(s, savedUser(), FormatOptions{})
	require.NoError(t, err)
	assert.Equal(t, Item{
		"userId":  "u1",
		"sk":      "profile",
		"name":    "Ann",
		"age":     float64(42),
		"address": map[string]any{"city": "Berlin", "zip": "10115"},
		"tags":    Set{"a", "b"},
		"friends": []any{"bob"},
	}, item)
}

func TestFormatSavedItem_MissingRequired(t *testing.T) {
	s := MustSchema(userAttributes())
	saved := savedUser()
	delete(saved, "name")

	_, err := FormatSavedItem(s, saved, FormatOptions{PartitionKey: "USER#u1", SortKey: "profile"})
	requireCode(t, err, ErrSavedAttributeRequired)
	assert.Contains(t, err.Error(), "(partition key: USER#u1, sort key: profile)")
	assert.Equal(t, "name", err.(*Error).Path)

	item, err := FormatSavedItem(s, saved, FormatOptions{Partial: true})
	require.NoError(t, err)
	assert.NotContains(t, item, "name")
}

func TestFormatSavedItem_InvalidType(t *testing.T) {
	s := MustSchema(userAttributes())
	saved := savedUser()
	saved["name"] = float64(1)
	_, err := FormatSavedItem(s, saved, FormatOptions{})
	requireCode(t, err, ErrInvalidSavedAttribute)

	saved = savedUser()
	saved["tags"] = []any{"a"}
	_, err = FormatSavedItem(s, saved, FormatOptions{})
	requireCode(t, err, ErrInvalidSavedAttribute)
}

func TestFormatSavedItem_Projection(t *testing.T) {
	s := MustSchema(userAttributes())
	item, err := FormatSavedItem(s, savedUser(), FormatOptions{Attributes: []string{"name", "address.city"}})
	require.NoError(t, err)
	assert.Equal(t, Item{
		"name":    "Ann",
		"address": map[string]any{"city": "Berlin"},
	}, item)
}

func TestFormatSavedItem_RecordsAndAnyOf(t *testing.T) {
	s := MustSchema(Attributes{
		"rec": RecordOf(String(Transform(Prefix("K"))), Number()),
		"v":   AnyOf([]Attribute{Number(), String(Transform(Prefix("S")))}),
	})
	item, err := FormatSavedItem(s, Item{
		"rec": map[string]any{"K#a": float64(1)},
		"v":   "S#x",
	}, FormatOptions{})
	require.NoError(t, err)
	assert.Equal(t, Item{"rec": map[string]any{"a": float64(1)}, "v": "x"}, item)

	_, err = FormatSavedItem(s, Item{"rec": map[string]any{}, "v": true}, FormatOptions{})
	requireCode(t, err, ErrInvalidSavedAttribute)
}

// Parsing an item for a put, sending it over the wire and formatting it
// back yields the input plus its defaults.
func TestFormatSavedItem_RoundTrip(t *testing.T) {
	s := MustSchema(userAttributes())
	input := Item{
		"userId":  "u1",
		"name":    "Ann",
		"tags":    StringSet("a", "b"),
		"address": map[string]any{"city": "Berlin"},
		"friends": []any{"bob", "carl"},
		"meta":    map[string]any{"free": true},
	}
	parsed, err := ParseItem(s, input, ParseOptions{Operation: OperationPut})
	require.NoError(t, err)

	wire, err := ToAttributeValues(parsed.Collapsed)
	require.NoError(t, err)
	saved, err := FromAttributeValues(wire)
	require.NoError(t, err)

	formatted, err := FormatSavedItem(s, saved, FormatOptions{})
	require.NoError(t, err)

	want := Item{}
	for k, v := range input {
		want[k] = v
	}
	want["sk"] = "profile"
	assert.Equal(t, want, formatted)
}
