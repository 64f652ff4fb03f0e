package toolbox

import (
	"strings"
	"time"

	"github.com/cloudxsgmbh/dynamodb-toolbox-go/internal/uid"
)

// AttributeOption configures an attribute at definition time.
type AttributeOption func(*attributeBase)

func applyOptions(b *attributeBase, opts []AttributeOption) {
	for _, o := range opts {
		if o != nil {
			o(b)
		}
	}
}

// Required sets the required level (AtLeastOnce when called without argument).
func Required(level ...RequiredOption) AttributeOption {
	r := AtLeastOnce
	if len(level) > 0 {
		r = level[0]
	}
	return func(b *attributeBase) { b.required = r }
}

// Optional is Required(Never).
func Optional() AttributeOption { return Required(Never) }

// Hidden hides the attribute from formatted items.
func Hidden() AttributeOption { return func(b *attributeBase) { b.hidden = true } }

// KeyAttribute marks the attribute as primary key input. Key attributes are always required.
func KeyAttribute() AttributeOption {
	return func(b *attributeBase) {
		b.key = true
		b.required = Always
	}
}

// SavedAs renames the attribute in storage.
func SavedAs(name string) AttributeOption { return func(b *attributeBase) { b.savedAs = name } }

// Enum restricts a primitive attribute to the given values.
func Enum(values ...any) AttributeOption {
	return func(b *attributeBase) { b.enum = append([]any{}, values...) }
}

// Const restricts a primitive attribute to one value and defaults it to that value.
func Const(value any) AttributeOption {
	return func(b *attributeBase) {
		b.enum = []any{value}
		b.defaults.auto = &defaultValue{value: value}
	}
}

// Transform sets the transformer of a primitive attribute.
func Transform(t Transformer) AttributeOption {
	return func(b *attributeBase) { b.transform = t }
}

// newDefault accepts a constant, a func() any or a func() T generator for common T.
func newDefault(v any) *defaultValue {
	switch g := v.(type) {
	case func() any:
		return &defaultValue{generate: g}
	case func() string:
		return &defaultValue{generate: func() any { return g() }}
	case func() float64:
		return &defaultValue{generate: func() any { return g() }}
	case func() int:
		return &defaultValue{generate: func() any { return g() }}
	case func() bool:
		return &defaultValue{generate: func() any { return g() }}
	case func(Item) any:
		return &defaultValue{link: g}
	}
	return &defaultValue{value: v}
}

// KeyDefault sets the default used when computing keys.
func KeyDefault(v any) AttributeOption {
	return func(b *attributeBase) { b.defaults.key = newDefault(v) }
}

// PutDefault sets the default used by puts.
func PutDefault(v any) AttributeOption {
	return func(b *attributeBase) { b.defaults.put = newDefault(v) }
}

// UpdateDefault sets the default used by updates.
func UpdateDefault(v any) AttributeOption {
	return func(b *attributeBase) { b.defaults.update = newDefault(v) }
}

// Default sets the key default of key attributes and the put default of the others.
func Default(v any) AttributeOption {
	return func(b *attributeBase) { b.defaults.auto = newDefault(v) }
}

// KeyLink sets a key default computed from the whole item.
func KeyLink(fn func(Item) any) AttributeOption {
	return func(b *attributeBase) { b.defaults.key = &defaultValue{link: fn} }
}

// PutLink sets a put default computed from the whole item.
func PutLink(fn func(Item) any) AttributeOption {
	return func(b *attributeBase) { b.defaults.put = &defaultValue{link: fn} }
}

// UpdateLink sets an update default computed from the whole item.
func UpdateLink(fn func(Item) any) AttributeOption {
	return func(b *attributeBase) { b.defaults.update = &defaultValue{link: fn} }
}

// Link is Default for links.
func Link(fn func(Item) any) AttributeOption {
	return func(b *attributeBase) { b.defaults.auto = &defaultValue{link: fn} }
}

// ─── built-in transformers and generators ────────────────────────────────────

type prefixTransformer struct {
	prefix string
}

// Prefix prepends prefix and a delimiter ("#" by default) to saved strings.
func Prefix(prefix string, delimiter ...string) Transformer {
	d := "#"
	if len(delimiter) > 0 {
		d = delimiter[0]
	}
	return prefixTransformer{prefix: prefix + d}
}

func (p prefixTransformer) Parse(v any) any {
	if s, ok := v.(string); ok {
		return p.prefix + s
	}
	return v
}

func (p prefixTransformer) Format(v any) any {
	if s, ok := v.(string); ok {
		return strings.TrimPrefix(s, p.prefix)
	}
	return v
}

// NewUUID generates a v4 UUID string. Use it as a default generator.
func NewUUID() any { return uid.UUID() }

// NewULID generates a time-sortable ULID string. Use it as a default generator.
func NewULID() any { return uid.ULID() }

// Now returns the current UTC time in ISO-8601 with millisecond precision.
func Now() any { return time.Now().UTC().Format(isoTimeLayout) }

const isoTimeLayout = "2006-01-02T15:04:05.000Z07:00"
