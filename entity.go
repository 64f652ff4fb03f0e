/*
Package toolbox – Entity type.

An Entity binds a Schema to a Table. It injects a hidden entity-type
attribute (so items of several entities can share one table) and, unless
disabled, the created/modified timestamp attributes. Entities are the entry
point of every item command.
*/
package toolbox

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DefaultEntityAttributeName is the name of the injected entity-type attribute.
const DefaultEntityAttributeName = "entity"

// ComputeKey derives the table primary key (storage names) from the parsed
// key input (attribute names).
type ComputeKey func(keyInput Item) (Item, error)

// TimestampOption configures one of the timestamp attributes.
type TimestampOption struct {
	Disabled bool
	Name     string // default "created" / "modified"
	SavedAs  string // default "_ct" / "_md"
	Hidden   bool
}

// TimestampsOptions configures the created and modified timestamps. The
// zero value enables both with their default names.
type TimestampsOptions struct {
	Created  TimestampOption
	Modified TimestampOption
}

// EntityParams configures an Entity.
type EntityParams struct {
	Name       string  `validate:"required"`
	Table      *Table  `validate:"required"`
	Schema     *Schema `validate:"required"`
	ComputeKey ComputeKey
	// EntityAttributeName overrides the name of the entity-type attribute.
	EntityAttributeName string
	Timestamps          TimestampsOptions
}

// Entity is a schema bound to a table.
type Entity struct {
	Name                string
	EntityAttributeName string

	table      *Table
	schema     *Schema
	computeKey ComputeKey
}

// NewEntity validates params, extends the schema with the internal
// attributes and creates the Entity.
func NewEntity(params EntityParams) (*Entity, error) {
	if err := validate.Struct(params); err != nil {
		return nil, NewError(ErrEntityInvalidParams,
			fmt.Sprintf("Invalid entity params for %q: %v", params.Name, err), WithCause(err))
	}
	e := &Entity{
		Name:                params.Name,
		EntityAttributeName: params.EntityAttributeName,
		table:               params.Table,
		computeKey:          params.ComputeKey,
	}
	if e.EntityAttributeName == "" {
		e.EntityAttributeName = DefaultEntityAttributeName
	}

	internal := Attributes{}
	if err := reserve(params.Schema, internal, e.EntityAttributeName); err != nil {
		return nil, err
	}
	entityName, attrName := e.Name, e.EntityAttributeName
	internal[attrName] = String(
		Required(), Hidden(), SavedAs(params.Table.EntityAttributeSavedAs), Enum(entityName),
		PutDefault(entityName),
		UpdateDefault(func() any { return Get(attrName, entityName) }),
	)

	if ts := params.Timestamps.Created; !ts.Disabled {
		name := orDefault(ts.Name, "created")
		if err := reserve(params.Schema, internal, name); err != nil {
			return nil, err
		}
		internal[name] = timestampAttribute(ts, "_ct",
			PutDefault(Now),
			UpdateDefault(func() any { return Get(name, Now()) }))
	}
	if ts := params.Timestamps.Modified; !ts.Disabled {
		name := orDefault(ts.Name, "modified")
		if err := reserve(params.Schema, internal, name); err != nil {
			return nil, err
		}
		internal[name] = timestampAttribute(ts, "_md", PutDefault(Now), UpdateDefault(Now))
	}

	schema, err := params.Schema.And(internal)
	if err != nil {
		return nil, err
	}
	e.schema = schema
	logTrace(e.table.log, "Loading entity", map[string]any{"entity": e.Name, "table": e.table.Name})
	return e, nil
}

// MustEntity is NewEntity that panics on error.
func MustEntity(params EntityParams) *Entity {
	e, err := NewEntity(params)
	if err != nil {
		panic(err)
	}
	return e
}

func reserve(schema *Schema, internal Attributes, name string) error {
	_, taken := schema.Attribute(name)
	if _, dup := internal[name]; taken || dup {
		return NewError(ErrEntityReservedAttributeName,
			fmt.Sprintf("%s is a reserved attribute name. Use a different attribute name or rename the internal attribute in the entity params.", name),
			WithPath(name))
	}
	return nil
}

func timestampAttribute(ts TimestampOption, savedAs string, defaults ...AttributeOption) *PrimitiveAttribute {
	opts := append([]AttributeOption{Required(), SavedAs(orDefault(ts.SavedAs, savedAs))}, defaults...)
	if ts.Hidden {
		opts = append(opts, Hidden())
	}
	return String(opts...)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// Table returns the table the entity is stored in.
func (e *Entity) Table() *Table { return e.table }

// Schema returns the entity schema, internal attributes included.
func (e *Entity) Schema() *Schema { return e.schema }

// ParseKey validates key input and returns the table primary key.
func (e *Entity) ParseKey(input Item) (Item, error) {
	parser := NewItemParser(e.schema, input, ParseOptions{Operation: OperationKey, Filters: Filters{Key: true}})
	parsed, err := parser.Parsed()
	if err != nil {
		return nil, err
	}
	collapsed, err := parser.Collapsed()
	if err != nil {
		return nil, err
	}
	return e.primaryKey(parsed, collapsed)
}

// primaryKey computes the key from the parsed input when the entity has a
// ComputeKey, from the collapsed input otherwise.
func (e *Entity) primaryKey(parsed, collapsed Item) (Item, error) {
	keyInput := collapsed
	if e.computeKey != nil {
		computed, err := e.computeKey(parsed)
		if err != nil {
			return nil, NewError(ErrEntityInvalidComputedKey,
				fmt.Sprintf("Entity %s could not compute the primary key: %v", e.Name, err), WithCause(err))
		}
		keyInput = computed
	}
	return parsePrimaryKey(e.table, keyInput)
}

// parsePrimaryKey picks the table key attributes out of keyInput and checks
// their type.
func parsePrimaryKey(t *Table, keyInput Item) (Item, error) {
	key := Item{}
	check := func(k Key, part string) error {
		v := keyInput[k.Name]
		if !matchesKeyType(k.Type, v) {
			label := "partition"
			if part == "sortKey" {
				label = "sort"
			}
			return NewError(ErrInvalidKeyPart,
				fmt.Sprintf("Invalid %s key: %s", label, k.Name),
				WithPath(k.Name),
				WithPayload(map[string]any{"expected": string(k.Type), "received": v, "keyPart": part}))
		}
		key[k.Name] = v
		return nil
	}
	if err := check(t.PartitionKey, "partitionKey"); err != nil {
		return nil, err
	}
	if t.SortKey != nil {
		if err := check(*t.SortKey, "sortKey"); err != nil {
			return nil, err
		}
	}
	return key, nil
}

func matchesKeyType(kt KeyType, v any) bool {
	switch kt {
	case KeyTypeString:
		_, ok := v.(string)
		return ok
	case KeyTypeNumber:
		return isNumber(v)
	case KeyTypeBinary:
		_, ok := v.([]byte)
		return ok
	}
	return false
}

// FormatSavedItem formats a stored item of this entity.
func (e *Entity) FormatSavedItem(item Item, opts FormatOptions) (Item, error) {
	if opts.PartitionKey == nil {
		opts.PartitionKey = item[e.table.PartitionKey.Name]
	}
	if opts.SortKey == nil && e.table.SortKey != nil {
		opts.SortKey = item[e.table.SortKey.Name]
	}
	return FormatSavedItem(e.schema, item, opts)
}

// formatAttributeValues formats a wire item. A nil item formats to nil.
func (e *Entity) formatAttributeValues(avs map[string]types.AttributeValue, opts FormatOptions) (Item, error) {
	if avs == nil {
		return nil, nil
	}
	item, err := FromAttributeValues(avs)
	if err != nil {
		return nil, err
	}
	return e.FormatSavedItem(item, opts)
}

// isEntityItem reports whether a stored item belongs to this entity.
func (e *Entity) isEntityItem(avs map[string]types.AttributeValue) bool {
	s, ok := avs[e.table.EntityAttributeSavedAs].(*types.AttributeValueMemberS)
	return ok && s.Value == e.Name
}
