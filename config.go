/*
Package toolbox – YAML definitions.

Tables and entities can be declared in a YAML document instead of code:

	tables:
	  - name: app
	    partitionKey: {name: pk, type: string}
	    sortKey: {name: sk, type: string}
	    indexes:
	      byEmail: {type: global, partitionKey: {name: email, type: string}}
	entities:
	  - name: User
	    table: app
	    attributes:
	      id:    {type: string, key: true, savedAs: pk, prefix: USER}
	      sk:    {type: string, key: true, default: profile}
	      email: {type: string}
	      tags:  {type: set, required: never, elements: {type: string}}
*/
package toolbox

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Definitions is a YAML document of tables and entities.
type Definitions struct {
	Tables   []TableDefinition  `yaml:"tables" validate:"dive"`
	Entities []EntityDefinition `yaml:"entities" validate:"dive"`
}

// TableDefinition declares a Table.
type TableDefinition struct {
	Name                   string           `yaml:"name" validate:"required"`
	PartitionKey           Key              `yaml:"partitionKey"`
	SortKey                *Key             `yaml:"sortKey"`
	Indexes                map[string]Index `yaml:"indexes"`
	EntityAttributeSavedAs string           `yaml:"entityAttributeSavedAs"`
}

// EntityDefinition declares an Entity of one of the document tables.
type EntityDefinition struct {
	Name                string                         `yaml:"name" validate:"required"`
	Table               string                         `yaml:"table" validate:"required"`
	EntityAttributeName string                         `yaml:"entityAttributeName"`
	Timestamps          *TimestampsDefinition          `yaml:"timestamps"`
	Attributes          map[string]AttributeDefinition `yaml:"attributes" validate:"required"`
}

// TimestampsDefinition configures the timestamp attributes of an entity.
type TimestampsDefinition struct {
	Created  *TimestampDefinition `yaml:"created"`
	Modified *TimestampDefinition `yaml:"modified"`
}

// TimestampDefinition configures one timestamp attribute. A nil definition
// keeps the defaults; enabled: false removes the attribute.
type TimestampDefinition struct {
	Enabled *bool  `yaml:"enabled"`
	Name    string `yaml:"name"`
	SavedAs string `yaml:"savedAs"`
	Hidden  bool   `yaml:"hidden"`
}

// AttributeDefinition declares an attribute. Elements is used by sets,
// lists and records, Keys by records, Attributes by maps and AnyOf by anyOf
// attributes.
type AttributeDefinition struct {
	Type     AttributeType  `yaml:"type" validate:"required,oneof=any string number binary boolean set list map record anyOf"`
	Required RequiredOption `yaml:"required" validate:"omitempty,oneof=never atLeastOnce always"`
	Hidden   bool           `yaml:"hidden"`
	Key      bool           `yaml:"key"`
	SavedAs  string         `yaml:"savedAs"`
	Enum     []any          `yaml:"enum"`
	Default  any            `yaml:"default"`
	// Generate sets a generated default: uuid, ulid or now.
	Generate string `yaml:"generate" validate:"omitempty,oneof=uuid ulid now"`
	// Prefix sets a Prefix transform with the default delimiter.
	Prefix string `yaml:"prefix"`

	Elements   *AttributeDefinition           `yaml:"elements"`
	Keys       *AttributeDefinition           `yaml:"keys"`
	Attributes map[string]AttributeDefinition `yaml:"attributes"`
	AnyOf      []AttributeDefinition          `yaml:"anyOf"`
}

// DefinitionOptions supplies what a YAML document cannot hold.
type DefinitionOptions struct {
	Client  DynamoClient
	Logger  Logger
	Verbose bool
	// ComputeKeys maps entity names to their ComputeKey.
	ComputeKeys map[string]ComputeKey
}

// Registry holds the tables and entities built from definitions.
type Registry struct {
	Tables   map[string]*Table
	Entities map[string]*Entity
}

// Entity returns the entity called name.
func (r *Registry) Entity(name string) (*Entity, bool) {
	e, ok := r.Entities[name]
	return e, ok
}

func invalidDefinitions(msg string, cause error) *Error {
	opts := []func(*Error){}
	if cause != nil {
		opts = append(opts, WithCause(cause))
	}
	return NewError(ErrInvalidDefinitions, msg, opts...)
}

// LoadDefinitions parses a YAML document and builds its tables and entities.
func LoadDefinitions(data []byte, opts DefinitionOptions) (*Registry, error) {
	var defs Definitions
	if err := yaml.Unmarshal(data, &defs); err != nil {
		return nil, invalidDefinitions(fmt.Sprintf("Invalid definitions: %v", err), err)
	}
	if err := validate.Struct(defs); err != nil {
		return nil, invalidDefinitions(fmt.Sprintf("Invalid definitions: %v", err), err)
	}
	return defs.Build(opts)
}

// Build creates the tables and entities of the document.
func (d Definitions) Build(opts DefinitionOptions) (*Registry, error) {
	reg := &Registry{Tables: map[string]*Table{}, Entities: map[string]*Entity{}}
	for _, td := range d.Tables {
		if _, dup := reg.Tables[td.Name]; dup {
			return nil, invalidDefinitions(fmt.Sprintf("Invalid definitions: table %s is declared twice", td.Name), nil)
		}
		t, err := NewTable(TableParams{
			Name:                   td.Name,
			PartitionKey:           td.PartitionKey,
			SortKey:                td.SortKey,
			Indexes:                td.Indexes,
			EntityAttributeSavedAs: td.EntityAttributeSavedAs,
			Client:                 opts.Client,
			Logger:                 opts.Logger,
			Verbose:                opts.Verbose,
		})
		if err != nil {
			return nil, err
		}
		reg.Tables[td.Name] = t
	}
	for _, ed := range d.Entities {
		if _, dup := reg.Entities[ed.Name]; dup {
			return nil, invalidDefinitions(fmt.Sprintf("Invalid definitions: entity %s is declared twice", ed.Name), nil)
		}
		t, ok := reg.Tables[ed.Table]
		if !ok {
			return nil, invalidDefinitions(fmt.Sprintf("Invalid definitions: entity %s uses unknown table %s", ed.Name, ed.Table), nil)
		}
		attrs, err := buildAttributes(ed.Attributes)
		if err != nil {
			return nil, err
		}
		schema, err := NewSchema(attrs)
		if err != nil {
			return nil, err
		}
		e, err := NewEntity(EntityParams{
			Name:                ed.Name,
			Table:               t,
			Schema:              schema,
			ComputeKey:          opts.ComputeKeys[ed.Name],
			EntityAttributeName: ed.EntityAttributeName,
			Timestamps:          ed.Timestamps.options(),
		})
		if err != nil {
			return nil, err
		}
		reg.Entities[ed.Name] = e
	}
	return reg, nil
}

func (d *TimestampsDefinition) options() TimestampsOptions {
	if d == nil {
		return TimestampsOptions{}
	}
	return TimestampsOptions{Created: d.Created.option(), Modified: d.Modified.option()}
}

func (d *TimestampDefinition) option() TimestampOption {
	if d == nil {
		return TimestampOption{}
	}
	return TimestampOption{
		Disabled: d.Enabled != nil && !*d.Enabled,
		Name:     d.Name,
		SavedAs:  d.SavedAs,
		Hidden:   d.Hidden,
	}
}

func buildAttributes(defs map[string]AttributeDefinition) (Attributes, error) {
	attrs := make(Attributes, len(defs))
	for _, name := range sortedKeys(defs) {
		attr, err := defs[name].build(name)
		if err != nil {
			return nil, err
		}
		attrs[name] = attr
	}
	return attrs, nil
}

var generators = map[string]func() any{
	"uuid": NewUUID,
	"ulid": NewULID,
	"now":  Now,
}

func (d AttributeDefinition) options() []AttributeOption {
	var opts []AttributeOption
	if d.Required != "" {
		opts = append(opts, Required(d.Required))
	}
	if d.Hidden {
		opts = append(opts, Hidden())
	}
	if d.Key {
		opts = append(opts, KeyAttribute())
	}
	if d.SavedAs != "" {
		opts = append(opts, SavedAs(d.SavedAs))
	}
	if d.Enum != nil {
		opts = append(opts, Enum(d.Enum...))
	}
	switch {
	case d.Generate != "":
		opts = append(opts, Default(generators[d.Generate]))
	case d.Default != nil:
		opts = append(opts, Default(d.Default))
	}
	if d.Prefix != "" {
		opts = append(opts, Transform(Prefix(d.Prefix)))
	}
	return opts
}

func (d AttributeDefinition) build(path string) (Attribute, error) {
	if err := validate.Struct(d); err != nil {
		return nil, invalidDefinitions(fmt.Sprintf("Invalid attribute definition %s: %v", path, err), err)
	}
	opts := d.options()
	child := func(def *AttributeDefinition, what string) (Attribute, error) {
		if def == nil {
			return nil, invalidDefinitions(fmt.Sprintf("Invalid attribute definition %s: missing %s", path, what), nil)
		}
		return def.build(path + "." + what)
	}
	switch d.Type {
	case TypeAny:
		return Any(opts...), nil
	case TypeString:
		return String(opts...), nil
	case TypeNumber:
		return Number(opts...), nil
	case TypeBinary:
		return Binary(opts...), nil
	case TypeBoolean:
		return Boolean(opts...), nil
	case TypeSet, TypeList:
		elements, err := child(d.Elements, "elements")
		if err != nil {
			return nil, err
		}
		if d.Type == TypeSet {
			return SetOf(elements, opts...), nil
		}
		return ListOf(elements, opts...), nil
	case TypeMap:
		attrs, err := buildAttributes(d.Attributes)
		if err != nil {
			return nil, err
		}
		return MapOf(attrs, opts...), nil
	case TypeRecord:
		keys, err := child(d.Keys, "keys")
		if err != nil {
			return nil, err
		}
		keyAttr, ok := keys.(*PrimitiveAttribute)
		if !ok {
			return nil, NewError(ErrRecordInvalidKeys,
				fmt.Sprintf("Invalid record keys at %s: keys must be a string attribute", path), WithPath(path))
		}
		elements, err := child(d.Elements, "elements")
		if err != nil {
			return nil, err
		}
		return RecordOf(keyAttr, elements, opts...), nil
	case TypeAnyOf:
		elements := make([]Attribute, 0, len(d.AnyOf))
		for i := range d.AnyOf {
			e, err := d.AnyOf[i].build(fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return nil, err
			}
			elements = append(elements, e)
		}
		return AnyOf(elements, opts...), nil
	}
	return nil, invalidDefinitions(fmt.Sprintf("Invalid attribute definition %s: unknown type %s", path, d.Type), nil)
}
