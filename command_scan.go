package toolbox

import (
	"context"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	ddb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// ScanCommand reads a table or index page. When entities are given, only
// their items are returned: each entity contributes a filter on the
// entity-type attribute, AND-ed with its entry in Filters, and the filters
// of all entities are OR-ed.
type ScanCommand struct {
	table    *Table
	entities []*Entity
	options  ScanOptions
}

// ScanResponse holds one page of formatted items. Items of unknown entities
// are skipped when the scan targets entities, and returned unformatted (in
// storage names) otherwise.
type ScanResponse struct {
	Items  []Item
	Output *ddb.ScanOutput
}

// Scan starts a Scan command.
func (t *Table) Scan(entities ...*Entity) ScanCommand {
	return ScanCommand{table: t, entities: entities}
}

// Entities returns a copy of the command targeting entities.
func (c ScanCommand) Entities(entities ...*Entity) ScanCommand {
	c.entities = entities
	return c
}

// Options returns a copy of the command with opts.
func (c ScanCommand) Options(opts ScanOptions) ScanCommand {
	c.options = opts
	return c
}

// readOptions are the options shared by scans and queries.
type readOptions struct {
	consistent bool
	index      string
	sel        Select
	filters    map[string]Condition
	attributes []string
}

func (o readOptions) check(t *Table) error {
	if err := checkIndexOption(t, o.index); err != nil {
		return err
	}
	if err := checkConsistentOption(t, o.consistent, o.index); err != nil {
		return err
	}
	return checkSelectOption(o.sel, o.index, o.attributes)
}

// entityExpressions builds the filter and projection of a multi-entity read.
// Each entity condition is namespaced by the entity position; the projection
// is computed from the first entity and always includes the entity-type
// attribute, which formatting needs.
func entityExpressions(entities []*Entity, o readOptions) (filter, projection Expression, err error) {
	if len(entities) == 0 && o.attributes != nil {
		return Expression{}, Expression{}, NewError(ErrInvalidProjection,
			"Invalid projection: attributes can only be projected when the command targets entities")
	}
	var filters []string
	for i, e := range entities {
		c := Condition{Attr: e.EntityAttributeName, Eq: e.Name}
		if user, ok := o.filters[e.Name]; ok {
			c = Condition{And: []Condition{c, user}}
		}
		parsed, err := ParseCondition(e.schema, c, strconv.Itoa(i))
		if err != nil {
			return Expression{}, Expression{}, err
		}
		filters = append(filters, parsed.Expression)
		filter.Names = mergeNames(filter.Names, parsed.Names)
		filter.Values = mergeValues(filter.Values, parsed.Values)

		if i == 0 && o.attributes != nil {
			attrs := o.attributes
			if !containsString(attrs, e.EntityAttributeName) {
				attrs = append([]string{e.EntityAttributeName}, attrs...)
			}
			if projection, err = ParseProjection(e.schema, attrs, ""); err != nil {
				return Expression{}, Expression{}, err
			}
		}
	}
	switch len(filters) {
	case 0:
	case 1:
		filter.Expression = filters[0]
	default:
		filter.Expression = "(" + strings.Join(filters, ") OR (") + ")"
	}
	return filter, projection, nil
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Params compiles the Scan input.
func (c ScanCommand) Params() (*ddb.ScanInput, error) {
	o := c.options
	if err := validateOptions(o); err != nil {
		return nil, err
	}
	read := readOptions{consistent: o.Consistent, index: o.Index, sel: o.Select, filters: o.Filters, attributes: o.Attributes}
	if err := read.check(c.table); err != nil {
		return nil, err
	}
	if err := checkSegmentOptions(o.Segment, o.TotalSegments); err != nil {
		return nil, err
	}

	input := &ddb.ScanInput{
		TableName:              aws.String(c.table.Name),
		ReturnConsumedCapacity: types.ReturnConsumedCapacity(o.Capacity),
		ConsistentRead:         optionalBool(o.Consistent),
		Limit:                  optionalInt32(o.Limit),
		Select:                 types.Select(o.Select),
	}
	if o.Index != "" {
		input.IndexName = aws.String(o.Index)
	}
	if o.Segment != nil {
		input.Segment = aws.Int32(int32(*o.Segment))
		input.TotalSegments = aws.Int32(int32(*o.TotalSegments))
	}
	if o.ExclusiveStartKey != nil {
		startKey, err := ToAttributeValues(o.ExclusiveStartKey)
		if err != nil {
			return nil, err
		}
		input.ExclusiveStartKey = startKey
	}

	filter, projection, err := entityExpressions(c.entities, read)
	if err != nil {
		return nil, err
	}
	var exprs requestExpressions
	input.FilterExpression = exprs.add(filter)
	input.ProjectionExpression = exprs.add(projection)
	input.ExpressionAttributeNames = exprs.attributeNames()
	if input.ExpressionAttributeValues, err = exprs.attributeValues(); err != nil {
		return nil, err
	}
	return input, nil
}

// Send executes the command and formats the returned items.
func (c ScanCommand) Send(ctx context.Context) (*ScanResponse, error) {
	params, err := c.Params()
	if err != nil {
		return nil, err
	}
	client, err := c.table.requireClient()
	if err != nil {
		return nil, err
	}
	out, err := send(ctx, c.table, "scan", params, client.Scan)
	if err != nil {
		return nil, err
	}
	items, err := formatEntityItems(c.entities, out.Items, c.options.Attributes)
	if err != nil {
		return nil, err
	}
	return &ScanResponse{Items: items, Output: out}, nil
}

// formatEntityItems formats each wire item with the entity it belongs to.
func formatEntityItems(entities []*Entity, raw []map[string]types.AttributeValue, attributes []string) ([]Item, error) {
	items := make([]Item, 0, len(raw))
	for _, avs := range raw {
		if len(entities) == 0 {
			item, err := FromAttributeValues(avs)
			if err != nil {
				return nil, err
			}
			items = append(items, item)
			continue
		}
		for _, e := range entities {
			if !e.isEntityItem(avs) {
				continue
			}
			item, err := e.formatAttributeValues(avs, FormatOptions{Attributes: attributes})
			if err != nil {
				return nil, err
			}
			items = append(items, item)
			break
		}
	}
	return items, nil
}
