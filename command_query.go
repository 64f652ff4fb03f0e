package toolbox

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	ddb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// QueryKey selects the items of one partition, optionally narrowed by a
// condition on the sort key. Values are storage values of the table (or
// index) key attributes.
type QueryKey struct {
	Partition any
	Range     *KeyRange
}

// KeyRange is a sort key condition. Exactly one field is expected.
type KeyRange struct {
	Eq, Lt, Lte, Gt, Gte any
	BeginsWith           string
	Between              []any
}

// QueryCommand reads the items of one partition of a table or index, with
// the same entity filtering and projection as ScanCommand.
type QueryCommand struct {
	table    *Table
	key      *QueryKey
	entities []*Entity
	options  QueryOptions
}

// QueryResponse holds one page of formatted items.
type QueryResponse struct {
	Items  []Item
	Output *ddb.QueryOutput
}

// Query starts a Query command.
func (t *Table) Query(key QueryKey, entities ...*Entity) QueryCommand {
	return QueryCommand{table: t, key: &key, entities: entities}
}

// Key returns a copy of the command reading key.
func (c QueryCommand) Key(key QueryKey) QueryCommand {
	c.key = &key
	return c
}

// Entities returns a copy of the command targeting entities.
func (c QueryCommand) Entities(entities ...*Entity) QueryCommand {
	c.entities = entities
	return c
}

// Options returns a copy of the command with opts.
func (c QueryCommand) Options(opts QueryOptions) QueryCommand {
	c.options = opts
	return c
}

// queryKeys returns the partition and sort keys of the table or of index.
func (t *Table) queryKeys(index string) (Key, *Key) {
	if index == "" {
		return t.PartitionKey, t.SortKey
	}
	idx := t.Indexes[index]
	pk := t.PartitionKey
	if idx.PartitionKey != nil {
		pk = *idx.PartitionKey
	}
	return pk, idx.SortKey
}

func invalidQueryKey(msg string, payload map[string]any) *Error {
	return NewError(ErrInvalidKeyPart, msg, WithPayload(payload))
}

// keyCondition builds the key condition expression.
func (c QueryCommand) keyCondition() (expression.Expression, error) {
	pk, sk := c.table.queryKeys(c.options.Index)
	if !matchesKeyType(pk.Type, c.key.Partition) {
		return expression.Expression{}, invalidQueryKey(
			fmt.Sprintf("Invalid partition key: %s", pk.Name),
			map[string]any{"expected": string(pk.Type), "received": c.key.Partition, "keyPart": "partitionKey"})
	}
	cond := expression.Key(pk.Name).Equal(expression.Value(c.key.Partition))

	if r := c.key.Range; r != nil {
		if sk == nil {
			return expression.Expression{}, invalidQueryKey(
				"Invalid sort key condition: the queried key schema has no sort key", nil)
		}
		rc, err := rangeCondition(*sk, *r)
		if err != nil {
			return expression.Expression{}, err
		}
		cond = cond.And(rc)
	}
	return expression.NewBuilder().WithKeyCondition(cond).Build()
}

func rangeCondition(sk Key, r KeyRange) (expression.KeyConditionBuilder, error) {
	k := expression.Key(sk.Name)
	switch {
	case r.Eq != nil:
		return k.Equal(expression.Value(r.Eq)), nil
	case r.Lt != nil:
		return k.LessThan(expression.Value(r.Lt)), nil
	case r.Lte != nil:
		return k.LessThanEqual(expression.Value(r.Lte)), nil
	case r.Gt != nil:
		return k.GreaterThan(expression.Value(r.Gt)), nil
	case r.Gte != nil:
		return k.GreaterThanEqual(expression.Value(r.Gte)), nil
	case r.BeginsWith != "":
		return k.BeginsWith(r.BeginsWith), nil
	case len(r.Between) == 2:
		return k.Between(expression.Value(r.Between[0]), expression.Value(r.Between[1])), nil
	}
	return expression.KeyConditionBuilder{}, invalidQueryKey(
		fmt.Sprintf("Invalid sort key condition on %s", sk.Name),
		map[string]any{"keyPart": "sortKey", "range": r})
}

// Params compiles the Query input.
func (c QueryCommand) Params() (*ddb.QueryInput, error) {
	if c.key == nil || c.key.Partition == nil {
		return nil, incomplete("QueryCommand", "partition")
	}
	o := c.options
	if err := validateOptions(o); err != nil {
		return nil, err
	}
	read := readOptions{consistent: o.Consistent, index: o.Index, sel: o.Select, filters: o.Filters, attributes: o.Attributes}
	if err := read.check(c.table); err != nil {
		return nil, err
	}
	keyExpr, err := c.keyCondition()
	if err != nil {
		return nil, err
	}

	input := &ddb.QueryInput{
		TableName:              aws.String(c.table.Name),
		KeyConditionExpression: keyExpr.KeyCondition(),
		ReturnConsumedCapacity: types.ReturnConsumedCapacity(o.Capacity),
		ConsistentRead:         optionalBool(o.Consistent),
		Limit:                  optionalInt32(o.Limit),
		Select:                 types.Select(o.Select),
	}
	if o.Index != "" {
		input.IndexName = aws.String(o.Index)
	}
	if o.Reverse {
		input.ScanIndexForward = aws.Bool(false)
	}
	if o.ExclusiveStartKey != nil {
		if input.ExclusiveStartKey, err = ToAttributeValues(o.ExclusiveStartKey); err != nil {
			return nil, err
		}
	}

	filter, projection, err := entityExpressions(c.entities, read)
	if err != nil {
		return nil, err
	}
	var exprs requestExpressions
	input.FilterExpression = exprs.add(filter)
	input.ProjectionExpression = exprs.add(projection)

	// key condition placeholders (#0, :0) come from the expression builder
	// and never collide with the prefixed ones.
	input.ExpressionAttributeNames = mergeNames(exprs.attributeNames(), keyExpr.Names())
	values, err := exprs.attributeValues()
	if err != nil {
		return nil, err
	}
	for k, v := range keyExpr.Values() {
		if values == nil {
			values = map[string]types.AttributeValue{}
		}
		values[k] = v
	}
	input.ExpressionAttributeValues = values
	return input, nil
}

// Send executes the command and formats the returned items.
func (c QueryCommand) Send(ctx context.Context) (*QueryResponse, error) {
	params, err := c.Params()
	if err != nil {
		return nil, err
	}
	client, err := c.table.requireClient()
	if err != nil {
		return nil, err
	}
	out, err := send(ctx, c.table, "query", params, client.Query)
	if err != nil {
		return nil, err
	}
	items, err := formatEntityItems(c.entities, out.Items, c.options.Attributes)
	if err != nil {
		return nil, err
	}
	return &QueryResponse{Items: items, Output: out}, nil
}
