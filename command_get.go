package toolbox

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	ddb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// GetItemCommand reads one item by key.
type GetItemCommand struct {
	entity  *Entity
	key     Item
	options GetItemOptions
}

// GetItemResponse is the formatted GetItem result. Item is nil when no item
// matched the key.
type GetItemResponse struct {
	Item   Item
	Output *ddb.GetItemOutput
}

// GetItem starts a GetItem command.
func (e *Entity) GetItem(key Item) GetItemCommand {
	return GetItemCommand{entity: e, key: key}
}

// Key returns a copy of the command reading key.
func (c GetItemCommand) Key(key Item) GetItemCommand {
	c.key = key
	return c
}

// Options returns a copy of the command with opts.
func (c GetItemCommand) Options(opts GetItemOptions) GetItemCommand {
	c.options = opts
	return c
}

// Params compiles the GetItem input.
func (c GetItemCommand) Params() (*ddb.GetItemInput, error) {
	if c.key == nil {
		return nil, incomplete("GetItemCommand", "key")
	}
	if err := validateOptions(c.options); err != nil {
		return nil, err
	}
	e := c.entity
	key, err := e.ParseKey(c.key)
	if err != nil {
		return nil, err
	}
	wireKey, err := keyAttributeValues(key)
	if err != nil {
		return nil, err
	}
	projection, err := parseOptionalProjection(e.schema, c.options.Attributes, "")
	if err != nil {
		return nil, err
	}

	var exprs requestExpressions
	input := &ddb.GetItemInput{
		TableName:              aws.String(e.table.Name),
		Key:                    wireKey,
		ConsistentRead:         optionalBool(c.options.Consistent),
		ReturnConsumedCapacity: types.ReturnConsumedCapacity(c.options.Capacity),
	}
	input.ProjectionExpression = exprs.add(projection)
	input.ExpressionAttributeNames = exprs.attributeNames()
	return input, nil
}

// Send executes the command and formats the returned item.
func (c GetItemCommand) Send(ctx context.Context) (*GetItemResponse, error) {
	params, err := c.Params()
	if err != nil {
		return nil, err
	}
	client, err := c.entity.table.requireClient()
	if err != nil {
		return nil, err
	}
	out, err := send(ctx, c.entity.table, "get", params, client.GetItem)
	if err != nil {
		return nil, err
	}
	item, err := c.entity.formatAttributeValues(out.Item, FormatOptions{Attributes: c.options.Attributes})
	if err != nil {
		return nil, err
	}
	return &GetItemResponse{Item: item, Output: out}, nil
}
