package toolbox

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	ddb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DeleteItemCommand deletes one item by key.
type DeleteItemCommand struct {
	entity  *Entity
	key     Item
	options DeleteItemOptions
}

// DeleteItemResponse is the DeleteItem result. Attributes holds the
// formatted deleted item when ReturnValues is ALL_OLD.
type DeleteItemResponse struct {
	Attributes Item
	Output     *ddb.DeleteItemOutput
}

// DeleteItem starts a DeleteItem command.
func (e *Entity) DeleteItem(key Item) DeleteItemCommand {
	return DeleteItemCommand{entity: e, key: key}
}

// Key returns a copy of the command deleting key.
func (c DeleteItemCommand) Key(key Item) DeleteItemCommand {
	c.key = key
	return c
}

// Options returns a copy of the command with opts.
func (c DeleteItemCommand) Options(opts DeleteItemOptions) DeleteItemCommand {
	c.options = opts
	return c
}

// Params compiles the DeleteItem input.
func (c DeleteItemCommand) Params() (*ddb.DeleteItemInput, error) {
	if c.key == nil {
		return nil, incomplete("DeleteItemCommand", "key")
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
	condition, err := parseOptionalCondition(e.schema, c.options.Condition, "")
	if err != nil {
		return nil, err
	}

	var exprs requestExpressions
	input := &ddb.DeleteItemInput{
		TableName:                   aws.String(e.table.Name),
		Key:                         wireKey,
		ReturnConsumedCapacity:      types.ReturnConsumedCapacity(c.options.Capacity),
		ReturnItemCollectionMetrics: types.ReturnItemCollectionMetrics(c.options.Metrics),
		ReturnValues:                types.ReturnValue(c.options.ReturnValues),
	}
	input.ConditionExpression = exprs.add(condition)
	input.ExpressionAttributeNames = exprs.attributeNames()
	if input.ExpressionAttributeValues, err = exprs.attributeValues(); err != nil {
		return nil, err
	}
	return input, nil
}

// Send executes the command and formats the returned attributes.
func (c DeleteItemCommand) Send(ctx context.Context) (*DeleteItemResponse, error) {
	params, err := c.Params()
	if err != nil {
		return nil, err
	}
	client, err := c.entity.table.requireClient()
	if err != nil {
		return nil, err
	}
	out, err := send(ctx, c.entity.table, "delete", params, client.DeleteItem)
	if err != nil {
		return nil, err
	}
	attrs, err := c.entity.formatAttributeValues(out.Attributes,
		FormatOptions{Partial: partialReturnValues(c.options.ReturnValues)})
	if err != nil {
		return nil, err
	}
	return &DeleteItemResponse{Attributes: attrs, Output: out}, nil
}
