package toolbox

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	ddb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// UpdateItemCommand updates one item, creating it when it does not exist.
// Item values may be update markers (Add, Remove, Append, Get...); any other
// value sets the attribute.
type UpdateItemCommand struct {
	entity  *Entity
	item    Item
	options UpdateItemOptions
}

// UpdateItemResponse is the UpdateItem result. Attributes is formatted as a
// partial item for UPDATED_OLD and UPDATED_NEW.
type UpdateItemResponse struct {
	Attributes Item
	Output     *ddb.UpdateItemOutput
}

// UpdateItem starts an UpdateItem command.
func (e *Entity) UpdateItem(item Item) UpdateItemCommand {
	return UpdateItemCommand{entity: e, item: item}
}

// Item returns a copy of the command applying item.
func (c UpdateItemCommand) Item(item Item) UpdateItemCommand {
	c.item = item
	return c
}

// Options returns a copy of the command with opts.
func (c UpdateItemCommand) Options(opts UpdateItemOptions) UpdateItemCommand {
	c.options = opts
	return c
}

// updateItem parses item for an update and returns the primary key and the
// update expression of the remaining attributes.
func (e *Entity) updateItem(item Item) (Item, Expression, error) {
	parser := NewItemParser(e.schema, item, ParseOptions{
		Operation: OperationUpdate,
		Extension: updateExtension(e.schema),
	})
	parsed, err := parser.Parsed()
	if err != nil {
		return nil, Expression{}, err
	}
	collapsed, err := parser.Collapsed()
	if err != nil {
		return nil, Expression{}, err
	}
	key, err := e.primaryKey(parsed, collapsed)
	if err != nil {
		return nil, Expression{}, err
	}
	updates := make(Item, len(collapsed))
	for k, v := range collapsed {
		if _, isKey := key[k]; !isKey {
			updates[k] = v
		}
	}
	return key, ParseUpdateExpression(updates), nil
}

// Params compiles the UpdateItem input.
func (c UpdateItemCommand) Params() (*ddb.UpdateItemInput, error) {
	if c.item == nil {
		return nil, incomplete("UpdateItemCommand", "item")
	}
	if err := validateOptions(c.options); err != nil {
		return nil, err
	}
	e := c.entity
	key, update, err := e.updateItem(c.item)
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
	input := &ddb.UpdateItemInput{
		TableName:                   aws.String(e.table.Name),
		Key:                         wireKey,
		ReturnConsumedCapacity:      types.ReturnConsumedCapacity(c.options.Capacity),
		ReturnItemCollectionMetrics: types.ReturnItemCollectionMetrics(c.options.Metrics),
		ReturnValues:                types.ReturnValue(c.options.ReturnValues),
	}
	input.UpdateExpression = exprs.add(update)
	input.ConditionExpression = exprs.add(condition)
	input.ExpressionAttributeNames = exprs.attributeNames()
	if input.ExpressionAttributeValues, err = exprs.attributeValues(); err != nil {
		return nil, err
	}
	return input, nil
}

// Send executes the command and formats the returned attributes.
func (c UpdateItemCommand) Send(ctx context.Context) (*UpdateItemResponse, error) {
	params, err := c.Params()
	if err != nil {
		return nil, err
	}
	client, err := c.entity.table.requireClient()
	if err != nil {
		return nil, err
	}
	out, err := send(ctx, c.entity.table, "update", params, client.UpdateItem)
	if err != nil {
		return nil, err
	}
	attrs, err := c.entity.formatAttributeValues(out.Attributes,
		FormatOptions{Partial: partialReturnValues(c.options.ReturnValues)})
	if err != nil {
		return nil, err
	}
	return &UpdateItemResponse{Attributes: attrs, Output: out}, nil
}
