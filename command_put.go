package toolbox

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	ddb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// PutItemCommand writes one item, replacing any item with the same key.
type PutItemCommand struct {
	entity  *Entity
	item    Item
	options PutItemOptions
}

// PutItemResponse is the PutItem result. Attributes holds the formatted
// previous item when ReturnValues is ALL_OLD.
type PutItemResponse struct {
	Attributes Item
	Output     *ddb.PutItemOutput
}

// PutItem starts a PutItem command.
func (e *Entity) PutItem(item Item) PutItemCommand {
	return PutItemCommand{entity: e, item: item}
}

// Item returns a copy of the command writing item.
func (c PutItemCommand) Item(item Item) PutItemCommand {
	c.item = item
	return c
}

// Options returns a copy of the command with opts.
func (c PutItemCommand) Options(opts PutItemOptions) PutItemCommand {
	c.options = opts
	return c
}

// putItem parses item for a put and returns the stored item, primary key
// attributes included.
func (e *Entity) putItem(item Item) (Item, error) {
	parser := NewItemParser(e.schema, item, ParseOptions{Operation: OperationPut})
	parsed, err := parser.Parsed()
	if err != nil {
		return nil, err
	}
	collapsed, err := parser.Collapsed()
	if err != nil {
		return nil, err
	}
	key, err := e.primaryKey(parsed, collapsed)
	if err != nil {
		return nil, err
	}
	for k, v := range key {
		collapsed[k] = v
	}
	return collapsed, nil
}

// Params compiles the PutItem input.
func (c PutItemCommand) Params() (*ddb.PutItemInput, error) {
	if c.item == nil {
		return nil, incomplete("PutItemCommand", "item")
	}
	if err := validateOptions(c.options); err != nil {
		return nil, err
	}
	e := c.entity
	stored, err := e.putItem(c.item)
	if err != nil {
		return nil, err
	}
	wireItem, err := ToAttributeValues(stored)
	if err != nil {
		return nil, err
	}
	condition, err := parseOptionalCondition(e.schema, c.options.Condition, "")
	if err != nil {
		return nil, err
	}

	var exprs requestExpressions
	input := &ddb.PutItemInput{
		TableName:                   aws.String(e.table.Name),
		Item:                        wireItem,
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
func (c PutItemCommand) Send(ctx context.Context) (*PutItemResponse, error) {
	params, err := c.Params()
	if err != nil {
		return nil, err
	}
	client, err := c.entity.table.requireClient()
	if err != nil {
		return nil, err
	}
	out, err := send(ctx, c.entity.table, "put", params, client.PutItem)
	if err != nil {
		return nil, err
	}
	attrs, err := c.entity.formatAttributeValues(out.Attributes,
		FormatOptions{Partial: partialReturnValues(c.options.ReturnValues)})
	if err != nil {
		return nil, err
	}
	return &PutItemResponse{Attributes: attrs, Output: out}, nil
}
