package toolbox

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	ddb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// maxTransactItems is the DynamoDB limit of actions per transaction.
const maxTransactItems = 100

// WriteTransaction is one action of a TransactWrite.
type WriteTransaction interface {
	// TransactItem compiles the action.
	TransactItem() (types.TransactWriteItem, error)
	table() *Table
}

// ─── put ─────────────────────────────────────────────────────────────────────

// TransactPutCommand is a put inside a transaction.
type TransactPutCommand struct {
	entity  *Entity
	item    Item
	options TransactItemOptions
}

// TransactPut starts a transactional put.
func (e *Entity) TransactPut(item Item) TransactPutCommand {
	return TransactPutCommand{entity: e, item: item}
}

// Options returns a copy of the command with opts.
func (c TransactPutCommand) Options(opts TransactItemOptions) TransactPutCommand {
	c.options = opts
	return c
}

func (c TransactPutCommand) table() *Table { return c.entity.table }

// TransactItem compiles the put.
func (c TransactPutCommand) TransactItem() (types.TransactWriteItem, error) {
	if c.item == nil {
		return types.TransactWriteItem{}, incomplete("TransactPutCommand", "item")
	}
	e := c.entity
	stored, err := e.putItem(c.item)
	if err != nil {
		return types.TransactWriteItem{}, err
	}
	wireItem, err := ToAttributeValues(stored)
	if err != nil {
		return types.TransactWriteItem{}, err
	}
	condition, err := parseOptionalCondition(e.schema, c.options.Condition, "")
	if err != nil {
		return types.TransactWriteItem{}, err
	}
	var exprs requestExpressions
	put := &types.Put{TableName: aws.String(e.table.Name), Item: wireItem}
	put.ConditionExpression = exprs.add(condition)
	put.ExpressionAttributeNames = exprs.attributeNames()
	if put.ExpressionAttributeValues, err = exprs.attributeValues(); err != nil {
		return types.TransactWriteItem{}, err
	}
	return types.TransactWriteItem{Put: put}, nil
}

// ─── update ──────────────────────────────────────────────────────────────────

// TransactUpdateCommand is an update inside a transaction.
type TransactUpdateCommand struct {
	entity  *Entity
	item    Item
	options TransactItemOptions
}

// TransactUpdate starts a transactional update.
func (e *Entity) TransactUpdate(item Item) TransactUpdateCommand {
	return TransactUpdateCommand{entity: e, item: item}
}

// Options returns a copy of the command with opts.
func (c TransactUpdateCommand) Options(opts TransactItemOptions) TransactUpdateCommand {
	c.options = opts
	return c
}

func (c TransactUpdateCommand) table() *Table { return c.entity.table }

// TransactItem compiles the update.
func (c TransactUpdateCommand) TransactItem() (types.TransactWriteItem, error) {
	if c.item == nil {
		return types.TransactWriteItem{}, incomplete("TransactUpdateCommand", "item")
	}
	e := c.entity
	key, update, err := e.updateItem(c.item)
	if err != nil {
		return types.TransactWriteItem{}, err
	}
	wireKey, err := keyAttributeValues(key)
	if err != nil {
		return types.TransactWriteItem{}, err
	}
	condition, err := parseOptionalCondition(e.schema, c.options.Condition, "")
	if err != nil {
		return types.TransactWriteItem{}, err
	}
	var exprs requestExpressions
	upd := &types.Update{TableName: aws.String(e.table.Name), Key: wireKey}
	upd.UpdateExpression = exprs.add(update)
	upd.ConditionExpression = exprs.add(condition)
	upd.ExpressionAttributeNames = exprs.attributeNames()
	if upd.ExpressionAttributeValues, err = exprs.attributeValues(); err != nil {
		return types.TransactWriteItem{}, err
	}
	return types.TransactWriteItem{Update: upd}, nil
}

// ─── delete ──────────────────────────────────────────────────────────────────

// TransactDeleteCommand is a delete inside a transaction.
type TransactDeleteCommand struct {
	entity  *Entity
	key     Item
	options TransactItemOptions
}

// TransactDelete starts a transactional delete.
func (e *Entity) TransactDelete(key Item) TransactDeleteCommand {
	return TransactDeleteCommand{entity: e, key: key}
}

// Options returns a copy of the command with opts.
func (c TransactDeleteCommand) Options(opts TransactItemOptions) TransactDeleteCommand {
	c.options = opts
	return c
}

func (c TransactDeleteCommand) table() *Table { return c.entity.table }

// TransactItem compiles the delete.
func (c TransactDeleteCommand) TransactItem() (types.TransactWriteItem, error) {
	if c.key == nil {
		return types.TransactWriteItem{}, incomplete("TransactDeleteCommand", "key")
	}
	wireKey, condition, err := keyAndCondition(c.entity, c.key, c.options.Condition)
	if err != nil {
		return types.TransactWriteItem{}, err
	}
	var exprs requestExpressions
	del := &types.Delete{TableName: aws.String(c.entity.table.Name), Key: wireKey}
	del.ConditionExpression = exprs.add(condition)
	del.ExpressionAttributeNames = exprs.attributeNames()
	if del.ExpressionAttributeValues, err = exprs.attributeValues(); err != nil {
		return types.TransactWriteItem{}, err
	}
	return types.TransactWriteItem{Delete: del}, nil
}

// ─── condition check ─────────────────────────────────────────────────────────

// ConditionCheckCommand asserts a condition on an item inside a transaction.
type ConditionCheckCommand struct {
	entity    *Entity
	key       Item
	condition *Condition
}

// ConditionCheck starts a transactional condition check.
func (e *Entity) ConditionCheck(key Item, condition Condition) ConditionCheckCommand {
	return ConditionCheckCommand{entity: e, key: key, condition: &condition}
}

func (c ConditionCheckCommand) table() *Table { return c.entity.table }

// TransactItem compiles the condition check.
func (c ConditionCheckCommand) TransactItem() (types.TransactWriteItem, error) {
	if c.key == nil {
		return types.TransactWriteItem{}, incomplete("ConditionCheckCommand", "key")
	}
	if c.condition == nil {
		return types.TransactWriteItem{}, incomplete("ConditionCheckCommand", "condition")
	}
	wireKey, condition, err := keyAndCondition(c.entity, c.key, c.condition)
	if err != nil {
		return types.TransactWriteItem{}, err
	}
	var exprs requestExpressions
	check := &types.ConditionCheck{TableName: aws.String(c.entity.table.Name), Key: wireKey}
	check.ConditionExpression = exprs.add(condition)
	check.ExpressionAttributeNames = exprs.attributeNames()
	if check.ExpressionAttributeValues, err = exprs.attributeValues(); err != nil {
		return types.TransactWriteItem{}, err
	}
	return types.TransactWriteItem{ConditionCheck: check}, nil
}

func keyAndCondition(e *Entity, key Item, c *Condition) (map[string]types.AttributeValue, Expression, error) {
	parsed, err := e.ParseKey(key)
	if err != nil {
		return nil, Expression{}, err
	}
	wireKey, err := keyAttributeValues(parsed)
	if err != nil {
		return nil, Expression{}, err
	}
	condition, err := parseOptionalCondition(e.schema, c, "")
	if err != nil {
		return nil, Expression{}, err
	}
	return wireKey, condition, nil
}

// ─── transaction ─────────────────────────────────────────────────────────────

// TransactWriteCommand groups write actions into one atomic request. The
// request is sent with the client of the first action's table.
type TransactWriteCommand struct {
	items   []WriteTransaction
	options TransactWriteOptions
}

// TransactWrite starts a transaction of items.
func TransactWrite(items ...WriteTransaction) TransactWriteCommand {
	return TransactWriteCommand{items: items}
}

// Items returns a copy of the command with items.
func (c TransactWriteCommand) Items(items ...WriteTransaction) TransactWriteCommand {
	c.items = items
	return c
}

// Options returns a copy of the command with opts.
func (c TransactWriteCommand) Options(opts TransactWriteOptions) TransactWriteCommand {
	c.options = opts
	return c
}

// Params compiles the TransactWriteItems input.
func (c TransactWriteCommand) Params() (*ddb.TransactWriteItemsInput, error) {
	if len(c.items) == 0 {
		return nil, incomplete("TransactWriteCommand", "items")
	}
	if len(c.items) > maxTransactItems {
		return nil, NewError(ErrInvalidTransaction,
			fmt.Sprintf("Invalid transaction: at most %d items are allowed, received %d", maxTransactItems, len(c.items)),
			WithPayload(map[string]any{"count": len(c.items)}))
	}
	if err := validateOptions(c.options); err != nil {
		return nil, err
	}
	input := &ddb.TransactWriteItemsInput{
		TransactItems:               make([]types.TransactWriteItem, 0, len(c.items)),
		ReturnConsumedCapacity:      types.ReturnConsumedCapacity(c.options.Capacity),
		ReturnItemCollectionMetrics: types.ReturnItemCollectionMetrics(c.options.Metrics),
	}
	if c.options.ClientRequestToken != "" {
		input.ClientRequestToken = aws.String(c.options.ClientRequestToken)
	}
	for _, item := range c.items {
		ti, err := item.TransactItem()
		if err != nil {
			return nil, err
		}
		input.TransactItems = append(input.TransactItems, ti)
	}
	return input, nil
}

// Send executes the transaction.
func (c TransactWriteCommand) Send(ctx context.Context) (*ddb.TransactWriteItemsOutput, error) {
	params, err := c.Params()
	if err != nil {
		return nil, err
	}
	t := c.items[0].table()
	client, err := t.requireClient()
	if err != nil {
		return nil, err
	}
	return send(ctx, t, "transactWrite", params, client.TransactWriteItems)
}
