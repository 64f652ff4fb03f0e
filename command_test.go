package toolbox

import (
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetItemCommand_Params(t *testing.T) {
	e := newUserEntity(t, newTestTable(t, nil))

	params, err := e.GetItem(Item{"userId": "u1"}).Params()
	require.NoError(t, err)
	assert.Equal(t, "test-table", *params.TableName)
	assert.Equal(t, map[string]types.AttributeValue{"pk": strAV("USER#u1"), "sk": strAV("profile")}, params.Key)
	assert.Nil(t, params.ConsistentRead)
	assert.Nil(t, params.ProjectionExpression)
	assert.Nil(t, params.ExpressionAttributeNames)

	params, err = e.GetItem(Item{"userId": "u1"}).
		Options(GetItemOptions{Consistent: true, Capacity: CapacityTotal, Attributes: []string{"name", "address.zip"}}).
		Params()
	require.NoError(t, err)
	assert.True(t, *params.ConsistentRead)
	assert.Equal(t, types.ReturnConsumedCapacityTotal, params.ReturnConsumedCapacity)
	assert.Equal(t, "#p_1, #p_2.#p_3", *params.ProjectionExpression)
	assert.Equal(t, map[string]string{"#p_1": "name", "#p_2": "address", "#p_3": "z"}, params.ExpressionAttributeNames)
}

func TestGetItemCommand_IsImmutable(t *testing.T) {
	e := newUserEntity(t, newTestTable(t, nil))
	base := e.GetItem(Item{"userId": "u1"})
	_ = base.Options(GetItemOptions{Consistent: true}).Key(Item{"userId": "u2"})

	params, err := base.Params()
	require.NoError(t, err)
	assert.Nil(t, params.ConsistentRead)
	assert.Equal(t, strAV("USER#u1"), params.Key["pk"])
}

func TestGetItemCommand_Errors(t *testing.T) {
	e := newUserEntity(t, newTestTable(t, nil))

	_, err := e.GetItem(nil).Params()
	requireCode(t, err, ErrIncompleteCommand)
	assert.Equal(t, `GetItemCommand incomplete: Missing "key" property`, err.(*Error).Message)

	_, err = e.GetItem(Item{"userId": "u1"}).Options(GetItemOptions{Capacity: "ALL"}).Params()
	requireCode(t, err, ErrInvalidCapacityOption)

	_, err = e.GetItem(Item{"userId": 1}).Params()
	requireCode(t, err, ErrInvalidAttributeInput)

	_, err = e.GetItem(Item{"userId": "u1"}).Options(GetItemOptions{Attributes: []string{"nope"}}).Params()
	requireCode(t, err, ErrInvalidProjection)

	_, err = e.GetItem(Item{"userId": "u1"}).Send(bg())
	requireCode(t, err, ErrTableMissingClient)
}

func TestGetItemCommand_Send(t *testing.T) {
	client := newMemClient()
	tbl := newTestTable(t, client)
	e := newUserEntity(t, tbl)
	client.store("test-table", map[string]types.AttributeValue{
		"pk": strAV("USER#u1"), "sk": strAV("profile"), "_et": strAV("User"),
		"name": strAV("Ann"), "age": numAV("30"), "secret": strAV("s"),
	})

	res, err := e.GetItem(Item{"userId": "u1"}).Send(bg())
	require.NoError(t, err)
	assert.Equal(t, Item{"userId": "u1", "sk": "profile", "name": "Ann", "age": float64(30)}, res.Item)
	assert.NotNil(t, res.Output)

	res, err = e.GetItem(Item{"userId": "u1"}).Options(GetItemOptions{Attributes: []string{"name"}}).Send(bg())
	require.NoError(t, err)
	assert.Equal(t, Item{"name": "Ann"}, res.Item)

	res, err = e.GetItem(Item{"userId": "nobody"}).Send(bg())
	require.NoError(t, err)
	assert.Nil(t, res.Item)
}

func TestCommand_RequestFailure(t *testing.T) {
	client := newMemClient()
	tbl := newTestTable(t, client)
	e := newUserEntity(t, tbl)

	boom := errors.New("boom")
	client.err = boom
	_, err := e.GetItem(Item{"userId": "u1"}).Send(bg())
	requireCode(t, err, ErrRequestFailed)
	assert.ErrorIs(t, err, boom)

	client.err = &smithy.GenericAPIError{Code: "ConditionalCheckFailedException", Message: "conditional request failed"}
	_, err = e.DeleteItem(Item{"userId": "u1"}).Send(bg())
	requireCode(t, err, ErrRequestFailed)
	assert.Equal(t, "ConditionalCheckFailedException", err.(*Error).Payload["code"])
	assert.Equal(t, "delete", err.(*Error).Payload["op"])
}

func TestPutItemCommand_Params(t *testing.T) {
	e := newUserEntity(t, newTestTable(t, nil))

	params, err := e.PutItem(Item{"userId": "u1", "name": "Ann", "age": 30}).Params()
	require.NoError(t, err)
	assert.Equal(t, map[string]types.AttributeValue{
		"pk":   strAV("USER#u1"),
		"sk":   strAV("profile"),
		"name": strAV("Ann"),
		"age":  numAV("30"),
		"_et":  strAV("User"),
	}, params.Item)
	assert.Nil(t, params.ConditionExpression)
	assert.Nil(t, params.ExpressionAttributeValues)

	cond := NotExists("userId")
	params, err = e.PutItem(Item{"userId": "u1", "name": "Ann"}).
		Options(PutItemOptions{Condition: &cond, ReturnValues: ReturnAllOld, Metrics: MetricsSize}).
		Params()
	require.NoError(t, err)
	assert.Equal(t, "attribute_not_exists(#c_1)", *params.ConditionExpression)
	assert.Equal(t, map[string]string{"#c_1": "pk"}, params.ExpressionAttributeNames)
	assert.Nil(t, params.ExpressionAttributeValues)
	assert.Equal(t, types.ReturnValueAllOld, params.ReturnValues)
	assert.Equal(t, types.ReturnItemCollectionMetricsSize, params.ReturnItemCollectionMetrics)
}

func TestPutItemCommand_Errors(t *testing.T) {
	e := newUserEntity(t, newTestTable(t, nil))

	_, err := e.PutItem(nil).Params()
	requireCode(t, err, ErrIncompleteCommand)

	_, err = e.PutItem(Item{"userId": "u1"}).Params()
	requireCode(t, err, ErrAttributeRequired)

	_, err = e.PutItem(Item{"userId": "u1", "name": "Ann"}).Options(PutItemOptions{ReturnValues: ReturnAllNew}).Params()
	requireCode(t, err, ErrInvalidReturnValuesOption)

	cond := Condition{Attr: "age", Eq: "old"}
	_, err = e.PutItem(Item{"userId": "u1", "name": "Ann"}).Options(PutItemOptions{Condition: &cond}).Params()
	requireCode(t, err, ErrInvalidAttributeInput)
}

func TestPutItemCommand_Send(t *testing.T) {
	client := newMemClient()
	e := newUserEntity(t, newTestTable(t, client))

	res, err := e.PutItem(Item{"userId": "u1", "name": "Ann"}).Send(bg())
	require.NoError(t, err)
	assert.Nil(t, res.Attributes)

	res, err = e.PutItem(Item{"userId": "u1", "name": "Bob"}).Options(PutItemOptions{ReturnValues: ReturnAllOld}).Send(bg())
	require.NoError(t, err)
	assert.Equal(t, Item{"userId": "u1", "sk": "profile", "name": "Ann"}, res.Attributes)

	got, err := e.GetItem(Item{"userId": "u1"}).Send(bg())
	require.NoError(t, err)
	assert.Equal(t, "Bob", got.Item["name"])
	assert.Equal(t, 3, client.calls)
}

func TestDeleteItemCommand(t *testing.T) {
	client := newMemClient()
	e := newUserEntity(t, newTestTable(t, client))

	cond := Condition{Attr: "age", Lt: 18}
	params, err := e.DeleteItem(Item{"userId": "u1"}).Options(DeleteItemOptions{Condition: &cond}).Params()
	require.NoError(t, err)
	assert.Equal(t, map[string]types.AttributeValue{"pk": strAV("USER#u1"), "sk": strAV("profile")}, params.Key)
	assert.Equal(t, "#c_1 < :c_1", *params.ConditionExpression)
	assert.Equal(t, map[string]types.AttributeValue{":c_1": numAV("18")}, params.ExpressionAttributeValues)

	_, err = e.DeleteItem(nil).Params()
	requireCode(t, err, ErrIncompleteCommand)

	_, err = e.PutItem(Item{"userId": "u1", "name": "Ann"}).Send(bg())
	require.NoError(t, err)
	res, err := e.DeleteItem(Item{"userId": "u1"}).Options(DeleteItemOptions{ReturnValues: ReturnAllOld}).Send(bg())
	require.NoError(t, err)
	assert.Equal(t, Item{"userId": "u1", "sk": "profile", "name": "Ann"}, res.Attributes)

	got, err := e.GetItem(Item{"userId": "u1"}).Send(bg())
	require.NoError(t, err)
	assert.Nil(t, got.Item)
}

func TestUpdateItemCommand_Params(t *testing.T) {
	e := newUserEntity(t, newTestTable(t, nil))

	params, err := e.UpdateItem(Item{"userId": "u1", "name": "Bob"}).Params()
	require.NoError(t, err)
	assert.Equal(t, map[string]types.AttributeValue{"pk": strAV("USER#u1"), "sk": strAV("profile")}, params.Key)
	assert.Equal(t, "SET #s_1 = if_not_exists(#s_1, :s_1), #s_2 = :s_2", *params.UpdateExpression)
	assert.Equal(t, map[string]string{"#s_1": "_et", "#s_2": "name"}, params.ExpressionAttributeNames)
	assert.Equal(t, map[string]types.AttributeValue{":s_1": strAV("User"), ":s_2": strAV("Bob")}, params.ExpressionAttributeValues)
}

func TestUpdateItemCommand_WithCondition(t *testing.T) {
	e := newUserEntity(t, newTestTable(t, nil))

	cond := Exists("userId")
	params, err := e.UpdateItem(Item{
		"userId": "u1",
		"age":    Add(1),
		"email":  Remove(),
	}).Options(UpdateItemOptions{Condition: &cond, ReturnValues: ReturnUpdatedNew}).Params()
	require.NoError(t, err)
	assert.Equal(t, "SET #s_1 = if_not_exists(#s_1, :s_1) REMOVE #r_1 ADD #a_1 :a_1", *params.UpdateExpression)
	assert.Equal(t, "attribute_exists(#c_1)", *params.ConditionExpression)
	assert.Equal(t, map[string]string{
		"#s_1": "_et", "#r_1": "email", "#a_1": "age", "#c_1": "pk",
	}, params.ExpressionAttributeNames)
	assert.Equal(t, types.ReturnValueUpdatedNew, params.ReturnValues)
}

func TestUpdateItemCommand_Errors(t *testing.T) {
	e := newUserEntity(t, newTestTable(t, nil))

	_, err := e.UpdateItem(nil).Params()
	requireCode(t, err, ErrIncompleteCommand)

	_, err = e.UpdateItem(Item{"name": "Bob"}).Params()
	requireCode(t, err, ErrAttributeRequired)

	_, err = e.UpdateItem(Item{"userId": "u1", "name": Remove()}).Params()
	requireCode(t, err, ErrAttributeRequired)

	_, err = e.UpdateItem(Item{"userId": "u1", "tags": Append([]any{"x"})}).Params()
	requireCode(t, err, ErrInvalidAttributeInput)
}

func TestUpdateItemCommand_Send(t *testing.T) {
	client := newMemClient()
	e := newUserEntity(t, newTestTable(t, client))

	_, err := e.PutItem(Item{"userId": "u1", "name": "Ann", "email": "ann@example.com"}).Send(bg())
	require.NoError(t, err)

	res, err := e.UpdateItem(Item{"userId": "u1", "name": "Bob", "email": Remove()}).
		Options(UpdateItemOptions{ReturnValues: ReturnAllNew}).
		Send(bg())
	require.NoError(t, err)
	assert.Equal(t, Item{"userId": "u1", "sk": "profile", "name": "Bob"}, res.Attributes)
	assert.Equal(t, "test-table", *client.lastUpdate.TableName)
}
