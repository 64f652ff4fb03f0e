/*
Package toolbox – command plumbing.

Commands are immutable values: every setter returns a modified copy, Params
compiles the DynamoDB input and Send executes it through the table client.
*/
package toolbox

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

func incomplete(command, property string) *Error {
	return NewError(ErrIncompleteCommand,
		fmt.Sprintf(`%s incomplete: Missing "%s" property`, command, property),
		WithPayload(map[string]any{"command": command, "property": property}))
}

// requestExpressions accumulates the placeholder tables of all expressions
// of one request.
type requestExpressions struct {
	names  map[string]string
	values map[string]any
}

// add merges the tables of e and returns its expression string, nil when empty.
func (r *requestExpressions) add(e Expression) *string {
	if e.IsEmpty() {
		return nil
	}
	r.names = mergeNames(r.names, e.Names)
	r.values = mergeValues(r.values, e.Values)
	return aws.String(e.Expression)
}

func (r *requestExpressions) attributeNames() map[string]string {
	if len(r.names) == 0 {
		return nil
	}
	return r.names
}

func (r *requestExpressions) attributeValues() (map[string]types.AttributeValue, error) {
	if len(r.values) == 0 {
		return nil, nil
	}
	return ToAttributeValues(r.values)
}

// parseOptionalCondition compiles c when set.
func parseOptionalCondition(schema *Schema, c *Condition, id string) (Expression, error) {
	if c == nil {
		return Expression{}, nil
	}
	return ParseCondition(schema, *c, id)
}

// parseOptionalProjection compiles attributes when set.
func parseOptionalProjection(schema *Schema, attributes []string, id string) (Expression, error) {
	if attributes == nil {
		return Expression{}, nil
	}
	return ParseProjection(schema, attributes, id)
}

func optionalInt32(n int) *int32 {
	if n <= 0 {
		return nil
	}
	return aws.Int32(int32(n))
}

func optionalBool(b bool) *bool {
	if !b {
		return nil
	}
	return aws.Bool(true)
}

func partialReturnValues(rv ReturnValues) bool {
	return rv == ReturnUpdatedNew || rv == ReturnUpdatedOld
}

// keyAttributeValues converts a primary key to its wire form.
func keyAttributeValues(key Item) (map[string]types.AttributeValue, error) {
	return ToAttributeValues(key)
}
