/*
Package toolbox – Table type.

A Table describes the physical DynamoDB table: its name, primary key and
secondary indexes. It owns the client commands are sent with and the logger
every request goes through.
*/
package toolbox

import (
	"context"
	"errors"
	"fmt"
	"time"

	ddb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/smithy-go"
)

// DynamoClient is the subset of *dynamodb.Client the commands need. Test
// doubles implement it too.
type DynamoClient interface {
	GetItem(ctx context.Context, params *ddb.GetItemInput, optFns ...func(*ddb.Options)) (*ddb.GetItemOutput, error)
	PutItem(ctx context.Context, params *ddb.PutItemInput, optFns ...func(*ddb.Options)) (*ddb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *ddb.DeleteItemInput, optFns ...func(*ddb.Options)) (*ddb.DeleteItemOutput, error)
	UpdateItem(ctx context.Context, params *ddb.UpdateItemInput, optFns ...func(*ddb.Options)) (*ddb.UpdateItemOutput, error)
	Query(ctx context.Context, params *ddb.QueryInput, optFns ...func(*ddb.Options)) (*ddb.QueryOutput, error)
	Scan(ctx context.Context, params *ddb.ScanInput, optFns ...func(*ddb.Options)) (*ddb.ScanOutput, error)
	TransactWriteItems(ctx context.Context, params *ddb.TransactWriteItemsInput, optFns ...func(*ddb.Options)) (*ddb.TransactWriteItemsOutput, error)
}

// KeyType is the DynamoDB type of a key attribute.
type KeyType string

const (
	KeyTypeString KeyType = "string"
	KeyTypeNumber KeyType = "number"
	KeyTypeBinary KeyType = "binary"
)

// Key is a partition or sort key definition.
type Key struct {
	Name string  `yaml:"name" validate:"required"`
	Type KeyType `yaml:"type" validate:"required,oneof=string number binary"`
}

// IndexType tells global and local secondary indexes apart.
type IndexType string

const (
	GlobalIndex IndexType = "global"
	LocalIndex  IndexType = "local"
)

// Index is a secondary index definition. Local indexes share the table
// partition key and leave PartitionKey nil.
type Index struct {
	Type         IndexType `yaml:"type" validate:"required,oneof=global local"`
	PartitionKey *Key      `yaml:"partitionKey" validate:"required_if=Type global,omitempty"`
	SortKey      *Key      `yaml:"sortKey" validate:"required_if=Type local,omitempty"`
}

// TableParams configures a Table.
type TableParams struct {
	Name         string           `validate:"required"`
	PartitionKey Key
	SortKey      *Key             `validate:"omitempty"`
	Indexes      map[string]Index `validate:"dive"`
	// EntityAttributeSavedAs is the storage name of the entity type
	// attribute (default "_et").
	EntityAttributeSavedAs string
	Client                 DynamoClient
	Logger                 Logger // nil → default (info+error only)
	Verbose                bool   // true → also log trace/data
}

// DefaultEntityAttributeSavedAs is the default storage name of the entity
// type attribute.
const DefaultEntityAttributeSavedAs = "_et"

// Table is a DynamoDB table definition bound to a client.
type Table struct {
	Name                   string
	PartitionKey           Key
	SortKey                *Key
	Indexes                map[string]Index
	EntityAttributeSavedAs string

	client DynamoClient
	log    Logger
}

// NewTable validates params and creates a Table. A nil client is accepted:
// params can be built without one, only Send needs it.
func NewTable(params TableParams) (*Table, error) {
	if err := validate.Struct(params); err != nil {
		return nil, NewError(ErrTableInvalidParams,
			fmt.Sprintf("Invalid table params for %q: %v", params.Name, err), WithCause(err))
	}
	t := &Table{
		Name:                   params.Name,
		PartitionKey:           params.PartitionKey,
		SortKey:                params.SortKey,
		Indexes:                params.Indexes,
		EntityAttributeSavedAs: params.EntityAttributeSavedAs,
		client:                 params.Client,
	}
	if t.Indexes == nil {
		t.Indexes = map[string]Index{}
	}
	if t.EntityAttributeSavedAs == "" {
		t.EntityAttributeSavedAs = DefaultEntityAttributeSavedAs
	}
	switch {
	case params.Logger != nil:
		t.log = params.Logger
	case params.Verbose:
		t.log = verboseLogger()
	default:
		t.log = defaultLogger()
	}
	logTrace(t.log, "Loading table", map[string]any{"table": t.Name})
	return t, nil
}

// SetClient replaces the client used by Send.
func (t *Table) SetClient(client DynamoClient) { t.client = client }

// Client returns the client used by Send.
func (t *Table) Client() DynamoClient { return t.client }

// Logger returns the table logger.
func (t *Table) Logger() Logger { return t.log }

// keyNames returns the storage names of the primary key attributes.
func (t *Table) keyNames() []string {
	names := []string{t.PartitionKey.Name}
	if t.SortKey != nil {
		names = append(names, t.SortKey.Name)
	}
	return names
}

func (t *Table) requireClient() (DynamoClient, error) {
	if t.client == nil {
		return nil, NewError(ErrTableMissingClient,
			fmt.Sprintf("Table %s has no DynamoDB client configured", t.Name))
	}
	return t.client, nil
}

// send logs and executes one request. Failures are wrapped as
// transport.requestFailed with the AWS error code in the payload.
func send[I, O any](ctx context.Context, t *Table, op string, input I, call func(context.Context, I, ...func(*ddb.Options)) (O, error)) (O, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()
	logInfo(t.log, fmt.Sprintf(`toolbox "%s" "%s"`, op, t.Name), map[string]any{"op": op, "table": t.Name})
	logData(t.log, "request", map[string]any{"op": op, "input": input})

	out, err := call(ctx, input)
	if err != nil {
		payload := map[string]any{"op": op, "table": t.Name}
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			payload["code"] = apiErr.ErrorCode()
		}
		logError(t.log, fmt.Sprintf(`toolbox "%s" failed`, op), map[string]any{"op": op, "table": t.Name, "err": err.Error()})
		var zero O
		return zero, NewError(ErrRequestFailed,
			fmt.Sprintf("DynamoDB %s on table %s failed: %v", op, t.Name, err),
			WithPayload(payload), WithCause(err))
	}
	logTrace(t.log, fmt.Sprintf(`toolbox "%s" done`, op), map[string]any{"op": op, "elapsed": time.Since(start).String()})
	return out, nil
}
