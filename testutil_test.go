/*
Package toolbox – shared test infrastructure.

memClient is an in-memory DynamoClient. It stores items per table keyed by
"pk||sk", records the last input of every call and can be told to fail.
Filter and condition expressions are not evaluated: tests assert on the
compiled inputs instead.
*/
package toolbox

import (
	"context"
	"sort"
	"strings"
	"sync"
	"testing"

	ddb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/require"
)

type memClient struct {
	mu     sync.Mutex
	tables map[string]map[string]map[string]types.AttributeValue
	err    error

	lastGet      *ddb.GetItemInput
	lastPut      *ddb.PutItemInput
	lastDelete   *ddb.DeleteItemInput
	lastUpdate   *ddb.UpdateItemInput
	lastQuery    *ddb.QueryInput
	lastScan     *ddb.ScanInput
	lastTransact *ddb.TransactWriteItemsInput
	calls        int
}

func newMemClient() *memClient {
	return &memClient{tables: map[string]map[string]map[string]types.AttributeValue{}}
}

func (m *memClient) tbl(name *string) map[string]map[string]types.AttributeValue {
	n := deref(name)
	if m.tables[n] == nil {
		m.tables[n] = map[string]map[string]types.AttributeValue{}
	}
	return m.tables[n]
}

func avStr(av types.AttributeValue) string {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		return v.Value
	case *types.AttributeValueMemberN:
		return v.Value
	}
	return ""
}

func itemKey(item map[string]types.AttributeValue) string {
	return avStr(item["pk"]) + "||" + avStr(item["sk"])
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// store writes a wire item directly, bypassing the commands.
func (m *memClient) store(table string, item map[string]types.AttributeValue) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tbl(&table)[itemKey(item)] = item
}

func (m *memClient) GetItem(_ context.Context, p *ddb.GetItemInput, _ ...func(*ddb.Options)) (*ddb.GetItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.lastGet = p
	if m.err != nil {
		return nil, m.err
	}
	return &ddb.GetItemOutput{Item: m.tbl(p.TableName)[itemKey(p.Key)]}, nil
}

func (m *memClient) PutItem(_ context.Context, p *ddb.PutItemInput, _ ...func(*ddb.Options)) (*ddb.PutItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.lastPut = p
	if m.err != nil {
		return nil, m.err
	}
	t := m.tbl(p.TableName)
	k := itemKey(p.Item)
	out := &ddb.PutItemOutput{}
	if p.ReturnValues == types.ReturnValueAllOld {
		out.Attributes = t[k]
	}
	t[k] = p.Item
	return out, nil
}

func (m *memClient) DeleteItem(_ context.Context, p *ddb.DeleteItemInput, _ ...func(*ddb.Options)) (*ddb.DeleteItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.lastDelete = p
	if m.err != nil {
		return nil, m.err
	}
	t := m.tbl(p.TableName)
	k := itemKey(p.Key)
	out := &ddb.DeleteItemOutput{}
	if p.ReturnValues == types.ReturnValueAllOld {
		out.Attributes = t[k]
	}
	delete(t, k)
	return out, nil
}

// UpdateItem applies plain "#n = :v" SET clauses and REMOVE clauses. Other
// clauses are ignored.
func (m *memClient) UpdateItem(_ context.Context, p *ddb.UpdateItemInput, _ ...func(*ddb.Options)) (*ddb.UpdateItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.lastUpdate = p
	if m.err != nil {
		return nil, m.err
	}
	t := m.tbl(p.TableName)
	k := itemKey(p.Key)
	item := map[string]types.AttributeValue{}
	for name, v := range t[k] {
		item[name] = v
	}
	for name, v := range p.Key {
		item[name] = v
	}
	applyUpdateExpression(item, deref(p.UpdateExpression), p.ExpressionAttributeNames, p.ExpressionAttributeValues)
	t[k] = item
	out := &ddb.UpdateItemOutput{}
	if p.ReturnValues == types.ReturnValueAllNew {
		out.Attributes = item
	}
	return out, nil
}

func applyUpdateExpression(item map[string]types.AttributeValue, expr string, names map[string]string, values map[string]types.AttributeValue) {
	for _, clause := range splitClauses(expr) {
		keyword, body, _ := strings.Cut(clause, " ")
		for _, part := range strings.Split(body, ", ") {
			switch keyword {
			case "SET":
				lhs, rhs, ok := strings.Cut(part, " = ")
				if !ok {
					continue
				}
				if v, ok := values[rhs]; ok {
					if name, ok := names[lhs]; ok {
						item[name] = v
					}
				}
			case "REMOVE":
				if name, ok := names[part]; ok {
					delete(item, name)
				}
			}
		}
	}
}

func splitClauses(expr string) []string {
	var clauses []string
	start := 0
	for i := 0; i < len(expr); i++ {
		for _, kw := range []string{" REMOVE ", " ADD ", " DELETE "} {
			if strings.HasPrefix(expr[i:], kw) {
				clauses = append(clauses, expr[start:i])
				start = i + 1
			}
		}
	}
	if start < len(expr) {
		clauses = append(clauses, expr[start:])
	}
	return clauses
}

func (m *memClient) sortedItems(table *string) []map[string]types.AttributeValue {
	t := m.tbl(table)
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	items := make([]map[string]types.AttributeValue, 0, len(keys))
	for _, k := range keys {
		items = append(items, t[k])
	}
	return items
}

func (m *memClient) Query(_ context.Context, p *ddb.QueryInput, _ ...func(*ddb.Options)) (*ddb.QueryOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.lastQuery = p
	if m.err != nil {
		return nil, m.err
	}
	items := m.sortedItems(p.TableName)
	return &ddb.QueryOutput{Items: items, Count: int32(len(items))}, nil
}

func (m *memClient) Scan(_ context.Context, p *ddb.ScanInput, _ ...func(*ddb.Options)) (*ddb.ScanOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.lastScan = p
	if m.err != nil {
		return nil, m.err
	}
	items := m.sortedItems(p.TableName)
	return &ddb.ScanOutput{Items: items, Count: int32(len(items)), ScannedCount: int32(len(items))}, nil
}

func (m *memClient) TransactWriteItems(_ context.Context, p *ddb.TransactWriteItemsInput, _ ...func(*ddb.Options)) (*ddb.TransactWriteItemsOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.lastTransact = p
	if m.err != nil {
		return nil, m.err
	}
	for _, ti := range p.TransactItems {
		switch {
		case ti.Put != nil:
			m.tbl(ti.Put.TableName)[itemKey(ti.Put.Item)] = ti.Put.Item
		case ti.Delete != nil:
			delete(m.tbl(ti.Delete.TableName), itemKey(ti.Delete.Key))
		}
	}
	return &ddb.TransactWriteItemsOutput{}, nil
}

// ─── fixtures ────────────────────────────────────────────────────────────────

func bg() context.Context { return context.Background() }

func boolPtr(b bool) *bool { return &b }

func intPtr(n int) *int { return &n }

var noTimestamps = TimestampsOptions{
	Created:  TimestampOption{Disabled: true},
	Modified: TimestampOption{Disabled: true},
}

func newTestTable(t *testing.T, client DynamoClient) *Table {
	t.Helper()
	tbl, err := NewTable(TableParams{
		Name:         "test-table",
		PartitionKey: Key{Name: "pk", Type: KeyTypeString},
		SortKey:      &Key{Name: "sk", Type: KeyTypeString},
		Indexes: map[string]Index{
			"byEmail": {Type: GlobalIndex, PartitionKey: &Key{Name: "email", Type: KeyTypeString}},
			"byAge":   {Type: LocalIndex, SortKey: &Key{Name: "age", Type: KeyTypeNumber}},
		},
		Client: client,
		Logger: NopLogger{},
	})
	require.NoError(t, err)
	return tbl
}

func userAttributes() Attributes {
	return Attributes{
		"userId":  String(KeyAttribute(), SavedAs("pk"), Transform(Prefix("USER"))),
		"sk":      String(KeyAttribute(), Default("profile")),
		"name":    String(),
		"email":   String(Optional()),
		"age":     Number(Optional()),
		"tags":    SetOf(String(), Optional()),
		"friends": ListOf(String(), Optional()),
		"address": MapOf(Attributes{
			"city": String(),
			"zip":  String(Optional(), SavedAs("z")),
		}, Optional()),
		"meta":   Any(Optional()),
		"secret": String(Optional(), Hidden()),
	}
}

// newUserEntity returns a User entity without timestamps, so that compiled
// inputs are deterministic.
func newUserEntity(t *testing.T, tbl *Table) *Entity {
	t.Helper()
	e, err := NewEntity(EntityParams{
		Name:       "User",
		Table:      tbl,
		Schema:     MustSchema(userAttributes()),
		Timestamps: noTimestamps,
	})
	require.NoError(t, err)
	return e
}

func newOrderEntity(t *testing.T, tbl *Table) *Entity {
	t.Helper()
	e, err := NewEntity(EntityParams{
		Name:  "Order",
		Table: tbl,
		Schema: MustSchema(Attributes{
			"orderId": String(KeyAttribute(), SavedAs("pk"), Transform(Prefix("ORDER"))),
			"sk":      String(KeyAttribute(), Default("order")),
			"total":   Number(),
		}),
		Timestamps: noTimestamps,
	})
	require.NoError(t, err)
	return e
}

// requireCode asserts that err is an *Error with code.
func requireCode(t *testing.T, err error, code ErrorCode) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, code, ErrorCodeOf(err), "unexpected error: %v", err)
}

func strAV(s string) types.AttributeValue { return &types.AttributeValueMemberS{Value: s} }

func numAV(n string) types.AttributeValue { return &types.AttributeValueMemberN{Value: n} }
