package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/vanshika/fintrace/txindex/internal/domain"
	"github.com/vanshika/fintrace/txindex/internal/graph"
)

// TransactionRow is one record prepared for export.
type TransactionRow struct {
	Transaction domain.Transaction
	Attributes  []domain.Attribute
	// Suspected carries the fraud heuristic's verdict.
	Suspected bool
}

// Repository encapsulates graph persistence operations.
type Repository struct {
	client graph.Client
}

// New instantiates a Repository backed by the supplied graph client.
func New(client graph.Client) *Repository {
	return &Repository{client: client}
}

// EnsureSchema creates the uniqueness constraints the batch MERGEs rely on.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaCypher {
		if _, err := r.client.ExecuteWrite(ctx, stmt, nil); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// WriteBatch upserts the rows as Transaction nodes between Account nodes,
// with SENT_TO edges between the accounts and HAS_ATTRIBUTE edges to shared
// Attribute nodes.
func (r *Repository) WriteBatch(ctx context.Context, rows []TransactionRow) error {
	if len(rows) == 0 {
		return nil
	}
	params := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		if row.Transaction.ID == "" {
			return errors.New("transaction id is required")
		}
		params = append(params, rowParams(row))
	}

	res, err := r.client.ExecuteWrite(ctx, writeBatchCypher, map[string]any{"rows": params})
	if err != nil {
		return fmt.Errorf("write batch of %d: %w", len(rows), err)
	}
	if len(res.Records) > 0 {
		if written := toInt64(res.Records[0]["written"]); written != int64(len(rows)) {
			return fmt.Errorf("write batch: graph acknowledged %d of %d rows", written, len(rows))
		}
	}
	return nil
}

// CountTransactions returns the number of Transaction nodes in the graph.
func (r *Repository) CountTransactions(ctx context.Context) (int64, error) {
	res, err := r.client.ExecuteRead(ctx, countTransactionsCypher, nil)
	if err != nil {
		return 0, fmt.Errorf("count transactions query: %w", err)
	}
	if len(res.Records) == 0 {
		return 0, nil
	}
	return toInt64(res.Records[0]["total"]), nil
}

// FetchTransaction reads one exported transaction back from the graph.
func (r *Repository) FetchTransaction(ctx context.Context, id string) (domain.Transaction, bool, error) {
	res, err := r.client.ExecuteRead(ctx, fetchTransactionCypher, map[string]any{"transactionId": id})
	if err != nil {
		return domain.Transaction{}, false, fmt.Errorf("fetch transaction query: %w", err)
	}
	if len(res.Records) == 0 {
		return domain.Transaction{}, false, nil
	}
	record := res.Records[0]
	tx := domain.Transaction{
		ID:               toString(record["transactionId"]),
		Timestamp:        toString(record["timestamp"]),
		SenderAccount:    toString(record["senderId"]),
		ReceiverAccount:  toString(record["receiverId"]),
		Amount:           toFloat64(record["amount"]),
		Type:             toString(record["type"]),
		MerchantCategory: toString(record["merchantCategory"]),
		Location:         toString(record["location"]),
		DeviceUsed:       toString(record["deviceUsed"]),
	}
	if labeled, ok := record["isFraud"].(bool); ok {
		tx.FraudLabeled = true
		tx.IsFraud = labeled
	}
	return tx, true, nil
}

func rowParams(row TransactionRow) map[string]any {
	tx := row.Transaction
	props := map[string]any{
		"timestamp":        tx.Timestamp,
		"amount":           tx.Amount,
		"type":             tx.Type,
		"merchantCategory": tx.MerchantCategory,
		"location":         tx.Location,
		"deviceUsed":       tx.DeviceUsed,
		"suspectedFraud":   row.Suspected,
	}
	if tx.FraudLabeled {
		props["isFraud"] = tx.IsFraud
	}
	return map[string]any{
		"transactionId": tx.ID,
		"senderId":      tx.SenderAccount,
		"receiverId":    tx.ReceiverAccount,
		"amount":        tx.Amount,
		"timestamp":     tx.Timestamp,
		"props":         props,
		"attributes":    attributeParams(row.Attributes),
	}
}

func attributeParams(attrs []domain.Attribute) []map[string]any {
	result := make([]map[string]any, 0, len(attrs))
	for _, attr := range attrs {
		result = append(result, map[string]any{
			"type":       attr.Type,
			"value":      attr.Value,
			"rawValue":   attr.RawValue,
			"confidence": attr.ConfidenceScore,
		})
	}
	return result
}

func toString(val any) string {
	switch v := val.(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	case []byte:
		return string(v)
	default:
		return ""
	}
}

func toFloat64(val any) float64 {
	switch v := val.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int64:
		return float64(v)
	case int:
		return float64(v)
	default:
		return 0
	}
}

func toInt64(val any) int64 {
	switch v := val.(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	default:
		return 0
	}
}

var schemaCypher = []string{
	`CREATE CONSTRAINT transaction_id IF NOT EXISTS FOR (t:Transaction) REQUIRE t.transactionId IS UNIQUE`,
	`CREATE CONSTRAINT account_id IF NOT EXISTS FOR (a:Account) REQUIRE a.accountId IS UNIQUE`,
}

// Empty account IDs are skipped so a partial record never creates a shared
// anonymous Account.
const writeBatchCypher = `
UNWIND $rows AS row
MERGE (t:Transaction {transactionId: row.transactionId})
SET t += row.props
FOREACH (_ IN CASE WHEN row.senderId = "" THEN [] ELSE [1] END |
	MERGE (s:Account {accountId: row.senderId})
	MERGE (s)-[:SENT]->(t)
)
FOREACH (_ IN CASE WHEN row.receiverId = "" THEN [] ELSE [1] END |
	MERGE (r:Account {accountId: row.receiverId})
	MERGE (t)-[:RECEIVED_BY]->(r)
)
FOREACH (_ IN CASE WHEN row.senderId = "" OR row.receiverId = "" THEN [] ELSE [1] END |
	MERGE (s:Account {accountId: row.senderId})
	MERGE (r:Account {accountId: row.receiverId})
	MERGE (s)-[st:SENT_TO {transactionId: row.transactionId}]->(r)
	SET st.amount = row.amount,
		st.timestamp = row.timestamp
)
FOREACH (attr IN row.attributes |
	MERGE (a:Attribute {attributeType: attr.type, value: attr.value})
	SET a.rawValue = attr.rawValue
	MERGE (t)-[ha:HAS_ATTRIBUTE]->(a)
	SET ha.confidenceScore = attr.confidence
)
RETURN count(t) AS written
`

const countTransactionsCypher = `
MATCH (t:Transaction)
RETURN count(t) AS total
`

const fetchTransactionCypher = `
MATCH (t:Transaction {transactionId: $transactionId})
OPTIONAL MATCH (s:Account)-[:SENT]->(t)
OPTIONAL MATCH (t)-[:RECEIVED_BY]->(r:Account)
RETURN t.transactionId AS transactionId,
	t.timestamp AS timestamp,
	s.accountId AS senderId,
	r.accountId AS receiverId,
	t.amount AS amount,
	t.type AS type,
	t.merchantCategory AS merchantCategory,
	t.location AS location,
	t.deviceUsed AS deviceUsed,
	t.isFraud AS isFraud
LIMIT 1
`
