package service

import (
	"errors"
	"fmt"
	"math"

	"github.com/vanshika/fintrace/txindex/internal/domain"
)

// ErrInvalidInput is wrapped by every validation failure of an inbound payload.
var ErrInvalidInput = errors.New("invalid input")

// TransactionInput is the inbound payload accepted by the ledger. It keeps the
// separation between request shapes and the indexed record.
type TransactionInput struct {
	ID               string
	Timestamp        string
	SenderAccount    string
	ReceiverAccount  string
	Amount           float64
	Type             string
	MerchantCategory string
	Location         string
	DeviceUsed       string
	// IsFraud is nil when the caller does not label the record.
	IsFraud *bool
}

// ToDomain validates the input and converts it to a normalized record.
func (in TransactionInput) ToDomain() (domain.Transaction, error) {
	id := sanitizeString(in.ID)
	if id == "" {
		return domain.Transaction{}, fmt.Errorf("%w: transaction ID is required", ErrInvalidInput)
	}
	if math.IsNaN(in.Amount) || math.IsInf(in.Amount, 0) {
		return domain.Transaction{}, fmt.Errorf("%w: amount must be finite", ErrInvalidInput)
	}

	tx := domain.Transaction{
		ID:               id,
		Timestamp:        sanitizeString(in.Timestamp),
		SenderAccount:    sanitizeString(in.SenderAccount),
		ReceiverAccount:  sanitizeString(in.ReceiverAccount),
		Amount:           in.Amount,
		Type:             sanitizeString(in.Type),
		MerchantCategory: sanitizeString(in.MerchantCategory),
		Location:         sanitizeString(in.Location),
		DeviceUsed:       sanitizeString(in.DeviceUsed),
	}
	if in.IsFraud != nil {
		tx.FraudLabeled = true
		tx.IsFraud = *in.IsFraud
	}
	return tx.Normalize(), nil
}

// PaginationMeta captures pagination metadata returned to API clients.
type PaginationMeta struct {
	Page       int
	PageSize   int
	TotalItems int64
	TotalPages int
}

// TransactionsPage is one page of records in result order.
type TransactionsPage struct {
	Items      []domain.Transaction
	Pagination PaginationMeta
}

// ListParams pages through the index in ascending ID order.
type ListParams struct {
	Page     int
	PageSize int
}

// FilterParams selects records by amount bounds and/or one field value, with
// an optional secondary sort. Bounds are inclusive; all given criteria must hold.
type FilterParams struct {
	Page      int
	PageSize  int
	MinAmount *float64
	MaxAmount *float64
	Field     string
	Value     string
	Sort      string
}

// GroupResult is one bucket of a grouping, ready for display.
type GroupResult struct {
	Key   string
	Count uint64
	Sum   float64
	Mean  float64
}

// Shape describes the current size and height of the index.
type Shape struct {
	Records  int
	Height   int
	Capacity int
}
