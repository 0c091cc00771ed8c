// Package ingest parses comma-separated transaction datasets.
//
// Each data line carries nine or ten columns:
//
//	transaction_id,timestamp,sender_account,receiver_account,amount,
//	transaction_type,merchant_category,location,device_used[,is_fraud]
//
// An empty tenth column is read as unlabeled. The first line of a file is a
// header and is always skipped. Text fields are truncated to their fixed
// widths; lines that cannot be turned into a record are reported as
// ErrMalformedLine and parsing continues.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"iter"
	"math"
	"strconv"
	"strings"

	"github.com/vanshika/fintrace/txindex/internal/domain"
)

// ErrMalformedLine marks a line that was skipped. Decode wraps it together
// with the line number and reason.
var ErrMalformedLine = errors.New("malformed line")

const (
	columnsUnlabeled = 9
	columnsLabeled   = 10
)

// Decoder reads transactions from a delimited text stream.
type Decoder struct {
	cr         *csv.Reader
	skipHeader bool
	line       int
}

// NewDecoder returns a Decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.LazyQuotes = true
	cr.ReuseRecord = true
	return &Decoder{cr: cr, skipHeader: true}
}

// Line returns the input line of the most recently decoded record.
func (d *Decoder) Line() int {
	return d.line
}

// Decode returns the next record. It returns io.EOF at the end of input and
// an error wrapping ErrMalformedLine for a line that was skipped; any other
// error is fatal.
func (d *Decoder) Decode() (domain.Transaction, error) {
	for {
		fields, err := d.cr.Read()
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				d.line = perr.Line
				d.skipHeader = false
				return domain.Transaction{}, fmt.Errorf("%w: line %d: %v", ErrMalformedLine, perr.Line, perr.Err)
			}
			return domain.Transaction{}, err
		}
		d.line, _ = d.cr.FieldPos(0)
		if d.skipHeader {
			d.skipHeader = false
			continue
		}

		tx, err := ParseRecord(fields)
		if err != nil {
			return domain.Transaction{}, fmt.Errorf("%w: line %d: %v", ErrMalformedLine, d.line, err)
		}
		return tx, nil
	}
}

// All yields every line of the input: a record with a nil error, or a zero
// record with the error Decode returned. The sequence ends after io.EOF or
// the first fatal error.
func (d *Decoder) All() iter.Seq2[domain.Transaction, error] {
	return func(yield func(domain.Transaction, error) bool) {
		for {
			tx, err := d.Decode()
			if errors.Is(err, io.EOF) {
				return
			}
			if !yield(tx, err) {
				return
			}
			if err != nil && !errors.Is(err, ErrMalformedLine) {
				return
			}
		}
	}
}

// ParseRecord converts one split line into a normalized transaction.
func ParseRecord(fields []string) (domain.Transaction, error) {
	if n := len(fields); n != columnsUnlabeled && n != columnsLabeled {
		return domain.Transaction{}, fmt.Errorf("expected %d or %d columns, got %d", columnsUnlabeled, columnsLabeled, n)
	}
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	if fields[0] == "" {
		return domain.Transaction{}, errors.New("empty transaction id")
	}

	amount, err := strconv.ParseFloat(fields[4], 64)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("invalid amount %q", fields[4])
	}
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return domain.Transaction{}, fmt.Errorf("amount %q is not finite", fields[4])
	}

	tx := domain.Transaction{
		ID:               fields[0],
		Timestamp:        fields[1],
		SenderAccount:    fields[2],
		ReceiverAccount:  fields[3],
		Amount:           amount,
		Type:             fields[5],
		MerchantCategory: fields[6],
		Location:         fields[7],
		DeviceUsed:       fields[8],
	}
	if len(fields) == columnsLabeled && fields[9] != "" {
		tx.FraudLabeled = true
		tx.IsFraud = ParseFraudFlag(fields[9])
	}
	return tx.Normalize(), nil
}

// ParseFraudFlag reports whether s spells a positive fraud label.
func ParseFraudFlag(s string) bool {
	return strings.EqualFold(s, "true") || s == "1"
}
