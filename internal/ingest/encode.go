package ingest

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/vanshika/fintrace/txindex/internal/domain"
)

// Header is the column row written by Encoder and skipped by Decoder.
var Header = []string{
	"transaction_id", "timestamp", "sender_account", "receiver_account", "amount",
	"transaction_type", "merchant_category", "location", "device_used", "is_fraud",
}

// Encoder writes transactions in the ten-column form Decoder reads.
type Encoder struct {
	cw          *csv.Writer
	wroteHeader bool
}

// NewEncoder returns an Encoder writing to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{cw: csv.NewWriter(w)}
}

// Encode writes one record, preceded by the header on first use. Unlabeled
// records get an empty fraud column.
func (e *Encoder) Encode(tx domain.Transaction) error {
	if !e.wroteHeader {
		if err := e.cw.Write(Header); err != nil {
			return err
		}
		e.wroteHeader = true
	}
	fraud := ""
	if tx.FraudLabeled {
		fraud = "False"
		if tx.IsFraud {
			fraud = "True"
		}
	}
	return e.cw.Write([]string{
		tx.ID,
		tx.Timestamp,
		tx.SenderAccount,
		tx.ReceiverAccount,
		strconv.FormatFloat(tx.Amount, 'f', -1, 64),
		tx.Type,
		tx.MerchantCategory,
		tx.Location,
		tx.DeviceUsed,
		fraud,
	})
}

// Flush writes buffered data and reports any write error.
func (e *Encoder) Flush() error {
	e.cw.Flush()
	return e.cw.Error()
}
