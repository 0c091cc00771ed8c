package domain

import "unicode/utf8"

// Maximum byte widths of the text fields of a Transaction.
const (
	MaxIDLen               = 15
	MaxTimestampLen        = 31
	MaxAccountLen          = 31
	MaxTypeLen             = 15
	MaxMerchantCategoryLen = 31
	MaxLocationLen         = 31
	MaxDeviceLen           = 15
)

// SuspiciousAmount is the amount above which a transaction is flagged by SuspectedFraud.
const SuspiciousAmount = 10000

// UnknownDevice is the device value that SuspectedFraud treats as a fraud signal.
const UnknownDevice = "unknown"

// Transaction models a single financial transaction record. The ID is the
// unique ordering key; a Transaction is treated as immutable once indexed.
type Transaction struct {
	ID               string
	Timestamp        string
	SenderAccount    string
	ReceiverAccount  string
	Amount           float64
	Type             string
	MerchantCategory string
	Location         string
	DeviceUsed       string
	IsFraud          bool
	// FraudLabeled reports whether the source carried a fraud flag at all.
	FraudLabeled bool
}

// Normalize returns a copy of the transaction with every text field truncated
// to its fixed maximum width.
func (t Transaction) Normalize() Transaction {
	t.ID = truncate(t.ID, MaxIDLen)
	t.Timestamp = truncate(t.Timestamp, MaxTimestampLen)
	t.SenderAccount = truncate(t.SenderAccount, MaxAccountLen)
	t.ReceiverAccount = truncate(t.ReceiverAccount, MaxAccountLen)
	t.Type = truncate(t.Type, MaxTypeLen)
	t.MerchantCategory = truncate(t.MerchantCategory, MaxMerchantCategoryLen)
	t.Location = truncate(t.Location, MaxLocationLen)
	t.DeviceUsed = truncate(t.DeviceUsed, MaxDeviceLen)
	return t
}

// SuspectedFraud applies the rule-of-thumb fraud predictor: very large
// amounts or an unidentified device.
func (t Transaction) SuspectedFraud() bool {
	return t.Amount > SuspiciousAmount || t.DeviceUsed == UnknownDevice
}

// truncate cuts s to at most max bytes without splitting a UTF-8 sequence.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
