package domain

import "strings"

// Field selects one of the groupable text fields of a Transaction.
type Field int

const (
	FieldUndefined Field = iota
	FieldTransactionType
	FieldMerchantCategory
	FieldLocation
	FieldDeviceUsed
	FieldSenderAccount
	FieldReceiverAccount
)

// UndefinedValue is the value reported for FieldUndefined.
const UndefinedValue = "undefined"

// Fields lists the selectable fields in menu order.
var Fields = []Field{
	FieldTransactionType,
	FieldMerchantCategory,
	FieldLocation,
	FieldDeviceUsed,
	FieldSenderAccount,
	FieldReceiverAccount,
}

var fieldNames = map[Field]string{
	FieldTransactionType:  "transaction_type",
	FieldMerchantCategory: "merchant_category",
	FieldLocation:         "location",
	FieldDeviceUsed:       "device_used",
	FieldSenderAccount:    "sender_account",
	FieldReceiverAccount:  "receiver_account",
}

var fieldAliases = map[string]Field{
	"transaction_type":  FieldTransactionType,
	"type":              FieldTransactionType,
	"merchant_category": FieldMerchantCategory,
	"category":          FieldMerchantCategory,
	"location":          FieldLocation,
	"device_used":       FieldDeviceUsed,
	"device":            FieldDeviceUsed,
	"sender_account":    FieldSenderAccount,
	"sender":            FieldSenderAccount,
	"receiver_account":  FieldReceiverAccount,
	"receiver":          FieldReceiverAccount,
}

// ParseField maps a textual selector to a Field. Unknown names map to
// FieldUndefined.
func ParseField(name string) Field {
	key := strings.ToLower(strings.TrimSpace(name))
	key = strings.ReplaceAll(key, "-", "_")
	if f, ok := fieldAliases[key]; ok {
		return f
	}
	return FieldUndefined
}

func (f Field) String() string {
	if name, ok := fieldNames[f]; ok {
		return name
	}
	return UndefinedValue
}

// Valid reports whether f names a real field.
func (f Field) Valid() bool {
	_, ok := fieldNames[f]
	return ok
}

// Value extracts the selected field from t. FieldUndefined and unknown
// selectors yield UndefinedValue.
func (t Transaction) Value(f Field) string {
	switch f {
	case FieldTransactionType:
		return t.Type
	case FieldMerchantCategory:
		return t.MerchantCategory
	case FieldLocation:
		return t.Location
	case FieldDeviceUsed:
		return t.DeviceUsed
	case FieldSenderAccount:
		return t.SenderAccount
	case FieldReceiverAccount:
		return t.ReceiverAccount
	default:
		return UndefinedValue
	}
}
