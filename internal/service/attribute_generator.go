package service

import (
	"github.com/vanshika/fintrace/txindex/internal/domain"
)

// dayBucketLen is the length of the date prefix of "YYYY-MM-DD hh:mm:ss".
const dayBucketLen = len("2006-01-02")

// DefaultAttributeGenerator derives link attributes from the text fields of a
// transaction.
type DefaultAttributeGenerator struct{}

func (DefaultAttributeGenerator) FromTransaction(tx domain.Transaction) []domain.Attribute {
	var attrs []domain.Attribute

	if device := normalizeKey(tx.DeviceUsed); device != "" && device != domain.UnknownDevice {
		attrs = append(attrs, domain.Attribute{
			Type:            AttributeTypeDevice,
			Value:           hashValue(device),
			RawValue:        device,
			ConfidenceScore: 0.9,
		})
	}

	if location := normalizeKey(tx.Location); location != "" {
		attrs = append(attrs, domain.Attribute{
			Type:            AttributeTypeLocation,
			Value:           hashValue(location),
			RawValue:        location,
			ConfidenceScore: 0.6,
		})
	}

	if category := normalizeKey(tx.MerchantCategory); category != "" {
		attrs = append(attrs, domain.Attribute{
			Type:            AttributeTypeMerchant,
			Value:           hashValue(category),
			RawValue:        category,
			ConfidenceScore: 0.4,
		})
	}

	// Timestamps are opaque text; only well-formed date prefixes bucket.
	if ts := sanitizeString(tx.Timestamp); len(ts) >= dayBucketLen && ts[4] == '-' && ts[7] == '-' {
		day := ts[:dayBucketLen]
		attrs = append(attrs, domain.Attribute{
			Type:            AttributeTypeDay,
			Value:           hashValue(day),
			RawValue:        day,
			ConfidenceScore: 0.5,
		})
	}

	return attrs
}
