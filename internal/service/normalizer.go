package service

import (
	"crypto/sha256"
	"encoding/hex"
	"math"
	"regexp"
	"strings"

	"github.com/vanshika/fintrace/txindex/internal/domain"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

// AttributeType constants used when linking exported transactions.
const (
	AttributeTypeDevice   = "DEVICE"
	AttributeTypeLocation = "LOCATION"
	AttributeTypeMerchant = "MERCHANT_CATEGORY"
	AttributeTypeDay      = "TX_DAY_BUCKET"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// hashValue returns a deterministic SHA-256 hash for the provided value.
func hashValue(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}

// sanitizeString collapses whitespace and trims the result.
func sanitizeString(value string) string {
	value = whitespaceRegex.ReplaceAllString(value, " ")
	return strings.TrimSpace(value)
}

// CanonicalID returns the key a record with the given ID is stored under.
func CanonicalID(id string) string {
	return domain.Transaction{ID: sanitizeString(id)}.Normalize().ID
}

// normalizeKey lowercases a sanitized value so equal traits hash equally.
func normalizeKey(value string) string {
	return strings.ToLower(sanitizeString(value))
}

func normalizePagination(page, pageSize int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}

func buildPaginationMeta(page, pageSize int, total int64) PaginationMeta {
	totalPages := 0
	if pageSize > 0 {
		totalPages = int(math.Ceil(float64(total) / float64(pageSize)))
	}
	return PaginationMeta{
		Page:       page,
		PageSize:   pageSize,
		TotalItems: total,
		TotalPages: totalPages,
	}
}
