package generator

// Config drives the synthetic data generator.
type Config struct {
	NumTransactions int
	NumAccounts     int
	// AnomalyChance is the probability of a negative or oversized amount.
	AnomalyChance float64
	// UnknownDeviceChance is the probability of device "unknown".
	UnknownDeviceChance float64
	FraudChance         float64
	// Unlabeled omits the fraud column values.
	Unlabeled bool
	// UUIDKeys replaces the T000001 style keys with random UUID hex, cut to
	// the key width.
	UUIDKeys bool
	Seed     int64
}

// DefaultConfig returns baseline settings matching the reference dataset size.
func DefaultConfig() Config {
	return Config{
		NumTransactions:     100000,
		NumAccounts:         5000,
		AnomalyChance:       0.02,
		UnknownDeviceChance: 0.05,
		FraudChance:         0.03,
		Seed:                42,
	}
}
