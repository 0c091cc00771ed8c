package generator

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vanshika/fintrace/txindex/internal/domain"
)

// Generator produces synthetic transaction datasets for loading into the index.
type Generator struct {
	cfg  Config
	rand *rand.Rand
	vals valuePools
}

// New returns a configured Generator instance.
func New(cfg Config) *Generator {
	def := DefaultConfig()
	if cfg.NumTransactions <= 0 {
		cfg.NumTransactions = def.NumTransactions
	}
	if cfg.NumAccounts <= 0 {
		cfg.NumAccounts = def.NumAccounts
	}
	cfg.AnomalyChance = clamp(cfg.AnomalyChance)
	cfg.UnknownDeviceChance = clamp(cfg.UnknownDeviceChance)
	cfg.FraudChance = clamp(cfg.FraudChance)
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}

	return &Generator{
		cfg:  cfg,
		rand: rand.New(rand.NewSource(cfg.Seed)),
		vals: defaultValuePools(),
	}
}

// Generate synthesises the configured number of records. Keys are unique and
// emitted in shuffled order so loading them exercises every rotation case.
// It respects context cancellation.
func (g *Generator) Generate(ctx context.Context) ([]domain.Transaction, error) {
	n := g.cfg.NumTransactions
	keys := g.keys(n)
	start := time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC)

	out := make([]domain.Transaction, n)
	for i := range n {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		sender := g.rand.Intn(g.cfg.NumAccounts)
		receiver := g.rand.Intn(g.cfg.NumAccounts)
		if sender == receiver {
			receiver = (receiver + 1) % g.cfg.NumAccounts
		}
		ts := start.Add(time.Duration(g.rand.Intn(365*24*60)) * time.Minute)

		tx := domain.Transaction{
			ID:               keys[i],
			Timestamp:        ts.Format("2006-01-02T15:04:05"),
			SenderAccount:    fmt.Sprintf("ACC%d", 10000+sender),
			ReceiverAccount:  fmt.Sprintf("ACC%d", 10000+receiver),
			Amount:           g.amount(),
			Type:             pick(g.rand, g.vals.types),
			MerchantCategory: pick(g.rand, g.vals.categories),
			Location:         pick(g.rand, g.vals.locations),
			DeviceUsed:       g.device(),
		}
		if !g.cfg.Unlabeled {
			tx.FraudLabeled = true
			chance := g.cfg.FraudChance
			if tx.SuspectedFraud() {
				chance = math.Min(1, chance*5)
			}
			tx.IsFraud = g.rand.Float64() < chance
		}
		out[i] = tx.Normalize()
	}
	return out, nil
}

func (g *Generator) keys(n int) []string {
	keys := make([]string, n)
	for i := range keys {
		if g.cfg.UUIDKeys {
			id := uuid.Must(uuid.NewRandomFromReader(g.rand))
			keys[i] = strings.ReplaceAll(id.String(), "-", "")[:domain.MaxIDLen]
			continue
		}
		keys[i] = fmt.Sprintf("T%06d", i+1)
	}
	g.rand.Shuffle(n, func(i, j int) { keys[i], keys[j] = keys[j], keys[i] })
	return keys
}

// amount is log-normal around a few hundred, with occasional negative or
// oversized anomalies.
func (g *Generator) amount() float64 {
	if g.rand.Float64() < g.cfg.AnomalyChance {
		if g.rand.Intn(2) == 0 {
			return -round2(g.rand.Float64()*500 + 1)
		}
		return round2(domain.SuspiciousAmount + g.rand.Float64()*90000 + 0.01)
	}
	return round2(math.Exp(g.rand.NormFloat64()*0.9 + 5.5))
}

func (g *Generator) device() string {
	if g.rand.Float64() < g.cfg.UnknownDeviceChance {
		return domain.UnknownDevice
	}
	return pick(g.rand, g.vals.devices)
}

type valuePools struct {
	types      []string
	categories []string
	locations  []string
	devices    []string
}

func defaultValuePools() valuePools {
	return valuePools{
		types:      []string{"deposit", "withdrawal", "transfer", "payment"},
		categories: []string{"retail", "travel", "utilities", "online", "restaurant", "entertainment", "grocery", "other"},
		locations:  []string{"Tokyo", "London", "New York", "Berlin", "Sydney", "Toronto", "Dubai", "Singapore"},
		devices:    []string{"mobile", "pos", "atm", "web", "tablet"},
	}
}

func pick(r *rand.Rand, from []string) string {
	return from[r.Intn(len(from))]
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func clamp(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}
