package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/vanshika/fintrace/txindex/internal/generator"
)

func main() {
	cfg := generator.DefaultConfig()
	var (
		transactions  = flag.Int("transactions", cfg.NumTransactions, "number of transactions to generate")
		accounts      = flag.Int("accounts", cfg.NumAccounts, "number of distinct accounts")
		anomalyChance = flag.Float64("anomaly-chance", cfg.AnomalyChance, "probability of a negative or oversized amount")
		unknownChance = flag.Float64("unknown-device-chance", cfg.UnknownDeviceChance, "probability of an unknown device")
		fraudChance   = flag.Float64("fraud-chance", cfg.FraudChance, "base probability of a positive fraud label")
		unlabeled     = flag.Bool("unlabeled", false, "leave the fraud column empty")
		uuidKeys      = flag.Bool("uuid", false, "use random UUID-derived keys instead of T000001 style keys")
		seed          = flag.Int64("seed", cfg.Seed, "random seed for deterministic generation")
		output        = flag.String("out", "data/transactions.csv", "CSV file to write")
		writeStdout   = flag.Bool("stdout", false, "write the dataset to stdout instead of a file")
	)
	flag.Parse()

	genCfg := generator.Config{
		NumTransactions:     *transactions,
		NumAccounts:         *accounts,
		AnomalyChance:       *anomalyChance,
		UnknownDeviceChance: *unknownChance,
		FraudChance:         *fraudChance,
		Unlabeled:           *unlabeled,
		UUIDKeys:            *uuidKeys,
		Seed:                *seed,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	records, err := generator.New(genCfg).Generate(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "generation failed: %v\n", err)
		os.Exit(1)
	}

	if *writeStdout {
		if err := generator.Encode(os.Stdout, records); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write dataset to stdout: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := generator.WriteDataset(records, *output); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write dataset: %v\n", err)
		os.Exit(1)
	}

	fmt.Fprintf(os.Stdout, "Generated %d transactions into %s\n", len(records), *output)
}
