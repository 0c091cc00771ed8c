package main

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vanshika/fintrace/txindex/internal/config"
	"github.com/vanshika/fintrace/txindex/internal/domain"
	"github.com/vanshika/fintrace/txindex/internal/logging"
	"github.com/vanshika/fintrace/txindex/internal/service"
)

var errNoDataset = errors.New("no dataset: pass --data or set INDEX_DATASET")

// app carries what every subcommand needs once the dataset is loaded.
type app struct {
	dataPath string
	capacity int
	evictMin bool

	ledger *service.LedgerService
	report service.Report
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "txindex",
		Short:         "Load a transaction CSV into a balanced index and query it",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if !needsDataset(cmd) {
				return nil
			}
			return a.load(cmd)
		},
	}
	root.PersistentFlags().StringVar(&a.dataPath, "data", "", "transactions CSV to load (defaults to INDEX_DATASET)")
	root.PersistentFlags().IntVar(&a.capacity, "capacity", -1, "maximum records held by the index (0 = unbounded, default from INDEX_CAPACITY)")
	root.PersistentFlags().BoolVar(&a.evictMin, "evict-min", false, "evict the smallest key instead of rejecting inserts when full")

	root.AddCommand(
		newSearchCmd(a),
		newStatsCmd(a),
		newGroupCmd(a),
		newFilterCmd(a),
		newDeleteCmd(a),
		newVerifyCmd(a),
	)
	return root
}

// needsDataset is false for cobra's help and shell completion commands.
func needsDataset(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		switch c.Name() {
		case "help", "completion", cobra.ShellCompRequestCmd, cobra.ShellCompNoDescRequestCmd:
			return false
		}
	}
	return true
}

// load builds a fresh index from the dataset. Flags override configuration.
func (a *app) load(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if a.dataPath != "" {
		cfg.Index.DatasetPath = a.dataPath
	}
	if cfg.Index.DatasetPath == "" {
		return errNoDataset
	}
	if a.capacity >= 0 {
		cfg.Index.Capacity = a.capacity
	}
	if a.evictMin {
		cfg.Index.EvictMinimum = true
	}

	logger := logging.NewWithWriter(cfg.Logging, cmd.ErrOrStderr()).With("component", "cli")
	a.ledger = service.NewLedgerService(cfg.Index, logger, nil)
	a.report, err = service.NewBulkIngestor(a.ledger, 1).IngestFile(cmd.Context(), cfg.Index.DatasetPath)
	return err
}

func newSearchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "search <id>",
		Short: "Look up a transaction by ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tx, ok := a.ledger.Get(service.CanonicalID(args[0]))
			if !ok {
				return fmt.Errorf("transaction %q not found", args[0])
			}
			printTransaction(cmd.OutOrStdout(), tx)
			return nil
		},
	}
}

func newStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print amount statistics over the whole index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.printStats(cmd)
		},
	}
}

func newGroupCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "group <field>",
		Short: "Count and total amounts per value of a field",
		Long: "Count and total amounts per value of a field.\n\nFields: transaction_type, merchant_category, " +
			"location, device_used, sender_account, receiver_account.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			groups, err := a.ledger.Groups(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', tabwriter.AlignRight)
			fmt.Fprintf(tw, "%s\tcount\tsum\tmean\t\n", domain.ParseField(args[0]))
			for _, g := range groups {
				fmt.Fprintf(tw, "%s\t%d\t%.2f\t%.2f\t\n", g.Key, g.Count, g.Sum, g.Mean)
			}
			return tw.Flush()
		},
	}
}

func newFilterCmd(a *app) *cobra.Command {
	var (
		minAmount, maxAmount float64
		field, value, sort   string
	)
	cmd := &cobra.Command{
		Use:   "filter",
		Short: "List transactions matching amount bounds and/or a field value",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			params := service.FilterParams{Field: field, Value: value, Sort: sort}
			if cmd.Flags().Changed("min") {
				params.MinAmount = &minAmount
			}
			if cmd.Flags().Changed("max") {
				params.MaxAmount = &maxAmount
			}

			matches, err := a.ledger.FilterAll(cmd.Context(), params)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, tx := range matches {
				printRow(out, tx)
			}
			fmt.Fprintf(out, "%d matching transactions\n", len(matches))
			return nil
		},
	}
	cmd.Flags().Float64Var(&minAmount, "min", 0, "minimum amount (inclusive)")
	cmd.Flags().Float64Var(&maxAmount, "max", 0, "maximum amount (inclusive)")
	cmd.Flags().StringVar(&field, "field", "", "field to match exactly")
	cmd.Flags().StringVar(&value, "value", "", "value the field must equal")
	cmd.Flags().StringVar(&sort, "sort", "", "order: id, amount_asc, amount_desc, timestamp")
	cmd.MarkFlagsRequiredTogether("field", "value")
	return cmd
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>...",
		Short: "Delete transactions, then report the remaining statistics",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, id := range args {
				if a.ledger.Delete(service.CanonicalID(id)) {
					fmt.Fprintf(out, "deleted %s\n", id)
				} else {
					fmt.Fprintf(out, "not found %s\n", id)
				}
			}
			return a.printStats(cmd)
		},
	}
}

func newVerifyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Check the index invariants after loading",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			shape := a.ledger.Shape()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "records:    %d\n", shape.Records)
			fmt.Fprintf(out, "height:     %d\n", shape.Height)
			fmt.Fprintf(out, "inserted:   %d\n", a.report.Inserted)
			fmt.Fprintf(out, "duplicates: %d\n", a.report.Duplicates)
			fmt.Fprintf(out, "skipped:    %d\n", a.report.Skipped)
			if a.report.Evicted > 0 {
				fmt.Fprintf(out, "evicted:    %d\n", a.report.Evicted)
			}
			if err := a.ledger.Check(); err != nil {
				return err
			}
			fmt.Fprintln(out, "invariants: ok")
			return nil
		},
	}
}

func (a *app) printStats(cmd *cobra.Command) error {
	s, ok, err := a.ledger.Statistics(cmd.Context())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if !ok {
		fmt.Fprintln(out, "index is empty")
		return nil
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "count\t%d\n", s.Count)
	fmt.Fprintf(tw, "sum\t%.2f\n", s.Sum)
	fmt.Fprintf(tw, "mean\t%.2f\n", s.Mean)
	fmt.Fprintf(tw, "std dev\t%.2f\n", s.StdDev)
	fmt.Fprintf(tw, "min\t%.2f\n", s.Min)
	fmt.Fprintf(tw, "max\t%.2f\n", s.Max)
	fmt.Fprintf(tw, "median\t%.2f\n", s.Median)
	fmt.Fprintf(tw, "mode\t%.2f (x%d)\n", s.Mode, s.ModeCount)
	if s.FraudLabeled {
		fmt.Fprintf(tw, "fraud\t%d (%.2f%%)\n", s.FraudCount, s.FraudPercent)
	}
	return tw.Flush()
}

func printTransaction(w io.Writer, tx domain.Transaction) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "id\t%s\n", tx.ID)
	fmt.Fprintf(tw, "timestamp\t%s\n", tx.Timestamp)
	fmt.Fprintf(tw, "sender\t%s\n", tx.SenderAccount)
	fmt.Fprintf(tw, "receiver\t%s\n", tx.ReceiverAccount)
	fmt.Fprintf(tw, "amount\t%.2f\n", tx.Amount)
	fmt.Fprintf(tw, "type\t%s\n", tx.Type)
	fmt.Fprintf(tw, "merchant category\t%s\n", tx.MerchantCategory)
	fmt.Fprintf(tw, "location\t%s\n", tx.Location)
	fmt.Fprintf(tw, "device\t%s\n", tx.DeviceUsed)
	if tx.FraudLabeled {
		fmt.Fprintf(tw, "fraud\t%t\n", tx.IsFraud)
	}
	if tx.SuspectedFraud() {
		fmt.Fprintf(tw, "suspected\tyes\n")
	}
	_ = tw.Flush()
}

func printRow(w io.Writer, tx domain.Transaction) {
	fmt.Fprintf(w, "%-15s %-19s %12.2f %-12s %-15s %s\n", tx.ID, tx.Timestamp, tx.Amount, tx.Type, tx.Location, tx.DeviceUsed)
}
