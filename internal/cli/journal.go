package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/rustyeddy/straddle/journal"
	"github.com/spf13/cobra"
)

func newJournalCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Query the trade log",
		Long: `Query and display trade log entries in Org format.

Subcommands:
  list   - List every entry
  order  - Show the entry for a broker order id
  today  - List entries recorded today
  day    - List entries recorded on a specific day

Examples:
  trader journal list
  trader journal order <order-id>
  trader journal today
  trader journal day 2024-01-15`,
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List every trade log entry",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.withJournal(func(s journal.Store) error {
					es, err := s.Entries(cmd.Context())
					if err != nil {
						return fmt.Errorf("read trade log: %w", err)
					}
					fmt.Fprintln(cmd.OutOrStdout(), journal.FormatEntriesOrg(es))
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "order <order-id>",
			Short: "Show the entry for a broker order id",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.withJournal(func(s journal.Store) error {
					e, err := findOrder(cmd.Context(), s, args[0])
					if err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), journal.FormatEntryOrg(e))
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "today",
			Short: "List entries recorded today",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				loc := time.Local
				return a.printDay(cmd, loc, time.Now().In(loc).Format("2006-01-02"))
			},
		},
		&cobra.Command{
			Use:   "day <YYYY-MM-DD>",
			Short: "List entries recorded on a specific day",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.printDay(cmd, time.Local, args[0])
			},
		},
	)
	return cmd
}

func (a *app) withJournal(fn func(journal.Store) error) error {
	s, err := journal.OpenReadOnly(a.cfg.Journal)
	if err != nil {
		return fmt.Errorf("open trade log: %w", err)
	}
	defer s.Close()
	return fn(s)
}

// findOrder uses the indexed lookup when the store has one.
func findOrder(ctx context.Context, s journal.Store, orderID string) (journal.Entry, error) {
	if db, ok := s.(*journal.SQLiteStore); ok {
		return db.GetByOrderID(ctx, orderID)
	}
	es, err := s.Entries(ctx)
	if err != nil {
		return journal.Entry{}, fmt.Errorf("read trade log: %w", err)
	}
	for _, e := range es {
		if e.OrderID == orderID {
			return e, nil
		}
	}
	return journal.Entry{}, fmt.Errorf("order %q not found", orderID)
}

func (a *app) printDay(cmd *cobra.Command, loc *time.Location, day string) error {
	start, end, err := dayBounds(loc, day)
	if err != nil {
		return fmt.Errorf("date: %w", err)
	}

	return a.withJournal(func(s journal.Store) error {
		es, err := journal.Between(cmd.Context(), s, start, end)
		if err != nil {
			return fmt.Errorf("query trade log: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), journal.FormatEntriesOrg(es))
		return nil
	})
}

func dayBounds(loc *time.Location, day string) (time.Time, time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", day, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	end := start.AddDate(0, 0, 1)
	return start, end, nil
}
