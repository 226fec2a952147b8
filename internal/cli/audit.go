package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/R3E-Network/hiero_client/internal/audit"
	"github.com/R3E-Network/hiero_client/internal/wire"
)

// auditHistory is the read side of the audit store.
type auditHistory interface {
	Recent(ctx context.Context, transactionID string, limit int) ([]audit.Event, error)
}

func newAuditCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Inspect the request audit store",
	}
	cmd.AddCommand(newAuditRecentCommand(a))
	return cmd
}

func newAuditRecentCommand(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "recent <transaction-id>",
		Short: "List the newest network attempts recorded for a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := wire.ParseTransactionID(args[0])
			if err != nil {
				return err
			}
			ctx := commandContext(cmd)
			var history auditHistory = a.repo
			if a.repo == nil {
				repo, err := audit.Open(ctx, a.cfg.Audit.DSN, "")
				if err != nil {
					return fmt.Errorf("open audit store: %w", err)
				}
				defer repo.Close()
				history = repo
			}
			return a.auditRecent(ctx, cmd.OutOrStdout(), history, id, limit)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of attempts")
	return cmd
}

func (a *app) auditRecent(ctx context.Context, out io.Writer, history auditHistory, id wire.TransactionID, limit int) error {
	events, err := history.Recent(ctx, id.String(), limit)
	if err != nil {
		return err
	}
	if events == nil {
		events = []audit.Event{}
	}

	var b strings.Builder
	for _, ev := range events {
		line := fmt.Sprintf("%s %-7s attempt=%d endpoint=%s code=%s duration=%dms",
			ev.Timestamp.UTC().Format(time.RFC3339Nano), ev.Kind, ev.Attempt, ev.Endpoint, ev.Code, ev.DurationMS)
		if ev.Error != "" {
			line += " error=" + ev.Error
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	if len(events) == 0 {
		b.WriteString("no attempts recorded for " + id.String())
	}
	return a.emit(out, events, b.String())
}
