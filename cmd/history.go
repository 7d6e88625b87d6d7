package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/bnema/smartwallet-cli/internal/domain"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
)

type historyJSON struct {
	UserOpHash      string    `json:"user_op_hash"`
	Sender          string    `json:"sender"`
	Status          string    `json:"status"`
	Calls           int       `json:"calls"`
	TransactionHash string    `json:"transaction_hash,omitempty"`
	Note            string    `json:"note,omitempty"`
	SubmittedAt     time.Time `json:"submitted_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func newHistoryCmd(app *app) *cobra.Command {
	var (
		limit   int
		asJSON  bool
		refresh bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List submitted user operations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			if refresh {
				nw, err := app.network(ctx)
				if err != nil {
					return err
				}
				app.syncAuth(ctx, nw.session)

				updated, err := app.payments.Refresh(ctx, limit)
				if err != nil {
					return err
				}
				app.logger.WithField("updated", updated).Debug("history refreshed")
			}

			entries, err := app.payments.History(ctx, limit)
			if err != nil {
				return err
			}

			if asJSON {
				return writeHistoryJSON(cmd, entries)
			}

			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				_, err = fmt.Fprintln(out, "no user operations yet")
				return err
			}
			for _, entry := range entries {
				_, _ = fmt.Fprintf(out, "%s\t%-9s\t%d call(s)\t%s", entry.UserOpHash.Hex(), entry.Status, len(entry.Calls), entry.SubmittedAt.Local().Format(time.DateTime))
				if entry.TransactionHash != (common.Hash{}) {
					_, _ = fmt.Fprintf(out, "\ttx %s", entry.TransactionHash.Hex())
				}
				if entry.Note != "" {
					_, _ = fmt.Fprintf(out, "\t%q", entry.Note)
				}
				_, _ = fmt.Fprintln(out)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum entries to show, 0 for all")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print history as JSON")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "Poll receipts of pending operations first")

	return cmd
}

func writeHistoryJSON(cmd *cobra.Command, entries []domain.HistoryEntry) error {
	rows := make([]historyJSON, 0, len(entries))
	for _, entry := range entries {
		row := historyJSON{
			UserOpHash:  entry.UserOpHash.Hex(),
			Sender:      entry.Sender.Hex(),
			Status:      string(entry.Status),
			Calls:       len(entry.Calls),
			Note:        entry.Note,
			SubmittedAt: entry.SubmittedAt,
			UpdatedAt:   entry.UpdatedAt,
		}
		if entry.TransactionHash != (common.Hash{}) {
			row.TransactionHash = entry.TransactionHash.Hex()
		}
		rows = append(rows, row)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}
