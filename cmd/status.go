package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	statusadapter "github.com/bnema/smartwallet-cli/internal/adapters/render/status"
	"github.com/bnema/smartwallet-cli/internal/application"
	"github.com/bnema/smartwallet-cli/internal/domain"
	"github.com/spf13/cobra"
)

func newStatusCmd(app *app) *cobra.Command {
	var (
		asJSON  bool
		recent  int
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Connect the smart account and show its state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			if _, err := app.wallets.Current(ctx); err != nil {
				if !errors.Is(err, domain.ErrWalletNotFound) {
					return err
				}
				return writeStatusOutput(cmd, app, application.Status{State: domain.SessionUninitialized}, 0, asJSON)
			}

			net, err := app.network(ctx)
			if err != nil {
				return err
			}
			app.syncAuth(ctx, net.session)

			if timeout <= 0 {
				timeout = app.cfg.Session.AccessorTimeout
			}

			var status application.Status
			load := func(ctx context.Context) error {
				var err error
				status, err = net.status.Status(ctx, timeout, recent)
				return err
			}
			if asJSON {
				err = load(ctx)
			} else {
				err = runWithSpinner(ctx, cmd.ErrOrStderr(), "Connecting smart account...", load)
			}
			if err != nil {
				return err
			}

			return writeStatusOutput(cmd, app, status, net.chainID.Uint64(), asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print status as JSON")
	cmd.Flags().IntVar(&recent, "recent", 5, "Number of recent operations to show")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "How long to wait for the session (default session.accessor_timeout)")

	return cmd
}

func writeStatusOutput(cmd *cobra.Command, app *app, status application.Status, chainID uint64, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(status)
	}

	rendered, err := app.statusRenderer(status, statusadapter.RenderOptions{
		Now:     app.now(),
		ChainID: chainID,
	})
	if err != nil {
		return fmt.Errorf("render status: %w", err)
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
	return err
}
