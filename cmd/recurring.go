package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bnema/smartwallet-cli/internal/application"
	"github.com/bnema/smartwallet-cli/internal/domain"
	"github.com/spf13/cobra"
)

func newRecurringCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recurring",
		Short: "Schedule repeating payments",
	}

	cmd.AddCommand(
		newRecurringAddCmd(app),
		newRecurringListCmd(app),
		newRecurringCancelCmd(app),
		newRecurringRunCmd(app),
	)

	return cmd
}

func newRecurringAddCmd(app *app) *cobra.Command {
	var (
		tokenRaw string
		to       string
		amount   string
		schedule string
	)

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a payment on a cron schedule",
		Example: `  sw recurring add rent --to landlord --amount 1000000000000000000 --schedule "0 9 1 * *"
  sw recurring add coffee --to 0x5FbDB2315678afecb367f032d93F642f64180aa3 --amount 5000000 --token 0x036CbD53842c5426634e7929541eC2318f3dCF7e --schedule @weekly`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := parseTokenFlag(tokenRaw)
			if err != nil {
				return err
			}
			value, err := domain.ParseAmount(amount)
			if err != nil {
				return err
			}

			payment, err := app.recurrer.Create(cmd.Context(), application.CreateRecurringCommand{
				Name:      args[0],
				Recipient: to,
				Amount:    value,
				Token:     token,
				Schedule:  schedule,
			})
			if err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "scheduled %s (%s), next run %s\n",
				payment.Name, payment.ID, payment.NextRunAt.Format(time.RFC3339))
			return err
		},
	}

	cmd.Flags().StringVar(&to, "to", "", "Recipient address or contact name")
	cmd.Flags().StringVar(&amount, "amount", "", "Amount in the smallest unit")
	cmd.Flags().StringVar(&schedule, "schedule", "", "Five-field cron expression or descriptor such as @daily")
	cmd.Flags().StringVar(&tokenRaw, "token", "", "ERC-20 token address (default native coin)")
	_ = cmd.MarkFlagRequired("to")
	_ = cmd.MarkFlagRequired("amount")
	_ = cmd.MarkFlagRequired("schedule")

	return cmd
}

func newRecurringListCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List recurring payments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			payments, err := app.recurrer.List(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(payments) == 0 {
				_, err = fmt.Fprintln(out, "no recurring payments")
				return err
			}

			for _, payment := range payments {
				next := "cancelled"
				if payment.Active {
					next = payment.NextRunAt.Format(time.RFC3339)
				}
				asset := "native"
				if payment.Token != nil {
					asset = payment.Token.Hex()
				}
				_, _ = fmt.Fprintf(out, "%s\t%s\t%s %s to %s\t%q\t%s\n",
					payment.ID, payment.Name, payment.Amount.String(), asset, payment.Recipient, payment.Schedule, next)
				if payment.LastError != "" {
					_, _ = fmt.Fprintf(out, "\tlast error: %s\n", payment.LastError)
				}
			}
			return nil
		},
	}
}

func newRecurringCancelCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <id>",
		Short: "Stop a recurring payment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.recurrer.Cancel(cmd.Context(), domain.RecurringID(args[0])); err != nil {
				return err
			}

			_, err := fmt.Fprintf(cmd.OutOrStdout(), "cancelled %s\n", args[0])
			return err
		},
	}
}

func newRecurringRunCmd(app *app) *cobra.Command {
	var (
		interval      time.Duration
		metricsListen string
		once          bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Submit due payments until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			nw, err := app.network(ctx)
			if err != nil {
				return err
			}
			app.syncAuth(ctx, nw.session)

			if once {
				report, err := app.recurrer.RunDue(ctx)
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "due %d, submitted %d, failed %d\n", report.Due, report.Succeeded, report.Failed)
				return err
			}

			if metricsListen != "" {
				shutdown, err := serveMetrics(ctx, app, metricsListen)
				if err != nil {
					return err
				}
				defer shutdown()
			}

			return app.recurrer.Run(ctx, interval, func(ctx context.Context) {
				app.syncAuth(ctx, nw.session)
				nw.session.HandleFocus(ctx)
			})
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", time.Minute, "How often to check for due payments")
	cmd.Flags().StringVar(&metricsListen, "metrics-listen", "", "Serve Prometheus metrics on this address, e.g. 127.0.0.1:9464")
	cmd.Flags().BoolVar(&once, "once", false, "Run due payments once and exit")

	return cmd
}

func serveMetrics(ctx context.Context, app *app, addr string) (func(), error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen metrics: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", app.metrics.Handler())
	server := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.logger.WithError(err).Error("metrics server")
		}
	}()
	app.logger.WithField("addr", listener.Addr().String()).Info("serving metrics")

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}, nil
}
