package cmd

import (
	"fmt"
	"strings"

	"github.com/bnema/smartwallet-cli/internal/application"
	"github.com/bnema/smartwallet-cli/internal/domain"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
)

type sendFlags struct {
	token  string
	wait   bool
	note   string
	dryRun bool
}

func (f *sendFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.token, "token", "", "ERC-20 token address (default native coin)")
	cmd.Flags().BoolVar(&f.wait, "wait", false, "Wait for the user operation receipt")
	cmd.Flags().StringVar(&f.note, "note", "", "Note stored with the history entry")
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "Print the encoded calls without submitting")
}

func (f *sendFlags) parseToken() (*common.Address, error) {
	return parseTokenFlag(f.token)
}

// parseTokenFlag returns nil for the native coin.
func parseTokenFlag(raw string) (*common.Address, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	token, err := domain.ParseAddress(raw)
	if err != nil {
		return nil, fmt.Errorf("token: %w", err)
	}
	return &token, nil
}

func newSendCmd(app *app) *cobra.Command {
	var flags sendFlags

	cmd := &cobra.Command{
		Use:   "send <recipient> <amount>",
		Short: "Send one transfer from the smart account",
		Long:  "Send one transfer. The recipient is an address or a contact name; the amount is in the smallest unit (wei or token base units).",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := flags.parseToken()
			if err != nil {
				return err
			}
			amount, err := domain.ParseAmount(args[1])
			if err != nil {
				return err
			}

			return submitTransfers(cmd, app, flags, []domain.Transfer{{
				Recipient: args[0],
				Amount:    amount,
				Token:     token,
			}})
		},
	}

	flags.register(cmd)

	return cmd
}

func newBatchCmd(app *app) *cobra.Command {
	var flags sendFlags

	cmd := &cobra.Command{
		Use:   "batch <recipient:amount>...",
		Short: "Send several transfers as one user operation",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := flags.parseToken()
			if err != nil {
				return err
			}

			transfers := make([]domain.Transfer, 0, len(args))
			for _, arg := range args {
				transfer, err := parseTransferArg(arg)
				if err != nil {
					return err
				}
				transfer.Token = token
				transfers = append(transfers, transfer)
			}

			return submitTransfers(cmd, app, flags, transfers)
		},
	}

	flags.register(cmd)

	return cmd
}

// parseTransferArg splits "recipient:amount" on the last colon.
func parseTransferArg(arg string) (domain.Transfer, error) {
	idx := strings.LastIndex(arg, ":")
	if idx <= 0 || idx == len(arg)-1 {
		return domain.Transfer{}, fmt.Errorf("invalid transfer %q: want recipient:amount", arg)
	}

	amount, err := domain.ParseAmount(arg[idx+1:])
	if err != nil {
		return domain.Transfer{}, err
	}

	return domain.Transfer{Recipient: strings.TrimSpace(arg[:idx]), Amount: amount}, nil
}

func submitTransfers(cmd *cobra.Command, app *app, flags sendFlags, transfers []domain.Transfer) error {
	ctx := cmd.Context()

	// Resolve and encode before touching the network so bad input fails fast.
	calls, err := app.payments.BuildCalls(ctx, transfers)
	if err != nil {
		return err
	}
	if flags.dryRun {
		return writeCalls(cmd.OutOrStdout(), calls)
	}

	net, err := app.network(ctx)
	if err != nil {
		return err
	}
	app.syncAuth(ctx, net.session)

	result, err := app.payments.Send(ctx, transfers, application.SendOptions{
		Wait: flags.wait,
		Note: flags.note,
	})
	if err != nil {
		if result.UserOpHash != (common.Hash{}) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "user operation: %s\n", result.UserOpHash.Hex())
		}
		return err
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "user operation: %s\n", result.UserOpHash.Hex())
	_, _ = fmt.Fprintf(out, "sender:         %s\n", result.Sender.Hex())
	_, _ = fmt.Fprintf(out, "calls:          %d\n", len(result.Calls))
	if result.Receipt == nil {
		return nil
	}

	status := domain.OperationStatusSucceeded
	if !result.Receipt.Success {
		status = domain.OperationStatusFailed
	}
	_, _ = fmt.Fprintf(out, "status:         %s\n", status)
	_, err = fmt.Fprintf(out, "transaction:    %s\n", result.Receipt.TransactionHash.Hex())
	return err
}
