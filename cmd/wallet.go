package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	accountadapter "github.com/bnema/smartwallet-cli/internal/adapters/account"
	"github.com/bnema/smartwallet-cli/internal/domain"
	"github.com/spf13/cobra"
)

func newWalletCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wallet",
		Short: "Manage the owner key",
	}

	cmd.AddCommand(
		newWalletImportCmd(app),
		newWalletCreateCmd(app),
		newWalletAddressCmd(app),
		newWalletLogoutCmd(app),
	)

	return cmd
}

func newWalletImportCmd(app *app) *cobra.Command {
	var keyFile string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a hex private key from stdin or --key-file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rawKey, err := readKey(cmd.InOrStdin(), keyFile)
			if err != nil {
				return err
			}

			profile, err := app.wallets.Import(cmd.Context(), rawKey)
			if err != nil {
				return fmt.Errorf("import wallet: %w", err)
			}

			return writeWalletProfile(cmd, "imported", profile)
		},
	}

	cmd.Flags().StringVar(&keyFile, "key-file", "", "File holding the hex private key")

	return cmd
}

func newWalletCreateCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "create",
		Short: "Generate a new owner key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			profile, err := app.wallets.Create(cmd.Context())
			if err != nil {
				return fmt.Errorf("create wallet: %w", err)
			}

			return writeWalletProfile(cmd, "created", profile)
		},
	}
}

func newWalletAddressCmd(app *app) *cobra.Command {
	var withAccount bool

	cmd := &cobra.Command{
		Use:   "address",
		Short: "Print the owner address",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			profile, err := app.wallets.Current(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if !withAccount {
				_, err = fmt.Fprintln(out, profile.Owner.Hex())
				return err
			}

			net, err := app.network(cmd.Context())
			if err != nil {
				return err
			}
			account, err := accountadapter.DeriveAddress(cmd.Context(), net.chain, app.cfg.Contracts.Factory, profile.Owner)
			if err != nil {
				return fmt.Errorf("derive account address: %w", err)
			}

			_, err = fmt.Fprintf(out, "owner:   %s\naccount: %s\n", profile.Owner.Hex(), account.Hex())
			return err
		},
	}

	cmd.Flags().BoolVar(&withAccount, "account", false, "Also derive the smart account address (needs the network)")

	return cmd
}

func newWalletLogoutCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the owner key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := app.wallets.Logout(cmd.Context()); err != nil {
				if errors.Is(err, domain.ErrWalletNotFound) {
					_, err = fmt.Fprintln(cmd.OutOrStdout(), "no wallet configured")
					return err
				}
				return fmt.Errorf("logout: %w", err)
			}

			_, err := fmt.Fprintln(cmd.OutOrStdout(), "wallet removed")
			return err
		},
	}
}

func writeWalletProfile(cmd *cobra.Command, verb string, profile domain.WalletProfile) error {
	_, err := fmt.Fprintf(cmd.OutOrStdout(), "wallet %s: %s\n", verb, profile.Owner.Hex())
	return err
}

func readKey(stdin io.Reader, path string) (string, error) {
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read key file: %w", err)
		}
		return strings.TrimSpace(string(raw)), nil
	}

	line, err := bufio.NewReader(stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read key: %w", err)
	}
	key := strings.TrimSpace(line)
	if key == "" {
		return "", errors.New("no key given: pipe it on stdin or use --key-file")
	}
	return key, nil
}
