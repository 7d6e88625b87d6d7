package cmd

import "github.com/spf13/cobra"

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	var opts wireOptions
	app := &app{}

	rootCmd := &cobra.Command{
		Use:           "sw",
		Short:         "Smart wallet CLI (sw): pay from an ERC-4337 smart account",
		Long:          "sw manages an owner key, derives its ERC-4337 smart account and submits user operations through a bundler for transfers, batches and recurring payments.",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Annotations[annotationOffline] == "true" {
				return nil
			}

			opts.stderr = cmd.ErrOrStderr()
			return app.wire(opts)
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			if app.cfg == nil {
				return nil
			}
			return app.Close()
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.config.ConfigFile, "config", "", "Config file (default ~/.smartwallet/config.toml)")
	rootCmd.PersistentFlags().StringVar(&opts.config.EnvFile, "env-file", "", "Dotenv file loaded before the environment (default .env)")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(
		newVersionCmd(),
		newWalletCmd(app),
		newStatusCmd(app),
		newSendCmd(app),
		newBatchCmd(app),
		newContactCmd(app),
		newRecurringCmd(app),
		newHistoryCmd(app),
		newDecodeCmd(),
	)

	return rootCmd
}

// annotationOffline marks commands that need neither config nor storage.
const annotationOffline = "sw/offline"
