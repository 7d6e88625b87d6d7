package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newContactCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "contact",
		Short: "Manage named recipients",
	}

	cmd.AddCommand(
		newContactAddCmd(app),
		newContactListCmd(app),
		newContactRemoveCmd(app),
	)

	return cmd
}

func newContactAddCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "add <name> <address>",
		Short: "Save a contact",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			contact, err := app.contacts.Add(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "added %s\t%s\n", contact.Name, contact.Address.Hex())
			return err
		},
	}
}

type contactJSON struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

func newContactListCmd(app *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List contacts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			contacts, err := app.contacts.List(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				rows := make([]contactJSON, 0, len(contacts))
				for _, contact := range contacts {
					rows = append(rows, contactJSON{Name: contact.Name, Address: contact.Address.Hex()})
				}
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(rows)
			}

			for _, contact := range contacts {
				_, _ = fmt.Fprintf(out, "%s\t%s\n", contact.Name, contact.Address.Hex())
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print contacts as JSON")

	return cmd
}

func newContactRemoveCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <name>",
		Aliases: []string{"rm"},
		Short:   "Delete a contact",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.contacts.Remove(cmd.Context(), args[0]); err != nil {
				return err
			}

			_, err := fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", args[0])
			return err
		},
	}
}
