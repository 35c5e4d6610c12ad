package main

import (
	"fmt"
	"strings"

	"github.com/pevans/booksrc/migrate"
	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Upgrade legacy rules and URL templates",
		Long: `Upgrade a single legacy rule or URL template to the current syntax.

The value is taken from the argument, or read from stdin when omitted.`,
	}

	cmd.AddCommand(
		migrateSubcommand("rule", "Upgrade a legacy extraction rule", migrate.Rule),
		migrateSubcommand("url", "Upgrade a legacy URL template", migrate.URL),
		migrateSubcommand("urls", "Upgrade a legacy list of URL templates", migrate.URLs),
	)
	return cmd
}

func migrateSubcommand(use, short string, fn func(string) string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " [value]",
		Short: short,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			value := ""
			if len(args) > 0 {
				value = args[0]
			} else {
				data, err := readInput(cmd, "")
				if err != nil {
					return err
				}
				value = strings.TrimRight(string(data), "\r\n")
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), fn(value))
			return err
		},
	}
}
