package main

import (
	"fmt"

	"github.com/pevans/booksrc/sources"
	"github.com/spf13/cobra"
)

func newImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import [file]",
		Short: "Import book sources from a JSON file or stdin",
		Long: `Import one book source document or an array of them.

Legacy documents have their rules and URL templates upgraded on the way in.
Documents without a bookSourceUrl are reported and skipped.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) > 0 {
				name = args[0]
			}
			data, err := readInput(cmd, name)
			if err != nil {
				return err
			}

			store, err := a.openSourceStore()
			if err != nil {
				return err
			}
			defer store.Close()

			result, err := store.Import(data)
			if err != nil {
				return fmt.Errorf("failed to import book sources: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Imported %d source(s)\n", len(result.Imported))
			for _, rejected := range result.Rejected {
				fmt.Fprintf(out, "Skipped document %d: %s\n", rejected.Index, rejected.Reason)
			}
			return nil
		},
	}
}

func newSourcesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sources",
		Short: "Manage imported book sources",
	}

	var group string
	var enabledOnly, asJSON bool
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List book sources",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.openSourceStore()
			if err != nil {
				return err
			}
			defer store.Close()

			filter := sources.SourceFilter{}
			if group != "" {
				filter.Group = &group
			}
			if enabledOnly {
				filter.Enabled = &enabledOnly
			}

			list, err := store.ListSources(filter)
			if err != nil {
				return fmt.Errorf("failed to list book sources: %w", err)
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return printJSON(out, list)
			}
			if len(list) == 0 {
				fmt.Fprintln(out, "No sources configured.")
				return nil
			}

			fmt.Fprintf(out, "%-30s %-12s %-8s %s\n", "NAME", "GROUP", "ENABLED", "URL")
			printRule(out, 90)
			for _, s := range list {
				fmt.Fprintf(out, "%-30s %-12s %-8s %s\n",
					truncate(s.BookSourceName, 30),
					truncate(s.BookSourceGroup, 12),
					yesNo(s.Enabled),
					s.BookSourceURL,
				)
			}
			return nil
		},
	}
	listCmd.Flags().StringVar(&group, "group", "", "Only sources in this group")
	listCmd.Flags().BoolVar(&enabledOnly, "enabled", false, "Only enabled sources")
	listCmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")

	showCmd := &cobra.Command{
		Use:   "show <source-url>",
		Short: "Print a book source as normalized JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openSourceStore()
			if err != nil {
				return err
			}
			defer store.Close()

			source, err := store.GetSource(args[0])
			if err != nil {
				return fmt.Errorf("failed to get book source: %w", err)
			}
			return printJSON(cmd.OutOrStdout(), source.BookSource)
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <source-url>",
		Short: "Delete a book source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openSourceStore()
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.DeleteSource(args[0]); err != nil {
				return fmt.Errorf("failed to delete book source: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(listCmd, showCmd, deleteCmd)
	return cmd
}
