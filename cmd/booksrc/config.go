package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change reader preferences",
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.openConfigStore()
			if err != nil {
				return err
			}
			defer store.Close()

			prefs, err := store.GetConfig()
			if err != nil {
				return fmt.Errorf("failed to get config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "database:          %s\n", a.cfg.Storage.DSN)
			fmt.Fprintf(out, "server addr:       %s\n", a.cfg.Server.Addr)
			fmt.Fprintf(out, "cache max entries: %d\n", a.cfg.Cache.MaxEntries)
			fmt.Fprintln(out)
			fmt.Fprintf(out, "paragraph_indent:  %q\n", prefs.ParagraphIndent)
			fmt.Fprintf(out, "chinese_converter: %s\n", prefs.ChineseConverter)
			fmt.Fprintf(out, "use_replace:       %t\n", prefs.UseReplace)
			fmt.Fprintf(out, "resegment:         %t\n", prefs.ReSegment)
			fmt.Fprintf(out, "include_title:     %t\n", prefs.IncludeTitle)
			return nil
		},
	}

	setCmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Store a reader preference",
		Long: `Store a reader preference. Keys: paragraph_indent, chinese_converter
(none, t2s, s2t), use_replace, resegment, include_title.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openConfigStore()
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Set(args[0], args[1]); err != nil {
				return fmt.Errorf("failed to set %s: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Set %s\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(showCmd, setCmd)
	return cmd
}
