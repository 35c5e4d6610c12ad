package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/pevans/booksrc/replace"
	"github.com/spf13/cobra"
)

func newReplaceCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replace",
		Short: "Manage replace rules applied during rendering",
	}

	var rule replace.Rule
	var literal, titleOnly, both bool
	addCmd := &cobra.Command{
		Use:   "add <pattern> [replacement]",
		Short: "Add a replace rule",
		Long: `Add a replace rule. Patterns are regular expressions unless --literal
is given. Rules apply to chapter content unless --title or --both is given.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rule.Pattern = args[0]
			if len(args) > 1 {
				rule.Replacement = args[1]
			}
			rule.IsRegex = !literal
			rule.ScopeTitle = titleOnly || both
			rule.ScopeContent = !titleOnly || both
			rule.Enabled = true

			store, err := a.openRuleStore()
			if err != nil {
				return err
			}
			defer store.Close()

			created, err := store.CreateRule(rule)
			if err != nil {
				return fmt.Errorf("failed to add replace rule: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added rule %s\n", created.ID)
			return nil
		},
	}
	addFlags := addCmd.Flags()
	addFlags.StringVar(&rule.Name, "name", "", "Rule name (default: the pattern)")
	addFlags.StringVar(&rule.Group, "group", "", "Rule group")
	addFlags.StringVar(&rule.Scope, "scope", "", "Book names or source URLs the rule is limited to, comma separated")
	addFlags.IntVar(&rule.Order, "order", 0, "Application order, lowest first")
	addFlags.BoolVar(&literal, "literal", false, "Match the pattern literally")
	addFlags.BoolVar(&titleOnly, "title", false, "Apply to chapter titles only")
	addFlags.BoolVar(&both, "both", false, "Apply to chapter titles and content")

	var asJSON bool
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List replace rules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.openRuleStore()
			if err != nil {
				return err
			}
			defer store.Close()

			rules, err := store.ListRules()
			if err != nil {
				return fmt.Errorf("failed to list replace rules: %w", err)
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return printJSON(out, rules)
			}
			if len(rules) == 0 {
				fmt.Fprintln(out, "No replace rules configured.")
				return nil
			}

			fmt.Fprintf(out, "%-36s %-5s %-8s %-20s %s\n", "ID", "ORDER", "ENABLED", "NAME", "PATTERN")
			printRule(out, 100)
			for _, r := range rules {
				fmt.Fprintf(out, "%-36s %-5d %-8s %-20s %s\n",
					r.ID, r.Order, yesNo(r.Enabled), truncate(r.Name, 20), r.Pattern)
			}
			return nil
		},
	}
	listCmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")

	cmd.AddCommand(
		addCmd,
		listCmd,
		ruleIDCommand(a, "delete", "Delete a replace rule", "Deleted", func(s *replace.Store, id uuid.UUID) error {
			return s.DeleteRule(id)
		}),
		ruleIDCommand(a, "enable", "Enable a replace rule", "Enabled", func(s *replace.Store, id uuid.UUID) error {
			return s.SetEnabled(id, true)
		}),
		ruleIDCommand(a, "disable", "Disable a replace rule", "Disabled", func(s *replace.Store, id uuid.UUID) error {
			return s.SetEnabled(id, false)
		}),
	)
	return cmd
}

// ruleIDCommand builds a command that acts on one rule by ID.
func ruleIDCommand(a *app, use, short, done string, fn func(*replace.Store, uuid.UUID) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <rule-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid rule ID: %w", err)
			}

			store, err := a.openRuleStore()
			if err != nil {
				return err
			}
			defer store.Close()

			if err := fn(store, id); err != nil {
				return fmt.Errorf("failed to %s replace rule: %w", use, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s rule %s\n", done, id)
			return nil
		},
	}
}
