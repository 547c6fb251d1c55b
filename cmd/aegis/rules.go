package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"sentinel-hq/aegis/pkg/cli"
	"sentinel-hq/aegis/pkg/policy/rule"
)

var rulesFlags struct {
	file   string
	format string
}

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Manage the rule set",
	Long: `Manage the persisted rule set.

Rules are loaded from the configured YAML file and/or SQLite table;
mutations are written back to both so the running engine picks them up on
the next reload.

Subcommands:
  list    - List rules in evaluation order with their dependencies
  add     - Register rules from a YAML file
  disable - Disable a rule without deleting it
  enable  - Re-enable a disabled rule

Examples:
  # Show the active evaluation order
  aegis rules list

  # Register additional rules
  aegis rules add --file new-rules.yaml

  # Take a rule out of evaluation (kept for audit traceability)
  aegis rules disable rate-limit-api`,
}

var rulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List rules in evaluation order",
	RunE:  listRules,
}

var rulesAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Register rules from a YAML file",
	RunE:  addRules,
}

var rulesDisableCmd = &cobra.Command{
	Use:   "disable <rule-id>",
	Short: "Disable a rule without deleting it",
	Args:  cobra.ExactArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return setRuleStatus(args[0], false) },
}

var rulesEnableCmd = &cobra.Command{
	Use:   "enable <rule-id>",
	Short: "Re-enable a disabled rule",
	Args:  cobra.ExactArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return setRuleStatus(args[0], true) },
}

func init() {
	rootCmd.AddCommand(rulesCmd)
	rulesCmd.AddCommand(rulesListCmd, rulesAddCmd, rulesDisableCmd, rulesEnableCmd)

	rulesListCmd.Flags().StringVar(&rulesFlags.format, "format", "text", "output format: text, json")
	rulesAddCmd.Flags().StringVarP(&rulesFlags.file, "file", "f", "", "YAML file with rules to register (required)")
	rulesAddCmd.MarkFlagRequired("file")
}

func listRules(cmd *cobra.Command, args []string) error {
	ctx := cli.SetupSignalHandler()
	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	ordered := a.store.ActiveOrdered()

	if rulesFlags.format == "json" {
		return cli.NewFormatter(cli.FormatJSON).FormatTo(os.Stdout, a.store.List())
	}

	fmt.Printf("%d active rules (store version %d)\n\n", len(ordered), a.store.Version())
	for i, r := range ordered {
		deps := ""
		if len(r.DependsOn) > 0 {
			deps = " <- " + strings.Join(r.DependsOn, ", ")
		}
		fmt.Printf("%2d. %-24s prio=%-4d v%-3d %s%s\n", i+1, r.ID, r.Priority, r.Version, r.Type, deps)
	}
	for _, r := range a.store.List() {
		if !r.Active() {
			fmt.Printf("    %-24s (disabled)\n", r.ID)
		}
	}
	return nil
}

func addRules(cmd *cobra.Command, args []string) error {
	ctx := cli.SetupSignalHandler()
	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	rules, err := rule.LoadFile(rulesFlags.file)
	if err != nil {
		return cli.NewCommandError("rules add", err)
	}
	for _, r := range rules {
		if err := a.store.Register(r); err != nil {
			return cli.NewCommandError("rules add", err)
		}
	}

	if err := persistRules(a); err != nil {
		return err
	}
	fmt.Printf("registered %d rules\n", len(rules))
	return nil
}

func setRuleStatus(id string, enable bool) error {
	ctx := cli.SetupSignalHandler()
	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	verb := "disabled"
	if enable {
		err = a.store.Enable(id)
		verb = "enabled"
	} else {
		err = a.store.Disable(id)
	}
	if err != nil {
		return cli.NewCommandError("rules "+verb, err)
	}

	if err := persistRules(a); err != nil {
		return err
	}
	fmt.Printf("rule %s %s\n", id, verb)
	return nil
}

// persistRules writes the store back to the configured file and table.
func persistRules(a *app) error {
	ctx := cli.SetupSignalHandler()
	if a.cfg.Rules.FilePath != "" {
		if err := rule.SaveFile(a.store, a.cfg.Rules.FilePath); err != nil {
			return cli.NewCommandError("rules", err)
		}
	}
	if a.ruleDB != nil {
		if err := a.ruleDB.Save(ctx, a.store); err != nil {
			return cli.NewCommandError("rules", err)
		}
	}
	return nil
}
