package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"sentinel-hq/aegis/pkg/cli"
	"sentinel-hq/aegis/pkg/policy/engine"
)

var evalFlags struct {
	file   string
	format string
}

var evalCmd = &cobra.Command{
	Use:   "eval [context-json]",
	Short: "Evaluate one request context",
	Long: `Evaluate one request context against the configured rule set.

The context is a JSON object of request attributes. It can be passed as an
argument, read from a file, or piped on stdin.

Examples:
  # Inline context
  aegis eval '{"request.path": "/admin/users", "user.role": "customer"}'

  # From a file
  aegis eval --file context.json

  # From stdin
  echo '{"request.ip": "10.0.0.1"}' | aegis eval

The command exits 0 when the request is allowed and 3 when it is denied, so
it can gate scripted workflows.`,
	Args: cobra.MaximumNArgs(1),
	RunE: evalContext,
}

func init() {
	rootCmd.AddCommand(evalCmd)

	evalCmd.Flags().StringVarP(&evalFlags.file, "file", "f", "", "read the context from a JSON file")
	evalCmd.Flags().StringVar(&evalFlags.format, "format", "json", "output format: text, json")
}

func evalContext(cmd *cobra.Command, args []string) error {
	raw, err := readEvalInput(args)
	if err != nil {
		return cli.NewCommandError("eval", err)
	}

	var reqCtx engine.Context
	if err := json.Unmarshal(raw, &reqCtx); err != nil {
		return cli.NewCommandError("eval", fmt.Errorf("invalid context JSON: %w", err))
	}

	ctx := cli.SetupSignalHandler()
	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	decision, err := a.evaluator.Evaluate(ctx, reqCtx)
	if err != nil {
		return cli.NewCommandError("eval", err)
	}

	formatter := cli.NewFormatter(cli.OutputFormat(evalFlags.format))
	if evalFlags.format == "text" {
		printDecision(decision)
	} else if err := formatter.FormatTo(os.Stdout, decision); err != nil {
		return cli.NewCommandError("eval", err)
	}

	if decision.Deny() {
		os.Exit(3)
	}
	return nil
}

func readEvalInput(args []string) ([]byte, error) {
	switch {
	case len(args) == 1:
		return []byte(args[0]), nil
	case evalFlags.file != "":
		return os.ReadFile(evalFlags.file)
	default:
		return io.ReadAll(os.Stdin)
	}
}

func printDecision(d *engine.Decision) {
	outcome := "ALLOWED"
	if !d.Allowed {
		outcome = "DENIED"
	}
	fmt.Printf("%s  risk=%.2f  audit_seq=%d  (%s)\n", outcome, d.RiskScore, d.AuditSeq, d.EvaluationTime)
	for _, m := range d.MatchedRules {
		fmt.Printf("  %-24s %-10s %s\n", m.RuleID, m.Action, m.Reason)
	}
	if d.Degraded {
		fmt.Println("  (degraded: some rules were skipped or errored)")
	}
}
