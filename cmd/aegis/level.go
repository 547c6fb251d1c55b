package main

import (
	"fmt"
	"os/user"

	"github.com/spf13/cobra"

	"sentinel-hq/aegis/pkg/cli"
	"sentinel-hq/aegis/pkg/policy/level"
)

var levelFlags struct {
	actor string
}

var levelCmd = &cobra.Command{
	Use:   "level",
	Short: "Get or set the security level",
	Long: `Get or set the engine-wide security level.

Levels:
  MONITOR  - evaluate everything, enforce nothing (blocks downgrade to log)
  STANDARD - normal enforcement
  HIGH     - enforcement with a tightened risk threshold
  MAXIMUM  - strictest enforcement

Every transition is recorded on the audit chain with the requesting actor;
the chain is also what makes the level survive restarts.

Examples:
  aegis level get
  aegis level set MONITOR --actor oncall`,
}

var levelGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Show the current security level",
	RunE:  getLevel,
}

var levelSetCmd = &cobra.Command{
	Use:   "set <level>",
	Short: "Transition to a new security level",
	Args:  cobra.ExactArgs(1),
	RunE:  setLevel,
}

func init() {
	rootCmd.AddCommand(levelCmd)
	levelCmd.AddCommand(levelGetCmd, levelSetCmd)

	levelSetCmd.Flags().StringVar(&levelFlags.actor, "actor", "", "identity recorded for the transition (default: OS user)")
}

func getLevel(cmd *cobra.Command, args []string) error {
	ctx := cli.SetupSignalHandler()
	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	current := a.levels.Level()
	fmt.Printf("%s (blocking enforced: %v)\n", current.String(), current.BlockingEnforced())
	return nil
}

func setLevel(cmd *cobra.Command, args []string) error {
	target, err := level.Parse(args[0])
	if err != nil {
		return cli.NewCommandError("level set", err)
	}

	actor := levelFlags.actor
	if actor == "" {
		if u, err := user.Current(); err == nil {
			actor = u.Username
		} else {
			actor = "unknown"
		}
	}

	ctx := cli.SetupSignalHandler()
	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	from := a.levels.Level()
	if err := a.levels.SetLevel(ctx, target, actor); err != nil {
		return cli.NewCommandError("level set", err)
	}

	fmt.Printf("%s -> %s (actor %s, audit seq %d)\n", from.String(), target.String(), actor, a.auditLog.Seq())
	return nil
}
