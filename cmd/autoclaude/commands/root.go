package commands

import (
	"github.com/spf13/cobra"
)

var (
	configPath string
)

// rootCmd is the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "autoclaude",
	Short: "AutoClaude - agent-coordinated C# to Rust conversion pipeline",
	Long: `AutoClaude coordinates a pool of specialized agents that convert,
validate, optimize and document C# source as idiomatic Rust.

Tasks are dispatched by priority under a concurrency cap, with
per-file resource locking so concurrent agents never trample each
other's output, and pre/post hooks that gate every conversion.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Called once from main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Path to a project config file (overrides .autoclaude/config.json)")
}
