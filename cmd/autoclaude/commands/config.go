package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/r3e-network/AutoClaude-sub004/internal/config"
	"github.com/r3e-network/AutoClaude-sub004/internal/printer"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect or initialize configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default project config to .autoclaude/config.json",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := filepath.Join(".autoclaude", "config.json")
		if _, err := os.Stat(path); err == nil {
			return printer.Error("Config already exists", path, []string{
				"Edit it in place, or remove it first to regenerate defaults",
			})
		}
		if err := config.Save(config.DefaultConfig(), path); err != nil {
			return err
		}
		printer.Success("Wrote %s\n", path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective merged configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}
