package commands

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/r3e-network/AutoClaude-sub004/internal/hooks"
	"github.com/r3e-network/AutoClaude-sub004/internal/persistence"
)

var hooksCmd = &cobra.Command{
	Use:   "hooks",
	Short: "List the registered hooks and their configuration",
	RunE:  runHooks,
}

func init() {
	rootCmd.AddCommand(hooksCmd)
}

func runHooks(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	table := tablewriter.NewTable(os.Stdout)
	table.Header("ID", "Tier", "Operations", "Blocking", "Enabled", "Timeout")
	for _, h := range hooks.DefaultHooks(persistence.NopStore{}) {
		enabled := h.Enabled
		timeout := h.Timeout
		if hc, ok := cfg.Hooks[h.ID]; ok {
			enabled = hc.Enabled
			if hc.TimeoutMs > 0 {
				timeout = time.Duration(hc.TimeoutMs) * time.Millisecond
			}
		}
		if err := table.Append([]string{
			h.ID,
			h.Tier.String(),
			strings.Join(h.Operations, ", "),
			fmt.Sprintf("%t", h.Blocking),
			fmt.Sprintf("%t", enabled),
			timeout.String(),
		}); err != nil {
			return err
		}
	}
	return table.Render()
}
