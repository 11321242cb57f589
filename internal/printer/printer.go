// Package printer centralizes colored terminal output for the CLI.
package printer

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/r3e-network/AutoClaude-sub004/internal/agent"
	"github.com/r3e-network/AutoClaude-sub004/internal/scheduler"
)

func init() {
	// Force color output even when not connected to a TTY.
	// Users can disable with the NO_COLOR environment variable.
	if os.Getenv("NO_COLOR") == "" {
		color.NoColor = false
	}
}

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed, color.Bold)
	cyan   = color.New(color.FgCyan)
)

// Success prints a success message in green with a checkmark prefix.
func Success(format string, a ...any) {
	msg := fmt.Sprintf(format, a...)
	if !strings.HasPrefix(msg, "✓") {
		green.Printf("✓ %s", msg)
	} else {
		green.Print(msg)
	}
}

// Info prints an informational message in the default color.
func Info(format string, a ...any) {
	fmt.Printf(format, a...)
}

// Warning prints a warning message in yellow.
func Warning(format string, a ...any) {
	yellow.Printf("! %s", fmt.Sprintf(format, a...))
}

// Step prints a step message with emphasis.
func Step(format string, a ...any) {
	cyan.Printf("→ %s", fmt.Sprintf(format, a...))
}

// Error prints a formatted error with optional suggestions to stderr
// and returns a plain error carrying only the title, for Cobra.
func Error(title string, explanation string, suggestions []string) error {
	red.Fprintf(os.Stderr, "%s\n\n", title)
	if explanation != "" {
		fmt.Fprintf(os.Stderr, "%s\n", explanation)
	}
	if len(suggestions) > 0 {
		fmt.Fprintf(os.Stderr, "\n")
		for _, s := range suggestions {
			fmt.Fprintf(os.Stderr, "  - %s\n", s)
		}
	}
	return fmt.Errorf("%s", title)
}

// TaskTable renders tasks as a table.
func TaskTable(w io.Writer, tasks []*scheduler.Task) error {
	table := tablewriter.NewTable(w)
	table.Header("ID", "Type", "Priority", "Status", "Agent", "Retries", "Error")
	for _, t := range tasks {
		if err := table.Append([]string{
			t.ID,
			string(t.Type),
			fmt.Sprintf("%d", t.Priority),
			t.Status.String(),
			t.AssignedAgent,
			fmt.Sprintf("%d/%d", t.RetryCount, t.MaxRetries),
			t.Error,
		}); err != nil {
			return err
		}
	}
	return table.Render()
}

// AgentTable renders the agent pool as a table.
func AgentTable(w io.Writer, infos []agent.Info) error {
	table := tablewriter.NewTable(w)
	table.Header("ID", "Type", "Status", "Current Task", "Last Activity")
	for _, info := range infos {
		last := ""
		if !info.LastActivity.IsZero() {
			last = info.LastActivity.Format("15:04:05")
		}
		if err := table.Append([]string{
			info.ID, info.Type, info.Status, info.CurrentTask, last,
		}); err != nil {
			return err
		}
	}
	return table.Render()
}

// LockRow is one row of the resource lock table. Kind is the rendered
// lock kind name so callers reading from the HTTP API can fill it
// without round-tripping through scheduler types.
type LockRow struct {
	Resource string   `json:"resource"`
	Kind     string   `json:"kind"`
	Holders  []string `json:"holders"`
}

// LockTable renders the resource lock table.
func LockTable(w io.Writer, locks []LockRow) error {
	table := tablewriter.NewTable(w)
	table.Header("Resource", "Kind", "Holders")
	for _, l := range locks {
		if err := table.Append([]string{
			l.Resource, l.Kind, strings.Join(l.Holders, ", "),
		}); err != nil {
			return err
		}
	}
	return table.Render()
}
