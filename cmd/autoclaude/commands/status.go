package commands

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/r3e-network/AutoClaude-sub004/internal/agent"
	"github.com/r3e-network/AutoClaude-sub004/internal/printer"
)

var statusServerURL string

var statusCmd = &cobra.Command{
	Use:   "status [task-id]",
	Short: "Show pipeline or task status from a running pipeline",
	Long: `Status without arguments prints the queue counters and agent pool of
a running pipeline. With a task ID it prints that task's state.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusServerURL, "server", "http://127.0.0.1:8750", "Pipeline API base URL")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	if len(args) == 1 {
		return taskStatus(args[0])
	}
	return pipelineStatus()
}

func taskStatus(id string) error {
	resp, err := http.Get(statusServerURL + "/tasks/" + id)
	if err != nil {
		return printer.Error("Could not reach pipeline", err.Error(), nil)
	}
	defer resp.Body.Close()

	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return printer.Error("Task lookup failed", fmt.Sprintf("%v", body["error"]), nil)
	}

	for _, key := range []string{"id", "type", "status", "assigned_agent", "retry_count", "error", "output"} {
		if v, ok := body[key]; ok && v != "" {
			fmt.Printf("%-15s %v\n", key+":", v)
		}
	}
	return nil
}

func pipelineStatus() error {
	resp, err := http.Get(statusServerURL + "/queue")
	if err != nil {
		return printer.Error("Could not reach pipeline", err.Error(), []string{
			"Start one with: autoclaude serve",
		})
	}
	defer resp.Body.Close()

	var counters map[string]int
	if err := json.NewDecoder(resp.Body).Decode(&counters); err != nil {
		return err
	}
	fmt.Printf("queued: %d  in flight: %d  completed: %d  failed: %d\n",
		counters["queued"], counters["in_flight"], counters["completed"], counters["failed"])

	agentsResp, err := http.Get(statusServerURL + "/agents")
	if err != nil {
		return err
	}
	defer agentsResp.Body.Close()

	var infos []agent.Info
	if err := json.NewDecoder(agentsResp.Body).Decode(&infos); err != nil {
		return err
	}
	if err := printer.AgentTable(os.Stdout, infos); err != nil {
		return err
	}

	locksResp, err := http.Get(statusServerURL + "/locks")
	if err != nil {
		return err
	}
	defer locksResp.Body.Close()

	var locks []printer.LockRow
	if err := json.NewDecoder(locksResp.Body).Decode(&locks); err != nil {
		return err
	}
	if len(locks) == 0 {
		return nil
	}
	fmt.Println("held locks:")
	return printer.LockTable(os.Stdout, locks)
}
