package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/r3e-network/AutoClaude-sub004/internal/printer"
)

var (
	serverURL      string
	submitType     string
	submitFile     string
	submitSource   string
	submitPriority int
	submitRetries  int
)

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit a single task to a running pipeline",
	Long: `Submit posts one task to the HTTP API of a pipeline started with
"autoclaude serve". Source can be given inline with --source or read
from the file named by --file.`,
	RunE: runSubmit,
}

func init() {
	submitCmd.Flags().StringVar(&serverURL, "server", "http://127.0.0.1:8750", "Pipeline API base URL")
	submitCmd.Flags().StringVar(&submitType, "type", "convert", "Task type")
	submitCmd.Flags().StringVar(&submitFile, "file", "", "Workspace file the task operates on")
	submitCmd.Flags().StringVar(&submitSource, "source", "", "Inline source text (read from --file when empty)")
	submitCmd.Flags().IntVar(&submitPriority, "priority", 0, "Task priority, higher runs first")
	submitCmd.Flags().IntVar(&submitRetries, "max-retries", 0, "Retry budget, 0 uses the configured default")
	rootCmd.AddCommand(submitCmd)
}

func runSubmit(cmd *cobra.Command, args []string) error {
	source := submitSource
	if source == "" && submitFile != "" {
		data, err := os.ReadFile(submitFile)
		if err != nil {
			return printer.Error("Could not read source file", err.Error(), nil)
		}
		source = string(data)
	}

	body, err := json.Marshal(map[string]any{
		"type":        submitType,
		"file":        submitFile,
		"source":      source,
		"priority":    submitPriority,
		"max_retries": submitRetries,
	})
	if err != nil {
		return err
	}

	resp, err := http.Post(serverURL+"/tasks", "application/json", bytes.NewReader(body))
	if err != nil {
		return printer.Error("Could not reach pipeline", err.Error(), []string{
			"Start one with: autoclaude serve",
		})
	}
	defer resp.Body.Close()

	var reply struct {
		TaskID string `json:"task_id"`
		Error  string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return err
	}
	if resp.StatusCode != http.StatusAccepted {
		return printer.Error("Task rejected", reply.Error, nil)
	}

	printer.Success("Submitted task %s\n", reply.TaskID)
	fmt.Printf("Poll with: autoclaude status %s\n", reply.TaskID)
	return nil
}
