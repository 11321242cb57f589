package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/r3e-network/AutoClaude-sub004/internal/printer"
	"github.com/r3e-network/AutoClaude-sub004/internal/scheduler"
	"github.com/r3e-network/AutoClaude-sub004/internal/taskfile"
)

var runCmd = &cobra.Command{
	Use:   "run <taskfile>",
	Short: "Run a batch of tasks from a YAML manifest",
	Long: `Run loads a task manifest, submits every task to the coordinator and
waits for the batch to finish, then prints a result table.

Exits non-zero when any task ends in a failed state.`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tasks, err := taskfile.Load(args[0])
	if err != nil {
		return printer.Error("Could not load task file", err.Error(), nil)
	}

	a, err := buildApp(ctx)
	if err != nil {
		return printer.Error("Could not start pipeline", err.Error(), nil)
	}
	defer a.shutdown()

	printer.Step("Submitting %d tasks\n", len(tasks))
	var ids []string
	for _, task := range tasks {
		id, err := a.coord.Submit(task)
		if err != nil {
			return printer.Error("Task submission failed", err.Error(), []string{
				"Check the task file for duplicate IDs or unknown dependencies",
			})
		}
		ids = append(ids, id)
	}

	if err := a.coord.Wait(ctx); err != nil {
		printer.Warning("Interrupted, shutting down\n")
		return err
	}

	var results []*scheduler.Task
	failures := 0
	for _, id := range ids {
		task, ok := a.coord.Status(id)
		if !ok {
			continue
		}
		results = append(results, task)
		if task.Status == scheduler.TaskFailed {
			failures++
		}
	}
	if err := printer.TaskTable(os.Stdout, results); err != nil {
		return err
	}

	if failures > 0 {
		return printer.Error("Batch finished with failures", "", nil)
	}
	printer.Success("All %d tasks completed\n", len(ids))
	return nil
}
