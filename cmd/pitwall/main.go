package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/osoriano/pitwall/internal/api"
	"github.com/osoriano/pitwall/internal/config"
	"github.com/osoriano/pitwall/internal/engine"
	"github.com/osoriano/pitwall/internal/models"
	"github.com/osoriano/pitwall/internal/storage"
	"github.com/osoriano/pitwall/internal/tui"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "pitwall",
		Short: "Monitoring console for the AI dev team pipeline",
		Long:  "Pitwall watches pipeline runs, shows phase progress and agent activity, and submits gate decisions.",
		RunE:  runTUI,
	}

	rootCmd.AddCommand(newStartCommand())
	rootCmd.AddCommand(newWatchCommand())
	rootCmd.AddCommand(newStatusCommand())
	rootCmd.AddCommand(newListCommand())
	rootCmd.AddCommand(newDecideCommand())
	rootCmd.AddCommand(newExportCommand())
	rootCmd.AddCommand(newDeployCommand())
	rootCmd.AddCommand(newTeardownCommand())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup wires the shared pieces: config, backend client, watch history
// store, engine, logger. Callers must Close the store.
func setup() (*config.Config, *api.Client, *storage.Store, *engine.Engine, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.EnsureDataDir(); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	store, err := storage.New(cfg.DBPath())
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to open database: %w", err)
	}

	client := api.New(cfg.BackendURL, cfg.RequestTimeout)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if cfg.Debug {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	eng := engine.New(client, cfg.PollInterval, store, logger)

	return cfg, client, store, eng, nil
}

func runTUI(cmd *cobra.Command, args []string) error {
	_, client, store, eng, err := setup()
	if err != nil {
		return err
	}
	defer store.Close()
	defer eng.Deactivate()

	app := tui.NewApp(client, eng)
	p := tea.NewProgram(app, tea.WithAltScreen())

	_, err = p.Run()
	return err
}

func newStartCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start <brief>",
		Short: "Start a new pipeline run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			watch, _ := cmd.Flags().GetBool("watch")

			_, client, store, eng, err := setup()
			if err != nil {
				return err
			}
			defer store.Close()

			run, err := client.StartRun(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("failed to start run: %w", err)
			}

			fmt.Printf("Started run %s\n", run.ID)
			fmt.Printf("Status: %s, phase: %s\n", run.Status, run.CurrentPhase)

			if !watch {
				return nil
			}

			return watchRun(client, eng, run.ID)
		},
	}

	cmd.Flags().BoolP("watch", "w", false, "Open the console on the new run")
	return cmd
}

func newWatchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "watch <run-id>",
		Short: "Watch a run in the console",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, client, store, eng, err := setup()
			if err != nil {
				return err
			}
			defer store.Close()

			return watchRun(client, eng, args[0])
		},
	}
}

func watchRun(client *api.Client, eng *engine.Engine, runID string) error {
	defer eng.Deactivate()

	app := tui.NewApp(client, eng)
	app.WatchRun(runID)

	p := tea.NewProgram(app, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status <run-id>",
		Short: "Show a run's current status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, client, store, _, err := setup()
			if err != nil {
				return err
			}
			defer store.Close()

			run, err := client.GetRun(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("failed to get run: %w", err)
			}

			fmt.Printf("Run %s\n", run.ID)
			fmt.Printf("Status: %s\n", run.Status)
			fmt.Printf("Phase: %s\n", run.CurrentPhase)
			if run.CurrentAgent != "" {
				fmt.Printf("Current Agent: %s\n", run.CurrentAgent)
			}
			fmt.Printf("Requirements: %d  Stories: %d  Tests: %d  Files: %d\n",
				run.NumRequirements, run.NumUserStories, run.NumTestCases, run.NumGeneratedFiles)
			if run.PlanningIteration > 0 {
				fmt.Printf("Planning Iteration: %d\n", run.PlanningIteration)
			}
			if run.Brief != "" {
				fmt.Printf("Brief: %s\n", truncate(run.Brief, 100))
			}

			return nil
		},
	}
}

func newListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List pipeline runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, client, store, _, err := setup()
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := client.ListRuns(cmd.Context())
			if err != nil {
				// Backend unreachable: fall back to local watch history.
				fmt.Printf("Backend unavailable (%v), showing local history:\n\n", err)
				watched, werr := store.ListWatched(20)
				if werr != nil {
					return werr
				}
				if len(watched) == 0 {
					fmt.Println("No watched runs.")
					return nil
				}
				for _, w := range watched {
					fmt.Printf("%s [%s/%s] %s\n", w.RunID, w.LastStatus, w.LastPhase, truncate(w.Brief, 50))
				}
				return nil
			}

			if len(runs) == 0 {
				fmt.Println("No runs found.")
				return nil
			}

			for _, run := range runs {
				fmt.Printf("%s [%s] %-12s %s\n",
					run.ID, run.Status, run.CurrentPhase, truncate(run.Brief, 50))
			}

			return nil
		},
	}
}

func newDecideCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decide <run-id> <approved|changes_requested|rejected>",
		Short: "Submit a gate decision without the console",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			feedback, _ := cmd.Flags().GetString("message")

			decision := models.Decision(args[1])
			if !decision.Valid() {
				return fmt.Errorf("invalid decision %q (want approved, changes_requested or rejected)", args[1])
			}

			_, client, store, _, err := setup()
			if err != nil {
				return err
			}
			defer store.Close()

			run, err := client.GetRun(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("failed to get run: %w", err)
			}
			if run.Status != models.RunStatusWaitingHITL {
				return fmt.Errorf("run is not waiting at a gate (status: %s)", run.Status)
			}

			result, err := client.SubmitDecision(cmd.Context(), args[0], decision, feedback)
			if err != nil {
				return fmt.Errorf("failed to submit decision: %w", err)
			}

			if result.AlreadyProcessed() {
				fmt.Println("Decision was already processed by a previous submission.")
				return nil
			}

			// History is best-effort; the decision already landed.
			_ = store.RecordDecision(args[0], run.CurrentPhase, decision, feedback, string(result.Status))

			fmt.Printf("Decision %q applied. Pipeline resuming (phase: %s).\n", decision, result.CurrentPhase)
			return nil
		},
	}

	cmd.Flags().StringP("message", "m", "", "Feedback to attach to the decision")
	return cmd
}

func newExportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "export <run-id>",
		Short: "Export a run's generated project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, client, store, _, err := setup()
			if err != nil {
				return err
			}
			defer store.Close()

			result, err := client.Export(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("failed to export: %w", err)
			}

			fmt.Printf("Exported %d files (%.2f MB zip)\n", result.FilesWritten, result.ZipSizeMB)
			fmt.Printf("Download: %s\n", result.ZipDownload)
			if result.ReadyToDeploy {
				fmt.Println("Compose file present; run 'pitwall deploy' to bring it up.")
			}
			return nil
		},
	}
}

func newDeployCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Deploy the exported project via the backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			apiKey, _ := cmd.Flags().GetString("api-key")

			_, client, store, _, err := setup()
			if err != nil {
				return err
			}
			defer store.Close()

			check, err := client.DeployCheck(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to check deploy readiness: %w", err)
			}
			if !check.Ready {
				return fmt.Errorf("not ready to deploy: %s", check.Message)
			}

			result, err := client.Deploy(cmd.Context(), apiKey)
			if err != nil {
				return fmt.Errorf("failed to deploy: %w", err)
			}

			fmt.Printf("Deploy: %s (%s)\n", result.Status, result.ComposeTool)
			for name, url := range result.URLs {
				fmt.Printf("  %s: %s\n", name, url)
			}
			return nil
		},
	}

	cmd.Flags().String("api-key", "", "API key forwarded to the deployed app")
	return cmd
}

func newTeardownCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "teardown",
		Short: "Stop and remove the deployed containers",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, client, store, _, err := setup()
			if err != nil {
				return err
			}
			defer store.Close()

			if err := client.Teardown(cmd.Context()); err != nil {
				return fmt.Errorf("failed to teardown: %w", err)
			}

			fmt.Println("Containers stopped and removed.")
			return nil
		},
	}
}

// truncate shortens s to maxLen runes; briefs and messages from the
// backend carry accents and emoji, so byte slicing is not safe here.
func truncate(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	return string([]rune(s)[:maxLen-3]) + "..."
}
