package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/aristath/taskui/internal/config"
	"github.com/aristath/taskui/internal/events"
	"github.com/aristath/taskui/internal/history"
	"github.com/aristath/taskui/internal/notify"
	"github.com/aristath/taskui/internal/scheduler"
	"github.com/aristath/taskui/internal/tui"
)

func main() {
	pipelinePath := flag.String("pipeline", "", "path to a pipeline JSON file")
	title := flag.String("title", "", "dashboard title (overrides config)")
	demo := flag.Bool("demo", false, "run the built-in demo pipeline")
	showHistory := flag.Bool("history", false, "list recent runs and exit")
	historyLimit := flag.Int("history-limit", 20, "how many runs -history lists")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadDefault(*pipelinePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *title != "" {
		cfg.Title = *title
	}

	if *showHistory {
		if err := printHistory(ctx, cfg, *historyLimit); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	var graph *scheduler.TaskGraph
	switch {
	case *demo:
		graph, err = demoGraph()
	case len(cfg.Pipeline) > 0:
		graph, err = buildGraph(cfg)
	default:
		fmt.Fprintln(os.Stderr, "No pipeline configured. Pass -pipeline <file> or -demo.")
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building graph: %v\n", err)
		os.Exit(1)
	}

	bus := events.NewBus()
	defer bus.Close()

	opts := scheduler.Options{
		MaxWorkers: cfg.MaxWorkers,
		Bus:        bus,
	}
	if cfg.Notify {
		n := notify.New(cfg.Title, "all tasks succeeded", "a task failed")
		opts.OnFinish = n.Callback()
	}

	exec := scheduler.NewExecutor(graph, opts)
	startedAt := time.Now()
	if err := exec.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	model := tui.New(exec, graph, bus, cfg.Title,
		time.Duration(cfg.PollIntervalMS)*time.Millisecond, cfg.ExitOnSuccess)
	p := tea.NewProgram(model, tea.WithAltScreen())

	errChan := make(chan error, 1)
	go func() {
		_, err := p.Run()
		errChan <- err
	}()

	select {
	case err := <-errChan:
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		stop()
		p.Quit()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		select {
		case <-errChan:
		case <-shutdownCtx.Done():
			fmt.Fprintln(os.Stderr, "Shutdown timeout exceeded, forcing exit")
		}
	}

	printSummary(graph, exec)

	// Record the run only if it actually settled; quitting mid-run leaves
	// no history row.
	select {
	case <-exec.Done():
		if err := recordRun(cfg, graph, exec, startedAt); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not record run history: %v\n", err)
		}
	default:
	}
}

func printSummary(graph *scheduler.TaskGraph, exec *scheduler.Executor) {
	for _, t := range graph.Tasks() {
		status := exec.Status(t)
		line := fmt.Sprintf("%-10s %s", status, t.Name)
		if err, _ := exec.Failure(t); err != nil {
			line += fmt.Sprintf("  (%v)", err)
		}
		fmt.Println(line)
	}
}

func recordRun(cfg *config.Config, graph *scheduler.TaskGraph, exec *scheduler.Executor, startedAt time.Time) error {
	dbPath, err := cfg.HistoryDBPath()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	store, err := history.NewSQLiteStore(ctx, dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	runID := uuid.NewString()
	outcomes := make([]history.TaskOutcome, 0, len(graph.Tasks()))
	for _, t := range graph.Tasks() {
		var errText string
		if err, _ := exec.Failure(t); err != nil {
			errText = err.Error()
		}
		outcomes = append(outcomes, history.TaskOutcome{
			RunID:       runID,
			Name:        t.Name,
			Status:      exec.Status(t).String(),
			Error:       errText,
			Duration:    exec.Worker(t).Duration(),
			OutputBytes: len(exec.Output(t)),
		})
	}

	return store.RecordRun(ctx, history.Run{
		ID:       runID,
		Title:    cfg.Title,
		Success:  exec.AllSucceeded(),
		Started:  startedAt,
		Finished: time.Now(),
	}, outcomes)
}

func printHistory(ctx context.Context, cfg *config.Config, limit int) error {
	dbPath, err := cfg.HistoryDBPath()
	if err != nil {
		return err
	}
	store, err := history.NewSQLiteStore(ctx, dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.ListRuns(ctx, limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No recorded runs.")
		return nil
	}

	for _, run := range runs {
		outcome := "FAIL"
		if run.Success {
			outcome = "OK"
		}
		fmt.Printf("%s  %-4s  %-20s  %s (%s)\n",
			run.ID[:8], outcome, run.Title,
			run.Started.Local().Format("2006-01-02 15:04:05"),
			run.Finished.Sub(run.Started).Round(time.Second))

		tasks, err := store.RunTasks(ctx, run.ID)
		if err != nil {
			return err
		}
		for _, t := range tasks {
			fmt.Printf("    %-10s %-20s %s\n", t.Status, t.Name, t.Duration.Round(time.Millisecond))
		}
	}
	return nil
}
