package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/AlgoNouir/atomation/internal/api"
	"github.com/AlgoNouir/atomation/internal/claude"
	"github.com/AlgoNouir/atomation/internal/config"
	"github.com/AlgoNouir/atomation/internal/cpm"
	"github.com/AlgoNouir/atomation/internal/graph"
	"github.com/AlgoNouir/atomation/internal/history"
	"github.com/AlgoNouir/atomation/internal/logging"
	"github.com/AlgoNouir/atomation/internal/reporter"
	"github.com/AlgoNouir/atomation/internal/source"
	"github.com/AlgoNouir/atomation/internal/ui"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var (
	flagConfig      string
	flagInputFormat string
	flagJSON        bool
	flagNoColor     bool
	flagStatus      string
	flagAssignee    string
	flagVizFormat   string
	flagLimit       int
)

var (
	cfg    *config.Config
	logger *slog.Logger
)

// errReported marks failures whose message has already been printed.
var errReported = errors.New("reported")

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintf(os.Stderr, "%s %v\n", ui.Red("error:"), err)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "atomation",
		Short: "Critical path analysis for milestone task schedules",
		Long: `Atomation reads a milestone's tasks and their FS/SS/FF/SF dependencies,
runs a critical path analysis, and reports each task's early and late dates,
slack, and whether it is on the critical path.

Task files may be the web client's JSON, the REST backend's milestone JSON,
or YAML. Use "-" or omit the file to read from stdin.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: setup,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default is ./atomation.yaml or $XDG_CONFIG_HOME/atomation/atomation.yaml)")
	rootCmd.PersistentFlags().StringVarP(&flagInputFormat, "input-format", "i", "auto", "Task document format (auto, json, milestone, yaml)")
	rootCmd.PersistentFlags().String("relations", "", "Relation mode (typed, as-fs, fs-only)")
	rootCmd.PersistentFlags().Bool("deadlines", false, "Let task deadlines, not due dates, bound late finish")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "Machine-readable JSON output")
	rootCmd.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "Disable colored output")
	_ = viper.BindPFlag("analysis.relations", rootCmd.PersistentFlags().Lookup("relations"))
	_ = viper.BindPFlag("analysis.deadlines", rootCmd.PersistentFlags().Lookup("deadlines"))
	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))

	rootCmd.AddCommand(analyzeCmd())
	rootCmd.AddCommand(vizCmd())
	rootCmd.AddCommand(chartCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(historyCmd())
	rootCmd.AddCommand(explainCmd())
	rootCmd.AddCommand(versionCmd())
	return rootCmd
}

// setup loads configuration and builds the logger before any command runs.
func setup(cmd *cobra.Command, args []string) error {
	if err := config.Init(flagConfig); err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	c, err := config.Load()
	if err != nil {
		return err
	}
	cfg = c

	ui.SetColor(cfg.Output.Color && !flagNoColor)
	logger = logging.New(cfg.Logging.Level, cfg.Logging.Format, os.Stderr)
	api.Version = version
	return nil
}

// analysis bundles everything a command may render.
type analysis struct {
	meta   source.Meta
	graph  *graph.TaskGraph
	result *cpm.CPMResult
}

// runAnalysis loads the task document at path, applies the task filters,
// and analyzes it. Source warnings and diagnostics are logged. The outcome
// is recorded in history when enabled.
func runAnalysis(ctx context.Context, path string) (*analysis, error) {
	format, err := source.ParseFormat(flagInputFormat)
	if err != nil {
		return nil, err
	}
	mode, err := cpm.ParseRelationMode(cfg.Analysis.Relations)
	if err != nil {
		return nil, err
	}

	tasks, meta, err := source.Load(path, format)
	if err != nil {
		return nil, err
	}
	for _, w := range meta.Warnings {
		logger.Warn("source warning", "source", meta.Source, "warning", w)
	}
	logger.Debug("tasks loaded", "source", meta.Source, "format", meta.Format, "tasks", len(tasks))

	a := &analysis{meta: meta}
	a.graph, err = graph.Build(tasks)
	if err == nil {
		a.graph, err = applyFilters(a.graph)
	}
	if err == nil {
		a.result, err = cpm.Analyze(a.graph, cpm.Options{Relations: mode, UseDeadlines: cfg.Analysis.Deadlines})
	}
	recordRun(ctx, a, mode, len(tasks), err)
	if err != nil {
		return a, err
	}

	for _, d := range a.result.Diagnostics {
		logger.Warn("schedule diagnostic", "kind", d.Kind, "task", d.TaskID, "message", d.Message)
	}
	logger.Debug("analysis complete",
		"critical", len(a.result.CriticalPath), "waves", len(a.result.Waves), "total_days", a.result.TotalDays)
	return a, nil
}

// applyFilters narrows the graph to tasks matching --status and --assignee.
func applyFilters(g *graph.TaskGraph) (*graph.TaskGraph, error) {
	if flagStatus == "" && flagAssignee == "" {
		return g, nil
	}
	return g.Filter(func(t *graph.Task) bool {
		if flagStatus != "" && !strings.EqualFold(t.Status, flagStatus) {
			return false
		}
		if flagAssignee != "" && !strings.EqualFold(t.Assignee, flagAssignee) {
			return false
		}
		return true
	})
}

func recordRun(ctx context.Context, a *analysis, mode cpm.RelationMode, taskCount int, runErr error) {
	if !cfg.History.Enabled {
		return
	}
	store, err := history.Open(cfg.History.Driver, cfg.History.DSN)
	if err != nil {
		logger.Warn("open history", "error", err)
		return
	}
	defer store.Close()

	run := &history.Run{
		Source:    a.meta.Source,
		Milestone: a.meta.Milestone,
		Relations: string(mode),
		TaskCount: taskCount,
	}
	if runErr != nil {
		run.Error = runErr.Error()
	} else {
		run.CriticalIDs = cpm.CriticalIDs(a.result)
		run.TotalDays = a.result.TotalDays
	}
	if err := store.Record(ctx, run); err != nil {
		logger.Warn("record analysis run", "error", err)
		return
	}
	logger.Debug("analysis recorded", "run", run.ID)
}

// failAnalysis reports a fatal analysis error, as a JSON document when
// --json is set, and returns errReported.
func failAnalysis(w io.Writer, a *analysis, err error) error {
	if flagJSON {
		var meta source.Meta
		if a != nil {
			meta = a.meta
		}
		_ = outputJSON(w, reporter.NewDocument(meta, nil, nil, err))
		return errReported
	}
	if errors.Is(err, graph.ErrCyclicDependency) {
		fmt.Fprintf(os.Stderr, "🚫 %s: %v\n", ui.BoldRed(reporter.ErrCannotCompute), err)
		return errReported
	}
	return err
}

func reportOptions(meta source.Meta) reporter.Options {
	return reporter.Options{
		DateFormat: cfg.Output.DateFormat,
		Width:      cfg.Chart.Width,
		Source:     meta.Source,
		Milestone:  meta.Milestone,
	}
}

func fileArg(args []string) string {
	if len(args) == 0 {
		return "-"
	}
	return args[0]
}

func addFilterFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagStatus, "status", "", `Only analyze tasks with this status (e.g. "To Do")`)
	cmd.Flags().StringVar(&flagAssignee, "assignee", "", "Only analyze tasks assigned to this user")
}

func analyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze [file]",
		Short: "Compute early/late dates, slack and the critical path",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := runAnalysis(cmd.Context(), fileArg(args))
			if err != nil {
				return failAnalysis(cmd.OutOrStdout(), a, err)
			}

			if flagJSON {
				return outputJSON(cmd.OutOrStdout(), reporter.NewDocument(a.meta, a.graph, a.result, nil))
			}

			reporter.Summary(cmd.OutOrStdout(), a.graph, a.result, reportOptions(a.meta))
			return nil
		},
	}

	addFilterFlags(cmd)
	return cmd
}

func vizCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "viz [file]",
		Short: "Print the dependency graph as an ASCII DAG or Graphviz DOT",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := runAnalysis(cmd.Context(), fileArg(args))
			if err != nil {
				return failAnalysis(cmd.OutOrStdout(), a, err)
			}

			switch flagVizFormat {
			case "dot":
				return reporter.DOT(cmd.OutOrStdout(), a.graph, a.result)
			case "ascii":
				reporter.ASCIIDAG(cmd.OutOrStdout(), a.graph, a.result)
				return nil
			default:
				return fmt.Errorf("unknown viz format %q (use ascii or dot)", flagVizFormat)
			}
		},
	}

	cmd.Flags().StringVarP(&flagVizFormat, "output", "o", "ascii", "Output format (ascii, dot)")
	addFilterFlags(cmd)
	return cmd
}

func chartCmd() *cobra.Command {
	var flagWidth int

	cmd := &cobra.Command{
		Use:   "chart [file]",
		Short: "Draw an ASCII Gantt chart with the critical path highlighted",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := runAnalysis(cmd.Context(), fileArg(args))
			if err != nil {
				return failAnalysis(cmd.OutOrStdout(), a, err)
			}

			opts := reportOptions(a.meta)
			if flagWidth > 0 {
				opts.Width = flagWidth
			}
			reporter.Gantt(cmd.OutOrStdout(), a.graph, a.result, opts)
			return nil
		},
	}

	cmd.Flags().IntVar(&flagWidth, "width", 0, "Bar columns (default from chart.width)")
	addFilterFlags(cmd)
	return cmd
}

func serveCmd() *cobra.Command {
	var flagPort int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the analyzer over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			if flagPort > 0 {
				cfg.Server.Port = flagPort
			}

			var store api.Store
			if cfg.History.Enabled {
				s, err := history.Open(cfg.History.Driver, cfg.History.DSN)
				if err != nil {
					return fmt.Errorf("open history: %w", err)
				}
				defer s.Close()
				store = s
			}

			srv, err := api.NewServer(cfg, store, logger)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if !flagJSON {
				ui.PrintLogo(os.Stderr)
			}
			fmt.Fprintf(os.Stderr, "🚀 %s listening on %s\n", ui.BoldCyan("Atomation API"), ui.Bold("http://"+srv.Addr()))

			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start() }()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
				fmt.Fprintf(os.Stderr, "\n🛑 %s\n", ui.Yellow("Received interrupt, shutting down..."))
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().IntVar(&flagPort, "port", 0, "Listen port (default from server.port)")
	return cmd
}

func historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect recorded analysis runs",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List recent analysis runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openHistory()
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.List(cmd.Context(), flagLimit)
			if err != nil {
				return err
			}
			if flagJSON {
				return outputJSON(cmd.OutOrStdout(), runs)
			}
			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), ui.Dim("No analysis runs recorded."))
				return nil
			}
			for _, r := range runs {
				printRunLine(cmd.OutOrStdout(), r)
			}
			return nil
		},
	}
	list.Flags().IntVar(&flagLimit, "limit", 20, "Maximum runs to show (0 for all)")

	show := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one analysis run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openHistory()
			if err != nil {
				return err
			}
			defer store.Close()

			run, err := store.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if flagJSON {
				return outputJSON(cmd.OutOrStdout(), run)
			}
			printRun(cmd.OutOrStdout(), run)
			return nil
		},
	}

	cmd.AddCommand(list, show)
	return cmd
}

func openHistory() (*history.Store, error) {
	if !cfg.History.Enabled {
		return nil, fmt.Errorf("history is disabled (set history.enabled: true)")
	}
	return history.Open(cfg.History.Driver, cfg.History.DSN)
}

func printRunLine(w io.Writer, r history.Run) {
	status := ui.Green("✓")
	detail := fmt.Sprintf("%d tasks, %d days, %d critical", r.TaskCount, r.TotalDays, len(r.CriticalIDs))
	if r.Error != "" {
		status = ui.Red("✗")
		detail = ui.Red(r.Error)
	}
	fmt.Fprintf(w, "%s %s  %s  %-24s %s\n",
		status, ui.Dim(r.ID[:min(8, len(r.ID))]),
		r.CreatedAt.Local().Format("2006-01-02 15:04"),
		r.Source, detail)
}

func printRun(w io.Writer, r *history.Run) {
	fmt.Fprintf(w, "Run:       %s\n", ui.Bold(r.ID))
	fmt.Fprintf(w, "Recorded:  %s\n", r.CreatedAt.Local().Format(time.RFC3339))
	fmt.Fprintf(w, "Source:    %s\n", r.Source)
	if r.Milestone != "" {
		fmt.Fprintf(w, "Milestone: %s\n", r.Milestone)
	}
	fmt.Fprintf(w, "Relations: %s\n", r.Relations)
	fmt.Fprintf(w, "Tasks:     %d\n", r.TaskCount)
	if r.Error != "" {
		fmt.Fprintf(w, "Status:    %s %s\n", ui.BoldRed(reporter.ErrCannotCompute), ui.Red(r.Error))
		return
	}
	fmt.Fprintf(w, "Span:      %d days\n", r.TotalDays)
	fmt.Fprintf(w, "⚡ Critical path: %s\n", ui.BoldYellow(strings.Join(r.CriticalIDs, " → ")))
}

func explainCmd() *cobra.Command {
	var flagModel string

	cmd := &cobra.Command{
		Use:   "explain [file]",
		Short: "Ask Claude for a stakeholder summary of the schedule",
		Long: `Runs the analysis, sends the plain-text summary to Claude, and prints a
headline, narrative, and list of schedule risks.

Requires the ANTHROPIC_API_KEY environment variable.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := runAnalysis(cmd.Context(), fileArg(args))
			if err != nil {
				return failAnalysis(cmd.OutOrStdout(), a, err)
			}

			model := cfg.Claude.Model
			if flagModel != "" {
				model = flagModel
			}
			client, err := claude.NewClient("", model, cfg.Claude.MaxTokens)
			if err != nil {
				return err
			}

			// The summary sent to Claude must not carry terminal escapes
			colored := ui.ColorEnabled()
			ui.SetColor(false)
			summary := reporter.Summary(io.Discard, a.graph, a.result, reportOptions(a.meta))
			ui.SetColor(colored)

			if !flagJSON {
				fmt.Fprintf(os.Stderr, "🤖 %s\n", ui.Dim("Asking Claude to explain the schedule..."))
			}
			explanation, err := client.ExplainSchedule(cmd.Context(), summary)
			if err != nil {
				return err
			}

			if flagJSON {
				return outputJSON(cmd.OutOrStdout(), explanation)
			}

			fmt.Printf("\n📣 %s\n\n", ui.BoldCyan(explanation.Headline))
			fmt.Println(explanation.Narrative)
			if len(explanation.Risks) > 0 {
				fmt.Printf("\n%s\n", ui.BoldYellow("Risks:"))
				for _, r := range explanation.Risks {
					fmt.Printf("  %s %s  %s\n", ui.Yellow("!"), ui.BoldMagenta(r.TaskID), r.Reason)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&flagModel, "model", "", "Claude model (default from claude.model)")
	addFilterFlags(cmd)
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), "atomation", version)
			return nil
		},
	}
}

// --- Output helpers ---

func outputJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(w, string(data))
	return nil
}
