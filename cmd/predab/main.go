// Package main is the predab CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/protein-design/predict-antibody/internal/cli"
	"github.com/protein-design/predict-antibody/internal/config"
	"github.com/protein-design/predict-antibody/internal/models"
	"github.com/protein-design/predict-antibody/internal/overlap"
	"github.com/protein-design/predict-antibody/internal/pipeline"
	"github.com/protein-design/predict-antibody/internal/server"
	"github.com/protein-design/predict-antibody/internal/storage"
	"github.com/protein-design/predict-antibody/internal/table"
	"github.com/protein-design/predict-antibody/internal/watcher"
	"github.com/protein-design/predict-antibody/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/predab/config.yaml"

// exitItemErrors is the exit status of --strict runs that reported item errors.
const exitItemErrors = 2

// loadConfig loads config from path. When path is the default, a config.yaml
// in the current directory takes precedence so that running from a project
// directory picks up the project's settings.
// Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "import":
		runImport()
	case "match":
		runMatch()
	case "distance":
		runDistance()
	case "runs":
		runRuns()
	case "report":
		runReport()
	case "watch":
		runWatch()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("predab version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// argsReorder moves flags that follow positional arguments to the front so
// that flag.Parse sees them; it stops at the first non-flag otherwise.
func argsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

// flagWasSet reports whether name was given explicitly on the command line.
func flagWasSet(fs *flag.FlagSet, name string) bool {
	set := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

// exitCode maps the number of item errors of a finished command to the
// process exit status.
func exitCode(strict bool, itemErrors int) int {
	if strict && itemErrors > 0 {
		return exitItemErrors
	}
	return 0
}

// resolveOutput picks the terminal format and, if any, the file results are
// written to. An explicit --output wins over output.format; a csv or xlsx
// output.format without --out writes <kind>-<id>.<ext> under output.directory.
func resolveOutput(cfg *config.Config, outputFlag string, outputSet bool, outFile, kind, id string) (cli.OutputFormat, string, error) {
	name := cfg.Output.Format
	if outputSet {
		name = outputFlag
	}
	switch name {
	case "csv", "xlsx":
		if outputSet {
			return "", "", fmt.Errorf("use --out to write %s files", name)
		}
		if outFile == "" {
			outFile = filepath.Join(cfg.Output.Directory, fmt.Sprintf("%s-%s.%s", kind, id, name))
		}
		return cli.OutputCompact, outFile, nil
	}
	format, err := cli.ParseFormat(name)
	if err != nil {
		return "", "", err
	}
	if outFile != "" && !filepath.IsAbs(outFile) && filepath.Dir(outFile) == "." && cfg.Output.Directory != "" {
		outFile = filepath.Join(cfg.Output.Directory, outFile)
	}
	return format, outFile, nil
}

// writeResultFile writes rows to path. Workbooks get an extra "errors" sheet
// when errs is not empty; for csv and tsv the errors go to a sibling file
// with an ".errors" suffix before the extension.
func writeResultFile(path, sheet string, rows *table.Table, errs []models.ItemError) error {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".xlsx" {
		sheets := []table.Sheet{{Name: sheet, Table: rows}}
		if len(errs) > 0 {
			sheets = append(sheets, table.Sheet{Name: "errors", Table: table.EncodeItemErrors(errs)})
		}
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("create output directory: %w", err)
			}
		}
		var buf bytes.Buffer
		if err := table.WriteXLSX(&buf, sheets...); err != nil {
			return err
		}
		return os.WriteFile(path, buf.Bytes(), 0644)
	}
	if err := table.WriteFile(path, rows, sheet); err != nil {
		return err
	}
	if len(errs) == 0 {
		return nil
	}
	errPath := strings.TrimSuffix(path, filepath.Ext(path)) + ".errors" + filepath.Ext(path)
	return table.WriteFile(errPath, table.EncodeItemErrors(errs), "errors")
}

// setup loads config, creates the logger and opens the components. It exits
// the process on failure.
func setup(configPath string) (*config.Config, *zap.Logger, *Components) {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	return cfg, logger, components
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging (watch events, imports, requests)")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	watchOpts := []watcher.WatcherOption{
		watcher.WithDebounce(time.Duration(cfg.Watch.DebounceMS) * time.Millisecond),
	}
	if debugMode {
		watchOpts = append(watchOpts, watcher.WithLogger(logger.Named("watch")))
	}
	refresh := newRefresher(components.Pipeline, logger)
	watchSvc := watcher.NewWatcher(cfg.Watch.Directories, cfg.Watch.Extensions, refresh.handle, watchOpts...)
	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if err := watchSvc.Start(watchCtx); err != nil {
		logger.Fatal("Failed to start watcher", zap.Error(err))
	}
	watchSvc.SyncExistingFiles()

	srv := server.NewServer(
		components.Pipeline,
		components.Storage,
		&cfg.Server,
		logger,
		watchSvc,
		resolvedConfigPath,
		cfg,
	)
	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	watchCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

// refresher imports watched tables and re-runs the computation that depends
// on them.
type refresher struct {
	pipeline *pipeline.Pipeline
	logger   *zap.Logger
}

func newRefresher(p *pipeline.Pipeline, logger *zap.Logger) *refresher {
	return &refresher{pipeline: p, logger: logger.Named("refresh")}
}

func (r *refresher) handle(c watcher.Change) {
	ctx := context.Background()
	t, err := table.ReadFile(c.Path)
	if err != nil {
		r.logger.Warn("watched table unreadable", zap.String("path", c.Path), zap.Error(err))
		return
	}
	res, err := r.pipeline.Import(ctx, c.Kind, t, true)
	if err != nil {
		r.logger.Warn("watched table import failed", zap.String("path", c.Path), zap.Error(err))
		return
	}
	r.logger.Info("watched table imported",
		zap.String("path", c.Path),
		zap.String("kind", res.Kind),
		zap.Int("rows", res.Rows),
		zap.Int("errors", len(res.Errors)),
	)
	switch c.Kind {
	case storage.InputRegions, storage.InputMotifs:
		if _, err := r.pipeline.RunMatch(ctx, models.MatchRequest{}); err != nil {
			r.logger.Warn("match refresh failed", zap.Error(err))
		}
	case storage.InputDistances:
		if _, err := r.pipeline.RunDistance(ctx); err != nil {
			r.logger.Warn("distance refresh failed", zap.Error(err))
		}
	}
}

func printImportUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: predab import [flags] <regions|motifs|distances> <file>\n\n")
	fs.PrintDefaults()
}

func runImport() {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	replace := fs.Bool("replace", false, "remove existing rows of the same kind first")
	outputFormat := fs.String("output", "text", "output format: text, compact or json")
	fs.Usage = func() { printImportUsage(fs) }
	_ = fs.Parse(argsReorder(os.Args[2:]))

	if fs.NArg() < 2 {
		printImportUsage(fs)
		os.Exit(1)
	}
	kind, path := fs.Arg(0), fs.Arg(1)
	format, err := cli.ParseFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	_, logger, components := setup(*configPath)
	defer logger.Sync()
	defer components.Close()

	t, err := table.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read %s: %v\n", path, err)
		os.Exit(1)
	}
	res, err := components.Pipeline.Import(context.Background(), kind, t, *replace)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Import failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteImportResult(os.Stdout, res, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func printMatchUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: predab match [flags]\n\n")
	fmt.Fprintf(fs.Output(), "Without --references/--motifs the stored inputs are matched and the result is saved as a run.\n\n")
	fs.PrintDefaults()
}

func runMatch() {
	fs := flag.NewFlagSet("match", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	regions := fs.String("regions", "", "comma-separated region names (default from config)")
	offset := fs.Int("offset", 0, "boundary tolerance in residues (default from config)")
	references := fs.String("references", "", "reference region table (csv, tsv or xlsx)")
	motifs := fs.String("motifs", "", "candidate motif table (csv, tsv or xlsx)")
	outFile := fs.String("out", "", "write results to this csv, tsv or xlsx file")
	outputFormat := fs.String("output", "text", "output format: text, compact or json")
	strict := fs.Bool("strict", false, "exit with status 2 when any item could not be processed")
	fs.Usage = func() { printMatchUsage(fs) }
	_ = fs.Parse(os.Args[2:])

	if (*references == "") != (*motifs == "") {
		fmt.Fprintln(os.Stderr, "--references and --motifs must be given together")
		os.Exit(1)
	}
	inline := *references != ""

	cfg, logger, components := setup(*configPath)
	defer logger.Sync()
	defer components.Close()

	req := models.MatchRequest{Regions: utils.SplitList(*regions), Offset: cfg.Matching.Offset}
	if flagWasSet(fs, "offset") {
		req.Offset = *offset
	}

	var (
		results []models.MatchResult
		errs    []models.ItemError
		unknown []overlap.RegionHint
		runID   = "inline"
	)
	if inline {
		refTable, err := table.ReadFile(*references)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to read %s: %v\n", *references, err)
			os.Exit(1)
		}
		motifTable, err := table.ReadFile(*motifs)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to read %s: %v\n", *motifs, err)
			os.Exit(1)
		}
		report, err := components.Pipeline.MatchTables(refTable, motifTable, req)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Match failed: %v\n", err)
			os.Exit(1)
		}
		results, errs, unknown = report.Results, report.Errors, report.Unknown
	} else {
		run, err := components.Pipeline.RunMatch(context.Background(), req)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Match failed: %v\n", err)
			os.Exit(1)
		}
		results, errs, unknown, runID = run.Results, run.Errors, run.Unknown, run.Run.ID
	}
	for _, h := range unknown {
		if h.Suggestion != "" {
			fmt.Fprintf(os.Stderr, "No reference rows for region %q; did you mean %q?\n", h.Region, h.Suggestion)
		} else {
			fmt.Fprintf(os.Stderr, "No reference rows for region %q\n", h.Region)
		}
	}

	format, path, err := resolveOutput(cfg, *outputFormat, flagWasSet(fs, "output"), *outFile, models.RunKindMatch, runID)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if path != "" {
		if err := writeResultFile(path, models.RunKindMatch, table.EncodeMatchResults(results), errs); err != nil {
			fmt.Fprintf(os.Stderr, "Write failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "Wrote %d row(s) to %s\n", len(results), path)
	}
	if !inline && format == cli.OutputText {
		fmt.Printf("run: %s\n", runID)
	}
	if err := cli.WriteMatchResults(os.Stdout, results, errs, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
	if code := exitCode(*strict, len(errs)); code != 0 {
		os.Exit(code)
	}
}

func printDistanceUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: predab distance [flags]\n\n")
	fmt.Fprintf(fs.Output(), "Without --input the stored distance lists are summarized and the result is saved as a run.\n\n")
	fs.PrintDefaults()
}

func runDistance() {
	fs := flag.NewFlagSet("distance", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	input := fs.String("input", "", "distance table (csv, tsv or xlsx)")
	outFile := fs.String("out", "", "write records to this csv, tsv or xlsx file")
	outputFormat := fs.String("output", "text", "output format: text, compact or json")
	strict := fs.Bool("strict", false, "exit with status 2 when any item could not be processed")
	fs.Usage = func() { printDistanceUsage(fs) }
	_ = fs.Parse(os.Args[2:])

	cfg, logger, components := setup(*configPath)
	defer logger.Sync()
	defer components.Close()

	var (
		records []models.DistanceRecord
		errs    []models.ItemError
		runID   = "inline"
	)
	if *input != "" {
		t, err := table.ReadFile(*input)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to read %s: %v\n", *input, err)
			os.Exit(1)
		}
		report, err := components.Pipeline.SummarizeTables(t)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Summarize failed: %v\n", err)
			os.Exit(1)
		}
		records, errs = report.Records, report.Errors
	} else {
		run, err := components.Pipeline.RunDistance(context.Background())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Summarize failed: %v\n", err)
			os.Exit(1)
		}
		records, errs, runID = run.Records, run.Errors, run.Run.ID
	}

	format, path, err := resolveOutput(cfg, *outputFormat, flagWasSet(fs, "output"), *outFile, models.RunKindDistance, runID)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if path != "" {
		if err := writeResultFile(path, models.RunKindDistance, table.EncodeDistanceRecords(records), errs); err != nil {
			fmt.Fprintf(os.Stderr, "Write failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "Wrote %d row(s) to %s\n", len(records), path)
	}
	if *input == "" && format == cli.OutputText {
		fmt.Printf("run: %s\n", runID)
	}
	if err := cli.WriteDistanceRecords(os.Stdout, records, errs, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
	if code := exitCode(*strict, len(errs)); code != 0 {
		os.Exit(code)
	}
}

func runRuns() {
	fs := flag.NewFlagSet("runs", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	offset := fs.Int("offset", 0, "number of runs to skip")
	limit := fs.Int("limit", 20, "number of runs to list")
	outputFormat := fs.String("output", "text", "output format: text, compact or json")
	_ = fs.Parse(os.Args[2:])

	format, err := cli.ParseFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *offset < 0 || *limit <= 0 {
		fmt.Fprintln(os.Stderr, "--offset must be >= 0 and --limit > 0")
		os.Exit(1)
	}

	_, logger, components := setup(*configPath)
	defer logger.Sync()
	defer components.Close()

	runs, err := components.Storage.ListRuns(context.Background(), *offset, *limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "List runs failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteRuns(os.Stdout, runs, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runReport() {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	topN := fs.Int("top", 10, "number of most frequent motifs to list per region")
	outputFormat := fs.String("output", "text", "output format: text, compact or json")
	_ = fs.Parse(argsReorder(os.Args[2:]))

	if fs.NArg() < 1 {
		fmt.Println("Usage: predab report [flags] <run-id>")
		os.Exit(1)
	}
	format, err := cli.ParseFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	_, logger, components := setup(*configPath)
	defer logger.Sync()
	defer components.Close()

	report, err := components.Pipeline.Report(context.Background(), fs.Arg(0), *topN)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Report failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteRunReport(os.Stdout, report, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

// apiCall sends body as JSON to the running server and decodes the reply into
// out when the status matches want.
func apiCall(method, endpoint string, body interface{}, want int, out interface{}) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, endpoint, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != want {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func printWatchUsage() {
	fmt.Println("Usage: predab watch <add|remove|list> [flags] [path]")
	fmt.Println("  predab watch add <path>     Add directory to watch")
	fmt.Println("  predab watch remove <path>  Remove directory from watch")
	fmt.Println("  predab watch list           List watched directories")
}

func runWatch() {
	if len(os.Args) < 3 {
		printWatchUsage()
		os.Exit(1)
	}
	sub := os.Args[2]
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	noSync := fs.Bool("no-sync", false, "do not import tables already in the directory")
	_ = fs.Parse(argsReorder(os.Args[3:]))
	endpoint := *serverURL + "/api/v1/watch/directories"

	if (sub == "add" || sub == "remove") && fs.NArg() < 1 {
		fmt.Printf("Usage: predab watch %s <path>\n", sub)
		os.Exit(1)
	}
	switch sub {
	case "add":
		path, _ := filepath.Abs(fs.Arg(0))
		body := map[string]interface{}{"path": path, "sync": !*noSync}
		if err := apiCall(http.MethodPost, endpoint, body, http.StatusCreated, nil); err != nil {
			fmt.Printf("Add failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Added: %s\n", path)
	case "remove":
		path, _ := filepath.Abs(fs.Arg(0))
		if err := apiCall(http.MethodDelete, endpoint+"?path="+url.QueryEscape(path), nil, http.StatusOK, nil); err != nil {
			fmt.Printf("Remove failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Removed: %s\n", path)
	case "list":
		var out struct {
			Directories []string `json:"directories"`
		}
		if err := apiCall(http.MethodGet, endpoint, nil, http.StatusOK, &out); err != nil {
			fmt.Printf("List failed: %v\n", err)
			os.Exit(1)
		}
		for _, d := range out.Directories {
			fmt.Println(d)
		}
	default:
		fmt.Printf("Unknown watch subcommand: %s\n", sub)
		printWatchUsage()
		os.Exit(1)
	}
}

// statusResponse is the shape of the GET /api/v1/status response.
type statusResponse struct {
	models.InputCounts
	Config *struct {
		DatabasePath string `json:"database_path"`
	} `json:"config,omitempty"`
	WatchDirectories []string `json:"watch_directories,omitempty"`
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (for direct storage mode)")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = use direct storage)")
	outputFormat := fs.String("output", "text", "output format: text, compact or json")
	_ = fs.Parse(os.Args[2:])

	format, err := cli.ParseFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	var (
		counts *models.InputCounts
		dbPath string
	)
	if *serverURL != "" {
		var res statusResponse
		if err := apiCall(http.MethodGet, *serverURL+"/api/v1/status", nil, http.StatusOK, &res); err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
		counts = &res.InputCounts
		if res.Config != nil {
			dbPath = res.Config.DatabasePath
		}
	} else {
		cfg, logger, components := setup(*configPath)
		defer logger.Sync()
		defer components.Close()
		counts, err = components.Storage.CountInputs(context.Background())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Count inputs failed: %v\n", err)
			os.Exit(1)
		}
		dbPath = cfg.Storage.DatabasePath
	}
	if err := cli.WriteStatus(os.Stdout, counts, dbPath, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

// Components holds initialized services.
type Components struct {
	Storage  storage.Storage
	Pipeline *pipeline.Pipeline
}

func (c *Components) Close() {
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	p := pipeline.New(store, cfg, pipeline.WithLogger(logger.Named("pipeline")))
	return &Components{Storage: store, Pipeline: p}, nil
}

func printUsage() {
	fmt.Println(`predab - Antibody region overlap matching and distance features

Usage:
  predab server [flags]                       Start the HTTP server and directory watcher
  predab import [flags] <kind> <file>         Import a regions, motifs or distances table
  predab match [flags]                        Match candidate motifs to reference regions
  predab distance [flags]                     Summarize inter-chain distance lists
  predab runs [flags]                         List stored runs, newest first
  predab report [flags] <run-id>              Summarize a stored run
  predab status [flags]                       Show input and run counts
  predab watch <add|remove|list>              Manage watched directories
  predab version                              Show version
  predab help                                 Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/predab/config.yaml)
  --debug            Enable debug logging

Import Flags:
  --replace          Remove existing rows of the same kind first
  --output string    Output format: text, compact or json (default: text)

Match Flags:
  --regions string     Comma-separated region names (default from config)
  --offset int         Boundary tolerance in residues (default from config)
  --references string  Reference region table; with --motifs, match without storage
  --motifs string      Candidate motif table
  --out string         Write results to a csv, tsv or xlsx file
  --output string      Output format: text, compact or json (default from config)
  --strict             Exit with status 2 when any item could not be processed

Distance Flags:
  --input string     Distance table; summarize without storage
  --out string       Write records to a csv, tsv or xlsx file
  --output string    Output format: text, compact or json (default from config)
  --strict           Exit with status 2 when any item could not be processed

Runs Flags:
  --offset int       Number of runs to skip (default: 0)
  --limit int        Number of runs to list (default: 20)

Report Flags:
  --top int          Most frequent motifs per region (default: 10)

Status Flags:
  --server string    Server URL (default: http://localhost:8080). Use empty (--server "") for direct storage.
  --output string    Output format: text, compact or json (default: text)

Watch Flags:
  --server string    Server URL (default: http://localhost:8080)
  --no-sync          Do not import tables already in the added directory

Examples:
  predab server
  predab import regions align_vfrag.csv
  predab import --replace motifs motifs.xlsx
  predab match --regions CDR3 --offset 2
  predab match --references align_vfrag.csv --motifs motifs.csv --out cdr.xlsx
  predab distance --input distances.tsv --output json
  predab runs --limit 5
  predab report 3f1c...
  predab status --server ""
  predab watch add /data/incoming`)
}
