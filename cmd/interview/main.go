package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/skypro1111/interview-service/internal/analysis"
	"github.com/skypro1111/interview-service/internal/config"
	"github.com/skypro1111/interview-service/internal/metrics"
	"github.com/skypro1111/interview-service/internal/recording"
	"github.com/skypro1111/interview-service/internal/server"
	"github.com/skypro1111/interview-service/internal/session"
	"github.com/skypro1111/interview-service/internal/store"
	"github.com/skypro1111/interview-service/internal/transcript"
	"github.com/skypro1111/interview-service/internal/tui"
)

const (
	defaultConfigPath = "configs/config.yaml"
	serviceName       = "interview-service"
	serviceVersion    = "1.0.0"
)

const usage = `Usage: interview <command> [flags]

Commands:
  serve      Run the HTTP API
  live       Run a live voice interview in the terminal
  import     Analyze a transcript file and store it as a session
  sessions   List stored sessions
  show       Show one session with its analysis and annotations
  export     Write one session as JSON or text

Run "interview <command> -h" for command flags.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	commands := map[string]func(args []string) error{
		"serve":    runServe,
		"live":     runLive,
		"import":   runImport,
		"sessions": runSessions,
		"show":     runShow,
		"export":   runExport,
	}

	cmd, ok := commands[os.Args[1]]
	if !ok {
		if os.Args[1] != "-h" && os.Args[1] != "help" {
			fmt.Fprintf(os.Stderr, "Unknown command %q\n\n", os.Args[1])
		}
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	if err := cmd(os.Args[2:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app holds the wiring shared by every command
type app struct {
	cfg        *config.Config
	logger     *slog.Logger
	kv         *store.SQLiteKV
	store      *store.Store
	recordings *recording.Storage
	metrics    *metrics.Metrics
}

// openApp loads configuration and opens storage. With detachConsole a
// console log destination is replaced by logFile, or by interview.log next
// to the database when logFile is empty.
func openApp(configPath string, detachConsole bool, logFile string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logCfg := cfg.Logging
	if detachConsole && (logCfg.Output == "" || logCfg.Output == "stdout" || logCfg.Output == "stderr") {
		if logFile == "" {
			logFile = filepath.Join(filepath.Dir(cfg.Storage.DatabasePath), "interview.log")
		}
		logCfg.Output = logFile
	}
	logger := initLogger(logCfg)

	recordings, err := recording.NewStorage(cfg.Storage.RecordingsDir, cfg.Storage.AudioURLPrefix, logger)
	if err != nil {
		return nil, err
	}

	kv, err := store.OpenSQLite(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, err
	}

	st := store.New(kv, recordings, logger)
	if err := st.Init(); err != nil {
		kv.Close()
		return nil, err
	}

	logger.Debug("Storage opened",
		slog.String("database_path", cfg.Storage.DatabasePath),
		slog.String("recordings_dir", cfg.Storage.RecordingsDir),
		slog.Int("sessions", st.Count()),
	)

	return &app{
		cfg:        cfg,
		logger:     logger,
		kv:         kv,
		store:      st,
		recordings: recordings,
		metrics:    metrics.NewMetrics(),
	}, nil
}

func (a *app) Close() {
	if err := a.kv.Close(); err != nil {
		a.logger.Error("Failed to close database", slog.String("error", err.Error()))
	}
}

// analysisClient builds the structured analysis client. It fails without
// an API key.
func (a *app) analysisClient() (*analysis.Client, error) {
	if a.cfg.Analysis.APIKey == "" {
		return nil, fmt.Errorf("analysis API key is not set (analysis.api_key or %s)", config.APIKeyEnv)
	}
	return analysis.NewClient(analysis.Config{
		Endpoint:      a.cfg.Analysis.Endpoint,
		APIKey:        a.cfg.Analysis.APIKey,
		Model:         a.cfg.Analysis.Model,
		Timeout:       a.cfg.Analysis.GetTimeoutDuration(),
		MaxConcurrent: a.cfg.Analysis.MaxConcurrent,
	})
}

func (a *app) pipeline(client *analysis.Client) *analysis.Pipeline {
	return analysis.NewPipeline(client, a.store, a.recordings, a.metrics, a.logger)
}

func newFlagSet(name string) (*flag.FlagSet, *string) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	configPath := fs.String("config", defaultConfigPath, "Path to configuration file")
	return fs, configPath
}

// parseArgs parses flags that may follow positional arguments, as in
// "export <id> -format text", and returns the positionals.
func parseArgs(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		if fs.NArg() == 0 {
			return positional, nil
		}
		positional = append(positional, fs.Arg(0))
		args = fs.Args()[1:]
	}
}

func runServe(args []string) error {
	fs, configPath := newFlagSet("serve")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := openApp(*configPath, false, "")
	if err != nil {
		return err
	}
	defer a.Close()

	a.logger.Info("Service starting",
		slog.String("service", serviceName),
		slog.String("version", serviceVersion),
		slog.String("config_path", *configPath),
	)

	if !a.cfg.HTTP.Enabled {
		return fmt.Errorf("http server is disabled in configuration")
	}

	services := server.Services{
		Store: a.store,
		Audio: a.recordings,
	}

	// Without a key the API still serves stored sessions; imports answer 503
	client, err := a.analysisClient()
	if err != nil {
		a.logger.Warn("Analysis disabled", slog.String("error", err.Error()))
	} else {
		defer client.Close()
		services.Importer = a.pipeline(client)
		services.Analysis = client
	}

	a.metrics.SetSessionsStored(a.store.Count())

	httpServer := server.NewHTTPServer(a.cfg.HTTP, a.logger, a.cfg, services, a.metrics)
	if err := httpServer.Start(); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	a.logger.Info("Service started successfully, waiting for signals...",
		slog.String("http_address", fmt.Sprintf("%s:%d", a.cfg.HTTP.Address, a.cfg.HTTP.Port)),
		slog.Int("sessions", a.store.Count()),
	)

	sig := <-sigChan
	a.logger.Info("Received shutdown signal", slog.String("signal", sig.String()))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Stop(shutdownCtx); err != nil {
		a.logger.Error("Error stopping HTTP server", slog.String("error", err.Error()))
	}

	if client != nil {
		stats := client.GetStats()
		a.logger.Info("Final analysis statistics",
			slog.Uint64("total_requests", stats.TotalRequests),
			slog.Uint64("success_requests", stats.SuccessRequests),
			slog.Uint64("failed_requests", stats.FailedRequests),
		)
	}

	a.logger.Info("Service stopped")
	return nil
}

func runImport(args []string) error {
	fs, configPath := newFlagSet("import")
	language := fs.String("language", "", "Analysis language, UK or US (default from settings)")
	positional, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	if len(positional) != 1 {
		return fmt.Errorf("usage: interview import [flags] <file|->")
	}

	a, err := openApp(*configPath, false, "")
	if err != nil {
		return err
	}
	defer a.Close()

	lang := a.store.Settings().Language
	if *language != "" {
		lang = session.Language(*language)
		if lang != session.LanguageUK && lang != session.LanguageUS {
			return fmt.Errorf("invalid language %q", *language)
		}
	}

	text, err := readInput(positional[0])
	if err != nil {
		return err
	}

	client, err := a.analysisClient()
	if err != nil {
		return err
	}
	defer client.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	sess, err := a.pipeline(client).ImportText(ctx, text, lang)
	if sess == nil {
		return err
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Analysis failed, saved transcript only: %v\n", err)
	}
	fmt.Println(sess.ID)
	return nil
}

func readInput(path string) (string, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return "", err
		}
		defer f.Close()
		r = f
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read transcript: %w", err)
	}
	return string(data), nil
}

func runSessions(args []string) error {
	fs, configPath := newFlagSet("sessions")
	sessionType := fs.String("type", "", "Filter by type: AI_INTERVIEW, RECORDED or UPLOADED")
	query := fs.String("q", "", "Filter by text in the summary or transcript")
	if err := fs.Parse(args); err != nil {
		return err
	}

	filter := store.Filter{Type: session.Type(*sessionType), Query: *query}
	if filter.Type != "" && !filter.Type.Valid() {
		return fmt.Errorf("invalid session type %q", *sessionType)
	}

	a, err := openApp(*configPath, false, "")
	if err != nil {
		return err
	}
	defer a.Close()

	for _, s := range a.store.List(filter) {
		summary := ""
		if s.Analysis != nil {
			summary = s.Analysis.Summary
		}
		if s.Degraded {
			summary = "[analysis unavailable]"
		}
		if len([]rune(summary)) > 60 {
			summary = string([]rune(summary)[:57]) + "..."
		}
		fmt.Printf("%s  %s  %-12s  %6s  %s\n",
			s.ID, s.Date.Local().Format("2006-01-02 15:04"), s.Type,
			transcript.FormatTimestamp(s.Duration), summary)
	}
	return nil
}

func runShow(args []string) error {
	fs, configPath := newFlagSet("show")
	width := fs.Int("width", 100, "Wrap width")
	positional, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	if len(positional) != 1 {
		return fmt.Errorf("usage: interview show [flags] <session-id>")
	}

	a, err := openApp(*configPath, false, "")
	if err != nil {
		return err
	}
	defer a.Close()

	s, err := a.store.Get(positional[0])
	if err != nil {
		return err
	}
	fmt.Print(tui.RenderSession(s, *width))
	return nil
}

func runExport(args []string) error {
	fs, configPath := newFlagSet("export")
	format := fs.String("format", "json", "Output format: json or text")
	positional, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	if len(positional) != 1 {
		return fmt.Errorf("usage: interview export [flags] <session-id>")
	}

	a, err := openApp(*configPath, false, "")
	if err != nil {
		return err
	}
	defer a.Close()

	s, err := a.store.Get(positional[0])
	if err != nil {
		return err
	}

	switch *format {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	case "text":
		fmt.Print(transcript.FormatText(s.Turns()))
		return nil
	default:
		return fmt.Errorf("unknown format %q", *format)
	}
}

// initLogger creates and configures the structured logger based on configuration
func initLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	var output *os.File
	switch cfg.Output {
	case "stderr":
		output = os.Stderr
	case "stdout", "":
		output = os.Stdout
	default:
		if err := os.MkdirAll(filepath.Dir(cfg.Output), 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create log directory: %v\n", err)
		}
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file %s: %v, falling back to stderr\n", cfg.Output, err)
			output = os.Stderr
		} else {
			output = file
		}
	}

	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(output, opts)
	default:
		handler = slog.NewTextHandler(output, opts)
	}

	return slog.New(handler)
}
