// Package main is the kotae CLI entry point.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/hyperjump/kotae/internal/cli"
	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/extract"
	"github.com/hyperjump/kotae/internal/indexer"
	"github.com/hyperjump/kotae/internal/llm"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/pipeline"
	"github.com/hyperjump/kotae/internal/retrieval"
	"github.com/hyperjump/kotae/internal/server"
	"github.com/hyperjump/kotae/internal/storage"
	"github.com/hyperjump/kotae/internal/vector"
	"github.com/hyperjump/kotae/internal/watcher"
	"github.com/hyperjump/kotae/internal/weather"
	"github.com/hyperjump/kotae/pkg/utils"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

var version = "dev"

const (
	defaultConfigPath = "/usr/local/etc/kotae/config.yaml"
	defaultServerURL  = "http://localhost:8080"
	clientTimeout     = 10 * time.Minute
)

// loadConfig loads config from path. When path is the default, a config.yaml in
// the current directory takes precedence, and a missing default file yields the
// built-in defaults. Returns the config and the path actually loaded ("" for defaults).
func loadConfig(path string) (*config.Config, string, error) {
	if err := config.LoadEnv(); err != nil {
		return nil, "", err
	}
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
		if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
			cfg := config.Default()
			return cfg, "", cfg.Validate()
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func newLogger(cfg *config.Config, debug bool) (*zap.Logger, error) {
	if cfg.Logging.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Logging.File), 0755); err != nil {
			return nil, err
		}
		return utils.NewFileLogger(debug, cfg.Logging.File), nil
	}
	return utils.NewLogger(debug)
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
	case "ask":
		runAsk()
	case "batch":
		runBatch()
	case "ingest":
		runIngest()
	case "status":
		runStatus()
	case "clear":
		runClear()
	case "version", "--version", "-v":
		fmt.Printf("kotae version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

// setup loads config, builds the logger and initializes every component.
func setup(configPath string, debugFlag bool) (*config.Config, *zap.Logger, *Components) {
	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		fatalf("Failed to load config: %v", err)
	}
	debug := cfg.Debug || debugFlag
	logger, err := newLogger(cfg, debug)
	if err != nil {
		fatalf("Failed to create logger: %v", err)
	}
	logger.Debug("config loaded", zap.String("config_path", resolved), zap.Bool("debug", debug))

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		_ = logger.Sync()
		fatalf("Failed to initialize: %v", err)
	}
	return cfg, logger, components
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, logger, components := setup(*configPath, *debug)
	defer logger.Sync()
	defer components.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Ingest.Watch {
		w := watcher.New(cfg.Ingest.DocumentsDir, components.Indexer, watcher.WithLogger(logger))
		if err := w.Start(ctx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
		defer w.Stop()
		go w.SyncExistingFiles()
		logger.Info("watching documents directory", zap.String("dir", w.Root()))
	}

	srv := server.NewServer(components.Pipeline, components.Indexer, cfg.Server,
		server.WithLogger(logger),
		server.WithVersion(version),
	)
	go func() {
		if err := srv.Start(); err != nil {
			logger.Error("Server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(shutdownCtx)
}

// argsReorder moves any flags that appear after the positional arguments to the
// front, since flag.Parse stops at the first non-flag argument.
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

// buildQuestion joins positional args so questions work with or without quoting.
func buildQuestion(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

func parseFormat(s string) cli.OutputFormat {
	format, err := cli.ParseOutputFormat(s)
	if err != nil {
		fatalf("%v", err)
	}
	return format
}

func runAsk() {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (used when --server is empty)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = answer locally)")
	output := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(argsReorder(os.Args[2:]))

	question := buildQuestion(fs.Args())
	if question == "" {
		fmt.Println("Usage: kotae ask [flags] <question>")
		os.Exit(1)
	}
	format := parseFormat(*output)
	ctx := context.Background()

	var resp *models.QueryResponse
	if *serverURL != "" {
		r, err := cli.NewClient(*serverURL, clientTimeout).Ask(ctx, question)
		if err != nil {
			fatalf("Query failed: %v", err)
		}
		resp = r
	} else {
		_, logger, components := setup(*configPath, false)
		defer logger.Sync()
		defer components.Close()
		start := time.Now()
		state, err := components.Pipeline.Run(ctx, question)
		if err != nil {
			fatalf("Query failed: %v", err)
		}
		resp = models.NewQueryResponse(state, time.Since(start))
	}
	if err := cli.WriteAnswer(os.Stdout, resp, format); err != nil {
		fatalf("Output failed: %v", err)
	}
}

// readQuestions returns the non-blank lines of r. Lines starting with # are skipped.
func readQuestions(r io.Reader) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out, sc.Err()
}

func runBatch() {
	fs := flag.NewFlagSet("batch", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (used when --server is empty)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = answer locally)")
	output := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(argsReorder(os.Args[2:]))

	if fs.NArg() < 1 {
		fmt.Println("Usage: kotae batch [flags] <questions-file|->")
		os.Exit(1)
	}
	format := parseFormat(*output)

	in := io.Reader(os.Stdin)
	if name := fs.Arg(0); name != "-" {
		f, err := os.Open(name)
		if err != nil {
			fatalf("Failed to open questions: %v", err)
		}
		defer f.Close()
		in = f
	}
	questions, err := readQuestions(in)
	if err != nil {
		fatalf("Failed to read questions: %v", err)
	}
	req := models.BatchQueryRequest{Questions: questions}
	if err := req.Validate(); err != nil {
		fatalf("Invalid batch: %v", err)
	}
	ctx := context.Background()

	var resp *models.BatchQueryResponse
	if *serverURL != "" {
		r, err := cli.NewClient(*serverURL, clientTimeout).AskMany(ctx, req.Questions)
		if err != nil {
			fatalf("Batch failed: %v", err)
		}
		resp = r
	} else {
		_, logger, components := setup(*configPath, false)
		defer logger.Sync()
		defer components.Close()
		start := time.Now()
		items := components.Pipeline.RunMany(ctx, req.Questions)
		resp = batchResponse(items)
		resp.TotalTime = time.Since(start).Seconds()
	}
	if err := cli.WriteBatch(os.Stdout, resp, format); err != nil {
		fatalf("Output failed: %v", err)
	}
}

func batchResponse(items []pipeline.BatchItem) *models.BatchQueryResponse {
	resp := &models.BatchQueryResponse{Results: make([]*models.QueryResponse, len(items))}
	for i, item := range items {
		if item.Err != nil {
			resp.Results[i] = models.NewErrorResponse(item.Question, item.Err)
			continue
		}
		resp.Results[i] = models.NewQueryResponse(item.State, item.Elapsed)
	}
	return resp
}

func runIngest() {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(argsReorder(os.Args[2:]))

	if fs.NArg() < 1 {
		fmt.Println("Usage: kotae ingest [flags] <file-or-directory>")
		os.Exit(1)
	}
	path := fs.Arg(0)
	info, err := os.Stat(path)
	if err != nil {
		fatalf("Failed to stat path: %v", err)
	}

	_, logger, components := setup(*configPath, *debug)
	defer logger.Sync()
	defer components.Close()
	ctx := context.Background()

	if info.IsDir() {
		res, err := components.Indexer.IndexDirectory(ctx, path)
		if err != nil {
			fatalf("Ingesting directory failed: %v", err)
		}
		fmt.Printf("Ingested %d file(s), skipped %d unchanged, %d failed, %d chunk(s) from %s\n",
			res.Indexed, res.Skipped, res.Failed, res.Chunks, path)
		for _, e := range res.Errors {
			fmt.Fprintf(os.Stderr, "  %s\n", e)
		}
		return
	}
	res, err := components.Indexer.IndexFile(ctx, path)
	if err != nil {
		fatalf("Ingesting failed: %v", err)
	}
	if res.Skipped {
		fmt.Printf("Unchanged, skipped: %s\n", res.DocumentID)
		return
	}
	fmt.Printf("Document ingested: %s (%d chunks)\n", res.DocumentID, res.Chunks)
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (used when --server is empty)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = read local storage)")
	output := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])
	format := parseFormat(*output)
	ctx := context.Background()

	var info *models.CollectionInfo
	if *serverURL != "" {
		res, err := cli.NewClient(*serverURL, clientTimeout).Collection(ctx)
		if err != nil {
			fatalf("Status failed: %v", err)
		}
		info = res
	} else {
		_, logger, components := setup(*configPath, false)
		defer logger.Sync()
		defer components.Close()
		res, err := components.Indexer.Info(ctx)
		if err != nil {
			fatalf("Status failed: %v", err)
		}
		info = res
	}
	if err := cli.WriteCollectionInfo(os.Stdout, info, format); err != nil {
		fatalf("Output failed: %v", err)
	}
}

func runClear() {
	fs := flag.NewFlagSet("clear", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (used when --server is empty)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = clear local storage)")
	_ = fs.Parse(os.Args[2:])
	ctx := context.Background()

	if *serverURL != "" {
		if err := cli.NewClient(*serverURL, clientTimeout).Clear(ctx); err != nil {
			fatalf("Clear failed: %v", err)
		}
	} else {
		_, logger, components := setup(*configPath, false)
		defer logger.Sync()
		defer components.Close()
		if err := components.Indexer.Clear(ctx); err != nil {
			fatalf("Clear failed: %v", err)
		}
	}
	fmt.Println("Collection cleared")
}

// Components holds initialized services.
type Components struct {
	Storage     storage.Storage
	Embedder    embedding.Embedder
	VectorIndex vector.VectorIndex
	Indexer     *indexer.Indexer
	Retrieval   *retrieval.Engine
	Pipeline    *pipeline.Orchestrator
}

func (c *Components) Close() {
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.VectorIndex != nil {
		_ = c.VectorIndex.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	c := &Components{Storage: store}

	embedder, err := embedding.New(cfg.Embedding, logger)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}
	c.Embedder = embedder

	vectorIndex, err := vector.NewVectorIndex(cfg, logger)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize vector index: %w", err)
	}
	c.VectorIndex = vectorIndex
	logger.Info("vector index initialized", zap.String("backend", cfg.Retrieval.Backend))

	idxOpts := []indexer.IndexerOption{indexer.WithLogger(logger)}
	switch cfg.Retrieval.Backend {
	case config.BackendQdrant:
		idxOpts = append(idxOpts, indexer.WithCollection(cfg.Retrieval.Qdrant.Collection, cfg.Retrieval.Backend))
	default:
		idxOpts = append(idxOpts,
			indexer.WithCollection("local", cfg.Retrieval.Backend),
			indexer.WithIndexPath(cfg.Storage.VectorIndexPath))
	}
	c.Indexer = indexer.NewIndexer(store, embedder, vectorIndex, cfg.Ingest, extract.NewExtractor(cfg.Ingest.Extensions...), idxOpts...)

	engine, err := retrieval.New(cfg, embedder, vectorIndex, store, logger)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize retrieval: %w", err)
	}
	c.Retrieval = engine

	client, err := llm.New(cfg.LLM, logger)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize llm client: %w", err)
	}

	w := cfg.Weather
	fetcher := weather.NewClient(w.BaseURL, w.APIKey,
		weather.WithUnits(w.Units),
		weather.WithTimeout(w.Timeout),
		weather.WithRateLimit(w.RequestsPerSecond),
		weather.WithCacheTTL(w.CacheTTL),
		weather.WithLogger(logger),
	)

	c.Pipeline = pipeline.New(client, fetcher, engine, pipeline.ConfigFrom(cfg),
		pipeline.WithLogger(logger),
		pipeline.WithMetrics(pipeline.NewMetrics(prometheus.DefaultRegisterer)),
	)
	return c, nil
}

func printUsage() {
	fmt.Println(`kotae - question answering over live weather and your documents

Usage:
  kotae server [flags]              Start the HTTP server
  kotae ask [flags] <question>      Answer one question
  kotae batch [flags] <file|->      Answer one question per line (max 50)
  kotae ingest [flags] <path>       Ingest a PDF/text file or a directory
  kotae status [flags]              Show collection statistics
  kotae clear [flags]               Remove every ingested document
  kotae version                     Show version
  kotae help                        Show this help

Common Flags:
  --config string    Config file path (default: /usr/local/etc/kotae/config.yaml,
                     or ./config.yaml when present)
  --server string    Server URL for ask, batch, status and clear (default: http://localhost:8080).
                     Use --server "" to work on local storage without a running server.
  --output string    Output format for ask, batch and status: text or json (default: text)
  --debug            Enable debug logging (server, ingest)

Secrets are read from OPENAI_API_KEY, OPENWEATHER_API_KEY and COHERE_API_KEY,
optionally from a .env file in the current directory.

Examples:
  kotae server
  kotae ingest ~/Documents/handbook.pdf
  kotae ask "What's the weather in Mumbai?"
  kotae ask --output json what does the handbook say about leave
  kotae batch questions.txt
  kotae status --server ""`)
}
