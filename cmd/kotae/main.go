// Package main is the Kotae CLI entry point.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/hyperjump/kotae/internal/cli"
	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/corpus"
	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/extract"
	"github.com/hyperjump/kotae/internal/indexer"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/qa"
	"github.com/hyperjump/kotae/internal/search"
	"github.com/hyperjump/kotae/internal/server"
	"github.com/hyperjump/kotae/internal/storage"
	"github.com/hyperjump/kotae/internal/tui"
	"github.com/hyperjump/kotae/internal/watcher"
	"github.com/hyperjump/kotae/pkg/utils"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/kotae/config.yaml"

// loadConfig loads config from path. When path is the default and a config.yaml
// exists in the current directory, that file is used instead.
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
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "ingest":
		runIngest()
	case "ask":
		runAsk()
	case "chat":
		runChat()
	case "feedback":
		runFeedback()
	case "status":
		runStatus()
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

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
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

	restoreCorpus(components, logger)

	var watchSvc *watcher.Watcher
	if cfg.Document.Watch && cfg.Document.Path != "" {
		idx := components.Indexer
		watchSvc, err = watcher.NewWatcher(
			cfg.Document.Path,
			func(path string) {
				res, err := idx.Ingest(context.Background(), path)
				if err != nil {
					logger.Warn("re-ingestion after change failed", zap.String("path", path), zap.Error(err))
					return
				}
				logger.Info("document re-ingested",
					zap.String("path", path),
					zap.Int("chunks", res.ChunksCreated),
					zap.Int64("generation", res.Generation))
			},
			watcher.WithLogger(logger),
			watcher.WithRemoveHandler(func(path string) {
				logger.Warn("document removed, keeping the current corpus", zap.String("path", path))
			}),
		)
		if err != nil {
			logger.Fatal("Failed to create watcher", zap.Error(err))
		}
	}
	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if watchSvc != nil {
		if err := watchSvc.Start(watchCtx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
	}

	srv := server.NewServer(
		components.Engine,
		components.Indexer,
		components.Storage,
		components.Holder,
		cfg,
		logger,
	)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	if watchSvc != nil {
		watchSvc.Stop()
	}
	watchCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

// restoreCorpus publishes the persisted corpus, if any, so the server can answer
// before the next ingestion.
func restoreCorpus(c *Components, logger *zap.Logger) {
	restored, err := c.Indexer.Restore(context.Background())
	switch {
	case err != nil:
		logger.Warn("corpus restore failed", zap.Error(err))
	case restored:
		logger.Info("corpus restored", zap.Int64("generation", c.Holder.Generation()))
	default:
		logger.Info("no persisted corpus; process a document to enable search")
	}
}

// buildQuery joins all positional args with spaces so multi-word queries
// work the same with or without shell quoting.
func buildQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// argsReorder moves any flags (and their values) that appear after the
// positional arguments to the front, since flag.Parse stops at the first
// non-flag argument.
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

// thresholdFlag returns a pointer to v when the flag was set explicitly.
func thresholdFlag(fs *flag.FlagSet, name string, v float64) *float64 {
	set := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	if !set {
		return nil
	}
	return &v
}

func printAskUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: kotae ask [flags] <query>\n\n")
	fmt.Fprintf(fs.Output(), "Query is all remaining arguments joined by spaces.\n\n")
	fs.PrintDefaults()
	fmt.Fprintf(fs.Output(), `
Examples:
  kotae ask ¿Qué es una red neuronal?
  kotae ask --top-k 5 --threshold 0.2 "descenso del gradiente"
  kotae ask --output json función de activación
  kotae ask --server "" regularización     # without a running server
`)
}

func runAsk() {
	args := argsReorder(os.Args[2:])
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (direct mode)")
	serverURL := fs.String("server", cli.DefaultServerURL, "server URL (empty = answer directly from local storage)")
	topK := fs.Int("top-k", 0, "number of passages to return (0 = configured default)")
	threshold := fs.Float64("threshold", 0, "minimum similarity in [0,1] (default from config)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	fs.Usage = func() { printAskUsage(fs) }
	_ = fs.Parse(args)

	queryStr := buildQuery(fs.Args())
	if queryStr == "" {
		printAskUsage(fs)
		os.Exit(1)
	}
	format, err := cli.ParseFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	query := &models.SearchQuery{
		Query:     queryStr,
		TopK:      *topK,
		Threshold: thresholdFlag(fs, "threshold", *threshold),
	}

	var answer *models.SynthesizedAnswer
	if *serverURL != "" {
		answer, err = cli.NewClient(*serverURL).Ask(context.Background(), query)
	} else {
		answer, err = askDirect(*configPath, query)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ask failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteAnswer(os.Stdout, answer, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

// askDirect answers from the persisted corpus without a server.
func askDirect(configPath string, query *models.SearchQuery) (*models.SynthesizedAnswer, error) {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		return nil, err
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		return nil, err
	}
	defer components.Close()

	if _, err := components.Indexer.Restore(context.Background()); err != nil {
		return nil, err
	}
	return components.Engine.Search(context.Background(), query)
}

func runIngest() {
	args := argsReorder(os.Args[2:])
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (direct mode)")
	serverURL := fs.String("server", cli.DefaultServerURL, "server URL (empty = ingest directly into local storage)")
	_ = fs.Parse(args)

	// With no file argument the configured document is ingested.
	path := ""
	if fs.NArg() > 0 {
		abs, err := filepath.Abs(fs.Arg(0))
		if err != nil {
			fmt.Printf("Invalid path: %v\n", err)
			os.Exit(1)
		}
		path = abs
	}

	if *serverURL != "" {
		res, err := cli.NewClient(*serverURL).Process(context.Background(), path)
		if err != nil {
			fmt.Printf("Ingestion failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("%s: %d fragmentos (generación %d)\n", res.Message, res.ChunksCreated, res.Generation)
		return
	}

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if path == "" {
		path = cfg.Document.Path
	}
	if path == "" {
		fmt.Println("Usage: kotae ingest [flags] <file>")
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	res, err := components.Indexer.Ingest(context.Background(), path)
	if err != nil {
		fmt.Printf("Ingestion failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Documento procesado exitosamente: %d fragmentos (%s)\n", res.ChunksCreated, res.Info.SnapshotID)
}

func runChat() {
	fs := flag.NewFlagSet("chat", flag.ExitOnError)
	serverURL := fs.String("server", cli.DefaultServerURL, "server URL")
	topK := fs.Int("top-k", 0, "number of passages per answer (0 = server default)")
	_ = fs.Parse(os.Args[2:])

	m := tui.New(cli.NewClient(*serverURL), *topK)
	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Chat failed: %v\n", err)
		os.Exit(1)
	}
}

func runFeedback() {
	args := argsReorder(os.Args[2:])
	fs := flag.NewFlagSet("feedback", flag.ExitOnError)
	serverURL := fs.String("server", cli.DefaultServerURL, "server URL")
	messageID := fs.String("message-id", "", "id of the answer being rated")
	query := fs.String("query", "", "question that produced the answer")
	useful := fs.Bool("useful", true, "whether the answer was useful")
	_ = fs.Parse(args)

	if *messageID == "" {
		fmt.Println("Usage: kotae feedback --message-id <id> [--query <q>] [--useful=false] [comment]")
		os.Exit(1)
	}
	id, err := cli.NewClient(*serverURL).SendFeedback(context.Background(), cli.FeedbackInput{
		MessageID: *messageID,
		Query:     *query,
		Useful:    *useful,
		Comment:   buildQuery(fs.Args()),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Feedback failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Gracias por tu feedback. (%s)\n", id)
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (direct mode)")
	serverURL := fs.String("server", cli.DefaultServerURL, "server URL (empty = read local storage)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format, err := cli.ParseFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	var st *cli.Status
	if *serverURL != "" {
		st, err = cli.NewClient(*serverURL).Status(context.Background())
	} else {
		st, err = statusDirect(*configPath)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteStatus(os.Stdout, st, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

// statusDirect reports what is persisted without loading any index.
func statusDirect(configPath string) (*cli.Status, error) {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	ctx := context.Background()
	count, err := store.CountChunks(ctx)
	if err != nil {
		return nil, err
	}
	st := &cli.Status{
		Chunks:          count,
		DocumentPath:    cfg.Document.Path,
		VectorIndexType: cfg.Vector.IndexType,
		Config: map[string]interface{}{
			"embedding_provider": cfg.Embedding.Provider,
			"qa_provider":        cfg.QA.Provider,
			"index_type":         cfg.Vector.IndexType,
			"chunk_size":         cfg.Document.ChunkSize,
			"chunk_overlap":      cfg.Document.ChunkOverlap,
			"database_path":      cfg.Storage.DatabasePath,
			"vector_index_path":  cfg.Storage.VectorIndexPath,
			"keyword_index_path": cfg.Storage.KeywordIndexPath,
		},
	}
	info, err := store.GetCorpusInfo(ctx)
	switch {
	case err == nil:
		st.SnapshotID = info.SnapshotID
		st.Source = info.Source
		st.IngestedAt = &info.IngestedAt
	case !errors.Is(err, storage.ErrNotFound):
		return nil, err
	}
	if usage, err := storage.MeasureDiskUsage(cfg.Storage.DatabasePath, cfg.Storage.VectorIndexPath, cfg.Storage.KeywordIndexPath); err == nil {
		st.DiskUsage = &usage
	}
	return st, nil
}

// Components holds initialized services.
type Components struct {
	Storage  storage.Storage
	Embedder embedding.Embedder
	Reader   qa.Reader
	Holder   *corpus.Holder
	Engine   *search.Engine
	Indexer  *indexer.Indexer
}

// Close releases the components in reverse dependency order.
func (c *Components) Close() {
	if c.Holder != nil {
		_ = c.Holder.Close()
	}
	if c.Reader != nil {
		_ = c.Reader.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.Storage != nil {
		_ = c.Storage.Close()
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

	reader, err := qa.New(cfg.QA, logger)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize qa reader: %w", err)
	}
	c.Reader = reader

	c.Holder = corpus.NewHolder(corpus.WithLogger(logger))
	retriever := search.NewRetriever(
		embedder,
		reader,
		search.NewCleaner(cfg.Document.BoilerplatePhrases),
		search.PolicyFromConfig(cfg.Retrieval, cfg.QA),
		logger,
	)
	c.Engine = search.NewEngine(c.Holder, retriever, cfg.Retrieval, search.WithLogger(logger))

	idx, err := indexer.NewIndexer(
		store,
		embedder,
		c.Holder,
		extract.NewExtractor(extract.WithLogger(logger)),
		indexer.SettingsFromConfig(cfg),
		indexer.WithLogger(logger),
	)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize indexer: %w", err)
	}
	c.Indexer = idx
	return c, nil
}

func printUsage() {
	fmt.Println(`kotae - Spanish textbook question answering

Usage:
  kotae server [flags]            Start the HTTP server
  kotae ingest [flags] [file]     Process a document (default: document.path from config)
  kotae ask [flags] <query>       Ask a question
  kotae chat [flags]              Interactive chat against a running server
  kotae feedback [flags] [text]   Rate an answer
  kotae status [flags]            Show corpus/storage/index status
  kotae version                   Show version
  kotae help                      Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/kotae/config.yaml)
  --debug            Enable debug logging

Ask Flags:
  --server string     Server URL (default: http://localhost:8000). Use --server "" to answer from local storage.
  --config string     Config file path (direct mode)
  --top-k int         Number of passages (default from config)
  --threshold float   Minimum similarity in [0,1] (default from config)
  --output string     Output format: text or json (default: text)

Ingest Flags:
  --server string    Server URL. Use --server "" to ingest without a running server.
                     The server only ingests files in the directory of document.path.
  --config string    Config file path (direct mode)

Chat Flags:
  --server string    Server URL
  --top-k int        Passages per answer

Feedback Flags:
  --message-id string   Answer id (required)
  --query string        Question that produced the answer
  --useful              Whether the answer helped (default: true)

Status Flags:
  --server string    Server URL. Use --server "" to read local storage.
  --output string    Output format: text or json (default: text)

Examples:
  kotae server
  kotae ingest ./libro.pdf
  kotae ask "¿Qué es el descenso del gradiente?"
  kotae ask --output json --top-k 5 redes neuronales
  kotae chat
  kotae feedback --message-id 42 --useful=false "la respuesta no cita la página"
  kotae status --output json`)
}
