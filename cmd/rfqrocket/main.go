// Package main is the RFQ Rocket CLI entry point.
package main

import (
	"context"
	"encoding/json"
	"errors"
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

	"github.com/hyperjump/rfqrocket/internal/cli"
	"github.com/hyperjump/rfqrocket/internal/config"
	"github.com/hyperjump/rfqrocket/internal/keyword"
	"github.com/hyperjump/rfqrocket/internal/llm"
	"github.com/hyperjump/rfqrocket/internal/mail"
	"github.com/hyperjump/rfqrocket/internal/metrics"
	"github.com/hyperjump/rfqrocket/internal/models"
	"github.com/hyperjump/rfqrocket/internal/rfq"
	"github.com/hyperjump/rfqrocket/internal/server"
	"github.com/hyperjump/rfqrocket/internal/service"
	"github.com/hyperjump/rfqrocket/internal/storage"
	"github.com/hyperjump/rfqrocket/internal/watcher"
	"github.com/hyperjump/rfqrocket/pkg/utils"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/rfqrocket/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development); if that exists it is used.
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
	case "generate":
		runGenerate()
	case "list":
		runList()
	case "search":
		runSearch()
	case "delete":
		runDelete()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("rfqrocket version %s\n", version)
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
	debug := fs.Bool("debug", false, "enable debug logging (chunk extraction, inbox events, etc.)")
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

	components, err := initializeComponents(cfg, logger, true)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	srv := server.NewServer(
		components.Service,
		&cfg.Server,
		cfg.Storage.UploadDir,
		cfg.Watch.Extensions,
		logger,
		server.WithMetrics(components.Metrics),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(srv.Start)
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Stop(shutdownCtx)
	})

	if cfg.Watch.Enabled && cfg.Watch.Inbox != "" {
		watchOpts := []watcher.WatcherOption{}
		if debugMode {
			watchOpts = append(watchOpts, watcher.WithLogger(logger))
		}
		svc := components.Service
		inbox := watcher.NewWatcher(cfg.Watch.Inbox, cfg.Watch.Extensions,
			func(ctx context.Context, path string) {
				gen, err := svc.ProcessFile(ctx, path, "")
				switch {
				case errors.Is(err, service.ErrAlreadyProcessed):
					logger.Debug("inbox file already processed", zap.String("path", path))
				case err != nil:
					logger.Warn("inbox file failed", zap.String("path", path), zap.Error(err))
				default:
					logger.Info("inbox file processed",
						zap.String("path", path),
						zap.String("output", gen.OutputName))
				}
			},
			watchOpts...,
		)
		g.Go(func() error { return inbox.Run(gctx) })
	}

	if err := g.Wait(); err != nil {
		logger.Error("Server stopped with error", zap.Error(err))
	}
}

func runGenerate() {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	format := fs.String("format", "", "output format: docx or xlsx (default from config)")
	out := fs.String("out", "", "also copy the output document to this path")
	email := fs.String("email", "", "email the output document to this address")
	asJSON := fs.Bool("json", false, "print the generation as JSON")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: rfqrocket generate [flags] <file>")
		os.Exit(1)
	}
	path := fs.Arg(0)

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger, true)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	content, err := os.ReadFile(path)
	if err != nil {
		fmt.Printf("Failed to read file: %v\n", err)
		os.Exit(1)
	}
	ctx := context.Background()
	gen, err := components.Service.Process(ctx, service.Input{
		SourceName: filepath.Base(path),
		Content:    content,
		Format:     *format,
	})
	if err != nil {
		fmt.Printf("Generation failed: %v\n", err)
		os.Exit(1)
	}

	outputFormat := cli.OutputText
	if *asJSON {
		outputFormat = cli.OutputJSON
	}
	if err := cli.WriteGeneration(os.Stdout, gen, outputFormat); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
	if !*asJSON {
		fmt.Println()
		_ = cli.WriteRecord(os.Stdout, gen.Record, cli.OutputText)
	}

	if *out != "" {
		if err := copyOutput(components.Service, gen.OutputName, *out); err != nil {
			fmt.Printf("Copy failed: %v\n", err)
			os.Exit(1)
		}
	}
	if *email != "" {
		if err := components.Service.Email(ctx, *email, gen.OutputName); err != nil {
			fmt.Printf("Email failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "Sent %s to %s\n", gen.OutputName, *email)
	}
}

// copyOutput copies a rendered document out of the processed directory.
// A directory destination keeps the generated file name.
func copyOutput(svc *service.Service, outputName, dst string) error {
	src, err := svc.OutputPath(outputName)
	if err != nil {
		return err
	}
	if info, err := os.Stat(dst); err == nil && info.IsDir() {
		dst = filepath.Join(dst, outputName)
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	f, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, in); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func runList() {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	offset := fs.Int("offset", 0, "number of generations to skip")
	limit := fs.Int("limit", 20, "number of generations to show")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format := parseOutputFormat(*outputFormat)
	components, cleanup := directComponents(*configPath)
	defer cleanup()

	gens, total, err := components.Service.List(context.Background(), *offset, *limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "List failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteGenerations(os.Stdout, gens, total, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

// buildSearchQuery joins all positional args with spaces so multi-word queries
// work the same with or without shell quoting.
func buildSearchQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// searchArgsReorder moves any flags (and their values) that appear after the query
// to the front of the slice so that flag.Parse() sees them. Go's flag package
// stops at the first non-flag argument.
func searchArgsReorder(args []string) []string {
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

func runSearch() {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "", "server URL (empty = open storage directly; required while the server runs)")
	limit := fs.Int("limit", 10, "number of results")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(searchArgsReorder(os.Args[2:]))

	queryStr := buildSearchQuery(fs.Args())
	if queryStr == "" {
		fmt.Println("Usage: rfqrocket search [flags] <query>")
		os.Exit(1)
	}
	format := parseOutputFormat(*outputFormat)
	query := &models.SearchQuery{Query: queryStr, Limit: *limit}

	var response *models.SearchResponse
	var err error
	if *serverURL != "" {
		response, err = searchViaHTTP(*serverURL, query)
	} else {
		components, cleanup := directComponents(*configPath)
		defer cleanup()
		response, err = components.Service.Search(context.Background(), query)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteSearchResults(os.Stdout, response, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func searchViaHTTP(serverURL string, query *models.SearchQuery) (*models.SearchResponse, error) {
	u := fmt.Sprintf("%s/api/v1/search?q=%s&limit=%d",
		strings.TrimRight(serverURL, "/"), url.QueryEscape(query.Query), query.Limit)
	resp, err := http.Get(u)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var response models.SearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &response, nil
}

func runDelete() {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: rfqrocket delete [flags] <generation-id>")
		os.Exit(1)
	}
	id := fs.Arg(0)

	components, cleanup := directComponents(*configPath)
	defer cleanup()

	if err := components.Service.Delete(context.Background(), id); err != nil {
		fmt.Printf("Deletion failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Generation deleted: %s\n", id)
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format := parseOutputFormat(*outputFormat)
	components, cleanup := directComponents(*configPath)
	defer cleanup()

	st, err := components.Service.Status(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
		os.Exit(1)
	}
	if format == cli.OutputJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(st)
		return
	}
	fmt.Printf("Generations: %d\n", st.Generations)
	fmt.Printf("Indexed:     %d\n", st.Indexed)
	fmt.Printf("Disk usage:  %s (database %s, index %s, documents %s)\n",
		formatBytes(st.Usage.Total()),
		formatBytes(st.Usage.DatabaseBytes),
		formatBytes(st.Usage.IndexBytes),
		formatBytes(st.Usage.DocumentsBytes))
}

func parseOutputFormat(s string) cli.OutputFormat {
	switch s {
	case "json":
		return cli.OutputJSON
	case "text":
		return cli.OutputText
	default:
		fmt.Printf("Unknown output format %q; use text or json\n", s)
		os.Exit(1)
	}
	return cli.OutputText
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

// directComponents loads config and opens storage for one-shot commands
// that never call the language model.
func directComponents(configPath string) (*Components, func()) {
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
	components, err := initializeComponents(cfg, logger, false)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	return components, func() {
		components.Close()
		_ = logger.Sync()
	}
}

// Components holds initialized services.
type Components struct {
	Storage   storage.Storage
	Index     keyword.Index
	Generator *rfq.Generator
	Metrics   *metrics.Metrics
	Service   *service.Service
}

func (c *Components) Close() {
	if c.Generator != nil {
		_ = c.Generator.Close()
	}
	if c.Index != nil {
		_ = c.Index.Close()
	}
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
}

// initializeComponents wires storage, the search index and email delivery
// into a Service. The extraction service client and the worker pool are only
// built when withGenerator is set, so read-only commands need no API key.
func initializeComponents(cfg *config.Config, logger *zap.Logger, withGenerator bool) (*Components, error) {
	c := &Components{Metrics: metrics.New()}

	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	c.Storage = store

	idx, err := keyword.NewBleveIndex(cfg.Storage.BleveIndexPath)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize keyword index: %w", err)
	}
	c.Index = idx

	var gen service.Generator
	if withGenerator {
		g, err := newGenerator(cfg, logger, c.Metrics)
		if err != nil {
			c.Close()
			return nil, err
		}
		c.Generator = g
		gen = g
	}

	opts := []service.Option{
		service.WithLogger(logger),
		service.WithIndex(idx),
	}
	if cfg.Email.SMTPServer != "" {
		sender := mail.NewSMTPSender(mail.SMTPConfig{
			Host:     cfg.Email.SMTPServer,
			Port:     cfg.Email.SMTPPort,
			Username: cfg.Email.Username,
			Password: cfg.Email.Password,
			From:     cfg.Email.From,
		}, mail.WithLogger(logger))
		opts = append(opts, service.WithSender(sender))
	}

	svc, err := service.New(gen, store, service.Config{
		ProcessedDir:  cfg.Storage.ProcessedDir,
		DefaultFormat: cfg.Generation.Format,
		DatabasePath:  cfg.Storage.DatabasePath,
		IndexPath:     cfg.Storage.BleveIndexPath,
	}, opts...)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize service: %w", err)
	}
	c.Service = svc
	return c, nil
}

// newGenerator builds the extraction service client and the worker pool.
func newGenerator(cfg *config.Config, logger *zap.Logger, m *metrics.Metrics) (*rfq.Generator, error) {
	client, err := llm.NewOpenAIClient(llm.OpenAIConfig{
		BaseURL:   cfg.LLM.BaseURL,
		Model:     cfg.LLM.Model,
		APIKey:    cfg.LLM.APIKey,
		APIKeyEnv: cfg.LLM.APIKeyEnv,
		Timeout:   cfg.LLM.Timeout,
	}, llm.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize llm client: %w", err)
	}

	extractor, err := rfq.NewExtractor(client,
		rfq.WithExtractorLogger(logger),
		rfq.WithRecorder(m),
		rfq.WithSampling(cfg.LLM.Temperature, cfg.LLM.MaxTokens),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize extractor: %w", err)
	}
	return rfq.NewGenerator(extractor,
		rfq.WithWorkers(cfg.Generation.Workers),
		rfq.WithMaxChunkLength(cfg.Generation.MaxChunkLength),
		rfq.WithLogger(logger),
		rfq.WithGenerationRecorder(m),
	), nil
}

func printUsage() {
	fmt.Println(`rfqrocket - Turn solicitation documents into structured RFQ summaries

Usage:
  rfqrocket server [flags]             Start the HTTP server (and inbox watcher if enabled)
  rfqrocket generate [flags] <file>    Generate an RFQ document from a PDF, DOCX or TXT file
  rfqrocket list [flags]               List past generations, newest first
  rfqrocket search [flags] <query>     Search past generations
  rfqrocket delete [flags] <id>        Delete a generation and its document
  rfqrocket status [flags]             Show generation count and disk usage
  rfqrocket version                    Show version
  rfqrocket help                       Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/rfqrocket/config.yaml)
  --debug            Enable debug logging

Generate Flags:
  --config string    Config file path
  --format string    Output format: docx or xlsx (default from config)
  --out string       Copy the output document to this file or directory
  --email string     Email the output document to this address
  --json             Print the generation as JSON

List Flags:
  --offset int       Generations to skip (default: 0)
  --limit int        Generations to show (default: 20)
  --output string    Output format: text or json (default: text)

Search Flags:
  --server string    Query a running server instead of opening storage directly
  --limit int        Number of results (default: 10)
  --output string    Output format: text or json (default: text)

Examples:
  rfqrocket server
  rfqrocket generate solicitation.pdf
  rfqrocket generate --format xlsx --out ~/Desktop rfp.docx
  rfqrocket generate --email buyer@example.com rfp.pdf
  rfqrocket search --server http://localhost:5000 "laptop docking stations"
  rfqrocket list --output json`)
}
