// ABOUTME: Entry point for the chatrelay server and CLI
// ABOUTME: Serves the chat front-end and relays messages to an n8n webhook

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"

	"github.com/sungyup/chatrelay/internal/auth"
	"github.com/sungyup/chatrelay/internal/config"
	"github.com/sungyup/chatrelay/internal/n8n"
	"github.com/sungyup/chatrelay/internal/store"
	"github.com/sungyup/chatrelay/internal/web"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
       _           _            _
   ___| |__   __ _| |_ _ __ ___| | __ _ _   _
  / __| '_ \ / _' | __| '__/ _ \ |/ _' | | | |
 | (__| | | | (_| | |_| | |  __/ | (_| | |_| |
  \___|_| |_|\__,_|\__|_|  \___|_|\__,_|\__, |
                                        |___/
`

// getConfigPath resolves the config file location. CHATRELAY_CONFIG
// overrides; otherwise the XDG config dir (or ~/.config) is used.
func getConfigPath() string {
	if p := os.Getenv("CHATRELAY_CONFIG"); p != "" {
		return p
	}

	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "chatrelay.yaml" // cwd fallback
		}
		base = filepath.Join(home, ".config")
	}

	return filepath.Join(base, "chatrelay", "chatrelay.yaml")
}

// getDataPath resolves the data directory: XDG_DATA_HOME/chatrelay,
// falling back to ~/.local/share/chatrelay.
func getDataPath() string {
	base := os.Getenv("XDG_DATA_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "data" // cwd fallback
		}
		base = filepath.Join(home, ".local", "share")
	}

	return filepath.Join(base, "chatrelay")
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: chatrelay <command>")
		fmt.Println()
		fmt.Println("Commands:")
		fmt.Println("  serve                  Start the chat server")
		fmt.Println("  init                   Create a new config file interactively")
		fmt.Println("  health                 Check server health")
		fmt.Println("  send <message>         Send one message and stream the reply")
		fmt.Println("  token --user NAME      Mint an API token")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx)
	case "init":
		err = runInit()
	case "health":
		err = runHealth(ctx)
	case "send":
		err = runSend(ctx)
	case "token":
		err = runToken()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(ctx context.Context) error {
	configPath := getConfigPath()

	// Print banner
	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	// Version info
	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Setup logger
	logger := setupLogger(cfg.Logging)
	slog.SetDefault(logger)

	// Startup info
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	green.Print("    ▶ ")
	fmt.Printf("Config:   %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("HTTP:     %s\n", cfg.Server.HTTPAddr)
	green.Print("    ▶ ")
	fmt.Printf("Webhook:  %s\n", cfg.Webhook.URL)
	green.Print("    ▶ ")
	fmt.Printf("Database: %s\n", cfg.Database.Path)
	if cfg.Auth.APITokenSecret != "" {
		green.Print("    ▶ ")
		fmt.Print("API auth: ")
		yellow.Println("enabled")
	}

	fmt.Println()

	logger.Info("starting chatrelay",
		"config", configPath,
		"http_addr", cfg.Server.HTTPAddr,
		"webhook_url", cfg.Webhook.URL,
	)

	st, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer st.Close()

	client := n8n.New(n8n.Config{
		URL:      cfg.Webhook.URL,
		Username: cfg.Webhook.Username,
		Password: cfg.Webhook.Password,
		Timeout:  cfg.Webhook.Timeout,
	}, logger)

	var verifier auth.TokenVerifier
	if cfg.Auth.APITokenSecret != "" {
		verifier = auth.NewJWTVerifier([]byte(cfg.Auth.APITokenSecret))
	}

	server := web.New(st, client, verifier)
	defer server.Close()

	mux := http.NewServeMux()
	server.RegisterRoutes(mux)

	httpServer := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: mux,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func setupLogger(cfg config.LoggingConfig) *slog.Logger {
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
		Level: level,
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = &colorHandler{
			level: level,
		}
	}

	return slog.New(handler)
}

// colorHandler provides colorized log output with thread-safe writes.
// Groups become dotted key prefixes, e.g. request.method=GET.
type colorHandler struct {
	mu     sync.Mutex
	level  slog.Level
	attrs  []slog.Attr
	prefix string
}

func (h *colorHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *colorHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var buf strings.Builder

	// Format timestamp
	buf.WriteString(color.HiBlackString(r.Time.Format("15:04:05") + " "))

	// Colorize level
	switch r.Level {
	case slog.LevelDebug:
		buf.WriteString(color.MagentaString("DBG "))
	case slog.LevelInfo:
		buf.WriteString(color.CyanString("INF "))
	case slog.LevelWarn:
		buf.WriteString(color.YellowString("WRN "))
	case slog.LevelError:
		buf.WriteString(color.New(color.FgRed, color.Bold).Sprint("ERR "))
	default:
		buf.WriteString("??? ")
	}

	// Print message
	buf.WriteString(r.Message)

	// Handler-level attrs carry their prefix already; record attrs get
	// the prefix current at Handle time.
	for _, a := range h.attrs {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
	}
	r.Attrs(func(a slog.Attr) bool {
		buf.WriteString(color.HiBlackString(" " + h.prefix + a.Key + "="))
		buf.WriteString(a.Value.String())
		return true
	})

	buf.WriteString("\n")
	fmt.Print(buf.String())
	return nil
}

func (h *colorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]slog.Attr, len(h.attrs), len(h.attrs)+len(attrs))
	copy(newAttrs, h.attrs)
	for _, a := range attrs {
		a.Key = h.prefix + a.Key
		newAttrs = append(newAttrs, a)
	}
	return &colorHandler{
		level:  h.level,
		attrs:  newAttrs,
		prefix: h.prefix,
	}
}

func (h *colorHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &colorHandler{
		level:  h.level,
		attrs:  h.attrs,
		prefix: h.prefix + name + ".",
	}
}

func runHealth(ctx context.Context) error {
	configPath := getConfigPath()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	url := fmt.Sprintf("http://%s/api/health", cfg.Server.HTTPAddr)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}

	fmt.Println("healthy")
	return nil
}

// runSend relays a single message straight to the webhook and streams
// the chunks to the terminal as they arrive.
func runSend(ctx context.Context) error {
	if len(os.Args) < 3 {
		return fmt.Errorf("usage: chatrelay send <message>")
	}
	message := strings.Join(os.Args[2:], " ")

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := setupLogger(config.LoggingConfig{Level: "warn"})
	client := n8n.New(n8n.Config{
		URL:      cfg.Webhook.URL,
		Username: cfg.Webhook.Username,
		Password: cfg.Webhook.Password,
		Timeout:  cfg.Webhook.Timeout,
	}, logger)

	sessionID := uuid.New().String()
	gray := color.New(color.FgHiBlack)
	gray.Printf("session %s\n\n", sessionID)

	payload := map[string]any{
		"sessionId": sessionID,
		"chatInput": message,
		"message":   message,
		"user":      "cli",
		"timestamp": time.Now().Format(time.RFC3339),
	}

	start := time.Now()
	err = client.ProcessStream(ctx, payload, n8n.Callbacks{
		OnChunk: func(chunk *n8n.Chunk, content string) {
			fmt.Print(chunk.Content)
		},
		OnComplete: func(content string, metadata map[string]any) {
			fmt.Println()
			gray.Printf("\ndone in %s (%d chars)\n", time.Since(start).Round(time.Millisecond), len(content))
		},
	})
	if err != nil {
		return fmt.Errorf("streaming: %w", err)
	}
	return nil
}

// runToken mints an API token for use against /api/* endpoints when
// auth.api_token_secret is configured.
func runToken() error {
	var user string
	ttl := 30 * 24 * time.Hour

	args := os.Args[2:]
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--user" || arg == "-u":
			if i+1 >= len(args) {
				return fmt.Errorf("--user requires a value")
			}
			user = args[i+1]
			i++
		case strings.HasPrefix(arg, "--user="):
			user = strings.TrimPrefix(arg, "--user=")
		case arg == "--ttl":
			if i+1 >= len(args) {
				return fmt.Errorf("--ttl requires a value")
			}
			d, err := time.ParseDuration(args[i+1])
			if err != nil {
				return fmt.Errorf("invalid ttl: %w", err)
			}
			ttl = d
			i++
		case strings.HasPrefix(arg, "--ttl="):
			d, err := time.ParseDuration(strings.TrimPrefix(arg, "--ttl="))
			if err != nil {
				return fmt.Errorf("invalid ttl: %w", err)
			}
			ttl = d
		case strings.HasPrefix(arg, "-"):
			return fmt.Errorf("unknown flag: %s", arg)
		default:
			return fmt.Errorf("unexpected argument: %s", arg)
		}
	}

	if user == "" {
		return fmt.Errorf("--user flag is required")
	}

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if cfg.Auth.APITokenSecret == "" {
		return fmt.Errorf("auth.api_token_secret not configured in %s", configPath)
	}

	verifier := auth.NewJWTVerifier([]byte(cfg.Auth.APITokenSecret))
	token, err := verifier.Generate(user, ttl)
	if err != nil {
		return fmt.Errorf("generating token: %w", err)
	}

	fmt.Println(token)
	return nil
}

func runInit() error {
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("chatrelay configuration setup")
	fmt.Println("=============================")
	fmt.Println()

	// Default paths
	defaultConfigPath := getConfigPath()
	defaultDataPath := getDataPath()
	defaultDbPath := filepath.Join(defaultDataPath, "chatrelay.db")

	// Output filename
	outputFile := prompt(reader, "Config file path", defaultConfigPath)

	// Check if file exists
	if _, err := os.Stat(outputFile); err == nil {
		overwrite := prompt(reader, "File exists. Overwrite?", "no")
		if strings.ToLower(overwrite) != "yes" && strings.ToLower(overwrite) != "y" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	// Server configuration
	fmt.Println("\n--- Server Configuration ---")
	httpAddr := prompt(reader, "HTTP address", config.DefaultHTTPAddr)

	// Webhook
	fmt.Println("\n--- Webhook Configuration ---")
	webhookURL := prompt(reader, "n8n webhook URL", "")
	webhookUser := prompt(reader, "Webhook basic auth username", "")
	webhookTimeout := prompt(reader, "Webhook timeout", "60s")

	// Database
	fmt.Println("\n--- Database Configuration ---")
	dbPath := prompt(reader, "SQLite database path", defaultDbPath)

	// Logging
	fmt.Println("\n--- Logging Configuration ---")
	logLevel := prompt(reader, "Log level (debug/info/warn/error)", "info")
	logFormat := prompt(reader, "Log format (text/json)", "text")

	// Generate config. The password comes from the environment so it
	// never lands in the file.
	var cfg strings.Builder
	cfg.WriteString("# chatrelay configuration\n")
	cfg.WriteString("# Generated by chatrelay init\n\n")

	cfg.WriteString("server:\n")
	cfg.WriteString(fmt.Sprintf("  http_addr: \"%s\"\n", httpAddr))
	cfg.WriteString("\n")

	cfg.WriteString("webhook:\n")
	cfg.WriteString(fmt.Sprintf("  url: \"%s\"\n", webhookURL))
	cfg.WriteString(fmt.Sprintf("  username: \"%s\"\n", webhookUser))
	cfg.WriteString("  password: \"${WEBHOOK_PASSWORD}\"\n")
	cfg.WriteString(fmt.Sprintf("  timeout: \"%s\"\n", webhookTimeout))
	cfg.WriteString("\n")

	cfg.WriteString("database:\n")
	cfg.WriteString(fmt.Sprintf("  path: \"%s\"\n", dbPath))
	cfg.WriteString("\n")

	cfg.WriteString("logging:\n")
	cfg.WriteString(fmt.Sprintf("  level: \"%s\"\n", logLevel))
	cfg.WriteString(fmt.Sprintf("  format: \"%s\"\n", logFormat))

	// Ensure config directory exists
	configDir := filepath.Dir(outputFile)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	// Write config file
	if err := os.WriteFile(outputFile, []byte(cfg.String()), 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	// Ensure data directory exists
	dataDir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	fmt.Printf("\nConfig written to %s\n", outputFile)
	fmt.Printf("Data directory: %s\n", dataDir)
	fmt.Println("\nSet the webhook password, then start the server:")
	fmt.Println("  export WEBHOOK_PASSWORD=...")
	fmt.Println("  chatrelay serve")

	return nil
}

func prompt(reader *bufio.Reader, question, defaultVal string) string {
	if defaultVal != "" {
		fmt.Printf("%s [%s]: ", question, defaultVal)
	} else {
		fmt.Printf("%s: ", question)
	}

	input, err := reader.ReadString('\n')
	if err != nil {
		// On EOF or error, return default
		fmt.Println()
		return defaultVal
	}
	input = strings.TrimSpace(input)

	if input == "" {
		return defaultVal
	}
	return input
}
