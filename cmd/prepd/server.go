package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"golang.org/x/net/netutil"
	"golang.org/x/sync/errgroup"

	"github.com/kalambet/prepd/internal/api"
	"github.com/kalambet/prepd/internal/attempts"
	"github.com/kalambet/prepd/internal/config"
	"github.com/kalambet/prepd/internal/performance"
	"github.com/kalambet/prepd/internal/storage"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the prepd server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		withMCP, _ := cmd.Flags().GetBool("mcp")
		return runServer(withMCP)
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running prepd server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show prepd server status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus(cmd.Context())
	},
}

func init() {
	startCmd.Flags().Bool("mcp", true, "serve MCP over stdin/stdout alongside HTTP")
}

const shutdownTimeout = 5 * time.Second

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "prepd.pid")
}

func writePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func removePIDFile(path string) {
	os.Remove(path)
}

func setupLogging(level string) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		l = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l})))
}

func runServer(withMCP bool) error {
	fmt.Fprintf(os.Stderr, "prepd version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	setupLogging(cfg.Log.Level)

	mode, err := performance.ParseMode(cfg.Performance.Averaging)
	if err != nil {
		return err
	}
	policy, err := performance.ParsePolicy(cfg.Performance.AccuracyPolicy)
	if err != nil {
		return err
	}

	apiToken, err := config.GetAPIToken(config.NewSecretStore())
	if err != nil {
		return fmt.Errorf("initializing API token: %w", err)
	}
	slog.Info("API bearer token available")

	// Refuse to start twice on the same port.
	pidPath := pidFilePath(cfg.Storage.DataDir)
	healthURL := fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(healthURL); err == nil {
		resp.Body.Close()
		if pid, pidErr := readPIDFile(pidPath); pidErr == nil {
			printWarning("prepd is already running (PID %d)", pid)
			return fmt.Errorf("server already running (PID %d)", pid)
		}
		printWarning("prepd is already running on port %d", cfg.Server.Port)
		return fmt.Errorf("server already running on port %d", cfg.Server.Port)
	}
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePIDFile(pidPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			slog.Warn("closing storage", "error", err)
		}
	}()

	tracker := performance.NewTracker(performance.NewStore(store), performance.Options{
		Mode:   mode,
		Policy: policy,
		Log:    store,
	})
	attemptLog := attempts.NewLog(store)

	handler := api.NewAppHandler(api.AppDeps{
		Tracker:  tracker,
		Attempts: attemptLog,
		Store:    store,
		Token:    apiToken,
		Version:  version,
	})

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	if cfg.Server.MaxConns > 0 {
		ln = netutil.LimitListener(ln, cfg.Server.MaxConns)
	}

	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("prepd listening", "addr", addr, "max_conns", cfg.Server.MaxConns,
			"averaging", mode, "accuracy_policy", policy)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if withMCP {
		mcpSrv := api.NewMCPServer(api.MCPDeps{
			Tracker:  tracker,
			Attempts: attemptLog,
			Version:  version,
		})
		stdioSrv := server.NewStdioServer(mcpSrv)
		g.Go(func() error {
			// stdin closing ends MCP but leaves HTTP running.
			if err := stdioSrv.Listen(gctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("MCP stdio server error", "error", err)
			}
			return nil
		})
		slog.Info("MCP server started (stdio transport)")
	}

	return g.Wait()
}

func stopServer() error {
	cfg, err := config.Load()
	if err != nil {
		printError("could not load config: %v", err)
		return err
	}

	pidPath := pidFilePath(cfg.Storage.DataDir)
	pid, err := readPIDFile(pidPath)
	if err != nil {
		printError("prepd is not running (no PID file)")
		return fmt.Errorf("not running: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		printError("could not find process %d", pid)
		return err
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		printError("could not stop prepd (PID %d): %v", pid, err)
		removePIDFile(pidPath)
		return err
	}

	printSuccess("Sent stop signal to prepd (PID %d)", pid)
	return nil
}

func showStatus(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		// Still show partial status even if config fails.
		printError("config error: %v", err)
		return nil
	}

	client, err := newAPIClient()
	if err != nil {
		return err
	}
	client.httpClient = &http.Client{Timeout: 2 * time.Second}

	running := false
	resp, err := client.get(ctx, "/health")
	if err != nil {
		printStatus("Server", "stopped")
	} else {
		var health map[string]string
		if err := decodeJSON(resp, &health); err != nil {
			printStatus("Server", "error (%v)", err)
		} else {
			running = true
			printStatus("Server", "running on port %d (version %s)", cfg.Server.Port, health["version"])
		}
	}

	if running {
		if resp, err := client.get(ctx, "/performance"); err == nil {
			var s performance.Summary
			if decodeJSON(resp, &s) == nil {
				printStatus("Level", "%s %s", s.Glyph, s.Level)
				printStatus("Activities", "%d interviews, %d tests", s.InterviewsCompleted, s.TestsCompleted)
			}
		}
		if resp, err := client.get(ctx, "/coding-attempts?limit=100"); err == nil {
			var list []struct{}
			if decodeJSON(resp, &list) == nil {
				printStatus("Coding attempts", "%s", countLabel(len(list), 100))
			}
		}
	}

	printStatus("Averaging", "%s", cfg.Performance.Averaging)
	printStatus("Accuracy policy", "%s", cfg.Performance.AccuracyPolicy)
	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	return nil
}

func countLabel(count, limit int) string {
	if count >= limit {
		return fmt.Sprintf("%d+", count)
	}
	return fmt.Sprintf("%d", count)
}
