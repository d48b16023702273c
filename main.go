// Command dragster searches for the fastest possible race in Activision's
// Dragster and serves the search over HTTP.
//
// It supports four commands:
//  1. "solve" (default) – runs the search in the foreground and prints the best race
//  2. "serve" – runs the HTTP server exposing REST API, WebSocket, /metrics and an /mcp endpoint
//  3. "mcp" – runs an MCP stdio server and spins up an internal HTTP API if none is available
//  4. "trace" – replays the best race of a saved run file
//
// Settings come from an optional YAML file, DRAGSTER_* environment variables
// (a local .env file is loaded first) and command line flags, in that order.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/urfave/cli/v3"
	"github.com/wricardo/dragster/api"
	"github.com/wricardo/dragster/game/config"
	"github.com/wricardo/dragster/game/engine"
	"github.com/wricardo/dragster/game/report"
	"github.com/wricardo/dragster/game/run"
	"github.com/wricardo/dragster/game/service"
	"github.com/wricardo/dragster/transport/mcp"
	"github.com/wricardo/dragster/transport/websocket"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Dragster Solver"
)

// main loads the .env file and runs the selected command.
func main() {
	config.LoadEnvFile()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

// newApp builds the command tree.
func newApp() *cli.Command {
	return &cli.Command{
		Name:    "dragster",
		Usage:   "find the fastest possible race in Activision's Dragster",
		Version: Version,
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "YAML settings file",
				Sources: cli.EnvVars("DRAGSTER_CONFIG"),
			},
			&cli.IntFlag{
				Name:    "workers",
				Aliases: []string{"w"},
				Usage:   "frame counter groups searched concurrently (1-8)",
			},
			&cli.StringFlag{
				Name:  "results-dir",
				Usage: "directory for saved runs",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "enable debug logging",
			},
		}, solveFlags()...),
		Action: solveAction,
		Commands: []*cli.Command{
			{
				Name:   "solve",
				Usage:  "run the search in the foreground and print the best race",
				Flags:  solveFlags(),
				Action: solveAction,
			},
			{
				Name:  "serve",
				Usage: "run the HTTP server with REST API, WebSocket, metrics and MCP endpoint",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "host", Usage: "HTTP server host"},
					&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Usage: "HTTP server port"},
					&cli.BoolFlag{Name: "frame-events", Usage: "publish one WebSocket event per swept frame"},
					&cli.BoolFlag{Name: "ngrok", Usage: "enable ngrok tunnel"},
					&cli.StringFlag{Name: "ngrok-auth", Usage: "ngrok auth token", Sources: cli.EnvVars("NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN")},
					&cli.StringFlag{Name: "ngrok-domain", Usage: "custom ngrok domain"},
				},
				Action: serveAction,
			},
			{
				Name:   "mcp",
				Usage:  "run an MCP stdio server backed by the HTTP API",
				Flags:  []cli.Flag{&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Usage: "port of an external HTTP API to reuse"}},
				Action: mcpAction,
			},
			{
				Name:      "trace",
				Usage:     "replay the best race of a saved run file",
				ArgsUsage: "<run-file>",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "compact", Usage: "print only the shift and clutch columns"},
				},
				Action: traceAction,
			},
		},
	}
}

// solveFlags are local so that the root command and "solve" each own a copy.
func solveFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{Name: "save", Local: true, Usage: "save the run to the results directory"},
		&cli.BoolFlag{Name: "trace", Local: true, Value: true, Usage: "print the winning inputs frame by frame"},
		&cli.BoolFlag{Name: "compact", Local: true, Usage: "print only the shift and clutch columns"},
	}
}

// loadSettings reads the settings file and environment, then applies flags.
func loadSettings(cmd *cli.Command) (*config.Settings, error) {
	settings, err := config.Load(cmd.String("config"))
	if err != nil {
		return nil, err
	}

	if cmd.IsSet("workers") {
		settings.Workers = int(cmd.Int("workers"))
	}
	if cmd.IsSet("results-dir") {
		settings.ResultsDir = cmd.String("results-dir")
	}
	if cmd.Bool("debug") {
		settings.Debug = true
	}
	if cmd.IsSet("host") {
		settings.Server.Host = cmd.String("host")
	}
	if cmd.IsSet("port") {
		settings.Server.Port = int(cmd.Int("port"))
	}
	if cmd.Bool("frame-events") {
		settings.FrameEvents = true
	}
	if cmd.Bool("ngrok") {
		settings.Server.Ngrok = true
	}
	if cmd.IsSet("ngrok-domain") {
		settings.Server.NgrokDomain = cmd.String("ngrok-domain")
	}

	if err := settings.Validate(); err != nil {
		return nil, err
	}

	if settings.Debug {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	} else {
		log.SetFlags(log.LstdFlags)
	}
	return settings, nil
}

// initializeServices wires the run store, its persistence and the solver service.
func initializeServices(settings *config.Settings, notifier service.Notifier) (service.SolverService, *run.Manager, error) {
	persistence, err := run.NewFilePersistence(settings.ResultsDir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create run persistence: %w", err)
	}

	manager, err := run.NewManagerWithPersistence(persistence)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load persisted runs: %w", err)
	}

	svc := service.NewSolverService(manager, service.Options{
		Workers:          settings.Workers,
		MemoryLimitBytes: settings.MemoryLimitBytes(),
		FrameEvents:      settings.FrameEvents,
		Notifier:         notifier,
	})
	return svc, manager, nil
}

// solveAction runs the search in the foreground. It exits with status 1 when
// no race finishes under the frame ceiling.
func solveAction(ctx context.Context, cmd *cli.Command) error {
	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	out := cmd.Root().Writer

	svc, manager, err := initializeServices(settings, nil)
	if err != nil {
		return err
	}

	log.Printf("Starting %s v%s (workers: %d)", AppName, Version, settings.Workers)

	started := time.Now()
	result, err := svc.Solve(ctx, report.NewProgress(out, settings.Debug))
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	report.Summary(out, result)

	if cmd.Bool("save") {
		completed := time.Now()
		saved, err := manager.Create(&service.Run{
			Status:      service.RunCompleted,
			Workers:     settings.Workers,
			CreatedAt:   started,
			StartedAt:   &started,
			CompletedAt: &completed,
			GroupsDone:  len(result.Groups),
			GroupsTotal: len(result.Groups),
			Result:      result,
		})
		if err != nil {
			return fmt.Errorf("failed to save run: %w", err)
		}
		fmt.Fprintf(out, "Saved run %s to %s\n", saved.ID, settings.ResultsDir)
	}

	if !result.Found {
		return cli.Exit("", 1)
	}

	if cmd.Bool("trace") {
		fmt.Fprintln(out)
		if err := report.TraceState(out, result.Champion, !cmd.Bool("compact")); err != nil {
			return err
		}
	}
	return nil
}

// traceAction replays the champion stored in a run file.
func traceAction(ctx context.Context, cmd *cli.Command) error {
	path := cmd.Args().First()
	if path == "" {
		return cli.Exit("trace requires a run file", 2)
	}

	r, err := run.ReadFile(path)
	if err != nil {
		return err
	}
	if r.Result == nil {
		return fmt.Errorf("%w: %s is %s", service.ErrRunNotCompleted, r.ID, r.Status)
	}

	out := cmd.Root().Writer
	fmt.Fprintf(out, "Run %s (%s)\n", r.ID, r.Status)
	report.Summary(out, r.Result)
	if !r.Result.Found {
		return cli.Exit("", 1)
	}

	fmt.Fprintln(out)
	return report.TraceState(out, r.Result.Champion, !cmd.Bool("compact"))
}

// serveAction starts the HTTP server and blocks until the context is cancelled.
func serveAction(ctx context.Context, cmd *cli.Command) error {
	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	log.Printf("Starting %s v%s (mode: serve)", AppName, Version)

	hub := websocket.NewHub()
	go hub.Run()
	defer hub.Close()

	svc, _, err := initializeServices(settings, hub)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}

	return runHTTPServer(ctx, settings, svc, hub, cmd.String("ngrok-auth"))
}

// runHTTPServer starts the HTTP server with REST API, WebSocket hub, and an /mcp proxy endpoint.
// If ngrok is enabled, it also provisions a public tunnel.
func runHTTPServer(ctx context.Context, settings *config.Settings, svc service.SolverService, hub *websocket.Hub, ngrokAuth string) error {
	apiServer := api.NewServer(svc, hub)

	addr := settings.Addr()
	baseURL := fmt.Sprintf("http://%s", addr)
	mcpClient := mcp.NewClient(baseURL)

	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", apiServer)
	mainRouter.HandleFunc("/mcp", mcpHandler(mcpClient))

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      mainRouter,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()

		log.Printf("HTTP server listening on %s", addr)
		log.Printf("REST API: http://%s/api", addr)
		log.Printf("WebSocket: ws://%s/ws?run=<run_id>", addr)
		log.Printf("Metrics: http://%s/metrics", addr)
		log.Printf("MCP endpoint: http://%s/mcp", addr)

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	if settings.Server.Ngrok {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runNgrok(ctx, settings.Server.NgrokDomain, ngrokAuth, mainRouter)
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		log.Println("Shutting down...")
	case runErr = <-serverErr:
		log.Printf("HTTP server failed: %v", runErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	wg.Wait()
	log.Println("Server stopped")
	return runErr
}

// mcpHandler serves JSON-RPC MCP messages over plain HTTP POST.
func mcpHandler(client *mcp.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := client.GetMCPServer().HandleMessage(r.Context(), body)

		w.Header().Set("Content-Type", "application/json")
		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Write(responseData)
	}
}

// runNgrok serves handler through an ngrok tunnel until ctx is cancelled.
func runNgrok(ctx context.Context, domain, authToken string, handler http.Handler) {
	if authToken == "" {
		log.Println("WARNING: Ngrok enabled but no auth token provided (use --ngrok-auth, NGROK_AUTHTOKEN, or NGROK_AUTH_TOKEN env var)")
		return
	}

	log.Println("Starting ngrok tunnel...")

	var tunnel ngrokConfig.Tunnel
	if domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(domain))
		log.Printf("Using custom ngrok domain: %s", domain)
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(authToken))
	if err != nil {
		log.Printf("Failed to start ngrok tunnel: %v", err)
		return
	}

	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			log.Printf("Failed to close ngrok tunnel: %v", err)
		}
	}()

	ngrokURL := tun.URL()
	log.Printf("Ngrok tunnel established: %s", ngrokURL)
	log.Printf("  REST API (ngrok): %s/api", ngrokURL)
	log.Printf("  WebSocket (ngrok): %s/ws?run=<run_id>", ngrokURL)
	log.Printf("  MCP endpoint (ngrok): %s/mcp", ngrokURL)

	if err := http.Serve(tun, handler); err != nil && !errors.Is(err, http.ErrServerClosed) && ctx.Err() == nil {
		log.Printf("Ngrok server error: %v", err)
	}
	log.Println("Ngrok tunnel closed")
}

// mcpAction runs an MCP stdio server. It reuses an external API on the
// configured port when one answers; otherwise it starts a minimal internal
// HTTP API bound to a random loopback port.
func mcpAction(ctx context.Context, cmd *cli.Command) error {
	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	externalURL := fmt.Sprintf("http://localhost:%d", settings.Server.Port)
	baseURL := externalURL
	log.Printf("Checking for external API server at %s...", externalURL)

	if !apiAvailable(externalURL) {
		log.Printf("No external API server found, starting internal HTTP server")

		hub := websocket.NewHub()
		go hub.Run()
		defer hub.Close()

		svc, _, err := initializeServices(settings, hub)
		if err != nil {
			return fmt.Errorf("failed to initialize services: %w", err)
		}

		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("failed to get available port: %w", err)
		}

		httpServer := &http.Server{Handler: api.NewServer(svc, hub)}
		go func() {
			if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("Internal HTTP server error: %v", err)
			}
		}()
		defer httpServer.Close()

		baseURL = "http://" + listener.Addr().String()
		log.Printf("Started internal HTTP server on %s for MCP stdio", listener.Addr())
	} else {
		log.Printf("External API server found at %s, using it for MCP", externalURL)
	}

	mcpClient := mcp.NewClient(baseURL)
	log.Println("MCP stdio server ready")

	if err := server.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		return fmt.Errorf("MCP stdio server error: %w", err)
	}
	return nil
}

// apiAvailable reports whether a Dragster API answers at baseURL.
func apiAvailable(baseURL string) bool {
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(baseURL + "/api/constants")
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	var constants service.Constants
	if err := json.NewDecoder(resp.Body).Decode(&constants); err != nil {
		return false
	}
	return resp.StatusCode == http.StatusOK && constants.MaxFrames == engine.MaxFrames
}
