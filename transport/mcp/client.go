package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/wricardo/dragster/game/engine"
	"github.com/wricardo/dragster/game/report"
	"github.com/wricardo/dragster/game/service"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Dragster Solver",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Dragster Solver - MCP Interface

This is a thin client that proxies all requests to the REST API server.

It searches for the fastest possible race in Activision's Dragster (Atari 2600)
by simulating every reachable combination of clutch and shift inputs.

AVAILABLE TOOLS:
- start_run: Start a search (takes seconds to minutes)
- get_run: Poll a run until it is completed
- list_runs: List runs
- cancel_run: Cancel and delete a run
- run_trace: Frame-by-frame replay of a completed run's best race
- simulate: Replay your own input sequence
- solver_constants: Fixed search parameters
- solver_instructions: Full explanation of the model and the tools`),
	)

	c.registerTools()
}

func runIDSchema() map[string]any {
	return map[string]any{
		"type":        "string",
		"description": "Run ID returned by start_run",
	}
}

func verboseSchema() map[string]any {
	return map[string]any{
		"type":        "boolean",
		"description": "Print the full physics state per frame (default true); false prints shift and clutch columns only",
	}
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "start_run",
		Description: "Start an asynchronous search for the fastest race. Only one run searches at a time.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{},
		},
	}, c.handleStartRun)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_run",
		Description: "Get the status, progress and result of a run",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{"run_id": runIDSchema()},
			Required:   []string{"run_id"},
		},
	}, c.handleGetRun)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_runs",
		Description: "List all known runs",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"status": map[string]any{
					"type":        "string",
					"enum":        []string{"pending", "running", "completed", "failed", "cancelled"},
					"description": "Only list runs with this status",
				},
			},
		},
	}, c.handleListRuns)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "cancel_run",
		Description: "Cancel a run if it is still searching, then delete it",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{"run_id": runIDSchema()},
			Required:   []string{"run_id"},
		},
	}, c.handleCancelRun)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "run_trace",
		Description: "Replay the best race of a completed run, one line per frame",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"run_id":  runIDSchema(),
				"verbose": verboseSchema(),
			},
			Required: []string{"run_id"},
		},
	}, c.handleRunTrace)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "simulate",
		Description: "Replay an input sequence from an initial tachometer and frame counter",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"initial_tachometer": map[string]any{
					"type":        "integer",
					"minimum":     0,
					"maximum":     31,
					"description": "Tachometer before the first frame",
				},
				"initial_frame_counter": map[string]any{
					"type":        "integer",
					"minimum":     0,
					"maximum":     15,
					"description": "Frame counter before the first frame",
				},
				"inputs": map[string]any{
					"type":        "string",
					"pattern":     "^[0-3]+$",
					"description": "One digit per frame: 0 none, 1 clutch, 2 shift, 3 both",
				},
				"verbose": verboseSchema(),
			},
			Required: []string{"initial_tachometer", "initial_frame_counter", "inputs"},
		},
	}, c.handleSimulate)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "solver_constants",
		Description: "Show the fixed search parameters",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{},
		},
	}, c.handleConstants)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "solver_instructions",
		Description: "Explain the race model, the search and how to use the tools",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{},
		},
	}, c.handleSolverInstructions)
}

// GetMCPServer returns the underlying MCP server
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// apiCall makes an HTTP call to the REST API
func (c *Client) apiCall(ctx context.Context, method, path string, body any, result any) error {
	url := c.baseURL + path

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

// Argument helpers; JSON numbers arrive as float64.

func stringArg(request mcp.CallToolRequest, key string) string {
	args, _ := request.Params.Arguments.(map[string]any)
	v, _ := args[key].(string)
	return v
}

func intArg(request mcp.CallToolRequest, key string) int {
	args, _ := request.Params.Arguments.(map[string]any)
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return 0
}

func boolArg(request mcp.CallToolRequest, key string, def bool) bool {
	args, _ := request.Params.Arguments.(map[string]any)
	if v, ok := args[key].(bool); ok {
		return v
	}
	return def
}

// Tool handlers

func (c *Client) handleStartRun(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var run service.Run
	if err := c.apiCall(ctx, "POST", "/api/runs", nil, &run); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Started run: %s\nWorkers: %d\nGroups: %d\n\nPoll get_run until the status is completed.",
		run.ID, run.Workers, run.GroupsTotal)
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleGetRun(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	runID := stringArg(request, "run_id")
	if runID == "" {
		return mcp.NewToolResultError("run_id is required"), nil
	}

	var run service.Run
	if err := c.apiCall(ctx, "GET", "/api/runs/"+runID, nil, &run); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatRun(&run)), nil
}

func (c *Client) handleListRuns(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := "/api/runs"
	if status := stringArg(request, "status"); status != "" {
		path += "?status=" + status
	}

	var resp struct {
		Runs []service.RunSummary `json:"runs"`
	}
	if err := c.apiCall(ctx, "GET", path, nil, &resp); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if len(resp.Runs) == 0 {
		return mcp.NewToolResultText("No runs."), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Runs (%d):\n", len(resp.Runs))
	for _, run := range resp.Runs {
		fmt.Fprintf(&b, "- %s [%s] %d/%d groups", run.ID, run.Status, run.GroupsDone, run.GroupsTotal)
		if run.Status == service.RunCompleted {
			if run.Found {
				fmt.Fprintf(&b, ", best race %ss", run.FinishTime)
			} else {
				fmt.Fprintf(&b, ", no race under %ss", run.FinishTime)
			}
		}
		b.WriteString("\n")
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleCancelRun(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	runID := stringArg(request, "run_id")
	if runID == "" {
		return mcp.NewToolResultError("run_id is required"), nil
	}

	if err := c.apiCall(ctx, "DELETE", "/api/runs/"+runID, nil, nil); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Run %s cancelled and deleted.", runID)), nil
}

func (c *Client) handleRunTrace(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	runID := stringArg(request, "run_id")
	if runID == "" {
		return mcp.NewToolResultError("run_id is required"), nil
	}

	var trace service.TraceResult
	if err := c.apiCall(ctx, "GET", "/api/runs/"+runID+"/trace", nil, &trace); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatTrace(&trace, boolArg(request, "verbose", true))), nil
}

func (c *Client) handleSimulate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	req := service.SimulateRequest{
		InitialTachometer:   intArg(request, "initial_tachometer"),
		InitialFrameCounter: intArg(request, "initial_frame_counter"),
		Inputs:              stringArg(request, "inputs"),
	}

	var trace service.TraceResult
	if err := c.apiCall(ctx, "POST", "/api/simulate", req, &trace); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatTrace(&trace, boolArg(request, "verbose", true))), nil
}

func (c *Client) handleConstants(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var constants service.Constants
	if err := c.apiCall(ctx, "GET", "/api/constants", nil, &constants); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	data, err := json.MarshalIndent(constants, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (c *Client) handleSolverInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	instructions := `Dragster Solver - Complete Instructions

THE RACE:
Dragster is a quarter-mile drag race. Each frame the player either holds or
releases the clutch and either holds or releases the shift button. The race
is won when the distance reaches 97 * 256 = 24832 sub-units. The in-game
timer shows 3.34 hundredths of a second per frame, truncated.

STATE PER FRAME:
- gear (0 neutral to 4), speed (0 to 256)
- tachometer (0 to 31; 32 or more blows the engine)
- tachometer delta, distance, frame counter (0 to 15)

THE SEARCH:
Every initial tachometer in 0, 3, ..., 30 and every even initial frame
counter is tried with every first-frame input. Each frame all four inputs are
applied to every live state. States with identical physics keep only the one
that has travelled furthest. States that blew the engine, or that cannot reach
the finish even at top speed before 167 frames (5.57s), are dropped. The first
frame on which any state finishes ends the search for that frame counter, and
the best finisher over all frame counters is the answer.

HOW TO USE THE TOOLS:
1. start_run - note the run ID
2. get_run - poll until status is completed (progress shows groups done)
3. run_trace - inspect the winning inputs frame by frame
4. simulate - try variations of the inputs yourself

INPUT STRINGS:
One digit per frame, starting with the seed frame: 0 none, 1 clutch,
2 shift, 3 clutch and shift.

TRACE LINES:
frame: clutch,shift | gear - speed - tachometer - tachometer delta - distance`

	return mcp.NewToolResultText(instructions), nil
}

// Helper functions for formatting

func formatRun(run *service.Run) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Run: %s\n", run.ID)
	fmt.Fprintf(&b, "Status: %s\n", run.Status)
	fmt.Fprintf(&b, "Progress: %d/%d groups\n", run.GroupsDone, run.GroupsTotal)
	if run.Error != "" {
		fmt.Fprintf(&b, "Error: %s\n", run.Error)
	}

	if run.Result == nil {
		return b.String()
	}

	b.WriteString("\n")
	report.Summary(&b, run.Result)

	if len(run.Result.Groups) > 0 {
		b.WriteString("\nGroups:\n")
		for _, g := range run.Result.Groups {
			if g.Found {
				fmt.Fprintf(&b, "  frame counter %2d: %ss, distance %d, %d frames swept, peak %d states\n",
					g.FrameCounter, engine.FormatFinishTime(g.Champion.Frames), g.Champion.Distance, g.FramesSwept, g.PeakStates)
			} else {
				fmt.Fprintf(&b, "  frame counter %2d: no finish, %d frames swept, peak %d states\n",
					g.FrameCounter, g.FramesSwept, g.PeakStates)
			}
		}
	}
	return b.String()
}

func formatTrace(trace *service.TraceResult, verbose bool) string {
	var b strings.Builder
	if trace.RunID != "" {
		fmt.Fprintf(&b, "Run: %s\n", trace.RunID)
	}
	fmt.Fprintf(&b, "Inputs: %s\n", trace.Inputs)
	if trace.Won {
		fmt.Fprintf(&b, "Finished in %ss with distance %d\n\n", trace.FinishTime, trace.Final.Distance)
	} else {
		fmt.Fprintf(&b, "Not finished after %ss, distance %d\n\n", trace.FinishTime, trace.Final.Distance)
	}

	report.Frames(&b, trace.Frames, verbose)
	fmt.Fprintf(&b, "Initial frame_counter: %d\n", trace.InitialFrameCounter)
	fmt.Fprintf(&b, "Initial tachometer: %d\n", trace.InitialTachometer)
	return b.String()
}
