package mcp

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/livp123/logsift/internal/analyzer"
	"github.com/livp123/logsift/internal/config"
	"github.com/livp123/logsift/internal/report"
	"github.com/livp123/logsift/internal/version"
)

// MCPServer exposes the analyzer pipeline as MCP tools. Logging goes through
// the stdlib logger so stdout stays clean for the stdio transport.
type MCPServer struct {
	cfg        *config.Config
	server     *server.MCPServer
	configPath string
	token      string
}

func NewMCPServer(cfg *config.Config, configPath string) *MCPServer {
	s := server.NewMCPServer(
		"logsift-analyzer",
		version.Version,
		server.WithResourceCapabilities(true, true),
		server.WithLogging(),
	)

	ms := &MCPServer{
		cfg:        cfg,
		server:     s,
		configPath: configPath,
	}

	ms.registerTools()
	return ms
}

func (s *MCPServer) SetToken(token string) {
	s.token = token
}

func (s *MCPServer) GetOrGenerateToken() string {
	if s.token != "" {
		return s.token
	}

	// Try to load from config
	cfg, err := config.Load(s.configPath)
	if err == nil && cfg.MCP.Token != "" {
		s.token = cfg.MCP.Token
		return s.token
	}

	// Generate random token if not found
	b := make([]byte, 16)
	if _, randErr := rand.Read(b); randErr != nil {
		log.Printf("❌ Failed to generate random token: %v", randErr)
		return ""
	}
	s.token = hex.EncodeToString(b)

	// Persist to config
	if err == nil {
		cfg.MCP.Token = s.token
		if cfg.MCP.Port == 0 {
			cfg.MCP.Port = 11852
		}
		if saveErr := config.Save(s.configPath, cfg); saveErr == nil {
			log.Printf("📄 Persisted new MCP token to %s", s.configPath)
		}
	}

	return s.token
}

func (s *MCPServer) registerTools() {
	// Tool: locate_latest_log
	s.server.AddTool(mcp.NewTool("locate_latest_log",
		mcp.WithDescription("Locate the newest nginx access log candidate by the date embedded in its file name."),
		mcp.WithString("log_dir", mcp.Description("Directory to scan (defaults to the configured LOG_DIR)")),
	), s.handleLocateLatestLog)

	// Tool: run_analysis
	s.server.AddTool(mcp.NewTool("run_analysis",
		mcp.WithDescription("Run the full log analysis pipeline: locate the newest log, aggregate per-URL request times and write the HTML report."),
		mcp.WithString("log_dir", mcp.Description("Directory to scan (defaults to the configured LOG_DIR)")),
		mcp.WithNumber("report_size", mcp.Description("Number of slowest URLs to keep in the report (defaults to REPORT_SIZE)")),
	), s.handleRunAnalysis)

	// Tool: list_reports
	s.server.AddTool(mcp.NewTool("list_reports",
		mcp.WithDescription("List the HTML reports already written to the report directory, newest first."),
		mcp.WithNumber("limit", mcp.Description("Maximum number of reports to list (default 10)")),
	), s.handleListReports)
}

func (s *MCPServer) handleLocateLatestLog(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	dir := request.GetString("log_dir", s.cfg.LogDir)

	logFile, err := analyzer.Locate(ctx, dir, s.cfg.LogPattern)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to scan %s: %v", dir, err)), nil
	}
	if logFile == nil {
		return mcp.NewToolResultText(fmt.Sprintf("No candidate log files found in %s.", dir)), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf(
		"Newest candidate:\n- Name: %s\n- Date: %s\n- Path: %s",
		logFile.Name, logFile.Date.Format("2006-01-02"), logFile.Path,
	)), nil
}

func (s *MCPServer) handleRunAnalysis(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	opts := analyzer.Options{
		LogDir:    request.GetString("log_dir", s.cfg.LogDir),
		Pattern:   s.cfg.LogPattern,
		Threshold: s.cfg.ErrorPercentThreshold,
		Filter:    s.cfg.LineFilter,
	}
	size := int(request.GetFloat("report_size", float64(s.cfg.ReportSize)))
	writer := report.NewWriter(s.cfg.ReportDir, size)

	result, err := analyzer.Run(ctx, opts, writer)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Analysis failed: %v", err)), nil
	}

	switch result.Status {
	case analyzer.StatusReported:
		return mcp.NewToolResultText(fmt.Sprintf(
			"Analysis finished in %s.\n- Log: %s\n- Lines: %d (%d malformed)\n- Report: %s",
			result.Elapsed.Round(time.Millisecond), result.Log.Path,
			result.TotalLines, result.MalformedLines, result.ReportPath,
		)), nil
	case analyzer.StatusAlreadyReported:
		return mcp.NewToolResultText(fmt.Sprintf(
			"Report for %s already exists, nothing to do.",
			result.Log.Date.Format("2006-01-02"),
		)), nil
	case analyzer.StatusNoInput:
		return mcp.NewToolResultText(fmt.Sprintf("No candidate log files found in %s.", opts.LogDir)), nil
	case analyzer.StatusParseFailed:
		return mcp.NewToolResultError(fmt.Sprintf(
			"Analysis aborted: %d of %d lines were malformed, over the %.1f%% threshold.",
			result.MalformedLines, result.TotalLines, opts.Threshold,
		)), nil
	}
	return mcp.NewToolResultError(fmt.Sprintf("Unexpected run status %q", result.Status)), nil
}

func (s *MCPServer) handleListReports(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := int(request.GetFloat("limit", 10))
	if limit <= 0 {
		limit = 10
	}

	entries, err := os.ReadDir(s.cfg.ReportDir)
	if err != nil {
		if os.IsNotExist(err) {
			return mcp.NewToolResultText(fmt.Sprintf("No reports found, %s does not exist yet.", s.cfg.ReportDir)), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("Failed to read %s: %v", s.cfg.ReportDir, err)), nil
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, "report-") && strings.HasSuffix(name, ".html") {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("No reports found in %s.", s.cfg.ReportDir)), nil
	}

	// Report names embed the log date, so a reverse lexical sort is newest
	// first.
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	total := len(names)
	if len(names) > limit {
		names = names[:limit]
	}

	res := fmt.Sprintf("Reports in %s (top %d of %d):\n", s.cfg.ReportDir, len(names), total)
	for _, name := range names {
		res += fmt.Sprintf("- %s\n", name)
	}
	return mcp.NewToolResultText(res), nil
}

func (s *MCPServer) ServeSSE(addr string) error {
	// Create SSE server with options
	sseServer := server.NewSSEServer(s.server,
		server.WithBaseURL("http://"+addr),
	)

	// Auth middleware
	authMiddleware := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if s.token != "" {
				// Check Authorization header: Bearer <token>
				authHeader := r.Header.Get("Authorization")
				if authHeader == "" {
					// Also check query parameter: ?token=<token>
					authHeader = r.URL.Query().Get("token")
					if authHeader != "" {
						authHeader = "Bearer " + authHeader
					}
				}

				if authHeader != "Bearer "+s.token {
					http.Error(w, "Unauthorized: Invalid or missing token", http.StatusUnauthorized)
					log.Printf("⚠️ Unauthorized access attempt from %s", r.RemoteAddr)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}

	// Register handlers with auth
	http.Handle("/sse", authMiddleware(sseServer.SSEHandler()))
	http.Handle("/message", authMiddleware(sseServer.MessageHandler()))

	log.Printf("🤖 logsift MCP server starting (SSE mode) on %s", addr)
	if s.token != "" {
		log.Printf("🔑 Security: Token authentication enabled")
	} else {
		log.Printf("⚠️ Security: No token set, server is public!")
	}
	log.Printf("🔗 SSE Endpoint: http://%s/sse", addr)
	return http.ListenAndServe(addr, nil)
}

func (s *MCPServer) Serve() error {
	return server.ServeStdio(s.server)
}
