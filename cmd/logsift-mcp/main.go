package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/livp123/logsift/internal/config"
	"github.com/livp123/logsift/internal/mcp"
)

func main() {
	sse := flag.Bool("sse", false, "serve over SSE instead of stdio")
	addr := flag.String("addr", "", "SSE listen address (defaults to :MCP_PORT from config)")
	configPath := flag.String("config", config.GetConfigPath(), "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Printf("⚠️ Failed to load config from %s: %v, using defaults", *configPath, err)
		def := config.Default()
		cfg = &def
	}

	server := mcp.NewMCPServer(cfg, *configPath)

	if *sse {
		listen := *addr
		if listen == "" {
			listen = fmt.Sprintf(":%d", cfg.MCP.Port)
		}
		token := server.GetOrGenerateToken()
		log.Printf("🔑 MCP token: %s", token)
		if err := server.ServeSSE(listen); err != nil {
			log.Fatalf("❌ MCP server error: %v", err)
		}
		return
	}

	// stdio transport: the protocol runs on stdout, logs go to stderr.
	log.Printf("🤖 logsift MCP server starting (stdio mode)...")
	if err := server.Serve(); err != nil {
		log.Fatalf("❌ MCP server error: %v", err)
	}
}
