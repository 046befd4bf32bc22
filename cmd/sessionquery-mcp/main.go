// Command sessionquery-mcp runs the session-query MCP server over stdio,
// so other MCP-capable hosts can ask questions about Relay session files.
package main

import (
	"context"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"

	"github.com/relaycode/relay/internal/config"
	"github.com/relaycode/relay/internal/provider"
	"github.com/relaycode/relay/pkg/mcpserver/sessionquery"
)

func main() {
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		log.Fatal(err)
	}
	cfg, err := config.Load(cwd)
	if err != nil {
		log.Fatal(err)
	}

	registry, err := provider.InitializeProviders(context.Background(), cfg)
	if err != nil {
		log.Fatal(err)
	}

	s := sessionquery.NewServer(registry)
	if err := server.ServeStdio(s); err != nil {
		log.Fatal(err)
	}
}
