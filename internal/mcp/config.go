package mcp

import (
	"context"

	"github.com/relaycode/relay/internal/logging"
	"github.com/relaycode/relay/pkg/types"
)

// FromHostConfig converts an entry of the host's mcp config block into a
// client Config. Servers default to enabled; an explicit enabled:false
// turns one off without deleting its block.
func FromHostConfig(cfg types.MCPConfig) *Config {
	enabled := cfg.Enabled == nil || *cfg.Enabled

	transport := TransportTypeLocal
	switch cfg.Type {
	case "remote":
		transport = TransportTypeRemote
	case "stdio":
		transport = TransportTypeStdio
	}

	return &Config{
		Enabled:     enabled,
		Type:        transport,
		URL:         cfg.URL,
		Headers:     cfg.Headers,
		Command:     cfg.Command,
		Environment: cfg.Environment,
		Timeout:     cfg.Timeout,
	}
}

// Connect builds a client from the host's mcp config block and connects
// every enabled server. A server that fails to connect is logged and
// skipped; the host keeps running without it.
func Connect(ctx context.Context, servers map[string]types.MCPConfig) *Client {
	client := NewClient()
	for name, cfg := range servers {
		if err := client.AddServer(ctx, name, FromHostConfig(cfg)); err != nil {
			logging.Warn().Err(err).Str("server", name).Msg("mcp server unavailable")
		}
	}
	return client
}
