package main

import (
	"github.com/spf13/cobra"

	"github.com/deadvisor-dev/deadvisor/internal/mcpserver"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start an MCP server exposing find_unused_declarations over stdio",
	Long: `Starts an MCP server over stdio transport that exposes deadvisor's
unused-declaration scan as a tool LLMs can invoke.

To use with Claude Desktop, add to your config:
  {
    "mcpServers": {
      "deadvisor": {
        "command": "deadvisor",
        "args": ["mcp"]
      }
    }
  }`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	server := mcpserver.NewServer(version)
	return server.Run(cmd.Context())
}
