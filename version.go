// Package warden runs allow-listed binaries on behalf of AI agents.
package warden

// Version is the release version reported by the CLI and the MCP server.
var Version = "v0.1.0-dev"
