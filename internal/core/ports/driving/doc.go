// Package driving holds the ports that front-ends call into: the CLI, the
// TUI, the MCP server and the directory watcher all talk to the core only
// through these interfaces. Implementations live in internal/core/services.
package driving
