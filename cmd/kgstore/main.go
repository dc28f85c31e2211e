// Command kgstore runs the knowledge-graph memory engine, either as an MCP
// server over stdio or as a one-shot CLI for health checks and migration.
package main

func main() {
	Execute()
}
