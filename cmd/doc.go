// Package cmd implements the command-line interface for propertyinbox.
//
// This package provides the following commands:
//   - serve: Run the HTTP trigger, the hourly scheduler and the metrics server
//   - run: Process mail once and print the run summary
//   - mcp: Serve the organizer tools over MCP stdio
//   - auth: Obtain a Google refresh token through the consent flow
//   - simulate: Run the investment simulation for a price and rent
//   - version: Display version information
//   - generate-docs: Generate markdown documentation for the MCP tools
//
// The serve command is the default command when no subcommand is specified.
package cmd
