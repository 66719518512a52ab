// Package server implements the MCP (Model Context Protocol) server for raster pyramids.
//
// This package provides a JSON-RPC 2.0 server that publishes multi-resolution
// coverages through the MCP protocol. Clients name a pyramid definition file;
// the server builds the coverage once, keeps it in a workspace and answers
// questions about its levels and coordinate system.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Coverage Lifecycle:
//   - coverage_load: Build and publish a coverage from its definition
//   - coverage_reload: Rebuild a coverage, keeping the old one on failure
//   - coverage_unload: Unpublish a coverage and release its levels
//   - coverage_list: List published definitions
//
// Coverage Inspection:
//   - coverage_levels: Levels in page order with decode options and scale ratios
//   - coverage_crs: Resolved coordinate system, its source and diagnostics
//   - coverage_level_preview: Downscaled PNG of one level or a region of it
//   - coverage_sample: Pixel value of one level, located in model space
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: "Coverage unavailable" when a coverage could not be built
//   - data: the failure kind and error text, or the Go error string
//
// # Usage
//
//	srv := server.New(workspace.NewManager(provider, logger), server.Options{Logger: logger})
//	if err := srv.Run(ctx, os.Stdin, os.Stdout); err != nil {
//	    log.Fatal(err)
//	}
package server
