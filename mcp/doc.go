// Package mcp implements tools.Provider over a Model Context Protocol session.
//
// A session is established with Connect, which either starts the server as a
// subprocess talking over stdio, or dials a streamable HTTP endpoint.
// ConnectInProcess serves a Go MCP server to the client without a subprocess.
package mcp

import "github.com/effective-security/xlog"

var logger = xlog.NewPackageLogger("github.com/effective-security/mcpchat", "mcp")
