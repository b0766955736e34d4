package mcp

import (
	"context"
	"net/http"
	"os"
	"os/exec"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// Implementation identifies the client to MCP servers.
var Implementation = &mcpsdk.Implementation{
	Name:    "mcpchat",
	Version: "v0.1.0",
}

// HTTPClient is used for streamable HTTP servers.
var HTTPClient = http.DefaultClient

// Connect establishes a session with the server and performs the MCP
// initialization handshake. The returned Client must be closed, which also
// terminates a server subprocess.
func Connect(ctx context.Context, cfg ServerConfig) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var transport mcpsdk.Transport
	if cfg.URL != "" {
		transport = &mcpsdk.StreamableClientTransport{
			Endpoint:   cfg.URL,
			HTTPClient: HTTPClient,
		}
	} else {
		// the subprocess outlives ctx, it is stopped when the session is closed
		cmd := exec.Command(cfg.Command, cfg.Args...)
		cmd.Env = append(os.Environ(), cfg.environ()...)
		cmd.Stderr = os.Stderr
		transport = &mcpsdk.CommandTransport{Command: cmd}
	}

	session, err := mcpsdk.NewClient(Implementation, nil).Connect(ctx, transport, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "mcp: failed to connect to %s", cfg.String())
	}

	logger.ContextKV(ctx, xlog.INFO,
		"status", "connected",
		"server", cfg.String())

	return NewClient(session), nil
}

// ConnectInProcess serves the Go MCP server to a new client over an
// in-memory connection.
func ConnectInProcess(ctx context.Context, server *mcpsdk.Server) (*Client, error) {
	clientTransport, serverTransport := mcpsdk.NewInMemoryTransports()

	ss, err := server.Connect(ctx, serverTransport, nil)
	if err != nil {
		return nil, errors.Wrap(err, "mcp: failed to start in-process server")
	}

	session, err := mcpsdk.NewClient(Implementation, nil).Connect(ctx, clientTransport, nil)
	if err != nil {
		_ = ss.Close()
		return nil, errors.Wrap(err, "mcp: failed to connect to in-process server")
	}

	c := NewClient(session)
	c.closers = append(c.closers, func() error {
		// the server session ends once the client side of the pipe is closed
		if err := ss.Wait(); err != nil {
			logger.KV(xlog.DEBUG, "status", "in_process_server_closed", "err", err.Error())
		}
		return nil
	})
	return c, nil
}
