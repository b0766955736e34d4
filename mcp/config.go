package mcp

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
)

// ErrUnsupportedScript is returned for a server script that is neither Python nor JavaScript.
var ErrUnsupportedScript = errors.New("Server script must be a .py or .js file")

// ServerConfig describes how to reach an MCP server.
// When URL is set the server is reached over streamable HTTP,
// otherwise Command is started as a subprocess talking over stdio.
type ServerConfig struct {
	Command string            `json:"command,omitempty" yaml:"command,omitempty"`
	Args    []string          `json:"args,omitempty" yaml:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty" yaml:"env,omitempty"`
	URL     string            `json:"url,omitempty" yaml:"url,omitempty"`
}

// ServerConfigForScript returns the configuration that runs a server script:
// .py scripts with python, .js scripts with node.
func ServerConfigForScript(path string) (ServerConfig, error) {
	var command string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".py":
		command = "python"
	case ".js":
		command = "node"
	default:
		return ServerConfig{}, ErrUnsupportedScript
	}
	return ServerConfig{
		Command: command,
		Args:    []string{path},
	}, nil
}

// Validate returns an error if the configuration names no server.
func (c ServerConfig) Validate() error {
	if c.URL == "" && c.Command == "" {
		return errors.New("mcp: server command or url is required")
	}
	return nil
}

// String returns the URL or the command line of the server.
func (c ServerConfig) String() string {
	if c.URL != "" {
		return c.URL
	}
	return strings.TrimSpace(c.Command + " " + strings.Join(c.Args, " "))
}

// environ returns the configured variables in KEY=VALUE form, sorted by key.
func (c ServerConfig) environ() []string {
	keys := make([]string, 0, len(c.Env))
	for k := range c.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	env := make([]string, 0, len(keys))
	for _, k := range keys {
		env = append(env, k+"="+c.Env[k])
	}
	return env
}
