package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpchat/assistants"
	"github.com/effective-security/mcpchat/mcp"
	"github.com/effective-security/mcpchat/pkg/llmfactory"
	"github.com/effective-security/mcpchat/pkg/llms"
	"github.com/effective-security/mcpchat/store"
	"github.com/effective-security/xlog"
	"github.com/spf13/cobra"
)

const version = "0.1.0"

var logger = xlog.NewPackageLogger("github.com/effective-security/mcpchat", "cmd")

type rootOptions struct {
	configFile string
	provider   string
	url        string
	logLevel   string
	sessionID  string
}

func newRootCmd() *cobra.Command {
	o := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "mcpchat [server_script]",
		Short: "Chat with a model that can call the tools of an MCP server",
		Long: "mcpchat connects to an MCP server, started from a .py or .js script or reached by URL,\n" +
			"and answers queries with a Bedrock or Anthropic model using the server tools.",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd, args)
		},
	}
	cmd.Version = version

	flags := cmd.Flags()
	flags.StringVarP(&o.configFile, "config", "c", "", "Configuration file")
	flags.StringVarP(&o.provider, "provider", "p", "", "Model provider name from the configuration, the default provider if not set")
	flags.StringVar(&o.url, "url", "", "URL of a streamable HTTP MCP server")
	flags.StringVar(&o.logLevel, "log-level", "error", "Log level: debug|info|warning|error")
	flags.StringVarP(&o.sessionID, "session", "s", "", "History session ID, a new session if not set")
	return cmd
}

func (o *rootOptions) run(cmd *cobra.Command, args []string) error {
	if err := configureLogging(o.logLevel); err != nil {
		return err
	}

	cfg, err := llmfactory.LoadConfig(o.configFile)
	if err != nil {
		return errors.WithMessage(err, "failed to load configuration")
	}

	serverCfg, err := resolveServer(cfg.MCP, o.url, args)
	if err != nil {
		return err
	}

	model, err := createModel(cfg, o.provider)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	client, err := mcp.Connect(ctx, serverCfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := client.Close(); err != nil {
			logger.KV(xlog.WARNING, "reason", "close_client", "err", err.Error())
		}
	}()

	history, err := openHistory(ctx, cfg.History)
	if err != nil {
		return err
	}

	sessionID := o.sessionID
	if sessionID == "" {
		sessionID = store.NewSessionID()
	}

	orchestrator := assistants.NewOrchestrator(model, client,
		assistants.WithMaxTurns(cfg.Assistant.MaxTurns),
		assistants.WithInstructions(cfg.Assistant.Instructions),
		assistants.WithHistory(history, sessionID),
		assistants.WithCallback(assistants.NewPackageLoggerCallback(logger)),
	)

	descriptors, err := client.ListTools(ctx)
	if err != nil {
		return err
	}
	names := make([]string, 0, len(descriptors))
	for _, d := range descriptors {
		names = append(names, d.Name)
	}

	c := &chat{
		querier:   orchestrator,
		history:   history,
		sessionID: sessionID,
		in:        cmd.InOrStdin(),
		out:       cmd.OutOrStdout(),
	}
	c.printConnected(names)
	return c.run(ctx)
}

func configureLogging(level string) error {
	switch strings.ToLower(level) {
	case "debug":
		xlog.SetGlobalLogLevel(xlog.DEBUG)
	case "info":
		xlog.SetGlobalLogLevel(xlog.INFO)
	case "warning", "warn":
		xlog.SetGlobalLogLevel(xlog.WARNING)
	case "error", "":
		xlog.SetGlobalLogLevel(xlog.ERROR)
	default:
		return errors.Errorf("invalid log level: %s", level)
	}
	xlog.SetFormatter(xlog.NewStringFormatter(os.Stderr))
	return nil
}

// resolveServer returns the MCP server to connect to: the script argument,
// then the URL flag, then the configuration.
func resolveServer(cfg mcp.ServerConfig, url string, args []string) (mcp.ServerConfig, error) {
	if len(args) > 0 {
		sc, err := mcp.ServerConfigForScript(args[0])
		if err != nil {
			return sc, err
		}
		sc.Env = cfg.Env
		return sc, nil
	}
	if url != "" {
		return mcp.ServerConfig{URL: url}, nil
	}
	if err := cfg.Validate(); err != nil {
		return cfg, errors.New("a server script, --url or the mcp configuration is required")
	}
	return cfg, nil
}

func createModel(cfg *llmfactory.Config, provider string) (llms.Model, error) {
	if len(cfg.Providers) == 0 {
		cfg.Providers = []*llmfactory.ProviderConfig{llmfactory.DefaultProviderConfig()}
	}
	f := llmfactory.New(cfg)
	if provider != "" {
		return f.ModelByProvider(provider)
	}
	return f.DefaultModel()
}

func openHistory(ctx context.Context, cfg llmfactory.HistoryConfig) (store.HistoryStore, error) {
	if cfg.RedisURL == "" {
		return store.NewMemoryStore(), nil
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "mcpchat"
	}
	return store.NewRedisStoreFromURL(ctx, cfg.RedisURL, prefix)
}
