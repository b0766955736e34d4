package mcp

import (
	"context"
	"encoding/json"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpchat/pkg/llms"
	"github.com/effective-security/mcpchat/tools"
	"github.com/effective-security/xlog"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// Session is the part of an MCP client session used by the Client.
type Session interface {
	ListTools(ctx context.Context, params *mcpsdk.ListToolsParams) (*mcpsdk.ListToolsResult, error)
	CallTool(ctx context.Context, params *mcpsdk.CallToolParams) (*mcpsdk.CallToolResult, error)
	Close() error
}

var _ Session = (*mcpsdk.ClientSession)(nil)

// Client is a tools.Provider backed by an MCP session.
type Client struct {
	session Session
	closers []func() error
}

var _ tools.Provider = (*Client)(nil)

// NewClient returns a provider over the session.
func NewClient(session Session) *Client {
	return &Client{session: session}
}

// ListTools returns all the tools of the server, following pagination cursors.
func (c *Client) ListTools(ctx context.Context) ([]tools.Descriptor, error) {
	var list []tools.Descriptor
	seen := map[string]bool{}
	params := &mcpsdk.ListToolsParams{}
	for {
		res, err := c.session.ListTools(ctx, params)
		if err != nil {
			return nil, errors.Wrap(err, "mcp: failed to list tools")
		}
		if res == nil {
			break
		}

		for _, t := range res.Tools {
			if t == nil {
				continue
			}
			schema, err := toSchemaMap(t.InputSchema)
			if err != nil {
				return nil, errors.WithMessagef(err, "mcp: tool %q", t.Name)
			}
			list = append(list, tools.Descriptor{
				Name:        t.Name,
				Description: t.Description,
				InputSchema: schema,
			})
		}

		if res.NextCursor == "" || seen[res.NextCursor] {
			break
		}
		seen[res.NextCursor] = true
		params = &mcpsdk.ListToolsParams{Cursor: res.NextCursor}
	}
	return list, nil
}

// CallTool calls the tool on the server. Text content is returned as is,
// any other content is returned in its JSON form.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]any) (*tools.CallResult, error) {
	params := &mcpsdk.CallToolParams{Name: name}
	if args != nil {
		params.Arguments = args
	}

	res, err := c.session.CallTool(ctx, params)
	if err != nil {
		return nil, errors.Wrapf(err, "mcp: failed to call tool %q", name)
	}
	if res == nil {
		return nil, nil
	}

	result := &tools.CallResult{
		Content: make([]llms.TextContent, 0, len(res.Content)),
		IsError: res.IsError,
	}
	for _, content := range res.Content {
		switch typ := content.(type) {
		case *mcpsdk.TextContent:
			result.Content = append(result.Content, llms.TextContent{Text: typ.Text})
		default:
			js, err := json.Marshal(content)
			if err != nil {
				return nil, errors.Wrapf(err, "mcp: failed to encode %T content of tool %q", content, name)
			}
			logger.ContextKV(ctx, xlog.DEBUG,
				"status", "non_text_content",
				"tool", name,
				"type", typeName(content))
			result.Content = append(result.Content, llms.TextContent{Text: string(js)})
		}
	}
	return result, nil
}

// Close ends the session, and stops the server subprocess if any.
func (c *Client) Close() error {
	err := c.session.Close()
	for _, closer := range c.closers {
		if cerr := closer(); cerr != nil && err == nil {
			err = cerr
		}
	}
	if err != nil {
		return errors.Wrap(err, "mcp: failed to close session")
	}
	return nil
}

func toSchemaMap(schema any) (map[string]any, error) {
	switch typ := schema.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		return typ, nil
	}

	js, err := json.Marshal(schema)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode input schema")
	}
	var m map[string]any
	if err := json.Unmarshal(js, &m); err != nil {
		return nil, errors.Wrap(err, "input schema is not an object")
	}
	return m, nil
}

func typeName(content mcpsdk.Content) string {
	switch content.(type) {
	case *mcpsdk.ImageContent:
		return "image"
	case *mcpsdk.AudioContent:
		return "audio"
	case *mcpsdk.ResourceLink:
		return "resource_link"
	case *mcpsdk.EmbeddedResource:
		return "resource"
	default:
		return "unknown"
	}
}
