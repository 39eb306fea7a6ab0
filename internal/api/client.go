package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"

	"connectrpc.com/connect"
)

// Client is a typed client for AssistantService. It remembers the session
// id handed out by the gateway and sends it on every call.
type Client struct {
	parse    *connect.Client[ParseProblemRequest, ParseProblemResponse]
	generate *connect.Client[GenerateTestsRequest, GenerateTestsResponse]
	hunt     *connect.Client[HuntBugRequest, HuntBugResponse]
	tool     *connect.Client[SelectToolRequest, SelectToolResponse]
	state    *connect.Client[GetStateRequest, GetStateResponse]

	mu        sync.Mutex
	sessionID string
}

// NewClient creates a client for the gateway at baseURL. A nil httpClient
// uses http.DefaultClient.
func NewClient(httpClient connect.HTTPClient, baseURL, sessionID string, opts ...connect.ClientOption) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{WithCodec()}, opts...)
	return &Client{
		parse:     connect.NewClient[ParseProblemRequest, ParseProblemResponse](httpClient, baseURL+ParseProblemProcedure, opts...),
		generate:  connect.NewClient[GenerateTestsRequest, GenerateTestsResponse](httpClient, baseURL+GenerateTestsProcedure, opts...),
		hunt:      connect.NewClient[HuntBugRequest, HuntBugResponse](httpClient, baseURL+HuntBugProcedure, opts...),
		tool:      connect.NewClient[SelectToolRequest, SelectToolResponse](httpClient, baseURL+SelectToolProcedure, opts...),
		state:     connect.NewClient[GetStateRequest, GetStateResponse](httpClient, baseURL+GetStateProcedure, opts...),
		sessionID: strings.TrimSpace(sessionID),
	}
}

// SessionID returns the id of the session the client is bound to, or ""
// before the first call.
func (c *Client) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

func (c *Client) ParseProblem(ctx context.Context, req ParseProblemRequest) (*ParseProblemResponse, error) {
	return call(ctx, c, c.parse, req)
}

func (c *Client) GenerateTests(ctx context.Context, req GenerateTestsRequest) (*GenerateTestsResponse, error) {
	return call(ctx, c, c.generate, req)
}

func (c *Client) HuntBug(ctx context.Context, req HuntBugRequest) (*HuntBugResponse, error) {
	return call(ctx, c, c.hunt, req)
}

func (c *Client) SelectTool(ctx context.Context, req SelectToolRequest) (*SelectToolResponse, error) {
	return call(ctx, c, c.tool, req)
}

func (c *Client) GetState(ctx context.Context) (*GetStateResponse, error) {
	return call(ctx, c, c.state, GetStateRequest{})
}

func call[Req, Res any](ctx context.Context, c *Client, cc *connect.Client[Req, Res], msg Req) (*Res, error) {
	req := connect.NewRequest(&msg)
	if id := c.SessionID(); id != "" {
		req.Header().Set(SessionHeader, id)
	}
	res, err := cc.CallUnary(ctx, req)
	if err != nil {
		var ce *connect.Error
		if errors.As(err, &ce) {
			c.remember(ce.Meta())
		}
		return nil, err
	}
	c.remember(res.Header())
	return res.Msg, nil
}

func (c *Client) remember(h http.Header) {
	id := strings.TrimSpace(h.Get(SessionHeader))
	if id == "" {
		return
	}
	c.mu.Lock()
	c.sessionID = id
	c.mu.Unlock()
}
