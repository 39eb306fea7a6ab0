package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"cppolygon/internal/api"
	"cppolygon/internal/gateway/handler"
	"cppolygon/internal/llmclient"
	"cppolygon/internal/session"
	"cppolygon/internal/types"
	"cppolygon/internal/view"
)

func newTestServer(t *testing.T) (*httptest.Server, *llmclient.FakeClient) {
	t.Helper()
	fake := llmclient.NewFakeClient()
	reg := prometheus.NewRegistry()
	client := llmclient.Wrap(fake, llmclient.WithMetrics(llmclient.NewMetrics(reg)))
	gw := llmclient.NewGateway(client, llmclient.Models{})
	sessions := session.NewRegistry(gw, 16, time.Minute, zap.NewNop())
	r := view.MustNew()

	mux := NewMux(
		handler.NewAssistantHandler(nil),
		handler.NewPageHandler(r, nil),
		handler.NewStateStream(r, nil),
		sessions, reg, zap.NewNop(),
	)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, fake
}

func connectCode(t *testing.T, err error) connect.Code {
	t.Helper()
	require.Error(t, err)
	return connect.CodeOf(err)
}

func connectMessage(err error) string {
	var ce *connect.Error
	if errors.As(err, &ce) {
		return ce.Message()
	}
	return ""
}

func TestAssistantService_Flow(t *testing.T) {
	srv, fake := newTestServer(t)
	ctx := context.Background()
	c := api.NewClient(srv.Client(), srv.URL, "")

	parsed, err := c.ParseProblem(ctx, api.ParseProblemRequest{Text: "n ≤ 10^5"})
	require.NoError(t, err)
	assert.NotNil(t, parsed.Spec.Variables)
	assert.True(t, parsed.Spec.Confidence.Valid())
	assert.Equal(t, uint64(1), parsed.SpecRevision)
	require.NotEmpty(t, c.SessionID())

	fake.EnqueueJSON(llmclient.OpGenerateTests, map[string]any{"testCases": []any{
		map[string]any{"input": "1"}, map[string]any{"input": "2"}, map[string]any{"input": "3"},
	}})
	gen, err := c.GenerateTests(ctx, api.GenerateTestsRequest{Strategy: "overflow", Count: 3})
	require.NoError(t, err)
	require.Len(t, gen.TestCases, 3)
	for _, tc := range gen.TestCases {
		assert.Equal(t, types.StrategyOverflow, tc.Strategy)
	}

	hunt, err := c.HuntBug(ctx, api.HuntBugRequest{Code: "int main() { return 1; }"})
	require.NoError(t, err)
	assert.Equal(t, "1", hunt.Result.ActualOutput)

	tool, err := c.SelectTool(ctx, api.SelectToolRequest{Tool: "hunter"})
	require.NoError(t, err)
	assert.Equal(t, session.ToolHunter, tool.Tool)

	state, err := c.GetState(ctx)
	require.NoError(t, err)
	assert.Equal(t, c.SessionID(), state.State.SessionID)
	assert.Len(t, state.State.TestCases, 3)
	assert.NotNil(t, state.State.BugResult)
	assert.Equal(t, session.ToolHunter, state.State.Tool)
}

func TestAssistantService_Errors(t *testing.T) {
	srv, fake := newTestServer(t)
	ctx := context.Background()
	c := api.NewClient(srv.Client(), srv.URL, "")

	_, err := c.GenerateTests(ctx, api.GenerateTestsRequest{Strategy: "small"})
	assert.Equal(t, connect.CodeFailedPrecondition, connectCode(t, err))

	_, err = c.ParseProblem(ctx, api.ParseProblemRequest{})
	assert.Equal(t, connect.CodeInvalidArgument, connectCode(t, err))

	_, err = c.ParseProblem(ctx, api.ParseProblemRequest{ImageDataURL: "data:text/plain;base64,aGk="})
	assert.Equal(t, connect.CodeInvalidArgument, connectCode(t, err))

	fake.Enqueue(llmclient.OpParse, llmclient.FakeResponse{Text: ""})
	_, err = c.ParseProblem(ctx, api.ParseProblemRequest{Text: "a + b"})
	assert.Equal(t, connect.CodeInternal, connectCode(t, err))
	assert.True(t, strings.HasPrefix(connectMessage(err), "Phân tích thất bại"))

	_, err = c.ParseProblem(ctx, api.ParseProblemRequest{Text: "a + b"})
	require.NoError(t, err)

	_, err = c.GenerateTests(ctx, api.GenerateTestsRequest{Strategy: "bogus"})
	assert.Equal(t, connect.CodeInvalidArgument, connectCode(t, err))

	fake.Enqueue(llmclient.OpHuntBug, llmclient.FakeResponse{Err: errors.New("quota exceeded")})
	_, err = c.HuntBug(ctx, api.HuntBugRequest{Code: "x"})
	assert.Equal(t, connect.CodeUnavailable, connectCode(t, err))
	assert.Equal(t, "Săn bug thất bại.", connectMessage(err))

	_, err = c.SelectTool(ctx, api.SelectToolRequest{Tool: "debugger"})
	assert.Equal(t, connect.CodeInvalidArgument, connectCode(t, err))
}

func TestGenerateTests_CountIsClamped(t *testing.T) {
	srv, fake := newTestServer(t)
	ctx := context.Background()
	c := api.NewClient(srv.Client(), srv.URL, "")
	_, err := c.ParseProblem(ctx, api.ParseProblemRequest{Text: "a + b"})
	require.NoError(t, err)

	for _, tc := range []struct {
		count int
		want  string
	}{
		{0, "Generate 1 distinct"},
		{-5, "Generate 1 distinct"},
		{25, "Generate 20 distinct"},
		{3, "Generate 3 distinct"},
	} {
		_, err := c.GenerateTests(ctx, api.GenerateTestsRequest{Strategy: "overflow", Count: tc.count})
		require.NoError(t, err)
		calls := fake.Calls()
		last := calls[len(calls)-1]
		require.Equal(t, llmclient.OpGenerateTests, last.Operation)
		assert.Contains(t, last.Prompt, tc.want, "count %d", tc.count)
	}
}

func TestSessionsAreIsolated(t *testing.T) {
	srv, _ := newTestServer(t)
	ctx := context.Background()
	a := api.NewClient(srv.Client(), srv.URL, "")
	b := api.NewClient(srv.Client(), srv.URL, "")

	_, err := a.ParseProblem(ctx, api.ParseProblemRequest{Text: "a + b"})
	require.NoError(t, err)
	_, err = b.GenerateTests(ctx, api.GenerateTestsRequest{Strategy: "small"})
	assert.Equal(t, connect.CodeFailedPrecondition, connectCode(t, err))
	assert.NotEqual(t, a.SessionID(), b.SessionID())
}

func TestPageAndOps(t *testing.T) {
	srv, _ := newTestServer(t)

	res, err := srv.Client().Get(srv.URL + "/")
	require.NoError(t, err)
	body, _ := io.ReadAll(res.Body)
	res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, string(body), "CP-AI Polygon")
	assert.NotEmpty(t, res.Cookies())

	res, err = srv.Client().Get(srv.URL + "/healthz")
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Empty(t, res.Cookies())

	c := api.NewClient(srv.Client(), srv.URL, "")
	_, err = c.ParseProblem(context.Background(), api.ParseProblemRequest{Text: "a + b"})
	require.NoError(t, err)

	res, err = srv.Client().Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body, _ = io.ReadAll(res.Body)
	res.Body.Close()
	assert.Contains(t, string(body), `polygon_llm_requests_total{model="gemini-3-pro-preview",operation="parse",outcome="ok"} 1`)

	res, err = srv.Client().Get(srv.URL + "/nope")
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestStateStream(t *testing.T) {
	srv, _ := newTestServer(t)
	ctx := context.Background()
	c := api.NewClient(srv.Client(), srv.URL, "")
	_, err := c.GetState(ctx)
	require.NoError(t, err)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, http.Header{api.SessionHeader: {c.SessionID()}})
	require.NoError(t, err)
	defer conn.Close()

	read := func() view.StateMessage {
		t.Helper()
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		var msg view.StateMessage
		require.NoError(t, conn.ReadJSON(&msg))
		return msg
	}

	first := read()
	assert.Equal(t, "state", first.Type)
	assert.False(t, first.HasSpec)
	assert.Contains(t, first.Panels[view.PanelSpec], "Chưa có dữ liệu bài toán")

	_, err = c.ParseProblem(ctx, api.ParseProblemRequest{Text: "a + b"})
	require.NoError(t, err)

	for {
		msg := read()
		if msg.HasSpec && !msg.Busy.Analyzing {
			assert.Contains(t, msg.Panels[view.PanelSpec], "Fake Problem")
			break
		}
	}
}
