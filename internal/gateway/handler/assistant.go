package handler

import (
	"context"
	"errors"
	"strings"

	"connectrpc.com/connect"
	"go.uber.org/zap"

	"cppolygon/internal/api"
	"cppolygon/internal/gateway/middleware"
	"cppolygon/internal/llmclient"
	"cppolygon/internal/session"
	"cppolygon/internal/types"
)

var _ api.AssistantServiceHandler = (*AssistantHandler)(nil)

// AssistantHandler serves polygon.v1.AssistantService against the caller's
// session.
type AssistantHandler struct {
	log *zap.Logger
}

func NewAssistantHandler(log *zap.Logger) *AssistantHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &AssistantHandler{log: log.Named("rpc")}
}

func (h *AssistantHandler) ParseProblem(ctx context.Context, req *connect.Request[api.ParseProblemRequest]) (*connect.Response[api.ParseProblemResponse], error) {
	st, err := sessionOf(ctx)
	if err != nil {
		return nil, err
	}
	img, err := decodeImage(req.Msg)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	// Operations run to completion even if the caller goes away; the
	// result still reaches the session and its subscribers.
	spec, err := st.Analyze(context.WithoutCancel(ctx), req.Msg.Text, img)
	if err != nil {
		return nil, h.toConnectError(st, err)
	}
	return connect.NewResponse(&api.ParseProblemResponse{
		Spec:         spec,
		SpecRevision: st.Snapshot().SpecRevision,
	}), nil
}

func (h *AssistantHandler) GenerateTests(ctx context.Context, req *connect.Request[api.GenerateTestsRequest]) (*connect.Response[api.GenerateTestsResponse], error) {
	st, err := sessionOf(ctx)
	if err != nil {
		return nil, err
	}
	strategy, err := types.ParseStrategy(req.Msg.Strategy)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	cases, err := st.GenerateTests(context.WithoutCancel(ctx), strategy, req.Msg.Count)
	if err != nil {
		return nil, h.toConnectError(st, err)
	}
	return connect.NewResponse(&api.GenerateTestsResponse{TestCases: cases}), nil
}

func (h *AssistantHandler) HuntBug(ctx context.Context, req *connect.Request[api.HuntBugRequest]) (*connect.Response[api.HuntBugResponse], error) {
	st, err := sessionOf(ctx)
	if err != nil {
		return nil, err
	}
	res, err := st.HuntBug(context.WithoutCancel(ctx), req.Msg.Code)
	if err != nil {
		return nil, h.toConnectError(st, err)
	}
	return connect.NewResponse(&api.HuntBugResponse{Result: res}), nil
}

func (h *AssistantHandler) SelectTool(ctx context.Context, req *connect.Request[api.SelectToolRequest]) (*connect.Response[api.SelectToolResponse], error) {
	st, err := sessionOf(ctx)
	if err != nil {
		return nil, err
	}
	tool, err := session.ParseTool(req.Msg.Tool)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	st.SelectTool(tool)
	return connect.NewResponse(&api.SelectToolResponse{Tool: tool}), nil
}

func (h *AssistantHandler) GetState(ctx context.Context, _ *connect.Request[api.GetStateRequest]) (*connect.Response[api.GetStateResponse], error) {
	st, err := sessionOf(ctx)
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(&api.GetStateResponse{State: st.Snapshot()}), nil
}

func sessionOf(ctx context.Context) (*session.Store, error) {
	st, ok := middleware.SessionFrom(ctx)
	if !ok {
		return nil, connect.NewError(connect.CodeInternal, errors.New("session middleware is not installed"))
	}
	return st, nil
}

func decodeImage(msg *api.ParseProblemRequest) (*types.ImagePayload, error) {
	switch {
	case strings.TrimSpace(msg.ImageDataURL) != "":
		return types.DecodeDataURL(msg.ImageDataURL)
	case strings.TrimSpace(msg.ImageBase64) != "":
		return types.DecodeImage(msg.MIMEType, msg.ImageBase64)
	default:
		return nil, nil
	}
}

// toConnectError maps session and model failures onto connect codes. Model
// failures carry the localized notice as their message.
func (h *AssistantHandler) toConnectError(st *session.Store, err error) error {
	var opErr *session.OperationError
	switch {
	case errors.Is(err, session.ErrNoSpec):
		return connect.NewError(connect.CodeFailedPrecondition, err)
	case errors.Is(err, session.ErrInvalidArgument):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, session.ErrStaleSpec):
		return connect.NewError(connect.CodeAborted, err)
	case errors.As(err, &opErr):
		code := connect.CodeInternal
		if errors.Is(err, llmclient.ErrTransport) {
			code = connect.CodeUnavailable
		}
		return connect.NewError(code, errors.New(opErr.Notice))
	default:
		h.log.Error("unexpected operation error", zap.String("session", st.ID()), zap.Error(err))
		return connect.NewError(connect.CodeInternal, err)
	}
}
