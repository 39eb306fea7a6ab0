package api

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
)

// AssistantServiceHandler is implemented by the gateway.
type AssistantServiceHandler interface {
	ParseProblem(context.Context, *connect.Request[ParseProblemRequest]) (*connect.Response[ParseProblemResponse], error)
	GenerateTests(context.Context, *connect.Request[GenerateTestsRequest]) (*connect.Response[GenerateTestsResponse], error)
	HuntBug(context.Context, *connect.Request[HuntBugRequest]) (*connect.Response[HuntBugResponse], error)
	SelectTool(context.Context, *connect.Request[SelectToolRequest]) (*connect.Response[SelectToolResponse], error)
	GetState(context.Context, *connect.Request[GetStateRequest]) (*connect.Response[GetStateResponse], error)
}

// NewAssistantServiceHandler builds an HTTP handler serving every procedure
// of svc. It returns the path prefix to mount it on.
func NewAssistantServiceHandler(svc AssistantServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{WithCodec()}, opts...)
	mux := http.NewServeMux()
	mux.Handle(ParseProblemProcedure, connect.NewUnaryHandler(ParseProblemProcedure, svc.ParseProblem, opts...))
	mux.Handle(GenerateTestsProcedure, connect.NewUnaryHandler(GenerateTestsProcedure, svc.GenerateTests, opts...))
	mux.Handle(HuntBugProcedure, connect.NewUnaryHandler(HuntBugProcedure, svc.HuntBug, opts...))
	mux.Handle(SelectToolProcedure, connect.NewUnaryHandler(SelectToolProcedure, svc.SelectTool, opts...))
	mux.Handle(GetStateProcedure, connect.NewUnaryHandler(GetStateProcedure, svc.GetState, opts...))
	return "/" + ServiceName + "/", mux
}
