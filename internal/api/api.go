// Package api is the wire contract of polygon.v1.AssistantService, shared by
// the gateway handlers and the CLI client. Messages are plain structs
// carried by a JSON codec over the connect protocol.
package api

import (
	"cppolygon/internal/session"
	"cppolygon/internal/types"
)

const ServiceName = "polygon.v1.AssistantService"

const (
	ParseProblemProcedure  = "/" + ServiceName + "/ParseProblem"
	GenerateTestsProcedure = "/" + ServiceName + "/GenerateTests"
	HuntBugProcedure       = "/" + ServiceName + "/HuntBug"
	SelectToolProcedure    = "/" + ServiceName + "/SelectTool"
	GetStateProcedure      = "/" + ServiceName + "/GetState"
)

// SessionHeader carries the session id for non-browser clients. The
// gateway echoes the effective id in the response.
const SessionHeader = "X-Polygon-Session"

// ParseProblemRequest carries statement text and an optional image, either
// as a data URL or as raw base64 plus media type.
type ParseProblemRequest struct {
	Text         string `json:"text"`
	ImageDataURL string `json:"imageDataUrl,omitempty"`
	ImageBase64  string `json:"imageBase64,omitempty"`
	MIMEType     string `json:"mimeType,omitempty"`
}

type ParseProblemResponse struct {
	Spec         types.ProblemSpec `json:"spec"`
	SpecRevision uint64            `json:"specRevision"`
}

// GenerateTestsRequest selects a strategy by key or label. Count is
// clamped into [1, 20], so zero and negatives ask for one case.
type GenerateTestsRequest struct {
	Strategy string `json:"strategy"`
	Count    int    `json:"count"`
}

type GenerateTestsResponse struct {
	TestCases []types.TestCase `json:"testCases"`
}

type HuntBugRequest struct {
	Code string `json:"code"`
}

type HuntBugResponse struct {
	Result types.BugHuntResult `json:"result"`
}

type SelectToolRequest struct {
	Tool string `json:"tool"`
}

type SelectToolResponse struct {
	Tool session.Tool `json:"tool"`
}

type GetStateRequest struct{}

type GetStateResponse struct {
	State session.Snapshot `json:"state"`
}
