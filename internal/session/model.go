package session

import (
	"fmt"
	"strings"
	"time"

	"cppolygon/internal/llmclient"
	"cppolygon/internal/types"
)

// Tool is the tooling-panel tab. It has no effect on the busy flags.
type Tool string

const (
	ToolTests  Tool = "tests"
	ToolHunter Tool = "hunter"
)

// ParseTool maps a tab name to a Tool; anything unknown is rejected.
func ParseTool(s string) (Tool, error) {
	switch Tool(strings.ToLower(strings.TrimSpace(s))) {
	case ToolTests:
		return ToolTests, nil
	case ToolHunter:
		return ToolHunter, nil
	}
	return "", fmt.Errorf("%w: unknown tool %q", ErrInvalidArgument, s)
}

// Busy holds the three independent operation flags.
type Busy struct {
	Analyzing  bool `json:"analyzing"`
	Generating bool `json:"generating"`
	Hunting    bool `json:"hunting"`
}

// Notice is a user-facing message raised by a failed or discarded
// operation. Blocking notices are shown as an alert; non-blocking ones as a
// banner.
type Notice struct {
	Seq       uint64              `json:"seq"`
	Operation llmclient.Operation `json:"operation"`
	Message   string              `json:"message"`
	Blocking  bool                `json:"blocking"`
	At        time.Time           `json:"at"`
}

// Snapshot is an immutable copy of a session's state.
type Snapshot struct {
	SessionID    string               `json:"sessionId"`
	Version      uint64               `json:"version"`
	SpecRevision uint64               `json:"specRevision"`
	Spec         *types.ProblemSpec   `json:"spec,omitempty"`
	TestCases    []types.TestCase     `json:"testCases"`
	BugResult    *types.BugHuntResult `json:"bugResult,omitempty"`
	Busy         Busy                 `json:"busy"`
	Tool         Tool                 `json:"tool"`
	Notice       *Notice              `json:"notice,omitempty"`
}

// HasSpec reports whether a spec has been parsed.
func (s Snapshot) HasSpec() bool { return s.Spec != nil }

const (
	noticeParseFailed = "Phân tích thất bại"
	noticeTestsFailed = "Tạo test thất bại."
	noticeHuntFailed  = "Săn bug thất bại."
	noticeStale       = "Đề bài đã thay đổi, kết quả cũ đã bị bỏ qua."
)

// failureNotice returns the localized message for a failed operation. The
// parse message carries the error detail.
func failureNotice(op llmclient.Operation, err error) string {
	switch op {
	case llmclient.OpParse:
		if err != nil {
			return noticeParseFailed + ": " + err.Error()
		}
		return noticeParseFailed
	case llmclient.OpGenerateTests:
		return noticeTestsFailed
	case llmclient.OpHuntBug:
		return noticeHuntFailed
	default:
		return "Thao tác thất bại."
	}
}
