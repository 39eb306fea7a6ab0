package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"cppolygon/internal/llmclient"
	"cppolygon/internal/types"
)

func newTestStore(t *testing.T, opts ...Option) (*Store, *llmclient.FakeClient) {
	t.Helper()
	fake := llmclient.NewFakeClient()
	return New("test-session", llmclient.NewGateway(fake, llmclient.Models{}), opts...), fake
}

func batch(inputs ...string) map[string]any {
	items := make([]any, 0, len(inputs))
	for _, in := range inputs {
		items = append(items, map[string]any{"input": in, "expectedOutput": "out-" + in, "explanation": "vì sao"})
	}
	return map[string]any{"testCases": items}
}

func waitStarted(t *testing.T, fake *llmclient.FakeClient, op llmclient.Operation) {
	t.Helper()
	deadline := time.After(time.Second)
	for {
		select {
		case req := <-fake.Started():
			if req.Operation == op {
				return
			}
		case <-deadline:
			t.Fatalf("%s call did not start", op)
		}
	}
}

func inputs(cases []types.TestCase) []string {
	out := make([]string, 0, len(cases))
	for _, tc := range cases {
		out = append(out, tc.Input)
	}
	return out
}

func TestAnalyze_TextOnly(t *testing.T) {
	st, fake := newTestStore(t)
	fake.Enqueue(llmclient.OpParse, llmclient.FakeResponse{Text: `{"title":"Sum","confidence":"Very High"}`})

	spec, err := st.Analyze(context.Background(), "n ≤ 10^5", nil)
	require.NoError(t, err)
	assert.Equal(t, "Sum", spec.Title)
	assert.NotNil(t, spec.Variables)
	assert.Empty(t, spec.Variables)
	assert.Equal(t, types.ConfidenceLow, spec.Confidence)

	call := fake.Calls()[0]
	assert.Equal(t, llmclient.DefaultReasoningModel, call.Model)
	assert.NotNil(t, call.Schema)
	assert.Equal(t, []string{"Problem Text:\nn ≤ 10^5"}, call.Texts)

	snap := st.Snapshot()
	require.True(t, snap.HasSpec())
	assert.Equal(t, uint64(1), snap.SpecRevision)
	assert.False(t, snap.Busy.Analyzing)
}

func TestAnalyze_EmptyStatementRejected(t *testing.T) {
	st, fake := newTestStore(t)
	_, err := st.Analyze(context.Background(), "   ", nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.Empty(t, fake.Calls())
	assert.Zero(t, st.Snapshot().Version)
}

func TestAnalyze_ReparseClearsDownstream(t *testing.T) {
	st, fake := newTestStore(t)
	ctx := context.Background()

	_, err := st.Analyze(ctx, "a + b", nil)
	require.NoError(t, err)
	_, err = st.GenerateTests(ctx, types.StrategySmall, 1)
	require.NoError(t, err)
	_, err = st.HuntBug(ctx, "int main(){}")
	require.NoError(t, err)

	before := st.Snapshot()
	require.Len(t, before.TestCases, 1)
	require.NotNil(t, before.BugResult)

	fake.Enqueue(llmclient.OpParse, llmclient.FakeResponse{Text: `{"title":"Other"}`})
	_, err = st.Analyze(ctx, "a + b", nil)
	require.NoError(t, err)

	after := st.Snapshot()
	assert.Equal(t, "Other", after.Spec.Title)
	assert.Empty(t, after.TestCases)
	assert.Nil(t, after.BugResult)
	assert.Equal(t, uint64(2), after.SpecRevision)
}

func TestAnalyze_EmptyResponseKeepsState(t *testing.T) {
	st, fake := newTestStore(t)
	fake.Enqueue(llmclient.OpParse, llmclient.FakeResponse{Text: ""})

	_, err := st.Analyze(context.Background(), "a + b", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, llmclient.ErrEmptyResponse)

	var opErr *OperationError
	require.True(t, errors.As(err, &opErr))
	assert.Equal(t, llmclient.OpParse, opErr.Operation)
	assert.True(t, strings.HasPrefix(opErr.Notice, noticeParseFailed))

	snap := st.Snapshot()
	assert.Nil(t, snap.Spec)
	assert.False(t, snap.Busy.Analyzing)
	require.NotNil(t, snap.Notice)
	assert.True(t, snap.Notice.Blocking)
	assert.Equal(t, opErr.Notice, snap.Notice.Message)
}

func TestGenerateTests_RequiresSpec(t *testing.T) {
	st, fake := newTestStore(t)
	_, err := st.GenerateTests(context.Background(), types.StrategySmall, 5)
	assert.ErrorIs(t, err, ErrNoSpec)
	_, err = st.HuntBug(context.Background(), "code")
	assert.ErrorIs(t, err, ErrNoSpec)

	assert.Empty(t, fake.Calls())
	assert.Equal(t, Busy{}, st.Snapshot().Busy)
	assert.Zero(t, st.Snapshot().Version)
}

func TestGenerateTests_UnknownStrategy(t *testing.T) {
	st, _ := newTestStore(t)
	_, err := st.GenerateTests(context.Background(), types.TestStrategy("bogus"), 5)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestGenerateTests_NewestBatchFirst(t *testing.T) {
	st, fake := newTestStore(t)
	ctx := context.Background()
	_, err := st.Analyze(ctx, "a + b", nil)
	require.NoError(t, err)

	fake.EnqueueJSON(llmclient.OpGenerateTests, batch("a1", "a2"))
	fake.EnqueueJSON(llmclient.OpGenerateTests, batch("b1"))
	fake.EnqueueJSON(llmclient.OpGenerateTests, batch("c1", "c2"))
	for i := 0; i < 3; i++ {
		_, err := st.GenerateTests(ctx, types.StrategyRandomUniform, 2)
		require.NoError(t, err)
	}

	assert.Equal(t, []string{"c1", "c2", "b1", "a1", "a2"}, inputs(st.Snapshot().TestCases))
}

func TestGenerateTests_OverflowThree(t *testing.T) {
	st, fake := newTestStore(t)
	ctx := context.Background()
	_, err := st.Analyze(ctx, "a + b", nil)
	require.NoError(t, err)

	fake.EnqueueJSON(llmclient.OpGenerateTests, batch("1", "2", "3"))
	cases, err := st.GenerateTests(ctx, types.StrategyOverflow, 3)
	require.NoError(t, err)
	require.Len(t, cases, 3)

	seen := map[string]bool{}
	for _, tc := range cases {
		assert.Equal(t, types.StrategyOverflow, tc.Strategy)
		assert.NotEmpty(t, tc.ID)
		assert.False(t, seen[tc.ID], "duplicate id %s", tc.ID)
		seen[tc.ID] = true
	}

	calls := fake.Calls()
	prompt := calls[len(calls)-1].Prompt
	assert.Contains(t, prompt, "Generate 3 distinct test cases")
	assert.Contains(t, prompt, string(types.StrategyOverflow))
}

func TestGenerateTests_ClampsCount(t *testing.T) {
	st, fake := newTestStore(t)
	ctx := context.Background()
	_, err := st.Analyze(ctx, "a + b", nil)
	require.NoError(t, err)

	for _, tc := range []struct{ in, want int }{{0, 1}, {-5, 1}, {25, 20}} {
		_, err := st.GenerateTests(ctx, types.StrategySmall, tc.in)
		require.NoError(t, err)
		calls := fake.Calls()
		assert.Contains(t, calls[len(calls)-1].Prompt, fmt.Sprintf("Generate %d distinct", tc.want))
	}
}

func TestGenerateTests_FailureKeepsPriorCases(t *testing.T) {
	st, fake := newTestStore(t, WithIDs(func() string { return "fixed" }))
	ctx := context.Background()
	_, err := st.Analyze(ctx, "a + b", nil)
	require.NoError(t, err)
	_, err = st.GenerateTests(ctx, types.StrategySmall, 1)
	require.NoError(t, err)

	fake.Enqueue(llmclient.OpGenerateTests, llmclient.FakeResponse{Text: "not json"})
	_, err = st.GenerateTests(ctx, types.StrategySmall, 1)
	assert.ErrorIs(t, err, llmclient.ErrMalformedResponse)

	fake.Enqueue(llmclient.OpGenerateTests, llmclient.FakeResponse{Text: `{"cases":[]}`})
	_, err = st.GenerateTests(ctx, types.StrategySmall, 1)
	assert.ErrorIs(t, err, llmclient.ErrInvalidFormat)

	snap := st.Snapshot()
	require.Len(t, snap.TestCases, 1)
	assert.Equal(t, "fixed", snap.TestCases[0].ID)
	assert.False(t, snap.Busy.Generating)
	require.NotNil(t, snap.Notice)
	assert.Equal(t, noticeTestsFailed, snap.Notice.Message)
}

func TestHuntBug_AllFieldsPresent(t *testing.T) {
	st, fake := newTestStore(t)
	ctx := context.Background()
	_, err := st.Analyze(ctx, "a + b", nil)
	require.NoError(t, err)

	fake.Enqueue(llmclient.OpHuntBug, llmclient.FakeResponse{Text: "```json\n{\"input\":\"1 1\"}\n```"})
	res, err := st.HuntBug(ctx, "print(1)")
	require.NoError(t, err)
	assert.Equal(t, types.BugHuntResult{Input: "1 1"}, res)

	_, err = st.HuntBug(ctx, "  ")
	assert.ErrorIs(t, err, ErrInvalidArgument)

	fake.Enqueue(llmclient.OpHuntBug, llmclient.FakeResponse{Err: errors.New("quota")})
	_, err = st.HuntBug(ctx, "print(1)")
	assert.ErrorIs(t, err, llmclient.ErrTransport)
	assert.Equal(t, "1 1", st.Snapshot().BugResult.Input)
}

func TestBusyFlagWhileInFlight(t *testing.T) {
	st, fake := newTestStore(t)
	ctx := context.Background()
	_, err := st.Analyze(ctx, "a + b", nil)
	require.NoError(t, err)

	release := fake.Hold(llmclient.OpHuntBug)
	done := make(chan error, 1)
	go func() {
		_, err := st.HuntBug(ctx, "code")
		done <- err
	}()
	waitStarted(t, fake, llmclient.OpHuntBug)

	busy := st.Snapshot().Busy
	assert.True(t, busy.Hunting)
	assert.False(t, busy.Generating)
	assert.False(t, busy.Analyzing)

	// Independent flags: generation proceeds while the hunt is pending.
	_, err = st.GenerateTests(ctx, types.StrategySmall, 1)
	require.NoError(t, err)
	assert.True(t, st.Snapshot().Busy.Hunting)

	release()
	require.NoError(t, <-done)
	assert.Equal(t, Busy{}, st.Snapshot().Busy)
}

func TestStaleResultIsDiscarded(t *testing.T) {
	st, fake := newTestStore(t)
	ctx := context.Background()
	_, err := st.Analyze(ctx, "first", nil)
	require.NoError(t, err)

	release := fake.Hold(llmclient.OpGenerateTests)
	done := make(chan error, 1)
	go func() {
		_, err := st.GenerateTests(ctx, types.StrategySmall, 1)
		done <- err
	}()
	waitStarted(t, fake, llmclient.OpGenerateTests)

	_, err = st.Analyze(ctx, "second", nil)
	require.NoError(t, err)
	release()

	assert.ErrorIs(t, <-done, ErrStaleSpec)
	snap := st.Snapshot()
	assert.Empty(t, snap.TestCases)
	assert.False(t, snap.Busy.Generating)
	require.NotNil(t, snap.Notice)
	assert.False(t, snap.Notice.Blocking)
	assert.Equal(t, llmclient.OpGenerateTests, snap.Notice.Operation)
}

func TestSnapshotIsACopy(t *testing.T) {
	st, _ := newTestStore(t)
	ctx := context.Background()
	_, err := st.Analyze(ctx, "a + b", nil)
	require.NoError(t, err)
	_, err = st.GenerateTests(ctx, types.StrategySmall, 1)
	require.NoError(t, err)

	snap := st.Snapshot()
	snap.Spec.Title = "mutated"
	snap.TestCases[0].Input = "mutated"

	again := st.Snapshot()
	assert.NotEqual(t, "mutated", again.Spec.Title)
	assert.NotEqual(t, "mutated", again.TestCases[0].Input)
}

func TestSelectTool(t *testing.T) {
	st, _ := newTestStore(t)
	assert.Equal(t, ToolTests, st.Snapshot().Tool)
	st.SelectTool(ToolHunter)
	assert.Equal(t, ToolHunter, st.Snapshot().Tool)

	v := st.Snapshot().Version
	st.SelectTool(ToolHunter)
	assert.Equal(t, v, st.Snapshot().Version)

	_, err := ParseTool("debugger")
	assert.ErrorIs(t, err, ErrInvalidArgument)
	tool, err := ParseTool(" Hunter ")
	require.NoError(t, err)
	assert.Equal(t, ToolHunter, tool)
}

func TestSubscribe(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	st, _ := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	sub := st.Subscribe(ctx)

	first := <-sub
	assert.Equal(t, ToolTests, first.Tool)

	st.SelectTool(ToolHunter)
	deadline := time.After(time.Second)
	for got := false; !got; {
		select {
		case snap := <-sub:
			got = snap.Tool == ToolHunter
		case <-deadline:
			t.Fatal("no snapshot after SelectTool")
		}
	}

	cancel()
	for range sub {
	}
}

func TestTruncate_KeepsRunesWhole(t *testing.T) {
	out := truncate("ăăă", 3)
	assert.Equal(t, "ă…", out)
	assert.True(t, utf8.ValidString(out))
	assert.Equal(t, "abc", truncate("  abc  ", 3))
}
