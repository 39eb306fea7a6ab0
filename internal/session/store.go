package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"cppolygon/internal/llmclient"
	"cppolygon/internal/llmtool"
	"cppolygon/internal/types"
)

// Caller performs one model round trip. *llmclient.Gateway implements it.
type Caller interface {
	Call(ctx context.Context, req llmclient.Request) (string, error)
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for failure diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// WithClock overrides time.Now for generated timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDs overrides uuid.NewString for test case ids.
func WithIDs(newID func() string) Option {
	return func(s *Store) {
		if newID != nil {
			s.newID = newID
		}
	}
}

// Store is the state of one user session. State changes only through
// Analyze, GenerateTests, HuntBug and SelectTool; readers get Snapshots.
//
// Operations may overlap. Each busy flag is set on dispatch and cleared
// when its operation returns, whatever the outcome.
type Store struct {
	id    string
	llm   Caller
	log   *zap.Logger
	now   func() time.Time
	newID func() string

	mu        sync.Mutex
	spec      *types.ProblemSpec
	revision  uint64
	testCases []types.TestCase
	bugResult *types.BugHuntResult
	busy      Busy
	tool      Tool
	notice    *Notice
	noticeSeq uint64
	version   uint64
	changed   chan struct{}
}

// New creates an empty session bound to llm.
func New(id string, llm Caller, opts ...Option) *Store {
	s := &Store{
		id:      id,
		llm:     llm,
		log:     zap.NewNop(),
		now:     time.Now,
		newID:   uuid.NewString,
		tool:    ToolTests,
		changed: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With(zap.String("session", id))
	return s
}

// ID returns the session id.
func (s *Store) ID() string { return s.id }

// Analyze parses a problem statement. On success the spec is replaced and
// test cases and bug result are cleared. On failure the previous state is
// kept and a blocking notice is raised.
func (s *Store) Analyze(ctx context.Context, text string, image *types.ImagePayload) (types.ProblemSpec, error) {
	req, err := llmtool.BuildParse(text, image)
	if err != nil {
		return types.ProblemSpec{}, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}

	s.setBusy(func(b *Busy) { b.Analyzing = true })
	defer s.setBusy(func(b *Busy) { b.Analyzing = false })

	raw, err := s.llm.Call(ctx, req)
	var spec types.ProblemSpec
	if err == nil {
		spec, err = llmtool.ParseProblemSpec(raw)
	}
	if err != nil {
		return types.ProblemSpec{}, s.fail(llmclient.OpParse, err)
	}

	s.mu.Lock()
	stored := cloneSpec(spec)
	s.spec = &stored
	s.revision++
	s.testCases = nil
	s.bugResult = nil
	s.notifyLocked()
	s.mu.Unlock()
	return cloneSpec(spec), nil
}

// GenerateTests asks for count test cases of strategy against the current
// spec and prepends them to the list. count is clamped into [1, 20].
func (s *Store) GenerateTests(ctx context.Context, strategy types.TestStrategy, count int) ([]types.TestCase, error) {
	if strategy.Key() == "" {
		return nil, fmt.Errorf("%w: unknown test strategy %q", ErrInvalidArgument, strategy)
	}
	spec, rev, err := s.currentSpec()
	if err != nil {
		return nil, err
	}
	req, err := llmtool.BuildGenerateTests(spec, strategy, count)
	if err != nil {
		return nil, err
	}

	s.setBusy(func(b *Busy) { b.Generating = true })
	defer s.setBusy(func(b *Busy) { b.Generating = false })

	raw, err := s.llm.Call(ctx, req)
	var cases []types.TestCase
	if err == nil {
		cases, err = llmtool.ParseTestCases(raw, strategy, s.newID, s.now)
	}
	if err != nil {
		return nil, s.fail(llmclient.OpGenerateTests, err)
	}

	s.mu.Lock()
	if s.revision != rev {
		s.discardLocked(llmclient.OpGenerateTests)
		s.mu.Unlock()
		return nil, ErrStaleSpec
	}
	merged := make([]types.TestCase, 0, len(cases)+len(s.testCases))
	merged = append(merged, cases...)
	merged = append(merged, s.testCases...)
	s.testCases = merged
	s.notifyLocked()
	s.mu.Unlock()
	return append([]types.TestCase(nil), cases...), nil
}

// HuntBug asks for a counter-example for code against the current spec and
// replaces the bug result.
func (s *Store) HuntBug(ctx context.Context, code string) (types.BugHuntResult, error) {
	spec, rev, err := s.currentSpec()
	if err != nil {
		return types.BugHuntResult{}, err
	}
	req, err := llmtool.BuildHuntBug(spec, code)
	if err != nil {
		return types.BugHuntResult{}, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}

	s.setBusy(func(b *Busy) { b.Hunting = true })
	defer s.setBusy(func(b *Busy) { b.Hunting = false })

	raw, err := s.llm.Call(ctx, req)
	var result types.BugHuntResult
	if err == nil {
		result, err = llmtool.ParseBugHunt(raw)
	}
	if err != nil {
		return types.BugHuntResult{}, s.fail(llmclient.OpHuntBug, err)
	}

	s.mu.Lock()
	if s.revision != rev {
		s.discardLocked(llmclient.OpHuntBug)
		s.mu.Unlock()
		return types.BugHuntResult{}, ErrStaleSpec
	}
	stored := result
	s.bugResult = &stored
	s.notifyLocked()
	s.mu.Unlock()
	return result, nil
}

// SelectTool switches the tooling tab.
func (s *Store) SelectTool(t Tool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tool == t {
		return
	}
	s.tool = t
	s.notifyLocked()
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe emits the current snapshot and one more after every change
// until ctx is canceled. Slow readers only miss intermediate snapshots.
func (s *Store) Subscribe(ctx context.Context) <-chan Snapshot {
	out := make(chan Snapshot, 8)
	go func() {
		defer close(out)
		var last uint64
		first := true
		for {
			s.mu.Lock()
			snap := s.snapshotLocked()
			ch := s.changed
			s.mu.Unlock()

			if first || snap.Version != last {
				pushSnapshot(out, snap)
				last, first = snap.Version, false
			}
			select {
			case <-ctx.Done():
				return
			case <-ch:
			}
		}
	}()
	return out
}

func (s *Store) currentSpec() (types.ProblemSpec, uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.spec == nil {
		return types.ProblemSpec{}, 0, ErrNoSpec
	}
	return cloneSpec(*s.spec), s.revision, nil
}

func (s *Store) setBusy(update func(*Busy)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	update(&s.busy)
	s.notifyLocked()
}

// fail records a blocking notice for op and returns the OperationError.
func (s *Store) fail(op llmclient.Operation, err error) error {
	msg := failureNotice(op, err)
	fields := []zap.Field{zap.String("operation", string(op)), zap.Error(err)}
	var le *llmclient.Error
	if errors.As(err, &le) {
		fields = append(fields, zap.String("kind", le.Kind.String()))
		if le.Raw != "" {
			fields = append(fields, zap.String("raw", truncate(le.Raw, 2048)))
		}
	}
	s.log.Error("operation failed", fields...)

	s.mu.Lock()
	s.raiseLocked(op, msg, true)
	s.mu.Unlock()
	return &OperationError{Operation: op, Notice: msg, Err: err}
}

func (s *Store) discardLocked(op llmclient.Operation) {
	s.log.Warn("discarding result for replaced spec", zap.String("operation", string(op)))
	s.raiseLocked(op, noticeStale, false)
}

func (s *Store) raiseLocked(op llmclient.Operation, msg string, blocking bool) {
	s.noticeSeq++
	s.notice = &Notice{
		Seq:       s.noticeSeq,
		Operation: op,
		Message:   msg,
		Blocking:  blocking,
		At:        s.now(),
	}
	s.notifyLocked()
}

func (s *Store) notifyLocked() {
	s.version++
	close(s.changed)
	s.changed = make(chan struct{})
}

func (s *Store) snapshotLocked() Snapshot {
	snap := Snapshot{
		SessionID:    s.id,
		Version:      s.version,
		SpecRevision: s.revision,
		TestCases:    append([]types.TestCase{}, s.testCases...),
		Busy:         s.busy,
		Tool:         s.tool,
	}
	if s.spec != nil {
		spec := cloneSpec(*s.spec)
		snap.Spec = &spec
	}
	if s.bugResult != nil {
		b := *s.bugResult
		snap.BugResult = &b
	}
	if s.notice != nil {
		n := *s.notice
		snap.Notice = &n
	}
	return snap
}

func cloneSpec(in types.ProblemSpec) types.ProblemSpec {
	out := in
	out.Variables = append([]types.VariableSpec{}, in.Variables...)
	out.Constraints = append([]string{}, in.Constraints...)
	out.EdgeCasesAnalysis = append([]string{}, in.EdgeCasesAnalysis...)
	return out
}

func pushSnapshot(out chan Snapshot, snap Snapshot) {
	select {
	case out <- snap:
		return
	default:
	}
	select {
	case <-out:
	default:
	}
	select {
	case out <- snap:
	default:
	}
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return strings.ToValidUTF8(s[:n], "") + "…"
}
