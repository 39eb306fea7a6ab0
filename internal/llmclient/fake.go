package llmclient

import (
	"context"
	"encoding/json"
	"sync"
)

// FakeResponse is one scripted reply.
type FakeResponse struct {
	Text string
	Err  error
}

// FakeClient returns scripted replies per operation for tests. When no reply
// is queued it falls back to a deterministic, minimal payload.
type FakeClient struct {
	mu      sync.Mutex
	queued  map[Operation][]FakeResponse
	holds   map[Operation]chan struct{}
	calls   []Request
	started chan Request
}

func NewFakeClient() *FakeClient {
	return &FakeClient{
		queued:  make(map[Operation][]FakeResponse),
		holds:   make(map[Operation]chan struct{}),
		started: make(chan Request, 64),
	}
}

func (f *FakeClient) Name() string { return "FakeLLM" }
func (f *FakeClient) Close() error { return nil }

// Enqueue appends replies for op.
func (f *FakeClient) Enqueue(op Operation, replies ...FakeResponse) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queued[op] = append(f.queued[op], replies...)
}

// EnqueueJSON marshals v and queues it as a reply for op.
func (f *FakeClient) EnqueueJSON(op Operation, v any) {
	b, _ := json.Marshal(v)
	f.Enqueue(op, FakeResponse{Text: string(b)})
}

// Hold makes calls for op block until the returned release func is called
// or their context ends.
func (f *FakeClient) Hold(op Operation) (release func()) {
	ch := make(chan struct{})
	f.mu.Lock()
	f.holds[op] = ch
	f.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.holds, op)
			f.mu.Unlock()
			close(ch)
		})
	}
}

// Started receives every request as soon as Generate is entered.
func (f *FakeClient) Started() <-chan Request { return f.started }

// Calls returns a copy of the requests seen so far.
func (f *FakeClient) Calls() []Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Request(nil), f.calls...)
}

func (f *FakeClient) Generate(ctx context.Context, req Request) (string, error) {
	op := req.Operation
	f.mu.Lock()
	f.calls = append(f.calls, req)
	hold := f.holds[op]
	var reply *FakeResponse
	if q := f.queued[op]; len(q) > 0 {
		reply = &q[0]
		f.queued[op] = q[1:]
	}
	f.mu.Unlock()

	select {
	case f.started <- req:
	default:
	}
	if hold != nil {
		select {
		case <-hold:
		case <-ctx.Done():
			return "", NewError(KindTransport, "", ctx.Err())
		}
	}
	if reply != nil {
		return reply.Text, reply.Err
	}
	return defaultFakeReply(op), nil
}

func defaultFakeReply(op Operation) string {
	var obj any
	switch op {
	case OpParse:
		obj = map[string]any{
			"title":             "Fake Problem",
			"summary":           "Tính tổng $a + b$.",
			"timeLimit":         "1.0s",
			"memoryLimit":       "256MB",
			"inputFormat":       "Hai số nguyên a, b.",
			"outputFormat":      "Một số nguyên.",
			"variables":         []any{},
			"constraints":       []string{},
			"edgeCasesAnalysis": []string{},
			"confidence":        "Cao",
			"logicCheck":        "OK",
		}
	case OpGenerateTests:
		obj = map[string]any{
			"testCases": []any{
				map[string]any{"input": "1 2", "expectedOutput": "3", "explanation": "fake"},
			},
		}
	case OpHuntBug:
		obj = map[string]any{
			"input":          "0 0",
			"expectedOutput": "0",
			"actualOutput":   "1",
			"analysis":       "fake",
		}
	default:
		obj = map[string]any{}
	}
	b, _ := json.Marshal(obj)
	return string(b)
}
