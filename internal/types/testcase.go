package types

import (
	"fmt"
	"strings"
	"time"
)

// TestStrategy selects the kind of input the model should synthesize.
// Values are display labels and are passed verbatim into prompts.
type TestStrategy string

const (
	StrategySmall          TestStrategy = "Test Nhỏ / Cơ Bản"
	StrategyMaxConstraints TestStrategy = "Giới Hạn Lớn Nhất (Max)"
	StrategyEdgeCase       TestStrategy = "Test Biên (Min/Max)"
	StrategyOverflow       TestStrategy = "Test Tràn Số (Overflow)"
	StrategyCornerCase     TestStrategy = "Test Đặc Biệt (0, 1, -1)"
	StrategyRandomUniform  TestStrategy = "Ngẫu Nhiên (Uniform)"
	StrategyAntiGreedy     TestStrategy = "Phá Giải Thuật Tham Lam"
)

var strategyKeys = []struct {
	key      string
	strategy TestStrategy
}{
	{"small", StrategySmall},
	{"max", StrategyMaxConstraints},
	{"edge", StrategyEdgeCase},
	{"overflow", StrategyOverflow},
	{"corner", StrategyCornerCase},
	{"random", StrategyRandomUniform},
	{"anti-greedy", StrategyAntiGreedy},
}

// Strategies returns all members in menu order.
func Strategies() []TestStrategy {
	out := make([]TestStrategy, 0, len(strategyKeys))
	for _, sk := range strategyKeys {
		out = append(out, sk.strategy)
	}
	return out
}

// Key returns the short flag/form key of s, or "" for unknown values.
func (s TestStrategy) Key() string {
	for _, sk := range strategyKeys {
		if sk.strategy == s {
			return sk.key
		}
	}
	return ""
}

// ParseStrategy accepts a short key ("overflow") or a full label.
func ParseStrategy(v string) (TestStrategy, error) {
	v = strings.TrimSpace(v)
	for _, sk := range strategyKeys {
		if strings.EqualFold(v, sk.key) || v == string(sk.strategy) {
			return sk.strategy, nil
		}
	}
	return "", fmt.Errorf("unknown test strategy %q", v)
}

// DefaultTestCount is the count the UI offers before the user edits it.
const DefaultTestCount = 5

const (
	MinTestCount = 1
	MaxTestCount = 20
)

// ClampCount clamps a requested test count into [MinTestCount, MaxTestCount].
func ClampCount(n int) int {
	if n < MinTestCount {
		return MinTestCount
	}
	if n > MaxTestCount {
		return MaxTestCount
	}
	return n
}

// TestCase is one generated input/output pair. It is never mutated after
// creation.
type TestCase struct {
	ID             string       `json:"id"`
	Strategy       TestStrategy `json:"strategy"`
	Input          string       `json:"input"`
	ExpectedOutput string       `json:"expectedOutput"`
	Explanation    string       `json:"explanation"`
	GeneratedAt    time.Time    `json:"generatedAt"`
}

// GeneratedTestCase is the per-item shape requested from the model.
type GeneratedTestCase struct {
	Input          string `json:"input" prompt_desc:"Raw input string ready for stdin"`
	ExpectedOutput string `json:"expectedOutput" prompt_desc:"Raw output string"`
	Explanation    string `json:"explanation" prompt_desc:"Explanation in VIETNAMESE"`
}

// TestCaseBatch is the top-level shape of a generate-tests response.
type TestCaseBatch struct {
	TestCases []GeneratedTestCase `json:"testCases"`
}

// BugHuntResult is a counter-example report for candidate code.
type BugHuntResult struct {
	Input          string `json:"input"`
	ExpectedOutput string `json:"expectedOutput"`
	ActualOutput   string `json:"actualOutput" prompt_desc:"What the suspect code likely outputs"`
	Analysis       string `json:"analysis" prompt_desc:"Why the code fails on this input (in VIETNAMESE)"`
}
