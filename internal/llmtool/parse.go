package llmtool

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"cppolygon/internal/llmclient"
	"cppolygon/internal/types"
)

const fence = "```"

// StripFence removes one leading fenced-code-block marker (optionally
// tagged json) and one trailing marker. Text that does not start with a
// marker is returned unchanged.
func StripFence(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, fence) {
		return raw
	}
	s = s[len(fence):]
	if len(s) >= 4 && strings.EqualFold(s[:4], "json") {
		s = s[4:]
	}
	s = strings.TrimPrefix(s, "\r")
	s = strings.TrimPrefix(s, "\n")
	s = strings.TrimSuffix(s, fence)
	return strings.TrimSpace(s)
}

// decodeObject strips formatting noise and decodes a top-level JSON object.
func decodeObject(raw string) (map[string]json.RawMessage, error) {
	body := StripFence(raw)
	var obj map[string]json.RawMessage
	dec := json.NewDecoder(strings.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&obj); err != nil {
		return nil, llmclient.NewError(llmclient.KindMalformedResponse, raw, err)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return nil, llmclient.NewError(llmclient.KindMalformedResponse, raw, fmt.Errorf("unexpected data after top-level object"))
	}
	if obj == nil {
		return nil, llmclient.NewError(llmclient.KindMalformedResponse, raw, fmt.Errorf("top-level value is not an object"))
	}
	return obj, nil
}

// ParseProblemSpec validates a parse response. variables, constraints and
// edgeCasesAnalysis are always non-nil; confidence is always a member of the
// enumeration. Other fields pass through (empty when absent).
func ParseProblemSpec(raw string) (types.ProblemSpec, error) {
	obj, err := decodeObject(raw)
	if err != nil {
		return types.ProblemSpec{}, err
	}
	spec := types.ProblemSpec{
		Title:             looseString(obj["title"]),
		Summary:           looseString(obj["summary"]),
		TimeLimit:         looseString(obj["timeLimit"]),
		MemoryLimit:       looseString(obj["memoryLimit"]),
		InputFormat:       looseString(obj["inputFormat"]),
		OutputFormat:      looseString(obj["outputFormat"]),
		Variables:         []types.VariableSpec{},
		Constraints:       looseStrings(obj["constraints"]),
		EdgeCasesAnalysis: looseStrings(obj["edgeCasesAnalysis"]),
		Confidence:        types.ConfidenceLow,
		LogicCheck:        looseString(obj["logicCheck"]),
	}
	if items, ok := looseArray(obj["variables"]); ok {
		for _, item := range items {
			v, _ := looseObject(item)
			spec.Variables = append(spec.Variables, types.VariableSpec{
				Name:        looseString(v["name"]),
				Type:        looseString(v["type"]),
				Description: looseString(v["description"]),
				Constraints: looseString(v["constraints"]),
			})
		}
	}
	if c, ok := jsonString(obj["confidence"]); ok {
		spec.Confidence = types.ParseConfidence(c)
	}
	return spec, nil
}

// ParseTestCases validates a generate-tests response and stamps every case
// with a fresh id, the time from now and the caller's strategy. Nil newID
// and now default to uuid.NewString and time.Now.
func ParseTestCases(raw string, strategy types.TestStrategy, newID func() string, now func() time.Time) ([]types.TestCase, error) {
	if newID == nil {
		newID = uuid.NewString
	}
	if now == nil {
		now = time.Now
	}
	obj, err := decodeObject(raw)
	if err != nil {
		return nil, err
	}
	items, ok := looseArray(obj["testCases"])
	if !ok {
		return nil, llmclient.NewError(llmclient.KindInvalidFormat, raw, fmt.Errorf("testCases array is missing"))
	}
	out := make([]types.TestCase, 0, len(items))
	for _, item := range items {
		tc, _ := looseObject(item)
		out = append(out, types.TestCase{
			ID:             newID(),
			Strategy:       strategy,
			Input:          looseString(tc["input"]),
			ExpectedOutput: looseString(tc["expectedOutput"]),
			Explanation:    looseString(tc["explanation"]),
			GeneratedAt:    now(),
		})
	}
	return out, nil
}

// ParseBugHunt decodes a bug-hunt response. Fields are trusted verbatim;
// absent ones become empty strings.
func ParseBugHunt(raw string) (types.BugHuntResult, error) {
	obj, err := decodeObject(raw)
	if err != nil {
		return types.BugHuntResult{}, err
	}
	return types.BugHuntResult{
		Input:          looseString(obj["input"]),
		ExpectedOutput: looseString(obj["expectedOutput"]),
		ActualOutput:   looseString(obj["actualOutput"]),
		Analysis:       looseString(obj["analysis"]),
	}, nil
}

func jsonString(raw json.RawMessage) (string, bool) {
	var s string
	if len(raw) == 0 || json.Unmarshal(raw, &s) != nil {
		return "", false
	}
	return s, true
}

// looseString returns strings as-is, numbers and booleans as their JSON
// text, and "" for null, objects, arrays and absent values.
func looseString(raw json.RawMessage) string {
	if s, ok := jsonString(raw); ok {
		return s
	}
	t := bytes.TrimSpace(raw)
	if len(t) == 0 {
		return ""
	}
	switch t[0] {
	case '{', '[', 'n':
		return ""
	}
	return string(t)
}

func looseArray(raw json.RawMessage) ([]json.RawMessage, bool) {
	t := bytes.TrimSpace(raw)
	if len(t) == 0 || t[0] != '[' {
		return nil, false
	}
	var items []json.RawMessage
	if err := json.Unmarshal(t, &items); err != nil {
		return nil, false
	}
	return items, true
}

func looseObject(raw json.RawMessage) (map[string]json.RawMessage, bool) {
	t := bytes.TrimSpace(raw)
	if len(t) == 0 || t[0] != '{' {
		return nil, false
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(t, &obj); err != nil {
		return nil, false
	}
	return obj, true
}

func looseStrings(raw json.RawMessage) []string {
	items, ok := looseArray(raw)
	out := make([]string, 0, len(items))
	if !ok {
		return out
	}
	for _, item := range items {
		if s, ok := jsonString(item); ok {
			out = append(out, s)
		}
	}
	return out
}
