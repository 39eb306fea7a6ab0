package types

import "strings"

// ConfidenceLevel is the model's self-rating of a parsed specification.
// Values are the labels the model is asked to emit.
type ConfidenceLevel string

const (
	ConfidenceHigh   ConfidenceLevel = "Cao"
	ConfidenceMedium ConfidenceLevel = "Trung Bình"
	ConfidenceLow    ConfidenceLevel = "Thấp"
)

// ConfidenceLevels lists the members in display order.
func ConfidenceLevels() []ConfidenceLevel {
	return []ConfidenceLevel{ConfidenceHigh, ConfidenceMedium, ConfidenceLow}
}

// ParseConfidence maps s onto the enumeration. English aliases are accepted;
// anything unrecognised is Low.
func ParseConfidence(s string) ConfidenceLevel {
	s = strings.TrimSpace(s)
	for _, c := range ConfidenceLevels() {
		if s == string(c) {
			return c
		}
	}
	switch strings.ToLower(s) {
	case "high":
		return ConfidenceHigh
	case "medium":
		return ConfidenceMedium
	}
	return ConfidenceLow
}

// Valid reports whether c is one of the three members.
func (c ConfidenceLevel) Valid() bool {
	switch c {
	case ConfidenceHigh, ConfidenceMedium, ConfidenceLow:
		return true
	}
	return false
}

// VariableSpec describes one input variable of a problem.
type VariableSpec struct {
	Name        string `json:"name"`
	Type        string `json:"type" prompt_desc:"e.g. integer, long long, string"`
	Description string `json:"description" prompt_desc:"Description in VIETNAMESE"`
	Constraints string `json:"constraints" prompt_desc:"Math constraints e.g. $1 \\le N \\le 10^5$"`
}

// ProblemSpec is the structured understanding of a problem statement.
type ProblemSpec struct {
	Title             string          `json:"title" prompt:"required"`
	Summary           string          `json:"summary" prompt:"required" prompt_desc:"Logic summary in VIETNAMESE. Use $...$ for math formulas."`
	TimeLimit         string          `json:"timeLimit" prompt:"optional" prompt_desc:"e.g., 1.0s"`
	MemoryLimit       string          `json:"memoryLimit" prompt:"optional" prompt_desc:"e.g., 256MB"`
	InputFormat       string          `json:"inputFormat" prompt:"required"`
	OutputFormat      string          `json:"outputFormat" prompt:"required"`
	Variables         []VariableSpec  `json:"variables" prompt:"required"`
	Constraints       []string        `json:"constraints" prompt:"required"`
	EdgeCasesAnalysis []string        `json:"edgeCasesAnalysis" prompt:"optional" prompt_desc:"Analysis in VIETNAMESE"`
	Confidence        ConfidenceLevel `json:"confidence" prompt:"required" prompt_type:"enum"`
	LogicCheck        string          `json:"logicCheck" prompt:"optional"`
}
