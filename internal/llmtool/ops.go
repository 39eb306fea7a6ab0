package llmtool

import (
	"errors"
	"fmt"
	"strings"

	genai "google.golang.org/genai"

	"cppolygon/internal/llmclient"
	"cppolygon/internal/types"
)

const (
	parseThinkingBudget int32 = 1024
	testsThinkingBudget int32 = 2048
	huntThinkingBudget  int32 = 2048
)

var (
	ErrEmptyStatement = errors.New("problem statement text or image is required")
	ErrEmptyCode      = errors.New("candidate code is required")
)

// parseJSONTemplate is shown to the vision model, which cannot be
// schema-constrained.
const parseJSONTemplate = `{
  "title": "Tên Bài Toán",
  "summary": "Tóm tắt logic bằng Tiếng Việt...",
  "timeLimit": "1.0s",
  "memoryLimit": "256MB",
  "inputFormat": "Mô tả input...",
  "outputFormat": "Mô tả output...",
  "variables": [
    { "name": "n", "type": "int", "description": "Mô tả biến n bằng tiếng Việt", "constraints": "1 <= n <= 10^5" }
  ],
  "constraints": ["1 <= n <= 10^5"],
  "edgeCasesAnalysis": ["Nếu n = 0 thì..."],
  "confidence": "Cao",
  "logicCheck": "OK"
}`

var (
	problemSpecSchema = func() *genai.Schema {
		s := MustSchemaFromStruct(types.ProblemSpec{})
		enum := make([]string, 0, 3)
		for _, c := range types.ConfidenceLevels() {
			enum = append(enum, string(c))
		}
		s.Properties["confidence"].Enum = enum
		return s
	}()
	testCaseBatchSchema = MustSchemaFromStruct(types.TestCaseBatch{})
	bugHuntSchema       = MustSchemaFromStruct(types.BugHuntResult{})
)

// ProblemSpecSchema returns the output schema of the parse operation.
func ProblemSpecSchema() *genai.Schema { return problemSpecSchema }

// TestCaseBatchSchema returns the output schema of the generate-tests operation.
func TestCaseBatchSchema() *genai.Schema { return testCaseBatchSchema }

// BugHuntSchema returns the output schema of the bug-hunt operation.
func BugHuntSchema() *genai.Schema { return bugHuntSchema }

// BuildParse builds the parse request. With an image the prompt carries an
// explicit JSON template; without one it relies on the attached schema.
func BuildParse(text string, image *types.ImagePayload) (llmclient.Request, error) {
	hasImage := !image.Empty()
	if strings.TrimSpace(text) == "" && !hasImage {
		return llmclient.Request{}, ErrEmptyStatement
	}
	outputFormat := "Return the result in JSON format matching the schema."
	if hasImage {
		outputFormat = "OUTPUT STRICT JSON ONLY. Do not use Markdown blocks. Follow this structure strictly:\n" + parseJSONTemplate
	}
	prompt, err := RenderStructuredPrompt(StructuredPromptSpec{
		Purpose: "You are an expert Competitive Programming Architect.\n" +
			"Analyze the provided problem statement (which may be an image or text).\n" +
			`Your goal is to extract a formal "Problem Specification".`,
		Task: []string{
			"Identify the core logic.",
			"Extract variables, types, and EXACT constraints.",
			"Identify edge cases (e.g., n=0, n=1, graph is a tree, disconnected, overflow).",
			"Determine the input/output format strictly.",
			"Rate your confidence (" + confidenceList() + ").",
		},
		OutputFields: MustFieldsFromStruct(types.ProblemSpec{}),
		Language: []string{
			"ALL text fields (summary, description, edgeCasesAnalysis) MUST be in VIETNAMESE (Tiếng Việt).",
			`Maintain mathematical precision. Use standard LaTeX math delimiters '$' for formulas. Example: "Tìm số nguyên $k$ nhỏ nhất sao cho $N \le 10^9$."`,
			`Do NOT translate standard CP terms like "integer", "string", "array" in the 'type' field, but DO translate descriptions.`,
		},
		OutputFormat: outputFormat,
	}, nil)
	if err != nil {
		return llmclient.Request{}, err
	}
	req := llmclient.Request{
		Operation:      llmclient.OpParse,
		Prompt:         prompt,
		Image:          image,
		Schema:         problemSpecSchema,
		ThinkingBudget: parseThinkingBudget,
	}
	if strings.TrimSpace(text) != "" {
		req.Texts = []string{"Problem Text:\n" + text}
	}
	return req, nil
}

// BuildGenerateTests embeds the full spec so the model can act as its own
// oracle. count is clamped into [1, 20].
func BuildGenerateTests(spec types.ProblemSpec, strategy types.TestStrategy, count int) (llmclient.Request, error) {
	count = types.ClampCount(count)
	prompt, err := RenderStructuredPrompt(StructuredPromptSpec{
		Purpose:    "Context: You are a Test Case Generator for a Competitive Programming Judge.",
		Background: "The INPUT block is the Problem Spec.",
		Sections: []PromptSection{
			{Title: "STRATEGY", Body: string(strategy)},
		},
		Task: []string{
			fmt.Sprintf("Generate %d distinct test cases (Input and Correct Output).", count),
			"The inputs MUST strictly follow the 'inputFormat' and 'constraints'.",
			"If the strategy is 'Max Constraints', use values near the upper bound.",
			"If 'Edge Case', use values like 0, 1, -1, or boundary conditions.",
			"Provide the correct output by solving the problem internally (act as the Oracle).",
			"Explain briefly why each test case fits the strategy in VIETNAMESE.",
		},
		OutputFields: MustFieldsFromStruct(types.TestCaseBatch{}),
		OutputFormat: "Output JSON containing an array of test cases.",
	}, spec)
	if err != nil {
		return llmclient.Request{}, err
	}
	return llmclient.Request{
		Operation:      llmclient.OpGenerateTests,
		Prompt:         prompt,
		Schema:         testCaseBatchSchema,
		ThinkingBudget: testsThinkingBudget,
	}, nil
}

// BuildHuntBug asks for a minimal failing input for the candidate code, the
// code's predicted output and the correct output per the spec.
func BuildHuntBug(spec types.ProblemSpec, code string) (llmclient.Request, error) {
	if strings.TrimSpace(code) == "" {
		return llmclient.Request{}, ErrEmptyCode
	}
	prompt, err := RenderStructuredPrompt(StructuredPromptSpec{
		Purpose:    `Role: You are a "Hack" generator or Stress Tester.`,
		Background: "The INPUT block is the Problem Spec.",
		Sections: []PromptSection{
			{Title: "SUSPECT_CODE", Body: fenceCode(code)},
		},
		Task: []string{
			"Analyze the suspect code logic.",
			"Identify a flaw (e.g., overflow, logic error, off-by-one, greedy failure).",
			"Generate a SMALL counter-example (input) where this code fails but a correct solution succeeds.",
			"Predict the 'Actual Output' of the suspect code.",
			"Provide the 'Expected Output' based on the spec.",
		},
		OutputFields: MustFieldsFromStruct(types.BugHuntResult{}),
		Language:     []string{"IMPORTANT: Provide the 'analysis' in VIETNAMESE."},
		OutputFormat: "Return JSON.",
	}, spec)
	if err != nil {
		return llmclient.Request{}, err
	}
	return llmclient.Request{
		Operation:      llmclient.OpHuntBug,
		Prompt:         prompt,
		Schema:         bugHuntSchema,
		ThinkingBudget: huntThinkingBudget,
	}, nil
}

func confidenceList() string {
	parts := make([]string, 0, 3)
	for _, c := range types.ConfidenceLevels() {
		parts = append(parts, string(c))
	}
	return strings.Join(parts, "/")
}
