package llmtool

import (
	"strings"
	"testing"

	"cppolygon/internal/llmclient"
	"cppolygon/internal/tester"
	"cppolygon/internal/types"
)

func sampleSpec() types.ProblemSpec {
	return types.ProblemSpec{
		Title:       "A+B",
		Summary:     "Tính $a+b$",
		InputFormat: "a b",
		Constraints: []string{"0 <= a, b <= 10^9"},
		Variables:   []types.VariableSpec{},
		Confidence:  types.ConfidenceHigh,
	}
}

func TestBuildParse_TextPathUsesSchema(t *testing.T) {
	req, err := BuildParse("n ≤ 10^5", nil)
	tester.NoErr(t, err)
	tester.Eq(t, req.Operation, llmclient.OpParse)
	tester.True(t, req.Schema == ProblemSpecSchema(), "schema attached")
	tester.Eq(t, req.ThinkingBudget, int32(1024))
	tester.Eq(t, req.Texts, []string{"Problem Text:\nn ≤ 10^5"})
	tester.Contains(t, req.Prompt, "Return the result in JSON format matching the schema.")
	tester.False(t, strings.Contains(req.Prompt, "OUTPUT STRICT JSON ONLY"), "no template on text path")
}

func TestBuildParse_ImagePathUsesTemplate(t *testing.T) {
	img := &types.ImagePayload{MIMEType: "image/jpeg", Data: []byte{0xff, 0xd8}}
	req, err := BuildParse("", img)
	tester.NoErr(t, err)
	tester.True(t, req.HasImage(), "image attached")
	tester.Eq(t, len(req.Texts), 0)
	tester.Contains(t, req.Prompt, "OUTPUT STRICT JSON ONLY")
	tester.Contains(t, req.Prompt, `"edgeCasesAnalysis": ["Nếu n = 0 thì..."]`)
}

func TestBuildParse_RequiresInput(t *testing.T) {
	_, err := BuildParse("   ", nil)
	tester.ErrIs(t, err, ErrEmptyStatement)
}

func TestBuildGenerateTests_ClampsCount(t *testing.T) {
	for in, want := range map[int]string{0: "Generate 1 distinct", -5: "Generate 1 distinct", 25: "Generate 20 distinct", 7: "Generate 7 distinct"} {
		req, err := BuildGenerateTests(sampleSpec(), types.StrategySmall, in)
		tester.NoErr(t, err)
		tester.Contains(t, req.Prompt, want)
	}
}

func TestBuildGenerateTests_EmbedsSpecAndStrategy(t *testing.T) {
	req, err := BuildGenerateTests(sampleSpec(), types.StrategyOverflow, 3)
	tester.NoErr(t, err)
	tester.Eq(t, req.Operation, llmclient.OpGenerateTests)
	tester.True(t, req.Schema == TestCaseBatchSchema(), "schema attached")
	tester.Eq(t, req.ThinkingBudget, int32(2048))
	tester.Contains(t, req.Prompt, "[STRATEGY]\nTest Tràn Số (Overflow)")
	tester.Contains(t, req.Prompt, `"0 <= a, b <= 10^9"`)
	tester.Contains(t, req.Prompt, `"title": "A+B"`)
}

func TestBuildHuntBug(t *testing.T) {
	code := "int main(){int a,b;cin>>a>>b;cout<<a+b;}"
	req, err := BuildHuntBug(sampleSpec(), code)
	tester.NoErr(t, err)
	tester.Eq(t, req.Operation, llmclient.OpHuntBug)
	tester.True(t, req.Schema == BugHuntSchema(), "schema attached")
	tester.Contains(t, req.Prompt, "[SUSPECT_CODE]\n```\n"+code+"\n```")
	tester.Contains(t, req.Prompt, "VIETNAMESE")

	_, err = BuildHuntBug(sampleSpec(), "\n\t ")
	tester.ErrIs(t, err, ErrEmptyCode)
}
