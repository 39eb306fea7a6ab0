package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"gopkg.in/yaml.v3"

	"cppolygon/internal/session"
	"cppolygon/internal/types"
)

const (
	outputMarkdown = "markdown"
	outputRawMD    = "md"
	outputJSON     = "json"
	outputYAML     = "yaml"
)

// writeOutput prints v in the requested format. markdown renders md for the
// terminal; md prints it unrendered.
func writeOutput(w io.Writer, format string, v any, md string) error {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case outputMarkdown, "":
		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(100),
		)
		if err != nil {
			return fmt.Errorf("markdown renderer: %w", err)
		}
		out, err := r.Render(md)
		if err != nil {
			return fmt.Errorf("render markdown: %w", err)
		}
		_, err = io.WriteString(w, out)
		return err
	case outputRawMD:
		_, err := io.WriteString(w, md)
		return err
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case outputYAML:
		return writeYAML(w, v)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

// writeYAML goes through JSON so keys keep their wire names and order.
func writeYAML(w io.Writer, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var node yaml.Node
	if err := yaml.Unmarshal(b, &node); err != nil {
		return err
	}
	blockStyle(&node)
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&node); err != nil {
		return err
	}
	return enc.Close()
}

func blockStyle(n *yaml.Node) {
	n.Style = 0
	if n.Kind == yaml.ScalarNode && strings.Contains(n.Value, "\n") {
		n.Style = yaml.LiteralStyle
	}
	for _, c := range n.Content {
		blockStyle(c)
	}
}

func specMarkdown(spec types.ProblemSpec) string {
	var b bytes.Buffer
	title := spec.Title
	if strings.TrimSpace(title) == "" {
		title = "Bài Toán Chưa Có Tên"
	}
	fmt.Fprintf(&b, "# %s\n\n", title)
	fmt.Fprintf(&b, "**Time:** %s · **Memory:** %s · **Độ tin cậy:** %s\n\n",
		orDash(spec.TimeLimit), orDash(spec.MemoryLimit), spec.Confidence)
	if spec.Summary != "" {
		fmt.Fprintf(&b, "%s\n\n", spec.Summary)
	}
	fmt.Fprintf(&b, "## Input\n\n%s\n\n## Output\n\n%s\n\n", orDash(spec.InputFormat), orDash(spec.OutputFormat))
	if len(spec.Variables) > 0 {
		b.WriteString("## Biến\n\n| Tên | Kiểu | Ràng buộc | Mô tả |\n|---|---|---|---|\n")
		for _, v := range spec.Variables {
			fmt.Fprintf(&b, "| %s | %s | %s | %s |\n",
				cell(v.Name), cell(v.Type), cell(v.Constraints), cell(v.Description))
		}
		b.WriteString("\n")
	}
	writeList(&b, "Ràng buộc", spec.Constraints)
	writeList(&b, "Phân tích trường hợp biên", spec.EdgeCasesAnalysis)
	if spec.LogicCheck != "" {
		fmt.Fprintf(&b, "> %s\n", spec.LogicCheck)
	}
	return b.String()
}

func testsMarkdown(cases []types.TestCase) string {
	var b bytes.Buffer
	if len(cases) == 0 {
		b.WriteString("_Chưa có test nào._\n")
		return b.String()
	}
	for i, tc := range cases {
		fmt.Fprintf(&b, "## Test #%d · %s\n\n", len(cases)-i, tc.Strategy)
		fmt.Fprintf(&b, "**Input**\n\n%s\n\n", codeBlock(tc.Input))
		fmt.Fprintf(&b, "**Output**\n\n%s\n\n", codeBlock(tc.ExpectedOutput))
		if tc.Explanation != "" {
			fmt.Fprintf(&b, "%s\n\n", tc.Explanation)
		}
	}
	return b.String()
}

func huntMarkdown(r types.BugHuntResult) string {
	var b bytes.Buffer
	b.WriteString("# Counter-example\n\n")
	fmt.Fprintf(&b, "**Input**\n\n%s\n\n", codeBlock(r.Input))
	fmt.Fprintf(&b, "**Expected**\n\n%s\n\n", codeBlock(r.ExpectedOutput))
	fmt.Fprintf(&b, "**Actual**\n\n%s\n\n", codeBlock(r.ActualOutput))
	fmt.Fprintf(&b, "## Phân tích\n\n%s\n", orDefault(r.Analysis, "Chưa có phân tích."))
	return b.String()
}

func stateMarkdown(s session.Snapshot) string {
	var b bytes.Buffer
	fmt.Fprintf(&b, "_session %s · revision %d · tool %s_\n\n", s.SessionID, s.SpecRevision, s.Tool)
	if s.Notice != nil {
		fmt.Fprintf(&b, "> **%s:** %s\n\n", s.Notice.Operation, s.Notice.Message)
	}
	if s.Spec == nil {
		b.WriteString("_Chưa có dữ liệu bài toán._\n")
		return b.String()
	}
	b.WriteString(specMarkdown(*s.Spec))
	b.WriteString("\n")
	b.WriteString(testsMarkdown(s.TestCases))
	if s.BugResult != nil {
		b.WriteString("\n")
		b.WriteString(huntMarkdown(*s.BugResult))
	}
	return b.String()
}

func writeList(b *bytes.Buffer, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "## %s\n\n", title)
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", item)
	}
	b.WriteString("\n")
}

func codeBlock(s string) string {
	return "```text\n" + strings.TrimRight(s, "\n") + "\n```"
}

func cell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}

func orDash(s string) string { return orDefault(s, "N/A") }

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
