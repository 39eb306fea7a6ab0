package view

import (
	"testing"

	"cppolygon/internal/tester"
)

func TestReplaceMathCommands(t *testing.T) {
	cases := []struct{ in, want string }{
		{`1 \le n \le 10^5`, "1 ≤ n ≤ 10^5"},
		{`a \ne b, a \ge 0`, "a ≠ b, a ≥ 0"},
		{`x \cdot y \times z`, "x · y × z"},
		{`\pi \approx 3.14`, `\pi ≈ 3.14`},
		{`x \in S, k \rightarrow \infty`, "x ∈ S, k → ∞"},
		{`u \leftarrow v`, "u ← v"},
		{`\frac{n}{2} + \frac{a+b}{c}`, "(n/2) + (a+b/c)"},
	}
	for _, c := range cases {
		tester.Eq(t, ReplaceMathCommands(c.in), c.want, c.in)
	}
}

func TestRenderMath(t *testing.T) {
	tester.Eq(t, string(RenderMath("")), `<span class="muted">Không có thông tin</span>`)
	tester.Eq(t, string(RenderMath("plain <b>")), "plain &lt;b&gt;")
	tester.Eq(t,
		string(RenderMath(`Tìm $k$ sao cho $N \le 10^9$.`)),
		`Tìm <span class="math">k</span> sao cho <span class="math">N ≤ 10<sup>9</sup></span>.`)
	tester.Eq(t,
		string(RenderMath(`$2^a^b$`)),
		`<span class="math">2<sup>a</sup><sup>b</sup></span>`)
	// An unmatched dollar leaves the tail inside a math span.
	tester.Eq(t, string(RenderMath(`cost $5`)), `cost <span class="math">5</span>`)
}
