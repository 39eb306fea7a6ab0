package main

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"cppolygon/internal/api"
	"cppolygon/internal/types"
)

var clientOpts struct {
	server  string
	session string
	output  string
	timeout time.Duration
}

var parseOpts struct {
	file  string
	image string
}

var genOpts struct {
	strategy string
	count    int
}

var huntOpts struct {
	code string
}

var parseCmd = &cobra.Command{
	Use:   "parse [statement...]",
	Short: "Parse a problem statement into a structured spec",
	Long: `Sends statement text (arguments, --file, or stdin with --file -) and an
optional --image to the gateway. A successful parse replaces the session's
spec and clears its test cases and bug report.`,
	RunE: runParse,
}

var genCmd = &cobra.Command{
	Use:   "gen",
	Short: "Generate test cases for the current spec",
	Example: `  polygon gen --strategy overflow --count 3
  polygon gen --strategy "Test Biên (Min/Max)"`,
	RunE: runGen,
}

var huntCmd = &cobra.Command{
	Use:   "hunt",
	Short: "Find a counter-example for candidate code",
	RunE:  runHunt,
}

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Show the session's spec, test cases and bug report",
	RunE:  runState,
}

var strategiesCmd = &cobra.Command{
	Use:   "strategies",
	Short: "List test generation strategies",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return printStrategies(cmd.OutOrStdout())
	},
}

func addClientCommands(root *cobra.Command) {
	for _, c := range []*cobra.Command{parseCmd, genCmd, huntCmd, stateCmd} {
		f := c.Flags()
		f.StringVar(&clientOpts.server, "server", "http://localhost:8081", "gateway base URL")
		f.StringVar(&clientOpts.session, "session", os.Getenv("POLYGON_SESSION"), "session id (env POLYGON_SESSION)")
		f.StringVarP(&clientOpts.output, "output", "o", outputMarkdown, "output format: markdown, md, json or yaml")
		f.DurationVar(&clientOpts.timeout, "timeout", 5*time.Minute, "request timeout")
		root.AddCommand(c)
	}
	parseCmd.Flags().StringVarP(&parseOpts.file, "file", "f", "", "statement file (- for stdin)")
	parseCmd.Flags().StringVar(&parseOpts.image, "image", "", "statement image (png, jpeg, webp, gif)")
	genCmd.Flags().StringVarP(&genOpts.strategy, "strategy", "s", "small", "strategy key or label (see polygon strategies)")
	genCmd.Flags().IntVarP(&genOpts.count, "count", "n", types.DefaultTestCount, "number of test cases (1-20)")
	huntCmd.Flags().StringVarP(&huntOpts.code, "code", "c", "", "candidate source file (- for stdin)")
	_ = huntCmd.MarkFlagRequired("code")
}

func newClient() *api.Client {
	hc := &http.Client{Timeout: clientOpts.timeout}
	return api.NewClient(hc, strings.TrimRight(clientOpts.server, "/"), strings.TrimSpace(clientOpts.session))
}

// reportSession tells the user which session to reuse when the gateway
// handed out a new one.
func reportSession(cmd *cobra.Command, c *api.Client) {
	if id := c.SessionID(); id != "" && id != strings.TrimSpace(clientOpts.session) {
		fmt.Fprintf(cmd.ErrOrStderr(), "export POLYGON_SESSION=%s\n", id)
	}
}

func runParse(cmd *cobra.Command, args []string) error {
	req := api.ParseProblemRequest{Text: strings.Join(args, " ")}
	if parseOpts.file != "" {
		text, err := readInput(cmd, parseOpts.file)
		if err != nil {
			return err
		}
		req.Text = text
	}
	if parseOpts.image != "" {
		data, err := os.ReadFile(parseOpts.image)
		if err != nil {
			return fmt.Errorf("read image: %w", err)
		}
		img := &types.ImagePayload{MIMEType: http.DetectContentType(data), Data: data}
		req.ImageBase64 = img.Base64()
		req.MIMEType = img.MIMEType
	}

	c := newClient()
	res, err := c.ParseProblem(cmd.Context(), req)
	reportSession(cmd, c)
	if err != nil {
		return err
	}
	return writeOutput(cmd.OutOrStdout(), clientOpts.output, res.Spec, specMarkdown(res.Spec))
}

func runGen(cmd *cobra.Command, _ []string) error {
	c := newClient()
	res, err := c.GenerateTests(cmd.Context(), api.GenerateTestsRequest{
		Strategy: genOpts.strategy,
		Count:    genOpts.count,
	})
	reportSession(cmd, c)
	if err != nil {
		return err
	}
	return writeOutput(cmd.OutOrStdout(), clientOpts.output, res.TestCases, testsMarkdown(res.TestCases))
}

func runHunt(cmd *cobra.Command, _ []string) error {
	code, err := readInput(cmd, huntOpts.code)
	if err != nil {
		return err
	}
	c := newClient()
	res, err := c.HuntBug(cmd.Context(), api.HuntBugRequest{Code: code})
	reportSession(cmd, c)
	if err != nil {
		return err
	}
	return writeOutput(cmd.OutOrStdout(), clientOpts.output, res.Result, huntMarkdown(res.Result))
}

func runState(cmd *cobra.Command, _ []string) error {
	c := newClient()
	res, err := c.GetState(cmd.Context())
	reportSession(cmd, c)
	if err != nil {
		return err
	}
	return writeOutput(cmd.OutOrStdout(), clientOpts.output, res.State, stateMarkdown(res.State))
}

func readInput(cmd *cobra.Command, path string) (string, error) {
	if path == "-" {
		b, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(b), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(b), nil
}

func printStrategies(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tLABEL")
	for _, s := range types.Strategies() {
		fmt.Fprintf(tw, "%s\t%s\n", s.Key(), s)
	}
	return tw.Flush()
}
