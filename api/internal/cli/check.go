package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"engdoc-auditor/api/internal/audit"
	"engdoc-auditor/api/internal/audit/types"
	"engdoc-auditor/api/internal/report"
)

type checkFlags struct {
	project      string
	gost         []string
	cipher       string
	instructions string
	skip         []string
	only         []string
	engine       string
	output       string
}

func NewCheckCmd() *cobra.Command {
	var f checkFlags
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Audit a project PDF from the command line",
		Long: `Send a project PDF (plus optional GOST PDFs) for one audit and print the report.

Examples:
  # Full check with the default options
  engdoc check --project ov.pdf --cipher 2024-AB-123-OV

  # Add reference standards, skip spelling, print YAML
  engdoc check -p ov.pdf -g gost-21.602.pdf -g spds.pdf --skip checkSpelling -o yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd.Context(), cmd.OutOrStdout(), f)
		},
	}
	cmd.Flags().StringVarP(&f.project, "project", "p", "", "Project documentation PDF")
	cmd.Flags().StringArrayVarP(&f.gost, "gost", "g", nil, "Additional standard PDF; repeatable, order is kept")
	cmd.Flags().StringVar(&f.cipher, "cipher", "", "Reference project code")
	cmd.Flags().StringVar(&f.instructions, "instructions", "", "Special instructions for the auditor")
	cmd.Flags().StringSliceVar(&f.skip, "skip", nil, "Checks to disable (e.g. checkSpelling,checkCipher)")
	cmd.Flags().StringSliceVar(&f.only, "only", nil, "Enable only these checks")
	cmd.Flags().StringVar(&f.engine, "engine", "", "Audit engine (gemini, gemini-legacy, gpt); default from config")
	cmd.Flags().StringVarP(&f.output, "output", "o", "human", "Output format (human, json, yaml)")
	return cmd
}

func (f checkFlags) input() (types.AnalysisInput, error) {
	opts, err := checkOptions(f.only, f.skip)
	if err != nil {
		return types.AnalysisInput{}, err
	}
	in := types.AnalysisInput{
		Instructions: f.instructions,
		ProjectCode:  f.cipher,
		Options:      opts,
	}
	if strings.TrimSpace(f.project) != "" {
		p := types.DocumentFromPath(f.project)
		in.Primary = &p
	}
	for _, g := range f.gost {
		in.References = append(in.References, types.DocumentFromPath(g))
	}
	return in, nil
}

// checkOptions: по умолчанию всё включено; --only задаёт точный набор, --skip выключает.
func checkOptions(only, skip []string) (types.ValidationOptions, error) {
	opts := types.DefaultOptions()
	if len(only) > 0 {
		names := make([]types.CheckName, 0, len(only))
		for _, s := range only {
			n, err := types.ParseCheckName(strings.TrimSpace(s))
			if err != nil {
				return opts, err
			}
			names = append(names, n)
		}
		opts = types.OptionsFromSet(names)
	}
	for _, s := range skip {
		n, err := types.ParseCheckName(strings.TrimSpace(s))
		if err != nil {
			return opts, err
		}
		_ = opts.Set(n, false)
	}
	return opts, nil
}

func runCheck(ctx context.Context, out io.Writer, f checkFlags) error {
	format := strings.ToLower(strings.TrimSpace(f.output))
	switch format {
	case "human", "json", "yaml":
	default:
		return fmt.Errorf("unsupported output %q (human, json, yaml)", f.output)
	}

	in, err := f.input()
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	client, err := NewClient(cfg, f.engine)
	if err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout())
	defer cancel()

	if format == "human" {
		printHeader(out, in, client.EngineName())
	}
	res, err := analyzeWithSpinner(ctx, client, in, format == "human")
	if err != nil {
		return fmt.Errorf("audit failed: %s", audit.UserMessage(err))
	}

	if format == "human" {
		report.RenderText(out, report.ResultView(res))
		return nil
	}
	b, err := report.Marshal(res, format)
	if err != nil {
		return err
	}
	_, err = out.Write(b)
	return err
}

func analyzeWithSpinner(ctx context.Context, a audit.Analyzer, in types.AnalysisInput, show bool) (types.AnalysisResult, error) {
	if !show {
		return a.Analyze(ctx, in)
	}
	s := spinner.New(spinner.CharSets[11], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	s.Suffix = " " + report.PendingTitle
	s.Start()
	res, err := a.Analyze(ctx, in)
	s.Stop()
	return res, err
}

func printHeader(out io.Writer, in types.AnalysisInput, engine string) {
	cyan := color.New(color.FgCyan, color.Bold)
	fmt.Fprintln(out)
	cyan.Fprintln(out, "📐 EngDoc Auditor")
	if in.Primary != nil {
		fmt.Fprintf(out, "📄 Проект: %s\n", in.Primary.Name)
	}
	if len(in.References) > 0 {
		names := make([]string, 0, len(in.References))
		for _, d := range in.References {
			names = append(names, d.Name)
		}
		fmt.Fprintf(out, "📚 ГОСТы: %s\n", strings.Join(names, ", "))
	}
	if in.ProjectCode != "" {
		fmt.Fprintf(out, "🔖 Шифр: %s\n", in.ProjectCode)
	}
	fmt.Fprintf(out, "🤖 Модель: %s\n", engine)
}
