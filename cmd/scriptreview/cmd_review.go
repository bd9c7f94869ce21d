package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"scriptreview/internal/config"
	"scriptreview/internal/display"
	"scriptreview/internal/format"
	"scriptreview/internal/pipeline"
	"scriptreview/internal/script"
	"scriptreview/internal/wiring"
)

var reviewFlags struct {
	title    string
	format   string
	metaPath string
	output   string
	reviewID string
	quiet    bool
}

var reviewCmd = &cobra.Command{
	Use:   "review <script-file|->",
	Short: "Review a script for legal and policy risk",
	Long: `Review a script file (plain text, Markdown or SRT) and print the report.

Case metadata (subjects, jurisdiction, case status, platform) can be
supplied as a YAML or JSON file with --meta; it sharpens the legal review
and drives the case research queries.

Examples:
  scriptreview review episode-12.md
  scriptreview review episode-12.srt --meta case.yaml -o markdown > report.md
  cat draft.txt | scriptreview review - --title "Draft 3"`,
	Args: cobra.ExactArgs(1),
	RunE: runReview,
}

func init() {
	f := reviewCmd.Flags()
	f.StringVar(&reviewFlags.title, "title", "", "Script title (default: file name)")
	f.StringVar(&reviewFlags.format, "format", "", "Script format: plain, markdown or srt (default: from extension, then detected)")
	f.StringVar(&reviewFlags.metaPath, "meta", "", "Case metadata file (YAML or JSON)")
	f.StringVarP(&reviewFlags.output, "output", "o", "table", "Output: table, markdown or json")
	f.StringVar(&reviewFlags.reviewID, "id", "", "Review ID (default: generated)")
	f.BoolVarP(&reviewFlags.quiet, "quiet", "q", false, "Do not print stage progress")
}

func runReview(cmd *cobra.Command, args []string) error {
	mode, err := format.ParseMode(reviewFlags.output)
	if err != nil {
		return err
	}
	req, err := buildRequest(args[0], cmd.InOrStdin())
	if err != nil {
		return err
	}
	if !reviewFlags.quiet {
		req.Observer = progressPrinter(cmd.ErrOrStderr())
	}

	app, err := wiring.Build(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	rep, err := app.Orchestrator.Run(cmd.Context(), req)
	if err != nil {
		return fmt.Errorf("review: %w", err)
	}
	out, err := format.Report(rep, mode)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), strings.TrimRight(out, "\n"))
	return nil
}

// buildRequest reads the script from path ("-" for stdin) and applies the
// review flags.
func buildRequest(path string, stdin io.Reader) (pipeline.Request, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return pipeline.Request{}, fmt.Errorf("read script: %w", err)
	}

	req := pipeline.Request{
		ReviewID: reviewFlags.reviewID,
		Title:    reviewFlags.title,
		Text:     string(data),
		Format:   script.Format(reviewFlags.format),
	}
	if path != "-" {
		ext := filepath.Ext(path)
		if req.Title == "" {
			req.Title = strings.TrimSuffix(filepath.Base(path), ext)
		}
		if req.Format == "" {
			req.Format = script.FormatFromExt(ext)
		}
	}
	if reviewFlags.metaPath != "" {
		meta, err := config.LoadMetadata(reviewFlags.metaPath)
		if err != nil {
			return pipeline.Request{}, err
		}
		req.Meta = meta
	}
	if req.Meta.Title == "" {
		req.Meta.Title = req.Title
	}
	return req, nil
}

// progressPrinter writes one line per stage transition, skipping the
// initial pending burst.
func progressPrinter(w io.Writer) pipeline.Observer {
	return pipeline.ObserverFunc(func(ev pipeline.Event) {
		switch ev.Status {
		case pipeline.StatusPending:
			return
		case pipeline.StatusError:
			fmt.Fprintf(w, "  %s %s: %s\n", display.Stage(ev.Stage.Key()), ev.Status, ev.Error)
		default:
			fmt.Fprintf(w, "  %s %s\n", display.Stage(ev.Stage.Key()), ev.Status)
		}
	})
}
