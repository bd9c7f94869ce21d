package main

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"scriptreview/internal/display"
	"scriptreview/internal/format"
	"scriptreview/internal/store"
	"scriptreview/internal/wiring"
)

var showFlags struct {
	output string
}

var showCmd = &cobra.Command{
	Use:   "show <review-id>",
	Short: "Show a stored review",
	Long: `Print a stored review. Finished reviews print the full report; reviews
still running or failed print their stage progress.`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

var listFlags struct {
	limit  int
	output string
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored reviews, newest first",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	showCmd.Flags().StringVarP(&showFlags.output, "output", "o", "table", "Output: table, markdown or json")

	f := listCmd.Flags()
	f.IntVarP(&listFlags.limit, "limit", "n", 20, "Maximum number of reviews")
	f.StringVarP(&listFlags.output, "output", "o", "table", "Output: table, markdown or json")
}

func runShow(cmd *cobra.Command, args []string) error {
	mode, err := format.ParseMode(showFlags.output)
	if err != nil {
		return err
	}
	st, err := wiring.OpenStore(cmd.Context(), cfg.Store, os.Getenv)
	if err != nil {
		return err
	}
	defer st.Close()

	rec, err := st.Get(cmd.Context(), args[0])
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("no review with id %q", args[0])
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if rec.Report != nil {
		s, err := format.Report(rec.Report, mode)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, strings.TrimRight(s, "\n"))
		return nil
	}
	if mode == format.JSON {
		s, err := format.Records([]*store.Record{rec}, mode)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, s)
		return nil
	}

	fmt.Fprintf(out, "Review:  %s\n", rec.ID)
	fmt.Fprintf(out, "Title:   %s\n", rec.Title)
	fmt.Fprintf(out, "Status:  %s\n", rec.Status)
	if rec.Error != "" {
		fmt.Fprintf(out, "Error:   %s\n", rec.Error)
	}
	if len(rec.Stages) > 0 {
		keys := make([]string, 0, len(rec.Stages))
		for k := range rec.Stages {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fmt.Fprintf(out, "Stages:\n")
		for _, k := range keys {
			fmt.Fprintf(out, "  %s: %s\n", display.Stage(k), rec.Stages[k])
		}
	}
	return nil
}

func runList(cmd *cobra.Command, _ []string) error {
	mode, err := format.ParseMode(listFlags.output)
	if err != nil {
		return err
	}
	st, err := wiring.OpenStore(cmd.Context(), cfg.Store, os.Getenv)
	if err != nil {
		return err
	}
	defer st.Close()

	recs, err := st.List(cmd.Context(), listFlags.limit)
	if err != nil {
		return err
	}
	if len(recs) == 0 && mode != format.JSON {
		fmt.Fprintln(cmd.OutOrStdout(), "No reviews yet. Run 'scriptreview review <file>' to start one.")
		return nil
	}
	s, err := format.Records(recs, mode)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), s)
	return nil
}
