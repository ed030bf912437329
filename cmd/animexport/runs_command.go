package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/hazyhaar/animexport/animexport"
)

type runView struct {
	ID           string  `json:"id"`
	Status       string  `json:"status"`
	EditorURL    string  `json:"editor_url,omitempty"`
	SessionToken string  `json:"session_token"`
	KeyCount     int     `json:"key_count"`
	TotalTime    float64 `json:"total_time_ms"`
	OutputPath   string  `json:"output_path,omitempty"`
	OutputSHA256 string  `json:"output_sha256,omitempty"`
	OutputSize   int64   `json:"output_size,omitempty"`
	Error        string  `json:"error,omitempty"`
	StartedAt    string  `json:"started_at"`
	FinishedAt   string  `json:"finished_at,omitempty"`
}

func newRunView(r animexport.JournalRun) runView {
	v := runView{
		ID:           r.ID,
		Status:       r.Status,
		EditorURL:    r.EditorURL,
		SessionToken: r.SessionToken,
		KeyCount:     r.KeyCount,
		TotalTime:    r.TotalTime,
		OutputPath:   r.OutputPath,
		OutputSHA256: r.OutputSHA256,
		OutputSize:   r.OutputSize,
		Error:        r.Error,
		StartedAt:    r.StartedAt.UTC().Format(time.RFC3339),
	}
	if !r.FinishedAt.IsZero() {
		v.FinishedAt = r.FinishedAt.UTC().Format(time.RFC3339)
	}
	return v
}

func newRunsCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List journaled captures, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			runs, err := ctx.reconstructor(cmd).Runs(cmd.Context(), limit)
			if err != nil {
				return err
			}
			views := make([]runView, len(runs))
			for i, r := range runs {
				views[i] = newRunView(r)
			}
			if asJSON || !isTerminal(cmd) {
				return writeJSON(cmd, views)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderRuns(views))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs (0 for all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON even on a terminal")
	return cmd
}

func isTerminal(cmd *cobra.Command) bool {
	f, ok := cmd.OutOrStdout().(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}

func renderRuns(runs []runView) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"ID", "Status", "Keys", "Duration", "Output", "Started"})
	for _, r := range runs {
		output := r.OutputPath
		if r.Error != "" {
			output = r.Error
		}
		tw.AppendRow(table.Row{
			r.ID, r.Status, strconv.Itoa(r.KeyCount),
			strconv.FormatFloat(r.TotalTime, 'f', -1, 64) + "ms", output, r.StartedAt,
		})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignRight, AlignHeader: text.AlignLeft},
		{Number: 4, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})
	return tw.Render()
}
