package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/hazyhaar/animexport/animexport"
)

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type reportView struct {
	RunID     string  `json:"run_id,omitempty"`
	Token     string  `json:"session_token"`
	KeyTimes  int     `json:"key_times"`
	TotalTime float64 `json:"total_time_ms"`
	Elements  int     `json:"elements"`
	Blocks    int     `json:"blocks"`
	Output    string  `json:"output"`
	Bytes     int64   `json:"bytes"`
	SHA256    string  `json:"sha256"`
	Reference string  `json:"reference_sha256,omitempty"`
	Matches   *bool   `json:"matches,omitempty"`
}

// writeReport prints the run summary. When the document itself went to
// stdout the summary goes to stderr.
func writeReport(cmd *cobra.Command, cfg *animexport.Config, r *animexport.Report) error {
	v := reportView{
		RunID:     r.RunID,
		Token:     r.Token,
		KeyTimes:  r.KeyTimes,
		TotalTime: r.TotalTime,
		Elements:  r.Elements,
		Blocks:    r.Blocks,
		Output:    r.Output.Path,
		Bytes:     r.Output.Bytes,
		SHA256:    r.Output.SHA256,
		Reference: r.Reference,
	}
	if r.Reference != "" {
		m := r.Matches()
		v.Matches = &m
	}
	w := cmd.OutOrStdout()
	if cfg.Export.Output == "-" {
		w = cmd.ErrOrStderr()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
