package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/recad/go-engine/internal/logging"
	"github.com/danielpatrickdp/recad/go-engine/internal/store"
)

type inspectFlags struct {
	last    int
	runID   string
	jsonOut bool
}

func newInspectCmd(a *app) *cobra.Command {
	var fl inspectFlags
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "List stored runs or show one run with its provenance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := store.NewStore(a.cfg.Store.Path)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer st.Close()
			if fl.runID != "" {
				return runDetailMode(cmd.OutOrStdout(), st, fl.runID, fl.jsonOut)
			}
			return runListMode(cmd.OutOrStdout(), st, fl.last, fl.jsonOut)
		},
	}
	f := cmd.Flags()
	f.IntVar(&fl.last, "last", 20, "show N most recent runs")
	f.StringVar(&fl.runID, "run", "", "show a single run in detail")
	f.BoolVar(&fl.jsonOut, "json", false, "output as JSON instead of a table")
	return cmd
}

// #region list-mode

type listRow struct {
	RunID      string  `json:"run_id"`
	Status     string  `json:"status"`
	Pattern    string  `json:"pattern,omitempty"`
	Confidence float64 `json:"confidence"`
	Source     string  `json:"source,omitempty"`
	CreatedAt  string  `json:"created_at"`
}

func runListMode(w io.Writer, st *store.Store, last int, jsonOut bool) error {
	runs, err := st.ListRuns(last)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(w, "no runs found")
		return nil
	}

	rows := make([]listRow, len(runs))
	for i, r := range runs {
		rows[i] = listRow{
			RunID:      r.RunID,
			Status:     r.Status,
			Pattern:    r.Pattern,
			Confidence: r.Confidence,
			Source:     r.Source,
			CreatedAt:  r.CreatedAt.Format("2006-01-02T15:04:05Z"),
		}
	}
	if jsonOut {
		return printJSON(w, rows)
	}

	fmt.Fprintf(w, "%-10s  %-12s  %-20s  %6s  %-12s  %s\n", "Run", "Status", "Pattern", "Conf", "Source", "Time")
	fmt.Fprintf(w, "%-10s+-%-12s+-%-20s+-%6s+-%-12s+-%s\n",
		"----------", "------------", "--------------------", "------", "------------", "--------------------")
	for _, r := range rows {
		fmt.Fprintf(w, "%-10s  %-12s  %-20s  %6.2f  %-12s  %s\n",
			shortID(r.RunID), r.Status, dash(r.Pattern), r.Confidence, dash(r.Source), r.CreatedAt)
	}
	return nil
}

// #endregion list-mode

// #region detail-mode

type detailOutput struct {
	RunID      string              `json:"run_id"`
	Status     string              `json:"status"`
	Pattern    string              `json:"pattern,omitempty"`
	Confidence float64             `json:"confidence"`
	Source     string              `json:"source,omitempty"`
	Transcript string              `json:"transcript,omitempty"`
	CreatedAt  string              `json:"created_at"`
	Stages     []stageDetail       `json:"stages"`
	Gate       *logging.GateRecord `json:"gate_record,omitempty"`
}

type stageDetail struct {
	Stage    string `json:"stage"`
	Decision string `json:"decision"`
	Reason   string `json:"reason,omitempty"`
}

func runDetailMode(w io.Writer, st *store.Store, runID string, jsonOut bool) error {
	run, err := st.GetRun(runID)
	if err != nil {
		return err
	}

	out := detailOutput{
		RunID:      run.RunID,
		Status:     run.Status,
		Pattern:    run.Pattern,
		Confidence: run.Confidence,
		Source:     run.Source,
		Transcript: run.Transcript,
		CreatedAt:  run.CreatedAt.Format("2006-01-02T15:04:05Z"),
		Stages:     make([]stageDetail, 0, len(run.Provenance)),
	}
	for _, p := range run.Provenance {
		out.Stages = append(out.Stages, stageDetail{Stage: p.Stage, Decision: p.Decision, Reason: p.Reason})
		if p.Stage == logging.StageGate {
			out.Gate = parseGateRecord(p.PayloadJSON)
		}
	}

	if jsonOut {
		return printJSON(w, out)
	}

	fmt.Fprintf(w, "Run:        %s\n", out.RunID)
	fmt.Fprintf(w, "Created:    %s\n", out.CreatedAt)
	fmt.Fprintf(w, "Status:     %s\n", out.Status)
	fmt.Fprintf(w, "Pattern:    %s\n", dash(out.Pattern))
	fmt.Fprintf(w, "Confidence: %.2f\n", out.Confidence)
	fmt.Fprintf(w, "Source:     %s\n", dash(out.Source))
	if out.Transcript != "" {
		fmt.Fprintf(w, "Transcript: %s\n", out.Transcript)
	}

	fmt.Fprintf(w, "\nStages:\n")
	for _, s := range out.Stages {
		fmt.Fprintf(w, "  %-11s %-12s %s\n", s.Stage, s.Decision, s.Reason)
	}

	if out.Gate != nil {
		fmt.Fprintf(w, "\nGate Record:\n")
		fmt.Fprintf(w, "  Action:    %s\n", out.Gate.Action)
		fmt.Fprintf(w, "  Required:  %s\n", strings.Join(out.Gate.Required, ", "))
		if len(out.Gate.Missing) > 0 {
			fmt.Fprintf(w, "  Missing:   %s\n", strings.Join(out.Gate.Missing, ", "))
		}
		for name, v := range out.Gate.Supplied {
			fmt.Fprintf(w, "  Supplied:  %s = %g\n", name, v)
		}
	}
	return nil
}

// #endregion detail-mode

// #region output

func parseGateRecord(payload string) *logging.GateRecord {
	if payload == "" {
		return nil
	}
	var gr logging.GateRecord
	if err := json.Unmarshal([]byte(payload), &gr); err == nil && gr.Pattern != "" {
		return &gr
	}
	return nil
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	fmt.Fprintln(w, string(data))
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// #endregion output
