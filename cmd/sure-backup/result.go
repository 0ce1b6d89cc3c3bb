package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/yuya-takeyama/sure-backup/pkg/backup"
	"github.com/yuya-takeyama/sure-backup/pkg/logger"
)

// RunResult is what --result-json-file writes.
type RunResult struct {
	Units   []backup.Result `json:"units"`
	Files   []ResultFile    `json:"files"`
	Summary ResultSummary   `json:"summary"`
}

type ResultFile struct {
	Action  string `json:"action"` // "copy", "link", "delete"
	Path    string `json:"path"`
	Preview bool   `json:"preview,omitempty"`
}

type ResultSummary struct {
	Units      int   `json:"units"`
	Copied     int64 `json:"copied"`
	Linked     int64 `json:"linked"`
	Skipped    int64 `json:"skipped"`
	Deleted    int64 `json:"deleted"`
	Mismatches int64 `json:"mismatches"`
	Failed     int64 `json:"failed"`
	Cancelled  int64 `json:"cancelled"`
	Bytes      int64 `json:"bytes"`
}

func buildRunResult(results []backup.Result, actions []logger.FileAction) RunResult {
	out := RunResult{
		Units: results,
		Files: []ResultFile{},
	}
	if out.Units == nil {
		out.Units = []backup.Result{}
	}

	for _, a := range actions {
		path, preview := strings.CutPrefix(a.Path, backup.PreviewPrefix)
		out.Files = append(out.Files, ResultFile{
			Action:  strings.ToLower(string(a.Action)),
			Path:    path,
			Preview: preview,
		})
	}

	out.Summary.Units = len(results)
	for _, r := range results {
		out.Summary.Copied += r.Copied
		out.Summary.Linked += r.Linked
		out.Summary.Skipped += r.Skipped
		out.Summary.Deleted += r.Deleted
		out.Summary.Mismatches += r.Mismatches
		out.Summary.Failed += r.Failures
		out.Summary.Cancelled += r.Cancelled
		out.Summary.Bytes += r.Progress.ProcessedBytes
	}
	return out
}

func writeRunResult(path string, result RunResult) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	return nil
}
