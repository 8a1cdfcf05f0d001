// package formatter renders playlists, batch summaries and attempt history as plain text, JSON or CSV
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/songdl/internal/models"
	"github.com/desertthunder/songdl/internal/shared"
)

const timeLayout = "2006-01-02 15:04:05"

// Format is an output encoding for reports.
type Format string

const (
	Text Format = "text"
	JSON Format = "json"
	CSV  Format = "csv"
)

// ParseFormat maps a flag value onto a [Format]. The empty string is [Text].
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return Text, nil
	case Text, JSON, CSV:
		return f, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q (want text, json or csv)", shared.ErrInvalidConfig, s)
	}
}

// ExportToText converts a PlaylistExport to plain text format
func ExportToText(export *models.PlaylistExport) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Playlist: %s\n", export.Playlist.Name))
	if export.Playlist.Description != "" {
		buf.WriteString(fmt.Sprintf("Description: %s\n", export.Playlist.Description))
	}
	buf.WriteString(fmt.Sprintf("Tracks: %d\n\n", len(export.Items)))

	for i, item := range export.Items {
		albumPart := ""
		if item.Album != "" {
			albumPart = fmt.Sprintf(" (%s)", item.Album)
		}
		buf.WriteString(fmt.Sprintf("%d. %s - %s%s\n", i+1, item.Title, item.Artist, albumPart))
	}

	return buf.Bytes(), nil
}

// ExportToCSV converts a PlaylistExport to CSV format with columns: ID, Title, Artist, Album
func ExportToCSV(export *models.PlaylistExport) ([]byte, error) {
	rows := make([][]string, 0, len(export.Items))
	for _, item := range export.Items {
		rows = append(rows, []string{item.ExternalID, item.Title, item.Artist, item.Album})
	}
	return writeCSV([]string{"ID", "Title", "Artist", "Album"}, rows)
}

// SummaryToText renders a finished batch as a short report.
func SummaryToText(run *models.BatchRun) []byte {
	var buf bytes.Buffer
	s := run.Summary

	buf.WriteString(fmt.Sprintf("Batch: %s\n", s.ID))
	if run.PlaylistName != "" {
		buf.WriteString(fmt.Sprintf("Playlist: %s\n", run.PlaylistName))
	}
	buf.WriteString(fmt.Sprintf("Output: %s\n", run.OutputDir))
	buf.WriteString(fmt.Sprintf("Started: %s\n", run.StartedAt.Local().Format(timeLayout)))
	if run.FinishedAt != nil {
		buf.WriteString(fmt.Sprintf("Duration: %s\n", run.FinishedAt.Sub(run.StartedAt).Round(time.Second)))
	}
	buf.WriteString("\n")
	buf.WriteString(fmt.Sprintf("Downloaded: %d\n", s.Succeeded))
	buf.WriteString(fmt.Sprintf("Skipped: %d\n", s.Skipped))
	buf.WriteString(fmt.Sprintf("Failed: %d\n", s.Failed))
	buf.WriteString(fmt.Sprintf("Total: %d\n", s.Total))
	if s.Cancelled {
		buf.WriteString(fmt.Sprintf("Cancelled after %d of %d tracks\n", s.Processed(), s.Total))
	}

	return buf.Bytes()
}

// BatchesToText renders one line per batch, newest first as given.
func BatchesToText(runs []*models.BatchRun) []byte {
	var buf bytes.Buffer
	if len(runs) == 0 {
		buf.WriteString("No batches recorded\n")
		return buf.Bytes()
	}
	for _, run := range runs {
		s := run.Summary
		status := "done"
		if s.Cancelled {
			status = "cancelled"
		}
		buf.WriteString(fmt.Sprintf("%s  %s  %-9s  ✓ %d  ↷ %d  ✗ %d  / %d  %s\n",
			run.StartedAt.Local().Format(timeLayout), s.ID, status,
			s.Succeeded, s.Skipped, s.Failed, s.Total, run.PlaylistName))
	}
	return buf.Bytes()
}

// BatchesToCSV converts batches to CSV.
func BatchesToCSV(runs []*models.BatchRun) ([]byte, error) {
	headers := []string{"ID", "Playlist ID", "Playlist", "Output", "Total", "Succeeded", "Skipped", "Failed", "Cancelled", "Started", "Finished"}
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		s := run.Summary
		finished := ""
		if run.FinishedAt != nil {
			finished = run.FinishedAt.UTC().Format(time.RFC3339)
		}
		rows = append(rows, []string{
			s.ID,
			run.PlaylistID,
			run.PlaylistName,
			run.OutputDir,
			strconv.Itoa(s.Total),
			strconv.Itoa(s.Succeeded),
			strconv.Itoa(s.Skipped),
			strconv.Itoa(s.Failed),
			strconv.FormatBool(s.Cancelled),
			run.StartedAt.UTC().Format(time.RFC3339),
			finished,
		})
	}
	return writeCSV(headers, rows)
}

// AttemptsToText renders the attempt log grouped by item in the given order.
func AttemptsToText(attempts []*models.Attempt) []byte {
	var buf bytes.Buffer
	if len(attempts) == 0 {
		buf.WriteString("No attempts recorded\n")
		return buf.Bytes()
	}

	current := ""
	for _, a := range attempts {
		if a.ItemKey != current {
			if current != "" {
				buf.WriteString("\n")
			}
			current = a.ItemKey
			buf.WriteString(fmt.Sprintf("%s - %s\n", a.Title, a.Artist))
		}
		mark := "✗"
		if a.Status == "succeeded" {
			mark = "✓"
		}
		line := fmt.Sprintf("  %s %-12s %s", mark, a.Strategy, a.Candidate)
		if a.Message != "" {
			line += ": " + a.Message
		}
		buf.WriteString(line + "\n")
	}
	return buf.Bytes()
}

// AttemptsToCSV converts attempts to CSV.
func AttemptsToCSV(attempts []*models.Attempt) ([]byte, error) {
	headers := []string{"ID", "Batch", "Title", "Artist", "Candidate", "Strategy", "Status", "Message", "Created"}
	rows := make([][]string, 0, len(attempts))
	for _, a := range attempts {
		rows = append(rows, []string{
			a.ID,
			a.BatchID,
			a.Title,
			a.Artist,
			a.Candidate,
			a.Strategy,
			a.Status,
			a.Message,
			a.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return writeCSV(headers, rows)
}

// StatsToText renders per-strategy success rates.
func StatsToText(stats []models.StrategyStat) []byte {
	var buf bytes.Buffer
	for _, s := range stats {
		buf.WriteString(fmt.Sprintf("%-12s %4d/%-4d %5.1f%%\n", s.Strategy, s.Succeeded, s.Total(), s.SuccessRate()*100))
	}
	return buf.Bytes()
}

// StatsToCSV converts strategy stats to CSV.
func StatsToCSV(stats []models.StrategyStat) ([]byte, error) {
	rows := make([][]string, 0, len(stats))
	for _, s := range stats {
		rows = append(rows, []string{s.Strategy, strconv.Itoa(s.Succeeded), strconv.Itoa(s.Failed), strconv.FormatFloat(s.SuccessRate(), 'f', 3, 64)})
	}
	return writeCSV([]string{"Strategy", "Succeeded", "Failed", "Rate"}, rows)
}

// AttemptSummariesToText renders one line per batch of the attempt log.
func AttemptSummariesToText(summaries []models.AttemptSummary) []byte {
	var buf bytes.Buffer
	for _, s := range summaries {
		buf.WriteString(fmt.Sprintf("%s  %s  %d items  %d attempts  ✓ %d  ✗ %d\n",
			s.LastAt.Local().Format(timeLayout), s.BatchID, s.Items, s.Attempts, s.Succeeded, s.Failed))
	}
	return buf.Bytes()
}

// RenderStats encodes strategy stats in format f.
func RenderStats(stats []models.StrategyStat, f Format) ([]byte, error) {
	switch f {
	case JSON:
		return shared.MarshalJSON(stats, true)
	case CSV:
		return StatsToCSV(stats)
	default:
		return StatsToText(stats), nil
	}
}

// RenderBatches encodes batches in format f.
func RenderBatches(runs []*models.BatchRun, f Format) ([]byte, error) {
	switch f {
	case JSON:
		return shared.MarshalJSON(runs, true)
	case CSV:
		return BatchesToCSV(runs)
	default:
		return BatchesToText(runs), nil
	}
}

// RenderAttempts encodes attempts in format f.
func RenderAttempts(attempts []*models.Attempt, f Format) ([]byte, error) {
	switch f {
	case JSON:
		return shared.MarshalJSON(attempts, true)
	case CSV:
		return AttemptsToCSV(attempts)
	default:
		return AttemptsToText(attempts), nil
	}
}

// RenderSummary encodes a single batch in format f.
func RenderSummary(run *models.BatchRun, f Format) ([]byte, error) {
	switch f {
	case JSON:
		return shared.MarshalJSON(run, true)
	case CSV:
		return BatchesToCSV([]*models.BatchRun{run})
	default:
		return SummaryToText(run), nil
	}
}

// WriteReport writes data to path. An empty path is a no-op.
func WriteReport(path string, data []byte) error {
	if path == "" {
		return nil
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("%w: failed to write report: %v", shared.ErrLocalIO, err)
	}
	return nil
}

func writeCSV(headers []string, rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}
	for _, record := range rows {
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}
