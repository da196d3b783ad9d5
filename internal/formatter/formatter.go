// package formatter renders transfer job reports as plain text, Markdown, CSV, or JSON
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/desertthunder/crossfade/internal/models"
	"github.com/desertthunder/crossfade/internal/shared"
)

// Format names an output format for [Render].
type Format string

const (
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
	FormatCSV      Format = "csv"
	FormatJSON     Format = "json"
)

// Formats lists every supported format in display order.
var Formats = []Format{FormatText, FormatMarkdown, FormatCSV, FormatJSON}

// ParseFormat resolves a user supplied format name, accepting "md" and "txt" as aliases.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "txt":
		return FormatText, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "csv":
		return FormatCSV, nil
	case "json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("%w: unknown report format %q", shared.ErrInvalidArgument, s)
}

// Extension returns the file extension used for f, without the dot.
func (f Format) Extension() string {
	switch f {
	case FormatMarkdown:
		return "md"
	case FormatCSV:
		return "csv"
	case FormatJSON:
		return "json"
	default:
		return "txt"
	}
}

// Render converts job into the requested format.
func Render(job models.TransferJob, f Format) ([]byte, error) {
	switch f {
	case FormatText:
		return ReportText(job), nil
	case FormatMarkdown:
		return ReportMarkdown(job), nil
	case FormatCSV:
		return ReportCSV(job)
	case FormatJSON:
		return ReportJSON(job)
	}
	return nil, fmt.Errorf("%w: unknown report format %q", shared.ErrInvalidArgument, f)
}

// ReportCSV writes one row per source track with columns:
// Index, Outcome, Title, Artist, Album, Duration, ISRC, Matched ID, Matched Title, Matched Artist, Confidence, Method, Error
func ReportCSV(job models.TransferJob) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{
		"Index", "Outcome", "Title", "Artist", "Album", "Duration", "ISRC",
		"Matched ID", "Matched Title", "Matched Artist", "Confidence", "Method", "Error",
	}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, o := range job.Outcomes {
		var matchedID, matchedTitle, matchedArtist string
		if o.Matched != nil {
			matchedID, matchedTitle, matchedArtist = o.Matched.ID, o.Matched.Title, o.Matched.Artist
		}
		record := []string{
			strconv.Itoa(o.Index + 1),
			string(o.Kind),
			o.Source.Title,
			o.Source.Artist,
			o.Source.Album,
			strconv.Itoa(o.Source.Duration),
			o.Source.ISRC,
			matchedID,
			matchedTitle,
			matchedArtist,
			strconv.FormatFloat(o.Confidence, 'f', 2, 64),
			string(o.Method),
			o.Error,
		}
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

// ReportMarkdown renders a summary followed by matched, unmatched, and failed track sections.
func ReportMarkdown(job models.TransferJob) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", title(job))
	fmt.Fprintf(&buf, "**Job**: `%s`\n", job.ID)
	fmt.Fprintf(&buf, "**Route**: %s → %s\n", job.SourcePlatform, job.DestPlatform)
	fmt.Fprintf(&buf, "**Status**: %s\n", job.Status)
	if job.DestPlaylistID != "" {
		fmt.Fprintf(&buf, "**Destination playlist**: `%s`\n", job.DestPlaylistID)
	}
	if job.ErrorDetail != "" {
		fmt.Fprintf(&buf, "**Error**: %s\n", job.ErrorDetail)
	}
	fmt.Fprintf(&buf, "\n| Total | Matched | Unmatched | Errors |\n|---|---|---|---|\n| %d | %d | %d | %d |\n\n",
		job.Total, job.Matched, job.Unmatched, job.Errors)

	sections := []struct {
		heading string
		kind    models.OutcomeKind
	}{
		{"Matched", models.OutcomeMatched},
		{"Unmatched", models.OutcomeUnmatched},
		{"Errors", models.OutcomeError},
	}
	for _, s := range sections {
		outcomes := filter(job.Outcomes, s.kind)
		if len(outcomes) == 0 {
			continue
		}

		fmt.Fprintf(&buf, "## %s\n\n", s.heading)
		for _, o := range outcomes {
			fmt.Fprintf(&buf, "%d. %s - %s [%s]", o.Index+1, o.Source.Artist, o.Source.Title, formatDuration(o.Source.Duration))
			switch {
			case o.Matched != nil:
				fmt.Fprintf(&buf, " → %s - %s (%s, %.0f%%)", o.Matched.Artist, o.Matched.Title, o.Method, o.Confidence*100)
			case o.Error != "":
				fmt.Fprintf(&buf, ": %s", o.Error)
			}
			buf.WriteString("\n")
		}
		buf.WriteString("\n")
	}

	return buf.Bytes()
}

// ReportText renders a compact plain text report.
func ReportText(job models.TransferJob) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Transfer: %s\n", title(job))
	fmt.Fprintf(&buf, "Job: %s\n", job.ID)
	fmt.Fprintf(&buf, "Route: %s -> %s\n", job.SourcePlatform, job.DestPlatform)
	fmt.Fprintf(&buf, "Status: %s\n", job.Status)
	if job.DestPlaylistID != "" {
		fmt.Fprintf(&buf, "Destination playlist: %s\n", job.DestPlaylistID)
	}
	if job.ErrorDetail != "" {
		fmt.Fprintf(&buf, "Error: %s\n", job.ErrorDetail)
	}
	fmt.Fprintf(&buf, "Tracks: %d matched, %d unmatched, %d errors (of %d)\n\n",
		job.Matched, job.Unmatched, job.Errors, job.Total)

	for _, o := range job.Outcomes {
		fmt.Fprintf(&buf, "%3d. [%s] %s - %s", o.Index+1, marker(o.Kind), o.Source.Artist, o.Source.Title)
		switch {
		case o.Matched != nil:
			fmt.Fprintf(&buf, " => %s (%.2f)", o.Matched.ID, o.Confidence)
		case o.Error != "":
			fmt.Fprintf(&buf, " (%s)", o.Error)
		}
		buf.WriteString("\n")
	}

	return buf.Bytes()
}

// ReportJSON renders the full job, outcomes included, as indented JSON.
func ReportJSON(job models.TransferJob) ([]byte, error) {
	if job.Outcomes == nil {
		job.Outcomes = []models.TrackOutcome{}
	}
	data, err := json.MarshalIndent(job, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode report: %w", err)
	}
	return append(data, '\n'), nil
}

// WriteReport renders job and writes it to path.
//
// Defaults to {job.ID}_report.{ext} as the filename.
func WriteReport(job models.TransferJob, f Format, path string) (string, error) {
	if path == "" {
		path = fmt.Sprintf("%s_report.%s", job.ID, f.Extension())
	}

	data, err := Render(job, f)
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write report file: %w", err)
	}
	return path, nil
}

func title(job models.TransferJob) string {
	switch {
	case job.DestPlaylistName != "":
		return job.DestPlaylistName
	case job.SourcePlaylistName != "":
		return job.SourcePlaylistName
	default:
		return job.SourcePlaylistID
	}
}

func filter(outcomes []models.TrackOutcome, kind models.OutcomeKind) []models.TrackOutcome {
	var out []models.TrackOutcome
	for _, o := range outcomes {
		if o.Kind == kind {
			out = append(out, o)
		}
	}
	return out
}

func marker(kind models.OutcomeKind) string {
	switch kind {
	case models.OutcomeMatched:
		return "ok"
	case models.OutcomeUnmatched:
		return "--"
	case models.OutcomeError:
		return "!!"
	default:
		return ".."
	}
}

// formatDuration converts seconds to m:ss, or "?" when unknown.
func formatDuration(seconds int) string {
	if seconds <= 0 {
		return "?"
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}
