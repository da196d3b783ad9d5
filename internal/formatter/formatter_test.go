package formatter

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/crossfade/internal/models"
	"github.com/desertthunder/crossfade/internal/shared"
	th "github.com/desertthunder/crossfade/internal/testing"
)

func sampleJob() models.TransferJob {
	return models.TransferJob{
		ID:                 "job-1",
		SourcePlatform:     "spotify",
		DestPlatform:       "youtube",
		SourcePlaylistID:   "p1",
		SourcePlaylistName: "Road Trip",
		DestPlaylistID:     "yt-1",
		Status:             models.StatusPartiallySucceeded,
		Total:              3,
		Matched:            1,
		Unmatched:          1,
		Errors:             1,
		Outcomes: []models.TrackOutcome{
			{
				Index:      0,
				Source:     models.Track{ID: "s1", Title: "Song One", Artist: "Artist One", Album: "Album One", Duration: 185, ISRC: "USRC12345678"},
				Matched:    &models.Track{ID: "d1", Title: "Song One", Artist: "Artist One"},
				Confidence: 1,
				Method:     models.MatchISRC,
				Kind:       models.OutcomeMatched,
			},
			{
				Index:  1,
				Source: models.Track{ID: "s2", Title: "Song, Two", Artist: "Artist Two"},
				Method: models.MatchNone,
				Kind:   models.OutcomeUnmatched,
				Error:  "no matching track",
			},
			{
				Index:  2,
				Source: models.Track{ID: "s3", Title: "Song Three", Artist: "Artist Three", Duration: 60},
				Kind:   models.OutcomeError,
				Error:  "api: search failed",
			},
		},
	}
}

func TestReports(t *testing.T) {
	t.Run("ReportCSV", func(t *testing.T) {
		data, err := ReportCSV(sampleJob())
		if err != nil {
			t.Fatalf("ReportCSV failed: %v", err)
		}

		records, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
		if err != nil {
			t.Fatalf("output is not valid CSV: %v", err)
		}
		if len(records) != 4 {
			t.Fatalf("expected header + 3 rows, got %d", len(records))
		}
		if records[0][0] != "Index" || records[0][1] != "Outcome" || len(records[0]) != 13 {
			t.Errorf("unexpected headers: %v", records[0])
		}

		first := records[1]
		if first[0] != "1" || first[1] != "matched" || first[6] != "USRC12345678" || first[7] != "d1" || first[10] != "1.00" || first[11] != "isrc" {
			t.Errorf("unexpected matched row: %v", first)
		}
		if records[2][2] != "Song, Two" {
			t.Errorf("expected quoted title to survive, got %q", records[2][2])
		}
		if records[3][1] != "error" || records[3][12] != "api: search failed" {
			t.Errorf("unexpected error row: %v", records[3])
		}
	})

	t.Run("ReportCSV With No Outcomes", func(t *testing.T) {
		job := sampleJob()
		job.Outcomes = nil

		data, err := ReportCSV(job)
		if err != nil {
			t.Fatalf("ReportCSV failed: %v", err)
		}
		if lines := strings.Count(string(data), "\n"); lines != 1 {
			t.Errorf("expected only the header line, got %d lines", lines)
		}
	})

	t.Run("ReportMarkdown", func(t *testing.T) {
		output := string(ReportMarkdown(sampleJob()))

		for _, want := range []string{
			"# Road Trip",
			"**Job**: `job-1`",
			"**Status**: partially_succeeded",
			"| 3 | 1 | 1 | 1 |",
			"## Matched",
			"1. Artist One - Song One [3:05] → Artist One - Song One (isrc, 100%)",
			"## Unmatched",
			"2. Artist Two - Song, Two [?]: no matching track",
			"## Errors",
			"3. Artist Three - Song Three [1:00]: api: search failed",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("Markdown missing %q, got:\n%s", want, output)
			}
		}
	})

	t.Run("ReportMarkdown Skips Empty Sections", func(t *testing.T) {
		job := sampleJob()
		job.Outcomes = job.Outcomes[:1]

		output := string(ReportMarkdown(job))
		if strings.Contains(output, "## Unmatched") || strings.Contains(output, "## Errors") {
			t.Errorf("expected only the matched section, got:\n%s", output)
		}
	})

	t.Run("ReportText", func(t *testing.T) {
		job := sampleJob()
		job.DestPlaylistName = "Road Trip (copy)"
		output := string(ReportText(job))

		for _, want := range []string{
			"Transfer: Road Trip (copy)",
			"Route: spotify -> youtube",
			"Tracks: 1 matched, 1 unmatched, 1 errors (of 3)",
			"  1. [ok] Artist One - Song One => d1 (1.00)",
			"  2. [--] Artist Two - Song, Two (no matching track)",
			"  3. [!!] Artist Three - Song Three (api: search failed)",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("text missing %q, got:\n%s", want, output)
			}
		}
	})

	t.Run("ReportText Includes Failure Detail", func(t *testing.T) {
		job := models.TransferJob{
			ID:               "job-2",
			SourcePlaylistID: "p9",
			Status:           models.StatusFailed,
			ErrorKind:        shared.KindAuth,
			ErrorDetail:      "auth: authentication failed",
		}

		output := string(ReportText(job))
		if !strings.Contains(output, "Transfer: p9") || !strings.Contains(output, "Error: auth: authentication failed") {
			t.Errorf("unexpected output:\n%s", output)
		}
	})

	t.Run("ReportJSON", func(t *testing.T) {
		data, err := ReportJSON(sampleJob())
		if err != nil {
			t.Fatalf("ReportJSON failed: %v", err)
		}

		var job models.TransferJob
		if err := json.Unmarshal(data, &job); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if job.ID != "job-1" || len(job.Outcomes) != 3 || job.Outcomes[0].Matched.ID != "d1" {
			t.Errorf("unexpected decoded job: %+v", job)
		}
	})

	t.Run("ReportJSON Emits Empty Outcomes", func(t *testing.T) {
		data, err := ReportJSON(models.TransferJob{ID: "job-3"})
		if err != nil {
			t.Fatalf("ReportJSON failed: %v", err)
		}
		if !strings.Contains(string(data), `"outcomes": []`) {
			t.Errorf("expected empty outcomes array, got %s", data)
		}
	})
}

func TestFormats(t *testing.T) {
	t.Run("ParseFormat", func(t *testing.T) {
		tests := []struct {
			in   string
			want Format
		}{
			{"", FormatText},
			{"txt", FormatText},
			{"Markdown", FormatMarkdown},
			{"md", FormatMarkdown},
			{" csv ", FormatCSV},
			{"JSON", FormatJSON},
		}
		for _, tt := range tests {
			got, err := ParseFormat(tt.in)
			if err != nil || got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
			}
		}

		if _, err := ParseFormat("xml"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("Render Dispatches Every Format", func(t *testing.T) {
		for _, f := range Formats {
			data, err := Render(sampleJob(), f)
			if err != nil {
				t.Errorf("Render(%s) failed: %v", f, err)
			}
			if len(data) == 0 {
				t.Errorf("Render(%s) produced no output", f)
			}
		}

		if _, err := Render(sampleJob(), Format("xml")); err == nil {
			t.Error("expected error for unknown format")
		}
	})

	t.Run("Extension", func(t *testing.T) {
		want := map[Format]string{FormatText: "txt", FormatMarkdown: "md", FormatCSV: "csv", FormatJSON: "json"}
		for f, ext := range want {
			if got := f.Extension(); got != ext {
				t.Errorf("%s.Extension() = %q, want %q", f, got, ext)
			}
		}
	})
}

func TestWriteReport(t *testing.T) {
	t.Run("With Custom Path", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "report.md")

		got, err := WriteReport(sampleJob(), FormatMarkdown, path)
		if err != nil {
			t.Fatalf("WriteReport failed: %v", err)
		}
		if got != path {
			t.Errorf("expected %s, got %s", path, got)
		}

		th.AssertFileExists(t, path)
		if content := th.MustReadFile(t, path); !strings.HasPrefix(content, "# Road Trip") {
			t.Errorf("unexpected content:\n%s", content)
		}
	})

	t.Run("With Default Path", func(t *testing.T) {
		t.Chdir(t.TempDir())

		got, err := WriteReport(sampleJob(), FormatCSV, "")
		if err != nil {
			t.Fatalf("WriteReport failed: %v", err)
		}
		if got != "job-1_report.csv" {
			t.Errorf("expected job-1_report.csv, got %s", got)
		}
		th.AssertFileExists(t, got)
	})

	t.Run("Unwritable Path", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "missing", "report.txt")
		if _, err := WriteReport(sampleJob(), FormatText, path); err == nil {
			t.Error("expected error for missing directory")
		}
	})
}
