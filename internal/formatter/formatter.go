// package formatter renders run history and playlists as text, Markdown, CSV, JSON or YAML
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/desertthunder/passtheaux/internal/models"
	"github.com/desertthunder/passtheaux/internal/shared"
	"gopkg.in/yaml.v3"
)

// Format is an output format accepted by [Render].
type Format string

const (
	Text     Format = "text"
	JSON     Format = "json"
	YAML     Format = "yaml"
	CSV      Format = "csv"
	Markdown Format = "markdown"
)

// ParseFormat validates a --format flag value.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case Text, JSON, YAML, CSV, Markdown:
		return f, nil
	case "md":
		return Markdown, nil
	case "yml":
		return YAML, nil
	case "":
		return Text, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, s)
	}
}

// RunTracksToCSV converts a run's tracks to CSV with columns: Position, Descriptor, TrackID, URI
func RunTracksToCSV(run *models.Run) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{"Position", "Descriptor", "TrackID", "URI"}); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, track := range run.Tracks {
		record := []string{strconv.Itoa(track.Position + 1), track.Descriptor, track.TrackID, track.URI}
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

// RunToMarkdown renders a run summary and its tracks as Markdown
func RunToMarkdown(run *models.Run) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", run.Mood.PlaylistName())
	fmt.Fprintf(&buf, "**Listeners**: %s\n", strings.Join(run.Usernames, ", "))
	fmt.Fprintf(&buf, "**Status**: %s\n", run.Status)
	if run.PlaylistURL != "" {
		fmt.Fprintf(&buf, "**Playlist**: [%s](%s)\n", run.PlaylistID, run.PlaylistURL)
	}
	fmt.Fprintf(&buf, "**Started**: %s\n", run.StartedAt.Format(time.RFC3339))
	if d := runDuration(run); d != "" {
		fmt.Fprintf(&buf, "**Duration**: %s\n", d)
	}
	if run.Error != "" {
		fmt.Fprintf(&buf, "**Error**: %s\n", run.Error)
	}
	fmt.Fprintf(&buf, "\n%d candidates → %d curated → %d resolved → %d added\n\n", run.Candidates, run.Curated, run.Resolved, run.Added)

	if len(run.Tracks) > 0 {
		buf.WriteString("## Tracks\n\n")
		for _, track := range run.Tracks {
			fmt.Fprintf(&buf, "%d. %s (`%s`)\n", track.Position+1, track.Descriptor, track.URI)
		}
	}

	return buf.Bytes(), nil
}

// RunToText renders a run summary and its tracks as plain text
func RunToText(run *models.Run) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Run: %s\n", run.ID)
	fmt.Fprintf(&buf, "Mix: %s for %s\n", run.Mood.PlaylistName(), strings.Join(run.Usernames, ", "))
	fmt.Fprintf(&buf, "Status: %s\n", run.Status)
	if run.PlaylistID != "" {
		fmt.Fprintf(&buf, "Playlist: %s", run.PlaylistID)
		if run.PlaylistURL != "" {
			fmt.Fprintf(&buf, " (%s)", run.PlaylistURL)
		}
		buf.WriteString("\n")
	}
	if run.Error != "" {
		fmt.Fprintf(&buf, "Error: %s\n", run.Error)
	}
	fmt.Fprintf(&buf, "Tracks: %d candidates, %d curated, %d resolved, %d added\n", run.Candidates, run.Curated, run.Resolved, run.Added)

	if len(run.Tracks) > 0 {
		buf.WriteString("\n")
		for _, track := range run.Tracks {
			fmt.Fprintf(&buf, "%d. %s\n", track.Position+1, track.Descriptor)
		}
	}

	return buf.Bytes(), nil
}

// RunsToText renders a run list as an aligned table
func RunsToText(runs []*models.Run) ([]byte, error) {
	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)

	fmt.Fprintln(w, "ID\tSTARTED\tMOOD\tLISTENERS\tSTATUS\tADDED\tPLAYLIST")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
			run.ID,
			run.StartedAt.Local().Format("2006-01-02 15:04"),
			run.Mood,
			strings.Join(run.Usernames, ","),
			run.Status,
			run.Added,
			run.PlaylistID,
		)
	}

	if err := w.Flush(); err != nil {
		return nil, fmt.Errorf("failed to flush table: %w", err)
	}
	return buf.Bytes(), nil
}

// PlaylistsToText renders playlists as an aligned table
func PlaylistsToText(playlists []models.Playlist) ([]byte, error) {
	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)

	fmt.Fprintln(w, "ID\tNAME\tTRACKS\tVISIBILITY")
	for _, pl := range playlists {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", pl.ID, pl.Name, pl.TrackCount, visibility(pl.Public))
	}

	if err := w.Flush(); err != nil {
		return nil, fmt.Errorf("failed to flush table: %w", err)
	}
	return buf.Bytes(), nil
}

// ToYAML marshals v with yaml.v3, using the yaml struct tags on models types
func ToYAML(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("failed to encode YAML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode YAML: %w", err)
	}
	return buf.Bytes(), nil
}

// Render writes v to w in format f.
//
// v may be a *models.Run, []*models.Run or []models.Playlist; JSON and YAML accept anything.
func Render(w io.Writer, f Format, v any) error {
	var (
		data []byte
		err  error
	)

	switch f {
	case JSON:
		data, err = shared.MarshalJSON(v, true)
		data = append(data, '\n')
	case YAML:
		data, err = ToYAML(v)
	default:
		data, err = renderTyped(f, v)
	}
	if err != nil {
		return err
	}

	_, err = w.Write(data)
	return err
}

func renderTyped(f Format, v any) ([]byte, error) {
	switch val := v.(type) {
	case *models.Run:
		switch f {
		case CSV:
			return RunTracksToCSV(val)
		case Markdown:
			return RunToMarkdown(val)
		default:
			return RunToText(val)
		}
	case []*models.Run:
		if f != Text {
			return nil, fmt.Errorf("%w: run lists support text, json or yaml", shared.ErrInvalidArgument)
		}
		return RunsToText(val)
	case []models.Playlist:
		if f != Text {
			return nil, fmt.Errorf("%w: playlists support text, json or yaml", shared.ErrInvalidArgument)
		}
		return PlaylistsToText(val)
	default:
		return nil, fmt.Errorf("%w: cannot render %T as %s", shared.ErrInvalidArgument, v, f)
	}
}

// RunExportResult contains the paths of files created by WriteRunExport
type RunExportResult struct {
	TracksFile string
	RunFile    string
}

// WriteRunExport writes a run's tracks to {base}_tracks.csv and its summary to {base}_run.yaml.
//
// Defaults to the run ID as the base filename.
func WriteRunExport(run *models.Run, baseFilepath string) (*RunExportResult, error) {
	if baseFilepath == "" {
		baseFilepath = run.ID
	}

	csvData, err := RunTracksToCSV(run)
	if err != nil {
		return nil, fmt.Errorf("failed to generate CSV: %w", err)
	}

	tracksFile := baseFilepath + "_tracks.csv"
	if err := os.WriteFile(tracksFile, csvData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write tracks file: %w", err)
	}

	summary := *run
	summary.Tracks = nil
	yamlData, err := ToYAML(summary)
	if err != nil {
		return nil, err
	}

	runFile := baseFilepath + "_run.yaml"
	if err := os.WriteFile(runFile, yamlData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write run file: %w", err)
	}

	return &RunExportResult{TracksFile: tracksFile, RunFile: runFile}, nil
}

func visibility(public bool) string {
	if public {
		return "public"
	}
	return "private"
}

func runDuration(run *models.Run) string {
	if run.FinishedAt == nil {
		return ""
	}
	return run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond).String()
}
