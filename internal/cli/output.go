// Package cli renders results, runs and reports for the predab command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"

	"github.com/protein-design/predict-antibody/internal/models"
	"github.com/protein-design/predict-antibody/internal/pipeline"
	"github.com/protein-design/predict-antibody/internal/stats"
	"github.com/protein-design/predict-antibody/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable tables (default).
	OutputText OutputFormat = "text"
	// OutputCompact is one tab-separated line per row, for shell pipelines.
	OutputCompact OutputFormat = "compact"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case OutputText, OutputCompact, OutputJSON:
		return f, nil
	case "":
		return OutputText, nil
	}
	return "", fmt.Errorf("unknown output format %q (want text, compact or json)", s)
}

const seqWidth = 24

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#6C7086"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F38BA8"))
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

func renderTable(headers []string, rows [][]string) string {
	return lgtable.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(mutedStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == lgtable.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		String()
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func ftoa(f float64) string { return strconv.FormatFloat(f, 'f', 4, 64) }

// optional renders an absent feature as "-".
func optional(v *float64) string {
	if v == nil {
		return "-"
	}
	return ftoa(*v)
}

// WriteMatchResults writes match rows followed by the item errors.
func WriteMatchResults(w io.Writer, results []models.MatchResult, errs []models.ItemError, format OutputFormat) error {
	switch format {
	case OutputJSON:
		return writeJSON(w, struct {
			Results []models.MatchResult `json:"results"`
			Errors  []models.ItemError   `json:"errors"`
		}{nonNil(results), nonNil(errs)})
	case OutputCompact:
		for _, r := range results {
			fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%s\n",
				models.RegionItemKey(r.Key()), ftoa(r.Overlap), r.ExpStart, r.ExpEnd, r.ComboID, r.AA)
		}
		writeErrorsCompact(w, errs)
		return nil
	}

	rows := make([][]string, len(results))
	matched := 0
	for i, r := range results {
		if r.Matched {
			matched++
		}
		rows[i] = []string{
			r.StructureID,
			strconv.Itoa(r.ChainIndex),
			r.RegionName,
			fmt.Sprintf("%d-%d", r.SeqFrom, r.SeqTo),
			utils.Truncate(r.AA, seqWidth),
			fmt.Sprintf("%d-%d", r.ExpStart, r.ExpEnd),
			strconv.FormatInt(r.ComboID, 10),
			ftoa(r.Overlap),
		}
	}
	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("%d rows, %d matched", len(results), matched)))
	if len(rows) > 0 {
		fmt.Fprintln(w, renderTable(
			[]string{"pdb_id", "chain", "region", "ref", "aa", "exp", "combo", "overlap"}, rows))
	}
	WriteItemErrors(w, errs)
	return nil
}

// WriteDistanceRecords writes distance feature rows followed by the item
// errors. Absent features render as "-" in text and null in JSON.
func WriteDistanceRecords(w io.Writer, records []models.DistanceRecord, errs []models.ItemError, format OutputFormat) error {
	switch format {
	case OutputJSON:
		return writeJSON(w, struct {
			Records []models.DistanceRecord `json:"records"`
			Errors  []models.ItemError      `json:"errors"`
		}{nonNil(records), nonNil(errs)})
	case OutputCompact:
		for i := range records {
			d := &records[i]
			fields := []string{models.ComplexItemKey(d.PDBID, d.ComboID), strconv.Itoa(d.Count)}
			for _, v := range d.Features() {
				fields = append(fields, optional(v))
			}
			fmt.Fprintln(w, strings.Join(fields, "\t"))
		}
		writeErrorsCompact(w, errs)
		return nil
	}

	headers := append([]string{"pdb_id", "combo", "chains", "n"}, models.FeatureColumns...)
	rows := make([][]string, len(records))
	for i := range records {
		d := &records[i]
		row := []string{d.PDBID, strconv.FormatInt(d.ComboID, 10), d.ChainCombo, strconv.Itoa(d.Count)}
		for _, v := range d.Features() {
			row = append(row, optional(v))
		}
		rows[i] = row
	}
	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("%d records", len(records))))
	if len(rows) > 0 {
		fmt.Fprintln(w, renderTable(headers, rows))
	}
	WriteItemErrors(w, errs)
	return nil
}

// WriteItemErrors writes the error list as a table. Nothing is written for
// an empty list.
func WriteItemErrors(w io.Writer, errs []models.ItemError) {
	if len(errs) == 0 {
		return
	}
	rows := make([][]string, len(errs))
	for i, e := range errs {
		rows[i] = []string{e.Key, e.Kind, e.Message}
	}
	fmt.Fprintln(w, errorStyle.Render(fmt.Sprintf("%d items failed", len(errs))))
	fmt.Fprintln(w, renderTable([]string{"key", "kind", "message"}, rows))
}

func writeErrorsCompact(w io.Writer, errs []models.ItemError) {
	for _, e := range errs {
		fmt.Fprintf(w, "error\t%s\t%s\t%s\n", e.Key, e.Kind, e.Message)
	}
}

// WriteImportResult reports how an import went.
func WriteImportResult(w io.Writer, res *pipeline.ImportResult, format OutputFormat) error {
	switch format {
	case OutputJSON:
		return writeJSON(w, res)
	case OutputCompact:
		fmt.Fprintf(w, "%s\t%d\t%d\n", res.Kind, res.Rows, len(res.Errors))
		writeErrorsCompact(w, res.Errors)
		return nil
	}
	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("Imported %d %s rows", res.Rows, res.Kind)))
	WriteItemErrors(w, res.Errors)
	return nil
}

func paramString(params map[string]interface{}) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%v", k, params[k])
	}
	return strings.Join(parts, " ")
}

// WriteRuns lists stored runs.
func WriteRuns(w io.Writer, runs []*models.Run, format OutputFormat) error {
	switch format {
	case OutputJSON:
		return writeJSON(w, nonNil(runs))
	case OutputCompact:
		for _, r := range runs {
			fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n", r.ID, r.Kind, r.Rows, r.Errors, r.CreatedAt.Format("2006-01-02T15:04:05Z07:00"))
		}
		return nil
	}
	if len(runs) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("No runs stored."))
		return nil
	}
	rows := make([][]string, len(runs))
	for i, r := range runs {
		rows[i] = []string{r.ID, r.Kind, strconv.Itoa(r.Rows), strconv.Itoa(r.Errors),
			r.CreatedAt.Format("2006-01-02 15:04:05"), paramString(r.Params)}
	}
	fmt.Fprintln(w, renderTable([]string{"id", "kind", "rows", "errors", "created", "params"}, rows))
	return nil
}

func summaryRow(s *stats.Summary) []string {
	if s == nil {
		return []string{"-", "-", "-", "-", "-", "-"}
	}
	return []string{ftoa(s.Mean), ftoa(s.Min), ftoa(s.Q25), ftoa(s.Median), ftoa(s.Q75), ftoa(s.Max)}
}

// WriteRunReport writes the statistical report of a run.
func WriteRunReport(w io.Writer, report *pipeline.RunReport, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, report)
	}
	run := report.Run
	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("Run %s (%s)", run.ID, run.Kind)))
	fmt.Fprintln(w, mutedStyle.Render(fmt.Sprintf("%d rows, %d errors, created %s",
		run.Rows, run.Errors, run.CreatedAt.Format("2006-01-02 15:04:05"))))

	statHeaders := []string{"mean", "min", "q25", "median", "q75", "max"}
	if m := report.Matches; m != nil {
		rows := make([][]string, len(m.Regions))
		for i, r := range m.Regions {
			rows[i] = append([]string{r.Region, strconv.Itoa(r.Rows), strconv.Itoa(r.Matched)}, summaryRow(r.Overlap)...)
		}
		if len(rows) > 0 {
			fmt.Fprintln(w, renderTable(append([]string{"region", "rows", "matched"}, statHeaders...), rows))
		}
		if m.Abundance != nil && len(m.Abundance.Rows) > 0 {
			fmt.Fprintln(w, titleStyle.Render("Most frequent matched sequences"))
			abRows := make([][]string, len(m.Abundance.Rows))
			for i, seq := range m.Abundance.Rows {
				row := []string{utils.Truncate(seq, seqWidth)}
				for _, c := range m.Abundance.Counts[i] {
					row = append(row, strconv.Itoa(c))
				}
				abRows[i] = row
			}
			fmt.Fprintln(w, renderTable(append([]string{"aa"}, m.Abundance.Cols...), abRows))
		}
	}
	if len(report.Features) > 0 {
		rows := make([][]string, len(report.Features))
		for i, f := range report.Features {
			rows[i] = append([]string{f.Feature, strconv.Itoa(f.Present), strconv.Itoa(f.Absent)}, summaryRow(f.Summary)...)
		}
		fmt.Fprintln(w, renderTable(append([]string{"feature", "present", "absent"}, statHeaders...), rows))
	}
	if format == OutputCompact {
		writeErrorsCompact(w, report.Errors)
		return nil
	}
	WriteItemErrors(w, report.Errors)
	return nil
}

// WriteStatus writes input and run counts.
func WriteStatus(w io.Writer, counts *models.InputCounts, dbPath string, format OutputFormat) error {
	switch format {
	case OutputJSON:
		return writeJSON(w, map[string]interface{}{
			"database_path": dbPath,
			"regions":       counts.Regions,
			"motifs":        counts.Motifs,
			"complexes":     counts.Complexes,
			"runs":          counts.Runs,
		})
	case OutputCompact:
		fmt.Fprintf(w, "%d\t%d\t%d\t%d\n", counts.Regions, counts.Motifs, counts.Complexes, counts.Runs)
		return nil
	}
	fmt.Fprintln(w, titleStyle.Render("predab status"))
	fmt.Fprintln(w, renderTable([]string{"item", "count"}, [][]string{
		{"reference regions", strconv.FormatInt(counts.Regions, 10)},
		{"motifs", strconv.FormatInt(counts.Motifs, 10)},
		{"distance lists", strconv.FormatInt(counts.Complexes, 10)},
		{"runs", strconv.FormatInt(counts.Runs, 10)},
	}))
	fmt.Fprintln(w, mutedStyle.Render("database: "+dbPath))
	return nil
}

// nonNil keeps empty lists as [] in JSON output.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
