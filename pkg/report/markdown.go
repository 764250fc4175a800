package report

import (
	"io"
	"strconv"
	"time"

	"github.com/Sternrassler/pokeapi-ingest/pkg/collector"
	"github.com/Sternrassler/pokeapi-ingest/pkg/flatten"
	"github.com/nao1215/markdown"
)

// DefaultPreviewRows is the number of rows shown after a run.
const DefaultPreviewRows = 15

// Run describes one ingestion run for the Markdown report.
type Run struct {
	Source    string
	Limit     int
	Offset    int
	Output    string
	StartedAt time.Time
	Duration  time.Duration
	Rows      []flatten.Row
	Failures  []collector.Failure
}

// WritePreview writes the first n rows as a Markdown table.
// n <= 0 writes nothing.
func WritePreview(w io.Writer, rows []flatten.Row, n int) error {
	if n <= 0 {
		return nil
	}

	md := markdown.NewMarkdown(w)
	previewTable(md, rows, n)
	return md.Build()
}

func previewTable(md *markdown.Markdown, rows []flatten.Row, n int) {
	if len(rows) > n {
		rows = rows[:n]
	}

	records := make([][]string, len(rows))
	for i, r := range rows {
		record := r.Record()
		for j, field := range record {
			if field == "" {
				record[j] = "-"
			}
		}
		records[i] = record
	}

	md.Table(markdown.TableSet{
		Header: flatten.Columns,
		Rows:   records,
	})
}

// WriteMarkdown writes a run report: parameters, summary, preview and
// dropped entries.
func WriteMarkdown(w io.Writer, run Run) error {
	md := markdown.NewMarkdown(w)
	summary := Summarize(run.Rows)

	md.H1("PokéAPI Ingestion Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Source", "`" + run.Source + "`"},
			{"Limit", strconv.Itoa(run.Limit)},
			{"Offset", strconv.Itoa(run.Offset)},
			{"Output", "`" + run.Output + "`"},
			{"Started", run.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Duration", run.Duration.Round(time.Millisecond).String()},
		},
	})
	md.PlainText("")

	md.H2("Summary")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Value"},
		Rows: [][]string{
			{"Rows", strconv.Itoa(summary.Count)},
			{"Dropped entries", strconv.Itoa(len(run.Failures))},
			{"Average base experience", summary.AverageString()},
		},
	})
	md.PlainText("")

	md.H2("Preview")
	md.PlainText("")
	if len(run.Rows) == 0 {
		md.PlainText("No rows collected.")
	} else {
		previewTable(md, run.Rows, DefaultPreviewRows)
	}
	md.PlainText("")

	md.H2("Dropped Entries")
	md.PlainText("")
	if len(run.Failures) == 0 {
		md.PlainText("None.")
		md.PlainText("")
		return md.Build()
	}

	items := make([]string, len(run.Failures))
	for i, f := range run.Failures {
		items[i] = "`" + f.Name + "` (" + string(f.Stage) + "): " + f.Err.Error()
	}
	md.BulletList(items...)
	md.PlainText("")

	return md.Build()
}
