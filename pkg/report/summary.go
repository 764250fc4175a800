package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/Sternrassler/pokeapi-ingest/pkg/flatten"
)

// Summary holds the aggregate figures of a run.
type Summary struct {
	Count int

	// AverageBaseExperience is the mean over rows that have a value,
	// nil when no row has one.
	AverageBaseExperience *float64
}

// Summarize computes the summary of rows.
func Summarize(rows []flatten.Row) Summary {
	s := Summary{Count: len(rows)}

	var sum float64
	var n int
	for _, r := range rows {
		if r.BaseExperience == nil {
			continue
		}
		sum += float64(*r.BaseExperience)
		n++
	}
	if n > 0 {
		avg := sum / float64(n)
		s.AverageBaseExperience = &avg
	}

	return s
}

// AverageString renders the average rounded to two decimals, or "n/a".
func (s Summary) AverageString() string {
	if s.AverageBaseExperience == nil {
		return "n/a"
	}
	return strconv.FormatFloat(*s.AverageBaseExperience, 'f', 2, 64)
}

// WriteSummary prints the two summary lines shown after a run.
func WriteSummary(w io.Writer, s Summary) error {
	_, err := fmt.Fprintf(w, "Total Pokémon Retrieved: %d\nAverage Base Experience: %s\n", s.Count, s.AverageString())
	return err
}
