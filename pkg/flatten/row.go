package flatten

import (
	"fmt"
	"strconv"
)

// Record renders the row as table fields in Columns order. Nil values are
// rendered as empty fields.
func (r Row) Record() []string {
	return []string{
		formatInt(r.ID),
		formatString(r.Name),
		formatInt(r.HeightDm),
		formatInt(r.WeightHg),
		formatInt(r.BaseExperience),
		r.Types,
		r.Abilities,
	}
}

// ParseRecord is the inverse of Record.
func ParseRecord(record []string) (Row, error) {
	if len(record) != len(Columns) {
		return Row{}, fmt.Errorf("record has %d fields, want %d", len(record), len(Columns))
	}

	var row Row
	var err error
	if row.ID, err = parseInt(Columns[0], record[0]); err != nil {
		return Row{}, err
	}
	if record[1] != "" {
		row.Name = Str(record[1])
	}
	if row.HeightDm, err = parseInt(Columns[2], record[2]); err != nil {
		return Row{}, err
	}
	if row.WeightHg, err = parseInt(Columns[3], record[3]); err != nil {
		return Row{}, err
	}
	if row.BaseExperience, err = parseInt(Columns[4], record[4]); err != nil {
		return Row{}, err
	}
	row.Types = record[5]
	row.Abilities = record[6]
	return row, nil
}

// DisplayName returns the name or "-" when it is missing.
func (r Row) DisplayName() string {
	if r.Name == nil {
		return "-"
	}
	return *r.Name
}

// Int returns a pointer to v.
func Int(v int64) *int64 { return &v }

// Str returns a pointer to s.
func Str(s string) *string { return &s }

func formatInt(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}

func formatString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func parseInt(column, s string) (*int64, error) {
	if s == "" {
		return nil, nil
	}
	i, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("column %s: %w", column, err)
	}
	return &i, nil
}
