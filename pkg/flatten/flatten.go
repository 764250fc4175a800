// Package flatten reduces a nested Pokémon detail document to a single-level
// row of scalar and string fields suitable for tabular storage.
package flatten

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Separator joins repeated sub-fields (types, abilities) into one column.
const Separator = ", "

// Columns is the header of the exported table, in Row field order.
var Columns = []string{
	"id",
	"name",
	"height_dm",
	"weight_hg",
	"base_experience",
	"types",
	"abilities",
}

// ErrShape is wrapped by every FlattenError.
var ErrShape = errors.New("unexpected document shape")

// Document is a decoded detail document. Numbers are json.Number when the
// decoder used UseNumber, float64 otherwise; both are accepted.
type Document map[string]any

// Row is the flat form of one detail document. Nil pointers mark fields that
// were absent or null in the source.
type Row struct {
	ID             *int64
	Name           *string
	HeightDm       *int64
	WeightHg       *int64
	BaseExperience *int64
	Types          string
	Abilities      string
}

// FlattenError reports a field whose value has the wrong shape.
type FlattenError struct {
	Field string
	Want  string
	Got   string
}

// Error implements the error interface.
func (e *FlattenError) Error() string {
	return fmt.Sprintf("field %s: want %s, got %s", e.Field, e.Want, e.Got)
}

// Unwrap lets callers match any shape failure with errors.Is(err, ErrShape).
func (e *FlattenError) Unwrap() error {
	return ErrShape
}

// Flatten maps a detail document to a Row. Missing scalar fields become nil
// and missing lists become empty strings; only values of the wrong shape are
// reported as errors. A nil document (a JSON null body) is a shape error.
// doc is never modified.
func Flatten(doc Document) (Row, error) {
	if doc == nil {
		return Row{}, &FlattenError{Field: "$", Want: "object", Got: "null"}
	}

	var row Row
	var err error

	if row.ID, err = intField(doc, "id"); err != nil {
		return Row{}, err
	}
	if row.Name, err = stringField(doc, "name"); err != nil {
		return Row{}, err
	}
	if row.HeightDm, err = intField(doc, "height"); err != nil {
		return Row{}, err
	}
	if row.WeightHg, err = intField(doc, "weight"); err != nil {
		return Row{}, err
	}
	if row.BaseExperience, err = intField(doc, "base_experience"); err != nil {
		return Row{}, err
	}

	types, err := nestedNames(doc, "types", "type")
	if err != nil {
		return Row{}, err
	}
	abilities, err := nestedNames(doc, "abilities", "ability")
	if err != nil {
		return Row{}, err
	}
	row.Types = strings.Join(types, Separator)
	row.Abilities = strings.Join(abilities, Separator)

	return row, nil
}

// SplitList reverses the join applied to Types and Abilities.
func SplitList(s string) []string {
	if s == "" {
		return []string{}
	}
	return strings.Split(s, Separator)
}

func intField(doc Document, key string) (*int64, error) {
	v, ok := doc[key]
	if !ok || v == nil {
		return nil, nil
	}

	switch n := v.(type) {
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return nil, &FlattenError{Field: key, Want: "integer", Got: n.String()}
		}
		return &i, nil
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) || n != math.Trunc(n) {
			return nil, &FlattenError{Field: key, Want: "integer", Got: strconv.FormatFloat(n, 'g', -1, 64)}
		}
		i := int64(n)
		return &i, nil
	case int:
		i := int64(n)
		return &i, nil
	case int64:
		return &n, nil
	default:
		return nil, &FlattenError{Field: key, Want: "integer", Got: kind(v)}
	}
}

func stringField(doc Document, key string) (*string, error) {
	v, ok := doc[key]
	if !ok || v == nil {
		return nil, nil
	}
	s, ok := v.(string)
	if !ok {
		return nil, &FlattenError{Field: key, Want: "string", Got: kind(v)}
	}
	return &s, nil
}

// nestedNames extracts doc[listKey][i][innerKey]["name"] for every element.
// An absent list is empty; an explicit null is not a list.
func nestedNames(doc Document, listKey, innerKey string) ([]string, error) {
	v, ok := doc[listKey]
	if !ok {
		return nil, nil
	}
	items, ok := v.([]any)
	if !ok {
		return nil, &FlattenError{Field: listKey, Want: "array", Got: kind(v)}
	}

	names := make([]string, 0, len(items))
	for i, item := range items {
		path := fmt.Sprintf("%s[%d]", listKey, i)

		slot, ok := asObject(item)
		if !ok {
			return nil, &FlattenError{Field: path, Want: "object", Got: kind(item)}
		}
		inner, ok := asObject(slot[innerKey])
		if !ok {
			return nil, &FlattenError{Field: path + "." + innerKey, Want: "object", Got: kind(slot[innerKey])}
		}
		name, ok := inner["name"].(string)
		if !ok {
			return nil, &FlattenError{Field: path + "." + innerKey + ".name", Want: "string", Got: kind(inner["name"])}
		}
		names = append(names, name)
	}
	return names, nil
}

func asObject(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case Document:
		return m, true
	default:
		return nil, false
	}
}

func kind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case json.Number, float64, int, int64:
		return "number"
	case []any:
		return "array"
	case map[string]any, Document:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}
