// Package dataset holds historical per-model performance data used to train the
// embedding routers.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/upb/llm-router-lab/services"
)

// DefaultInputColumn is the input column used when none is configured.
const DefaultInputColumn = "prompt"

// Dataset is a table with one input text column and one numeric score column per
// model. Missing scores are NaN.
type Dataset struct {
	InputColumn  string
	ModelColumns []string
	Inputs       []string
	// Scores is row-major: Scores[i][j] is ModelColumns[j]'s score on Inputs[i].
	Scores [][]float64
}

// New validates and assembles a dataset.
func New(inputColumn string, modelColumns []string, inputs []string, scores [][]float64) (*Dataset, error) {
	if len(modelColumns) == 0 {
		return nil, invalid("dataset has no model columns", nil)
	}
	if slices.Contains(modelColumns, inputColumn) {
		return nil, invalid(fmt.Sprintf("input column %q is also listed as a model column", inputColumn), nil)
	}
	if len(inputs) == 0 {
		return nil, invalid("dataset has no rows", nil)
	}
	if len(scores) != len(inputs) {
		return nil, invalid(fmt.Sprintf("dataset has %d inputs but %d score rows", len(inputs), len(scores)), nil)
	}
	for i, row := range scores {
		if len(row) != len(modelColumns) {
			return nil, invalid(fmt.Sprintf("row %d has %d scores, expected %d", i, len(row), len(modelColumns)), nil).
				WithDetail("row", i)
		}
	}
	return &Dataset{
		InputColumn:  inputColumn,
		ModelColumns: modelColumns,
		Inputs:       inputs,
		Scores:       scores,
	}, nil
}

func invalid(message string, err error) *services.DomainError {
	return services.NewDomainError(services.ErrorTypeConfiguration, message, err)
}

// Len returns the number of rows.
func (d *Dataset) Len() int { return len(d.Inputs) }

// BestModels labels every row with the model column holding its lowest score, or its
// highest when minimize is false. NaN cells are skipped and ties go to the earlier
// column. A row with no numeric score is rejected.
func (d *Dataset) BestModels(minimize bool) ([]string, error) {
	labels := make([]string, len(d.Scores))
	for i, row := range d.Scores {
		best := -1
		for j, v := range row {
			if math.IsNaN(v) {
				continue
			}
			if best < 0 || (minimize && v < row[best]) || (!minimize && v > row[best]) {
				best = j
			}
		}
		if best < 0 {
			return nil, invalid(fmt.Sprintf("row %d has no numeric model score", i), nil).WithDetail("row", i)
		}
		labels[i] = d.ModelColumns[best]
	}
	return labels, nil
}

// LoadCSV reads a dataset with a header row. When modelColumns is empty every column
// other than inputColumn is a model column. Empty cells and "NaN" become NaN.
func LoadCSV(r io.Reader, inputColumn string, modelColumns []string) (*Dataset, error) {
	if inputColumn == "" {
		inputColumn = DefaultInputColumn
	}

	reader := csv.NewReader(r)
	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, invalid("csv has no header", nil)
		}
		return nil, invalid("failed to read csv header", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	position := make(map[string]int, len(header))
	for i, name := range header {
		position[name] = i
	}
	inputPos, ok := position[inputColumn]
	if !ok {
		return nil, invalid(fmt.Sprintf("input column %q not found in csv header", inputColumn), nil)
	}

	if len(modelColumns) == 0 {
		for _, name := range header {
			if name != inputColumn {
				modelColumns = append(modelColumns, name)
			}
		}
	}
	modelPos := make([]int, len(modelColumns))
	for j, name := range modelColumns {
		p, ok := position[name]
		if !ok {
			return nil, invalid(fmt.Sprintf("model column %q not found in csv header", name), nil).
				WithDetail("column", name)
		}
		modelPos[j] = p
	}

	var inputs []string
	var scores [][]float64
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, invalid("failed to read csv", err)
		}

		row := make([]float64, len(modelPos))
		for j, p := range modelPos {
			v, err := parseScore(record[p])
			if err != nil {
				return nil, invalid(fmt.Sprintf("line %d column %q", line, modelColumns[j]), err).
					WithDetail("line", line)
			}
			row[j] = v
		}
		inputs = append(inputs, record[inputPos])
		scores = append(scores, row)
	}

	return New(inputColumn, modelColumns, inputs, scores)
}

// LoadCSVFile opens path and calls LoadCSV.
func LoadCSVFile(path, inputColumn string, modelColumns []string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, invalid(fmt.Sprintf("failed to open dataset %s", path), err)
	}
	defer f.Close()
	return LoadCSV(f, inputColumn, modelColumns)
}

func parseScore(cell string) (float64, error) {
	cell = strings.TrimSpace(cell)
	if cell == "" || strings.EqualFold(cell, "nan") {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(cell, 64)
}
