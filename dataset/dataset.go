// Package dataset loads historical outcome matrices and weight vectors from
// delimited numeric text. Rows are reporting regions, columns are events.
// It only parses and validates shapes; all numeric logic lives in the model
// packages, which treat the returned containers as opaque validated input.
package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/n0madic/go-vote-prediction/vote"
)

type config struct {
	comma   rune
	comment rune
}

// Option configures the reader.
type Option func(*config)

// WithComma sets the field delimiter. Comma by default.
func WithComma(comma rune) Option {
	return func(c *config) {
		c.comma = comma
	}
}

// WithComment sets a comment character; lines starting with it are skipped.
func WithComment(comment rune) Option {
	return func(c *config) {
		c.comment = comment
	}
}

func newReader(r io.Reader, opts ...Option) *csv.Reader {
	cfg := config{comma: ','}
	for _, opt := range opts {
		opt(&cfg)
	}
	cr := csv.NewReader(r)
	cr.Comma = cfg.comma
	cr.Comment = cfg.comment
	cr.TrimLeadingSpace = true
	return cr
}

func parseField(field string, row, col int) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
	if err != nil {
		return 0, fmt.Errorf("row %d, column %d: %q is not numeric: %w", row, col, field, err)
	}
	return v, nil
}

// LoadMatrix reads a delimited numeric matrix. Every record must have the
// same number of fields; ragged input fails with ErrInvalidDimension.
func LoadMatrix(r io.Reader, opts ...Option) (*mat.Dense, error) {
	records, err := newReader(r, opts...).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading matrix: %v: %w", err, vote.ErrInvalidDimension)
	}
	if len(records) == 0 || len(records[0]) == 0 {
		return nil, fmt.Errorf("matrix input is empty: %w", vote.ErrInvalidDimension)
	}
	rows, cols := len(records), len(records[0])
	data := make([]float64, 0, rows*cols)
	for i, record := range records {
		for j, field := range record {
			v, err := parseField(field, i, j)
			if err != nil {
				return nil, err
			}
			data = append(data, v)
		}
	}
	return mat.NewDense(rows, cols, data), nil
}

// LoadMatrixFile reads a delimited numeric matrix from a file.
func LoadMatrixFile(path string, opts ...Option) (*mat.Dense, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadMatrix(f, opts...)
}

// LoadVector reads a numeric vector. Fields are flattened across records, so
// both one-value-per-line and single-line layouts are accepted.
func LoadVector(r io.Reader, opts ...Option) ([]float64, error) {
	cr := newReader(r, opts...)
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading vector: %v: %w", err, vote.ErrInvalidDimension)
	}
	var out []float64
	for i, record := range records {
		for j, field := range record {
			if strings.TrimSpace(field) == "" {
				continue
			}
			v, err := parseField(field, i, j)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("vector input is empty: %w", vote.ErrInvalidDimension)
	}
	return out, nil
}

// LoadFields reads raw string fields from a file, flattened across records.
// It is for callers that interpret markers themselves, like a partial result
// vector with placeholders for unreported regions.
func LoadFields(path string, opts ...Option) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	cr := newReader(f, opts...)
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading fields: %v: %w", err, vote.ErrInvalidDimension)
	}
	var out []string
	for _, record := range records {
		out = append(out, record...)
	}
	return out, nil
}

// LoadVectorFile reads a numeric vector from a file.
func LoadVectorFile(path string, opts ...Option) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadVector(f, opts...)
}
