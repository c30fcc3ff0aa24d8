// Copyright 2025 The Tablescope Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package csv reads delimiter-separated files into a data source,
// inferring a column type from the values when asked to.
package csv

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/tablescope/tablescope/adapters/slice"
	"github.com/tablescope/tablescope/datatable"
)

// Config controls how a file is read.
type Config struct {
	// Delimiter separates fields. Use DetectDelimiter to sniff it.
	Delimiter rune
	// HasHeaders treats the first record as column names.
	HasHeaders bool
	// TrimSpace strips surrounding whitespace from every field.
	TrimSpace bool
	// InferTypes scans each column and assigns int, float, bool, date,
	// or timestamp types when every non-empty value parses as one.
	InferTypes bool
}

// DefaultConfig returns the config used for ordinary CSV files.
func DefaultConfig() Config {
	return Config{
		Delimiter:  ',',
		HasHeaders: true,
		TrimSpace:  true,
		InferTypes: true,
	}
}

// NewFromFile reads path into a data source.
func NewFromFile(path string, cfg Config) (*slice.Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv file: %w", err)
	}
	defer f.Close()

	src, err := NewFromReader(f, cfg)
	if err != nil {
		return nil, err
	}
	src.SetMetadata("path", path)
	return src, nil
}

// NewFromReader reads CSV data from r. Records whose field count
// deviates from the first record's are a schema error.
func NewFromReader(r io.Reader, cfg Config) (*slice.Source, error) {
	reader := csv.NewReader(r)
	reader.Comma = cfg.Delimiter
	// FieldsPerRecord 0 makes the reader enforce the first record's arity.
	reader.FieldsPerRecord = 0

	records, err := reader.ReadAll()
	if err != nil {
		var perr *csv.ParseError
		if errors.As(err, &perr) && errors.Is(perr.Err, csv.ErrFieldCount) {
			return nil, fmt.Errorf("%w: %v", datatable.ErrSchemaMismatch, err)
		}
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(records) == 0 {
		return nil, datatable.ErrEmptyData
	}

	if cfg.TrimSpace {
		for _, rec := range records {
			for i, field := range rec {
				rec[i] = strings.TrimSpace(field)
			}
		}
	}

	var headers []string
	var body [][]string
	if cfg.HasHeaders {
		headers = records[0]
		body = records[1:]
	} else {
		headers = make([]string, len(records[0]))
		for i := range headers {
			headers[i] = fmt.Sprintf("column_%d", i+1)
		}
		body = records
	}

	types := make([]datatable.DataType, len(headers))
	if cfg.InferTypes {
		for col := range headers {
			types[col] = inferColumn(body, col)
		}
	} else {
		for col := range headers {
			types[col] = datatable.TypeString
		}
	}

	cols := make([]datatable.Column, len(headers))
	for i, h := range headers {
		cols[i] = datatable.Column{Name: h, Type: types[i]}
	}

	rows := make([][]datatable.Value, len(body))
	for i, rec := range body {
		vals := make([]datatable.Value, len(cols))
		for j, field := range rec {
			vals[j] = cellValue(field, types[j])
		}
		rows[i] = vals
	}

	meta := datatable.Metadata{"format": "csv", "delimiter": string(cfg.Delimiter)}
	return slice.NewFromValues(cols, rows, meta)
}

// DetectDelimiter sniffs the separator by counting candidates in the
// first line. Comma wins ties and empty files.
func DetectDelimiter(path string) (rune, error) {
	f, err := os.Open(path)
	if err != nil {
		return ',', fmt.Errorf("open csv file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		return ',', nil
	}
	firstLine := scanner.Text()
	if firstLine == "" {
		return ',', nil
	}

	counts := map[rune]int{
		',':  strings.Count(firstLine, ","),
		';':  strings.Count(firstLine, ";"),
		'\t': strings.Count(firstLine, "\t"),
		'|':  strings.Count(firstLine, "|"),
	}

	best := ','
	bestCount := 0
	for sep, count := range counts {
		if count > bestCount {
			bestCount = count
			best = sep
		}
	}
	return best, nil
}

// inferColumn finds the narrowest type every non-empty value in a column
// parses as. Empty fields are nulls and do not veto a type. A column with
// no values at all has no inferable type.
func inferColumn(rows [][]string, col int) datatable.DataType {
	isInt, isFloat, isBool := true, true, true
	isDate, isTimestamp := true, true
	sawValue := false

	for _, rec := range rows {
		field := rec[col]
		if field == "" {
			continue
		}
		sawValue = true

		if isInt {
			if _, err := strconv.ParseInt(field, 10, 64); err != nil {
				isInt = false
			}
		}
		if isFloat {
			if _, err := strconv.ParseFloat(field, 64); err != nil {
				isFloat = false
			}
		}
		if isBool && !isBoolText(field) {
			isBool = false
		}
		if isDate {
			if _, err := time.Parse(datatable.DateLayout, field); err != nil {
				isDate = false
			}
		}
		if isTimestamp && !parseableTimestamp(field) {
			isTimestamp = false
		}

		if !isInt && !isFloat && !isBool && !isDate && !isTimestamp {
			return datatable.TypeString
		}
	}

	switch {
	case !sawValue:
		return datatable.TypeUnknown
	case isBool:
		return datatable.TypeBool
	case isInt:
		return datatable.TypeInt
	case isFloat:
		return datatable.TypeFloat
	case isDate:
		return datatable.TypeDate
	case isTimestamp:
		return datatable.TypeTimestamp
	default:
		return datatable.TypeString
	}
}

func isBoolText(s string) bool {
	switch strings.ToLower(s) {
	case "true", "false":
		return true
	}
	return false
}

func parseableTimestamp(s string) bool {
	if _, err := time.Parse(datatable.TimestampLayout, s); err == nil {
		return true
	}
	if _, err := time.Parse(time.RFC3339, s); err == nil {
		return true
	}
	return false
}

// cellValue parses one field into a typed cell. Empty text is null.
func cellValue(field string, t datatable.DataType) datatable.Value {
	if field == "" {
		return datatable.NewNullValue(t)
	}

	switch t {
	case datatable.TypeInt:
		if n, err := strconv.ParseInt(field, 10, 64); err == nil {
			return datatable.NewValue(n, t)
		}
	case datatable.TypeFloat:
		if f, err := strconv.ParseFloat(field, 64); err == nil {
			return datatable.NewValue(f, t)
		}
	case datatable.TypeBool:
		return datatable.NewValue(strings.EqualFold(field, "true"), t)
	case datatable.TypeDate:
		if ts, err := time.Parse(datatable.DateLayout, field); err == nil {
			return datatable.NewValue(ts, t)
		}
	case datatable.TypeTimestamp:
		if ts, err := time.Parse(datatable.TimestampLayout, field); err == nil {
			return datatable.NewValue(ts, t)
		}
		if ts, err := time.Parse(time.RFC3339, field); err == nil {
			return datatable.NewValue(ts, t)
		}
	}

	return datatable.NewValue(field, t)
}
