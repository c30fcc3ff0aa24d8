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

package filter

import (
	"fmt"
	"strings"

	"github.com/tablescope/tablescope/datatable"
)

// Parse compiles a query string into a filter.
//
// The grammar is a flat list of comparisons joined by AND/OR, evaluated
// left to right without precedence:
//
//	city = London AND age >= 30
//	name ~ smith OR name ~ jones
//	berlin
//
// Operators, longest first: >= <= != = > < ~ (contains). Values may be
// quoted. A term with no operator filters on every column as a contains
// match. An empty query returns a nil filter, meaning all rows.
func Parse(query string, columns []string) (datatable.Filter, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	parts := splitByLogicOps(query)
	if len(parts) == 0 {
		return nil, fmt.Errorf("%w: empty query", datatable.ErrInvalidFilter)
	}

	var result datatable.Filter
	var pendingOp LogicOp
	expectExpr := true

	for _, part := range parts {
		if part.isOperator {
			if expectExpr {
				return nil, fmt.Errorf("%w: operator %q needs an expression on both sides",
					datatable.ErrInvalidFilter, part.text)
			}
			if strings.EqualFold(part.text, "OR") {
				pendingOp = LogicOR
			} else {
				pendingOp = LogicAND
			}
			expectExpr = true
			continue
		}

		expr, err := parseExpression(part.text, columns)
		if err != nil {
			return nil, err
		}
		if result == nil {
			result = expr
		} else {
			// Left-to-right pairing; no operator precedence.
			result = &CompositeFilter{
				Filters: []datatable.Filter{result, expr},
				Logic:   pendingOp,
			}
		}
		expectExpr = false
	}

	if expectExpr {
		return nil, fmt.Errorf("%w: trailing operator", datatable.ErrInvalidFilter)
	}
	return result, nil
}

type queryPart struct {
	text       string
	isOperator bool
}

// splitByLogicOps splits the query at AND/OR word boundaries, keeping
// the operators as their own parts.
func splitByLogicOps(query string) []queryPart {
	parts := make([]queryPart, 0)
	current := ""
	i := 0

	flush := func() {
		if s := strings.TrimSpace(current); s != "" {
			parts = append(parts, queryPart{text: s})
		}
		current = ""
	}

	for i < len(query) {
		if i+3 <= len(query) && strings.EqualFold(query[i:i+3], "AND") {
			if (i == 0 || isSpace(query[i-1])) && (i+3 >= len(query) || isSpace(query[i+3])) {
				flush()
				parts = append(parts, queryPart{text: "AND", isOperator: true})
				i += 3
				continue
			}
		}

		if i+2 <= len(query) && strings.EqualFold(query[i:i+2], "OR") {
			if (i == 0 || isSpace(query[i-1])) && (i+2 >= len(query) || isSpace(query[i+2])) {
				flush()
				parts = append(parts, queryPart{text: "OR", isOperator: true})
				i += 2
				continue
			}
		}

		current += string(query[i])
		i++
	}
	flush()

	return parts
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

// operator spellings, longest first so >= wins over =.
var operators = []struct {
	op     CompareOp
	symbol string
}{
	{OpGreaterEqual, ">="},
	{OpLessEqual, "<="},
	{OpNotEqual, "!="},
	{OpEqual, "="},
	{OpGreater, ">"},
	{OpLess, "<"},
	{OpContains, "~"},
}

// parseExpression parses a single comparison like "city = London".
// A term without an operator becomes a contains filter on all columns.
func parseExpression(expr string, columns []string) (datatable.Filter, error) {
	expr = strings.TrimSpace(expr)

	for _, opInfo := range operators {
		idx := strings.Index(expr, opInfo.symbol)
		if idx <= 0 {
			continue
		}

		column := strings.TrimSpace(expr[:idx])
		value := strings.TrimSpace(expr[idx+len(opInfo.symbol):])
		value = strings.Trim(value, "\"'")

		if findColumn(columns, column) < 0 {
			return nil, fmt.Errorf("%w: %s", datatable.ErrColumnNotFound, column)
		}
		return &Compare{Column: column, Op: opInfo.op, Value: value}, nil
	}

	return &Contains{Text: expr}, nil
}
