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

// Package script compiles user-written Go expressions into row filters
// using the yaegi interpreter. An expression sees two helpers: cell(name)
// returns a column's formatted text and num(name) its numeric value, NaN
// when the cell does not parse as a number. Unknown column names yield ""
// and NaN rather than an error, so predicates stay total.
//
//	num("age") >= 30 && strings.Contains(cell("city"), "York")
package script

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"

	"github.com/tablescope/tablescope/datatable"
)

// srcTemplate wraps the user expression in a package so that the
// interpreter type-checks it as the body of a predicate. The strings and
// math packages are imported for convenience.
const srcTemplate = `package rowpred

import (
	"math"
	"strings"
)

func Match(cell func(string) string, num func(string) float64) bool {
	return %s
}
`

// Compile builds a filter from a Go boolean expression. Compilation
// errors (syntax, type) are reported as ErrInvalidFilter.
func Compile(expr string) (datatable.Filter, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, fmt.Errorf("%w: empty expression", datatable.ErrInvalidFilter)
	}

	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return nil, fmt.Errorf("%w: %v", datatable.ErrInvalidFilter, err)
	}

	if _, err := i.Eval(fmt.Sprintf(srcTemplate, expr)); err != nil {
		return nil, fmt.Errorf("%w: %v", datatable.ErrInvalidFilter, err)
	}

	v, err := i.Eval("rowpred.Match")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", datatable.ErrInvalidFilter, err)
	}
	match, ok := v.Interface().(func(func(string) string, func(string) float64) bool)
	if !ok {
		return nil, fmt.Errorf("%w: predicate has the wrong shape", datatable.ErrInvalidFilter)
	}

	return &exprFilter{expr: expr, match: match}, nil
}

// exprFilter runs a compiled predicate against each row. The interpreter
// behind match is not safe for concurrent use, hence the mutex.
type exprFilter struct {
	expr  string
	match func(func(string) string, func(string) float64) bool
	mu    sync.Mutex
}

// Evaluate implements the Filter interface. A panic inside the
// interpreted expression is converted into an error, which excludes the
// row and counts as a warning.
func (f *exprFilter) Evaluate(row []datatable.Value, columnNames []string) (keep bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			keep = false
			err = fmt.Errorf("%w: %v", datatable.ErrInvalidFilter, r)
		}
	}()

	cell := func(name string) string {
		for i, n := range columnNames {
			if strings.EqualFold(n, name) && i < len(row) {
				return row[i].Formatted
			}
		}
		return ""
	}
	num := func(name string) float64 {
		n, perr := strconv.ParseFloat(strings.TrimSpace(cell(name)), 64)
		if perr != nil {
			return math.NaN()
		}
		return n
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.match(cell, num), nil
}

// Description implements the Filter interface.
func (f *exprFilter) Description() string {
	return "go: " + f.expr
}
