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

// tablescope is a terminal viewer for tabular data. It opens CSV, TSV,
// JSON and Parquet files as well as Delta Sharing profiles, and presents
// them in an interactive grid with sorting, filtering, search and export.
// When stdout is not a terminal it prints the first page of the table and
// exits.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/mattn/go-runewidth"
	"golang.org/x/term"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	arrowadapter "github.com/tablescope/tablescope/adapters/arrow"
	csvadapter "github.com/tablescope/tablescope/adapters/csv"
	"github.com/tablescope/tablescope/adapters/deltashare"
	"github.com/tablescope/tablescope/adapters/slice"
	"github.com/tablescope/tablescope/datatable"
	"github.com/tablescope/tablescope/internal/applog"
	"github.com/tablescope/tablescope/internal/config"
	"github.com/tablescope/tablescope/tui"
)

const version = "0.4.0"

var (
	delimiter   = flag.String("delimiter", "", "CSV field delimiter (default: detected from the first line)")
	noHeader    = flag.Bool("no-header", false, "treat the first CSV row as data, not column names")
	tableFlag   = flag.String("table", "", "Delta Sharing table as share.schema.table")
	configPath  = flag.String("config", "", "config file (default ~/.config/tablescope/config.toml)")
	debugLog    = flag.String("debug-log", "", "append debug log lines to this file")
	showVersion = flag.Bool("version", false, "print the version and exit")
	writeConfig = flag.Bool("write-default-config", false, "print the default config as TOML and exit")
)

func usage() {
	out := flag.CommandLine.Output()
	fmt.Fprintf(out, "usage: tablescope [options] FILE\n\n")
	fmt.Fprintf(out, "FILE is a .csv, .tsv, .json or .parquet data file, or a Delta Sharing\nprofile. Profiles granting more than one table need -table.\n\nOptions:\n")
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flag.Parse()

	if *showVersion {
		fmt.Println("tablescope " + version)
		return
	}
	if *writeConfig {
		if err := config.WriteDefault(""); err != nil {
			fatal(err)
		}
		return
	}
	if flag.NArg() != 1 {
		usage()
		os.Exit(2)
	}

	if err := run(flag.Arg(0)); err != nil {
		fatal(err)
	}
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "tablescope: %v\n", err)
	os.Exit(1)
}

func run(path string) error {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	logPath := cfg.Log.Path
	level := applog.ParseLevel(cfg.Log.Level)
	if *debugLog != "" {
		logPath = *debugLog
		level = applog.LevelDebug
	}
	logger, err := applog.New(logPath, level)
	if err != nil {
		return err
	}
	defer logger.Close()

	source, title, err := loadSource(path, cfg, logger)
	if err != nil {
		return err
	}

	table, err := datatable.NewTableModel(source)
	if err != nil {
		return fmt.Errorf("build table from %s: %w", title, err)
	}
	defer table.Close()

	logger.Info("loaded %s (%d rows, %d columns)",
		title, table.OriginalRowCount(), table.OriginalColumnCount())

	fd := os.Stdout.Fd()
	if !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd) {
		return printStatic(table, cfg, title)
	}

	m := tui.New(table, cfg, logger, title)
	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("run ui: %w", err)
	}
	return nil
}

type fileType int

const (
	typeUnknown fileType = iota
	typeCSV
	typeParquet
	typeJSON
	typeProfile
)

// detectType classifies a file by extension. The JSON-flavored extensions
// also cover sharing profiles, which are told apart by content.
func detectType(path string) (fileType, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".tsv":
		return typeCSV, nil
	case ".parquet":
		return typeParquet, nil
	case ".json", ".share", ".txt", ".profile":
		content, err := os.ReadFile(path)
		if err != nil {
			return typeUnknown, err
		}
		if deltashare.IsProfile(content) {
			return typeProfile, nil
		}
		return typeJSON, nil
	}
	return typeUnknown, fmt.Errorf("unsupported file type %q (want .csv, .tsv, .json, .parquet or a sharing profile)",
		filepath.Ext(path))
}

func loadSource(path string, cfg config.Config, logger *applog.Logger) (datatable.DataSource, string, error) {
	ft, err := detectType(path)
	if err != nil {
		return nil, "", err
	}
	if *tableFlag != "" && ft != typeProfile {
		return nil, "", fmt.Errorf("-table only applies to Delta Sharing profiles")
	}

	base := filepath.Base(path)
	switch ft {
	case typeCSV:
		src, err := loadCSV(path, logger)
		return src, base, err
	case typeParquet:
		src, err := loadParquet(path)
		return src, base, err
	case typeJSON:
		src, err := loadJSON(path)
		return src, base, err
	default:
		return loadShared(path, cfg, logger)
	}
}

func loadCSV(path string, logger *applog.Logger) (*slice.Source, error) {
	c := csvadapter.DefaultConfig()
	c.HasHeaders = !*noHeader

	switch {
	case *delimiter != "":
		r := []rune(*delimiter)
		if len(r) != 1 {
			return nil, fmt.Errorf("delimiter must be a single character, got %q", *delimiter)
		}
		c.Delimiter = r[0]
	case strings.EqualFold(filepath.Ext(path), ".tsv"):
		c.Delimiter = '\t'
	default:
		if sep, err := csvadapter.DetectDelimiter(path); err == nil {
			c.Delimiter = sep
		}
	}

	logger.Debug("reading %s with delimiter %q", filepath.Base(path), c.Delimiter)
	return csvadapter.NewFromFile(path, c)
}

func loadParquet(path string) (*arrowadapter.Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open parquet file: %w", err)
	}
	defer f.Close()

	pf, err := file.NewParquetReader(f, file.WithReadProps(&parquet.ReaderProperties{}))
	if err != nil {
		return nil, fmt.Errorf("read parquet file: %w", err)
	}
	defer pf.Close()

	reader, err := pqarrow.NewFileReader(pf, pqarrow.ArrowReadProperties{}, memory.NewGoAllocator())
	if err != nil {
		return nil, fmt.Errorf("read parquet file: %w", err)
	}

	at, err := reader.ReadTable(context.Background())
	if err != nil {
		return nil, fmt.Errorf("read parquet file: %w", err)
	}
	defer at.Release()

	return arrowadapter.NewFromArrowTable(at)
}

func loadJSON(path string) (*slice.Source, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var records []map[string]interface{}
	if err := json.Unmarshal(content, &records); err != nil {
		var single map[string]interface{}
		if err := json.Unmarshal(content, &single); err != nil {
			return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
		}
		records = []map[string]interface{}{single}
	}
	return slice.NewFromMaps(records)
}

func loadShared(path string, cfg config.Config, logger *applog.Logger) (datatable.DataSource, string, error) {
	client, err := deltashare.OpenProfile(path, cfg.Delta.TimeoutSeconds)
	if err != nil {
		return nil, "", err
	}

	var ref deltashare.TableRef
	if *tableFlag != "" {
		ref, err = deltashare.ParseTableRef(*tableFlag)
		if err != nil {
			return nil, "", err
		}
	} else {
		refs, err := client.ListTables()
		if err != nil {
			return nil, "", err
		}
		switch len(refs) {
		case 0:
			return nil, "", fmt.Errorf("profile %s grants no tables", filepath.Base(path))
		case 1:
			ref = refs[0]
		default:
			names := make([]string, len(refs))
			for i, r := range refs {
				names[i] = "  " + r.String()
			}
			return nil, "", fmt.Errorf("profile grants %d tables, pick one with -table:\n%s",
				len(refs), strings.Join(names, "\n"))
		}
	}

	logger.Info("fetching %s", ref)
	src, err := client.Load(ref)
	if err != nil {
		return nil, "", err
	}
	return src, ref.Name, nil
}

// staticPageRows is how many rows a non-terminal invocation prints.
const staticPageRows = 40

// printStatic writes the first page of the table to stdout without any
// interactivity, for pipes and redirects.
func printStatic(table *datatable.TableModel, cfg config.Config, title string) error {
	width := 120
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		width = w
	}

	widths := table.FitColumnWidths(cfg.Columns.MinWidth, cfg.Columns.MaxWidth)

	cols, used := 0, 0
	for _, w := range widths {
		if cols > 0 && used+w+3 > width {
			break
		}
		used += w + 3
		cols++
	}

	var b strings.Builder
	for i, name := range table.RenderHeader(0, cols) {
		if i > 0 {
			b.WriteString(" | ")
		}
		b.WriteString(staticCell(name, widths[i], false))
	}
	fmt.Println(b.String())
	fmt.Println(strings.Repeat("-", runewidth.StringWidth(b.String())))

	window := table.Render(0, staticPageRows, 0, cols)
	for _, row := range window {
		b.Reset()
		for i, cell := range row {
			if i > 0 {
				b.WriteString(" | ")
			}
			t, _ := table.VisibleColumnType(i)
			numeric := t == datatable.TypeInt || t == datatable.TypeFloat
			b.WriteString(staticCell(cell, widths[i], numeric))
		}
		fmt.Println(b.String())
	}

	if rest := table.VisibleRowCount() - len(window); rest > 0 {
		fmt.Printf("... %d more rows\n", rest)
	}
	fmt.Printf("%s: %d rows, %d columns\n",
		title, table.VisibleRowCount(), table.VisibleColumnCount())
	return nil
}

func staticCell(s string, width int, rightAlign bool) string {
	s = runewidth.Truncate(s, width, "…")
	if rightAlign {
		return runewidth.FillLeft(s, width)
	}
	return runewidth.FillRight(s, width)
}
