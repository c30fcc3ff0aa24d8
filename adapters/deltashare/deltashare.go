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

// Package deltashare loads shared Delta tables into data sources. A
// profile file (shareCredentialsVersion, endpoint, bearerToken) names the
// server; tables are addressed as share.schema.table.
package deltashare

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	delta_sharing "github.com/magpierre/go_delta_sharing_client"

	arrowadapter "github.com/tablescope/tablescope/adapters/arrow"
	"github.com/tablescope/tablescope/adapters/slice"
	"github.com/tablescope/tablescope/datatable"
)

// IsProfile reports whether content is a Delta Sharing profile, which is
// a JSON object carrying shareCredentialsVersion, endpoint and
// bearerToken.
func IsProfile(content []byte) bool {
	var profile map[string]interface{}
	if err := json.Unmarshal(content, &profile); err != nil {
		return false
	}

	_, hasVersion := profile["shareCredentialsVersion"]
	_, hasEndpoint := profile["endpoint"]
	_, hasToken := profile["bearerToken"]
	return hasVersion && hasEndpoint && hasToken
}

// TableRef identifies one shared table.
type TableRef struct {
	Share  string
	Schema string
	Name   string
}

func (r TableRef) String() string {
	return r.Share + "." + r.Schema + "." + r.Name
}

// ParseTableRef reads a share.schema.table address.
func ParseTableRef(s string) (TableRef, error) {
	parts := strings.Split(s, ".")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return TableRef{}, fmt.Errorf("invalid table reference %q, want share.schema.table", s)
	}
	return TableRef{Share: parts[0], Schema: parts[1], Name: parts[2]}, nil
}

// Client wraps a sharing connection created from a profile. Every server
// call runs under its own timeout.
type Client struct {
	ds      delta_sharing.SharingClientV2
	timeout time.Duration
}

// OpenProfile reads a profile file and connects.
func OpenProfile(path string, timeoutSeconds int) (*Client, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}
	return Connect(string(content), timeoutSeconds)
}

// Connect creates a client from profile content.
func Connect(profile string, timeoutSeconds int) (*Client, error) {
	ds, err := delta_sharing.NewSharingClientV2FromString(profile)
	if err != nil {
		return nil, fmt.Errorf("create sharing client: %w", err)
	}
	if timeoutSeconds <= 0 {
		timeoutSeconds = 60
	}
	return &Client{ds: ds, timeout: time.Duration(timeoutSeconds) * time.Second}, nil
}

func (c *Client) callCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), c.timeout)
}

// ListTables returns every table the profile grants access to.
func (c *Client) ListTables() ([]TableRef, error) {
	ctx, cancel := c.callCtx()
	defer cancel()

	tables, _, err := c.ds.ListAllTables_V2(ctx, 0, "", 0)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}

	refs := make([]TableRef, len(tables))
	for i, t := range tables {
		refs[i] = TableRef{Share: t.Share, Schema: t.Schema, Name: t.Name}
	}
	return refs, nil
}

// ListFiles returns the data file ids of one table.
func (c *Client) ListFiles(ref TableRef) ([]string, error) {
	ctx, cancel := c.callCtx()
	defer cancel()

	resp, err := c.ds.ListFilesInTable(ctx, c.table(ref))
	if err != nil {
		return nil, fmt.Errorf("list files in %s: %w", ref, err)
	}

	ids := make([]string, len(resp.AddFiles))
	for i, f := range resp.AddFiles {
		ids[i] = f.Id
	}
	return ids, nil
}

// Load fetches every data file of a table and materializes the rows.
func (c *Client) Load(ref TableRef) (*slice.Source, error) {
	ids, err := c.ListFiles(ref)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: %s has no data files", datatable.ErrEmptyData, ref)
	}
	return c.loadFiles(ref, ids)
}

// LoadFile fetches a single data file of a table.
func (c *Client) LoadFile(ref TableRef, fileID string) (*slice.Source, error) {
	return c.loadFiles(ref, []string{fileID})
}

func (c *Client) loadFiles(ref TableRef, ids []string) (*slice.Source, error) {
	var cols []datatable.Column
	var rows [][]datatable.Value

	for i, id := range ids {
		src, err := c.loadOne(ref, id)
		if err != nil {
			return nil, err
		}

		fileCols := sourceColumns(src)
		if i == 0 {
			cols = fileCols
		} else if !sameColumns(cols, fileCols) {
			return nil, fmt.Errorf("%w: file %s of %s disagrees with the table schema",
				datatable.ErrSchemaMismatch, id, ref)
		}

		for r := 0; r < src.RowCount(); r++ {
			row, err := src.Row(r)
			if err != nil {
				return nil, err
			}
			rows = append(rows, row)
		}
	}

	meta := datatable.Metadata{
		"share":  ref.Share,
		"schema": ref.Schema,
		"table":  ref.Name,
		"files":  len(ids),
	}
	return slice.NewFromValues(cols, rows, meta)
}

func (c *Client) loadOne(ref TableRef, fileID string) (*arrowadapter.Source, error) {
	ctx, cancel := c.callCtx()
	defer cancel()

	at, err := delta_sharing.LoadArrowTable(ctx, c.ds, c.table(ref), fileID)
	if err != nil {
		return nil, fmt.Errorf("load %s file %s: %w", ref, fileID, err)
	}
	defer at.Release()

	return arrowadapter.NewFromArrowTable(at)
}

func (c *Client) table(ref TableRef) delta_sharing.Table {
	return delta_sharing.Table{Share: ref.Share, Schema: ref.Schema, Name: ref.Name}
}

func sourceColumns(src *arrowadapter.Source) []datatable.Column {
	cols := make([]datatable.Column, src.ColumnCount())
	for i := range cols {
		name, _ := src.ColumnName(i)
		typ, _ := src.ColumnType(i)
		cols[i] = datatable.Column{Name: name, Type: typ}
	}
	return cols
}

func sameColumns(a, b []datatable.Column) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Name != b[i].Name || a[i].Type != b[i].Type {
			return false
		}
	}
	return true
}
