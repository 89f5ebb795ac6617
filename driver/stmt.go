// Copyright 2020-2021 Dolthub, Inc.
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

package driver

import (
	"context"
	"database/sql/driver"
	"errors"
)

// ErrBindParamsUnsupported is returned when a caller passes bind
// parameters to Exec/Query: the SQL surface (C4) takes a single query
// string with no placeholder substitution, so there is nowhere to bind
// them to (Non-goal, tracked in DESIGN.md).
var ErrBindParamsUnsupported = errors.New("driver: bind parameters are not supported")

// Stmt is a prepared statement.
type Stmt struct {
	conn     *Conn
	queryStr string
}

// Close does nothing.
func (s *Stmt) Close() error {
	return nil
}

// NumInput returns -1: the SQL surface (C4) takes a single query string
// with no placeholder syntax, so there is no fixed input count for the
// sql package to sanity-check against; Exec/Query reject any args
// themselves via ErrBindParamsUnsupported.
func (s *Stmt) NumInput() int {
	return -1
}

// Exec executes a query that doesn't return rows, such as an INSERT or UPDATE.
func (s *Stmt) Exec(args []driver.Value) (driver.Result, error) {
	if len(args) != 0 {
		return nil, ErrBindParamsUnsupported
	}
	return s.exec(context.Background())
}

// Query executes a query that may return rows, such as a SELECT.
func (s *Stmt) Query(args []driver.Value) (driver.Rows, error) {
	if len(args) != 0 {
		return nil, ErrBindParamsUnsupported
	}
	return s.query(context.Background())
}

// ExecContext executes a query that doesn't return rows, such as an INSERT or UPDATE.
func (s *Stmt) ExecContext(ctx context.Context, args []driver.NamedValue) (driver.Result, error) {
	if len(args) != 0 {
		return nil, ErrBindParamsUnsupported
	}
	return s.exec(ctx)
}

// QueryContext executes a query that may return rows, such as a SELECT.
func (s *Stmt) QueryContext(ctx context.Context, args []driver.NamedValue) (driver.Rows, error) {
	if len(args) != 0 {
		return nil, ErrBindParamsUnsupported
	}
	return s.query(ctx)
}

func (s *Stmt) exec(ctx context.Context) (driver.Result, error) {
	sctx := s.conn.newContext(ctx)
	res, err := s.conn.engine.Query(sctx, s.conn.user, s.conn.namespace, s.queryStr)
	if err != nil {
		return nil, err
	}
	n := int64(len(res.Rows))
	if len(res.Columns) == 1 && res.Columns[0] == "ROWCOUNT" && len(res.Rows) == 1 && len(res.Rows[0]) == 1 {
		if c, ok := res.Rows[0][0].(int64); ok {
			n = c
		}
	}
	return &Result{rowsAffected: n}, nil
}

func (s *Stmt) query(ctx context.Context) (driver.Rows, error) {
	sctx := s.conn.newContext(ctx)
	res, err := s.conn.engine.Query(sctx, s.conn.user, s.conn.namespace, s.queryStr)
	if err != nil {
		return nil, err
	}
	return &Rows{cols: res.Columns, rows: res.Rows}, nil
}
