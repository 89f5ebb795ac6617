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
	"database/sql/driver"
	"io"

	"github.com/polypheny/polypheny-go/exec"
)

// Rows is an iterator over an already-materialized result set. The
// executor (C7) fully drains its iterator before Engine.Query returns
// (see exec.Executor.Run), so Rows here just walks the resulting slice
// rather than pulling from a live exec.Iterator the way the teacher's
// Rows pulled from a live sql.RowIter.
type Rows struct {
	cols []string
	rows []exec.Row
	pos  int
}

// Columns returns the names of the columns.
func (r *Rows) Columns() []string {
	return r.cols
}

// Close releases the result set; there is nothing to release.
func (r *Rows) Close() error {
	r.rows = nil
	return nil
}

// Next populates dest with the next row's values.
func (r *Rows) Next(dest []driver.Value) error {
	if r.pos >= len(r.rows) {
		return io.EOF
	}
	row := r.rows[r.pos]
	r.pos++
	for i, v := range row {
		dest[i] = v
	}
	return nil
}
