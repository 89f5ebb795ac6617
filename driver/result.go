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

// Result is the result of a statement execution that does not return
// rows. The executor (C7) does not report a generated auto-increment id
// back to the caller today (exec.Row is opaque), so LastInsertId always
// returns 0; RowsAffected is the number of rows the modify operator
// reported touching.
type Result struct {
	rowsAffected int64
}

// LastInsertId always returns 0, zero. See the type doc for why.
func (r *Result) LastInsertId() (int64, error) {
	return 0, nil
}

// RowsAffected returns the number of rows affected by the statement.
func (r *Result) RowsAffected() (int64, error) {
	return r.rowsAffected, nil
}
