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

	polypheny "github.com/polypheny/polypheny-go"
	"github.com/polypheny/polypheny-go/session"
)

// Conn is a connection to an Engine.
type Conn struct {
	engine    *polypheny.Engine
	sessionID uint32
	user      string
	namespace string
}

// Prepare returns a statement wrapping query; query text is parsed and
// validated lazily on first Exec/Query, since Engine.Query's prepared
// cache (PreparedDataCache) already does the work Prepare would
// otherwise duplicate.
func (c *Conn) Prepare(query string) (driver.Stmt, error) {
	return &Stmt{conn: c, queryStr: query}, nil
}

// Close does nothing; the Engine owns its own resources independent of
// any one connection.
func (c *Conn) Close() error {
	return nil
}

// Begin returns a fake transaction: every Engine.Query call already
// runs inside its own autocommit transaction (C8), so multi-statement
// driver-level transactions are not yet supported (Non-goal).
func (c *Conn) Begin() (driver.Tx, error) {
	return fakeTransaction{}, nil
}

func (c *Conn) newContext(ctx context.Context) *session.Context {
	return session.NewContext(ctx, c.sessionID, c.user)
}

type fakeTransaction struct{}

func (fakeTransaction) Commit() error   { return nil }
func (fakeTransaction) Rollback() error { return nil }
