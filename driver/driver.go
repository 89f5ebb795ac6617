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

// Package driver exposes an Engine as a database/sql-compatible driver
// (§6 "Wire protocol" surfaces, SUPPLEMENTED FEATURES), mirroring the
// teacher's own driver/ package split from engine.go: the Driver/
// Connector/Conn/Stmt/Rows/Result types keep the teacher's names and
// shapes, generalized from a *sqle.Engine + sql.Catalog pair to this
// module's own *polypheny.Engine.
package driver

import (
	"context"
	gosql "database/sql"
	"database/sql/driver"
	"net/url"
	"sync/atomic"

	polypheny "github.com/polypheny/polypheny-go"
)

// Provider resolves a DSN to a user and default namespace, the
// generalization of the teacher's own Provider (which resolved a DSN to
// a server name and sql.Catalog).
type Provider interface {
	Resolve(dsn string) (user, namespace string, err error)
}

// Driver exposes an Engine as a stdlib SQL driver.
type Driver struct {
	engine   *polypheny.Engine
	provider Provider

	nextSessionID uint32 // assigns each Conn's session.Context a unique id
}

// New returns a driver backed by engine, resolving DSNs with provider.
// If provider is nil, DefaultProvider is used.
func New(engine *polypheny.Engine, provider Provider) *Driver {
	if provider == nil {
		provider = DefaultProvider{}
	}
	return &Driver{engine: engine, provider: provider}
}

// Open builds a Driver and returns a *gosql.DB over it via gosql.OpenDB;
// name is not used, and nothing is registered with database/sql.
// Embedders that already hold a *Driver can skip this and call
// OpenConnector/Connect directly.
func Open(name string, engine *polypheny.Engine, provider Provider) *gosql.DB {
	d := New(engine, provider)
	return gosql.OpenDB(&connectorAdapter{d: d})
}

// connectorAdapter lets a *Driver satisfy driver.Connector for
// gosql.OpenDB without registering a name in the global driver registry.
type connectorAdapter struct{ d *Driver }

func (c *connectorAdapter) Connect(ctx context.Context) (driver.Conn, error) {
	return c.d.Connect(ctx, "")
}
func (c *connectorAdapter) Driver() driver.Driver { return c.d }

// DefaultProvider resolves an empty DSN to an anonymous user and no
// namespace (so the engine's configured DefaultNamespace applies);
// otherwise it parses dsn as a URL, taking the user from its userinfo and
// the namespace from its ?namespace= query parameter.
type DefaultProvider struct{}

func (DefaultProvider) Resolve(dsn string) (user, namespace string, err error) {
	if dsn == "" {
		return "", "", nil
	}
	u, err := url.Parse(dsn)
	if err != nil {
		return "", "", err
	}
	user = u.User.Username()
	namespace = u.Query().Get("namespace")
	return user, namespace, nil
}

// Open returns a new connection to the database.
func (d *Driver) Open(dsn string) (driver.Conn, error) {
	return d.Connect(context.Background(), dsn)
}

// OpenConnector returns a new connector for dsn without calling the
// provider.
func (d *Driver) OpenConnector(dsn string) (driver.Connector, error) {
	return &Connector{driver: d, dsn: dsn}, nil
}

// Connect resolves dsn and opens a Conn directly, without going through
// a Connector (used by Open and the gosql.OpenDB adapter).
func (d *Driver) Connect(ctx context.Context, dsn string) (driver.Conn, error) {
	user, namespace, err := d.provider.Resolve(dsn)
	if err != nil {
		return nil, err
	}
	id := atomic.AddUint32(&d.nextSessionID, 1)
	return &Conn{
		engine:    d.engine,
		sessionID: id,
		user:      user,
		namespace: namespace,
	}, nil
}

// Connector represents a driver in a fixed configuration and can create
// any number of equivalent Conns for use by multiple goroutines.
type Connector struct {
	driver *Driver
	dsn    string
}

// Driver returns the underlying driver.
func (c *Connector) Driver() driver.Driver { return c.driver }

// Connect returns a connection to the database.
func (c *Connector) Connect(ctx context.Context) (driver.Conn, error) {
	return c.driver.Connect(ctx, c.dsn)
}
