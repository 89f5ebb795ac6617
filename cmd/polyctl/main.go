// Command polyctl is a minimal CLI for driving the engine manually
// (SPEC_FULL.md AMBIENT STACK: "A small cmd/polyctl command, built with
// github.com/spf13/cobra ... drives the engine for manual testing:
// polyctl query <sql>, polyctl catalog dump"). Grounded on
// Pieczasz-smf's main.go, the pack's own cobra-based CLI entry point.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	polypheny "github.com/polypheny/polypheny-go"
	"github.com/polypheny/polypheny-go/adapter"
	"github.com/polypheny/polypheny-go/adapter/memadapter"
	"github.com/polypheny/polypheny-go/catalog"
	"github.com/polypheny/polypheny-go/session"
	"github.com/polypheny/polypheny-go/types"
)

// schemaFile is the TOML bootstrap format polyctl reads to stand up a
// throwaway catalog + single in-memory adapter for manual testing, since
// the SQL surface (C4) does not implement CREATE TABLE/DDL statements
// (§4.4 scope: the validator only lowers SELECT/INSERT/UPDATE/DELETE).
type schemaFile struct {
	Namespace []struct {
		Name string
	}
	Table []struct {
		Namespace string
		Name      string
		Column    []struct {
			Name      string
			Type      string
			Precision int
			Scale     int
			Nullable  bool
		}
	}
	Placement []struct {
		Table   string
		Adapter int64
	}
}

func loadSchema(path string) (*catalog.Catalog, *adapter.Registry, error) {
	var sf schemaFile
	if _, err := toml.DecodeFile(path, &sf); err != nil {
		return nil, nil, fmt.Errorf("decode schema %s: %w", path, err)
	}

	cat := catalog.New(nil)
	registry := adapter.NewRegistry()
	ctx := session.NewEmptyContext()
	nsByName := map[string]int64{}

	for _, n := range sf.Namespace {
		ns, err := cat.CreateNamespace(n.Name, catalog.Relational, true)
		if err != nil {
			return nil, nil, err
		}
		nsByName[n.Name] = ns.ID
	}

	tableByName := map[string]*catalog.Table{}
	for _, tbl := range sf.Table {
		nsID, ok := nsByName[tbl.Namespace]
		if !ok {
			return nil, nil, fmt.Errorf("table %s: unknown namespace %s", tbl.Name, tbl.Namespace)
		}
		cols := make([]*catalog.Column, len(tbl.Column))
		for i, c := range tbl.Column {
			kind, err := polyTypeNamed(c.Type)
			if err != nil {
				return nil, nil, err
			}
			ty, err := types.Of(kind, c.Precision, c.Scale, "", "")
			if err != nil {
				return nil, nil, err
			}
			cols[i] = &catalog.Column{Name: c.Name, Type: ty, Nullable: c.Nullable}
		}
		t, err := cat.CreateTable(nsID, tbl.Name, cols)
		if err != nil {
			return nil, nil, err
		}
		tableByName[tbl.Name] = t
	}

	for _, p := range sf.Placement {
		t, ok := tableByName[p.Table]
		if !ok {
			return nil, nil, fmt.Errorf("placement: unknown table %s", p.Table)
		}
		if _, ok := registry.Get(p.Adapter); !ok {
			registry.Register(memadapter.New(p.Adapter))
		}
		allCols := make([]int64, len(t.Columns))
		for i, c := range t.Columns {
			allCols[i] = c.ID
		}
		alloc, err := cat.AddPlacement(t.ID, p.Adapter, allCols)
		if err != nil {
			return nil, nil, err
		}
		a, _ := registry.Get(p.Adapter)
		for _, allocTable := range cat.Current().AllocationTables(alloc.ID) {
			if err := a.CreateTable(ctx, allocTable, t.Columns); err != nil {
				return nil, nil, err
			}
		}
	}

	return cat, registry, nil
}

func polyTypeNamed(name string) (types.PolyType, error) {
	for _, k := range []types.PolyType{
		types.Boolean, types.TinyInt, types.SmallInt, types.Integer, types.BigInt,
		types.Decimal, types.Float, types.Double, types.Char, types.VarChar,
		types.Date, types.Time, types.Timestamp,
	} {
		if k.String() == strings.ToUpper(name) {
			return k, nil
		}
	}
	return types.Invalid, fmt.Errorf("unknown type name %q", name)
}

func main() {
	var schemaPath string

	root := &cobra.Command{
		Use:   "polyctl",
		Short: "Manual test driver for the polystore query engine",
	}
	root.PersistentFlags().StringVar(&schemaPath, "schema", "", "TOML schema file describing namespaces/tables/placements")

	queryCmd := &cobra.Command{
		Use:   "query <sql>",
		Short: "Run a single SQL statement against a throwaway engine",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if schemaPath == "" {
				return fmt.Errorf("--schema is required")
			}
			cat, registry, err := loadSchema(schemaPath)
			if err != nil {
				return err
			}
			e := polypheny.NewEngine(polypheny.Config{}, cat, registry, nil, nil)
			defer e.Close()

			ns := ""
			if len(cat.Current().Namespaces()) > 0 {
				ns = cat.Current().Namespaces()[0].Name
			}
			res, err := e.Query(session.NewEmptyContext(), "polyctl", ns, args[0])
			if err != nil {
				return err
			}
			for _, row := range res.Rows {
				fmt.Println(row)
			}
			return nil
		},
	}

	dumpCmd := &cobra.Command{
		Use:   "dump",
		Short: "Print every namespace and table in the loaded schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			if schemaPath == "" {
				return fmt.Errorf("--schema is required")
			}
			cat, _, err := loadSchema(schemaPath)
			if err != nil {
				return err
			}
			snap := cat.Current()
			for _, ns := range snap.Namespaces() {
				fmt.Printf("namespace %s (id=%d)\n", ns.Name, ns.ID)
				for _, t := range snap.LogicalRel(ns.ID) {
					fmt.Printf("  table %s (id=%d)\n", t.Name, t.ID)
					for _, c := range t.Columns {
						fmt.Printf("    column %s %s\n", c.Name, c.Type.Kind)
					}
				}
			}
			return nil
		},
	}

	catalogCmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect the catalog",
	}
	catalogCmd.AddCommand(dumpCmd)

	root.AddCommand(queryCmd, catalogCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
