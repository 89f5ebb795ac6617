package parser

import (
	"strconv"
	"strings"

	"github.com/dolthub/vitess/go/vt/sqlparser"
	"github.com/shopspring/decimal"

	"github.com/polypheny/polypheny-go/algebra"
	"github.com/polypheny/polypheny-go/catalog"
	"github.com/polypheny/polypheny-go/types"
)

// scopeEntry is one FROM-clause input available for unqualified column
// resolution: the table it came from, the alias it is exposed under (or
// the table's own name), and the offset of its first field within the
// combined row the validator is currently resolving against.
type scopeEntry struct {
	table     *catalog.Table
	alias     string
	fieldBase int
}

// Validator resolves a parsed statement against one Snapshot and lowers
// it into algebra (C2), implementing §4.4's name-resolution order
// (explicit qualification → current namespace → default namespace) and
// its AmbiguousColumn / NoMatchingOverload reporting.
type Validator struct {
	snapshot         *catalog.Snapshot
	currentNamespace string
	defaultNamespace string
}

// NewValidator builds a Validator. currentNamespace is the session's
// active namespace (set by `USE`); defaultNamespace is the server-wide
// fallback. Either may be empty.
func NewValidator(snapshot *catalog.Snapshot, currentNamespace, defaultNamespace string) *Validator {
	return &Validator{snapshot: snapshot, currentNamespace: currentNamespace, defaultNamespace: defaultNamespace}
}

// Validate resolves stmt and returns the equivalent algebra tree.
func (v *Validator) Validate(stmt sqlparser.Statement) (algebra.AlgNode, error) {
	switch st := stmt.(type) {
	case *sqlparser.Select:
		return v.validateSelect(st)
	case *sqlparser.Insert:
		return v.validateInsert(st)
	case *sqlparser.Update:
		return v.validateUpdate(st)
	case *sqlparser.Delete:
		return v.validateDelete(st)
	default:
		return nil, ErrUnsupported.New(sqlparser.String(stmt))
	}
}

// resolveTable implements §4.4's table name-resolution order: an
// explicit qualifier wins outright; otherwise try the current namespace,
// then fall back to the server default.
func (v *Validator) resolveTable(qualifier, name string) (*catalog.Table, error) {
	candidates := []string{qualifier}
	if qualifier == "" {
		candidates = []string{v.currentNamespace, v.defaultNamespace}
	}
	for _, nsName := range candidates {
		if nsName == "" {
			continue
		}
		ns, ok := v.snapshot.NamespaceByName(nsName)
		if !ok {
			continue
		}
		if t, ok := v.snapshot.TableByName(ns.ID, name); ok {
			return t, nil
		}
	}
	return nil, ErrUnknownTable.New(name, Position{}.String())
}

func tableRowType(t *catalog.Table) *types.Type {
	fields := make([]types.Field, len(t.Columns))
	for i, c := range t.Columns {
		fields[i] = types.Field{Name: c.Name, Type: c.Type, Nullable: c.Nullable}
	}
	return types.RecordOf(fields, false)
}

// buildFrom resolves a single-table or comma-joined FROM clause into a
// Scan (or chain of InnerJoin Scans) plus the scope used for column
// resolution. Only plain table references are supported; subqueries and
// explicit JOIN syntax are left for a later pass (ErrUnsupported).
func (v *Validator) buildFrom(exprs sqlparser.TableExprs) (algebra.AlgNode, []scopeEntry, error) {
	var node algebra.AlgNode
	var scope []scopeEntry
	fieldBase := 0
	for _, te := range exprs {
		ate, ok := te.(*sqlparser.AliasedTableExpr)
		if !ok {
			return nil, nil, ErrUnsupported.New(sqlparser.String(te))
		}
		tn, ok := ate.Expr.(sqlparser.TableName)
		if !ok {
			return nil, nil, ErrUnsupported.New(sqlparser.String(ate.Expr))
		}
		table, err := v.resolveTable(tn.Qualifier.String(), tn.Name.String())
		if err != nil {
			return nil, nil, err
		}
		alias := table.Name
		if !ate.As.IsEmpty() {
			alias = ate.As.String()
		}
		scan := algebra.NewScan(
			algebra.EntityRef{NamespaceID: table.NamespaceID, TableID: table.ID, Name: table.Name},
			tableRowType(table),
			algebra.TraitSet{Convention: algebra.Logical},
		)
		scope = append(scope, scopeEntry{table: table, alias: alias, fieldBase: fieldBase})
		fieldBase += len(table.Columns)
		if node == nil {
			node = scan
		} else {
			j, err := algebra.NewJoin(node, scan, algebra.InnerJoin, nil)
			if err != nil {
				return nil, nil, err
			}
			node = j
		}
	}
	if node == nil {
		return nil, nil, ErrUnsupported.New("FROM clause required")
	}
	return node, scope, nil
}

// resolveColumn implements §4.4's unqualified-column ambiguity rule:
// exactly one scope entry may expose the name, else ErrAmbiguousColumn.
func (v *Validator) resolveColumn(scope []scopeEntry, qualifier, name string) (*algebra.InputRef, error) {
	var matches []*algebra.InputRef
	for _, s := range scope {
		if qualifier != "" && qualifier != s.alias && qualifier != s.table.Name {
			continue
		}
		if col, ok := s.table.ColumnByName(name); ok {
			idx := s.fieldBase + indexOfColumn(s.table, col.ID)
			matches = append(matches, &algebra.InputRef{Index: idx, Typ: col.Type})
		}
	}
	switch len(matches) {
	case 0:
		return nil, ErrUnknownColumn.New(name, Position{}.String())
	case 1:
		return matches[0], nil
	default:
		return nil, ErrAmbiguousColumn.New(name, Position{}.String())
	}
}

func indexOfColumn(t *catalog.Table, columnID int64) int {
	for i, c := range t.Columns {
		if c.ID == columnID {
			return i
		}
	}
	return -1
}

// exprToRex lowers a vitess scalar expression into a RexNode, resolving
// column references against scope.
func (v *Validator) exprToRex(e sqlparser.Expr, scope []scopeEntry) (algebra.RexNode, error) {
	switch ex := e.(type) {
	case *sqlparser.ColName:
		return v.resolveColumn(scope, ex.Qualifier.Name.String(), ex.Name.String())
	case *sqlparser.SQLVal:
		return sqlValToLiteral(ex)
	case *sqlparser.AndExpr:
		return v.binaryCall("AND", ex.Left, ex.Right, scope)
	case *sqlparser.OrExpr:
		return v.binaryCall("OR", ex.Left, ex.Right, scope)
	case *sqlparser.ComparisonExpr:
		return v.comparisonToRex(ex, scope)
	case *sqlparser.ParenExpr:
		return v.exprToRex(ex.Expr, scope)
	default:
		return nil, ErrUnsupported.New(sqlparser.String(e))
	}
}

func (v *Validator) binaryCall(name string, left, right sqlparser.Expr, scope []scopeEntry) (algebra.RexNode, error) {
	l, err := v.exprToRex(left, scope)
	if err != nil {
		return nil, err
	}
	r, err := v.exprToRex(right, scope)
	if err != nil {
		return nil, err
	}
	boolType, _ := types.Of(types.Boolean, 0, 0, "", "")
	return &algebra.Call{Op: algebra.Operator{Name: name}, Args: []algebra.RexNode{l, r}, Typ: boolType}, nil
}

var comparisonOperators = map[string]string{
	sqlparser.EqualStr:        "=",
	sqlparser.NotEqualStr:     "<>",
	sqlparser.LessThanStr:     "<",
	sqlparser.GreaterThanStr:  ">",
	sqlparser.LessEqualStr:    "<=",
	sqlparser.GreaterEqualStr: ">=",
}

func (v *Validator) comparisonToRex(ex *sqlparser.ComparisonExpr, scope []scopeEntry) (algebra.RexNode, error) {
	name, ok := comparisonOperators[ex.Operator]
	if !ok {
		return nil, ErrUnsupported.New("comparison operator " + ex.Operator)
	}
	return v.binaryCall(name, ex.Left, ex.Right, scope)
}

// decimalPrecisionScale derives the minimal DECIMAL(p,s) that fits a
// literal's decimal-digit text (e.g. "-3.140" -> precision 4, scale 3),
// since vitess hands back only the raw token text, not its shape.
func decimalPrecisionScale(text string) (precision, scale int) {
	text = strings.TrimPrefix(text, "-")
	text = strings.TrimPrefix(text, "+")
	dot := strings.IndexByte(text, '.')
	if dot < 0 {
		return len(text), 0
	}
	digits := len(text) - 1
	return digits, len(text) - dot - 1
}

func sqlValToLiteral(v *sqlparser.SQLVal) (algebra.RexNode, error) {
	switch v.Type {
	case sqlparser.IntVal:
		n, err := strconv.ParseInt(string(v.Val), 10, 64)
		if err != nil {
			return nil, ErrValidation.New(Position{}.String(), err.Error())
		}
		t, _ := types.Of(types.BigInt, 0, 0, "", "")
		return &algebra.Literal{Value: n, Typ: t}, nil
	case sqlparser.FloatVal:
		// A SQL literal like 3.14 is a DECIMAL literal, not a DOUBLE one;
		// shopspring/decimal keeps it exact instead of rounding through
		// float64 the way ParseFloat would.
		d, err := decimal.NewFromString(string(v.Val))
		if err != nil {
			return nil, ErrValidation.New(Position{}.String(), err.Error())
		}
		precision, scale := decimalPrecisionScale(string(v.Val))
		t, err := types.Of(types.Decimal, precision, scale, "", "")
		if err != nil {
			return nil, ErrValidation.New(Position{}.String(), err.Error())
		}
		return &algebra.Literal{Value: d, Typ: t}, nil
	case sqlparser.StrVal:
		t, _ := types.Of(types.VarChar, 0, 0, "", "")
		return &algebra.Literal{Value: string(v.Val), Typ: t}, nil
	default:
		return nil, ErrUnsupported.New("literal kind " + strconv.Itoa(int(v.Type)))
	}
}

func (v *Validator) validateSelect(st *sqlparser.Select) (algebra.AlgNode, error) {
	input, scope, err := v.buildFrom(st.From)
	if err != nil {
		return nil, err
	}

	if st.Where != nil {
		cond, err := v.exprToRex(st.Where.Expr, scope)
		if err != nil {
			return nil, err
		}
		input = algebra.NewFilter(input, cond, input.Traits())
	}

	exprs, names, err := v.selectList(st.SelectExprs, scope, input)
	if err != nil {
		return nil, err
	}
	project := algebra.NewProject(input, exprs, names)
	var result algebra.AlgNode = project

	if len(st.OrderBy) > 0 {
		collation, err := orderByCollation(st.OrderBy, names)
		if err != nil {
			return nil, err
		}
		result = algebra.NewSort(result, collation, nil, nil)
	}

	if st.Limit != nil {
		offset, limit, err := limitValues(st.Limit)
		if err != nil {
			return nil, err
		}
		if s, ok := result.(*algebra.Sort); ok {
			s.Offset, s.Limit = offset, limit
		} else {
			result = algebra.NewSort(result, nil, offset, limit)
		}
	}

	return result, nil
}

func (v *Validator) selectList(exprs sqlparser.SelectExprs, scope []scopeEntry, input algebra.AlgNode) ([]algebra.RexNode, []string, error) {
	var rex []algebra.RexNode
	var names []string
	for _, se := range exprs {
		switch col := se.(type) {
		case *sqlparser.StarExpr:
			for i, f := range input.RowType().Fields {
				rex = append(rex, &algebra.InputRef{Index: i, Typ: f.Type})
				names = append(names, f.Name)
			}
		case *sqlparser.AliasedExpr:
			r, err := v.exprToRex(col.Expr, scope)
			if err != nil {
				return nil, nil, err
			}
			name := col.As.String()
			if name == "" {
				name = strings.TrimSpace(sqlparser.String(col.Expr))
			}
			rex = append(rex, r)
			names = append(names, name)
		default:
			return nil, nil, ErrUnsupported.New(sqlparser.String(se))
		}
	}
	return rex, names, nil
}

func orderByCollation(orderBy sqlparser.OrderBy, projectedNames []string) (algebra.Collation, error) {
	var collation algebra.Collation
	for _, ord := range orderBy {
		colName, ok := ord.Expr.(*sqlparser.ColName)
		if !ok {
			return nil, ErrUnsupported.New(sqlparser.String(ord.Expr))
		}
		idx := -1
		for i, n := range projectedNames {
			if n == colName.Name.String() {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, ErrUnknownColumn.New(colName.Name.String(), Position{}.String())
		}
		dir := algebra.Ascending
		if ord.Direction == sqlparser.DescScr {
			dir = algebra.Descending
		}
		collation = append(collation, algebra.FieldCollation{FieldIndex: idx, Direction: dir})
	}
	return collation, nil
}

func limitValues(l *sqlparser.Limit) (*int, *int, error) {
	var offset, limit *int
	if l.Offset != nil {
		n, err := limitInt(l.Offset)
		if err != nil {
			return nil, nil, err
		}
		offset = &n
	}
	if l.Rowcount != nil {
		n, err := limitInt(l.Rowcount)
		if err != nil {
			return nil, nil, err
		}
		limit = &n
	}
	return offset, limit, nil
}

func limitInt(e sqlparser.Expr) (int, error) {
	v, ok := e.(*sqlparser.SQLVal)
	if !ok || v.Type != sqlparser.IntVal {
		return 0, ErrUnsupported.New("non-constant LIMIT/OFFSET")
	}
	n, err := strconv.Atoi(string(v.Val))
	if err != nil {
		return 0, ErrValidation.New(Position{}.String(), err.Error())
	}
	return n, nil
}

func (v *Validator) validateInsert(st *sqlparser.Insert) (algebra.AlgNode, error) {
	table, err := v.resolveTable(st.Table.Qualifier.String(), st.Table.Name.String())
	if err != nil {
		return nil, err
	}
	values, ok := st.Rows.(sqlparser.Values)
	if !ok {
		return nil, ErrUnsupported.New("INSERT ... SELECT")
	}
	rowType := tableRowType(table)
	rows := make([][]algebra.RexNode, len(values))
	for i, tuple := range values {
		row := make([]algebra.RexNode, len(tuple))
		for j, e := range tuple {
			lit, ok := e.(*sqlparser.SQLVal)
			if !ok {
				return nil, ErrUnsupported.New("non-constant INSERT value")
			}
			rex, err := sqlValToLiteral(lit)
			if err != nil {
				return nil, err
			}
			row[j] = rex
		}
		rows[i] = row
	}
	valuesNode := algebra.NewValues(rows, rowType, algebra.TraitSet{Convention: algebra.Logical})
	entity := algebra.EntityRef{NamespaceID: table.NamespaceID, TableID: table.ID, Name: table.Name}
	return algebra.NewTableModify(valuesNode, entity, algebra.Insert, nil, nil), nil
}

func (v *Validator) validateUpdate(st *sqlparser.Update) (algebra.AlgNode, error) {
	input, scope, err := v.buildFrom(st.TableExprs)
	if err != nil {
		return nil, err
	}
	if st.Where != nil {
		cond, err := v.exprToRex(st.Where.Expr, scope)
		if err != nil {
			return nil, err
		}
		input = algebra.NewFilter(input, cond, input.Traits())
	}
	columns := make([]string, len(st.Exprs))
	sourceExprs := make([]algebra.RexNode, len(st.Exprs))
	for i, ue := range st.Exprs {
		columns[i] = ue.Name.Name.String()
		rex, err := v.exprToRex(ue.Expr, scope)
		if err != nil {
			return nil, err
		}
		sourceExprs[i] = rex
	}
	entity := algebra.EntityRef{NamespaceID: scope[0].table.NamespaceID, TableID: scope[0].table.ID, Name: scope[0].table.Name}
	return algebra.NewTableModify(input, entity, algebra.Update, columns, sourceExprs), nil
}

func (v *Validator) validateDelete(st *sqlparser.Delete) (algebra.AlgNode, error) {
	input, scope, err := v.buildFrom(st.TableExprs)
	if err != nil {
		return nil, err
	}
	if st.Where != nil {
		cond, err := v.exprToRex(st.Where.Expr, scope)
		if err != nil {
			return nil, err
		}
		input = algebra.NewFilter(input, cond, input.Traits())
	}
	entity := algebra.EntityRef{NamespaceID: scope[0].table.NamespaceID, TableID: scope[0].table.ID, Name: scope[0].table.Name}
	return algebra.NewTableModify(input, entity, algebra.Delete, nil, nil), nil
}
