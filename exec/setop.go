package exec

import (
	"fmt"

	"github.com/polypheny/polypheny-go/algebra"
	"github.com/polypheny/polypheny-go/session"
)

// setOpIter materializes every input (Union/Intersect/Minus all need the
// full operand set to de-duplicate or count occurrences) and streams the
// combined result.
type setOpIter struct {
	kind algebra.SetOpKind
	all  bool
	rows [][]Row

	out []Row
	pos int
}

func (s *setOpIter) Next(ctx *session.Context) (Row, bool, error) {
	if err := ctx.CheckSuspension(); err != nil {
		return nil, false, err
	}
	if s.out == nil {
		s.compute()
	}
	if s.pos >= len(s.out) {
		return nil, false, nil
	}
	row := s.out[s.pos]
	s.pos++
	return row, true, nil
}

func (s *setOpIter) compute() {
	counts := make([]map[string]int, len(s.rows))
	rep := map[string]Row{}
	for i, operand := range s.rows {
		counts[i] = map[string]int{}
		for _, row := range operand {
			k := rowKey(row)
			counts[i][k]++
			if _, ok := rep[k]; !ok {
				rep[k] = row
			}
		}
	}

	var result []Row
	switch s.kind {
	case algebra.SetUnion:
		total := map[string]int{}
		var order []string
		for _, c := range counts {
			for k, n := range c {
				if _, seen := total[k]; !seen {
					order = append(order, k)
				}
				total[k] += n
			}
		}
		for _, k := range order {
			n := 1
			if s.all {
				n = total[k]
			}
			for i := 0; i < n; i++ {
				result = append(result, rep[k])
			}
		}
	case algebra.SetIntersect:
		for k, n0 := range counts[0] {
			min := n0
			in := true
			for _, c := range counts[1:] {
				n, ok := c[k]
				if !ok {
					in = false
					break
				}
				if n < min {
					min = n
				}
			}
			if !in {
				continue
			}
			n := 1
			if s.all {
				n = min
			}
			for i := 0; i < n; i++ {
				result = append(result, rep[k])
			}
		}
	case algebra.SetMinus:
		for k, n0 := range counts[0] {
			remove := 0
			for _, c := range counts[1:] {
				remove += c[k]
			}
			n := n0 - remove
			if n <= 0 {
				continue
			}
			if !s.all {
				n = 1
			}
			for i := 0; i < n; i++ {
				result = append(result, rep[k])
			}
		}
	}
	s.out = result
}

func rowKey(row Row) string {
	return fmt.Sprintf("%v", []interface{}(row))
}

func (s *setOpIter) Close(ctx *session.Context) error { return nil }

func (e *Executor) compileSetOp(ctx *session.Context, n *algebra.SetOp) (Iterator, error) {
	rows := make([][]Row, len(n.Inputs()))
	for i, in := range n.Inputs() {
		it, err := e.compileChild(ctx, in)
		if err != nil {
			return nil, err
		}
		r, err := Drain(ctx, it)
		if err != nil {
			return nil, err
		}
		if cerr := it.Close(ctx); cerr != nil {
			return nil, cerr
		}
		rows[i] = r
	}
	return &setOpIter{kind: n.Kind, all: n.All, rows: rows}, nil
}
