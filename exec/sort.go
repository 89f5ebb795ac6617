package exec

import (
	"sort"

	"github.com/polypheny/polypheny-go/algebra"
	"github.com/polypheny/polypheny-go/session"
)

// sortIter materializes its input, sorts it by Traits().Collation, then
// applies Offset/Limit (§4.2 Sort doubles as ORDER BY/OFFSET/FETCH).
type sortIter struct {
	input     Iterator
	collation algebra.Collation
	offset    *int
	limit     *int

	rows []Row
	pos  int
}

func (s *sortIter) Next(ctx *session.Context) (Row, bool, error) {
	if err := ctx.CheckSuspension(); err != nil {
		return nil, false, err
	}
	if s.rows == nil {
		if err := s.compute(ctx); err != nil {
			return nil, false, err
		}
	}
	if s.pos >= len(s.rows) {
		return nil, false, nil
	}
	row := s.rows[s.pos]
	s.pos++
	return row, true, nil
}

func (s *sortIter) compute(ctx *session.Context) error {
	rows, err := Drain(ctx, s.input)
	if err != nil {
		return err
	}
	sort.SliceStable(rows, func(i, j int) bool {
		for _, fc := range s.collation {
			cmp, cerr := compare(rows[i][fc.FieldIndex], rows[j][fc.FieldIndex])
			if cerr != nil {
				continue // incomparable values sort as equal rather than erroring mid-sort
			}
			if cmp == 0 {
				continue
			}
			if fc.Direction == algebra.Descending {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})

	start := 0
	if s.offset != nil && *s.offset > 0 {
		start = *s.offset
	}
	if start > len(rows) {
		start = len(rows)
	}
	end := len(rows)
	if s.limit != nil {
		if want := start + *s.limit; want < end {
			end = want
		}
	}
	s.rows = append([]Row{}, rows[start:end]...)
	return nil
}

func (s *sortIter) Close(ctx *session.Context) error { return s.input.Close(ctx) }

func (e *Executor) compileSort(ctx *session.Context, n *algebra.Sort) (Iterator, error) {
	in, err := e.compileChild(ctx, n.Inputs()[0])
	if err != nil {
		return nil, err
	}
	return &sortIter{input: in, collation: n.Traits().Collation, offset: n.Offset, limit: n.Limit}, nil
}
