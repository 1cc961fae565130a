// Package query filters indexed records by field conditions.
package query

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/ssargent/dblog/pkg/chainindex"
	"github.com/ssargent/dblog/pkg/ledger"
)

// ctxCheckInterval is how many candidates are filtered between
// cancellation checks.
const ctxCheckInterval = 256

// Source supplies candidate records.
type Source interface {
	All() []*chainindex.Entry
	ByOwner(owner ledger.Pubkey) []*chainindex.Entry
}

// RecordQueryEngine evaluates conjunctions of field conditions against a
// chain index.
type RecordQueryEngine struct {
	source    Source
	extractor FieldExtractor
}

var _ QueryEngine = (*RecordQueryEngine)(nil)

// NewRecordQueryEngine creates a new query engine
func NewRecordQueryEngine(source Source) *RecordQueryEngine {
	return &RecordQueryEngine{
		source:    source,
		extractor: &RecordFieldExtractor{},
	}
}

type compiled struct {
	query FieldQuery
	want  interface{}
}

// ExecuteQuery returns the records matching every query. When one of the
// conditions is owner equality the owner view is scanned and results are
// oldest first; otherwise every record is scanned in address order. No
// conditions matches everything.
func (qe *RecordQueryEngine) ExecuteQuery(ctx context.Context, queries ...FieldQuery) (QueryIterator, error) {
	conds := make([]compiled, 0, len(queries))
	var owner *ledger.Pubkey
	for _, q := range queries {
		if err := q.Validate(); err != nil {
			return nil, err
		}
		want, err := q.normalize(fieldKinds[q.Field])
		if err != nil {
			return nil, err
		}
		if q.Field == FieldOwner && owner == nil {
			key := ledger.MustParsePubkey(want.(string))
			owner = &key
		}
		conds = append(conds, compiled{query: q, want: want})
	}

	var candidates []*chainindex.Entry
	if owner != nil {
		candidates = qe.source.ByOwner(*owner)
	} else {
		candidates = qe.source.All()
	}

	results := make([]*chainindex.Entry, 0, len(candidates))
	for i, e := range candidates {
		if i%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		ok, err := qe.match(e, conds)
		if err != nil {
			return nil, err
		}
		if ok {
			results = append(results, e)
		}
	}

	return &simpleIterator{results: results}, nil
}

// ExecuteRangeQuery executes a range query between two field conditions
func (qe *RecordQueryEngine) ExecuteRangeQuery(ctx context.Context, startQuery, endQuery FieldQuery) (QueryIterator, error) {
	if err := startQuery.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid start query")
	}
	if err := endQuery.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid end query")
	}

	// Ensure both queries are for the same field
	if startQuery.Field != endQuery.Field {
		return nil, errors.Wrapf(ErrInvalidQuery, "range query fields must match: %s != %s", startQuery.Field, endQuery.Field)
	}
	if startQuery.Operator != ">" && startQuery.Operator != ">=" {
		return nil, errors.Wrapf(ErrInvalidQuery, "range start must use > or >=, got %s", startQuery.Operator)
	}
	if endQuery.Operator != "<" && endQuery.Operator != "<=" {
		return nil, errors.Wrapf(ErrInvalidQuery, "range end must use < or <=, got %s", endQuery.Operator)
	}

	return qe.ExecuteQuery(ctx, startQuery, endQuery)
}

func (qe *RecordQueryEngine) match(e *chainindex.Entry, conds []compiled) (bool, error) {
	for i := range conds {
		got, err := qe.extractor.Extract(e.Record, conds[i].query.Field)
		if err != nil {
			return false, err
		}
		if !conds[i].query.matches(got, conds[i].want) {
			return false, nil
		}
	}
	return true, nil
}

// Collect drains it.
func Collect(it QueryIterator) []*chainindex.Entry {
	defer it.Close()
	var out []*chainindex.Entry
	for it.Next() {
		out = append(out, it.Result())
	}
	return out
}

// simpleIterator implements QueryIterator for basic result streaming
type simpleIterator struct {
	results []*chainindex.Entry
	index   int
}

func (it *simpleIterator) Next() bool {
	if it.index < len(it.results) {
		it.index++
		return true
	}
	return false
}

func (it *simpleIterator) Result() *chainindex.Entry {
	if it.index > 0 && it.index <= len(it.results) {
		return it.results[it.index-1]
	}
	return nil
}

func (it *simpleIterator) Close() error {
	it.results = nil
	return nil
}
