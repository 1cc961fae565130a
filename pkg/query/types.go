package query

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/ssargent/dblog/pkg/chainindex"
	"github.com/ssargent/dblog/pkg/codec"
	"github.com/ssargent/dblog/pkg/ledger"
)

// Record fields a FieldQuery can name.
const (
	FieldOwner       = "owner"
	FieldPredecessor = "predecessor"
	FieldNonce       = "nonce"
	FieldTitle       = "title"
	FieldContentURI  = "content_uri"
	FieldChainID     = "chain_id"
	FieldEncrypted   = "encrypted"
	FieldCreatedTime = "created_time"
)

// ErrInvalidQuery is the kind of every query validation failure.
var ErrInvalidQuery = errors.New("invalid query")

type fieldKind int

const (
	kindString fieldKind = iota
	kindKey
	kindBool
	kindInt
)

var fieldKinds = map[string]fieldKind{
	FieldOwner:       kindKey,
	FieldPredecessor: kindKey,
	FieldNonce:       kindString,
	FieldTitle:       kindString,
	FieldContentURI:  kindString,
	FieldChainID:     kindString,
	FieldEncrypted:   kindBool,
	FieldCreatedTime: kindInt,
}

// FieldExtractor defines how to extract field values from a record
type FieldExtractor interface {
	Extract(rec *codec.Record, field string) (interface{}, error)
}

// RecordFieldExtractor reads the named fields of a record. Absent optional
// fields extract as nil.
type RecordFieldExtractor struct{}

// Extract implements FieldExtractor
func (e *RecordFieldExtractor) Extract(rec *codec.Record, field string) (interface{}, error) {
	switch field {
	case FieldOwner:
		return rec.Owner.String(), nil
	case FieldPredecessor:
		if rec.Predecessor == nil {
			return nil, nil
		}
		return rec.Predecessor.String(), nil
	case FieldNonce:
		return rec.Nonce, nil
	case FieldTitle:
		return rec.Title, nil
	case FieldContentURI:
		return rec.ContentURI, nil
	case FieldChainID:
		if rec.ChainID == nil {
			return nil, nil
		}
		return *rec.ChainID, nil
	case FieldEncrypted:
		return rec.Encrypted, nil
	case FieldCreatedTime:
		return rec.CreatedTime, nil
	}
	return nil, errors.Wrapf(ErrInvalidQuery, "unknown field %q", field)
}

// FieldQuery represents a single field-based query condition
type FieldQuery struct {
	Field    string      // Field name to query (e.g., "owner", "created_time")
	Operator string      // Comparison operator: "=", ">", "<", ">=", "<="
	Value    interface{} // Value to compare against
}

// ParseFieldQuery parses a condition written as field, operator and value
// with no separators, e.g. "created_time>=1700000000".
func ParseFieldQuery(s string) (FieldQuery, error) {
	i := strings.IndexAny(s, "=<>")
	if i <= 0 {
		return FieldQuery{}, errors.Wrapf(ErrInvalidQuery, "%q: expected field, operator and value", s)
	}

	op := s[i : i+1]
	if strings.HasPrefix(s[i:], ">=") || strings.HasPrefix(s[i:], "<=") {
		op = s[i : i+2]
	}
	q := FieldQuery{Field: s[:i], Operator: op, Value: s[i+len(op):]}
	if err := q.Validate(); err != nil {
		return FieldQuery{}, err
	}
	return q, nil
}

// Validate checks if the query is properly formed
func (q *FieldQuery) Validate() error {
	if q.Field == "" {
		return errors.Wrap(ErrInvalidQuery, "field name cannot be empty")
	}
	if q.Operator == "" {
		return errors.Wrap(ErrInvalidQuery, "operator cannot be empty")
	}
	validOps := map[string]bool{
		"=": true, ">": true, "<": true, ">=": true, "<=": true,
	}
	if !validOps[q.Operator] {
		return errors.Wrapf(ErrInvalidQuery, "invalid operator: %s", q.Operator)
	}

	kind, ok := fieldKinds[q.Field]
	if !ok {
		return errors.Wrapf(ErrInvalidQuery, "unknown field %q", q.Field)
	}
	if q.Operator != "=" && (kind == kindBool || kind == kindKey) {
		return errors.Wrapf(ErrInvalidQuery, "field %s only supports =", q.Field)
	}
	_, err := q.normalize(kind)
	return err
}

// normalize converts Value to the representation the extractor returns
// for the field.
func (q *FieldQuery) normalize(kind fieldKind) (interface{}, error) {
	switch kind {
	case kindKey:
		var s string
		switch v := q.Value.(type) {
		case ledger.Pubkey:
			return v.String(), nil
		case string:
			s = v
		default:
			return nil, errors.Wrapf(ErrInvalidQuery, "%s: unsupported value %T", q.Field, q.Value)
		}
		key, err := ledger.ParsePubkey(s)
		if err != nil {
			return nil, errors.Wrapf(ErrInvalidQuery, "%s: %v", q.Field, err)
		}
		return key.String(), nil

	case kindBool:
		switch v := q.Value.(type) {
		case bool:
			return v, nil
		case string:
			b, err := strconv.ParseBool(v)
			if err != nil {
				return nil, errors.Wrapf(ErrInvalidQuery, "%s: %v", q.Field, err)
			}
			return b, nil
		}

	case kindInt:
		switch v := q.Value.(type) {
		case int:
			return int64(v), nil
		case int64:
			return v, nil
		case float64:
			if v != float64(int64(v)) {
				return nil, errors.Wrapf(ErrInvalidQuery, "%s: %v is not a whole number", q.Field, v)
			}
			return int64(v), nil
		case string:
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return nil, errors.Wrapf(ErrInvalidQuery, "%s: %v", q.Field, err)
			}
			return n, nil
		}

	case kindString:
		switch v := q.Value.(type) {
		case string:
			return v, nil
		case fmt.Stringer:
			return v.String(), nil
		}
	}
	return nil, errors.Wrapf(ErrInvalidQuery, "%s: unsupported value %T", q.Field, q.Value)
}

// matches reports whether got, as returned by a FieldExtractor, satisfies
// the query. want must already be normalized. Absent fields never match.
func (q *FieldQuery) matches(got, want interface{}) bool {
	var c int
	switch g := got.(type) {
	case string:
		c = strings.Compare(g, want.(string))
	case int64:
		w := want.(int64)
		switch {
		case g < w:
			c = -1
		case g > w:
			c = 1
		}
	case bool:
		return q.Operator == "=" && g == want.(bool)
	default:
		return false
	}

	switch q.Operator {
	case "=":
		return c == 0
	case ">":
		return c > 0
	case ">=":
		return c >= 0
	case "<":
		return c < 0
	case "<=":
		return c <= 0
	}
	return false
}

// QueryIterator provides streaming access to query results
type QueryIterator interface {
	Next() bool
	Result() *chainindex.Entry
	Close() error
}

// QueryEngine handles query execution
type QueryEngine interface {
	ExecuteQuery(ctx context.Context, queries ...FieldQuery) (QueryIterator, error)
	ExecuteRangeQuery(ctx context.Context, startQuery, endQuery FieldQuery) (QueryIterator, error)
}
