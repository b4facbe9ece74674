package sql

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidEagerLimit is matched by every EagerLimitError.
var ErrInvalidEagerLimit = errors.New("dialect/sql: invalid eager limit")

// ErrNoGrammar is reported when a selector without a grammar is asked
// to compile an eager limit.
var ErrNoGrammar = errors.New("dialect/sql: eager limit requires a grammar-bound selector")

// EagerLimitError describes a rejected eager limit.
type EagerLimitError struct {
	Field  string
	Reason string
}

// Error implements the error interface.
func (e *EagerLimitError) Error() string {
	return fmt.Sprintf("dialect/sql: invalid eager limit %s: %s", e.Field, e.Reason)
}

// Is reports whether the target is ErrInvalidEagerLimit.
func (e *EagerLimitError) Is(err error) bool {
	return err == ErrInvalidEagerLimit
}

// EagerLimit limits and offsets the rows of a statement per group of
// Partition values instead of over the whole result.
//
//	sql.PartitionBy("comments.post_id").Limit(3).OrderBy(sql.Desc("created_at"))
//
// Partition, Order and Tiebreak name output columns of the base
// statement. Qualified names are accepted and resolved by their last
// segment, as the base statement is wrapped as a derived table.
type EagerLimit struct {
	// Partition holds the grouping columns identifying the parent.
	Partition []string
	// Limit is the maximum number of rows per group. Nil means unbounded.
	Limit *int
	// Offset is the number of rows skipped per group.
	Offset *int
	// Order defines the order inside each group. When empty, the ORDER BY
	// terms of the base statement are used.
	Order []OrderTerm
	// Tiebreak is an optional unique column appended to the group order
	// to make it total.
	Tiebreak string
}

// PartitionBy returns a new eager limit grouped by the given columns.
func PartitionBy(columns ...string) *EagerLimit {
	return &EagerLimit{Partition: columns}
}

// SetLimit sets the per-group limit.
func (l *EagerLimit) SetLimit(n int) *EagerLimit {
	l.Limit = &n
	return l
}

// SetOffset sets the per-group offset.
func (l *EagerLimit) SetOffset(n int) *EagerLimit {
	l.Offset = &n
	return l
}

// OrderBy appends order terms for the rows inside each group.
func (l *EagerLimit) OrderBy(terms ...OrderTerm) *EagerLimit {
	l.Order = append(l.Order, terms...)
	return l
}

// TiebreakBy sets the unique column used as the final order term.
func (l *EagerLimit) TiebreakBy(column string) *EagerLimit {
	l.Tiebreak = column
	return l
}

// Validate checks the invariants of the eager limit.
func (l *EagerLimit) Validate() error {
	if l == nil {
		return &EagerLimitError{Field: "spec", Reason: "nil eager limit"}
	}
	if len(l.Partition) == 0 {
		return &EagerLimitError{Field: "partition", Reason: "at least one grouping column is required"}
	}
	for _, c := range l.Partition {
		if strings.TrimSpace(c) == "" {
			return &EagerLimitError{Field: "partition", Reason: "empty grouping column"}
		}
	}
	if l.Limit != nil && *l.Limit < 0 {
		return &EagerLimitError{Field: "limit", Reason: fmt.Sprintf("must be >= 0, got %d", *l.Limit)}
	}
	if l.Offset != nil && *l.Offset < 0 {
		return &EagerLimitError{Field: "offset", Reason: fmt.Sprintf("must be >= 0, got %d", *l.Offset)}
	}
	for _, o := range l.Order {
		if strings.TrimSpace(o.Column) == "" {
			return &EagerLimitError{Field: "order", Reason: "empty order column"}
		}
	}
	return nil
}

func (l *EagerLimit) clone() *EagerLimit {
	c := &EagerLimit{
		Partition: append([]string(nil), l.Partition...),
		Order:     append([]OrderTerm(nil), l.Order...),
		Tiebreak:  l.Tiebreak,
	}
	if l.Limit != nil {
		n := *l.Limit
		c.Limit = &n
	}
	if l.Offset != nil {
		n := *l.Offset
		c.Offset = &n
	}
	return c
}

// SetEagerLimit validates and stores a copy of the eager limit on the
// selector, replacing any previous one. On error the selector is left
// unchanged.
func (s *Selector) SetEagerLimit(l *EagerLimit) error {
	if err := l.Validate(); err != nil {
		return err
	}
	s.eager = l.clone()
	return nil
}

// EagerLimit returns a copy of the eager limit of the selector, or nil.
func (s *Selector) EagerLimit() *EagerLimit {
	if s.eager == nil {
		return nil
	}
	return s.eager.clone()
}

// ClearEagerLimit removes the eager limit. The selector compiles as a
// plain statement afterwards.
func (s *Selector) ClearEagerLimit() *Selector {
	s.eager = nil
	return s
}

// columnName returns the unqualified name of a column.
func columnName(c string) string {
	if i := strings.LastIndexByte(c, '.'); i >= 0 {
		return c[i+1:]
	}
	return c
}

// sortKeys returns the order inside a group: the explicit order, else the
// base statement order, followed by the tiebreak. Columns are unqualified
// and deduplicated; partition columns are skipped as they are constant
// inside a group.
func sortKeys(base *Selector, l *EagerLimit) []OrderTerm {
	terms := l.Order
	if len(terms) == 0 {
		terms = base.order
	}
	skip := make(map[string]struct{}, len(l.Partition))
	for _, c := range l.Partition {
		skip[columnName(c)] = struct{}{}
	}
	keys := make([]OrderTerm, 0, len(terms)+1)
	add := func(o OrderTerm) {
		o.Column = columnName(o.Column)
		if _, ok := skip[o.Column]; ok {
			return
		}
		skip[o.Column] = struct{}{}
		keys = append(keys, o)
	}
	for _, o := range terms {
		add(o)
	}
	if l.Tiebreak != "" {
		add(Asc(l.Tiebreak))
	}
	return keys
}
