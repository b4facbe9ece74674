package sqlgraph

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"github.com/google/uuid"

	"github.com/syssam/eagerlimit/dialect"
	"github.com/syssam/eagerlimit/dialect/sql"
)

// NormalizeKey returns the canonical form of a key value: signed and
// unsigned integers become int64, byte slices and UUIDs become strings.
// Unsigned values beyond the int64 range become their decimal string.
func NormalizeKey(v any) any {
	switch v := v.(type) {
	case int:
		return int64(v)
	case int8:
		return int64(v)
	case int16:
		return int64(v)
	case int32:
		return int64(v)
	case uint:
		return normalizeUint(uint64(v))
	case uint8:
		return int64(v)
	case uint16:
		return int64(v)
	case uint32:
		return int64(v)
	case uint64:
		return normalizeUint(v)
	case []byte:
		return string(v)
	case uuid.UUID:
		return v.String()
	case *uuid.UUID:
		if v == nil {
			return nil
		}
		return v.String()
	default:
		return v
	}
}

func normalizeUint(v uint64) any {
	if v > math.MaxInt64 {
		return strconv.FormatUint(v, 10)
	}
	return int64(v)
}

// keyString is the form parent keys are matched by. Drivers using text
// protocols return integer keys as text, so an int64 4 and the string "4"
// denote the same parent.
func keyString(v any) string {
	switch v := NormalizeKey(v).(type) {
	case int64:
		return strconv.FormatInt(v, 10)
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// Neighbors holds the related rows of a batch of parents, grouped by
// parent key. Parents without related rows have an empty group.
type Neighbors struct {
	keys   []any
	groups map[string][]Node
	total  int
}

func newNeighbors(keys []any) *Neighbors {
	nb := &Neighbors{groups: make(map[string][]Node, len(keys))}
	for _, k := range keys {
		s := keyString(k)
		if _, ok := nb.groups[s]; ok {
			continue
		}
		nb.groups[s] = nil
		nb.keys = append(nb.keys, NormalizeKey(k))
	}
	return nb
}

// Keys returns the distinct parent keys in request order.
func (nb *Neighbors) Keys() []any {
	return append([]any(nil), nb.keys...)
}

// Of returns the related rows of the given parent key, in per-parent
// order.
func (nb *Neighbors) Of(key any) []Node {
	return nb.groups[keyString(key)]
}

// Loaded reports whether the key was part of the loaded batch.
func (nb *Neighbors) Loaded(key any) bool {
	_, ok := nb.groups[keyString(key)]
	return ok
}

// Len returns the total number of loaded rows.
func (nb *Neighbors) Len() int { return nb.total }

// Groups returns the rows of every parent key, aligned with Keys.
func (nb *Neighbors) Groups() [][]Node {
	groups := make([][]Node, len(nb.keys))
	for i, k := range nb.keys {
		groups[i] = nb.groups[keyString(k)]
	}
	return groups
}

func (nb *Neighbors) add(column string, n Node) error {
	v, ok := n[column]
	if !ok {
		return fmt.Errorf("sqlgraph: parent key column %q missing from loaded row", column)
	}
	s := keyString(v)
	if _, ok := nb.groups[s]; !ok {
		return fmt.Errorf("sqlgraph: unexpected parent key %v returned in column %q", v, column)
	}
	nb.groups[s] = append(nb.groups[s], n)
	nb.total++
	return nil
}

// Load loads the related rows of the parent keys in a single query,
// limited per parent as configured on the relation. No query is executed
// for an empty key set.
func Load(ctx context.Context, drv dialect.ExecQuerier, g sql.Grammar, rel *Relation, keys []any) (*Neighbors, error) {
	nb := newNeighbors(keys)
	if len(nb.keys) == 0 {
		return nb, nil
	}
	s, err := rel.Selector(g, nb.keys...)
	if err != nil {
		return nil, err
	}
	query, args := s.Query()
	if err := s.Err(); err != nil {
		return nil, err
	}
	rows := &sql.Rows{}
	if err := drv.Query(ctx, query, args, rows); err != nil {
		return nil, err
	}
	defer rows.Close()
	nodes, err := ScanNodes(rows)
	if err != nil {
		return nil, err
	}
	column := rel.KeyColumn()
	for _, n := range nodes {
		if err := nb.add(column, n); err != nil {
			return nil, err
		}
	}
	return nb, nil
}
