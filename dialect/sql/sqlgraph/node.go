package sqlgraph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/syssam/eagerlimit/dialect/sql"
)

// Node is a loaded related row keyed by output column name.
type Node map[string]any

// Columns returns the sorted column names of the node.
func (n Node) Columns() []string {
	columns := make([]string, 0, len(n))
	for c := range n {
		columns = append(columns, c)
	}
	sort.Strings(columns)
	return columns
}

// Pivot returns the pivot columns of a many-to-many row without their
// prefix.
func (n Node) Pivot() map[string]any {
	var pivot map[string]any
	for c, v := range n {
		name, ok := strings.CutPrefix(c, PivotPrefix)
		if !ok || name == "" {
			continue
		}
		if pivot == nil {
			pivot = make(map[string]any)
		}
		pivot[name] = v
	}
	return pivot
}

// ScanNodes scans all rows into nodes. Byte slices are copied into
// strings. The row number and projected order columns of eager limit
// queries are dropped.
func ScanNodes(rows sql.ColumnScanner) ([]Node, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("sqlgraph: scan columns: %w", err)
	}
	var nodes []Node
	values := make([]any, len(columns))
	dest := make([]any, len(columns))
	for i := range values {
		dest[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("sqlgraph: scan row: %w", err)
		}
		n := make(Node, len(columns))
		for i, c := range columns {
			if c == sql.RowNumberColumn || strings.HasPrefix(c, OrderPrefix) {
				continue
			}
			v := values[i]
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			n[c] = v
			values[i] = nil
		}
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlgraph: iterate rows: %w", err)
	}
	return nodes, nil
}
