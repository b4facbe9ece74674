package main

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/syssam/eagerlimit"
	"github.com/syssam/eagerlimit/dialect/sql"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "eagerlimit",
		Short:         "Load related rows limited per parent",
		Long:          "Renders and runs the queries loading related rows of many parents with a per-parent LIMIT and OFFSET.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(newRenderCmd(), newLoadCmd(), newConfigCmd())
	return root
}

// relationFlags holds the flags describing a relation.
type relationFlags struct {
	cmd      *cobra.Command
	shape    string
	spec     eagerlimit.EdgeSpec
	limit    int
	offset   int
	order    []string
	tiebreak string
	columns  []string
	keys     []string
}

func (f *relationFlags) bind(cmd *cobra.Command) {
	f.cmd = cmd
	fs := cmd.Flags()
	fs.StringVar(&f.shape, "shape", "has-many", "relation shape, one of has-one, has-many, has-one-through, has-many-through, morph-one, morph-many, belongs-to-many, morph-to-many")
	fs.StringVar(&f.spec.Parent, "parent", "", "parent table")
	fs.StringVar(&f.spec.Related, "related", "", "related table")
	fs.StringVar(&f.spec.RelatedKey, "related-key", "", "primary key of the related table")
	fs.StringVar(&f.spec.LocalKey, "local-key", "", "parent key column")
	fs.StringVar(&f.spec.ForeignKey, "foreign-key", "", "related column referencing the parent")
	fs.StringVar(&f.spec.Through, "through", "", "intermediate table of through relations")
	fs.StringVar(&f.spec.FirstKey, "first-key", "", "through table column referencing the parent")
	fs.StringVar(&f.spec.SecondKey, "second-key", "", "related column referencing the through table")
	fs.StringVar(&f.spec.Morph, "morph", "", "polymorphic relation name")
	fs.StringVar(&f.spec.MorphClass, "morph-class", "", "type discriminator value of the parent")
	fs.BoolVar(&f.spec.Inverse, "inverse", false, "load a morph-to-many relation from the related side")
	fs.StringVar(&f.spec.Pivot, "pivot", "", "join table of many-to-many relations")
	fs.StringVar(&f.spec.ForeignPivotKey, "foreign-pivot-key", "", "pivot column referencing the parent")
	fs.StringVar(&f.spec.RelatedPivotKey, "related-pivot-key", "", "pivot column referencing the related table")
	fs.StringSliceVar(&f.spec.PivotColumns, "pivot-columns", nil, "extra pivot columns to load")
	fs.IntVar(&f.limit, "limit", -1, "rows per parent, negative for no limit")
	fs.IntVar(&f.offset, "offset", 0, "rows skipped per parent")
	fs.StringSliceVar(&f.order, "order", nil, "order terms as 'column [asc|desc]'")
	fs.StringVar(&f.tiebreak, "tiebreak", "", "unique column ending the order, default the related key, empty for none")
	fs.StringSliceVar(&f.columns, "select", nil, "related columns to load")
	fs.StringSliceVar(&f.keys, "keys", nil, "parent keys")
	_ = cmd.MarkFlagRequired("related")
	_ = cmd.MarkFlagRequired("keys")
}

func (f *relationFlags) relation() (*eagerlimit.Relation, error) {
	shape, err := eagerlimit.ParseShape(f.shape)
	if err != nil {
		return nil, err
	}
	rel, err := eagerlimit.NewRelation(shape, f.spec)
	if err != nil {
		return nil, err
	}
	if f.limit >= 0 {
		rel.Limit(f.limit)
	}
	if f.offset > 0 {
		rel.Offset(f.offset)
	}
	for _, o := range f.order {
		term, err := sql.ParseOrder(o)
		if err != nil {
			return nil, err
		}
		rel.OrderBy(term)
	}
	if f.cmd.Flags().Changed("tiebreak") {
		rel.Tiebreak(f.tiebreak)
	}
	if len(f.columns) > 0 {
		rel.Select(f.columns...)
	}
	return rel, nil
}

// parentKeys converts integer keys to int64 and keeps the others as
// strings.
func (f *relationFlags) parentKeys() []any {
	keys := make([]any, len(f.keys))
	for i, k := range f.keys {
		if n, err := strconv.ParseInt(k, 10, 64); err == nil {
			keys[i] = n
		} else {
			keys[i] = k
		}
	}
	return keys
}
