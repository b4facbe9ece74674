package sqlgraph

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-openapi/inflect"
	"github.com/iancoleman/strcase"

	"github.com/syssam/eagerlimit/dialect/sql"
)

// Shape is the kind of a relation between a parent table and its related
// rows.
type Shape uint8

// Relation shapes.
const (
	ShapeUnknown Shape = iota
	ShapeHasOne
	ShapeHasMany
	ShapeHasOneThrough
	ShapeHasManyThrough
	ShapeMorphOne
	ShapeMorphMany
	ShapeBelongsToMany
	ShapeMorphToMany
)

var shapeNames = [...]string{
	ShapeUnknown:        "unknown",
	ShapeHasOne:         "has-one",
	ShapeHasMany:        "has-many",
	ShapeHasOneThrough:  "has-one-through",
	ShapeHasManyThrough: "has-many-through",
	ShapeMorphOne:       "morph-one",
	ShapeMorphMany:      "morph-many",
	ShapeBelongsToMany:  "belongs-to-many",
	ShapeMorphToMany:    "morph-to-many",
}

// String returns the name of the shape.
func (s Shape) String() string {
	if int(s) < len(shapeNames) {
		return shapeNames[s]
	}
	return shapeNames[ShapeUnknown]
}

// Shapes returns all relation shapes.
func Shapes() []Shape {
	return []Shape{
		ShapeHasOne, ShapeHasMany, ShapeHasOneThrough, ShapeHasManyThrough,
		ShapeMorphOne, ShapeMorphMany, ShapeBelongsToMany, ShapeMorphToMany,
	}
}

// ParseShape parses a shape name such as "has-many" or "belongs_to_many".
func ParseShape(name string) (Shape, error) {
	name = strings.ReplaceAll(strcase.ToSnake(strings.TrimSpace(name)), "_", "-")
	for _, s := range Shapes() {
		if s.String() == name {
			return s, nil
		}
	}
	return ShapeUnknown, &RelationError{Field: "shape", Reason: fmt.Sprintf("unknown shape %q", name)}
}

// one reports whether the shape loads at most one row per parent.
func (s Shape) one() bool {
	return s == ShapeHasOne || s == ShapeHasOneThrough || s == ShapeMorphOne
}

// Output columns added by relations to the related rows.
const (
	// ThroughKeyColumn holds the far parent key of through relations.
	ThroughKeyColumn = "eager_through_key"
	// PivotPrefix prefixes the pivot columns of many-to-many relations.
	PivotPrefix = "pivot_"
	// OrderPrefix prefixes order columns of joined tables projected into
	// limited queries. They are not part of the loaded rows.
	OrderPrefix = "eager_order_"
)

// ErrInvalidRelation is matched by every RelationError.
var ErrInvalidRelation = errors.New("sqlgraph: invalid relation")

// RelationError is returned for an edge spec that cannot describe its shape.
type RelationError struct {
	Shape  Shape
	Field  string
	Reason string
}

// Error implements the error interface.
func (e *RelationError) Error() string {
	if e.Shape == ShapeUnknown {
		return fmt.Sprintf("sqlgraph: invalid relation %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("sqlgraph: invalid %s relation %s: %s", e.Shape, e.Field, e.Reason)
}

// Is reports whether the target is ErrInvalidRelation.
func (e *RelationError) Is(err error) bool {
	return err == ErrInvalidRelation
}

// EdgeSpec holds the table and key names of a relation. Empty key names
// are derived from the table names by convention.
//
//	// posts -> comments
//	EdgeSpec{Parent: "posts", Related: "comments"}  // comments.post_id
//
//	// countries -> users -> posts
//	EdgeSpec{Parent: "countries", Through: "users", Related: "posts"}
//
//	// posts -> taggables -> tags
//	EdgeSpec{Parent: "posts", Related: "tags", Morph: "taggable"}
type EdgeSpec struct {
	// Parent is the parent table. It is only used to derive key names.
	Parent string
	// Related is the table of the loaded rows.
	Related string
	// RelatedKey is the primary key of the related table. Default "id".
	RelatedKey string
	// LocalKey is the parent column the parent keys are read from.
	// Default "id".
	LocalKey string

	// ForeignKey is the column of the related table referencing the
	// parent in has-one and has-many relations. Default "<parent>_id".
	ForeignKey string

	// Through is the intermediate table of through relations.
	Through string
	// FirstKey is the column of the through table referencing the parent.
	// Default "<parent>_id".
	FirstKey string
	// SecondKey is the column of the related table referencing the
	// through table. Default "<through>_id".
	SecondKey string
	// SecondLocalKey is the through table column referenced by SecondKey.
	// Default "id".
	SecondLocalKey string

	// Morph is the name of a polymorphic relation, such as "commentable".
	Morph string
	// MorphType is the type discriminator column. Default "<morph>_type".
	MorphType string
	// MorphID is the id column of morph-one and morph-many relations.
	// Default "<morph>_id".
	MorphID string
	// MorphClass is the discriminator value of the parent. Default is the
	// singular parent table name.
	MorphClass string
	// Inverse marks a morph-to-many relation loaded from the related side
	// (tags to posts), where MorphClass names the related rows.
	Inverse bool

	// Pivot is the join table of many-to-many relations. Default is the
	// sorted singular table names joined by "_", or the plural morph name.
	Pivot string
	// ForeignPivotKey is the pivot column referencing the parent.
	ForeignPivotKey string
	// RelatedPivotKey is the pivot column referencing the related table.
	RelatedPivotKey string
	// PivotColumns are extra pivot columns loaded as "pivot_<column>".
	PivotColumns []string
}

// singular returns the snake cased singular form of a table name.
func singular(table string) string {
	if i := strings.LastIndexByte(table, '.'); i >= 0 {
		table = table[i+1:]
	}
	return strcase.ToSnake(inflect.Singularize(table))
}

// resolve fills the default key names of the spec for the shape.
func (e EdgeSpec) resolve(shape Shape) (EdgeSpec, error) {
	fail := func(field, reason string) (EdgeSpec, error) {
		return EdgeSpec{}, &RelationError{Shape: shape, Field: field, Reason: reason}
	}
	needParent := func(field string) error {
		if e.Parent == "" {
			return &RelationError{Shape: shape, Field: field, Reason: "required when no parent table is set"}
		}
		return nil
	}
	if e.Related == "" {
		return fail("related", "related table is required")
	}
	if e.RelatedKey == "" {
		e.RelatedKey = "id"
	}
	if e.LocalKey == "" {
		e.LocalKey = "id"
	}
	switch shape {
	case ShapeHasOne, ShapeHasMany:
		if e.ForeignKey == "" {
			if err := needParent("foreign key"); err != nil {
				return EdgeSpec{}, err
			}
			e.ForeignKey = singular(e.Parent) + "_id"
		}
	case ShapeHasOneThrough, ShapeHasManyThrough:
		if e.Through == "" {
			return fail("through", "intermediate table is required")
		}
		if e.FirstKey == "" {
			if err := needParent("first key"); err != nil {
				return EdgeSpec{}, err
			}
			e.FirstKey = singular(e.Parent) + "_id"
		}
		if e.SecondKey == "" {
			e.SecondKey = singular(e.Through) + "_id"
		}
		if e.SecondLocalKey == "" {
			e.SecondLocalKey = "id"
		}
	case ShapeMorphOne, ShapeMorphMany:
		if e.Morph == "" && (e.MorphType == "" || e.MorphID == "") {
			return fail("morph", "morph name or type and id columns are required")
		}
		name := strcase.ToSnake(e.Morph)
		if e.MorphType == "" {
			e.MorphType = name + "_type"
		}
		if e.MorphID == "" {
			e.MorphID = name + "_id"
		}
		if e.MorphClass == "" {
			if err := needParent("morph class"); err != nil {
				return EdgeSpec{}, err
			}
			e.MorphClass = singular(e.Parent)
		}
	case ShapeBelongsToMany:
		if e.ForeignPivotKey == "" || e.Pivot == "" {
			if err := needParent("pivot"); err != nil {
				return EdgeSpec{}, err
			}
		}
		if e.Pivot == "" {
			names := []string{singular(e.Parent), singular(e.Related)}
			sort.Strings(names)
			e.Pivot = strings.Join(names, "_")
		}
		if e.ForeignPivotKey == "" {
			e.ForeignPivotKey = singular(e.Parent) + "_id"
		}
		if e.RelatedPivotKey == "" {
			e.RelatedPivotKey = singular(e.Related) + "_id"
		}
	case ShapeMorphToMany:
		if e.Morph == "" {
			return fail("morph", "morph name is required")
		}
		name := strcase.ToSnake(e.Morph)
		if e.Pivot == "" {
			e.Pivot = inflect.Pluralize(name)
		}
		if e.MorphType == "" {
			e.MorphType = name + "_type"
		}
		if e.Inverse {
			if e.ForeignPivotKey == "" {
				if err := needParent("foreign pivot key"); err != nil {
					return EdgeSpec{}, err
				}
				e.ForeignPivotKey = singular(e.Parent) + "_id"
			}
			if e.RelatedPivotKey == "" {
				e.RelatedPivotKey = name + "_id"
			}
			if e.MorphClass == "" {
				e.MorphClass = singular(e.Related)
			}
			break
		}
		if e.ForeignPivotKey == "" {
			e.ForeignPivotKey = name + "_id"
		}
		if e.RelatedPivotKey == "" {
			e.RelatedPivotKey = singular(e.Related) + "_id"
		}
		if e.MorphClass == "" {
			if err := needParent("morph class"); err != nil {
				return EdgeSpec{}, err
			}
			e.MorphClass = singular(e.Parent)
		}
	default:
		return fail("shape", fmt.Sprintf("unknown shape %d", shape))
	}
	e.PivotColumns = append([]string(nil), e.PivotColumns...)
	return e, nil
}

// Relation loads the related rows of a batch of parents, limited per
// parent. A Relation is configured and used by a single request.
type Relation struct {
	shape    Shape
	spec     EdgeSpec
	key      groupingKey
	limit    *int
	offset   *int
	order    []sql.OrderTerm
	preds    []*sql.Predicate
	columns  []string
	tiebreak string
}

// NewRelation returns a relation of the given shape. Key names missing
// from the spec are derived by convention.
func NewRelation(shape Shape, spec EdgeSpec) (*Relation, error) {
	spec, err := spec.resolve(shape)
	if err != nil {
		return nil, err
	}
	r := &Relation{shape: shape, spec: spec, tiebreak: spec.RelatedKey}
	switch shape {
	case ShapeHasOne, ShapeHasMany:
		r.key = foreignKey{}
	case ShapeHasOneThrough, ShapeHasManyThrough:
		r.key = throughKey{}
	case ShapeMorphOne, ShapeMorphMany:
		r.key = morphKey{}
	case ShapeBelongsToMany:
		r.key = pivotKey{}
	case ShapeMorphToMany:
		r.key = pivotKey{morph: true}
	}
	return r, nil
}

// HasOne returns a has-one relation. It loads one row per parent unless
// another limit is set.
func HasOne(spec EdgeSpec) (*Relation, error) { return NewRelation(ShapeHasOne, spec) }

// HasMany returns a has-many relation.
func HasMany(spec EdgeSpec) (*Relation, error) { return NewRelation(ShapeHasMany, spec) }

// HasOneThrough returns a has-one-through relation.
func HasOneThrough(spec EdgeSpec) (*Relation, error) { return NewRelation(ShapeHasOneThrough, spec) }

// HasManyThrough returns a has-many-through relation.
func HasManyThrough(spec EdgeSpec) (*Relation, error) {
	return NewRelation(ShapeHasManyThrough, spec)
}

// MorphOne returns a morph-one relation.
func MorphOne(spec EdgeSpec) (*Relation, error) { return NewRelation(ShapeMorphOne, spec) }

// MorphMany returns a morph-many relation.
func MorphMany(spec EdgeSpec) (*Relation, error) { return NewRelation(ShapeMorphMany, spec) }

// BelongsToMany returns a belongs-to-many relation.
func BelongsToMany(spec EdgeSpec) (*Relation, error) {
	return NewRelation(ShapeBelongsToMany, spec)
}

// MorphToMany returns a morph-to-many relation.
func MorphToMany(spec EdgeSpec) (*Relation, error) { return NewRelation(ShapeMorphToMany, spec) }

// Shape returns the shape of the relation.
func (r *Relation) Shape() Shape { return r.shape }

// Spec returns the resolved edge spec.
func (r *Relation) Spec() EdgeSpec { return r.spec }

// Limit sets the maximum number of rows loaded per parent.
func (r *Relation) Limit(n int) *Relation {
	r.limit = &n
	return r
}

// Offset sets the number of rows skipped per parent.
func (r *Relation) Offset(n int) *Relation {
	r.offset = &n
	return r
}

// OrderBy appends order terms. Unqualified columns are related columns;
// columns qualified by the through or pivot table order by its values.
func (r *Relation) OrderBy(terms ...sql.OrderTerm) *Relation {
	r.order = append(r.order, terms...)
	return r
}

// Where appends predicates on the related rows.
func (r *Relation) Where(preds ...*sql.Predicate) *Relation {
	r.preds = append(r.preds, preds...)
	return r
}

// Select restricts the loaded related columns. Columns needed to match
// rows to parents are added when missing.
func (r *Relation) Select(columns ...string) *Relation {
	r.columns = append(r.columns, columns...)
	return r
}

// Tiebreak sets the unique column that makes the per-parent order total.
// It defaults to the related key. An empty column disables it.
func (r *Relation) Tiebreak(column string) *Relation {
	r.tiebreak = column
	return r
}

// KeyColumn returns the output column holding the parent key of a row.
func (r *Relation) KeyColumn() string { return r.key.parent(&r.spec) }

// Partition returns the output columns grouping the rows per parent.
func (r *Relation) Partition() []string { return r.key.partition(&r.spec) }

// EagerLimit returns the per-parent limit of the relation, or nil if
// the relation loads all related rows.
func (r *Relation) EagerLimit() *sql.EagerLimit {
	limit := r.limit
	if limit == nil && r.shape.one() {
		one := 1
		limit = &one
	}
	if limit == nil && r.offset == nil {
		return nil
	}
	l := sql.PartitionBy(r.Partition()...).OrderBy(r.rankOrder()...).TiebreakBy(r.tiebreak)
	l.Limit, l.Offset = limit, r.offset
	return l
}

// joined reports whether an order column is qualified by a table other
// than the related one. Rows are ranked outside the join, so such columns
// are projected under an alias.
func (r *Relation) joined(column string) bool {
	i := strings.LastIndexByte(column, '.')
	return i > 0 && column[:i] != r.spec.Related
}

// rankOrder returns the order terms of the limited query, with columns of
// joined tables replaced by their projected alias.
func (r *Relation) rankOrder() []sql.OrderTerm {
	terms := make([]sql.OrderTerm, len(r.order))
	for i, o := range r.order {
		if r.joined(o.Column) {
			o.Column = fmt.Sprintf("%s%d", OrderPrefix, i)
		}
		terms[i] = o
	}
	return terms
}

// projectOrder selects the order columns of joined tables under the alias
// used by rankOrder.
func (r *Relation) projectOrder(s *sql.Selector) {
	for i, o := range r.order {
		if r.joined(o.Column) {
			s.AppendSelectAs(o.Column, fmt.Sprintf("%s%d", OrderPrefix, i))
		}
	}
}

// Selector returns the query loading the related rows of the given
// parent keys, limited per parent.
func (r *Relation) Selector(g sql.Grammar, keys ...any) (*sql.Selector, error) {
	s := r.key.base(g, r, keys)
	for _, p := range r.preds {
		s.Where(p)
	}
	l := r.EagerLimit()
	if l == nil {
		s.OrderBy(r.order...)
		return s, s.Err()
	}
	r.projectOrder(s)
	if err := s.SetEagerLimit(l); err != nil {
		return nil, err
	}
	return s, s.Err()
}

// selectRelated returns a selector over the related table with the
// configured columns, ensuring the given related columns are loaded.
func (r *Relation) selectRelated(g sql.Grammar, required ...string) *sql.Selector {
	t := sql.Table(r.spec.Related)
	if len(r.columns) == 0 {
		return g.Select(t.C("*")).From(t)
	}
	seen := make(map[string]struct{}, len(r.columns))
	s := g.Select().From(t)
	add := func(c string) {
		name := c
		if i := strings.LastIndexByte(c, '.'); i >= 0 {
			name = c[i+1:]
		} else {
			c = t.C(c)
		}
		if _, ok := seen[name]; ok {
			return
		}
		seen[name] = struct{}{}
		s.AppendSelect(c)
	}
	for _, c := range r.columns {
		add(c)
	}
	if r.tiebreak != "" {
		required = append(required, r.tiebreak)
	}
	for _, o := range r.order {
		if !r.joined(o.Column) {
			required = append(required, o.Column)
		}
	}
	for _, c := range required {
		add(c)
	}
	return s
}

// groupingKey builds the related query of a shape and names the columns
// grouping its rows per parent.
type groupingKey interface {
	base(g sql.Grammar, r *Relation, keys []any) *sql.Selector
	partition(e *EdgeSpec) []string
	parent(e *EdgeSpec) string
}

// foreignKey groups has-one and has-many rows by their foreign key.
type foreignKey struct{}

func (foreignKey) base(g sql.Grammar, r *Relation, keys []any) *sql.Selector {
	s := r.selectRelated(g, r.spec.ForeignKey)
	return s.Where(sql.In(s.C(r.spec.ForeignKey), keys...))
}

func (foreignKey) partition(e *EdgeSpec) []string { return []string{e.ForeignKey} }
func (foreignKey) parent(e *EdgeSpec) string      { return e.ForeignKey }

// throughKey groups through rows by the far parent key read from the
// intermediate table.
type throughKey struct{}

func (throughKey) base(g sql.Grammar, r *Relation, keys []any) *sql.Selector {
	e := &r.spec
	related, through := sql.Table(e.Related), sql.Table(e.Through)
	s := r.selectRelated(g, e.SecondKey)
	return s.AppendSelectAs(through.C(e.FirstKey), ThroughKeyColumn).
		Join(through).
		On(through.C(e.SecondLocalKey), related.C(e.SecondKey)).
		Where(sql.In(through.C(e.FirstKey), keys...))
}

func (throughKey) partition(*EdgeSpec) []string { return []string{ThroughKeyColumn} }
func (throughKey) parent(*EdgeSpec) string      { return ThroughKeyColumn }

// morphKey groups morph-one and morph-many rows by the (type, id) pair.
type morphKey struct{}

func (morphKey) base(g sql.Grammar, r *Relation, keys []any) *sql.Selector {
	e := &r.spec
	s := r.selectRelated(g, e.MorphType, e.MorphID)
	return s.Where(sql.And(
		sql.EQ(s.C(e.MorphType), e.MorphClass),
		sql.In(s.C(e.MorphID), keys...),
	))
}

func (morphKey) partition(e *EdgeSpec) []string { return []string{e.MorphType, e.MorphID} }
func (morphKey) parent(e *EdgeSpec) string      { return e.MorphID }

// pivotKey groups many-to-many rows by the pivot column referencing the
// parent, and by the pivot type discriminator for morph-to-many.
type pivotKey struct {
	morph bool
}

func (k pivotKey) base(g sql.Grammar, r *Relation, keys []any) *sql.Selector {
	e := &r.spec
	related, pivot := sql.Table(e.Related), sql.Table(e.Pivot)
	s := r.selectRelated(g, e.RelatedKey).
		AppendSelectAs(pivot.C(e.ForeignPivotKey), PivotPrefix+e.ForeignPivotKey).
		AppendSelectAs(pivot.C(e.RelatedPivotKey), PivotPrefix+e.RelatedPivotKey)
	if k.morph {
		s.AppendSelectAs(pivot.C(e.MorphType), PivotPrefix+e.MorphType)
	}
	for _, c := range e.PivotColumns {
		s.AppendSelectAs(pivot.C(c), PivotPrefix+c)
	}
	s.Join(pivot).On(related.C(e.RelatedKey), pivot.C(e.RelatedPivotKey))
	if k.morph {
		s.Where(sql.EQ(pivot.C(e.MorphType), e.MorphClass))
	}
	return s.Where(sql.In(pivot.C(e.ForeignPivotKey), keys...))
}

func (k pivotKey) partition(e *EdgeSpec) []string {
	if k.morph {
		return []string{PivotPrefix + e.MorphType, PivotPrefix + e.ForeignPivotKey}
	}
	return []string{PivotPrefix + e.ForeignPivotKey}
}

func (pivotKey) parent(e *EdgeSpec) string { return PivotPrefix + e.ForeignPivotKey }
