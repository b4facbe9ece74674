package sql

import "strings"

// Predicate is a where predicate.
type Predicate struct {
	fns      []func(*Builder)
	compound bool
}

// P creates a new predicate.
//
//	P(func(b *Builder) {
//		b.Ident("name").WriteString(" = ").Arg("a8m")
//	})
func P(fns ...func(*Builder)) *Predicate {
	return &Predicate{fns: fns}
}

// Append appends a new function to the predicate callbacks.
func (p *Predicate) Append(f func(*Builder)) *Predicate {
	p.fns = append(p.fns, f)
	return p
}

// Query returns query representation of a predicate rendered with the
// default dialect. Predicates are normally rendered as part of a Selector.
func (p *Predicate) Query() (string, []any) {
	b := newBuilder(0, "")
	p.writeSQL(b)
	return b.Query()
}

func (p *Predicate) writeSQL(b *Builder) {
	for _, f := range p.fns {
		f(b)
	}
}

// compare writes "column op arg".
func compare(col, op string, v any) *Predicate {
	return P(func(b *Builder) {
		b.Ident(col).WriteString(op).Arg(v)
	})
}

// EQ returns a "=" predicate.
func EQ(col string, value any) *Predicate { return compare(col, " = ", value) }

// NEQ returns a "<>" predicate.
func NEQ(col string, value any) *Predicate { return compare(col, " <> ", value) }

// LT returns a "<" predicate.
func LT(col string, value any) *Predicate { return compare(col, " < ", value) }

// LTE returns a "<=" predicate.
func LTE(col string, value any) *Predicate { return compare(col, " <= ", value) }

// GT returns a ">" predicate.
func GT(col string, value any) *Predicate { return compare(col, " > ", value) }

// GTE returns a ">=" predicate.
func GTE(col string, value any) *Predicate { return compare(col, " >= ", value) }

// Like returns a "LIKE" predicate.
func Like(col, pattern string) *Predicate { return compare(col, " LIKE ", pattern) }

// ColumnsEQ returns a predicate comparing two columns.
func ColumnsEQ(col1, col2 string) *Predicate {
	return P(func(b *Builder) {
		b.Ident(col1).WriteString(" = ").Ident(col2)
	})
}

// IsNull returns the `IS NULL` predicate.
func IsNull(col string) *Predicate {
	return P(func(b *Builder) {
		b.Ident(col).WriteString(" IS NULL")
	})
}

// NotNull returns the `IS NOT NULL` predicate.
func NotNull(col string) *Predicate {
	return P(func(b *Builder) {
		b.Ident(col).WriteString(" IS NOT NULL")
	})
}

// In returns the `IN` predicate. An empty list never matches.
func In(col string, args ...any) *Predicate {
	return P(func(b *Builder) {
		if len(args) == 0 {
			b.WriteString("1 = 0")
			return
		}
		b.Ident(col).WriteString(" IN ")
		b.Wrap(func(b *Builder) {
			if len(args) == 1 {
				if q, ok := args[0].(*Selector); ok {
					b.Join(q)
					return
				}
			}
			b.Args(args...)
		})
	})
}

// NotIn returns the `NOT IN` predicate. An empty list always matches.
func NotIn(col string, args ...any) *Predicate {
	return P(func(b *Builder) {
		if len(args) == 0 {
			b.WriteString("1 = 1")
			return
		}
		b.Ident(col).WriteString(" NOT IN ")
		b.Wrap(func(b *Builder) { b.Args(args...) })
	})
}

// ExprP creates a new predicate from the given expression. Each "?" in
// the expression is replaced by a dialect placeholder bound to the next
// argument.
//
//	ExprP("age > ? AND age < ?", 18, 30)
func ExprP(expr string, args ...any) *Predicate {
	return P(func(b *Builder) {
		rest, n := args, 0
		for {
			i := strings.IndexByte(expr[n:], '?')
			if i < 0 || len(rest) == 0 {
				b.WriteString(expr[n:])
				return
			}
			b.WriteString(expr[n : n+i]).Arg(rest[0])
			rest, n = rest[1:], n+i+1
		}
	})
}

// Not wraps the given predicate with the not predicate.
func Not(pred *Predicate) *Predicate {
	return P(func(b *Builder) {
		b.WriteString("NOT ").Wrap(func(b *Builder) { b.Join(pred) })
	})
}

// And combines all given predicates with AND between them.
func And(preds ...*Predicate) *Predicate {
	return combine(" AND ", preds)
}

// Or combines all given predicates with OR between them.
func Or(preds ...*Predicate) *Predicate {
	return combine(" OR ", preds)
}

func combine(op string, preds []*Predicate) *Predicate {
	preds = compact(preds)
	switch len(preds) {
	case 0:
		return nil
	case 1:
		return preds[0]
	}
	p := P(func(b *Builder) {
		for i, pred := range preds {
			if i > 0 {
				b.WriteString(op)
			}
			if pred.compound {
				b.Wrap(func(b *Builder) { b.Join(pred) })
			} else {
				b.Join(pred)
			}
		}
	})
	p.compound = true
	return p
}

func compact(preds []*Predicate) []*Predicate {
	out := make([]*Predicate, 0, len(preds))
	for _, p := range preds {
		if p != nil {
			out = append(out, p)
		}
	}
	return out
}
