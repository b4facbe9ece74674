package eagerlimit

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/syssam/eagerlimit/contrib/dataloader"
	"github.com/syssam/eagerlimit/dialect"
	"github.com/syssam/eagerlimit/dialect/sql"
	"github.com/syssam/eagerlimit/dialect/sql/sqlgraph"
)

// Relation types, re-exported from sqlgraph.
type (
	// Shape is the kind of a relation.
	Shape = sqlgraph.Shape
	// EdgeSpec holds the table and key names of a relation.
	EdgeSpec = sqlgraph.EdgeSpec
	// Relation loads related rows limited per parent.
	Relation = sqlgraph.Relation
	// Node is a loaded related row.
	Node = sqlgraph.Node
	// Neighbors holds the related rows of a batch of parents.
	Neighbors = sqlgraph.Neighbors
)

// Relation factories.
var (
	ParseShape     = sqlgraph.ParseShape
	NewRelation    = sqlgraph.NewRelation
	HasOne         = sqlgraph.HasOne
	HasMany        = sqlgraph.HasMany
	HasOneThrough  = sqlgraph.HasOneThrough
	HasManyThrough = sqlgraph.HasManyThrough
	MorphOne       = sqlgraph.MorphOne
	MorphMany      = sqlgraph.MorphMany
	BelongsToMany  = sqlgraph.BelongsToMany
	MorphToMany    = sqlgraph.MorphToMany
)

// Client loads relations limited per parent through one driver. The
// grammar is resolved once, when the client is created. A Client is safe
// for concurrent use.
type Client struct {
	driver  dialect.Driver
	grammar sql.Grammar
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*options)

type options struct {
	logger  *slog.Logger
	grammar []sql.GrammarOption
}

// WithLogger sets the logger of the client. Loads are logged at DEBUG
// level and rejected rewrites at ERROR level.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithTablePrefix sets the prefix applied to all table names.
func WithTablePrefix(prefix string) Option {
	return WithGrammarOptions(sql.WithTablePrefix(prefix))
}

// WithWindowFunctions overrides whether the database supports ROW_NUMBER.
func WithWindowFunctions(enabled bool) Option {
	return WithGrammarOptions(sql.WithWindowFunctions(enabled))
}

// WithGrammarOptions appends options of the grammar resolved by the client.
func WithGrammarOptions(opts ...sql.GrammarOption) Option {
	return func(o *options) {
		o.grammar = append(o.grammar, opts...)
	}
}

// NewClient returns a client for the driver. It fails with an
// UnsupportedDialectError if the driver dialect has no grammar.
func NewClient(drv dialect.Driver, opts ...Option) (*Client, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	g, err := sql.GrammarFor(drv.Dialect(), o.grammar...)
	if err != nil {
		return nil, err
	}
	logger := o.logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		driver:  drv,
		grammar: g,
		logger:  logger.With(slog.String("dialect", g.Dialect())),
	}, nil
}

// Driver returns the driver of the client.
func (c *Client) Driver() dialect.Driver { return c.driver }

// Grammar returns the grammar resolved for the driver.
func (c *Client) Grammar() sql.Grammar { return c.grammar }

// Dialect returns the canonical dialect name of the client.
func (c *Client) Dialect() string { return c.grammar.Dialect() }

// Select returns a selector bound to the client grammar.
func (c *Client) Select(columns ...string) *sql.Selector {
	return c.grammar.Select(columns...)
}

// Close closes the underlying driver.
func (c *Client) Close() error { return c.driver.Close() }

// Render returns the statement loading the relation for the given parent
// keys, without executing it.
func (c *Client) Render(rel *Relation, keys ...any) (string, []any, error) {
	s, err := rel.Selector(c.grammar, keys...)
	if err != nil {
		return "", nil, err
	}
	query, args := s.Query()
	if err := s.Err(); err != nil {
		return "", nil, err
	}
	return query, args, nil
}

// Load loads the related rows of the parent keys in one query, limited
// per parent as configured on the relation.
func (c *Client) Load(ctx context.Context, rel *Relation, keys ...any) (*Neighbors, error) {
	q := &loadLogger{ExecQuerier: c.driver, logger: c.logger, rel: rel}
	nb, err := sqlgraph.Load(ctx, q, c.grammar, rel, keys)
	if err != nil {
		return nil, NewQueryError(rel, c.Dialect(), err)
	}
	return nb, nil
}

// loadLogger logs the statements of a relation load.
type loadLogger struct {
	dialect.ExecQuerier
	logger *slog.Logger
	rel    *Relation
}

func (l *loadLogger) Query(ctx context.Context, query string, args, v any) error {
	argv, _ := args.([]any)
	attrs := []any{
		slog.String("relation", l.rel.Shape().String()),
		slog.String("table", l.rel.Spec().Related),
		slog.String("sql", query),
	}
	l.logger.DebugContext(ctx, "eager load", append(attrs, slog.Any("args", argv))...)
	err := l.ExecQuerier.Query(ctx, query, args, v)
	switch {
	case err == nil:
	case sqlgraph.IsSyntaxError(err):
		l.logger.ErrorContext(ctx, "eager limit rewrite rejected", append(attrs, slog.Any("error", err))...)
	case sqlgraph.IsUndefinedError(err):
		l.logger.ErrorContext(ctx, "relation references an unknown table or column", append(attrs, slog.Any("error", err))...)
	}
	return err
}

// Attach assigns the loaded rows of every parent, matched by the parent
// key. Parents without related rows receive an empty group.
func Attach[P any, K comparable](parents []P, nb *Neighbors, key dataloader.KeyFunc[K, P], set func(P, []Node)) {
	for _, p := range parents {
		set(p, nb.Of(key(p)))
	}
}

// Related returns the loaded rows of a parent key. Keys outside the
// loaded batch fail with a NotLoadedError.
func Related(nb *Neighbors, rel *Relation, key any) ([]Node, error) {
	if nb == nil || !nb.Loaded(key) {
		return nil, NewNotLoadedError(fmt.Sprintf("%s %s of %v", rel.Shape(), rel.Spec().Related, key))
	}
	return nb.Of(key), nil
}

// Groups returns a dataloader group function loading the relation for
// batches of parent keys.
//
//	batch := dataloader.Groups(eagerlimit.Groups[int64](client, rel))
func Groups[K comparable](c *Client, rel *Relation) dataloader.GroupFunc[K, Node] {
	return func(ctx context.Context, keys []K) (map[K][]Node, error) {
		args := make([]any, len(keys))
		for i, k := range keys {
			args[i] = k
		}
		nb, err := c.Load(ctx, rel, args...)
		if err != nil {
			return nil, err
		}
		groups := make(map[K][]Node, len(keys))
		for _, k := range keys {
			groups[k] = nb.Of(k)
		}
		return groups, nil
	}
}
