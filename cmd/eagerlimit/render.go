package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/syssam/eagerlimit/dialect/sql"
)

type statement struct {
	Dialect string `json:"dialect"`
	SQL     string `json:"sql"`
	Args    []any  `json:"args"`
}

func newRenderCmd() *cobra.Command {
	var (
		rel    relationFlags
		driver string
		prefix string
		window bool
		format string
	)
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Print the query loading a relation without running it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts := []sql.GrammarOption{sql.WithTablePrefix(prefix)}
			if cmd.Flags().Changed("window") {
				opts = append(opts, sql.WithWindowFunctions(window))
			}
			g, err := sql.GrammarFor(driver, opts...)
			if err != nil {
				return err
			}
			r, err := rel.relation()
			if err != nil {
				return err
			}
			s, err := r.Selector(g, rel.parentKeys()...)
			if err != nil {
				return err
			}
			query, args := s.Query()
			if err := s.Err(); err != nil {
				return err
			}
			return writeStatement(cmd.OutOrStdout(), format, statement{Dialect: g.Dialect(), SQL: query, Args: args})
		},
	}
	rel.bind(cmd)
	cmd.Flags().StringVarP(&driver, "dialect", "d", "postgres", "driver or dialect name")
	cmd.Flags().StringVar(&prefix, "prefix", "", "table prefix")
	cmd.Flags().BoolVar(&window, "window", false, "override ROW_NUMBER support of the dialect")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format, text or json")
	return cmd
}

func writeStatement(w io.Writer, format string, st statement) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(st)
	case "text":
		if _, err := fmt.Fprintln(w, st.SQL); err != nil {
			return err
		}
		_, err := fmt.Fprintf(w, "-- args: %v\n", st.Args)
		return err
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}
