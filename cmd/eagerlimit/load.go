package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/syssam/eagerlimit"
)

// configFlags holds the flags locating the configuration.
type configFlags struct {
	path      string
	envPrefix string
	envFiles  []string
}

func (f *configFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.path, "config", "c", "", "YAML configuration file")
	cmd.Flags().StringVar(&f.envPrefix, "env-prefix", "EAGERLIMIT", "prefix of the configuration environment variables")
	cmd.Flags().StringSliceVar(&f.envFiles, "env-file", nil, "env files loaded before reading the environment")
}

func (f *configFlags) load() (*eagerlimit.Config, error) {
	return eagerlimit.LoadConfig(f.path, f.envPrefix, f.envFiles...)
}

type group struct {
	Key  any               `json:"key"`
	Rows []eagerlimit.Node `json:"rows"`
}

func newLoadCmd() *cobra.Command {
	var (
		rel relationFlags
		cfg configFlags
	)
	cmd := &cobra.Command{
		Use:   "load",
		Short: "Run the query loading a relation and print the rows of every parent",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			conf, err := cfg.load()
			if err != nil {
				return err
			}
			r, err := rel.relation()
			if err != nil {
				return err
			}
			client, err := eagerlimit.Open(conf)
			if err != nil {
				return err
			}
			defer client.Close()
			nb, err := client.Load(cmd.Context(), r, rel.parentKeys()...)
			if err != nil {
				return err
			}
			out := make([]group, 0, len(nb.Keys()))
			for _, k := range nb.Keys() {
				out = append(out, group{Key: k, Rows: nb.Of(k)})
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
	rel.bind(cmd)
	cfg.bind(cmd)
	return cmd
}

func newConfigCmd() *cobra.Command {
	var cfg configFlags
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			conf, err := cfg.load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			return conf.WriteYAML(cmd.OutOrStdout())
		},
	}
	cfg.bind(cmd)
	return cmd
}
