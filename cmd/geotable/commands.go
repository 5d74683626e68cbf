package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"geoip/internal/ipaddr"
	"geoip/internal/loader"
	"geoip/internal/model"
	"geoip/internal/rangetable"
)

type options struct {
	file    string
	strict  bool
	verbose bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:          "geotable",
		Short:        "Query and inspect IPv4 country range tables",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&opts.file, "file", "f", "data/geo.txt", "tab-separated range file")
	root.PersistentFlags().BoolVar(&opts.strict, "strict", false, "reject malformed addresses instead of looking them up")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log load and build statistics to stderr")

	root.AddCommand(
		newLookupCmd(opts),
		newDumpCmd(opts),
		newStatsCmd(opts),
	)
	return root
}

func newLookupCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "lookup IP...",
		Short: "Print the country of each address",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := loadTable(opts)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, arg := range args {
				addr := ipaddr.Parse(arg)
				if opts.strict {
					if addr, err = ipaddr.ParseStrict(arg); err != nil {
						return err
					}
				}

				country, ok := table.Lookup(addr)
				if !ok {
					country = model.UnknownCountry
				}
				fmt.Fprintf(out, "%s\t%s\n", arg, country)
			}
			return nil
		},
	}
}

func newDumpCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "dump",
		Short: "Print every leaf entry of the table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := loadTable(opts)
			if err != nil {
				return err
			}
			return table.Dump(cmd.OutOrStdout())
		},
	}
}

func newStatsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print table statistics as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := loadTable(opts)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(table.Stats())
		},
	}
}

func loadTable(opts *options) (*rangetable.Table, error) {
	logger := zap.NewNop()
	if opts.verbose {
		var err error
		if logger, err = zap.NewDevelopment(); err != nil {
			return nil, err
		}
	}
	defer logger.Sync()

	ranges, stats, err := loader.LoadFile(opts.file)
	if err != nil {
		return nil, err
	}
	logger.Info("loaded range file",
		zap.String("path", opts.file),
		zap.Int("ranges", stats.Ranges),
		zap.Int("parse_errors", stats.ParseErrors))

	start := time.Now()
	table := rangetable.Build(ranges)
	logger.Info("built range table",
		zap.Int("blocks", table.Stats().Blocks),
		zap.Int("entries", table.Stats().Entries),
		zap.Duration("build_time", time.Since(start)))

	return table, nil
}
