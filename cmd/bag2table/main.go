// Command bag2table converts ROS bag logs into one tabular file per topic.
package main

import (
	"fmt"
	"os"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/roslabs/bag2table/internal/convert"
	"github.com/roslabs/bag2table/internal/sink"
	"github.com/spf13/cobra"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	var (
		formatFlag string
		compress   bool
		timestamps bool
		logLevel   string
	)
	failed := 0

	rootCmd := &cobra.Command{
		Use:   "bag2table <bag path> <output dir>",
		Short: "Convert ROS bag logs to per-topic tables",
		Long: `bag2table reads a bag file (or a directory of bag files) and writes one
tabular output file per topic: csv, parquet (columnar binary) or msgpack
(object serialization).`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := sink.ParseFormat(formatFlag)
			if err != nil {
				return err
			}

			summary, err := convert.Run(convert.Config{
				Input:      args[0],
				Output:     args[1],
				Format:     format,
				Compress:   compress,
				Timestamps: timestamps,
			}, newLogger(logLevel))
			if err != nil {
				return err
			}

			for _, res := range summary.Topics {
				if res.State == convert.StateFailed {
					fmt.Fprintf(cmd.OutOrStdout(), "%s: failed: %v\n", res.Topic, res.Err)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d rows -> %s\n", res.Topic, res.Rows, res.File)
			}
			failed = summary.Failed()
			return nil
		},
	}

	rootCmd.Flags().StringVar(&formatFlag, "format", "", "output format: csv|parquet|msgpack (required)")
	rootCmd.Flags().BoolVar(&compress, "compress", false, "zstd-compress csv output")
	rootCmd.Flags().BoolVar(&timestamps, "timestamps", false, "prepend a timestamp column (ns since epoch)")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "info", "log level: debug|info|warn|error")
	if err := rootCmd.MarkFlagRequired("format"); err != nil {
		panic(err)
	}

	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "bag2table:", err)
		return 2
	}
	if failed > 0 {
		return 1
	}
	return 0
}

func newLogger(logLevel string) log.Logger {
	logger := log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	logger = log.With(logger, "ts", log.DefaultTimestampUTC)

	var opt level.Option
	switch logLevel {
	case "debug":
		opt = level.AllowDebug()
	case "warn":
		opt = level.AllowWarn()
	case "error":
		opt = level.AllowError()
	default:
		opt = level.AllowInfo()
	}
	return level.NewFilter(logger, opt)
}
