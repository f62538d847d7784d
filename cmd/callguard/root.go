package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fsn-capital/gocommon/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "callguard",
	Short: "Exercise rate limited, retrying outbound calls",
	Long: `Callguard runs a simulated remote API behind the gocommon resilience stack:
a windowed rate limiter admits calls, a retrier backs off on failures, and
both report to OpenTelemetry metrics, structured logs and health endpoints.

Configuration is read from defaults, the --config YAML file, a .env file
and GOCOMMON_* environment variables, in that order.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
}

func loadConfig() (*config.Config, error) {
	return config.Load(cfgFile)
}
