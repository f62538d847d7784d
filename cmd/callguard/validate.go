package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var errInvalidConfig = errors.New("configuration invalid")

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	Long: `Load the configuration from every source and report each problem found.

Examples:
  callguard validate --config callguard.yaml
  GOCOMMON_RATE_LIMIT_CALLS=0 callguard validate`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if _, err := loadConfig(); err != nil {
			for _, e := range unjoin(err) {
				fmt.Fprintf(out, "  - %v\n", e)
			}
			return errInvalidConfig
		}
		fmt.Fprintln(out, "configuration valid")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

// unjoin flattens an errors.Join tree into its leaves.
func unjoin(err error) []error {
	joined, ok := err.(interface{ Unwrap() []error })
	if !ok {
		return []error{err}
	}
	var out []error
	for _, e := range joined.Unwrap() {
		out = append(out, unjoin(e)...)
	}
	return out
}
