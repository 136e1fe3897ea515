// File: cmd/version.go
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is stamped at build time via -ldflags.
var Version = "0.4.0-dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the ytghost version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "ytghost", Version)
	},
}
