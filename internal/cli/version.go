package cmd

import (
	"fmt"

	"github.com/rohmanhakim/booth-archiver/internal/build"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information.",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "booth-archiver %s (built %s)\n", build.FullVersion(), build.BuildTime)
	},
}
