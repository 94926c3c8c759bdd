package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/rohmanhakim/booth-archiver/internal/build"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces the environment variables read for secrets.
const EnvPrefix = "BOOTH"

var (
	cfgFile   string
	logLevel  string
	logFile   string
	logFormat string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "booth-archiver",
	Short: "Archive a BOOTH wishlist into a spreadsheet.",
	Long: `booth-archiver reads every page of a BOOTH wishlist, fetches each wished
item, optionally machine-translates names and descriptions, and writes one
row per item to an xlsx workbook.

Fetched pages and translations are cached on disk, so re-running an archive
only touches what changed.`,
	Version:       build.FullVersion(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

// ExecuteArgs runs the command tree with args, writing output to out.
func ExecuteArgs(args []string, out io.Writer) error {
	rootCmd.SetArgs(args)
	rootCmd.SetOut(out)
	rootCmd.SetErr(out)
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	}()
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config-file", "", "config file path, JSON, YAML or TOML (e.g., ./booth.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "write logs to this rotating file instead of stdout")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: json or text")

	rootCmd.AddCommand(archiveCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(versionCmd)
}

// newEnv binds BOOTH_* environment variables. Keys are lower snake case:
// "openai_api_key" reads BOOTH_OPENAI_API_KEY.
func newEnv() *viper.Viper {
	env := viper.New()
	env.SetEnvPrefix(EnvPrefix)
	env.AutomaticEnv()
	return env
}
