package cmd

import (
	"fmt"
	"os"

	"github.com/rohmanhakim/booth-archiver/internal/cache"
	"github.com/rohmanhakim/booth-archiver/pkg/hashutil"
	"github.com/spf13/cobra"
)

var cacheHashAlgo string

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect persisted cache files.",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats <file>",
	Short: "Print the entry count and content digest of a cache file.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadCacheFile(args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "File: %s\n", c.Path())
		fmt.Fprintf(out, "Entries: %d\n", c.Len())
		if digest := c.PersistedDigest(); digest != "" {
			fmt.Fprintf(out, "Digest: %s %s\n", cacheHashAlgo, digest)
		}
		return nil
	},
}

var cacheKeysCmd = &cobra.Command{
	Use:   "keys <file>",
	Short: "List the keys of a cache file in sorted order.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadCacheFile(args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for key := range c.Keys() {
			fmt.Fprintln(out, key)
		}
		return nil
	},
}

func init() {
	cacheCmd.PersistentFlags().StringVar(&cacheHashAlgo, "hash-algo", string(hashutil.HashAlgoSHA256), "digest algorithm: sha256 or blake3")
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheKeysCmd)
}

func loadCacheFile(path string) (*cache.Cache, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("cache file %s: %w", path, err)
	}
	algo, err := hashutil.ParseHashAlgo(cacheHashAlgo)
	if err != nil {
		return nil, err
	}
	c, loadErr := cache.NewWithPath(path, cache.WithHashAlgo(algo))
	if loadErr != nil {
		return nil, loadErr
	}
	return c, nil
}
