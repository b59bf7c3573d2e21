package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/songdeck/songdeck/internal/cache"
	"github.com/songdeck/songdeck/internal/platform"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect the downloaded audio cache",
}

var cacheLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List cached audio files",
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, err := cache.List(cfg.Paths.CacheDir)
		if err != nil {
			if os.IsNotExist(err) {
				fmt.Println("cache is empty")
				return nil
			}
			return err
		}

		if len(entries) == 0 {
			fmt.Println("cache is empty")
			return nil
		}
		for _, entry := range entries {
			info, err := os.Stat(entry)
			if err != nil {
				continue
			}
			fmt.Printf("%10d  %s\n", info.Size(), filepath.Base(entry))
		}
		return nil
	},
}

var cacheOpenCmd = &cobra.Command{
	Use:   "open <url>",
	Short: "Reveal a link's cached audio file in the file manager",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key := cache.Key(args[0])
		path, ok := cache.Find(cfg.Paths.CacheDir, key)
		if !ok {
			return fmt.Errorf("no cached audio for %s", args[0])
		}
		return platform.Reveal(path)
	},
}

var cachePlayCmd = &cobra.Command{
	Use:   "play <url>",
	Short: "Open a link's cached audio file with the default player",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key := cache.Key(args[0])
		path, ok := cache.Find(cfg.Paths.CacheDir, key)
		if !ok {
			return fmt.Errorf("no cached audio for %s", args[0])
		}
		return platform.OpenWithDefaultApp(path)
	},
}

func init() {
	cacheCmd.AddCommand(cacheLsCmd)
	cacheCmd.AddCommand(cacheOpenCmd)
	cacheCmd.AddCommand(cachePlayCmd)
	rootCmd.AddCommand(cacheCmd)
}
