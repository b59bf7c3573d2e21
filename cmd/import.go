package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var importCmd = &cobra.Command{
	Use:   "import <path>...",
	Short: "Add local audio files or folders to the library",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e := newEngine()
		e.Load()
		defer e.Close()

		added := 0
		for _, arg := range args {
			info, err := os.Stat(arg)
			if err != nil {
				return fmt.Errorf("stat %s: %w", arg, err)
			}

			if info.IsDir() {
				n, err := e.ImportFolder(arg)
				if err != nil {
					return err
				}
				added += n
			} else {
				added += e.ImportFiles([]string{arg})
			}
		}

		fmt.Printf("Added %d track(s)\n", added)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
}
