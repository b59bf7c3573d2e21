package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is set during build via -ldflags "-X github.com/songdeck/songdeck/cmd.Version=X.Y.Z"
var Version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the songdeck version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("songdeck v%s\n", Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
