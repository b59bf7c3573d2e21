package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/songdeck/songdeck/internal/state"
)

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Inspect the persisted library state",
}

var stateCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Load, sanitize, and summarize the library state",
	RunE: func(cmd *cobra.Command, args []string) error {
		store := state.NewStore(cfg.Paths.StateFile, log)
		st := store.Load()

		tracks := 0
		for _, pl := range st.Playlists {
			tracks += len(pl.Tracks)
		}

		fmt.Printf("State file: %s\n", store.Path())
		fmt.Printf("Playlists:  %d (%d tracks)\n", len(st.Playlists), tracks)
		fmt.Printf("Active:     %s\n", st.ActivePlaylistID)
		fmt.Printf("Liked:      %d\n", len(st.LikedTrackIDs))
		fmt.Printf("Volume:     %.2f\n", st.Volume)
		return nil
	},
}

func init() {
	stateCmd.AddCommand(stateCheckCmd)
	rootCmd.AddCommand(stateCmd)
}
