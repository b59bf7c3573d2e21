package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/songdeck/songdeck/internal/cache"
	"github.com/songdeck/songdeck/internal/engine"
	"github.com/songdeck/songdeck/internal/linkres"
	"github.com/songdeck/songdeck/internal/state"
	"github.com/songdeck/songdeck/internal/tagreader"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <url>",
	Short: "Resolve a link, cache its audio, and add it to the library",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e := newEngine()
		e.Load()
		defer e.Close()

		track, err := e.PrepareLinkTrack(cmd.Context(), args[0])
		if err != nil {
			var resolveErr *linkres.ResolveError
			if errors.As(err, &resolveErr) {
				return fmt.Errorf("%s", resolveErr.Warning())
			}
			return err
		}

		fmt.Printf("Title:    %s\n", track.Title)
		if track.Artist != "" {
			fmt.Printf("Artist:   %s\n", track.Artist)
		}
		fmt.Printf("Source:   %s (%s)\n", track.SourceURL, linkres.DisplayLabel(track.SourcePlatform))
		fmt.Printf("Cached:   %s\n", track.CachedFilePath)
		return nil
	},
}

// newEngine wires the full resolution pipeline from the loaded config
func newEngine() *engine.Engine {
	provisioner := linkres.NewProvisioner(cfg.Resolution.ProvisionTimeout, log)
	chain := linkres.NewChain(provisioner, linkres.ChainOptions{
		AttemptTimeout: cfg.Resolution.AttemptTimeout,
		BinaryPath:     cfg.Resolution.BinaryPath,
		PythonPath:     cfg.Resolution.PythonPath,
	}, log)

	downloader := cache.NewDownloader(cfg.Resolution.DownloadTimeout, log)
	covers := linkres.NewThumbnailFetcher(cfg.Resolution.ThumbnailTimeout, log)
	builder := linkres.NewBuilder(chain, downloader, covers, cfg.Paths.CacheDir, log)

	store := state.NewStore(cfg.Paths.StateFile, log)
	saver := state.NewSaver(store, 0, log)

	return engine.New(store, saver, builder, tagreader.NewReader(log), log)
}

func init() {
	rootCmd.AddCommand(resolveCmd)
}
