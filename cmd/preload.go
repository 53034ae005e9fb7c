package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"taste3d/pkg/app"
)

// newPreloadCmd creates a new command that checks every asset loads
func newPreloadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "preload",
		Short: "Load every showcase photo, 3D model and portfolio image",
		Long: `Load every asset the site uses, the way the server does: showcase photos
all at once (stopping at the first failure), then each 3D model, then the
portfolio in batches. Exits non-zero when a photo or model cannot be loaded.`,
		Run: func(cmd *cobra.Command, args []string) {
			a, _ := mustApp(context.Background())
			defer a.Close()
			if err := preloadAll(cmd.Context(), a); err != nil {
				fmt.Printf("Preload failed: %v\n", err)
				os.Exit(1)
			}
		},
	}
}

// preloadAll loads the showcase and portfolio assets and prints a summary
func preloadAll(ctx context.Context, a *app.App) error {
	if ctx == nil {
		ctx = context.Background()
	}

	fmt.Println("Loading showcase photos...")
	if err := a.Showcase.LoadPhotos(ctx); err != nil {
		return err
	}

	fmt.Println("Loading 3D models...")
	for _, uri := range a.Showcase.ModelURIs() {
		asset, err := a.Scenes.Load(ctx, uri)
		if err != nil {
			return err
		}
		fmt.Printf("  %s: %d meshes, %d bytes\n", uri, asset.Meshes, len(asset.Data))
	}

	fmt.Println("Loading portfolio...")
	a.Gallery.LoadInitial(ctx)
	if err := a.Gallery.LoadRemainder(ctx); err != nil {
		return err
	}

	images := a.Gallery.Snapshot()
	fmt.Printf("Loaded %d photos, %d models, %d/%d portfolio images (%d cached)\n",
		len(a.Showcase.Items()), len(a.Showcase.ModelURIs()),
		len(images), len(a.Portfolio.Candidates), a.Preloader.Cache().Len())
	return nil
}
