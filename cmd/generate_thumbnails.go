package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"taste3d/pkg/services"
)

// Command options
var (
	forceRegenerate bool
	maxThumbSize    uint
)

// newGenerateThumbnailsCmd creates a new command for generating portfolio thumbnails
func newGenerateThumbnailsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate-thumbnails",
		Short: "Generate thumbnails for portfolio images without existing thumbnails",
		Long:  `Generate downsized JPEG thumbnails under portfolio/thumbs/ for portfolio images that don't have one yet.`,
		Run: func(cmd *cobra.Command, args []string) {
			a, logger := mustApp(context.Background())
			defer a.Close()

			svc := services.NewThumbnailService(a.Store, maxThumbSize, logger.Named("thumbnails"))
			processed, failed, err := svc.BulkGenerateThumbnails(context.Background(), forceRegenerate)
			if err != nil {
				logger.Error("thumbnail generation stopped", zap.Error(err))
				os.Exit(1)
			}
			fmt.Printf("Generated %d thumbnails, %d failed\n", processed, failed)
			if failed > 0 {
				os.Exit(1)
			}
		},
	}

	// Add command-specific flags
	cmd.Flags().BoolVarP(&forceRegenerate, "force", "f", false, "Force regeneration of all thumbnails, even if they exist")
	cmd.Flags().UintVarP(&maxThumbSize, "max-size", "m", 480, "Maximum thumbnail width and height in pixels")

	return cmd
}
