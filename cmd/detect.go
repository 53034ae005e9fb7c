package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"taste3d/pkg/models"
	"taste3d/pkg/services"
)

// newDetectCmd creates a new command that classifies a user agent
func newDetectCmd() *cobra.Command {
	var glb, usdz, origin string

	cmd := &cobra.Command{
		Use:   "detect [user-agent]",
		Short: "Show how a browser would see the AR entry point",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			if origin == "" {
				cfg, err := LoadConfig()
				if err != nil {
					log.Fatalf("Failed to load configuration: %v", err)
				}
				origin = cfg.SiteOrigin
			}

			device := services.DetectDevice(args[0])
			launch := services.ARLaunchFor(device, models.ARAsset{GLB: glb, USDZ: usdz}, origin)

			fmt.Printf("Platform:  %s\n", launch.Platform)
			fmt.Printf("Mobile:    %t\n", device.Mobile)
			fmt.Printf("AR:        %t\n", launch.Enabled)
			fmt.Printf("Label:     %s\n", launch.Label)
			fmt.Printf("Hint:      %s\n", launch.Hint)
			if launch.Href != "" {
				fmt.Printf("Link:      %s\n", launch.Href)
			}
		},
	}

	cmd.Flags().StringVar(&glb, "glb", "/assets/ar/mozzarella.glb", "GLB path used for Scene Viewer")
	cmd.Flags().StringVar(&usdz, "usdz", "/assets/ar/mozzarella.usdz", "USDZ path used for Quick Look")
	cmd.Flags().StringVar(&origin, "origin", "", "Site origin (defaults to SITE_ORIGIN)")

	return cmd
}
