package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"taste3d/pkg/app"
)

// newListShowcaseCmd creates a new command for listing showcase items
func newListShowcaseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list-showcase",
		Short: "List all showcase items",
		Long:  `List the showcase items with their photo and 3D model.`,
		Run: func(cmd *cobra.Command, args []string) {
			a, _ := mustApp(context.Background())
			defer a.Close()
			listShowcase(a)
		},
	}
}

// listShowcase displays all showcase items
func listShowcase(a *app.App) {
	items := a.Showcase.Items()

	fmt.Println("Showcase Items:")
	fmt.Println("===============")

	for _, item := range items {
		fmt.Printf("%s (%s)\n", item.Label, item.ID)
		fmt.Printf("  Photo: %s\n", item.StaticAsset)
		fmt.Printf("  Model: %s (scale %g)\n", item.InteractiveAsset, item.Viewer.Scale)
		fmt.Println()
	}

	fmt.Printf("Total: %d items\n", len(items))
}
