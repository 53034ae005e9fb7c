package cmd

import (
	"context"
	"fmt"
	"path"

	"github.com/spf13/cobra"

	"taste3d/pkg/app"
)

// newListPortfolioCmd creates a new command for listing portfolio images
func newListPortfolioCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list-portfolio",
		Short: "List all portfolio images",
		Long:  `List the portfolio images in display order, with their thumbnails.`,
		Run: func(cmd *cobra.Command, args []string) {
			a, _ := mustApp(context.Background())
			defer a.Close()
			listPortfolio(a)
		},
	}
}

// listPortfolio displays the discovered portfolio images
func listPortfolio(a *app.App) {
	index := a.Portfolio

	fmt.Println("Portfolio Images:")
	fmt.Println("=================")

	for i, name := range index.Candidates {
		fmt.Printf("%3d. %s\n", i+1, path.Base(name))
		if thumb, ok := index.Thumbnails[name]; ok {
			fmt.Printf("     Thumbnail: %s\n", thumb)
		}
	}

	fmt.Printf("\nTotal: %d images, %d with thumbnails\n", len(index.Candidates), len(index.Thumbnails))
}
