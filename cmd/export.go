package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"taste3d/pkg/app"
	"taste3d/pkg/models"
)

// siteExport is the exported view of the site content
type siteExport struct {
	Hero      models.Hero        `json:"hero"`
	Showcase  []models.MediaItem `json:"showcase"`
	AR        models.ARAsset     `json:"ar"`
	Services  []models.Service   `json:"services"`
	Contact   models.ContactInfo `json:"contact"`
	Portfolio []string           `json:"portfolio"`
}

// newExportCmd creates a new command for exporting site data
func newExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export [format]",
		Short: "Export site data",
		Long:  `Export the site content and portfolio listing in the specified format. Currently supported formats: json.`,
		Args:  cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			format := "json"
			if len(args) > 0 {
				format = args[0]
			}
			if format != "json" {
				fmt.Printf("Unsupported export format: %s\n", format)
				fmt.Println("Supported formats: json")
				os.Exit(1)
			}

			a, _ := mustApp(context.Background())
			defer a.Close()
			exportData(a)
		},
	}
}

// exportData prints the site data as JSON
func exportData(a *app.App) {
	data, err := json.MarshalIndent(siteExport{
		Hero:      a.Site.Hero,
		Showcase:  a.Site.Items,
		AR:        a.Site.AR,
		Services:  a.Site.Services,
		Contact:   a.Site.Contact,
		Portfolio: a.Portfolio.Candidates,
	}, "", "  ")
	if err != nil {
		fmt.Printf("Error marshaling data: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(string(data))
}
