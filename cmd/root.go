package cmd

import (
	"context"
	"log"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"taste3d/pkg/app"
	"taste3d/pkg/config"
	"taste3d/pkg/logging"
)

// Configuration flags
var (
	bucketName  string
	portNumber  string
	assetsDir   string
	contentFile string
)

// NewRootCmd creates and returns the root command
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "taste3d",
		Short: "Taste3D serves the 3D menu showcase site",
		Long: `Taste3D is a command line application that serves the restaurant 3D menu
showcase site: photo/3D showcase, AR entry point, portfolio gallery and contact
form. Assets are read from a local directory or a Google Cloud Storage bucket.`,
	}

	// Define persistent flags that will be available for all commands
	rootCmd.PersistentFlags().StringVarP(&bucketName, "bucket", "b", "", "Set the BUCKET_NAME (overrides environment variable)")
	rootCmd.PersistentFlags().StringVarP(&portNumber, "port", "p", "", "Set the PORT (overrides environment variable)")
	rootCmd.PersistentFlags().StringVarP(&assetsDir, "assets", "a", "", "Set the ASSETS_DIR (overrides environment variable)")
	rootCmd.PersistentFlags().StringVarP(&contentFile, "content", "c", "", "Set the CONTENT_FILE (overrides environment variable)")

	// Add commands to root
	rootCmd.AddCommand(newListShowcaseCmd())
	rootCmd.AddCommand(newListPortfolioCmd())
	rootCmd.AddCommand(newExportCmd())
	rootCmd.AddCommand(newPreloadCmd())
	rootCmd.AddCommand(newDetectCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newGenerateThumbnailsCmd())

	return rootCmd
}

// LoadConfig loads configuration with respect to command line flags
func LoadConfig() (*config.Config, error) {
	// Set environment variables from flags if provided
	if bucketName != "" {
		os.Setenv("BUCKET_NAME", bucketName)
	}

	if portNumber != "" {
		os.Setenv("PORT", portNumber)
	}

	if assetsDir != "" {
		os.Setenv("ASSETS_DIR", assetsDir)
	}

	if contentFile != "" {
		os.Setenv("CONTENT_FILE", contentFile)
	}

	// Load configuration from environment variables (potentially set above)
	return config.Load()
}

// mustApp loads the configuration and builds the application, exiting on failure
func mustApp(ctx context.Context) (*app.App, *zap.Logger) {
	cfg, err := LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger, err := logging.New()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize", zap.Error(err))
	}
	return a, logger
}
