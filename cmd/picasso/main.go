// Package main is the entry point for the picasso command.
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/lemonberrylabs/picasso/pkg/expr"
)

// Set via -ldflags at build time.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "picasso",
	Short: "Render images from picasso expressions",
	Long: `picasso evaluates expressions over x, y in [-1, 1] (and time t) to
produce images. Run "picasso repl" for an interactive session or
"picasso serve" for the HTTP and gRPC API.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.Version = version + " (commit=" + commit + ", built=" + date + ")"
	rootCmd.SetVersionTemplate("picasso version {{.Version}}\n")

	rootCmd.PersistentFlags().String("images-dir", "", "Directory for image files named in expressions (default images, env PICASSO_IMAGES_DIR)")
	rootCmd.PersistentFlags().Int("workers", 0, "Rows rendered concurrently (default GOMAXPROCS)")

	rootCmd.AddCommand(newRenderCmd(), newEvalCmd(), newTokensCmd(), newBatchCmd(), newServeCmd(), newReplCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// imagesDir resolves the image directory from the flag, then the
// environment, then the default.
func imagesDir(cmd *cobra.Command) string {
	if v, _ := cmd.Flags().GetString("images-dir"); v != "" {
		return v
	}
	return envOrDefault("PICASSO_IMAGES_DIR", expr.DefaultImageDir)
}
