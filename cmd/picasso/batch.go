package main

import (
	"context"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/lemonberrylabs/picasso/pkg/manifest"
	"github.com/lemonberrylabs/picasso/pkg/render"
)

func newBatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "batch <manifest>",
		Short: "Render every job in a YAML or TOML manifest",
		Long: `batch renders the jobs listed in a manifest file. Manifests ending in
.toml are read as TOML, anything else as YAML. Relative paths resolve
against the manifest's directory.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := manifest.Load(args[0])
			if err != nil {
				return err
			}
			workers, _ := cmd.Flags().GetInt("workers")
			if cmd.Flags().Changed("images-dir") {
				m.ImagesDir = imagesDir(cmd)
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			results, err := m.Run(ctx, filepath.Dir(args[0]), render.Options{Workers: workers})
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			failed := 0
			for _, r := range results {
				status := "ok"
				if r.Err != nil {
					status = r.Err.Error()
					failed++
				}
				fmt.Fprintf(tw, "%s\t%s\t%d frame(s)\t%s\n", r.Name, r.Output, r.Frames, status)
			}
			tw.Flush()
			if err != nil {
				return err
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d render(s) failed", failed, len(results))
			}
			return nil
		},
	}
}
