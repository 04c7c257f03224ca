package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lemonberrylabs/picasso/pkg/api"
	grpcapi "github.com/lemonberrylabs/picasso/pkg/api/grpc"
	"github.com/lemonberrylabs/picasso/pkg/render"
	"github.com/lemonberrylabs/picasso/pkg/store"
	"github.com/lemonberrylabs/picasso/web"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the REST API, the gRPC Renderer service and the web UI",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	cmd.Flags().Int("port", 0, "HTTP server port (default 8787, env PORT)")
	cmd.Flags().Int("grpc-port", 0, "gRPC server port (default 8788, env GRPC_PORT)")
	cmd.Flags().String("host", "", "Bind address (default 0.0.0.0, env HOST)")
	cmd.Flags().String("programs-dir", "", "Directory of .exp programs to deploy at startup (env PROGRAMS_DIR)")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	port := envOrDefault("PORT", "8787")
	if v, _ := cmd.Flags().GetInt("port"); v != 0 {
		port = fmt.Sprintf("%d", v)
	}

	grpcPort := envOrDefault("GRPC_PORT", "8788")
	if v, _ := cmd.Flags().GetInt("grpc-port"); v != 0 {
		grpcPort = fmt.Sprintf("%d", v)
	}

	host := envOrDefault("HOST", "0.0.0.0")
	if v, _ := cmd.Flags().GetString("host"); v != "" {
		host = v
	}

	programsDir := os.Getenv("PROGRAMS_DIR")
	if v, _ := cmd.Flags().GetString("programs-dir"); v != "" {
		programsDir = v
	}

	workers, _ := cmd.Flags().GetInt("workers")
	cfg := api.Config{
		ImagesDir: imagesDir(cmd),
		Render:    render.Options{Workers: workers},
	}

	addr := fmt.Sprintf("%s:%s", host, port)
	grpcAddr := fmt.Sprintf("%s:%s", host, grpcPort)

	s := store.New()
	server := api.New(s, cfg)

	if programsDir != "" {
		log.Printf("Loading programs from %s", programsDir)
		if err := server.LoadDir(programsDir); err != nil {
			log.Printf("Warning: failed to load programs directory: %v", err)
		}
	}

	web.New(s).Register(server.App())

	grpcServer := grpcapi.New(s, cfg)
	go func() {
		log.Printf("gRPC server listening on %s", grpcAddr)
		if err := grpcServer.Serve(grpcAddr); err != nil {
			log.Fatalf("gRPC server error: %v", err)
		}
	}()

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Println("Shutting down picasso...")
		grpcServer.GracefulStop()
		if err := server.Shutdown(); err != nil {
			log.Printf("Error during shutdown: %v", err)
		}
	}()

	log.Printf("Picasso listening on %s (images=%s)", addr, cfg.ImagesDir)
	return server.Listen(addr)
}
