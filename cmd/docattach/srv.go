package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"docattach/internal/config"
	"docattach/internal/filestore"
	"docattach/internal/server"
	"docattach/internal/store"
)

func newSrvCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "srv",
		Short: "Run the docattach API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg == nil {
				return fmt.Errorf("config not initialized")
			}
			if cfg.DBPath == "" {
				return fmt.Errorf("db path is required")
			}
			if cfg.FilesPath == "" {
				return fmt.Errorf("files path is required")
			}

			logger := slog.Default().With("component", "server")

			addr, err := server.ListenAddr(cfg.APIURL)
			if err != nil {
				return err
			}

			logger.Info("opening database", "path", cfg.DBPath)
			st, err := store.Open(cfg.DBPath)
			if err != nil {
				return err
			}
			defer st.Close()

			files, err := filestore.NewLocal(cfg.FilesPath)
			if err != nil {
				return err
			}

			srv := server.New(addr, st, files, logger, server.Options{
				MaxUploadBytes:     cfg.Attachments.MaxUploadBytes,
				MultipartMaxMemory: cfg.Attachments.MultipartMaxMemory,
				AllowedOrigins:     cfg.Server.AllowedOrigins,
			})

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return srv.ListenAndServe(ctx)
		},
	}
}
