package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dshills/docsearch-mcp/internal/mcp"
	"github.com/dshills/docsearch-mcp/internal/storage"
)

func newServeCommand(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(v)
			if err != nil {
				return err
			}

			logger.Info("Starting docsearch MCP server",
				"version", version,
				"build_mode", storage.BuildMode,
				"driver", storage.DriverName,
				"vector_extension", storage.VectorExtensionAvailable)

			server, err := mcp.NewServer(cfg, logger)
			if err != nil {
				return fmt.Errorf("failed to create MCP server: %w", err)
			}
			defer server.Close()

			if err := server.Serve(cmd.Context()); err != nil {
				return fmt.Errorf("server error: %w", err)
			}

			logger.Info("Server stopped")
			return nil
		},
	}
}
