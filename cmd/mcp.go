package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/propertyinbox/internal/property"
	"github.com/teemow/propertyinbox/internal/server"
	"github.com/teemow/propertyinbox/internal/tools/common"
	"github.com/teemow/propertyinbox/internal/tools/property_tools"
)

func newMCPCmd() *cobra.Command {
	var yolo bool

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the organizer tools over MCP stdio",
		Long: `Start a Model Context Protocol server on stdin/stdout exposing:
  - organize_property_mail: run the organizer once
  - property_folder_name: preview the folder name of a mail
  - simulate_investment: run the investment simulation

Safety Mode:
  By default, the server operates in read-only mode and refuses
  organize_property_mail. Use --yolo to enable it.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			a, err := newApp(ctx, cfg, logger, false)
			if err != nil {
				return err
			}
			defer a.close(context.Background())

			sc := server.NewServerContext(ctx, a)
			defer sc.Shutdown()

			mcpSrv := newMCPServer()
			if err := property_tools.RegisterPropertyTools(mcpSrv, property_tools.Deps{
				Server:    sc,
				Extractor: property.NewExtractor(cfg.Organizer.Placeholder),
				Location:  a.location,
				Instrumentation: common.Instrumentation{
					Metrics: a.provider.Metrics(),
					Audit:   a.audit,
				},
			}, !yolo); err != nil {
				return err
			}

			return runStdioServer(mcpSrv)
		},
	}

	cmd.Flags().BoolVar(&yolo, "yolo", false, "Enable organize_property_mail, which labels mail and writes to Drive. Default is read-only mode.")
	return cmd
}

func newMCPServer() *mcpserver.MCPServer {
	return mcpserver.NewMCPServer("propertyinbox", version,
		mcpserver.WithToolCapabilities(true),
	)
}

func runStdioServer(mcpSrv *mcpserver.MCPServer) error {
	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := mcpserver.ServeStdio(mcpSrv); err != nil {
			serverDone <- err
		}
	}()

	err := <-serverDone
	if err != nil {
		return fmt.Errorf("server stopped with error: %w", err)
	}
	return nil
}
