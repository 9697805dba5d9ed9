package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the propertyinbox application
var rootCmd = &cobra.Command{
	Use:   "propertyinbox",
	Short: "Files property listing mail into Google Drive folders",
	Long: `propertyinbox reads 販売図面 and 住宅地図・路線価図 mail from Gmail, files the
attachments into one Drive folder per property and, for sales floorplans,
writes an evaluation report next to them.

It can run as:
  - A service with an HTTP trigger and an hourly schedule (default)
  - A one-shot CLI run
  - An MCP (Model Context Protocol) server for AI assistants`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// configFile is the --config flag shared by all commands
var configFile string

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "propertyinbox version %s\n" .Version}}`)

	// If no subcommand is provided, run the service
	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to a YAML config file (default: ./config.yaml or ~/.config/propertyinbox/config.yaml)")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newMCPCmd())
	rootCmd.AddCommand(newAuthCmd())
	rootCmd.AddCommand(newSimulateCmd())
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newGenerateDocsCmd())
}
