package main

import (
	"github.com/spf13/cobra"

	"github.com/jward/rtview/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the snapshot over MCP on stdio",
	Long:  "Starts a Model Context Protocol server on stdin/stdout exposing the list_objects, show_declaration and decode_type tools.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEngine(true)
		if err != nil {
			return err
		}
		defer e.Close()
		return server.New(e, cfg).Run(cmd.Context())
	},
}
