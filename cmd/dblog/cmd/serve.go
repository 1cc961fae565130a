/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newServeCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the REST API server",
		Long: `Start the dblog REST API server. Requests other than health and metrics
need the configured API key in the X-API-Key header.

Examples:
  dblog serve
  dblog serve --port 9000 --bind 0.0.0.0`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.serve(cmd)
		},
	}
	addListenFlags(cmd)
	return cmd
}

func addListenFlags(cmd *cobra.Command) {
	cmd.Flags().IntP("port", "p", 8080, "Port to listen on")
	cmd.Flags().String("bind", "127.0.0.1", "Address to bind to")
}

// serve runs the API server until SIGINT or SIGTERM.
func (c *cli) serve(cmd *cobra.Command) error {
	if cmd.Flags().Changed("port") {
		c.cfg.Port, _ = cmd.Flags().GetInt("port")
	}
	if cmd.Flags().Changed("bind") {
		c.cfg.Bind, _ = cmd.Flags().GetString("bind")
	}

	container, err := c.open()
	if err != nil {
		return err
	}
	defer container.Close()

	server, err := container.NewServer()
	if err != nil {
		return err
	}
	if c.cfg.Security.APIKey == "" {
		c.log.Warn().Msg("no API key configured, authentication is disabled")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c.log.Info().
		Str("addr", server.Addr()).
		Str("backend", c.cfg.Backend).
		Str("data_dir", c.cfg.DataDir).
		Msg("starting server")
	return server.Start(ctx)
}
