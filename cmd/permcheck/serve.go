package main

import (
	"github.com/spf13/cobra"

	"github.com/dev-mohitbeniwal/permcheck/config"
	logger "github.com/dev-mohitbeniwal/permcheck/logging"
	"github.com/dev-mohitbeniwal/permcheck/server"
)

func newServeCmd() *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger.InitLogger(config.GetString("log.dir"))
			defer logger.Sync()

			if port == "" {
				port = config.GetString("server.port")
			}

			srv, err := server.Bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer srv.Close()

			return srv.ListenAndServe(cmd.Context(), port)
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "", "Listen port (default from server.port)")
	return cmd
}
