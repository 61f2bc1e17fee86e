package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/ayusman/repwatch/internal/server"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	var addr, staticDir string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the sessions API without running a session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("http") {
				cfg.HTTP.Addr = addr
			}
			if cmd.Flags().Changed("static") {
				cfg.HTTP.StaticDir = staticDir
			}

			logger, err := root.logger(cfg)
			if err != nil {
				return err
			}
			defer logger.Sync()

			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			srv := server.New(server.Config{
				StaticDir: cfg.HTTP.StaticDir,
				Store:     st,
				Gatherer:  prometheus.DefaultGatherer,
				Logger:    logger,
			})
			return srv.ListenAndServe(cmd.Context(), cfg.HTTP.Addr)
		},
	}

	cmd.Flags().StringVar(&addr, "http", "", "listen address (default from config, :8080)")
	cmd.Flags().StringVar(&staticDir, "static", "", "directory of static files to serve at /")
	return cmd
}
