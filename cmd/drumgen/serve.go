package main

import (
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/christianjuth/drum-music-generator/internal/server"
)

var (
	serveAddr    string
	serveMute    bool
	serveOrigins []string
)

func init() {
	f := serveCmd.Flags()
	f.StringVar(&serveAddr, "addr", ":8080", "listen address")
	f.BoolVar(&serveMute, "mute", false, "run the transport without audio output")
	f.StringSliceVar(&serveOrigins, "origin", []string{"*"}, "allowed CORS origins")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve [groove.yml]",
	Short: "Serve the transport and score over HTTP",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := loadGroove(cmd, args)
		if err != nil {
			return err
		}
		factory := speakerFactory(g.Bus)
		if serveMute {
			factory = nil
		}
		m, err := newMachine(g, factory)
		if err != nil {
			return err
		}
		defer m.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()
		srv := server.New(m, server.WithLogger(log), server.WithAllowedOrigins(serveOrigins...))
		return srv.ListenAndServe(ctx, serveAddr)
	},
}
