package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cgast/uiverify/internal/inspector"
	"github.com/cgast/uiverify/pkg/events"
	"github.com/cgast/uiverify/pkg/history"
)

func newServeCommand(g *globalOptions) *cobra.Command {
	var port int
	var outputDir string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Browse past runs and their screenshots in the inspector",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if cmd.Flags().Changed("port") {
				cfg.Inspector.Port = port
			}
			if cmd.Flags().Changed("output-dir") {
				cfg.Output.Dir = outputDir
			}
			log := g.logger(cmd, cfg)

			store, err := history.NewBoltStore(history.DefaultPath(g.configDir))
			if err != nil {
				return err
			}
			defer store.Close()

			srv := inspector.New(events.NewMemoryBus(), store, cfg.Output.Dir)
			defer srv.Close()
			addr := fmt.Sprintf("127.0.0.1:%d", cfg.Inspector.Port)
			log.Infof("Inspector running at http://%s (artifacts from %s)", addr, cfg.Output.Dir)
			return srv.Start(cmd.Context(), addr)
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "port to listen on (default from config)")
	cmd.Flags().StringVar(&outputDir, "output-dir", "", "artifact directory to serve")
	return cmd
}
