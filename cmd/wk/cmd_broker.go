package main

import (
	"fmt"
	"net"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/keepalive"

	"github.com/wk-dev/wk/internal/broker"
	"github.com/wk-dev/wk/internal/oplog"
)

// newBrokerCmd runs the Broker Server: a standalone process a
// fleet of daemons can all point their [remote] URL at when they can't
// reach each other directly. It is the entrypoint internal/broker needs,
// kept as a `wk broker` subcommand rather than a second binary so the
// distributed tool stays a single artifact to build and ship.
func newBrokerCmd() *cobra.Command {
	var listen, journalDir, sidecarConfig string
	cmd := &cobra.Command{
		Use:   "broker",
		Short: "Run the central sync broker",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			srv, err := broker.NewServer(journalDir)
			if err != nil {
				return err
			}
			defer srv.Close()

			ln, err := net.Listen("tcp", listen)
			if err != nil {
				return fmt.Errorf("listen on %s: %w", listen, err)
			}

			// Clients ping every 30s; the default enforcement policy would
			// GOAWAY them for pinging more often than every 5 minutes.
			grpcServer := grpc.NewServer(grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{
				MinTime:             10 * time.Second,
				PermitWithoutStream: true,
			}))
			srv.Register(grpcServer)

			if sidecarConfig != "" {
				cfg, err := broker.LoadSidecarConfig(sidecarConfig)
				if err != nil {
					return err
				}
				go func() {
					_ = broker.RunSidecar(rootCtx, cfg, filepath.Join(journalDir, oplog.FileName))
				}()
			}

			fmt.Fprintf(cmd.OutOrStdout(), "broker listening on %s, journal at %s\n", listen, journalDir)
			go func() {
				<-rootCtx.Done()
				grpcServer.GracefulStop()
			}()
			return grpcServer.Serve(ln)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", ":7777", "address to listen on")
	cmd.Flags().StringVar(&journalDir, "journal", ".", "directory for the broker's durable operation journal")
	cmd.Flags().StringVar(&sidecarConfig, "sidecar-config", "", "path to a sidecar.yaml enabling periodic git snapshots of the journal")
	return cmd
}
