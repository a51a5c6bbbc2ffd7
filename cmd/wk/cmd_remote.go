package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/wk-dev/wk/internal/configfile"
	"github.com/wk-dev/wk/internal/daemon"
	"github.com/wk-dev/wk/internal/ipc"
	"github.com/wk-dev/wk/internal/werr"
)

// newRemoteCmd groups the sync daemon's control-channel verbs: sync,
// status, and stop. sync and status auto-spawn a daemon for this store if
// none is already running (status first reports "not applicable" for a
// store with no remote); stop only contacts a daemon that is already
// running.
func newRemoteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remote",
		Short: "Control this store's sync daemon",
	}
	cmd.AddCommand(newRemoteSyncCmd(), newRemoteStatusCmd(), newRemoteStopCmd(), newDaemonRunCmd())
	return cmd
}

func newRemoteSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Start the sync daemon if needed and confirm it is syncing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ensureDaemon(rootCtx)
			if err != nil {
				return err
			}
			resp, err := client.Sync()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "sync triggered: %v\n", resp.Triggered)
			return nil
		},
	}
}

func newRemoteStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Report the sync daemon's connection state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := flagPath
			if dir == "" {
				dir = findStoreDir()
			} else {
				dir = joinStoreDir(dir)
			}
			if dir == "" {
				return errNotInitialized
			}
			cfg, err := configfile.Load(dir)
			if err != nil {
				return err
			}
			if cfg.Carrier() == configfile.CarrierNone {
				fmt.Fprintln(cmd.OutOrStdout(), "state: not applicable (no [remote] configured)")
				return nil
			}

			client, err := ensureDaemon(rootCtx)
			if err != nil {
				return err
			}
			resp, err := client.Status()
			if err != nil {
				return err
			}
			state := "disconnected"
			if resp.Connected {
				state = "connected"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "state: %s\ncarrier: %s\npending ops: %d\n",
				state, resp.CarrierKind, resp.QueueDepth)
			if !resp.LastSyncAt.IsZero() {
				fmt.Fprintf(cmd.OutOrStdout(), "last sync: %s\n", resp.LastSyncAt.Format(time.RFC3339))
			}
			if resp.LastSyncError != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "last sync error: %s\n", resp.LastSyncError)
			}
			return nil
		},
	}
}

func newRemoteStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Ask the sync daemon to cancel its sync loops and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := flagPath
			if dir == "" {
				dir = findStoreDir()
			} else {
				dir = joinStoreDir(dir)
			}
			if dir == "" {
				return errNotInitialized
			}
			socketPath := ipc.SocketPath(dir)
			if !ipc.Reachable(socketPath) {
				fmt.Fprintln(cmd.OutOrStdout(), "no daemon running")
				return nil
			}
			client := ipc.NewClient(socketPath)
			resp, err := client.Stop()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "stopping: %v\n", resp.Stopping)
			return nil
		},
	}
}

func joinStoreDir(projectDir string) string {
	dir := filepath.Join(projectDir, storeDirName)
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return ""
	}
	return dir
}

// ensureDaemon contacts the running daemon for the current store,
// auto-spawning one in the background if none answers, so any command
// that needs sync works without a separate daemon-start step.
func ensureDaemon(ctx context.Context) (*ipc.Client, error) {
	dir := flagPath
	if dir == "" {
		dir = findStoreDir()
	} else {
		dir = joinStoreDir(dir)
	}
	if dir == "" {
		return nil, errNotInitialized
	}

	cfg, err := configfile.Load(dir)
	if err != nil {
		return nil, err
	}
	if cfg.Carrier() == configfile.CarrierNone {
		return nil, werr.New(werr.InvalidInput, "this store has no [remote] configured (see `wk init --remote`)")
	}

	socketPath := ipc.SocketPath(dir)
	if !ipc.Reachable(socketPath) {
		if err := spawnDaemon(dir); err != nil {
			return nil, err
		}
	}
	client := ipc.NewClient(socketPath)
	if _, err := client.Hello(ipc.ProtocolVersion); err != nil {
		if !errors.Is(err, werr.VersionMismatch) {
			return nil, err
		}
		// A daemon left over from a previous binary: stop it, respawn with
		// this binary, and handshake again, so a version mismatch never
		// surfaces as a command failure.
		if _, err := client.Stop(); err != nil {
			return nil, err
		}
		deadline := time.Now().Add(2 * time.Second)
		for ipc.Reachable(socketPath) && time.Now().Before(deadline) {
			time.Sleep(50 * time.Millisecond)
		}
		if err := spawnDaemon(dir); err != nil {
			return nil, err
		}
		if _, err := client.Hello(ipc.ProtocolVersion); err != nil {
			return nil, err
		}
	}
	return client, nil
}

// spawnDaemon re-execs the current binary as a detached `wk remote
// __daemon-run` process bound to dir, then polls the control socket until
// it answers or the deadline passes.
func spawnDaemon(dir string) error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("locate wk binary: %w", err)
	}
	cmd := exec.Command(exe, "remote", "__daemon-run", "--path", storeProjectDir(dir))
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("spawn daemon: %w", err)
	}
	if err := cmd.Process.Release(); err != nil {
		return fmt.Errorf("detach daemon: %w", err)
	}

	socketPath := ipc.SocketPath(dir)
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if ipc.Reachable(socketPath) {
			return nil
		}
		time.Sleep(50 * time.Millisecond)
	}
	return werr.New(werr.TransportError, "daemon did not become reachable")
}

// storeProjectDir strips the trailing storeDirName component a .wk store
// dir carries, so the re-exec'd daemon process can be handed the project
// root the same way --path already expects.
func storeProjectDir(storeDir string) string {
	if filepath.Base(storeDir) == storeDirName {
		return filepath.Dir(storeDir)
	}
	return storeDir
}

// newDaemonRunCmd is the hidden entrypoint spawnDaemon re-execs into: it
// runs the sync daemon in the foreground until stopped or signaled,
// keeping the daemon a separate process instead of a fork of the CLI's
// own process lifetime.
func newDaemonRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:    "__daemon-run",
		Hidden: true,
		Args:   cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(rootCtx, flagPath)
			if err != nil {
				return err
			}
			defer e.Close()

			d, err := daemon.New(e.dir, e.store, e.log, e.clock, e.cfg)
			if err != nil {
				if daemon.ErrNoRemote(err) {
					return werr.New(werr.InvalidInput, "this store has no [remote] configured")
				}
				return err
			}
			return d.Run(rootCtx)
		},
	}
	return cmd
}
