// Package daemon implements the sync daemon: one long-lived process per
// local store that ferries operations between the local append-only log
// and a remote Carrier, exposing its status over the control channel in
// internal/ipc. Work is reactive (file-watcher wakeups with a polling
// fallback) rather than tight polling, and internal/lockfile enforces a
// single instance per store.
package daemon

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/wk-dev/wk/internal/configfile"
	"github.com/wk-dev/wk/internal/ids"
	"github.com/wk-dev/wk/internal/ipc"
	"github.com/wk-dev/wk/internal/lockfile"
	"github.com/wk-dev/wk/internal/oplog"
	"github.com/wk-dev/wk/internal/storage/sqlite"
	"github.com/wk-dev/wk/internal/transport"
)

// PIDFileName is the daemon's lock file within the store directory.
const PIDFileName = "daemon.pid"

// logLevel reads WK_LOG_LEVEL (trace/debug/info/warn/error), defaulting
// to info when unset or unparseable.
func logLevel() zerolog.Level {
	if lvl, err := zerolog.ParseLevel(os.Getenv("WK_LOG_LEVEL")); err == nil && lvl != zerolog.NoLevel {
		return lvl
	}
	return zerolog.InfoLevel
}

// Daemon ferries operations between a local store's oplog and a remote
// Carrier, and answers the CLI's control-channel queries.
type Daemon struct {
	dir   string
	store *sqlite.Store
	log   *oplog.Log
	clock *ids.Clock
	lock  *lockfile.PIDLock
	ipc   *ipc.Server
	zlog  zerolog.Logger

	carrier *carrierHandle
	cancel  context.CancelFunc

	status statusState
}

// New opens a Daemon rooted at dir. cfg selects the remote carrier; a nil
// cfg.Remote means this store has no configured remote and New returns an
// error for which ErrNoRemote reports true, since there is nothing for a
// daemon to ferry operations to.
func New(dir string, store *sqlite.Store, log *oplog.Log, clock *ids.Clock, cfg *configfile.Config) (*Daemon, error) {
	if cfg.Remote == nil {
		return nil, errNoRemote
	}
	lock, err := lockfile.Acquire(filepath.Join(dir, PIDFileName))
	if err != nil {
		return nil, fmt.Errorf("acquire daemon lock: %w", err)
	}
	srv, err := ipc.NewServer(ipc.SocketPath(dir))
	if err != nil {
		lock.Release()
		return nil, fmt.Errorf("start control socket: %w", err)
	}
	d := &Daemon{
		dir:    dir,
		store:  store,
		log:    log,
		clock:  clock,
		lock:   lock,
		ipc:    srv,
		zlog:   zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).Level(logLevel()).With().Timestamp().Str("store", store.Prefix).Logger(),
		status: statusState{carrierKind: carrierKind(cfg)},
	}
	d.carrier = newCarrierHandle(func() (transport.Carrier, error) { return d.dial(cfg) })
	d.wireControl()
	return d, nil
}

var errNoRemote = fmt.Errorf("store has no configured remote")

// ErrNoRemote reports whether err is the "no remote configured" sentinel.
func ErrNoRemote(err error) bool { return err == errNoRemote }

func carrierKind(cfg *configfile.Config) string {
	if cfg.Carrier() == configfile.CarrierStreaming {
		return "grpc"
	}
	return "git"
}

// stripScheme drops a leading "<scheme>://" so the gRPC dialer sees a bare
// host:port target.
func stripScheme(url string) string {
	if i := strings.Index(url, "://"); i >= 0 {
		return url[i+3:]
	}
	return url
}

func (d *Daemon) dial(cfg *configfile.Config) (transport.Carrier, error) {
	if cfg.Carrier() == configfile.CarrierStreaming {
		return transport.DialGRPC(context.Background(), stripScheme(cfg.Remote.URL))
	}
	return transport.NewGitCarrier(d.dir, cfg.Remote.URL, cfg.Remote.Branch)
}

// Run starts the send loop, receive loop, and control-channel server, and
// blocks until ctx is canceled or any of the three exits with an error.
func (d *Daemon) Run(ctx context.Context) error {
	defer d.lock.Release()
	defer d.ipc.Close()
	defer d.carrier.close()

	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		d.zlog.Warn().Err(err).Msg("file watcher unavailable, falling back to polling")
	} else {
		if err := watcher.Add(d.log.Path()); err != nil {
			// The log file may not exist yet on a brand-new store; watch the
			// directory instead so the first write still wakes the send loop.
			watcher.Add(d.dir)
		}
		defer watcher.Close()
	}

	g.Go(func() error { return d.sendLoop(ctx, watcher) })
	g.Go(func() error { return d.recvLoop(ctx) })
	g.Go(func() error {
		errCh := make(chan error, 1)
		go func() { errCh <- d.ipc.Serve() }()
		select {
		case <-ctx.Done():
			d.ipc.Close()
			return nil
		case err := <-errCh:
			if d.status.stopping() {
				return nil
			}
			return err
		}
	})

	return g.Wait()
}

// reconnectBackoff is the carrier redial schedule: base 100 ms, cap 30 s,
// full-jitter (RandomizationFactor 1 draws each wait from (0, 2*interval),
// this library's closest fit to rand(0, interval) jitter).
func (d *Daemon) reconnectBackoff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.RandomizationFactor = 1
	b.MaxInterval = 30 * time.Second
	b.MaxElapsedTime = 0 // retry forever; the daemon is long-lived
	return b
}
