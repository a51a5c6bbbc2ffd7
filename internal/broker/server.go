// Package broker implements the optional Broker Server: a central gRPC
// relay for peers that cannot reach each other directly. Each connecting
// daemon's Sync stream is replayed the broker's whole durable journal,
// then kept open for bidirectional fan-out of new operations, the same
// full-log anti-entropy model internal/transport's carriers use, just
// centralized instead of peer-to-peer. The hand-rolled ServiceDesc lives
// in internal/transport and is shared rather than duplicated here.
package broker

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"

	"github.com/wk-dev/wk/internal/oplog"
	"github.com/wk-dev/wk/internal/transport"
	"github.com/wk-dev/wk/internal/types"
)

// fanoutBuffer bounds how many unsent operations a slow client can fall
// behind by before the broker disconnects it, rather than letting one slow
// reader apply backpressure to every other client.
const fanoutBuffer = 256

// Server is the broker side of the Sync RPC, durably logging every
// operation it receives from any client and rebroadcasting it to every
// other connected client.
type Server struct {
	journal *oplog.Log
	zlog    zerolog.Logger

	mu      sync.Mutex
	seen    map[string]bool
	clients map[*client]struct{}
}

type client struct {
	id        string
	out       chan types.Operation
	done      chan struct{}
	closeOnce sync.Once
}

func (c *client) stop() {
	c.closeOnce.Do(func() { close(c.done) })
}

// NewServer opens (or creates) a durable journal at dir and returns a
// broker ready to register with a *grpc.Server.
func NewServer(dir string) (*Server, error) {
	j, err := oplog.Open(dir)
	if err != nil {
		return nil, fmt.Errorf("open broker journal: %w", err)
	}
	ops, err := j.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read broker journal: %w", err)
	}
	seen := make(map[string]bool, len(ops))
	for _, op := range ops {
		seen[op.OpID] = true
	}
	zlog := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(logLevel()).With().Timestamp().Logger()
	return &Server{journal: j, zlog: zlog, seen: seen, clients: make(map[*client]struct{})}, nil
}

// Register wires this broker into s under the shared sync ServiceDesc.
func (b *Server) Register(s *grpc.Server) {
	transport.RegisterSyncServiceServer(s, b)
}

// Close releases the durable journal's file handle.
func (b *Server) Close() error {
	return b.journal.Close()
}

// Sync implements transport.SyncServer: it replays the current journal to
// the new client, registers it for fan-out, and then runs reader/writer
// loops until the stream ends.
func (b *Server) Sync(stream grpc.ServerStream) error {
	carrier := transport.NewServerCarrier(stream)
	ctx := stream.Context()

	c := b.addClient()
	defer b.removeClient(c)
	b.zlog.Info().Str("client", c.id).Msg("client connected")
	defer b.zlog.Info().Str("client", c.id).Msg("client disconnected")

	if err := b.replay(ctx, carrier); err != nil {
		return err
	}

	// readFromClient and writeToClient race on the same stream's two
	// independent directions (one goroutine only ever calls RecvMsg, the
	// other only SendMsg, which grpc.ServerStream allows concurrently).
	// Sync returns as soon as either direction fails or c.stop fires; it
	// does not wait for the other goroutine to notice, since that
	// goroutine's blocking call (typically Recv) only unblocks once the
	// stream itself is torn down, which happens when this handler returns.
	errCh := make(chan error, 2)
	go func() { errCh <- b.readFromClient(ctx, carrier, c) }()
	go func() { errCh <- b.writeToClient(ctx, carrier, c) }()

	err := <-errCh
	c.stop()
	return err
}

func (b *Server) replay(ctx context.Context, carrier transport.Carrier) error {
	ops, err := b.journal.ReadAll()
	if err != nil {
		return fmt.Errorf("replay journal: %w", err)
	}
	for _, op := range ops {
		if err := carrier.Send(ctx, op); err != nil {
			return fmt.Errorf("replay operation %s: %w", op.OpID, err)
		}
	}
	return nil
}

func (b *Server) readFromClient(ctx context.Context, carrier transport.Carrier, self *client) error {
	for {
		op, err := carrier.Recv(ctx)
		if err != nil {
			return err
		}
		if b.record(op) {
			b.broadcast(op, self)
		}
	}
}

func (b *Server) writeToClient(ctx context.Context, carrier transport.Carrier, self *client) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-self.done:
			return nil
		case op := <-self.out:
			if err := carrier.Send(ctx, op); err != nil {
				return err
			}
		}
	}
}

// record appends op to the durable journal if it has not already been
// seen, returning true when it was newly recorded (and should therefore
// be fanned out).
func (b *Server) record(op types.Operation) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.seen[op.OpID] {
		return false
	}
	if err := b.journal.Append(op); err != nil {
		return false
	}
	b.seen[op.OpID] = true
	return true
}

func (b *Server) addClient() *client {
	b.mu.Lock()
	defer b.mu.Unlock()
	c := &client{id: uuid.NewString(), out: make(chan types.Operation, fanoutBuffer), done: make(chan struct{})}
	b.clients[c] = struct{}{}
	return c
}

func (b *Server) removeClient(c *client) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.clients, c)
}

// broadcast fans op out to every client but self. A client whose buffer is
// already full is disconnected rather than blocking the broadcaster or the
// other clients; a disconnected client resynchronizes from the journal
// replay when it reconnects.
func (b *Server) broadcast(op types.Operation, self *client) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for c := range b.clients {
		if c == self {
			continue
		}
		select {
		case c.out <- op:
		default:
			b.zlog.Warn().Str("client", c.id).Msg("fan-out buffer full, disconnecting slow client")
			delete(b.clients, c)
			c.stop()
		}
	}
}
