package transport

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/wk-dev/wk/internal/types"
	"github.com/wk-dev/wk/internal/werr"
)

// Keepalive pings go out every keepaliveInterval on an otherwise idle
// stream; a peer that misses two in a row is treated as gone and the
// stream errors out, prompting the daemon's reconnect loop.
const keepaliveInterval = 30 * time.Second

// ServiceName and StreamMethod name the bidi-streaming sync RPC. There is
// no .proto file and no protoc-generated stub: the wire message is a
// structpb.Struct (a real, already-compiled protobuf message — see
// wire.go) and the RPC is described directly as a grpc.ServiceDesc, which
// is exactly what protoc-gen-go-grpc would otherwise emit for one
// bidi-streaming method with no request/response framing beyond the
// stream itself.
const (
	ServiceName  = "wk.sync.SyncService"
	StreamMethod = "Sync"
)

var fullStreamPath = "/" + ServiceName + "/" + StreamMethod

// SyncServer is implemented by the broker/daemon side of the stream.
type SyncServer interface {
	Sync(stream grpc.ServerStream) error
}

// ServiceDesc is registered on a *grpc.Server via RegisterSyncServiceServer.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SyncServer)(nil),
	Streams: []grpc.StreamDesc{{
		StreamName:    StreamMethod,
		Handler:       syncStreamHandler,
		ServerStreams: true,
		ClientStreams: true,
	}},
	Metadata: "wk/sync",
}

func syncStreamHandler(srv any, stream grpc.ServerStream) error {
	return srv.(SyncServer).Sync(stream)
}

// RegisterSyncServiceServer wires srv into s under ServiceDesc.
func RegisterSyncServiceServer(s *grpc.Server, srv SyncServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// grpcStream is the subset of grpc.ClientStream / grpc.ServerStream that
// GRPCCarrier needs; both satisfy it, so the same carrier type wraps
// either side of the connection.
type grpcStream interface {
	SendMsg(m any) error
	RecvMsg(m any) error
}

// GRPCCarrier is the streaming socket carrier: one bidi gRPC stream.
type GRPCCarrier struct {
	stream grpcStream
	conn   *grpc.ClientConn // nil on the server side, where the *grpc.Server owns the connection
}

// DialGRPC opens a client-side streaming carrier to a peer or broker at
// addr. Transport security is delegated to the carrier below this layer;
// deployments that need TLS supply real credentials.TransportCredentials
// here instead.
func DialGRPC(ctx context.Context, addr string) (*GRPCCarrier, error) {
	conn, err := grpc.NewClient(addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                keepaliveInterval,
			Timeout:             2 * keepaliveInterval,
			PermitWithoutStream: true,
		}))
	if err != nil {
		return nil, werr.Wrap(werr.TransportError, fmt.Errorf("dial %s: %w", addr, err))
	}
	stream, err := conn.NewStream(ctx, &grpc.StreamDesc{
		StreamName: StreamMethod, ServerStreams: true, ClientStreams: true,
	}, fullStreamPath)
	if err != nil {
		conn.Close()
		return nil, werr.Wrap(werr.TransportError, fmt.Errorf("open sync stream: %w", err))
	}
	return &GRPCCarrier{stream: stream, conn: conn}, nil
}

// NewServerCarrier wraps an inbound server-side stream (the broker or peer
// daemon's Sync handler) as a Carrier.
func NewServerCarrier(stream grpc.ServerStream) *GRPCCarrier {
	return &GRPCCarrier{stream: stream}
}

func (c *GRPCCarrier) Send(ctx context.Context, op types.Operation) error {
	msg, err := encodeOperation(op)
	if err != nil {
		return err
	}
	if err := c.stream.SendMsg(msg); err != nil {
		return werr.Wrap(werr.TransportError, fmt.Errorf("send operation %s: %w", op.OpID, err))
	}
	return nil
}

func (c *GRPCCarrier) Recv(ctx context.Context) (types.Operation, error) {
	msg := &structpb.Struct{}
	if err := c.stream.RecvMsg(msg); err != nil {
		return types.Operation{}, werr.Wrap(werr.TransportError, fmt.Errorf("recv operation: %w", err))
	}
	return decodeOperation(msg)
}

func (c *GRPCCarrier) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
