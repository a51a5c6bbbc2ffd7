package ipc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/wk-dev/wk/internal/werr"
)

// dialTimeout bounds how long Dial waits for a daemon to accept a
// connection before the CLI gives up and reports the daemon unreachable.
const dialTimeout = 2 * time.Second

// Client is a one-connection-per-call handle to a daemon's control
// socket: each call dials, writes one request, reads one response, and
// closes, rather than keeping a long-lived multiplexed session open.
type Client struct {
	socketPath string
}

// NewClient returns a Client targeting the daemon listening at socketPath.
func NewClient(socketPath string) *Client {
	return &Client{socketPath: socketPath}
}

// call opens a connection, writes one request line, reads one response
// line, and closes the connection.
func (c *Client) call(req Request) (Response, error) {
	conn, err := net.DialTimeout("unix", c.socketPath, dialTimeout)
	if err != nil {
		return Response{}, werr.Wrap(werr.TransportError, fmt.Errorf("daemon unreachable at %s: %w", c.socketPath, err))
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(requestTimeout))

	line, err := json.Marshal(req)
	if err != nil {
		return Response{}, fmt.Errorf("marshal request: %w", err)
	}
	line = append(line, '\n')
	if _, err := conn.Write(line); err != nil {
		return Response{}, werr.Wrap(werr.TransportError, fmt.Errorf("write request: %w", err))
	}

	respLine, err := bufio.NewReader(conn).ReadBytes('\n')
	if err != nil {
		return Response{}, werr.Wrap(werr.TransportError, fmt.Errorf("read response: %w", err))
	}
	var resp Response
	if err := json.Unmarshal(respLine, &resp); err != nil {
		return Response{}, fmt.Errorf("decode response: %w", err)
	}
	if !resp.OK {
		return resp, werr.New(werr.TransportError, resp.Error)
	}
	return resp, nil
}

// Hello performs the version handshake. The check is directional: a
// daemon older than this client gets a VersionMismatch-kinded error,
// which callers treat as a signal to stop and restart it with the CLI's
// own binary; a daemon newer than this client is fine as-is, since the
// daemon is required to stay backward-compatible.
func (c *Client) Hello(clientVersion int) (HelloResponse, error) {
	payload, _ := json.Marshal(HelloRequest{ClientVersion: clientVersion})
	resp, err := c.call(Request{Verb: VerbHello, Payload: payload})
	if err != nil {
		return HelloResponse{}, err
	}
	var hello HelloResponse
	if err := json.Unmarshal(resp.Data, &hello); err != nil {
		return HelloResponse{}, fmt.Errorf("decode hello response: %w", err)
	}
	if hello.ServerVersion < clientVersion {
		return hello, werr.Wrap(werr.VersionMismatch, fmt.Errorf(
			"daemon protocol version %d is older than client version %d", hello.ServerVersion, clientVersion))
	}
	return hello, nil
}

// Status asks the daemon for its current sync state.
func (c *Client) Status() (StatusResponse, error) {
	resp, err := c.call(Request{Verb: VerbStatus})
	if err != nil {
		return StatusResponse{}, err
	}
	var status StatusResponse
	if err := json.Unmarshal(resp.Data, &status); err != nil {
		return StatusResponse{}, fmt.Errorf("decode status response: %w", err)
	}
	return status, nil
}

// Sync sends the sync verb, which confirms the daemon is running; it does
// not start an extra sync pass or wait for the queue to flush.
func (c *Client) Sync() (SyncResponse, error) {
	resp, err := c.call(Request{Verb: VerbSync})
	if err != nil {
		return SyncResponse{}, err
	}
	var sync SyncResponse
	if err := json.Unmarshal(resp.Data, &sync); err != nil {
		return SyncResponse{}, fmt.Errorf("decode sync response: %w", err)
	}
	return sync, nil
}

// Stop asks the daemon to cancel its sync loops and shut down.
func (c *Client) Stop() (StopResponse, error) {
	resp, err := c.call(Request{Verb: VerbStop})
	if err != nil {
		return StopResponse{}, err
	}
	var stop StopResponse
	if err := json.Unmarshal(resp.Data, &stop); err != nil {
		return StopResponse{}, fmt.Errorf("decode stop response: %w", err)
	}
	return stop, nil
}

// Reachable reports whether a daemon currently answers at socketPath.
func Reachable(socketPath string) bool {
	conn, err := net.DialTimeout("unix", socketPath, dialTimeout)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}
