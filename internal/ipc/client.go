package ipc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"

	"github.com/google/uuid"
)

const (
	dialTimeout = 2 * time.Second
	callTimeout = 5 * time.Second
)

// Client provides RPC access to the running app.
type Client struct {
	conn   net.Conn
	client *rpc.Client
}

// Dial connects to the IPC server at the given socket path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, dialTimeout)
	if err != nil {
		return nil, err
	}
	rpcClient := rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))
	return &Client{conn: conn, client: rpcClient}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// NewRequestID returns a fresh correlation id.
func NewRequestID() string { return uuid.NewString() }

func (c *Client) call(method string, req, resp any) error {
	_ = c.conn.SetDeadline(time.Now().Add(callTimeout))
	defer c.conn.SetDeadline(time.Time{})
	return c.client.Call(ServiceName+"."+method, req, resp)
}

// Status retrieves the app status.
func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.call("Status", StatusRequest{RequestID: NewRequestID()}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Threads lists the channel list in display order.
func (c *Client) Threads() (*ThreadsResponse, error) {
	var resp ThreadsResponse
	if err := c.call("Threads", ThreadsRequest{RequestID: NewRequestID()}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Say narrates text through the app's speech coordinator.
func (c *Client) Say(text string) (*SayResponse, error) {
	var resp SayResponse
	if err := c.call("Say", SayRequest{RequestID: NewRequestID(), Text: text}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Halt stops narration.
func (c *Client) Halt() (*HaltResponse, error) {
	var resp HaltResponse
	if err := c.call("Halt", HaltRequest{RequestID: NewRequestID()}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Signal injects a scan action.
func (c *Client) Signal(action string) (*SignalResponse, error) {
	var resp SignalResponse
	if err := c.call("Signal", SignalRequest{RequestID: NewRequestID(), Action: action}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Stop asks the app to exit.
func (c *Client) Stop() (*StopResponse, error) {
	var resp StopResponse
	if err := c.call("Stop", StopRequest{RequestID: NewRequestID()}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
