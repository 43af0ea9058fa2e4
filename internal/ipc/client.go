package ipc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"
)

// Client provides RPC access to the watcher.
type Client struct {
	conn   net.Conn
	client *rpc.Client
}

// Dial connects to the IPC server at the given socket path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return nil, err
	}
	rpcClient := rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))
	return &Client{conn: conn, client: rpcClient}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.client != nil {
		_ = c.client.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Ping verifies the watcher is reachable.
func (c *Client) Ping() (*PingResponse, error) {
	var resp PingResponse
	if err := c.client.Call("Podwatch.Ping", PingRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Status retrieves the watcher status snapshot.
func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.client.Call("Podwatch.Status", StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Jobs returns cached job statuses, optionally filtered by kind.
func (c *Client) Jobs(kinds []string) (*JobsResponse, error) {
	var resp JobsResponse
	if err := c.client.Call("Podwatch.Jobs", JobsRequest{Kinds: kinds}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Job returns the cached status of a single job.
func (c *Client) Job(kind, id string) (*JobResponse, error) {
	var resp JobResponse
	if err := c.client.Call("Podwatch.Job", JobRequest{Kind: kind, ID: id}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ClearJob drops the cached status of a single job.
func (c *Client) ClearJob(kind, id string) (*ClearJobResponse, error) {
	var resp ClearJobResponse
	if err := c.client.Call("Podwatch.ClearJob", ClearJobRequest{Kind: kind, ID: id}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SignIn installs a session in the running watcher.
func (c *Client) SignIn(email, token, deviceID string) (*SignInResponse, error) {
	var resp SignInResponse
	req := SignInRequest{Email: email, Token: token, DeviceID: deviceID}
	if err := c.client.Call("Podwatch.SignIn", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SignOut ends the watcher session.
func (c *Client) SignOut() (*SignOutResponse, error) {
	var resp SignOutResponse
	if err := c.client.Call("Podwatch.SignOut", SignOutRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TestNotification triggers a notification test via the watcher.
func (c *Client) TestNotification() (*TestNotificationResponse, error) {
	var resp TestNotificationResponse
	if err := c.client.Call("Podwatch.TestNotification", TestNotificationRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
