package ipc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"
)

// Client provides RPC access to the daemon.
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

// Fetch enqueues one key or a newline-separated batch.
func (c *Client) Fetch(keys string) (*FetchResponse, error) {
	var resp FetchResponse
	if err := c.client.Call("Nassav.Fetch", FetchRequest{Keys: keys}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Stop abandons the running job and clears the pending queue.
func (c *Client) Stop() (*StopResponse, error) {
	var resp StopResponse
	if err := c.client.Call("Nassav.Stop", StopRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.client.Call("Nassav.Status", StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TaskList retrieves every known task.
func (c *Client) TaskList() (*TaskListResponse, error) {
	var resp TaskListResponse
	if err := c.client.Call("Nassav.TaskList", TaskListRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TaskDescribe retrieves one task by id.
func (c *Client) TaskDescribe(id string) (*TaskDescribeResponse, error) {
	var resp TaskDescribeResponse
	if err := c.client.Call("Nassav.TaskDescribe", TaskDescribeRequest{ID: id}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TaskLogs retrieves retained log entries newer than afterSeq.
func (c *Client) TaskLogs(id string, afterSeq int64) (*TaskLogsResponse, error) {
	var resp TaskLogsResponse
	if err := c.client.Call("Nassav.TaskLogs", TaskLogsRequest{ID: id, AfterSeq: afterSeq}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
