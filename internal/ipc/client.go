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

// Enqueue submits a transcription job.
func (c *Client) Enqueue(req EnqueueRequest) (*EnqueueResponse, error) {
	var resp EnqueueResponse
	if err := c.client.Call("Lectern.Enqueue", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Cancel stops a lesson's running transcription.
func (c *Client) Cancel(lessonID string) (*CancelResponse, error) {
	var resp CancelResponse
	if err := c.client.Call("Lectern.Cancel", CancelRequest{LessonID: lessonID}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// QueueStatus retrieves daemon and queue status.
func (c *Client) QueueStatus() (*QueueStatusResponse, error) {
	var resp QueueStatusResponse
	if err := c.client.Call("Lectern.QueueStatus", QueueStatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// QueueList returns jobs optionally filtered by statuses.
func (c *Client) QueueList(statuses []string) (*QueueListResponse, error) {
	var resp QueueListResponse
	if err := c.client.Call("Lectern.QueueList", QueueListRequest{Statuses: statuses}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// LogTail returns daemon log lines.
func (c *Client) LogTail(req LogTailRequest) (*LogTailResponse, error) {
	var resp LogTailResponse
	if err := c.client.Call("Lectern.LogTail", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// QueueClear removes finished jobs.
func (c *Client) QueueClear() (*QueueClearResponse, error) {
	var resp QueueClearResponse
	if err := c.client.Call("Lectern.QueueClear", QueueClearRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
