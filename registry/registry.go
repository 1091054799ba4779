// Copyright 2020 thinkgos (thinkgo@aliyun.com).  All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

// Package registry implements the Adapter's Client Registry: the
// indexed collection of live agent connections and their write streams.
package registry

import (
	"net"
	"sync"
	"time"
)

// Client is one connected agent. Writes are serialized per client so
// that FIFO order is preserved even when multiple goroutines
// (send_current, send_last, set_unavailable) write concurrently.
type Client struct {
	ID      string
	conn    net.Conn
	timeout time.Duration

	writeMu sync.Mutex
}

// NewClient wraps conn under id, applying timeout as the per-write
// deadline.
func NewClient(id string, conn net.Conn, timeout time.Duration) *Client {
	return &Client{ID: id, conn: conn, timeout: timeout}
}

// RemoteAddr returns the underlying connection's remote address string.
func (c *Client) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}

// WriteLine writes line plus a trailing LF, applying the configured
// write deadline. A non-nil error means the client must be dropped:
// the caller is responsible for removing it from the Registry and
// emitting SendError/AgentDisconnected.
func (c *Client) WriteLine(line string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.timeout > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(c.timeout)); err != nil {
			return err
		}
	}
	_, err := c.conn.Write([]byte(line + "\n"))
	return err
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Registry is the thread-safe collection of currently connected clients.
type Registry struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

// New builds an empty Registry.
func New() *Registry {
	return &Registry{clients: make(map[string]*Client)}
}

// Add inserts c, replacing (and returning) any stale entry with the
// same client ID. The caller is responsible for closing the replaced
// client, if any.
func (r *Registry) Add(c *Client) (replaced *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	old := r.clients[c.ID]
	r.clients[c.ID] = c
	return old
}

// Remove deletes the client with the given id, if present.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.clients, id)
}

// Get returns the client with the given id, if connected.
func (r *Registry) Get(id string) (*Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clients[id]
	return c, ok
}

// Snapshot copies out the currently connected clients. Callers iterate
// the snapshot to write lines without holding the registry lock across
// socket I/O.
func (r *Registry) Snapshot() []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Client, 0, len(r.clients))
	for _, c := range r.clients {
		out = append(out, c)
	}
	return out
}

// Len reports the number of currently connected clients.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}
