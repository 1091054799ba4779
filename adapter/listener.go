// Copyright 2020 thinkgos (thinkgo@aliyun.com).  All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

package adapter

import (
	"bufio"
	"fmt"
	"net"
	"time"

	"github.com/google/uuid"

	"github.com/mtconnect-go/shdr-adapter/registry"
	"github.com/mtconnect-go/shdr-adapter/shdr"
)

// tcpListener wraps the bound net.Listener the accept loop reads from.
type tcpListener struct {
	ln net.Listener
}

func newTCPListener(port int) (*tcpListener, error) {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, err
	}
	return &tcpListener{ln: ln}, nil
}

func (t *tcpListener) Close() error { return t.ln.Close() }

// clientIDFor derives an identity for conn: its remote host:port, so
// several agents connecting from the same host get distinct registry
// entries. Falls back to a random uuid — wiring github.com/google/uuid —
// when the address can't be split into host:port, e.g. non-TCP net.Conn
// implementations used in tests.
func clientIDFor(conn net.Conn) string {
	addr := conn.RemoteAddr().String()
	host, _, err := net.SplitHostPort(addr)
	if err != nil || host == "" {
		return uuid.NewString()
	}
	return addr
}

// acceptLoop implements the INIT -> OPEN transition of the connection
// state machine: accept, spawn a per-connection handler, repeat until
// the adapter's context is cancelled.
func (a *Adapter) acceptLoop() {
	for {
		conn, err := a.ln.ln.Accept()
		if err != nil {
			select {
			case <-a.ctx.Done():
				return
			default:
			}
			if a.metrics != nil {
				a.metrics.AcceptErrors.Inc()
			}
			a.emit(Event{Type: EventAgentConnectionError, Message: err.Error(), Err: err})
			continue
		}

		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			a.handleConnection(conn)
		}()
	}
}

// handleConnection runs the OPEN state's read/heartbeat loop for one
// client: it owns the read side of the socket; the Adapter Core owns
// the write side through the Registry. Any read timeout, EOF, or write
// error transitions the connection to CLOSED.
func (a *Adapter) handleConnection(conn net.Conn) {
	id := clientIDFor(conn)
	c := registry.NewClient(id, conn, a.cfg.Timeout)
	a.onClientConnected(c)

	// Grace is implementation-defined but must be at least the
	// heartbeat; one full heartbeat period is used here.
	deadline := a.cfg.Heartbeat + a.cfg.Heartbeat

	reader := bufio.NewReader(conn)
	for {
		select {
		case <-a.ctx.Done():
			_ = conn.Close()
			a.onClientDisconnected(id)
			return
		default:
		}

		if err := conn.SetReadDeadline(time.Now().Add(deadline)); err != nil {
			_ = conn.Close()
			a.onClientDisconnected(id)
			return
		}

		raw, err := reader.ReadString('\n')
		if err != nil {
			_ = conn.Close()
			a.onClientDisconnected(id)
			return
		}

		for _, line := range shdr.SplitLines([]byte(raw)) {
			a.handleClientLine(c, line)
		}
	}
}

// handleClientLine interprets one line received from an agent. Only
// "* PING" is semantically meaningful; anything else is an unexpected
// protocol violation, logged but not fatal to the connection.
func (a *Adapter) handleClientLine(c *registry.Client, line string) {
	if !shdr.IsPing(line) {
		a.log.Warn("unexpected line from %s: %q", c.ID, line)
		return
	}

	if a.metrics != nil {
		a.metrics.PingsReceived.Inc()
	}
	a.emit(Event{Type: EventPingReceived, ClientID: c.ID})

	pong := shdr.PongLine(a.cfg.Heartbeat.Milliseconds())
	if err := c.WriteLine(pong); err != nil {
		a.dropClient(c, err)
		return
	}
	if a.metrics != nil {
		a.metrics.PongsSent.Inc()
	}
	a.emit(Event{Type: EventPongSent, ClientID: c.ID})
}
