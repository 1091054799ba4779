// Copyright 2020 thinkgos (thinkgo@aliyun.com).  All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

package adapter

import (
	"github.com/mtconnect-go/shdr-adapter/registry"
	"github.com/mtconnect-go/shdr-adapter/shdr"
)

// onClientConnected inserts into the registry (replacing any stale
// entry), replays send_last, then announces the connection.
func (a *Adapter) onClientConnected(c *registry.Client) {
	if old := a.registry.Add(c); old != nil {
		_ = old.Close()
	}
	if a.metrics != nil {
		a.metrics.ClientsConnected.Set(float64(a.registry.Len()))
	}

	a.sendLastTo(c, nowMs())
	a.emit(Event{Type: EventAgentConnected, ClientID: c.ID})
}

// onClientDisconnected implements the normal (non-error) disconnect
// path: the listener observed EOF, a read timeout, or shutdown.
func (a *Adapter) onClientDisconnected(id string) {
	a.registry.Remove(id)
	if a.metrics != nil {
		a.metrics.ClientsConnected.Set(float64(a.registry.Len()))
	}
	a.emit(Event{Type: EventAgentDisconnected, ClientID: id})
}

// dropClient implements the write-error disconnect path: a write
// failure downgrades exactly the affected client to CLOSED; other
// clients are unaffected.
func (a *Adapter) dropClient(c *registry.Client, err error) {
	a.registry.Remove(c.ID)
	_ = c.Close()
	if a.metrics != nil {
		a.metrics.ClientsConnected.Set(float64(a.registry.Len()))
		a.metrics.WriteErrors.Inc()
	}
	a.emit(Event{Type: EventSendError, ClientID: c.ID, Message: err.Error(), Err: err})
	a.emit(Event{Type: EventAgentDisconnected, ClientID: c.ID})
}

// writeLinesTo writes every line to c, in order, stopping at the first
// error so the caller can drop the client (FIFO per client is
// preserved: a partially delivered batch never reorders).
func (a *Adapter) writeLinesTo(c *registry.Client, lines []string) error {
	for _, line := range lines {
		if err := c.WriteLine(line); err != nil {
			return err
		}
		if a.metrics != nil {
			a.metrics.LinesSent.Inc()
		}
		a.emit(Event{Type: EventLineSent, ClientID: c.ID, Line: line})
	}
	return nil
}

// broadcastLines writes lines to every currently connected client,
// dropping (and only dropping) clients whose write fails.
func (a *Adapter) broadcastLines(lines []string) {
	for _, c := range a.registry.Snapshot() {
		if err := a.writeLinesTo(c, lines); err != nil {
			a.dropClient(c, err)
		}
	}
}

// SendCurrent implements send_current(): snapshot every unsent current
// observation (atomically flipping IsSent), encode each, and write it
// to every connected client. Every successfully encoded observation
// updates the "last" table after its broadcast, whether it reached all,
// some, or none of the clients (a client whose write fails is dropped),
// so a client connecting afterward replays it.
func (a *Adapter) SendCurrent() {
	for _, o := range a.store.SnapshotUnsent() {
		lines, err := shdr.Encode(o, a.cfg.DeviceKey)
		if err != nil {
			if a.metrics != nil {
				a.metrics.SubmissionsDropped.Inc()
			}
			a.emit(Event{Type: EventSubmissionError, Message: err.Error(), Err: err})
			continue
		}
		a.broadcastLines(lines)
		a.store.UpdateLast(o)
	}
}

// sendLastTo implements the reconnect-replay half of send_last for
// exactly one (newly connected) client: every "last" entry is
// rewritten to timestampOverride (or now) and written, ordered by kind
// and then by each key's original acceptance order.
func (a *Adapter) sendLastTo(c *registry.Client, timestampOverride int64) {
	if timestampOverride == 0 {
		timestampOverride = nowMs()
	}
	for _, o := range a.store.SnapshotLast() {
		o.Timestamp = timestampOverride
		lines, err := shdr.Encode(o, a.cfg.DeviceKey)
		if err != nil {
			a.emit(Event{Type: EventSubmissionError, ClientID: c.ID, Message: err.Error(), Err: err})
			continue
		}
		if err := a.writeLinesTo(c, lines); err != nil {
			a.dropClient(c, err)
			return
		}
	}
}

// SendLast implements the broadcast form of send_last: every "last"
// entry is rewritten to timestampOverride (or now) and written to every
// connected client. Used by producers that want to force a full resync
// without waiting for a reconnect.
func (a *Adapter) SendLast(timestampOverride int64) {
	if timestampOverride == 0 {
		timestampOverride = nowMs()
	}
	for _, o := range a.store.SnapshotLast() {
		o.Timestamp = timestampOverride
		lines, err := shdr.Encode(o, a.cfg.DeviceKey)
		if err != nil {
			a.emit(Event{Type: EventSubmissionError, Message: err.Error(), Err: err})
			continue
		}
		a.broadcastLines(lines)
	}
}

// SetUnavailable synthesizes and submits a UNAVAILABLE observation of
// the same kind for every key currently present in the State Store.
// Idempotent: a second call finds every current entry already
// UNAVAILABLE, so duplicate filtering drops all of it.
func (a *Adapter) SetUnavailable(timestamp int64) {
	if timestamp == 0 {
		timestamp = nowMs()
	}
	current := a.store.SnapshotCurrentAll()
	unavailable := make([]shdr.Observation, len(current))
	for i, o := range current {
		unavailable[i] = shdr.Observation{
			DeviceKey:     o.DeviceKey,
			DataItemKey:   o.DataItemKey,
			Timestamp:     timestamp,
			Kind:          o.Kind,
			IsUnavailable: true,
		}
	}
	a.SubmitBatch(unavailable)
}
