// Copyright 2020 thinkgos (thinkgo@aliyun.com).  All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

// Package store implements the Adapter's State Store: the six
// (data_item_key -> observation) "current" and "last" tables plus the
// asset and device tables. A single mutex guards every table; callers
// must never perform I/O or hashing while holding it (copy references
// in or out, then release).
package store

import (
	"sync"

	"github.com/mtconnect-go/shdr-adapter/shdr"
)

// Store holds the per-adapter observation tables. Alongside each table
// is an insertion-ordered key slice: Go map iteration order is
// randomized per run, but send_current/send_last must emit and write
// observations within one kind in the order they were accepted, so
// every snapshot walks the order slice instead of ranging the map
// directly.
type Store struct {
	mu sync.Mutex

	current      map[shdr.Kind]map[string]shdr.Observation
	currentOrder map[shdr.Kind][]string
	last         map[shdr.Kind]map[string]shdr.Observation
	lastOrder    map[shdr.Kind][]string

	assets  map[string]shdr.Asset
	devices map[string]shdr.Device
}

// New builds an empty Store.
func New() *Store {
	s := &Store{
		current:      make(map[shdr.Kind]map[string]shdr.Observation, len(shdr.Kinds)),
		currentOrder: make(map[shdr.Kind][]string, len(shdr.Kinds)),
		last:         make(map[shdr.Kind]map[string]shdr.Observation, len(shdr.Kinds)),
		lastOrder:    make(map[shdr.Kind][]string, len(shdr.Kinds)),
		assets:       make(map[string]shdr.Asset),
		devices:      make(map[string]shdr.Device),
	}
	for _, k := range shdr.Kinds {
		s.current[k] = make(map[string]shdr.Observation)
		s.last[k] = make(map[string]shdr.Observation)
	}
	return s
}

// Current returns the current observation for (kind, dataItemKey), if any.
func (s *Store) Current(kind shdr.Kind, dataItemKey string) (shdr.Observation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.current[kind][dataItemKey]
	return o, ok
}

// SetCurrent replaces the current observation for o's key, marking it
// unsent. Called by the Adapter Core after a submission has passed
// duplicate filtering.
func (s *Store) SetCurrent(o shdr.Observation) {
	o.IsSent = false
	s.mu.Lock()
	defer s.mu.Unlock()
	table := s.current[o.Kind]
	if _, exists := table[o.DataItemKey]; !exists {
		s.currentOrder[o.Kind] = append(s.currentOrder[o.Kind], o.DataItemKey)
	}
	table[o.DataItemKey] = o
}

// SnapshotUnsent copies out every current observation, across every
// kind, whose IsSent flag is false, flipping the flag to true in place
// before releasing the lock. The adapter encodes and writes these
// outside the lock as part of send_current.
func (s *Store) SnapshotUnsent() []shdr.Observation {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []shdr.Observation
	for _, k := range shdr.Kinds {
		table := s.current[k]
		for _, key := range s.currentOrder[k] {
			o, ok := table[key]
			if !ok || o.IsSent {
				continue
			}
			out = append(out, o)
			o.IsSent = true
			table[key] = o
		}
	}
	return out
}

// UpdateLast records o as the most recently transmitted observation for
// its key. send_current calls it after each observation's broadcast,
// including a broadcast to zero clients or one in which a client's
// write failed.
func (s *Store) UpdateLast(o shdr.Observation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	table := s.last[o.Kind]
	if _, exists := table[o.DataItemKey]; !exists {
		s.lastOrder[o.Kind] = append(s.lastOrder[o.Kind], o.DataItemKey)
	}
	table[o.DataItemKey] = o
}

// SnapshotLast copies out every "last" observation across every kind,
// for the reconnect replay performed by send_last.
func (s *Store) SnapshotLast() []shdr.Observation {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []shdr.Observation
	for _, k := range shdr.Kinds {
		table := s.last[k]
		for _, key := range s.lastOrder[k] {
			if o, ok := table[key]; ok {
				out = append(out, o)
			}
		}
	}
	return out
}

// SnapshotCurrentAll copies out every current observation regardless of
// IsSent, used by set_unavailable to enumerate every live key.
func (s *Store) SnapshotCurrentAll() []shdr.Observation {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []shdr.Observation
	for _, k := range shdr.Kinds {
		table := s.current[k]
		for _, key := range s.currentOrder[k] {
			if o, ok := table[key]; ok {
				out = append(out, o)
			}
		}
	}
	return out
}

// Asset returns the stored asset by id, if any.
func (s *Store) Asset(id string) (shdr.Asset, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.assets[id]
	return a, ok
}

// SetAsset replaces the stored asset.
func (s *Store) SetAsset(a shdr.Asset) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assets[a.AssetID] = a
}

// Device returns the stored device by uuid, if any.
func (s *Store) Device(uuid string) (shdr.Device, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.devices[uuid]
	return d, ok
}

// SetDevice replaces the stored device.
func (s *Store) SetDevice(d shdr.Device) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.devices[d.DeviceUUID] = d
}
