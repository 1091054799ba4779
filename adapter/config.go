// Copyright 2020 thinkgos (thinkgo@aliyun.com).  All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

package adapter

import (
	"errors"
	"time"
)

// Config option ranges. The adapter applies a default for any
// unspecified (zero) duration/int field.
const (
	PortDefault = 7878

	HeartbeatMin     = 1 * time.Millisecond
	HeartbeatMax     = 24 * time.Hour
	HeartbeatDefault = 10 * time.Second

	TimeoutMin     = 1 * time.Millisecond
	TimeoutMax     = 24 * time.Hour
	TimeoutDefault = 5 * time.Second
)

// Config defines an SHDR adapter configuration. The zero value of
// every duration/port field means "apply the default". FilterDuplicates
// is a *bool rather than a bool because a bare Config{} literal's
// zero-value false is indistinguishable from a caller explicitly
// asking for false; nil means "apply the documented default of true",
// a non-nil pointer is taken literally. Use DefaultConfig(),
// BoolPtr(true/false), or Valid() (which normalizes nil in place) to
// set it.
type Config struct {
	// Port is the TCP listen port.
	Port int

	// DeviceKey is the default device key stamped on every outgoing
	// observation that does not specify one explicitly.
	DeviceKey string

	// Heartbeat is the value reported back in the PONG reply.
	Heartbeat time.Duration

	// Timeout is the per-write socket deadline. Reads are bounded by the
	// listener's heartbeat-based deadline (twice Heartbeat), not by
	// Timeout.
	Timeout time.Duration

	// FilterDuplicates drops a submission whose change id matches the
	// key's current entry. nil defaults to true.
	FilterDuplicates *bool

	// MultilineAssets wraps asset bodies in --multiline--<hash> markers.
	MultilineAssets bool

	// MultilineDevices wraps device bodies in --multiline--<hash> markers.
	MultilineDevices bool
}

// BoolPtr returns a pointer to b, for populating Config.FilterDuplicates
// from a literal.
func BoolPtr(b bool) *bool { return &b }

// DefaultConfig returns the adapter's documented defaults, including
// FilterDuplicates=true.
func DefaultConfig() Config {
	return Config{
		Port:             PortDefault,
		Heartbeat:        HeartbeatDefault,
		Timeout:          TimeoutDefault,
		FilterDuplicates: BoolPtr(true),
	}
}

// Valid fills in zero-valued duration/port fields with their defaults,
// defaults a nil FilterDuplicates to true, and range-checks anything
// explicitly set. Every Config reaches Valid via New before the
// adapter reads any field, so a bare Config{} literal gets the same
// documented defaults as DefaultConfig().
func (c *Config) Valid() error {
	if c == nil {
		return errors.New("adapter: nil config")
	}

	if c.Port == 0 {
		c.Port = PortDefault
	} else if c.Port < 1 || c.Port > 65535 {
		return errors.New("adapter: Port not in [1, 65535]")
	}

	if c.Heartbeat == 0 {
		c.Heartbeat = HeartbeatDefault
	} else if c.Heartbeat < HeartbeatMin || c.Heartbeat > HeartbeatMax {
		return errors.New("adapter: Heartbeat out of range")
	}

	if c.Timeout == 0 {
		c.Timeout = TimeoutDefault
	} else if c.Timeout < TimeoutMin || c.Timeout > TimeoutMax {
		return errors.New("adapter: Timeout out of range")
	}

	if c.FilterDuplicates == nil {
		c.FilterDuplicates = BoolPtr(true)
	}

	return nil
}
