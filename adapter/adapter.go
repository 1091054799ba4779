// Copyright 2020 thinkgos (thinkgo@aliyun.com).  All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

// Package adapter implements the Adapter Core: submission,
// deduplication, send_current/send_last dispatch, UNAVAILABLE
// generation, and event fan-out, plus the TCP Connection Listener that
// feeds it connect/disconnect/ping/pong events.
package adapter

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mtconnect-go/shdr-adapter/clog"
	"github.com/mtconnect-go/shdr-adapter/registry"
	"github.com/mtconnect-go/shdr-adapter/shdr"
	"github.com/mtconnect-go/shdr-adapter/store"
)

// nowFunc is overridable in tests that need a deterministic clock.
var nowFunc = func() int64 { return time.Now().UnixMilli() }

func nowMs() int64 { return nowFunc() }

// Adapter orchestrates submission, dispatch, and connection lifecycle
// for one SHDR TCP server.
type Adapter struct {
	cfg      Config
	store    *store.Store
	registry *registry.Registry
	log      clog.Clog
	metrics  *Metrics

	events        chan Event
	eventMu       sync.Mutex
	eventHandlers []EventHandler

	ln     *tcpListener
	cancel context.CancelFunc
	ctx    context.Context
	wg     sync.WaitGroup

	stopOnce sync.Once
}

// Option configures optional Adapter collaborators.
type Option func(*Adapter)

// WithLogger overrides the default zap-backed clog.Clog.
func WithLogger(l clog.Clog) Option {
	return func(a *Adapter) { a.log = l }
}

// WithMetricsRegisterer registers the adapter's prometheus metrics
// against reg instead of a private registry.
func WithMetricsRegisterer(reg prometheus.Registerer) Option {
	return func(a *Adapter) { a.metrics = NewMetrics(reg) }
}

// New builds an Adapter from cfg, applying defaults and validating
// ranges (Config.Valid). The adapter does not start listening until
// Start is called.
func New(cfg Config, opts ...Option) (*Adapter, error) {
	if err := cfg.Valid(); err != nil {
		return nil, err
	}

	a := &Adapter{
		cfg:      cfg,
		store:    store.New(),
		registry: registry.New(),
		log:      clog.NewZapLogger(),
		events:   make(chan Event, 1024),
		ctx:      context.Background(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.metrics == nil {
		a.metrics = NewMetrics(nil)
	}
	return a, nil
}

// Start begins accepting TCP connections on cfg.Port and runs the event
// dispatcher. It returns once the listener socket is bound, or an error
// if binding fails.
func (a *Adapter) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	a.ctx, a.cancel = ctx, cancel

	ln, err := newTCPListener(a.cfg.Port)
	if err != nil {
		cancel()
		return fmt.Errorf("adapter: listen on port %d: %w", a.cfg.Port, err)
	}
	a.ln = ln

	a.wg.Add(2)
	go func() { defer a.wg.Done(); a.runEventDispatcher() }()
	go func() { defer a.wg.Done(); a.acceptLoop() }()

	return nil
}

// Stop is idempotent and returns only after the listener socket is
// closed. It does not wait for producer goroutines calling the
// submission API.
func (a *Adapter) Stop() error {
	var err error
	a.stopOnce.Do(func() {
		if a.cancel != nil {
			a.cancel()
		}
		if a.ln != nil {
			err = a.ln.Close()
		}
		a.wg.Wait()
	})
	return err
}

// ConnectedClients reports how many agents are currently connected.
func (a *Adapter) ConnectedClients() int {
	return a.registry.Len()
}
