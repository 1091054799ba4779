// Copyright 2020 thinkgos (thinkgo@aliyun.com).  All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"net/http"

	"github.com/mtconnect-go/shdr-adapter/adapter"
	"github.com/mtconnect-go/shdr-adapter/clog"
	"github.com/mtconnect-go/shdr-adapter/shdr"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		port             int
		deviceKey        string
		heartbeat        time.Duration
		timeout          time.Duration
		filterDuplicates bool
		metricsAddr      string
		demo             bool
	)

	cmd := &cobra.Command{
		Use:   "shdr-adapter",
		Short: "Stream simulated MTConnect observations over the SHDR line protocol.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := adapter.Config{
				Port:             port,
				DeviceKey:        deviceKey,
				Heartbeat:        heartbeat,
				Timeout:          timeout,
				FilterDuplicates: adapter.BoolPtr(filterDuplicates),
			}

			log := clog.NewZapLogger()
			reg := prometheus.NewRegistry()

			a, err := adapter.New(cfg, adapter.WithLogger(log), adapter.WithMetricsRegisterer(reg))
			if err != nil {
				return fmt.Errorf("shdr-adapter: build adapter: %w", err)
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			if err := a.Start(ctx); err != nil {
				return fmt.Errorf("shdr-adapter: start adapter: %w", err)
			}
			defer a.Stop()

			a.Subscribe(func(ev adapter.Event) {
				log.Debug("event %s client=%s msg=%s", ev.Type, ev.ClientID, ev.Message)
			})

			if metricsAddr != "" {
				go serveMetrics(metricsAddr, reg, log)
			}

			if demo {
				go runDemoProducer(ctx, a)
			}

			log.Critical("listening on port %d", cfg.Port)
			<-ctx.Done()
			return nil
		},
	}

	flags := cmd.PersistentFlags()
	flags.IntVar(&port, "port", getenvInt("SHDR_PORT", adapter.PortDefault), "TCP listen port (env: SHDR_PORT)")
	flags.StringVar(&deviceKey, "device-key", getenv("SHDR_DEVICE_KEY", "demo-device"), "default device key (env: SHDR_DEVICE_KEY)")
	flags.DurationVar(&heartbeat, "heartbeat", getenvDuration("SHDR_HEARTBEAT", adapter.HeartbeatDefault), "heartbeat reported in PONG replies (env: SHDR_HEARTBEAT)")
	flags.DurationVar(&timeout, "timeout", getenvDuration("SHDR_TIMEOUT", adapter.TimeoutDefault), "socket write deadline (env: SHDR_TIMEOUT)")
	flags.BoolVar(&filterDuplicates, "filter-duplicates", getenvBool("SHDR_FILTER_DUPLICATES", true), "drop submissions that match the current value (env: SHDR_FILTER_DUPLICATES)")
	flags.StringVar(&metricsAddr, "metrics-addr", getenv("SHDR_METRICS_ADDR", ""), "address to serve /metrics on, empty disables it (env: SHDR_METRICS_ADDR)")
	flags.BoolVar(&demo, "demo", getenvBool("SHDR_DEMO", true), "feed synthetic observations for manual testing (env: SHDR_DEMO)")

	return cmd
}

func serveMetrics(addr string, reg *prometheus.Registry, log clog.Clog) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Error("metrics server stopped: %v", err)
	}
}

// runDemoProducer feeds a slowly drifting temperature, an occasional
// tool-change message, and a periodic condition flip so a freshly
// started binary has something visible to stream without an external
// producer attached.
func runDemoProducer(ctx context.Context, a *adapter.Adapter) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	temp := 68.0
	tick := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			tick++
			temp += rand.Float64()*2 - 1
			a.AddDataItem("Ctemp", fmt.Sprintf("%.1f", temp), 0)

			if tick%10 == 0 {
				a.AddMessage("Xmsg", "tool change complete", "TC001", 0)
			}
			if tick%15 == 0 {
				level := shdr.LevelNormal
				if tick%30 == 0 {
					level = shdr.LevelWarning
				}
				a.AddCondition("Ccond", 0, shdr.FaultState{Level: level, NativeCode: "T01", Message: "spindle temperature"})
			}
		}
	}
}

func getenv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	return v == "1" || v == "true" || v == "TRUE"
}

func getenvInt(key string, def int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	var i int
	if _, err := fmt.Sscanf(v, "%d", &i); err != nil {
		return def
	}
	return i
}

func getenvDuration(key string, def time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func init() {
	_ = godotenv.Load()
}
