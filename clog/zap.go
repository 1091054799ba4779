// Copyright 2020 thinkgos (thinkgo@aliyun.com).  All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

package clog

import "go.uber.org/zap"

// zapLogger adapts a *zap.SugaredLogger to the LogProvider interface so
// the adapter can emit structured, leveled logs instead of the bare
// log.Logger default.
type zapLogger struct {
	l *zap.SugaredLogger
}

var _ LogProvider = zapLogger{}

// NewZapProvider wraps z as a LogProvider. A nil z falls back to
// zap.NewNop(), which discards everything.
func NewZapProvider(z *zap.Logger) LogProvider {
	if z == nil {
		z = zap.NewNop()
	}
	return zapLogger{l: z.Sugar()}
}

// NewZapLogger builds a Clog backed by a production zap.Logger, enabled
// by default (zap's production preset: JSON output, sampling, Info
// level). Callers that want a different encoding, sampling policy, or
// level should build their own *zap.Logger and use NewZapProvider
// instead.
func NewZapLogger() Clog {
	z, err := zap.NewProduction()
	if err != nil {
		z = zap.NewNop()
	}
	c := Clog{provider: NewZapProvider(z)}
	c.LogMode(true)
	return c
}

func (z zapLogger) Critical(format string, v ...interface{}) {
	z.l.Errorf("CRITICAL: "+format, v...)
}

func (z zapLogger) Error(format string, v ...interface{}) {
	z.l.Errorf(format, v...)
}

func (z zapLogger) Warn(format string, v ...interface{}) {
	z.l.Warnf(format, v...)
}

func (z zapLogger) Debug(format string, v ...interface{}) {
	z.l.Debugf(format, v...)
}
