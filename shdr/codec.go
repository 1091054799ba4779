// Copyright 2020 thinkgos (thinkgo@aliyun.com).  All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

package shdr

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Reserved command tokens.
const (
	tokenPing             = "* PING"
	tokenPongPrefix       = "* PONG "
	tokenAsset            = "@ASSET@"
	tokenRemoveAsset      = "@REMOVE_ASSET@"
	tokenRemoveAllAssets  = "@REMOVE_ALL_ASSETS@"
	tokenDevice           = "@DEVICE@"
	tokenRemoveDevice     = "@REMOVE_DEVICE@"
	tokenRemoveAllDevices = "@REMOVE_ALL_DEVICES@"
	multilinePrefix       = "--multiline--"
)

// lineBuilder assembles one '|'-delimited SHDR line. It mirrors the
// append-style encoders of a binary frame codec, adapted to text: each
// Field call validates and appends one pipe-delimited field.
type lineBuilder struct {
	fields []string
	err    error
}

func newLine(timestamp string) *lineBuilder {
	return &lineBuilder{fields: []string{timestamp}}
}

// field appends a field that may never contain '|' (any key, level,
// numeric, or short-code field).
func (b *lineBuilder) field(v string) *lineBuilder {
	return b.rawField(v, false)
}

// bodyField appends a trailing message/body field, which is allowed to
// contain '|' verbatim since it is always the last field on the line.
func (b *lineBuilder) bodyField(v string) *lineBuilder {
	return b.rawField(v, true)
}

func (b *lineBuilder) rawField(v string, allowPipe bool) *lineBuilder {
	if b.err != nil {
		return b
	}
	if err := validateField(v, allowPipe); err != nil {
		b.err = err
		return b
	}
	b.fields = append(b.fields, v)
	return b
}

func (b *lineBuilder) build() (string, error) {
	if b.err != nil {
		return "", b.err
	}
	return strings.Join(b.fields, "|"), nil
}

// validateField rejects non-ASCII bytes always, rejects an embedded '|'
// unless the field is a trailing body/message field, and always rejects
// an embedded CR or LF: every field built through field/bodyField ends
// up on a single wire line, so a raw newline would fragment it into
// bogus extra records. The one place a body legitimately spans lines is
// the --multiline--<hash> wrapped form, which bypasses this validator
// entirely by splitting the body itself instead of calling bodyField.
func validateField(v string, allowPipe bool) error {
	for i := 0; i < len(v); i++ {
		c := v[i]
		if c > 0x7f {
			return fmt.Errorf("%w: %q", ErrNonASCII, v)
		}
		if c == '|' && !allowPipe {
			return fmt.Errorf("%w: %q", ErrEmbeddedPipe, v)
		}
		if c == '\n' || c == '\r' {
			return fmt.Errorf("%w: %q", ErrEmbeddedNewline, v)
		}
	}
	return nil
}

// FormatTimestamp renders ms as ISO-8601 UTC with millisecond precision
// and a trailing 'Z', e.g. "2023-11-14T22:13:20.000Z".
func FormatTimestamp(ms int64) string {
	return time.UnixMilli(ms).UTC().Format("2006-01-02T15:04:05.000Z")
}

// key returns the wire key for o: "data_item_key", or
// "device_key:data_item_key" when o.DeviceKey is set and differs from
// the adapter's configured defaultDeviceKey.
func key(o Observation, defaultDeviceKey string) string {
	if o.DeviceKey != "" && o.DeviceKey != defaultDeviceKey {
		return o.DeviceKey + ":" + o.DataItemKey
	}
	return o.DataItemKey
}

// Encode renders o as one or more SHDR lines (the LF terminator is added
// by the writer, not by this function). Most kinds produce exactly one line;
// Condition produces one line per fault state.
func Encode(o Observation, defaultDeviceKey string) ([]string, error) {
	if o.DataItemKey == "" {
		return nil, ErrEmptyKey
	}
	ts := FormatTimestamp(o.Timestamp)
	k := key(o, defaultDeviceKey)

	switch o.Kind {
	case KindDataItem:
		return encodeDataItem(ts, k, o)
	case KindMessage:
		return encodeMessage(ts, k, o)
	case KindCondition:
		return encodeCondition(ts, k, o)
	case KindTimeSeries:
		return encodeTimeSeries(ts, k, o)
	case KindDataSet:
		return encodeDataSet(ts, k, o)
	case KindTable:
		return encodeTable(ts, k, o)
	default:
		return nil, ErrUnknownKind
	}
}

func encodeDataItem(ts, k string, o Observation) ([]string, error) {
	value := Unavailable
	if !o.IsUnavailable {
		p, ok := o.Payload.(DataItemValue)
		if !ok {
			return nil, ErrPayloadMismatch
		}
		value = p.Value
	}
	line, err := newLine(ts).field(k).field(value).build()
	if err != nil {
		return nil, err
	}
	return []string{line}, nil
}

func encodeMessage(ts, k string, o Observation) ([]string, error) {
	var value, nativeCode string
	if o.IsUnavailable {
		value = Unavailable
	} else {
		p, ok := o.Payload.(MessageValue)
		if !ok {
			return nil, ErrPayloadMismatch
		}
		value, nativeCode = p.Value, p.NativeCode
	}
	line, err := newLine(ts).field(k).field(nativeCode).bodyField(value).build()
	if err != nil {
		return nil, err
	}
	return []string{line}, nil
}

func encodeCondition(ts, k string, o Observation) ([]string, error) {
	if o.IsUnavailable {
		line, err := newLine(ts).field(k).field(LevelUnavailable.String()).
			field("").field("").field("").bodyField("").build()
		if err != nil {
			return nil, err
		}
		return []string{line}, nil
	}
	p, ok := o.Payload.(ConditionValue)
	if !ok {
		return nil, ErrPayloadMismatch
	}
	lines := make([]string, 0, len(p.States))
	for _, st := range p.States {
		line, err := newLine(ts).field(k).field(st.Level.String()).
			field(st.NativeCode).field(st.NativeSeverity).field(st.Qualifier).
			bodyField(st.Message).build()
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, nil
}

func encodeTimeSeries(ts, k string, o Observation) ([]string, error) {
	if o.IsUnavailable {
		line, err := newLine(ts).field(k).field("0").field("0").field(Unavailable).build()
		if err != nil {
			return nil, err
		}
		return []string{line}, nil
	}
	p, ok := o.Payload.(TimeSeriesValue)
	if !ok {
		return nil, ErrPayloadMismatch
	}
	samples := make([]string, len(p.Samples))
	for i, s := range p.Samples {
		samples[i] = strconv.FormatFloat(s, 'g', -1, 64)
	}
	line, err := newLine(ts).field(k).
		field(strconv.Itoa(len(p.Samples))).
		field(strconv.FormatFloat(p.SampleRate, 'g', -1, 64)).
		field(strings.Join(samples, " ")).build()
	if err != nil {
		return nil, err
	}
	return []string{line}, nil
}

func encodeDataSet(ts, k string, o Observation) ([]string, error) {
	if o.IsUnavailable {
		line, err := newLine(ts).field(k).field(Unavailable).build()
		if err != nil {
			return nil, err
		}
		return []string{line}, nil
	}
	p, ok := o.Payload.(DataSetValue)
	if !ok {
		return nil, ErrPayloadMismatch
	}
	entries := make([]string, len(p.Entries))
	for i, e := range p.Entries {
		if e.Removed {
			entries[i] = e.Key + "="
		} else {
			entries[i] = e.Key + "=" + e.Value
		}
	}
	line, err := newLine(ts).field(k).field(strings.Join(entries, " ")).build()
	if err != nil {
		return nil, err
	}
	return []string{line}, nil
}

func encodeTable(ts, k string, o Observation) ([]string, error) {
	if o.IsUnavailable {
		line, err := newLine(ts).field(k).field(Unavailable).build()
		if err != nil {
			return nil, err
		}
		return []string{line}, nil
	}
	p, ok := o.Payload.(TableValue)
	if !ok {
		return nil, ErrPayloadMismatch
	}
	rows := make([]string, len(p.Rows))
	for i, r := range p.Rows {
		cells := make([]string, len(r.Cells))
		for j, c := range r.Cells {
			if c.Removed {
				cells[j] = c.Key + "="
			} else {
				cells[j] = c.Key + "=" + c.Value
			}
		}
		rows[i] = fmt.Sprintf("%s={%s}", r.Key, strings.Join(cells, " "))
	}
	line, err := newLine(ts).field(k).field(strings.Join(rows, " ")).build()
	if err != nil {
		return nil, err
	}
	return []string{line}, nil
}

// EncodeAsset renders a as one @ASSET@ line, or a multi-line
// --multiline--<hash> wrapped block when multiline is true.
func EncodeAsset(a Asset, multiline bool) ([]string, error) {
	ts := FormatTimestamp(a.Timestamp)
	if !multiline {
		line, err := newLine(ts).field(tokenAsset).field(a.AssetID).field(a.AssetType).bodyField(a.Body).build()
		if err != nil {
			return nil, err
		}
		return []string{line}, nil
	}
	sentinel := multilinePrefix + multilineHash(a.ChangeID)
	header, err := newLine(ts).field(tokenAsset).field(a.AssetID).field(a.AssetType).field(sentinel).build()
	if err != nil {
		return nil, err
	}
	lines := []string{header}
	lines = append(lines, strings.Split(a.Body, "\n")...)
	lines = append(lines, sentinel)
	return lines, nil
}

// EncodeRemoveAsset renders an @REMOVE_ASSET@ line.
func EncodeRemoveAsset(assetID string, timestamp int64) (string, error) {
	return newLine(FormatTimestamp(timestamp)).field(tokenRemoveAsset).field(assetID).build()
}

// EncodeRemoveAllAssets renders an @REMOVE_ALL_ASSETS@ line.
func EncodeRemoveAllAssets(assetType string, timestamp int64) (string, error) {
	return newLine(FormatTimestamp(timestamp)).field(tokenRemoveAllAssets).field(assetType).build()
}

// EncodeDevice renders d as one @DEVICE@ line, or a multi-line
// --multiline--<hash> wrapped block when multiline is true.
func EncodeDevice(d Device, multiline bool) ([]string, error) {
	ts := FormatTimestamp(d.Timestamp)
	if !multiline {
		line, err := newLine(ts).field(tokenDevice).field(d.DeviceUUID).bodyField(d.Body).build()
		if err != nil {
			return nil, err
		}
		return []string{line}, nil
	}
	sentinel := multilinePrefix + multilineHash(d.ChangeID)
	header, err := newLine(ts).field(tokenDevice).field(d.DeviceUUID).field(sentinel).build()
	if err != nil {
		return nil, err
	}
	lines := []string{header}
	lines = append(lines, strings.Split(d.Body, "\n")...)
	lines = append(lines, sentinel)
	return lines, nil
}

// EncodeRemoveDevice renders an @REMOVE_DEVICE@ line.
func EncodeRemoveDevice(deviceUUID string, timestamp int64) (string, error) {
	return newLine(FormatTimestamp(timestamp)).field(tokenRemoveDevice).field(deviceUUID).build()
}

// EncodeRemoveAllDevices renders an @REMOVE_ALL_DEVICES@ line.
func EncodeRemoveAllDevices(timestamp int64) (string, error) {
	return newLine(FormatTimestamp(timestamp)).field(tokenRemoveAllDevices).build()
}

// multilineHash derives the --multiline-- sentinel suffix from a
// change id: the first 16 hex characters (64 bits) of the digest. A body
// would have to contain a prefix of its own digest to collide with it;
// the body itself is not scanned for the sentinel.
func multilineHash(changeID [32]byte) string {
	const hexDigits = "0123456789abcdef"
	out := make([]byte, 16)
	for i := 0; i < 8; i++ {
		out[2*i] = hexDigits[changeID[i]>>4]
		out[2*i+1] = hexDigits[changeID[i]&0x0f]
	}
	return string(out)
}

// PingLine is the reserved ping request sent by agents.
const PingLine = tokenPing

// IsPing reports whether line (already trimmed) is the agent's ping
// request. Everything else received from a client is an unexpected
// protocol violation: ignored but logged.
func IsPing(line string) bool {
	return line == tokenPing
}

// PongLine renders the heartbeat reply, heartbeatMs milliseconds.
func PongLine(heartbeatMs int64) string {
	return tokenPongPrefix + strconv.FormatInt(heartbeatMs, 10)
}

// SplitLines splits buf on CR? LF, trims CR, and discards empty lines.
func SplitLines(buf []byte) []string {
	raw := strings.Split(string(buf), "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		l = strings.TrimRight(l, "\r")
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		lines = append(lines, l)
	}
	return lines
}
