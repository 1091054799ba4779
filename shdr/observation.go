// Copyright 2020 thinkgos (thinkgo@aliyun.com).  All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

package shdr

// Observation is a tagged union: one struct and one Kind tag instead of
// six parallel OnXAdd code paths. Payload holds one of DataItemValue,
// MessageValue, ConditionValue, TimeSeriesValue, DataSetValue or
// TableValue, matching Kind. The adapter's SetUnavailable leaves it nil
// for every kind, and the codec ignores it when IsUnavailable is true.
type Observation struct {
	DeviceKey     string
	DataItemKey   string
	Timestamp     int64 // milliseconds since Unix epoch; 0 means "stamp on submit"
	Kind          Kind
	IsUnavailable bool
	Payload       interface{}

	// ChangeID is the content hash over Payload (and the unavailable
	// marker), excluding Timestamp. Populated by Observation.Hash or by
	// the adapter on submit.
	ChangeID [32]byte

	// IsSent is maintained by the State Store, not by producers.
	IsSent bool
}

// Hash computes and stores o.ChangeID, returning it.
func (o *Observation) Hash() [32]byte {
	o.ChangeID = ChangeID(o.Kind, o.IsUnavailable, o.Payload)
	return o.ChangeID
}

// DataItemValue is the payload of a KindDataItem observation: a single
// scalar value or UNAVAILABLE.
type DataItemValue struct {
	Value string
}

// MessageValue is the payload of a KindMessage observation.
type MessageValue struct {
	Value      string
	NativeCode string // optional
}

// FaultState is one entry of a Condition observation's ordered fault list.
type FaultState struct {
	Level          ConditionLevel
	NativeCode     string
	NativeSeverity string
	Qualifier      string
	Message        string
}

// ConditionValue is the payload of a KindCondition observation: an
// ordered list of simultaneously active fault states.
type ConditionValue struct {
	States []FaultState
}

// TimeSeriesValue is the payload of a KindTimeSeries observation.
type TimeSeriesValue struct {
	Samples    []float64
	SampleRate float64 // Hz
}

// DataSetEntry is one key/value pair of a DataSet observation.
type DataSetEntry struct {
	Key     string
	Value   string
	Removed bool
}

// DataSetValue is the payload of a KindDataSet observation.
type DataSetValue struct {
	Entries []DataSetEntry
}

// TableCell is one key/value pair within a TableRow.
type TableCell struct {
	Key     string
	Value   string
	Removed bool
}

// TableRow is one row of a Table observation, identified by Key.
type TableRow struct {
	Key   string
	Cells []TableCell
}

// TableValue is the payload of a KindTable observation.
type TableValue struct {
	Rows []TableRow
}

// Asset is the serialized-body asset record. Body is opaque to this
// package.
type Asset struct {
	AssetID   string
	AssetType string
	Timestamp int64
	Body      string

	ChangeID [32]byte
}

// Hash computes and stores a.ChangeID over (AssetType, Body), returning it.
func (a *Asset) Hash() [32]byte {
	a.ChangeID = assetChangeID(a.AssetType, a.Body)
	return a.ChangeID
}

// Device is the serialized-body device record.
type Device struct {
	DeviceUUID string
	Timestamp  int64
	Body       string

	ChangeID [32]byte
}

// Hash computes and stores d.ChangeID over Body, returning it.
func (d *Device) Hash() [32]byte {
	d.ChangeID = deviceChangeID(d.Body)
	return d.ChangeID
}
