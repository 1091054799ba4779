// Copyright 2020 thinkgos (thinkgo@aliyun.com).  All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

package adapter

import "github.com/mtconnect-go/shdr-adapter/shdr"

// Submit applies adapter defaults, drops duplicates when configured to,
// and otherwise accepts into the current table and flushes. Submission
// never fails synchronously: malformed observations become a soft
// EventSubmissionError instead of an error return.
func (a *Adapter) Submit(o shdr.Observation) {
	if a.acceptSubmission(&o) {
		a.SendCurrent()
	}
}

// SubmitBatch iterates Submit's acceptance logic over obs and flushes
// exactly once, instead of once per element. No transactional
// semantics across elements.
func (a *Adapter) SubmitBatch(obs []shdr.Observation) {
	accepted := false
	for i := range obs {
		if a.acceptSubmission(&obs[i]) {
			accepted = true
		}
	}
	if accepted {
		a.SendCurrent()
	}
}

// acceptSubmission applies defaults, validates, deduplicates, and —
// if the observation survives — stores it as the new current entry.
// Reports whether anything changed.
func (a *Adapter) acceptSubmission(o *shdr.Observation) bool {
	if o.DataItemKey == "" {
		a.rejectSubmission("empty data item key")
		return false
	}
	if o.Kind == 0 || int(o.Kind) > len(shdr.Kinds) {
		a.rejectSubmission("unknown observation kind")
		return false
	}

	if o.DeviceKey == "" {
		o.DeviceKey = a.cfg.DeviceKey
	}
	if o.Timestamp == 0 {
		o.Timestamp = nowMs()
	}
	o.Hash()

	if a.cfg.FilterDuplicates == nil || *a.cfg.FilterDuplicates {
		if cur, ok := a.store.Current(o.Kind, o.DataItemKey); ok && cur.ChangeID == o.ChangeID {
			if a.metrics != nil {
				a.metrics.SubmissionsDropped.Inc()
			}
			return false
		}
	}

	a.store.SetCurrent(*o)
	if a.metrics != nil {
		a.metrics.SubmissionsAccepted.Inc()
	}
	return true
}

func (a *Adapter) rejectSubmission(reason string) {
	if a.metrics != nil {
		a.metrics.SubmissionsDropped.Inc()
	}
	a.emit(Event{Type: EventSubmissionError, Message: reason})
}

// AddDataItem submits a single scalar value. A zero timestamp stamps
// now.
func (a *Adapter) AddDataItem(key, value string, timestamp int64) {
	a.Submit(shdr.Observation{
		DataItemKey: key,
		Timestamp:   timestamp,
		Kind:        shdr.KindDataItem,
		Payload:     shdr.DataItemValue{Value: value},
	})
}

// AddMessage submits a message observation. nativeCode may be empty.
func (a *Adapter) AddMessage(key, value, nativeCode string, timestamp int64) {
	a.Submit(shdr.Observation{
		DataItemKey: key,
		Timestamp:   timestamp,
		Kind:        shdr.KindMessage,
		Payload:     shdr.MessageValue{Value: value, NativeCode: nativeCode},
	})
}

// AddCondition submits the ordered list of currently active fault
// states for key.
func (a *Adapter) AddCondition(key string, timestamp int64, states ...shdr.FaultState) {
	a.Submit(shdr.Observation{
		DataItemKey: key,
		Timestamp:   timestamp,
		Kind:        shdr.KindCondition,
		Payload:     shdr.ConditionValue{States: states},
	})
}

// AddTimeSeries submits a sampled waveform at the given rate (Hz).
func (a *Adapter) AddTimeSeries(key string, samples []float64, rate float64, timestamp int64) {
	a.Submit(shdr.Observation{
		DataItemKey: key,
		Timestamp:   timestamp,
		Kind:        shdr.KindTimeSeries,
		Payload:     shdr.TimeSeriesValue{Samples: samples, SampleRate: rate},
	})
}

// AddDataSet submits a set of key/value entries, any of which may carry
// Removed=true to tombstone a previously published key.
func (a *Adapter) AddDataSet(key string, entries []shdr.DataSetEntry, timestamp int64) {
	a.Submit(shdr.Observation{
		DataItemKey: key,
		Timestamp:   timestamp,
		Kind:        shdr.KindDataSet,
		Payload:     shdr.DataSetValue{Entries: entries},
	})
}

// AddTable submits a set of rows, each a set of cells.
func (a *Adapter) AddTable(key string, rows []shdr.TableRow, timestamp int64) {
	a.Submit(shdr.Observation{
		DataItemKey: key,
		Timestamp:   timestamp,
		Kind:        shdr.KindTable,
		Payload:     shdr.TableValue{Rows: rows},
	})
}
