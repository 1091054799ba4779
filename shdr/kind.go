// Copyright 2020 thinkgos (thinkgo@aliyun.com).  All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

// Package shdr implements the stateless half of the SHDR wire contract:
// encoding observation records into Simple Hierarchical Data
// Representation lines, splitting received buffers back into lines, and
// computing the content hash ("change id") used for duplicate
// suppression. Nothing in this package holds state across calls.
package shdr

import "fmt"

// Kind identifies which of the six observation payloads an Observation
// carries.
type Kind uint8

// The six observation kinds.
const (
	_ Kind = iota
	KindDataItem
	KindMessage
	KindCondition
	KindTimeSeries
	KindDataSet
	KindTable
)

func (k Kind) String() string {
	switch k {
	case KindDataItem:
		return "DataItem"
	case KindMessage:
		return "Message"
	case KindCondition:
		return "Condition"
	case KindTimeSeries:
		return "TimeSeries"
	case KindDataSet:
		return "DataSet"
	case KindTable:
		return "Table"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Kinds lists every concrete observation kind, in the order the State
// Store iterates them for send_current/send_last flushes.
var Kinds = [...]Kind{
	KindDataItem,
	KindMessage,
	KindCondition,
	KindTimeSeries,
	KindDataSet,
	KindTable,
}

// ConditionLevel is the fault state of one condition entry.
// See the Condition payload.
type ConditionLevel uint8

// The four condition levels.
const (
	LevelNormal ConditionLevel = iota
	LevelWarning
	LevelFault
	LevelUnavailable
)

func (l ConditionLevel) String() string {
	switch l {
	case LevelNormal:
		return "NORMAL"
	case LevelWarning:
		return "WARNING"
	case LevelFault:
		return "FAULT"
	case LevelUnavailable:
		return "UNAVAILABLE"
	default:
		return fmt.Sprintf("ConditionLevel(%d)", uint8(l))
	}
}

// Unavailable is the wire sentinel for a missing value.
const Unavailable = "UNAVAILABLE"
