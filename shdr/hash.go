// Copyright 2020 thinkgos (thinkgo@aliyun.com).  All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

package shdr

import (
	"crypto/sha256"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Field and record separators chosen from the ASCII control range, which
// ordinary observation values do not use. The codec's validateField
// rejects non-ASCII bytes, CR and LF, but not these two bytes.
const (
	fieldSep  = "\x1f"
	recordSep = "\x1e"
)

// unavailableTag is folded into the hash input whenever IsUnavailable is
// true, so that toggling availability always changes ChangeID even when
// the stored Payload is otherwise identical or nil.
const unavailableTag = "\x00UNAVAILABLE\x00"

// ChangeID computes the content hash of a payload for the given kind.
// The timestamp is never part of the input: two observations with the
// same key are semantically identical, for deduplication purposes, iff
// their ChangeID matches, regardless of when each was produced.
func ChangeID(kind Kind, isUnavailable bool, payload interface{}) [32]byte {
	var b strings.Builder
	b.WriteString(kind.String())
	b.WriteString(fieldSep)
	if isUnavailable {
		b.WriteString(unavailableTag)
	}

	switch p := payload.(type) {
	case nil:
		// UNAVAILABLE observations built by the adapter's SetUnavailable
		// carry no payload, whatever their kind; the unavailableTag above
		// is the entire hashed content.
	case DataItemValue:
		b.WriteString(p.Value)
	case MessageValue:
		b.WriteString(p.Value)
		b.WriteString(fieldSep)
		b.WriteString(p.NativeCode)
	case ConditionValue:
		for _, st := range p.States {
			fmt.Fprintf(&b, "%d%s%s%s%s%s%s%s%s%s",
				st.Level, fieldSep,
				st.NativeCode, fieldSep,
				st.NativeSeverity, fieldSep,
				st.Qualifier, fieldSep,
				st.Message, recordSep)
		}
	case TimeSeriesValue:
		fmt.Fprintf(&b, "%d%s%s", len(p.Samples), fieldSep, strconv.FormatFloat(p.SampleRate, 'g', -1, 64))
		for _, s := range p.Samples {
			b.WriteString(fieldSep)
			b.WriteString(strconv.FormatFloat(s, 'g', -1, 64))
		}
	case DataSetValue:
		entries := append([]DataSetEntry(nil), p.Entries...)
		sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
		for _, e := range entries {
			fmt.Fprintf(&b, "%s=%s:%t%s", e.Key, e.Value, e.Removed, recordSep)
		}
	case TableValue:
		rows := append([]TableRow(nil), p.Rows...)
		sort.Slice(rows, func(i, j int) bool { return rows[i].Key < rows[j].Key })
		for _, r := range rows {
			cells := append([]TableCell(nil), r.Cells...)
			sort.Slice(cells, func(i, j int) bool { return cells[i].Key < cells[j].Key })
			fmt.Fprintf(&b, "%s{", r.Key)
			for _, c := range cells {
				fmt.Fprintf(&b, "%s=%s:%t,", c.Key, c.Value, c.Removed)
			}
			b.WriteString("}")
			b.WriteString(recordSep)
		}
	default:
		// Unknown payload type: still produces a stable (if meaningless)
		// hash rather than panicking; callers validate Kind/Payload
		// consistency before this is ever reached in practice.
		fmt.Fprintf(&b, "%v", p)
	}

	return sha256.Sum256([]byte(b.String()))
}

func assetChangeID(assetType, body string) [32]byte {
	var b strings.Builder
	b.WriteString("Asset")
	b.WriteString(fieldSep)
	b.WriteString(assetType)
	b.WriteString(fieldSep)
	b.WriteString(body)
	return sha256.Sum256([]byte(b.String()))
}

func deviceChangeID(body string) [32]byte {
	var b strings.Builder
	b.WriteString("Device")
	b.WriteString(fieldSep)
	b.WriteString(body)
	return sha256.Sum256([]byte(b.String()))
}
