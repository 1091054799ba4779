// Copyright 2020 thinkgos (thinkgo@aliyun.com).  All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

package shdr

import "errors"

// Sentinel errors returned by the codec and observation model. These
// never cross the Adapter's public submission API — the adapter core
// converts them into soft EventSubmissionError values.
var (
	ErrEmptyKey        = errors.New("shdr: data item key is empty")
	ErrUnknownKind     = errors.New("shdr: unknown observation kind")
	ErrPayloadMismatch = errors.New("shdr: payload does not match observation kind")
	ErrEmbeddedPipe    = errors.New("shdr: field contains an embedded '|'")
	ErrEmbeddedNewline = errors.New("shdr: field contains an embedded newline outside multiline mode")
	ErrNonASCII        = errors.New("shdr: field contains non-ASCII bytes")
)
