// Copyright 2020 thinkgos (thinkgo@aliyun.com).  All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

package adapter

import "github.com/mtconnect-go/shdr-adapter/shdr"

// SendAsset replaces the stored asset and writes an @ASSET@ line only
// if its change id differs from what is already stored. A zero or
// negative timestamp is stamped with now.
func (a *Adapter) SendAsset(asset shdr.Asset) {
	if asset.Timestamp <= 0 {
		asset.Timestamp = nowMs()
	}
	asset.Hash()

	if cur, ok := a.store.Asset(asset.AssetID); ok && cur.ChangeID == asset.ChangeID {
		return
	}
	a.store.SetAsset(asset)

	lines, err := shdr.EncodeAsset(asset, a.cfg.MultilineAssets)
	if err != nil {
		a.emit(Event{Type: EventSubmissionError, Message: err.Error(), Err: err})
		return
	}
	a.broadcastLines(lines)
}

// RemoveAsset writes an @REMOVE_ASSET@ line without touching the
// stored asset table (removal is a wire-level instruction to the
// Agent, not a local deletion).
func (a *Adapter) RemoveAsset(assetID string, timestamp int64) {
	if timestamp <= 0 {
		timestamp = nowMs()
	}
	line, err := shdr.EncodeRemoveAsset(assetID, timestamp)
	if err != nil {
		a.emit(Event{Type: EventSubmissionError, Message: err.Error(), Err: err})
		return
	}
	a.broadcastLines([]string{line})
}

// RemoveAllAssets writes an @REMOVE_ALL_ASSETS@ line for the given
// asset type.
func (a *Adapter) RemoveAllAssets(assetType string, timestamp int64) {
	if timestamp <= 0 {
		timestamp = nowMs()
	}
	line, err := shdr.EncodeRemoveAllAssets(assetType, timestamp)
	if err != nil {
		a.emit(Event{Type: EventSubmissionError, Message: err.Error(), Err: err})
		return
	}
	a.broadcastLines([]string{line})
}

// SendDevice is the device equivalent of SendAsset.
func (a *Adapter) SendDevice(device shdr.Device) {
	if device.Timestamp <= 0 {
		device.Timestamp = nowMs()
	}
	device.Hash()

	if cur, ok := a.store.Device(device.DeviceUUID); ok && cur.ChangeID == device.ChangeID {
		return
	}
	a.store.SetDevice(device)

	lines, err := shdr.EncodeDevice(device, a.cfg.MultilineDevices)
	if err != nil {
		a.emit(Event{Type: EventSubmissionError, Message: err.Error(), Err: err})
		return
	}
	a.broadcastLines(lines)
}

// RemoveDevice writes an @REMOVE_DEVICE@ line.
func (a *Adapter) RemoveDevice(deviceUUID string, timestamp int64) {
	if timestamp <= 0 {
		timestamp = nowMs()
	}
	line, err := shdr.EncodeRemoveDevice(deviceUUID, timestamp)
	if err != nil {
		a.emit(Event{Type: EventSubmissionError, Message: err.Error(), Err: err})
		return
	}
	a.broadcastLines([]string{line})
}

// RemoveAllDevices writes an @REMOVE_ALL_DEVICES@ line.
func (a *Adapter) RemoveAllDevices(timestamp int64) {
	if timestamp <= 0 {
		timestamp = nowMs()
	}
	line, err := shdr.EncodeRemoveAllDevices(timestamp)
	if err != nil {
		a.emit(Event{Type: EventSubmissionError, Message: err.Error(), Err: err})
		return
	}
	a.broadcastLines([]string{line})
}
