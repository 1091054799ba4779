package shdr_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mtconnect-go/shdr-adapter/shdr"
)

func TestEncodeDataItem(t *testing.T) {
	o := shdr.Observation{
		DeviceKey:   "Xact",
		DataItemKey: "Xact",
		Timestamp:   1_700_000_000_000,
		Kind:        shdr.KindDataItem,
		Payload:     shdr.DataItemValue{Value: "12.5"},
	}
	lines, err := shdr.Encode(o, "Xact")
	require.NoError(t, err)
	assert.Equal(t, []string{"2023-11-14T22:13:20.000Z|Xact|12.5"}, lines)
}

func TestEncodeDataItemDeviceScopedKey(t *testing.T) {
	o := shdr.Observation{
		DeviceKey:   "mill-2",
		DataItemKey: "exec",
		Timestamp:   1_700_000_000_000,
		Kind:        shdr.KindDataItem,
		Payload:     shdr.DataItemValue{Value: "ACTIVE"},
	}
	lines, err := shdr.Encode(o, "mill-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"2023-11-14T22:13:20.000Z|mill-2:exec|ACTIVE"}, lines)
}

func TestEncodeDataItemUnavailable(t *testing.T) {
	o := shdr.Observation{
		DeviceKey:     "m1",
		DataItemKey:   "avail",
		Timestamp:     1,
		Kind:          shdr.KindDataItem,
		IsUnavailable: true,
	}
	lines, err := shdr.Encode(o, "m1")
	require.NoError(t, err)
	assert.Equal(t, []string{"1970-01-01T00:00:00.001Z|avail|UNAVAILABLE"}, lines)
}

func TestEncodeCondition(t *testing.T) {
	o := shdr.Observation{
		DeviceKey:   "m1",
		DataItemKey: "servo",
		Timestamp:   1,
		Kind:        shdr.KindCondition,
		Payload: shdr.ConditionValue{States: []shdr.FaultState{
			{Level: shdr.LevelFault, NativeCode: "100", NativeSeverity: "2", Qualifier: "HIGH", Message: "over temp"},
		}},
	}
	lines, err := shdr.Encode(o, "m1")
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, "1970-01-01T00:00:00.001Z|servo|FAULT|100|2|HIGH|over temp", lines[0])
}

func TestEncodeConditionMultipleStatesOneLinePerState(t *testing.T) {
	o := shdr.Observation{
		DeviceKey:   "m1",
		DataItemKey: "servo",
		Timestamp:   1,
		Kind:        shdr.KindCondition,
		Payload: shdr.ConditionValue{States: []shdr.FaultState{
			{Level: shdr.LevelFault, NativeCode: "100"},
			{Level: shdr.LevelWarning, NativeCode: "200"},
		}},
	}
	lines, err := shdr.Encode(o, "m1")
	require.NoError(t, err)
	require.Len(t, lines, 2)
}

func TestEncodeTimeSeries(t *testing.T) {
	o := shdr.Observation{
		DeviceKey:   "m1",
		DataItemKey: "vib",
		Timestamp:   1,
		Kind:        shdr.KindTimeSeries,
		Payload: shdr.TimeSeriesValue{
			Samples:    []float64{1, 2, 3},
			SampleRate: 100,
		},
	}
	lines, err := shdr.Encode(o, "m1")
	require.NoError(t, err)
	assert.Equal(t, "1970-01-01T00:00:00.001Z|vib|3|100|1 2 3", lines[0])
}

func TestEncodeDataSetWithRemoval(t *testing.T) {
	o := shdr.Observation{
		DeviceKey:   "m1",
		DataItemKey: "vars",
		Timestamp:   1,
		Kind:        shdr.KindDataSet,
		Payload: shdr.DataSetValue{Entries: []shdr.DataSetEntry{
			{Key: "a", Value: "1"},
			{Key: "b", Removed: true},
		}},
	}
	lines, err := shdr.Encode(o, "m1")
	require.NoError(t, err)
	assert.Equal(t, "1970-01-01T00:00:00.001Z|vars|a=1 b=", lines[0])
}

func TestEncodeTable(t *testing.T) {
	o := shdr.Observation{
		DeviceKey:   "m1",
		DataItemKey: "offsets",
		Timestamp:   1,
		Kind:        shdr.KindTable,
		Payload: shdr.TableValue{Rows: []shdr.TableRow{
			{Key: "row1", Cells: []shdr.TableCell{{Key: "x", Value: "1"}, {Key: "y", Value: "2"}}},
		}},
	}
	lines, err := shdr.Encode(o, "m1")
	require.NoError(t, err)
	assert.Equal(t, "1970-01-01T00:00:00.001Z|offsets|row1={x=1 y=2}", lines[0])
}

func TestEncodeRejectsEmbeddedPipeInKey(t *testing.T) {
	o := shdr.Observation{
		DataItemKey: "bad|key",
		Timestamp:   1,
		Kind:        shdr.KindDataItem,
		Payload:     shdr.DataItemValue{Value: "1"},
	}
	_, err := shdr.Encode(o, "")
	assert.ErrorIs(t, err, shdr.ErrEmbeddedPipe)
}

func TestEncodeAllowsEmbeddedPipeInMessageBody(t *testing.T) {
	o := shdr.Observation{
		DataItemKey: "msg",
		Timestamp:   1,
		Kind:        shdr.KindMessage,
		Payload:     shdr.MessageValue{Value: "a|b"},
	}
	lines, err := shdr.Encode(o, "")
	require.NoError(t, err)
	assert.Equal(t, "1970-01-01T00:00:00.001Z|msg||a|b", lines[0])
}

func TestEncodeAssetRejectsEmbeddedNewlineWhenNotMultiline(t *testing.T) {
	a := shdr.Asset{AssetID: "A1", AssetType: "CuttingTool", Timestamp: 1, Body: "<line1>\n<line2>"}
	a.Hash()
	_, err := shdr.EncodeAsset(a, false)
	assert.ErrorIs(t, err, shdr.ErrEmbeddedNewline)
}

func TestEncodeDeviceRejectsEmbeddedNewlineWhenNotMultiline(t *testing.T) {
	d := shdr.Device{DeviceUUID: "dev-1", Timestamp: 1, Body: "<Device>\r\n</Device>"}
	d.Hash()
	_, err := shdr.EncodeDevice(d, false)
	assert.ErrorIs(t, err, shdr.ErrEmbeddedNewline)
}

func TestEncodeAssetMultiline(t *testing.T) {
	a := shdr.Asset{AssetID: "A1", AssetType: "CuttingTool", Timestamp: 1, Body: "<line1>\n<line2>"}
	a.Hash()
	lines, err := shdr.EncodeAsset(a, true)
	require.NoError(t, err)
	require.Len(t, lines, 4) // header, 2 body lines, footer sentinel
	assert.Contains(t, lines[0], "--multiline--")
	assert.True(t, strings.HasSuffix(lines[0], lines[len(lines)-1]))
}

func TestSplitLinesTrimsAndDropsEmpty(t *testing.T) {
	lines := shdr.SplitLines([]byte("a|1\r\n\r\nb|2\n"))
	assert.Equal(t, []string{"a|1", "b|2"}, lines)
}

func TestIsPing(t *testing.T) {
	assert.True(t, shdr.IsPing("* PING"))
	assert.False(t, shdr.IsPing("* PONG 10000"))
}

func TestPongLine(t *testing.T) {
	assert.Equal(t, "* PONG 10000", shdr.PongLine(10000))
}
