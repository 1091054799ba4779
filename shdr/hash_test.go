package shdr_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mtconnect-go/shdr-adapter/shdr"
)

func TestChangeIDStableForEqualPayload(t *testing.T) {
	p := shdr.DataItemValue{Value: "ACTIVE"}
	h1 := shdr.ChangeID(shdr.KindDataItem, false, p)
	h2 := shdr.ChangeID(shdr.KindDataItem, false, p)
	assert.Equal(t, h1, h2)
}

func TestChangeIDDiffersOnValueChange(t *testing.T) {
	h1 := shdr.ChangeID(shdr.KindDataItem, false, shdr.DataItemValue{Value: "ACTIVE"})
	h2 := shdr.ChangeID(shdr.KindDataItem, false, shdr.DataItemValue{Value: "READY"})
	assert.NotEqual(t, h1, h2)
}

func TestChangeIDUnavailableAlwaysDiffers(t *testing.T) {
	available := shdr.ChangeID(shdr.KindDataItem, false, shdr.DataItemValue{Value: ""})
	unavailable := shdr.ChangeID(shdr.KindDataItem, true, nil)
	assert.NotEqual(t, available, unavailable)
}

func TestChangeIDDataSetOrderIndependent(t *testing.T) {
	a := shdr.DataSetValue{Entries: []shdr.DataSetEntry{{Key: "a", Value: "1"}, {Key: "b", Value: "2"}}}
	b := shdr.DataSetValue{Entries: []shdr.DataSetEntry{{Key: "b", Value: "2"}, {Key: "a", Value: "1"}}}
	assert.Equal(t, shdr.ChangeID(shdr.KindDataSet, false, a), shdr.ChangeID(shdr.KindDataSet, false, b))
}

func TestChangeIDTableOrderIndependent(t *testing.T) {
	a := shdr.TableValue{Rows: []shdr.TableRow{
		{Key: "r1", Cells: []shdr.TableCell{{Key: "x", Value: "1"}, {Key: "y", Value: "2"}}},
	}}
	b := shdr.TableValue{Rows: []shdr.TableRow{
		{Key: "r1", Cells: []shdr.TableCell{{Key: "y", Value: "2"}, {Key: "x", Value: "1"}}},
	}}
	assert.Equal(t, shdr.ChangeID(shdr.KindTable, false, a), shdr.ChangeID(shdr.KindTable, false, b))
}

func TestAssetChangeIDDependsOnBody(t *testing.T) {
	a := shdr.Asset{AssetType: "CuttingTool", Body: "<v1/>"}
	b := shdr.Asset{AssetType: "CuttingTool", Body: "<v2/>"}
	assert.NotEqual(t, a.Hash(), b.Hash())
}
