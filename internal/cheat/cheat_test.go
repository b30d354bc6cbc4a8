package cheat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodeRawEightHexDigitPatch(t *testing.T) {
	p, err := Decode("7E200A42")
	assert.NoError(t, err)
	assert.Equal(t, uint32(0x7E200A), p.Address)
	assert.Equal(t, uint8(0x42), p.Value)
	assert.False(t, p.HasCompare)
}

func TestDecodeRejectsMalformedCode(t *testing.T) {
	_, err := Decode("XYZ")
	assert.Error(t, err)
}

func TestDecodeGameGenieCompareCodeHasCompareByte(t *testing.T) {
	p, err := Decode("DFDFDFDF")
	assert.NoError(t, err)
	assert.True(t, p.HasCompare)
}

func TestDatabasePatchHonorsCompareByte(t *testing.T) {
	db := &Database{
		Entries: []Entry{{Name: "test", Code: "DFDFDFDF", Enabled: true}},
	}
	errs := db.Activate()
	assert.Empty(t, errs)

	p, err := Decode("DFDFDFDF")
	assert.NoError(t, err)

	_, applies := db.Patch(p.Address, p.Compare+1)
	assert.False(t, applies)

	v, applies := db.Patch(p.Address, p.Compare)
	assert.True(t, applies)
	assert.Equal(t, p.Value, v)
}

func TestDatabaseSkipsMalformedEntryWithoutFailingLoad(t *testing.T) {
	db := &Database{
		Entries: []Entry{
			{Name: "bad", Code: "ZZ", Enabled: true},
			{Name: "good", Code: "7E200A42", Enabled: true},
		},
	}
	errs := db.Activate()
	assert.Len(t, errs, 1)

	_, applies := db.Patch(0x7E200A, 0x00)
	assert.True(t, applies)
}
