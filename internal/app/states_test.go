package app

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStateManagerSaveAndLoadRoundTrips(t *testing.T) {
	dir := t.TempDir()
	sm := NewStateManager(dir)

	eng := newTestEngine(t)
	eng.Reset()
	eng.Bus.Write(0x7E2000, 0x77)

	romPath := "/roms/test.sfc"
	assert.NoError(t, sm.SaveState(eng, 0, romPath))
	assert.True(t, sm.HasSaveState(0, romPath))

	eng.Bus.Write(0x7E2000, 0x00)
	assert.NoError(t, sm.LoadState(eng, 0, romPath))
	assert.Equal(t, uint8(0x77), eng.Bus.Read(0x7E2000))
}

func TestStateManagerLoadRejectsMismatchedROM(t *testing.T) {
	dir := t.TempDir()
	sm := NewStateManager(dir)

	eng := newTestEngine(t)
	assert.NoError(t, sm.SaveState(eng, 1, "/roms/a.sfc"))

	err := sm.LoadState(eng, 1, "/roms/b.sfc")
	assert.Error(t, err)
}

func TestStateManagerRejectsOutOfRangeSlot(t *testing.T) {
	dir := t.TempDir()
	sm := NewStateManager(dir)
	eng := newTestEngine(t)

	assert.Error(t, sm.SaveState(eng, -1, "/roms/test.sfc"))
	assert.Error(t, sm.SaveState(eng, sm.GetMaxSlots(), "/roms/test.sfc"))
}

func TestStateManagerDeleteStateRemovesSlot(t *testing.T) {
	dir := t.TempDir()
	sm := NewStateManager(dir)
	eng := newTestEngine(t)
	romPath := "/roms/test.sfc"

	assert.NoError(t, sm.SaveState(eng, 2, romPath))
	assert.True(t, sm.HasSaveState(2, romPath))

	assert.NoError(t, sm.DeleteState(2, romPath))
	assert.False(t, sm.HasSaveState(2, romPath))
}

func TestStateManagerGetSlotInfoReportsUsedSlots(t *testing.T) {
	dir := t.TempDir()
	sm := NewStateManager(dir)
	eng := newTestEngine(t)
	romPath := "/roms/test.sfc"

	assert.NoError(t, sm.SaveState(eng, 3, romPath))

	slots := sm.GetSlotInfo(romPath)
	assert.Len(t, slots, sm.GetMaxSlots())
	assert.True(t, slots[3].Used)
	assert.False(t, slots[0].Used)
}

func TestStateManagerExportImportRoundTrips(t *testing.T) {
	dir := t.TempDir()
	sm := NewStateManager(dir)
	eng := newTestEngine(t)
	eng.Bus.Write(0x7E3000, 0x99)

	exportPath := filepath.Join(dir, "exported.state")
	assert.NoError(t, sm.ExportState(eng, exportPath, "/roms/test.sfc"))

	eng.Bus.Write(0x7E3000, 0x00)
	assert.NoError(t, sm.ImportState(eng, exportPath, "/roms/test.sfc"))
	assert.Equal(t, uint8(0x99), eng.Bus.Read(0x7E3000))
}
