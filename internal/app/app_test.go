package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"gosnes/internal/cartridge"
	"gosnes/internal/graphics"
	"gosnes/internal/input"
)

func TestButtonToBitMapsPlayerOneButtons(t *testing.T) {
	bit, isPlayer2, ok := buttonToBit(graphics.ButtonA)
	assert.True(t, ok)
	assert.False(t, isPlayer2)
	assert.Equal(t, uint16(input.ButtonA), bit)
}

func TestButtonToBitMapsPlayerTwoButtons(t *testing.T) {
	bit, isPlayer2, ok := buttonToBit(graphics.Button2Y)
	assert.True(t, ok)
	assert.True(t, isPlayer2)
	assert.Equal(t, uint16(input.ButtonY), bit)
}

func TestButtonToBitRejectsUnknownButton(t *testing.T) {
	_, _, ok := buttonToBit(graphics.ButtonUnknown)
	assert.False(t, ok)
}

func TestSetBitTogglesWord(t *testing.T) {
	var word uint16
	setBit(&word, input.ButtonStart, true)
	assert.Equal(t, uint16(input.ButtonStart), word)

	setBit(&word, input.ButtonStart, false)
	assert.Equal(t, uint16(0), word)
}

func newHeadlessApplication(t *testing.T) *Application {
	t.Helper()
	app, err := NewApplicationWithMode("", true)
	assert.NoError(t, err)
	assert.True(t, app.initialized)
	return app
}

func writeTestROM(t *testing.T) string {
	t.Helper()
	rom := cartridge.BuildTestROM(0x8000, 0x8000)
	path := filepath.Join(t.TempDir(), "test.sfc")
	assert.NoError(t, os.WriteFile(path, rom, 0644))
	return path
}

func TestNewApplicationWithModeHeadlessInitializes(t *testing.T) {
	app := newHeadlessApplication(t)
	assert.Equal(t, "Headless", app.graphicsBackend.GetName())
	assert.Nil(t, app.window)
}

func TestLoadROMWiresEngineAndStartsEmulator(t *testing.T) {
	app := newHeadlessApplication(t)
	romPath := writeTestROM(t)

	assert.NoError(t, app.LoadROM(romPath))
	assert.NotNil(t, app.GetEngine())
	assert.Equal(t, romPath, app.GetROMPath())
	assert.True(t, app.emulator.IsRunning())
}

func TestLoadROMRejectsMissingFile(t *testing.T) {
	app := newHeadlessApplication(t)
	err := app.LoadROM("/nonexistent/path.sfc")
	assert.Error(t, err)
}

func TestSaveAndLoadStateRequireLoadedROM(t *testing.T) {
	app := newHeadlessApplication(t)
	assert.Error(t, app.SaveState(0))
	assert.Error(t, app.LoadState(0))
}

func TestSaveAndLoadStateRoundTripsThroughApplication(t *testing.T) {
	app := newHeadlessApplication(t)
	romPath := writeTestROM(t)
	assert.NoError(t, app.LoadROM(romPath))

	app.GetEngine().Bus.Write(0x7E4000, 0x55)
	assert.NoError(t, app.SaveState(4))

	app.GetEngine().Bus.Write(0x7E4000, 0x00)
	assert.NoError(t, app.LoadState(4))
	assert.Equal(t, uint8(0x55), app.GetEngine().Bus.Read(0x7E4000))
}

func TestTogglePauseAndMenuFlags(t *testing.T) {
	app := newHeadlessApplication(t)

	assert.False(t, app.IsPaused())
	app.TogglePause()
	assert.True(t, app.IsPaused())
	app.TogglePause()
	assert.False(t, app.IsPaused())

	assert.False(t, app.IsMenuVisible())
	app.ToggleMenu()
	assert.True(t, app.IsMenuVisible())
	assert.True(t, app.IsPaused())
	app.ToggleMenu()
	assert.False(t, app.IsMenuVisible())
}

func TestResetDelegatesToEngine(t *testing.T) {
	app := newHeadlessApplication(t)
	romPath := writeTestROM(t)
	assert.NoError(t, app.LoadROM(romPath))

	assert.NotPanics(t, func() { app.Reset() })
}

func TestCleanupMarksApplicationUninitialized(t *testing.T) {
	app := newHeadlessApplication(t)
	assert.NoError(t, app.Cleanup())
	assert.False(t, app.initialized)
}
