//go:build !headless
// +build !headless

package graphics

import (
	"testing"
)

// TestEbitengineBackend_Initialize tests backend initialization
func TestEbitengineBackend_Initialize(t *testing.T) {
	backend := NewEbitengineBackend()

	config := Config{
		WindowTitle:  "Test Window",
		WindowWidth:  768,
		WindowHeight: 672,
		Fullscreen:   false,
		VSync:        true,
		Filter:       "nearest",
		AspectRatio:  "4:3",
		Headless:     false,
		Debug:        false,
	}

	err := backend.Initialize(config)
	if err != nil {
		t.Fatalf("Expected successful initialization, got error: %v", err)
	}

	if !backend.(*EbitengineBackend).initialized {
		t.Error("Backend should be marked as initialized")
	}

	if backend.(*EbitengineBackend).config.WindowTitle != "Test Window" {
		t.Error("Config not properly stored during initialization")
	}
}

// TestEbitengineBackend_DoubleInitialize tests that double initialization fails
func TestEbitengineBackend_DoubleInitialize(t *testing.T) {
	backend := NewEbitengineBackend()

	config := Config{
		WindowTitle: "Test Window",
		Headless:    false,
	}

	err := backend.Initialize(config)
	if err != nil {
		t.Fatalf("First initialization failed: %v", err)
	}

	err = backend.Initialize(config)
	if err == nil {
		t.Fatal("Expected error on double initialization, got nil")
	}

	expectedError := "Ebitengine backend already initialized"
	if err.Error() != expectedError {
		t.Errorf("Expected error message '%s', got '%s'", expectedError, err.Error())
	}
}

// TestEbitengineBackend_CreateWindow tests window creation
func TestEbitengineBackend_CreateWindow(t *testing.T) {
	backend := NewEbitengineBackend()

	config := Config{
		WindowTitle:  "Test Window",
		WindowWidth:  768,
		WindowHeight: 672,
		Headless:     false,
	}

	err := backend.Initialize(config)
	if err != nil {
		t.Fatalf("Backend initialization failed: %v", err)
	}

	window, err := backend.CreateWindow("Test Game", 768, 672)
	if err != nil {
		t.Fatalf("Window creation failed: %v", err)
	}

	if window == nil {
		t.Fatal("Window should not be nil")
	}

	width, height := window.GetSize()
	if width != 768 || height != 672 {
		t.Errorf("Expected window size 768x672, got %dx%d", width, height)
	}

	ebitengineBackend := backend.(*EbitengineBackend)
	if ebitengineBackend.game == nil {
		t.Error("Backend should have game instance after window creation")
	}
}

// TestEbitengineBackend_CreateWindow_Uninitialized tests window creation on uninitialized backend
func TestEbitengineBackend_CreateWindow_Uninitialized(t *testing.T) {
	backend := NewEbitengineBackend()

	_, err := backend.CreateWindow("Test Game", 768, 672)
	if err == nil {
		t.Fatal("Expected error when creating window on uninitialized backend")
	}

	expectedError := "backend not initialized"
	if err.Error() != expectedError {
		t.Errorf("Expected error message '%s', got '%s'", expectedError, err.Error())
	}
}

// TestEbitengineBackend_CreateWindow_Headless tests window creation in headless mode
func TestEbitengineBackend_CreateWindow_Headless(t *testing.T) {
	backend := NewEbitengineBackend()

	config := Config{
		Headless: true,
	}

	err := backend.Initialize(config)
	if err != nil {
		t.Fatalf("Backend initialization failed: %v", err)
	}

	_, err = backend.CreateWindow("Test Game", 768, 672)
	if err == nil {
		t.Fatal("Expected error when creating window in headless mode")
	}

	expectedError := "cannot create window in headless mode"
	if err.Error() != expectedError {
		t.Errorf("Expected error message '%s', got '%s'", expectedError, err.Error())
	}
}

// TestEbitengineWindow_RenderFrame tests frame rendering at native resolution
func TestEbitengineWindow_RenderFrame(t *testing.T) {
	backend := NewEbitengineBackend()

	config := Config{
		WindowTitle: "Test Window",
		Headless:    false,
	}

	err := backend.Initialize(config)
	if err != nil {
		t.Fatalf("Backend initialization failed: %v", err)
	}

	window, err := backend.CreateWindow("Test Game", 768, 672)
	if err != nil {
		t.Fatalf("Window creation failed: %v", err)
	}

	frameBuffer := make([]uint32, 256*224)
	for i := 0; i < len(frameBuffer); i++ {
		if i%2 == 0 {
			frameBuffer[i] = 0xFF0000FF // Red
		} else {
			frameBuffer[i] = 0x0000FFFF // Blue
		}
	}

	err = window.RenderFrame(frameBuffer, 256, 224)
	if err != nil {
		t.Fatalf("RenderFrame failed: %v", err)
	}

	ebitengineWindow := window.(*EbitengineWindow)
	if ebitengineWindow.game == nil {
		t.Fatal("Game instance should not be nil after rendering")
	}

	for i := 0; i < 10; i++ {
		expected := frameBuffer[i]
		actual := ebitengineWindow.game.frameBuffer[i]
		if actual != expected {
			t.Errorf("Frame buffer pixel %d: expected 0x%08X, got 0x%08X", i, expected, actual)
		}
	}
}

// TestEbitengineWindow_RenderFrame_HiResResize tests that a hi-res frame
// reallocates the backing image
func TestEbitengineWindow_RenderFrame_HiResResize(t *testing.T) {
	backend := NewEbitengineBackend()

	err := backend.Initialize(Config{WindowTitle: "Test Window"})
	if err != nil {
		t.Fatalf("Backend initialization failed: %v", err)
	}

	window, err := backend.CreateWindow("Test Game", 768, 672)
	if err != nil {
		t.Fatalf("Window creation failed: %v", err)
	}

	native := make([]uint32, 256*224)
	if err := window.RenderFrame(native, 256, 224); err != nil {
		t.Fatalf("native RenderFrame failed: %v", err)
	}

	hiRes := make([]uint32, 512*448)
	if err := window.RenderFrame(hiRes, 512, 448); err != nil {
		t.Fatalf("hi-res RenderFrame failed: %v", err)
	}

	ebitengineWindow := window.(*EbitengineWindow)
	if ebitengineWindow.game.frameWidth != 512 || ebitengineWindow.game.frameHeight != 448 {
		t.Errorf("expected game dimensions 512x448, got %dx%d", ebitengineWindow.game.frameWidth, ebitengineWindow.game.frameHeight)
	}
}

// TestEbitengineWindow_RenderFrame_SizeMismatch tests that a frame whose
// length doesn't match width*height is rejected
func TestEbitengineWindow_RenderFrame_SizeMismatch(t *testing.T) {
	backend := NewEbitengineBackend()
	err := backend.Initialize(Config{WindowTitle: "Test Window"})
	if err != nil {
		t.Fatalf("Backend initialization failed: %v", err)
	}

	window, err := backend.CreateWindow("Test Game", 768, 672)
	if err != nil {
		t.Fatalf("Window creation failed: %v", err)
	}

	frameBuffer := make([]uint32, 10)
	err = window.RenderFrame(frameBuffer, 256, 224)
	if err == nil {
		t.Fatal("Expected error for mismatched frame buffer size")
	}
}

// TestEbitengineWindow_RenderFrame_NilGame tests rendering with nil game
func TestEbitengineWindow_RenderFrame_NilGame(t *testing.T) {
	window := &EbitengineWindow{
		game: nil,
	}

	frameBuffer := make([]uint32, 256*224)
	err := window.RenderFrame(frameBuffer, 256, 224)
	if err == nil {
		t.Fatal("Expected error when rendering with nil game")
	}

	expectedError := "game not initialized"
	if err.Error() != expectedError {
		t.Errorf("Expected error message '%s', got '%s'", expectedError, err.Error())
	}
}

// TestEbitengineWindow_EmulatorUpdateFunc tests emulator update function integration
func TestEbitengineWindow_EmulatorUpdateFunc(t *testing.T) {
	backend := NewEbitengineBackend()

	config := Config{
		WindowTitle: "Test Window",
		Headless:    false,
	}

	err := backend.Initialize(config)
	if err != nil {
		t.Fatalf("Backend initialization failed: %v", err)
	}

	window, err := backend.CreateWindow("Test Game", 768, 672)
	if err != nil {
		t.Fatalf("Window creation failed: %v", err)
	}

	ebitengineWindow := window.(*EbitengineWindow)

	updateCalled := false
	updateFunc := func() error {
		updateCalled = true
		return nil
	}

	ebitengineWindow.SetEmulatorUpdateFunc(updateFunc)

	if ebitengineWindow.emulatorUpdateFunc == nil {
		t.Fatal("Emulator update function should be set")
	}

	err = ebitengineWindow.game.Update()
	if err != nil {
		t.Fatalf("Game Update failed: %v", err)
	}

	if !updateCalled {
		t.Error("Emulator update function should have been called during game update")
	}
}

// TestEbitengineWindow_EmulatorUpdateFunc_Error tests error handling in emulator update
func TestEbitengineWindow_EmulatorUpdateFunc_Error(t *testing.T) {
	backend := NewEbitengineBackend()

	config := Config{
		WindowTitle: "Test Window",
		Headless:    false,
	}

	err := backend.Initialize(config)
	if err != nil {
		t.Fatalf("Backend initialization failed: %v", err)
	}

	window, err := backend.CreateWindow("Test Game", 768, 672)
	if err != nil {
		t.Fatalf("Window creation failed: %v", err)
	}

	ebitengineWindow := window.(*EbitengineWindow)

	updateFunc := func() error {
		return &MockError{message: "emulator error"}
	}

	ebitengineWindow.SetEmulatorUpdateFunc(updateFunc)

	// Game Update logs emulator errors but does not propagate them
	err = ebitengineWindow.game.Update()
	if err != nil {
		t.Fatalf("Game Update should not fail when emulator update fails: %v", err)
	}
}

// TestEbitengineGame_Update tests game update loop
func TestEbitengineGame_Update(t *testing.T) {
	window := &EbitengineWindow{}
	game := &EbitengineGame{
		window: window,
	}

	err := game.Update()
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	updateCalled := false
	window.emulatorUpdateFunc = func() error {
		updateCalled = true
		return nil
	}

	err = game.Update()
	if err != nil {
		t.Fatalf("Update with emulator function failed: %v", err)
	}

	if !updateCalled {
		t.Error("Emulator update function should have been called")
	}
}

// TestEbitengineGame_Layout tests game layout calculations
func TestEbitengineGame_Layout(t *testing.T) {
	game := &EbitengineGame{}

	screenWidth, screenHeight := game.Layout(768, 672)

	if screenWidth != 768 || screenHeight != 672 {
		t.Errorf("Expected layout 768x672, got %dx%d", screenWidth, screenHeight)
	}

	if game.windowWidth != 768 || game.windowHeight != 672 {
		t.Errorf("Game window dimensions not updated correctly: %dx%d", game.windowWidth, game.windowHeight)
	}
}

// TestEbitengineWindow_WindowOperations tests basic window operations
func TestEbitengineWindow_WindowOperations(t *testing.T) {
	backend := NewEbitengineBackend()

	config := Config{
		WindowTitle: "Test Window",
		Headless:    false,
	}

	err := backend.Initialize(config)
	if err != nil {
		t.Fatalf("Backend initialization failed: %v", err)
	}

	window, err := backend.CreateWindow("Initial Title", 768, 672)
	if err != nil {
		t.Fatalf("Window creation failed: %v", err)
	}

	window.SetTitle("New Title")
	ebitengineWindow := window.(*EbitengineWindow)
	if ebitengineWindow.title != "New Title" {
		t.Errorf("Title not updated correctly: expected 'New Title', got '%s'", ebitengineWindow.title)
	}

	width, height := window.GetSize()
	if width != 768 || height != 672 {
		t.Errorf("Size not correct: expected 768x672, got %dx%d", width, height)
	}

	if window.ShouldClose() {
		t.Error("Window should not initially be marked for closing")
	}

	err = window.Cleanup()
	if err != nil {
		t.Fatalf("Window cleanup failed: %v", err)
	}

	if !window.ShouldClose() {
		t.Error("Window should be marked for closing after cleanup")
	}
}

// TestEbitengineBackend_BackendProperties tests backend property methods
func TestEbitengineBackend_BackendProperties(t *testing.T) {
	backend := NewEbitengineBackend()

	if backend.GetName() != "Ebitengine" {
		t.Errorf("Expected backend name 'Ebitengine', got '%s'", backend.GetName())
	}

	if backend.IsHeadless() {
		t.Error("Backend should not be headless by default")
	}

	config := Config{Headless: true}
	err := backend.Initialize(config)
	if err != nil {
		t.Fatalf("Backend initialization failed: %v", err)
	}

	if !backend.IsHeadless() {
		t.Error("Backend should be headless when configured as such")
	}
}

// MockError simulates an error condition for testing
type MockError struct {
	message string
}

func (e *MockError) Error() string {
	return e.message
}

// TestEbitengineWindow_PollEvents tests event polling
func TestEbitengineWindow_PollEvents(t *testing.T) {
	window := &EbitengineWindow{
		events: []InputEvent{
			{Type: InputEventTypeKey, Key: KeyEscape, Pressed: true},
			{Type: InputEventTypeButton, Button: ButtonA, Pressed: true},
		},
	}

	events := window.PollEvents()
	if len(events) != 2 {
		t.Errorf("Expected 2 events, got %d", len(events))
	}

	events = window.PollEvents()
	if len(events) != 0 {
		t.Errorf("Expected 0 events after clearing, got %d", len(events))
	}
}

// TestEbitengineWindow_SwapBuffers tests buffer swapping
func TestEbitengineWindow_SwapBuffers(t *testing.T) {
	window := &EbitengineWindow{}

	// SwapBuffers should not fail (it's a no-op in Ebitengine)
	window.SwapBuffers()
}

// TestEbitengineBackend_Cleanup tests backend cleanup
func TestEbitengineBackend_Cleanup(t *testing.T) {
	backend := NewEbitengineBackend()

	config := Config{
		WindowTitle: "Test Window",
		Headless:    false,
	}

	err := backend.Initialize(config)
	if err != nil {
		t.Fatalf("Backend initialization failed: %v", err)
	}

	if !backend.(*EbitengineBackend).initialized {
		t.Error("Backend should be initialized")
	}

	err = backend.Cleanup()
	if err != nil {
		t.Fatalf("Backend cleanup failed: %v", err)
	}

	if backend.(*EbitengineBackend).initialized {
		t.Error("Backend should not be initialized after cleanup")
	}
}

// Benchmark tests for performance validation
func BenchmarkEbitengineWindow_RenderFrame(b *testing.B) {
	backend := NewEbitengineBackend()

	config := Config{
		WindowTitle: "Benchmark Window",
		Headless:    false,
	}

	err := backend.Initialize(config)
	if err != nil {
		b.Fatalf("Backend initialization failed: %v", err)
	}

	window, err := backend.CreateWindow("Benchmark Game", 768, 672)
	if err != nil {
		b.Fatalf("Window creation failed: %v", err)
	}

	frameBuffer := make([]uint32, 256*224)
	for i := 0; i < len(frameBuffer); i++ {
		frameBuffer[i] = 0xFF0000FF // Red
	}

	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		err = window.RenderFrame(frameBuffer, 256, 224)
		if err != nil {
			b.Fatalf("RenderFrame failed: %v", err)
		}
	}
}

func BenchmarkEbitengineGame_Update(b *testing.B) {
	window := &EbitengineWindow{}
	game := &EbitengineGame{
		window: window,
	}

	window.emulatorUpdateFunc = func() error {
		return nil
	}

	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		err := game.Update()
		if err != nil {
			b.Fatalf("Update failed: %v", err)
		}
	}
}
