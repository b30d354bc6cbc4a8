// Package app implements the main SNES emulator application with GUI support.
package app

import (
	"errors"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"gosnes/internal/cartridge"
	"gosnes/internal/cheat"
	"gosnes/internal/engine"
	"gosnes/internal/graphics"
	"gosnes/internal/input"
)

// Application represents the main SNES emulator application
type Application struct {
	// Core emulation
	engine *engine.Engine

	// Graphics backend
	graphicsBackend graphics.Backend
	window          graphics.Window
	videoProcessor  *graphics.VideoProcessor

	// Application state
	config   *Config
	emulator *Emulator
	states   *StateManager

	// Control flags
	running     bool
	paused      bool
	showMenu    bool
	initialized bool
	headless    bool

	// Performance tracking
	frameCount  uint64
	startTime   time.Time
	lastFPSTime time.Time
	currentFPS  float64

	// Enhanced FPS monitoring
	lastFrameTime       time.Time
	frameCountAtLastFPS uint64
	averageFPS          float64
	maxFrameTime        time.Duration
	minFrameTime        time.Duration
	lastFPSLog          time.Time

	// Performance timing hooks
	inputTime         time.Duration
	emulatorTime      time.Duration
	renderTime        time.Duration
	totalInputTime    time.Duration
	totalEmulatorTime time.Duration
	totalRenderTime   time.Duration

	// Frame consistency monitoring
	recentFrameTimes [10]time.Duration // Rolling buffer of last 10 frame times
	frameTimeIndex   int               // Current index in the rolling buffer
	frameTimeSum     time.Duration     // Sum of times in rolling buffer
	frameVariance    float64           // Frame time variance for consistency

	// Memory monitoring and periodic cleanup
	lastMemoryCheck    time.Time
	lastCleanup        time.Time
	initialMemoryUsage uint64
	lastMemoryUsage    uint64
	memoryGrowthRate   float64

	// ROM management
	romPath   string
	cartridge *cartridge.Cartridge
	cheats    *cheat.Database

	// ESC key confirmation tracking
	lastESCTime time.Time

	// Latched 16-bit controller words, updated bit-by-bit as button events
	// arrive and pushed to the engine's controllers on every change.
	controller1Word uint16
	controller2Word uint16

	// Debug logging frequency control
	debugFrameCounter uint64
}

// ApplicationError represents application-specific errors
type ApplicationError struct {
	Component string
	Operation string
	Err       error
}

func (e *ApplicationError) Error() string {
	return fmt.Sprintf("Application %s error during %s: %v", e.Component, e.Operation, e.Err)
}

// NewApplication creates a new SNES emulator application
func NewApplication(configPath string) (*Application, error) {
	return NewApplicationWithMode(configPath, false)
}

// NewApplicationWithMode creates a new SNES emulator application with optional headless mode
func NewApplicationWithMode(configPath string, headless bool) (*Application, error) {
	app := &Application{
		config:      NewConfig(),
		running:     false,
		paused:      false,
		showMenu:    false,
		initialized: false,
		headless:    headless,
		startTime:   time.Now(),
		lastFPSTime: time.Now(),
	}

	if configPath != "" {
		if err := app.config.LoadFromFile(configPath); err != nil {
			fmt.Printf("[APP_WARNING] Could not load config from %s, using defaults: %v\n", configPath, err)
		}
	}

	if err := app.initializeGraphicsBackend(headless); err != nil {
		return nil, &ApplicationError{
			Component: "initialization",
			Operation: "component setup",
			Err:       err,
		}
	}

	app.states = NewStateManager(app.config.Paths.SaveStates)
	app.initialized = true

	return app, nil
}

// initializeGraphicsBackend initializes the graphics backend based on configuration
func (app *Application) initializeGraphicsBackend(headless bool) error {
	var backendType graphics.BackendType
	if headless {
		backendType = graphics.BackendHeadless
	} else {
		switch app.config.Video.Backend {
		case "ebitengine":
			backendType = graphics.BackendEbitengine
		case "headless":
			backendType = graphics.BackendHeadless
		case "terminal":
			backendType = graphics.BackendTerminal
		default:
			backendType = graphics.BackendEbitengine
		}
	}

	var err error
	app.graphicsBackend, err = graphics.CreateBackend(backendType)
	if err != nil {
		return fmt.Errorf("failed to create graphics backend: %v", err)
	}

	graphicsConfig := graphics.Config{
		WindowTitle:  "gosnes - Go SNES Emulator",
		WindowWidth:  app.config.Window.Width,
		WindowHeight: app.config.Window.Height,
		Fullscreen:   app.config.Window.Fullscreen,
		VSync:        app.config.Video.VSync,
		Filter:       app.config.Video.Filter,
		AspectRatio:  app.config.Video.AspectRatio,
		Headless:     headless,
		Debug:        app.config.Debug.EnableLogging,
	}

	if err := app.graphicsBackend.Initialize(graphicsConfig); err != nil {
		if backendType == graphics.BackendEbitengine {
			fmt.Printf("[APP_WARNING] Ebitengine backend failed (%v), falling back to headless mode\n", err)
			app.graphicsBackend, err = graphics.CreateBackend(graphics.BackendHeadless)
			if err != nil {
				return fmt.Errorf("failed to create fallback headless backend: %v", err)
			}
			graphicsConfig.Headless = true
			if err := app.graphicsBackend.Initialize(graphicsConfig); err != nil {
				return fmt.Errorf("failed to initialize fallback headless backend: %v", err)
			}
		} else {
			return fmt.Errorf("failed to initialize graphics backend: %v", err)
		}
	}

	if !headless && !app.graphicsBackend.IsHeadless() {
		app.window, err = app.graphicsBackend.CreateWindow(
			graphicsConfig.WindowTitle,
			graphicsConfig.WindowWidth,
			graphicsConfig.WindowHeight,
		)
		if err != nil {
			return fmt.Errorf("failed to create window: %v", err)
		}
	}

	app.videoProcessor = graphics.NewVideoProcessor(
		app.config.Video.Brightness,
		app.config.Video.Contrast,
		app.config.Video.Saturation,
	)

	return nil
}

// ppuBackendAdapter bridges ppu.Backend to a graphics.Window, applying video
// post-processing before the frame reaches the window's own present path.
type ppuBackendAdapter struct {
	window    graphics.Window
	processor *graphics.VideoProcessor
}

func (a *ppuBackendAdapter) Present(frame []uint32, width, height int) {
	if a.window == nil {
		return
	}
	out := frame
	if a.processor != nil {
		out = a.processor.ProcessFrame(frame)
	}
	if err := a.window.RenderFrame(out, width, height); err != nil {
		log.Printf("[APP_ERROR] render error: %v", err)
	}
}

// LoadROM loads a ROM file into the emulator
func (app *Application) LoadROM(romPath string) error {
	if !app.initialized {
		return errors.New("application not initialized")
	}

	data, err := os.ReadFile(romPath)
	if err != nil {
		return &ApplicationError{
			Component: "cartridge",
			Operation: "read ROM file",
			Err:       err,
		}
	}

	backend := &ppuBackendAdapter{window: app.window, processor: app.videoProcessor}
	eng, err := engine.LoadCartridge(data, backend)
	if err != nil {
		return &ApplicationError{
			Component: "cartridge",
			Operation: "load ROM",
			Err:       err,
		}
	}

	app.engine = eng
	app.cartridge = eng.Cart
	app.romPath = romPath
	app.engine.TurboMultiplier = app.config.Emulation.TurboMultiplier

	app.loadCheatsForROM(romPath)

	app.emulator = NewEmulator(app.engine, app.config)

	if app.window != nil {
		romName := filepath.Base(romPath)
		title := fmt.Sprintf("gosnes - %s", romName)
		app.window.SetTitle(title)
	}

	app.emulator.Start()

	return nil
}

// loadCheatsForROM loads a TOML cheat database sidecar for the ROM, if one
// exists in the configured cheats directory.
func (app *Application) loadCheatsForROM(romPath string) {
	if app.config.Paths.Cheats == "" {
		return
	}
	romName := filepath.Base(romPath)
	base := romName[:len(romName)-len(filepath.Ext(romName))]
	cheatPath := filepath.Join(app.config.Paths.Cheats, base+".toml")

	db, err := cheat.LoadDatabaseTOML(cheatPath)
	if err != nil {
		return // no sidecar for this ROM; not an error
	}
	for _, activationErr := range db.Activate() {
		if app.config.Debug.EnableLogging {
			log.Printf("[CHEAT_WARNING] %v", activationErr)
		}
	}
	app.cheats = db
	app.engine.SetCheats(db)
}

// Run starts the main application loop
func (app *Application) Run() error {
	if !app.initialized {
		return errors.New("application not initialized")
	}

	app.running = true
	app.startTime = time.Now()
	app.lastFPSTime = time.Now()

	if app.config.Debug.EnableLogging {
		fmt.Printf("[APP_DEBUG] Starting emulator with %s backend...\n", app.graphicsBackend.GetName())
	}

	if app.graphicsBackend.GetName() == "Ebitengine" && app.window != nil {
		if ebitengineWindow, ok := graphics.AsEbitengineWindow(app.window); ok {
			ebitengineWindow.SetEmulatorUpdateFunc(func() error {
				frameStartTime := time.Now()

				if err := app.processInput(); err != nil {
					if app.config.Debug.EnableLogging {
						fmt.Printf("[APP_ERROR] Input processing error: %v\n", err)
					}
				}

				emulatorStart := time.Now()
				if err := app.updateEmulator(); err != nil {
					return err
				}
				app.emulatorTime = time.Since(emulatorStart)

				renderStart := time.Now()
				if err := app.render(); err != nil {
					return err
				}
				app.renderTime = time.Since(renderStart)

				app.updatePerformanceMetricsMinimal(frameStartTime)

				if app.window != nil && app.window.ShouldClose() {
					app.Stop()
				}

				return nil
			})
			return ebitengineWindow.Run()
		}
	}

	// Standard main application loop for other backends
	for app.running {
		frameStartTime := time.Now()

		inputStart := time.Now()
		if err := app.processInput(); err != nil {
			if app.config.Debug.EnableLogging {
				fmt.Printf("[APP_ERROR] Input processing error: %v\n", err)
			}
		}
		app.inputTime = time.Since(inputStart)
		app.totalInputTime += app.inputTime

		emulatorStart := time.Now()
		if err := app.updateEmulator(); err != nil {
			if app.config.Debug.EnableLogging {
				fmt.Printf("[APP_DEBUG] Emulator update error: %v\n", err)
			}
		}
		app.emulatorTime = time.Since(emulatorStart)
		app.totalEmulatorTime += app.emulatorTime

		renderStart := time.Now()
		if err := app.render(); err != nil {
			if app.config.Debug.EnableLogging {
				fmt.Printf("[APP_ERROR] Render error: %v\n", err)
			}
		}
		app.renderTime = time.Since(renderStart)
		app.totalRenderTime += app.renderTime

		app.updatePerformanceMetrics(frameStartTime)

		if app.window != nil && app.window.ShouldClose() {
			app.Stop()
		}

		time.Sleep(16 * time.Millisecond) // ~60 FPS
	}

	if app.config.Debug.EnableLogging {
		fmt.Println("[APP_DEBUG] Emulator main loop ended")
	}
	return nil
}

// updateEmulator updates the emulator state
func (app *Application) updateEmulator() error {
	if !app.paused && app.cartridge != nil {
		if err := app.emulator.Update(); err != nil {
			return err
		}
	}
	return nil
}

// processInput processes input events from the graphics backend
func (app *Application) processInput() error {
	if app.window == nil {
		return nil
	}

	events := app.window.PollEvents()
	if len(events) == 0 {
		return nil
	}

	controller1Changed := false
	controller2Changed := false

	for _, event := range events {
		switch event.Type {
		case graphics.InputEventTypeQuit:
			app.Stop()
			return nil

		case graphics.InputEventTypeButton:
			if app.handleSpecialInput(event) {
				continue
			}
			if app.cartridge == nil {
				continue
			}

			bit, isPlayer2, ok := buttonToBit(event.Button)
			if !ok {
				continue
			}

			if isPlayer2 {
				setBit(&app.controller2Word, bit, event.Pressed)
				controller2Changed = true
			} else {
				setBit(&app.controller1Word, bit, event.Pressed)
				controller1Changed = true
			}

		case graphics.InputEventTypeKey:
			if app.handleSpecialInput(event) {
				continue
			}
			if app.handleKeyInput(event) {
				continue
			}
		}
	}

	if controller1Changed && app.engine != nil {
		app.debugFrameCounter++
		if app.config.Debug.EnableLogging && app.debugFrameCounter%300 == 0 {
			log.Printf("[APP_DEBUG] 1P controller word: %016b", app.controller1Word)
		}
		app.engine.Pad1.SetButtons(app.controller1Word)
	}

	if controller2Changed && app.engine != nil {
		if app.config.Debug.EnableLogging && app.debugFrameCounter%300 == 0 {
			log.Printf("[APP_DEBUG] 2P controller word: %016b", app.controller2Word)
		}
		app.engine.Pad2.SetButtons(app.controller2Word)
	}

	return nil
}

// setBit sets or clears a single bit within a 16-bit controller word.
func setBit(word *uint16, bit uint16, set bool) {
	if set {
		*word |= bit
	} else {
		*word &^= bit
	}
}

// buttonToBit maps a graphics.Button to its controller bit, and reports
// whether the button belongs to the second player's controller.
func buttonToBit(b graphics.Button) (bit uint16, isPlayer2 bool, ok bool) {
	switch b {
	case graphics.ButtonUp:
		return input.ButtonUp, false, true
	case graphics.ButtonDown:
		return input.ButtonDown, false, true
	case graphics.ButtonLeft:
		return input.ButtonLeft, false, true
	case graphics.ButtonRight:
		return input.ButtonRight, false, true
	case graphics.ButtonA:
		return input.ButtonA, false, true
	case graphics.ButtonB:
		return input.ButtonB, false, true
	case graphics.ButtonX:
		return input.ButtonX, false, true
	case graphics.ButtonY:
		return input.ButtonY, false, true
	case graphics.ButtonL:
		return input.ButtonL, false, true
	case graphics.ButtonR:
		return input.ButtonR, false, true
	case graphics.ButtonStart:
		return input.ButtonStart, false, true
	case graphics.ButtonSelect:
		return input.ButtonSelect, false, true
	case graphics.Button2Up:
		return input.ButtonUp, true, true
	case graphics.Button2Down:
		return input.ButtonDown, true, true
	case graphics.Button2Left:
		return input.ButtonLeft, true, true
	case graphics.Button2Right:
		return input.ButtonRight, true, true
	case graphics.Button2A:
		return input.ButtonA, true, true
	case graphics.Button2B:
		return input.ButtonB, true, true
	case graphics.Button2X:
		return input.ButtonX, true, true
	case graphics.Button2Y:
		return input.ButtonY, true, true
	case graphics.Button2L:
		return input.ButtonL, true, true
	case graphics.Button2R:
		return input.ButtonR, true, true
	case graphics.Button2Start:
		return input.ButtonStart, true, true
	case graphics.Button2Select:
		return input.ButtonSelect, true, true
	default:
		return 0, false, false
	}
}

// handleSpecialInput handles special input combinations (quit, save states)
func (app *Application) handleSpecialInput(event graphics.InputEvent) bool {
	if !event.Pressed {
		return false
	}

	if event.Type == graphics.InputEventTypeKey && event.Key == graphics.KeyEscape {
		now := time.Now()
		if !app.lastESCTime.IsZero() && now.Sub(app.lastESCTime) < 3*time.Second {
			fmt.Println("ESC double-tap confirmed - shutting down emulator...")
			app.Stop()
			return true
		}
		fmt.Println("ESC pressed - press ESC again within 3 seconds to quit, or continue playing...")
		app.lastESCTime = now
		return true
	}

	if event.Type == graphics.InputEventTypeKey && event.Key != graphics.KeyEscape {
		app.lastESCTime = time.Time{}
	}

	if event.Type == graphics.InputEventTypeKey {
		switch event.Key {
		case graphics.KeyF1, graphics.KeyF2, graphics.KeyF3, graphics.KeyF4, graphics.KeyF5,
			graphics.KeyF6, graphics.KeyF7, graphics.KeyF8, graphics.KeyF9, graphics.KeyF10:
			slot := int(event.Key - graphics.KeyF1)
			if event.Modifiers&graphics.ModifierShift != 0 {
				if err := app.LoadState(slot); err != nil {
					fmt.Printf("Failed to load state %d: %v\n", slot, err)
				}
			} else {
				if err := app.SaveState(slot); err != nil {
					fmt.Printf("Failed to save state %d: %v\n", slot, err)
				}
			}
			return true
		}
	}

	return false
}

// handleKeyInput handles key input events not covered by handleSpecialInput
func (app *Application) handleKeyInput(event graphics.InputEvent) bool {
	return false
}

// render presents the current frame. The PPU pushes completed frames to the
// window directly through the ppuBackendAdapter wired in at LoadROM time, so
// this only needs to let the window's own present path run.
func (app *Application) render() error {
	if app.window == nil {
		return nil
	}
	app.window.SwapBuffers()
	return nil
}

// updatePerformanceMetrics updates performance tracking with high-precision timing
func (app *Application) updatePerformanceMetrics(frameStartTime time.Time) {
	now := time.Now()
	app.frameCount++

	frameTime := now.Sub(frameStartTime)

	if app.lastFrameTime.IsZero() {
		app.lastFrameTime = frameStartTime
		app.lastFPSTime = now
		app.frameCountAtLastFPS = app.frameCount
		app.minFrameTime = frameTime
		app.maxFrameTime = frameTime
		app.lastFPSLog = now
		app.lastMemoryCheck = now
		app.lastCleanup = now

		var memStats runtime.MemStats
		runtime.ReadMemStats(&memStats)
		app.initialMemoryUsage = memStats.Alloc
		app.lastMemoryUsage = memStats.Alloc
		return
	}

	if frameTime < app.minFrameTime {
		app.minFrameTime = frameTime
	}
	if frameTime > app.maxFrameTime {
		app.maxFrameTime = frameTime
	}

	oldFrameTime := app.recentFrameTimes[app.frameTimeIndex]
	app.frameTimeSum -= oldFrameTime
	app.recentFrameTimes[app.frameTimeIndex] = frameTime
	app.frameTimeSum += frameTime
	app.frameTimeIndex = (app.frameTimeIndex + 1) % 10

	if app.frameCount >= 10 {
		avgFrameTime := app.frameTimeSum / 10

		if app.frameCount == 10 {
			variance := 0.0
			for _, ft := range app.recentFrameTimes {
				diff := float64(ft - avgFrameTime)
				variance += diff * diff
			}
			app.frameVariance = variance / 10.0
		} else {
			newDiff := float64(frameTime - avgFrameTime)
			oldDiff := float64(oldFrameTime - avgFrameTime)

			alpha := 0.1
			newVarianceContrib := newDiff * newDiff
			oldVarianceContrib := oldDiff * oldDiff

			app.frameVariance = app.frameVariance*(1-alpha) + (newVarianceContrib-oldVarianceContrib)*alpha

			if app.frameVariance < 0 {
				app.frameVariance = 0
			}
		}
	}

	if now.Sub(app.lastFPSTime) >= time.Second {
		elapsed := now.Sub(app.lastFPSTime).Seconds()
		framesInPeriod := app.frameCount - app.frameCountAtLastFPS
		app.currentFPS = float64(framesInPeriod) / elapsed

		totalElapsed := now.Sub(app.startTime).Seconds()
		if totalElapsed > 0 {
			app.averageFPS = float64(app.frameCount) / totalElapsed
		}

		app.lastFPSTime = now
		app.frameCountAtLastFPS = app.frameCount

		if app.config.Debug.EnableLogging && now.Sub(app.lastFPSLog) >= 5*time.Second {
			targetFrameTime := time.Duration(16670000) // 16.67ms in nanoseconds for 60 FPS target
			app.logFPSMetrics(now, frameTime, targetFrameTime)
			app.lastFPSLog = now
		}
	}

	if now.Sub(app.lastMemoryCheck) >= 30*time.Second {
		var memStats runtime.MemStats
		runtime.ReadMemStats(&memStats)

		currentMemory := memStats.Alloc
		memoryIncrease := float64(currentMemory) - float64(app.lastMemoryUsage)
		timeDiff := now.Sub(app.lastMemoryCheck).Seconds()
		app.memoryGrowthRate = memoryIncrease / timeDiff / (1024 * 1024)

		if app.config.Debug.EnableLogging {
			log.Printf("[MEMORY] Current: %.2f MB | Growth: %.3f MB/s | Since start: +%.2f MB",
				float64(currentMemory)/(1024*1024),
				app.memoryGrowthRate,
				float64(currentMemory-app.initialMemoryUsage)/(1024*1024))
		}

		app.lastMemoryUsage = currentMemory
		app.lastMemoryCheck = now

		if app.memoryGrowthRate > 0.1 {
			log.Printf("[MEMORY_WARNING] High memory growth rate: %.3f MB/s", app.memoryGrowthRate)
		}
	}

	if now.Sub(app.lastCleanup) >= 5*time.Minute {
		app.performPeriodicCleanup()
		app.lastCleanup = now
	}

	if frameTime > 20*time.Millisecond && app.config.Debug.EnableLogging {
		if app.frameCount%300 == 0 {
			log.Printf("[FPS_WARNING] Slow frame detected: %.2fms (target: 16.67ms)",
				float64(frameTime.Nanoseconds())/1000000.0)
		}
	}

	app.lastFrameTime = now
}

// updatePerformanceMetricsMinimal provides basic performance tracking with minimal overhead
func (app *Application) updatePerformanceMetricsMinimal(frameStartTime time.Time) {
	now := time.Now()
	app.frameCount++

	frameTime := now.Sub(frameStartTime)

	if app.lastFrameTime.IsZero() {
		app.lastFrameTime = frameStartTime
		app.lastFPSTime = now
		app.frameCountAtLastFPS = app.frameCount
		app.minFrameTime = frameTime
		app.maxFrameTime = frameTime
		app.lastFPSLog = now
		return
	}

	if frameTime < app.minFrameTime {
		app.minFrameTime = frameTime
	}
	if frameTime > app.maxFrameTime {
		app.maxFrameTime = frameTime
	}

	if now.Sub(app.lastFPSTime) >= time.Second {
		elapsed := now.Sub(app.lastFPSTime).Seconds()
		framesInPeriod := app.frameCount - app.frameCountAtLastFPS
		app.currentFPS = float64(framesInPeriod) / elapsed

		totalElapsed := now.Sub(app.startTime).Seconds()
		if totalElapsed > 0 {
			app.averageFPS = float64(app.frameCount) / totalElapsed
		}

		app.lastFPSTime = now
		app.frameCountAtLastFPS = app.frameCount

		if app.config.Debug.EnableLogging && now.Sub(app.lastFPSLog) >= 10*time.Second {
			log.Printf("[FPS] Current: %.1f FPS | Average: %.1f FPS | Frame: %d | Emulator: %.2fms | Render: %.2fms",
				app.currentFPS, app.averageFPS, app.frameCount,
				float64(app.emulatorTime.Nanoseconds())/1000000.0,
				float64(app.renderTime.Nanoseconds())/1000000.0)
			app.lastFPSLog = now
		}
	}

	app.lastFrameTime = now
}

// logFPSMetrics logs detailed FPS and performance information
func (app *Application) logFPSMetrics(now time.Time, lastFrameTime, targetFrameTime time.Duration) {
	log.Printf("[FPS] Current: %.1f FPS | Average: %.1f FPS | Frame: %d | Runtime: %.1fs",
		app.currentFPS, app.averageFPS, app.frameCount, now.Sub(app.startTime).Seconds())

	log.Printf("[TIMING] Frame: %.2fms | Min: %.2fms | Max: %.2fms | Target: %.2fms",
		float64(lastFrameTime.Nanoseconds())/1000000.0,
		float64(app.minFrameTime.Nanoseconds())/1000000.0,
		float64(app.maxFrameTime.Nanoseconds())/1000000.0,
		float64(targetFrameTime.Nanoseconds())/1000000.0)

	log.Printf("[COMPONENTS] Input: %.2fms | Emulator: %.2fms | Render: %.2fms",
		float64(app.inputTime.Nanoseconds())/1000000.0,
		float64(app.emulatorTime.Nanoseconds())/1000000.0,
		float64(app.renderTime.Nanoseconds())/1000000.0)

	if app.frameCount > 0 {
		avgInput := float64(app.totalInputTime.Nanoseconds()) / float64(app.frameCount) / 1000000.0
		avgEmulator := float64(app.totalEmulatorTime.Nanoseconds()) / float64(app.frameCount) / 1000000.0
		avgRender := float64(app.totalRenderTime.Nanoseconds()) / float64(app.frameCount) / 1000000.0

		log.Printf("[AVERAGES] Input: %.2fms | Emulator: %.2fms | Render: %.2fms",
			avgInput, avgEmulator, avgRender)
	}

	if app.frameCount >= 10 {
		avgRecentFrameTime := float64(app.frameTimeSum.Nanoseconds()) / 10.0 / 1000000.0
		var frameStdDev float64
		if app.frameVariance >= 0 {
			frameStdDev = math.Sqrt(app.frameVariance) / 1000000.0
		}

		log.Printf("[CONSISTENCY] Recent avg: %.2fms | Std dev: %.2fms | Variance: %.2f",
			avgRecentFrameTime, frameStdDev, app.frameVariance/1000000000000.0)

		switch {
		case frameStdDev < 2.0:
			log.Printf("[PACING] excellent frame pacing (+-%.2fms)", frameStdDev)
		case frameStdDev < 5.0:
			log.Printf("[PACING] moderate frame pacing (+-%.2fms)", frameStdDev)
		default:
			log.Printf("[PACING] poor frame pacing (+-%.2fms)", frameStdDev)
		}
	}

	switch {
	case app.currentFPS >= 58.0:
		log.Printf("[PERFORMANCE] excellent performance (%.1f FPS)", app.currentFPS)
	case app.currentFPS >= 45.0:
		log.Printf("[PERFORMANCE] moderate performance (%.1f FPS)", app.currentFPS)
	default:
		log.Printf("[PERFORMANCE] poor performance (%.1f FPS)", app.currentFPS)
	}
}

// performPeriodicCleanup performs periodic resource cleanup to prevent progressive slowdown
func (app *Application) performPeriodicCleanup() {
	log.Printf("[CLEANUP] Starting periodic resource cleanup (frame %d)", app.frameCount)

	app.totalInputTime = 0
	app.totalEmulatorTime = 0
	app.totalRenderTime = 0

	app.minFrameTime = time.Duration(16670000)
	app.maxFrameTime = time.Duration(16670000)

	for i := range app.recentFrameTimes {
		app.recentFrameTimes[i] = 0
	}
	app.frameTimeSum = 0
	app.frameTimeIndex = 0
	app.frameVariance = 0

	runtime.GC()
	runtime.GC()

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	log.Printf("[CLEANUP] Memory after GC: %.2f MB | Heap objects: %d",
		float64(memStats.Alloc)/(1024*1024), memStats.HeapObjects)

	log.Printf("[CLEANUP] Cleanup completed - performance data reset")
}

// Stop stops the application
func (app *Application) Stop() {
	app.running = false
}

// Pause pauses the emulator
func (app *Application) Pause() {
	app.paused = true
}

// Resume resumes the emulator
func (app *Application) Resume() {
	app.paused = false
}

// TogglePause toggles pause state
func (app *Application) TogglePause() {
	app.paused = !app.paused
}

// ShowMenu shows the menu
func (app *Application) ShowMenu() {
	app.showMenu = true
	app.paused = true
}

// HideMenu hides the menu
func (app *Application) HideMenu() {
	app.showMenu = false
	app.paused = false
}

// ToggleMenu toggles menu visibility
func (app *Application) ToggleMenu() {
	if app.showMenu {
		app.HideMenu()
	} else {
		app.ShowMenu()
	}
}

// SaveState saves the current emulator state
func (app *Application) SaveState(slot int) error {
	if app.cartridge == nil {
		return errors.New("no ROM loaded")
	}

	return app.states.SaveState(app.engine, slot, app.romPath)
}

// LoadState loads a saved emulator state
func (app *Application) LoadState(slot int) error {
	if app.cartridge == nil {
		return errors.New("no ROM loaded")
	}

	return app.states.LoadState(app.engine, slot, app.romPath)
}

// Reset resets the emulator
func (app *Application) Reset() {
	if app.engine != nil {
		app.engine.Reset()
	}
}

// IsRunning returns whether the application is running
func (app *Application) IsRunning() bool {
	return app.running
}

// IsPaused returns whether the emulator is paused
func (app *Application) IsPaused() bool {
	return app.paused
}

// IsMenuVisible returns whether the menu is visible
func (app *Application) IsMenuVisible() bool {
	return app.showMenu
}

// GetFPS returns the current FPS
func (app *Application) GetFPS() float64 {
	return app.currentFPS
}

// GetFrameCount returns the total frame count
func (app *Application) GetFrameCount() uint64 {
	return app.frameCount
}

// GetUptime returns the application uptime
func (app *Application) GetUptime() time.Duration {
	return time.Since(app.startTime)
}

// GetROMPath returns the currently loaded ROM path
func (app *Application) GetROMPath() string {
	return app.romPath
}

// GetConfig returns the application configuration
func (app *Application) GetConfig() *Config {
	return app.config
}

// GetEngine returns the engine for direct access (useful for testing and advanced control)
func (app *Application) GetEngine() *engine.Engine {
	return app.engine
}

// ApplyDebugSettings applies debug settings to all components
func (app *Application) ApplyDebugSettings() {
	if app.config == nil || app.engine == nil {
		return
	}

	if app.config.Debug.EnableLogging {
		fmt.Printf("[DEBUG] Logging enabled for engine %s\n", app.romPath)
	}
}

// Cleanup releases all resources and shuts down the application
func (app *Application) Cleanup() error {
	if app.config != nil && app.config.Debug.EnableLogging {
		fmt.Println("[APP_DEBUG] Cleaning up application resources...")
	}

	var lastErr error

	if app.states != nil {
		if err := app.states.Cleanup(); err != nil {
			lastErr = err
			fmt.Printf("[APP_ERROR] State manager cleanup error: %v\n", err)
		}
	}

	if app.emulator != nil {
		if err := app.emulator.Cleanup(); err != nil {
			lastErr = err
			fmt.Printf("[APP_ERROR] Emulator cleanup error: %v\n", err)
		}
	}

	if app.window != nil {
		if err := app.window.Cleanup(); err != nil {
			lastErr = err
			fmt.Printf("[APP_ERROR] Window cleanup error: %v\n", err)
		}
	}

	if app.graphicsBackend != nil {
		if err := app.graphicsBackend.Cleanup(); err != nil {
			lastErr = err
			fmt.Printf("[APP_ERROR] Graphics backend cleanup error: %v\n", err)
		}
	}

	app.initialized = false
	if app.config != nil && app.config.Debug.EnableLogging {
		fmt.Println("[APP_DEBUG] Application cleanup complete")
	}

	return lastErr
}
