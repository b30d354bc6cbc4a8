// Package main implements the gosnes SNES emulator executable.
package main

import (
	"context"
	"encoding/binary"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/hajimehoshi/ebiten/v2/audio"
	"golang.org/x/sync/errgroup"

	"gosnes/internal/app"
	"gosnes/internal/version"
)

func main() {
	var (
		romFile    = flag.String("rom", "", "Path to SNES ROM file (optional for GUI mode)")
		configFile = flag.String("config", "", "Path to configuration file")
		debug      = flag.Bool("debug", false, "Enable debug mode")
		nogui      = flag.Bool("nogui", false, "Run without GUI (headless mode)")
		frames     = flag.Int("frames", 120, "Frames to run in headless mode")
		help       = flag.Bool("help", false, "Show help message")
		showVer    = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *help {
		printUsage()
		os.Exit(0)
	}

	if *showVer {
		version.PrintBuildInfo()
		os.Exit(0)
	}

	setupGracefulShutdown()

	fmt.Println("gosnes - Go SNES Emulator starting...")

	configPath := *configFile
	if configPath == "" {
		configPath = app.GetDefaultConfigPath()
	}

	application, err := app.NewApplicationWithMode(configPath, *nogui)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}

	if *nogui {
		config := application.GetConfig()
		config.Video.Backend = "headless"
		fmt.Println("Headless mode requested")
	}
	defer func() {
		if err := application.Cleanup(); err != nil {
			log.Printf("Application cleanup error: %v", err)
		}
	}()

	if *debug {
		config := application.GetConfig()
		config.UpdateDebug(true, true, true)
		application.ApplyDebugSettings()
		fmt.Println("Debug mode enabled")
	}

	if *romFile != "" {
		fmt.Printf("Loading ROM: %s\n", *romFile)
		if err := application.LoadROM(*romFile); err != nil {
			log.Fatalf("Failed to load ROM: %v", err)
		}
		fmt.Println("ROM loaded successfully")

		if *debug {
			application.ApplyDebugSettings()
		}
	}

	if *nogui {
		if *romFile == "" {
			log.Fatal("ROM file required for headless mode")
		}
		if err := runHeadlessMode(application, *frames); err != nil {
			log.Fatalf("Headless mode failed: %v", err)
		}
	} else {
		fmt.Println("Starting GUI mode...")
		if err := runGUIMode(application); err != nil {
			log.Fatalf("GUI mode failed: %v", err)
		}
	}

	fmt.Println("Emulator shutting down...")
}

// ringBufferStream adapts the engine's stereo float32 audio ring buffer to
// the 16-bit little-endian PCM stream ebiten/v2/audio's player reads. It
// never returns io.EOF: the emulator's audio output is a live, unbounded
// stream for as long as the player is playing.
type ringBufferStream struct {
	pull func(n int) []float32
}

func (s *ringBufferStream) Read(p []byte) (int, error) {
	samples := len(p) / 4 // 2 channels * 2 bytes/sample
	if samples == 0 {
		return 0, nil
	}
	pairs := s.pull(samples)
	n := 0
	for i := 0; i < samples && i < len(pairs)/2; i++ {
		left := int16(clampSample(pairs[i*2]) * 32767)
		right := int16(clampSample(pairs[i*2+1]) * 32767)
		binary.LittleEndian.PutUint16(p[n:], uint16(left))
		binary.LittleEndian.PutUint16(p[n+2:], uint16(right))
		n += 4
	}
	return n, nil
}

func clampSample(v float32) float32 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}

// runGUIMode runs the full GUI application, with a dedicated audio player
// draining the engine's ring buffer alongside the ebitengine render loop.
func runGUIMode(application *app.Application) error {
	fmt.Println("Initializing GUI application...")

	config := application.GetConfig()
	windowWidth, windowHeight := config.GetWindowResolution()
	fmt.Printf("   Window: %dx%d (Scale: %dx)\n", windowWidth, windowHeight, config.Window.Scale)
	fmt.Printf("   Audio: %s (%d Hz, %.0f%% volume)\n",
		enabledString(config.Audio.Enabled),
		config.Audio.SampleRate,
		config.Audio.Volume*100)
	fmt.Printf("   Video: %s, %s, VSync: %s\n",
		config.Video.Filter,
		config.Video.AspectRatio,
		enabledString(config.Video.VSync))

	var audioPlayer *audio.Player
	if config.Audio.Enabled && application.GetEngine() != nil {
		audioCtx := audio.NewContext(config.Audio.SampleRate)
		stream := &ringBufferStream{pull: application.GetEngine().AudioOut.Pull}
		player, err := audioCtx.NewPlayer(stream)
		if err != nil {
			fmt.Printf("Audio player unavailable, continuing without sound: %v\n", err)
		} else {
			player.SetVolume(float64(config.Audio.Volume))
			player.Play()
			audioPlayer = player
		}
	}

	fmt.Println("Starting main application loop...")
	if err := application.Run(); err != nil {
		return fmt.Errorf("application run failed: %v", err)
	}

	if audioPlayer != nil {
		audioPlayer.Pause()
	}

	fmt.Printf("Session Statistics:\n")
	fmt.Printf("   Frames rendered: %d\n", application.GetFrameCount())
	fmt.Printf("   Session time: %v\n", application.GetUptime())
	fmt.Printf("   Average FPS: %.1f\n", application.GetFPS())

	return nil
}

// runHeadlessMode drives the engine for a fixed number of frames without a
// window, using an errgroup to run the frame scheduler and an audio-drain
// goroutine concurrently, the same two-sided producer/consumer split used
// in GUI mode, just without a real playback device on the consumer end.
func runHeadlessMode(application *app.Application, targetFrames int) error {
	fmt.Printf("Running emulator in headless mode for %d frames...\n", targetFrames)

	eng := application.GetEngine()
	if eng == nil {
		return fmt.Errorf("engine not initialized")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	g, _ := errgroup.WithContext(ctx)

	g.Go(func() error {
		for frame := 0; frame < targetFrames; frame++ {
			eng.EmulateFrame()
			if (frame+1)%30 == 0 {
				fmt.Printf("   %d/%d frames completed\n", frame+1, targetFrames)
			}
		}
		cancel()
		return nil
	})

	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return nil
			default:
				eng.AudioOut.Pull(512)
			}
		}
	})

	if err := g.Wait(); err != nil {
		return err
	}

	fmt.Println("Headless run complete")
	return nil
}

// setupGracefulShutdown sets up signal handling for graceful shutdown
func setupGracefulShutdown() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		fmt.Println("\nInterrupt received, shutting down gracefully...")
		os.Exit(0)
	}()
}

// enabledString returns "enabled" or "disabled" based on boolean value
func enabledString(enabled bool) string {
	if enabled {
		return "enabled"
	}
	return "disabled"
}

func printUsage() {
	fmt.Println("gosnes - Go SNES Emulator")
	fmt.Println()
	fmt.Println("DESCRIPTION:")
	fmt.Println("  A SNES (Super Nintendo Entertainment System) emulator written in Go.")
	fmt.Println("  Features a cycle-driven CPU/PPU/APU core, Ebitengine graphics and audio,")
	fmt.Println("  save states, and cheat code support.")
	fmt.Println()
	fmt.Println("USAGE:")
	fmt.Println("  gosnes [options]                    # Start GUI mode without ROM")
	fmt.Println("  gosnes -rom <file> [options]        # Start with ROM loaded")
	fmt.Println("  gosnes -nogui -rom <file> [options] # Run headless mode")
	fmt.Println()
	fmt.Println("OPTIONS:")
	flag.PrintDefaults()
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("  gosnes                              # Start GUI, load ROM from menu")
	fmt.Println("  gosnes -rom game.sfc                # Start with ROM loaded")
	fmt.Println("  gosnes -rom game.sfc -debug         # Start with debug info enabled")
	fmt.Println("  gosnes -config custom.json          # Use custom configuration")
	fmt.Println("  gosnes -nogui -rom test.sfc         # Run headless for testing")
	fmt.Println()
	fmt.Println("CONTROLS (Default):")
	fmt.Println("  Player 1:")
	fmt.Println("    Arrow Keys / WASD - D-Pad")
	fmt.Println("    L                 - A Button")
	fmt.Println("    K                 - B Button")
	fmt.Println("    I                 - X Button")
	fmt.Println("    J                 - Y Button")
	fmt.Println("    U                 - L Button")
	fmt.Println("    O                 - R Button")
	fmt.Println("    Enter             - Start")
	fmt.Println("    Space             - Select")
	fmt.Println()
	fmt.Println("  Player 2:")
	fmt.Println("    1 / 2 / 3 / 4     - D-Pad Up / Down / Left / Right")
	fmt.Println("    5 / 6             - A / B Button")
	fmt.Println("    7 / 8             - Start / Select")
	fmt.Println()
	fmt.Println("  Special Keys:")
	fmt.Println("    Escape            - Quit")
	fmt.Println("    F1-F10            - Save States")
	fmt.Println("    Shift+F1-F10      - Load States")
	fmt.Println()
	fmt.Println("CONFIGURATION:")
	fmt.Println("  Config file: ./config/gosnes.json")
	fmt.Println("  ROMs:        ./roms/")
	fmt.Println("  Save states: ./states/")
	fmt.Println("  Cheats:      ./cheats/ (TOML sidecar per ROM)")
	fmt.Println()
	fmt.Println("SUPPORTED FORMATS:")
	fmt.Println("  - .sfc / .smc cartridge images (LoROM and HiROM)")
	fmt.Println()
	fmt.Println("For more information, visit the project documentation.")
}
