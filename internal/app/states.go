// Package app provides save state functionality for the SNES emulator.
package app

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gosnes/internal/engine"
)

// StateManager manages save state slots on disk. The actual subsystem
// snapshot is the tagged-blob produced by engine.Engine.SaveState; this
// type only owns slot bookkeeping (file naming, metadata, enumeration).
type StateManager struct {
	saveDirectory string
	maxSlots      int
	initialized   bool
}

// stateMetadata is the small JSON sidecar written next to each slot's
// binary blob, used for listing slots without loading the full state.
type stateMetadata struct {
	Timestamp   time.Time `json:"timestamp"`
	ROMPath     string    `json:"rom_path"`
	Description string    `json:"description"`
}

// StateSlotInfo contains information about a save state slot
type StateSlotInfo struct {
	SlotNumber  int       `json:"slot_number"`
	Used        bool      `json:"used"`
	Timestamp   time.Time `json:"timestamp"`
	ROMPath     string    `json:"rom_path"`
	Description string    `json:"description"`
	FilePath    string    `json:"file_path"`
	FileSize    int64     `json:"file_size"`
}

// NewStateManager creates a new state manager
func NewStateManager(saveDirectory string) *StateManager {
	manager := &StateManager{
		saveDirectory: saveDirectory,
		maxSlots:      10,
		initialized:   false,
	}

	if err := manager.initialize(); err != nil {
		fmt.Printf("Warning: State manager initialization failed: %v\n", err)
	}

	return manager
}

// initialize initializes the state manager
func (sm *StateManager) initialize() error {
	if err := os.MkdirAll(sm.saveDirectory, 0755); err != nil {
		return fmt.Errorf("failed to create save directory: %v", err)
	}

	sm.initialized = true
	return nil
}

// SaveState saves the current emulator state to a slot
func (sm *StateManager) SaveState(eng *engine.Engine, slot int, romPath string) error {
	if !sm.initialized {
		return fmt.Errorf("state manager not initialized")
	}
	if slot < 0 || slot >= sm.maxSlots {
		return fmt.Errorf("invalid save slot: %d (must be 0-%d)", slot, sm.maxSlots-1)
	}
	if eng == nil {
		return fmt.Errorf("engine cannot be nil")
	}

	blob := eng.SaveState()
	blobPath := sm.getSlotFilePath(slot, romPath)
	if err := sm.writeFile(blobPath, blob); err != nil {
		return fmt.Errorf("failed to save state: %v", err)
	}

	meta := stateMetadata{
		Timestamp:   time.Now(),
		ROMPath:     romPath,
		Description: fmt.Sprintf("Save %s", time.Now().Format("2006-01-02 15:04:05")),
	}
	if err := sm.writeMetadata(sm.getMetaFilePath(slot, romPath), meta); err != nil {
		return fmt.Errorf("failed to save state metadata: %v", err)
	}

	return nil
}

// LoadState loads a saved state from a slot
func (sm *StateManager) LoadState(eng *engine.Engine, slot int, romPath string) error {
	if !sm.initialized {
		return fmt.Errorf("state manager not initialized")
	}
	if slot < 0 || slot >= sm.maxSlots {
		return fmt.Errorf("invalid save slot: %d (must be 0-%d)", slot, sm.maxSlots-1)
	}
	if eng == nil {
		return fmt.Errorf("engine cannot be nil")
	}

	blobPath := sm.getSlotFilePath(slot, romPath)
	if _, err := os.Stat(blobPath); os.IsNotExist(err) {
		return fmt.Errorf("save state not found in slot %d", slot)
	}

	blob, err := os.ReadFile(blobPath)
	if err != nil {
		return fmt.Errorf("failed to load state: %v", err)
	}

	if meta, err := sm.readMetadata(sm.getMetaFilePath(slot, romPath)); err == nil {
		if meta.ROMPath != "" && meta.ROMPath != romPath {
			return fmt.Errorf("save state is for a different ROM")
		}
	}

	if err := eng.LoadState(blob); err != nil {
		return fmt.Errorf("failed to restore state: %v", err)
	}

	return nil
}

// writeFile writes a blob to disk, creating the parent directory if needed.
func (sm *StateManager) writeFile(filePath string, data []byte) error {
	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %v", err)
	}
	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %v", err)
	}
	return nil
}

// writeMetadata writes the JSON sidecar for a slot.
func (sm *StateManager) writeMetadata(filePath string, meta stateMetadata) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %v", err)
	}
	return sm.writeFile(filePath, data)
}

// readMetadata reads the JSON sidecar for a slot.
func (sm *StateManager) readMetadata(filePath string) (stateMetadata, error) {
	var meta stateMetadata
	data, err := os.ReadFile(filePath)
	if err != nil {
		return meta, err
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return meta, err
	}
	return meta, nil
}

// getSlotFilePath generates the file path for a save slot's state blob
func (sm *StateManager) getSlotFilePath(slot int, romPath string) string {
	romName := filepath.Base(romPath)
	romNameWithoutExt := romName[:len(romName)-len(filepath.Ext(romName))]
	fileName := fmt.Sprintf("%s_slot_%d.state", romNameWithoutExt, slot)
	return filepath.Join(sm.saveDirectory, fileName)
}

// getMetaFilePath generates the file path for a save slot's metadata sidecar
func (sm *StateManager) getMetaFilePath(slot int, romPath string) string {
	romName := filepath.Base(romPath)
	romNameWithoutExt := romName[:len(romName)-len(filepath.Ext(romName))]
	fileName := fmt.Sprintf("%s_slot_%d.meta.json", romNameWithoutExt, slot)
	return filepath.Join(sm.saveDirectory, fileName)
}

// GetSlotInfo returns information about all save slots
func (sm *StateManager) GetSlotInfo(romPath string) []StateSlotInfo {
	slots := make([]StateSlotInfo, sm.maxSlots)

	for i := 0; i < sm.maxSlots; i++ {
		slotInfo := StateSlotInfo{
			SlotNumber: i,
			Used:       false,
		}

		filePath := sm.getSlotFilePath(i, romPath)
		if stat, err := os.Stat(filePath); err == nil {
			slotInfo.Used = true
			slotInfo.FilePath = filePath
			slotInfo.FileSize = stat.Size()
			slotInfo.Timestamp = stat.ModTime()

			if meta, err := sm.readMetadata(sm.getMetaFilePath(i, romPath)); err == nil {
				slotInfo.ROMPath = meta.ROMPath
				slotInfo.Description = meta.Description
				slotInfo.Timestamp = meta.Timestamp
			}
		}

		slots[i] = slotInfo
	}

	return slots
}

// DeleteState deletes a save state from a slot
func (sm *StateManager) DeleteState(slot int, romPath string) error {
	if !sm.initialized {
		return fmt.Errorf("state manager not initialized")
	}
	if slot < 0 || slot >= sm.maxSlots {
		return fmt.Errorf("invalid save slot: %d", slot)
	}

	filePath := sm.getSlotFilePath(slot, romPath)
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return fmt.Errorf("save state not found in slot %d", slot)
	}

	if err := os.Remove(filePath); err != nil {
		return fmt.Errorf("failed to delete save state: %v", err)
	}
	_ = os.Remove(sm.getMetaFilePath(slot, romPath))

	return nil
}

// HasSaveState checks if a save state exists in a slot
func (sm *StateManager) HasSaveState(slot int, romPath string) bool {
	if slot < 0 || slot >= sm.maxSlots {
		return false
	}

	filePath := sm.getSlotFilePath(slot, romPath)
	_, err := os.Stat(filePath)
	return err == nil
}

// GetMaxSlots returns the maximum number of save slots
func (sm *StateManager) GetMaxSlots() int {
	return sm.maxSlots
}

// SetMaxSlots sets the maximum number of save slots
func (sm *StateManager) SetMaxSlots(slots int) {
	if slots > 0 {
		sm.maxSlots = slots
	}
}

// GetSaveDirectory returns the save directory path
func (sm *StateManager) GetSaveDirectory() string {
	return sm.saveDirectory
}

// SetSaveDirectory sets the save directory path
func (sm *StateManager) SetSaveDirectory(directory string) error {
	sm.saveDirectory = directory
	return sm.initialize()
}

// ExportState exports a save state to a specific file
func (sm *StateManager) ExportState(eng *engine.Engine, filePath string, romPath string) error {
	if eng == nil {
		return fmt.Errorf("engine cannot be nil")
	}
	return sm.writeFile(filePath, eng.SaveState())
}

// ImportState imports a save state from a specific file
func (sm *StateManager) ImportState(eng *engine.Engine, filePath string, romPath string) error {
	if eng == nil {
		return fmt.Errorf("engine cannot be nil")
	}

	blob, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to import state: %v", err)
	}

	if err := eng.LoadState(blob); err != nil {
		return fmt.Errorf("invalid imported state: %v", err)
	}

	return nil
}

// Cleanup cleans up state manager resources
func (sm *StateManager) Cleanup() error {
	sm.initialized = false
	return nil
}

// GetStateManagerStats returns statistics about the state manager
func (sm *StateManager) GetStateManagerStats(romPath string) StateManagerStats {
	slots := sm.GetSlotInfo(romPath)

	var usedSlots int
	var totalSize int64
	for _, slot := range slots {
		if slot.Used {
			usedSlots++
			totalSize += slot.FileSize
		}
	}

	return StateManagerStats{
		MaxSlots:      sm.maxSlots,
		UsedSlots:     usedSlots,
		FreeSlots:     sm.maxSlots - usedSlots,
		TotalSize:     totalSize,
		SaveDirectory: sm.saveDirectory,
		Initialized:   sm.initialized,
	}
}

// StateManagerStats contains state manager statistics
type StateManagerStats struct {
	MaxSlots      int    `json:"max_slots"`
	UsedSlots     int    `json:"used_slots"`
	FreeSlots     int    `json:"free_slots"`
	TotalSize     int64  `json:"total_size"`
	SaveDirectory string `json:"save_directory"`
	Initialized   bool   `json:"initialized"`
}
