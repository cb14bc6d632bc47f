package storage

import (
	"bytes"
	"errors"
	"log/slog"
	"math"
	"os"
	"sort"
	"strings"
	"testing"

	"github.com/tuffrabit/tinygo-hitbox-rp2040/pkg/config"
	"github.com/tuffrabit/tinygo-hitbox-rp2040/pkg/logging"

	"tinygo.org/x/tinyfs"
)

func newTestStorage(t *testing.T) (*Manager, *tinyfs.MemBlockDevice) {
	// Create a memory-backed block device simulating RP2040 flash
	// 256 byte page size, 4096 byte block size, 64 blocks = 256KB
	blockDev := tinyfs.NewMemoryDevice(256, 4096, 64)

	mgr, err := New(blockDev, true)
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}

	return mgr, blockDev
}

func TestPutGetInt(t *testing.T) {
	mgr, _ := newTestStorage(t)
	defer mgr.Close()

	if err := mgr.PutInt("Left", 9); err != nil {
		t.Fatalf("PutInt failed: %v", err)
	}

	if v := mgr.GetInt("Left", 0); v != 9 {
		t.Errorf("GetInt: expected 9, got %d", v)
	}

	v, err := mgr.Load("Left")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if v != 9 {
		t.Errorf("Load: expected 9, got %d", v)
	}
}

func TestGetIntDefault(t *testing.T) {
	mgr, _ := newTestStorage(t)
	defer mgr.Close()

	if v := mgr.GetInt("Up", 3); v != 3 {
		t.Errorf("GetInt missing key: expected default 3, got %d", v)
	}

	if _, err := mgr.Load("Up"); err != ErrSettingNotFound {
		t.Errorf("Expected ErrSettingNotFound, got %v", err)
	}
}

func TestNegativeValue(t *testing.T) {
	mgr, _ := newTestStorage(t)
	defer mgr.Close()

	if err := mgr.PutInt("offset", -42); err != nil {
		t.Fatalf("PutInt failed: %v", err)
	}
	if v := mgr.GetInt("offset", 0); v != -42 {
		t.Errorf("Expected -42, got %d", v)
	}
}

func TestInvalidKey(t *testing.T) {
	mgr, _ := newTestStorage(t)
	defer mgr.Close()

	if err := mgr.PutInt("../escape", 1); err != config.ErrInvalidKey {
		t.Errorf("Expected ErrInvalidKey, got %v", err)
	}
	if v := mgr.GetInt("", 5); v != 5 {
		t.Errorf("Invalid key should return default, got %d", v)
	}
}

func TestListSettings(t *testing.T) {
	mgr, _ := newTestStorage(t)
	defer mgr.Close()

	keys := []string{"A", "B", "socdmode", "R2"}
	for i, k := range keys {
		if err := mgr.PutInt(k, i); err != nil {
			t.Fatalf("PutInt %s failed: %v", k, err)
		}
	}

	listed, err := mgr.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}

	sort.Strings(listed)
	expected := []string{"A", "B", "R2", "socdmode"}
	if len(listed) != len(expected) {
		t.Fatalf("Expected %d keys, got %d (%v)", len(expected), len(listed), listed)
	}
	for i := range expected {
		if listed[i] != expected[i] {
			t.Errorf("Key %d: expected %s, got %s", i, expected[i], listed[i])
		}
	}
}

func TestDeleteSetting(t *testing.T) {
	mgr, _ := newTestStorage(t)
	defer mgr.Close()

	mgr.PutInt("X", 4)

	if !mgr.Exists("X") {
		t.Error("Setting should exist before deletion")
	}

	if err := mgr.Delete("X"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	if mgr.Exists("X") {
		t.Error("Setting should not exist after deletion")
	}
	if err := mgr.Delete("X"); err != ErrSettingNotFound {
		t.Errorf("Second delete: expected ErrSettingNotFound, got %v", err)
	}
}

func TestAtomicOverwrite(t *testing.T) {
	mgr, _ := newTestStorage(t)
	defer mgr.Close()

	mgr.PutInt("Start", 4)
	mgr.PutInt("Start", 11)

	if v := mgr.GetInt("Start", 0); v != 11 {
		t.Errorf("Expected 11, got %d", v)
	}

	keys, _ := mgr.List()
	if len(keys) != 1 {
		t.Errorf("Expected 1 key after overwrite, got %v", keys)
	}
}

func TestPersistAcrossRemount(t *testing.T) {
	blockDev := tinyfs.NewMemoryDevice(256, 4096, 64)

	mgr, err := New(blockDev, true)
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}
	mgr.PutInt("A", 7)
	mgr.Close()

	// Re-open without formatting, as after a power cycle.
	mgr2, err := New(blockDev, false)
	if err != nil {
		t.Fatalf("Failed to reopen storage: %v", err)
	}
	defer mgr2.Close()

	if v := mgr2.GetInt("A", 6); v != 7 {
		t.Errorf("Expected persisted 7, got %d", v)
	}
}

func TestVersionMismatchWipe(t *testing.T) {
	blockDev := tinyfs.NewMemoryDevice(256, 4096, 64)

	mgr, err := New(blockDev, true)
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}
	mgr.PutInt("A", 7)

	// Simulate a marker written by another firmware generation.
	stale := config.Record{Version: config.CurrentVersion + 1}
	data, _ := stale.MarshalBinary()
	if err := mgr.atomicWrite(versionFile, data); err != nil {
		t.Fatalf("atomicWrite failed: %v", err)
	}
	mgr.Close()

	mgr2, err := New(blockDev, false)
	if err != nil {
		t.Fatalf("Failed to reopen storage: %v", err)
	}
	defer mgr2.Close()

	if mgr2.Exists("A") {
		t.Error("Settings should be wiped on version mismatch")
	}
	if v := mgr2.GetInt("A", 6); v != 6 {
		t.Errorf("Expected default 6 after wipe, got %d", v)
	}
}

func TestBootCleanupRemovesTempFiles(t *testing.T) {
	blockDev := tinyfs.NewMemoryDevice(256, 4096, 64)

	mgr, err := New(blockDev, true)
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}
	mgr.PutInt("B", 1)

	// Leave a temp file behind, as an interrupted write would.
	f, err := mgr.fs.OpenFile(mgr.settingPath("B")+tempSuffix, os.O_WRONLY|os.O_CREATE|os.O_TRUNC)
	if err != nil {
		t.Fatalf("OpenFile failed: %v", err)
	}
	f.Write([]byte{1, 2, 3})
	f.Close()
	mgr.Close()

	var logs bytes.Buffer
	mgr2, err := New(blockDev, false, WithLogger(logging.New(&logs, slog.LevelInfo)))
	if err != nil {
		t.Fatalf("Failed to reopen storage: %v", err)
	}
	defer mgr2.Close()

	if !strings.Contains(logs.String(), "removed interrupted writes") || !strings.Contains(logs.String(), "count=1") {
		t.Errorf("Expected the cleanup to be logged, got %q", logs.String())
	}

	entries, err := mgr2.readDir(settingsDir)
	if err != nil {
		t.Fatalf("readDir failed: %v", err)
	}
	for _, e := range entries {
		if e.Name() == "B.bin.tmp" {
			t.Error("Temp file should be removed at boot")
		}
	}
	if v := mgr2.GetInt("B", 0); v != 1 {
		t.Errorf("Expected 1, got %d", v)
	}
}

func TestPutIntRejectsOutOfRange(t *testing.T) {
	mgr, _ := newTestStorage(t)
	defer mgr.Close()

	for _, v := range []int{math.MaxInt32 + 1, math.MinInt32 - 1, 4294969296} {
		if err := mgr.PutInt(config.KeySettleTime, v); !errors.Is(err, config.ErrInvalidValue) {
			t.Errorf("PutInt(%d): expected ErrInvalidValue, got %v", v, err)
		}
	}
	if mgr.Exists(config.KeySettleTime) {
		t.Error("Rejected value should not be stored")
	}

	if err := mgr.PutInt(config.KeySettleTime, math.MinInt32); err != nil {
		t.Fatalf("PutInt(MinInt32) failed: %v", err)
	}
	if v := mgr.GetInt(config.KeySettleTime, 0); v != math.MinInt32 {
		t.Errorf("Expected %d, got %d", math.MinInt32, v)
	}
}

func TestFactoryReset(t *testing.T) {
	mgr, _ := newTestStorage(t)
	defer mgr.Close()

	mgr.PutInt("A", 1)
	mgr.PutInt("B", 2)

	if err := mgr.ForceWipe(); err != nil {
		t.Fatalf("ForceWipe failed: %v", err)
	}

	keys, _ := mgr.List()
	if len(keys) != 0 {
		t.Errorf("Expected 0 settings after reset, got %d", len(keys))
	}
}

func TestStorageStats(t *testing.T) {
	mgr, _ := newTestStorage(t)
	defer mgr.Close()

	stats1, err := mgr.GetStats()
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}

	if stats1.SettingCount != 0 {
		t.Errorf("Expected 0 settings initially, got %d", stats1.SettingCount)
	}

	for _, k := range []string{"Left", "Down", "Right", "Up", "Start"} {
		mgr.PutInt(k, 0)
	}

	stats2, err := mgr.GetStats()
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}

	if stats2.SettingCount != 5 {
		t.Errorf("Expected 5 settings, got %d", stats2.SettingCount)
	}
	if stats2.UsedSpace <= stats1.UsedSpace {
		t.Errorf("UsedSpace should grow: %d -> %d", stats1.UsedSpace, stats2.UsedSpace)
	}

	if !mgr.CanFitSetting() {
		t.Error("CanFitSetting should return true with available space")
	}
}

func BenchmarkPutInt(b *testing.B) {
	mgr, _ := newTestStorage(nil)
	defer mgr.Close()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		mgr.PutInt("A", i)
	}
}

func BenchmarkGetInt(b *testing.B) {
	mgr, _ := newTestStorage(nil)
	defer mgr.Close()

	mgr.PutInt("A", 6)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		mgr.GetInt("A", 0)
	}
}
