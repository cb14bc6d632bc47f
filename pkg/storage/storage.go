// Package storage provides persistent settings storage using LittleFS.
// Each setting is one small file holding a config.Record. Writes are atomic
// (temp file, sync, rename) and temporary files are cleaned up at boot.
package storage

import (
	"errors"
	"log/slog"
	"math"
	"os"
	"path"
	"strings"

	"github.com/tuffrabit/tinygo-hitbox-rp2040/pkg/config"
	"github.com/tuffrabit/tinygo-hitbox-rp2040/pkg/logging"

	"tinygo.org/x/tinyfs"
	"tinygo.org/x/tinyfs/littlefs"
)

const (
	configDir     = "/config"
	settingsDir   = "/config/settings"
	versionFile   = "/config/version.bin"
	tempSuffix    = ".tmp"
	settingSuffix = ".bin"

	// Estimated flash cost of one setting file: record + LittleFS metadata.
	settingFootprint = config.RecordSize + 32
)

var (
	ErrSettingNotFound = errors.New("setting not found")
	ErrFlashFull       = errors.New("insufficient flash space")
	ErrInvalidSetting  = errors.New("invalid setting data")
	ErrVersionMismatch = errors.New("config version mismatch")
	ErrFilesystem      = errors.New("filesystem error")
)

// Manager handles settings persistence using LittleFS.
type Manager struct {
	fs       *littlefs.LFS
	blockDev tinyfs.BlockDevice
	mounted  bool
	logger   *slog.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger reports boot housekeeping on l.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// Stats provides information about storage usage.
type Stats struct {
	TotalSpace   int64
	UsedSpace    int64
	FreeSpace    int64
	SettingCount int
}

// New initializes the storage system with the given block device.
// It mounts the filesystem and performs boot-time cleanup.
// If format is true and mount fails, it will format the filesystem.
func New(blockDev tinyfs.BlockDevice, format bool, opts ...Option) (*Manager, error) {
	lfs := littlefs.New(blockDev)

	// Conservative settings for RP2040 flash
	lfs.Configure(&littlefs.Config{
		CacheSize:     512,
		LookaheadSize: 128,
	})

	err := lfs.Mount()
	if err != nil {
		if !format {
			return nil, err
		}
		if err := lfs.Format(); err != nil {
			return nil, err
		}
		if err := lfs.Mount(); err != nil {
			return nil, err
		}
	}

	m := &Manager{
		fs:       lfs,
		blockDev: blockDev,
		mounted:  true,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = logging.Discard(m.logger)

	// Leftover temp files are harmless; keep going if cleanup fails.
	removed, err := m.bootCleanup()
	if err != nil {
		m.logger.Warn("boot cleanup incomplete", "removed", removed, "error", err)
	} else if removed > 0 {
		m.logger.Info("removed interrupted writes", "count", removed)
	}

	needsWipe, err := m.checkVersion()
	if err != nil {
		// Unreadable marker on first boot is fine.
		needsWipe = false
	}

	if needsWipe {
		// Settings from another firmware generation are not reinterpreted.
		if err := m.wipeAll(); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// Close unmounts the filesystem.
func (m *Manager) Close() error {
	if m.mounted {
		m.mounted = false
		return m.fs.Unmount()
	}
	return nil
}

// bootCleanup removes temporary files left over from interrupted writes and
// returns how many were removed.
func (m *Manager) bootCleanup() (int, error) {
	removed := 0
	var firstErr error
	for _, dir := range []string{configDir, settingsDir} {
		entries, err := m.readDir(dir)
		if err != nil {
			if isNotExist(err) {
				return removed, firstErr
			}
			return removed, err
		}

		for _, entry := range entries {
			name := entry.Name()
			if !strings.HasSuffix(name, tempSuffix) {
				continue
			}
			if err := m.fs.Remove(path.Join(dir, name)); err != nil {
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			removed++
		}
	}
	return removed, firstErr
}

// readDir reads the directory entries at the given path.
func (m *Manager) readDir(dirPath string) ([]os.FileInfo, error) {
	f, err := m.fs.Open(dirPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if !f.IsDir() {
		return nil, errors.New("not a directory")
	}

	return f.Readdir(-1)
}

// checkVersion reads the version marker.
// Returns true if settings should be wiped (version mismatch).
func (m *Manager) checkVersion() (bool, error) {
	rec, err := m.readRecord(versionFile)
	if err != nil {
		if err == ErrSettingNotFound {
			return false, nil
		}
		return false, err
	}
	return rec.Version != config.CurrentVersion, nil
}

// wipeAll removes all settings and the version marker.
func (m *Manager) wipeAll() error {
	keys, err := m.List()
	if err == nil {
		for _, key := range keys {
			m.fs.Remove(m.settingPath(key))
		}
	}

	m.fs.Remove(versionFile)

	return nil
}

// ensureDirs creates the settings directories and version marker if missing.
func (m *Manager) ensureDirs() error {
	if err := m.fs.Mkdir(configDir, 0755); err != nil && !isExist(err) {
		return err
	}
	if err := m.fs.Mkdir(settingsDir, 0755); err != nil && !isExist(err) {
		return err
	}
	if _, err := m.readRecord(versionFile); err == ErrSettingNotFound {
		rec := config.Record{Version: config.CurrentVersion, Value: int32(config.CurrentVersion)}
		data, _ := rec.MarshalBinary()
		return m.atomicWrite(versionFile, data)
	}
	return nil
}

// isExist checks if an error is "already exists".
// LittleFS errors don't always match os.IsExist, so we check the message too.
func isExist(err error) bool {
	if err == nil {
		return false
	}
	if os.IsExist(err) {
		return true
	}
	return strings.Contains(err.Error(), "already exists")
}

// isNotExist is the "no such entry" counterpart of isExist.
func isNotExist(err error) bool {
	if err == nil {
		return false
	}
	if os.IsNotExist(err) {
		return true
	}
	return strings.Contains(err.Error(), "No directory entry")
}

// readRecord loads a single record file.
func (m *Manager) readRecord(filepath string) (config.Record, error) {
	var rec config.Record

	f, err := m.fs.Open(filepath)
	if err != nil {
		if isNotExist(err) {
			return rec, ErrSettingNotFound
		}
		return rec, err
	}
	defer f.Close()

	buf := make([]byte, config.RecordSize)
	n, err := f.Read(buf)
	if err != nil {
		return rec, err
	}
	if n != config.RecordSize {
		return rec, ErrInvalidSetting
	}

	if err := rec.UnmarshalBinary(buf); err != nil {
		return rec, err
	}
	return rec, nil
}

// Load returns the stored value of key.
func (m *Manager) Load(key string) (int, error) {
	if err := config.ValidateKey(key); err != nil {
		return 0, err
	}

	rec, err := m.readRecord(m.settingPath(key))
	if err != nil {
		return 0, err
	}
	if rec.Version != config.CurrentVersion {
		return 0, ErrVersionMismatch
	}
	return int(rec.Value), nil
}

// GetInt returns the stored value of key, or def when it is missing or unreadable.
func (m *Manager) GetInt(key string, def int) int {
	v, err := m.Load(key)
	if err != nil {
		return def
	}
	return v
}

// PutInt stores value under key atomically. The write has reached flash when
// PutInt returns nil.
func (m *Manager) PutInt(key string, value int) error {
	if err := config.ValidateKey(key); err != nil {
		return err
	}
	// Records hold 32 bits.
	if int64(value) < math.MinInt32 || int64(value) > math.MaxInt32 {
		return config.ErrInvalidValue
	}
	if err := m.ensureDirs(); err != nil {
		return err
	}

	rec := config.Record{
		Version: config.CurrentVersion,
		Value:   int32(value),
	}

	data, err := rec.MarshalBinary()
	if err != nil {
		return err
	}

	return m.atomicWrite(m.settingPath(key), data)
}

// Delete removes a stored setting.
func (m *Manager) Delete(key string) error {
	if err := config.ValidateKey(key); err != nil {
		return err
	}
	if err := m.fs.Remove(m.settingPath(key)); err != nil {
		if isNotExist(err) {
			return ErrSettingNotFound
		}
		return err
	}
	return nil
}

// Exists checks if a setting is stored under key.
func (m *Manager) Exists(key string) bool {
	if config.ValidateKey(key) != nil {
		return false
	}
	f, err := m.fs.Open(m.settingPath(key))
	if err != nil {
		return false
	}
	f.Close()
	return true
}

// List returns the keys of all stored settings.
func (m *Manager) List() ([]string, error) {
	entries, err := m.readDir(settingsDir)
	if err != nil {
		if isNotExist(err) {
			return []string{}, nil
		}
		return nil, err
	}

	keys := []string{}
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, tempSuffix) {
			continue // Skip temp files
		}
		if !strings.HasSuffix(name, settingSuffix) {
			continue
		}
		keys = append(keys, strings.TrimSuffix(name, settingSuffix))
	}

	return keys, nil
}

// GetStats returns storage statistics.
func (m *Manager) GetStats() (*Stats, error) {
	keys, err := m.List()
	if err != nil {
		return nil, err
	}

	// LittleFS has no free-space query; estimate from the file count.
	used := int64(len(keys)*settingFootprint + 100)
	total := m.blockDev.Size()

	return &Stats{
		TotalSpace:   total,
		UsedSpace:    used,
		FreeSpace:    total - used,
		SettingCount: len(keys),
	}, nil
}

// CanFitSetting estimates if one more setting can be stored.
func (m *Manager) CanFitSetting() bool {
	stats, err := m.GetStats()
	if err != nil {
		return false
	}
	return stats.FreeSpace > 512
}

// settingPath returns the filesystem path for a key.
func (m *Manager) settingPath(key string) string {
	return path.Join(settingsDir, key+settingSuffix)
}

// atomicWrite writes data to a temporary file, syncs it, then renames.
// The original file is never in a partially written state.
func (m *Manager) atomicWrite(filepath string, data []byte) error {
	tempPath := filepath + tempSuffix

	m.fs.Remove(tempPath)

	f, err := m.fs.OpenFile(tempPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC)
	if err != nil {
		return err
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		m.fs.Remove(tempPath)
		return err
	}

	// Sync ensures data hits flash
	if syncer, ok := f.(interface{ Sync() error }); ok {
		if err := syncer.Sync(); err != nil {
			f.Close()
			m.fs.Remove(tempPath)
			return err
		}
	}

	if err := f.Close(); err != nil {
		m.fs.Remove(tempPath)
		return err
	}

	// LittleFS rename doesn't replace
	m.fs.Remove(filepath)

	if err := m.fs.Rename(tempPath, filepath); err != nil {
		m.fs.Remove(tempPath)
		return err
	}

	return nil
}

// ForceWipe erases all settings (factory reset).
func (m *Manager) ForceWipe() error {
	return m.wipeAll()
}
