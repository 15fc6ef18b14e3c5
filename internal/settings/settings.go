// Package settings persists the values an admin changes at runtime: the
// source and display channels and the report interval.
package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"github.com/lox/cardcounter/internal/fileutil"
)

const (
	MinIntervalMinutes     = 1
	MaxIntervalMinutes     = 120
	DefaultIntervalMinutes = 30
)

// Settings are the runtime-editable values.
type Settings struct {
	StatChannel     int64 `json:"stat_channel"`
	DisplayChannel  int64 `json:"display_channel"`
	IntervalMinutes int   `json:"interval_minutes"`
}

// ClampInterval keeps minutes within the accepted range.
func ClampInterval(minutes int) int {
	return max(MinIntervalMinutes, min(minutes, MaxIntervalMinutes))
}

// NormalizeChannelID turns the bare numeric form of a channel id, as copied
// from some clients, into the -100 prefixed form the Bot API expects.
func NormalizeChannelID(id int64) int64 {
	if id > 1_000_000_000 {
		return -1_000_000_000_000 - id
	}
	return id
}

// File is a Settings value backed by a JSON file. Reads and writes are safe
// for concurrent use.
type File struct {
	path string

	mu  sync.RWMutex
	cur Settings
}

// Load reads path, falling back to defaults when it does not exist. An empty
// path keeps settings in memory only.
func Load(path string, defaults Settings) (*File, error) {
	f := &File{path: path, cur: defaults}
	if path == "" {
		return f, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return f, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}

	loaded := defaults
	if err := json.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("failed to parse settings %s: %w", path, err)
	}
	if loaded.IntervalMinutes == 0 {
		loaded.IntervalMinutes = defaults.IntervalMinutes
	}
	loaded.IntervalMinutes = ClampInterval(loaded.IntervalMinutes)
	f.cur = loaded
	return f, nil
}

// Get returns the current settings.
func (f *File) Get() Settings {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.cur
}

// Update applies fn to a copy of the settings and persists the result. The
// in-memory value only changes when the write succeeds.
func (f *File) Update(fn func(*Settings)) (Settings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	next := f.cur
	fn(&next)
	next.IntervalMinutes = ClampInterval(next.IntervalMinutes)

	if f.path != "" {
		if err := fileutil.WriteJSONAtomic(f.path, next, 0o644); err != nil {
			return f.cur, fmt.Errorf("failed to save settings: %w", err)
		}
	}
	f.cur = next
	return next, nil
}
