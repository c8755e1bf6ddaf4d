package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
)

// Runtime is the mutable part of the configuration. It is read on every
// fetch and swapped atomically on admin updates; pool connections pick up
// changes at their next (re)connect.
type Runtime struct {
	BrowserlessURL  string `json:"browserlessUrl"`
	ProxyURL        string `json:"proxyUrl"`
	DefaultEngine   string `json:"defaultEngine"`
	BrowserStealth  bool   `json:"browserStealth"`
	BrowserHeadless bool   `json:"browserHeadless"`
}

// Patch is a partial runtime update; nil fields are left unchanged.
type Patch struct {
	BrowserlessURL  *string
	ProxyURL        *string
	DefaultEngine   *string
	BrowserStealth  *bool
	BrowserHeadless *bool
}

// RuntimeStore holds the current Runtime behind an atomic pointer and
// persists every update to <DATA_DIR>/settings.json.
type RuntimeStore struct {
	cur  atomic.Pointer[Runtime]
	path string
	mu   sync.Mutex // serializes saves
}

// SettingsFile is the snapshot file name under the data directory.
const SettingsFile = "settings.json"

// NewRuntimeStore seeds the store from env defaults, then overlays the
// settings.json snapshot when one exists.
func NewRuntimeStore(dataDir string, seed Runtime) (*RuntimeStore, error) {
	s := &RuntimeStore{path: filepath.Join(dataDir, SettingsFile)}

	data, err := os.ReadFile(s.path)
	switch {
	case err == nil:
		var saved Runtime
		if err := json.Unmarshal(data, &saved); err != nil {
			return nil, fmt.Errorf("parse %s: %w", s.path, err)
		}
		seed = saved
	case errors.Is(err, fs.ErrNotExist):
		// first boot, env seed stands
	default:
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}

	if seed.DefaultEngine == "" {
		seed.DefaultEngine = "auto"
	}
	s.cur.Store(&seed)
	return s, nil
}

// Runtime returns a copy of the current runtime configuration.
func (s *RuntimeStore) Runtime() Runtime {
	return *s.cur.Load()
}

// Update applies a validated patch, swaps the runtime atomically and saves
// the snapshot. It returns the new runtime.
func (s *RuntimeStore) Update(p Patch) (Runtime, error) {
	if err := validatePatch(p); err != nil {
		return Runtime{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := *s.cur.Load()
	if p.BrowserlessURL != nil {
		next.BrowserlessURL = strings.TrimSpace(*p.BrowserlessURL)
	}
	if p.ProxyURL != nil {
		next.ProxyURL = strings.TrimSpace(*p.ProxyURL)
	}
	if p.DefaultEngine != nil {
		next.DefaultEngine = *p.DefaultEngine
	}
	if p.BrowserStealth != nil {
		next.BrowserStealth = *p.BrowserStealth
	}
	if p.BrowserHeadless != nil {
		next.BrowserHeadless = *p.BrowserHeadless
	}
	s.cur.Store(&next)

	if err := s.save(next); err != nil {
		return next, err
	}
	return next, nil
}

func (s *RuntimeStore) save(r Runtime) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return os.Rename(tmp, s.path)
}

func validatePatch(p Patch) error {
	if p.BrowserlessURL != nil && *p.BrowserlessURL != "" {
		u, err := url.Parse(*p.BrowserlessURL)
		if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") || u.Host == "" {
			return fmt.Errorf("browserlessUrl must be a ws:// or wss:// URL")
		}
	}
	if p.ProxyURL != nil && *p.ProxyURL != "" {
		u, err := url.Parse(*p.ProxyURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("proxyUrl must be an http:// or https:// URL")
		}
	}
	if p.DefaultEngine != nil {
		switch *p.DefaultEngine {
		case "auto", "fast", "browser", "stealth":
		default:
			return fmt.Errorf("defaultEngine must be one of auto, fast, browser, stealth")
		}
	}
	return nil
}
