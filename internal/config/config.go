// Package config resolves the active data directory and loads/hot-reloads
// config.json (spec §4.8, §6.2).
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/Explosion-Scratch/clippy-sub000/internal/logging"
	"github.com/bep/debounce"
	"github.com/fsnotify/fsnotify"
)

// Config is the on-disk config.json shape. Absence of the file is
// equivalent to all defaults (spec §6.2).
type Config struct {
	DataDir              string   `json:"dataDir,omitempty"`
	APIPort              int      `json:"apiPort"`
	ExcludedApps         []string `json:"excludedApps"`
	PollIntervalMs       int      `json:"pollIntervalMs"`
	InlineThresholdBytes int64    `json:"inlineThresholdBytes"`
}

// Defaults returns the config with every field at its documented default.
func Defaults() Config {
	return Config{
		APIPort:              3016,
		ExcludedApps:         nil,
		PollIntervalMs:       500,
		InlineThresholdBytes: 64 * 1024,
	}
}

// Load reads <root>/config.json, overlaying it onto Defaults(). A missing
// file is not an error.
func Load(root string) (Config, error) {
	cfg := Defaults()
	path := filepath.Join(root, "config.json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config.json: %w", err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config.json: %w", err)
	}
	return cfg, nil
}

// Save writes cfg to <root>/config.json.
func Save(root string, cfg Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config.json: %w", err)
	}
	return os.WriteFile(filepath.Join(root, "config.json"), data, 0o644)
}

// ResolveDataDir implements the §4.8 precedence: --data-dir flag > DATA_DIR
// env > config.json:dataDir > OS default.
func ResolveDataDir(flagValue string) (dir string, isDefault bool, err error) {
	if flagValue != "" {
		return flagValue, false, nil
	}
	if env := os.Getenv("DATA_DIR"); env != "" {
		return env, false, nil
	}

	def, err := osDefaultDataDir()
	if err != nil {
		return "", false, err
	}

	// config.json is only consulted once we know a tentative root to read
	// it from; if the OS-default directory already has one with dataDir
	// set, that wins.
	if cfg, cerr := Load(def); cerr == nil && cfg.DataDir != "" {
		return cfg.DataDir, cfg.DataDir == def, nil
	}
	return def, true, nil
}

func osDefaultDataDir() (string, error) {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "com.clipboard", "data"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "com.clipboard", "data"), nil
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			appData = filepath.Join(home, "AppData", "Roaming")
		}
		return filepath.Join(appData, "com.clipboard", "data"), nil
	default:
		return filepath.Join(home, ".local", "share", "com.clipboard", "data"), nil
	}
}

// Watcher watches config.json and hands each reloaded Config to its onEdit
// callback (SPEC_FULL.md "config hot-reload" supplement), so
// excludedApps/pollIntervalMs apply without a restart.
type Watcher struct {
	root      string
	fsw       *fsnotify.Watcher
	log       logging.Logger
	onEdit    func(Config)
	debounced func(func())
}

// NewWatcher starts watching <root>/config.json for writes. Editors
// commonly write a config file via temp-file-then-rename, which fires
// several fsnotify events for one logical edit; debouncing collapses
// those into a single reload 250ms after the burst settles.
func NewWatcher(root string, log logging.Logger, onEdit func(Config)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	if err := fsw.Add(root); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watch data dir: %w", err)
	}
	w := &Watcher{root: root, fsw: fsw, log: log, onEdit: onEdit, debounced: debounce.New(250 * time.Millisecond)}
	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	target := filepath.Join(w.root, "config.json")
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Name != target {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.debounced(func() {
				cfg, err := Load(w.root)
				if err != nil {
					w.log.Log("warn", fmt.Sprintf("config reload failed: %v", err))
					return
				}
				w.log.Log("info", "config.json reloaded")
				w.onEdit(cfg)
			})
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Log("warn", fmt.Sprintf("config watcher error: %v", err))
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error { return w.fsw.Close() }
