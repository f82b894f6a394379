// config_watcher.go: hot-reload of system configuration via Argus
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package pluginhost

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/agilira/argus"
)

// ConfigWatcherOptions tunes a ConfigWatcher.
type ConfigWatcherOptions struct {
	// PollInterval is how often the configuration file is checked.
	PollInterval time.Duration `json:"poll_interval" yaml:"poll_interval"`

	// CacheTTL bounds stat caching inside the file watcher.
	CacheTTL time.Duration `json:"cache_ttl" yaml:"cache_ttl"`

	// Rediscover runs a discovery pass after each applied change, so
	// plugins under newly added search paths register without host
	// intervention.
	Rediscover bool `json:"rediscover" yaml:"rediscover"`

	// Audit configures the tamper-evident audit trail of configuration
	// changes.
	Audit argus.AuditConfig `json:"audit" yaml:"audit"`

	// ErrorHandler receives file watching errors. Defaults to logging.
	ErrorHandler func(error, string) `json:"-" yaml:"-"`
}

// DefaultConfigWatcherOptions returns production defaults: a relaxed
// poll interval, re-discovery on change and audit logging enabled.
func DefaultConfigWatcherOptions() ConfigWatcherOptions {
	return ConfigWatcherOptions{
		PollInterval: 10 * time.Second,
		CacheTTL:     5 * time.Second,
		Rediscover:   true,
		Audit: argus.AuditConfig{
			Enabled:       true,
			OutputFile:    "pluginhost-config-audit.jsonl",
			MinLevel:      argus.AuditInfo,
			BufferSize:    1000,
			FlushInterval: 10 * time.Second,
		},
	}
}

// ConfigWatcher hot-reloads a system's configuration file. Changes are
// applied additively: search paths present in the new configuration but
// not in the system are appended (followed by a discovery pass when
// Rediscover is set), while identity fields (name, version, namespace,
// platform) are immutable per session and a change to them is rejected
// and audited but never applied.
//
// Applies run on the watch goroutine. Hosts that drive discovery or
// loading from other goroutines at the same time must bring their own
// synchronization, the same contract System itself carries.
type ConfigWatcher[F any] struct {
	sys         *System[F]
	logger      Logger
	watcher     *argus.Watcher
	auditLogger *argus.AuditLogger
	configPath  string
	options     ConfigWatcherOptions

	current atomic.Pointer[SystemConfig]

	enabled  atomic.Bool
	stopped  atomic.Bool
	stopOnce sync.Once
	mutex    sync.Mutex
}

// NewConfigWatcher creates a watcher for the given configuration file.
// The file is not read until Start.
func NewConfigWatcher[F any](sys *System[F], configPath string, options ConfigWatcherOptions) (*ConfigWatcher[F], error) {
	if configPath == "" {
		return nil, NewConfigWatcherError("config path must not be empty", nil)
	}

	logger := sys.logger
	argusConfig := argus.Config{
		PollInterval:         options.PollInterval,
		CacheTTL:             options.CacheTTL,
		MaxWatchedFiles:      5,
		Audit:                options.Audit,
		OptimizationStrategy: argus.OptimizationSingleEvent,
		ErrorHandler: func(err error, path string) {
			if options.ErrorHandler != nil {
				options.ErrorHandler(err, path)
				return
			}
			logger.Error("config file watching error", "error", err, "file", path)
		},
	}

	var auditLogger *argus.AuditLogger
	if options.Audit.Enabled {
		var err error
		auditLogger, err = argus.NewAuditLogger(options.Audit)
		if err != nil {
			return nil, NewConfigWatcherError("failed to create audit logger", err)
		}
	}

	return &ConfigWatcher[F]{
		sys:         sys,
		logger:      logger,
		watcher:     argus.New(argusConfig),
		auditLogger: auditLogger,
		configPath:  configPath,
		options:     options,
	}, nil
}

// Start loads and applies the configuration file, then begins watching
// it for changes. A watcher that has been stopped cannot be restarted.
func (w *ConfigWatcher[F]) Start() error {
	if w.stopped.Load() {
		return NewConfigWatcherError("config watcher has been stopped and cannot be restarted", nil)
	}

	w.mutex.Lock()
	defer w.mutex.Unlock()

	if !w.enabled.CompareAndSwap(false, true) {
		return NewConfigWatcherError("config watcher is already running", nil)
	}

	initial, err := LoadSystemConfigFromFile(w.configPath)
	if err != nil {
		w.enabled.Store(false)
		return NewConfigWatcherError("failed to load initial configuration", err)
	}
	if err := w.applyConfig(initial); err != nil {
		w.enabled.Store(false)
		return NewConfigWatcherError("failed to apply initial configuration", err)
	}
	w.current.Store(initial)
	w.auditEvent("config_loaded", map[string]interface{}{
		"path":   w.configPath,
		"source": "initial_load",
	})

	if err := w.watcher.Watch(w.configPath, w.handleChange); err != nil {
		w.enabled.Store(false)
		return NewConfigWatcherError("failed to watch config file", err)
	}
	if err := w.watcher.Start(); err != nil {
		w.enabled.Store(false)
		return NewConfigWatcherError("failed to start config watcher", err)
	}

	w.logger.Info("config watcher started",
		"config_path", w.configPath,
		"poll_interval", w.options.PollInterval,
		"rediscover", w.options.Rediscover)
	w.auditEvent("config_watcher_started", map[string]interface{}{
		"config_path":   w.configPath,
		"poll_interval": w.options.PollInterval.String(),
	})
	return nil
}

// Stop shuts the watcher down. Stopping is permanent and idempotent in
// effect; a second call reports the watcher as already stopped.
func (w *ConfigWatcher[F]) Stop() error {
	if w.stopped.Load() {
		return NewConfigWatcherError("config watcher is already stopped", nil)
	}

	var stopErr error
	w.stopOnce.Do(func() {
		w.mutex.Lock()
		defer w.mutex.Unlock()

		if !w.enabled.CompareAndSwap(true, false) {
			stopErr = NewConfigWatcherError("config watcher is not running", nil)
			return
		}
		w.stopped.Store(true)

		if err := w.watcher.Stop(); err != nil {
			stopErr = NewConfigWatcherError("failed to stop file watcher", err)
			return
		}
		if w.auditLogger != nil {
			if err := w.auditLogger.Close(); err != nil {
				w.logger.Warn("failed to close audit logger during shutdown", "error", err)
			}
		}
		w.logger.Info("config watcher stopped", "config_path", w.configPath)
	})
	return stopErr
}

// IsRunning reports whether the watcher is active.
func (w *ConfigWatcher[F]) IsRunning() bool {
	return w.enabled.Load() && !w.stopped.Load()
}

// Current returns the most recently applied configuration, nil before a
// successful Start.
func (w *ConfigWatcher[F]) Current() *SystemConfig {
	return w.current.Load()
}

// handleChange reacts to one file change event: reload, apply, audit.
// Failures leave the previous configuration in effect.
func (w *ConfigWatcher[F]) handleChange(event argus.ChangeEvent) {
	w.logger.Info("configuration file change detected",
		"path", event.Path,
		"mod_time", event.ModTime,
		"is_create", event.IsCreate,
		"is_delete", event.IsDelete,
		"is_modify", event.IsModify)

	if event.IsDelete {
		w.logger.Warn("configuration file was deleted, keeping current configuration", "path", event.Path)
		w.auditEvent("config_file_deleted", map[string]interface{}{
			"path": event.Path,
		})
		return
	}

	config, err := LoadSystemConfigFromFile(event.Path)
	if err != nil {
		w.logger.Error("failed to load changed configuration", "error", err, "path", event.Path)
		w.auditEvent("config_load_failed", map[string]interface{}{
			"path":  event.Path,
			"error": err.Error(),
		})
		return
	}
	if err := w.applyConfig(config); err != nil {
		w.logger.Error("failed to apply changed configuration", "error", err, "path", event.Path)
		w.auditEvent("config_apply_failed", map[string]interface{}{
			"path":  event.Path,
			"error": err.Error(),
		})
		return
	}

	w.current.Store(config)
	w.auditEvent("config_applied", map[string]interface{}{
		"path":   event.Path,
		"source": "file_change",
	})
}

// applyConfig folds a loaded configuration into the running system.
// Search paths are the only hot-applicable setting; everything else is
// construction-time identity and must match the system.
func (w *ConfigWatcher[F]) applyConfig(config *SystemConfig) error {
	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return err
	}
	if config.Name != w.sys.Name() || config.Namespace != w.sys.Namespace() {
		return NewConfigValidationError("system identity (name, namespace) cannot change at runtime", nil)
	}
	version, err := ParseVersion(config.Version)
	if err != nil {
		return err
	}
	if version.Compare(w.sys.Version()) != 0 {
		return NewConfigValidationError("system version cannot change at runtime", nil)
	}

	known := make(map[string]struct{})
	for _, path := range w.sys.SearchPaths() {
		known[path] = struct{}{}
	}
	var added []string
	for _, path := range config.Paths {
		if _, ok := known[path]; !ok {
			added = append(added, path)
		}
	}
	if len(added) > 0 {
		w.sys.ExtendPath(added...)
		w.logger.Info("search paths extended from configuration", "added", added)
	}
	if w.options.Rediscover {
		w.sys.DiscoverAll()
	}
	return nil
}

// auditEvent writes one entry to the audit trail when auditing is on.
func (w *ConfigWatcher[F]) auditEvent(eventType string, context map[string]interface{}) {
	if w.auditLogger != nil {
		w.auditLogger.LogSecurityEvent(eventType, "plugin system configuration change", context)
	}
}
