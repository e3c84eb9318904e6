/* SPDX-License-Identifier: GPL-3.0-or-later
 *
 * avrecorder
 * Copyright (C) 2025 e1z0 <e1z0@icloud.com>
 *
 * This file is part of avrecorder.
 *
 * avrecorder is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * avrecorder is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with avrecorder.  If not, see <https://www.gnu.org/licenses/>.
 */

// Package config persists the recorder's ambient, cross-session defaults
// (output directory, default quality/frame rate, PiP placement, debug
// logging) to a YAML settings file under the user's config directory —
// distinct from the per-recording RecordingConfig the caller passes to
// recording.Manager.Start for each session.
package config

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v2"
)

const appName = "avrecorder"

// AppConfig holds persisted defaults for recording sessions. The CLI
// harness applies DefaultQuality, DefaultFPS and PipPosition when its
// flags don't override them; OutputDir, IncludeWebcam, PipSizePercent and
// Debugging are saved and loaded but not applied to a session.
type AppConfig struct {
	OutputDir      string `yaml:"output_dir,omitempty"`
	DefaultQuality string `yaml:"default_quality,omitempty"` // "low", "medium", "high"
	DefaultFPS     int    `yaml:"default_fps,omitempty"`
	IncludeWebcam  bool   `yaml:"include_webcam,omitempty"`
	PipPosition    string `yaml:"pip_position,omitempty"` // "top-right","top-left","bottom-left","bottom-right"
	PipSizePercent int    `yaml:"pip_size_percent,omitempty"`
	Debugging      bool   `yaml:"debugging,omitempty"`
}

// Default returns the built-in defaults used when no settings file exists.
func Default() AppConfig {
	return AppConfig{
		DefaultQuality: "medium",
		DefaultFPS:     30,
		IncludeWebcam:  false,
		PipPosition:    "top-right",
		PipSizePercent: 25,
	}
}

// Environment resolves the directories and files InitializeEnvironment
// discovers at startup.
type Environment struct {
	ConfigDir    string
	SettingsFile string
	HomeDir      string
	DebugLogPath string
}

var (
	mu  sync.Mutex
	env Environment
)

// InitializeEnvironment resolves ~/.config/avrecorder, wires logging to
// <configDir>/debug.log (plus stdout when debugging is enabled), and
// returns the resolved Environment.
func InitializeEnvironment(debugging bool) (Environment, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Environment{}, err
	}
	configDir := filepath.Join(home, ".config", appName)
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return Environment{}, err
	}
	e := Environment{
		ConfigDir:    configDir,
		SettingsFile: filepath.Join(configDir, "settings.yml"),
		HomeDir:      home,
		DebugLogPath: filepath.Join(configDir, "debug.log"),
	}

	file, err := os.OpenFile(e.DebugLogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o666)
	if err != nil {
		return Environment{}, err
	}
	if debugging {
		log.SetOutput(io.MultiWriter(file, os.Stdout))
	} else {
		log.SetOutput(file)
	}
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	mu.Lock()
	env = e
	mu.Unlock()
	return e, nil
}

// Load reads the YAML settings file, returning Default() if it doesn't
// exist yet.
func Load(path string) (AppConfig, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Save atomically persists cfg to path (write to a .tmp sibling, then
// rename) so a crash mid-write never corrupts the previous settings file.
func Save(path string, cfg AppConfig) error {
	mu.Lock()
	defer mu.Unlock()

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(f)
	if err := enc.Encode(&cfg); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := enc.Close(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}
