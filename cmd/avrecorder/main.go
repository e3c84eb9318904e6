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

package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	astiav "github.com/asticode/go-astiav"

	"github.com/e1z0/avrecorder/internal/config"
	"github.com/e1z0/avrecorder/internal/recording"
	"github.com/e1z0/avrecorder/internal/sleepwatch"
)

var (
	version = "dev"
	build   = "unknown"
)

func main() {
	screen := flag.Bool("screen", true, "capture the screen")
	webcam := flag.Bool("webcam", false, "capture the webcam as a picture-in-picture overlay")
	mic := flag.Bool("mic", true, "capture the microphone")
	systemAudio := flag.Bool("system-audio", false, "capture system/loopback audio")
	quality := flag.String("quality", "", "video quality: low, medium, high (overrides settings file)")
	resolution := flag.String("resolution", "", "output resolution: 720p, 1080p, 1440p, 4k")
	pipPosition := flag.String("pip-position", "", "pip corner: top-left, top-right, bottom-left, bottom-right")
	out := flag.String("out", "", "output file path (defaults to ~/Videos/recording_<timestamp>.mp4)")
	duration := flag.Duration("duration", 0, "stop automatically after this duration (0 = run until interrupted)")
	debugFF := flag.Bool("debugstreams", false, "enable verbose ffmpeg/libav logging")
	debug := flag.Bool("debug", false, "also log to stdout")
	listDevices := flag.Bool("list-devices", false, "list capture devices and exit")
	flag.Parse()

	env, err := config.InitializeEnvironment(*debug)
	if err != nil {
		log.Fatalf("initialize environment: %v", err)
	}
	appCfg, err := config.Load(env.SettingsFile)
	if err != nil {
		log.Printf("settings: %v, using defaults", err)
		appCfg = config.Default()
	}

	log.Printf("avrecorder v%s (build %s)", version, build)

	if *listDevices {
		devices := recording.EnumerateDevices()
		log.Printf("screens: %v", devices.Screens)
		log.Printf("webcams: %v", devices.Webcams)
		log.Printf("microphones: %v", devices.Microphones)
		log.Printf("system audio available: %v", devices.HasSystemAudio)
		return
	}

	if *debugFF {
		astiav.SetLogLevel(astiav.LogLevelDebug)
		astiav.SetLogCallback(func(c astiav.Classer, l astiav.LogLevel, fmtStr, msg string) {
			var cs string
			if c != nil {
				if cl := c.Class(); cl != nil {
					cs = " - class: " + cl.String()
				}
			}
			log.Printf("ffmpeg log: %s%s - level: %d", strings.TrimSpace(msg), cs, l)
		})
	}

	cfg := recording.DefaultRecordingConfig()
	cfg.CaptureScreen = *screen
	cfg.CaptureWebcam = *webcam
	cfg.CaptureMic = *mic
	cfg.CaptureSystemAudio = *systemAudio
	cfg.OutputPath = *out

	if appCfg.DefaultFPS > 0 {
		cfg.FrameRate = appCfg.DefaultFPS
	}
	if appCfg.DefaultQuality != "" {
		applyQualityFlag(&cfg, appCfg.DefaultQuality)
	}
	if appCfg.PipPosition != "" {
		applyPipPositionFlag(&cfg, appCfg.PipPosition)
	}
	if *resolution != "" {
		applyResolutionFlag(&cfg, *resolution)
	}
	if *quality != "" {
		applyQualityFlag(&cfg, *quality)
	}
	if *pipPosition != "" {
		applyPipPositionFlag(&cfg, *pipPosition)
	}

	mgr := recording.NewManager()
	if err := mgr.Start(cfg); err != nil {
		log.Fatalf("start recording: %v", err)
	}
	log.Printf("recording started")

	watcher := sleepwatch.New()
	watcher.Start(sleepwatch.Callbacks{
		OnSleep: func() { log.Printf("system sleeping, recording continues in background") },
		OnWake:  func() { log.Printf("system woke up, capture sources will reconnect on their own backoff loop") },
	})
	defer watcher.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var timeout <-chan time.Time
	if *duration > 0 {
		timeout = time.After(*duration)
	}

	select {
	case <-sigCh:
		log.Printf("received interrupt, stopping")
	case <-timeout:
		log.Printf("reached requested duration, stopping")
	}

	path, err := mgr.Stop()
	if err != nil {
		log.Fatalf("stop recording: %v", err)
	}
	log.Printf("recording saved to %s", path)
}

func applyQualityFlag(cfg *recording.RecordingConfig, q string) {
	switch strings.ToLower(q) {
	case "low":
		cfg.VideoQuality = recording.QualityLow
	case "medium":
		cfg.VideoQuality = recording.QualityMedium
	case "high":
		cfg.VideoQuality = recording.QualityHigh
	default:
		log.Printf("unknown quality %q, leaving default", q)
	}
}

func applyResolutionFlag(cfg *recording.RecordingConfig, r string) {
	switch strings.ToLower(r) {
	case "720p":
		cfg.OutputResolution = recording.ResolutionHD720
	case "1080p":
		cfg.OutputResolution = recording.ResolutionHD1080
	case "1440p":
		cfg.OutputResolution = recording.ResolutionQHD1440
	case "4k":
		cfg.OutputResolution = recording.ResolutionUHD4K
	default:
		log.Printf("unknown resolution %q, leaving default", r)
	}
}

func applyPipPositionFlag(cfg *recording.RecordingConfig, p string) {
	switch strings.ToLower(p) {
	case "top-left":
		cfg.WebcamPosition = recording.PipTopLeft
	case "top-right":
		cfg.WebcamPosition = recording.PipTopRight
	case "bottom-left":
		cfg.WebcamPosition = recording.PipBottomLeft
	case "bottom-right":
		cfg.WebcamPosition = recording.PipBottomRight
	default:
		log.Printf("unknown pip position %q, leaving default", p)
	}
}
