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

package recording

import "fmt"

// VideoQuality selects the CRF/bitrate preset the encoder applies.
type VideoQuality int

const (
	QualityLow VideoQuality = iota
	QualityMedium
	QualityHigh
)

// CRF returns the libx264 constant-rate-factor for this quality preset.
func (q VideoQuality) CRF() int {
	switch q {
	case QualityLow:
		return 28
	case QualityHigh:
		return 18
	default:
		return 23
	}
}

// VideoBitrateKbps returns the target video bitrate in kbps.
func (q VideoQuality) VideoBitrateKbps() int {
	switch q {
	case QualityLow:
		return 2500
	case QualityHigh:
		return 10000
	default:
		return 5000
	}
}

// AudioBitrateKbps returns the target AAC bitrate in kbps.
func (q VideoQuality) AudioBitrateKbps() int {
	switch q {
	case QualityLow:
		return 128
	case QualityHigh:
		return 256
	default:
		return 192
	}
}

// OutputResolution is a named output resolution preset.
type OutputResolution int

const (
	ResolutionHD720 OutputResolution = iota
	ResolutionHD1080
	ResolutionQHD1440
	ResolutionUHD4K
)

// Dimensions returns the (width, height) pixel pair for this preset.
func (r OutputResolution) Dimensions() (int, int) {
	switch r {
	case ResolutionHD720:
		return 1280, 720
	case ResolutionQHD1440:
		return 2560, 1440
	case ResolutionUHD4K:
		return 3840, 2160
	default:
		return 1920, 1080
	}
}

// PipPosition is re-exported here (rather than imported from compositor)
// so RecordingConfig has no import-cycle dependency on the compositor
// package; Manager translates it at wiring time.
type PipPosition int

const (
	PipTopRight PipPosition = iota
	PipTopLeft
	PipBottomLeft
	PipBottomRight
)

// RecordingConfig is the per-session configuration a caller passes to
// Manager.Start.
type RecordingConfig struct {
	CaptureScreen      bool
	CaptureWebcam      bool
	WebcamPosition     PipPosition
	WebcamSizePercent  int
	CaptureMic         bool
	CaptureSystemAudio bool
	OutputPath         string // empty: Manager resolves a timestamped default
	VideoQuality       VideoQuality
	FrameRate          int // 0 means "use default" (30)
	OutputResolution   OutputResolution
}

// DefaultRecordingConfig matches original_source/recording.rs's Default impl.
func DefaultRecordingConfig() RecordingConfig {
	return RecordingConfig{
		CaptureScreen:      true,
		CaptureWebcam:      false,
		WebcamPosition:     PipTopRight,
		WebcamSizePercent:  25,
		CaptureMic:         true,
		CaptureSystemAudio: false,
		VideoQuality:       QualityMedium,
		FrameRate:          30,
		OutputResolution:   ResolutionHD1080,
	}
}

// RecordingStatus is the live, polled status of the current (or last)
// recording session.
type RecordingStatus struct {
	IsRecording bool
	DurationMs  int64
	FrameCount  int64
	OutputPath  string
	Error       string
}

// ErrorKind classifies a recording error so callers can branch on kind
// without string matching (spec §7).
type ErrorKind int

const (
	ErrKindAlreadyRecording ErrorKind = iota
	ErrKindNotRecording
	ErrKindNoVideoSource
	ErrKindScreenCapture
	ErrKindWebcam
	ErrKindAudio
	ErrKindEncoding
	ErrKindIO
	ErrKindPermissionDenied
)

// Error is the typed error every Manager operation returns.
type Error struct {
	Kind ErrorKind
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func newErr(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// DeviceInfo describes one enumerable capture device.
type DeviceInfo struct {
	ID   string
	Name string
}

// DeviceList is the result of enumerating all capture devices, matching
// original_source/recording.rs's DeviceList.
type DeviceList struct {
	Screens        []DeviceInfo
	Webcams        []DeviceInfo
	Microphones    []DeviceInfo
	HasSystemAudio bool
}

// ExternalRecordingConfig configures the external-frames ingestion path
// (§6): a caller pushes already-composited frames directly into the
// encoder, bypassing screen/webcam capture and compositing but still
// using the audio mixer and encoder/muxer.
type ExternalRecordingConfig struct {
	OutputWidth  int
	OutputHeight int
	OutputPath   string
	VideoQuality VideoQuality
	FrameRate    int
	CaptureMic   bool
}
