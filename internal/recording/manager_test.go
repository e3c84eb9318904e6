package recording

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/e1z0/avrecorder/internal/frame"
)

func TestStartRejectsNoVideoSource(t *testing.T) {
	m := NewManager()
	cfg := DefaultRecordingConfig()
	cfg.CaptureScreen = false
	cfg.CaptureWebcam = false
	err := m.Start(cfg)
	require.Error(t, err)
	recErr, ok := err.(*Error)
	require.True(t, ok)
	require.Equal(t, ErrKindNoVideoSource, recErr.Kind)
}

func TestStopWhenNotRecordingReturnsNotRecordingError(t *testing.T) {
	m := NewManager()
	_, err := m.Stop()
	require.Error(t, err)
	recErr, ok := err.(*Error)
	require.True(t, ok)
	require.Equal(t, ErrKindNotRecording, recErr.Kind)
}

func TestStatusWhenIdle(t *testing.T) {
	m := NewManager()
	st := m.Status()
	require.False(t, st.IsRecording)
}

func TestVideoQualityTables(t *testing.T) {
	require.Equal(t, 28, QualityLow.CRF())
	require.Equal(t, 23, QualityMedium.CRF())
	require.Equal(t, 18, QualityHigh.CRF())
	require.Equal(t, 2500, QualityLow.VideoBitrateKbps())
	require.Equal(t, 5000, QualityMedium.VideoBitrateKbps())
	require.Equal(t, 10000, QualityHigh.VideoBitrateKbps())
	require.Equal(t, 128, QualityLow.AudioBitrateKbps())
	require.Equal(t, 192, QualityMedium.AudioBitrateKbps())
	require.Equal(t, 256, QualityHigh.AudioBitrateKbps())
}

func TestOutputResolutionDimensions(t *testing.T) {
	w, h := ResolutionHD720.Dimensions()
	require.Equal(t, 1280, w)
	require.Equal(t, 720, h)

	w, h = ResolutionHD1080.Dimensions()
	require.Equal(t, 1920, w)
	require.Equal(t, 1080, h)

	w, h = ResolutionQHD1440.Dimensions()
	require.Equal(t, 2560, w)
	require.Equal(t, 1440, h)

	w, h = ResolutionUHD4K.Dimensions()
	require.Equal(t, 3840, w)
	require.Equal(t, 2160, h)
}

func TestExternalRecorderPushFrameWhenNotRecording(t *testing.T) {
	r := NewExternalRecorder()
	err := r.PushFrame(frame.CompositeFrame{Width: 100, Height: 100})
	require.Error(t, err)
	recErr, ok := err.(*Error)
	require.True(t, ok)
	require.Equal(t, ErrKindNotRecording, recErr.Kind)
}

func TestExternalRecorderStartRejectsZeroDimensions(t *testing.T) {
	r := NewExternalRecorder()
	err := r.Start(ExternalRecordingConfig{OutputWidth: 0, OutputHeight: 0})
	require.Error(t, err)
	recErr, ok := err.(*Error)
	require.True(t, ok)
	require.Equal(t, ErrKindNoVideoSource, recErr.Kind)
}
