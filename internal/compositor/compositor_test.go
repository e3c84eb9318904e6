package compositor

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/e1z0/avrecorder/internal/frame"
)

func TestPipPositionTopRight(t *testing.T) {
	cfg := DefaultConfig() // 1920x1080, 25%, padding 20
	c := New(cfg)
	x, y, w, h := c.PipRect()
	require.Equal(t, 480, w)
	require.Equal(t, 360, h)
	require.Equal(t, 1420, x)
	require.Equal(t, 20, y)
}

func TestPipPositionBottomLeft(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PipPosition = PipBottomLeft
	c := New(cfg)
	x, y, _, _ := c.PipRect()
	require.Equal(t, 20, x)
	require.Equal(t, 700, y)
}

func TestCompositeFastPathWhenScreenOnlyAndMatchingDims(t *testing.T) {
	cfg := DefaultConfig()
	cfg.IncludeWebcam = false
	c := New(cfg)
	screen := &frame.ScreenFrame{
		Data:   make([]byte, 1920*1080*4),
		Width:  1920,
		Height: 1080,
	}
	out := c.Composite(screen, nil)
	require.True(t, out.IsBGRA)
	require.Equal(t, 1920, out.Width)
	require.Equal(t, 1080, out.Height)
}

func TestCompositeSlowPathWhenWebcamIncluded(t *testing.T) {
	cfg := DefaultConfig()
	cfg.IncludeWebcam = true
	c := New(cfg)
	screen := &frame.ScreenFrame{
		Data:   make([]byte, 1920*1080*4),
		Width:  1920,
		Height: 1080,
	}
	webcam := &frame.WebcamFrame{
		Data:   make([]byte, 640*480*3),
		Width:  640,
		Height: 480,
	}
	out := c.Composite(screen, webcam)
	require.False(t, out.IsBGRA)
	require.Equal(t, 1920, out.Width)
	require.Equal(t, 1080, out.Height)
}

func TestCompositeWebcamOnlyWhenNoScreen(t *testing.T) {
	cfg := DefaultConfig()
	c := New(cfg)
	webcam := &frame.WebcamFrame{
		Data:   make([]byte, 640*480*3),
		Width:  640,
		Height: 480,
	}
	out := c.Composite(nil, webcam)
	require.False(t, out.IsBGRA)
	require.Equal(t, cfg.OutputWidth, out.Width)
	require.Equal(t, cfg.OutputHeight, out.Height)
}

func TestToPackedBGRAStripsStride(t *testing.T) {
	// 2x1 frame, stride padded to 16 bytes (row needs only 8).
	s := &frame.ScreenFrame{
		Data:   make([]byte, 16),
		Width:  2,
		Height: 1,
		Stride: 16,
	}
	copy(s.Data, []byte{1, 2, 3, 4, 5, 6, 7, 8})
	out := toPackedBGRA(s)
	require.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8}, out)
}
