package encoder

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/e1z0/avrecorder/internal/frame"
)

func TestFallbackEncoderWritesFramesAndMetadata(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{
		OutputPath:       filepath.Join(dir, "out.mp4"),
		Width:            4,
		Height:           2,
		FrameRate:        30,
		CRF:              23,
		VideoBitrateKbps: 5000,
	}
	enc, err := newFallbackEncoder(cfg)
	require.NoError(t, err)

	f := frame.CompositeFrame{
		Data:   make([]byte, 4*2*4),
		Width:  4,
		Height: 2,
		IsBGRA: false,
	}
	require.NoError(t, enc.WriteVideoFrame(f))
	require.NoError(t, enc.WriteVideoFrame(f))
	require.Equal(t, int64(2), enc.FramesEncoded())

	require.NoError(t, enc.Close())

	entries, err := os.ReadDir(filepath.Join(dir, "out_frames"))
	require.NoError(t, err)
	require.Len(t, entries, 2)

	meta, err := os.ReadFile(filepath.Join(dir, "out_metadata.txt"))
	require.NoError(t, err)
	require.Contains(t, string(meta), "frames: 2")
	require.Contains(t, string(meta), "ffmpeg -r 30")
}

func TestToRGBAImageConvertsBGRA(t *testing.T) {
	cf := frame.CompositeFrame{
		Data:   []byte{10, 20, 30, 255},
		Width:  1,
		Height: 1,
		IsBGRA: true,
	}
	img := toRGBAImage(cf)
	require.Equal(t, []byte{30, 20, 10, 255}, img.Pix)
}
