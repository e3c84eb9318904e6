package frame

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWebcamFrameToRGBA(t *testing.T) {
	f := WebcamFrame{Data: []byte{255, 128, 64}, Width: 1, Height: 1}
	require.Equal(t, []byte{255, 128, 64, 255}, f.ToRGBA())
}

func TestWebcamFrameToRGBAMultiPixel(t *testing.T) {
	f := WebcamFrame{
		Data:   []byte{1, 2, 3, 4, 5, 6},
		Width:  2,
		Height: 1,
	}
	require.Equal(t, []byte{1, 2, 3, 255, 4, 5, 6, 255}, f.ToRGBA())
}

func TestAudioChunkDuration(t *testing.T) {
	c := AudioChunk{
		Samples:    make([]float32, 1024*2),
		SampleRate: 48000,
		Channels:   2,
	}
	got := c.Duration()
	want := time.Duration(float64(1024) / 48000 * float64(time.Second))
	require.InDelta(t, float64(want), float64(got), float64(time.Microsecond))
}

func TestAudioChunkDurationZeroRate(t *testing.T) {
	c := AudioChunk{Samples: make([]float32, 10), SampleRate: 0, Channels: 2}
	require.Equal(t, time.Duration(0), c.Duration())
}
