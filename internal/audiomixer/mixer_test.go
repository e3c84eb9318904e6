package audiomixer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSoftClipIdentityBelowThreshold(t *testing.T) {
	require.InDelta(t, float32(0.3), softClip(0.3), 1e-6)
	require.InDelta(t, float32(-0.3), softClip(-0.3), 1e-6)
}

func TestSoftClipBoundsLargeValues(t *testing.T) {
	require.Less(t, softClip(2.0), float32(1.0))
	require.Greater(t, softClip(-2.0), float32(-1.0))
}

func TestConvertChannelsMonoToStereo(t *testing.T) {
	out := convertChannels([]float32{0.5, 1.0}, 1, 2)
	require.Equal(t, []float32{0.5, 0.5, 1.0, 1.0}, out)
}

func TestConvertChannelsStereoToMono(t *testing.T) {
	out := convertChannels([]float32{0.5, 0.5, 1.0, 0.0}, 2, 1)
	require.InDeltaSlice(t, []float64{0.5, 0.5}, toFloat64(out), 1e-3)
}

func TestConvertChannelsSameCount(t *testing.T) {
	in := []float32{1, 2, 3, 4}
	out := convertChannels(in, 2, 2)
	require.Equal(t, in, out)
}

func TestConvertChannelsExoticUpmix(t *testing.T) {
	// 1 -> 4: copy channel 0 into the remaining 3.
	out := convertChannels([]float32{0.25}, 1, 4)
	require.Equal(t, []float32{0.25, 0.25, 0.25, 0.25}, out)
}

func TestResampleIdentityWhenRatesMatch(t *testing.T) {
	in := []float32{1, 2, 3, 4}
	out := resample(in, 48000, 48000, 2)
	require.Equal(t, in, out)
}

func TestResampleDownsampleHalvesLength(t *testing.T) {
	in := make([]float32, 100) // 100 frames mono
	for i := range in {
		in[i] = float32(i)
	}
	out := resample(in, 48000, 24000, 1)
	require.InDelta(t, 50, len(out), 2)
}

func toFloat64(xs []float32) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = float64(x)
	}
	return out
}
