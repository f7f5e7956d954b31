package source

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeFrame(t *testing.T) {
	f, err := DecodeFrame([]byte(`{"samples":{"0":123.4,"3":99.5}}`))
	require.NoError(t, err)
	assert.Equal(t, map[int]float64{0: 123.4, 3: 99.5}, f.Samples)
}

func TestDecodeFrameEmptySamples(t *testing.T) {
	f, err := DecodeFrame([]byte(`{"samples":{}}`))
	require.NoError(t, err)
	assert.Empty(t, f.Samples)

	// a missing samples key is the same as an empty one
	f, err = DecodeFrame([]byte(`{}`))
	require.NoError(t, err)
	assert.Empty(t, f.Samples)
}

func TestDecodeFrameRejectsBadKeys(t *testing.T) {
	_, err := DecodeFrame([]byte(`{"samples":{"face-a":123.4}}`))
	assert.Error(t, err)

	_, err = DecodeFrame([]byte(`{"samples":{"-1":123.4}}`))
	assert.Error(t, err)
}

func TestDecodeFrameRejectsMalformedJSON(t *testing.T) {
	_, err := DecodeFrame([]byte(`{"samples":`))
	assert.Error(t, err)
}

func TestEncodeFrameRoundTrip(t *testing.T) {
	in := Frame{Samples: map[int]float64{0: 128.25, 7: 131.5}}
	payload, err := EncodeFrame(in)
	require.NoError(t, err)

	out, err := DecodeFrame(payload)
	require.NoError(t, err)
	if diff := cmp.Diff(in.Samples, out.Samples); diff != "" {
		t.Errorf("frame mismatch after round trip (-want +got):\n%s", diff)
	}
}
