package media

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWAVRoundTrip(t *testing.T) {
	cases := []Params{
		{Channels: 1, SampleRate: 24000, BitDepth: 16},
		{Channels: 2, SampleRate: 44100, BitDepth: 16},
		{Channels: 1, SampleRate: 8000, BitDepth: 8},
		{Channels: 2, SampleRate: 48000, BitDepth: 24},
	}

	for _, p := range cases {
		pcm := make([]byte, p.BlockAlign()*257)
		for i := range pcm {
			pcm[i] = byte(i*31 + 7)
		}

		encoded, err := EncodeWAV(pcm, p)
		require.NoError(t, err)
		assert.Len(t, encoded, wavHeaderSize+len(pcm))

		decoded, err := DecodeWAV(encoded)
		require.NoError(t, err)
		assert.Equal(t, p, decoded.Params)
		assert.Equal(t, pcm, decoded.Data)
	}
}

func TestEncodeWAVHeaderFields(t *testing.T) {
	p := Params{Channels: 1, SampleRate: 24000, BitDepth: 16}
	encoded, err := EncodeWAV([]byte{1, 0, 2, 0}, p)
	require.NoError(t, err)

	assert.Equal(t, "RIFF", string(encoded[0:4]))
	assert.Equal(t, uint32(40), binary.LittleEndian.Uint32(encoded[4:8]))
	assert.Equal(t, uint16(1), binary.LittleEndian.Uint16(encoded[22:24]))
	assert.Equal(t, uint32(24000), binary.LittleEndian.Uint32(encoded[24:28]))
	assert.Equal(t, uint32(48000), binary.LittleEndian.Uint32(encoded[28:32]))
	assert.Equal(t, uint16(2), binary.LittleEndian.Uint16(encoded[32:34]))
	assert.Equal(t, uint16(16), binary.LittleEndian.Uint16(encoded[34:36]))
	assert.Equal(t, uint32(4), binary.LittleEndian.Uint32(encoded[40:44]))
}

func TestEncodeWAVRejectsBadInput(t *testing.T) {
	_, err := EncodeWAV([]byte{1, 2, 3}, Params{Channels: 1, SampleRate: 24000, BitDepth: 16})
	assert.Error(t, err)

	_, err = EncodeWAV(nil, Params{Channels: 0, SampleRate: 24000, BitDepth: 16})
	assert.Error(t, err)

	_, err = EncodeWAV(nil, Params{Channels: 1, SampleRate: 24000, BitDepth: 12})
	assert.Error(t, err)
}

func TestParamsValidateHeaderFieldRanges(t *testing.T) {
	tests := []struct {
		name string
		p    Params
		ok   bool
	}{
		{"block align overflow", Params{Channels: 40000, SampleRate: 24000, BitDepth: 16}, false},
		{"block align at limit", Params{Channels: 0xFFFF, SampleRate: 1, BitDepth: 8}, true},
		{"byte rate overflow", Params{Channels: 2, SampleRate: 600_000_000, BitDepth: 32}, false},
		{"common layout", Params{Channels: 2, SampleRate: 48000, BitDepth: 24}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.p.Validate()
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.Error(t, err)
			_, err = EncodeWAV(nil, tt.p)
			assert.Error(t, err)
		})
	}
}

func TestDecodeWAVSkipsUnknownChunks(t *testing.T) {
	p := Params{Channels: 1, SampleRate: 16000, BitDepth: 16}
	encoded, err := EncodeWAV([]byte{9, 9}, p)
	require.NoError(t, err)

	// Insert an odd-sized LIST chunk between fmt and data.
	list := []byte{'L', 'I', 'S', 'T', 3, 0, 0, 0, 'a', 'b', 'c', 0}
	withList := append(append(append([]byte{}, encoded[:36]...), list...), encoded[36:]...)

	decoded, err := DecodeWAV(withList)
	require.NoError(t, err)
	assert.Equal(t, []byte{9, 9}, decoded.Data)
}

func TestDecodeWAVRejectsGarbage(t *testing.T) {
	_, err := DecodeWAV([]byte("not audio at all"))
	assert.Error(t, err)
}

func TestDataURIRoundTrip(t *testing.T) {
	uri := EncodeDataURI("image/png", []byte{0x89, 'P', 'N', 'G'})
	assert.Equal(t, "data:image/png;base64,iVBORw==", uri)

	mimeType, data, err := ParseDataURI(uri)
	require.NoError(t, err)
	assert.Equal(t, "image/png", mimeType)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, data)

	_, _, err = ParseDataURI("https://example.com/a.png")
	assert.Error(t, err)
	_, _, err = ParseDataURI("data:text/plain,hello")
	assert.Error(t, err)
}

func TestTranscode(t *testing.T) {
	p := Params{Channels: 1, SampleRate: 24000, BitDepth: 16}
	pcm := []byte{1, 2, 3, 4, 5, 6}

	uri, err := Transcode(pcm, FormatWAV, "audio/L16", p)
	require.NoError(t, err)

	mimeType, wav, err := ParseDataURI(uri)
	require.NoError(t, err)
	assert.Equal(t, "audio/wav", mimeType)

	decoded, err := DecodeWAV(wav)
	require.NoError(t, err)
	assert.Equal(t, p, decoded.Params)
	assert.Equal(t, pcm, decoded.Data)

	uri, err = Transcode([]byte{1}, FormatRaw, "image/png", Params{})
	require.NoError(t, err)
	assert.Equal(t, "data:image/png;base64,AQ==", uri)

	_, err = Transcode(pcm, Format("mp3"), "", p)
	assert.Error(t, err)
}
