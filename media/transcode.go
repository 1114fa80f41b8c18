package media

import "fmt"

// Format is a transcoding target.
type Format string

const (
	// FormatRaw wraps the bytes in a data URI with the declared MIME type.
	FormatRaw Format = "raw"
	// FormatWAV frames linear PCM in a WAVE container before encoding.
	FormatWAV Format = "wav"
)

// Transcode converts raw generated bytes into a data URI for the target
// format. For FormatWAV params must describe the PCM layout of raw; for
// FormatRaw only mimeType is used.
func Transcode(raw []byte, target Format, mimeType string, params Params) (string, error) {
	switch target {
	case FormatWAV:
		wav, err := EncodeWAV(raw, params)
		if err != nil {
			return "", fmt.Errorf("wav transcode: %w", err)
		}
		return EncodeDataURI("audio/wav", wav), nil
	case FormatRaw, "":
		return EncodeDataURI(mimeType, raw), nil
	default:
		return "", fmt.Errorf("unsupported media format %q", target)
	}
}
