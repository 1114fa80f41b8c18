package media

import (
	"encoding/base64"
	"errors"
	"strings"
)

// EncodeDataURI renders data as a base64 data URI.
func EncodeDataURI(mimeType string, data []byte) string {
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// IsDataURI reports whether s looks like a data URI.
func IsDataURI(s string) bool { return strings.HasPrefix(s, "data:") }

// ParseDataURI decodes a base64 data URI into its MIME type and payload.
func ParseDataURI(uri string) (string, []byte, error) {
	if !IsDataURI(uri) {
		return "", nil, errors.New("not a data uri")
	}
	header, payload, ok := strings.Cut(uri[len("data:"):], ",")
	if !ok {
		return "", nil, errors.New("data uri has no payload separator")
	}
	mimeType, isBase64 := strings.CutSuffix(header, ";base64")
	if !isBase64 {
		return "", nil, errors.New("only base64 data uris are supported")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, err
	}
	if mimeType == "" {
		mimeType = "text/plain"
	}
	return mimeType, data, nil
}
