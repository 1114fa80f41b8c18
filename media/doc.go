// Package media converts raw generated media into the encoded representations
// returned to flow callers: linear PCM audio framed in a RIFF/WAVE container
// and base64 data URIs.
package media
