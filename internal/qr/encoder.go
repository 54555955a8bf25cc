// Package qr renders signed payloads as scannable PNG images.
package qr

import (
	qrcode "github.com/skip2/go-qrcode"
)

// Encoder turns payload strings into QR PNGs. The lifecycle core only
// guarantees the payload string; everything visual lives here.
type Encoder struct {
	size int
}

// NewEncoder returns an encoder producing images of the given pixel size.
func NewEncoder(size int) *Encoder {
	if size <= 0 {
		size = 256
	}
	return &Encoder{size: size}
}

// PNG encodes the payload with medium error correction.
func (e *Encoder) PNG(payload string) ([]byte, error) {
	return qrcode.Encode(payload, qrcode.Medium, e.size)
}
