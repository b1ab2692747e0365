package vision

import (
	"bytes"
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	"github.com/fwojciec/segchat"
)

const jpegQuality = 90

// Open loads and decodes the image stored at path. An unreadable or
// malformed file fails with ErrImageDecode.
func Open(path string) (image.Image, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, segchat.ErrImageDecode)
	}
	return img, nil
}

// Decode decodes raw image bytes. Malformed data fails with
// ErrImageDecode.
func Decode(data []byte) (image.Image, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, segchat.ErrImageDecode
	}
	return img, nil
}

// EncodeJPEG encodes an image as JPEG, the format every rendered
// artifact is stored in.
func EncodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
