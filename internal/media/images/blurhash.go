package images

import (
	"fmt"
	"image"

	"github.com/bbrks/go-blurhash"
	"github.com/disintegration/imaging"

	"github.com/inkwellpress/inkwell/internal/media/codec"
)

// blurHashSize is the longest edge of the thumbnail the hash is computed
// from. A small thumbnail gives a near-identical hash in milliseconds.
const blurHashSize = 64

// ComputeBlurHash returns a 4x3 component BlurHash for img.
func ComputeBlurHash(img image.Image) (string, error) {
	hash, err := blurhash.Encode(4, 3, resizeForBlurHash(img))
	if err != nil {
		return "", fmt.Errorf("encode blurhash: %w", err)
	}
	return hash, nil
}

// BlurHashBytes decodes encoded image bytes and hashes them.
func BlurHashBytes(data []byte) (string, error) {
	img, _, err := codec.Decode(data)
	if err != nil {
		return "", err
	}
	return ComputeBlurHash(img)
}

func resizeForBlurHash(img image.Image) image.Image {
	b := img.Bounds()
	if b.Dx() <= blurHashSize && b.Dy() <= blurHashSize {
		return img
	}
	return imaging.Fit(img, blurHashSize, blurHashSize, imaging.Box)
}
