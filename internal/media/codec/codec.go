// Package codec converts between encoded cover bytes and in-memory images.
package codec

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/gif" // register GIF decoder
	"image/jpeg"
	"image/png"
	"math"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/kolesa-team/go-webp/encoder"
	"github.com/kolesa-team/go-webp/webp"
	"github.com/vincent-petithory/dataurl"
	"golang.org/x/image/draw"
	xwebp "golang.org/x/image/webp"

	"github.com/inkwellpress/inkwell/internal/errors"
)

// DefaultQuality is the lossy quality used when none is configured.
const DefaultQuality = 0.75

// Format is an image container format.
type Format string

// Supported formats.
const (
	PNG  Format = "png"
	JPEG Format = "jpeg"
	WebP Format = "webp"
	GIF  Format = "gif"
)

// MIME returns the media type of f.
func (f Format) MIME() string {
	return "image/" + string(f)
}

// Lossy reports whether f takes a quality setting.
func (f Format) Lossy() bool {
	return f == JPEG || f == WebP
}

// ParseFormat accepts a format name or a media type.
func ParseFormat(s string) (Format, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimPrefix(s, "image/")
	switch s {
	case "png":
		return PNG, nil
	case "jpeg", "jpg":
		return JPEG, nil
	case "webp":
		return WebP, nil
	case "gif":
		return GIF, nil
	}
	return "", fmt.Errorf("unsupported image format %q", s)
}

// Detect sniffs the format of encoded image bytes.
func Detect(data []byte) (Format, bool) {
	m := mimetype.Detect(data)
	for _, f := range []Format{PNG, JPEG, WebP, GIF} {
		if m.Is(f.MIME()) {
			return f, true
		}
	}
	return "", false
}

// Decode decodes PNG, JPEG, WebP or GIF bytes. Anything else, and any
// corrupt payload, is a decode error.
func Decode(data []byte) (image.Image, Format, error) {
	if len(data) == 0 {
		return nil, "", errors.Wrap(errors.New("empty payload"), errors.CodeDecode, "image could not be decoded")
	}

	format, ok := Detect(data)
	if !ok {
		mime := mimetype.Detect(data).String()
		return nil, "", errors.Wrapf(errors.New("unsupported media type"), errors.CodeDecode, "image could not be decoded (%s)", mime)
	}

	var (
		img image.Image
		err error
	)
	if format == WebP {
		img, err = xwebp.Decode(bytes.NewReader(data))
	} else {
		img, _, err = image.Decode(bytes.NewReader(data))
	}
	if err != nil {
		return nil, "", errors.Wrap(err, errors.CodeDecode, "image could not be decoded")
	}
	return img, format, nil
}

// Unwrap returns the raw bytes behind a reference, which is either a
// data: URL or the encoded bytes themselves.
func Unwrap(ref []byte) ([]byte, error) {
	if !bytes.HasPrefix(ref, []byte("data:")) {
		return ref, nil
	}
	du, err := dataurl.Decode(bytes.NewReader(ref))
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDecode, "malformed data URL")
	}
	return du.Data, nil
}

// DecodeRef decodes a data: URL or raw image bytes.
func DecodeRef(ref []byte) (image.Image, Format, error) {
	data, err := Unwrap(ref)
	if err != nil {
		return nil, "", err
	}
	return Decode(data)
}

// Encode encodes img in format f. quality applies to lossy formats and is
// clamped to (0, 1]; zero means DefaultQuality.
func Encode(img image.Image, f Format, quality float64) ([]byte, error) {
	q := normalizeQuality(quality)

	var buf bytes.Buffer
	switch f {
	case PNG:
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("encode png: %w", err)
		}
	case JPEG:
		if err := jpeg.Encode(&buf, flattenAlpha(img), &jpeg.Options{Quality: int(math.Round(q * 100))}); err != nil {
			return nil, fmt.Errorf("encode jpeg: %w", err)
		}
	case WebP:
		opts, err := encoder.NewLossyEncoderOptions(encoder.PresetDefault, float32(q*100))
		if err != nil {
			return nil, fmt.Errorf("webp options: %w", err)
		}
		if err := webp.Encode(&buf, flattenAlpha(img), opts); err != nil {
			return nil, fmt.Errorf("encode webp: %w", err)
		}
	default:
		return nil, fmt.Errorf("encode: unsupported format %q", f)
	}
	return buf.Bytes(), nil
}

// Compress re-encodes data in the lossy format f at quality, flattening
// transparency onto white. It returns the new bytes and their media type.
func Compress(data []byte, f Format, quality float64) ([]byte, string, error) {
	if !f.Lossy() {
		return nil, "", fmt.Errorf("compress: %q is not a lossy format", f)
	}
	img, _, err := Decode(data)
	if err != nil {
		return nil, "", err
	}
	out, err := Encode(img, f, quality)
	if err != nil {
		return nil, "", err
	}
	return out, f.MIME(), nil
}

// Extension returns the file extension, without the dot, for a media type.
func Extension(mime string) string {
	if f, err := ParseFormat(mime); err == nil && f == JPEG {
		return "jpg"
	}
	if m := mimetype.Lookup(mime); m != nil && m.Extension() != "" {
		return strings.TrimPrefix(m.Extension(), ".")
	}
	return "bin"
}

// DataURL wraps bytes in a base64 data: URL.
func DataURL(data []byte, mime string) string {
	return dataurl.New(data, mime).String()
}

func normalizeQuality(q float64) float64 {
	if q <= 0 {
		return DefaultQuality
	}
	return math.Min(q, 1)
}

// flattenAlpha composites src onto a white background.
func flattenAlpha(src image.Image) *image.NRGBA {
	b := src.Bounds()
	dst := image.NewNRGBA(b)
	draw.Draw(dst, b, image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(dst, b, src, b.Min, draw.Over)
	return dst
}
