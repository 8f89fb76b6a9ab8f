package layout

import (
	"fmt"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// FamilyGo is the embedded Go font family, always available.
const FamilyGo = "Go"

// Weight of a font.
type Weight int

// Supported weights.
const (
	Regular Weight = iota
	Bold
)

// Style of a font.
type Style int

// Supported styles.
const (
	Normal Style = iota
	Italic
)

// Font describes a face: family, weight, style and size in points.
// At 72 DPI one point is one pixel.
type Font struct {
	Family string
	Weight Weight
	Style  Style
	Size   float64
}

// WithSize returns a copy of f at the given size.
func (f Font) WithSize(size float64) Font {
	f.Size = size
	return f
}

func (f Font) String() string {
	w := "regular"
	if f.Weight == Bold {
		w = "bold"
	}
	if f.Style == Italic {
		w += "-italic"
	}
	return fmt.Sprintf("%s/%s/%.1f", f.Family, w, f.Size)
}

// FaceSource resolves font descriptions to faces.
type FaceSource interface {
	Face(f Font) (font.Face, error)
}

type variant struct {
	family string
	weight Weight
	style  Style
}

// FaceCache holds parsed font files. It is safe for concurrent use.
// Faces are not, so each render takes its own Faces from Session.
type FaceCache struct {
	mu    sync.RWMutex
	fonts map[variant]*opentype.Font
}

// NewFaceCache returns a cache preloaded with the Go font family.
func NewFaceCache() (*FaceCache, error) {
	c := &FaceCache{fonts: make(map[variant]*opentype.Font)}

	builtin := []struct {
		weight Weight
		style  Style
		ttf    []byte
	}{
		{Regular, Normal, goregular.TTF},
		{Bold, Normal, gobold.TTF},
		{Regular, Italic, goitalic.TTF},
		{Bold, Italic, gobolditalic.TTF},
	}
	for _, b := range builtin {
		if err := c.Register(FamilyGo, b.weight, b.style, b.ttf); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Register parses an OpenType or TrueType file and adds it under family.
func (c *FaceCache) Register(family string, weight Weight, style Style, ttf []byte) error {
	parsed, err := opentype.Parse(ttf)
	if err != nil {
		return fmt.Errorf("parse font %s: %w", family, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.fonts[variant{family, weight, style}] = parsed
	return nil
}

// NewFace creates a fresh face for f.
func (c *FaceCache) NewFace(f Font) (font.Face, error) {
	if f.Size <= 0 {
		return nil, fmt.Errorf("font %s: size must be positive", f)
	}

	c.mu.RLock()
	parsed, ok := c.fonts[variant{f.Family, f.Weight, f.Style}]
	c.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("font %s: %w", f, ErrUnknownFont)
	}

	return opentype.NewFace(parsed, &opentype.FaceOptions{
		Size:    f.Size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
}

// Session returns a face set for a single render.
func (c *FaceCache) Session() *Faces {
	return &Faces{cache: c, faces: make(map[Font]font.Face)}
}

// Faces memoizes faces for one render. Not safe for concurrent use.
type Faces struct {
	cache *FaceCache
	faces map[Font]font.Face
}

// Face returns the face for f, creating it on first use.
func (s *Faces) Face(f Font) (font.Face, error) {
	if face, ok := s.faces[f]; ok {
		return face, nil
	}
	face, err := s.cache.NewFace(f)
	if err != nil {
		return nil, err
	}
	s.faces[f] = face
	return face, nil
}

// Close releases every face created by the session.
func (s *Faces) Close() error {
	var firstErr error
	for f, face := range s.faces {
		if err := face.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(s.faces, f)
	}
	return firstErr
}
