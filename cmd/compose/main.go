// Package main composites title, author and badge text over a local image
// without contacting the generative backend.
//
// Usage:
//
//	go run ./cmd/compose -in art.png -out cover.jpg -title "The Last Lighthouse" -author "M. Reyes"
//	go run ./cmd/compose -in art.png -out cover.webp -spec cover.json -quality 0.9
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/inkwellpress/inkwell/internal/compositor"
	"github.com/inkwellpress/inkwell/internal/layout"
	"github.com/inkwellpress/inkwell/internal/logger"
	"github.com/inkwellpress/inkwell/internal/media/codec"
	"github.com/inkwellpress/inkwell/internal/validation"
)

var (
	inPath   = flag.String("in", "", "Base image (PNG, JPEG, WebP or GIF)")
	outPath  = flag.String("out", "cover.png", "Output file; the extension picks the format unless -format is set")
	specPath = flag.String("spec", "", "JSON cover spec; flags below override its fields")
	format   = flag.String("format", "", "Output format: png, jpeg or webp")
	quality  = flag.Float64("quality", codec.DefaultQuality, "Quality for lossy formats, 0 to 1")
	verbose  = flag.Bool("v", false, "Debug logging")

	title    = flag.String("title", "", "Title")
	subtitle = flag.String("subtitle", "", "Subtitle")
	author   = flag.String("author", "", "Author")
	tagline  = flag.String("tagline", "", "Tagline")
	align    = flag.String("align", "", "Author alignment: right or center")
	bonus    = flag.Int("bonus", -1, "Bonus count; zero hides the badge")
	shape    = flag.String("shape", "", "Badge shape")
	label    = flag.String("label", "", "Badge label")
)

func main() {
	flag.Parse()

	level := "info"
	if *verbose {
		level = "debug"
	}
	log := logger.New(logger.Config{Level: logger.ParseLevel(level), Environment: "development"})

	if err := run(context.Background(), log); err != nil {
		fmt.Fprintf(os.Stderr, "compose: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, log *logger.Logger) error {
	if *inPath == "" {
		flag.Usage()
		return fmt.Errorf("-in is required")
	}

	spec, err := loadSpec()
	if err != nil {
		return err
	}
	if err := validation.New().Validate(spec); err != nil {
		return err
	}

	outFormat, err := outputFormat()
	if err != nil {
		return err
	}

	base, err := os.ReadFile(*inPath)
	if err != nil {
		return fmt.Errorf("read base image: %w", err)
	}
	img, _, err := codec.Decode(base)
	if err != nil {
		return err
	}

	fonts, err := layout.NewFaceCache()
	if err != nil {
		return fmt.Errorf("load fonts: %w", err)
	}
	comp := compositor.New(fonts, compositor.DefaultLayout(), log.Component("compositor"))

	cover, err := comp.Compose(ctx, img, spec)
	if err != nil {
		return err
	}
	data, err := codec.Encode(cover, outFormat, *quality)
	if err != nil {
		return err
	}
	if err := os.WriteFile(*outPath, data, 0o644); err != nil {
		return fmt.Errorf("write cover: %w", err)
	}

	log.Info("Cover written",
		"path", *outPath,
		"format", outFormat,
		"bytes", len(data),
		"width", cover.Bounds().Dx(),
		"height", cover.Bounds().Dy(),
	)
	return nil
}

func loadSpec() (compositor.CoverSpec, error) {
	var spec compositor.CoverSpec
	if *specPath != "" {
		data, err := os.ReadFile(*specPath)
		if err != nil {
			return spec, fmt.Errorf("read spec: %w", err)
		}
		if err := json.Unmarshal(data, &spec); err != nil {
			return spec, fmt.Errorf("parse spec: %w", err)
		}
	}

	override(&spec.Title, *title)
	override(&spec.Subtitle, *subtitle)
	override(&spec.Author, *author)
	override(&spec.Tagline, *tagline)
	override(&spec.AuthorAlign, *align)
	override(&spec.BonusStickerShape, *shape)
	override(&spec.BonusLabel, *label)
	if *bonus >= 0 {
		spec.BonusCount = *bonus
	}
	return spec, nil
}

func outputFormat() (codec.Format, error) {
	name := *format
	if name == "" {
		name = strings.TrimPrefix(filepath.Ext(*outPath), ".")
	}
	f, err := codec.ParseFormat(name)
	if err != nil {
		return "", err
	}
	if f == codec.GIF {
		return "", fmt.Errorf("gif output is not supported")
	}
	return f, nil
}

func override(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
