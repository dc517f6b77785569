// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Command computedemo inverts the colors of an image with a compute shader
// on every registered backend.
//
// For each backend it writes vec4_<backend>.png, computed on RGBA vectors,
// and vec3_<backend>.png, computed on RGB vectors with opaque alpha.
// A backend that fails is reported and skipped.
//
// Usage:
//
//	computedemo [-input image.png] [-width 256 -height 256] [-out dir] [-backend vulkan,software]
package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/gogpu/compute"
	"github.com/gogpu/compute/backend/software"
	"github.com/gogpu/compute/gpucore"
	"github.com/gogpu/compute/internal/pixel"
)

var (
	input    = flag.String("input", "", "input image (PNG, JPEG, BMP or TIFF); a test pattern when empty")
	width    = flag.Int("width", 0, "resize the input to this width (0 keeps it)")
	height   = flag.Int("height", 0, "resize the input to this height (0 keeps it)")
	outDir   = flag.String("out", ".", "output directory")
	backends = flag.String("backend", "", "comma-separated backends to run (default: all registered)")
	verify   = flag.Bool("verify", true, "read the uploaded input back before dispatching")
	verbose  = flag.Bool("v", false, "enable debug logging")
)

// loggerSetters are the package loggers wired to -v.
var loggerSetters = []func(*slog.Logger){compute.SetLogger, software.SetLogger}

func main() {
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	if *verbose {
		for _, set := range loggerSetters {
			set(logger)
		}
	}

	if err := run(logger); err != nil {
		logger.Error("computedemo failed", "err", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	img, err := loadInput()
	if err != nil {
		return err
	}

	names := gpucore.Backends()
	if *backends != "" {
		names = names[:0]
		for _, name := range strings.Split(*backends, ",") {
			names = append(names, gpucore.Backend(strings.TrimSpace(name)))
		}
	}
	if len(names) == 0 {
		return errors.New("no backends registered")
	}

	p := message.NewPrinter(language.English)
	input4 := pixel.ToVec4(img.Pix)
	input3 := pixel.ToVec3(input4)

	var ok int
	for _, name := range names {
		start := time.Now()
		if err := runBackend(name, img, input4, input3); err != nil {
			logger.Warn("backend failed", "backend", name, "err", err)
			continue
		}
		ok++
		p.Printf("%s: inverted %d pixels twice in %v\n", name, len(img.Pix), time.Since(start).Round(time.Microsecond))
	}
	if ok == 0 {
		return fmt.Errorf("all %d backends failed", len(names))
	}
	return nil
}

func loadInput() (*pixel.Image, error) {
	var (
		img *pixel.Image
		err error
	)
	if *input != "" {
		img, err = pixel.Load(*input)
		if err != nil {
			return nil, err
		}
	} else {
		img = testPattern(256, 256)
	}

	if *width > 0 || *height > 0 {
		w, h := *width, *height
		if w <= 0 {
			w = img.Width
		}
		if h <= 0 {
			h = img.Height
		}
		return img.Scale(w, h)
	}
	return img, nil
}

// testPattern is a red/green gradient over constant blue.
func testPattern(w, h int) *pixel.Image {
	pix := make([]pixel.ARGB, w*h)
	for y := range h {
		for x := range w {
			pix[y*w+x] = pixel.NewARGB(255, uint8(x*255/(w-1)), uint8(y*255/(h-1)), 128)
		}
	}
	return &pixel.Image{Width: w, Height: h, Pix: pix}
}

func runBackend(name gpucore.Backend, img *pixel.Image, input4 []pixel.Vec4, input3 []pixel.Vec3) error {
	label := compute.WithLabel("computedemo:" + string(name))

	out4, err := invert(name, "invert4", input4, img.Width, img.Height, *verify, label)
	if err != nil {
		return fmt.Errorf("vec4: %w", err)
	}
	out3, err := invert(name, "invert3", input3, img.Width, img.Height, *verify, label)
	if err != nil {
		return fmt.Errorf("vec3: %w", err)
	}

	if err := save(fmt.Sprintf("vec4_%s.png", name), img, pixel.FromVec4(out4)); err != nil {
		return err
	}
	return save(fmt.Sprintf("vec3_%s.png", name), img, pixel.FromVec3(out3, 255))
}

func save(file string, like *pixel.Image, pix []pixel.ARGB) error {
	out, err := pixel.NewImage(like.Width, like.Height, pix)
	if err != nil {
		return err
	}
	return out.SavePNG(filepath.Join(*outDir, file))
}
