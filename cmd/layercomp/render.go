package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	"image/png"
	"log"
	"os"
	"strconv"
	"strings"

	"golang.org/x/image/draw"
	"golang.org/x/sync/errgroup"

	"github.com/gogpu/compositor"
	"github.com/gogpu/compositor/internal/config"
	"github.com/gogpu/compositor/render"
)

// layerArg is a parsed layer argument: path[@x,y[,w,h]].
type layerArg struct {
	Path    string
	Offset  compositor.Vec2
	Size    compositor.Vec2
	HasSize bool
}

func parseLayerArg(arg string) (layerArg, error) {
	path, placement, found := strings.Cut(arg, "@")
	if path == "" {
		return layerArg{}, fmt.Errorf("layer %q: empty path", arg)
	}
	la := layerArg{Path: path}
	if !found {
		return la, nil
	}
	fields := strings.Split(placement, ",")
	if len(fields) != 2 && len(fields) != 4 {
		return layerArg{}, fmt.Errorf("layer %q: want @x,y or @x,y,w,h", arg)
	}
	vals := make([]float32, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 32)
		if err != nil {
			return layerArg{}, fmt.Errorf("layer %q: %w", arg, err)
		}
		vals[i] = float32(v)
	}
	la.Offset = compositor.Vec2{X: vals[0], Y: vals[1]}
	if len(vals) == 4 {
		la.Size = compositor.Vec2{X: vals[2], Y: vals[3]}
		la.HasSize = true
	}
	return la, nil
}

// loadLayers decodes the layer PNGs concurrently. Layers keep argument
// order; a layer without an explicit size takes its image size.
func loadLayers(ctx context.Context, layerArgs []layerArg) ([]compositor.Layer, error) {
	layers := make([]compositor.Layer, len(layerArgs))
	g, ctx := errgroup.WithContext(ctx)
	for i, la := range layerArgs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			img, err := decodePNG(la.Path)
			if err != nil {
				return err
			}
			size := la.Size
			if !la.HasSize {
				b := img.Bounds()
				size = compositor.Vec2{X: float32(b.Dx()), Y: float32(b.Dy())}
			}
			layers[i] = compositor.Layer{
				ID:      compositor.LayerID(i + 1), //nolint:gosec // argument index
				Offset:  la.Offset,
				Size:    size,
				Image:   img,
				Version: 1,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return layers, nil
}

func decodePNG(path string) (*image.NRGBA, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open layer: %w", err)
	}
	defer f.Close()
	src, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if nrgba, ok := src.(*image.NRGBA); ok {
		return nrgba, nil
	}
	b := src.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return dst, nil
}

func runRender(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("render", flag.ExitOnError)
	var (
		configPath = fs.String("config", "", "TOML configuration file")
		width      = fs.Int("width", 0, "output width (default from config)")
		height     = fs.Int("height", 0, "output height (default from config)")
		out        = fs.String("out", "out.png", "output PNG file")
		useGPU     = fs.Bool("gpu", false, "composite on the GPU when available")
		verbose    = fs.Bool("v", false, "verbose logging")
	)
	_ = fs.Parse(args)
	setVerbose(*verbose)

	cfg, err := config.LoadFile(*configPath)
	if err != nil {
		return err
	}
	opts, err := cfg.CompositorOptions()
	if err != nil {
		return err
	}
	vp := cfg.ViewportSize()
	if *width > 0 {
		vp.Width = float32(*width)
	}
	if *height > 0 {
		vp.Height = float32(*height)
	}
	if !vp.Valid() {
		return fmt.Errorf("render: %w: %vx%v", compositor.ErrInvalidViewport, vp.Width, vp.Height)
	}

	layerArgs := make([]layerArg, 0, fs.NArg())
	for _, arg := range fs.Args() {
		la, err := parseLayerArg(arg)
		if err != nil {
			return err
		}
		layerArgs = append(layerArgs, la)
	}
	layers, err := loadLayers(ctx, layerArgs)
	if err != nil {
		return err
	}

	c := compositor.New(compositor.WithOptions(opts))
	defer c.Close()

	w, h := vp.PixelSize()
	img, err := composite(c, vp, layers, w, h, *useGPU)
	if err != nil {
		return err
	}
	if err := writePNG(*out, img); err != nil {
		return err
	}
	log.Printf("wrote %s (%dx%d, %d layers)", *out, w, h, len(layers))
	return nil
}

// composite renders on the GPU when requested and available, otherwise into
// a CPU pixmap.
func composite(c *compositor.Compositor, vp compositor.Viewport, layers []compositor.Layer, w, h int, useGPU bool) (image.Image, error) {
	if useGPU {
		img, err := compositeGPU(c, vp, layers, w, h)
		if err == nil {
			return img, nil
		}
		if !errors.Is(err, compositor.ErrFallbackToCPU) {
			return nil, err
		}
		log.Printf("GPU not available, compositing on the CPU")
	}
	target := render.NewPixmapTarget(w, h)
	if err := c.Composite(target, vp, layers); err != nil {
		return nil, err
	}
	return target.Image(), nil
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}
