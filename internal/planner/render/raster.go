package render

import (
	"fmt"
	"image"
	"io"
	"math"

	"github.com/gogpu/gg"
	xdraw "golang.org/x/image/draw"

	"floorplan/internal/planner/models"
)

// ============================================================
// PNG renderer
// ============================================================

type RasterOptions struct {
	Width      int
	Height     int
	Padding    float64
	Background string
	GridStep   float64
	GridColor  string
}

func DefaultRasterOptions() RasterOptions {
	return RasterOptions{
		Width:      1024,
		Height:     768,
		Padding:    24,
		Background: "#FFFFFF",
		GridStep:   20,
		GridColor:  "#EEEEEE",
	}
}

// view отображает координаты канвы в пиксели превью.
type view struct {
	scale  float64
	offX   float64
	offY   float64
	width  int
	height int
}

func (v view) point(p models.Point) (float64, float64) {
	return p.X*v.scale + v.offX, p.Y*v.scale + v.offY
}

// PNG рисует объекты сцены в PNG, вписывая их в Width×Height.
func PNG(w io.Writer, objects []*models.SceneObject, opts RasterOptions) error {
	if opts.Width <= 0 || opts.Height <= 0 {
		return fmt.Errorf("render png: invalid size %dx%d", opts.Width, opts.Height)
	}
	minX, minY, maxX, maxY, ok := sceneBounds(objects)
	if !ok {
		return ErrEmptyScene
	}

	v := fit(minX, minY, maxX, maxY, opts)
	dc := gg.NewContext(opts.Width, opts.Height)
	defer dc.Close()

	dc.SetHexColor(opts.Background)
	dc.DrawRectangle(0, 0, float64(opts.Width), float64(opts.Height))
	if err := dc.Fill(); err != nil {
		return fmt.Errorf("render background: %w", err)
	}
	if err := drawGrid(dc, v, minX, minY, opts); err != nil {
		return err
	}

	for _, o := range objects {
		if o.Transient || o.Name == models.NameGrid {
			continue
		}
		var err error
		switch {
		case o.Name == models.NameRoom:
			err = drawRoom(dc, v, o)
		case o.IsWall():
			err = drawPolygon(dc, v, objectOutline(o), colorOr(o.Fill, "#3C3C3C"))
		default:
			err = drawPolygon(dc, v, objectOutline(o), colorOr(o.Fill, "#2CA02C"))
		}
		if err != nil {
			return fmt.Errorf("render %s: %w", o.ID, err)
		}
	}

	if err := dc.EncodePNG(w); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

func fit(minX, minY, maxX, maxY float64, opts RasterOptions) view {
	availW := float64(opts.Width) - 2*opts.Padding
	availH := float64(opts.Height) - 2*opts.Padding
	spanX := math.Max(maxX-minX, 1)
	spanY := math.Max(maxY-minY, 1)
	s := math.Min(availW/spanX, availH/spanY)
	if s <= 0 || math.IsInf(s, 0) {
		s = 1
	}
	return view{
		scale:  s,
		offX:   opts.Padding - minX*s + (availW-spanX*s)/2,
		offY:   opts.Padding - minY*s + (availH-spanY*s)/2,
		width:  opts.Width,
		height: opts.Height,
	}
}

func drawGrid(dc *gg.Context, v view, minX, minY float64, opts RasterOptions) error {
	step := opts.GridStep * v.scale
	if step < 4 {
		return nil
	}
	dc.SetHexColor(opts.GridColor)
	dc.SetLineWidth(1)

	startX, _ := v.point(models.Point{X: math.Floor(minX/opts.GridStep) * opts.GridStep})
	for x := math.Mod(startX, step); x < float64(v.width); x += step {
		dc.DrawLine(x, 0, x, float64(v.height))
	}
	_, startY := v.point(models.Point{Y: math.Floor(minY/opts.GridStep) * opts.GridStep})
	for y := math.Mod(startY, step); y < float64(v.height); y += step {
		dc.DrawLine(0, y, float64(v.width), y)
	}
	if err := dc.Stroke(); err != nil {
		return fmt.Errorf("render grid: %w", err)
	}
	return nil
}

func drawRoom(dc *gg.Context, v view, o *models.SceneObject) error {
	if len(o.Points) < 3 {
		return nil
	}
	p := o.Pattern
	if p == nil || p.Image == nil || p.Flat {
		fill := colorOr(o.Fill, "#F5F5F5")
		if p != nil && p.Flat {
			fill = colorOr(p.FlatColor, fill)
		}
		return drawPolygon(dc, v, o.Points, fill)
	}

	tile := scaleTile(p.Image, p.ScaleX*v.scale, p.ScaleY*v.scale)
	buf := gg.ImageBufFromImage(tile)
	b := tile.Bounds()
	dc.SetFillPattern(dc.CreateImagePattern(buf, 0, 0, b.Dx(), b.Dy()))
	tracePolygon(dc, v, o.Points)
	return dc.Fill()
}

func drawPolygon(dc *gg.Context, v view, points []models.Point, hex string) error {
	if len(points) < 3 {
		return nil
	}
	dc.SetHexColor(hex)
	tracePolygon(dc, v, points)
	return dc.Fill()
}

func tracePolygon(dc *gg.Context, v view, points []models.Point) {
	x, y := v.point(points[0])
	dc.MoveTo(x, y)
	for _, p := range points[1:] {
		x, y = v.point(p)
		dc.LineTo(x, y)
	}
	dc.ClosePath()
}

// maxTileSide ограничивает сторону плитки паттерна в пикселях превью.
const maxTileSide = 2048

// scaleTile масштабирует картинку паттерна под масштаб превью.
func scaleTile(src image.Image, sx, sy float64) image.Image {
	b := src.Bounds()
	w := tileSide(float64(b.Dx()) * sx)
	h := tileSide(float64(b.Dy()) * sy)
	if w == b.Dx() && h == b.Dy() {
		return src
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, b, xdraw.Src, nil)
	return dst
}

func tileSide(v float64) int {
	switch {
	case math.IsNaN(v) || v < 1:
		return 1
	case v > maxTileSide:
		return maxTileSide
	}
	return int(math.Round(v))
}

func colorOr(hex, def string) string {
	if hex == "" {
		return def
	}
	return hex
}
