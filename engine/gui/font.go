package gui

import (
	"fmt"
	"image"
	"image/draw"

	"github.com/fzipp/bmfont"
	"github.com/google/uuid"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/cubeworks/prism/engine/core"
)

// Glyph describes one rasterized character in the atlas. Coordinates are
// logical pixels, UVs are normalized atlas coordinates.
type Glyph struct {
	U0, V0, U1, V1   float32
	W, H             float32
	OffsetX, OffsetY float32
	Advance          float32
}

// Font is a CPU-side glyph atlas. The backend uploads Pixels once and the
// draw list references glyphs by UV from then on.
type Font struct {
	Texture    TextureID
	Width      uint32
	Height     uint32
	Pixels     []byte // RGBA, tightly packed
	LineHeight float32

	glyphs map[rune]Glyph
	// whiteX/whiteY point at a solid white texel used for untextured fills.
	whiteX, whiteY float32
}

func (f *Font) Glyph(r rune) (Glyph, bool) {
	g, ok := f.glyphs[r]
	return g, ok
}

func (f *Font) SpaceAdvance() float32 {
	if g, ok := f.glyphs[' ']; ok {
		return g.Advance
	}
	return f.LineHeight / 2
}

// WhiteUV returns the atlas coordinates of a guaranteed-opaque texel.
func (f *Font) WhiteUV() (float32, float32) {
	return f.whiteX, f.whiteY
}

// TextWidth measures a single line in logical pixels.
func (f *Font) TextWidth(text string) float32 {
	var w float32
	for _, r := range text {
		if g, ok := f.glyphs[r]; ok {
			w += g.Advance
		} else {
			w += f.SpaceAdvance()
		}
	}
	return w
}

// LoadFont reads a BMFont descriptor and its first page sheet. Falls back
// to the builtin bitmap face when the descriptor is missing so the overlay
// always has something to draw with.
func LoadFont(path string) *Font {
	if path != "" {
		f, err := loadBMFont(path)
		if err == nil {
			return f
		}
		core.LogWarn("failed to load font %s, using builtin face: %s", path, err)
	}
	return builtinFont()
}

func loadBMFont(path string) (*Font, error) {
	bf, err := bmfont.Load(path)
	if err != nil {
		return nil, err
	}
	if len(bf.PageSheets) == 0 {
		return nil, fmt.Errorf("font %s has no page sheets", path)
	}
	if len(bf.PageSheets) > 1 {
		core.LogWarn("font %s has %d pages, only the first is used", path, len(bf.PageSheets))
	}

	sheet := bf.PageSheets[0]
	bounds := sheet.Bounds()
	rgba := image.NewRGBA(bounds)
	draw.Draw(rgba, bounds, sheet, bounds.Min, draw.Src)

	w := uint32(bounds.Dx())
	h := uint32(bounds.Dy())
	f := &Font{
		Texture:    uuid.New(),
		Width:      w,
		Height:     h,
		Pixels:     rgba.Pix,
		LineHeight: float32(bf.Descriptor.Common.LineHeight),
		glyphs:     make(map[rune]Glyph, len(bf.Descriptor.Chars)),
	}
	for _, c := range bf.Descriptor.Chars {
		f.glyphs[c.ID] = Glyph{
			U0:      float32(c.X) / float32(w),
			V0:      float32(c.Y) / float32(h),
			U1:      float32(c.X+c.Width) / float32(w),
			V1:      float32(c.Y+c.Height) / float32(h),
			W:       float32(c.Width),
			H:       float32(c.Height),
			OffsetX: float32(c.XOffset),
			OffsetY: float32(c.YOffset),
			Advance: float32(c.XAdvance),
		}
	}
	stampWhite(f, rgba)
	return f, nil
}

// builtinFont rasterizes the 7x13 builtin face into a small atlas covering
// printable ASCII.
func builtinFont() *Font {
	face := basicfont.Face7x13
	const first, last = rune(32), rune(126)
	const cols = 16
	rows := (int(last-first) + cols) / cols

	cellW := face.Advance + 1
	cellH := face.Height + 1
	atlasW := cols * cellW
	atlasH := rows*cellH + 2 // extra row for the white texel

	rgba := image.NewRGBA(image.Rect(0, 0, atlasW, atlasH))
	drawer := font.Drawer{
		Dst:  rgba,
		Src:  image.White,
		Face: face,
	}

	f := &Font{
		Texture:    uuid.New(),
		Width:      uint32(atlasW),
		Height:     uint32(atlasH),
		LineHeight: float32(face.Height),
		glyphs:     make(map[rune]Glyph, int(last-first)+1),
	}
	for r := first; r <= last; r++ {
		i := int(r - first)
		cx := (i % cols) * cellW
		cy := (i / cols) * cellH
		drawer.Dot = fixed.P(cx, cy+face.Ascent)
		drawer.DrawString(string(r))
		f.glyphs[r] = Glyph{
			U0:      float32(cx) / float32(atlasW),
			V0:      float32(cy) / float32(atlasH),
			U1:      float32(cx+face.Advance) / float32(atlasW),
			V1:      float32(cy+face.Height) / float32(atlasH),
			W:       float32(face.Advance),
			H:       float32(face.Height),
			Advance: float32(face.Advance),
		}
	}
	f.Pixels = rgba.Pix
	stampWhite(f, rgba)
	return f
}

// stampWhite writes a solid texel in the bottom-right corner so filled
// rectangles can share the glyph pipeline.
func stampWhite(f *Font, rgba *image.RGBA) {
	b := rgba.Bounds()
	x := b.Max.X - 1
	y := b.Max.Y - 1
	i := rgba.PixOffset(x, y)
	rgba.Pix[i+0] = 0xff
	rgba.Pix[i+1] = 0xff
	rgba.Pix[i+2] = 0xff
	rgba.Pix[i+3] = 0xff
	f.whiteX = (float32(x) + 0.5) / float32(f.Width)
	f.whiteY = (float32(y) + 0.5) / float32(f.Height)
}
