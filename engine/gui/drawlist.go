package gui

import "github.com/google/uuid"

// TextureID identifies a texture registered with the rendering backend. The
// GUI never touches API handles, it only routes opaque ids into draw
// commands.
type TextureID = uuid.UUID

// DrawVertex is one GUI vertex in logical pixel space. Color is packed
// RGBA, one byte per channel, red in the lowest byte.
type DrawVertex struct {
	PosX, PosY float32
	U, V       float32
	Color      uint32
}

// DrawCommand is a contiguous run of indices that share a texture and clip
// rectangle.
type DrawCommand struct {
	Texture     TextureID
	ClipX       float32
	ClipY       float32
	ClipW       float32
	ClipH       float32
	IndexOffset uint32
	IndexCount  uint32
}

// DrawList accumulates one frame of GUI geometry. It is rebuilt from
// scratch every tick and handed to the backend for upload.
type DrawList struct {
	Vertices []DrawVertex
	Indices  []uint32
	Commands []DrawCommand
}

func (dl *DrawList) Reset() {
	dl.Vertices = dl.Vertices[:0]
	dl.Indices = dl.Indices[:0]
	dl.Commands = dl.Commands[:0]
}

// PackColor packs normalized RGBA into the vertex color format.
func PackColor(r, g, b, a float32) uint32 {
	c := func(v float32) uint32 {
		if v < 0 {
			v = 0
		}
		if v > 1 {
			v = 1
		}
		return uint32(v*255 + 0.5)
	}
	return c(r) | c(g)<<8 | c(b)<<16 | c(a)<<24
}

// addQuad appends a textured quad as two triangles.
func (dl *DrawList) addQuad(x0, y0, x1, y1, u0, v0, u1, v1 float32, color uint32) {
	base := uint32(len(dl.Vertices))
	dl.Vertices = append(dl.Vertices,
		DrawVertex{x0, y0, u0, v0, color},
		DrawVertex{x1, y0, u1, v0, color},
		DrawVertex{x1, y1, u1, v1, color},
		DrawVertex{x0, y1, u0, v1, color},
	)
	dl.Indices = append(dl.Indices, base, base+1, base+2, base, base+2, base+3)
}

// command returns the open command for the given texture and clip, starting
// a new one when either differs from the current tail.
func (dl *DrawList) command(tex TextureID, cx, cy, cw, ch float32) *DrawCommand {
	if n := len(dl.Commands); n > 0 {
		tail := &dl.Commands[n-1]
		if tail.Texture == tex && tail.ClipX == cx && tail.ClipY == cy && tail.ClipW == cw && tail.ClipH == ch {
			return tail
		}
	}
	dl.Commands = append(dl.Commands, DrawCommand{
		Texture:     tex,
		ClipX:       cx,
		ClipY:       cy,
		ClipW:       cw,
		ClipH:       ch,
		IndexOffset: uint32(len(dl.Indices)),
	})
	return &dl.Commands[len(dl.Commands)-1]
}

// AddRectFilled draws a solid rectangle with the font atlas' white texel.
func (dl *DrawList) AddRectFilled(font *Font, x, y, w, h float32, color uint32, clip [4]float32) {
	cmd := dl.command(font.Texture, clip[0], clip[1], clip[2], clip[3])
	u, v := font.WhiteUV()
	dl.addQuad(x, y, x+w, y+h, u, v, u, v, color)
	cmd.IndexCount += 6
}

// AddImage draws a textured rectangle covering the full texture.
func (dl *DrawList) AddImage(tex TextureID, x, y, w, h float32, clip [4]float32) {
	cmd := dl.command(tex, clip[0], clip[1], clip[2], clip[3])
	dl.addQuad(x, y, x+w, y+h, 0, 0, 1, 1, PackColor(1, 1, 1, 1))
	cmd.IndexCount += 6
}

// AddText draws a single line of text at the baseline-less top-left origin.
func (dl *DrawList) AddText(font *Font, x, y float32, text string, color uint32, clip [4]float32) {
	cmd := dl.command(font.Texture, clip[0], clip[1], clip[2], clip[3])
	pen := x
	for _, r := range text {
		g, ok := font.Glyph(r)
		if !ok {
			pen += font.SpaceAdvance()
			continue
		}
		if g.W > 0 && g.H > 0 {
			x0 := pen + g.OffsetX
			y0 := y + g.OffsetY
			dl.addQuad(x0, y0, x0+g.W, y0+g.H, g.U0, g.V0, g.U1, g.V1, color)
			cmd.IndexCount += 6
		}
		pen += g.Advance
	}
}
