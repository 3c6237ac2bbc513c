package gui

import "github.com/cubeworks/prism/engine/m32"

// Layout constants in logical pixels.
const (
	sidebarWidth = 300
	panelPadding = 8
	textPadding  = 12
	lineSpacing  = 4
)

var (
	colWindowBG = PackColor(0.13, 0.13, 0.15, 1.0)
	colPanelBG  = PackColor(0.07, 0.07, 0.08, 1.0)
	colText     = PackColor(0.92, 0.92, 0.92, 1.0)
	colHeading  = PackColor(0.55, 0.75, 1.00, 1.0)
)

// Context lays out the single-window UI: a viewport panel filling most of
// the display that shows the offscreen scene as a texture, and an info
// sidebar. Geometry is rebuilt every frame into a DrawList.
type Context struct {
	font *Font
	list DrawList

	displayW float32
	displayH float32
	scaleX   float32
	scaleY   float32

	viewportTexture TextureID
	viewportW       float32 // logical size of the image region
	viewportH       float32

	infoLines []string
}

func NewContext(font *Font) *Context {
	return &Context{font: font, scaleX: 1, scaleY: 1}
}

func (c *Context) Font() *Font { return c.font }

// Begin starts a frame. Display size is in pixels; scale converts logical
// units to pixels.
func (c *Context) Begin(displayW, displayH uint32, scaleX, scaleY float32) {
	if scaleX <= 0 {
		scaleX = 1
	}
	if scaleY <= 0 {
		scaleY = 1
	}
	c.displayW = float32(displayW) / scaleX
	c.displayH = float32(displayH) / scaleY
	c.scaleX = scaleX
	c.scaleY = scaleY
	c.infoLines = c.infoLines[:0]
	c.list.Reset()

	// Layout is fixed by the display size, so the panel region is known as
	// soon as the frame begins. Sidebar on the right, panel takes the rest.
	panelW := m32.Max(c.displayW-sidebarWidth, 1)
	c.viewportW = m32.Max(panelW-2*panelPadding, 1)
	c.viewportH = m32.Max(c.displayH-2*panelPadding, 1)
}

// SetViewportTexture points the panel at the current offscreen target. Must
// be called again whenever the target is recreated.
func (c *Context) SetViewportTexture(id TextureID) {
	c.viewportTexture = id
}

// Info appends one line to the sidebar.
func (c *Context) Info(line string) {
	c.infoLines = append(c.infoLines, line)
}

// DesiredPanelSize returns the pixel size the offscreen target should have
// so the scene renders at native resolution for the panel's image region.
// Never reports a zero dimension.
func (c *Context) DesiredPanelSize() (uint32, uint32) {
	w := m32.Max(c.viewportW*c.scaleX, 1)
	h := m32.Max(c.viewportH*c.scaleY, 1)
	return uint32(w + 0.5), uint32(h + 0.5)
}

// BuildFrame lays out the UI and returns the finished draw list. The
// returned list is valid until the next Begin.
func (c *Context) BuildFrame() *DrawList {
	clip := [4]float32{0, 0, c.displayW, c.displayH}
	panelW := m32.Max(c.displayW-sidebarWidth, 1)

	c.list.AddRectFilled(c.font, 0, 0, c.displayW, c.displayH, colWindowBG, clip)
	c.list.AddRectFilled(c.font, panelPadding-1, panelPadding-1, c.viewportW+2, c.viewportH+2, colPanelBG, clip)

	if c.viewportTexture != (TextureID{}) {
		panelClip := [4]float32{panelPadding, panelPadding, c.viewportW, c.viewportH}
		c.list.AddImage(c.viewportTexture, panelPadding, panelPadding, c.viewportW, c.viewportH, panelClip)
	}

	x := panelW + textPadding
	y := float32(textPadding)
	sideClip := [4]float32{panelW, 0, sidebarWidth, c.displayH}
	c.list.AddText(c.font, x, y, "Prism", colHeading, sideClip)
	y += c.font.LineHeight + 2*lineSpacing
	for _, line := range c.infoLines {
		c.list.AddText(c.font, x, y, line, colText, sideClip)
		y += c.font.LineHeight + lineSpacing
	}

	return &c.list
}

// Scale reports the logical-to-pixel factors used this frame. The backend
// multiplies vertex positions and clip rects by these when recording.
func (c *Context) Scale() (float32, float32) {
	return c.scaleX, c.scaleY
}
