// Package console rasterizes text into the linear framebuffer the boot
// protocol shim hands off in boot.Info, satisfying the framebuffer writer
// contract kfmt's Printf expects as an output sink.
//
// The teacher's device/video/console package drives this through a Device
// interface with separate VGA text-mode and VESA pixel-mode backends
// selected by a hardware probe. sharkos only ever boots behind a linear
// framebuffer, so this package keeps the pixel-mode glyph blit and drops
// the Device abstraction, the probe and the VGA text-mode backend.
package console

import (
	"sharkos/kernel/boot"
	"sync"
)

const (
	glyphWidth  = 8
	glyphHeight = 8

	bytesPerPixel = 4
)

// Console rasterizes bytes written to it into a framebuffer, wrapping at
// the right edge and scrolling the framebuffer up a glyph row at a time
// once the bottom is reached.
type Console struct {
	mu sync.Mutex

	fb boot.Framebuffer

	cols, rows int
	col, row   int

	fg, bg uint32
}

// New wraps fb for text output. fg and bg are 0xRRGGBB colors; the alpha
// byte of each pixel is always written as 0xff.
func New(fb boot.Framebuffer, fg, bg uint32) *Console {
	return &Console{
		fb:   fb,
		cols: int(fb.Width) / glyphWidth,
		rows: int(fb.Height) / glyphHeight,
		fg:   fg | 0xff000000,
		bg:   bg | 0xff000000,
	}
}

// Write implements io.Writer, interpreting p as UTF-8 bytes. Non-ASCII
// runes and characters outside the built-in glyph table are rendered as a
// solid block rather than dropped, so no byte written is ever lost.
func (c *Console) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, b := range p {
		c.writeByte(b)
	}
	return len(p), nil
}

func (c *Console) writeByte(b byte) {
	switch b {
	case '\n':
		c.col = 0
		c.advanceRow()
		return
	case '\r':
		c.col = 0
		return
	case '\t':
		for i := 0; i < 4; i++ {
			c.writeByte(' ')
		}
		return
	}

	if c.col >= c.cols {
		c.col = 0
		c.advanceRow()
	}
	c.blit(b)
	c.col++
}

func (c *Console) advanceRow() {
	c.row++
	if c.row >= c.rows {
		c.scroll()
		c.row = c.rows - 1
	}
}

// blit draws glyph b at the current cursor cell.
func (c *Console) blit(b byte) {
	glyph, ok := glyphs[b]
	if !ok {
		glyph = glyphBlock
	}

	originX := c.col * glyphWidth
	originY := c.row * glyphHeight
	stride := int(c.fb.Stride)

	for y := 0; y < glyphHeight; y++ {
		row := glyph[y]
		for x := 0; x < glyphWidth; x++ {
			set := row&(1<<(glyphWidth-1-uint(x))) != 0
			color := c.bg
			if set {
				color = c.fg
			}
			c.putPixel(originX+x, originY+y, stride, color)
		}
	}
}

func (c *Console) putPixel(x, y, stride int, color uint32) {
	off := y*stride + x*bytesPerPixel
	if off < 0 || off+bytesPerPixel > len(c.fb.Buffer) {
		return
	}
	buf := c.fb.Buffer[off : off+bytesPerPixel]
	buf[0] = byte(color)
	buf[1] = byte(color >> 8)
	buf[2] = byte(color >> 16)
	buf[3] = byte(color >> 24)
}

// scroll shifts the framebuffer contents up by one glyph row and clears
// the row left behind.
func (c *Console) scroll() {
	stride := int(c.fb.Stride)
	rowBytes := glyphHeight * stride
	total := len(c.fb.Buffer)

	copy(c.fb.Buffer, c.fb.Buffer[rowBytes:total])
	for i := total - rowBytes; i < total; i++ {
		c.fb.Buffer[i] = 0
	}
}
