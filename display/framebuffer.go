package display

import (
	"image"
	"image/color"
	"sync"

	"tinygo.org/x/drivers"
)

// Framebuffer is an in-memory RGB565 panel. It satisfies drivers.Displayer so
// a Console can draw on it, and is safe to snapshot from another goroutine
// while the owner draws.
type Framebuffer struct {
	mu     sync.Mutex
	width  int16
	height int16
	buf    []byte // little-endian RGB565, row-major

	presented uint64
}

var _ drivers.Displayer = (*Framebuffer)(nil)

// NewFramebuffer allocates a black framebuffer of the given size.
func NewFramebuffer(width, height int16) *Framebuffer {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &Framebuffer{
		width:  width,
		height: height,
		buf:    make([]byte, int(width)*int(height)*2),
	}
}

func (f *Framebuffer) Size() (x, y int16) { return f.width, f.height }

func (f *Framebuffer) SetPixel(x, y int16, c color.RGBA) {
	if x < 0 || y < 0 || x >= f.width || y >= f.height {
		return
	}
	p := RGB565(c)
	off := (int(y)*int(f.width) + int(x)) * 2

	f.mu.Lock()
	f.buf[off] = byte(p)
	f.buf[off+1] = byte(p >> 8)
	f.mu.Unlock()
}

// Display counts frames; the buffer itself is always current.
func (f *Framebuffer) Display() error {
	f.mu.Lock()
	f.presented++
	f.mu.Unlock()
	return nil
}

// FillRectangle paints the intersection of the rectangle with the panel.
func (f *Framebuffer) FillRectangle(x, y, width, height int16, c color.RGBA) error {
	x0 := clamp(int(x), 0, int(f.width))
	y0 := clamp(int(y), 0, int(f.height))
	x1 := clamp(int(x)+int(width), 0, int(f.width))
	y1 := clamp(int(y)+int(height), 0, int(f.height))
	if x0 >= x1 || y0 >= y1 {
		return nil
	}

	p := RGB565(c)
	lo, hi := byte(p), byte(p>>8)

	f.mu.Lock()
	defer f.mu.Unlock()
	stride := int(f.width) * 2
	for py := y0; py < y1; py++ {
		row := py * stride
		for px := x0; px < x1; px++ {
			f.buf[row+px*2] = lo
			f.buf[row+px*2+1] = hi
		}
	}
	return nil
}

func (f *Framebuffer) FillScreen(c color.RGBA) {
	_ = f.FillRectangle(0, 0, f.width, f.height, c)
}

// At returns the color stored at (x, y), or transparent black off-panel.
func (f *Framebuffer) At(x, y int16) color.RGBA {
	if x < 0 || y < 0 || x >= f.width || y >= f.height {
		return color.RGBA{}
	}
	off := (int(y)*int(f.width) + int(x)) * 2

	f.mu.Lock()
	defer f.mu.Unlock()
	return FromRGB565(uint16(f.buf[off]) | uint16(f.buf[off+1])<<8)
}

// Frames returns how many times Display has been called.
func (f *Framebuffer) Frames() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.presented
}

// SnapshotRGBA converts the panel into dst, reallocating it when the size
// does not match, and returns the image written.
func (f *Framebuffer) SnapshotRGBA(dst *image.RGBA) *image.RGBA {
	w, h := int(f.width), int(f.height)
	if dst == nil || dst.Bounds().Dx() != w || dst.Bounds().Dy() != h {
		dst = image.NewRGBA(image.Rect(0, 0, w, h))
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for i := 0; i+1 < len(f.buf); i += 2 {
		c := FromRGB565(uint16(f.buf[i]) | uint16(f.buf[i+1])<<8)
		j := i * 2
		dst.Pix[j+0] = c.R
		dst.Pix[j+1] = c.G
		dst.Pix[j+2] = c.B
		dst.Pix[j+3] = 0xff
	}
	return dst
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
