package display

import (
	"fmt"
	"image/color"
	"strings"

	"tinygo.org/x/drivers"
	"tinygo.org/x/tinyfont"
	"tinygo.org/x/tinyfont/freemono"
	"tinygo.org/x/tinyfont/proggy"
)

// Font is a tinyfont face plus the metrics the console needs to lay out lines.
type Font struct {
	Face tinyfont.Fonter
	// Height is the line advance at text size 1.
	Height int16
	// Ascent is the baseline offset from the top of a line at text size 1.
	Ascent int16
}

// DefaultFont is a small proportional face that stays readable when scaled.
var DefaultFont = Font{Face: &proggy.TinySZ8pt7b, Height: 13, Ascent: 10}

// MonoFont is a larger fixed-width face for panels with room to spare.
var MonoFont = Font{Face: &freemono.Regular9pt7b, Height: 18, Ascent: 13}

var fonts = map[string]Font{
	"proggy": DefaultFont,
	"mono":   MonoFont,
}

// ParseFont looks a face up by name. The empty name is DefaultFont.
func ParseFont(name string) (Font, error) {
	if name == "" {
		return DefaultFont, nil
	}
	f, ok := fonts[name]
	if !ok {
		return Font{}, fmt.Errorf("unknown font %q (valid: proggy, mono)", name)
	}
	return f, nil
}

// Console draws lines of text on a drivers.Displayer the way Arduino GFX
// does: Println draws at the cursor then moves it to the start of the next
// line, Printf leaves the cursor after the text.
type Console struct {
	dev  drivers.Displayer
	font Font

	x, y   int16
	fg, bg color.RGBA
	opaque bool
	size   int16
}

var _ Display = (*Console)(nil)

// ConsoleOption configures a Console.
type ConsoleOption func(*Console)

// WithFont replaces DefaultFont.
func WithFont(f Font) ConsoleOption {
	return func(c *Console) { c.font = f }
}

// NewConsole wraps dev. Text starts white, size 1, at the top-left corner.
func NewConsole(dev drivers.Displayer, opts ...ConsoleOption) *Console {
	c := &Console{
		dev:  dev,
		font: DefaultFont,
		fg:   White,
		size: 1,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Console) Begin() bool {
	w, h := c.dev.Size()
	return w > 0 && h > 0
}

func (c *Console) Width() int16 {
	w, _ := c.dev.Size()
	return w
}

func (c *Console) Height() int16 {
	_, h := c.dev.Size()
	return h
}

// FillScreen paints the whole panel. The cursor is not moved.
func (c *Console) FillScreen(col color.RGBA) {
	w, h := c.dev.Size()
	c.fillRect(0, 0, w, h, col)
	_ = c.dev.Display()
}

func (c *Console) SetCursor(x, y int16) {
	c.x, c.y = x, y
}

// Cursor returns the position the next text will be drawn at.
func (c *Console) Cursor() (x, y int16) { return c.x, c.y }

func (c *Console) SetTextColor(fg color.RGBA) {
	c.fg = fg
	c.opaque = false
}

func (c *Console) SetTextColors(fg, bg color.RGBA) {
	c.fg, c.bg = fg, bg
	c.opaque = true
}

func (c *Console) SetTextSize(scale uint8) {
	if scale == 0 {
		scale = 1
	}
	c.size = int16(scale)
}

// LineHeight is the vertical advance of one line at the current text size.
func (c *Console) LineHeight() int16 { return c.font.Height * c.size }

func (c *Console) Println(s string) {
	c.print(s)
	c.newline()
	_ = c.dev.Display()
}

func (c *Console) Printf(format string, args ...any) {
	c.print(fmt.Sprintf(format, args...))
	_ = c.dev.Display()
}

func (c *Console) print(s string) {
	for i, line := range strings.Split(s, "\n") {
		if i > 0 {
			c.newline()
		}
		c.drawLine(line)
	}
}

func (c *Console) newline() {
	c.x = 0
	c.y += c.LineHeight()
}

func (c *Console) drawLine(line string) {
	if line == "" {
		return
	}
	_, outbox := tinyfont.LineWidth(c.font.Face, line)
	width := int16(outbox) * c.size
	if c.opaque {
		c.fillRect(c.x, c.y, width, c.LineHeight(), c.bg)
	}

	var target drivers.Displayer = c.dev
	if c.size > 1 {
		target = &scaled{dev: c.dev, scale: c.size, ox: c.x, oy: c.y}
	}
	tinyfont.WriteLine(target, c.font.Face, c.x, c.y+c.font.Ascent, line, c.fg)
	c.x += width
}

func (c *Console) fillRect(x, y, w, h int16, col color.RGBA) {
	switch dev := c.dev.(type) {
	case interface {
		FillRectangle(x, y, width, height int16, c color.RGBA) error
	}:
		_ = dev.FillRectangle(x, y, w, h, col)
	default:
		for py := y; py < y+h; py++ {
			for px := x; px < x+w; px++ {
				c.dev.SetPixel(px, py, col)
			}
		}
	}
}

// scaled magnifies everything drawn relative to (ox, oy) by scale.
type scaled struct {
	dev    drivers.Displayer
	scale  int16
	ox, oy int16
}

func (s *scaled) Size() (x, y int16) { return s.dev.Size() }

func (s *scaled) SetPixel(x, y int16, c color.RGBA) {
	px := s.ox + (x-s.ox)*s.scale
	py := s.oy + (y-s.oy)*s.scale
	for dy := int16(0); dy < s.scale; dy++ {
		for dx := int16(0); dx < s.scale; dx++ {
			s.dev.SetPixel(px+dx, py+dy, c)
		}
	}
}

func (s *scaled) Display() error { return nil }
