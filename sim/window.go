//go:build !tinygo && cgo

package sim

import (
	"context"
	"image"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/harveysanders/glucopanel/display"
)

// RunWindow shows fb in a desktop window until the window closes or ctx is
// done. A left click or a touch on the window calls cfg.OnTouch. It must be
// called from the main goroutine.
func RunWindow(ctx context.Context, fb *display.Framebuffer, cfg WindowConfig) error {
	cfg.setDefaults()
	w, h := fb.Size()

	g := &panelGame{ctx: ctx, fb: fb, onTouch: cfg.OnTouch}
	ebiten.SetWindowTitle(cfg.Title)
	ebiten.SetWindowSize(int(w)*cfg.Scale, int(h)*cfg.Scale)
	ebiten.SetTPS(30)
	return ebiten.RunGame(g)
}

type panelGame struct {
	ctx      context.Context
	fb       *display.Framebuffer
	onTouch  func()
	img      *image.RGBA
	panelImg *ebiten.Image
	touchIDs []ebiten.TouchID
}

func (g *panelGame) Update() error {
	if g.ctx.Err() != nil {
		return ebiten.Termination
	}
	g.touchIDs = inpututil.AppendJustPressedTouchIDs(g.touchIDs[:0])
	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) || len(g.touchIDs) > 0 {
		if g.onTouch != nil {
			g.onTouch()
		}
	}
	return nil
}

func (g *panelGame) Draw(screen *ebiten.Image) {
	w, h := g.fb.Size()
	if g.panelImg == nil {
		g.panelImg = ebiten.NewImage(int(w), int(h))
	}
	g.img = g.fb.SnapshotRGBA(g.img)
	g.panelImg.WritePixels(g.img.Pix)
	screen.DrawImage(g.panelImg, nil)
}

func (g *panelGame) Layout(_, _ int) (int, int) {
	w, h := g.fb.Size()
	return int(w), int(h)
}
