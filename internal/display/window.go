package display

import (
	"image"
	"math"
	"sync"
	"sync/atomic"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/junsooki/AirCall/internal/capture"
)

// Window renders frames in an Ebitengine window. Pressing q or Escape
// requests cancel; the next Show reports it.
type Window struct {
	title string

	mu          sync.Mutex
	frame       *image.RGBA
	ebitenImage *ebiten.Image

	cancel atomic.Bool
	closed atomic.Bool
}

// NewWindow creates a window sink. Nothing is drawn until Run is called.
func NewWindow(title string) *Window {
	if title == "" {
		title = "AirCall"
	}
	return &Window{title: title}
}

// Show hands the frame to the render loop (called from the session goroutine).
func (w *Window) Show(f *capture.Frame) (bool, error) {
	img := f.RGBA()
	w.mu.Lock()
	w.frame = img
	w.mu.Unlock()
	return w.cancel.Load(), nil
}

// Close releases the surface; Run returns on the next tick.
func (w *Window) Close() error {
	w.closed.Store(true)
	return nil
}

// Run starts the Ebitengine game loop. Must be called from the main goroutine.
// It returns after Close, or when the user closes the window; later Show
// calls then report cancel.
func (w *Window) Run() error {
	ebiten.SetWindowSize(1280, 720)
	ebiten.SetWindowTitle(w.title)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	err := ebiten.RunGame(w)
	// A window the user closed counts as a hang-up.
	w.cancel.Store(true)
	return err
}

// --- ebiten.Game interface ---

func (w *Window) Update() error {
	if w.closed.Load() {
		return ebiten.Termination
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyQ) || inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		w.cancel.Store(true)
	}
	return nil
}

func (w *Window) Draw(screen *ebiten.Image) {
	w.mu.Lock()
	frame := w.frame
	w.mu.Unlock()

	if frame == nil {
		return
	}

	fw, fh := frame.Bounds().Dx(), frame.Bounds().Dy()
	if w.ebitenImage == nil || w.ebitenImage.Bounds().Dx() != fw || w.ebitenImage.Bounds().Dy() != fh {
		w.ebitenImage = ebiten.NewImage(fw, fh)
	}
	w.ebitenImage.WritePixels(frame.Pix)

	sw, sh := screen.Bounds().Dx(), screen.Bounds().Dy()
	scale, offsetX, offsetY := aspectFitTransform(float64(sw), float64(sh), float64(fw), float64(fh))

	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(scale, scale)
	op.GeoM.Translate(offsetX, offsetY)
	screen.DrawImage(w.ebitenImage, op)
}

func (w *Window) Layout(outsideWidth, outsideHeight int) (int, int) {
	return outsideWidth, outsideHeight
}

// aspectFitTransform returns scale and offsets to fit frame into view with letterboxing.
func aspectFitTransform(viewW, viewH, frameW, frameH float64) (scale, offsetX, offsetY float64) {
	scale = math.Min(viewW/frameW, viewH/frameH)
	offsetX = (viewW - frameW*scale) / 2
	offsetY = (viewH - frameH*scale) / 2
	return
}
