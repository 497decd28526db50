// Package visualizer renders an analyzer.Analyzer's byte classification as a
// static color-coded heatmap. Adapted from the teacher's pkg/gui.NESGUI:
// same window/renderer/streaming-texture setup, but there is no audio device
// and no controller input to wire up, and the "framebuffer" is a 256x256
// grid of memory-type colors instead of a PPU-rendered picture.
package visualizer

import (
	"runtime"
	"unsafe"

	"github.com/veandco/go-sdl2/sdl"

	"github.com/sidblaster/sidblaster-go/pkg/analyzer"
	"github.com/sidblaster/sidblaster-go/pkg/logger"
)

const (
	gridWidth  = 256
	gridHeight = 256
	scale      = 3

	WindowWidth  = gridWidth * scale
	WindowHeight = gridHeight * scale
	WindowTitle  = "sidblaster memory map"
)

// Colors for each classification, ABGR8888 byte order to match the texture
// format the teacher's framebuffer upload uses.
var (
	colorUnknown     = [4]uint8{32, 32, 32, 255}
	colorData        = [4]uint8{60, 60, 160, 255}
	colorCode        = [4]uint8{60, 160, 60, 255}
	colorLabelTarget = [4]uint8{220, 200, 40, 255}
)

// View owns the SDL window/renderer/texture for one memory map.
type View struct {
	window   *sdl.Window
	renderer *sdl.Renderer
	texture  *sdl.Texture
	running  bool
}

// New opens a window sized for a 256x256 byte-per-pixel grid of the full
// address space, scaled up for visibility the way the teacher scales its
// 256x240 NES framebuffer by 3x.
func New() (*View, error) {
	runtime.LockOSThread()

	if err := sdl.Init(sdl.INIT_VIDEO); err != nil {
		return nil, err
	}

	window, err := sdl.CreateWindow(
		WindowTitle,
		sdl.WINDOWPOS_UNDEFINED,
		sdl.WINDOWPOS_UNDEFINED,
		WindowWidth,
		WindowHeight,
		sdl.WINDOW_SHOWN,
	)
	if err != nil {
		sdl.Quit()
		return nil, err
	}

	renderer, err := sdl.CreateRenderer(window, -1, sdl.RENDERER_ACCELERATED)
	if err != nil {
		window.Destroy()
		sdl.Quit()
		return nil, err
	}
	renderer.SetDrawBlendMode(sdl.BLENDMODE_NONE)

	texture, err := renderer.CreateTexture(
		sdl.PIXELFORMAT_ABGR8888,
		sdl.TEXTUREACCESS_STREAMING,
		gridWidth,
		gridHeight,
	)
	if err != nil {
		renderer.Destroy()
		window.Destroy()
		sdl.Quit()
		return nil, err
	}
	texture.SetBlendMode(sdl.BLENDMODE_NONE)

	logger.LogInfo("visualizer window opened: %dx%d", WindowWidth, WindowHeight)

	return &View{window: window, renderer: renderer, texture: texture, running: true}, nil
}

// Destroy releases SDL resources.
func (v *View) Destroy() {
	if v.texture != nil {
		v.texture.Destroy()
	}
	if v.renderer != nil {
		v.renderer.Destroy()
	}
	if v.window != nil {
		v.window.Destroy()
	}
	sdl.Quit()
}

// RenderOnce classifies the full address space into a 256x256 grid (row =
// high byte, column = low byte) and presents one frame. Suitable for a
// one-shot inspection tool rather than a continuous playback loop.
func (v *View) RenderOnce(a *analyzer.Analyzer) error {
	pixels := make([]uint8, gridWidth*gridHeight*4)
	for row := 0; row < gridHeight; row++ {
		for col := 0; col < gridWidth; col++ {
			addr := uint16(row)<<8 | uint16(col)
			idx := (row*gridWidth + col) * 4
			copy(pixels[idx:idx+4], colorFor(a.TypeAt(addr))[:])
		}
	}

	if err := v.texture.Update(nil, unsafe.Pointer(&pixels[0]), gridWidth*4); err != nil {
		return err
	}

	v.renderer.SetDrawColor(0, 0, 0, 255)
	v.renderer.Clear()
	v.renderer.Copy(v.texture, nil, nil)
	v.renderer.Present()
	return nil
}

// PumpUntilClosed blocks, redrawing nothing further, until the window
// receives a quit event or Escape is pressed -- the teacher's event loop
// pared down to the one thing a static inspection view needs.
func (v *View) PumpUntilClosed() {
	for v.running {
		for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
			switch e := event.(type) {
			case *sdl.QuitEvent:
				v.running = false
			case *sdl.KeyboardEvent:
				if e.Keysym.Sym == sdl.K_ESCAPE && e.State == sdl.PRESSED {
					v.running = false
				}
			}
		}
		sdl.Delay(16)
	}
}

func colorFor(t analyzer.MemoryType) [4]uint8 {
	switch {
	case t.Has(analyzer.LabelTarget):
		return colorLabelTarget
	case t.Has(analyzer.Code):
		return colorCode
	case t.Has(analyzer.Data):
		return colorData
	default:
		return colorUnknown
	}
}
