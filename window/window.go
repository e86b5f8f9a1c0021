// Package window owns the single on-screen GLFW window the CLI event
// loop drives: creation, keyboard polling, and the close signal. It is
// adapted from the shared-window-resource idiom of a platform window
// module, stripped of that module's component/resource plumbing since
// this renderer has no such scheduler.
package window

import (
	"image"
	"image/color"
	"runtime"

	"github.com/go-gl/glfw/v3.3/glfw"
)

func init() {
	// GLFW must be called from the thread that initialized it.
	runtime.LockOSThread()
}

// Key names the subset of keys the walk/turn input loop reads (§CLI /
// EVENT LOOP).
type Key int

const (
	KeyLeft Key = iota
	KeyRight
	KeyUp
	KeyDown
	KeyEscape
)

var keyToGlfw = map[Key]glfw.Key{
	KeyLeft:   glfw.KeyLeft,
	KeyRight:  glfw.KeyRight,
	KeyUp:     glfw.KeyUp,
	KeyDown:   glfw.KeyDown,
	KeyEscape: glfw.KeyEscape,
}

// Window wraps a single GLFW window: its lifecycle, keyboard state, and
// a CPU-side framebuffer the renderer's strips are blitted into.
//
// Blit accumulates into Framebuffer rather than pushing to a GPU surface:
// this renderer's rendering contract ends at a column-strip list (§4.5
// step 8), and no GPU pipeline is in scope (the dropped webgpu dependency
// noted in the ledger applies here too), so presentation is left to
// whatever consumes Framebuffer, a plain image.RGBA.
type Window struct {
	glfwWin     *glfw.Window
	Width       int
	Height      int
	Framebuffer *image.RGBA
}

// New creates and shows a Width x Height GLFW window titled title. Width
// and Height fall back to 1280x720/320x200-friendly defaults when <= 0.
func New(width, height int, title string) (*Window, error) {
	if width <= 0 {
		width = 1280
	}
	if height <= 0 {
		height = 720
	}
	if title == "" {
		title = "gorender"
	}

	if err := glfw.Init(); err != nil {
		return nil, err
	}
	glfw.WindowHint(glfw.Resizable, glfw.False)

	win, err := glfw.CreateWindow(width, height, title, nil, nil)
	if err != nil {
		return nil, err
	}
	win.MakeContextCurrent()

	return &Window{
		glfwWin:     win,
		Width:       width,
		Height:      height,
		Framebuffer: image.NewRGBA(image.Rect(0, 0, width, height)),
	}, nil
}

// PollEvents pumps the GLFW event queue; call once per frame before
// reading key state.
func (w *Window) PollEvents() {
	glfw.PollEvents()
}

// ShouldClose reports whether the user has requested the window close
// (the titlebar close button, or a caller-triggered Escape handler).
func (w *Window) ShouldClose() bool {
	return w.glfwWin.ShouldClose()
}

// RequestClose marks the window for closing on the next ShouldClose
// check.
func (w *Window) RequestClose() {
	w.glfwWin.SetShouldClose(true)
}

// KeyDown reports whether key is currently held.
func (w *Window) KeyDown(key Key) bool {
	glfwKey, ok := keyToGlfw[key]
	if !ok {
		return false
	}
	return w.glfwWin.GetKey(glfwKey) == glfw.Press
}

// Blit writes pixels into Framebuffer at column x starting at row top,
// one column wide and len(pixels) rows tall, clipping silently at the
// framebuffer edges, the consumer of a raster.Strip (§4.5 step 8).
func (w *Window) Blit(x, top int, pixels []color.RGBA) {
	for i, c := range pixels {
		y := top + i
		if x < 0 || x >= w.Width || y < 0 || y >= w.Height {
			continue
		}
		w.Framebuffer.SetRGBA(x, y, c)
	}
}

// Clear resets Framebuffer to fully transparent, the start-of-frame
// state the BSP walker expects before its first column is blitted.
func (w *Window) Clear() {
	for i := range w.Framebuffer.Pix {
		w.Framebuffer.Pix[i] = 0
	}
}

// SwapBuffers presents the GLFW context's back buffer. With no GPU draw
// calls issued against it (see the Window doc comment), this only paces
// the loop to the display's refresh the way a real present call would;
// actual on-screen pixels come from whatever later reads Framebuffer.
func (w *Window) SwapBuffers() {
	w.glfwWin.SwapBuffers()
}

// Destroy releases the underlying GLFW window.
func (w *Window) Destroy() {
	w.glfwWin.Destroy()
}
