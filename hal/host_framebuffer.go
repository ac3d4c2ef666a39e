//go:build !tinygo

package hal

import (
	"image/color"
	"sync"
)

// hostFramebuffer is an RGB565 pixel buffer implementing Display. The
// window runner snapshots it each frame.
type hostFramebuffer struct {
	mu     sync.Mutex
	width  int
	height int
	buf    []byte // 2 bytes per pixel, row-major
}

func newHostFramebuffer(width, height int) *hostFramebuffer {
	return &hostFramebuffer{
		width:  width,
		height: height,
		buf:    make([]byte, width*height*2),
	}
}

func (f *hostFramebuffer) Size() (x, y int16) {
	return int16(f.width), int16(f.height)
}

func (f *hostFramebuffer) SetPixel(x, y int16, c color.RGBA) {
	if x < 0 || y < 0 || int(x) >= f.width || int(y) >= f.height {
		return
	}
	pixel := rgb565(c.R, c.G, c.B)
	f.mu.Lock()
	i := (int(y)*f.width + int(x)) * 2
	f.buf[i] = byte(pixel)
	f.buf[i+1] = byte(pixel >> 8)
	f.mu.Unlock()
}

// Display is a no-op on the host; the window snapshots the buffer on its
// own cadence.
func (f *hostFramebuffer) Display() error { return nil }

func (f *hostFramebuffer) ClearRGB(r, g, b uint8) {
	pixel := rgb565(r, g, b)
	lo := byte(pixel)
	hi := byte(pixel >> 8)
	f.mu.Lock()
	for i := 0; i < len(f.buf); i += 2 {
		f.buf[i] = lo
		f.buf[i+1] = hi
	}
	f.mu.Unlock()
}

func (f *hostFramebuffer) snapshotRGB565(dst []byte) {
	f.mu.Lock()
	copy(dst, f.buf)
	f.mu.Unlock()
}

func rgb565(r, g, b uint8) uint16 {
	return uint16(r&0xF8)<<8 | uint16(g&0xFC)<<3 | uint16(b)>>3
}

func rgb888From565(p uint16) (r, g, b uint8) {
	r = uint8(p>>8) & 0xF8
	g = uint8(p>>3) & 0xFC
	b = uint8(p<<3) & 0xF8
	return r, g, b
}
