package services

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

var errFetch = errors.New("fetch failed")

// pngBytes encodes a small two-colour PNG.
func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			if (x+y)%2 == 0 {
				img.Set(x, y, color.RGBA{R: 200, G: 30, B: 30, A: 255})
			} else {
				img.Set(x, y, color.RGBA{R: 30, G: 30, B: 200, A: 255})
			}
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// fakeFetcher serves fixed bodies and counts fetches per URI. URIs listed in
// failing return errFetch; URIs listed in blocking wait until their gate is
// closed or the context ends.
type fakeFetcher struct {
	mu       sync.Mutex
	bodies   map[string][]byte
	failing  map[string]bool
	blocking map[string]chan struct{}
	calls    map[string]int
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		bodies:   map[string][]byte{},
		failing:  map[string]bool{},
		blocking: map[string]chan struct{}{},
		calls:    map[string]int{},
	}
}

func (f *fakeFetcher) Fetch(ctx context.Context, uri string) (io.ReadCloser, error) {
	f.mu.Lock()
	f.calls[uri]++
	body, ok := f.bodies[uri]
	fail := f.failing[uri]
	gate := f.blocking[uri]
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if fail {
		return nil, errFetch
	}
	if !ok {
		return nil, errFetch
	}
	return io.NopCloser(bytes.NewReader(body)), nil
}

func (f *fakeFetcher) count(uri string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[uri]
}

func (f *fakeFetcher) set(uri string, body []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bodies[uri] = body
}

func (f *fakeFetcher) fail(uri string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failing[uri] = true
}

func (f *fakeFetcher) block(uri string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	gate := make(chan struct{})
	f.blocking[uri] = gate
	return gate
}
