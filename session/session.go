// Package session drives the select, inspect, watermark and save workflow
// for one photo at a time.
//
// Selecting a photo resets everything known about the previous one and starts
// reading the new one in the background. Results that arrive for a photo that
// is no longer selected are dropped.
package session

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"

	"k8s.io/klog/v2"

	"github.com/photocamera/watermark"
	"github.com/photocamera/watermark/camera"
	"github.com/photocamera/watermark/render"
	"github.com/photocamera/watermark/store"
)

var (
	ErrNoImage = errors.New("session: no photo selected")
	// ErrNoCameraModel refuses to watermark photos whose metadata does not
	// name the camera.
	ErrNoCameraModel = errors.New("session: the photo does not name a camera model")
	ErrNotDrawn      = errors.New("session: the watermark could not be drawn")
	ErrNoAlbum       = errors.New("session: no album to save to")
	ErrStale         = errors.New("session: another photo was selected")
)

// State is a snapshot of the selected photo.
type State struct {
	// Generation identifies the selection, it grows with every Select.
	Generation uint64
	// Ready is set once the photo has been read.
	Ready       bool
	Info        camera.Info
	Image       image.Image
	Watermarked bool
	// Err is the reason the photo could not be decoded.
	Err error
}

type Option func(*Session)

func WithExtractor(e *camera.Extractor) Option {
	return func(s *Session) { s.extractor = e }
}

func WithRenderer(r *render.Renderer) Option {
	return func(s *Session) { s.renderer = r }
}

func WithDecodeOptions(opts ...watermark.DecodeOption) Option {
	return func(s *Session) { s.decode_opts = append(s.decode_opts, opts...) }
}

func WithAlbum(a store.Saver) Option {
	return func(s *Session) { s.album = a }
}

type Session struct {
	extractor   *camera.Extractor
	renderer    *render.Renderer
	decode_opts []watermark.DecodeOption
	album       store.Saver

	mutex      sync.Mutex
	generation uint64
	ready      chan struct{}
	done       bool
	info       camera.Info
	photo      *render.Photo
	err        error
	on_ready   func(State)
}

func New(opts ...Option) *Session {
	ans := &Session{}
	for _, o := range opts {
		o(ans)
	}
	if ans.extractor == nil {
		ans.extractor = camera.NewExtractor()
	}
	if ans.renderer == nil {
		ans.renderer = render.NewRenderer()
	}
	return ans
}

// OnReady registers f to be called, on the reading goroutine, every time a
// selected photo has been read. Stale selections never reach f.
func (s *Session) OnReady(f func(State)) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.on_ready = f
}

func (s *Session) state_locked() State {
	ans := State{Generation: s.generation, Ready: s.done, Info: s.info, Err: s.err}
	if s.photo != nil {
		ans.Image = s.photo.Image()
		ans.Watermarked = s.photo.Watermarked()
	}
	return ans
}

// State returns a snapshot without waiting.
func (s *Session) State() State {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.state_locked()
}

// Select makes raw the current photo and returns its generation. Metadata
// extraction and decoding happen on a new goroutine.
func (s *Session) Select(raw []byte) uint64 {
	s.mutex.Lock()
	s.generation++
	gen := s.generation
	ready := make(chan struct{})
	s.ready, s.done = ready, false
	s.info, s.photo, s.err = camera.Info{}, nil, nil
	s.mutex.Unlock()

	go s.load(gen, ready, raw)
	return gen
}

func (s *Session) load(gen uint64, ready chan struct{}, raw []byte) {
	defer close(ready)
	info := s.extractor.Extract(raw)
	img, err := watermark.DecodeBytes(raw, s.decode_opts...)

	s.mutex.Lock()
	if gen != s.generation {
		s.mutex.Unlock()
		klog.V(1).Infof("session: dropping result of stale selection %d", gen)
		return
	}
	s.info, s.done = info, true
	if err != nil {
		s.err = fmt.Errorf("session: failed to read photo: %w", err)
	} else {
		s.photo = render.NewPhoto(img.Image)
	}
	st, cb := s.state_locked(), s.on_ready
	s.mutex.Unlock()
	klog.V(1).Infof("session: selection %d read: %s", gen, info)
	if cb != nil {
		cb(st)
	}
}

// Wait blocks until the current selection has been read. When another photo
// is selected meanwhile it waits for that one instead.
func (s *Session) Wait(ctx context.Context) (State, error) {
	for {
		s.mutex.Lock()
		ready, gen := s.ready, s.generation
		s.mutex.Unlock()
		if ready == nil {
			return State{}, ErrNoImage
		}
		select {
		case <-ctx.Done():
			return State{}, ctx.Err()
		case <-ready:
		}
		s.mutex.Lock()
		if gen == s.generation {
			st := s.state_locked()
			s.mutex.Unlock()
			return st, st.Err
		}
		s.mutex.Unlock()
	}
}

// Watermark stamps the current photo once. Later calls return the already
// watermarked image. Photos without a camera model are refused with
// ErrNoCameraModel.
func (s *Session) Watermark(ctx context.Context) (image.Image, error) {
	st, err := s.Wait(ctx)
	if err != nil {
		return nil, err
	}
	if st.Watermarked {
		return st.Image, nil
	}
	if st.Info.Model == "" {
		return st.Image, ErrNoCameraModel
	}
	s.mutex.Lock()
	photo := s.photo
	if st.Generation != s.generation || photo == nil {
		s.mutex.Unlock()
		return nil, ErrStale
	}
	s.mutex.Unlock()
	img, ok := photo.Watermark(s.renderer, st.Info)
	if !ok {
		return img, ErrNotDrawn
	}
	return img, nil
}

// Save hands the current image, watermarked or not, to the album.
func (s *Session) Save(ctx context.Context) (string, error) {
	if s.album == nil {
		return "", ErrNoAlbum
	}
	st, err := s.Wait(ctx)
	if err != nil {
		return "", err
	}
	return s.album.Save(ctx, st.Image)
}

// SaveAsync is Save with the result delivered on a channel.
func (s *Session) SaveAsync(ctx context.Context) <-chan store.Result {
	if s.album == nil {
		return failed(ErrNoAlbum)
	}
	st, err := s.Wait(ctx)
	if err != nil {
		return failed(err)
	}
	return store.SaveAsync(ctx, s.album, st.Image)
}

func failed(err error) <-chan store.Result {
	ch := make(chan store.Result, 1)
	ch <- store.Result{Err: err}
	close(ch)
	return ch
}
