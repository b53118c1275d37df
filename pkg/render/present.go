package render

import (
	"errors"
	"fmt"
	"image"
	"sync"
)

// ErrPresenterClosed is returned by Exchange after Close.
var ErrPresenterClosed = errors.New("presenter closed")

// ConvertFunc turns a finished surface, seen through its color texture, into
// a displayable image.
type ConvertFunc func(Texture) (*image.RGBA, error)

type presented struct {
	img *image.RGBA
	err error
}

// Presenter converts rendered surfaces to images on a long-lived goroutine.
//
// Hand-off is a strict rendezvous: Exchange offers the surface just rendered
// and blocks until the image of the previous offer is ready. The render side
// is therefore never more than one frame ahead, and the offered surface must
// not be drawn into until the next Exchange returns. Renderer.FlipSurfaces
// after each Exchange satisfies that.
//
// A conversion failure is latched: it is returned by the Exchange that would
// have received the image and by every later call.
type Presenter struct {
	convert ConvertFunc

	offers  chan *Surface
	results chan presented
	done    chan struct{}

	mu     sync.Mutex // Serializes Exchange, Resize and Close
	fault  error
	closed bool
}

// NewPresenter starts a presentation goroutine. A nil convert uses
// ToImage.
func NewPresenter(convert ConvertFunc) *Presenter {
	if convert == nil {
		convert = func(t Texture) (*image.RGBA, error) {
			return ToImage(t), nil
		}
	}

	p := &Presenter{
		convert: convert,
		offers:  make(chan *Surface, 1),
		results: make(chan presented, 1),
		done:    make(chan struct{}),
	}
	go p.run()
	Logger().Debug("presenter started")
	return p
}

func (p *Presenter) run() {
	defer close(p.done)

	var pending presented
	for s := range p.offers {
		p.results <- pending
		pending = presented{}
		if s != nil {
			pending = p.convertSafe(s)
		}
	}
}

// convertSafe converts s, turning a panic into an error.
func (p *Presenter) convertSafe(s *Surface) (out presented) {
	defer func() {
		if r := recover(); r != nil {
			out = presented{err: fmt.Errorf("panic during conversion: %v", r)}
		}
	}()
	img, err := p.convert(s.ColorTexture())
	return presented{img: img, err: err}
}

// Exchange offers s for presentation and returns the image converted from
// the previous offer. The image is nil on the first call, after an offer of
// nil and after Resize.
func (p *Presenter) Exchange(s *Surface) (*image.RGBA, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exchange(s)
}

func (p *Presenter) exchange(s *Surface) (*image.RGBA, error) {
	if p.fault != nil {
		return nil, p.fault
	}
	if p.closed {
		return nil, ErrPresenterClosed
	}

	p.offers <- s
	res := <-p.results
	if res.err != nil {
		p.fault = fmt.Errorf("present frame: %w", res.err)
		Logger().Error("presentation failed", "err", res.err)
		return nil, p.fault
	}
	return res.img, nil
}

// Resize waits for the outstanding conversion to finish, discards it and
// then resizes both surfaces of r.
func (p *Presenter) Resize(r *Renderer, width, height int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, err := p.exchange(nil); err != nil {
		return err
	}
	r.Resize(width, height)
	return nil
}

// Close stops the presentation goroutine, dropping any pending image. It
// returns the latched fault, if any.
func (p *Presenter) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.closed {
		p.closed = true
		close(p.offers)
		<-p.done
		Logger().Debug("presenter stopped")
	}
	return p.fault
}
