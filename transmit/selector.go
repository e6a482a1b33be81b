package transmit

import (
	"sync/atomic"

	"github.com/jrwynneiii/wsprdac/radio"
	"github.com/jrwynneiii/wsprdac/tones"
)

// Selector is the one value shared between the pacing loop and the device's
// refill context. The symbol position and tone index are packed into a single
// word so a reader always sees a pair that was written together.
type Selector struct {
	bank *tones.Bank
	word atomic.Uint64
}

func NewSelector(bank *tones.Bank) *Selector {
	return &Selector{bank: bank}
}

func pack(position, tone int) uint64 {
	return uint64(uint32(position))<<32 | uint64(uint32(tone))
}

func unpack(w uint64) (position, tone int) {
	return int(int32(w >> 32)), int(int32(w))
}

// Select makes tone the active buffer for the symbol at position.
func (s *Selector) Select(position, tone int) error {
	if tone < 0 || tone >= s.bank.Len() {
		return ErrBadSymbol
	}
	s.word.Store(pack(position, tone))
	return nil
}

func (s *Selector) Load() (position, tone int) {
	return unpack(s.word.Load())
}

func (s *Selector) Buffer() []int8 {
	_, tone := unpack(s.word.Load())
	return s.bank.Tone(tone)
}

// Provider is the refill callback target. Refill never blocks and never allocates:
// a device error bumps a counter and is offered to Diagnostics without waiting.
type Provider struct {
	selector *Selector
	errors   atomic.Uint64
	diag     chan DeviceIOError
}

func NewProvider(selector *Selector, backlog int) *Provider {
	return &Provider{
		selector: selector,
		diag:     make(chan DeviceIOError, backlog),
	}
}

func (p *Provider) Refill(t *radio.Transfer) {
	w := p.selector.word.Load()
	position, tone := unpack(w)
	if t.DeviceError {
		n := p.errors.Add(1)
		select {
		case p.diag <- DeviceIOError{Symbol: position, Count: n}:
		default:
		}
	}
	t.Signed = true
	t.Samples = p.selector.bank.Tone(tone)
}

func (p *Provider) Diagnostics() <-chan DeviceIOError {
	return p.diag
}

func (p *Provider) DeviceErrors() uint64 {
	return p.errors.Load()
}
