package transmit

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jrwynneiii/wsprdac/radio"
	"github.com/jrwynneiii/wsprdac/tones"
)

// testBank is a small four tone bank whose buffers are told apart by address.
func testBank() *tones.Bank {
	return tones.Build(tones.FSK(1500, 12000.0/8192.0, 4, 12000, 256, 127))
}

func toneOf(bank *tones.Bank, buf []int8) int {
	for k := 0; k < bank.Len(); k++ {
		if len(buf) > 0 && &bank.Tone(k)[0] == &buf[0] {
			return k
		}
	}
	return -1
}

// stubDriver hands out a single stubDevice and counts every lifecycle call.
type stubDriver struct {
	dev     *stubDevice
	openErr error
	opens   atomic.Int32
}

func (d *stubDriver) Name() string { return "stub" }

func (d *stubDriver) Open(index int) (radio.Device, error) {
	d.opens.Add(1)
	if d.openErr != nil {
		return nil, d.openErr
	}
	return d.dev, nil
}

type transition struct {
	tone int
	at   time.Time
}

// stubDevice pulls from the refill callback every interval, like a driver with its
// own I/O cadence, and records each change of the active buffer.
type stubDevice struct {
	bank      *tones.Bank
	achieved  float64
	rateErr   error
	startErr  error
	interval  time.Duration
	failEvery int

	rateCalls, starts, stops, closes atomic.Int32

	mu          sync.Mutex
	transitions []transition
	refills     int
	signed      bool

	stop chan struct{}
	done chan struct{}
}

func newStubDevice(bank *tones.Bank) *stubDevice {
	return &stubDevice{bank: bank, interval: time.Millisecond}
}

func (s *stubDevice) SetSampleRate(rate float64) (float64, error) {
	s.rateCalls.Add(1)
	if s.rateErr != nil {
		return 0, s.rateErr
	}
	if s.achieved != 0 {
		return s.achieved, nil
	}
	return rate, nil
}

func (s *stubDevice) Start(refill radio.RefillFunc) error {
	s.starts.Add(1)
	if s.startErr != nil {
		return s.startErr
	}
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go s.pump(refill)
	return nil
}

func (s *stubDevice) pump(refill radio.RefillFunc) {
	defer close(s.done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	var t radio.Transfer
	last := -1
	n := 0
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
		}
		n++
		t.DeviceError = s.failEvery > 0 && n%s.failEvery == 0
		refill(&t)

		s.mu.Lock()
		s.refills++
		s.signed = t.Signed
		if tone := toneOf(s.bank, t.Samples); tone != last {
			last = tone
			s.transitions = append(s.transitions, transition{tone: tone, at: time.Now()})
		}
		s.mu.Unlock()
	}
}

func (s *stubDevice) Stop() error {
	s.stops.Add(1)
	if s.stop == nil {
		return errors.New("not streaming")
	}
	close(s.stop)
	<-s.done
	return nil
}

func (s *stubDevice) Close() error {
	s.closes.Add(1)
	return nil
}

func (s *stubDevice) seen() []transition {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]transition(nil), s.transitions...)
}
