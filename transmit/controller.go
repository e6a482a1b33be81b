package transmit

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jrwynneiii/wsprdac/radio"
	"github.com/jrwynneiii/wsprdac/tones"
)

type State int32

const (
	Idle State = iota
	DeviceOpen
	Streaming
	ToneSelected
	Holding
	Draining
	Closed
)

var stateNames = []string{"idle", "device open", "streaming", "tone selected", "holding", "draining", "closed"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// Room for device errors between two drains of the diagnostic channel.
const diagnosticBacklog = 64

type Options struct {
	Driver         radio.Driver
	Index          int
	Bank           *tones.Bank
	Symbols        []byte
	SymbolDuration time.Duration
	Coordinator    *Coordinator
	Logger         *log.Logger

	// OnSymbol, if set, is called from the pacing loop right after each tone switch.
	OnSymbol func(position, tone int)
}

type Result struct {
	Sent         int
	Interrupted  bool
	SampleRate   float64
	Warnings     []error
	DeviceErrors uint64
	Elapsed      time.Duration
}

type Progress struct {
	State        State
	Sent         int
	Position     int
	Total        int
	Tone         int
	DeviceErrors uint64
	SampleRate   float64
}

// Controller owns one device for one transmission: open, configure, stream the
// symbols at a fixed cadence, then stop and close.
type Controller struct {
	opts   Options
	logger *log.Logger

	state    atomic.Int32
	sent     atomic.Int32
	rate     atomic.Uint64
	provider atomic.Pointer[Provider]
}

func New(opts Options) (*Controller, error) {
	if opts.Driver == nil {
		return nil, errors.New("no device driver")
	}
	if opts.Bank == nil || opts.Bank.Len() == 0 {
		return nil, errors.New("empty tone bank")
	}
	for i, s := range opts.Symbols {
		if int(s) >= opts.Bank.Len() {
			return nil, fmt.Errorf("%w: symbol %d is %d, bank has %d tones", ErrBadSymbol, i, s, opts.Bank.Len())
		}
	}
	if opts.Coordinator == nil {
		opts.Coordinator = NewCoordinator(context.Background())
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Controller{opts: opts, logger: logger}, nil
}

func (c *Controller) setState(s State) {
	c.state.Store(int32(s))
	c.logger.Debugf("Transmitter %s", s)
}

func (c *Controller) State() State {
	return State(c.state.Load())
}

func (c *Controller) Progress() Progress {
	p := Progress{
		State:      c.State(),
		Sent:       int(c.sent.Load()),
		Total:      len(c.opts.Symbols),
		SampleRate: math.Float64frombits(c.rate.Load()),
	}
	if prov := c.provider.Load(); prov != nil {
		p.Position, p.Tone = prov.selector.Load()
		p.DeviceErrors = prov.DeviceErrors()
	}
	return p
}

// Run transmits every symbol once, in order, holding each for SymbolDuration.
// Cancelling ctx skips the remaining symbols; the device is still stopped and
// closed and the result is marked interrupted rather than failed.
func (c *Controller) Run(ctx context.Context) (Result, error) {
	if len(c.opts.Symbols) == 0 {
		return Result{}, errors.New("no symbols to transmit")
	}
	return c.run(ctx, c.sendSymbols)
}

// Carrier streams tone 0 of the bank until ctx is cancelled.
func (c *Controller) Carrier(ctx context.Context) (Result, error) {
	return c.run(ctx, func(ctx context.Context, sel *Selector, res *Result) error {
		if err := sel.Select(0, 0); err != nil {
			return err
		}
		c.logger.Info("Transmitting carrier", "frequency", c.opts.Bank.Frequency(0))
		<-ctx.Done()
		res.Interrupted = true
		return nil
	})
}

func (c *Controller) run(ctx context.Context, body func(context.Context, *Selector, *Result) error) (Result, error) {
	start := time.Now()
	var res Result
	c.setState(Idle)

	if ctx.Err() != nil {
		res.Interrupted = true
		return res, nil
	}

	dev, err := c.opts.Driver.Open(c.opts.Index)
	if err != nil {
		return res, &DeviceOpenError{Driver: c.opts.Driver.Name(), Index: c.opts.Index, Err: err}
	}
	c.setState(DeviceOpen)
	c.logger.Info("Opened device", "driver", c.opts.Driver.Name(), "index", c.opts.Index)

	streaming := false
	finish := func(runErr error) (Result, error) {
		c.setState(Draining)
		if prov := c.provider.Load(); prov != nil {
			c.drain(prov)
			res.DeviceErrors = prov.DeviceErrors()
		}
		released, err := c.opts.Coordinator.Release(dev, streaming)
		if released {
			c.logger.Info("Closed device")
		}
		c.setState(Closed)
		res.Elapsed = time.Since(start)
		if runErr == nil && err != nil {
			runErr = fmt.Errorf("failed to shut down device: %w", err)
		}
		return res, runErr
	}

	requested := c.opts.Bank.SampleRate()
	achieved, err := dev.SetSampleRate(requested)
	if err != nil {
		return finish(&ConfigureError{Step: "set sample rate", Err: err})
	}
	c.rate.Store(math.Float64bits(achieved))
	res.SampleRate = achieved
	c.logger.Infof("Actual {sample rate,frequency} = {%v,%v}", achieved, c.opts.Bank.Rescaled(0, achieved))
	if achieved != requested {
		warn := &SampleRateMismatch{Requested: requested, Achieved: achieved}
		for k := 0; k < c.opts.Bank.Len(); k++ {
			warn.Offset = math.Max(warn.Offset, math.Abs(c.opts.Bank.Rescaled(k, achieved)-c.opts.Bank.Frequency(k)))
		}
		c.logger.Warn(warn.Error())
		res.Warnings = append(res.Warnings, warn)
	}

	if ctx.Err() != nil {
		res.Interrupted = true
		return finish(nil)
	}

	sel := NewSelector(c.opts.Bank)
	if len(c.opts.Symbols) > 0 {
		if err := sel.Select(0, int(c.opts.Symbols[0])); err != nil {
			return finish(fmt.Errorf("symbol 0: %w", err))
		}
	}
	prov := NewProvider(sel, diagnosticBacklog)
	c.provider.Store(prov)

	if err := dev.Start(prov.Refill); err != nil {
		return finish(&ConfigureError{Step: "start stream", Err: err})
	}
	streaming = true
	c.setState(Streaming)

	return finish(body(ctx, sel, &res))
}

func (c *Controller) sendSymbols(ctx context.Context, sel *Selector, res *Result) error {
	seq := NewSequencer(c.opts.Symbols)
	for {
		tone, err := seq.Current()
		if errors.Is(err, ErrOutOfRange) {
			return nil
		}

		if err := sel.Select(seq.Position(), tone); err != nil {
			return fmt.Errorf("symbol %d: %w", seq.Position(), err)
		}
		c.state.Store(int32(ToneSelected))
		c.logger.Debug("Symbol", "position", seq.Position(), "tone", tone)
		if c.opts.OnSymbol != nil {
			c.opts.OnSymbol(seq.Position(), tone)
		}

		c.state.Store(int32(Holding))
		if !hold(ctx, c.opts.SymbolDuration) {
			res.Interrupted = true
			c.logger.Info("Transmission interrupted", "sent", res.Sent, "remaining", seq.Len()-seq.Position())
			return nil
		}
		seq.Advance()
		res.Sent++
		c.sent.Store(int32(res.Sent))

		if prov := c.provider.Load(); prov != nil {
			c.drain(prov)
		}
	}
}

// hold waits out one symbol, returning false if ctx ends first.
func hold(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func (c *Controller) drain(prov *Provider) {
	for {
		select {
		case e := <-prov.Diagnostics():
			c.logger.Warn("Device error", "symbol", e.Symbol, "total", e.Count)
		default:
			return
		}
	}
}
