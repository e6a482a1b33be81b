package transmit

import (
	"errors"
	"fmt"
)

// ErrOutOfRange marks the end of the symbol sequence.
var ErrOutOfRange = errors.New("symbol sequence exhausted")

// ErrBadSymbol is returned when a symbol has no matching tone in the bank.
var ErrBadSymbol = errors.New("symbol has no tone")

type DeviceOpenError struct {
	Driver string
	Index  int
	Err    error
}

func (e *DeviceOpenError) Error() string {
	return fmt.Sprintf("failed to open %s device #%d: %v", e.Driver, e.Index, e.Err)
}

func (e *DeviceOpenError) Unwrap() error {
	return e.Err
}

// ConfigureError is a failure between opening the device and streaming from it.
type ConfigureError struct {
	Step string
	Err  error
}

func (e *ConfigureError) Error() string {
	return fmt.Sprintf("failed to %s: %v", e.Step, e.Err)
}

func (e *ConfigureError) Unwrap() error {
	return e.Err
}

// SampleRateMismatch is a warning: the device runs, just not at the rate the tone
// bank was rendered for, so every tone lands off frequency by Offset Hz at most.
type SampleRateMismatch struct {
	Requested float64
	Achieved  float64
	Offset    float64
}

func (e *SampleRateMismatch) Error() string {
	return fmt.Sprintf("requested sample rate %.3f, device runs at %.3f (tones off by up to %.3f Hz)",
		e.Requested, e.Achieved, e.Offset)
}

// DeviceIOError is reported from the refill callback when the driver flags a failed
// transfer. Symbol is the position that was on air; Count the running total.
type DeviceIOError struct {
	Symbol int
	Count  uint64
}

func (e DeviceIOError) Error() string {
	return fmt.Sprintf("device I/O error during symbol %d (%d total)", e.Symbol, e.Count)
}
