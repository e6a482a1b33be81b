package transmit

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/jrwynneiii/wsprdac/radio"
)

// Coordinator turns termination signals into context cancellation and makes sure
// a device is stopped and closed exactly once, whoever gets there first.
type Coordinator struct {
	ctx    context.Context
	cancel context.CancelFunc

	requested atomic.Bool
	closed    atomic.Bool
	signal    atomic.Pointer[os.Signal]

	sigs chan os.Signal
	once sync.Once
	done chan struct{}

	exit func(code int)
}

func NewCoordinator(parent context.Context) *Coordinator {
	ctx, cancel := context.WithCancel(parent)
	return &Coordinator{
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
		exit:   os.Exit,
	}
}

// Context is cancelled as soon as shutdown is requested.
func (c *Coordinator) Context() context.Context {
	return c.ctx
}

// Install starts listening for termination signals and ignores broken pipes, so a
// consumer of the log output going away does not take the transmitter down. A
// termination signal arriving after shutdown was already requested exits at once
// with status 1, without waiting for the device.
func (c *Coordinator) Install() {
	c.sigs = make(chan os.Signal, 1)
	signal.Notify(c.sigs, terminationSignals...)
	if len(ignoredSignals) > 0 {
		signal.Ignore(ignoredSignals...)
	}

	go func() {
		for {
			select {
			case sig := <-c.sigs:
				if c.Requested() {
					log.Warn("Signal caught during shutdown, exiting now", "signal", sig)
					c.exit(1)
					return
				}
				c.Request(sig)
			case <-c.done:
				return
			}
		}
	}()
}

// Uninstall stops signal delivery. Safe to call more than once.
func (c *Coordinator) Uninstall() {
	c.once.Do(func() {
		if c.sigs != nil {
			signal.Stop(c.sigs)
		}
		close(c.done)
		c.cancel()
	})
}

// Request flags shutdown and wakes anything waiting on Context. No device work
// happens here.
func (c *Coordinator) Request(sig os.Signal) {
	if !c.requested.CompareAndSwap(false, true) {
		return
	}
	if sig != nil {
		c.signal.Store(&sig)
		log.Info("Signal caught, exiting!", "signal", sig)
	} else {
		log.Info("Shutdown requested")
	}
	c.cancel()
}

func (c *Coordinator) Requested() bool {
	return c.requested.Load()
}

// Signal returns the signal that requested shutdown, if any.
func (c *Coordinator) Signal() os.Signal {
	if sig := c.signal.Load(); sig != nil {
		return *sig
	}
	return nil
}

// Release stops and closes dev. Only the first call does anything; later calls
// report false.
func (c *Coordinator) Release(dev radio.Device, streaming bool) (bool, error) {
	if !c.closed.CompareAndSwap(false, true) {
		return false, nil
	}

	var errs []error
	if streaming {
		if err := dev.Stop(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := dev.Close(); err != nil {
		errs = append(errs, err)
	}
	return true, errors.Join(errs...)
}

func (c *Coordinator) Closed() bool {
	return c.closed.Load()
}
