// Package audio plays the tone stream through a sound card, for feeding the audio
// input of an SSB transmitter instead of driving RF directly.
package audio

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/gordonklaus/portaudio"
	"github.com/jrwynneiii/wsprdac/radio"
)

type Driver struct{}

func New() *Driver {
	return &Driver{}
}

func (d *Driver) Name() string {
	return "audio"
}

// LogDevices lists the output capable audio devices with their indices.
func LogDevices() error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize portaudio: %w", err)
	}
	defer portaudio.Terminate()

	devices, err := portaudio.Devices()
	if err != nil {
		return err
	}
	idx := 0
	for _, dev := range devices {
		if dev.MaxOutputChannels < 1 {
			continue
		}
		log.Infof("Audio device #%d: %s (%s), default rate %v", idx, dev.Name, dev.HostApi.Name, dev.DefaultSampleRate)
		idx++
	}
	return nil
}

// Open picks the index-th output capable device. Index -1 selects the host's
// default output.
func (d *Driver) Open(index int) (radio.Device, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize portaudio: %w", err)
	}

	info, err := outputDevice(index)
	if err != nil {
		portaudio.Terminate()
		return nil, err
	}
	log.Debugf("Using audio output %s", info.Name)
	return &Device{info: info}, nil
}

func outputDevice(index int) (*portaudio.DeviceInfo, error) {
	if index < 0 {
		return portaudio.DefaultOutputDevice()
	}
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, err
	}
	idx := 0
	for _, dev := range devices {
		if dev.MaxOutputChannels < 1 {
			continue
		}
		if idx == index {
			return dev, nil
		}
		idx++
	}
	return nil, fmt.Errorf("no audio output device #%d", index)
}

// Device is a mono int8 output stream. PortAudio asks for blocks whose size has no
// relation to the tone buffers, so the callback keeps a read offset into the most
// recently returned buffer and asks for the active buffer again on every call.
type Device struct {
	info   *portaudio.DeviceInfo
	stream *portaudio.Stream
	refill atomic.Pointer[radio.RefillFunc]

	t      radio.Transfer
	offset int
}

// SetSampleRate opens the stream, since PortAudio fixes the rate at open time.
func (a *Device) SetSampleRate(rate float64) (float64, error) {
	if a.stream != nil {
		return 0, errors.New("sample rate already set")
	}
	params := portaudio.LowLatencyParameters(nil, a.info)
	params.Output.Channels = 1
	params.SampleRate = rate

	stream, err := portaudio.OpenStream(params, a.process)
	if err != nil {
		return 0, fmt.Errorf("failed to open audio stream: %w", err)
	}
	a.stream = stream
	return stream.Info().SampleRate, nil
}

func (a *Device) process(out []int8, _ portaudio.StreamCallbackTimeInfo, status portaudio.StreamCallbackFlags) {
	refill := a.refill.Load()
	if refill == nil {
		clear(out)
		return
	}

	a.t.DeviceError = status&portaudio.OutputUnderflow != 0
	for n := 0; n < len(out); {
		(*refill)(&a.t)
		a.t.DeviceError = false
		buf := a.t.Samples
		if len(buf) == 0 {
			clear(out[n:])
			return
		}
		if a.offset >= len(buf) {
			a.offset = 0
		}
		c := copy(out[n:], buf[a.offset:])
		a.offset += c
		n += c
	}
}

func (a *Device) Start(refill radio.RefillFunc) error {
	if a.stream == nil {
		return errors.New("sample rate not set")
	}
	a.refill.Store(&refill)
	if err := a.stream.Start(); err != nil {
		a.refill.Store(nil)
		return fmt.Errorf("failed to start audio stream: %w", err)
	}
	return nil
}

func (a *Device) Stop() error {
	if a.stream == nil {
		return nil
	}
	err := a.stream.Stop()
	a.refill.Store(nil)
	return err
}

func (a *Device) Close() error {
	var errs []error
	if a.stream != nil {
		errs = append(errs, a.stream.Close())
		a.stream = nil
	}
	errs = append(errs, portaudio.Terminate())
	return errors.Join(errs...)
}
