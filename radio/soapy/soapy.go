package soapy

// #cgo CFLAGS: -g -Wall
// #cgo LDFLAGS: -lSoapySDR
import (
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/jrwynneiii/wsprdac/config"
	"github.com/jrwynneiii/wsprdac/radio"

	"github.com/pothosware/go-soapy-sdr/pkg/device"
	"github.com/pothosware/go-soapy-sdr/pkg/modules"
	"github.com/pothosware/go-soapy-sdr/pkg/sdrlogger"
	"github.com/pothosware/go-soapy-sdr/pkg/version"
)

// Samples handed to the TX stream per Write call.
const writeChunk = 16 * 1024

// Microseconds a single Write may block waiting for room in the device FIFO.
const writeTimeoutUs = 100000

type Driver struct {
	Driver    string
	Address   string
	Channel   uint
	Frequency float64
}

func New(conf config.DeviceConf) *Driver {
	return &Driver{
		Driver:    conf.SoapyDriver,
		Address:   conf.Address,
		Channel:   conf.Channel,
		Frequency: conf.Frequency,
	}
}

func InitSoapySDR() {
	log.Debugf("Using SoapySDR versions: ABI: %s API: %s Lib: %s", version.GetABIVersion(), version.GetAPIVersion(), version.GetLibVersion())
	log.Debugf("SoapySDR modules root path: %v", modules.GetRootPath())

	searchPaths := modules.ListSearchPaths()
	if len(searchPaths) > 0 {
		for i, searchPath := range searchPaths {
			log.Debugf("Search path #%d: %v", i, searchPath)
		}
	} else {
		log.Debug("Search paths: [none]")
	}
	sdrlogger.SetLogLevel(sdrlogger.Error)
}

// LogAllSoapySDRDevices lists every transmit capable device SoapySDR can see.
func LogAllSoapySDRDevices() {
	log.Infof("Using SoapySDR versions: ABI: %s API: %s Lib: %s", version.GetABIVersion(), version.GetAPIVersion(), version.GetLibVersion())
	log.Infof("SoapySDR modules root path: %v", modules.GetRootPath())

	modulesFound := modules.ListModules()
	if len(modulesFound) > 0 {
		for _, module := range modulesFound {
			moduleVersion := modules.GetModuleVersion(module)
			if len(moduleVersion) == 0 {
				moduleVersion = "[None]"
			}
			log.Infof("Found SoapySDR module: %v, version: %v", module, moduleVersion)
		}
	} else {
		log.Info("No SoapySDR modules found")
	}

	sdrlogger.SetLogLevel(sdrlogger.Error)

	devices := device.Enumerate(nil)
	log.Infof("Found %d devices", len(devices))
	for idx, args := range devices {
		dev, err := device.Make(args)
		if err != nil {
			log.Errorf("Could not open device #%d (%s): %v", idx, args["driver"], err)
			continue
		}
		log.Infof("Device #%d driver: %s", idx, args["driver"])
		LogAvailSettings(dev)
		if err := dev.Unmake(); err != nil {
			log.Errorf("Could not close device #%d: %v", idx, err)
		}
	}
}

func LogAvailSettings(dev *device.SDRDevice) {
	numChannels := dev.GetNumChannels(device.DirectionTX)
	if numChannels == 0 {
		log.Info("\tNo transmit channels")
		return
	}
	for channel := uint(0); channel < numChannels; channel++ {
		log.Infof("TX channel %d:", channel)
		log.Infof("\tCurrent sample rate: %v", dev.GetSampleRate(device.DirectionTX, channel))
		for _, sampleRateRange := range dev.GetSampleRateRange(device.DirectionTX, channel) {
			log.Infof("\t\t- %v", sampleRateRange.ToString())
		}
		log.Infof("\tSample types: %v", dev.GetStreamFormats(device.DirectionTX, channel))
	}
}

func (d *Driver) Name() string {
	return "soapy"
}

func (d *Driver) args() map[string]string {
	args := make(map[string]string)
	if d.Driver != "" {
		args["driver"] = d.Driver
	}
	if d.Address != "" {
		args["serial"] = d.Address
	}
	return args
}

// Open makes the index-th device matching the configured driver and serial.
func (d *Driver) Open(index int) (radio.Device, error) {
	InitSoapySDR()

	found := device.Enumerate(d.args())
	if index < 0 || index >= len(found) {
		return nil, fmt.Errorf("no SoapySDR device #%d (found %d)", index, len(found))
	}

	dev, err := device.Make(found[index])
	if err != nil {
		return nil, fmt.Errorf("could not create SoapySDR device: %w", err)
	}
	log.Debugf("Initialized device: %v", found[index]["driver"])

	if d.Frequency > 0 {
		log.Debugf("Setting frequency to %f", d.Frequency)
		if err := dev.SetFrequency(device.DirectionTX, d.Channel, d.Frequency, nil); err != nil {
			dev.Unmake()
			return nil, fmt.Errorf("could not set frequency: %w", err)
		}
	}

	return &Device{dev: dev, channel: d.Channel}, nil
}

// Device transmits the real-valued refill samples as CS8 with a zero Q component.
type Device struct {
	dev     *device.SDRDevice
	channel uint
	stream  *device.SDRStreamCS8

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

func (s *Device) SetSampleRate(rate float64) (float64, error) {
	log.Debugf("Setting sample rate to %f", rate)
	if err := s.dev.SetSampleRate(device.DirectionTX, s.channel, rate); err != nil {
		return 0, err
	}
	return s.dev.GetSampleRate(device.DirectionTX, s.channel), nil
}

func (s *Device) Start(refill radio.RefillFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		return errors.New("stream already running")
	}

	log.Debug("Creating the TX stream")
	stream, err := s.dev.SetupSDRStreamCS8(device.DirectionTX, []uint{s.channel}, nil)
	if err != nil {
		return fmt.Errorf("could not setup SDR stream: %w", err)
	}
	log.Debug("Activating TX stream")
	if err := stream.Activate(0, 0, 0); err != nil {
		stream.Close()
		return fmt.Errorf("could not activate the TX stream: %w", err)
	}

	s.stream = stream
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go s.pump(refill, s.stop, s.done)
	return nil
}

func (s *Device) pump(refill radio.RefillFunc, stop, done chan struct{}) {
	defer close(done)

	iq := [][]int8{make([]int8, 2*writeChunk)}
	flags := make([]int, 1)
	var t radio.Transfer
	for {
		select {
		case <-stop:
			return
		default:
		}

		t.Samples = nil
		refill(&t)
		t.DeviceError = false

		for off := 0; off < len(t.Samples); off += writeChunk {
			chunk := t.Samples[off:min(off+writeChunk, len(t.Samples))]
			for i, v := range chunk {
				iq[0][2*i] = v
				iq[0][2*i+1] = 0
			}
			if _, err := s.stream.Write(iq, uint(len(chunk)), flags, 0, writeTimeoutUs); err != nil {
				t.DeviceError = true
			}

			select {
			case <-stop:
				return
			default:
			}
		}
	}
}

func (s *Device) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop == nil {
		return nil
	}
	close(s.stop)
	<-s.done
	s.stop, s.done = nil, nil

	log.Debug("Deactivating TX stream...")
	var errs []error
	if err := s.stream.Deactivate(0, 0); err != nil {
		errs = append(errs, fmt.Errorf("could not deactivate the TX stream: %w", err))
	}
	log.Debug("Closing TX stream...")
	if err := s.stream.Close(); err != nil {
		errs = append(errs, fmt.Errorf("could not close the TX stream: %w", err))
	}
	s.stream = nil
	return errors.Join(errs...)
}

func (s *Device) Close() error {
	return s.dev.Unmake()
}
