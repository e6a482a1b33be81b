package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime/pprof"
	"slices"
	"strings"
	"time"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/jrwynneiii/wsprdac/config"
	"github.com/jrwynneiii/wsprdac/radio/audio"
	"github.com/jrwynneiii/wsprdac/radio/soapy"
	"github.com/jrwynneiii/wsprdac/tones"
	"github.com/jrwynneiii/wsprdac/transmit"
	"github.com/jrwynneiii/wsprdac/tui"
	"github.com/jrwynneiii/wsprdac/wspr"

	"github.com/knadh/koanf/parsers/hcl"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

var configFile = koanf.New(".")

func getConfigPath(override string) string {
	if override != "" {
		return override
	}
	paths := []string{"/etc/wsprdac/config.hcl", "./config.hcl"}
	if home, err := os.UserHomeDir(); err == nil {
		paths = slices.Insert(paths, 1, filepath.Join(home, ".config", "wsprdac", "config.hcl"))
	}
	for _, path := range paths {
		if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
			log.Infof("Found config file: %s", path)
			return path
		}
	}
	log.Info("Config file not found!")
	return ""
}

func loadConfig() config.Conf {
	if err := config.LoadDefaults(configFile); err != nil {
		log.Fatalf("Could not load config defaults: %v", err)
	}
	if err := configFile.Load(file.Provider(getConfigPath(cli.Config)), hcl.Parser(true)); err != nil {
		log.Errorf("Could not read config file: %v", err)
		log.Error("Attempting to use environment variables")
		configFile.Load(env.Provider("", env.Opt{
			Prefix: "WSPRDAC_",
			TransformFunc: func(k, v string) (string, any) {
				key := strings.ToLower(strings.TrimPrefix(k, "WSPRDAC_"))
				k = strings.Replace(key, "_", ".", 1)
				fmt.Printf("Found config env var: %s=%v\n", k, v)
				return k, v
			},
		}), nil)
	}

	conf, err := config.Read(configFile)
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	if cli.Driver != "" {
		conf.Device.Driver = cli.Driver
	}
	return conf
}

// checkMessage normalises the message flags, printing usage and exiting when any of
// them is empty or zero.
func checkMessage(flags *kong.Context, m messageFlags) tui.Message {
	msg := tui.Message{
		Callsign: strings.ToUpper(strings.TrimSpace(m.Callsign)),
		Locator:  strings.ToUpper(strings.TrimSpace(m.Locator)),
		Power:    m.Power,
	}
	if msg.Callsign == "" || msg.Locator == "" || msg.Power == 0 {
		flags.PrintUsage(false)
		flags.Fatalf("call sign, locator and power are all required")
	}
	return msg
}

func encodeOrUsage(flags *kong.Context, msg tui.Message) []byte {
	symbols, err := wspr.Encode(msg.Callsign, msg.Locator, msg.Power)
	if err != nil {
		flags.PrintUsage(false)
		flags.Fatalf("Could not encode message: %v", err)
	}
	return symbols
}

func wsprBank(conf config.ToneConf) (*tones.Bank, error) {
	rate := conf.SampleRate
	if rate == 0 {
		rate = conf.Frequency * conf.OversampleRatio
	}
	plan := tones.FSK(conf.Frequency, wspr.ToneSpacing, wspr.Tones, rate, conf.BufferLength, conf.Amplitude)
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	return tones.Build(plan), nil
}

func symbolDuration(conf config.TransmitConf) time.Duration {
	if conf.SymbolMs <= 0 {
		return wspr.SymbolDuration
	}
	return time.Duration(conf.SymbolMs * float64(time.Millisecond))
}

// await runs the transmission in the background while show, if given, holds the
// terminal until done is closed.
func await(run func() (transmit.Result, error), show func(done <-chan struct{})) (transmit.Result, error) {
	var res transmit.Result
	var err error
	done := make(chan struct{})
	go func() {
		defer close(done)
		res, err = run()
	}()
	if show != nil {
		show(done)
	}
	<-done
	return res, err
}

func report(logger *log.Logger, res transmit.Result, err error) {
	var openErr *transmit.DeviceOpenError
	var cfgErr *transmit.ConfigureError
	switch {
	case errors.As(err, &openErr):
		logger.Fatalf("Could not open device: %v", err)
	case errors.As(err, &cfgErr):
		logger.Fatalf("Could not configure device: %v", err)
	case err != nil:
		logger.Fatalf("Transmission failed: %v", err)
	}

	if res.Interrupted {
		logger.Info("Transmission interrupted", "sent", res.Sent, "elapsed", res.Elapsed.Round(time.Millisecond))
	} else {
		logger.Info("Transmission complete", "sent", res.Sent, "elapsed", res.Elapsed.Round(time.Millisecond))
	}
	if res.DeviceErrors > 0 {
		logger.Warn("Device reported errors during transmission", "count", res.DeviceErrors)
	}
}

func main() {
	log.Info("Starting wsprdac")
	flags := kong.Parse(&cli)
	if cli.Verbose {
		log.SetLevel(log.DebugLevel)
	}

	if cli.Profile {
		prof, err := os.Create("./cpu.pprof")
		if err != nil {
			panic(err)
		}
		pprof.StartCPUProfile(prof)
		defer pprof.StopCPUProfile()
	}

	conf := loadConfig()
	log.Debugf("Using configuration: %+v", conf)

	switch flags.Command() {
	case "probe":
		soapy.LogAllSoapySDRDevices()
		if err := audio.LogDevices(); err != nil {
			log.Errorf("Could not list audio devices: %v", err)
		}

	case "encode":
		msg := checkMessage(flags, cli.Encode.Message)
		symbols := encodeOrUsage(flags, msg)
		var sb strings.Builder
		for i, s := range symbols {
			if i > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteByte('0' + s)
		}
		fmt.Println(sb.String())

	case "tones":
		if cli.Tones.Frequency > 0 {
			conf.Tone.Frequency = cli.Tones.Frequency
		}
		bank, err := wsprBank(conf.Tone)
		if err != nil {
			log.Fatalf("Invalid tone plan: %v", err)
		}
		log.Info("Tone bank", "sample_rate", bank.SampleRate(), "buffer_length", bank.BufferLength())
		for k := 0; k < bank.Len(); k++ {
			peak := tones.PeakFrequency(bank.Tone(k), bank.SampleRate(), cli.Tones.FftSize)
			log.Info("Tone", "index", k, "requested", bank.Frequency(k), "measured", peak.Frequency, "resolution", peak.Resolution)
		}

	case "transmit":
		msg := checkMessage(flags, cli.Transmit.Message)
		symbols := encodeOrUsage(flags, msg)
		if cli.Transmit.Frequency > 0 {
			conf.Tone.Frequency = cli.Transmit.Frequency
		}
		bank, err := wsprBank(conf.Tone)
		if err != nil {
			log.Fatalf("Invalid tone plan: %v", err)
		}
		drv, err := newDriver(conf.Device)
		if err != nil {
			log.Fatal(err)
		}

		coord := transmit.NewCoordinator(context.Background())
		coord.Install()
		defer coord.Uninstall()

		txLog := log.With("tx", uuid.New().String())
		ctrl, err := transmit.New(transmit.Options{
			Driver:         drv,
			Index:          conf.Device.Index,
			Bank:           bank,
			Symbols:        symbols,
			SymbolDuration: symbolDuration(conf.Transmit),
			Coordinator:    coord,
			Logger:         txLog,
		})
		if err != nil {
			log.Fatal(err)
		}

		if cli.Transmit.Align || conf.Transmit.AlignToSlot {
			txLog.Info("Waiting for the next transmit slot", "start", wspr.NextSlot(time.Now()).Format(time.TimeOnly))
			if !wspr.WaitForSlot(coord.Context()) {
				return
			}
		}
		txLog.Info("Transmitting", "callsign", msg.Callsign, "locator", msg.Locator, "power", msg.Power, "frequency", bank.Frequency(0))

		var show func(done <-chan struct{})
		if cli.Transmit.Tui {
			show = func(done <-chan struct{}) {
				tui.StartUI(ctrl, txLog, msg, symbols, bank, conf.Tui, done, func() { coord.Request(nil) })
			}
		}
		res, err := await(func() (transmit.Result, error) { return ctrl.Run(coord.Context()) }, show)
		report(txLog, res, err)

	case "carrier":
		if cli.Carrier.Frequency > 0 {
			conf.Carrier.Frequency = cli.Carrier.Frequency
		}
		if err := tones.ValidCarrierRatio(conf.Carrier.Ratio); err != nil {
			log.Fatal(err)
		}
		plan := tones.Carrier(conf.Carrier.Frequency, conf.Carrier.Ratio, conf.Tone.BufferLength, conf.Carrier.Amplitude)
		if err := plan.Validate(); err != nil {
			log.Fatalf("Invalid carrier plan: %v", err)
		}
		drv, err := newDriver(conf.Device)
		if err != nil {
			log.Fatal(err)
		}

		coord := transmit.NewCoordinator(context.Background())
		coord.Install()
		defer coord.Uninstall()

		txLog := log.With("tx", uuid.New().String())
		ctrl, err := transmit.New(transmit.Options{
			Driver:      drv,
			Index:       conf.Device.Index,
			Bank:        tones.Build(plan),
			Coordinator: coord,
			Logger:      txLog,
		})
		if err != nil {
			log.Fatal(err)
		}
		res, err := await(func() (transmit.Result, error) { return ctrl.Carrier(coord.Context()) }, nil)
		report(txLog, res, err)

	default:
		log.Info("Command not recognized")
	}
}
