package config

import (
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/v2"
)

type DeviceConf struct {
	Driver      string  `koanf:"driver"`
	Index       int     `koanf:"index"`
	SoapyDriver string  `koanf:"soapy_driver"`
	Address     string  `koanf:"address"`
	Channel     uint    `koanf:"channel"`
	Frequency   float64 `koanf:"frequency"`
	Path        string  `koanf:"path"`
}

type ToneConf struct {
	Frequency       float64 `koanf:"frequency"`
	OversampleRatio float64 `koanf:"oversample_ratio"`
	SampleRate      float64 `koanf:"sample_rate"`
	BufferLength    int     `koanf:"buffer_length"`
	Amplitude       float64 `koanf:"amplitude"`
}

type TransmitConf struct {
	SymbolMs    float64 `koanf:"symbol_ms"`
	AlignToSlot bool    `koanf:"align_to_slot"`
}

type CarrierConf struct {
	Frequency float64 `koanf:"frequency"`
	Ratio     int     `koanf:"ratio"`
	Amplitude float64 `koanf:"amplitude"`
}

type TuiConf struct {
	RefreshMs       int  `koanf:"refresh_ms"`
	EnableLogOutput bool `koanf:"enable_log_output"`
}

type Conf struct {
	Device   DeviceConf
	Tone     ToneConf
	Transmit TransmitConf
	Carrier  CarrierConf
	Tui      TuiConf
}

// FL2K_BUF_LEN of the osmo-fl2k driver: 1280 * 1024 samples per refill.
const DefaultBufferLength = 1280 * 1024

var Defaults = map[string]any{
	"device.driver":          "soapy",
	"device.index":           0,
	"device.soapy_driver":    "",
	"device.channel":         0,
	"device.path":            "wspr.s8",
	"tone.frequency":         7040100.0,
	"tone.oversample_ratio":  8.0,
	"tone.sample_rate":       0.0,
	"tone.buffer_length":     DefaultBufferLength,
	"tone.amplitude":         127.0,
	"transmit.symbol_ms":     8192.0 * 1000.0 / 12000.0,
	"transmit.align_to_slot": false,
	"carrier.frequency":      7040100.0,
	"carrier.ratio":          8,
	"carrier.amplitude":      99.0,
	"tui.refresh_ms":         250,
	"tui.enable_log_output":  true,
}

// LoadDefaults seeds k with Defaults. Values loaded afterwards override them.
func LoadDefaults(k *koanf.Koanf) error {
	return k.Load(confmap.Provider(Defaults, "."), nil)
}

func Read(k *koanf.Koanf) (Conf, error) {
	var c Conf
	sections := []struct {
		path string
		out  any
	}{
		{"device", &c.Device},
		{"tone", &c.Tone},
		{"transmit", &c.Transmit},
		{"carrier", &c.Carrier},
		{"tui", &c.Tui},
	}
	for _, s := range sections {
		if err := k.Unmarshal(s.path, s.out); err != nil {
			return c, err
		}
	}
	return c, nil
}
