package main

import (
	"fmt"

	"github.com/jrwynneiii/wsprdac/config"
	"github.com/jrwynneiii/wsprdac/radio"
	"github.com/jrwynneiii/wsprdac/radio/audio"
	"github.com/jrwynneiii/wsprdac/radio/soapy"
)

var driverNames = []string{"soapy", "audio", "file"}

func newDriver(conf config.DeviceConf) (radio.Driver, error) {
	switch conf.Driver {
	case "soapy":
		return soapy.New(conf), nil
	case "audio":
		return audio.New(), nil
	case "file":
		return radio.NewFileDriver(conf.Path), nil
	}
	return nil, fmt.Errorf("unsupported device driver %q, supported drivers are %v", conf.Driver, driverNames)
}
