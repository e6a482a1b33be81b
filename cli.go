package main

type messageFlags struct {
	Callsign string `short:"c" required:"" help:"Call sign to transmit"`
	Locator  string `short:"l" required:"" help:"Maidenhead locator, 4 or 6 characters"`
	Power    int    `short:"p" required:"" help:"Transmit power in dBm"`
}

var cli struct {
	Verbose bool   `help:"Prints debug output by default"`
	Profile bool   `help:"Output a pprof profile"`
	Config  string `help:"Path to the HCL config file" type:"path"`
	Driver  string `help:"Device driver to use (soapy, audio, file), overrides device.driver"`

	Transmit struct {
		Message   messageFlags `embed:""`
		Frequency float64      `short:"f" help:"Frequency of tone 0 in Hz, overrides tone.frequency"`
		Align     bool         `help:"Wait for the next even UTC minute before transmitting"`
		Tui       bool         `help:"Show the transmission status screen"`
	} `cmd:"" help:"Encode a WSPR message and transmit it once"`
	Carrier struct {
		Frequency float64 `short:"f" help:"Carrier frequency in Hz, overrides carrier.frequency"`
	} `cmd:"" help:"Transmit an unmodulated carrier until interrupted"`
	Encode struct {
		Message messageFlags `embed:""`
	} `cmd:"" help:"Print the channel symbols of a WSPR message"`
	Tones struct {
		Frequency float64 `short:"f" help:"Frequency of tone 0 in Hz, overrides tone.frequency"`
		FftSize   int     `default:"65536" help:"Samples per tone fed to the spectrum check"`
	} `cmd:"" help:"Build the tone bank and report the measured frequency of each tone"`
	Probe struct {
	} `cmd:"" help:"List the available radios, sound cards and SoapySDR configuration"`
}
