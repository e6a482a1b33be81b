// Package wspr turns a call sign, locator and power level into the 162 channel
// symbols of a type 1 WSPR message.
//
// The coding steps follow G4JNT's description of the WSPR coding process:
// http://g4jnt.com/WSPR_Coding_Process.pdf
package wspr

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// MessageSymbols is the number of channel symbols in one transmission.
const MessageSymbols = 162

// Tones is the number of FSK tones; every symbol is in 0..Tones-1.
const Tones = 4

// ToneSpacing is the distance between adjacent FSK4 tones in Hz.
const ToneSpacing = 12000.0 / 8192.0

// SymbolDuration is how long each tone is held, 8192 samples at 12 kS/s.
const SymbolDuration = 8192 * time.Second / 12000

var (
	ErrCallsign = errors.New("invalid callsign")
	ErrLocator  = errors.New("invalid locator")
	ErrPower    = errors.New("invalid power")
)

var syncVector = [MessageSymbols]byte{
	1, 1, 0, 0, 0, 0, 0, 0, 1, 0, 0, 0, 1, 1, 1, 0, 0, 0, 1, 0, 0, 1, 0, 1, 1, 1, 1, 0, 0, 0, 0, 0, 0, 0, 1, 0, 0, 1, 0, 1, 0, 0,
	0, 0, 0, 0, 1, 0, 1, 1, 0, 0, 1, 1, 0, 1, 0, 0, 0, 1, 1, 0, 1, 0, 0, 0, 0, 1, 1, 0, 1, 0, 1, 0, 1, 0, 1, 0, 0, 1, 0, 0, 1, 0,
	1, 1, 0, 0, 0, 1, 1, 0, 1, 0, 1, 0, 0, 0, 1, 0, 0, 0, 0, 0, 1, 0, 0, 1, 0, 0, 1, 1, 1, 0, 1, 1, 0, 0, 1, 1, 0, 1, 0, 0, 0, 1,
	1, 1, 0, 0, 0, 0, 0, 1, 0, 1, 0, 0, 1, 1, 0, 0, 0, 0, 0, 0, 0, 1, 1, 0, 1, 0, 1, 1, 0, 0, 0, 1, 1, 0, 0, 0,
}

// Encode returns the channel symbols (each 0..3) for the message. The call sign and
// locator are matched case-insensitively; only the first four locator characters
// are transmitted.
func Encode(callsign, locator string, dBm int) ([]byte, error) {
	n, err := packCallsign(callsign)
	if err != nil {
		return nil, err
	}
	m, err := packLocator(locator)
	if err != nil {
		return nil, err
	}
	if err := ValidPower(dBm); err != nil {
		return nil, err
	}
	m = m<<7 + uint32(dBm) + 64

	data := convolve(compress(n, m))
	interleaved := interleave(data)

	symbols := make([]byte, MessageSymbols)
	for i := range symbols {
		symbols[i] = syncVector[i] + 2*interleaved[i]
	}
	return symbols, nil
}

// ValidPower accepts the power levels a type 1 message can carry: 0..60 dBm ending
// in 0, 3 or 7.
func ValidPower(dBm int) error {
	if dBm < 0 || dBm > 60 {
		return fmt.Errorf("%w: %d dBm outside 0..60", ErrPower, dBm)
	}
	switch dBm % 10 {
	case 0, 3, 7:
		return nil
	}
	return fmt.Errorf("%w: %d dBm must end in 0, 3 or 7", ErrPower, dBm)
}

func packCallsign(callsign string) (uint32, error) {
	c := strings.ToUpper(strings.TrimSpace(callsign))
	if len(c) < 3 || len(c) > 6 {
		return 0, fmt.Errorf("%w: %q must be 3 to 6 characters", ErrCallsign, callsign)
	}
	// The digit goes in the third position; single-letter prefixes are padded.
	if isDigit(c[1]) {
		c = " " + c
	}
	if len(c) > 6 {
		return 0, fmt.Errorf("%w: %q too long", ErrCallsign, callsign)
	}
	c += strings.Repeat(" ", 6-len(c))

	switch {
	case !(isDigit(c[0]) || isLetter(c[0]) || c[0] == ' '):
		return 0, fmt.Errorf("%w: %q has a bad first character", ErrCallsign, callsign)
	case !(isDigit(c[1]) || isLetter(c[1])):
		return 0, fmt.Errorf("%w: %q has a bad prefix", ErrCallsign, callsign)
	case !isDigit(c[2]):
		return 0, fmt.Errorf("%w: %q needs a digit in the 2nd or 3rd position", ErrCallsign, callsign)
	}
	for i := 3; i < 6; i++ {
		if !(isLetter(c[i]) || c[i] == ' ') {
			return 0, fmt.Errorf("%w: %q suffix must be letters", ErrCallsign, callsign)
		}
	}

	n := charValue(c[0])
	n = n*36 + charValue(c[1])
	n = n*10 + charValue(c[2])
	n = n*27 + charValue(c[3]) - 10
	n = n*27 + charValue(c[4]) - 10
	n = n*27 + charValue(c[5]) - 10
	return n & 0x0FFFFFFF, nil
}

func packLocator(locator string) (uint32, error) {
	l := strings.ToUpper(strings.TrimSpace(locator))
	if len(l) != 4 && len(l) != 6 {
		return 0, fmt.Errorf("%w: %q must be 4 or 6 characters", ErrLocator, locator)
	}
	if l[0] < 'A' || l[0] > 'R' || l[1] < 'A' || l[1] > 'R' {
		return 0, fmt.Errorf("%w: %q field must be letters A..R", ErrLocator, locator)
	}
	if !isDigit(l[2]) || !isDigit(l[3]) {
		return 0, fmt.Errorf("%w: %q square must be digits", ErrLocator, locator)
	}

	lon := uint32(l[0] - 'A')
	lat := uint32(l[1] - 'A')
	m := (179-10*lon-uint32(l[2]-'0'))*180 + 10*lat + uint32(l[3]-'0')
	return m & 0x7FFF, nil
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

func isLetter(b byte) bool {
	return b >= 'A' && b <= 'Z'
}

func charValue(b byte) uint32 {
	switch {
	case isDigit(b):
		return uint32(b - '0')
	case b == ' ':
		return 36
	default:
		return uint32(b-'A') + 10
	}
}

// compress packs the 28-bit call sign and 22-bit locator/power into 50 bits, MSB
// first, zero padded to 11 bytes to flush the encoder.
func compress(n, m uint32) (c [11]byte) {
	c[0] = byte(n >> 20)
	c[1] = byte(n >> 12)
	c[2] = byte(n >> 4)
	c[3] = byte(n&0x0F)<<4 | byte(m>>18&0x0F)
	c[4] = byte(m >> 10)
	c[5] = byte(m >> 2)
	c[6] = byte(m&0x03) << 6
	return
}

// convolve runs the K=32, r=1/2 convolutional encoder over the first 81 bits.
func convolve(c [11]byte) (out [MessageSymbols]byte) {
	const (
		poly1 = uint32(0xF2D05351)
		poly2 = uint32(0xE4613C47)
	)

	var reg uint32
	k := 0
	for _, b := range c {
		for j := 7; j >= 0 && k < MessageSymbols; j-- {
			reg = reg<<1 | uint32(b>>uint(j)&1)
			out[k] = parity(reg & poly1)
			out[k+1] = parity(reg & poly2)
			k += 2
		}
	}
	return
}

func parity(v uint32) byte {
	var p uint32
	for v != 0 {
		p ^= v & 1
		v >>= 1
	}
	return byte(p)
}

// interleave scatters bit p to the bit-reversed address of the p-th valid 8-bit
// index.
func interleave(in [MessageSymbols]byte) (out [MessageSymbols]byte) {
	p := 0
	for i := 0; i < 256 && p < MessageSymbols; i++ {
		j := reverse8(byte(i))
		if int(j) < MessageSymbols {
			out[j] = in[p]
			p++
		}
	}
	return
}

func reverse8(b byte) byte {
	var r byte
	for i := 0; i < 8; i++ {
		r = r<<1 | b&1
		b >>= 1
	}
	return r
}
