package radio

// Transfer is exchanged with the refill callback each time a device wants another
// block of samples. The driver sets DeviceError; the callback sets Samples and
// Signed. Samples must stay valid until the next call.
type Transfer struct {
	Samples     []int8
	Signed      bool
	DeviceError bool
}

// RefillFunc is called from the driver's own goroutine or thread. It must not block.
type RefillFunc func(t *Transfer)

// Driver opens the index-th device it can find.
type Driver interface {
	Name() string
	Open(index int) (Device, error)
}

// Device is an opened DAC. Lifecycle: SetSampleRate, Start, Stop, Close. Close must
// only be called once.
type Device interface {
	// SetSampleRate requests a rate and returns the rate the hardware settled on.
	SetSampleRate(rate float64) (float64, error)
	Start(refill RefillFunc) error
	Stop() error
	Close() error
}
