package transmit

// Sequencer walks the symbol sequence of one transmission. It is driven by a single
// goroutine and needs no locking.
type Sequencer struct {
	symbols []byte
	cursor  int
}

func NewSequencer(symbols []byte) *Sequencer {
	return &Sequencer{symbols: symbols}
}

// Current returns the tone index at the cursor, or ErrOutOfRange once every
// symbol has been consumed.
func (s *Sequencer) Current() (int, error) {
	if s.cursor >= len(s.symbols) {
		return 0, ErrOutOfRange
	}
	return int(s.symbols[s.cursor]), nil
}

// Advance moves to the next symbol. It does nothing once the sequence is exhausted.
func (s *Sequencer) Advance() {
	if s.cursor < len(s.symbols) {
		s.cursor++
	}
}

func (s *Sequencer) Position() int {
	return s.cursor
}

func (s *Sequencer) Len() int {
	return len(s.symbols)
}

func (s *Sequencer) Done() bool {
	return s.cursor >= len(s.symbols)
}
