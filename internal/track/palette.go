package track

import "sync"

// defaultPalette cycles through visually distinct line colors as tracks are
// added
var defaultPalette = []string{
	"#fc4c02", // orange
	"#0066cc", // blue
	"#2e7d32", // green
	"#9c27b0", // purple
	"#d32f2f", // red
	"#00838f", // teal
	"#f9a825", // amber
	"#5d4037", // brown
}

// Palette assigns colors round-robin. It is an explicit object rather than
// package state so tests and a store reset can restart the cycle
// deterministically.
type Palette struct {
	mu     sync.Mutex
	colors []string
	next   int
}

// NewPalette returns a palette over the default color cycle
func NewPalette() *Palette {
	return &Palette{colors: defaultPalette}
}

// Next returns the next color in the cycle
func (p *Palette) Next() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	c := p.colors[p.next%len(p.colors)]
	p.next++
	return c
}

// Reset restarts the cycle
func (p *Palette) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.next = 0
}
