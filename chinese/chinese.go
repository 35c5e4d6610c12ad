// Package chinese converts chapter text between simplified and traditional
// Chinese script using OpenCC dictionaries.
package chinese

import (
	"fmt"
	"strings"
	"sync"

	"github.com/longbridgeapp/opencc"
)

// Mode selects the conversion direction.
type Mode int

const (
	None Mode = iota
	ToSimplified
	ToTraditional
)

// ParseMode maps a configuration value ("none", "t2s", "s2t" or the
// numeric 0/1/2 used by older configs) to a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "0", "none", "off":
		return None, nil
	case "1", "t2s", "simplified":
		return ToSimplified, nil
	case "2", "s2t", "traditional":
		return ToTraditional, nil
	default:
		return None, fmt.Errorf("unknown chinese converter %q", s)
	}
}

func (m Mode) String() string {
	switch m {
	case ToSimplified:
		return "t2s"
	case ToTraditional:
		return "s2t"
	default:
		return "none"
	}
}

type dictionary struct {
	once sync.Once
	cc   *opencc.OpenCC
	err  error
}

// Converter lazily loads one OpenCC dictionary per direction. It is safe for
// concurrent use.
type Converter struct {
	t2s dictionary
	s2t dictionary
}

// NewConverter returns a Converter. Dictionaries load on first use.
func NewConverter() *Converter {
	return &Converter{}
}

// Convert converts text in the given direction. None returns text unchanged.
func (c *Converter) Convert(text string, mode Mode) (string, error) {
	var d *dictionary
	switch mode {
	case None:
		return text, nil
	case ToSimplified:
		d = &c.t2s
	case ToTraditional:
		d = &c.s2t
	default:
		return text, fmt.Errorf("unsupported conversion mode %d", int(mode))
	}

	d.once.Do(func() {
		d.cc, d.err = opencc.New(mode.String())
	})
	if d.err != nil {
		return text, fmt.Errorf("failed to load %s dictionary: %w", mode, d.err)
	}

	out, err := d.cc.Convert(text)
	if err != nil {
		return text, fmt.Errorf("failed to convert text: %w", err)
	}
	return out, nil
}
