package capture

import (
	"fmt"
	"strings"
)

// Resolution bounds the size of a captured photo.
type Resolution int

const (
	HighestAvailable Resolution = iota
	SmallVGA
	MediumXGA
	Large3M
	VeryLarge5M
)

// DefaultResolution is preselected in the quality selector.
const DefaultResolution = Large3M

var resolutionNames = map[Resolution]string{
	HighestAvailable: "HighestAvailable",
	SmallVGA:         "SmallVGA",
	MediumXGA:        "MediumXGA",
	Large3M:          "Large3M",
	VeryLarge5M:      "VeryLarge5M",
}

// long and short side in pixels
var resolutionBounds = map[Resolution][2]int{
	SmallVGA:    {640, 480},
	MediumXGA:   {1024, 768},
	Large3M:     {2048, 1536},
	VeryLarge5M: {2592, 1944},
}

func (r Resolution) String() string {
	if name, ok := resolutionNames[r]; ok {
		return name
	}
	return fmt.Sprintf("Resolution(%d)", int(r))
}

// Valid reports whether r is one of the named options.
func (r Resolution) Valid() bool {
	_, ok := resolutionNames[r]
	return ok
}

// MaxDimensions returns the long and short side limits. ok is false for
// HighestAvailable, which imposes no bound.
func (r Resolution) MaxDimensions() (long, short int, ok bool) {
	b, ok := resolutionBounds[r]
	return b[0], b[1], ok
}

// Fits reports whether a width x height photo is within r in either orientation.
func (r Resolution) Fits(width, height int) bool {
	long, short, ok := r.MaxDimensions()
	if !ok {
		return true
	}
	w, h := max(width, height), min(width, height)
	return w <= long && h <= short
}

// ParseResolution validates a selector value. Matching ignores case.
func ParseResolution(name string) (Resolution, error) {
	for r, n := range resolutionNames {
		if strings.EqualFold(n, strings.TrimSpace(name)) {
			return r, nil
		}
	}
	return 0, fmt.Errorf("unknown resolution %q", name)
}

// Selectable lists the options offered to the user, default first.
func Selectable() []Resolution {
	return []Resolution{Large3M, MediumXGA}
}

func (r Resolution) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("invalid resolution %d", int(r))
	}
	return []byte(r.String()), nil
}

func (r *Resolution) UnmarshalText(text []byte) error {
	parsed, err := ParseResolution(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
