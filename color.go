package trafficlight

import (
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

// Color is a traffic-light color. The zero value is Red.
type Color int

const (
	Red Color = iota
	Yellow
	Green
)

var ErrInvalidColor = errors.New("invalid color")

var colorNames = [...]string{
	Red:    "red",
	Yellow: "yellow",
	Green:  "green",
}

// Colors lists every color in cycle order starting at Red.
var Colors = []Color{Red, Green, Yellow}

func (c Color) String() string {
	if !c.Valid() {
		return "color(" + strconv.Itoa(int(c)) + ")"
	}
	return colorNames[c]
}

// Title returns the capitalized name, as used for state names.
func (c Color) Title() string {
	s := c.String()
	return strings.ToUpper(s[:1]) + s[1:]
}

// Valid reports whether c is one of Red, Yellow or Green.
func (c Color) Valid() bool {
	return c >= Red && c <= Green
}

// Next returns the color that follows c: Red, Green, Yellow, Red.
func (c Color) Next() Color {
	switch c {
	case Red:
		return Green
	case Green:
		return Yellow
	case Yellow:
		return Red
	}
	panic(errors.AssertionFailedf("no successor for %s", c))
}

// ParseColor parses a color name, ignoring case.
func ParseColor(s string) (Color, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for c, n := range colorNames {
		if n == name {
			return Color(c), nil
		}
	}
	return Red, errors.Wrapf(ErrInvalidColor, "%q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (c Color) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, errors.Wrapf(ErrInvalidColor, "%d", int(c))
	}
	return []byte(colorNames[c]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Color) UnmarshalText(text []byte) error {
	parsed, err := ParseColor(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Set implements pflag.Value so a Color can be bound to a flag.
func (c *Color) Set(s string) error {
	return c.UnmarshalText([]byte(s))
}

// Type implements pflag.Value.
func (c *Color) Type() string {
	return "color"
}
