package protocol

import (
	"fmt"
	"strings"
)

// Color is one of the 16 legacy chat colors. Its value is the team color
// ordinal sent on the wire.
type Color uint8

const (
	Black Color = iota
	DarkBlue
	DarkGreen
	DarkAqua
	DarkRed
	DarkPurple
	Gold
	Gray
	DarkGray
	Blue
	Green
	Aqua
	Red
	LightPurple
	Yellow
	White
)

// NumColors is the number of defined colors.
const NumColors = 16

// TeamColorReset is the team color ordinal meaning "no color".
const TeamColorReset int32 = 21

var colorNames = [NumColors]string{
	"black", "dark_blue", "dark_green", "dark_aqua",
	"dark_red", "dark_purple", "gold", "gray",
	"dark_gray", "blue", "green", "aqua",
	"red", "light_purple", "yellow", "white",
}

const colorCodes = "0123456789abcdef"

// Valid reports whether c is one of the 16 colors.
func (c Color) Valid() bool {
	return c < NumColors
}

// String returns the color name, e.g. "dark_aqua".
func (c Color) String() string {
	if !c.Valid() {
		return fmt.Sprintf("color(%d)", uint8(c))
	}
	return colorNames[c]
}

// Code returns the legacy formatting code character, '0'-'9' or 'a'-'f'.
func (c Color) Code() byte {
	if !c.Valid() {
		return '?'
	}
	return colorCodes[c]
}

// Ptr returns a pointer to a copy of c, for optional color arguments.
func (c Color) Ptr() *Color {
	return &c
}

// Colors returns all colors in ordinal order.
func Colors() []Color {
	out := make([]Color, NumColors)
	for i := range out {
		out[i] = Color(i)
	}
	return out
}

// ParseColor parses a color name ("dark_red"), its legacy code ("4"), or
// the code with a section sign ("§4"). Matching is case-insensitive.
func ParseColor(s string) (Color, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	v = strings.TrimPrefix(v, "§")
	v = strings.TrimPrefix(v, "&")
	if len(v) == 1 {
		if i := strings.IndexByte(colorCodes, v[0]); i >= 0 {
			return Color(i), nil
		}
	}
	for i, name := range colorNames {
		if v == name {
			return Color(i), nil
		}
	}
	return 0, fmt.Errorf("unknown color %q", s)
}
