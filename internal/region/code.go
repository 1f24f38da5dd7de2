package region

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// ErrInvalidCode is returned when a string is not a region code
var ErrInvalidCode = errors.New("invalid region code")

// Code identifies a country (ISO 3166-1 alpha-2), one of its subdivisions
// (ISO 3166-2), or one of the two special regions.
type Code struct {
	Country     string
	Subdivision string
}

// Special regions
var (
	World = Code{Country: "*"}
	Ocean = Code{Country: "~"}
)

// Parse reads "*", "~", "CC" or "CC-SUB". Letters are upper-cased.
func Parse(raw string) (Code, error) {
	if raw == World.Country {
		return World, nil
	}
	if raw == Ocean.Country {
		return Ocean, nil
	}
	if len(raw) != 2 && len(raw) <= 3 {
		return Code{}, fmt.Errorf("%w: %q", ErrInvalidCode, raw)
	}
	for _, r := range raw[:2] {
		if !unicode.IsLetter(r) {
			return Code{}, fmt.Errorf("%w: %q", ErrInvalidCode, raw)
		}
	}
	country := strings.ToUpper(raw[:2])
	if len(raw) == 2 {
		return Code{Country: country}, nil
	}
	if raw[2] != '-' {
		return Code{}, fmt.Errorf("%w: %q", ErrInvalidCode, raw)
	}
	return Code{Country: country, Subdivision: strings.ToUpper(raw[3:])}, nil
}

// MustParse is Parse for constants, it panics on invalid input
func MustParse(raw string) Code {
	code, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return code
}

func (c Code) String() string {
	if c.Subdivision != "" {
		return c.Country + "-" + c.Subdivision
	}
	return c.Country
}

// IsSpecial reports whether c is World or Ocean
func (c Code) IsSpecial() bool {
	return c == World || c == Ocean
}

// IsCountry reports whether c names a country
func (c Code) IsCountry() bool {
	return c.Subdivision == "" && !c.IsSpecial()
}

// IsSubdivision reports whether c names a subdivision
func (c Code) IsSubdivision() bool {
	return c.Subdivision != ""
}

// CountryCode drops the subdivision part
func (c Code) CountryCode() Code {
	return Code{Country: c.Country}
}

// Less orders by country, countries before their subdivisions
func (c Code) Less(o Code) bool {
	if c.Country != o.Country {
		return c.Country < o.Country
	}
	return c.Subdivision < o.Subdivision
}

// MarshalText implements encoding.TextMarshaler
func (c Code) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (c *Code) UnmarshalText(text []byte) error {
	code, err := Parse(string(text))
	if err != nil {
		return err
	}
	*c = code
	return nil
}
