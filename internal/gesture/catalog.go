package gesture

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultLang is the spoken language of the built-in catalog.
const DefaultLang = "id"

// Color is an opaque RGB colour serialized as "#rrggbb".
type Color struct {
	R, G, B uint8
}

// RGBA converts c for drawing.
func (c Color) RGBA() color.RGBA {
	return color.RGBA{R: c.R, G: c.G, B: c.B, A: 255}
}

func (c Color) String() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// MarshalText implements encoding.TextMarshaler.
func (c Color) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Color) UnmarshalText(text []byte) error {
	s := strings.TrimPrefix(strings.TrimSpace(string(text)), "#")
	if len(s) != 6 {
		return fmt.Errorf("color %q: want #rrggbb", text)
	}
	var parsed Color
	if _, err := fmt.Sscanf(s, "%02x%02x%02x", &parsed.R, &parsed.G, &parsed.B); err != nil {
		return fmt.Errorf("color %q: %w", text, err)
	}
	*c = parsed
	return nil
}

// Descriptor is the user-facing content shown and spoken for a gesture.
type Descriptor struct {
	Name    string `json:"name" yaml:"name"`
	Message string `json:"message" yaml:"message"`
	Color   Color  `json:"color" yaml:"color"`
	Speech  string `json:"speech" yaml:"speech"`
	Lang    string `json:"lang,omitempty" yaml:"lang,omitempty"`
}

// Entry is one catalog row: the recognizing rule and its descriptor.
type Entry struct {
	Rule       `yaml:",inline"`
	Descriptor `yaml:",inline"`
}

// Catalog is an ordered, validated list of entries. Order is priority:
// when several rules match, the later one wins.
type Catalog struct {
	entries []Entry
	index   map[string]int
}

// NewCatalog validates entries and builds a catalog. Ids must be unique and
// every Unless guard must name a rule in the catalog.
func NewCatalog(entries []Entry) (*Catalog, error) {
	c := &Catalog{
		entries: make([]Entry, len(entries)),
		index:   make(map[string]int, len(entries)),
	}
	copy(c.entries, entries)

	var errs []error
	for i, e := range c.entries {
		if err := e.Rule.Validate(); err != nil {
			errs = append(errs, err)
			continue
		}
		if _, dup := c.index[e.ID]; dup {
			errs = append(errs, fmt.Errorf("rule %q: duplicate id", e.ID))
			continue
		}
		c.index[e.ID] = i
	}
	for _, e := range c.entries {
		for _, u := range e.Pattern.Unless {
			if _, ok := c.index[u]; !ok {
				errs = append(errs, fmt.Errorf("rule %q: unless references unknown rule %q", e.ID, u))
			}
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("gesture catalog: %w", err)
	}
	return c, nil
}

// Len returns the number of entries.
func (c *Catalog) Len() int {
	return len(c.entries)
}

// Entries returns a copy of the entries in priority order.
func (c *Catalog) Entries() []Entry {
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Rules returns the rules in priority order.
func (c *Catalog) Rules() []Rule {
	out := make([]Rule, len(c.entries))
	for i, e := range c.entries {
		out[i] = e.Rule
	}
	return out
}

// Descriptor returns the descriptor for id, or nil for "" and unknown ids.
func (c *Catalog) Descriptor(id string) *Descriptor {
	i, ok := c.index[id]
	if !ok {
		return nil
	}
	d := c.entries[i].Descriptor
	return &d
}

// LoadCatalogFile reads a YAML catalog from disk.
func LoadCatalogFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("gesture: open catalog %q: %w", path, err)
	}
	defer f.Close()

	c, err := LoadCatalog(f)
	if err != nil {
		return nil, fmt.Errorf("gesture: parse catalog %q: %w", path, err)
	}
	return c, nil
}

// LoadCatalog parses a YAML list of entries.
//
// Example:
//
//	- id: Halo
//	  hands: 1
//	  pattern: {thumb: up, index: up, middle: up, ring: up, pinky: up}
//	  name: five fingers
//	  message: "Halooooo"
//	  color: "#ff0000"
//	  speech: "Haloo!"
func LoadCatalog(r io.Reader) (*Catalog, error) {
	var entries []Entry
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&entries); err != nil {
		return nil, fmt.Errorf("gesture: decode catalog yaml: %w", err)
	}
	return NewCatalog(entries)
}

// openHand is the all-fingers-up pattern shared by Halo and Double.
var openHand = Pattern{Thumb: Up, Index: Up, Middle: Up, Ring: Up, Pinky: Up}

// DefaultEntries returns the built-in catalog in priority order.
func DefaultEntries() []Entry {
	return []Entry{
		{
			Rule:       Rule{ID: "Halo", Hands: 1, Pattern: openHand},
			Descriptor: Descriptor{Name: "five fingers", Message: "Halooooo 👋", Color: Color{R: 255}, Speech: "Haloo!", Lang: DefaultLang},
		},
		{
			Rule:       Rule{ID: "Double", Hands: 2, Pattern: openHand},
			Descriptor: Descriptor{Name: "easter egg", Message: "Absolute Cinema", Color: Color{R: 255, G: 100}, Speech: "Absolute cinemaa", Lang: DefaultLang},
		},
		{
			Rule: Rule{ID: "Pointing", Hands: 1, Pattern: Pattern{
				Thumb: Down, Index: StraightUp, Middle: Down, Ring: Down, Pinky: Down,
			}},
			Descriptor: Descriptor{Name: "Pointing", Message: "Nama saya Muhamad Farel Fauzan", Color: Color{R: 255, G: 100}, Speech: "Nama saya muhamad farel fauzan", Lang: DefaultLang},
		},
		{
			Rule:       Rule{ID: "OK", Hands: 1, Pattern: Pattern{Middle: Up, Pinch: true}},
			Descriptor: Descriptor{Name: "OK", Message: "Okeee", Color: Color{G: 255}, Speech: "wokeee", Lang: DefaultLang},
		},
		{
			Rule: Rule{ID: "I Love You", Hands: 1, Pattern: Pattern{
				Thumb: Up, Index: Up, Middle: Down, Ring: Down, Pinky: Up,
			}},
			Descriptor: Descriptor{Name: "Metal", Message: "Mari berteman dengan baik ❤️", Color: Color{R: 100, B: 255}, Speech: "Mari berteman dengan baik", Lang: DefaultLang},
		},
		{
			Rule: Rule{ID: "Peace", Hands: 1, Pattern: Pattern{
				Thumb: Down, Index: Up, Middle: Up, Ring: Down, Pinky: Down,
			}},
			Descriptor: Descriptor{Name: "two fingers", Message: "Jurusan Teknik Informatika", Color: Color{G: 255}, Speech: "Jurusan teknik informatika", Lang: DefaultLang},
		},
		{
			Rule: Rule{ID: "Three Fingers Up", Hands: 1, Pattern: Pattern{
				Thumb: Down, Index: StraightUp, Middle: StraightUp, Ring: StraightUp, Pinky: Down,
			}},
			Descriptor: Descriptor{Name: "three fingers", Message: "Asal sekolah dari SMKN 2 Kuningan", Color: Color{R: 255, G: 200, B: 100}, Speech: "Asal sekolah dari SMKN 2 Kuningan", Lang: DefaultLang},
		},
		{
			Rule: Rule{ID: "Fist", Hands: 1, Pattern: Pattern{
				Thumb: Down, Index: Down, Middle: Down, Ring: Down, Pinky: Down,
			}},
			Descriptor: Descriptor{Name: "Fist", Message: "Semangat 👊", Color: Color{G: 255, B: 255}, Speech: "Belok kanan", Lang: DefaultLang},
		},
		{
			Rule: Rule{ID: "Sip", Hands: 1, Pattern: Pattern{
				Thumb: Up, Index: Down, Middle: Down, Ring: Down, Pinky: Down,
				Unless: []string{"Fist"},
			}},
			Descriptor: Descriptor{Name: "Sip", Message: "Cihuyyyy", Color: Color{R: 255, G: 100}, Speech: "cihuyyy", Lang: DefaultLang},
		},
	}
}

// DefaultCatalog returns the built-in catalog.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(DefaultEntries())
	if err != nil {
		panic(err)
	}
	return c
}
