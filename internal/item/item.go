package item

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Delimiter separates the sections of an in-game tooltip.
const Delimiter = "--------"

// ErrParse is returned when text does not follow the tooltip layout.
var ErrParse = errors.New("item: unrecognized tooltip")

// Rarity is the value of the tooltip's "Rarity:" header line.
type Rarity string

const (
	RarityNormal   Rarity = "Normal"
	RarityMagic    Rarity = "Magic"
	RarityRare     Rarity = "Rare"
	RarityUnique   Rarity = "Unique"
	RarityCurrency Rarity = "Currency"
	RarityGem      Rarity = "Gem"
	RarityCard     Rarity = "Divination Card"
)

// Item is a structured in-game item description.
// Modifiers and Implicits are only populated when Identified is true.
type Item struct {
	Class      string   `json:"class,omitempty" yaml:"class,omitempty"`
	Rarity     Rarity   `json:"rarity" yaml:"rarity"`
	Name       string   `json:"name" yaml:"name"`
	BaseType   string   `json:"base_type,omitempty" yaml:"base_type,omitempty"`
	ItemLevel  int      `json:"item_level,omitempty" yaml:"item_level,omitempty"`
	Quality    int      `json:"quality,omitempty" yaml:"quality,omitempty"`
	Sockets    string   `json:"sockets,omitempty" yaml:"sockets,omitempty"`
	Identified bool     `json:"identified" yaml:"identified"`
	Corrupted  bool     `json:"corrupted,omitempty" yaml:"corrupted,omitempty"`
	Implicits  []string `json:"implicits,omitempty" yaml:"implicits,omitempty"`
	Modifiers  []string `json:"modifiers,omitempty" yaml:"modifiers,omitempty"`
	Flavour    string   `json:"flavour,omitempty" yaml:"flavour,omitempty"`
	Note       string   `json:"note,omitempty" yaml:"note,omitempty"`
}

const (
	classPrefix   = "Item Class: "
	rarityPrefix  = "Rarity: "
	levelPrefix   = "Item Level: "
	qualityPrefix = "Quality: "
	socketsPrefix = "Sockets: "
	notePrefix    = "Note: "

	implicitSuffix = " (implicit)"
	enchantSuffix  = " (enchant)"

	unidentifiedMarker = "Unidentified"
	corruptedMarker    = "Corrupted"
	requirementsHeader = "Requirements:"
)

// Parse turns tooltip text into an Item. Failure is reported with ErrParse
// and never panics, whatever the input.
func Parse(text string) (Item, error) {
	sections := Sections(text)
	if len(sections) < 2 {
		return Item{}, fmt.Errorf("%w: expected at least 2 sections, got %d", ErrParse, len(sections))
	}

	it, err := parseHeader(sections[0])
	if err != nil {
		return Item{}, err
	}
	it.Identified = true

	// Free-text sections after the item level line are modifier candidates.
	var candidates [][]string
	seenLevel := false

	for _, sec := range sections[1:] {
		if len(sec) == 1 {
			switch sec[0] {
			case unidentifiedMarker:
				it.Identified = false
				continue
			case corruptedMarker:
				it.Corrupted = true
				continue
			}
		}

		if sec[0] == requirementsHeader {
			continue
		}

		known := false
		var free []string
		for _, line := range sec {
			switch {
			case strings.HasPrefix(line, levelPrefix):
				it.ItemLevel = leadingInt(strings.TrimPrefix(line, levelPrefix))
				seenLevel = true
				known = true
			case strings.HasPrefix(line, qualityPrefix):
				it.Quality = leadingInt(strings.TrimPrefix(line, qualityPrefix))
				known = true
			case strings.HasPrefix(line, socketsPrefix):
				it.Sockets = strings.TrimPrefix(line, socketsPrefix)
				known = true
			case strings.HasPrefix(line, notePrefix):
				it.Note = strings.TrimPrefix(line, notePrefix)
				known = true
			case strings.HasSuffix(line, implicitSuffix):
				it.Implicits = append(it.Implicits, strings.TrimSuffix(line, implicitSuffix))
				known = true
			case strings.HasSuffix(line, enchantSuffix):
				known = true
			default:
				free = append(free, line)
			}
		}

		if !known && seenLevel && len(free) > 0 {
			candidates = append(candidates, free)
		}
	}

	if it.Rarity == RarityUnique && len(candidates) > 1 {
		it.Flavour = strings.Join(candidates[len(candidates)-1], "\n")
		candidates = candidates[:len(candidates)-1]
	}

	if !it.Identified {
		it.Implicits = nil
		return it, nil
	}

	for _, c := range candidates {
		it.Modifiers = append(it.Modifiers, c...)
	}
	if it.Rarity == RarityMagic {
		// Magic names embed affixes around the base type.
		it.BaseType = ""
	}
	return it, nil
}

// parseHeader reads the class, rarity and name lines of the first section.
func parseHeader(lines []string) (Item, error) {
	var it Item
	i := 0
	if i < len(lines) && strings.HasPrefix(lines[i], classPrefix) {
		it.Class = strings.TrimPrefix(lines[i], classPrefix)
		i++
	}
	if i >= len(lines) || !strings.HasPrefix(lines[i], rarityPrefix) {
		return Item{}, fmt.Errorf("%w: missing rarity line", ErrParse)
	}
	it.Rarity = Rarity(strings.TrimPrefix(lines[i], rarityPrefix))
	i++

	names := lines[i:]
	switch len(names) {
	case 1:
		it.Name = names[0]
		it.BaseType = names[0]
	case 2:
		it.Name = names[0]
		it.BaseType = names[1]
	default:
		return Item{}, fmt.Errorf("%w: expected 1 or 2 name lines, got %d", ErrParse, len(names))
	}
	return it, nil
}

// Sections splits tooltip text on delimiter lines. Lines are trimmed,
// blank lines dropped, and empty sections discarded.
func Sections(text string) [][]string {
	var (
		sections [][]string
		current  []string
	)
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if line == Delimiter {
			if len(current) > 0 {
				sections = append(sections, current)
			}
			current = nil
			continue
		}
		current = append(current, line)
	}
	if len(current) > 0 {
		sections = append(sections, current)
	}
	return sections
}

// leadingInt parses the first run of digits in s, ignoring a leading sign
// and any trailing unit like "%" or " (augmented)".
func leadingInt(s string) int {
	s = strings.TrimLeft(s, "+")
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}
	return n
}
