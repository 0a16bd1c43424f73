package classify

import (
	"regexp"
	"strings"
)

// Shape is the coarse grammar a piece of text matches.
type Shape string

const (
	Unrecognized Shape = "unrecognized"
	ItemShaped   Shape = "item"
	TradeShaped  Shape = "trade"
)

// TradeOffer wraps trade-chat text verbatim. It is not decomposed further.
type TradeOffer struct {
	Raw string `json:"raw" yaml:"raw"`
}

// Trigger is a compiled trade phrasing pattern.
type Trigger struct {
	Name   string
	Regexp *regexp.Regexp
}

// TradeTriggers are the chat phrasings recognized as trade offers. Go's
// regexp engine runs in time linear in the input, so matching never backtracks.
var TradeTriggers = []Trigger{
	{Name: "whisper", Regexp: regexp.MustCompile(`(?i)\bI(?:'d| would) like to buy your\b`)},
	{Name: "priced note", Regexp: regexp.MustCompile(`(?m)^~(?:b/o|price) \d+(?:[.,/]\d+)? \S+`)},
}

const (
	itemDelimiter = "--------"
	classPrefix   = "Item Class: "
	rarityPrefix  = "Rarity: "
)

// Classify reports the shape of text. Item-shaped text is checked first so
// that priced stash notes inside a tooltip do not read as trade chat.
func Classify(text string) Shape {
	if strings.TrimSpace(text) == "" {
		return Unrecognized
	}
	if IsItem(text) {
		return ItemShaped
	}
	if IsTrade(text) {
		return TradeShaped
	}
	return Unrecognized
}

// IsItem reports whether text opens with a tooltip header and contains at
// least one section delimiter. It scans lines once and stops at the first
// delimiter.
func IsItem(text string) bool {
	header := 0
	for line := range strings.Lines(text) {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		switch {
		case line == itemDelimiter:
			return header == 2
		case header == 0 && strings.HasPrefix(line, classPrefix):
			header = 1
		case header < 2 && strings.HasPrefix(line, rarityPrefix):
			header = 2
		case header < 2:
			return false
		}
	}
	return false
}

// IsTrade reports whether any trade trigger matches text.
func IsTrade(text string) bool {
	_, ok := MatchTrade(text)
	return ok
}

// MatchTrade returns the first trade trigger matching text.
func MatchTrade(text string) (Trigger, bool) {
	for _, t := range TradeTriggers {
		if t.Regexp.MatchString(text) {
			return t, true
		}
	}
	return Trigger{}, false
}
