package item

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rareArmour = `Item Class: Body Armours
Rarity: Rare
Doom Shell
Astral Plate
--------
Quality: +20% (augmented)
Armour: 1021 (augmented)
--------
Requirements:
Level: 62
Str: 180
--------
Sockets: R-R-R B-B-G
--------
Item Level: 84
--------
+12% to all Elemental Resistances (implicit)
--------
+90 to maximum Life
+40% to Fire Resistance
+35% to Cold Resistance
--------
Corrupted
`

const unidentifiedArmour = `Item Class: Body Armours
Rarity: Rare
Astral Plate
--------
Armour: 711
--------
Requirements:
Level: 62
Str: 180
--------
Item Level: 84
--------
+12% to all Elemental Resistances (implicit)
--------
Unidentified
`

const uniqueRing = `Rarity: Unique
Berek's Grip
Two-Stone Ring
--------
Requirements:
Level: 20
--------
Item Level: 75
--------
+16% to Cold and Lightning Resistances (implicit)
--------
+30 to maximum Life
Adds 1 to 50 Lightning Damage to Attacks
--------
Berek hid from Storm's Thunder
--------
Note: ~b/o 5 chaos
`

const currency = `Item Class: Stackable Currency
Rarity: Currency
Chaos Orb
--------
Stack Size: 12/20
--------
Reforges a rare item with new random modifiers
--------
Right click this item then left click a rare item to apply it.
`

func TestParse_IdentifiedRare(t *testing.T) {
	it, err := Parse(rareArmour)
	require.NoError(t, err)

	assert.Equal(t, Item{
		Class:      "Body Armours",
		Rarity:     RarityRare,
		Name:       "Doom Shell",
		BaseType:   "Astral Plate",
		ItemLevel:  84,
		Quality:    20,
		Sockets:    "R-R-R B-B-G",
		Identified: true,
		Corrupted:  true,
		Implicits:  []string{"+12% to all Elemental Resistances"},
		Modifiers: []string{
			"+90 to maximum Life",
			"+40% to Fire Resistance",
			"+35% to Cold Resistance",
		},
	}, it)
}

func TestParse_Unidentified(t *testing.T) {
	it, err := Parse(unidentifiedArmour)
	require.NoError(t, err)

	assert.False(t, it.Identified)
	assert.Equal(t, RarityRare, it.Rarity)
	assert.Equal(t, "Astral Plate", it.Name)
	assert.Equal(t, 84, it.ItemLevel)
	assert.Empty(t, it.Modifiers)
	assert.Empty(t, it.Implicits)
}

func TestParse_UniqueFlavourAndNote(t *testing.T) {
	it, err := Parse(uniqueRing)
	require.NoError(t, err)

	assert.Empty(t, it.Class)
	assert.Equal(t, "Berek's Grip", it.Name)
	assert.Equal(t, "Two-Stone Ring", it.BaseType)
	assert.Equal(t, []string{"+30 to maximum Life", "Adds 1 to 50 Lightning Damage to Attacks"}, it.Modifiers)
	assert.Equal(t, "Berek hid from Storm's Thunder", it.Flavour)
	assert.Equal(t, "~b/o 5 chaos", it.Note)
}

func TestParse_CurrencyHasNoModifiers(t *testing.T) {
	it, err := Parse(currency)
	require.NoError(t, err)

	assert.True(t, it.Identified)
	assert.Equal(t, RarityCurrency, it.Rarity)
	assert.Equal(t, "Chaos Orb", it.Name)
	assert.Equal(t, "Chaos Orb", it.BaseType)
	assert.Empty(t, it.Modifiers)
}

func TestParse_MagicDropsBaseType(t *testing.T) {
	text := "Rarity: Magic\nSapphire Ring of the Whelpling\n--------\nItem Level: 10\n--------\n+20% to Cold Resistance (implicit)\n--------\n+5 to maximum Life\n"

	it, err := Parse(text)
	require.NoError(t, err)

	assert.Equal(t, "Sapphire Ring of the Whelpling", it.Name)
	assert.Empty(t, it.BaseType)
	assert.Equal(t, []string{"+5 to maximum Life"}, it.Modifiers)
}

func TestParse_CRLF(t *testing.T) {
	it, err := Parse(strings.ReplaceAll(rareArmour, "\n", "\r\n"))
	require.NoError(t, err)
	assert.Equal(t, "Doom Shell", it.Name)
	assert.Len(t, it.Modifiers, 3)
}

func TestParse_Failures(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"empty", ""},
		{"plain text", "hello world"},
		{"single section", "Rarity: Rare\nDoom Shell\nAstral Plate"},
		{"missing rarity", "Doom Shell\nAstral Plate\n--------\nItem Level: 84"},
		{"too many name lines", "Rarity: Rare\nA\nB\nC\n--------\nItem Level: 1"},
		{"no name lines", "Rarity: Rare\n--------\nItem Level: 1"},
		{"only delimiters", "--------\n--------\n--------"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.text)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrParse), "got %v", err)
		})
	}
}

func TestSections(t *testing.T) {
	got := Sections("a\n  b  \n--------\n\n--------\nc\n")
	assert.Equal(t, [][]string{{"a", "b"}, {"c"}}, got)
}

func TestLeadingInt(t *testing.T) {
	assert.Equal(t, 20, leadingInt("+20% (augmented)"))
	assert.Equal(t, 84, leadingInt("84"))
	assert.Equal(t, 0, leadingInt("abc"))
	assert.Equal(t, 0, leadingInt(""))
}
