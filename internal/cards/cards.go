// internal/cards/cards.go
package cards

import (
	"fmt"
	"strings"
)

// Suit is one of the four Italian card suits.
type Suit string

const (
	Bastoni Suit = "bastoni"
	Coppe   Suit = "coppe"
	Denari  Suit = "denari"
	Spade   Suit = "spade"
)

// Suits returns the suits in their canonical order.
func Suits() []Suit {
	return []Suit{Bastoni, Coppe, Denari, Spade}
}

// Rank is a card face. Numeric faces use their digit, court faces their name.
type Rank string

const (
	Asso    Rank = "1"
	Due     Rank = "2"
	Tre     Rank = "3"
	Quattro Rank = "4"
	Cinque  Rank = "5"
	Sei     Rank = "6"
	Sette   Rank = "7"
	Fante   Rank = "fante"
	Cavallo Rank = "cavallo"
	Re      Rank = "re"
)

// Ranks returns the ranks in their canonical order.
func Ranks() []Rank {
	return []Rank{Asso, Due, Tre, Quattro, Cinque, Sei, Sette, Fante, Cavallo, Re}
}

var validSuits = map[Suit]bool{Bastoni: true, Coppe: true, Denari: true, Spade: true}

var validRanks = map[Rank]bool{
	Asso: true, Due: true, Tre: true, Quattro: true, Cinque: true,
	Sei: true, Sette: true, Fante: true, Cavallo: true, Re: true,
}

// Card is an immutable suit/rank pair, compared by value.
type Card struct {
	Suit Suit
	Rank Rank
}

// String renders the wire form "suit:rank".
func (c Card) String() string {
	return string(c.Suit) + ":" + string(c.Rank)
}

// Parse decodes a "suit:rank" token.
func Parse(s string) (Card, error) {
	suit, rank, ok := strings.Cut(s, ":")
	if !ok || !validSuits[Suit(suit)] || !validRanks[Rank(rank)] {
		return Card{}, fmt.Errorf("invalid card: %s", s)
	}
	return Card{Suit: Suit(suit), Rank: Rank(rank)}, nil
}

// MarshalText makes cards serialize as their wire form.
func (c Card) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Card) UnmarshalText(data []byte) error {
	parsed, err := Parse(string(data))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// FullDeck builds the 40-card suit x rank product in canonical order.
// Callers shuffle it themselves.
func FullDeck() []Card {
	deck := make([]Card, 0, len(Suits())*len(Ranks()))
	for _, suit := range Suits() {
		for _, rank := range Ranks() {
			deck = append(deck, Card{Suit: suit, Rank: rank})
		}
	}
	return deck
}
