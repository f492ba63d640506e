// internal/game/variants.go
package game

// VariantInfo describes one playable game family: how to build a fresh
// session and how to rebuild a suspended one. The table below is the whole
// registry; adding a variant means adding a row.
type VariantInfo struct {
	Name       string
	Version    int
	NumPlayers int
	HandSize   int
	New        func(id string) Game
	Restore    func(id string, data []byte) (Game, error)
}

var variants = map[string]VariantInfo{
	"briscola": {
		Name:       "Briscola",
		Version:    briscolaVersion,
		NumPlayers: 2,
		HandSize:   3,
		New:        func(id string) Game { return NewBriscola(id) },
		Restore:    restoreBriscola,
	},
	"scopa": {
		Name:       "Scopa",
		Version:    scopaVersion,
		NumPlayers: 2,
		HandSize:   6,
		New:        func(id string) Game { return NewScopa(id) },
		Restore:    restoreScopa,
	},
}

// Lookup resolves a wire game type ("briscola", "scopa") to its variant.
func Lookup(gameType string) (VariantInfo, bool) {
	v, ok := variants[gameType]
	return v, ok
}

// VariantNames lists the registered wire game types.
func VariantNames() []string {
	names := make([]string, 0, len(variants))
	for name := range variants {
		names = append(names, name)
	}
	return names
}
