// internal/game/store.go
package game

import "sync"

// Key identifies a game session across the active arena and the durable
// store: the variant name plus the client-chosen game id.
type Key struct {
	Type string
	ID   string
}

func (k Key) String() string {
	return k.Type + "/" + k.ID
}

// Store is the arena of live games. Eviction is explicit: the connection
// layer deletes an entry when its last connection detaches, so lifetime
// never depends on garbage-collector behavior.
type Store struct {
	mu    sync.Mutex
	games map[Key]Game
}

func NewStore() *Store {
	return &Store{games: make(map[Key]Game)}
}

func (s *Store) Get(k Key) (Game, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.games[k]
	return g, ok
}

func (s *Store) Put(k Key, g Game) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.games[k] = g
}

func (s *Store) Delete(k Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.games, k)
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.games)
}

// Each calls fn for every live game, under the store lock.
func (s *Store) Each(fn func(k Key, g Game)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, g := range s.games {
		fn(k, g)
	}
}
