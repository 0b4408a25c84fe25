package chat

import "sync"

// Store is the concurrent registry of rooms. Rooms are created lazily
// on first reference and live for the rest of the process. The store
// lock covers only registry access; per-room mutation is serialized by
// each room's own mutex, so there is no global lock on the hot path.
type Store struct {
	mu    sync.RWMutex
	rooms map[string]*Room
}

// NewStore returns an empty room registry.
func NewStore() *Store {
	return &Store{rooms: make(map[string]*Room)}
}

// GetOrCreate returns the room with the given name, creating it if
// necessary. Concurrent calls with the same name always resolve to the
// same *Room: the write path rechecks under the exclusive lock so a
// lost race never produces a duplicate.
func (s *Store) GetOrCreate(name string) *Room {
	s.mu.RLock()
	room, ok := s.rooms[name]
	s.mu.RUnlock()
	if ok {
		return room
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if room, ok := s.rooms[name]; ok {
		return room
	}
	room = newRoom(name)
	s.rooms[name] = room
	return room
}

// Lookup returns the room with the given name, or nil if it was never
// created. Unlike GetOrCreate it has no side effects.
func (s *Store) Lookup(name string) *Room {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rooms[name]
}

// Names returns the names of all rooms created so far.
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.rooms))
	for name := range s.rooms {
		names = append(names, name)
	}
	return names
}

// Count returns the number of rooms created so far.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rooms)
}
