package domain

import "fmt"

// Mode is the connectivity policy consulted once at the start of every
// sync-layer operation: reads go to the gateway when online and to the cache
// when offline; writes require ModeOnline.
type Mode int

const (
	ModeOffline Mode = iota
	ModeOnline
)

func (m Mode) String() string {
	if m == ModeOnline {
		return "online"
	}
	return "offline"
}

// ModeFor converts a boolean online flag into a Mode.
func ModeFor(online bool) Mode {
	if online {
		return ModeOnline
	}
	return ModeOffline
}

// LoadState describes where a collection's current items came from.
type LoadState int

const (
	StateUninitialized LoadState = iota
	StateLoading
	StateLoaded
	// StateLoadedFromCache is not sticky: the next successful gateway read
	// replaces it with StateLoaded.
	StateLoadedFromCache
)

func (s LoadState) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StateLoadedFromCache:
		return "loaded_from_cache"
	default:
		return "uninitialized"
	}
}

// MarshalText lets LoadState appear as a readable string in JSON payloads.
func (s LoadState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses the names produced by MarshalText.
func (s *LoadState) UnmarshalText(b []byte) error {
	for _, candidate := range []LoadState{StateUninitialized, StateLoading, StateLoaded, StateLoadedFromCache} {
		if candidate.String() == string(b) {
			*s = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown load state %q", b)
}
