package session

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrCorrupt is returned when a stored blob cannot be decoded.
var ErrCorrupt = errors.New("session: corrupt cache blob")

// Encode serializes every slot. Absent slots are written as null.
func Encode(s *State) ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("encode session: %w", err)
	}
	return data, nil
}

// Decode parses a blob written by Encode and applies p. Keys missing from
// the blob load as absent slots.
func Decode(data []byte, p Policy) (*State, error) {
	s := New()
	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	p.Apply(s)
	return s, nil
}
