package types

import (
	"fmt"
	"strings"
)

// HashMode selects the accuracy/speed tradeoff of the fingerprint provider
type HashMode int

const (
	// ModeAccurate computes the full perceptual hash
	ModeAccurate HashMode = iota
	// ModeFast trades accuracy for speed; mostly useful for exact duplicates
	ModeFast
)

// String returns the configuration name of the mode
func (m HashMode) String() string {
	switch m {
	case ModeAccurate:
		return "accurate"
	case ModeFast:
		return "fast"
	default:
		return fmt.Sprintf("HashMode(%d)", int(m))
	}
}

// MarshalText implements encoding.TextMarshaler
func (m HashMode) MarshalText() ([]byte, error) {
	switch m {
	case ModeAccurate, ModeFast:
		return []byte(m.String()), nil
	default:
		return nil, fmt.Errorf("unknown hash mode %d", int(m))
	}
}

// UnmarshalText implements encoding.TextUnmarshaler
func (m *HashMode) UnmarshalText(text []byte) error {
	parsed, err := ParseHashMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// ParseHashMode converts a mode name into a HashMode
func ParseHashMode(s string) (HashMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "accurate", "":
		return ModeAccurate, nil
	case "fast":
		return ModeFast, nil
	default:
		return ModeAccurate, fmt.Errorf("unknown hash mode %q (want accurate or fast)", s)
	}
}

// HashSettings is built once per run and handed to the fingerprint provider
type HashSettings struct {
	Resolution int      `json:"hash_size"`
	Mode       HashMode `json:"mode"`
}

// Width returns the fingerprint width in bits for these settings
func (s HashSettings) Width() int {
	return s.Resolution * s.Resolution
}

// Validate checks the settings are usable
func (s HashSettings) Validate() error {
	if s.Resolution <= 0 {
		return fmt.Errorf("hash resolution must be positive, got %d", s.Resolution)
	}
	if s.Mode != ModeAccurate && s.Mode != ModeFast {
		return fmt.Errorf("unknown hash mode %d", int(s.Mode))
	}
	return nil
}
