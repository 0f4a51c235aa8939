package types

import "strings"

// Source identifies where a snapshot came from. Each (profile, region) pair
// owns its own cache location so mixed-tenant data never shares a store.
type Source struct {
	Profile string `json:"profile"`
	Region  string `json:"region"`
	Tenancy string `json:"tenancy,omitempty"`
}

// Key returns a filesystem-safe identifier for this source.
func (s Source) Key() string {
	profile := s.Profile
	if profile == "" {
		profile = "default"
	}
	key := profile
	if s.Region != "" {
		key += "@" + s.Region
	}
	return sanitizeKey(key)
}

func sanitizeKey(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_' || r == '.' || r == '@':
			return r
		default:
			return '_'
		}
	}, s)
}
