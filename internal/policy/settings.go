package policy

import (
	"maps"
	"sort"
	"strings"

	"github.com/eugenenazirov/greypolicy/internal/config"
)

// Settings is the effective policy of one message. A new map is built for
// every resolution.
type Settings map[Key]Value

// Clone returns a copy of s that never aliases the original.
func (s Settings) Clone() Settings {
	out := make(Settings, len(s))
	maps.Copy(out, s)
	return out
}

// Int returns the integer stored under key.
func (s Settings) Int(key Key) (int64, bool) {
	v, ok := s[key]
	if !ok {
		return 0, false
	}
	return v.Int()
}

// Float returns the float stored under key.
func (s Settings) Float(key Key) (float64, bool) {
	v, ok := s[key]
	if !ok {
		return 0, false
	}
	return v.Float()
}

// Str returns the string stored under key.
func (s Settings) Str(key Key) (string, bool) {
	v, ok := s[key]
	if !ok {
		return "", false
	}
	return v.Str()
}

// CheckGreylist reports whether greylisting is enabled; it is on unless a
// policy file sets CHECKGREYLIST to 0.
func (s Settings) CheckGreylist() bool {
	return s.toggle(KeyCheckGreylist)
}

// CheckSPF reports whether SPF checking is enabled; it is on unless a
// policy file sets CHECKSPF to 0.
func (s Settings) CheckSPF() bool {
	return s.toggle(KeyCheckSPF)
}

func (s Settings) toggle(key Key) bool {
	v, ok := s.Int(key)
	return !ok || v != 0
}

// OtherConfigs returns the dimension names listed in OTHERCONFIGS, trimmed
// and without empty entries.
func (s Settings) OtherConfigs() []string {
	raw, _ := s.Str(KeyOtherConfigs)
	var names []string
	for _, name := range strings.Split(raw, ",") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// Keys returns the stored keys in lexical order.
func (s Settings) Keys() []Key {
	keys := make([]Key, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Export converts s into plain values keyed by setting name.
func (s Settings) Export() map[string]any {
	out := make(map[string]any, len(s))
	for k, v := range s {
		out[string(k)] = v.Interface()
	}
	return out
}

// Defaults returns the static settings used when the policy store cannot be
// consulted at all.
func Defaults(cfg config.Config) Settings {
	return Settings{
		KeySPFSeedOnly:   IntValue(int64(cfg.DefaultSeedOnly)),
		KeyGreylistTime:  IntValue(int64(cfg.DefaultAllowTime)),
		KeyCheckGreylist: IntValue(1),
		KeyCheckSPF:      IntValue(1),
		KeyOtherConfigs:  StringValue(DimensionSender + "," + DimensionRecipient),
	}
}
