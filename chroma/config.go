package chroma

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// LoadKey reads a key from a TOML file. Fields left out keep their
// Magenta value, so a file may override just the hue band:
//
//	hue_min = 270
//	hue_max = 345
func LoadKey(path string) (Key, error) {
	k := Magenta
	md, err := toml.DecodeFile(path, &k)
	if err != nil {
		return Key{}, fmt.Errorf("could not decode chroma key %q: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Key{}, fmt.Errorf("unknown keys in %q: %v", path, undecoded)
	}
	if err := k.Validate(); err != nil {
		return Key{}, fmt.Errorf("invalid chroma key %q: %w", path, err)
	}
	return k, nil
}
