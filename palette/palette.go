package palette

import (
	"fmt"
	"image/color"
	"os"
	"slices"
	"strings"

	"spriteforge/anim"
)

func hex(vals ...uint32) color.Palette {
	p := make(color.Palette, len(vals))
	for i, v := range vals {
		p[i] = color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xFF}
	}
	return p
}

func gray(n int) color.Palette {
	p := make(color.Palette, n)
	for i := range n {
		y := uint8(i * 255 / (n - 1))
		p[i] = color.NRGBA{R: y, G: y, B: y, A: 0xFF}
	}
	return p
}

var builtin = map[string]color.Palette{
	"bw":      hex(0x000000, 0xFFFFFF),
	"gray16":  gray(16),
	"gameboy": hex(0x0F380F, 0x306230, 0x8BAC0F, 0x9BBC0F),
	"pico8": hex(
		0x000000, 0x1D2B53, 0x7E2553, 0x008751, 0xAB5236, 0x5F574F, 0xC2C3C7, 0xFFF1E8,
		0xFF004D, 0xFFA300, 0xFFEC27, 0x00E436, 0x29ADFF, 0x83769C, 0xFF77A8, 0xFFCCAA,
	),
	"vga16": hex(
		0x000000, 0x0000AA, 0x00AA00, 0x00AAAA, 0xAA0000, 0xAA00AA, 0xAA5500, 0xAAAAAA,
		0x555555, 0x5555FF, 0x55FF55, 0x55FFFF, 0xFF5555, 0xFF55FF, 0xFFFF55, 0xFFFFFF,
	),
}

// Names lists the built-in palettes.
func Names() []string {
	names := make([]string, 0, len(builtin))
	for name := range builtin {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Load returns a built-in palette by name, or reads a RIFF PAL file.
// The result is a fresh copy the caller may modify.
func Load(name string) (color.Palette, error) {
	if p, ok := builtin[strings.ToLower(name)]; ok {
		return slices.Clone(p), nil
	}

	f, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("unknown palette %q (built in: %s): %w", name, strings.Join(Names(), ", "), err)
	}
	defer f.Close()

	pal, err := anim.ReadPAL(f)
	if err != nil {
		return nil, fmt.Errorf("could not load palette %q: %w", name, err)
	}
	if len(pal) == 0 {
		return nil, fmt.Errorf("palette %q is empty", name)
	}
	return pal, nil
}
