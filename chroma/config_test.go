package chroma

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadKey(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) string {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
		return path
	}

	k, err := LoadKey(write("hue.toml", "hue_min = 270\nhue_max = 345\n"))
	if err != nil {
		t.Fatalf("LoadKey: %v", err)
	}
	want := Magenta
	want.HueMin, want.HueMax = 270, 345
	if k != want {
		t.Errorf("LoadKey = %+v, want %+v", k, want)
	}

	for name, body := range map[string]string{
		"inverted.toml": "hue_min = 300\nhue_max = 200\n",
		"unknown.toml":  "hue = 300\n",
		"syntax.toml":   "hue_min = \n",
	} {
		if _, err := LoadKey(write(name, body)); err == nil {
			t.Errorf("%s: LoadKey succeeded", name)
		}
	}
}
