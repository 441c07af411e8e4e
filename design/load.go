package design

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"spriteforge/chroma"
)

// BackupSource marks a multi-design backup file.
const BackupSource = "pixel-art-spritesheet-creator-backup"

var ErrFormat = errors.New("unrecognised design format")

type tomlPose struct {
	Name       string   `toml:"name"`
	Prompt     string   `toml:"prompt"`
	Viewpoints []string `toml:"viewpoints"`
	Mirror     *bool    `toml:"mirror"`
}

type tomlCell struct {
	Pose      string `toml:"pose"`
	Frame     int    `toml:"frame"`
	Viewpoint string `toml:"viewpoint"`
	Image     string `toml:"image"`
	Prompt    string `toml:"prompt"`
}

type tomlDesign struct {
	Name       string     `toml:"name"`
	Prompt     string     `toml:"prompt"`
	SpriteSize int        `toml:"sprite_size"`
	FrameCount int        `toml:"frame_count"`
	Animated   bool       `toml:"animated"`
	Viewpoints []string   `toml:"viewpoints"`
	Chroma     chroma.Key `toml:"chroma"`
	Poses      []tomlPose `toml:"poses"`
	Cells      []tomlCell `toml:"cells"`
}

// LoadTOML reads a hand-written layout. Cell images are paths, resolved
// against the directory of the file by Build.
//
//	name = "Knight"
//	sprite_size = 32
//	animated = true
//	frame_count = 4
//
//	[[poses]]
//	name = "Walk"
//	viewpoints = ["front", "left", "right"]
//
//	[[cells]]
//	pose = "Walk"
//	frame = 0
//	viewpoint = "left"
//	image = "walk_left_0.png"
func LoadTOML(path string) (*Design, error) {
	// Keys missing from a [chroma] table keep their magenta default.
	td := tomlDesign{Chroma: chroma.Magenta}
	md, err := toml.DecodeFile(path, &td)
	if err != nil {
		return nil, fmt.Errorf("could not decode design %q: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown keys in design %q: %v", path, undecoded)
	}

	d := &Design{
		Name:       td.Name,
		Prompt:     td.Prompt,
		SpriteSize: td.SpriteSize,
		FrameCount: td.FrameCount,
		Animated:   td.Animated,
		Viewpoints: td.Viewpoints,
		Key:        td.Chroma,
	}
	if d.SpriteSize == 0 {
		d.SpriteSize = DefaultSpriteSize
	}
	if d.FrameCount == 0 {
		d.FrameCount = DefaultFrameCount
	}
	if len(d.Viewpoints) == 0 {
		d.Viewpoints = slices.Clone(AllViewpoints)
	}

	for _, p := range td.Poses {
		d.Poses = append(d.Poses, Pose{
			Name:       p.Name,
			Prompt:     p.Prompt,
			Viewpoints: p.Viewpoints,
			Mirror:     p.Mirror == nil || *p.Mirror,
		})
	}
	if len(d.Poses) == 0 {
		d.Poses = []Pose{defaultPose()}
	}

	for i, c := range td.Cells {
		pose := 0
		if c.Pose != "" {
			if pose = d.PoseIndex(c.Pose); pose < 0 {
				return nil, fmt.Errorf("cell %d: unknown pose %q", i, c.Pose)
			}
		}
		if c.Frame < 0 || c.Frame >= d.FramesPerPose() {
			return nil, fmt.Errorf("cell %d: frame %d out of range", i, c.Frame)
		}
		col := d.Col(c.Viewpoint)
		if col < 0 {
			return nil, fmt.Errorf("cell %d: unknown viewpoint %q", i, c.Viewpoint)
		}
		if c.Image == "" {
			return nil, fmt.Errorf("cell %d: no image", i)
		}
		d.cells = append(d.cells, source{
			Row:    d.Row(pose, c.Frame),
			Col:    col,
			Image:  c.Image,
			Prompt: c.Prompt,
		})
	}

	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("invalid design %q: %w", path, err)
	}
	return d, nil
}

func defaultPose() Pose {
	return Pose{Name: "Standing", Viewpoints: []string{"front"}, Mirror: true}
}

type jsonSprite struct {
	ID         string `json:"id"`
	ImageURL   string `json:"imageUrl"`
	PreviewURL string `json:"previewUrl,omitempty"`
	Prompt     string `json:"prompt"`
}

type jsonPose struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Prompt     string   `json:"prompt,omitempty"`
	Viewpoints []string `json:"viewpoints"`
}

type jsonDesign struct {
	ID                 string          `json:"id"`
	Name               string          `json:"name"`
	Prompt             string          `json:"prompt"`
	SpriteSize         int             `json:"spriteSize"`
	FrameCount         int             `json:"frameCount,omitempty"`
	GenerateAnimation  *bool           `json:"generateAnimation,omitempty"`
	AnimationPoses     []jsonPose      `json:"animationPoses"`
	SelectedViewpoints []string        `json:"selectedViewpoints,omitempty"`
	SpriteGrid         [][]*jsonSprite `json:"spriteGrid"`
	CreatedAt          int64           `json:"createdAt,omitempty"`
	LastModified       int64           `json:"lastModified,omitempty"`
}

type jsonBackup struct {
	Source  string            `json:"source"`
	Version int               `json:"version"`
	Designs []json.RawMessage `json:"designs"`
}

// LoadJSON reads either a single exported design or a backup holding
// several. Older exports that only list selected viewpoints, or nothing at
// all, get a single "Standing" pose.
func LoadJSON(r io.Reader) ([]*Design, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("could not read design: %w", err)
	}

	var head struct {
		Source string  `json:"source"`
		Name   *string `json:"name"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("could not decode design: %w", err)
	}

	var raws []json.RawMessage
	switch {
	case head.Source == BackupSource:
		var b jsonBackup
		if err := json.Unmarshal(data, &b); err != nil {
			return nil, fmt.Errorf("could not decode backup: %w", err)
		}
		raws = b.Designs
	case head.Name != nil:
		raws = []json.RawMessage{data}
	default:
		return nil, ErrFormat
	}

	designs := make([]*Design, 0, len(raws))
	for i, raw := range raws {
		var jd jsonDesign
		if err := json.Unmarshal(raw, &jd); err != nil {
			return nil, fmt.Errorf("could not decode design %d: %w", i, err)
		}
		d, err := fromJSON(jd)
		if err != nil {
			return nil, fmt.Errorf("invalid design %d (%q): %w", i, jd.Name, err)
		}
		designs = append(designs, d)
	}
	return designs, nil
}

// LoadJSONFile is LoadJSON on a file.
func LoadJSONFile(path string) ([]*Design, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open design %q: %w", path, err)
	}
	defer f.Close()
	return LoadJSON(f)
}

// Load picks the decoder from the file extension and returns the first
// design when a backup holds several.
func Load(path string) (*Design, error) {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return LoadTOML(path)
	}
	designs, err := LoadJSONFile(path)
	if err != nil {
		return nil, err
	}
	if len(designs) == 0 {
		return nil, fmt.Errorf("no designs in %q", path)
	}
	return designs[0], nil
}

func fromJSON(jd jsonDesign) (*Design, error) {
	d := &Design{
		ID:         jd.ID,
		Name:       jd.Name,
		Prompt:     jd.Prompt,
		SpriteSize: jd.SpriteSize,
		FrameCount: jd.FrameCount,
		Viewpoints: slices.Clone(AllViewpoints),
		Key:        chroma.Magenta,
	}
	if d.ID == "" {
		d.ID = strconv.FormatInt(jd.CreatedAt, 10)
	}
	if d.SpriteSize == 0 {
		d.SpriteSize = DefaultSpriteSize
	}

	switch {
	case len(jd.AnimationPoses) > 0:
		for _, p := range jd.AnimationPoses {
			name := p.Name
			if name == "" {
				name = "Pose"
			}
			d.Poses = append(d.Poses, Pose{
				Name:       name,
				Prompt:     p.Prompt,
				Viewpoints: p.Viewpoints,
				Mirror:     true,
			})
		}
	case len(jd.SelectedViewpoints) > 0:
		p := defaultPose()
		p.Viewpoints = jd.SelectedViewpoints
		d.Poses = []Pose{p}
	default:
		d.Poses = []Pose{defaultPose()}
	}

	// Exports written before animation support carry neither field; a grid
	// taller than the pose list can only come from animated frames.
	switch {
	case jd.GenerateAnimation != nil:
		d.Animated = *jd.GenerateAnimation
	default:
		d.Animated = len(jd.SpriteGrid) > len(d.Poses)
	}
	if d.FrameCount == 0 {
		d.FrameCount = DefaultFrameCount
		if d.Animated && len(jd.SpriteGrid)%len(d.Poses) == 0 {
			d.FrameCount = len(jd.SpriteGrid) / len(d.Poses)
		}
	}

	rows, cols := d.Shape()
	for r, row := range jd.SpriteGrid {
		for c, s := range row {
			if s == nil || s.ImageURL == "" {
				continue
			}
			if r >= rows || c >= cols {
				return nil, fmt.Errorf("sprite at (%d, %d) outside the %dx%d grid", r, c, rows, cols)
			}
			d.cells = append(d.cells, source{
				Row:    r,
				Col:    c,
				Image:  s.ImageURL,
				Prompt: s.Prompt,
			})
		}
	}

	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}
