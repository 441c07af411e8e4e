package mirror

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/alecthomas/kong"

	"spriteforge/fileop"
	"spriteforge/parallel"
	"spriteforge/sheet"
	"spriteforge/sprite"
)

// CLICmd reflects finished sprites left to right, turning a left-facing
// set into a right-facing one. Existing files are never overwritten.
type CLICmd struct {
	Scan    string          `help:"Source folder to scan" default:"."`
	Dest    string          `help:"Destination folder for mirrored sprites. Relative to scan dir if not absolute." default:"mirrored"`
	Match   string          `help:"Only mirror files whose name matches this glob, e.g. '*_left.png'"`
	From    string          `help:"Name fragment replaced in the output name" default:"left"`
	To      string          `help:"Replacement for --from" default:"right"`
	Matcher *fileop.Matcher `kong:"-"`
}

func (c *CLICmd) Validate(kctx *kong.Context) error {
	scanDir, err := fileop.ScanDir(c.Scan)
	if err != nil {
		return err
	}
	c.Scan = scanDir

	if !filepath.IsAbs(c.Dest) {
		c.Dest = filepath.Join(scanDir, c.Dest)
	}
	if c.Dest == c.Scan && c.From == c.To {
		return fmt.Errorf("mirrored sprites would replace their sources in %q", c.Dest)
	}

	c.Matcher, err = fileop.NewMatcher(c.Match)
	return err
}

// DestName is the output name of a mirrored sprite: the last occurrence
// of from is replaced with to and the extension becomes .png.
func (c *CLICmd) DestName(name string) string {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	if c.From != "" {
		if i := strings.LastIndex(base, c.From); i >= 0 {
			base = base[:i] + c.To + base[i+len(c.From):]
		}
	}
	return base + ".png"
}

func (c *CLICmd) Run(ctx context.Context, worker parallel.WorkerFunc, wait parallel.WaitFunc) error {
	if err := fileop.MkdirAll(c.Dest); err != nil {
		return err
	}

	names, err := fileop.List(c.Scan, c.Matcher)
	if err != nil {
		return err
	}

	var mirroredCount, errCount atomic.Uint64
	for _, name := range names {
		worker(func(fileName string) func() {
			return func() {
				src := filepath.Join(c.Scan, fileName)
				dest := filepath.Join(c.Dest, c.DestName(fileName))
				if err := mirrorFile(ctx, src, dest); err != nil {
					errCount.Add(1)
					slog.Error("could not mirror sprite", "from", src, "to", dest, "error", err)
					return
				}
				mirroredCount.Add(1)
			}
		}(name))
	}

	wait(true)

	mirrored := mirroredCount.Load()
	errors := errCount.Load()
	slog.Info("stats", "mirrored", mirrored, "errors", errors, "total", mirrored+errors)

	if errors > 0 {
		return fmt.Errorf("error processing %d files", errors)
	}
	return ctx.Err()
}

func mirrorFile(ctx context.Context, src, dest string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	slog.Debug("mirroring", "from", src, "to", dest)

	if err := fileop.CheckDest(dest); err != nil {
		return err
	}

	img, err := sprite.DecodeFile(src)
	if err != nil {
		return err
	}

	_, err = fileop.WriteFile(dest, func(w io.Writer) error {
		return sheet.EncodePNG(w, sprite.Mirror(img))
	})
	return err
}
