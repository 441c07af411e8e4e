package extract

import (
	"context"
	"fmt"
	"image"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/alecthomas/kong"
	"github.com/dustin/go-humanize"

	"spriteforge/chroma"
	"spriteforge/fileop"
	"spriteforge/parallel"
	"spriteforge/sheet"
	"spriteforge/sprite"
)

type CLICmd struct {
	Scan      string          `help:"Source folder to scan" default:"."`
	Dest      string          `help:"Destination folder for sprites. Relative to scan dir if not absolute." default:"sprites"`
	Size      int             `help:"Sprite edge length in pixels" default:"32"`
	Match     string          `help:"Only process files whose name matches this glob, e.g. '*_{left,front}.png'"`
	Mirror    bool            `help:"Also write the left-right reflection of every sprite" default:"false"`
	Suffix    string          `help:"Name suffix of mirrored sprites" default:"_mirrored"`
	Chroma    string          `help:"TOML file overriding the chroma-key band" type:"existingfile"`
	Overwrite bool            `help:"Replace sprites already present in the destination folder" default:"false"`
	Key       chroma.Key      `kong:"-"`
	Matcher   *fileop.Matcher `kong:"-"`
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

	if c.Size <= 0 {
		return fmt.Errorf("invalid sprite size: %d", c.Size)
	}
	if c.Mirror && c.Suffix == "" {
		return fmt.Errorf("mirrored sprites need a name suffix")
	}

	if c.Matcher, err = fileop.NewMatcher(c.Match); err != nil {
		return err
	}

	c.Key = chroma.Magenta
	if c.Chroma != "" {
		if c.Key, err = chroma.LoadKey(c.Chroma); err != nil {
			return err
		}
	}

	return nil
}

func (c *CLICmd) Run(ctx context.Context, worker parallel.WorkerFunc, wait parallel.WaitFunc) error {
	if err := fileop.MkdirAll(c.Dest); err != nil {
		return err
	}

	names, err := fileop.List(c.Scan, c.Matcher)
	if err != nil {
		return err
	}

	var processedCount, emptyCount, errCount atomic.Uint64
	var written atomic.Int64
	for _, name := range names {
		worker(func(fileName string) func() {
			return func() {
				filePath := filepath.Join(c.Scan, fileName)
				logger := slog.Default().With("file", filePath)

				n, empty, err := c.process(ctx, logger, fileName)
				written.Add(n)
				if err != nil {
					errCount.Add(1)
					logger.Error("could not extract sprite", "error", err)
					return
				}
				if empty {
					emptyCount.Add(1)
				}
				processedCount.Add(1)
			}
		}(name))
	}

	wait(true)

	processed := processedCount.Load()
	errors := errCount.Load()
	slog.Info("stats", "processed", processed, "empty", emptyCount.Load(), "errors", errors,
		"total", processed+errors, "written", humanize.Bytes(uint64(written.Load())))

	if errors > 0 {
		return fmt.Errorf("error processing %d files", errors)
	}
	return ctx.Err()
}

func (c *CLICmd) process(ctx context.Context, logger *slog.Logger, fileName string) (written int64, empty bool, err error) {
	if err := ctx.Err(); err != nil {
		return 0, false, err
	}

	raw, err := sprite.DecodeFile(filepath.Join(c.Scan, fileName))
	if err != nil {
		return 0, false, err
	}
	s, err := sprite.New(ctx, raw, "", c.Size, c.Key)
	if err != nil {
		return 0, false, err
	}
	if empty = s.Empty(); empty {
		logger.Warn("no visible content outside the chroma key", "width", raw.Rect.Dx(), "height", raw.Rect.Dy())
	}

	base := strings.TrimSuffix(fileName, filepath.Ext(fileName))
	n, err := c.save(s.Processed, base+".png")
	written += n
	if err != nil {
		return written, empty, err
	}
	logger.Debug("extracted", "size", c.Size, "bytes", humanize.Bytes(uint64(n)))

	if c.Mirror {
		n, err = c.save(s.Mirrored().Processed, base+c.Suffix+".png")
		written += n
		if err != nil {
			return written, empty, err
		}
	}
	return written, empty, nil
}

func (c *CLICmd) save(img *image.NRGBA, destName string) (int64, error) {
	dest := filepath.Join(c.Dest, destName)
	if !c.Overwrite {
		if err := fileop.CheckDest(dest); err != nil {
			return 0, err
		}
	}
	return fileop.WriteFile(dest, func(w io.Writer) error {
		return sheet.EncodePNG(w, img)
	})
}
