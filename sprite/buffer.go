package sprite

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"io"
	"os"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/vp8l"
	_ "golang.org/x/image/webp"
)

// Normalize returns img as a straight-alpha buffer anchored at (0,0) whose
// Pix holds exactly width*height*4 bytes. img itself is never returned.
func Normalize(img image.Image) *image.NRGBA {
	return imaging.Clone(img)
}

// Decode reads an encoded image, applying any EXIF orientation.
func Decode(r io.Reader) (*image.NRGBA, error) {
	return decode(r, "")
}

func decode(r io.Reader, source string) (*image.NRGBA, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, &DecodeError{Source: source, Err: err}
	}
	return Normalize(img), nil
}

// DecodeFile decodes the image stored at path.
func DecodeFile(path string) (*image.NRGBA, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open image %q: %w", path, err)
	}
	defer f.Close()

	return decode(f, path)
}

// DecodeDataURI decodes a base64 "data:image/...;base64," URI. A bare base64
// payload without the data: prefix is accepted too.
func DecodeDataURI(uri string) (*image.NRGBA, error) {
	payload := uri
	if rest, ok := strings.CutPrefix(uri, "data:"); ok {
		meta, data, found := strings.Cut(rest, ",")
		if !found {
			return nil, &DecodeError{Source: "data uri", Err: fmt.Errorf("missing payload separator")}
		}
		if !strings.HasSuffix(meta, ";base64") {
			return nil, &DecodeError{Source: "data uri", Err: fmt.Errorf("unsupported encoding %q", meta)}
		}
		payload = data
	}

	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, &DecodeError{Source: "data uri", Err: err}
	}

	return decode(bytes.NewReader(raw), "data uri")
}

// EncodeDataURI renders img as a PNG data URI.
func EncodeDataURI(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return "", fmt.Errorf("could not encode PNG: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
