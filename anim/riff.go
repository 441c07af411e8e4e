package anim

import (
	"encoding/binary"
	"fmt"
	"image/color"
	"io"

	"golang.org/x/image/riff"
)

/*
typedef struct tagLOGPALETTE {
  WORD         palVersion;
  WORD         palNumEntries;
  PALETTEENTRY palPalEntry[1];
} LOGPALETTE;

typedef struct tagPALETTEENTRY {
  BYTE peRed;
  BYTE peGreen;
  BYTE peBlue;
  BYTE peFlags;
} PALETTEENTRY;
*/

var (
	riffType = riff.FourCC{'R', 'I', 'F', 'F'}
	palType  = riff.FourCC{'P', 'A', 'L', ' '}
	dataType = riff.FourCC{'d', 'a', 't', 'a'}
)

// ReadPAL loads the first palette of a RIFF PAL file. PAL entries carry no
// alpha, every color comes back opaque.
func ReadPAL(r io.Reader) (color.Palette, error) {
	formType, rd, err := riff.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("could not open RIFF stream: %w", err)
	} else if formType != palType {
		return nil, fmt.Errorf("unsupported RIFF content type: %s", string(formType[:]))
	}

	for {
		id, _, data, err := rd.Next()
		if err == io.EOF {
			return nil, fmt.Errorf("no palette chunk found")
		} else if err != nil {
			return nil, fmt.Errorf("could not read chunk: %w", err)
		}
		if id == dataType {
			return readPalette(data)
		}
	}
}

func readPalette(r io.Reader) (color.Palette, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, fmt.Errorf("could not read palette header: %w", err)
	}

	if ver := binary.BigEndian.Uint16(hdr[:2]); ver != 3 {
		return nil, fmt.Errorf("unsupported palette version: %d", ver)
	}

	count := binary.LittleEndian.Uint16(hdr[2:])
	res := make(color.Palette, count)
	var entry [4]byte
	for i := range count {
		if _, err := io.ReadFull(r, entry[:]); err != nil {
			return res[:i], fmt.Errorf("could not read color %d/%d: %w", i, count, err)
		}
		res[i] = color.NRGBA{R: entry[0], G: entry[1], B: entry[2], A: 0xFF}
	}

	return res, nil
}

// WritePAL stores pal as a single-chunk RIFF PAL document.
func WritePAL(w io.Writer, pal color.Palette) (int64, error) {
	chunk := 4 + len(pal)*4 // palVersion + palNumEntries + 4 bytes/color
	buf := make([]byte, 0, 12+8+chunk)

	buf = append(buf, riffType[:]...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(4+8+chunk))
	buf = append(buf, palType[:]...)

	buf = append(buf, dataType[:]...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(chunk))
	buf = append(buf, 0, 0x03)
	buf = binary.LittleEndian.AppendUint16(buf, uint16(len(pal)))

	for _, col := range pal {
		c := color.NRGBAModel.Convert(col).(color.NRGBA)
		buf = append(buf, c.R, c.G, c.B, 0x00)
	}

	n, err := w.Write(buf)
	if err != nil {
		return int64(n), fmt.Errorf("could not write palette: %w", err)
	} else if n != len(buf) {
		return int64(n), fmt.Errorf("wrote only %d/%d bytes", n, len(buf))
	}
	return int64(n), nil
}
