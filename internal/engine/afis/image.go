package afis

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"io"
	"os"

	wsq "github.com/jtejido/go-wsq"
	"github.com/jtejido/sourceafis"

	_ "image/jpeg"
	_ "image/png"

	_ "github.com/spakin/netpbm"
)

// loadImage reads and decodes a fingerprint image, serving repeat reads of
// unchanged files from the LRU cache.
func (e *Engine) loadImage(path string) (*sourceafis.Image, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	key := fmt.Sprintf("%s|%d|%d", path, info.ModTime().UnixNano(), info.Size())
	if img, ok := e.images.Get(key); ok {
		return img, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	img, err := decodeImage(data)
	if err != nil {
		return nil, err
	}
	e.images.Add(key, img)
	return img, nil
}

// decodeImage tries the registered stdlib codecs (PNG, JPEG, plus the
// netpbm formats) and falls back to WSQ.
func decodeImage(data []byte) (*sourceafis.Image, error) {
	reader := bytes.NewReader(data)
	if img, _, err := image.Decode(reader); err == nil {
		return toGray(img)
	}

	reader.Seek(0, io.SeekStart)
	if img, err := wsq.Decode(reader); err == nil {
		return toGray(img)
	}

	return nil, fmt.Errorf("unsupported image format - must be PNG, JPEG, PNM or WSQ")
}

func toGray(img image.Image) (*sourceafis.Image, error) {
	bounds := img.Bounds()
	gray := image.NewGray(bounds)
	for x := 0; x < bounds.Max.X; x++ {
		for y := 0; y < bounds.Max.Y; y++ {
			gray.Set(x, y, color.GrayModel.Convert(img.At(x, y)))
		}
	}
	return sourceafis.NewFromGray(gray)
}
