// Package favicon loads and encodes the 64x64 PNG server icon shown in the
// client's server list, matching vanilla's data-URI convention.
package favicon

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"os"

	"github.com/nfnt/resize"
)

// Favicon is a ready-to-serialize "data:image/png;base64,..." URI.
type Favicon string

const dataURIPrefix = "data:image/png;base64,"

// Load reads a PNG from path, downscales it to 64x64 if necessary, and
// returns it as a data URI.
func Load(path string) (Favicon, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return "", fmt.Errorf("favicon: decoding %s: %w", path, err)
	}

	b := img.Bounds()
	if b.Dx() != 64 || b.Dy() != 64 {
		img = resize.Resize(64, 64, img, resize.Lanczos3)
	}

	buf := new(bytes.Buffer)
	if err := png.Encode(buf, img); err != nil {
		return "", err
	}
	return Favicon(dataURIPrefix + base64.StdEncoding.EncodeToString(buf.Bytes())), nil
}

func (f Favicon) String() string { return string(f) }
