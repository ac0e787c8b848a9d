// Package imagedata loads an image file and prepares it for a multimodal
// request: format sniffing, conversion of formats providers reject, optional
// downscaling and base64 encoding.
package imagedata

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"

	// Register decoders for the formats Load accepts.
	_ "image/gif"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// MIME types.
const (
	MIMEJPEG = "image/jpeg"
	MIMEPNG  = "image/png"
	MIMEGIF  = "image/gif"
	MIMEWebP = "image/webp"
	MIMEBMP  = "image/bmp"
	MIMETIFF = "image/tiff"
)

// JPEGQuality is used when an image has to be re-encoded as JPEG.
const JPEGQuality = 92

// ErrUnsupportedFormat means the bytes are not an image Load can decode.
var ErrUnsupportedFormat = errors.New("unsupported image format")

// Options controls how an image is prepared.
type Options struct {
	// MaxDimension bounds the longest side in pixels. Zero keeps the
	// original size.
	MaxDimension int

	// StrictFormats limits pass-through to JPEG and PNG; GIF and WebP are
	// re-encoded as JPEG too.
	StrictFormats bool
}

func (o Options) passThrough(mime string) bool {
	switch mime {
	case MIMEJPEG, MIMEPNG:
		return true
	case MIMEGIF, MIMEWebP:
		return !o.StrictFormats
	default:
		return false
	}
}

// Image is an encoded image ready to attach to a request.
type Image struct {
	Path   string
	MIME   string
	Data   []byte
	Width  int
	Height int

	// Converted is set when the source format was re-encoded.
	Converted bool

	// Resized is set when the image was downscaled.
	Resized bool
}

// Load reads path and prepares it. A missing file yields an error matching
// os.ErrNotExist so callers can fall back to a text-only request.
func Load(path string, opts Options) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading image: %w", err)
	}

	img, err := Prepare(data, opts)
	if err != nil {
		return nil, fmt.Errorf("preparing %s: %w", path, err)
	}
	img.Path = path

	return img, nil
}

// Prepare sniffs data and returns it unchanged when the format is accepted
// and the size fits. Otherwise it decodes, optionally downscales with
// CatmullRom and re-encodes: PNG stays PNG, everything else becomes JPEG.
func Prepare(data []byte, opts Options) (*Image, error) {
	mime := DetectMIME(data)
	if mime == "" {
		return nil, ErrUnsupportedFormat
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnsupportedFormat, err)
	}

	w, h := fitDimensions(cfg.Width, cfg.Height, opts.MaxDimension)
	resize := w != cfg.Width || h != cfg.Height

	keep := opts.passThrough(mime)
	if keep && !resize {
		return &Image{MIME: mime, Data: data, Width: cfg.Width, Height: cfg.Height}, nil
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}

	if resize {
		src = resizeImage(src, w, h)
	}

	out := &Image{Width: w, Height: h, Resized: resize, Converted: !keep}

	var buf bytes.Buffer
	if mime == MIMEPNG {
		err = png.Encode(&buf, src)
		out.MIME = MIMEPNG
	} else {
		err = jpeg.Encode(&buf, src, &jpeg.Options{Quality: JPEGQuality})
		out.MIME = MIMEJPEG
		out.Converted = out.Converted || mime != MIMEJPEG
	}
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", out.MIME, err)
	}
	out.Data = buf.Bytes()

	return out, nil
}

// Base64 returns the standard base64 encoding of Data.
func (i *Image) Base64() string {
	return base64.StdEncoding.EncodeToString(i.Data)
}

// DataURL returns "data:<mime>;base64,<payload>".
func (i *Image) DataURL() string {
	return "data:" + i.MIME + ";base64," + i.Base64()
}

// DetectMIME returns the MIME type indicated by the magic bytes of data, or
// "" when it is not a recognised image.
func DetectMIME(data []byte) string {
	switch {
	case len(data) >= 8 && bytes.Equal(data[:8], []byte("\x89PNG\r\n\x1a\n")):
		return MIMEPNG
	case len(data) >= 3 && data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF:
		return MIMEJPEG
	case len(data) >= 6 && (string(data[:6]) == "GIF87a" || string(data[:6]) == "GIF89a"):
		return MIMEGIF
	case len(data) >= 12 && string(data[:4]) == "RIFF" && string(data[8:12]) == "WEBP":
		return MIMEWebP
	case len(data) >= 2 && string(data[:2]) == "BM":
		return MIMEBMP
	case len(data) >= 4 && (string(data[:4]) == "II*\x00" || string(data[:4]) == "MM\x00*"):
		return MIMETIFF
	default:
		return ""
	}
}

// fitDimensions scales w x h down to fit within maxDim, preserving aspect
// ratio. maxDim <= 0 disables scaling.
func fitDimensions(w, h, maxDim int) (int, int) {
	if maxDim <= 0 || (w <= maxDim && h <= maxDim) {
		return w, h
	}
	if w >= h {
		return maxDim, max(1, h*maxDim/w)
	}
	return max(1, w*maxDim/h), maxDim
}

func resizeImage(src image.Image, w, h int) image.Image {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)
	return dst
}
