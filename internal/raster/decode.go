package raster

import (
	"bufio"
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	"github.com/gen2brain/avif"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/spherical/source-ingest/internal/domain"
)

// Decode reads a png, jpeg, webp, tiff or avif image. The format is sniffed
// from the content; hint only picks the avif decoder up front.
func Decode(r io.Reader, hint string) (image.Image, error) {
	if domain.NormalizeExtension(hint) == "avif" {
		img, err := avif.Decode(r)
		if err != nil {
			return nil, domain.EncodingError("avif decode failed", err)
		}
		return img, nil
	}

	br := bufio.NewReader(r)
	img, _, err := image.Decode(br)
	if err != nil {
		return nil, domain.EncodingError(fmt.Sprintf("image decode failed (hint %q)", hint), err)
	}
	return img, nil
}

// DecodeBytes decodes an in-memory image.
func DecodeBytes(data []byte, hint string) (image.Image, error) {
	return Decode(bytes.NewReader(data), hint)
}

// DecodeFile decodes the image at path.
func DecodeFile(path, hint string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, domain.IOError("open image", err)
	}
	defer f.Close()

	return Decode(f, hint)
}

// DecodeSample decodes data straight into a RawImageSample.
func DecodeSample(data []byte, hint string) (domain.RawImageSample, error) {
	img, err := DecodeBytes(data, hint)
	if err != nil {
		return domain.RawImageSample{}, err
	}
	return SampleFromImage(img), nil
}
