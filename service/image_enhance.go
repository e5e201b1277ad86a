package service

import (
	"image"

	"golang.org/x/image/draw"
)

// minOCRDimension is the edge length below which an image is upscaled
// before the OCR retry. Tesseract degrades quickly on small scans.
const minOCRDimension = 1000

// enhanceImage prepares a hard-to-read scan for a second OCR pass:
// upscale small images, flatten to grayscale, blur out speckle noise,
// stretch the contrast tile by tile and binarize with Otsu's
// threshold.
func enhanceImage(img image.Image) image.Image {
	bounds := img.Bounds()
	if bounds.Dx() < minOCRDimension || bounds.Dy() < minOCRDimension {
		img = upscale(img, 2)
	}
	gray := toGray(img)
	gray = boxBlur3(gray)
	gray = contrastStretch(gray)
	return binarize(gray, otsuThreshold(gray))
}

func upscale(img image.Image, factor int) image.Image {
	bounds := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, bounds.Dx()*factor, bounds.Dy()*factor))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}

func toGray(img image.Image) *image.Gray {
	bounds := img.Bounds()
	gray := image.NewGray(bounds)
	draw.Draw(gray, bounds, img, bounds.Min, draw.Src)
	return gray
}

// boxBlur3 applies a 3x3 mean filter. Border pixels are copied
// unchanged.
func boxBlur3(src *image.Gray) *image.Gray {
	bounds := src.Bounds()
	dst := image.NewGray(bounds)
	copy(dst.Pix, src.Pix)

	for y := bounds.Min.Y + 1; y < bounds.Max.Y-1; y++ {
		for x := bounds.Min.X + 1; x < bounds.Max.X-1; x++ {
			var sum int
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					sum += int(src.GrayAt(x+dx, y+dy).Y)
				}
			}
			dst.Pix[dst.PixOffset(x, y)] = uint8(sum / 9)
		}
	}
	return dst
}

// contrastTiles is the grid size of the local contrast stretch. An
// 8x8 grid keeps the stretch adaptive to uneven scan lighting without
// amplifying noise inside tiny regions.
const contrastTiles = 8

// contrastStretch remaps pixel intensities per tile over a grid of
// contrastTiles x contrastTiles, so a shadowed corner gets its own
// full-range ramp instead of one global remap. Flat tiles are copied
// unchanged.
func contrastStretch(src *image.Gray) *image.Gray {
	bounds := src.Bounds()
	dst := image.NewGray(bounds)
	copy(dst.Pix, src.Pix)
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		return dst
	}

	tileW := (bounds.Dx() + contrastTiles - 1) / contrastTiles
	tileH := (bounds.Dy() + contrastTiles - 1) / contrastTiles
	for y := bounds.Min.Y; y < bounds.Max.Y; y += tileH {
		for x := bounds.Min.X; x < bounds.Max.X; x += tileW {
			tile := image.Rect(x, y, min(x+tileW, bounds.Max.X), min(y+tileH, bounds.Max.Y))
			stretchTile(src, dst, tile)
		}
	}
	return dst
}

func stretchTile(src, dst *image.Gray, tile image.Rectangle) {
	lo, hi := uint8(255), uint8(0)
	for y := tile.Min.Y; y < tile.Max.Y; y++ {
		for x := tile.Min.X; x < tile.Max.X; x++ {
			p := src.GrayAt(x, y).Y
			if p < lo {
				lo = p
			}
			if p > hi {
				hi = p
			}
		}
	}
	if lo >= hi {
		return
	}

	span := int(hi) - int(lo)
	for y := tile.Min.Y; y < tile.Max.Y; y++ {
		for x := tile.Min.X; x < tile.Max.X; x++ {
			p := int(src.GrayAt(x, y).Y)
			dst.Pix[dst.PixOffset(x, y)] = uint8((p - int(lo)) * 255 / span)
		}
	}
}

// otsuThreshold picks the binarization threshold that maximizes the
// between-class variance of the intensity histogram.
func otsuThreshold(src *image.Gray) uint8 {
	var hist [256]int
	for _, p := range src.Pix {
		hist[p]++
	}
	total := len(src.Pix)
	if total == 0 {
		return 128
	}

	var sum float64
	for i, count := range hist {
		sum += float64(i) * float64(count)
	}

	var sumB, wB float64
	var best float64
	threshold := uint8(128)
	for t := 0; t < 256; t++ {
		wB += float64(hist[t])
		if wB == 0 {
			continue
		}
		wF := float64(total) - wB
		if wF == 0 {
			break
		}
		sumB += float64(t) * float64(hist[t])
		mB := sumB / wB
		mF := (sum - sumB) / wF
		between := wB * wF * (mB - mF) * (mB - mF)
		if between > best {
			best = between
			threshold = uint8(t)
		}
	}
	return threshold
}

func binarize(src *image.Gray, threshold uint8) *image.Gray {
	dst := image.NewGray(src.Bounds())
	for i, p := range src.Pix {
		if p > threshold {
			dst.Pix[i] = 255
		}
	}
	return dst
}
