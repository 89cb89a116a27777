// Package imaging computes perceptual hashes for still images and scores
// similarity between candidates, adapted from a video-frame average-hash
// scheme down to single still images with a difference hash added for
// better discrimination on near-duplicate artwork.
package imaging

import (
	"encoding/hex"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"strconv"
)

// hashSize is the width/height of the scaled image used for the average
// hash. 8x8 = 64 bits = 16 hex chars.
const hashSize = 8

// Mode controls how strict a Similarity comparison is. Each mode is a triple
// of thresholds rather than a single cutoff: "strict" is the mode most
// willing to call two images duplicates (it requires the least agreement),
// "lenient" is the most reluctant — the names describe how strictly distinct
// artwork must differ to avoid being merged, not how high the bar is.
type Mode string

const (
	ModeStrict  Mode = "strict"
	ModeDefault Mode = "default"
	ModeLenient Mode = "lenient"
)

// thresholds is the per-mode (aHash-strict, dHash-strict, combined-min)
// triple: a pair is a duplicate if either single hash clears its own
// threshold, or if the weighted combined score clears combinedMin.
type thresholds struct {
	aHash, dHash, combined float64
}

func thresholdsFor(mode Mode) thresholds {
	switch mode {
	case ModeStrict:
		return thresholds{aHash: 0.85, dHash: 0.82, combined: 0.75}
	case ModeLenient:
		return thresholds{aHash: 0.97, dHash: 0.94, combined: 0.95}
	default:
		return thresholds{aHash: 0.95, dHash: 0.92, combined: 0.93}
	}
}

// Hashes holds both perceptual hashes plus basic geometry extracted in one
// decode pass, so callers never need to re-open the image.
type Hashes struct {
	AHash         string
	DHash         string
	Width         int
	Height        int
	IsLowVariance bool
	ForegroundPct float64
}

// Compute decodes r and returns its perceptual hashes and geometry.
func Compute(r io.Reader) (Hashes, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return Hashes{}, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	aHash, variance := averageHash(img, bounds)
	dHash := differenceHash(img, bounds)

	return Hashes{
		AHash:         hex.EncodeToString(aHash),
		DHash:         hex.EncodeToString(dHash),
		Width:         w,
		Height:        h,
		IsLowVariance: variance < lowVarianceThreshold,
		ForegroundPct: foregroundRatio(img, bounds),
	}, nil
}

// lowVarianceThreshold flags near-solid-color images (placeholder art,
// blank backdrops) whose hash is not meaningful for dedup comparisons.
const lowVarianceThreshold = 4.0

func grayAt(img image.Image, x, y int) float64 {
	r, g, b, _ := img.At(x, y).RGBA()
	gray := color.GrayModel.Convert(color.RGBA{uint8(r >> 8), uint8(g >> 8), uint8(b >> 8), 255}).(color.Gray)
	return float64(gray.Y)
}

// averageHash scales the image to an 8x8 grid and sets each bit based on
// whether that cell's gray value is above the grid mean. It also returns
// the population variance of the grid so callers can flag low-variance
// (near-solid-color) source images.
func averageHash(img image.Image, bounds image.Rectangle) ([]byte, float64) {
	pixels := make([]float64, hashSize*hashSize)
	w, h := bounds.Dx(), bounds.Dy()

	for y := 0; y < hashSize; y++ {
		for x := 0; x < hashSize; x++ {
			sx := bounds.Min.X + x*w/hashSize
			sy := bounds.Min.Y + y*h/hashSize
			pixels[y*hashSize+x] = grayAt(img, sx, sy)
		}
	}

	var sum float64
	for _, v := range pixels {
		sum += v
	}
	avg := sum / float64(len(pixels))

	var variance float64
	for _, v := range pixels {
		d := v - avg
		variance += d * d
	}
	variance /= float64(len(pixels))

	numBytes := (hashSize*hashSize + 7) / 8
	out := make([]byte, numBytes)
	for i, v := range pixels {
		if v > avg {
			out[i/8] |= 1 << (7 - uint(i%8))
		}
	}
	return out, variance
}

// differenceHash scales to a (hashSize+1) x hashSize grid and sets each bit
// based on whether a pixel is brighter than its right-hand neighbor. This
// is sensitive to gradient structure that aHash misses, so a pair of
// near-identical average hashes is still distinguishable.
func differenceHash(img image.Image, bounds image.Rectangle) []byte {
	const cols = hashSize + 1
	w, h := bounds.Dx(), bounds.Dy()
	row := make([]float64, cols)

	bits := make([]bool, hashSize*hashSize)
	for y := 0; y < hashSize; y++ {
		for x := 0; x < cols; x++ {
			sx := bounds.Min.X + x*w/cols
			sy := bounds.Min.Y + y*h/hashSize
			row[x] = grayAt(img, sx, sy)
		}
		for x := 0; x < hashSize; x++ {
			bits[y*hashSize+x] = row[x] > row[x+1]
		}
	}

	numBytes := (hashSize*hashSize + 7) / 8
	out := make([]byte, numBytes)
	for i, b := range bits {
		if b {
			out[i/8] |= 1 << (7 - uint(i%8))
		}
	}
	return out
}

// foregroundRatio estimates the fraction of pixels that differ meaningfully
// from the image's border color, as a rough "is this mostly a solid
// background with a small subject" signal. It is reported as
// Hashes.ForegroundPct; the asset selector does not use it.
func foregroundRatio(img image.Image, bounds image.Rectangle) float64 {
	border := grayAt(img, bounds.Min.X, bounds.Min.Y)
	const sampleGrid = 16
	w, h := bounds.Dx(), bounds.Dy()
	total := 0
	fg := 0
	for y := 0; y < sampleGrid; y++ {
		for x := 0; x < sampleGrid; x++ {
			sx := bounds.Min.X + x*w/sampleGrid
			sy := bounds.Min.Y + y*h/sampleGrid
			total++
			if diff := grayAt(img, sx, sy) - border; diff > 20 || diff < -20 {
				fg++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return float64(fg) / float64(total)
}

// HammingDistance counts differing bits between two equal-length hex hashes.
// Returns -1 if the lengths disagree, since the hashes are not comparable.
func HammingDistance(hash1, hash2 string) int {
	if len(hash1) != len(hash2) {
		return -1
	}
	distance := 0
	for i := 0; i < len(hash1); i++ {
		v1, _ := strconv.ParseUint(string(hash1[i]), 16, 8)
		v2, _ := strconv.ParseUint(string(hash2[i]), 16, 8)
		xor := v1 ^ v2
		for xor > 0 {
			distance += int(xor & 1)
			xor >>= 1
		}
	}
	return distance
}

// bitSimilarity converts a Hamming distance over a hex string into a 0-1
// similarity score, 1 meaning identical.
func bitSimilarity(hash1, hash2 string) float64 {
	dist := HammingDistance(hash1, hash2)
	if dist < 0 {
		return 0
	}
	maxBits := len(hash1) * 4
	return 1.0 - float64(dist)/float64(maxBits)
}

// Similarity scores a and b on a 0.55/0.45 aHash/dHash weighting and
// compares the individual hashes and the combined score against mode's
// thresholds. isDuplicate is true if aHash alone, dHash alone, or the
// weighted combination clears its threshold — agreement on any one signal
// is enough, since aHash and dHash are independently sensitive to different
// kinds of near-duplicate artwork (recompression vs. recrop).
func Similarity(a, b Hashes, mode Mode) (score float64, isDuplicate bool) {
	aSim := bitSimilarity(a.AHash, b.AHash)
	dSim := bitSimilarity(a.DHash, b.DHash)
	combined := 0.55*aSim + 0.45*dSim

	t := thresholdsFor(mode)
	dup := aSim >= t.aHash || dSim >= t.dHash || combined >= t.combined
	return combined, dup
}

// IsDuplicate is a convenience wrapper for Similarity's boolean half.
func IsDuplicate(a, b Hashes, mode Mode) bool {
	_, dup := Similarity(a, b, mode)
	return dup
}
