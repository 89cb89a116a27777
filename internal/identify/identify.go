// Package identify derives a search-ready title and release year from a raw
// media filename, stripping the release-group junk that would otherwise
// pollute provider search queries.
package identify

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	bracesRx        = regexp.MustCompile(`\{[^}]*\}`)
	bracketsRx      = regexp.MustCompile(`\[[^\]]*\]`)
	yearParensRx    = regexp.MustCompile(`[\(\[\{]\d{4}[\)\]\}]`)
	editionPhraseRx = regexp.MustCompile(`(?i)\b(` +
		`director'?s?\s*cut|final\s+cut|extended\s+cut|theatrical\s+cut|unrated\s+cut|ultimate\s+cut|` +
		`criterion\s+edition|anniversary\s+edition|collector'?s?\s+edition|ultimate\s+edition|` +
		`deluxe\s+edition|imax\s+edition|special\s+edition|limited\s+edition|` +
		`extended\s+edition|unrated\s+edition|theatrical\s+edition|remastered\s+edition` +
		`)\b`)
	junkRx = regexp.MustCompile(`(?i)\b(` +
		`x264|x265|h264|h265|h\.264|h\.265|hevc|avc|divx|xvid|10bit|8bit|hi10p|hi10|av1|vp9|mpeg4|` +
		`aac|ac3|ac-3|dts|dts-hd|dtshd|dts-x|truehd|atmos|flac|mp3|ogg|vorbis|opus|eac3|` +
		`dd5\.1|dd2\.0|5\.1ch|7\.1ch|5\.1|7\.1|2\.0|` +
		`480p|480i|576p|576i|720p|720i|1080p|1080i|2160p|4k|uhd|ultrahd|` +
		`bluray|blu-ray|bdrip|brrip|bdrc|bdremux|hdrip|hddvd|hddvdrip|` +
		`dvd|dvdrip|dvdscr|dvdscreener|` +
		`webrip|web-dl|webdl|` +
		`hdtv|pdtv|dsr|dsrip|stv|tvrip|` +
		`cam|screener|scr|tc|telecine|telesync|ppv|retail|` +
		`remux|proper|repack|rerip|internal|limited|custom|` +
		`extended|unrated|theatrical|remastered|` +
		`read\.nfo|readnfo|nfofix|nfo|` +
		`multi|multisubs|dubbed|subbed|subs|sub|` +
		`ws|fs` +
		`)\b`)
	trailingGroupRx = regexp.MustCompile(`\s*-\s*\w+\s*$`)
	trailingDashRx  = regexp.MustCompile(`\s*[-–]\s*$`)
	multiSpaceRx    = regexp.MustCompile(`\s+`)
	trailingYearRx  = regexp.MustCompile(`\s+[12]\d{3}$`)
)

// CleanTitle strips release-group junk tokens from a raw title so the
// result is safe to hand to a provider search endpoint.
func CleanTitle(title string) string {
	if title == "" {
		return ""
	}

	cleaned := title
	cleaned = strings.ReplaceAll(cleaned, ".", " ")
	cleaned = strings.ReplaceAll(cleaned, "_", " ")
	cleaned = bracesRx.ReplaceAllString(cleaned, " ")
	cleaned = bracketsRx.ReplaceAllString(cleaned, " ")
	cleaned = yearParensRx.ReplaceAllString(cleaned, " ")
	cleaned = editionPhraseRx.ReplaceAllString(cleaned, " ")
	cleaned = junkRx.ReplaceAllString(cleaned, " ")
	cleaned = trailingGroupRx.ReplaceAllString(cleaned, "")
	cleaned = trailingDashRx.ReplaceAllString(cleaned, "")
	cleaned = multiSpaceRx.ReplaceAllString(cleaned, " ")
	cleaned = trailingYearRx.ReplaceAllString(strings.TrimSpace(cleaned), "")

	return strings.TrimSpace(cleaned)
}

// TitleFromFilename derives a clean search title from a media filename,
// stripping the extension before cleaning.
func TitleFromFilename(filename string) string {
	base := filepath.Base(filename)
	ext := filepath.Ext(base)
	return CleanTitle(strings.TrimSuffix(base, ext))
}

var (
	yearParensExtractRx    = regexp.MustCompile(`[\(\[]([12]\d{3})[\)\]]`)
	yearDelimitedExtractRx = regexp.MustCompile(`(?:[.\-_,\s])([12]\d{3})(?:[.\-_,+\s]|$)`)
)

// YearFromFilename extracts a plausible 4-digit release year, or 0 if none
// is found. Parenthesized years are preferred over bare delimited years
// since they are far less likely to be a false positive (resolution, track
// number, etc. never appear in parens in practice).
func YearFromFilename(filename string) int {
	if m := yearParensExtractRx.FindStringSubmatch(filename); len(m) >= 2 {
		var y int
		fmt.Sscanf(m[1], "%d", &y)
		if y >= 1900 && y <= 2100 {
			return y
		}
	}
	if m := yearDelimitedExtractRx.FindStringSubmatch(filename); len(m) >= 2 {
		var y int
		fmt.Sscanf(m[1], "%d", &y)
		if y >= 1900 && y <= 2100 {
			return y
		}
	}
	return 0
}
