package publish

import (
	"encoding/xml"
	"fmt"

	"github.com/JustinTDCT/enrichr/internal/models"
	"github.com/JustinTDCT/enrichr/internal/providers"
)

// xmlMovie mirrors the Kodi-compatible <movie> NFO schema used by Kodi,
// Jellyfin and Emby alike.
type xmlMovie struct {
	XMLName       xml.Name      `xml:"movie"`
	Title         string        `xml:"title"`
	OriginalTitle string        `xml:"originaltitle"`
	SortTitle     string        `xml:"sorttitle"`
	Tagline       string        `xml:"tagline"`
	Plot          string        `xml:"plot"`
	Year          int           `xml:"year"`
	Runtime       int           `xml:"runtime"`
	MPAA          string        `xml:"mpaa,omitempty"`
	Trailer       string        `xml:"trailer,omitempty"`
	Genres        []string      `xml:"genre"`
	Actors        []xmlActor    `xml:"actor"`
	UniqueIDs     []xmlUniqueID `xml:"uniqueid"`
	Ratings       *xmlRatings   `xml:"ratings,omitempty"`
}

type xmlActor struct {
	Name  string `xml:"name"`
	Role  string `xml:"role"`
	Order int    `xml:"order"`
	Thumb string `xml:"thumb,omitempty"`
}

type xmlUniqueID struct {
	Type    string `xml:"type,attr"`
	Default string `xml:"default,attr"`
	Value   string `xml:",chardata"`
}

type xmlRatings struct {
	Ratings []xmlRating `xml:"rating"`
}

type xmlRating struct {
	Name  string  `xml:"name,attr"`
	Max   string  `xml:"max,attr"`
	Value float64 `xml:"value"`
}

// buildMovieNFO renders the Kodi-compatible XML document for movie,
// embedding whatever cast credits and trailer URL the enrichment pipeline
// resolved. The returned bytes are what gets hashed for the idempotent
// publish check and written to the library's .nfo sidecar.
func buildMovieNFO(movie *models.Movie, cast []providers.CastMember, trailerURL string, rating *float64) ([]byte, error) {
	xm := xmlMovie{
		Title:         movie.Title,
		OriginalTitle: movie.OriginalTitle,
		SortTitle:     movie.SortTitle,
		Tagline:       movie.Tagline,
		Plot:          movie.Plot,
		Year:          movie.Year,
		Runtime:       movie.RuntimeMin,
		Trailer:       trailerURL,
	}

	if movie.ExternalIDs.TMDB != "" {
		xm.UniqueIDs = append(xm.UniqueIDs, xmlUniqueID{Type: "tmdb", Value: movie.ExternalIDs.TMDB, Default: "true"})
	}
	if movie.ExternalIDs.IMDB != "" {
		xm.UniqueIDs = append(xm.UniqueIDs, xmlUniqueID{Type: "imdb", Value: movie.ExternalIDs.IMDB})
	}
	if movie.ExternalIDs.TVDB != "" {
		xm.UniqueIDs = append(xm.UniqueIDs, xmlUniqueID{Type: "tvdb", Value: movie.ExternalIDs.TVDB})
	}

	if rating != nil {
		xm.Ratings = &xmlRatings{Ratings: []xmlRating{{Name: "default", Max: "10", Value: *rating}}}
	}

	for i, c := range cast {
		xm.Actors = append(xm.Actors, xmlActor{Name: c.Name, Role: c.Character, Order: c.Order, Thumb: c.ProfileURL})
		if i >= 49 {
			break // NFO actor lists beyond ~50 entries provide no practical value to the reader
		}
	}

	data, err := xml.MarshalIndent(xm, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal nfo: %w", err)
	}
	return append([]byte(xml.Header), data...), nil
}
