package identify

import "testing"

func TestCleanTitle(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"The.Matrix.1999.1080p.BluRay.x264-GROUP", "The Matrix"},
		{"Inception (2010) [2160p] [4K] [UHD]", "Inception"},
		{"Se7en.REMASTERED.DTS.x265-TEAM", "Se7en"},
		{"Plain Title", "Plain Title"},
		{"", ""},
	}
	for _, c := range cases {
		if got := CleanTitle(c.in); got != c.want {
			t.Errorf("CleanTitle(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestTitleFromFilename(t *testing.T) {
	got := TitleFromFilename("/media/movies/The.Matrix.1999.1080p.BluRay.x264-GROUP.mkv")
	if got != "The Matrix" {
		t.Errorf("TitleFromFilename = %q, want %q", got, "The Matrix")
	}
}

func TestYearFromFilename(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"The Matrix (1999) 1080p.mkv", 1999},
		{"The.Matrix.1999.1080p.BluRay.mkv", 1999},
		{"No Year Here.mkv", 0},
		{"Movie.3000.mkv", 0},
	}
	for _, c := range cases {
		if got := YearFromFilename(c.in); got != c.want {
			t.Errorf("YearFromFilename(%q) = %d, want %d", c.in, got, c.want)
		}
	}
}
