package providers

import "testing"

func TestTitleSimilarity(t *testing.T) {
	cases := []struct {
		name        string
		query       string
		result      string
		wantMinimum float64
		wantMaximum float64
	}{
		{"exact match", "The Matrix", "the matrix", 1.0, 1.0},
		{"prefix containment", "Cloverfield", "Cloverfield Lane", 0.85, 0.95},
		{"distinct extra words penalized", "Cloverfield", "10 Cloverfield Lane", 0.0, 0.6},
		{"no overlap", "Inception", "Totally Unrelated Film", 0.0, 0.1},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := titleSimilarity(c.query, c.result)
			if got < c.wantMinimum || got > c.wantMaximum {
				t.Errorf("titleSimilarity(%q, %q) = %v, want in [%v, %v]", c.query, c.result, got, c.wantMinimum, c.wantMaximum)
			}
		})
	}
}

func TestExtractUSCertification(t *testing.T) {
	countries := []tmdbReleaseDateCountry{
		{ISO31661: "GB", ReleaseDates: []struct {
			Certification string `json:"certification"`
		}{{Certification: "15"}}},
		{ISO31661: "US", ReleaseDates: []struct {
			Certification string `json:"certification"`
		}{{Certification: ""}, {Certification: "PG-13"}}},
	}
	if got := extractUSCertification(countries); got != "PG-13" {
		t.Errorf("extractUSCertification = %q, want PG-13", got)
	}
}

func TestExtractUSCertificationMissing(t *testing.T) {
	if got := extractUSCertification(nil); got != "" {
		t.Errorf("extractUSCertification(nil) = %q, want empty", got)
	}
}
