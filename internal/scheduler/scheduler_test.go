package scheduler

import "testing"

func TestHourlySpec(t *testing.T) {
	cases := []struct {
		hours int
		want  string
	}{
		{6, "0 0 */6 * * *"},
		{0, "0 0 0 */1 * *"},
		{24, "0 0 0 */1 * *"},
		{36, "0 0 0 */1 * *"},
	}
	for _, c := range cases {
		if got := hourlySpec(c.hours); got != c.want {
			t.Errorf("hourlySpec(%d) = %q, want %q", c.hours, got, c.want)
		}
	}
}

func TestPlural(t *testing.T) {
	if plural(1) != "y" {
		t.Errorf("plural(1) should be singular")
	}
	if plural(0) != "ies" || plural(2) != "ies" {
		t.Errorf("plural(0 or 2) should be plural")
	}
}
