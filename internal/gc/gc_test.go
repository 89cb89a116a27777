package gc

import "testing"

func TestRetentionWindowIsAWeek(t *testing.T) {
	if RetentionWindow.Hours() != 7*24 {
		t.Errorf("RetentionWindow = %v, want 7 days", RetentionWindow)
	}
}

func TestCacheKindsCoversAllFour(t *testing.T) {
	if len(cacheKinds) != 4 {
		t.Errorf("cacheKinds has %d entries, want 4", len(cacheKinds))
	}
}
