package notify

import "testing"

func TestHubClientCountStartsZero(t *testing.T) {
	h := NewHub()
	if h.ClientCount() != 0 {
		t.Errorf("ClientCount() = %d, want 0", h.ClientCount())
	}
}

func TestHubNotifyWithNoClientsDoesNotPanic(t *testing.T) {
	h := NewHub()
	h.Notify(Event{Kind: EventStart, Phase: "metadata"})
}

func TestNopNotifierDiscards(t *testing.T) {
	var n EventNotifier = NopNotifier{}
	n.Notify(Event{Kind: EventComplete})
}
