package orders

import "testing"

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusPaid, true},
		{StatusPending, StatusScheduled, true},
		{StatusPaid, StatusScheduled, true},
		{StatusPaid, StatusPaid, false},
		{StatusPaid, StatusPending, false},
		{StatusScheduled, StatusPaid, false},
		{StatusScheduled, StatusScheduled, false},
		{Status("Shipped"), StatusPaid, false},
	}
	for _, c := range cases {
		if got := CanTransition(c.from, c.to); got != c.want {
			t.Errorf("%s -> %s: got %v want %v", c.from, c.to, got, c.want)
		}
	}
}

func TestTargets(t *testing.T) {
	if !IsTarget(StatusPaid) || !IsTarget(StatusScheduled) {
		t.Fatal("paid and scheduled must be reachable")
	}
	if IsTarget(StatusPending) {
		t.Error("pending is only an initial status")
	}
	if RequiresAdmin(StatusPaid) || !RequiresAdmin(StatusScheduled) {
		t.Error("only scheduling is an admin action")
	}
}
