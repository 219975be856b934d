package access

import "testing"

func TestCanView(t *testing.T) {
	tests := []struct {
		name      string
		ownerID   string
		public    bool
		requester string
		want      bool
	}{
		{"owner sees private", "u1", false, "u1", true},
		{"other blocked from private", "u1", false, "u2", false},
		{"anyone sees public", "u1", true, "u2", true},
		{"anonymous sees public", "u1", true, "", true},
		{"anonymous blocked from private", "u1", false, "", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := CanView(tc.ownerID, tc.public, tc.requester); got != tc.want {
				t.Errorf("CanView(%q, %v, %q) = %v, want %v",
					tc.ownerID, tc.public, tc.requester, got, tc.want)
			}
		})
	}
}

func TestCanModify(t *testing.T) {
	tests := []struct {
		name      string
		ownerID   string
		requester string
		want      bool
	}{
		{"owner modifies", "u1", "u1", true},
		{"other blocked", "u1", "u2", false},
		{"anonymous blocked", "u1", "", false},
		{"empty owner never matches", "", "", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := CanModify(tc.ownerID, tc.requester); got != tc.want {
				t.Errorf("CanModify(%q, %q) = %v, want %v", tc.ownerID, tc.requester, got, tc.want)
			}
		})
	}
}
