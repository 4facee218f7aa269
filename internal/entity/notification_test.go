package entity

import "testing"

func TestNormalizeNotificationType(t *testing.T) {
	cases := []struct {
		in   string
		want NotificationType
	}{
		{"application", TypeApplication},
		{"new_application", TypeNewApplication},
		{"job_accepted", TypeJobAccepted},
		{"job_rejected", TypeJobRejected},
		{"job_completed", TypeJobCompleted},
		{"new_job", TypeNewJob},
		{"message", TypeMessage},
		{"system", TypeSystem},
		{"other", TypeOther},
		{"", TypeOther},
		{"some_legacy_tag", TypeOther},
		{"Application", TypeOther},
	}

	for _, tc := range cases {
		if got := NormalizeNotificationType(tc.in); got != tc.want {
			t.Errorf("NormalizeNotificationType(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestApplicationStatusValid(t *testing.T) {
	for _, s := range []ApplicationStatus{StatusApplied, StatusAccepted, StatusRejected, StatusCompleted} {
		if !s.Valid() {
			t.Errorf("%q should be valid", s)
		}
	}

	for _, s := range []ApplicationStatus{"", "pending", "APPLIED", "done"} {
		if s.Valid() {
			t.Errorf("%q should not be valid", s)
		}
	}
}
