package model

import "testing"

func TestJobStatus_IsTerminal(t *testing.T) {
	tests := []struct {
		status   JobStatus
		terminal bool
	}{
		{JobStatusQueued, false},
		{JobStatusPending, false},
		{JobStatusDownloading, false},
		{JobStatusProcessing, false},
		{JobStatusUnknown, false},
		{JobStatus(""), false},
		{JobStatus("converting"), false},
		{JobStatusComplete, true},
		{JobStatusFailed, true},
	}
	for _, tt := range tests {
		if got := tt.status.IsTerminal(); got != tt.terminal {
			t.Errorf("JobStatus(%q).IsTerminal() = %v, want %v", tt.status, got, tt.terminal)
		}
	}
}

func TestUnknownStatus(t *testing.T) {
	rec := UnknownStatus()
	if rec.ID != "" || rec.Status != JobStatusUnknown || rec.PlaylistTrackCount != 0 || rec.PlaylistTrackDone != 0 {
		t.Errorf("UnknownStatus() = %+v", rec)
	}
	if rec.IsPlaylist() {
		t.Error("unknown status should not be a playlist")
	}
}

func TestNotification_Event(t *testing.T) {
	if got := (Notification{ID: "a", Complete: true}).Event(); got != "complete" {
		t.Errorf("Event() = %q, want complete", got)
	}
	if got := (Notification{ID: "a", Error: true}).Event(); got != "error" {
		t.Errorf("Event() = %q, want error", got)
	}
}
