package jobs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"https://www.youtube.com/watch?v=ABC", "ABC"},
		{"https://youtu.be/ABC", "ABC"},
		{"https://music.youtube.com/watch?v=XYZ&list=PL1", "XYZ"},
		{"https://www.youtube.com/playlist?list=PL123", "PL123"},
		{"https://youtu.be/ABC&feature=share", "ABC"},
		{"https://youtu.be/ABC&feature=share&t=30", "ABC"},
		{"youtube.com/watch?v=ABC&t=1", "ABC"},
		{"  https://youtu.be/ABC\n", "ABC"},
		{"ABC", "ABC"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got := Sanitize(tt.raw)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, Sanitize(got), "idempotent")
		})
	}
}

func TestSanitize_Idempotent(t *testing.T) {
	inputs := []string{
		"https://https://www.youtube.com/watch?v=ABC",
		"wwhttps://w.youtube.com/ABC",
		"music.youtube.com/playlist?list=PL9&si=x",
	}
	for _, in := range inputs {
		once := Sanitize(in)
		assert.Equal(t, once, Sanitize(once), in)
	}
}
