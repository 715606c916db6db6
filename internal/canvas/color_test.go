package canvas

import (
	"image/color"
	"testing"
)

func TestParseColor(t *testing.T) {
	def := color.RGBA{1, 2, 3, 4}
	tests := []struct {
		in      string
		want    color.RGBA
		wantErr bool
	}{
		{"", def, false},
		{"#ff0000", color.RGBA{255, 0, 0, 255}, false},
		{"00ff0080", color.RGBA{0, 255, 0, 128}, false},
		{"#abc", color.RGBA{0xaa, 0xbb, 0xcc, 255}, false},
		{"#12345", def, true},
		{"#gggggg", def, true},
	}
	for _, tt := range tests {
		got, err := ParseColor(tt.in, def)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ParseColor(%q): unexpected error state %v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("ParseColor(%q): expected %v, got %v", tt.in, tt.want, got)
		}
	}
}
