package utils

import (
	"errors"
	"testing"
	"time"

	"tunnel-keeper/internal/models"
)

func TestParseTTL(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		forever bool
		wantErr bool
	}{
		{in: "2h", want: 7200 * time.Second},
		{in: "30m", want: 1800 * time.Second},
		{in: "90s", want: 90 * time.Second},
		{in: "1h", want: time.Hour},
		{in: "forever", forever: true},
		{in: "none", forever: true},
		{in: "0", forever: true},
		{in: "FOREVER", forever: true},
		{in: " 2h ", want: 7200 * time.Second},
		{in: "banana", wantErr: true},
		{in: "", wantErr: true},
		{in: "2d", wantErr: true},
		{in: "h", wantErr: true},
		{in: "-5m", wantErr: true},
		{in: "0s", wantErr: true},
		{in: "2.5h", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, forever, err := ParseTTL(tt.in)
			if tt.wantErr {
				if !errors.Is(err, models.ErrInvalidTTL) {
					t.Fatalf("ParseTTL(%q) err = %v, want ErrInvalidTTL", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseTTL(%q) failed: %v", tt.in, err)
			}
			if forever != tt.forever {
				t.Errorf("ParseTTL(%q) forever = %v, want %v", tt.in, forever, tt.forever)
			}
			if got != tt.want {
				t.Errorf("ParseTTL(%q) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}
