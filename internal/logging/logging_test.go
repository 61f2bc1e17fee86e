package logging

import "testing"

func TestNew(t *testing.T) {
	tests := []struct {
		name        string
		level       string
		development bool
		wantErr     bool
	}{
		{name: "production info", level: "info"},
		{name: "development debug", level: "debug", development: true},
		{name: "warn", level: "warn"},
		{name: "unknown level", level: "verbose", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.level, tt.development)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if logger == nil && !tt.wantErr {
				t.Fatal("New() returned nil logger")
			}
		})
	}
}

func TestOrNop(t *testing.T) {
	if OrNop(nil) == nil {
		t.Error("OrNop(nil) should return a usable logger")
	}
}
