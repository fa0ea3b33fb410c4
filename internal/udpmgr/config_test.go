package udpmgr

import "testing"

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if !cfg.ReuseAddr {
		t.Error("ReuseAddr should default to true")
	}
	if cfg.ReusePort {
		t.Error("ReusePort should default to false")
	}
	if !cfg.Broadcast {
		t.Error("Broadcast should default to true")
	}
	if cfg.MaxDatagramSize != 0x10000 {
		t.Errorf("MaxDatagramSize = %d, want 65536", cfg.MaxDatagramSize)
	}
}

func TestConfig_BufferSize(t *testing.T) {
	tests := []struct {
		max  int
		want int
	}{
		{0, 0x10000},
		{-1, 0x10000},
		{1500, 1500},
	}

	for _, tt := range tests {
		cfg := Config{MaxDatagramSize: tt.max}
		if got := cfg.bufferSize(); got != tt.want {
			t.Errorf("bufferSize() with max %d = %d, want %d", tt.max, got, tt.want)
		}
	}
}
