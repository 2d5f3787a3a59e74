package provider

import (
	"testing"

	"vidrelay/internal/config"
)

func TestBuild(t *testing.T) {
	tests := []struct {
		name    string
		names   []string
		engine  string
		want    []string
		wantErr bool
	}{
		{name: "configured default", want: []string{"relay", "direct"}},
		{name: "explicit order", names: []string{"scrape", "Relay"}, want: []string{"scrape", "relay"}},
		{name: "ytdown opt-in", names: []string{"relay", "ytdown", "direct"}, want: []string{"relay", "ytdown", "direct"}},
		{name: "native engine", names: []string{"direct"}, engine: "native", want: []string{"direct"}},
		{name: "unknown provider", names: []string{"relay", "ftp"}, wantErr: true},
		{name: "unknown engine", names: []string{"direct"}, engine: "ffmpeg", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			if tt.engine != "" {
				cfg.Direct.Engine = tt.engine
			}

			providers, err := Build(cfg, tt.names)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Build: %v", err)
			}
			if len(providers) != len(tt.want) {
				t.Fatalf("got %d providers, want %d", len(providers), len(tt.want))
			}
			for i, p := range providers {
				if p.Name() != tt.want[i] {
					t.Errorf("providers[%d] = %q, want %q", i, p.Name(), tt.want[i])
				}
			}
		})
	}
}

func TestBuildEngineSelection(t *testing.T) {
	cfg := config.Default()
	cfg.Direct.Engine = "native"
	engine, err := buildEngine(cfg.Direct)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := engine.(*Native); !ok {
		t.Errorf("engine = %T, want *Native", engine)
	}

	cfg.Direct.Engine = "yt-dlp"
	engine, err = buildEngine(cfg.Direct)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := engine.(*YTDLP); !ok {
		t.Errorf("engine = %T, want *YTDLP", engine)
	}
}
