package provider_test

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/wigg/wigg/internal/provider"
	"github.com/wigg/wigg/internal/provider/mock"
)

func TestRegistryGet(t *testing.T) {
	registry := provider.NewRegistry(zerolog.Nop())
	registry.Register(mock.New("tmdb"))

	adapter, err := registry.Get("tmdb")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if adapter.Name() != "tmdb" {
		t.Errorf("adapter name = %q, want tmdb", adapter.Name())
	}

	_, err = registry.Get("ghost")
	if !errors.Is(err, provider.ErrUnknownProvider) {
		t.Errorf("err = %v, want ErrUnknownProvider", err)
	}
}

func TestRegistryReady(t *testing.T) {
	registry := provider.NewRegistry(zerolog.Nop())
	registry.Register(mock.New("tmdb"))
	offline := mock.New("podcastindex")
	offline.NotReady = true
	registry.Register(offline)

	tests := []struct {
		name     string
		provider string
		expected bool
	}{
		{name: "registered and ready", provider: "tmdb", expected: true},
		{name: "registered but not configured", provider: "podcastindex", expected: false},
		{name: "never registered", provider: "igdb", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := registry.Ready(tt.provider); got != tt.expected {
				t.Errorf("Ready(%q) = %v, want %v", tt.provider, got, tt.expected)
			}
		})
	}
}

func TestRegistryCapabilities(t *testing.T) {
	registry := provider.NewRegistry(zerolog.Nop())
	registry.Register(mock.New("tmdb"))
	registry.Register(mock.New("anilist"))
	offline := mock.New("podcastindex")
	offline.NotReady = true
	registry.Register(offline)

	caps := registry.Capabilities()
	if len(caps) != 3 {
		t.Fatalf("got %d capabilities, want 3", len(caps))
	}

	// Sorted by name.
	expected := []string{"anilist", "podcastindex", "tmdb"}
	for i, name := range expected {
		if caps[i].Name != name {
			t.Errorf("capability %d = %q, want %q", i, caps[i].Name, name)
		}
	}
	if !caps[2].Ready {
		t.Error("tmdb should report ready")
	}
	if caps[1].Ready {
		t.Error("podcastindex should report not ready")
	}
}

func TestRegistryReplace(t *testing.T) {
	registry := provider.NewRegistry(zerolog.Nop())
	first := mock.New("tmdb")
	first.NotReady = true
	registry.Register(first)
	registry.Register(mock.New("tmdb"))

	if !registry.Ready("tmdb") {
		t.Error("re-registering should replace the adapter")
	}
}
