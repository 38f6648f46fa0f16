// internal/enginefactory/factory_test.go
package enginefactory

import (
	"testing"

	"github.com/capeval/capeval/internal/appconfig"
)

func testConfig() *appconfig.Config {
	return &appconfig.Config{
		Hosts: []appconfig.Host{
			{Name: "ofa", URL: "http://cap", Type: appconfig.HostTypeCaption, Model: "ofa-large"},
			{Name: "ollama", URL: "http://lm", Type: appconfig.HostTypeLM, Model: "llama3", Local: true},
			{Name: "hosted", URL: "http://api", Type: appconfig.HostTypeLM, Model: "gpt"},
			{Name: "detector", URL: "http://det", Type: appconfig.HostTypePlugin},
			{Name: "scores", URL: "http://sc", Type: appconfig.HostTypeScorer},
		},
	}
}

func TestRegistriesSplitHostsByType(t *testing.T) {
	cfg := testConfig()

	if names := CaptionRegistry(cfg).Names(); len(names) != 1 || names[0] != "ofa" {
		t.Fatalf("caption registry: %v", names)
	}
	if names := LMRegistry(cfg).Names(); len(names) != 2 {
		t.Fatalf("lm registry: %v", names)
	}
	if names := PluginRegistry(cfg).Names(); len(names) != 1 || names[0] != "detector" {
		t.Fatalf("plugin registry: %v", names)
	}
}

func TestRegistriesConstructEngines(t *testing.T) {
	cfg := testConfig()

	if _, err := CaptionRegistry(cfg).New("ofa", "cpu"); err != nil {
		t.Fatalf("caption engine: %v", err)
	}
	if _, err := LMRegistry(cfg).New("ollama", "cuda"); err != nil {
		t.Fatalf("lm engine: %v", err)
	}
	if _, err := PluginRegistry(cfg).New("detector", "cpu"); err != nil {
		t.Fatalf("plugin engine: %v", err)
	}
	if _, err := CaptionRegistry(cfg).New("unknown", "cpu"); err == nil {
		t.Fatal("expected error for unknown engine name")
	}
}
