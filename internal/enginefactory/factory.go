// internal/enginefactory/factory.go
// Package enginefactory builds the engine registries from the application
// configuration. The registries are handed to the pipeline explicitly; nothing
// here is a global.
package enginefactory

import (
	"github.com/capeval/capeval/internal/appconfig"
	"github.com/capeval/capeval/internal/engines"
	"github.com/capeval/capeval/internal/engines/httpplugin"
	"github.com/capeval/capeval/internal/engines/ollamacap"
	"github.com/capeval/capeval/internal/engines/ollamalm"
)

// CaptionRegistry registers every caption host under its configured name.
func CaptionRegistry(cfg *appconfig.Config) *engines.Registry[engines.CaptionEngine] {
	registry := engines.NewRegistry[engines.CaptionEngine]()
	for _, host := range cfg.Hosts {
		if host.Type != appconfig.HostTypeCaption {
			continue
		}
		host := host
		registry.Register(host.Name, engines.Entry[engines.CaptionEngine]{
			New: func(device string) (engines.CaptionEngine, error) {
				return ollamacap.New(host, cfg.RequestTimeout()), nil
			},
		})
	}
	return registry
}

// LMRegistry registers every language-model host under its configured name.
// Hosts marked local receive the resolved device when constructed.
func LMRegistry(cfg *appconfig.Config) *engines.Registry[engines.LMEngine] {
	registry := engines.NewRegistry[engines.LMEngine]()
	for _, host := range cfg.Hosts {
		if host.Type != appconfig.HostTypeLM {
			continue
		}
		host := host
		registry.Register(host.Name, engines.Entry[engines.LMEngine]{
			Local: host.Local,
			New: func(device string) (engines.LMEngine, error) {
				return ollamalm.New(host, device, cfg.RequestTimeout()), nil
			},
		})
	}
	return registry
}

// PluginRegistry registers every plugin host under its configured name.
func PluginRegistry(cfg *appconfig.Config) *engines.Registry[engines.PluginEngine] {
	registry := engines.NewRegistry[engines.PluginEngine]()
	for _, host := range cfg.Hosts {
		if host.Type != appconfig.HostTypePlugin {
			continue
		}
		host := host
		registry.Register(host.Name, engines.Entry[engines.PluginEngine]{
			New: func(device string) (engines.PluginEngine, error) {
				return httpplugin.New(host, cfg.RequestTimeout()), nil
			},
		})
	}
	return registry
}
