// internal/appconfig/schema.go
package appconfig

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// configSchema constrains the shape of the JSON config file before it is
// unmarshalled, so misspelled host types or non-numeric knobs fail with a
// readable message instead of a zero value.
var configSchema = map[string]any{
	"type":     "object",
	"required": []string{"hosts"},
	"properties": map[string]any{
		"hosts": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type":     "object",
				"required": []string{"name", "url", "type"},
				"properties": map[string]any{
					"name":  map[string]any{"type": "string", "minLength": 1},
					"url":   map[string]any{"type": "string", "minLength": 1},
					"type":  map[string]any{"enum": []string{HostTypeCaption, HostTypeLM, HostTypePlugin, HostTypeScorer}},
					"model": map[string]any{"type": "string"},
					"local": map[string]any{"type": "boolean"},
				},
			},
		},
		"captionEngine":               map[string]any{"type": "string"},
		"lmEngine":                    map[string]any{"type": "string"},
		"plugins":                     map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		"numCandidates":               map[string]any{"type": "integer", "minimum": 1},
		"candidateTemperature":        map[string]any{"type": "number", "minimum": 0},
		"prompt":                      map[string]any{"type": "string"},
		"outputJsonPath":              map[string]any{"type": "string"},
		"candidateKey":                map[string]any{"type": "string"},
		"referenceKey":                map[string]any{"type": "string"},
		"imagePathKey":                map[string]any{"type": "string"},
		"imageRootDir":                map[string]any{"type": "string"},
		"overwriteCandidates":         map[string]any{"type": "boolean"},
		"overwriteCandidateSummaries": map[string]any{"type": "boolean"},
		"device":                      map[string]any{"type": "string"},
		"timeout":                     map[string]any{"type": "integer", "minimum": 0},
		"debug":                       map[string]any{"type": "boolean"},
		"noProgress":                  map[string]any{"type": "boolean"},
		"logFile":                     map[string]any{"type": "string"},
	},
}

func validateSchema(data []byte) error {
	schemaLoader := gojsonschema.NewGoLoader(configSchema)
	documentLoader := gojsonschema.NewBytesLoader(data)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return err
	}
	if result.Valid() {
		return nil
	}

	messages := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		messages = append(messages, desc.String())
	}
	return fmt.Errorf("schema validation failed: %s", strings.Join(messages, "; "))
}
