// internal/prompt/prompt.go
// Package prompt builds summarization prompts and normalizes raw language
// model completions into captions.
package prompt

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"unicode"
)

// Default is the summarization instruction used when the configuration
// provides no prompt of its own.
const Default = "This is a hard problem. Carefully summarize in ONE detailed sentence " +
	"the following captions by different (possibly incorrect) people describing the same scene. " +
	"Be sure to describe everything, and identify when you're not sure."

// ForCandidates builds the full prompt for a list of candidate or reference
// captions. Plugin outputs, when present, are appended as additional context
// lines in the order given. The returned string is stored on the sample so a
// summary is always reproducible.
func ForCandidates(captions []string, template string, pluginOutputs []json.RawMessage) string {
	if strings.TrimSpace(template) == "" {
		template = Default
	}

	var b strings.Builder
	b.WriteString(strings.TrimSpace(template))
	b.WriteString("\n\nCaptions:\n")
	for i, caption := range captions {
		fmt.Fprintf(&b, "%d. %s\n", i+1, strings.TrimSpace(caption))
	}
	if len(pluginOutputs) > 0 {
		b.WriteString("\nContext from image analysis:\n")
		for _, output := range pluginOutputs {
			b.WriteString("- ")
			b.Write(compactJSON(output))
			b.WriteString("\n")
		}
	}
	b.WriteString("\nSummary:")
	return b.String()
}

func compactJSON(raw json.RawMessage) []byte {
	var compact bytes.Buffer
	if err := json.Compact(&compact, raw); err != nil {
		return raw
	}
	return compact.Bytes()
}

// Postprocess normalizes a raw completion into a single clean caption: strips
// surrounding whitespace and quotes, removes a leading "Summary:" echo,
// collapses line breaks, capitalizes the first letter, and ensures terminal
// punctuation.
func Postprocess(raw string) string {
	caption := strings.TrimSpace(raw)
	caption = strings.Trim(caption, `"'`)
	for _, prefix := range []string{"summary:", "caption:"} {
		if len(caption) >= len(prefix) && strings.EqualFold(caption[:len(prefix)], prefix) {
			caption = strings.TrimSpace(caption[len(prefix):])
		}
	}
	caption = strings.Join(strings.Fields(caption), " ")
	if caption == "" {
		return caption
	}

	runes := []rune(caption)
	runes[0] = unicode.ToUpper(runes[0])
	caption = string(runes)

	switch caption[len(caption)-1] {
	case '.', '!', '?':
	default:
		caption += "."
	}
	return caption
}
