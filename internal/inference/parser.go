package inference

import (
	"encoding/json"
	"strings"
)

// ExtractJSONObject returns the first balanced {...} block in content,
// skipping braces inside JSON strings. Models routinely wrap their answer
// in prose or markdown fences; everything around the object is ignored.
func ExtractJSONObject(content string) (string, bool) {
	content = stripMarkdownFences(content)

	start := strings.IndexByte(content, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(content); i++ {
		c := content[i]

		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return content[start : i+1], true
			}
		}
	}

	return "", false
}

// ParsePageClassification leniently parses a page classification answer.
// The second return value reports whether a usable answer was found; on
// false the caller applies its heuristic default.
func ParsePageClassification(content string) (PageClassification, bool) {
	block, ok := ExtractJSONObject(content)
	if !ok {
		return PageClassification{}, false
	}

	var result PageClassification
	if err := json.Unmarshal([]byte(block), &result); err != nil {
		return PageClassification{}, false
	}

	result.Confidence = clamp01(result.Confidence)
	return result, true
}

// ParseAccountInference leniently parses an account inference answer.
func ParseAccountInference(content string) (AccountInference, bool) {
	block, ok := ExtractJSONObject(content)
	if !ok {
		return AccountInference{}, false
	}

	var result AccountInference
	if err := json.Unmarshal([]byte(block), &result); err != nil {
		return AccountInference{}, false
	}

	if result.Account == "" {
		return AccountInference{}, false
	}

	result.Confidence = clamp01(result.Confidence)
	return result, true
}

// stripMarkdownFences removes ```json ... ``` wrappers if present.
func stripMarkdownFences(content string) string {
	content = strings.TrimSpace(content)

	if strings.HasPrefix(content, "```") {
		if idx := strings.Index(content, "\n"); idx >= 0 {
			content = content[idx+1:]
		}
		if idx := strings.LastIndex(content, "```"); idx >= 0 {
			content = content[:idx]
		}
	}

	return strings.TrimSpace(content)
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
