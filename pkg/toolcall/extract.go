package toolcall

import (
	"encoding/json"
	"regexp"
	"strings"
)

// RawCall is one tool invocation extracted from free-form text, before
// normalization into a specific tool's field schema.
type RawCall struct {
	Name   string
	Args   map[string]any
	Source string // which extraction strategy found it
}

var oneLinerPattern = regexp.MustCompile(`(\w+)\s*\((.*)\)\s*$`)

// ExtractOneLiners finds single-line `tool_name(...)` invocations, one per
// line, for the given tool name (spec §4.4 step 2a).
func ExtractOneLiners(text, toolName string) []RawCall {
	var calls []RawCall
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		m := oneLinerPattern.FindStringSubmatch(line)
		if m == nil || m[1] != toolName {
			continue
		}
		parsed, err := ParseRelaxed("{" + stripOuterBraces(m[2]) + "}")
		if err != nil {
			// The argument text may already look like a JSON object
			// ("consult_graduate_specialist({...})"); try as-is too.
			parsed, err = ParseRelaxed(m[2])
			if err != nil {
				continue
			}
		}
		calls = append(calls, RawCall{Name: toolName, Args: parsed.Args, Source: "one_liner"})
	}
	return calls
}

func stripOuterBraces(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}") {
		return s[1 : len(s)-1]
	}
	return s
}

// ExtractJSONArray looks for a top-level JSON array anywhere in text and
// returns every element whose tool/function/name field matches toolName
// (spec §4.4 step 2b).
func ExtractJSONArray(text, toolName string) []RawCall {
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start == -1 || end <= start {
		return nil
	}
	var items []map[string]any
	if err := json.Unmarshal([]byte(text[start:end+1]), &items); err != nil {
		return nil
	}
	var calls []RawCall
	for _, item := range items {
		if name, args, ok := matchToolInvocation(item, toolName); ok {
			calls = append(calls, RawCall{Name: name, Args: args, Source: "json_array"})
		}
	}
	return calls
}

// ExtractSingleObject looks for a single top-level JSON object, matching
// either a direct invocation or a nested consultations/calls array (spec
// §4.4 step 2c/2d).
func ExtractSingleObject(text, toolName string) []RawCall {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end <= start {
		return nil
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(text[start:end+1]), &obj); err != nil {
		return nil
	}

	var calls []RawCall
	if name, args, ok := matchToolInvocation(obj, toolName); ok {
		calls = append(calls, RawCall{Name: name, Args: args, Source: "single_object"})
	}

	for _, key := range []string{"consultations", "calls"} {
		raw, ok := obj[key]
		if !ok {
			continue
		}
		items, ok := raw.([]any)
		if !ok {
			continue
		}
		for _, it := range items {
			m, ok := it.(map[string]any)
			if !ok {
				continue
			}
			if name, args, ok := matchToolInvocation(m, toolName); ok {
				calls = append(calls, RawCall{Name: name, Args: args, Source: "nested_array:" + key})
			}
		}
	}
	return calls
}

var fencedBlockPattern = regexp.MustCompile("(?s)```(?:json|javascript|js|python|py)?\\s*\\n(.*?)```")

// ExtractFencedBlocks scans fenced code blocks for JSON containing tool
// invocations (spec §4.4 step 2e).
func ExtractFencedBlocks(text, toolName string) []RawCall {
	var calls []RawCall
	for _, m := range fencedBlockPattern.FindAllStringSubmatch(text, -1) {
		block := strings.TrimSpace(m[1])
		if block == "" {
			continue
		}
		calls = append(calls, ExtractJSONArray(block, toolName)...)
		calls = append(calls, ExtractSingleObject(block, toolName)...)
	}
	return calls
}

// ExtractBraceMatched is a last-resort heuristic: find the tool name as a
// plain substring and brace-match outward from the nearest following `{`
// to recover a JSON object even when surrounded by prose (spec §4.4 step 2f).
func ExtractBraceMatched(text, toolName string) []RawCall {
	idx := strings.Index(text, toolName)
	if idx == -1 {
		return nil
	}
	braceStart := strings.Index(text[idx:], "{")
	if braceStart == -1 {
		return nil
	}
	start := idx + braceStart
	depth := 0
	for i := start; i < len(text); i++ {
		switch text[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				var obj map[string]any
				if err := json.Unmarshal([]byte(text[start:i+1]), &obj); err == nil {
					return []RawCall{{Name: toolName, Args: obj, Source: "brace_matched"}}
				}
				return nil
			}
		}
	}
	return nil
}

// matchToolInvocation checks whether obj names toolName via any of the
// common aliases (tool/function/name/tool_name, possibly nested under a
// "function" sub-object) and extracts its arguments from the matching
// alias field.
func matchToolInvocation(obj map[string]any, toolName string) (string, map[string]any, bool) {
	name, _ := obj["tool"].(string)
	if name == "" {
		name, _ = obj["function"].(string)
	}
	if name == "" {
		name, _ = obj["name"].(string)
	}
	if name == "" {
		name, _ = obj["tool_name"].(string)
	}
	if name == "" {
		if fn, ok := obj["function"].(map[string]any); ok {
			name, _ = fn["name"].(string)
		}
	}
	if name != toolName {
		return "", nil, false
	}

	for _, key := range []string{"parameters", "args", "arguments"} {
		if v, ok := obj[key]; ok {
			if m, ok := v.(map[string]any); ok {
				return name, m, true
			}
			if s, ok := v.(string); ok {
				if parsed, err := ParseRelaxed(s); err == nil {
					return name, parsed.Args, true
				}
			}
		}
	}
	if fn, ok := obj["function"].(map[string]any); ok {
		if v, ok := fn["arguments"]; ok {
			if m, ok := v.(map[string]any); ok {
				return name, m, true
			}
			if s, ok := v.(string); ok {
				if parsed, err := ParseRelaxed(s); err == nil {
					return name, parsed.Args, true
				}
			}
		}
	}
	return name, map[string]any{}, true
}

// ExtractAll runs every relaxed-text extraction strategy in spec §4.4's
// priority order and returns the first strategy that finds anything.
func ExtractAll(text, toolName string) []RawCall {
	if calls := ExtractOneLiners(text, toolName); len(calls) > 0 {
		return calls
	}
	if calls := ExtractJSONArray(text, toolName); len(calls) > 0 {
		return calls
	}
	if calls := ExtractSingleObject(text, toolName); len(calls) > 0 {
		return calls
	}
	if calls := ExtractFencedBlocks(text, toolName); len(calls) > 0 {
		return calls
	}
	return ExtractBraceMatched(text, toolName)
}
