package agents

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

var jsonBlock = regexp.MustCompile(`(?s)\{.*\}`)

// ParseJSON extracts a JSON object from model output. It tries the outermost
// brace block, fence stripping, a direct parse and finally jsonrepair; when
// all fail the raw text becomes a neutral analysis.
func ParseJSON(text string) map[string]interface{} {
	text = strings.TrimSpace(text)

	block := jsonBlock.FindString(text)
	if block != "" {
		if obj, ok := decodeObject(block); ok {
			return obj
		}
	}

	cleaned := stripFences(text)
	if obj, ok := decodeObject(cleaned); ok {
		return obj
	}

	candidate := cleaned
	if block != "" {
		candidate = block
	}
	if repaired, err := jsonrepair.JSONRepair(candidate); err == nil {
		if obj, ok := decodeObject(repaired); ok {
			return obj
		}
	}

	return map[string]interface{}{
		"sentiment_score": float64(NeutralScore),
		"analysis":        text,
	}
}

func stripFences(text string) string {
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	}
	return strings.TrimSpace(text)
}

func decodeObject(s string) (map[string]interface{}, bool) {
	var obj map[string]interface{}
	if err := json.Unmarshal([]byte(s), &obj); err != nil || obj == nil {
		return nil, false
	}
	return obj, true
}

// decodeInto converts a parsed object into a typed response.
func decodeInto(obj map[string]interface{}, out interface{}) error {
	raw, err := json.Marshal(obj)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

// looseInt accepts numbers and numeric strings such as "75" or "75/100".
type looseInt int

func (l *looseInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if i := strings.IndexAny(s, "/ %"); i > 0 {
		s = s[:i]
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		*l = looseInt(NeutralScore)
		return nil
	}
	*l = looseInt(f + 0.5)
	return nil
}

// looseString accepts strings, numbers and nested values.
type looseString string

func (l *looseString) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*l = looseString(s)
		return nil
	}
	if string(b) == "null" {
		*l = ""
		return nil
	}
	*l = looseString(strings.TrimSpace(string(b)))
	return nil
}
