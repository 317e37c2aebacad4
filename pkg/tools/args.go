package tools

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// DecodeArguments decodes a JSON argument document into out.
// Numbers given as strings (and the reverse) are accepted, since text-based
// clients are often loose about argument types.
func DecodeArguments(doc string, out any) error {
	raw := map[string]any{}
	if strings.TrimSpace(doc) != "" {
		if err := json.Unmarshal([]byte(doc), &raw); err != nil {
			return fmt.Errorf("invalid JSON arguments: %w", err)
		}
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
		TagName:          "mapstructure",
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(raw); err != nil {
		return fmt.Errorf("decode arguments: %w", err)
	}
	return nil
}

// EncodeContent renders a handler payload as the JSON content of a result.
func EncodeContent(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode content: %w", err)
	}
	return string(b), nil
}
