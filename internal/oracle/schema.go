package oracle

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/JonMunkholm/feeduploader/internal/core"
)

// replySchema constrains the reply to one of options or UNKNOWN.
func replySchema(options []string) map[string]any {
	enum := make([]string, 0, len(options)+1)
	enum = append(enum, options...)
	enum = append(enum, core.Unknown)
	return map[string]any{
		"type":     "object",
		"required": []string{"match"},
		"properties": map[string]any{
			"match": map[string]any{"type": "string", "enum": enum},
		},
	}
}

func validate(schemaMap map[string]any, data []byte) error {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("reply.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("reply.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal reply: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("reply does not match schema: %w", err)
	}
	return nil
}

// parseReply extracts the match from content. Models that ignore the JSON
// instruction and answer with a bare option are accepted too.
func parseReply(content string, options []string) (string, error) {
	content = strings.TrimSpace(content)
	data := []byte(content)
	if !strings.HasPrefix(content, "{") {
		bare := strings.Trim(content, "\"' .")
		data, _ = json.Marshal(map[string]string{"match": bare})
	}

	if err := validate(replySchema(options), data); err != nil {
		return "", err
	}

	var reply struct {
		Match string `json:"match"`
	}
	if err := json.Unmarshal(data, &reply); err != nil {
		return "", fmt.Errorf("decode reply: %w", err)
	}
	return reply.Match, nil
}
