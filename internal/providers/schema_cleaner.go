package providers

import "strings"

// Some providers reject JSON Schema keywords in tool parameter schemas.
// Gemini rejects $ref/$defs/additionalProperties/examples/default;
// Anthropic ignores most extras but chokes on $ref/$defs.
var unsupportedSchemaKeys = map[string]map[string]struct{}{
	"gemini": {
		"$ref": {}, "$defs": {}, "additionalProperties": {},
		"examples": {}, "default": {},
	},
	"anthropic": {
		"$ref": {}, "$defs": {},
	},
}

// CleanToolSchemas returns tools with provider-incompatible JSON Schema
// keywords stripped from each parameters map. Providers that need no
// cleaning get the original slice back.
func CleanToolSchemas(providerName string, tools []ToolDefinition) []ToolDefinition {
	drop := schemaKeysToDrop(providerName)
	if drop == nil || len(tools) == 0 {
		return tools
	}

	cleaned := make([]ToolDefinition, len(tools))
	for i, t := range tools {
		cleaned[i] = t
		cleaned[i].Function.Parameters = cleanSchema(t.Function.Parameters, drop)
	}
	return cleaned
}

func schemaKeysToDrop(name string) map[string]struct{} {
	if strings.HasPrefix(name, "gemini") {
		return unsupportedSchemaKeys["gemini"]
	}
	if keys, ok := unsupportedSchemaKeys[name]; ok {
		return keys
	}
	return nil
}

// cleanSchema removes dropped keys recursively, descending into nested
// schemas and combinator arrays (anyOf/oneOf/allOf).
func cleanSchema(schema map[string]interface{}, drop map[string]struct{}) map[string]interface{} {
	if schema == nil {
		return nil
	}
	out := make(map[string]interface{}, len(schema))
	for k, v := range schema {
		if _, skip := drop[k]; skip {
			continue
		}
		switch val := v.(type) {
		case map[string]interface{}:
			out[k] = cleanSchema(val, drop)
		case []interface{}:
			items := make([]interface{}, len(val))
			for i, item := range val {
				if m, ok := item.(map[string]interface{}); ok {
					items[i] = cleanSchema(m, drop)
				} else {
					items[i] = item
				}
			}
			out[k] = items
		default:
			out[k] = v
		}
	}
	return out
}
