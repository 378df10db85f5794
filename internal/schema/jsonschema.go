package schema

// JSONSchema builds a JSON Schema (draft 2020-12) describing Document's
// shape, by hand rather than through a reflection library: no example
// repo in the corpus pulls one in, and Document's tagged-union fields
// (Nodes, Parameters — decoded from json.RawMessage) can't be derived by
// struct reflection anyway, since their variant shape only exists inside
// nodes.go/params.go's two-pass decoders (see DESIGN.md).
func JSONSchema() map[string]any {
	return map[string]any{
		"$schema": "https://json-schema.org/draft/2020-12/schema",
		"title":   "pywr model document",
		"type":    "object",
		"required": []string{"metadata", "timestepper", "network"},
		"properties": map[string]any{
			"metadata": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"title":           map[string]any{"type": "string"},
					"description":     map[string]any{"type": "string"},
					"minimum_version": map[string]any{"type": "string"},
				},
				"required": []string{"title"},
			},
			"timestepper": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"start": map[string]any{"type": "string", "format": "date"},
					"end":   map[string]any{"type": "string", "format": "date"},
					"step":  map[string]any{"type": "integer", "minimum": 1},
				},
				"required": []string{"start", "end", "step"},
			},
			"scenarios": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"groups": map[string]any{
						"type": "array",
						"items": map[string]any{
							"type": "object",
							"properties": map[string]any{
								"name":   map[string]any{"type": "string"},
								"size":   map[string]any{"type": "integer"},
								"labels": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
								"subset": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
							},
							"required": []string{"name"},
						},
					},
					"combinations": map[string]any{
						"type":  "array",
						"items": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
					},
				},
			},
			"network": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"nodes": map[string]any{
						"type":        "array",
						"description": "tagged union on \"type\"; see the node kind catalog",
						"items":       map[string]any{"type": "object"},
					},
					"edges": map[string]any{
						"type": "array",
						"items": map[string]any{
							"type": "object",
							"properties": map[string]any{
								"from_node": map[string]any{"type": "string"},
								"to_node":   map[string]any{"type": "string"},
								"from_slot": map[string]any{"type": "string"},
								"to_slot":   map[string]any{"type": "string"},
							},
							"required": []string{"from_node", "to_node"},
						},
					},
					"parameters": map[string]any{
						"type":        "array",
						"description": "tagged union on \"type\"; see the parameter kind catalog",
						"items":       map[string]any{"type": "object"},
					},
					"timeseries": map[string]any{
						"type": "array",
						"items": map[string]any{
							"type": "object",
							"properties": map[string]any{
								"name":        map[string]any{"type": "string"},
								"url":         map[string]any{"type": "string"},
								"column":      map[string]any{"type": "string"},
								"date_column": map[string]any{"type": "string"},
							},
							"required": []string{"name", "url"},
						},
					},
					"tables": map[string]any{
						"type": "array",
						"items": map[string]any{
							"type": "object",
							"properties": map[string]any{
								"name":        map[string]any{"type": "string"},
								"url":         map[string]any{"type": "string"},
								"date_column": map[string]any{"type": "string"},
							},
							"required": []string{"name", "url"},
						},
					},
					"metric_sets": map[string]any{
						"type":  "array",
						"items": map[string]any{"type": "object"},
					},
					"outputs": map[string]any{
						"type": "array",
						"items": map[string]any{
							"type": "object",
							"properties": map[string]any{
								"name":           map[string]any{"type": "string"},
								"metric_set":     map[string]any{"type": "string"},
								"kind":           map[string]any{"type": "string"},
								"path":           map[string]any{"type": "string"},
								"decimal_places": map[string]any{"type": "integer"},
							},
							"required": []string{"name", "metric_set", "kind"},
						},
					},
				},
				"required": []string{"nodes"},
			},
		},
	}
}
