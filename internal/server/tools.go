package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// configProperty is the argument naming a pyramid definition, shared by
// every coverage tool.
var configProperty = map[string]interface{}{
	"type":        "string",
	"description": "Absolute path to the pyramid definition (.yaml, .yml or .xml)",
}

var levelProperty = map[string]interface{}{
	"type":        "integer",
	"description": "Level index (0 = finest, in page order)",
	"default":     0,
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Coverage lifecycle
		{
			Name:        "coverage_load",
			Description: "Load a raster pyramid from its definition and publish it. Returns the resolved coordinate system, level count and any CRS diagnostics. Loading an already published coverage returns it unchanged.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"config": configProperty,
				},
				"required": []string{"config"},
			},
		},
		{
			Name:        "coverage_reload",
			Description: "Rebuild a coverage from its definition and replace the published one. On failure the published coverage is kept.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"config": configProperty,
				},
				"required": []string{"config"},
			},
		},
		{
			Name:        "coverage_unload",
			Description: "Unpublish a coverage and release its decoded levels.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"config": configProperty,
				},
				"required": []string{"config"},
			},
		},
		{
			Name:        "coverage_list",
			Description: "List the definitions of all published coverages.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},

		// Coverage inspection
		{
			Name:        "coverage_levels",
			Description: "List the levels of a coverage in page order with their decode options, dimensions and pixel layout, plus how each level scales relative to the previous one.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"config": configProperty,
				},
				"required": []string{"config"},
			},
		},
		{
			Name:        "coverage_crs",
			Description: "Get the coordinate reference system of a coverage, how it was determined (override, projection, geokeys or default) and the diagnostics recorded while resolving it.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"config": configProperty,
				},
				"required": []string{"config"},
			},
		},
		{
			Name:        "coverage_level_preview",
			Description: "Render one level, or a region of it, as a base64-encoded PNG scaled to fit max_size. Use coarse levels for overviews and fine levels with a region for detail.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"config": configProperty,
					"level":  levelProperty,
					"x1": map[string]interface{}{
						"type":        "integer",
						"description": "Optional region left edge X coordinate (0-based)",
					},
					"y1": map[string]interface{}{
						"type":        "integer",
						"description": "Optional region top edge Y coordinate (0-based)",
					},
					"x2": map[string]interface{}{
						"type":        "integer",
						"description": "Optional region right edge X coordinate (exclusive)",
					},
					"y2": map[string]interface{}{
						"type":        "integer",
						"description": "Optional region bottom edge Y coordinate (exclusive)",
					},
					"max_size": map[string]interface{}{
						"type":        "integer",
						"description": "Longest side of the preview in pixels. Default 512",
						"default":     512,
					},
				},
				"required": []string{"config"},
			},
		},
		{
			Name:        "coverage_sample",
			Description: "Get the pixel value of a level at a pixel coordinate, with the model coordinates of the pixel center when the level is georeferenced.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"config": configProperty,
					"level":  levelProperty,
					"x": map[string]interface{}{
						"type":        "integer",
						"description": "X coordinate (0-based)",
					},
					"y": map[string]interface{}{
						"type":        "integer",
						"description": "Y coordinate (0-based)",
					},
				},
				"required": []string{"config", "x", "y"},
			},
		},
	}
}

func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
