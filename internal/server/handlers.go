package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"

	"github.com/ironsheep/raster-pyramid/internal/crs"
	"github.com/ironsheep/raster-pyramid/internal/imaging"
	"github.com/ironsheep/raster-pyramid/internal/pyramid"
	"github.com/ironsheep/raster-pyramid/internal/raster"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "coverage_load", "coverage_levels").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
// When a coverage cannot be built the error data carries the failure kind.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		s.logger.Debug("tool failed", "tool", params.Name, "error", err)
		var ierr *pyramid.InitializationError
		if errors.As(err, &ierr) {
			return s.errorResponse(req.ID, -32000, "Coverage unavailable", map[string]interface{}{
				"kind":  ierr.Kind.String(),
				"error": err.Error(),
			})
		}
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
//
// Each tool handler:
//  1. Unmarshals arguments from JSON
//  2. Applies default values for optional parameters
//  3. Loads the coverage from the workspace as needed
//  4. Calls the appropriate imaging function on the selected level
//  5. Returns the result or error
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	switch name {
	// Coverage lifecycle
	case "coverage_load":
		return s.handleCoverageLoad(ctx, args)
	case "coverage_reload":
		return s.handleCoverageReload(ctx, args)
	case "coverage_unload":
		return s.handleCoverageUnload(args)
	case "coverage_list":
		return s.handleCoverageList()

	// Coverage inspection
	case "coverage_levels":
		return s.handleCoverageLevels(ctx, args)
	case "coverage_crs":
		return s.handleCoverageCRS(ctx, args)
	case "coverage_level_preview":
		return s.handleCoverageLevelPreview(ctx, args)
	case "coverage_sample":
		return s.handleCoverageSample(ctx, args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message string, data interface{}) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

type configArgs struct {
	Config string `json:"config"`
}

func parseConfigArgs(args json.RawMessage, a interface{ config() string }) error {
	if err := json.Unmarshal(args, a); err != nil {
		return err
	}
	if a.config() == "" {
		return errors.New("config is required")
	}
	return nil
}

func (a *configArgs) config() string { return a.Config }

// === Coverage Lifecycle Handlers ===

// CoverageSummary describes a published coverage.
type CoverageSummary struct {
	Config      string           `json:"config"`
	File        string           `json:"file"`
	CRS         string           `json:"crs"`
	CRSSource   crs.Source       `json:"crs_source"`
	Levels      int              `json:"levels"`
	Diagnostics []crs.Diagnostic `json:"diagnostics,omitempty"`
}

func summarize(config string, pyr *pyramid.Pyramid) *CoverageSummary {
	return &CoverageSummary{
		Config:      config,
		File:        pyr.File(),
		CRS:         pyr.CoordinateSystem().Alias(),
		CRSSource:   pyr.Source(),
		Levels:      pyr.Len(),
		Diagnostics: pyr.Diagnostics(),
	}
}

func (s *Server) handleCoverageLoad(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a configArgs
	if err := parseConfigArgs(args, &a); err != nil {
		return nil, err
	}
	pyr, err := s.coverages.Load(ctx, a.Config)
	if err != nil {
		return nil, err
	}
	return summarize(a.Config, pyr), nil
}

func (s *Server) handleCoverageReload(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a configArgs
	if err := parseConfigArgs(args, &a); err != nil {
		return nil, err
	}
	pyr, err := s.coverages.Reload(ctx, a.Config)
	if err != nil {
		return nil, err
	}
	return summarize(a.Config, pyr), nil
}

// UnloadResult reports whether a coverage was published.
type UnloadResult struct {
	Config   string `json:"config"`
	Unloaded bool   `json:"unloaded"`
}

func (s *Server) handleCoverageUnload(args json.RawMessage) (interface{}, error) {
	var a configArgs
	if err := parseConfigArgs(args, &a); err != nil {
		return nil, err
	}
	return &UnloadResult{Config: a.Config, Unloaded: s.coverages.Evict(a.Config)}, nil
}

// ListResult lists the published coverages.
type ListResult struct {
	Configs []string `json:"configs"`
}

func (s *Server) handleCoverageList() (interface{}, error) {
	return &ListResult{Configs: s.coverages.Paths()}, nil
}

// === Coverage Inspection Handlers ===

// LevelEntry describes one level of a coverage.
type LevelEntry struct {
	imaging.LevelInfo
	Options    raster.DecodeOptions `json:"options"`
	PixelScale *[3]float64          `json:"pixel_scale,omitempty"`
}

// LevelsResult lists the levels of a coverage in page order.
type LevelsResult struct {
	Config string              `json:"config"`
	CRS    string              `json:"crs"`
	Levels []LevelEntry        `json:"levels"`
	Scales imaging.ScaleReport `json:"scales"`
}

func (s *Server) handleCoverageLevels(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a configArgs
	if err := parseConfigArgs(args, &a); err != nil {
		return nil, err
	}
	pyr, err := s.coverages.Load(ctx, a.Config)
	if err != nil {
		return nil, err
	}

	levels := pyr.Levels()
	result := &LevelsResult{
		Config: a.Config,
		CRS:    pyr.CoordinateSystem().Alias(),
		Levels: make([]LevelEntry, len(levels)),
	}
	bounds := make([]image.Rectangle, len(levels))
	for i, l := range levels {
		bounds[i] = l.Bounds()
		entry := LevelEntry{Options: l.Options}
		if img := l.Raster.Image(); img != nil {
			entry.LevelInfo = imaging.Describe(l.Index, img)
		} else {
			entry.LevelInfo = imaging.LevelInfo{Index: l.Index, Width: bounds[i].Dx(), Height: bounds[i].Dy(), ColorModel: "unknown"}
		}
		if g, ok := l.Raster.(raster.Georeferenced); ok {
			if scale, ok := g.PixelScale(); ok {
				entry.PixelScale = &scale
			}
		}
		result.Levels[i] = entry
	}
	result.Scales = imaging.CheckScales(bounds)
	return result, nil
}

// CRSResult describes the coordinate system of a coverage.
type CRSResult struct {
	Config      string               `json:"config"`
	CRS         crs.SpatialReference `json:"crs"`
	Source      crs.Source           `json:"source"`
	Diagnostics []crs.Diagnostic     `json:"diagnostics,omitempty"`
}

func (s *Server) handleCoverageCRS(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a configArgs
	if err := parseConfigArgs(args, &a); err != nil {
		return nil, err
	}
	pyr, err := s.coverages.Load(ctx, a.Config)
	if err != nil {
		return nil, err
	}
	return &CRSResult{
		Config:      a.Config,
		CRS:         pyr.CoordinateSystem(),
		Source:      pyr.Source(),
		Diagnostics: pyr.Diagnostics(),
	}, nil
}

// levelImage loads the coverage and returns the pixels of one level.
func (s *Server) levelImage(ctx context.Context, config string, index int) (pyramid.Level, image.Image, error) {
	pyr, err := s.coverages.Load(ctx, config)
	if err != nil {
		return pyramid.Level{}, nil, err
	}
	l, ok := pyr.Level(index)
	if !ok {
		return pyramid.Level{}, nil, fmt.Errorf("level %d out of range [0,%d)", index, pyr.Len())
	}
	img := l.Raster.Image()
	if img == nil {
		return pyramid.Level{}, nil, fmt.Errorf("level %d has been released", index)
	}
	return l, img, nil
}

type coveragePreviewArgs struct {
	configArgs
	Level   int  `json:"level"`
	X1      *int `json:"x1"`
	Y1      *int `json:"y1"`
	X2      *int `json:"x2"`
	Y2      *int `json:"y2"`
	MaxSize int  `json:"max_size"`
}

func (a *coveragePreviewArgs) region() (*image.Rectangle, error) {
	set := 0
	for _, v := range []*int{a.X1, a.Y1, a.X2, a.Y2} {
		if v != nil {
			set++
		}
	}
	switch set {
	case 0:
		return nil, nil
	case 4:
		r := image.Rect(*a.X1, *a.Y1, *a.X2, *a.Y2)
		if *a.X1 >= *a.X2 || *a.Y1 >= *a.Y2 {
			return nil, fmt.Errorf("invalid region: x1 must be < x2, y1 must be < y2")
		}
		return &r, nil
	default:
		return nil, errors.New("a region needs all of x1, y1, x2 and y2")
	}
}

func (s *Server) handleCoverageLevelPreview(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a coveragePreviewArgs
	if err := parseConfigArgs(args, &a); err != nil {
		return nil, err
	}
	region, err := a.region()
	if err != nil {
		return nil, err
	}
	if a.MaxSize == 0 {
		a.MaxSize = imaging.DefaultPreviewSize
	}
	_, img, err := s.levelImage(ctx, a.Config, a.Level)
	if err != nil {
		return nil, err
	}
	return imaging.Preview(img, region, a.MaxSize)
}

type coverageSampleArgs struct {
	configArgs
	Level int `json:"level"`
	X     int `json:"x"`
	Y     int `json:"y"`
}

// SampleResult is a pixel value located in the coverage.
type SampleResult struct {
	*imaging.PixelValue
	Level  int      `json:"level"`
	CRS    string   `json:"crs"`
	ModelX *float64 `json:"model_x,omitempty"`
	ModelY *float64 `json:"model_y,omitempty"`
}

func (s *Server) handleCoverageSample(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a coverageSampleArgs
	if err := parseConfigArgs(args, &a); err != nil {
		return nil, err
	}
	l, img, err := s.levelImage(ctx, a.Config, a.Level)
	if err != nil {
		return nil, err
	}
	v, err := imaging.SamplePixel(img, a.X, a.Y)
	if err != nil {
		return nil, err
	}

	result := &SampleResult{PixelValue: v, Level: a.Level, CRS: l.Options.CRSAlias}
	if g, ok := l.Raster.(raster.Georeferenced); ok {
		// Pixel centers sit half a pixel from the corner.
		if mx, my, ok := raster.ModelPoint(g, float64(a.X)+0.5, float64(a.Y)+0.5); ok {
			result.ModelX, result.ModelY = &mx, &my
		}
	}
	return result, nil
}
