package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// callTool invokes a tool through tools/call.
func callTool(t *testing.T, s *Server, name string, args map[string]interface{}) *MCPResponse {
	t.Helper()
	params, err := json.Marshal(map[string]interface{}{
		"name":      name,
		"arguments": args,
	})
	if err != nil {
		t.Fatalf("failed to marshal params: %v", err)
	}
	resp := s.handleRequest(context.Background(), &MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params:  params,
	})
	if resp == nil {
		t.Fatal("tools/call returned nil")
	}
	return resp
}

// toolResult decodes the text content of a successful tool response into v.
func toolResult(t *testing.T, resp *MCPResponse, v interface{}) {
	t.Helper()
	if resp.Error != nil {
		t.Fatalf("tool failed: %s: %v", resp.Error.Message, resp.Error.Data)
	}
	result, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatal("Result should be a map")
	}
	content, ok := result["content"].([]map[string]interface{})
	if !ok || len(content) != 1 {
		t.Fatalf("unexpected content: %v", result["content"])
	}
	text, ok := content[0]["text"].(string)
	if !ok {
		t.Fatal("content text should be a string")
	}
	if err := json.Unmarshal([]byte(text), v); err != nil {
		t.Fatalf("failed to decode tool result: %v", err)
	}
}

// toolError returns the error of a failed tool response.
func toolError(t *testing.T, resp *MCPResponse) *MCPError {
	t.Helper()
	if resp.Error == nil {
		t.Fatalf("expected an error, got %v", resp.Result)
	}
	if resp.Error.Code != -32000 {
		t.Errorf("error code: got %d, want -32000", resp.Error.Code)
	}
	return resp.Error
}

func TestCoverageLoad(t *testing.T) {
	s := newTestServer(t)
	def := createTestCoverage(t)

	var summary CoverageSummary
	toolResult(t, callTool(t, s, "coverage_load", map[string]interface{}{"config": def}), &summary)

	if summary.Levels != 3 {
		t.Errorf("levels: got %d, want 3", summary.Levels)
	}
	if summary.CRS != "EPSG:25832" {
		t.Errorf("crs: got %s, want EPSG:25832", summary.CRS)
	}
	if summary.CRSSource != "geokeys" {
		t.Errorf("crs_source: got %s, want geokeys", summary.CRSSource)
	}
	if filepath.Base(summary.File) != "utm.tif" {
		t.Errorf("file: got %s", summary.File)
	}
	if len(summary.Diagnostics) != 0 {
		t.Errorf("unexpected diagnostics: %v", summary.Diagnostics)
	}

	var list ListResult
	toolResult(t, callTool(t, s, "coverage_list", nil), &list)
	if len(list.Configs) != 1 || list.Configs[0] != def {
		t.Errorf("configs: got %v, want [%s]", list.Configs, def)
	}
}

func TestCoverageLoad_Errors(t *testing.T) {
	s := newTestServer(t)
	dir := t.TempDir()

	badYAML := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(badYAML, []byte("pyramidFile: [\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	missingTIFF := filepath.Join(dir, "missing.yaml")
	if err := os.WriteFile(missingTIFF, []byte("pyramidFile: nothing.tif\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		config   string
		wantKind string
	}{
		{"missing definition", filepath.Join(dir, "absent.yaml"), "io"},
		{"malformed definition", badYAML, "config-parse"},
		{"missing pyramid file", missingTIFF, "io"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mcpErr := toolError(t, callTool(t, s, "coverage_load", map[string]interface{}{"config": tt.config}))
			if mcpErr.Message != "Coverage unavailable" {
				t.Errorf("message: got %q", mcpErr.Message)
			}
			data, ok := mcpErr.Data.(map[string]interface{})
			if !ok {
				t.Fatalf("data should be a map, got %T", mcpErr.Data)
			}
			if data["kind"] != tt.wantKind {
				t.Errorf("kind: got %v, want %s", data["kind"], tt.wantKind)
			}
		})
	}

	var list ListResult
	toolResult(t, callTool(t, s, "coverage_list", nil), &list)
	if len(list.Configs) != 0 {
		t.Errorf("failed loads were published: %v", list.Configs)
	}
}

func TestCoverageTools_MissingConfig(t *testing.T) {
	s := newTestServer(t)

	for _, name := range []string{"coverage_load", "coverage_reload", "coverage_unload", "coverage_levels", "coverage_crs", "coverage_level_preview", "coverage_sample"} {
		t.Run(name, func(t *testing.T) {
			mcpErr := toolError(t, callTool(t, s, name, map[string]interface{}{}))
			if mcpErr.Data != "config is required" {
				t.Errorf("data: got %v", mcpErr.Data)
			}
		})
	}
}

func TestCoverageReloadAndUnload(t *testing.T) {
	s := newTestServer(t)
	def := createTestCoverage(t)
	args := map[string]interface{}{"config": def}

	var summary CoverageSummary
	toolResult(t, callTool(t, s, "coverage_load", args), &summary)
	toolResult(t, callTool(t, s, "coverage_reload", args), &summary)
	if summary.Levels != 3 {
		t.Errorf("reloaded levels: got %d, want 3", summary.Levels)
	}

	// A broken pyramid file keeps the published coverage.
	if err := os.WriteFile(filepath.Join(filepath.Dir(def), "utm.tif"), []byte("not a tiff"), 0o644); err != nil {
		t.Fatal(err)
	}
	toolError(t, callTool(t, s, "coverage_reload", args))

	var levels LevelsResult
	toolResult(t, callTool(t, s, "coverage_levels", args), &levels)
	if len(levels.Levels) != 3 {
		t.Errorf("levels after failed reload: got %d, want 3", len(levels.Levels))
	}

	var unload UnloadResult
	toolResult(t, callTool(t, s, "coverage_unload", args), &unload)
	if !unload.Unloaded {
		t.Error("coverage_unload: want unloaded")
	}
	toolResult(t, callTool(t, s, "coverage_unload", args), &unload)
	if unload.Unloaded {
		t.Error("second coverage_unload: want not unloaded")
	}
}

func TestCoverageLevels(t *testing.T) {
	s := newTestServer(t)
	def := createTestCoverage(t)

	var result LevelsResult
	toolResult(t, callTool(t, s, "coverage_levels", map[string]interface{}{"config": def}), &result)

	if result.CRS != "EPSG:25832" {
		t.Errorf("crs: got %s", result.CRS)
	}
	if len(result.Levels) != 3 {
		t.Fatalf("levels: got %d, want 3", len(result.Levels))
	}
	for i, l := range result.Levels {
		if l.Index != i {
			t.Errorf("level %d: index %d", i, l.Index)
		}
		if l.Width != 40>>i || l.Height != 20>>i {
			t.Errorf("level %d: got %dx%d, want %dx%d", i, l.Width, l.Height, 40>>i, 20>>i)
		}
		if l.Options.CRSAlias != "EPSG:25832" {
			t.Errorf("level %d: crs alias %s", i, l.Options.CRSAlias)
		}
		if l.Options.Format != "tif" {
			t.Errorf("level %d: format %s", i, l.Options.Format)
		}
		if l.PixelScale == nil {
			t.Fatalf("level %d: missing pixel scale", i)
		}
		if want := float64(int(10) << i); l.PixelScale[0] != want {
			t.Errorf("level %d: pixel scale %v, want %v", i, l.PixelScale[0], want)
		}
	}
	if !result.Scales.Monotonic {
		t.Error("scales: want monotonic")
	}
}

func TestCoverageCRS(t *testing.T) {
	s := newTestServer(t)
	def := createTestCoverage(t)

	var result CRSResult
	toolResult(t, callTool(t, s, "coverage_crs", map[string]interface{}{"config": def}), &result)

	if result.CRS.Code != "EPSG:25832" {
		t.Errorf("code: got %s", result.CRS.Code)
	}
	if result.CRS.Kind != "projected" {
		t.Errorf("kind: got %s", result.CRS.Kind)
	}
	if result.Source != "geokeys" {
		t.Errorf("source: got %s", result.Source)
	}
}

func TestCoverageLevelPreview(t *testing.T) {
	s := newTestServer(t)
	def := createTestCoverage(t)

	tests := []struct {
		name       string
		args       map[string]interface{}
		wantWidth  int
		wantHeight int
	}{
		{"whole level", map[string]interface{}{"level": 0}, 40, 20},
		{"coarse level", map[string]interface{}{"level": 2}, 10, 5},
		{"fit", map[string]interface{}{"level": 0, "max_size": 20}, 20, 10},
		{"region", map[string]interface{}{"x1": 10, "y1": 0, "x2": 20, "y2": 10}, 10, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.args["config"] = def
			var result struct {
				Width       int    `json:"width"`
				Height      int    `json:"height"`
				ImageBase64 string `json:"image_base64"`
				MimeType    string `json:"mime_type"`
			}
			toolResult(t, callTool(t, s, "coverage_level_preview", tt.args), &result)

			if result.Width != tt.wantWidth || result.Height != tt.wantHeight {
				t.Errorf("size: got %dx%d, want %dx%d", result.Width, result.Height, tt.wantWidth, tt.wantHeight)
			}
			if result.MimeType != "image/png" {
				t.Errorf("mime type: got %s", result.MimeType)
			}
			data, err := base64.StdEncoding.DecodeString(result.ImageBase64)
			if err != nil {
				t.Fatalf("invalid base64: %v", err)
			}
			if !strings.HasPrefix(string(data), "\x89PNG") {
				t.Error("preview is not a PNG")
			}
		})
	}
}

func TestCoverageLevelPreview_Errors(t *testing.T) {
	s := newTestServer(t)
	def := createTestCoverage(t)

	tests := []struct {
		name    string
		args    map[string]interface{}
		wantErr string
	}{
		{"level out of range", map[string]interface{}{"level": 3}, "out of range"},
		{"partial region", map[string]interface{}{"x1": 0, "y1": 0}, "needs all of"},
		{"inverted region", map[string]interface{}{"x1": 10, "y1": 0, "x2": 5, "y2": 10}, "invalid region"},
		{"region outside level", map[string]interface{}{"level": 2, "x1": 0, "y1": 0, "x2": 20, "y2": 5}, "outside level bounds"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.args["config"] = def
			mcpErr := toolError(t, callTool(t, s, "coverage_level_preview", tt.args))
			msg, _ := mcpErr.Data.(string)
			if !strings.Contains(msg, tt.wantErr) {
				t.Errorf("error: got %q, want it to contain %q", msg, tt.wantErr)
			}
		})
	}
}

func TestCoverageSample(t *testing.T) {
	s := newTestServer(t)
	def := createTestCoverage(t)

	tests := []struct {
		name    string
		level   int
		x, y    int
		wantHex string
		wantMX  float64
		wantMY  float64
	}{
		{"finest level", 0, 3, 2, "#FF0000", 500035, 5599975},
		{"coarser level", 1, 1, 1, "#FF6400", 500030, 5599970},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var result SampleResult
			toolResult(t, callTool(t, s, "coverage_sample", map[string]interface{}{
				"config": def,
				"level":  tt.level,
				"x":      tt.x,
				"y":      tt.y,
			}), &result)

			if result.PixelValue == nil {
				t.Fatal("missing pixel value")
			}
			if result.Hex != tt.wantHex {
				t.Errorf("hex: got %s, want %s", result.Hex, tt.wantHex)
			}
			if result.Level != tt.level {
				t.Errorf("level: got %d, want %d", result.Level, tt.level)
			}
			if result.CRS != "EPSG:25832" {
				t.Errorf("crs: got %s", result.CRS)
			}
			if result.ModelX == nil || result.ModelY == nil {
				t.Fatal("missing model coordinates")
			}
			if *result.ModelX != tt.wantMX || *result.ModelY != tt.wantMY {
				t.Errorf("model point: got (%v, %v), want (%v, %v)", *result.ModelX, *result.ModelY, tt.wantMX, tt.wantMY)
			}
		})
	}
}

func TestCoverageSample_OutOfBounds(t *testing.T) {
	s := newTestServer(t)
	def := createTestCoverage(t)

	mcpErr := toolError(t, callTool(t, s, "coverage_sample", map[string]interface{}{
		"config": def,
		"level":  2,
		"x":      10,
		"y":      0,
	}))
	if msg, _ := mcpErr.Data.(string); !strings.Contains(msg, "outside level bounds") {
		t.Errorf("error: got %q", msg)
	}
}

func TestHandleToolsCall_UnknownTool(t *testing.T) {
	s := newTestServer(t)

	mcpErr := toolError(t, callTool(t, s, "image_load", map[string]interface{}{}))
	if mcpErr.Data != "unknown tool: image_load" {
		t.Errorf("data: got %v", mcpErr.Data)
	}
}

func TestHandleToolsCall_InvalidParams(t *testing.T) {
	s := newTestServer(t)

	resp := s.handleRequest(context.Background(), &MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params:  json.RawMessage(`"not an object"`),
	})
	if resp == nil || resp.Error == nil {
		t.Fatal("expected an error response")
	}
	if resp.Error.Code != -32602 {
		t.Errorf("error code: got %d, want -32602", resp.Error.Code)
	}
}
