package plugin

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func tinyPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 3))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestImagePlugin_ProbeRequiresImage(t *testing.T) {
	p := NewImagePlugin()
	if p.Probe(&RawClipboard{}) {
		t.Fatal("expected Probe to reject an empty clipboard")
	}
	if !p.Probe(&RawClipboard{Image: tinyPNG(t)}) {
		t.Fatal("expected Probe to accept non-empty image bytes")
	}
}

func TestImagePlugin_ExtractDetectsDimensionsAndMime(t *testing.T) {
	p := NewImagePlugin()
	data := tinyPNG(t)
	ext, err := p.Extract(&RawClipboard{Image: data})
	if err != nil {
		t.Fatal(err)
	}
	if ext.Metadata["width"] != 4 || ext.Metadata["height"] != 3 {
		t.Fatalf("expected 4x3 dimensions, got w=%v h=%v", ext.Metadata["width"], ext.Metadata["height"])
	}
	mime, _ := ext.Metadata["mime"].(string)
	if mime != "image/png" {
		t.Fatalf("expected mime image/png, got %q", mime)
	}
}

func TestImagePlugin_SummarizeWithDimensions(t *testing.T) {
	p := NewImagePlugin()
	got := p.Summarize(nil, map[string]any{"width": 10, "height": 20})
	if got != "Image: 10×20" {
		t.Fatalf("unexpected summary: %q", got)
	}
}

func TestImagePlugin_SummarizeWithoutDimensionsFallsBack(t *testing.T) {
	p := NewImagePlugin()
	if got := p.Summarize(nil, map[string]any{}); got != "Image" {
		t.Fatalf("expected fallback 'Image', got %q", got)
	}
}

func TestImagePlugin_TextifyUnsupported(t *testing.T) {
	p := NewImagePlugin()
	if _, ok := p.Textify(nil, nil); ok {
		t.Fatal("expected image to have no text projection")
	}
}

func TestImagePlugin_ReconstructSupported(t *testing.T) {
	p := NewImagePlugin()
	placement, err := p.Reconstruct(tinyPNG(t), nil)
	if err != nil {
		t.Fatal(err)
	}
	if !placement.Supported || placement.Format != FormatImagePNG {
		t.Fatalf("expected supported image placement, got %+v", placement)
	}
}
