package plugin

import (
	"fmt"

	"github.com/Explosion-Scratch/clippy-sub000/internal/model"
)

// RTFPlugin handles Rich Text Format clipboard captures, common when
// copying from word processors.
type RTFPlugin struct{}

func NewRTFPlugin() *RTFPlugin { return &RTFPlugin{} }

func (p *RTFPlugin) ID() string       { return "rtf" }
func (p *RTFPlugin) Kind() model.Kind { return model.KindText }
func (p *RTFPlugin) Priority() int    { return 2 }

func (p *RTFPlugin) Probe(raw *RawClipboard) bool { return len(raw.RTF) > 0 }

func (p *RTFPlugin) Extract(raw *RawClipboard) (Extraction, error) {
	return Extraction{
		Payload:  raw.RTF,
		Metadata: map[string]any{"byteSize": len(raw.RTF)},
	}, nil
}

func (p *RTFPlugin) Reconstruct(payload []byte, _ map[string]any) (Placement, error) {
	return Placement{Supported: false, Reason: "RTF clipboard format not exposed by OS binding"}, nil
}

func (p *RTFPlugin) Summarize(payload []byte, _ map[string]any) string {
	return fmt.Sprintf("RTF: %d bytes", len(payload))
}

// Textify reports no text projection: RTF control words are not parsed
// into plain text, so rtf captures are not covered by full-text search.
func (p *RTFPlugin) Textify(payload []byte, metadata map[string]any) (string, bool) {
	return "", false
}

func (p *RTFPlugin) RenderPreview(payload []byte, _ map[string]any, _ bool) string {
	return fmt.Sprintf(`<div class="clippy-rtf-preview"><style>
.clippy-rtf-preview{font:13px/1.5 system-ui,sans-serif;padding:16px;color:#555;}
.clippy-rtf-badge{display:inline-block;padding:2px 8px;border-radius:4px;background:#eee;font-family:ui-monospace,monospace;font-size:12px;}
</style><div class="clippy-rtf-badge">RTF &middot; %d bytes</div></div>`, len(payload))
}
