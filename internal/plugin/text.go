package plugin

import (
	"fmt"
	"html"
	"strings"
	"unicode"

	"github.com/Explosion-Scratch/clippy-sub000/internal/model"
)

// Clipboard placement formats understood by the watcher's OS binding
// adapter (golang.design/x/clipboard only exposes text and image formats
// directly). FormatText and FormatImagePNG carry the values of that
// package's FmtText and FmtImage, since the watcher converts
// Placement.Format to clipboard.Format directly.
const (
	FormatText        = 0 // clipboard.FmtText
	FormatImagePNG    = 1 // clipboard.FmtImage
	FormatUnsupported = -1
)

const maxSummaryLen = 200

// TextPlugin handles plain-text clipboard captures, the lowest-priority
// (catch-all) format.
type TextPlugin struct{}

func NewTextPlugin() *TextPlugin { return &TextPlugin{} }

func (p *TextPlugin) ID() string         { return "text" }
func (p *TextPlugin) Kind() model.Kind   { return model.KindText }
func (p *TextPlugin) Priority() int      { return 4 }
func (p *TextPlugin) Probe(raw *RawClipboard) bool { return len(raw.Text) > 0 }

func (p *TextPlugin) Extract(raw *RawClipboard) (Extraction, error) {
	lines := strings.Count(string(raw.Text), "\n") + 1
	return Extraction{
		Payload: raw.Text,
		Metadata: map[string]any{
			"lines": lines,
		},
	}, nil
}

func (p *TextPlugin) Reconstruct(payload []byte, _ map[string]any) (Placement, error) {
	return Placement{Format: FormatText, Data: payload, Supported: true}, nil
}

func (p *TextPlugin) Summarize(payload []byte, _ map[string]any) string {
	return SummarizeText(payload)
}

// SummarizeText implements the text summary rule: first <=200 non-control
// characters, newlines replaced with spaces. Shared with the html plugin,
// which textifies then truncates the same way.
func SummarizeText(payload []byte) string {
	var b strings.Builder
	count := 0
	for _, r := range string(payload) {
		if count >= maxSummaryLen {
			break
		}
		if r == '\n' || r == '\r' || r == '\t' {
			b.WriteRune(' ')
			count++
			continue
		}
		if unicode.IsControl(r) {
			continue
		}
		b.WriteRune(r)
		count++
	}
	return b.String()
}

func (p *TextPlugin) Textify(payload []byte, _ map[string]any) (string, bool) {
	return string(payload), true
}

func (p *TextPlugin) RenderPreview(payload []byte, _ map[string]any, interactive bool) string {
	wrap := "pre-wrap"
	if !interactive {
		wrap = "pre"
	}
	return fmt.Sprintf(`<div class="clippy-text-preview"><style>
.clippy-text-preview{font:13px/1.5 ui-monospace,SFMono-Regular,Menlo,monospace;white-space:%s;word-break:break-word;padding:8px;color:#1b1b1b;background:#fafafa;border-radius:6px;}
</style><pre>%s</pre></div>`, wrap, html.EscapeString(string(payload)))
}
