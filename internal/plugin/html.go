package plugin

import (
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/Explosion-Scratch/clippy-sub000/internal/model"
)

var (
	tagRe       = regexp.MustCompile(`(?s)<(script|style)[^>]*>.*?</(script|style)>`)
	anyTagRe    = regexp.MustCompile(`<[^>]+>`)
	whitespaceR = regexp.MustCompile(`[ \t]+`)
)

// HTMLPlugin handles rich-text clipboard captures carrying an HTML
// fragment (e.g. copied from a browser or a rich text editor).
type HTMLPlugin struct{}

func NewHTMLPlugin() *HTMLPlugin { return &HTMLPlugin{} }

func (p *HTMLPlugin) ID() string       { return "html" }
func (p *HTMLPlugin) Kind() model.Kind { return model.KindText }
func (p *HTMLPlugin) Priority() int    { return 3 }

func (p *HTMLPlugin) Probe(raw *RawClipboard) bool { return len(raw.HTML) > 0 }

func (p *HTMLPlugin) Extract(raw *RawClipboard) (Extraction, error) {
	return Extraction{
		Payload: raw.HTML,
		Metadata: map[string]any{
			"length": len(raw.HTML),
		},
	}, nil
}

func (p *HTMLPlugin) Reconstruct(payload []byte, _ map[string]any) (Placement, error) {
	// The OS clipboard binding this system ships with does not expose an
	// HTML clipboard format; copy-back for html falls through to whatever
	// text plugin claimed the same capture, if any.
	return Placement{Supported: false, Reason: "HTML clipboard format not exposed by OS binding"}, nil
}

func (p *HTMLPlugin) Summarize(payload []byte, metadata map[string]any) string {
	text, _ := p.Textify(payload, metadata)
	return SummarizeText([]byte(text))
}

// stripHTML performs a best-effort plain-text extraction: drop script/style
// blocks, strip remaining tags, unescape entities, collapse whitespace.
func stripHTML(raw []byte) string {
	s := tagRe.ReplaceAllString(string(raw), " ")
	s = anyTagRe.ReplaceAllString(s, " ")
	s = html.UnescapeString(s)
	s = whitespaceR.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

func (p *HTMLPlugin) Textify(payload []byte, _ map[string]any) (string, bool) {
	return stripHTML(payload), true
}

func (p *HTMLPlugin) RenderPreview(payload []byte, _ map[string]any, interactive bool) string {
	// The fragment is rendered verbatim inside a scoped container; pointer
	// events inside it are disabled unless interactive is set. The caller
	// is responsible for sandboxing (spec §4.6).
	scripts := ""
	if !interactive {
		scripts = `<style>.clippy-html-preview *{pointer-events:none;}</style>`
	}
	return fmt.Sprintf(`<div class="clippy-html-preview"><style>
.clippy-html-preview{font:13px/1.5 system-ui,sans-serif;padding:8px;overflow:auto;max-height:100%%;}
</style>%s%s</div>`, scripts, string(payload))
}
