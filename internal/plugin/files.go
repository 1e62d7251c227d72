package plugin

import (
	"encoding/json"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"strings"

	"github.com/Explosion-Scratch/clippy-sub000/internal/model"
	"github.com/xuri/excelize/v2"
)

// FilesPlugin handles file-list clipboard captures (e.g. copying files in
// a file manager). Payload is a JSON array of the original absolute paths;
// actual file bytes are not captured by default (see §4.3's note that
// files__<n>.bin side-files are "rare").
type FilesPlugin struct{}

func NewFilesPlugin() *FilesPlugin { return &FilesPlugin{} }

func (p *FilesPlugin) ID() string       { return "files" }
func (p *FilesPlugin) Kind() model.Kind { return model.KindFile }
func (p *FilesPlugin) Priority() int    { return 0 }

func (p *FilesPlugin) Probe(raw *RawClipboard) bool { return len(raw.Files) > 0 }

func (p *FilesPlugin) Extract(raw *RawClipboard) (Extraction, error) {
	payload, err := json.Marshal(raw.Files)
	if err != nil {
		return Extraction{}, fmt.Errorf("marshal file list: %w", err)
	}

	names := make([]string, 0, len(raw.Files))
	var total int64
	for _, f := range raw.Files {
		names = append(names, filepath.Base(f))
		if info, err := os.Stat(f); err == nil {
			total += info.Size()
		}
	}

	return Extraction{
		Payload: payload,
		Metadata: map[string]any{
			"names":     names,
			"count":     len(raw.Files),
			"totalSize": total,
			"paths":     raw.Files,
		},
	}, nil
}

func (p *FilesPlugin) Reconstruct(payload []byte, _ map[string]any) (Placement, error) {
	return Placement{Supported: false, Reason: "file-list clipboard format not exposed by OS binding"}, nil
}

func (p *FilesPlugin) Summarize(_ []byte, metadata map[string]any) string {
	names, _ := metadata["names"].([]string)
	if len(names) == 0 {
		if raw, ok := metadata["names"].([]any); ok {
			for _, n := range raw {
				if s, ok := n.(string); ok {
					names = append(names, s)
				}
			}
		}
	}
	if len(names) == 0 {
		return "Files"
	}
	if len(names) == 1 {
		return names[0]
	}
	return fmt.Sprintf("%s +%d more", names[0], len(names)-1)
}

func (p *FilesPlugin) Textify(_ []byte, metadata map[string]any) (string, bool) {
	names, _ := metadata["names"].([]string)
	if len(names) == 0 {
		return "", false
	}
	return strings.Join(names, "\n"), true
}

func (p *FilesPlugin) RenderPreview(payload []byte, metadata map[string]any, _ bool) string {
	var paths []string
	_ = json.Unmarshal(payload, &paths)

	var rows strings.Builder
	for _, path := range paths {
		rows.WriteString(fmt.Sprintf("<li>%s</li>", html.EscapeString(filepath.Base(path))))
	}

	extra := renderSpreadsheetSnippet(paths)

	return fmt.Sprintf(`<div class="clippy-files-preview"><style>
.clippy-files-preview{font:13px/1.6 system-ui,sans-serif;padding:8px;}
.clippy-files-preview ul{margin:0;padding-left:18px;}
.clippy-files-preview table{border-collapse:collapse;margin-top:8px;font-size:12px;}
.clippy-files-preview td,.clippy-files-preview th{border:1px solid #ddd;padding:2px 6px;}
</style><ul>%s</ul>%s</div>`, rows.String(), extra)
}

// renderSpreadsheetSnippet gives the "files" plugin a richer preview when
// the captured list contains exactly one spreadsheet whose bytes are still
// reachable on disk: the first rows of its first sheet, rendered as an
// HTML table. Any failure just falls back to the plain file list above.
func renderSpreadsheetSnippet(paths []string) string {
	if len(paths) != 1 {
		return ""
	}
	path := paths[0]
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".xlsx" && ext != ".xlsm" {
		return ""
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return ""
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil || len(rows) == 0 {
		return ""
	}

	const maxRows = 10
	if len(rows) > maxRows {
		rows = rows[:maxRows]
	}

	var b strings.Builder
	b.WriteString("<table>")
	for _, row := range rows {
		b.WriteString("<tr>")
		for _, cell := range row {
			b.WriteString("<td>")
			b.WriteString(html.EscapeString(cell))
			b.WriteString("</td>")
		}
		b.WriteString("</tr>")
	}
	b.WriteString("</table>")
	return b.String()
}
