package watcher

import (
	clipboard "golang.design/x/clipboard"

	"github.com/Explosion-Scratch/clippy-sub000/internal/plugin"
)

// snapshotClipboard reads the current OS clipboard contents. The
// golang.design/x/clipboard binding only exposes text and image channels
// portably across platforms; HTML/RTF/file-list formats reach the system
// via the /save API endpoint instead (explicit payload, not polled), which
// is why their plugins' Reconstruct report Supported:false for copy-back.
func snapshotClipboard() (*plugin.RawClipboard, error) {
	text := clipboard.Read(clipboard.FmtText)
	img := clipboard.Read(clipboard.FmtImage)
	if len(text) == 0 && len(img) == 0 {
		return nil, nil
	}
	return &plugin.RawClipboard{
		Text:  text,
		Image: img,
	}, nil
}
