package store

import "path/filepath"

const (
	metaFileName    = "meta.json"
	lockFileName    = "meta.json.lock"
	dataSubdir      = "data"
	indexSubdir     = "index"
	brokenSubdir    = "_broken"
	configFileName  = "config.json"
	rootLockFile    = "LOCK"
	inlineThreshold = 64 * 1024 // default, overridden by config
)

// DataDir is <root>/data.
func DataDir(root string) string { return filepath.Join(root, dataSubdir) }

// IndexDir is <root>/index, the optional cached serialization of the index.
func IndexDir(root string) string { return filepath.Join(root, indexSubdir) }

// BrokenDir is <root>/data/_broken, where quarantined entries land.
func BrokenDir(root string) string { return filepath.Join(DataDir(root), brokenSubdir) }

// EntryDir is <root>/data/<hh>/<hh>/<hash>.
func EntryDir(root, hash string) string {
	if len(hash) < 4 {
		return filepath.Join(DataDir(root), hash)
	}
	return filepath.Join(DataDir(root), hash[0:2], hash[2:4], hash)
}

func metaPath(entryDir string) string { return filepath.Join(entryDir, metaFileName) }
func lockPath(entryDir string) string { return filepath.Join(entryDir, lockFileName) }

// SideFileName returns the on-disk file name for a plugin's side-file
// payload, matching the layout documented in spec §4.3. ext is the
// plugin-detected file extension (e.g. ".png"), used only for the image
// plugin; callers for every other plugin may pass "".
func SideFileName(pluginID string, ext string) string {
	switch pluginID {
	case "text":
		return "text.txt"
	case "html":
		return "html.html"
	case "rtf":
		return "rtf.rtf"
	case "image":
		if ext == "" {
			ext = ".png"
		}
		return "image__data" + ext
	default:
		return pluginID + "__data.bin"
	}
}
