package plugin

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/Explosion-Scratch/clippy-sub000/internal/model"
	"github.com/wailsapp/mimetype"
)

// ImagePlugin handles raster image clipboard captures. Payloads are always
// stored as side-files (spec §4.3); extract returns the raw bytes and the
// store decides where to put them.
type ImagePlugin struct{}

func NewImagePlugin() *ImagePlugin { return &ImagePlugin{} }

func (p *ImagePlugin) ID() string       { return "image" }
func (p *ImagePlugin) Kind() model.Kind { return model.KindImage }
func (p *ImagePlugin) Priority() int    { return 1 }

func (p *ImagePlugin) Probe(raw *RawClipboard) bool { return len(raw.Image) > 0 }

func (p *ImagePlugin) Extract(raw *RawClipboard) (Extraction, error) {
	meta := map[string]any{}
	mime := mimetype.Detect(raw.Image)
	meta["mime"] = mime.String()
	meta["ext"] = mime.Extension()

	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw.Image))
	if err == nil {
		meta["width"] = cfg.Width
		meta["height"] = cfg.Height
	}

	return Extraction{Payload: raw.Image, Metadata: meta}, nil
}

func (p *ImagePlugin) Reconstruct(payload []byte, _ map[string]any) (Placement, error) {
	return Placement{Format: FormatImagePNG, Data: payload, Supported: true}, nil
}

func (p *ImagePlugin) Summarize(_ []byte, metadata map[string]any) string {
	w, wok := metadata["width"].(int)
	h, hok := metadata["height"].(int)
	if wok && hok && w > 0 && h > 0 {
		return fmt.Sprintf("Image: %d×%d", w, h)
	}
	return "Image"
}

func (p *ImagePlugin) Textify(_ []byte, _ map[string]any) (string, bool) {
	return "", false
}

func (p *ImagePlugin) RenderPreview(payload []byte, metadata map[string]any, interactive bool) string {
	mime, _ := metadata["mime"].(string)
	if mime == "" {
		mime = "image/png"
	}
	dataURL := fmt.Sprintf("data:%s;base64,%s", mime, base64.StdEncoding.EncodeToString(payload))

	if !interactive {
		return fmt.Sprintf(`<div class="clippy-image-preview"><style>
.clippy-image-preview{display:flex;align-items:center;justify-content:center;padding:8px;}
.clippy-image-preview img{max-width:100%%;max-height:100%%;object-fit:contain;}
</style><img src="%s" alt="clipboard image"/></div>`, dataURL)
	}

	return fmt.Sprintf(`<div class="clippy-image-preview clippy-image-preview-interactive"><style>
.clippy-image-preview-interactive{overflow:hidden;cursor:grab;width:100%%;height:100%%;touch-action:none;}
.clippy-image-preview-interactive img{transform-origin:0 0;transition:transform 60ms linear;user-select:none;}
</style><img id="clippy-img" src="%s" alt="clipboard image"/>
<script>(function(){
  var el=document.getElementById('clippy-img');
  var scale=1, ox=0, oy=0, dragging=false, lastX=0, lastY=0;
  function apply(){ el.style.transform='translate('+ox+'px,'+oy+'px) scale('+scale+')'; }
  el.parentElement.addEventListener('wheel', function(e){
    e.preventDefault();
    var delta = e.deltaY < 0 ? 1.1 : 0.9;
    scale = Math.min(8, Math.max(0.2, scale*delta));
    apply();
  }, {passive:false});
  el.parentElement.addEventListener('pointerdown', function(e){ dragging=true; lastX=e.clientX; lastY=e.clientY; });
  window.addEventListener('pointermove', function(e){
    if(!dragging) return;
    ox += e.clientX-lastX; oy += e.clientY-lastY;
    lastX=e.clientX; lastY=e.clientY;
    apply();
  });
  window.addEventListener('pointerup', function(){ dragging=false; });
})();</script></div>`, dataURL)
}
