package fetchcache

import (
	"bytes"
	"strings"
)

// RenderDetector flags responses that look like JavaScript shells so the
// cache can retry them through the headless renderer.
type RenderDetector struct {
	minHTMLBytes int
	keywords     [][]byte
}

// NewRenderDetector builds a detector with a size floor and case-insensitive
// marker keywords.
func NewRenderDetector(minBytes int, keywords []string) *RenderDetector {
	lowered := make([][]byte, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		lowered = append(lowered, bytes.ToLower([]byte(kw)))
	}
	return &RenderDetector{
		minHTMLBytes: minBytes,
		keywords:     lowered,
	}
}

// NeedsRender inspects the body for signals that JS rendering is required.
func (d *RenderDetector) NeedsRender(body []byte) bool {
	if d == nil {
		return false
	}
	if d.minHTMLBytes > 0 && len(body) < d.minHTMLBytes {
		return true
	}
	if len(body) == 0 || len(d.keywords) == 0 {
		return false
	}
	lowerBody := bytes.ToLower(body)
	for _, kw := range d.keywords {
		if bytes.Contains(lowerBody, kw) {
			return true
		}
	}
	return false
}
