package server

import (
	"bytes"
	"embed"
	"html/template"

	"github.com/calder-dev/stackstatus/internal/snapshot"
)

//go:embed templates
var templates embed.FS

var indexTmpl = template.Must(template.ParseFS(templates, "templates/index.html.tmpl"))

// RenderHTML renders a snapshot as the status page. It is a pure
// transformation: it never triggers a rebuild. A nil snapshot renders
// the pending state, and unavailable metrics render as explicit zero or
// unknown rows, never as a missing section.
func RenderHTML(snap *snapshot.Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	if err := indexTmpl.Execute(&buf, snap); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
