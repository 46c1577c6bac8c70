// Package render produces the human-facing certificate document. Document
// generation proper lives with downstream collaborators; this package holds
// the port's default implementation.
package render

import (
	"bytes"
	"context"
	"text/template"

	"attest/internal/certificate/models"
)

// Noop satisfies the renderer port without producing a document.
type Noop struct{}

// RenderPreview returns an empty artifact.
func (Noop) RenderPreview(context.Context, models.CertificateRecord) ([]byte, error) {
	return nil, nil
}

var previewTemplate = template.Must(template.New("preview").Parse(
	`CERTIFICATE {{.ID}}
{{.SubjectName}} ({{.SubjectID}})
{{.Course}}{{if .Grade}} (grade {{.Grade}}){{end}}
Issued by {{.IssuerName}} on {{.CreatedAt.Format "2006-01-02"}}
`))

// Text renders a plain-text preview of the record.
type Text struct{}

// RenderPreview renders the record through the preview template.
func (Text) RenderPreview(_ context.Context, record models.CertificateRecord) ([]byte, error) {
	var buf bytes.Buffer
	if err := previewTemplate.Execute(&buf, record); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
