package export

import (
	"bytes"
	"embed"
	"html/template"
	"strings"
	"time"
)

// SafeHTML is a template function that marks a string as safe HTML
func SafeHTML(s interface{}) template.HTML {
	switch v := s.(type) {
	case string:
		return template.HTML(v)
	case template.HTML:
		return v
	default:
		return template.HTML("")
	}
}

//go:embed templates/*.html
var templateFS embed.FS

var contentTemplate *template.Template

func init() {
	funcMap := template.FuncMap{
		"lower": strings.ToLower,
		"formatDate": func(t time.Time, layout string) string {
			return t.Format(layout)
		},
		"safeHTML": SafeHTML,
	}

	templateContent, err := templateFS.ReadFile("templates/content.html")
	if err != nil {
		// Fallback to built-in template if file not found
		contentTemplate = template.Must(template.New("content").Funcs(funcMap).Parse(fallbackTemplate))
		return
	}

	contentTemplate = template.Must(template.New("content").Funcs(funcMap).Parse(string(templateContent)))
}

// TemplateData holds data for content template rendering
type TemplateData struct {
	Title           string
	Author          string
	Language        string
	Status          string
	UpdatedAt       time.Time
	BodyHTML        template.HTML
	Summary         string
	QualityScore    float64
	HasAnalysis     bool
	Recommendations []TemplateRecommendation
}

// TemplateRecommendation holds recommendation data for the template
type TemplateRecommendation struct {
	Title       string
	Description string
	Priority    string
	Steps       []string
}

// RenderContentHTML renders the content template with provided data
func RenderContentHTML(data TemplateData) (string, error) {
	var buf bytes.Buffer
	if err := contentTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// fallbackTemplate is used if the embedded template fails to load
const fallbackTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>{{.Title}}</title>
  <style>
    body { font-family: Arial, sans-serif; line-height: 1.6; max-width: 800px; margin: 2rem auto; }
    h1 { border-bottom: 2px solid #333; padding-bottom: 0.5rem; }
    .meta { color: #666; font-size: 0.9em; margin-bottom: 2rem; }
    .rec { background: #f5f5f5; padding: 1rem; margin: 1rem 0; border-left: 3px solid #333; }
  </style>
</head>
<body>
  <h1>{{.Title}}</h1>
  <div class="meta">{{.Author}} | {{.Language}} | {{.UpdatedAt.Format "Jan 2, 2006"}}</div>
  <div>{{.BodyHTML | safeHTML}}</div>
  {{if .HasAnalysis}}<p>{{.Summary}}</p>{{end}}
  {{if .Recommendations}}
  <h2>Recommendations</h2>
  {{range .Recommendations}}<div class="rec">{{.Title}}: {{.Description}}</div>{{end}}
  {{end}}
</body>
</html>`
