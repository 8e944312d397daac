package output

import (
	"bytes"
	"sync"
	"text/template"
	"time"

	"github.com/dustin/go-humanize"
)

// TemplateFormatter formats output using a custom Go text/template.
// The template receives the Result. It supports custom template functions
// for common formatting operations.
type TemplateFormatter struct {
	templateStr string
	template    *template.Template
	mu          sync.Mutex
}

// NewTemplateFormatter creates a new template formatter with the given template string.
func NewTemplateFormatter(templateStr string) *TemplateFormatter {
	return &TemplateFormatter{
		templateStr: templateStr,
	}
}

// SetTemplate sets or updates the template string.
func (f *TemplateFormatter) SetTemplate(templateStr string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.templateStr = templateStr
	f.template = nil // Reset compiled template
}

// templateFuncs returns the custom template functions.
func templateFuncs() template.FuncMap {
	return template.FuncMap{
		// date formats a time.Time using the provided layout.
		// Usage: {{date .Timestamp "2006-01-02"}}
		"date": func(t time.Time, layout string) string {
			if t.IsZero() {
				return ""
			}
			return t.Format(layout)
		},

		// ago formats a time.Time relative to now.
		// Usage: {{ago .Timestamp}}
		"ago": func(t time.Time) string {
			return humanize.Time(t)
		},

		// pct formats a ratio as a percentage.
		// Usage: {{pct .Similarity}}
		"pct": formatPercent,

		// delta formats a size change.
		// Usage: {{delta .SizeChange}}
		"delta": formatSizeChange,
	}
}

// Format writes the formatted output to the buffer.
func (f *TemplateFormatter) Format(w *bytes.Buffer, r *Result) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	// Compile template if needed
	if f.template == nil {
		tmpl, err := template.New("output").Funcs(templateFuncs()).Parse(f.templateStr)
		if err != nil {
			return err
		}
		f.template = tmpl
	}

	return f.template.Execute(w, r)
}

// defaultTemplate is the template used when no custom template is provided.
const defaultTemplate = `{{with .Gamma}}{{range .Record.Added}}added	{{.}}
{{end}}{{range .Record.Removed}}deleted	{{.}}
{{end}}{{range .Record.Modified}}modified	{{.Path}}	{{delta .SizeChange}}
{{end}}{{end}}{{with .Delta}}{{range .Pairs}}{{.ID}}	{{pct .Similarity}}	{{len .Issues}} issues
{{end}}{{end}}`

func init() {
	Register("template", func() Formatter {
		return NewTemplateFormatter(defaultTemplate)
	})
}

// Ensure TemplateFormatter implements Formatter.
var _ Formatter = (*TemplateFormatter)(nil)
