package ollama

import (
	"bytes"
	"strings"
	"text/template"
)

var promptFuncs = template.FuncMap{
	"inc":   func(i int) int { return i + 1 },
	"lower": strings.ToLower,
	"trim":  strings.TrimSpace,
}

// RenderTemplate renders a prompt template with the provided data. Missing map
// keys are an error. The helpers inc, lower and trim are available.
func RenderTemplate(tmpl string, data any) (string, error) {
	tpl, err := template.New("prompt").Funcs(promptFuncs).Option("missingkey=error").Parse(tmpl)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		return "", err
	}

	return buf.String(), nil
}
