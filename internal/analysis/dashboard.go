package analysis

import (
	_ "embed"
	"fmt"
	"html/template"
	"os"
)

//go:embed dashboard.html.tmpl
var dashboardTmpl string

var dashboard = template.Must(template.New("dashboard").Parse(dashboardTmpl))

// writeDashboard renders the static dashboard page. All datasets are
// fetched client-side from the sibling JSON files, so the template only
// needs the page title.
func writeDashboard(path, game string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write dashboard %q: %w", path, err)
	}

	data := struct{ Game string }{Game: game}
	if err := dashboard.Execute(f, data); err != nil {
		f.Close()
		return fmt.Errorf("render dashboard: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("write dashboard %q: %w", path, err)
	}
	return nil
}
