package report

import (
	"bytes"
	"os"
	"path/filepath"
	"sync"
	texttmpl "text/template"

	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
)

var (
	cardTmpl *texttmpl.Template
	tmplInit sync.Once
)

// ParseTemplates loads the report-card markdown template from
// assets/templates/report. Call once at startup, after core.NewConfig.
func ParseTemplates(logger core.Logger) {
	tmplInit.Do(func() {
		dir := filepath.Join(core.Conf.WorkDir, "assets", "templates", "report")
		path := filepath.Join(dir, "report-card.md")
		if _, err := os.Stat(path); err != nil {
			logger.Fatal("parsing report templates", err)
			return
		}
		tmpl, err := texttmpl.New(filepath.Base(path)).Option("missingkey=error").ParseFiles(path)
		if err != nil {
			logger.Fatal("parsing report templates", err)
			return
		}
		cardTmpl = tmpl
	})
}

func renderCard(card Card) ([]byte, error) {
	if cardTmpl == nil {
		return nil, errors.New("report templates not parsed")
	}
	var buf bytes.Buffer
	if err := cardTmpl.Execute(&buf, card); err != nil {
		return nil, errors.Wrap(err, "rendering report card")
	}
	return buf.Bytes(), nil
}
