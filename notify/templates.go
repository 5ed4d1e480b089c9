package notify

import (
	"embed"
	"html/template"
	"strings"
	"time"

	"github.com/dmtroyer/auctioneye/models"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.tmpl"))

type itemsEmailData struct {
	Items      []models.Item
	Count      int
	TotalCount int
}

func renderItems(items []models.Item, totalCount int) (string, error) {
	var b strings.Builder
	err := templates.ExecuteTemplate(&b, "email.html.tmpl", itemsEmailData{
		Items:      items,
		Count:      len(items),
		TotalCount: totalCount,
	})
	if err != nil {
		return "", err
	}
	return b.String(), nil
}

func renderNoItems(runAt time.Time) (string, error) {
	var b strings.Builder
	err := templates.ExecuteTemplate(&b, "email_no_items.html.tmpl", struct {
		RunTimestamp string
	}{
		RunTimestamp: runAt.Format(time.RFC3339),
	})
	if err != nil {
		return "", err
	}
	return b.String(), nil
}
