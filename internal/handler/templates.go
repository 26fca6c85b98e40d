package handler

import (
	"embed"
	"html/template"

	"fsanano/item-catalog/internal/model"
	"fsanano/item-catalog/internal/service"
	"fsanano/item-catalog/internal/session"
)

//go:embed templates/*.html
var templateFS embed.FS

var (
	pages   = parsePages("catalog", "category", "item", "item_form", "delete_item", "login")
	welcome = template.Must(template.ParseFS(templateFS, "templates/welcome.html"))
)

// parsePages builds one template set per page, each combining the shared
// layout with the page's "content" block.
func parsePages(names ...string) map[string]*template.Template {
	out := make(map[string]*template.Template, len(names))
	for _, name := range names {
		out[name] = template.Must(template.ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html"))
	}
	return out
}

// view is the data every page template renders from.
type view struct {
	User  *session.Session
	Flash string
	Error string

	Categories []model.Category
	Category   model.Category
	Items      []model.Item
	Item       model.Item
	CanMutate  bool

	Action string
	Form   service.ItemInput

	State     string
	Providers []loginOption
}

type loginOption struct {
	Prefix   string
	Name     string
	ClientID string
}
