package mail

import (
	"bytes"
	"embed"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var (
	htmlTemplates = htmltemplate.Must(htmltemplate.New("html").
			Funcs(htmltemplate.FuncMap{"nl2br": nl2br}).
			ParseFS(templateFS, "templates/*.html.tmpl"))
	textTemplates = texttemplate.Must(texttemplate.New("text").
			ParseFS(templateFS, "templates/*.txt.tmpl"))
)

// templateData is what both templates see. User-supplied fields are escaped
// by html/template in the HTML part.
type templateData struct {
	Name      string
	Email     string
	Subject   string
	Message   string
	OwnerName string
}

// nl2br escapes s and turns line breaks into <br> tags.
func nl2br(s string) htmltemplate.HTML {
	s = htmltemplate.HTMLEscapeString(s)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return htmltemplate.HTML(strings.ReplaceAll(s, "\n", "<br>"))
}

// render executes the html and text variants of the named template.
func render(name string, data templateData) (text, html string, err error) {
	var tb, hb bytes.Buffer
	if err := textTemplates.ExecuteTemplate(&tb, name+".txt.tmpl", data); err != nil {
		return "", "", err
	}
	if err := htmlTemplates.ExecuteTemplate(&hb, name+".html.tmpl", data); err != nil {
		return "", "", err
	}
	return tb.String(), hb.String(), nil
}
