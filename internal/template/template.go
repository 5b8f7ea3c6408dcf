package template

import (
	"bytes"
	"embed"
	"strings"
	"time"

	stdtemplate "html/template"

	"github.com/microcosm-cc/bluemonday"
	blackfriday "gopkg.in/russross/blackfriday.v2"
)

//go:embed views/*.html
var views embed.FS

const (
	VerifyOTPEmail = "verify_otp_email.html"
	ResetOTPEmail  = "reset_otp_email.html"
)

type Template struct {
	templates *stdtemplate.Template
	policy    *bluemonday.Policy
}

func NewTemplate() *Template {
	funcMap := stdtemplate.FuncMap{
		"minutes": func(d time.Duration) int {
			return int(d.Minutes())
		},
		"firstName": func(s string) string {
			parts := strings.Split(strings.TrimSpace(s), " ")
			return parts[0]
		},
		"spaced": func(code string) string {
			return strings.Join(strings.Split(code, ""), " ")
		},
	}
	return &Template{
		templates: stdtemplate.Must(stdtemplate.New("stdtmpl").Funcs(funcMap).ParseFS(views, "views/*.html")),
		policy:    bluemonday.UGCPolicy(),
	}
}

// RenderString executes the named view into a string, used for email bodies.
func (t *Template) RenderString(name string, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := t.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// MarkdownToHTML renders markdown and strips anything outside the UGC policy.
func (t *Template) MarkdownToHTML(s string) stdtemplate.HTML {
	renderer := blackfriday.NewHTMLRenderer(blackfriday.HTMLRendererParameters{
		Flags: blackfriday.Safelink |
			blackfriday.NofollowLinks |
			blackfriday.NoreferrerLinks |
			blackfriday.HrefTargetBlank,
	})
	out := blackfriday.Run([]byte(s), blackfriday.WithRenderer(renderer))
	return stdtemplate.HTML(t.policy.SanitizeBytes(out))
}
