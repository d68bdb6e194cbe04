package mail

import (
	"bytes"
	_ "embed"
	"html/template"

	"github.com/Masterminds/sprig/v3"
)

// PasswordResetParams carries the fully localized text fragments of a
// password reset message. Localization happens before rendering, so the
// template itself stays language-neutral.
type PasswordResetParams struct {
	Subject      string
	Greeting     string
	Intro        string
	ActionPrompt string
	ResetLink    string
	ButtonLabel  string
	Validity     string
	IgnoreNote   string
	SignOff      string
	PlatformName string

	// Dir is the text direction of the message language ("ltr" or "rtl").
	Dir string
}

var (
	passwordResetTemplate = template.New("passwordReset").Funcs(sprig.HtmlFuncMap())

	//go:embed templates/password_reset.html
	passwordResetTemplateRaw string
)

func init() {
	if _, err := passwordResetTemplate.Parse(passwordResetTemplateRaw); err != nil {
		panic(err)
	}
}

func render(t *template.Template, p any) (string, error) {
	b := bytes.Buffer{}
	err := t.Execute(&b, p)
	return b.String(), err
}

func RenderPasswordReset(p PasswordResetParams) (string, error) {
	return render(passwordResetTemplate, p)
}
