package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"
	texttemplate "text/template"

	"stepout/internal/domain"
)

//go:embed templates/*
var templateFS embed.FS

// friendInviteEmail is the email sent to a contact that has no StepOut account yet.
const friendInviteEmail = "friend_invite"

// emailNames lists every email the renderer can produce. Each one needs
// <name>_subject.txt, <name>.html and <name>.txt under templates/.
var emailNames = []string{friendInviteEmail}

// emailTemplate holds the parsed parts of one email.
type emailTemplate struct {
	subject *texttemplate.Template
	html    *template.Template
	text    *texttemplate.Template
}

type templateRenderer struct {
	emails   map[string]*emailTemplate
	parseErr error
}

// NewTemplateRenderer parses the embedded email templates once. A broken
// template surfaces as an error from Render.
func NewTemplateRenderer() domain.EmailTemplateRenderer {
	r := &templateRenderer{emails: make(map[string]*emailTemplate, len(emailNames))}
	for _, name := range emailNames {
		t, err := parseEmail(name)
		if err != nil {
			r.parseErr = err
			break
		}
		r.emails[name] = t
	}
	return r
}

func parseEmail(name string) (*emailTemplate, error) {
	subject, err := texttemplate.ParseFS(templateFS, "templates/"+name+"_subject.txt")
	if err != nil {
		return nil, fmt.Errorf("parse %s subject: %w", name, err)
	}
	html, err := template.ParseFS(templateFS, "templates/"+name+".html")
	if err != nil {
		return nil, fmt.Errorf("parse %s html: %w", name, err)
	}
	text, err := texttemplate.ParseFS(templateFS, "templates/"+name+".txt")
	if err != nil {
		return nil, fmt.Errorf("parse %s text: %w", name, err)
	}
	return &emailTemplate{subject: subject, html: html, text: text}, nil
}

// Render executes the named email with data. The subject is trimmed to one line.
func (r *templateRenderer) Render(templateName string, data any) (subject, htmlBody, textBody string, err error) {
	if r.parseErr != nil {
		return "", "", "", r.parseErr
	}
	t, ok := r.emails[templateName]
	if !ok {
		return "", "", "", fmt.Errorf("unknown email template %q", templateName)
	}
	var buf bytes.Buffer
	if err := t.subject.Execute(&buf, data); err != nil {
		return "", "", "", fmt.Errorf("render subject: %w", err)
	}
	subject = strings.Join(strings.Fields(buf.String()), " ")

	buf.Reset()
	if err := t.html.Execute(&buf, data); err != nil {
		return "", "", "", fmt.Errorf("render html: %w", err)
	}
	htmlBody = buf.String()

	buf.Reset()
	if err := t.text.Execute(&buf, data); err != nil {
		return "", "", "", fmt.Errorf("render text: %w", err)
	}
	return subject, htmlBody, buf.String(), nil
}
