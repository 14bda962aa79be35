package mailer

import (
	"bytes"
	"fmt"
	texttpl "text/template"
)

// Template names used in EmailJob.Template.
const (
	Welcome         = "welcome"
	PasswordChanged = "password_changed"
)

var subjects = map[string]string{
	Welcome:         "Welcome to {{ .AppName }}",
	PasswordChanged: "Your password was changed",
}

var bodies = map[string]string{
	Welcome: "Hi {{ .FirstName }},\n\n" +
		"Your account for {{ .Email }} has been created. Welcome aboard!\n",
	PasswordChanged: "Hi {{ .FirstName }},\n\n" +
		"The password for {{ .Email }} was just changed. If this was not you, contact support immediately.\n",
}

// Render produces the subject and text body for a job's template.
func Render(name string, data map[string]any) (subject, text string, err error) {
	subject, err = renderString(subjects[name], data)
	if err != nil {
		return "", "", fmt.Errorf("render subject %q: %w", name, err)
	}
	text, err = renderString(bodies[name], data)
	if err != nil {
		return "", "", fmt.Errorf("render body %q: %w", name, err)
	}
	return subject, text, nil
}

func renderString(tpl string, data map[string]any) (string, error) {
	if tpl == "" {
		return "", fmt.Errorf("unknown template")
	}
	t, err := texttpl.New("email").Parse(tpl)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
