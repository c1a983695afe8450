package notification

import (
	"bytes"
	"html/template"
)

// ResetData holds data for the password reset email template
type ResetData struct {
	Token    string
	ResetURL string
}

var resetTmpl = template.Must(template.New("reset").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #333;">
  <h2>Password reset</h2>
  <p>Someone asked to reset the password for this account.</p>
  {{if .ResetURL}}<p><a href="{{.ResetURL}}?reset_token={{.Token}}">Choose a new password</a></p>{{end}}
  <p>Reset token: <code>{{.Token}}</code></p>
  <p style="color: #888; font-size: 12px;">The token can be used once. Ignore this email if you did not ask for it.</p>
</body>
</html>`))

// RenderResetEmail renders the password reset email body.
func RenderResetEmail(data ResetData) (string, error) {
	var buf bytes.Buffer
	if err := resetTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
