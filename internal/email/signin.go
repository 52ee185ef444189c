package email

import "fmt"

// SigninLink compone el correo con el link mágico de sign-in.
func SigninLink(teamName, link string) (subject, html, text string) {
	subject = fmt.Sprintf("Sign in to %s", teamName)
	text = fmt.Sprintf(
		"Use the link below to sign in to %s.\n\n%s\n\nThe link is valid for 15 minutes and can be used once. If you didn't request it, ignore this email.\n",
		teamName, link)
	html = fmt.Sprintf(
		`<p>Use the link below to sign in to <strong>%s</strong>.</p>
<p><a href="%s">Sign in</a></p>
<p>The link is valid for 15 minutes and can be used once. If you didn't request it, ignore this email.</p>`,
		teamName, link)
	return subject, html, text
}
