package handler

import "html/template"

var (
	grantedPage = template.Must(template.New("granted").Parse(`<!DOCTYPE html>
<html><body><h3>Authorization successful{{with .}}, {{.}}{{end}}. You can close this window.</h3></body></html>
`))
	deniedPage = template.Must(template.New("denied").Parse(`<!DOCTYPE html>
<html><body><h3>Access denied{{with .}} for {{.}}{{end}}: you are not in the required organization or team.</h3></body></html>
`))
)
