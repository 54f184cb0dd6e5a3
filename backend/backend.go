// Package backend is the session-authenticated HTML dashboard. It renders
// approval requests, manuals and notifications for people working in a
// browser; machine clients use the api package instead.
package backend

import (
	"encoding/gob"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/julienschmidt/httprouter"
	"golang.org/x/text/language"

	"github.com/josericardo03/sistemas-manuais-back/auth"
	"github.com/josericardo03/sistemas-manuais-back/core"
)

type Notification struct {
	Message string
	Style   string
}

func init() {
	gob.Register([]Notification{}) // required for storing Notifications in a session
}

var langMatcher = language.NewMatcher([]language.Tag{
	language.BrazilianPortuguese, // default
	language.AmericanEnglish,
})

var monthNamesPt = strings.NewReplacer(
	"January", "janeiro",
	"February", "fevereiro",
	"March", "março",
	"April", "abril",
	"May", "maio",
	"June", "junho",
	"July", "julho",
	"August", "agosto",
	"September", "setembro",
	"October", "outubro",
	"November", "novembro",
	"December", "dezembro",
)

type Backend struct {
	db       *core.CoreDB
	auth     *auth.AuthDB
	sessions *scs.SessionManager
}

// a context is created per request by middleware
type context struct {
	Prefix string // with trailing slash
	User   *auth.User

	b             *Backend // unexported, so it can't be accessed in templates
	writer        http.ResponseWriter
	request       *http.Request
	language      language.Tag
	statusWritten bool
}

func (ctx *context) LoggedIn() bool {
	return ctx.User != nil
}

func (ctx *context) IsAdministrator() bool {
	if ctx.User == nil {
		return false
	}
	admin, _ := ctx.b.auth.IsAdministrator(ctx.User.Username)
	return admin
}

// Login authenticates and stores the username in the session.
func (ctx *context) Login(username, password string) error {
	if ctx.LoggedIn() {
		return nil
	}
	user, err := ctx.b.auth.Login(username, password)
	if err != nil {
		return err
	}
	ctx.User = user
	ctx.Success("Welcome %s!", user.Name)
	ctx.b.sessions.Put(ctx.request.Context(), "username", user.Username)
	return nil
}

// Logout removes the username from the session and calls Cleanup.
func (ctx *context) Logout() {
	if ctx.LoggedIn() {
		ctx.b.sessions.Remove(ctx.request.Context(), "username")
	}
	ctx.Cleanup()
}

// Cleanup destroys the session (which means re-setting the cookie with zero
// lifetime) if the session has been modified and is empty now.
func (ctx *context) Cleanup() {
	sessions := ctx.b.sessions
	if sessions.Status(ctx.request.Context()) == scs.Modified && len(sessions.Keys(ctx.request.Context())) == 0 {
		_ = sessions.Destroy(ctx.request.Context())
	}
}

// SeeOther sets the HTTP header to redirect to an URL.
func (ctx *context) SeeOther(format string, args ...interface{}) {
	if ctx.statusWritten {
		return
	}
	http.Redirect(ctx.writer, ctx.request, fmt.Sprintf(format, args...), http.StatusSeeOther)
	ctx.statusWritten = true
}

// Danger adds a "danger" notification to the session.
func (ctx *context) Danger(err error) {
	ctx.addNotification(err.Error(), "danger")
}

// Success adds a "success" notification to the session.
func (ctx *context) Success(format string, args ...interface{}) {
	ctx.addNotification(fmt.Sprintf(format, args...), "success")
}

// style should be a bootstrap alert style without the leading "alert-"
func (ctx *context) addNotification(message, style string) {
	notifications, _ := ctx.b.sessions.Get(ctx.request.Context(), "notifications").([]Notification)
	notifications = append(notifications, Notification{message, style})
	ctx.b.sessions.Put(ctx.request.Context(), "notifications", notifications)
}

// RenderNotifications removes all notifications from the session and renders
// them into an HTML string.
func (ctx *context) RenderNotifications() template.HTML {
	var r string
	if !ctx.statusWritten {
		notifications, _ := ctx.b.sessions.Pop(ctx.request.Context(), "notifications").([]Notification)
		for _, n := range notifications {
			r += `<div class="alert alert-` + n.Style + ` mt-3" role="alert">` + n.Message + `</div>`
		}
	}
	return template.HTML(r)
}

func (ctx *context) FormatDateTime(t time.Time) string {
	b, _ := ctx.language.Base()
	switch b.String() {
	case "pt":
		return monthNamesPt.Replace(t.Format("2 de January de 2006 15:04"))
	default:
		return t.Format("January 2, 2006 3:04 PM")
	}
}

func (ctx *context) UnreadCount() int {
	if ctx.User == nil {
		return 0
	}
	count, _ := ctx.b.db.UnreadCount(ctx.User.Username)
	return count
}

func middleware(b *Backend, prefix string, requireLoggedIn bool, f func(http.ResponseWriter, *http.Request, *context, httprouter.Params) error) httprouter.Handle {
	return func(w http.ResponseWriter, req *http.Request, params httprouter.Params) {

		var ctx = &context{
			Prefix:  prefix + "/backend/",
			b:       b,
			writer:  w,
			request: req,
		}
		defer ctx.Cleanup()

		ctx.language, _ = language.MatchStrings(langMatcher, req.Header.Get("Accept-Language"))

		if username := b.sessions.GetString(req.Context(), "username"); username != "" {
			u, err := b.auth.GetUser(username)
			if u != nil && err == nil {
				ctx.User = u
			}
			// ignore errors
		}

		if requireLoggedIn && !ctx.LoggedIn() {
			ctx.SeeOther("/login")
			return
		}

		if err := f(w, req, ctx, params); err != nil {
			// probably no template has been executed, so execute error template
			errorTmpl.Execute(w, struct {
				*context
				Err error
			}{
				context: ctx,
				Err:     err,
			})
		}
	}
}

var errorTmpl = tmpl(`
	<div class="alert alert-danger" role="alert">
		{{ .Err }}
	</div>`)

// NewBackendRouter returns the dashboard router. Wrap it with the session
// manager's LoadAndSave.
func NewBackendRouter(db *core.CoreDB, authDB *auth.AuthDB, sessions *scs.SessionManager, prefix string) http.Handler {

	var b = &Backend{
		db:       db,
		auth:     authDB,
		sessions: sessions,
	}

	var router = httprouter.New()

	var GETAndPOST = func(path string, handle httprouter.Handle) {
		router.GET(path, handle)
		router.POST(path, handle)
	}

	// public
	router.GET("/", middleware(b, prefix, false, root))
	GETAndPOST("/login", middleware(b, prefix, false, login))

	// private
	router.GET("/logout", middleware(b, prefix, true, logout))
	router.GET("/requests", middleware(b, prefix, true, requests))
	router.GET("/manuals", middleware(b, prefix, true, manuals))
	GETAndPOST("/manual/:id", middleware(b, prefix, true, manual))
	GETAndPOST("/notifications", middleware(b, prefix, true, notifications))

	return router
}

func tmpl(text string) *template.Template {
	t := template.Must(backendTmpl.Clone())
	t = template.Must(t.Parse(`{{ define "content" }}` + text + `{{ end }}`))
	return t
}

var backendTmpl = template.Must(template.New("backend").Parse(`
<!DOCTYPE html>
<html>
	<head>
		<base href="{{.Prefix}}">
		<link rel="stylesheet" type="text/css" href="/assets/bootstrap-4.4.1.min.css">
		<meta charset="utf-8">
		<title>Manuais</title>

		<style>

			body {
				padding-bottom: 1rem;
			}

			h1 {
				font-size: 1.5rem !important;
				margin: 1rem 0 0.7rem !important;
			}

			h2 {
				font-size: 1.3rem !important;
				margin: 0.2rem 0 0.5rem !important;
			}

			table {
				margin-top: 0.5rem;
				border-bottom: 1px solid #dee2e6;
			}

		</style>
	</head>
	<body>

		{{ if .LoggedIn }}

			<nav class="navbar navbar-expand-md bg-light">
				<ul class="navbar-nav">
					<li class="nav-item">
						<a class="nav-link" href="requests">Requests</a>
					</li>
					<li class="nav-item">
						<a class="nav-link" href="manuals">Manuals</a>
					</li>
					<li class="nav-item">
						<a class="nav-link" href="notifications">Notifications{{ if .UnreadCount }} ({{ .UnreadCount }}){{ end }}</a>
					</li>
				</ul>
				<ul class="navbar-nav ml-auto">
					<li class="nav-item">
						<span class="navbar-text mr-3">{{ .User.Name }}</span>
					</li>
					<li class="nav-item">
						<a class="nav-link" href="logout">Logout</a>
					</li>
				</ul>
			</nav>

		{{ end }}

		<div class="container">
			{{ .RenderNotifications }}
			{{ template "content" . }}
		</div>

	</body>
</html>`))
