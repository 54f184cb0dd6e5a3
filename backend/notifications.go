package backend

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"github.com/josericardo03/sistemas-manuais-back/core"
)

var notificationsTmpl = tmpl(`<h1>Notifications</h1>

	<form method="post">
		<button type="submit" class="btn btn-sm btn-secondary" name="read-all" value="1">Mark all as read</button>
	</form>

	<table class="table table-sm">
		<tbody>
			{{ range .Notifications }}
				<tr{{ if not .IsRead }} class="font-weight-bold"{{ end }}>
					<td>{{ .Title }}</td>
					<td>{{ .Message }}</td>
					<td>{{ if .RelatedManualID }}<a href="manual/{{ .RelatedManualID }}">manual</a>{{ end }}</td>
					<td>{{ $.FormatDateTime .CreatedAt }}</td>
				</tr>
			{{ end }}
		</tbody>
	</table>`)

type notificationsData struct {
	*context
	Notifications []core.Notification
}

func notifications(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error {

	if req.Method == http.MethodPost {
		if err := ctx.b.db.MarkAllRead(ctx.User.Username); err != nil {
			return err
		}
		ctx.SeeOther("/notifications")
		return nil
	}

	all, err := ctx.b.db.UserNotifications(ctx.User.Username, 100)
	if err != nil {
		return err
	}

	return notificationsTmpl.Execute(w, &notificationsData{
		context:       ctx,
		Notifications: all,
	})
}
