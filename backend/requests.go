package backend

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"github.com/josericardo03/sistemas-manuais-back/core"
)

var requestsTmpl = tmpl(`<h1>Approval requests</h1>

	<p>
		{{ if .Filter }}
			<a href="requests">all</a>
		{{ else }}
			<strong>all</strong>
		{{ end }}
		{{ range $status := .Statuses }}
			&middot;
			{{ if eq $.Filter $status }}
				<strong>{{ $status }}</strong>
			{{ else }}
				<a href="requests?status={{ $status }}">{{ $status }}</a>
			{{ end }}
		{{ end }}
	</p>

	<table class="table table-sm">
		<thead>
			<tr>
				<th>Manual</th>
				<th>Version</th>
				<th>Status</th>
				<th>Approvals</th>
				<th>Last decision</th>
			</tr>
		</thead>
		<tbody>
			{{ range .Requests }}
				<tr>
					<td><a href="manual/{{ .ManualID }}">{{ .ManualID }}</a></td>
					<td>{{ .VersionSeq }}</td>
					<td>{{ .Status }}</td>
					<td>{{ .ApprovalsCount }} / {{ .RequiredApprovals }}</td>
					<td>{{ $.FormatDateTime .LastDecision }}</td>
				</tr>
			{{ end }}
		</tbody>
	</table>

	<h2>Statistics</h2>

	<table class="table table-sm" style="max-width: 30rem;">
		<tbody>
			<tr>
				<td>Pending</td>
				<td>{{ .Stats.TotalPending }}</td>
			</tr>
			<tr>
				<td>Approved</td>
				<td>{{ .Stats.TotalApproved }}</td>
			</tr>
			<tr>
				<td>Rejected</td>
				<td>{{ .Stats.TotalRejected }}</td>
			</tr>
			<tr>
				<td>Average approval time</td>
				<td>{{ printf "%.1f" .Stats.AvgApprovalHours }} hours</td>
			</tr>
		</tbody>
	</table>`)

type requestsData struct {
	*context
	Filter   core.Status
	Statuses []core.Status
	Requests []core.Summary
	Stats    *core.Stats
}

func requests(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error {

	var filter = core.Status(req.URL.Query().Get("status"))
	if filter != "" && !filter.Valid() {
		filter = ""
	}

	summaries, err := ctx.b.db.Requests(filter)
	if err != nil {
		return err
	}

	stats, err := ctx.b.db.Stats()
	if err != nil {
		return err
	}

	return requestsTmpl.Execute(w, &requestsData{
		context:  ctx,
		Filter:   filter,
		Statuses: []core.Status{core.StatusPending, core.StatusApproved, core.StatusRejected},
		Requests: summaries,
		Stats:    stats,
	})
}
