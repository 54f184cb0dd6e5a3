package backend

import (
	"errors"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"github.com/josericardo03/sistemas-manuais-back/core"
)

var manualsTmpl = tmpl(`<h1>Manuals</h1>

	<table class="table table-sm">
		<thead>
			<tr>
				<th>Title</th>
				<th>Owner</th>
				<th>State</th>
				<th>Latest version</th>
				<th>Approval</th>
				<th>Latest changes</th>
				<th>Updated</th>
			</tr>
		</thead>
		<tbody>
			{{ range .Manuals }}
				<tr>
					<td><a href="manual/{{ .ManualID }}">{{ .Title }}</a></td>
					<td>{{ .Owner }}</td>
					<td>{{ .State }}</td>
					<td>{{ .LatestVersionSeq }}</td>
					<td>{{ .ApprovalStatus }} ({{ .ApprovalsCount }} / {{ .RequiredApprovals }})</td>
					<td>{{ .Changelog }}</td>
					<td>{{ $.FormatDateTime .UpdatedAt }}</td>
				</tr>
			{{ end }}
		</tbody>
	</table>`)

type manualRow struct {
	core.ManualStatus
	Changelog string // excerpt of the latest version's changelog
}

type manualsData struct {
	*context
	Manuals []manualRow
}

func manuals(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error {

	all, err := ctx.b.db.ManualsWithStatus()
	if err != nil {
		return err
	}

	var data = &manualsData{
		context: ctx,
	}

	for _, m := range all {
		var row = manualRow{ManualStatus: m}
		if m.LatestVersionSeq > 0 {
			v, err := ctx.b.db.GetVersion(m.ManualID, m.LatestVersionSeq)
			if err != nil && !errors.Is(err, core.ErrNotFound) {
				return err
			}
			if v != nil {
				row.Changelog = Excerpt(string(renderMarkdown(v.Changelog)), 80)
			}
		}
		data.Manuals = append(data.Manuals, row)
	}

	return manualsTmpl.Execute(w, data)
}
