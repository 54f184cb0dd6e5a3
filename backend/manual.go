package backend

import (
	"html/template"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"github.com/josericardo03/sistemas-manuais-back/core"
)

var manualTmpl = tmpl(`<h1>{{ .Manual.Title }}</h1>

	<table class="table table-sm" style="max-width: 30rem;">
		<tbody>
			<tr>
				<td>Owner</td>
				<td>{{ .Manual.Owner }}</td>
			</tr>
			<tr>
				<td>State</td>
				<td>{{ .Manual.State }}</td>
			</tr>
			<tr>
				<td>Required approvals</td>
				<td>{{ .Rule.RequiredApprovals }}</td>
			</tr>
			<tr>
				<td>Published version</td>
				<td>{{ if .Manual.PublishedVersionSeq }}{{ .Manual.PublishedVersionSeq }}{{ else }}&ndash;{{ end }}</td>
			</tr>
		</tbody>
	</table>

	<h2>Versions</h2>

	{{ range .Versions }}
		<div class="card mb-3">
			<div class="card-header">
				Version {{ .VersionSeq }}
				&middot; {{ .Status }} ({{ .ApprovalsCount }} / {{ .RequiredApprovals }})
				&middot; uploaded by {{ .CreatedBy }}, {{ $.FormatDateTime .CreatedAt }}
			</div>
			<div class="card-body">
				{{ .ChangelogHTML }}
				{{ if .Approvers }}
					<p class="text-muted">Approved by: {{ range $i, $a := .Approvers }}{{ if $i }}, {{ end }}{{ $a }}{{ end }}</p>
				{{ end }}
				<form method="post">
					<input type="hidden" name="version_seq" value="{{ .VersionSeq }}">
					<input type="text" class="form-control mb-2" name="comment" placeholder="Comment (optional)">
					<button type="submit" class="btn btn-sm btn-success" name="decision" value="approved">Approve</button>
					<button type="submit" class="btn btn-sm btn-danger" name="decision" value="rejected">Reject</button>
				</form>
			</div>
		</div>
	{{ end }}`)

type manualVersion struct {
	core.Version
	Status            core.Status
	ApprovalsCount    int
	RequiredApprovals int
	Approvers         []string
	ChangelogHTML     template.HTML
}

type manualData struct {
	*context
	Manual   *core.Manual
	Rule     *core.ApprovalRule
	Versions []manualVersion
}

func manual(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error {

	var manualID = params.ByName("id")

	m, err := ctx.b.db.GetManual(manualID)
	if err != nil {
		return err
	}

	if req.Method == http.MethodPost {

		versionSeq, err := intPostValue(req, "version_seq")
		if err != nil {
			return err
		}

		verdict := core.Verdict(req.PostFormValue("decision"))
		summary, err := ctx.b.db.RecordDecision(manualID, versionSeq, ctx.User.Username, verdict, req.PostFormValue("comment"))
		if err != nil {
			ctx.Danger(err)
		} else {
			ctx.Success("Decision recorded, version %d is now %s", versionSeq, summary.Status)
		}
		ctx.SeeOther("/manual/%s", manualID)
		return nil
	}

	rule, err := ctx.b.db.GetRule(manualID)
	if err != nil {
		return err
	}

	versions, err := ctx.b.db.Versions(manualID)
	if err != nil {
		return err
	}

	var data = &manualData{
		context: ctx,
		Manual:  m,
		Rule:    rule,
	}

	// newest version first
	for i := len(versions) - 1; i >= 0; i-- {
		v := versions[i]
		summary, err := ctx.b.db.Summary(manualID, v.VersionSeq)
		if err != nil {
			return err
		}
		data.Versions = append(data.Versions, manualVersion{
			Version:           v,
			Status:            summary.Status,
			ApprovalsCount:    summary.ApprovalsCount,
			RequiredApprovals: summary.RequiredApprovals,
			Approvers:         summary.Approvers,
			ChangelogHTML:     renderMarkdown(v.Changelog),
		})
	}

	return manualTmpl.Execute(w, data)
}
