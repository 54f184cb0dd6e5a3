package api

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"github.com/josericardo03/sistemas-manuais-back/core"
)

func (a *API) requests(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error {

	var filter = core.Status(req.URL.Query().Get("status"))
	if filter != "" && !filter.Valid() {
		return requestError("invalid status filter")
	}

	summaries, err := a.db.Requests(filter)
	if err != nil {
		return err
	}

	respondList(w, summaries, len(summaries))
	return nil
}

func (a *API) summary(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error {

	versionSeq, err := intParam(params, "versionSeq")
	if err != nil {
		return err
	}

	summary, err := a.db.Summary(params.ByName("manualId"), versionSeq)
	if err != nil {
		return err
	}

	respond(w, summary)
	return nil
}

func (a *API) status(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error {

	versionSeq, err := intParam(params, "versionSeq")
	if err != nil {
		return err
	}

	summary, err := a.db.Summary(params.ByName("manualId"), versionSeq)
	if err != nil {
		return err
	}

	respond(w, struct {
		Status core.Status `json:"status"`
	}{summary.Status})
	return nil
}

func (a *API) approvers(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error {

	versionSeq, err := intParam(params, "versionSeq")
	if err != nil {
		return err
	}

	summary, err := a.db.Summary(params.ByName("manualId"), versionSeq)
	if err != nil {
		return err
	}

	respondList(w, summary.Approvers, len(summary.Approvers))
	return nil
}

// decide records the caller's decision. The approver is always the
// authenticated user, never a field of the request body.
func (a *API) decide(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error {

	var body struct {
		ManualID   string `json:"manual_id"`
		VersionSeq int    `json:"version_seq"`
		Decision   string `json:"decision"`
		Comment    string `json:"comment"`
	}
	if err := readBody(req, &body); err != nil {
		return err
	}
	if body.ManualID == "" {
		return requestError("manual_id is required")
	}

	var verdict = core.Verdict(body.Decision)
	if !verdict.Valid() {
		return requestError("decision must be approved or rejected")
	}

	summary, err := a.db.RecordDecision(body.ManualID, body.VersionSeq, ctx.User.Username, verdict, body.Comment)
	if err != nil {
		return err
	}

	respond(w, summary)
	return nil
}

func (a *API) requestReviews(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error {

	var body struct {
		ManualID   string   `json:"manual_id"`
		VersionSeq int      `json:"version_seq"`
		Approvers  []string `json:"approvers"`
	}
	if err := readBody(req, &body); err != nil {
		return err
	}
	if len(body.Approvers) == 0 {
		return requestError("approvers is required")
	}

	if err := a.db.RequestReviews(body.ManualID, body.VersionSeq, body.Approvers); err != nil {
		return err
	}

	respondMessage(w, "review requested")
	return nil
}

func (a *API) getRule(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error {

	rule, err := a.db.GetRule(params.ByName("manualId"))
	if err != nil {
		return err
	}

	respond(w, rule)
	return nil
}

func (a *API) setRule(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error {

	var body struct {
		ManualID          string `json:"manual_id"`
		RequiredApprovals int    `json:"required_approvals"`
	}
	if err := readBody(req, &body); err != nil {
		return err
	}
	if body.ManualID == "" {
		return requestError("manual_id is required")
	}
	if body.RequiredApprovals < 0 {
		return requestError("required_approvals can't be negative")
	}

	if err := a.db.SetRule(body.ManualID, body.RequiredApprovals); err != nil {
		return err
	}

	respond(w, core.ApprovalRule{
		ManualID:          body.ManualID,
		RequiredApprovals: body.RequiredApprovals,
	})
	return nil
}

func (a *API) stats(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error {

	stats, err := a.db.Stats()
	if err != nil {
		return err
	}

	respond(w, stats)
	return nil
}

func (a *API) removeDecisions(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error {

	versionSeq, err := intParam(params, "versionSeq")
	if err != nil {
		return err
	}

	summary, err := a.db.RemoveDecisions(params.ByName("manualId"), versionSeq, params.ByName("username"))
	if err != nil {
		return err
	}

	respond(w, summary)
	return nil
}

func (a *API) removeDecision(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error {

	versionSeq, err := intParam(params, "versionSeq")
	if err != nil {
		return err
	}
	decisionSeq, err := intParam(params, "decisionSeq")
	if err != nil {
		return err
	}

	summary, err := a.db.RemoveDecision(params.ByName("manualId"), versionSeq, params.ByName("username"), decisionSeq)
	if err != nil {
		return err
	}

	respond(w, summary)
	return nil
}
