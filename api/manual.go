package api

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
)

func (a *API) manuals(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error {

	manuals, err := a.db.GetAllManuals()
	if err != nil {
		return err
	}

	respondList(w, manuals, len(manuals))
	return nil
}

func (a *API) manualsWithStatus(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error {

	manuals, err := a.db.ManualsWithStatus()
	if err != nil {
		return err
	}

	respondList(w, manuals, len(manuals))
	return nil
}

func (a *API) manual(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error {

	manual, err := a.db.GetManual(params.ByName("manualId"))
	if err != nil {
		return err
	}

	respond(w, manual)
	return nil
}

func (a *API) createManual(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error {

	var body struct {
		Title string `json:"title"`
		Slug  string `json:"slug"`
	}
	if err := readBody(req, &body); err != nil {
		return err
	}
	if body.Title == "" || body.Slug == "" {
		return requestError("title and slug are required")
	}

	manual, err := a.db.InsertManual(body.Title, body.Slug, ctx.User.Username)
	if err != nil {
		return err
	}

	respond(w, manual)
	return nil
}

func (a *API) versions(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error {

	versions, err := a.db.Versions(params.ByName("manualId"))
	if err != nil {
		return err
	}

	respondList(w, versions, len(versions))
	return nil
}

func (a *API) addVersion(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error {

	var body struct {
		Format         string `json:"format"`
		ChecksumSHA256 string `json:"checksum_sha256"`
		SizeBytes      int64  `json:"size_bytes"`
		Changelog      string `json:"changelog"`
	}
	if err := readBody(req, &body); err != nil {
		return err
	}
	if body.Format == "" {
		return requestError("format is required")
	}

	version, err := a.db.AddVersion(params.ByName("manualId"), body.Format, body.ChecksumSHA256, body.SizeBytes, ctx.User.Username, body.Changelog)
	if err != nil {
		return err
	}

	respond(w, version)
	return nil
}

func (a *API) publish(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error {

	versionSeq, err := intParam(params, "versionSeq")
	if err != nil {
		return err
	}

	if err := a.db.PublishApproved(params.ByName("manualId"), versionSeq); err != nil {
		return err
	}

	respondMessage(w, "published")
	return nil
}
