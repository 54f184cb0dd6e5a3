package api

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"github.com/josericardo03/sistemas-manuais-back/auth"
)

func (a *API) login(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error {

	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := readBody(req, &body); err != nil {
		return err
	}
	if body.Username == "" || body.Password == "" {
		return requestError("username and password are required")
	}

	user, err := a.auth.Login(body.Username, body.Password)
	if err != nil {
		return err
	}

	token, err := a.auth.IssueToken(user)
	if err != nil {
		return err
	}

	respond(w, struct {
		Token string     `json:"token"`
		User  *auth.User `json:"user"`
	}{token, user})
	return nil
}
