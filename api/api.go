// Package api is the JSON boundary. It authenticates bearer tokens, enforces
// the administrator predicate on administrative routes and translates between
// HTTP and the workflow engine. Responses use a uniform envelope so existing
// clients keep working.
package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"

	"github.com/josericardo03/sistemas-manuais-back/auth"
	"github.com/josericardo03/sistemas-manuais-back/core"
)

type API struct {
	db   *core.CoreDB
	auth *auth.AuthDB
}

// access levels for middleware
const (
	accessPublic = iota
	accessUser
	accessAdmin
)

// requestError is a client mistake, reported with status 400 and its text.
type requestError string

func (e requestError) Error() string {
	return string(e)
}

type context struct {
	User *auth.User // nil on public routes without a valid token
}

type envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Count   *int        `json:"count,omitempty"`
	Message string      `json:"message,omitempty"`
}

func middleware(a *API, level int, f func(http.ResponseWriter, *http.Request, *context, httprouter.Params) error) httprouter.Handle {
	return func(w http.ResponseWriter, req *http.Request, params httprouter.Params) {

		var ctx = &context{}

		if token := req.Header.Get("Authorization"); token != "" {
			claims, err := a.auth.VerifyToken(token)
			if err != nil {
				respondError(w, err)
				return
			}
			ctx.User = claims.User()
		}

		if level >= accessUser && ctx.User == nil {
			respondError(w, auth.ErrToken)
			return
		}

		if level >= accessAdmin {
			admin, err := a.auth.IsAdministrator(ctx.User.Username)
			if err != nil {
				respondError(w, err)
				return
			}
			if !admin {
				respondError(w, core.ErrUnauthorized)
				return
			}
		}

		if err := f(w, req, ctx, params); err != nil {
			respondError(w, err)
		}
	}
}

func NewRouter(db *core.CoreDB, authDB *auth.AuthDB) http.Handler {

	var a = &API{
		db:   db,
		auth: authDB,
	}

	var router = httprouter.New()

	// public
	router.POST("/api/auth/login", middleware(a, accessPublic, a.login))

	// authenticated
	router.GET("/api/approval/requests", middleware(a, accessUser, a.requests))
	router.GET("/api/approval/summary/:manualId/:versionSeq", middleware(a, accessUser, a.summary))
	router.GET("/api/approval/status/:manualId/:versionSeq", middleware(a, accessUser, a.status))
	router.GET("/api/approval/approvers/:manualId/:versionSeq", middleware(a, accessUser, a.approvers))
	router.POST("/api/approval/decision", middleware(a, accessUser, a.decide))
	router.POST("/api/approval/request", middleware(a, accessUser, a.requestReviews))
	router.GET("/api/approval/rules/:manualId", middleware(a, accessUser, a.getRule))
	router.GET("/api/approval/stats", middleware(a, accessUser, a.stats))

	router.GET("/api/manuals", middleware(a, accessUser, a.manuals))
	router.GET("/api/manuals-with-status", middleware(a, accessUser, a.manualsWithStatus))
	router.POST("/api/manuals", middleware(a, accessUser, a.createManual))
	router.GET("/api/manuals/:manualId", middleware(a, accessUser, a.manual))
	router.GET("/api/manuals/:manualId/versions", middleware(a, accessUser, a.versions))
	router.POST("/api/manuals/:manualId/versions", middleware(a, accessUser, a.addVersion))

	router.GET("/api/notifications", middleware(a, accessUser, a.notifications))
	router.GET("/api/notifications/unread", middleware(a, accessUser, a.unreadNotifications))
	router.GET("/api/notifications/unread-count", middleware(a, accessUser, a.unreadCount))
	router.POST("/api/notifications/read-all", middleware(a, accessUser, a.markAllRead))
	router.POST("/api/notification/:id/read", middleware(a, accessUser, a.markRead))
	router.DELETE("/api/notification/:id", middleware(a, accessUser, a.deleteNotification))

	// administrators only
	router.POST("/api/approval/rules", middleware(a, accessAdmin, a.setRule))
	router.DELETE("/api/approval/decisions/:manualId/:versionSeq/:username", middleware(a, accessAdmin, a.removeDecisions))
	router.DELETE("/api/approval/decisions/:manualId/:versionSeq/:username/:decisionSeq", middleware(a, accessAdmin, a.removeDecision))
	router.POST("/api/manuals/:manualId/versions/:versionSeq/publish", middleware(a, accessAdmin, a.publish))

	return router
}

func respond(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(envelope{
		Success: true,
		Data:    data,
	})
}

// respondList is respond plus the count field that list consumers expect.
func respondList(w http.ResponseWriter, data interface{}, count int) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(envelope{
		Success: true,
		Data:    data,
		Count:   &count,
	})
}

func respondMessage(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(envelope{
		Success: true,
		Message: message,
	})
}

func respondError(w http.ResponseWriter, err error) {

	var code = http.StatusInternalServerError
	var message = "internal server error"

	var reqErr requestError
	switch {
	case errors.As(err, &reqErr):
		code, message = http.StatusBadRequest, string(reqErr)
	case errors.Is(err, core.ErrNotFound):
		code, message = http.StatusNotFound, "not found"
	case errors.Is(err, auth.ErrAuth):
		code, message = http.StatusUnauthorized, "invalid credentials"
	case errors.Is(err, auth.ErrToken):
		code, message = http.StatusUnauthorized, "invalid or missing token"
	case errors.Is(err, core.ErrUnauthorized):
		code, message = http.StatusForbidden, "not allowed"
	case errors.Is(err, core.ErrNotApproved):
		code, message = http.StatusForbidden, "version is not approved"
	case errors.Is(err, core.ErrConflict):
		code, message = http.StatusConflict, "conflicting write, please retry"
	default:
		log.Printf("api: %v", err) // storage and other internals stay out of the response
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(envelope{
		Success: false,
		Message: message,
	})
}

// readBody decodes the JSON request body, rejecting unknown fields.
func readBody(req *http.Request, into interface{}) error {
	decoder := json.NewDecoder(req.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(into); err != nil {
		return requestError("invalid request body")
	}
	return nil
}

func intParam(params httprouter.Params, name string) (int, error) {
	n, err := strconv.Atoi(params.ByName(name))
	if err != nil {
		return 0, requestError("invalid " + name)
	}
	return n, nil
}
