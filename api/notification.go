package api

import (
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"
)

func (a *API) notifications(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error {

	var limit = 50
	if s := req.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			return requestError("invalid limit")
		}
		limit = n
	}

	notifications, err := a.db.UserNotifications(ctx.User.Username, limit)
	if err != nil {
		return err
	}

	respondList(w, notifications, len(notifications))
	return nil
}

func (a *API) unreadNotifications(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error {

	notifications, err := a.db.UnreadNotifications(ctx.User.Username)
	if err != nil {
		return err
	}

	respondList(w, notifications, len(notifications))
	return nil
}

func (a *API) unreadCount(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error {

	count, err := a.db.UnreadCount(ctx.User.Username)
	if err != nil {
		return err
	}

	respond(w, struct {
		Count int `json:"count"`
	}{count})
	return nil
}

func (a *API) markRead(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error {

	id, err := strconv.ParseInt(params.ByName("id"), 10, 64)
	if err != nil {
		return requestError("invalid id")
	}

	if err := a.db.MarkRead(id, ctx.User.Username); err != nil {
		return err
	}

	respondMessage(w, "marked as read")
	return nil
}

func (a *API) markAllRead(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error {

	if err := a.db.MarkAllRead(ctx.User.Username); err != nil {
		return err
	}

	respondMessage(w, "marked all as read")
	return nil
}

func (a *API) deleteNotification(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error {

	id, err := strconv.ParseInt(params.ByName("id"), 10, 64)
	if err != nil {
		return requestError("invalid id")
	}

	if err := a.db.DeleteNotification(id, ctx.User.Username); err != nil {
		return err
	}

	respondMessage(w, "deleted")
	return nil
}
