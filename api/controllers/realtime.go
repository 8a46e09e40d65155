package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/wishwell/wishwell-backend/api/responses"
	"github.com/wishwell/wishwell-backend/api/validators"
	"github.com/wishwell/wishwell-backend/internal/realtime"
	pkgerrors "github.com/wishwell/wishwell-backend/pkg/errors"
	"github.com/wishwell/wishwell-backend/pkg/logger"
)

// RealtimeStream opens an SSE connection scoped to the wishlists named in
// the `wishlists` query parameter (comma separated ids). The stream carries
// funding aggregates only.
func RealtimeStream(hub *realtime.Hub, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if hub == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "realtime hub unavailable"))
			return
		}

		userID, err := callerID(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		raw := strings.TrimSpace(r.URL.Query().Get("wishlists"))
		if raw == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "at least one wishlist id is required"))
			return
		}

		ids := make([]uuid.UUID, 0, 4)
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := uuid.Parse(part)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid wishlist id").
					WithDetails(map[string]any{"value": part}))
				return
			}
			ids = append(ids, id)
		}
		if len(ids) == 0 {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "at least one wishlist id is required"))
			return
		}

		client := hub.NewClient(userID)
		for _, id := range ids {
			hub.Subscribe(client, id)
		}
		defer hub.RemoveClient(client)

		if logg != nil {
			logg.Info(logg.WithFields(ctx, map[string]any{
				"client_id": client.ID.String(),
				"wishlists": len(ids),
			}), "realtime.stream.open")
		}

		hub.ServeHTTP(w, r, client)
	}
}

type subscriptionPayload struct {
	ClientID   uuid.UUID `json:"client_id" validate:"required"`
	WishlistID uuid.UUID `json:"wishlist_id" validate:"required"`
}

// RealtimeSubscribe adds a wishlist room to an already-open stream.
func RealtimeSubscribe(hub *realtime.Hub, logg *logger.Logger) http.HandlerFunc {
	return subscriptionHandler(hub, logg, func(client *realtime.Client, wishlistID uuid.UUID) {
		hub.Subscribe(client, wishlistID)
	})
}

// RealtimeUnsubscribe drops a wishlist room from an open stream.
func RealtimeUnsubscribe(hub *realtime.Hub, logg *logger.Logger) http.HandlerFunc {
	return subscriptionHandler(hub, logg, func(client *realtime.Client, wishlistID uuid.UUID) {
		hub.Unsubscribe(client, wishlistID)
	})
}

func subscriptionHandler(hub *realtime.Hub, logg *logger.Logger, apply func(*realtime.Client, uuid.UUID)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if hub == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "realtime hub unavailable"))
			return
		}

		userID, err := callerID(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload subscriptionPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		client := hub.ClientByID(payload.ClientID)
		if client == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "stream not found"))
			return
		}
		if client.UserID != userID {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "stream belongs to another user"))
			return
		}

		apply(client, payload.WishlistID)
		responses.WriteSuccess(w, map[string]string{"status": "ok"})
	}
}
