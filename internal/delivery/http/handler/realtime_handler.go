package handler

import (
	"context"
	"net/http"

	"clinic-scheduling/internal/delivery/http/middleware"
	"clinic-scheduling/internal/domain/entity"
	"clinic-scheduling/internal/realtime"
	"clinic-scheduling/pkg/response"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

type RealtimeHandler struct {
	hub       *realtime.Hub
	snapshots realtime.SnapshotProvider
	upgrader  websocket.Upgrader
	log       *logrus.Logger
}

// NewRealtimeHandler accepts upgrades from allowedOrigins; an empty list
// accepts any origin.
func NewRealtimeHandler(hub *realtime.Hub, snapshots realtime.SnapshotProvider, allowedOrigins []string, log *logrus.Logger) *RealtimeHandler {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = struct{}{}
	}

	return &RealtimeHandler{
		hub:       hub,
		snapshots: snapshots,
		log:       log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if len(allowed) == 0 {
					return true
				}
				_, ok := allowed[r.Header.Get("Origin")]
				return ok
			},
		},
	}
}

// ServeWS subscribes the caller to its own topic, pushes the current state
// and then serves the connection until it closes.
func (h *RealtimeHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActorFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "")
		return
	}
	topic, ok := realtime.ActorTopic(actor)
	if !ok {
		response.Forbidden(w, "Only doctors and patients can subscribe to live updates")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		h.log.Debugf("Websocket upgrade failed: %v", err)
		return
	}

	client := h.hub.NewClient(conn, []string{topic})
	h.hub.Register(client)
	h.log.Debugf("Realtime client %s connected on %s", client.ID, topic)

	ctx := r.Context()
	h.resync(ctx, client, actor)

	h.hub.Serve(client, func(msg realtime.ClientMessage) {
		if msg.Action == realtime.ActionResync {
			h.resync(ctx, client, actor)
		}
	})
	h.log.Debugf("Realtime client %s disconnected", client.ID)
}

func (h *RealtimeHandler) resync(ctx context.Context, client *realtime.Client, actor entity.Actor) {
	events, err := h.snapshots.Resync(ctx, actor)
	if err != nil {
		h.log.Warnf("Failed to build resync for %s %s: %+v", actor.RoleName(), actor.UserID, err)
		return
	}
	h.hub.Deliver(client, events...)
}
