package http

import (
	"context"
	"errors"
	"io"
	stdhttp "net/http"
	"strings"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/causerie-chat/server/internal/auth"
	"github.com/causerie-chat/server/internal/core"
	"github.com/causerie-chat/server/internal/proto"
)

// WSHandler upgrades HTTP connections, authenticates them, and bridges them
// to the core router.
type WSHandler struct {
	router      *core.Router
	authService *auth.Service
	log         *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(router *core.Router, authService *auth.Service, logger *zerolog.Logger) stdhttp.Handler {
	return &WSHandler{router: router, authService: authService, log: logger}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	ctx := r.Context()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")

	// The token travels in the handshake. A missing or invalid token closes
	// the connection before any session state exists.
	claims, err := h.authService.VerifyToken(handshakeToken(r))
	if err != nil {
		h.log.Warn().Err(err).Msg("ws connection refused: invalid token")
		conn.Close(websocket.StatusPolicyViolation, "invalid token")
		return
	}

	client := core.NewClient(uuid.NewString(), core.Identity{
		UserID: claims.UserID,
		Role:   string(claims.Role),
	})
	h.router.Connect(client)
	h.log.Info().Str("conn_id", client.ID).Int64("user_id", claims.UserID).Msg("ws connection authenticated")

	// Teardown runs exactly once, whatever made the handler return, and must
	// survive request-context cancellation.
	defer h.router.Disconnect(context.WithoutCancel(ctx), client)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, client)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, client)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	<-errCh

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != 0 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = err.Error()
			h.log.Warn().Err(err).Str("conn_id", client.ID).Msg("ws connection closed with error")
		}
	}

	conn.Close(status, reason)
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, client *core.Client) error {
	for {
		var inbound proto.Inbound
		if err := wsjson.Read(ctx, conn, &inbound); err != nil {
			return err
		}

		cmd, cmdErr, err := inboundToCommand(inbound)
		if err != nil {
			h.log.Warn().Err(err).Str("conn_id", client.ID).Str("event", inbound.Event).Msg("failed to decode inbound")
			return err
		}
		if cmdErr != nil {
			if writeErr := wsjson.Write(ctx, conn, proto.Outbound{
				Event: proto.OutboundErrorMessage,
				Data:  cmdErr.Message,
			}); writeErr != nil {
				return writeErr
			}
			continue
		}
		if cmd != nil {
			h.router.Handle(ctx, client, cmd)
		}
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, client *core.Client) error {
	for {
		select {
		case event := <-client.Events:
			if err := wsjson.Write(ctx, conn, outboundFromEvent(event)); err != nil {
				h.log.Error().Err(err).Str("conn_id", client.ID).Msg("write ws event")
				return err
			}
		case <-client.Done():
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// handshakeToken extracts the session token from the upgrade request: the
// token query parameter, or an Authorization bearer header.
func handshakeToken(r *stdhttp.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return ""
}
