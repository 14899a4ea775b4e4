package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	apierr "github.com/glasswall/icap-management-ui/pkg/api/types/errors"
	"github.com/glasswall/icap-management-ui/pkg/session"
	"github.com/glasswall/icap-management-ui/pkg/state/store"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// HeaderSessionToken carries the refreshed session token in responses.
const HeaderSessionToken = "X-Session-Token"

// Opened is the response of opening a session.
type Opened[S any] struct {
	SessionId uuid.UUID `json:"sessionId"`
	Token     string    `json:"token"`
	State     S         `json:"state"`
}

// Sessions serves sessions hosting containers of type C, whose state is S.
type Sessions[C session.Container, S any] struct {
	Manager *session.Manager[C]

	// New creates a container for a new session.
	New func() C

	// Start queues the first operation of a new session.
	Start func(C) (*store.Op, error)

	State     func(C) S
	Subscribe func(C, int) (*store.Subscription[S], error)

	// Options of websocket handshake. nil is the default options.
	AcceptOptions *websocket.AcceptOptions
}

// Act is an action on the container of a session.
//
// It returns the queued operation, or nil when the action has been done.
type Act[C session.Container] func(c echo.Context, container C) (*store.Op, error)

// tokenOf reads the session token from "Authorization: Bearer ..." or the query "token".
//
// Query is for websocket clients, which can not set headers.
func tokenOf(c echo.Context) string {
	if auth := c.Request().Header.Get("Authorization"); auth != "" {
		if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	return c.QueryParam("token")
}

func (s Sessions[C, S]) authenticate(c echo.Context, paramSessionId string) (session.Session[C], error) {
	token := tokenOf(c)
	if token == "" {
		return session.Session[C]{}, apierr.Unauthorized("session token is required.", nil)
	}

	sess, err := s.Manager.Authenticate(token)
	if err != nil {
		return session.Session[C]{}, httpError(c.Request().Context(), err)
	}
	if id, err := uuid.Parse(c.Param(paramSessionId)); err != nil || id != sess.Id {
		return session.Session[C]{}, apierr.Unauthorized("session token is not for this session.", err)
	}

	c.Response().Header().Set(HeaderSessionToken, sess.Token)
	return sess, nil
}

// Open opens a session and starts its container.
func (s Sessions[C, S]) Open() echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		container := s.New()
		sess, err := s.Manager.Open(container)
		if err != nil {
			container.Close()
			return apierr.InternalServerError(err)
		}
		if s.Start != nil {
			if _, err := s.Start(container); err != nil {
				s.Manager.Close(sess.Id)
				return httpError(ctx, err)
			}
		}

		c.Response().Header().Set(HeaderSessionToken, sess.Token)
		return c.JSON(http.StatusCreated, Opened[S]{
			SessionId: sess.Id,
			Token:     sess.Token,
			State:     s.State(container),
		})
	}
}

// Get answers the snapshot of the session.
func (s Sessions[C, S]) Get(paramSessionId string) echo.HandlerFunc {
	return func(c echo.Context) error {
		sess, err := s.authenticate(c, paramSessionId)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, s.State(sess.Container))
	}
}

// Action runs act on the session.
//
// When act queues an operation, it answers 202 Accepted with the snapshot just after queueing.
// With query "wait=true", it waits for the operation and answers 200 OK with the final snapshot.
// When act has been done synchronously, it answers 200 OK with the snapshot.
func (s Sessions[C, S]) Action(paramSessionId string, act Act[C]) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		sess, err := s.authenticate(c, paramSessionId)
		if err != nil {
			return err
		}

		op, err := act(c, sess.Container)
		if err != nil {
			return httpError(ctx, err)
		}
		snapshot := s.State(sess.Container)
		if op == nil {
			return c.JSON(http.StatusOK, snapshot)
		}

		if wait, _ := strconv.ParseBool(c.QueryParam("wait")); !wait {
			return c.JSON(http.StatusAccepted, snapshot)
		}

		err = op.Wait(ctx)
		if ctx.Err() != nil {
			return apierr.ServiceUnavailable("request is cancelled while waiting for the operation.", ctx.Err())
		}
		if errors.Is(err, store.ErrClosed) {
			return httpError(ctx, err)
		}
		return c.JSON(http.StatusOK, s.State(sess.Container))
	}
}

// Close closes the session.
func (s Sessions[C, S]) Close(paramSessionId string) echo.HandlerFunc {
	return func(c echo.Context) error {
		sess, err := s.authenticate(c, paramSessionId)
		if err != nil {
			return err
		}
		if err := s.Manager.Close(sess.Id); err != nil {
			return httpError(c.Request().Context(), err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

// Watch upgrades the request to websocket, and streams snapshots of the session as JSON.
//
// The first message is the current snapshot.
// The connection is closed when the session is closed.
// While watched, the session is not closed for idleness.
func (s Sessions[C, S]) Watch(paramSessionId string) echo.HandlerFunc {
	return func(c echo.Context) error {
		sess, err := s.authenticate(c, paramSessionId)
		if err != nil {
			return err
		}
		release, err := s.Manager.Hold(sess.Id)
		if err != nil {
			return httpError(c.Request().Context(), err)
		}
		defer release()

		sub, err := s.Subscribe(sess.Container, 16)
		if err != nil {
			return httpError(c.Request().Context(), err)
		}
		defer sub.Close()

		conn, err := websocket.Accept(c.Response(), c.Request(), s.AcceptOptions)
		if err != nil {
			// Accept has written the error response.
			c.Logger().Warnf("websocket handshake failed: %s", err)
			return nil
		}
		defer conn.CloseNow()

		ctx := conn.CloseRead(c.Request().Context())
		for {
			select {
			case <-ctx.Done():
				conn.Close(websocket.StatusNormalClosure, "closed")
				return nil
			case snapshot, ok := <-sub.C():
				if !ok {
					conn.Close(websocket.StatusGoingAway, "session is closed")
					return nil
				}
				wctx, cancel := context.WithTimeout(ctx, 5*time.Second)
				err := wsjson.Write(wctx, conn, snapshot)
				cancel()
				if err != nil {
					c.Logger().Warnf("websocket: sending snapshot failed: %s", err)
					return nil
				}
			}
		}
	}
}
