package gateway

import (
	"context"
	"strconv"

	"github.com/streamfabric/gateway/internal/apperror"
)

// handleWS upgrades to the wire protocol of §4.14/§6.3 and dispatches each
// request message to the channel/action it names. One goroutine per
// connection runs ReadLoop; replies and pushed events are written back
// through the same Conn.
//
// Grounded on the teacher's proxy chat_stream_handler.go dispatch loop,
// regeneralized from a single chat channel to the fabric's
// system/session/chat/run channel set.
func (g *Gateway) handleWS(req *Request, resp *Response) {
	conn, err := UpgradeWS(resp.RawWriter(), req.Raw, req.Principal(), "streamfabric.v1", g.cfg.Timeouts.Websocket(), g.cfg.Limits.MaxWsBufferedAmount)
	if err != nil {
		return
	}
	g.metrics.ConnectionsTotal.Inc()
	g.metrics.ConnectionsActive.Inc()
	g.emit(EventConnection, conn.ID)
	defer func() {
		g.metrics.ConnectionsActive.Dec()
		g.emit(EventDisconnect, conn.ID)
	}()

	conn.ReadLoop(func(msg *WSMessage, readErr error) {
		if readErr != nil {
			return
		}
		g.dispatchWS(conn, msg)
	})
}

func (g *Gateway) dispatchWS(conn *Conn, msg *WSMessage) {
	if msg.Kind != WSRequest {
		return
	}

	switch msg.Channel {
	case "system":
		g.wsSystem(conn, msg)
	case "session":
		g.wsSession(conn, msg)
	case "chat":
		g.wsChat(conn, msg)
	case "run":
		g.wsRun(conn, msg)
	default:
		g.log.WithConn(strconv.FormatInt(conn.ID, 10)).WithChannel(msg.Channel).Warn("unknown channel")
		g.wsError(conn, msg, apperror.New(apperror.UnknownChannel, "unknown channel"))
	}
}

func (g *Gateway) wsReply(conn *Conn, msg *WSMessage, payload any) {
	success := true
	conn.Send(WSMessage{Kind: WSResponse, ID: msg.ID, Channel: msg.Channel, Action: msg.Action, Success: &success, Payload: payload})
}

func (g *Gateway) wsError(conn *Conn, msg *WSMessage, err error) {
	ae := apperror.As(err)
	success := false
	conn.Send(WSMessage{
		Kind: WSResponse, ID: msg.ID, Channel: msg.Channel, Action: msg.Action, Success: &success,
		Error: &WSErrorDetail{Code: string(ae.Code), Message: ae.Message, Details: ae.Details},
	})
}

func (g *Gateway) wsSystem(conn *Conn, msg *WSMessage) {
	switch msg.Action {
	case "ping":
		g.wsReply(conn, msg, map[string]any{"pong": true})
	case "stats":
		g.wsReply(conn, msg, g.Stats())
	default:
		g.wsError(conn, msg, apperror.New(apperror.UnknownAction, "unknown action"))
	}
}

func (g *Gateway) wsSession(conn *Conn, msg *WSMessage) {
	if g.deps.Sessions == nil {
		g.wsError(conn, msg, apperror.New(apperror.NotImplemented, "no session store configured"))
		return
	}
	sessionID, _ := msg.Payload.(map[string]any)["sessionId"].(string)

	switch msg.Action {
	case "get":
		session, err := g.deps.Sessions.GetSession(context.Background(), sessionID)
		if err != nil {
			g.wsError(conn, msg, apperror.New(apperror.NotFound, "unknown session"))
			return
		}
		g.wsReply(conn, msg, session)
	case "subscribe":
		conn.Subscribe("session:" + sessionID)
		g.wsReply(conn, msg, map[string]any{"subscribed": sessionID})
	case "unsubscribe":
		conn.Unsubscribe("session:" + sessionID)
		g.wsReply(conn, msg, map[string]any{"unsubscribed": sessionID})
	default:
		g.wsError(conn, msg, apperror.New(apperror.UnknownAction, "unknown action"))
	}
}

func (g *Gateway) wsChat(conn *Conn, msg *WSMessage) {
	switch msg.Action {
	case "send":
		payload, _ := msg.Payload.(map[string]any)
		input, _ := payload["input"].(string)
		if input == "" || g.deps.Starter == nil {
			g.wsError(conn, msg, apperror.New(apperror.ValidationError, "input is required"))
			return
		}
		runID := newRunID()
		run, err := g.deps.Starter.Start(context.Background(), runID, input)
		if err != nil {
			g.log.WithConn(strconv.FormatInt(conn.ID, 10)).WithRun(runID).LogError(context.Background(), err, "starting run")
			g.wsError(conn, msg, apperror.Newf(apperror.RunStartFailed, "starting run: %v", err))
			return
		}
		g.registry.Register(runID, run)
		g.metrics.RunsStarted.Inc()
		g.log.WithConn(strconv.FormatInt(conn.ID, 10)).WithRun(runID).Info("run started")
		g.wsReply(conn, msg, map[string]any{"runId": runID})
		go g.pumpRunToWS(conn, runID)
	case "cancel":
		payload, _ := msg.Payload.(map[string]any)
		runID, _ := payload["runId"].(string)
		if !g.registry.Cancel(runID) {
			g.wsError(conn, msg, apperror.New(apperror.NotFound, "unknown run"))
			return
		}
		g.metrics.RunsCancelled.Inc()
		g.log.WithConn(strconv.FormatInt(conn.ID, 10)).WithRun(runID).Info("run cancelled")
		g.wsReply(conn, msg, map[string]any{"cancelled": true})
	default:
		g.wsError(conn, msg, apperror.New(apperror.UnknownAction, "unknown action"))
	}
}

func (g *Gateway) wsRun(conn *Conn, msg *WSMessage) {
	payload, _ := msg.Payload.(map[string]any)
	runID, _ := payload["runId"].(string)

	switch msg.Action {
	case "status":
		info, ok := g.registry.GetInfo(runID)
		if !ok {
			g.wsError(conn, msg, apperror.New(apperror.NotFound, "unknown run"))
			return
		}
		g.wsReply(conn, msg, info)
	case "subscribe":
		conn.Subscribe("run:" + runID)
		g.wsReply(conn, msg, map[string]any{"subscribed": runID})
		go g.pumpRunToWS(conn, runID)
	case "unsubscribe":
		conn.Unsubscribe("run:" + runID)
		g.wsReply(conn, msg, map[string]any{"unsubscribed": runID})
	default:
		g.wsError(conn, msg, apperror.New(apperror.UnknownAction, "unknown action"))
	}
}

// pumpRunToWS forwards a run's buffered events to conn as `event` messages
// on the `run` channel, until the run completes or conn drops the
// subscription.
func (g *Gateway) pumpRunToWS(conn *Conn, runID string) {
	sub, err := g.registry.SubscribeWithIDs(runID, 0)
	if err != nil {
		return
	}
	defer sub.Unsubscribe()

	for be := range sub.Events {
		if err := conn.Send(WSMessage{
			Kind:    WSEvent,
			Channel: "run",
			Event:   string(be.Event.Kind),
			ID:      strconv.Itoa(be.ID),
			Payload: be.Event,
		}); err != nil {
			g.metrics.SubscriberDropped.Inc()
			g.log.WithConn(strconv.FormatInt(conn.ID, 10)).WithRun(runID).LogError(context.Background(), err, "dropping subscriber")
			return
		}
		if be.Event.Kind == "done" || be.Event.Kind == "error" {
			return
		}
	}
}
