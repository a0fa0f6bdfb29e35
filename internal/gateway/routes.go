package gateway

import (
	"net/http"
	"strconv"

	"github.com/streamfabric/gateway/internal/apperror"
)

// registerRoutes installs the canonical routes of §6.1. Session/tool/admin
// passthrough routes are thin translations onto the Deps collaborators;
// chat/* routes are the Run Registry and Block Streamer's actual surface.
func (g *Gateway) registerRoutes() {
	g.router.Get("/", g.handleRoot)
	g.router.Get("/api/v1/health", g.handleHealth)
	g.router.Get("/api/v1/health/quick", g.handleHealthQuick)
	g.router.Get("/api/v1/stats", g.handleStats)
	g.router.Get("/api/v1/config", g.handleConfig)

	g.router.Post("/api/v1/chat", g.handleChatStart)
	g.router.Get("/api/v1/chat/:runId", g.handleChatInfo)
	g.router.Delete("/api/v1/chat/:runId", g.handleChatCancel)
	g.router.Post("/api/v1/chat/:runId/cancel", g.handleChatCancel)
	g.router.Get("/api/v1/chat/:runId/stream", g.handleChatStream)
	g.router.Get("/api/v1/chat/:runId/blocks", g.handleChatBlocks)

	g.router.Get("/api/v1/sessions/:sessionId", g.handleSessionGet)
	g.router.Get("/api/v1/sessions/:sessionId/messages", g.handleSessionMessages)

	g.router.Get("/api/v1/tools", g.handleToolsList)
	g.router.Post("/api/v1/tools/:name/call", g.handleToolCall)

	g.router.Get("/api/v1/admin/logs", g.handleAdminLogs)
	g.router.Get("/api/v1/admin/connections", g.handleAdminConnections)
	g.router.Get("/metrics", g.handleMetrics)

	g.router.Get("/ws", g.handleWS)
}

func (g *Gateway) handleRoot(req *Request, resp *Response) {
	resp.JSON(http.StatusOK, map[string]any{"service": "streamfabric-gateway", "status": "ok"})
}

func (g *Gateway) handleHealth(req *Request, resp *Response) {
	resp.JSON(http.StatusOK, map[string]any{
		"status":      "healthy",
		"uptime":      g.Stats()["uptimeSeconds"],
		"connections": g.connTable.Total(),
	})
}

func (g *Gateway) handleHealthQuick(req *Request, resp *Response) {
	resp.Text(http.StatusOK, "ok")
}

func (g *Gateway) handleStats(req *Request, resp *Response) {
	resp.JSON(http.StatusOK, g.Stats())
}

func (g *Gateway) handleConfig(req *Request, resp *Response) {
	resp.JSON(http.StatusOK, g.cfg.PublicView())
}

func (g *Gateway) handleMetrics(req *Request, resp *Response) {
	g.metrics.Handler().ServeHTTP(resp.RawWriter(), req.Raw)
}

func (g *Gateway) handleAdminLogs(req *Request, resp *Response) {
	resp.JSON(http.StatusOK, map[string]any{"entries": g.logBuf.Snapshot()})
}

func (g *Gateway) handleAdminConnections(req *Request, resp *Response) {
	resp.JSON(http.StatusOK, map[string]any{"total": g.connTable.Total()})
}

// -- chat -------------------------------------------------------------

type chatStartRequest struct {
	Input   string `json:"input"`
	Profile string `json:"profile"`
}

func (g *Gateway) handleChatStart(req *Request, resp *Response) {
	var body chatStartRequest
	if err := req.JSON(g.cfg.Limits.MaxBodySize, &body); err != nil {
		resp.Error(apperror.New(apperror.InvalidJSON, "malformed request body"))
		return
	}
	if body.Input == "" {
		resp.Error(apperror.New(apperror.ValidationError, "input is required"))
		return
	}
	if g.deps.Starter == nil {
		resp.Error(apperror.New(apperror.NotImplemented, "no run starter configured"))
		return
	}

	runID := newRunID()
	run, err := g.deps.Starter.Start(req.Raw.Context(), runID, body.Input)
	if err != nil {
		resp.Error(apperror.Newf(apperror.RunStartFailed, "starting run: %v", err))
		return
	}
	g.registry.Register(runID, run)
	g.metrics.RunsStarted.Inc()

	resp.JSON(http.StatusAccepted, map[string]any{"runId": runID})
}

func (g *Gateway) handleChatInfo(req *Request, resp *Response) {
	runID := req.Param("runId")
	info, ok := g.registry.GetInfo(runID)
	if !ok {
		resp.Error(apperror.New(apperror.NotFound, "unknown run"))
		return
	}
	resp.JSON(http.StatusOK, map[string]any{
		"done":         info.Done,
		"nextEventId":  info.NextEventID,
		"oldestBuffId": info.OldestBuffID,
		"newestBuffId": info.NewestBuffID,
	})
}

func (g *Gateway) handleChatCancel(req *Request, resp *Response) {
	runID := req.Param("runId")
	if !g.registry.Cancel(runID) {
		resp.Error(apperror.New(apperror.NotFound, "unknown run"))
		return
	}
	g.metrics.RunsCancelled.Inc()
	resp.JSON(http.StatusOK, map[string]any{"cancelled": true})
}

// handleChatStream serves the raw BufferedEvent stream for a run over SSE,
// resuming from Last-Event-ID (or ?afterId=) per §6.1/§7.
func (g *Gateway) handleChatStream(req *Request, resp *Response) {
	runID := req.Param("runId")
	afterID := lastEventID(req)

	sub, err := g.registry.SubscribeWithIDs(runID, afterID)
	if err != nil {
		resp.Error(apperror.New(apperror.NotFound, "unknown run"))
		return
	}
	defer sub.Unsubscribe()

	sse := resp.SSE()
	if sse == nil {
		return
	}
	if sub.Gap {
		sse.Comment("gap: requested afterId precedes retained history")
	}

	for be := range sub.Events {
		payload, _ := jsonMarshal(be.Event)
		if !sse.WriteEvent(string(be.Event.Kind), strconv.Itoa(be.ID), string(payload)) {
			return
		}
		if be.Event.Kind == "done" || be.Event.Kind == "error" {
			return
		}
	}
}

// handleChatBlocks serves the Block Streamer's output for a run, rendered
// through the requested channel profile, over SSE.
func (g *Gateway) handleChatBlocks(req *Request, resp *Response) {
	runID := req.Param("runId")
	profileName := req.Query("profile")
	if profileName == "" {
		profileName = "web"
	}
	p, ok := g.profiles.Get(profileName)
	if !ok {
		resp.Error(apperror.New(apperror.UnknownChannel, "unknown profile"))
		return
	}

	afterID := lastEventID(req)
	sub, err := g.registry.SubscribeWithIDs(runID, afterID)
	if err != nil {
		resp.Error(apperror.New(apperror.NotFound, "unknown run"))
		return
	}
	defer sub.Unsubscribe()

	sse := resp.SSE()
	if sse == nil {
		return
	}
	if sub.Gap {
		sse.Comment("gap: requested afterId precedes retained history")
	}

	streamer := newSSEBlockStreamer(p, sse)
	for be := range sub.Events {
		switch be.Event.Kind {
		case "delta":
			if err := streamer.push(be.Event.Delta); err != nil {
				return
			}
		case "done":
			streamer.complete()
			return
		case "error":
			streamer.complete()
			return
		}
	}
}

// -- sessions / tools (passthrough to the pluggable collaborators) ----

func (g *Gateway) handleSessionGet(req *Request, resp *Response) {
	if g.deps.Sessions == nil {
		resp.Error(apperror.New(apperror.NotImplemented, "no session store configured"))
		return
	}
	session, err := g.deps.Sessions.GetSession(req.Raw.Context(), req.Param("sessionId"))
	if err != nil {
		resp.Error(apperror.New(apperror.NotFound, "unknown session"))
		return
	}
	resp.JSON(http.StatusOK, session)
}

func (g *Gateway) handleSessionMessages(req *Request, resp *Response) {
	if g.deps.Sessions == nil {
		resp.Error(apperror.New(apperror.NotImplemented, "no session store configured"))
		return
	}
	msgs, err := g.deps.Sessions.ListMessages(req.Raw.Context(), req.Param("sessionId"), 100)
	if err != nil {
		resp.Error(apperror.New(apperror.NotFound, "unknown session"))
		return
	}
	resp.JSON(http.StatusOK, map[string]any{"messages": msgs})
}

func (g *Gateway) handleToolsList(req *Request, resp *Response) {
	if g.deps.Tools == nil {
		resp.JSON(http.StatusOK, map[string]any{"tools": []any{}})
		return
	}
	tools, err := g.deps.Tools.ListTools(req.Raw.Context())
	if err != nil {
		resp.Error(apperror.Newf(apperror.ServiceUnavailable, "listing tools: %v", err))
		return
	}
	resp.JSON(http.StatusOK, map[string]any{"tools": tools})
}

func (g *Gateway) handleToolCall(req *Request, resp *Response) {
	if g.deps.Tools == nil {
		resp.Error(apperror.New(apperror.NotImplemented, "no tool bridge configured"))
		return
	}
	var args map[string]any
	if err := req.JSON(g.cfg.Limits.MaxBodySize, &args); err != nil {
		resp.Error(apperror.New(apperror.InvalidJSON, "malformed request body"))
		return
	}
	result, err := g.deps.Tools.CallTool(req.Raw.Context(), req.Param("name"), args)
	if err != nil {
		resp.Error(apperror.Newf(apperror.ServiceUnavailable, "calling tool: %v", err))
		return
	}
	resp.JSON(http.StatusOK, result)
}
