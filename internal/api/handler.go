package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/qqsync/webui-bridge/internal/biz/domain"
	"github.com/qqsync/webui-bridge/internal/biz/repo"
	"github.com/qqsync/webui-bridge/internal/biz/usecase"
)

// Handler serves the dashboard JSON API. The dashboard polls; nothing is
// pushed.
type Handler struct {
	adapter    *usecase.CapabilityAdapter
	messageLog repo.MessageLogRepo
	stats      *usecase.StatisticsAggregator

	// gameSender delivers a message into the game chat. Nil when no game
	// server is attached.
	gameSender func(sender, content string) error

	startedAt time.Time
}

// NewHandler creates the dashboard handler.
func NewHandler(
	adapter *usecase.CapabilityAdapter,
	messageLog repo.MessageLogRepo,
	stats *usecase.StatisticsAggregator,
	gameSender func(sender, content string) error,
) *Handler {
	return &Handler{
		adapter:    adapter,
		messageLog: messageLog,
		stats:      stats,
		gameSender: gameSender,
		startedAt:  time.Now(),
	}
}

// messageJSON adds the derived message type to the wire form.
type messageJSON struct {
	domain.ChatMessage
	MessageType domain.MessageType `json:"message_type"`
}

func toMessageJSON(messages []domain.ChatMessage) []messageJSON {
	out := make([]messageJSON, len(messages))
	for i, m := range messages {
		out[i] = messageJSON{ChatMessage: m, MessageType: m.Type()}
	}
	return out
}

func (h *Handler) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[API] encode response: %v", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func queryInt(r *http.Request, key string, fallback int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}

// Status returns the high-level system state.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	info, st := h.adapter.ServerInfo()
	h.writeJSON(w, map[string]any{
		"component_available": st.Available,
		"component_reason":    st.Reason,
		"websocket_connected": info.ConnectionStatus.WebSocketConnected,
		"bot_online":          info.ConnectionStatus.BotOnline,
		"online_players":      info.OnlinePlayersCount,
		"bound_users":         info.BoundUsersCount,
		"reconnect_attempts":  info.ConnectionStatus.ReconnectAttempts,
		"timestamp":           time.Now().Format(time.RFC3339),
	})
}

// Dashboard returns the aggregate view the landing page polls.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	info, st := h.adapter.ServerInfo()
	config, _ := h.adapter.GetConfig("")

	wsStatus := "disconnected"
	if info.ConnectionStatus.WebSocketConnected {
		wsStatus = "connected"
	}

	targetGroup, _ := config["target_group"].(string)
	napcatWS, _ := config["napcat_ws"].(string)
	configStatus := map[string]bool{
		"target_group_set":     targetGroup != "",
		"napcat_ws_set":        napcatWS != "",
		"websocket_configured": napcatWS != "",
	}
	configComplete := true
	for _, ok := range configStatus {
		configComplete = configComplete && ok
	}

	totalMessages := 0
	if msgStats, err := h.messageLog.Aggregate(7); err == nil {
		totalMessages = msgStats.TotalMessages
	} else {
		log.Printf("[API] dashboard aggregate: %v", err)
	}

	recent, err := h.messageLog.Recent(50)
	if err != nil {
		log.Printf("[API] dashboard recent: %v", err)
		recent = []domain.ChatMessage{}
	}

	h.writeJSON(w, map[string]any{
		"component_available": st.Available,
		"stats": map[string]any{
			"online_players":   info.OnlinePlayersCount,
			"bound_users":      info.BoundUsersCount,
			"total_messages":   totalMessages,
			"uptime":           time.Since(h.startedAt).Round(time.Second).String(),
			"websocket_status": wsStatus,
			"config_complete":  configComplete,
		},
		"online_players_list": info.OnlinePlayers,
		"websocket_info": map[string]any{
			"status":             wsStatus,
			"last_ping":          info.ConnectionStatus.LastPing,
			"reconnect_attempts": info.ConnectionStatus.ReconnectAttempts,
		},
		"config_status":   configStatus,
		"recent_messages": toMessageJSON(recent),
		"system_info": map[string]any{
			"component_info": info.ComponentInfo,
			"last_updated":   time.Now().Format(time.RFC3339),
		},
	})
}

// GetConfig returns component configuration, either one key or the whole
// known set.
func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	config, st := h.adapter.GetConfig(r.URL.Query().Get("key"))
	h.writeJSON(w, map[string]any{
		"available": st.Available,
		"reason":    st.Reason,
		"config":    config,
	})
}

// SetConfig applies a batch of configuration updates.
func (h *Handler) SetConfig(w http.ResponseWriter, r *http.Request) {
	var updates map[string]any
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(updates) == 0 {
		h.writeError(w, http.StatusBadRequest, "no updates given")
		return
	}

	results, ok := h.adapter.UpdateConfig(updates)
	h.writeJSON(w, map[string]any{
		"success": ok,
		"results": results,
	})
}

// Users lists every binding projection.
func (h *Handler) Users(w http.ResponseWriter, r *http.Request) {
	users, st := h.adapter.Users()
	h.writeJSON(w, map[string]any{
		"available": st.Available,
		"reason":    st.Reason,
		"users":     users,
	})
}

// UserInfo returns one user's projection.
func (h *Handler) UserInfo(w http.ResponseWriter, r *http.Request) {
	player := chi.URLParam(r, "player")
	user, found, st := h.adapter.UserInfo(player)
	if !st.Available {
		h.writeError(w, http.StatusServiceUnavailable, st.Reason)
		return
	}
	if !found {
		h.writeError(w, http.StatusNotFound, "user not found")
		return
	}
	h.writeJSON(w, user)
}

type operatorRequest struct {
	Operator string `json:"operator"`
	Reason   string `json:"reason"`
}

func decodeOperator(r *http.Request) operatorRequest {
	req := operatorRequest{}
	json.NewDecoder(r.Body).Decode(&req)
	if req.Operator == "" {
		req.Operator = "WebUI"
	}
	return req
}

// UnbindUser detaches a player's QQ account.
func (h *Handler) UnbindUser(w http.ResponseWriter, r *http.Request) {
	req := decodeOperator(r)
	ok, reason := h.adapter.UnbindUser(chi.URLParam(r, "player"), req.Operator)
	h.writeJSON(w, map[string]any{"success": ok, "reason": reason})
}

// BanUser blocks a player from the bridge.
func (h *Handler) BanUser(w http.ResponseWriter, r *http.Request) {
	req := decodeOperator(r)
	ok, reason := h.adapter.BanUser(chi.URLParam(r, "player"), req.Operator, req.Reason)
	h.writeJSON(w, map[string]any{"success": ok, "reason": reason})
}

// UnbanUser lifts a ban.
func (h *Handler) UnbanUser(w http.ResponseWriter, r *http.Request) {
	req := decodeOperator(r)
	ok, reason := h.adapter.UnbanUser(chi.URLParam(r, "player"), req.Operator)
	h.writeJSON(w, map[string]any{"success": ok, "reason": reason})
}

// Statistics returns the combined statistics snapshot.
func (h *Handler) Statistics(w http.ResponseWriter, r *http.Request) {
	days := queryInt(r, "days", 7)
	snapshot, err := h.stats.Snapshot(days)
	if err != nil {
		log.Printf("[API] statistics: %v", err)
		h.writeError(w, http.StatusInternalServerError, "statistics unavailable")
		return
	}
	h.writeJSON(w, snapshot)
}

// AuditLogs returns recorded admin actions.
func (h *Handler) AuditLogs(w http.ResponseWriter, r *http.Request) {
	q := domain.AuditQuery{
		Limit:      queryInt(r, "limit", 100),
		ActionType: r.URL.Query().Get("action"),
		Operator:   r.URL.Query().Get("operator"),
		Days:       queryInt(r, "days", 30),
	}
	entries, st := h.adapter.AuditLogs(r.Context(), q)
	h.writeJSON(w, map[string]any{
		"available": st.Available,
		"reason":    st.Reason,
		"logs":      entries,
	})
}

type sendRequest struct {
	Sender  string `json:"sender"`
	Message string `json:"message"`
}

func decodeSend(r *http.Request) (sendRequest, bool) {
	var req sendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Message == "" {
		return sendRequest{}, false
	}
	if req.Sender == "" {
		req.Sender = "WebUI"
	}
	return req, true
}

func (h *Handler) appendMessage(msg domain.ChatMessage) {
	if err := h.messageLog.Append(msg); err != nil {
		log.Printf("[API] append message: %v", err)
	}
}

// SendToQQ forwards a dashboard message to the QQ group.
func (h *Handler) SendToQQ(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeSend(r)
	if !ok {
		h.writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	sent, reason := h.adapter.SendMessage(r.Context(), req.Message)
	if sent {
		h.appendMessage(domain.ChatMessage{
			Timestamp: time.Now().Unix(),
			Sender:    req.Sender,
			Content:   req.Message,
			Direction: domain.DirectionWebUIToQQ,
		})
	}
	h.writeJSON(w, map[string]any{"success": sent, "reason": reason})
}

// SendToGame forwards a dashboard message into the game chat.
func (h *Handler) SendToGame(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeSend(r)
	if !ok {
		h.writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	if h.gameSender == nil {
		h.writeJSON(w, map[string]any{"success": false, "reason": "game server not attached"})
		return
	}
	if err := h.gameSender(req.Sender, req.Message); err != nil {
		log.Printf("[API] send to game: %v", err)
		h.writeJSON(w, map[string]any{"success": false, "reason": "game delivery failed"})
		return
	}

	h.appendMessage(domain.ChatMessage{
		Timestamp: time.Now().Unix(),
		Sender:    req.Sender,
		Content:   req.Message,
		Direction: domain.DirectionWebUIToGame,
	})
	h.writeJSON(w, map[string]any{"success": true})
}

type consoleRequest struct {
	Command string `json:"command"`
}

// ConsoleCommand runs a server console command through the component.
func (h *Handler) ConsoleCommand(w http.ResponseWriter, r *http.Request) {
	var req consoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Command == "" {
		h.writeError(w, http.StatusBadRequest, "command is required")
		return
	}

	output, ok, reason := h.adapter.ExecuteCommand(r.Context(), req.Command, "WebUI")
	if ok {
		h.appendMessage(domain.ChatMessage{
			Timestamp: time.Now().Unix(),
			Sender:    "Console",
			Content:   req.Command,
			Direction: domain.DirectionConsole,
		})
	}
	h.writeJSON(w, map[string]any{"success": ok, "reason": reason, "output": output})
}

// RecentMessages returns the newest messages across the scan window.
func (h *Handler) RecentMessages(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	messages, err := h.messageLog.Recent(limit)
	if err != nil {
		log.Printf("[API] recent messages: %v", err)
		h.writeError(w, http.StatusInternalServerError, "message log unavailable")
		return
	}
	h.writeJSON(w, map[string]any{"messages": toMessageJSON(messages)})
}

// MessageStats returns the time-bucketed message aggregation.
func (h *Handler) MessageStats(w http.ResponseWriter, r *http.Request) {
	days := queryInt(r, "days", 7)
	stats, err := h.messageLog.Aggregate(days)
	if err != nil {
		log.Printf("[API] message stats: %v", err)
		h.writeError(w, http.StatusInternalServerError, "message log unavailable")
		return
	}
	h.writeJSON(w, stats)
}

// RestartTransport asks the component to re-establish its platform link.
// The restart settles in the background; the response reports initiation.
func (h *Handler) RestartTransport(w http.ResponseWriter, r *http.Request) {
	ok, reason := h.adapter.RestartTransport()
	h.writeJSON(w, map[string]any{"success": ok, "reason": reason})
}
