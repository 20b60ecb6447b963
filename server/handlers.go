package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/youssefsiam38/memorykeep"
	"github.com/youssefsiam38/memorykeep/domain"
)

// Response wraps all API responses.
type Response struct {
	Data  any       `json:"data,omitempty"`
	Error *APIError `json:"error,omitempty"`
}

// APIError represents an API error.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	ConversationID string `json:"conversation_id"`
	Message        string `json:"message"`
}

// FactRequest is the body of PUT /api/conversations/{conversation_id}/facts/{key}.
type FactRequest struct {
	Value string `json:"value"`
}

// ContextResponse is the assembled prompt of a conversation.
type ContextResponse struct {
	ConversationID string               `json:"conversation_id"`
	Messages       []memorykeep.Message `json:"messages"`
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Response{Data: data})
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Response{
		Error: &APIError{Code: code, Message: message},
	})
}

// writeEngineError maps an engine or store error to a status code.
func (rt *router) writeEngineError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case memorykeep.IsStorageError(err):
		rt.logError(r, err)
		writeError(w, http.StatusServiceUnavailable, "storage_unavailable", err.Error())
	case errors.Is(err, memorykeep.ErrEmptyConversationID),
		errors.Is(err, memorykeep.ErrInvalidRole),
		errors.Is(err, domain.ErrEmptyKey):
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "canceled", err.Error())
	default:
		rt.logError(r, err)
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func (rt *router) logError(r *http.Request, err error) {
	if rt.config.Logger != nil {
		rt.config.Logger.Error("request failed", "path", r.URL.Path, "error", err)
	}
}

// decodeBody decodes a bounded JSON request body into dst.
func (rt *router) decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, rt.config.MaxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "request body must be valid JSON")
		return false
	}
	return true
}

func (rt *router) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *router) handleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if !rt.decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.ConversationID) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "conversation_id is required")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "message is required")
		return
	}

	reply, err := rt.chat.Send(r.Context(), req.ConversationID, req.Message)
	if err != nil {
		rt.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

func (rt *router) handleTokens(w http.ResponseWriter, r *http.Request) {
	stats, err := rt.chat.Stats(r.Context(), r.PathValue("conversation_id"))
	if err != nil {
		rt.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (rt *router) handleContext(w http.ResponseWriter, r *http.Request) {
	conversationID := r.PathValue("conversation_id")
	messages, err := rt.engine.Assemble(r.Context(), conversationID, r.URL.Query().Get("message"))
	if err != nil {
		rt.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ContextResponse{ConversationID: conversationID, Messages: messages})
}

func (rt *router) handleListFacts(w http.ResponseWriter, r *http.Request) {
	facts, err := rt.domain.Facts(r.Context(), r.PathValue("conversation_id"))
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "storage_unavailable", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, facts)
}

func (rt *router) handlePutFact(w http.ResponseWriter, r *http.Request) {
	var req FactRequest
	if !rt.decodeBody(w, r, &req) {
		return
	}

	conversationID, key := r.PathValue("conversation_id"), r.PathValue("key")
	if strings.TrimSpace(conversationID) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "conversation_id is required")
		return
	}

	if err := rt.domain.UpdateFact(r.Context(), conversationID, key, req.Value); err != nil {
		if errors.Is(err, domain.ErrEmptyKey) {
			writeError(w, http.StatusBadRequest, "bad_request", err.Error())
			return
		}
		rt.logError(r, err)
		writeError(w, http.StatusServiceUnavailable, "storage_unavailable", err.Error())
		return
	}

	facts, err := rt.domain.Facts(r.Context(), conversationID)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "storage_unavailable", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, facts)
}

func (rt *router) handleConsolidate(w http.ResponseWriter, r *http.Request) {
	res, err := rt.chat.Consolidate(r.Context(), r.PathValue("conversation_id"))
	if err != nil {
		rt.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
