package cmd

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/goccy/go-json"
	"github.com/viant/authbridge"
	"github.com/viant/authbridge/background"
)

const maxRequestBody = 1 << 20

// requester issues authorization requests; *background.Coordinator implements it.
type requester interface {
	Request(ctx context.Context, data authbridge.Data, app authbridge.AppContext) (*authbridge.Result, error)
	Pending() int
}

type requestHandler struct {
	requester requester
	logger    *slog.Logger
}

type errorResponse struct {
	Error   string          `json:"error"`
	Outcome string          `json:"outcome"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (h *requestHandler) request(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
	if err != nil {
		h.write(w, http.StatusBadRequest, errorResponse{Error: err.Error(), Outcome: "invalid"})
		return
	}
	request := &authbridge.Request{}
	if err = json.Unmarshal(body, request); err != nil {
		h.write(w, http.StatusBadRequest, errorResponse{Error: err.Error(), Outcome: "invalid"})
		return
	}
	result, err := h.requester.Request(r.Context(), request.Data, authbridge.AppContext{URL: request.URL, TabID: request.TabID})
	if err != nil {
		response := errorResponse{Error: err.Error(), Outcome: background.Outcome(err)}
		var resultErr *authbridge.ResultError
		if errors.As(err, &resultErr) {
			response.Data = resultErr.Data
		}
		h.write(w, statusCode(err), response)
		return
	}
	h.write(w, http.StatusOK, result)
}

func (h *requestHandler) pending(w http.ResponseWriter, _ *http.Request) {
	h.write(w, http.StatusOK, map[string]int{"pending": h.requester.Pending()})
}

func (h *requestHandler) health(w http.ResponseWriter, _ *http.Request) {
	h.write(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *requestHandler) write(w http.ResponseWriter, status int, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("failed to encode response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err = w.Write(data); err != nil {
		h.logger.Debug("failed to write response", "error", err)
	}
}

func statusCode(err error) int {
	switch {
	case errors.Is(err, authbridge.ErrInvalidMessage), errors.Is(err, authbridge.ErrUnknownAuthType):
		return http.StatusBadRequest
	case errors.Is(err, authbridge.ErrAborted):
		return http.StatusGone
	case errors.Is(err, authbridge.ErrRejected):
		return http.StatusForbidden
	case errors.Is(err, authbridge.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return 499
	}
	return http.StatusBadGateway
}

func newRequestHandler(requester requester, logger *slog.Logger) *requestHandler {
	return &requestHandler{requester: requester, logger: logger}
}
