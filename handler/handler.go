// Package handler exposes the portal's HTTP API to the browser and owns
// the UI-side bookkeeping: session lookup, input validation, appending
// user and assistant turns around each orchestrator call, and mapping
// usecase errors to HTTP statuses.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"

	"github.com/gorilla/mux"

	"rag-portal/internal/appconfig"
	"rag-portal/internal/domain"
	"rag-portal/internal/session"
	"rag-portal/internal/usecase"
)

// sessionHeader carries the browser's session id; a missing or unknown id
// starts a fresh session whose id is echoed back on every response.
const sessionHeader = "X-Session-Id"

// kendraSummaryText is the canned assistant turn recorded after a
// successful search-only query.
const kendraSummaryText = "以下の関連ドキュメントが見つかりました"

// displayLimit / displayCap: first 10 links are shown directly, the rest
// collapsed, at most 20 in total. Presentation only; the full list is
// still returned in links.
const (
	displayLimit = 10
	displayCap   = 20
)

var filenamePattern = regexp.MustCompile(`^[a-zA-Z0-9\s\-\.\(\)\[\]]+$`)

// ChatUseCase is the orchestrator surface the handler depends on.
type ChatUseCase interface {
	RagSearch(ctx context.Context, conv usecase.Conversation, question, modelID string, temperature float32, categoryKey string) (string, []domain.SignedDocumentLink, error)
	KendraSearch(ctx context.Context, query, categoryKey string) ([]domain.SignedDocumentLink, error)
	InvokeWithFile(ctx context.Context, conv usecase.Conversation, question string, file domain.UploadedFile) (string, error)
	InvokeWithoutFile(ctx context.Context, conv usecase.Conversation) (string, error)
}

// Handler serves the portal API.
type Handler struct {
	chat     ChatUseCase
	sessions *session.Store
	logger   *slog.Logger
}

// NewHandler creates a Handler.
func NewHandler(chat ChatUseCase, sessions *session.Store, logger *slog.Logger) (*Handler, error) {
	if chat == nil {
		return nil, errors.New("handler: chat usecase must not be nil")
	}
	if sessions == nil {
		return nil, errors.New("handler: session store must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{chat: chat, sessions: sessions, logger: logger}, nil
}

// Router builds the route table.
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", h.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/api/rag-search", h.handleRagSearch).Methods(http.MethodPost)
	r.HandleFunc("/api/kendra-search", h.handleKendraSearch).Methods(http.MethodPost)
	r.HandleFunc("/api/multimodal", h.handleMultiModal).Methods(http.MethodPost)
	r.HandleFunc("/api/history/{tab}", h.handleHistory).Methods(http.MethodGet)
	return r
}

type ragSearchRequest struct {
	Question       string `json:"question"`
	ModelKey       string `json:"modelKey"`
	TemperatureKey string `json:"temperatureKey"`
	CategoryKey    string `json:"categoryKey"`
}

type ragSearchResponse struct {
	Answer     string                      `json:"answer"`
	Links      []domain.SignedDocumentLink `json:"links"`
	References referencesView              `json:"references"`
	SessionID  string                      `json:"sessionId"`
}

type kendraSearchRequest struct {
	Query       string `json:"query"`
	CategoryKey string `json:"categoryKey"`
}

type kendraSearchResponse struct {
	Links      []domain.SignedDocumentLink `json:"links"`
	References referencesView              `json:"references"`
	SessionID  string                      `json:"sessionId"`
}

type chatResponse struct {
	Answer    string `json:"answer"`
	SessionID string `json:"sessionId"`
}

type historyResponse struct {
	Tab      domain.TabKey `json:"tab"`
	Messages []messageView `json:"messages"`
}

type messageView struct {
	Role domain.Role `json:"role"`
	Text string      `json:"text"`
}

// referencesView splits resolved links for display: the first block is
// shown directly, the remainder starts collapsed.
type referencesView struct {
	Visible   []domain.SignedDocumentLink `json:"visible"`
	Collapsed []domain.SignedDocumentLink `json:"collapsed"`
}

type errorResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleRagSearch(w http.ResponseWriter, r *http.Request) {
	var req ragSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, usecase.ErrorInvalidInput, "malformed_body")
		return
	}
	question := strings.TrimSpace(req.Question)
	if question == "" {
		writeError(w, http.StatusBadRequest, usecase.ErrorInvalidInput, "empty_question")
		return
	}
	modelID, ok := resolveModel(req.ModelKey)
	if !ok {
		writeError(w, http.StatusBadRequest, usecase.ErrorInvalidInput, "unknown_model")
		return
	}
	temperature, ok := resolveTemperature(req.TemperatureKey)
	if !ok {
		writeError(w, http.StatusBadRequest, usecase.ErrorInvalidInput, "unknown_temperature")
		return
	}
	categoryKey, ok := resolveCategory(req.CategoryKey)
	if !ok {
		writeError(w, http.StatusBadRequest, usecase.ErrorInvalidInput, "unknown_category")
		return
	}

	sess := h.session(w, r)
	tab := sess.Tab(domain.TabRagSearch)
	tab.AppendUserTurn(question)

	answer, links, err := h.chat.RagSearch(r.Context(), tab, question, modelID, temperature, categoryKey)
	if err != nil {
		h.writeUseCaseError(w, err)
		return
	}
	tab.AppendAssistantTurn(answer)

	writeJSON(w, http.StatusOK, ragSearchResponse{
		Answer:     answer,
		Links:      links,
		References: buildReferencesView(links),
		SessionID:  sess.ID,
	})
}

func (h *Handler) handleKendraSearch(w http.ResponseWriter, r *http.Request) {
	var req kendraSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, usecase.ErrorInvalidInput, "malformed_body")
		return
	}
	query := strings.TrimSpace(req.Query)
	if query == "" {
		writeError(w, http.StatusBadRequest, usecase.ErrorInvalidInput, "empty_query")
		return
	}
	categoryKey, ok := resolveCategory(req.CategoryKey)
	if !ok {
		writeError(w, http.StatusBadRequest, usecase.ErrorInvalidInput, "unknown_category")
		return
	}

	sess := h.session(w, r)
	tab := sess.Tab(domain.TabKendraSearch)
	tab.AppendUserTurn(query)

	links, err := h.chat.KendraSearch(r.Context(), query, categoryKey)
	if err != nil {
		h.writeUseCaseError(w, err)
		return
	}
	tab.AppendAssistantTurn(kendraSummaryText)

	writeJSON(w, http.StatusOK, kendraSearchResponse{
		Links:      links,
		References: buildReferencesView(links),
		SessionID:  sess.ID,
	})
}

func (h *Handler) handleMultiModal(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(appconfig.MaxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, usecase.ErrorInvalidInput, "malformed_form")
		return
	}
	question := strings.TrimSpace(r.FormValue("question"))

	sess := h.session(w, r)
	tab := sess.Tab(domain.TabMultiModal)

	file, header, err := r.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) {
		// Plain chat: the new user turn goes in before the call.
		if question == "" {
			writeError(w, http.StatusBadRequest, usecase.ErrorInvalidInput, "empty_question")
			return
		}
		tab.AppendUserTurn(question)
		answer, err := h.chat.InvokeWithoutFile(r.Context(), tab)
		if err != nil {
			h.writeUseCaseError(w, err)
			return
		}
		tab.AppendAssistantTurn(answer)
		writeJSON(w, http.StatusOK, chatResponse{Answer: answer, SessionID: sess.ID})
		return
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, usecase.ErrorInvalidInput, "malformed_file")
		return
	}
	defer func() { _ = file.Close() }()

	if !filenamePattern.MatchString(header.Filename) {
		writeError(w, http.StatusBadRequest, usecase.ErrorInvalidInput, "invalid_filename")
		return
	}
	if header.Size > appconfig.MaxUploadBytes {
		writeError(w, http.StatusBadRequest, usecase.ErrorInvalidInput, "file_too_large")
		return
	}
	data, err := io.ReadAll(io.LimitReader(file, appconfig.MaxUploadBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, usecase.ErrorInvalidInput, "malformed_file")
		return
	}
	if int64(len(data)) > appconfig.MaxUploadBytes {
		writeError(w, http.StatusBadRequest, usecase.ErrorInvalidInput, "file_too_large")
		return
	}

	upload := domain.UploadedFile{
		Name:      header.Filename,
		MediaType: header.Header.Get("Content-Type"),
		Size:      int64(len(data)),
		Data:      data,
	}

	if question != "" {
		tab.AppendUserTurn(question)
	}
	answer, err := h.chat.InvokeWithFile(r.Context(), tab, question, upload)
	if err != nil {
		h.writeUseCaseError(w, err)
		return
	}
	tab.AppendAssistantTurn(answer)
	writeJSON(w, http.StatusOK, chatResponse{Answer: answer, SessionID: sess.ID})
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	key := domain.TabKey(mux.Vars(r)["tab"])
	if !key.Valid() {
		writeError(w, http.StatusBadRequest, usecase.ErrorInvalidInput, "unknown_tab")
		return
	}
	sess := h.session(w, r)
	tab := sess.Tab(key)

	msgs := tab.Messages()
	views := make([]messageView, 0, len(msgs))
	for _, m := range msgs {
		views = append(views, messageView{Role: m.Role, Text: m.FirstText()})
	}
	writeJSON(w, http.StatusOK, historyResponse{Tab: key, Messages: views})
}

// session resolves the request's session and reflects its id back.
func (h *Handler) session(w http.ResponseWriter, r *http.Request) *session.Session {
	sess := h.sessions.Get(r.Header.Get(sessionHeader))
	w.Header().Set(sessionHeader, sess.ID)
	return sess
}

func (h *Handler) writeUseCaseError(w http.ResponseWriter, err error) {
	var ucErr *usecase.Error
	if !errors.As(err, &ucErr) {
		h.logger.Error("unexpected error", "err", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "")
		return
	}
	h.logger.Warn("request failed", "code", ucErr.Code, "reason", ucErr.Reason, "err", ucErr.Err)
	writeError(w, statusForCode(ucErr.Code), ucErr.Code, ucErr.Reason)
}

func statusForCode(code usecase.ErrorCode) int {
	switch code {
	case usecase.ErrorInvalidInput, usecase.ErrorUnsupportedFormat:
		return http.StatusBadRequest
	case usecase.ErrorEmptyConversation, usecase.ErrorNonAlternatingRoles:
		return http.StatusConflict
	case usecase.ErrorEmptyModelResponse, usecase.ErrorUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func resolveModel(key string) (string, bool) {
	if key == "" {
		key = appconfig.DefaultModelKey
	}
	id, ok := appconfig.ModelIDs[key]
	return id, ok
}

func resolveTemperature(key string) (float32, bool) {
	if key == "" {
		key = appconfig.DefaultTemperatureKey
	}
	v, ok := appconfig.TemperatureOptions[key]
	return v, ok
}

func resolveCategory(key string) (string, bool) {
	if key == "" {
		key = appconfig.CategoryAll
	}
	_, ok := appconfig.CategoryLabels[key]
	return key, ok
}

func buildReferencesView(links []domain.SignedDocumentLink) referencesView {
	capped := links
	if len(capped) > displayCap {
		capped = capped[:displayCap]
	}
	if len(capped) <= displayLimit {
		return referencesView{Visible: capped}
	}
	return referencesView{Visible: capped[:displayLimit], Collapsed: capped[displayLimit:]}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code usecase.ErrorCode, reason string) {
	writeJSON(w, status, errorResponse{Error: string(code), Reason: reason})
}
