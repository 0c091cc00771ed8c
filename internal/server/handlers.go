package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/vanshika/fintrace/txindex/internal/domain"
	"github.com/vanshika/fintrace/txindex/internal/index"
	"github.com/vanshika/fintrace/txindex/internal/ingest"
	"github.com/vanshika/fintrace/txindex/internal/service"
)

// APIHandlers exposes HTTP handlers for the REST API.
type APIHandlers struct {
	logger  *slog.Logger
	service *service.LedgerService
}

// NewAPIHandlers constructs an APIHandlers instance.
func NewAPIHandlers(logger *slog.Logger, svc *service.LedgerService) *APIHandlers {
	return &APIHandlers{
		logger:  logger,
		service: svc,
	}
}

func (h *APIHandlers) handleTransactions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.insertTransaction(w, r)
	case http.MethodGet:
		h.listTransactions(w, r)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

func (h *APIHandlers) handleTransaction(w http.ResponseWriter, r *http.Request) {
	id := service.CanonicalID(strings.Trim(strings.TrimPrefix(r.URL.Path, "/transactions/"), "/"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "transaction ID is required")
		return
	}

	switch r.Method {
	case http.MethodGet:
		tx, ok := h.service.Get(id)
		if !ok {
			writeError(w, http.StatusNotFound, "transaction not found")
			return
		}
		respondJSON(w, http.StatusOK, toTransactionResponse(tx))
	case http.MethodDelete:
		respondJSON(w, http.StatusOK, deleteResponse{
			TransactionID: id,
			Deleted:       h.service.Delete(id),
		})
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodDelete)
	}
}

func (h *APIHandlers) insertTransaction(w http.ResponseWriter, r *http.Request) {
	var payload transactionRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	outcome, err := h.service.Insert(payload.toServiceInput())
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, index.ErrCapacityExceeded):
		writeError(w, http.StatusInsufficientStorage, "index is full")
		return
	case err != nil:
		h.logger.Error("failed to insert transaction", "error", err, "transactionId", payload.TransactionID)
		writeError(w, http.StatusInternalServerError, "failed to insert transaction")
		return
	}

	status := http.StatusCreated
	if outcome == index.AlreadyPresent {
		status = http.StatusOK
	}
	respondJSON(w, status, statusResponse{
		Status: outcome.String(),
		ID:     service.CanonicalID(payload.TransactionID),
	})
}

// listTransactions pages through the index, or through a filtered view when
// any filter or sort parameter is present.
func (h *APIHandlers) listTransactions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	page := parseInt(query.Get("page"), 1)
	pageSize := parseInt(query.Get("pageSize"), 50)

	params := service.FilterParams{
		Page:     page,
		PageSize: pageSize,
		Field:    query.Get("field"),
		Value:    query.Get("value"),
		Sort:     query.Get("sort"),
	}
	if v := query.Get("minAmount"); v != "" {
		val, err := strconv.ParseFloat(v, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid minAmount")
			return
		}
		params.MinAmount = &val
	}
	if v := query.Get("maxAmount"); v != "" {
		val, err := strconv.ParseFloat(v, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid maxAmount")
			return
		}
		params.MaxAmount = &val
	}
	if params.Field == "" && params.Value != "" {
		writeError(w, http.StatusBadRequest, "value requires field")
		return
	}

	var (
		result service.TransactionsPage
		err    error
	)
	if params.MinAmount == nil && params.MaxAmount == nil && params.Field == "" && params.Sort == "" {
		result, err = h.service.List(r.Context(), service.ListParams{Page: page, PageSize: pageSize})
	} else {
		result, err = h.service.Filter(r.Context(), params)
	}
	if errors.Is(err, service.ErrInvalidInput) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		h.logger.Error("failed to list transactions", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list transactions")
		return
	}

	resp := listTransactionsResponse{
		Items: make([]transactionResponse, 0, len(result.Items)),
		Pagination: paginationResponse{
			Page:       result.Pagination.Page,
			PageSize:   result.Pagination.PageSize,
			TotalItems: result.Pagination.TotalItems,
			TotalPages: result.Pagination.TotalPages,
		},
	}
	for _, tx := range result.Items {
		resp.Items = append(resp.Items, toTransactionResponse(tx))
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *APIHandlers) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	summary, ok, err := h.service.Statistics(r.Context())
	if err != nil {
		h.logger.Error("failed to compute statistics", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to compute statistics")
		return
	}
	if !ok {
		respondJSON(w, http.StatusOK, map[string]bool{"empty": true})
		return
	}

	resp := statsResponse{
		Count:     summary.Count,
		Sum:       summary.Sum,
		Mean:      summary.Mean,
		StdDev:    summary.StdDev,
		Min:       summary.Min,
		Max:       summary.Max,
		Median:    summary.Median,
		Mode:      summary.Mode,
		ModeCount: summary.ModeCount,
	}
	if summary.FraudLabeled {
		resp.FraudCount = &summary.FraudCount
		resp.FraudPercent = &summary.FraudPercent
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *APIHandlers) handleGroups(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	field := r.URL.Query().Get("field")
	if field == "" {
		writeError(w, http.StatusBadRequest, "field is required")
		return
	}

	groups, err := h.service.Groups(r.Context(), field)
	if err != nil {
		h.logger.Error("failed to group transactions", "error", err, "field", field)
		writeError(w, http.StatusInternalServerError, "failed to group transactions")
		return
	}

	resp := groupsResponse{
		Field:  domain.ParseField(field).String(),
		Groups: make([]groupResponse, 0, len(groups)),
	}
	for _, g := range groups {
		resp.Groups = append(resp.Groups, groupResponse{Key: g.Key, Count: g.Count, Sum: g.Sum, Mean: g.Mean})
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *APIHandlers) handleSuspected(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	flagged, err := h.service.SuspectedFraud(r.Context())
	if err != nil {
		h.logger.Error("failed to scan for suspected fraud", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to scan transactions")
		return
	}
	items := make([]transactionResponse, 0, len(flagged))
	for _, tx := range flagged {
		items = append(items, toTransactionResponse(tx))
	}
	respondJSON(w, http.StatusOK, map[string]any{"items": items})
}

// handleExportTransactions streams the whole index in ID order, as CSV when
// format=csv and as JSON otherwise.
func (h *APIHandlers) handleExportTransactions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	if strings.EqualFold(r.URL.Query().Get("format"), "csv") {
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="transactions.csv"`)
		enc := ingest.NewEncoder(w)
		for tx := range h.service.All() {
			if err := enc.Encode(tx); err != nil {
				h.logger.Warn("csv export aborted", "error", err)
				return
			}
		}
		if err := enc.Flush(); err != nil {
			h.logger.Warn("csv export aborted", "error", err)
		}
		return
	}

	items := []transactionResponse{}
	for tx := range h.service.All() {
		items = append(items, toTransactionResponse(tx))
	}
	respondJSON(w, http.StatusOK, map[string]any{"items": items})
}

type transactionRequest struct {
	TransactionID    string  `json:"transactionId"`
	Timestamp        string  `json:"timestamp"`
	SenderAccount    string  `json:"senderAccount"`
	ReceiverAccount  string  `json:"receiverAccount"`
	Amount           float64 `json:"amount"`
	TransactionType  string  `json:"transactionType"`
	MerchantCategory string  `json:"merchantCategory"`
	Location         string  `json:"location"`
	DeviceUsed       string  `json:"deviceUsed"`
	IsFraud          *bool   `json:"isFraud"`
}

type transactionResponse struct {
	TransactionID    string  `json:"transactionId"`
	Timestamp        string  `json:"timestamp"`
	SenderAccount    string  `json:"senderAccount"`
	ReceiverAccount  string  `json:"receiverAccount"`
	Amount           float64 `json:"amount"`
	TransactionType  string  `json:"transactionType"`
	MerchantCategory string  `json:"merchantCategory"`
	Location         string  `json:"location"`
	DeviceUsed       string  `json:"deviceUsed"`
	IsFraud          *bool   `json:"isFraud,omitempty"`
	SuspectedFraud   bool    `json:"suspectedFraud"`
}

type statusResponse struct {
	Status string `json:"status"`
	ID     string `json:"transactionId"`
}

type deleteResponse struct {
	TransactionID string `json:"transactionId"`
	Deleted       bool   `json:"deleted"`
}

type paginationResponse struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"pageSize"`
	TotalItems int64 `json:"totalItems"`
	TotalPages int   `json:"totalPages"`
}

type listTransactionsResponse struct {
	Items      []transactionResponse `json:"items"`
	Pagination paginationResponse    `json:"pagination"`
}

type statsResponse struct {
	Count        int      `json:"count"`
	Sum          float64  `json:"sum"`
	Mean         float64  `json:"mean"`
	StdDev       float64  `json:"stdDev"`
	Min          float64  `json:"min"`
	Max          float64  `json:"max"`
	Median       float64  `json:"median"`
	Mode         float64  `json:"mode"`
	ModeCount    int      `json:"modeCount"`
	FraudCount   *int     `json:"fraudCount,omitempty"`
	FraudPercent *float64 `json:"fraudPercent,omitempty"`
}

type groupResponse struct {
	Key   string  `json:"key"`
	Count uint64  `json:"count"`
	Sum   float64 `json:"sum"`
	Mean  float64 `json:"mean"`
}

type groupsResponse struct {
	Field  string          `json:"field"`
	Groups []groupResponse `json:"groups"`
}

func (req transactionRequest) toServiceInput() service.TransactionInput {
	return service.TransactionInput{
		ID:               req.TransactionID,
		Timestamp:        req.Timestamp,
		SenderAccount:    req.SenderAccount,
		ReceiverAccount:  req.ReceiverAccount,
		Amount:           req.Amount,
		Type:             req.TransactionType,
		MerchantCategory: req.MerchantCategory,
		Location:         req.Location,
		DeviceUsed:       req.DeviceUsed,
		IsFraud:          req.IsFraud,
	}
}

func toTransactionResponse(tx domain.Transaction) transactionResponse {
	resp := transactionResponse{
		TransactionID:    tx.ID,
		Timestamp:        tx.Timestamp,
		SenderAccount:    tx.SenderAccount,
		ReceiverAccount:  tx.ReceiverAccount,
		Amount:           tx.Amount,
		TransactionType:  tx.Type,
		MerchantCategory: tx.MerchantCategory,
		Location:         tx.Location,
		DeviceUsed:       tx.DeviceUsed,
		SuspectedFraud:   tx.SuspectedFraud(),
	}
	if tx.FraudLabeled {
		fraud := tx.IsFraud
		resp.IsFraud = &fraud
	}
	return resp
}

func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return errors.New("request body is required")
	}
	defer r.Body.Close()

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return err
	}
	return nil
}

func parseInt(value string, fallback int) int {
	if value == "" {
		return fallback
	}
	if v, err := strconv.Atoi(value); err == nil {
		return v
	}
	return fallback
}

func writeError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{
		"error": msg,
	})
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}
