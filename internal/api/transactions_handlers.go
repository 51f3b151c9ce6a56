package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/consultorio/backend/internal/cache"
	"github.com/consultorio/backend/internal/finance"
	"github.com/consultorio/backend/internal/money"
	"github.com/consultorio/backend/internal/repo"
	"github.com/google/uuid"
)

// financeTTL vale para resumo e relatório; escritas invalidam antes disso.
const financeTTL = 5 * time.Minute

type TransactionRequest struct {
	PatientID     *string      `json:"patient_id"`
	Description   *string      `json:"description"`
	Category      *string      `json:"category"`
	Amount        *money.Cents `json:"amount"`
	Type          *string      `json:"type"`
	Status        *string      `json:"status"`
	Date          *string      `json:"date"`
	PaymentMethod *string      `json:"payment_method"`
}

func (req *TransactionRequest) apply(in *repo.TransactionInput) string {
	if req.PatientID != nil {
		if s := strings.TrimSpace(*req.PatientID); s == "" {
			in.PatientID = nil
		} else {
			id, err := uuid.Parse(s)
			if err != nil {
				return "invalid patient_id"
			}
			in.PatientID = &id
		}
	}
	if req.Description != nil {
		in.Description = strings.TrimSpace(*req.Description)
	}
	if in.Description == "" {
		return "description required"
	}
	if req.Category != nil {
		in.Category = strings.TrimSpace(*req.Category)
	}
	if req.Amount != nil {
		in.AmountCents = *req.Amount
	}
	if in.AmountCents <= 0 {
		return "amount must be greater than zero"
	}
	if req.Type != nil {
		in.Type = *req.Type
	}
	if !oneOf(in.Type, repo.TxIncome, repo.TxExpense) {
		return "invalid type"
	}
	if req.Status != nil {
		in.Status = *req.Status
	}
	if !oneOf(in.Status, repo.TxConfirmado, repo.TxPendente) {
		return "invalid status"
	}
	if req.Date != nil {
		in.Date = strings.TrimSpace(*req.Date)
	}
	if ValidateDate(in.Date) != nil {
		return "invalid date"
	}
	if req.PaymentMethod != nil {
		in.PaymentMethod = optString(req.PaymentMethod)
	}
	return ""
}

func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	tid, ok := therapistID(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	f := repo.TransactionFilter{Type: q.Get("type"), Status: q.Get("status")}
	if f.Type != "" && !oneOf(f.Type, repo.TxIncome, repo.TxExpense) {
		http.Error(w, `{"error":"invalid type"}`, http.StatusBadRequest)
		return
	}
	if f.Status != "" && !oneOf(f.Status, repo.TxConfirmado, repo.TxPendente) {
		http.Error(w, `{"error":"invalid status"}`, http.StatusBadRequest)
		return
	}
	if m := q.Get("month"); m != "" {
		from, to, err := finance.MonthRange(m)
		if err != nil {
			http.Error(w, `{"error":"invalid month"}`, http.StatusBadRequest)
			return
		}
		f.From, f.To = from, to
	}
	if p := q.Get("patient_id"); p != "" {
		id, err := uuid.Parse(p)
		if err != nil {
			http.Error(w, `{"error":"invalid patient_id"}`, http.StatusBadRequest)
			return
		}
		f.PatientID = &id
	}
	list, err := repo.ListTransactions(r.Context(), h.DB, tid, f)
	if err != nil {
		h.serverError(w, r, err, "list_transactions")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	tid, ok := therapistID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	t, err := repo.TransactionByID(r.Context(), h.DB, tid, id)
	if err != nil {
		h.repoError(w, r, err, "get_transaction")
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *Handler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	tid, ok := therapistID(w, r)
	if !ok {
		return
	}
	var req TransactionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	in := repo.TransactionInput{Type: repo.TxIncome, Status: repo.TxPendente, Category: repo.CategorySession, Date: h.today()}
	if msg := req.apply(&in); msg != "" {
		jsonError(w, msg, http.StatusBadRequest)
		return
	}
	id, err := repo.CreateTransaction(r.Context(), h.DB, tid, in)
	if err != nil {
		h.repoError(w, r, err, "create_transaction")
		return
	}
	h.invalidate(r.Context(), tid)
	t, err := repo.TransactionByID(r.Context(), h.DB, tid, id)
	if err != nil {
		h.repoError(w, r, err, "create_transaction")
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (h *Handler) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	tid, ok := therapistID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req TransactionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	cur, err := repo.TransactionByID(r.Context(), h.DB, tid, id)
	if err != nil {
		h.repoError(w, r, err, "update_transaction")
		return
	}
	in := repo.InputFromTransaction(cur)
	if msg := req.apply(&in); msg != "" {
		jsonError(w, msg, http.StatusBadRequest)
		return
	}
	if err := repo.UpdateTransaction(r.Context(), h.DB, tid, id, in); err != nil {
		h.repoError(w, r, err, "update_transaction")
		return
	}
	h.invalidate(r.Context(), tid)
	t, err := repo.TransactionByID(r.Context(), h.DB, tid, id)
	if err != nil {
		h.repoError(w, r, err, "update_transaction")
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *Handler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	tid, ok := therapistID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := repo.DeleteTransaction(r.Context(), h.DB, tid, id); err != nil {
		h.repoError(w, r, err, "delete_transaction")
		return
	}
	h.invalidate(r.Context(), tid)
	w.WriteHeader(http.StatusNoContent)
}

// cachedJSON serve key do cache; na falta, calcula com build e guarda o JSON.
func (h *Handler) cachedJSON(w http.ResponseWriter, r *http.Request, key string, build func() (interface{}, error), action string) {
	if h.Cache != nil {
		if b, ok := h.Cache.Get(r.Context(), key); ok {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("X-Cache", "HIT")
			_, _ = w.Write(b)
			return
		}
	}
	v, err := build()
	if err != nil {
		h.serverError(w, r, err, action)
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		h.serverError(w, r, err, action)
		return
	}
	if h.Cache != nil {
		h.Cache.Set(r.Context(), key, b, financeTTL)
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(b)
}

// FinancialSummary: month=YYYY-MM, padrão mês corrente.
func (h *Handler) FinancialSummary(w http.ResponseWriter, r *http.Request) {
	tid, ok := therapistID(w, r)
	if !ok {
		return
	}
	month := r.URL.Query().Get("month")
	if month == "" {
		month = h.localNow().Format("2006-01")
	}
	from, to, err := finance.MonthRange(month)
	if err != nil {
		http.Error(w, `{"error":"invalid month"}`, http.StatusBadRequest)
		return
	}
	h.cachedJSON(w, r, cache.Key(tid.String(), "finance", "summary", month), func() (interface{}, error) {
		txs, err := repo.ListTransactions(r.Context(), h.DB, tid, repo.TransactionFilter{From: from, To: to})
		if err != nil {
			return nil, err
		}
		return finance.MonthlySummary(month, txs), nil
	}, "financial_summary")
}

// FinancialReport: year=YYYY, padrão ano corrente.
func (h *Handler) FinancialReport(w http.ResponseWriter, r *http.Request) {
	tid, ok := therapistID(w, r)
	if !ok {
		return
	}
	now := h.localNow()
	year := now.Year()
	if v := r.URL.Query().Get("year"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			http.Error(w, `{"error":"invalid year"}`, http.StatusBadRequest)
			return
		}
		year = n
	}
	from, to, err := finance.YearRange(year)
	if err != nil {
		http.Error(w, `{"error":"invalid year"}`, http.StatusBadRequest)
		return
	}
	// o mês de referência do crescimento muda com o dia; entra na chave
	key := cache.Key(tid.String(), "finance", "report", strconv.Itoa(year), now.Format("2006-01"))
	h.cachedJSON(w, r, key, func() (interface{}, error) {
		txs, err := repo.ListTransactions(r.Context(), h.DB, tid, repo.TransactionFilter{From: from, To: to})
		if err != nil {
			return nil, err
		}
		return finance.BuildAnnualReport(year, txs, now), nil
	}, "financial_report")
}
