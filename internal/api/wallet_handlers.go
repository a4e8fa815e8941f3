package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hackgods/doctor-booking/internal/wallet"
)

// depositURLBuilder is the slice of the gateway client the deposit
// handler needs.
type depositURLBuilder interface {
	DepositURL(amount decimal.Decimal, orderInfo, txnRef string) (string, error)
}

func getWalletHandler(svc *wallet.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patientID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "id must be a valid UUID")
			return
		}

		wl, err := svc.Wallet(r.Context(), patientID)
		if err != nil {
			handleWalletError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, WalletResponse{
			PatientID:     wl.PatientID,
			Balance:       wl.Balance,
			LoyaltyPoints: wl.LoyaltyPoints,
			LoyaltyTier:   wl.LoyaltyTier,
		})
	}
}

func listTransactionsHandler(svc *wallet.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patientID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "id must be a valid UUID")
			return
		}

		limit, offset := pagination(r)

		transactions, err := svc.Transactions(r.Context(), patientID, limit, offset)
		if err != nil {
			handleWalletError(w, err)
			return
		}

		resp := make([]TransactionResponse, 0, len(transactions))
		for i := range transactions {
			resp = append(resp, toTransactionResponse(&transactions[i]))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func depositHandler(svc *wallet.Service, gateway depositURLBuilder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patientID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "id must be a valid UUID")
			return
		}

		var req DepositRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		t, err := svc.InitiateDeposit(r.Context(), patientID, req.Amount, "VNPAY")
		if err != nil {
			handleWalletError(w, err)
			return
		}

		payURL, err := gateway.DepositURL(t.Amount, "Wallet top-up", t.ReferenceID)
		if err != nil {
			// The pending entry stays; the worker-facing FAILED path is not
			// relevant because no money moved yet.
			writeError(w, http.StatusInternalServerError, "gateway_error", err.Error())
			return
		}

		writeJSON(w, http.StatusCreated, DepositResponse{
			Transaction: toTransactionResponse(t),
			PaymentURL:  payURL,
		})
	}
}

func handleWalletError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, wallet.ErrPatientNotFound):
		writeError(w, http.StatusNotFound, "patient_not_found", err.Error())
	case errors.Is(err, wallet.ErrTransactionNotFound):
		writeError(w, http.StatusNotFound, "transaction_not_found", err.Error())
	case errors.Is(err, wallet.ErrInvalidAmount):
		writeError(w, http.StatusBadRequest, "invalid_amount", err.Error())
	case errors.Is(err, wallet.ErrInsufficientFunds):
		writeError(w, http.StatusPaymentRequired, "insufficient_funds", err.Error())
	case errors.Is(err, wallet.ErrInvalidTransactionState):
		writeError(w, http.StatusConflict, "invalid_transaction_state", err.Error())
	case errors.Is(err, wallet.ErrDuplicateReference):
		writeError(w, http.StatusConflict, "duplicate_reference", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
