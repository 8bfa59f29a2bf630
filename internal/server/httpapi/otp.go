package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"
)

type otpSendRequest struct {
	Contact string `json:"contact" validate:"required,notblank,max=254"`
	Purpose string `json:"purpose" validate:"required"`
}

type otpVerifyRequest struct {
	Contact string `json:"contact" validate:"required,notblank,max=254"`
	Purpose string `json:"purpose" validate:"required"`
	Code    string `json:"code" validate:"required,max=16"`
}

type downloadRequestBody struct {
	Email string `json:"email" validate:"required,email,max=254"`
	Name  string `json:"name" validate:"max=200"`
}

type downloadCompleteBody struct {
	OTPID string `json:"otp_id" validate:"required,uuid"`
	Code  string `json:"code" validate:"required,max=16"`
}

type resetRequestBody struct {
	Email string `json:"email" validate:"required,email,max=254"`
}

type resetConfirmBody struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Code     string `json:"code" validate:"required,max=16"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

// resetAccepted is the one answer to every well-formed reset request.
const resetAccepted = "if the address belongs to an account, a code is on its way"

func (h *handler) otpSend(w http.ResponseWriter, r *http.Request) {
	var req otpSendRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	id, err := h.OTP.Send(r.Context(), req.Contact, req.Purpose)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"id": id})
}

func (h *handler) otpVerify(w http.ResponseWriter, r *http.Request) {
	var req otpVerifyRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.OTP.Check(r.Context(), req.Contact, req.Purpose, req.Code); err != nil {
		h.writeCodeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"verified": true})
}

func (h *handler) downloadRequest(w http.ResponseWriter, r *http.Request) {
	var req downloadRequestBody
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	id, err := h.Downloads.Request(r.Context(), mux.Vars(r)["id"], req.Email, req.Name)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"otp_id": id})
}

func (h *handler) downloadComplete(w http.ResponseWriter, r *http.Request) {
	var req downloadCompleteBody
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	link, err := h.Downloads.Complete(r.Context(), mux.Vars(r)["id"], req.OTPID, req.Code)
	if err != nil {
		h.writeCodeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": link})
}

func (h *handler) resetRequest(w http.ResponseWriter, r *http.Request) {
	var req resetRequestBody
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.Reset.Request(r.Context(), req.Email); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"message": resetAccepted})
}

func (h *handler) resetConfirm(w http.ResponseWriter, r *http.Request) {
	var req resetConfirmBody
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.Reset.Confirm(r.Context(), req.Email, req.Code, req.Password); err != nil {
		h.writeCodeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
