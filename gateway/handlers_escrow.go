package gateway

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"deelit/native/bank"
	"deelit/native/escrow"
)

type paymentRecordResponse struct {
	Key        string `json:"key"`
	Payer      string `json:"payer"`
	Amount     string `json:"amount"`
	Asset      string `json:"asset,omitempty"`
	Vesting    int64  `json:"vesting"`
	Acceptance string `json:"acceptance"`
	Conflict   string `json:"conflict,omitempty"`
	Verdict    string `json:"verdict,omitempty"`
}

func paymentRecordView(record *escrow.PaymentRecord) paymentRecordResponse {
	resp := paymentRecordResponse{
		Key:     formatHash(record.Key),
		Payer:   formatAddress(record.Payer),
		Amount:  formatAmount(record.Amount),
		Vesting: record.Vesting,
	}
	if record.Asset != (bank.Asset{}) {
		resp.Asset = formatAddress(record.Asset)
	}
	switch record.Acceptance.Status {
	case escrow.AcceptanceSigned:
		resp.Acceptance = "signed:" + formatHash(record.Acceptance.Hash)
	case escrow.AcceptanceAuto:
		resp.Acceptance = "auto"
	default:
		resp.Acceptance = "none"
	}
	if record.Disputed() {
		resp.Conflict = formatHash(record.Conflict)
	}
	if record.Resolved() {
		resp.Verdict = formatHash(record.Verdict)
	}
	return resp
}

// parseTransaction decodes the envelope. A client-supplied offer hash is kept
// verbatim so the engine can reject a mispaired offer; when omitted the hash
// is derived from the configured signing domain.
func (s *Server) parseTransaction(payload transactionPayload) (*escrow.Transaction, error) {
	tx, err := payload.toTransaction()
	if err != nil {
		return nil, badRequest(err)
	}
	if payload.Payment.OfferHash == "" {
		offerHash, err := tx.Offer.SigningHash(s.escrow.Domain())
		if err != nil {
			return nil, badRequest(err)
		}
		tx.Payment.OfferHash = offerHash
	}
	return &tx, nil
}

func (s *Server) handleEscrowPay(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Caller      string             `json:"caller"`
		Transaction transactionPayload `json:"transaction"`
		Signature   string             `json:"signature"`
		Value       string             `json:"value,omitempty"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, badRequest(err))
		return
	}
	caller, err := parseAddress("caller", req.Caller)
	if err != nil {
		s.fail(w, r, badRequest(err))
		return
	}
	tx, err := s.parseTransaction(req.Transaction)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	sig, err := parseSignature(req.Signature)
	if err != nil {
		s.fail(w, r, badRequest(err))
		return
	}
	value, err := parseOptionalAmount("value", req.Value)
	if err != nil {
		s.fail(w, r, badRequest(err))
		return
	}
	record, err := s.escrow.Pay(caller, tx, sig, value)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusCreated, paymentRecordView(record))
}

func (s *Server) handleEscrowClaim(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Caller      string             `json:"caller"`
		Transaction transactionPayload `json:"transaction"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, badRequest(err))
		return
	}
	caller, err := parseAddress("caller", req.Caller)
	if err != nil {
		s.fail(w, r, badRequest(err))
		return
	}
	tx, err := s.parseTransaction(req.Transaction)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	record, err := s.escrow.Claim(caller, tx)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, paymentRecordView(record))
}

func (s *Server) handleEscrowClaimAccepted(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Caller      string             `json:"caller"`
		Transaction transactionPayload `json:"transaction"`
		From        string             `json:"acceptance_from"`
		Signature   string             `json:"signature"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, badRequest(err))
		return
	}
	caller, err := parseAddress("caller", req.Caller)
	if err != nil {
		s.fail(w, r, badRequest(err))
		return
	}
	tx, err := s.parseTransaction(req.Transaction)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	from, err := parseAddress("acceptance_from", req.From)
	if err != nil {
		s.fail(w, r, badRequest(err))
		return
	}
	sig, err := parseSignature(req.Signature)
	if err != nil {
		s.fail(w, r, badRequest(err))
		return
	}
	key, err := tx.Payment.SigningHash(s.escrow.Domain())
	if err != nil {
		s.fail(w, r, badRequest(err))
		return
	}
	acceptance := &escrow.Acceptance{From: from, PaymentHash: key}
	record, err := s.escrow.ClaimAccepted(caller, tx, acceptance, sig)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, paymentRecordView(record))
}

func (s *Server) handleEscrowConflict(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Caller      string             `json:"caller"`
		Transaction transactionPayload `json:"transaction"`
		From        string             `json:"conflict_from"`
		Signature   string             `json:"signature"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, badRequest(err))
		return
	}
	caller, err := parseAddress("caller", req.Caller)
	if err != nil {
		s.fail(w, r, badRequest(err))
		return
	}
	tx, err := s.parseTransaction(req.Transaction)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	from, err := parseAddress("conflict_from", req.From)
	if err != nil {
		s.fail(w, r, badRequest(err))
		return
	}
	sig, err := parseSignature(req.Signature)
	if err != nil {
		s.fail(w, r, badRequest(err))
		return
	}
	key, err := tx.Payment.SigningHash(s.escrow.Domain())
	if err != nil {
		s.fail(w, r, badRequest(err))
		return
	}
	conflict := &escrow.Conflict{From: from, PaymentHash: key}
	record, err := s.escrow.DeclareConflict(caller, tx, conflict, sig)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, paymentRecordView(record))
}

func (s *Server) handleEscrowResolve(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Caller      string             `json:"caller"`
		Transaction transactionPayload `json:"transaction"`
		From        string             `json:"verdict_from"`
		PayerBp     uint16             `json:"payer_bp"`
		PayeeBp     uint16             `json:"payee_bp"`
		Signature   string             `json:"signature"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, badRequest(err))
		return
	}
	caller, err := parseAddress("caller", req.Caller)
	if err != nil {
		s.fail(w, r, badRequest(err))
		return
	}
	tx, err := s.parseTransaction(req.Transaction)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	from, err := parseAddress("verdict_from", req.From)
	if err != nil {
		s.fail(w, r, badRequest(err))
		return
	}
	sig, err := parseSignature(req.Signature)
	if err != nil {
		s.fail(w, r, badRequest(err))
		return
	}
	key, err := tx.Payment.SigningHash(s.escrow.Domain())
	if err != nil {
		s.fail(w, r, badRequest(err))
		return
	}
	verdict := &escrow.Verdict{From: from, PaymentHash: key, PayerBp: req.PayerBp, PayeeBp: req.PayeeBp}
	record, err := s.escrow.Resolve(caller, tx, verdict, sig)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, paymentRecordView(record))
}

func (s *Server) handleEscrowPayment(w http.ResponseWriter, r *http.Request) {
	key, err := parseHash("hash", chi.URLParam(r, "hash"))
	if err != nil {
		s.fail(w, r, badRequest(err))
		return
	}
	record, err := s.escrow.Payment(key)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, paymentRecordView(record))
}
