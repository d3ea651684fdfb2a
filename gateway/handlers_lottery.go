package gateway

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"deelit/native/lottery"
)

type lotteryRecordResponse struct {
	Key          string `json:"key"`
	Status       string `json:"status"`
	TicketsSold  uint64 `json:"tickets_sold"`
	Winner       string `json:"winner,omitempty"`
	WinnerTicket uint64 `json:"winner_ticket,omitempty"`
	RandomRef    string `json:"random_ref,omitempty"`
	Word         string `json:"word,omitempty"`
}

func lotteryRecordView(record *lottery.Record) lotteryRecordResponse {
	resp := lotteryRecordResponse{
		Key:         formatHash(record.Key),
		Status:      record.Status.String(),
		TicketsSold: record.TicketsSold,
		RandomRef:   record.RandomRef,
	}
	if record.WinnerResolved() {
		resp.Winner = formatAddress(record.Winner)
		resp.WinnerTicket = record.WinnerTicket
	}
	if record.WordDelivered && record.Word != nil {
		resp.Word = record.Word.Dec()
	}
	return resp
}

type ticketResponse struct {
	LotteryKey string `json:"lottery_key"`
	Number     uint64 `json:"number"`
	Owner      string `json:"owner"`
	Redeemed   bool   `json:"redeemed"`
}

func ticketView(t *lottery.Ticket) ticketResponse {
	return ticketResponse{
		LotteryKey: formatHash(t.LotteryKey),
		Number:     t.Number,
		Owner:      formatAddress(t.Owner),
		Redeemed:   t.Redeemed,
	}
}

func (s *Server) handleLotteryCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Lottery lotteryPayload `json:"lottery"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, badRequest(err))
		return
	}
	lot, err := req.Lottery.toLottery()
	if err != nil {
		s.fail(w, r, badRequest(err))
		return
	}
	key, err := s.lottery.Create(&lot)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusCreated, map[string]string{"key": formatHash(key)})
}

func (s *Server) handleLotteryParticipate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Caller  string         `json:"caller"`
		Lottery lotteryPayload `json:"lottery"`
		Value   string         `json:"value,omitempty"`
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
	lot, err := req.Lottery.toLottery()
	if err != nil {
		s.fail(w, r, badRequest(err))
		return
	}
	value, err := parseOptionalAmount("value", req.Value)
	if err != nil {
		s.fail(w, r, badRequest(err))
		return
	}
	ticket, err := s.lottery.Participate(caller, &lot, value)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusCreated, ticketView(ticket))
}

func (s *Server) handleLotteryDraw(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Caller    string         `json:"caller"`
		Lottery   lotteryPayload `json:"lottery"`
		RandomFee string         `json:"random_fee,omitempty"`
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
	lot, err := req.Lottery.toLottery()
	if err != nil {
		s.fail(w, r, badRequest(err))
		return
	}
	randomFee, err := parseOptionalAmount("random_fee", req.RandomFee)
	if err != nil {
		s.fail(w, r, badRequest(err))
		return
	}
	record, err := s.lottery.Draw(caller, &lot, randomFee)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, lotteryRecordView(record))
}

func (s *Server) handleLotteryResolveWinner(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Lottery lotteryPayload `json:"lottery"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, badRequest(err))
		return
	}
	lot, err := req.Lottery.toLottery()
	if err != nil {
		s.fail(w, r, badRequest(err))
		return
	}
	record, err := s.lottery.ResolveWinner(&lot)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, lotteryRecordView(record))
}

func (s *Server) handleLotteryPay(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Lottery     lotteryPayload     `json:"lottery"`
		Transaction transactionPayload `json:"transaction"`
		Signature   string             `json:"signature"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, badRequest(err))
		return
	}
	lot, err := req.Lottery.toLottery()
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
	record, err := s.lottery.Pay(&lot, tx, sig)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, lotteryRecordView(record))
}

func (s *Server) handleLotteryCancel(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Caller  string         `json:"caller"`
		Lottery lotteryPayload `json:"lottery"`
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
	lot, err := req.Lottery.toLottery()
	if err != nil {
		s.fail(w, r, badRequest(err))
		return
	}
	record, err := s.lottery.Cancel(caller, &lot)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, lotteryRecordView(record))
}

func (s *Server) handleLotteryRedeem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Caller  string         `json:"caller"`
		Lottery lotteryPayload `json:"lottery"`
		Ticket  uint64         `json:"ticket"`
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
	lot, err := req.Lottery.toLottery()
	if err != nil {
		s.fail(w, r, badRequest(err))
		return
	}
	ticket, err := s.lottery.Redeem(caller, &lot, req.Ticket)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, ticketView(ticket))
}

func (s *Server) handleLotteryStatus(w http.ResponseWriter, r *http.Request) {
	key, err := parseHash("hash", chi.URLParam(r, "hash"))
	if err != nil {
		s.fail(w, r, badRequest(err))
		return
	}
	record, err := s.lottery.Status(key)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, lotteryRecordView(record))
}
