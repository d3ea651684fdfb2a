package gateway

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"deelit/native/bank"
	"deelit/native/escrow"
	"deelit/native/lottery"
	"deelit/native/random"
	"deelit/native/signature"
	"deelit/storage"
)

// Server exposes the escrow and lottery engines over JSON/HTTP. Callers are
// identified by the caller field of each request; the gateway performs no
// transport-level authentication and relies on the engines' signature checks.
type Server struct {
	log     *slog.Logger
	escrow  *escrow.Engine
	lottery *lottery.Engine
	metrics *Metrics
}

func NewServer(log *slog.Logger, escrowEngine *escrow.Engine, lotteryEngine *lottery.Engine, metrics *Metrics) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{log: log, escrow: escrowEngine, lottery: lotteryEngine, metrics: metrics}
}

// Router builds the chi routing tree for the gateway.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		s.respond(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/v1/escrow", func(r chi.Router) {
		r.Method(http.MethodPost, "/pay", s.handler("escrow_pay", s.handleEscrowPay))
		r.Method(http.MethodPost, "/claim", s.handler("escrow_claim", s.handleEscrowClaim))
		r.Method(http.MethodPost, "/claim-accepted", s.handler("escrow_claim_accepted", s.handleEscrowClaimAccepted))
		r.Method(http.MethodPost, "/conflict", s.handler("escrow_conflict", s.handleEscrowConflict))
		r.Method(http.MethodPost, "/resolve", s.handler("escrow_resolve", s.handleEscrowResolve))
		r.Method(http.MethodGet, "/payments/{hash}", s.handler("escrow_payment", s.handleEscrowPayment))
	})

	r.Route("/v1/lottery", func(r chi.Router) {
		r.Method(http.MethodPost, "/create", s.handler("lottery_create", s.handleLotteryCreate))
		r.Method(http.MethodPost, "/participate", s.handler("lottery_participate", s.handleLotteryParticipate))
		r.Method(http.MethodPost, "/draw", s.handler("lottery_draw", s.handleLotteryDraw))
		r.Method(http.MethodPost, "/resolve-winner", s.handler("lottery_resolve_winner", s.handleLotteryResolveWinner))
		r.Method(http.MethodPost, "/pay", s.handler("lottery_pay", s.handleLotteryPay))
		r.Method(http.MethodPost, "/cancel", s.handler("lottery_cancel", s.handleLotteryCancel))
		r.Method(http.MethodPost, "/redeem", s.handler("lottery_redeem", s.handleLotteryRedeem))
		r.Method(http.MethodGet, "/lotteries/{hash}", s.handler("lottery_status", s.handleLotteryStatus))
	})

	return r
}

func (s *Server) handler(route string, fn http.HandlerFunc) http.Handler {
	if s.metrics == nil {
		return fn
	}
	return s.metrics.Instrument(route, fn)
}

func (s *Server) respond(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log.Error("gateway: encode response", "error", err)
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.log.Error("gateway: request failed", "path", r.URL.Path, "error", err)
	} else {
		s.log.Info("gateway: request rejected", "path", r.URL.Path, "status", status, "error", err)
	}
	s.respond(w, status, map[string]string{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case isNotFound(err):
		return http.StatusNotFound
	case isForbidden(err):
		return http.StatusForbidden
	case isStateConflict(err):
		return http.StatusConflict
	case isPaymentRequired(err):
		return http.StatusPaymentRequired
	case isBadRequest(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, escrow.ErrPaymentNotFound) ||
		errors.Is(err, lottery.ErrNotFound) ||
		errors.Is(err, lottery.ErrTicketNotFound) ||
		errors.Is(err, storage.ErrKeyNotFound)
}

func isForbidden(err error) bool {
	return errors.Is(err, signature.ErrInvalidSignature) ||
		errors.Is(err, escrow.ErrPaused) ||
		errors.Is(err, escrow.ErrInvalidAcceptanceIssuer) ||
		errors.Is(err, escrow.ErrInvalidConflictIssuer) ||
		errors.Is(err, escrow.ErrInvalidVerdictIssuer) ||
		errors.Is(err, lottery.ErrNotAdmin) ||
		errors.Is(err, lottery.ErrNotTicketOwner)
}

func isStateConflict(err error) bool {
	for _, target := range []error{
		escrow.ErrPaymentAlreadyInitiated,
		escrow.ErrPaymentAlreadyClaimed,
		escrow.ErrPaymentInConflict,
		escrow.ErrPaymentNotInConflict,
		escrow.ErrPaymentAlreadyResolved,
		escrow.ErrVestingNotReached,
		lottery.ErrAlreadyFilled,
		lottery.ErrNotFilled,
		lottery.ErrAlreadyDrawn,
		lottery.ErrNotDrawn,
		lottery.ErrAlreadyPaid,
		lottery.ErrCancelled,
		lottery.ErrNotCancelled,
		lottery.ErrWordPending,
		lottery.ErrWinnerResolved,
		lottery.ErrWinnerUnresolved,
		lottery.ErrAlreadyRedeemed,
		lottery.ErrUnknownRandomRef,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func isPaymentRequired(err error) bool {
	return errors.Is(err, bank.ErrInsufficientBalance) ||
		errors.Is(err, bank.ErrInsufficientAllowance) ||
		errors.Is(err, escrow.ErrInsufficientValue) ||
		errors.Is(err, lottery.ErrInsufficientValue) ||
		errors.Is(err, random.ErrInsufficientFee)
}

func isBadRequest(err error) bool {
	for _, target := range []error{
		escrow.ErrOfferMismatch,
		escrow.ErrOfferExpired,
		escrow.ErrPaymentExpired,
		escrow.ErrAcceptanceMismatch,
		escrow.ErrConflictMismatch,
		escrow.ErrVerdictMismatch,
		escrow.ErrInvalidVerdictSum,
		escrow.ErrInvalidDestination,
		lottery.ErrInvalidTicketCount,
		lottery.ErrInvalidTicketPrice,
		lottery.ErrInvalidFee,
		lottery.ErrOfferNotWinner,
		lottery.ErrOfferProductMismatch,
		lottery.ErrOfferAssetMismatch,
		lottery.ErrOfferPriceMismatch,
		lottery.ErrOfferShipmentNotZero,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return isDecodeError(err)
}

type decodeError struct{ err error }

func (e decodeError) Error() string { return e.err.Error() }
func (e decodeError) Unwrap() error { return e.err }

func badRequest(err error) error { return decodeError{err: err} }

func isDecodeError(err error) bool {
	var de decodeError
	return errors.As(err, &de)
}
