package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"deelit/config"
	"deelit/core/events"
	"deelit/core/state"
	"deelit/gateway"
	"deelit/native/access"
	"deelit/native/bank"
	"deelit/native/escrow"
	"deelit/native/fees"
	"deelit/native/lottery"
	"deelit/native/random"
	"deelit/native/signature"
	"deelit/native/typeddata"
	"deelit/observability/logging"
	"deelit/storage"
)

// logEmitter forwards engine events to the structured log so operators can
// follow payment and lottery lifecycles without a dedicated subscriber.
type logEmitter struct {
	log *slog.Logger
}

func (e logEmitter) Emit(event events.Event) {
	e.log.Info("event", "type", event.EventType())
}

func main() {
	var configPath string
	var listen string
	flag.StringVar(&configPath, "config", "./config.toml", "path to the daemon configuration")
	flag.StringVar(&listen, "listen", "", "override the configured listen address")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if listen != "" {
		cfg.ListenAddress = listen
	}

	logger := logging.Setup("deelitd", cfg.Env)

	if err := run(cfg, logger); err != nil {
		logger.Error("daemon exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	db, err := storage.NewLevelDB(filepath.Join(cfg.DataDir, "state"))
	if err != nil {
		return fmt.Errorf("open state database: %w", err)
	}
	defer db.Close()

	manager := state.NewManager(db)
	ledger := bank.NewLedger(manager)
	emitter := logEmitter{log: logger}

	authority := access.NewManager()
	if err := grantRoles(authority, access.RoleJudge, cfg.Judges); err != nil {
		return err
	}
	if err := grantRoles(authority, access.RolePauser, cfg.Pausers); err != nil {
		return err
	}
	if err := grantRoles(authority, access.RoleLotteryAdmin, cfg.LotteryAdmins); err != nil {
		return err
	}

	auth := signature.NewAuthorizer(signature.NewRegistry())

	protocolAddr, err := config.Address(cfg.ProtocolAddress)
	if err != nil {
		return fmt.Errorf("ProtocolAddress: %w", err)
	}
	lotteryAddr, err := config.Address(cfg.LotteryAddress)
	if err != nil {
		return fmt.Errorf("LotteryAddress: %w", err)
	}
	vault, err := config.Address(cfg.EscrowVault)
	if err != nil {
		return fmt.Errorf("EscrowVault: %w", err)
	}
	pot, err := config.Address(cfg.LotteryPot)
	if err != nil {
		return fmt.Errorf("LotteryPot: %w", err)
	}
	feeRecipient, err := config.Address(cfg.FeeRecipient)
	if err != nil {
		return fmt.Errorf("FeeRecipient: %w", err)
	}

	escrowEngine := escrow.NewEngine(typeddata.Domain{
		Name:              "deelit.net",
		Version:           "1",
		ChainID:           big.NewInt(cfg.ChainID),
		VerifyingContract: protocolAddr,
	})
	escrowEngine.SetState(manager)
	escrowEngine.SetLedger(ledger)
	escrowEngine.SetAuthorizer(auth)
	escrowEngine.SetAccess(authority)
	escrowEngine.SetVault(vault)
	escrowEngine.SetProtocolFee(fees.Fee{Recipient: feeRecipient, AmountBp: cfg.ProtocolFeeBp})
	escrowEngine.SetEmitter(emitter)

	lotteryEngine := lottery.NewEngine(typeddata.Domain{
		Name:              "deelit.net",
		Version:           "1",
		ChainID:           big.NewInt(cfg.ChainID),
		VerifyingContract: lotteryAddr,
	})
	lotteryEngine.SetState(manager)
	lotteryEngine.SetLedger(ledger)
	lotteryEngine.SetEscrow(escrowEngine)
	lotteryEngine.SetAccess(authority)
	lotteryEngine.SetPot(pot)
	lotteryEngine.SetEmitter(emitter)

	switch cfg.RandomMode {
	case "async":
		price, err := cfg.RandomPrice()
		if err != nil {
			return err
		}
		randomVault, err := config.Address(cfg.RandomFeeRecipient)
		if err != nil {
			return fmt.Errorf("RandomFeeRecipient: %w", err)
		}
		producer := random.NewMockProducer(price)
		producer.SetConsumer(lotteryEngine)
		lotteryEngine.SetProducer(producer)
		lotteryEngine.SetRandomVault(randomVault)
	default:
		lotteryEngine.SetSyncProducer(random.CryptoProducer{})
	}

	metrics := gateway.NewMetrics(prometheus.DefaultRegisterer)
	server := gateway.NewServer(logger, escrowEngine, lotteryEngine, metrics)

	httpServer := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("gateway listening", "address", cfg.ListenAddress, "random_mode", cfg.RandomMode)
		errCh <- httpServer.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stop:
		logger.Info("shutting down", "signal", sig.String())
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(ctx); err != nil {
			return fmt.Errorf("shutdown gateway: %w", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func grantRoles(authority *access.Manager, role access.Role, principals []string) error {
	for _, principal := range principals {
		addr, err := config.Address(principal)
		if err != nil {
			return fmt.Errorf("grant %s to %q: %w", role, principal, err)
		}
		authority.Grant(role, addr)
	}
	return nil
}
