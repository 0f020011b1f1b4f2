package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"smartpark-pay/internal/config"
	"smartpark-pay/internal/gateway"
	"smartpark-pay/internal/logger"
	"smartpark-pay/internal/payment"
	"smartpark-pay/internal/poller"
	"smartpark-pay/internal/session"

	"go.uber.org/zap"
)

var errPaymentNotCompleted = errors.New("payment did not complete")

func main() {
	amount := flag.String("amount", "", "top-up amount in TZS")
	phone := flag.String("phone", "", "mobile money account number")
	providerName := flag.String("provider", "Airtel", "mobile money provider: Airtel, Tigo, Halopesa, Azampesa or Mpesa")
	deadline := flag.Duration("deadline", 10*time.Minute, "maximum time to wait for settlement, 0 waits forever")
	flag.Parse()

	cfg := config.LoadConfig()
	logger.Init(cfg.AppEnv)
	defer logger.Sync()

	if err := run(cfg, *amount, *phone, *providerName, *deadline); err != nil {
		logger.L().Error("Top-up failed", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, amount, phone, providerName string, deadline time.Duration) error {
	log := logger.L()

	if amount == "" || phone == "" {
		return errors.New("both -amount and -phone are required")
	}
	provider, err := gateway.ParseProvider(providerName)
	if err != nil {
		return err
	}

	var tokens session.TokenSource
	if cfg.SessionFile != "" {
		tokens = session.NewFileStore(cfg.SessionFile)
	} else {
		tokens = session.StaticToken(os.Getenv("SESSION_TOKEN"))
	}

	gw := gateway.NewClient(gateway.Config{
		AppName:      cfg.AppName,
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		APIKey:       cfg.APIKey,
		AuthURL:      cfg.AuthURL,
		CheckoutURL:  cfg.CheckoutURL,
		StatusURL:    cfg.StatusURL,
		CallbackURL:  cfg.CallbackURL,
		Product:      cfg.Product,
	})

	var opts []poller.Option
	if deadline > 0 {
		opts = append(opts, poller.WithDeadline(deadline))
	}
	orch := payment.New(gw, poller.New(gw, opts...), tokens)
	defer orch.Close()

	updates, err := orch.Pay(context.Background(), amount, phone, provider)
	if err != nil {
		return err
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sig)

	for {
		select {
		case <-sig:
			log.Warn("Interrupted, cancelling payment")
			orch.Cancel()
			return errPaymentNotCompleted

		case u, ok := <-updates:
			if !ok {
				return errPaymentNotCompleted
			}
			switch u.State {
			case payment.StateSubmitting:
				log.Info("Submitting charge",
					zap.String("amount", amount),
					zap.String("provider", string(provider)),
				)
			case payment.StatePolling:
				log.Info("Charge accepted, waiting for settlement",
					zap.String("transaction_id", u.TransactionID),
				)
			case payment.StateRejected:
				log.Error("Charge rejected", zap.String("message", u.Message))
				return errPaymentNotCompleted
			case payment.StateCompleted:
				log.Info("Payment completed",
					zap.String("transaction_id", u.TransactionID),
				)
				return nil
			case payment.StateFailed:
				log.Error("Payment failed",
					zap.String("transaction_id", u.TransactionID),
					zap.String("message", u.Message),
				)
				return errPaymentNotCompleted
			}
		}
	}
}
