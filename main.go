package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	admissionapp "community-ledger/internal/admission/application"
	admissionrepo "community-ledger/internal/admission/infrastructure/postgres"
	apihttp "community-ledger/internal/api/http"
	"community-ledger/internal/auth"
	balanceapp "community-ledger/internal/balance/application"
	billingapp "community-ledger/internal/billing/application"
	billingrepo "community-ledger/internal/billing/infrastructure/postgres"
	masterdatarepo "community-ledger/internal/masterdata/infrastructure/postgres"
	"community-ledger/internal/notify"
	"community-ledger/internal/observability/metrics"
	periodapp "community-ledger/internal/period/application"
	periodrepo "community-ledger/internal/period/infrastructure/postgres"
	"community-ledger/internal/storage"
	"community-ledger/internal/transactions"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg := loadConfig()
	logger := log.New(os.Stdout, "", log.LstdFlags)

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("db open error: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Fatalf("db ping error: %v", err)
	}
	if err := storage.RunMigrations(db); err != nil {
		logger.Fatalf("migrations error: %v", err)
	}

	metrics.Init(db, logger)

	userRepo := masterdatarepo.NewUserRepository(db)
	accountRepo := masterdatarepo.NewAccountRepository(db)
	propertyRepo := masterdatarepo.NewPropertyRepository(db)
	periodRepo := periodrepo.NewRepository(db)
	billRepo := billingrepo.NewRepository(db)
	txReader := transactions.NewPostgresReader(db)

	periodService, err := periodapp.NewService(periodRepo, logger)
	if err != nil {
		logger.Fatalf("period service error: %v", err)
	}
	billingService, err := billingapp.NewService(billRepo, accountRepo, propertyRepo, periodRepo, logger)
	if err != nil {
		logger.Fatalf("billing service error: %v", err)
	}
	balanceService, err := balanceapp.NewService(txReader, billRepo, accountRepo)
	if err != nil {
		logger.Fatalf("balance service error: %v", err)
	}

	var admissionNotifier admissionapp.Notifier
	if cfg.BotWebhookURL != "" {
		channel, err := notify.NewWebhookChannel(cfg.BotWebhookURL)
		if err != nil {
			logger.Fatalf("bot webhook error: %v", err)
		}
		templates, err := notify.LoadTemplateSet(cfg.NotifyTemplatesPath)
		if err != nil {
			logger.Fatalf("notify templates error: %v", err)
		}
		notifier, err := notify.NewNotifier(channel, templates, logger, notify.WithAdmins(cfg.AdminChatIDs))
		if err != nil {
			logger.Fatalf("notifier error: %v", err)
		}
		admissionNotifier = meteredNotifier{next: notifier}
	}

	admissionRepo := admissionrepo.NewRepository(db)
	admissionService, err := admissionapp.NewService(admissionRepo, userRepo, admissionNotifier, logger)
	if err != nil {
		logger.Fatalf("admission service error: %v", err)
	}

	periodHandler, err := apihttp.NewPeriodHandler(periodService, billingService, accountNamer{repo: accountRepo})
	if err != nil {
		logger.Fatalf("period handler error: %v", err)
	}
	balanceHandler, err := apihttp.NewBalanceHandler(balanceService)
	if err != nil {
		logger.Fatalf("balance handler error: %v", err)
	}
	admissionHandler, err := apihttp.NewAdmissionHandler(admissionService, userRepo)
	if err != nil {
		logger.Fatalf("admission handler error: %v", err)
	}

	policy := auth.NewDefaultPolicy([]string{"/healthz", "/metrics"}, nil)
	authMiddleware := auth.NewMiddleware([]byte(cfg.JWTSecret), policy)

	mux := http.NewServeMux()
	mux.Handle("/api/v1/periods", periodHandler)
	mux.Handle("/api/v1/periods/", periodHandler)
	mux.Handle("/api/v1/balances/", balanceHandler)
	mux.Handle("/api/v1/balances/users", balanceHandler)
	mux.Handle("/api/v1/access-requests", admissionHandler)
	mux.Handle("/api/v1/access-requests/", admissionHandler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{Addr: cfg.HTTPAddr, Handler: loggingMiddleware(authMiddleware.Wrap(mux), logger)}
	logger.Printf("http listening on %s", cfg.HTTPAddr)
	logger.Fatal(server.ListenAndServe())
}

type config struct {
	DatabaseURL         string
	HTTPAddr            string
	JWTSecret           string
	BotWebhookURL       string
	NotifyTemplatesPath string
	AdminChatIDs        []int64
}

func loadConfig() config {
	cfg := config{
		DatabaseURL:         getenvDefault("DATABASE_URL", getenvDefault("PG_DSN", "")),
		HTTPAddr:            getenvDefault("HTTP_ADDR", ":8080"),
		JWTSecret:           getenvDefault("AUTH_JWT_SECRET", getenvDefault("JWT_SECRET", "")),
		BotWebhookURL:       getenvDefault("BOT_WEBHOOK_URL", ""),
		NotifyTemplatesPath: getenvDefault("NOTIFY_TEMPLATES_PATH", ""),
		AdminChatIDs:        getenvInt64List("ADMIN_CHAT_IDS"),
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL or PG_DSN is required")
	}
	if cfg.JWTSecret == "" {
		log.Fatal("AUTH_JWT_SECRET is required")
	}
	return cfg
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvInt64List(key string) []int64 {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	var ids []int64
	for _, part := range strings.Split(value, ",") {
		parsed, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, parsed)
	}
	return ids
}

func loggingMiddleware(next http.Handler, logger *log.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(resp, r)
		logger.Printf("http %s %s %d %s", r.Method, r.URL.Path, resp.status, time.Since(start))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// ---- Adapters ----

type accountNamer struct {
	repo *masterdatarepo.AccountRepository
}

func (n accountNamer) Name(ctx context.Context, accountID int64) string {
	account, err := n.repo.GetByID(ctx, accountID)
	if err != nil || account == nil {
		return ""
	}
	return account.Name
}

// meteredNotifier counts delivery outcomes around the real notifier.
type meteredNotifier struct {
	next *notify.Notifier
}

func (m meteredNotifier) Send(ctx context.Context, recipientTelegramID int64, kind notify.MessageKind) error {
	err := m.next.Send(ctx, recipientTelegramID, kind)
	result := metrics.ResultSuccess
	if err != nil {
		result = metrics.ResultError
	}
	metrics.IncNotifySend(string(kind), result)
	return err
}

func (m meteredNotifier) NotifyAdmins(ctx context.Context, kind notify.MessageKind, requesterTelegramID int64) error {
	err := m.next.NotifyAdmins(ctx, kind, requesterTelegramID)
	result := metrics.ResultSuccess
	if err != nil {
		result = metrics.ResultError
	}
	metrics.IncNotifySend(string(kind), result)
	return err
}
