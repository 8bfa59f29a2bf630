// Package server wires configuration, storage, the token authority and the
// HTTP and gRPC endpoints into one runnable application.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/bizdesk/internal/logging"
	"github.com/dmitrijs2005/bizdesk/internal/server/auth"
	"github.com/dmitrijs2005/bizdesk/internal/server/authz"
	"github.com/dmitrijs2005/bizdesk/internal/server/config"
	"github.com/dmitrijs2005/bizdesk/internal/server/httpapi"
	"github.com/dmitrijs2005/bizdesk/internal/server/mailer"
	"github.com/dmitrijs2005/bizdesk/internal/server/otp"
	"github.com/dmitrijs2005/bizdesk/internal/server/ratelimit"
	"github.com/dmitrijs2005/bizdesk/internal/server/repositories/downloads"
	"github.com/dmitrijs2005/bizdesk/internal/server/repositories/memory"
	"github.com/dmitrijs2005/bizdesk/internal/server/repositories/otps"
	"github.com/dmitrijs2005/bizdesk/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/bizdesk/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/bizdesk/internal/server/repositories/users"
	"github.com/dmitrijs2005/bizdesk/internal/server/services"
	"github.com/dmitrijs2005/bizdesk/internal/server/session"
	"github.com/dmitrijs2005/bizdesk/internal/server/storage"
	"github.com/redis/go-redis/v9"

	gs "github.com/dmitrijs2005/bizdesk/internal/server/grpc"
)

type stores struct {
	users     users.Repository
	tokens    refreshtokens.Store
	otps      otps.Repository
	downloads downloads.Repository
}

type App struct {
	config *config.Config
	logger logging.Logger

	db      *sql.DB
	redis   *redis.Client
	limiter ratelimit.Limiter
	purger  *ratelimit.MemoryLimiter

	signer *auth.Signer
	http   *httpapi.Server
	grpc   *gs.GRPCServer
}

// NewApp builds the application from c. Logs go to w (stdout when nil).
func NewApp(ctx context.Context, c *config.Config, w io.Writer) (*App, error) {
	if w == nil {
		w = os.Stdout
	}
	logger, err := logging.New(c.LogBackend, c.LogLevel, w)
	if err != nil {
		return nil, fmt.Errorf("logger init error: %w", err)
	}

	app := &App{config: c, logger: logger}

	st, err := app.initStores(ctx)
	if err != nil {
		app.Close()
		return nil, err
	}
	if err := app.initLimiter(); err != nil {
		app.Close()
		return nil, err
	}

	cookies, err := session.NewCookieStore([]byte(c.CookieHashKey), []byte(c.CookieBlockKey), c.RefreshTokenValidityDuration, c.CookieSecure)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("cookie store init error: %w", err)
	}

	app.signer = auth.NewSigner([]byte(c.SecretKey), c.AccessTokenValidityDuration, c.RefreshTokenValidityDuration)
	authority := auth.NewAuthority(app.signer, st.tokens, logger)
	ledger := otp.NewLedger(st.otps, c.OTPValidityDuration, c.OTPLength)
	mail := app.newMailer()
	presigner := storage.NewS3Presigner(storage.S3Settings{
		Region:       c.S3Region,
		AccessKey:    c.S3RootUser,
		SecretKey:    c.S3RootPassword,
		Bucket:       c.S3Bucket,
		BaseEndpoint: c.S3BaseEndpoint,
	})

	router := httpapi.NewRouter(httpapi.Deps{
		Auth:      services.NewAuthService(st.users, authority, logger),
		OTP:       services.NewOTPService(ledger, mail, logger),
		Downloads: services.NewDownloadService(st.downloads, ledger, mail, presigner, logger),
		Reset:     services.NewPasswordResetService(st.users, ledger, mail, authority, logger),
		Cookies:   cookies,
		Gate:      authz.NewGate(session.NewResolver(app.signer, cookies), st.users),
		Limiter:   app.limiter,
		Limits:    httpapi.LimitsFromConfig(c),
		Logger:    logger,
	})

	app.http = httpapi.NewServer(c.EndpointAddrHTTP, router, logger)
	app.grpc = gs.NewGRPCServer(c.EndpointAddrGRPC, logger, app.signer)

	return app, nil
}

func (app *App) initStores(ctx context.Context) (*stores, error) {
	if app.config.DatabaseDSN == "" {
		app.logger.Warn(ctx, "no database configured, using in-memory stores")
		return &stores{
			users:     memory.NewUsers(),
			tokens:    memory.NewRefreshTokens(),
			otps:      memory.NewOTPs(),
			downloads: memory.NewDownloads(),
		}, nil
	}

	db, err := repomanager.Open(ctx, app.config.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	app.db = db

	rm, err := repomanager.NewPostgresRepositoryManager(db)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := rm.RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("migrations: %w", err)
	}

	return &stores{
		users:     rm.Users(db),
		tokens:    rm.RefreshTokens(db),
		otps:      rm.OTPs(db),
		downloads: rm.Downloads(db),
	}, nil
}

func (app *App) initLimiter() error {
	switch app.config.LimiterBackend {
	case "redis":
		client, err := ratelimit.NewRedisClient(app.config.RedisURL)
		if err != nil {
			return fmt.Errorf("redis init error: %w", err)
		}
		app.redis = client
		app.limiter = ratelimit.NewRedisLimiter(client, "bizdesk:ratelimit:")
	default:
		app.purger = ratelimit.NewMemoryLimiter()
		app.limiter = app.purger
	}
	return nil
}

func (app *App) newMailer() mailer.Sender {
	c := app.config
	if c.SMTPHost == "" {
		return mailer.NewLogSender(app.logger)
	}
	return mailer.NewSMTPSender(c.SMTPHost, c.SMTPPort, c.SMTPUser, c.SMTPPassword, c.MailFrom)
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run starts both endpoints and the limiter purge loop, and blocks until
// ctx is cancelled, a termination signal arrives or an endpoint fails.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	start := func(name string, run func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := run(ctx); err != nil {
				app.logger.Error(ctx, name+" stopped", "error", err)
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				mu.Unlock()
				cancelFunc()
			}
		}()
	}

	start("http", app.http.Run)
	start("grpc", app.grpc.Run)
	if app.purger != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.purger.Run(ctx, app.config.LimiterPurgeInterval)
		}()
	}

	wg.Wait()
	app.logger.Info(context.Background(), "App stopped")
	return errors.Join(errs...)
}

// Close releases the database pool and the redis client.
func (app *App) Close() error {
	var errs []error
	if app.db != nil {
		errs = append(errs, app.db.Close())
	}
	if app.redis != nil {
		errs = append(errs, app.redis.Close())
	}
	return errors.Join(errs...)
}
