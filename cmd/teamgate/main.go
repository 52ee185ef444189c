package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	rdb "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dropDatabas3/teamgate/internal/app"
	"github.com/dropDatabas3/teamgate/internal/auth"
	"github.com/dropDatabas3/teamgate/internal/config"
	"github.com/dropDatabas3/teamgate/internal/directory"
	"github.com/dropDatabas3/teamgate/internal/email"
	"github.com/dropDatabas3/teamgate/internal/http/router"
	"github.com/dropDatabas3/teamgate/internal/metrics"
	"github.com/dropDatabas3/teamgate/internal/observability/logger"
	"github.com/dropDatabas3/teamgate/internal/rate"
	"github.com/dropDatabas3/teamgate/internal/security/password"
	"github.com/dropDatabas3/teamgate/internal/session"
	"github.com/dropDatabas3/teamgate/internal/store/core"
	"github.com/dropDatabas3/teamgate/internal/store/mem"
	"github.com/dropDatabas3/teamgate/internal/store/pg"
)

const migrationsDir = "migrations/postgres"

func main() {
	// .env es opcional; en containers la config viene del entorno directo.
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file, continuing with system environment")
	}

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "configs/config.example.yaml"
	}

	root := &cobra.Command{
		Use:          "teamgate",
		Short:        "Identity reconciliation and session issuance service",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", cfgPath, "ruta del archivo de config (env CONFIG_PATH)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Levantar el servidor HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), cfgPath)
		},
	}

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Aplicar migraciones de schema y salir",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMigrate(cmd.Context(), cfgPath)
		},
	}

	root.AddCommand(serveCmd, migrateCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func runMigrate(ctx context.Context, cfgPath string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	store, err := pg.New(ctx, cfg.Storage.DSN, pg.Config{
		MaxOpenConns:    cfg.Storage.Postgres.MaxOpenConns,
		MinIdleConns:    cfg.Storage.Postgres.MinIdleConns,
		ConnMaxLifetime: cfg.Storage.Postgres.ConnMaxLifetime,
	})
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	defer store.Close()
	if err := store.RunMigrations(ctx, migrationsDir); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	log.Println("migrations applied")
	return nil
}

func runServe(ctx context.Context, cfgPath string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	logger.Init(logger.Config{Env: cfg.App.Env, ServiceName: "teamgate"})
	defer logger.Sync()
	lg := logger.L()

	store, cleanup, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	defer cleanup()

	issuer, err := session.NewIssuer(session.Config{
		SigningSeed:       cfg.Session.SigningSeed,
		StateHashKey:      cfg.Session.StateHashKey,
		Issuer:            cfg.Session.Issuer,
		SessionTTL:        mustDuration(cfg.Session.TTL),
		StateTTL:          mustDuration(cfg.Session.StateTTL),
		MinExtendInterval: mustDuration(cfg.Session.MinExtendInterval),
		CookieName:        cfg.Session.CookieName,
		StateCookieName:   cfg.Session.StateCookieName,
		Secure:            cfg.Session.Secure,
	}, session.NewOneTime())
	if err != nil {
		return fmt.Errorf("session issuer: %w", err)
	}

	provisioner := auth.NewProvisioner(store, cfg.Team.DefaultCollection)
	reconciler := auth.NewReconciler(store, provisioner)

	c := app.NewContainer(cfg, store, reconciler, issuer)

	// El flujo password entra por el magic link de email, no por un POST
	// de credenciales, así que no se registra PasswordVerifier acá.
	sel := c.TeamSelector()

	if cfg.Directory.Enabled {
		dir := directory.NewClient(directory.Config{
			URL:                cfg.Directory.URL,
			BindDN:             cfg.Directory.BindDN,
			BindPassword:       cfg.Directory.BindPassword,
			BaseDN:             cfg.Directory.BaseDN,
			UserFilter:         cfg.Directory.UserFilter,
			EmailAttr:          cfg.Directory.EmailAttr,
			NameAttr:           cfg.Directory.NameAttr,
			Timeout:            mustDuration(cfg.Directory.Timeout),
			InsecureSkipVerify: cfg.Directory.InsecureSkipVerify,
		})
		c.RegisterVerifier(&auth.DirectoryVerifier{Dir: dir})
	}

	if cfg.Invitation.Enabled {
		c.RegisterVerifier(&auth.InvitationVerifier{
			Store:      store,
			Team:       sel,
			Code:       cfg.Invitation.Code,
			HashParams: password.Default,
		})
	}

	for _, name := range cfg.Providers.External {
		c.RegisterVerifier(&auth.ExternalVerifier{Name: name})
	}

	if cfg.Email.Enabled {
		m := email.NewSMTPSender(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.From, cfg.SMTP.Username, cfg.SMTP.Password)
		if cfg.SMTP.TLS != "" {
			m.TLSMode = cfg.SMTP.TLS
		}
		m.InsecureSkipVerify = cfg.SMTP.InsecureSkipVerify
		c.Mailer = m
	}

	if cfg.Rate.Enabled {
		client := rdb.NewClient(&rdb.Options{Addr: cfg.Rate.Redis.Addr, DB: cfg.Rate.Redis.DB})
		c.Limiter = rate.NewRedisLimiter(client, cfg.Rate.Redis.Prefix,
			cfg.Rate.Login.Limit, mustDuration(cfg.Rate.Login.Window))
	}

	if err := metrics.Register(nil); err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router.New(c),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		lg.Info("server listening", logger.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		lg.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		lg.Error("server exited", logger.Err(err))
		return err
	}
	return nil
}

// openStore abre el backend de storage según el DSN. "memory" es el
// backend volátil para dev sin DB; cualquier otro DSN es postgres.
func openStore(ctx context.Context, cfg *config.Config) (core.Repository, func(), error) {
	if cfg.Storage.DSN == "memory" {
		return mem.New(), func() {}, nil
	}
	st, err := pg.New(ctx, cfg.Storage.DSN, pg.Config{
		MaxOpenConns:    cfg.Storage.Postgres.MaxOpenConns,
		MinIdleConns:    cfg.Storage.Postgres.MinIdleConns,
		ConnMaxLifetime: cfg.Storage.Postgres.ConnMaxLifetime,
	})
	if err != nil {
		return nil, nil, err
	}
	if cfg.Flags.Migrate {
		if err := st.RunMigrations(ctx, migrationsDir); err != nil {
			st.Close()
			return nil, nil, fmt.Errorf("migrations: %w", err)
		}
	}
	return st, st.Close, nil
}

// mustDuration asume config ya validada por Load.
func mustDuration(s string) time.Duration {
	return config.Duration(s)
}
