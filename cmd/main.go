package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/hellofresh/health-go/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/mkotelnikov/courtside/internal/api"
	"github.com/mkotelnikov/courtside/internal/config"
	"github.com/mkotelnikov/courtside/internal/db"
	"github.com/mkotelnikov/courtside/internal/repository"
	"github.com/mkotelnikov/courtside/internal/service"
	"github.com/mkotelnikov/courtside/pkg/logger"
)

func main() {
	l, err := logger.NewLogger()
	if err != nil {
		panic(err)
	}
	defer l.Sync()

	l.Info("starting application")

	cfg, err := config.Load()
	if err != nil {
		l.Fatal("failed to load config", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		l.Fatal("failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	if err = pool.Ping(ctx); err != nil {
		l.Fatal("failed to ping database", zap.Error(err))
	}

	l.Info("database connection established")

	transactor := db.NewPgxTransactor(pool)

	userRepo := repository.NewPgxUserRepository(pool)
	leagueRepo := repository.NewPgxLeagueRepository(pool)
	teamRepo := repository.NewPgxTeamRepository(pool)
	roleRepo := repository.NewPgxRoleRepository(pool)
	memberRepo := repository.NewPgxMemberRepository(pool)
	invitationRepo := repository.NewPgxInvitationRepository(pool)

	access := service.NewAccessService().
		WithUserRepo(userRepo).
		WithLeagueRepo(leagueRepo).
		WithTeamRepo(teamRepo).
		WithRoleRepo(roleRepo).
		WithMemberRepo(memberRepo)

	user := service.NewUserService(cfg.TokenSecret, cfg.TokenTTL).
		WithUserRepo(userRepo)

	team := service.NewTeamService(transactor).
		WithAccessResolver(access).
		WithUserRepo(userRepo).
		WithLeagueRepo(leagueRepo).
		WithTeamRepo(teamRepo).
		WithRoleRepo(roleRepo).
		WithMemberRepo(memberRepo)

	invitation := service.NewInvitationService(transactor).
		WithAccessResolver(access).
		WithUserRepo(userRepo).
		WithTeamRepo(teamRepo).
		WithMemberRepo(memberRepo).
		WithInvitationRepo(invitationRepo).
		WithNotifier(service.NewLogNotifier(l))

	go runInvitationSweeper(ctx, l, invitation, cfg.InvitationSweepInterval)

	healthChecker := api.MustNewHealthChecker(health.Config{
		Name:    "postgres",
		Timeout: 5 * time.Second,
		Check: func(ctx context.Context) error {
			return pool.Ping(ctx)
		},
	})

	e := echo.New()

	handler := api.NewHandler(l, cfg.TokenSecret).
		WithHealthChecker(healthChecker).
		WithUserService(user).
		WithTeamService(team).
		WithInvitationService(invitation)

	handler.RegisterRoutes(e)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			l.Error("failed to shut down server", zap.Error(err))
		}
	}()

	l.Info("server starting", zap.String("addr", cfg.ListenAddr))
	if err = e.Start(cfg.ListenAddr); err != nil {
		l.Info("server stopped", zap.Error(err))
	}
}

// runInvitationSweeper periodically expires overdue PENDING invitations.
func runInvitationSweeper(ctx context.Context, l *zap.Logger, inv *service.InvitationService, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if count, err := inv.ExpireOldInvitations(ctx); err != nil {
				l.Error("invitation sweep failed", zap.String("error", err.Message))
			} else if count > 0 {
				l.Info("invitation sweep completed", zap.Int64("expired", count))
			}
		}
	}
}
