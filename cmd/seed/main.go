package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/manojnerkar/viep/internal/config"
	"github.com/manojnerkar/viep/internal/domain/model"
	"github.com/manojnerkar/viep/internal/infra/api"
	pg "github.com/manojnerkar/viep/internal/infra/db/postgres"
	"github.com/manojnerkar/viep/internal/infra/logging"
	"github.com/manojnerkar/viep/internal/usecase"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	adminID := flag.String("admin-token", "", "print a signed admin token for this user id and exit")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Log, true)

	if *adminID != "" {
		tok, err := api.NewAuthManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL).Mint(*adminID, api.RoleAdmin)
		if err != nil {
			logger.Fatal().Err(err).Msg("mint token")
		}
		fmt.Println(tok)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cfg.Database.MaxConns = 4
	pool, err := pg.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()

	planUC := usecase.NewPlanUseCase(pg.NewPostgresPlanRepo(pool), logger)

	// If plans already exist, do nothing
	plans, err := planUC.ListAll(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("list plans")
	}
	if len(plans) > 0 {
		fmt.Printf("%d plans already present. No changes.\n", len(plans))
		for _, p := range plans {
			fmt.Printf("  - %s (days=%d, price=%d %s, active=%t)\n", p.Name, p.DurationDays, p.Price, p.Currency, p.IsActive)
		}
		return
	}

	seed := []model.PlanInput{
		{
			Name: "Starter", Description: "One guided project with async mentor reviews.",
			Price: 99_900, DurationDays: 30, ProjectAccess: 1, MentorshipHours: 2,
			Features: []string{"1 project", "2 mentorship hours", "Community support"}, DisplayOrder: 1,
		},
		{
			Name: "Professional", Description: "Three industry projects with weekly mentor sessions.",
			Price: 249_900, DurationDays: 90, ProjectAccess: 3, MentorshipHours: 12, CertificateIncluded: true,
			Features: []string{"3 projects", "12 mentorship hours", "Verified certificate"}, DisplayOrder: 2,
		},
		{
			Name: "Enterprise", Description: "Unlimited projects and a dedicated mentor.",
			Price: 599_900, DurationDays: 180, ProjectAccess: 10, MentorshipHours: 40, CertificateIncluded: true,
			Features: []string{"10 projects", "40 mentorship hours", "Verified certificate", "Priority review"}, DisplayOrder: 3,
		},
	}

	for _, in := range seed {
		p, err := planUC.Create(ctx, in)
		if err != nil {
			logger.Fatal().Err(err).Str("plan", in.Name).Msg("create plan")
		}
		fmt.Printf("seeded: %s (id=%s, days=%d, price=%d %s)\n", p.Name, p.ID, p.DurationDays, p.Price, p.Currency)
	}

	fmt.Println("Seeding complete.")
}
