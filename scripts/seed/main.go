package main

import (
	"flag"
	"time"

	"github.com/blogzine/internal/config"
	"github.com/blogzine/internal/db"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		log.Fatal().Err(err).Msg("failed to load .env")
	}
	cfg := config.Load()

	username := cfg.SeedUserName
	if username == "" {
		username = "admin"
	}
	password := cfg.SeedUserPassword
	if password == "" {
		password = "admin123"
	}

	opts := seedOptions{}
	flag.StringVar(&opts.Username, "user", username, "author username")
	flag.StringVar(&opts.Password, "password", password, "author password")
	flag.StringVar(&opts.IssueTitle, "issue", "", "title of the upcoming issue")
	flag.BoolVar(&opts.Sample, "sample", false, "also create a released issue with sample posts")
	flag.Parse()

	// 初始化数据库
	if err := db.Init(db.Options{Driver: cfg.DatabaseDriver, Path: cfg.DatabasePath, DSN: cfg.DatabaseURL}); err != nil {
		log.Fatal().Err(err).Msg("数据库初始化失败")
	}

	report, err := seed(db.DB, opts, time.Now())
	if err != nil {
		log.Fatal().Err(err).Msg("seed failed")
	}

	log.Info().
		Str("username", report.User.Username).
		Uint("issue_id", report.Issue.ID).
		Str("issue", report.Issue.Title).
		Int64("categories", report.CategoryCount).
		Int("sample_posts", report.SamplePosts).
		Msg("seed complete")
}
