package main

import (
	"context"
	"time"

	"github.com/airenas/async-api/pkg/miniofs"
	"github.com/airenas/go-app/pkg/goapp"
	"github.com/airenas/wardrep/internal/pkg/forms"
	"github.com/airenas/wardrep/internal/pkg/locker"
	"github.com/airenas/wardrep/internal/pkg/messages"
	"github.com/airenas/wardrep/internal/pkg/period"
	"github.com/airenas/wardrep/internal/pkg/postgres"
	"github.com/airenas/wardrep/internal/pkg/reportservice"
	"github.com/airenas/wardrep/internal/pkg/review"
	"github.com/airenas/wardrep/internal/pkg/submission"
	"github.com/airenas/wardrep/internal/pkg/utils"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/gommon/color"
)

func main() {
	goapp.StartWithDefault()

	printBanner()

	cfg := goapp.Config
	data := &reportservice.Data{}
	data.Port = cfg.GetInt("port")
	data.MaxUpload = cfg.GetString("upload.maxSize")
	var err error

	ctx := context.Background()

	dbConfig, err := pgxpool.ParseConfig(cfg.GetString("db.url"))
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init db pool")
	}
	if cfg.GetBool("db.logConnections") {
		addDBLog(dbConfig)
	}

	dbPool, err := pgxpool.NewWithConfig(ctx, dbConfig)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init db pool")
	}
	defer dbPool.Close()

	db, err := postgres.NewDB(dbPool)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init db")
	}
	data.Liver = db

	filer, err := miniofs.NewFiler(ctx, miniofs.Options{Bucket: cfg.GetString("filer.bucket"),
		URL: cfg.GetString("filer.url"), User: cfg.GetString("filer.user"), Key: cfg.GetString("filer.key"),
		Secure: cfg.GetBool("filer.https")})
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init file saver")
	}
	data.Reader = filer

	sender, err := postgres.NewSender(dbPool, messages.Work)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init gue sender")
	}

	resolver, err := period.NewResolver(defaultV(cfg.GetInt("period.cutoff"), 23),
		defaultV(cfg.GetInt("period.encouragedUntil"), 7), defaultV(cfg.GetInt("period.encouragedFrom"), 24))
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init period resolver")
	}

	sData := &submission.Data{DB: db, Saver: filer, MsgSender: sender, Resolver: resolver, Now: time.Now}
	if url := cfg.GetString("redis.url"); url != "" {
		l, err := locker.NewFromURL(ctx, url, cfg.GetDuration("lock.ttl"))
		if err != nil {
			goapp.Log.Fatal().Err(err).Msg("can't init redis locker")
		}
		sData.Locker = l
	} else {
		goapp.Log.Warn().Msg("no redis.url, finalize runs without lock")
	}
	data.Submitter, err = submission.NewService(sData)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init submission service")
	}
	data.Reviewer, err = review.NewService(db, time.Now)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init review service")
	}
	data.Forms, err = forms.NewService(db, time.Now)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init forms service")
	}

	go utils.RunPerfEndpoint()

	err = reportservice.StartWebServer(data)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't start web server")
	}
}

func addDBLog(dbConfig *pgxpool.Config) {
	logFunc := goapp.Log.Debug().Msg
	dbConfig.BeforeConnect = func(ctx context.Context, cc *pgx.ConnConfig) error {
		logFunc("before connect")
		return nil
	}
	dbConfig.AfterConnect = func(ctx context.Context, c *pgx.Conn) error {
		logFunc("after connect")
		return nil
	}
}

func defaultV[T comparable](v, d T) T {
	var e T
	if v == e {
		return d
	}
	return v
}

var (
	version = "DEV"
)

func printBanner() {
	banner := `
                       __                   
 _      ______ _______/ /_______  ____      
| | /| / / __ ` + "`" + `/ ___/ __  / ___/ _ \/ __ \     
| |/ |/ / /_/ / /  / /_/ / /  /  __/ /_/ /     
|__/|__/\__,_/_/   \__,_/_/   \___/ .___/  v: %s
                                 /_/        
%s
________________________________________________________

`
	cl := color.New()
	cl.Printf(banner, cl.Red(version), cl.Green("https://github.com/airenas/wardrep"))
}
