package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/airenas/async-api/pkg/miniofs"
	"github.com/airenas/go-app/pkg/goapp"
	"github.com/airenas/wardrep/internal/pkg/consul"
	"github.com/airenas/wardrep/internal/pkg/postgres"
	"github.com/airenas/wardrep/internal/pkg/transcriber"
	tapi "github.com/airenas/wardrep/internal/pkg/transcriber/api"
	"github.com/airenas/wardrep/internal/pkg/utils"
	"github.com/airenas/wardrep/internal/pkg/worker"
	capi "github.com/hashicorp/consul/api"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/gommon/color"
	"github.com/vgarvardt/gue/v5"
	"github.com/vgarvardt/gue/v5/adapter/pgxv5"
)

func main() {
	goapp.StartWithDefault()
	cfg := goapp.Config

	data := &worker.ServiceData{}
	ctx := context.Background()

	dbConfig, err := pgxpool.ParseConfig(cfg.GetString("db.url"))
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init db pool")
	}

	goapp.Log.Info().Int32("max_conn", dbConfig.MaxConns).Int32("min_conn", dbConfig.MinConns).Msg("db info")

	dbPool, err := pgxpool.NewWithConfig(ctx, dbConfig)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init db pool")
	}
	defer dbPool.Close()

	data.GueClient, err = gue.NewClient(pgxv5.NewConnPool(dbPool))
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init gue")
	}
	data.WorkerCount = defaultV(cfg.GetInt("worker.count"), 2)
	data.Timeout = defaultV(cfg.GetDuration("worker.timeout"), 5*time.Minute)
	data.Testing = cfg.GetBool("worker.testing")
	data.Filer, err = miniofs.NewFiler(ctx, miniofs.Options{Bucket: cfg.GetString("filer.bucket"),
		URL: cfg.GetString("filer.url"), User: cfg.GetString("filer.user"), Key: cfg.GetString("filer.key"),
		Secure: cfg.GetBool("filer.https")})
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init filer")
	}
	db, err := postgres.NewDB(dbPool)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init db")
	}

	data.DB = db

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	data.TranscriberPr, err = initTranscriberProvider(ctx)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init transcriber")
	}

	printBanner()

	go utils.RunPerfEndpoint()

	doneCh, err := worker.StartWorkerService(ctx, data)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't start worker service")
	}
	/////////////////////// Waiting for terminate
	waitCh := make(chan os.Signal, 2)
	signal.Notify(waitCh, os.Interrupt, syscall.SIGTERM)
	select {
	case <-waitCh:
		goapp.Log.Info().Msg("Got exit signal")
	case <-doneCh:
		goapp.Log.Info().Msg("Service exit")
	}
	cancelFunc()
	select {
	case <-doneCh:
		goapp.Log.Info().Msg("All code returned. Now exit. Bye")
	case <-time.After(time.Second * 15):
		goapp.Log.Warn().Msg("Timeout gracefull shutdown")
	}
}

func initTranscriberProvider(ctx context.Context) (tapi.Provider, error) {
	cfg := goapp.Config
	if cfg.GetBool("consul.enabled") {
		cc := capi.DefaultConfig()
		if addr := cfg.GetString("consul.address"); addr != "" {
			cc.Address = addr
		}
		pr, err := consul.NewProvider(cc, defaultV(cfg.GetString("consul.service"), "transcriber"),
			consul.ClientOptions{Key: cfg.GetString("transcriber.key"), Model: cfg.GetString("transcriber.model"),
				Timeout: cfg.GetDuration("transcriber.timeout")})
		if err != nil {
			return nil, err
		}
		if _, err := pr.StartRegistryLoop(ctx, defaultV(cfg.GetDuration("consul.checkEvery"), 30*time.Second)); err != nil {
			return nil, err
		}
		return pr, nil
	}
	tr, err := transcriber.NewClientFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	if tr == nil {
		goapp.Log.Warn().Msg("no transcriber.url, voice notes will fail")
		return transcriber.NewStaticProvider(nil), nil
	}
	return transcriber.NewStaticProvider(tr), nil
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
                      __            
 _      ______  _____/ /_____  _____
| | /| / / __ \/ ___/ //_/ _ \/ ___/
| |/ |/ / /_/ / /  / ,< /  __/ /    
|__/|__/\____/_/  /_/|_|\___/_/     
							  
%s
________________________________________________________

`
	cl := color.New()
	cl.Printf(banner, cl.Red(version), cl.Green("https://github.com/airenas/wardrep"))
}
