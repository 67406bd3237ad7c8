package main

import (
	"os"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/airenas/wardrep/internal/pkg/postgres"
	"github.com/labstack/gommon/color"
)

func main() {
	goapp.StartWithDefault()

	printBanner()

	dsn := goapp.Config.GetString("db.url")
	if dsn == "" {
		goapp.Log.Fatal().Msg("no db.url")
	}
	var err error
	if goapp.Config.GetBool("migrate.down") {
		goapp.Log.Warn().Msg("rolling back migrations")
		err = postgres.RunMigrationsDown(dsn)
	} else {
		err = postgres.RunMigrations(dsn)
	}
	if err != nil {
		goapp.Log.Error().Err(err).Msg("can't migrate")
		os.Exit(1)
	}
	goapp.Log.Info().Msg("Migrations done")
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
|__/|__/\__,_/_/   \__,_/_/   \___/ .___/  
                                 /_/        
           _                  __     
  ____ ___ (_)___ __________ _/ /____ 
 / __ ` + "`" + `__ \/ / __ ` + "`" + `/ ___/ __ ` + "`" + `/ __/ _ \
/ / / / / / / /_/ / /  / /_/ / /_/  __/
/_/ /_/ /_/_/\__, /_/   \__,_/\__/\___/   v: %s
            /____/                     
%s
________________________________________________________

`
	cl := color.New()
	cl.Printf(banner, cl.Red(version), cl.Green("https://github.com/airenas/wardrep"))
}
