package main

import (
	"os"

	"github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	_ "github.com/jackc/pgx/v4/stdlib"

	"github.com/battala/voicemesh/internal/api"
	"github.com/battala/voicemesh/internal/config"
	"github.com/battala/voicemesh/internal/coordinator"
	"github.com/battala/voicemesh/internal/core"
	"github.com/battala/voicemesh/internal/eventbus"
)

func main() {
	app := &cli.App{
		Name:        "voicemesh",
		Usage:       "Voice channel presence and signaling server",
		Description: "",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "env",
				Usage:    "environment: either 'development' or 'production'",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "address",
				Usage: "listen IP and port, example: ':80' for listen on 0.0.0.0:80; overrides the config value",
			},
			&cli.StringFlag{
				Name:  "config",
				Usage: "path to the YAML config file",
			},
		},
		Action: startServer,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal().Err(err).Msg("")
	}
}

func startServer(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	if address := c.String("address"); address != "" {
		cfg.Address = address
	}

	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.Redis.Addr,
		DB:   cfg.Redis.DB,
	})

	// Session history is optional; presence stays in memory either way
	var history core.SessionsDBStorer
	if cfg.Database.URL != "" {
		db, err := sqlx.Connect("pgx", cfg.Database.URL)
		if err != nil {
			return err
		}
		history = core.NewSessionsRepository(db)
	}

	bus := eventbus.RedisPubSub(rdb)

	router, err := eventbus.NewRouter(bus)
	if err != nil {
		return err
	}

	coord := coordinator.New(coordinator.Options{
		Config:          cfg,
		EventsPublisher: bus,
		History:         history,
	})
	coord.Register(router)

	<-router.Start()
	defer func() { <-router.Stop() }()

	apiApp := api.NewApp(api.AppOptions{
		Env:              core.Environment(c.String("env")),
		Config:           cfg,
		EventsPublisher:  bus,
		EventsSubscriber: bus,
		Coordinator:      coord,
	})

	return apiApp.Start()
}
