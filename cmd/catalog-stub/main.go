package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/Rogue-Bear-Innovations/bookshelf-back/internal/catalogstub"
)

type Config struct {
	Addr string `mapstructure:"ADDR"`
}

func main() {
	v := viper.New()
	v.SetEnvPrefix("CATALOG_STUB")
	v.SetDefault("ADDR", "0.0.0.0:8081")
	if err := v.BindEnv("ADDR"); err != nil {
		panic(err)
	}

	cfg := Config{}
	if err := v.Unmarshal(&cfg); err != nil {
		panic(err)
	}

	l, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	logger := l.Sugar()
	defer func() { _ = logger.Sync() }()

	app := catalogstub.New(catalogstub.DefaultFixtures(), logger)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logger.Info("Stopping catalog stub.")
		if err := app.Shutdown(); err != nil {
			logger.Errorw("Shutdown failed.", "error", err)
		}
	}()

	logger.Infow("Catalog stub listening.", "addr", cfg.Addr)
	if err := app.Listen(cfg.Addr); err != nil {
		logger.Fatalw("Catalog stub failed.", "error", err)
	}
}
