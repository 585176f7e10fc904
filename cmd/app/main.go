package main

import (
	"go.uber.org/fx"

	"github.com/Rogue-Bear-Innovations/bookshelf-back/internal/config"
	"github.com/Rogue-Bear-Innovations/bookshelf-back/internal/db"
	"github.com/Rogue-Bear-Innovations/bookshelf-back/internal/logging"
	"github.com/Rogue-Bear-Innovations/bookshelf-back/internal/proto"
	"github.com/Rogue-Bear-Innovations/bookshelf-back/internal/remote"
	"github.com/Rogue-Bear-Innovations/bookshelf-back/internal/repository"
	"github.com/Rogue-Bear-Innovations/bookshelf-back/internal/service"
	"github.com/Rogue-Bear-Innovations/bookshelf-back/internal/transport"
	"github.com/Rogue-Bear-Innovations/bookshelf-back/internal/viewmodel"
)

func main() {
	fx.New(
		config.Module,
		logging.Module,
		db.Module,
		remote.Module,
		repository.Module,
		service.Module,
		viewmodel.Module,
		transport.Module,
		proto.Module,
		fx.Invoke(func(*transport.HTTPServer) {}),
	).Run()
}
