package main

import (
	"path/filepath"
	"testing"

	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

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

func TestAppWiring(t *testing.T) {
	t.Setenv("BOOKSHELF_HOST", "127.0.0.1")
	t.Setenv("BOOKSHELF_PORT", "0")
	t.Setenv("BOOKSHELF_GRPC_PORT", "0")
	t.Setenv("BOOKSHELF_DB_PATH", filepath.Join(t.TempDir(), "bookshelf.db"))

	app := fxtest.New(t,
		fx.NopLogger,
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
	)
	app.RequireStart()
	app.RequireStop()
}
