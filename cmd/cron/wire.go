//go:build wireinject
// +build wireinject

package main

import (
	"github.com/GustavoAl5317/momentusi-sub000/internal/biz"
	"github.com/GustavoAl5317/momentusi-sub000/internal/conf"
	"github.com/GustavoAl5317/momentusi-sub000/internal/data"

	"github.com/google/wire"
)

// wireApp init cron application.
func wireApp(*conf.Bootstrap) (*CronApp, func(), error) {
	panic(wire.Build(
		newLogger,
		data.ProviderSet,
		biz.ProviderSet,
		wire.Struct(new(CronApp), "*"),
	))
}
