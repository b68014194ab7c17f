package data

import (
	"context"
	"time"

	"github.com/GustavoAl5317/momentusi-sub000/internal/biz"
	"github.com/GustavoAl5317/momentusi-sub000/internal/conf"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-redsync/redsync/v4"
	goredis "github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/google/wire"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// ProviderSet is data providers.
var ProviderSet = wire.NewSet(
	NewData,
	NewDB,
	NewRedis,
	NewRedsync,
	NewTimelineRepo,
	NewPaymentRepo,
	NewMercadoPagoGateway,
	NewEmailSender,
	wire.Bind(new(biz.Transaction), new(*Data)),
)

// Data holds the shared data-layer resources.
type Data struct {
	db  *gorm.DB
	rdb *redis.Client
}

type contextTxKey struct{}

// Exec runs fn inside one database transaction. The transactional handle
// travels in the context so repos called from fn join the same transaction.
func (d *Data) Exec(ctx context.Context, fn func(ctx context.Context) error) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ctx = context.WithValue(ctx, contextTxKey{}, tx)
		return fn(ctx)
	})
}

// DB returns the transactional handle when inside Exec, the plain
// connection otherwise.
func (d *Data) DB(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(contextTxKey{}).(*gorm.DB); ok {
		return tx
	}
	return d.db.WithContext(ctx)
}

// NewData .
func NewData(c *conf.Bootstrap, logger log.Logger, db *gorm.DB, rdb *redis.Client) (*Data, func(), error) {
	cleanup := func() {
		log.NewHelper(logger).Info("closing the data resources")
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
		if rdb != nil {
			_ = rdb.Close()
		}
	}
	return &Data{db: db, rdb: rdb}, cleanup, nil
}

// NewDB .
func NewDB(c *conf.Bootstrap) *gorm.DB {
	source := ""
	if c != nil && c.Data != nil {
		source = c.Data.Database.Source
	}
	if source == "" {
		panic("database source is required")
	}

	db, err := gorm.Open(mysql.Open(source), &gorm.Config{})
	if err != nil {
		panic(err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		panic(err)
	}

	dbConf := c.Data.Database
	if dbConf.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(dbConf.MaxIdleConns)
	}
	if dbConf.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(dbConf.MaxOpenConns)
	}
	if dbConf.ConnMaxLifetime != "" {
		if d, err := time.ParseDuration(dbConf.ConnMaxLifetime); err == nil {
			sqlDB.SetConnMaxLifetime(d)
		}
	}

	if dbConf.Migrate {
		if err := Migrate(sqlDB); err != nil {
			panic(err)
		}
	}

	return db
}

// NewRedis .
func NewRedis(c *conf.Bootstrap) *redis.Client {
	if c == nil || c.Data == nil || c.Data.Redis.Addr == "" {
		return nil
	}
	opts := &redis.Options{
		Addr:     c.Data.Redis.Addr,
		Password: c.Data.Redis.Password,
		DB:       int(c.Data.Redis.Db),
	}
	if d, err := time.ParseDuration(c.Data.Redis.ReadTimeout); err == nil && c.Data.Redis.ReadTimeout != "" {
		opts.ReadTimeout = d
	}
	if d, err := time.ParseDuration(c.Data.Redis.WriteTimeout); err == nil && c.Data.Redis.WriteTimeout != "" {
		opts.WriteTimeout = d
	}
	return redis.NewClient(opts)
}

// NewRedsync builds the distributed lock factory used by the
// reconciliation sweeper. Nil when redis is not configured; the sweeper
// then runs unlocked, which is safe for a single instance.
func NewRedsync(rdb *redis.Client) *redsync.Redsync {
	if rdb == nil {
		return nil
	}
	return redsync.New(goredis.NewPool(rdb))
}
