// pkg/app/app.go
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"artifactvault/pkg/artifact"
	"artifactvault/pkg/lock"
	"artifactvault/pkg/meta"
	"artifactvault/pkg/storage"
	"artifactvault/pkg/storage/disk"
	"artifactvault/pkg/storage/layered"
	"artifactvault/pkg/storage/minio"
	"artifactvault/pkg/storage/s3"

	"github.com/spf13/viper"
)

// App 是整个应用程序的依赖容器 (Dependency Container)
// 它持有所有“单例”服务
type App struct {
	Repository *artifact.Repository
	Backend    storage.Backend

	catalog *meta.DB
	locker  lock.Locker
}

// NewApp 是工厂函数，负责组装这一台机器
// 它遵循 Viper 的配置，但不知道具体的 CLI 命令
func NewApp(ctx context.Context) (*App, error) {
	sanitize, ok := artifact.SanitizerFor(viper.GetString("tenant.case"))
	if !ok {
		return nil, fmt.Errorf("unsupported tenant case: %s", viper.GetString("tenant.case"))
	}

	// 1. 字节存储
	objects, err := initStore(ctx, viper.GetString("storage.path"))
	if err != nil {
		return nil, fmt.Errorf("failed to init storage: %w", err)
	}

	// 2. 目录 (filename / tenant / 元数据)
	catalog, err := initCatalog(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to init catalog: %w", err)
	}

	// 3. 提交锁
	locker, err := initLocker()
	if err != nil {
		_ = catalog.Close()
		return nil, fmt.Errorf("failed to init commit lock: %w", err)
	}

	backend := layered.New(meta.NewRepository(catalog), objects)
	repo := artifact.NewRepository(backend,
		artifact.WithSanitizer(sanitize),
		artifact.WithLocker(locker),
		artifact.WithLogger(slog.Default()),
	)

	return &App{
		Repository: repo,
		Backend:    backend,
		catalog:    catalog,
		locker:     locker,
	}, nil
}

// Close 释放数据库和 Redis 连接
func (a *App) Close() error {
	var errs []error
	if c, ok := a.locker.(interface{ Close() error }); ok {
		errs = append(errs, c.Close())
	}
	if a.catalog != nil {
		errs = append(errs, a.catalog.Close())
	}
	return errors.Join(errs...)
}

// initStore 根据 storage.type 选择字节存储
func initStore(ctx context.Context, storePath string) (storage.ObjectStore, error) {
	switch storeType := viper.GetString("storage.type"); storeType {
	case "", "disk":
		if storePath == "" {
			return nil, fmt.Errorf("storage path not set")
		}
		store, err := disk.NewAdapter(storePath)
		if err != nil {
			return nil, err
		}
		return store, nil

	case "s3":
		store, err := s3.NewAdapter(ctx, s3.Config{
			Endpoint:        viper.GetString("storage.s3.endpoint"),
			Region:          viper.GetString("storage.s3.region"),
			Bucket:          viper.GetString("storage.s3.bucket"),
			Prefix:          viper.GetString("storage.s3.prefix"),
			AccessKeyID:     viper.GetString("storage.s3.access_key"),
			SecretAccessKey: viper.GetString("storage.s3.secret_key"),
		})
		if err != nil {
			return nil, err
		}
		return store, nil

	case "minio":
		store, err := minio.NewAdapter(ctx, minio.Config{
			Endpoint:  viper.GetString("storage.minio.endpoint"),
			AccessKey: viper.GetString("storage.minio.access_key"),
			SecretKey: viper.GetString("storage.minio.secret_key"),
			Bucket:    viper.GetString("storage.minio.bucket"),
			Prefix:    viper.GetString("storage.minio.prefix"),
			UseSSL:    viper.GetBool("storage.minio.use_ssl"),
		})
		if err != nil {
			return nil, err
		}
		return store, nil

	default:
		return nil, fmt.Errorf("unsupported storage type: %s", storeType)
	}
}

func initCatalog(ctx context.Context) (*meta.DB, error) {
	cfg := meta.Config{
		Driver:   viper.GetString("database.driver"),
		Host:     viper.GetString("database.host"),
		Port:     viper.GetInt("database.port"),
		User:     viper.GetString("database.user"),
		Password: viper.GetString("database.password"),
		DBName:   viper.GetString("database.dbname"),
		SSLMode:  viper.GetString("database.sslmode"),
		Path:     viper.GetString("database.path"),
		Debug:    viper.GetBool("database.debug"),
	}
	return meta.NewDB(ctx, cfg)
}

// initLocker none 时只依赖目录的唯一索引裁决并发提交
func initLocker() (lock.Locker, error) {
	switch lockType := viper.GetString("lock.type"); lockType {
	case "", "none":
		return lock.Nop{}, nil
	case "local":
		return lock.NewLocal(), nil
	case "redis":
		locker, err := lock.NewRedisLocker(lock.Config{
			RedisURL:    viper.GetString("lock.redis_url"),
			TTL:         viper.GetDuration("lock.ttl"),
			WaitTimeout: viper.GetDuration("lock.wait"),
		})
		if err != nil {
			return nil, err
		}
		return locker, nil
	default:
		return nil, fmt.Errorf("unsupported lock type: %s", lockType)
	}
}
