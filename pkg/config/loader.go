package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix 环境变量前缀: AV_DATABASE_HOST, AV_STORAGE_S3_BUCKET ...
const EnvPrefix = "AV"

// Load 初始化 Viper 配置
// cfgFile: 可选，用户显式指定的配置文件路径
func Load(cfgFile string) error {
	// 0. .env 只补充尚未设置的环境变量，不覆盖
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	// 1. 设置默认值 (Defaults)
	setDefaults()

	// 2. 配置搜索路径
	if cfgFile != "" {
		// 如果用户指定了文件，直接使用
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}

		// 搜索顺序：当前目录 -> ./.av -> ~/.av
		viper.AddConfigPath(".")
		viper.AddConfigPath(".av")
		viper.AddConfigPath(filepath.Join(home, ".av"))

		viper.SetConfigType("yaml")
		viper.SetConfigName("config") // 找 config.yaml
	}

	// 3. 读取环境变量，storage.s3.bucket -> AV_STORAGE_S3_BUCKET
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// 4. 读取配置文件
	if err := viper.ReadInConfig(); err != nil {
		// 没找到配置文件不算错，可能全靠环境变量
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			fmt.Fprintln(os.Stderr, "⚠️  No config file found, using defaults/env vars")
		} else {
			return fmt.Errorf("fatal error config file: %w", err)
		}
	} else {
		fmt.Fprintln(os.Stderr, "🔧 Using config file:", viper.ConfigFileUsed())
	}

	return nil
}

func setDefaults() {
	wd, _ := os.Getwd()
	root := filepath.Join(wd, ".av")

	// 目录默认用本地 sqlite，生产环境切 postgres
	viper.SetDefault("database.driver", "sqlite")
	viper.SetDefault("database.path", filepath.Join(root, "catalog.db"))
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.sslmode", "disable")

	// 存储默认值
	viper.SetDefault("storage.type", "disk")
	viper.SetDefault("storage.path", filepath.Join(root, "objects"))
	viper.SetDefault("storage.s3.region", "us-east-1")

	viper.SetDefault("tenant.case", "upper")

	viper.SetDefault("lock.type", "none")
	viper.SetDefault("lock.ttl", 30*time.Second)
	viper.SetDefault("lock.wait", 10*time.Second)

	viper.SetDefault("server.addr", ":8080")
	viper.SetDefault("remote.addr", "localhost:8080")
}
