package commands

import (
	"fmt"
	"os"

	"artifactvault/pkg/client"
	"artifactvault/pkg/config"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"google.golang.org/grpc"
)

var (
	cfgFile string

	// remoteDialOptions 测试时注入 bufconn dialer
	remoteDialOptions []grpc.DialOption
)

var rootCmd = &cobra.Command{
	Use:           "av",
	Short:         "ArtifactVault: content-addressed, tenant-scoped artifact store",
	SilenceUsage:  true,
	SilenceErrors: false,
}

// Execute 是入口
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// 在初始化时，加载配置
	cobra.OnInitialize(initConfig)

	// 1. 全局参数 --config
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.av/config.yaml)")

	// 2. 其余参数绑定到 Viper，yaml / 环境变量 / 命令行 三处都能设置
	rootCmd.PersistentFlags().String("remote", "", "ArtifactVault server address (host:port)")
	rootCmd.PersistentFlags().StringP("tenant", "t", "", "Tenant the command operates on")
	for key, flag := range map[string]string{
		"remote.addr": "remote",
		"tenant.name": "tenant",
	} {
		if err := viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
			fmt.Println("Failed to bind flag:", err)
			os.Exit(1)
		}
	}
}

// initConfig 读取配置文件和环境变量
func initConfig() {
	if err := config.Load(cfgFile); err != nil {
		fmt.Println("Config error:", err)
		os.Exit(1)
	}
}

// GetRemoteClient 按需创建连接，调用方负责 Close
func GetRemoteClient() (*client.AVClient, error) {
	addr := viper.GetString("remote.addr")
	if addr == "" {
		return nil, fmt.Errorf("remote address not set (use --remote or AV_REMOTE_ADDR)")
	}
	return client.NewAVClient(addr, remoteDialOptions...)
}

// currentTenant 读取 --tenant / tenant.name
func currentTenant() string {
	return viper.GetString("tenant.name")
}
