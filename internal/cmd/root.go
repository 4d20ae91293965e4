package cmd

import (
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	configcmd "github.com/Iron-Ham/waitroom/internal/cmd/config"
	"github.com/Iron-Ham/waitroom/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "waitroom",
	Short: "Long-polling wait/notify server for agents",
	Long: `waitroom lets an agent block in a single call until work arrives.

An agent calls register_and_wait and is held open, receiving a heartbeat
every 30 seconds, until a message is deposited or the timeout elapses.
Messages are deposited with send_message or 'waitroom send'. At most one
message is pending at a time; a newer message replaces an unread one.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/waitroom/config.yaml)")
	rootCmd.PersistentFlags().String("addr", "", "server address (overrides server.addr)")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("server.addr", rootCmd.PersistentFlags().Lookup("addr"))

	configcmd.Register(rootCmd)
}

func initConfig() {
	// A missing .env is normal.
	_ = godotenv.Load()

	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("WAITROOM")
	// WAITROOM_WAIT_HEARTBEAT_INTERVAL_SECONDS for wait.heartbeat_interval_seconds
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	_ = viper.ReadInConfig()
}
