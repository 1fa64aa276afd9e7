package cmd

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/aweris/hist"
	"github.com/aweris/hist/internal/remote"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:           "hist",
	Short:         "Minimal local version control",
	Long:          "Snapshot a working directory into an append-only history and sync it with a remote bucket.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logrus.Error(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "config file (default: ~/.config/hist/config.yaml)")
	flags.StringP("dir", "C", ".", "working tree")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.Int("concurrency", remote.DefaultConcurrency, "parallel file and object operations")

	viper.BindPFlag("dir", flags.Lookup("dir"))
	viper.BindPFlag("log_level", flags.Lookup("log-level"))
	viper.BindPFlag("concurrency", flags.Lookup("concurrency"))
}

func initConfig() {
	if cfg := rootCmd.PersistentFlags().Lookup("config").Value.String(); cfg != "" {
		viper.SetConfigFile(cfg)
	} else {
		viper.AddConfigPath(configDir())
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("HIST")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	viper.SetDefault("view_policy", hist.ViewBestEffort.String())
	viper.SetDefault("atomic_commit", false)

	viper.ReadInConfig()

	if level, err := logrus.ParseLevel(viper.GetString("log_level")); err == nil {
		logrus.SetLevel(level)
	}
}

func configDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "hist")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config", "hist")
	}
	return ".hist"
}

// openRepo opens the working tree selected by --dir with options from the
// merged flag, env and file configuration.
func openRepo() (*hist.Repository, error) {
	policy, err := hist.ParseViewPolicy(viper.GetString("view_policy"))
	if err != nil {
		return nil, err
	}

	cfg := remote.Config{
		S3Region:   viper.GetString("s3.region"),
		S3Endpoint: viper.GetString("s3.endpoint"),
	}
	if user := viper.GetString("oci.username"); user != "" {
		cfg.Auth = remote.StaticAuthenticator{
			Username: user,
			Password: viper.GetString("oci.password"),
		}
	}

	return hist.OpenDir(viper.GetString("dir"),
		hist.WithLogger(logrus.StandardLogger()),
		hist.WithConcurrency(viper.GetInt("concurrency")),
		hist.WithViewPolicy(policy),
		hist.WithAtomicCommit(viper.GetBool("atomic_commit")),
		hist.WithRemoteConfig(cfg),
	)
}
