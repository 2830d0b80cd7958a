package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/salesdash/internal/api/client"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const configName = ".dashctl"

// NewClient builds an API client from the server flag and the saved token.
func NewClient() *client.Client {
	return client.NewClient(viper.GetString("server"), viper.GetString("token"))
}

func NewLoginCommand() *cobra.Command {
	return newAuthCommand("login", "Log in and save the token", func(c *client.Client, ctx context.Context, email, password string) (string, error) {
		return c.Login(ctx, email, password)
	})
}

func NewRegisterCommand() *cobra.Command {
	return newAuthCommand("register", "Create an account and save the token", func(c *client.Client, ctx context.Context, email, password string) (string, error) {
		return c.Register(ctx, email, password)
	})
}

type authFunc func(c *client.Client, ctx context.Context, email, password string) (string, error)

func newAuthCommand(use, short string, authenticate authFunc) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := authenticate(NewClient(), cmd.Context(), email, password)
			if err != nil {
				return fmt.Errorf("%s failed: %w", use, err)
			}

			viper.Set("token", token)
			path, err := SaveConfig()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Token saved to %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "Account email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Account password")
	cmd.MarkFlagRequired("email")
	cmd.MarkFlagRequired("password")
	return cmd
}

// SaveConfig writes the viper settings to the file in use, or ~/.dashctl.yaml.
func SaveConfig() (string, error) {
	path := viper.ConfigFileUsed()
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to locate home directory: %w", err)
		}
		path = filepath.Join(home, configName+".yaml")
	}
	if err := viper.WriteConfigAs(path); err != nil {
		return "", fmt.Errorf("failed to save config: %w", err)
	}
	return path, nil
}

// InitConfig loads ~/.dashctl.yaml (or cfgFile) and DASHCTL_* variables.
func InitConfig(cfgFile string) {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(home)
		viper.SetConfigName(configName)
		viper.SetConfigType("yaml")
	}
	viper.SetEnvPrefix("DASHCTL")
	viper.AutomaticEnv()
	_ = viper.ReadInConfig()
}
