package commands

import (
	"log/slog"

	"github.com/spf13/cobra"
)

var (
	loginUsername string
	loginPassword string
	loginSave     bool
)

func init() {
	loginCmd.Flags().StringVarP(&loginUsername, "username", "u", "", "Log in as this user instead of the configured one.")
	loginCmd.Flags().StringVarP(&loginPassword, "password", "p", "", "The password of --username.")
	loginCmd.Flags().BoolVar(&loginSave, "save", false, "Save the credentials to the local config once they are accepted.")
	rootCmd.AddCommand(loginCmd)
}

var loginCmd = &cobra.Command{
	Use:   "login [--username <user> --password <password>] [--save]",
	Short: "Checks that the portal accepts the credentials.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(configPath)
		if err != nil {
			return err
		}
		if loginUsername != "" {
			cfg.Username = loginUsername
			cfg.Password = loginPassword
		}

		s, err := openSession(cmd.Context(), cfg, "")
		if err != nil {
			return err
		}
		defer s.Close()
		slog.Info("login succeeded", "username", cfg.Username)

		if !loginSave {
			return nil
		}
		path, err := saveCredentials(configPath, cfg.credentials())
		if err != nil {
			return err
		}
		slog.Info("saved credentials", "path", path)
		return nil
	},
}
