package cmd

import (
	"errors"
	"fmt"

	"TuneLib/config"
	"TuneLib/core/auth"

	"github.com/spf13/cobra"
)

var tokenEmail string

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "为指定邮箱签发访问token",
	Long:  `使用 JWT_SECRET（或 JWT_SECRET_FILE）签发一个 HS256 token，便于本地调试喜欢/歌单接口。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if tokenEmail == "" {
			return errors.New("--email is required")
		}

		cfg := config.Load()
		if err := cfg.Validate(); err != nil {
			return err
		}

		token, err := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.TokenTTL).Issue(tokenEmail)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenEmail, "email", "", "token 对应的用户邮箱")
	rootCmd.AddCommand(tokenCmd)
}
