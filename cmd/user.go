package cmd

import (
	"context"
	"fmt"

	"github.com/anoixa/image-tiers/internal/account"
	"github.com/anoixa/image-tiers/utils/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// userCmd 用户管理
var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage users",
}

var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a user",
	Run: func(cmd *cobra.Command, args []string) {
		username, _ := cmd.Flags().GetString("username")
		password, _ := cmd.Flags().GetString("password")
		tierName, _ := cmd.Flags().GetString("tier")
		superuser, _ := cmd.Flags().GetBool("superuser")

		container := mustContainer()
		defer container.Close()

		ctx := context.Background()
		p, err := container.Tiers.GetByName(ctx, tierName)
		if err != nil {
			logger.L.Fatal("tier not found", zap.String("tier", tierName), zap.Error(err))
		}

		user, err := container.Accounts.Create(ctx, account.CreateInput{
			Username:  username,
			Password:  password,
			TierID:    p.ID,
			Superuser: superuser,
		})
		if err != nil {
			logger.L.Fatal("failed to create user", zap.Error(err))
		}
		fmt.Printf("User %q created (id %d, tier %s)\n", user.Username, user.ID, p.Name)
	},
}

func init() {
	rootCmd.AddCommand(userCmd)
	userCmd.AddCommand(userCreateCmd)

	userCreateCmd.Flags().String("username", "", "Username")
	userCreateCmd.Flags().String("password", "", "Password")
	userCreateCmd.Flags().String("tier", "Basic", "Tier name")
	userCreateCmd.Flags().Bool("superuser", false, "Grant administrator rights")
	_ = userCreateCmd.MarkFlagRequired("username")
	_ = userCreateCmd.MarkFlagRequired("password")
}
