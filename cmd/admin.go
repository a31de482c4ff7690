package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/lumeo-studio/site-auth/app/entity"
	"github.com/lumeo-studio/site-auth/app/repository"
	"github.com/lumeo-studio/site-auth/app/service"
	"github.com/lumeo-studio/site-auth/config"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
)

var adminName string

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Manage admin users",
}

var adminCreateCmd = &cobra.Command{
	Use:   "create <email>",
	Short: "Create an admin user",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		client, db, err := connectMongo(cfg)
		if err != nil {
			return err
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = client.Disconnect(ctx)
		}()

		email := service.NormalizeEmail(args[0])
		if !strings.Contains(email, "@") {
			return fmt.Errorf("invalid email address: %s", email)
		}

		fmt.Print("Password: ")
		reader := bufio.NewReader(os.Stdin)
		password, err := reader.ReadString('\n')
		if err != nil {
			return err
		}
		password = strings.TrimSpace(password)

		if err := cfg.PasswordPolicy.Validate(password); err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		users := repository.NewUserRepository(db)
		existing, err := users.FindByEmail(ctx, email)
		if err != nil {
			return err
		}
		if existing != nil {
			return errors.New("user already exists")
		}

		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return err
		}

		user := &entity.User{
			Email:        email,
			Name:         adminName,
			PasswordHash: string(hashedPassword),
			IsAdmin:      true,
		}
		if err := users.Create(ctx, user); err != nil {
			return err
		}

		fmt.Printf("Admin user created: %s (%s)\n", user.Email, user.ID.Hex())
		return nil
	},
}

func init() {
	adminCreateCmd.Flags().StringVar(&adminName, "name", "", "display name for the admin user")
	adminCmd.AddCommand(adminCreateCmd)
	rootCmd.AddCommand(adminCmd)
}
