package main

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"storefront/internal/config"
	"storefront/internal/models"
	"storefront/internal/repositories"
	"storefront/internal/server"
	"storefront/internal/services"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

// env is what every subcommand works against.
type env struct {
	cfg *config.Config
	db  *gorm.DB
	srv *server.Server
}

func openEnv() (*env, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	server.ConfigureLogging(cfg.LogLevel)

	db, err := server.OpenDatabase(cfg)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	}
	// No broker: the CLI never sends customer notifications.
	srv := server.New(server.Options{Config: cfg, DB: db})
	return &env{cfg: cfg, db: db, srv: srv}, cleanup, nil
}

func withEnv(fn func(cmd *cobra.Command, args []string, e *env) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		e, cleanup, err := openEnv()
		if err != nil {
			return err
		}
		defer cleanup()
		return fn(cmd, args, e)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "storefrontctl",
		Short:         "Maintenance commands for the storefront service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newMigrateCmd(),
		newSeedCmd(),
		newCreateSuperuserCmd(),
		newSetStatusCmd(),
		newResetLinkCmd(),
		newPurgeChallengesCmd(),
	)
	return root
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Args:  cobra.NoArgs,
		RunE: withEnv(func(cmd *cobra.Command, _ []string, e *env) error {
			fmt.Fprintf(cmd.OutOrStdout(), "Migrated %s database\n", e.cfg.DatabaseDriver)
			return nil
		}),
	}
}

var seedProducts = []models.Product{
	{Name: "Linen Shirt", Category: "Men's Fashion", Subcategory: "Shirts", Price: 899, Description: "Breathable summer linen"},
	{Name: "Denim Jeans", Category: "Men's Fashion", Subcategory: "Bottoms", Price: 1499, Description: "Slim fit stretch denim"},
	{Name: "Cotton Kurta", Category: "Men's Fashion", Subcategory: "Ethnic", Price: 1199, Description: "Hand block printed"},
	{Name: "Chino Shorts", Category: "Men's Fashion", Subcategory: "Bottoms", Price: 699, Description: "Everyday cotton shorts"},
	{Name: "Leather Belt", Category: "Men's Fashion", Subcategory: "Accessories", Price: 499, Description: "Full grain leather"},
	{Name: "Silk Saree", Category: "Women's Fashion", Subcategory: "Ethnic", Price: 4999, Description: "Hand woven silk"},
	{Name: "Wrap Dress", Category: "Women's Fashion", Subcategory: "Dresses", Price: 1899, Description: "Floral rayon wrap dress"},
	{Name: "Canvas Tote", Category: "Accessories", Subcategory: "Bags", Price: 399, Description: "Heavy canvas shopping tote"},
}

var seedPosts = []models.BlogPost{
	{
		Title:      "How to care for linen",
		Head0:      "Washing",
		Body0:      "Wash linen cold and skip the dryer.",
		Head1:      "Ironing",
		Body1:      "Iron while slightly damp for crisp results.",
		Head2:      "Storage",
		Body2:      "Fold loosely and keep away from direct sun.",
		Conclusion: "Linen gets softer with every wash.",
	},
	{
		Title:      "Picking a saree for the season",
		Head0:      "Fabric",
		Body0:      "Cotton for summer, silk for festivities.",
		Conclusion: "Pick what you will enjoy wearing.",
	},
}

func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load demo products and blog posts into an empty database",
		Args:  cobra.NoArgs,
		RunE: withEnv(func(cmd *cobra.Command, _ []string, e *env) error {
			existing, err := e.srv.Products.GetAllProducts()
			if err != nil {
				return err
			}
			if len(existing) > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "Catalog already has %d products, skipping seed\n", len(existing))
				return nil
			}

			for i := range seedProducts {
				p := seedProducts[i]
				if err := e.srv.Products.CreateProduct(&p); err != nil {
					return fmt.Errorf("failed to seed %s: %w", p.Name, err)
				}
			}
			blog := repositories.NewGORMBlogRepository(e.db)
			for i := range seedPosts {
				post := seedPosts[i]
				post.PubDate = time.Now()
				if err := blog.Create(&post); err != nil {
					return fmt.Errorf("failed to seed post %q: %w", post.Title, err)
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d products and %d posts\n", len(seedProducts), len(seedPosts))
			return nil
		}),
	}
}

func newCreateSuperuserCmd() *cobra.Command {
	var name, password string
	cmd := &cobra.Command{
		Use:   "createsuperuser EMAIL",
		Short: "Create an admin account or promote an existing one",
		Args:  cobra.ExactArgs(1),
		RunE: withEnv(func(cmd *cobra.Command, args []string, e *env) error {
			if password == "" {
				return errors.New("--password is required")
			}
			user, err := e.srv.Users.CreateSuperuser(args[0], name, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Superuser %s ready (id %d)\n", user.Email, user.ID)
			return nil
		}),
	}
	cmd.Flags().StringVar(&name, "name", "Administrator", "display name for a new account")
	cmd.Flags().StringVar(&password, "password", "", "account password (min 8 characters)")
	return cmd
}

func parseIDs(args []string) ([]uint, error) {
	ids := make([]uint, 0, len(args))
	for _, a := range args {
		id, err := strconv.ParseUint(a, 10, 64)
		if err != nil || id == 0 {
			return nil, fmt.Errorf("invalid order id %q", a)
		}
		ids = append(ids, uint(id))
	}
	return ids, nil
}

func newSetStatusCmd() *cobra.Command {
	var tracking string
	cmd := &cobra.Command{
		Use:   "set-status STATUS ORDER_ID...",
		Short: "Change order status and record the timeline entries",
		Args:  cobra.MinimumNArgs(2),
		RunE: withEnv(func(cmd *cobra.Command, args []string, e *env) error {
			status := models.OrderStatus(args[0])
			if !status.Valid() {
				return fmt.Errorf("%w: %q", services.ErrInvalidStatus, args[0])
			}
			ids, err := parseIDs(args[1:])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if tracking == "" {
				res, err := e.srv.Orders.BulkSetStatus(ids, status)
				if err != nil {
					return err
				}
				for _, w := range res.Warnings {
					fmt.Fprintln(out, "warning:", w)
				}
				fmt.Fprintf(out, "Updated %d of %d orders\n", res.Updated, len(ids))
				return nil
			}

			for _, id := range ids {
				_, created, err := e.srv.Orders.UpdateOrder(id, services.OrderPatch{
					OrderStatus:    &status,
					TrackingNumber: &tracking,
				})
				if err != nil {
					fmt.Fprintf(out, "warning: order %d: %v\n", id, err)
					continue
				}
				fmt.Fprintf(out, "Order %d: %d timeline entries added\n", id, len(created))
			}
			return nil
		}),
	}
	cmd.Flags().StringVar(&tracking, "tracking", "", "tracking number to assign")
	return cmd
}

func newResetLinkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset-link EMAIL",
		Short: "Print a password reset uid and token for an account",
		Args:  cobra.ExactArgs(1),
		RunE: withEnv(func(cmd *cobra.Command, args []string, e *env) error {
			user, token, err := e.srv.Auth.PasswordResetLink(args[0])
			if err != nil {
				if errors.Is(err, repositories.ErrNotFound) {
					return fmt.Errorf("no account registered with %s", args[0])
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "uid=%d token=%s\n", user.ID, token)
			return nil
		}),
	}
}

func newPurgeChallengesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "purge-challenges",
		Short: "Delete OTP challenges past the retention window",
		Args:  cobra.NoArgs,
		RunE: withEnv(func(cmd *cobra.Command, _ []string, e *env) error {
			n, err := e.srv.OTP.Purge(e.cfg.ChallengeRetention)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d challenges\n", n)
			return nil
		}),
	}
}
