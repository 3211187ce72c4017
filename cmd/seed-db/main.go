// Command seed-db loads a product catalog JSON file into MongoDB and
// optionally creates the initial admin account.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/karibushop/storefront/internal/domain/product"
	"github.com/karibushop/storefront/internal/domain/user"
	storemongo "github.com/karibushop/storefront/internal/storage/mongo"
)

type productJSON struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Image       string          `json:"image"`
	Category    string          `json:"category"`
	IsFeatured  bool            `json:"isFeatured"`
}

func main() {
	var (
		mongoURL      string
		mongoDatabase string
		productsFile  string
		adminEmail    string
		adminPassword string
	)

	flag.StringVar(&mongoURL, "mongo-url", "", "MongoDB connection URL (or MONGO_URL env)")
	flag.StringVar(&mongoDatabase, "mongo-database", "storefront", "MongoDB database name")
	flag.StringVar(&productsFile, "products-file", "db/seed/products.json", "path to products JSON file")
	flag.StringVar(&adminEmail, "admin-email", "", "admin account email to create (or SHOP_SEED_ADMIN_EMAIL env)")
	flag.StringVar(&adminPassword, "admin-password", "", "admin account password (or SHOP_SEED_ADMIN_PASSWORD env)")
	flag.Parse()

	if mongoURL == "" {
		mongoURL = os.Getenv("MONGO_URL")
	}
	if mongoURL == "" {
		slog.Error("mongo URL is required: set --mongo-url or MONGO_URL")
		os.Exit(1)
	}
	if adminEmail == "" {
		adminEmail = os.Getenv("SHOP_SEED_ADMIN_EMAIL")
	}
	if adminPassword == "" {
		adminPassword = os.Getenv("SHOP_SEED_ADMIN_PASSWORD")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, mongoURL, mongoDatabase, productsFile, adminEmail, adminPassword); err != nil {
		slog.Error("seed failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, mongoURL, mongoDatabase, productsFile, adminEmail, adminPassword string) error {
	db, err := storemongo.Connect(ctx, mongoURL, mongoDatabase)
	if err != nil {
		return errors.Wrap(err, "connect mongo")
	}
	defer func() {
		_ = db.Client().Disconnect(context.Background())
	}()

	if err := storemongo.EnsureIndexes(ctx, db); err != nil {
		return errors.Wrap(err, "ensure indexes")
	}

	if err := seedProducts(ctx, storemongo.NewProductRepository(db), productsFile); err != nil {
		return err
	}

	if adminEmail != "" && adminPassword != "" {
		if err := seedAdmin(ctx, storemongo.NewUserRepository(db), adminEmail, adminPassword); err != nil {
			return err
		}
	}
	return nil
}

func seedProducts(ctx context.Context, repo product.Repository, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "read products file")
	}

	var items []productJSON
	if err := json.Unmarshal(data, &items); err != nil {
		return errors.Wrap(err, "parse products file")
	}

	for _, item := range items {
		p := &product.Product{
			Name:        item.Name,
			Description: item.Description,
			Price:       item.Price,
			Image:       item.Image,
			Category:    item.Category,
			IsFeatured:  item.IsFeatured,
		}
		if err := repo.Create(ctx, p); err != nil {
			return errors.Wrapf(err, "create product %q", item.Name)
		}
		slog.Info("seeded product", "id", p.ID, "name", p.Name)
	}

	slog.Info("catalog seeded", "count", len(items))
	return nil
}

func seedAdmin(ctx context.Context, repo user.Repository, email, password string) error {
	hash, err := user.HashPassword(password)
	if err != nil {
		return errors.Wrap(err, "hash admin password")
	}

	u := &user.User{
		Name:         "Admin",
		Email:        email,
		PasswordHash: hash,
		Role:         user.RoleAdmin,
	}
	if err := repo.Create(ctx, u); err != nil {
		if errors.Is(err, user.ErrEmailTaken) {
			slog.Info("admin account already exists", "email", email)
			return nil
		}
		return errors.Wrap(err, "create admin account")
	}

	slog.Info("admin account created", "id", u.ID, "email", email)
	return nil
}
