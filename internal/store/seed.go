package store

import (
	"context"

	"github.com/pkg/errors"
)

const (
	DefaultAdminEmail    = "admin@foodmart.com"
	DefaultAdminPassword = "admin123"
)

type SeedOptions struct {
	AdminEmail    string
	AdminPassword string
}

// Seed creates the administrator and the sample catalog. Each part is skipped
// when it already exists, so a durable backend is only filled once.
func Seed(ctx context.Context, s Store, opts SeedOptions) error {
	if opts.AdminEmail == "" {
		opts.AdminEmail = DefaultAdminEmail
	}
	if opts.AdminPassword == "" {
		opts.AdminPassword = DefaultAdminPassword
	}

	_, found, err := s.AdminByEmail(ctx, opts.AdminEmail)
	if err != nil {
		return errors.Wrap(err, "seed admin lookup")
	}
	if !found {
		if _, err := s.CreateAdmin(ctx, opts.AdminEmail, opts.AdminPassword); err != nil && !errors.Is(err, ErrAdminExists) {
			return errors.Wrap(err, "seed admin")
		}
	}

	existing, err := s.ListProducts(ctx)
	if err != nil {
		return errors.Wrap(err, "seed products lookup")
	}
	if len(existing) > 0 {
		return nil
	}

	for _, in := range SampleProducts() {
		if _, err := s.CreateProduct(ctx, in); err != nil {
			return errors.Wrapf(err, "seed product %q", in.Name)
		}
	}
	return nil
}

func SampleProducts() []ProductInput {
	return []ProductInput{
		{
			Name:        "Cà chua tươi",
			Category:    "vegetables",
			Price:       25000,
			Weight:      "500g",
			Rating:      "4.5",
			Tag:         "organic",
			Description: "Cà chua tươi ngon, trồng hữu cơ",
			Image:       "https://images.unsplash.com/photo-1592924357228-91a4daadcfea?auto=format&fit=crop&w=400&h=300",
		},
		{
			Name:        "Thịt bò tươi",
			Category:    "meat",
			Price:       180000,
			Weight:      "1kg",
			Rating:      "4.8",
			Tag:         "new",
			Description: "Thịt bò tươi chất lượng cao",
			Image:       "https://images.unsplash.com/photo-1603048719539-9ecb4aa395e3?auto=format&fit=crop&w=400&h=300",
		},
		{
			Name:        "Sữa tươi Vinamilk",
			Category:    "dairy",
			Price:       35000,
			Weight:      "1L",
			Rating:      "4.6",
			Tag:         "",
			Description: "Sữa tươi nguyên chất 100%",
			Image:       "https://images.unsplash.com/photo-1550583724-b2692b85b150?auto=format&fit=crop&w=400&h=300",
		},
		{
			Name:        "Trứng gà ta",
			Category:    "eggs",
			Price:       45000,
			Weight:      "10 quả",
			Rating:      "4.7",
			Tag:         "organic",
			Description: "Trứng gà ta sạch, an toàn",
			Image:       "https://images.unsplash.com/photo-1582722872445-44dc5f7e3c8f?auto=format&fit=crop&w=400&h=300",
		},
		{
			Name:        "Gạo ST25",
			Category:    "dry",
			Price:       85000,
			Weight:      "5kg",
			Rating:      "4.9",
			Tag:         "sale",
			Description: "Gạo ST25 thơm ngon, chất lượng cao",
			Image:       "https://images.unsplash.com/photo-1586201375761-83865001e31c?auto=format&fit=crop&w=400&h=300",
		},
		{
			Name:        "Rau xanh tươi",
			Category:    "vegetables",
			Price:       18000,
			Weight:      "300g",
			Rating:      "4.3",
			Tag:         "organic",
			Description: "Rau xanh tươi ngon, trồng hữu cơ",
			Image:       "https://images.unsplash.com/photo-1540420773420-3366772f4999?auto=format&fit=crop&w=400&h=300",
		},
	}
}
