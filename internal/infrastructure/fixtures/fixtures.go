// Package fixtures loads profiles and orders for the in-memory store.
package fixtures

import (
	"fmt"
	"os"
	"time"

	"go.yaml.in/yaml/v3"

	"tiffin/internal/domain"
)

type File struct {
	Profiles []Profile `yaml:"profiles"`
	Orders   []Order   `yaml:"orders"`
}

type Profile struct {
	ID          string `yaml:"id"`
	Role        string `yaml:"role"`
	DisplayName string `yaml:"display_name"`
}

type Order struct {
	ID          string  `yaml:"id"`
	CustomerID  string  `yaml:"customer_id"`
	VendorID    string  `yaml:"vendor_id"`
	DelivererID string  `yaml:"deliverer_id"`
	Status      string  `yaml:"status"`
	DeliveryFee float64 `yaml:"delivery_fee"`
	Address     string  `yaml:"delivery_address"`
	Items       []Item  `yaml:"items"`
	// Minutes before load time; keeps seeded lists in a stable order.
	AgeMinutes int `yaml:"age_minutes"`
}

type Item struct {
	ProductID string  `yaml:"product_id"`
	Name      string  `yaml:"name"`
	UnitPrice float64 `yaml:"unit_price"`
	Quantity  int     `yaml:"quantity"`
}

func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading fixtures file: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing fixtures file: %w", err)
	}
	return &f, nil
}

func (f *File) DomainProfiles() ([]domain.Profile, error) {
	out := make([]domain.Profile, 0, len(f.Profiles))
	for _, p := range f.Profiles {
		role, err := domain.ParseRole(p.Role)
		if err != nil {
			return nil, fmt.Errorf("profile %s: %w", p.ID, err)
		}
		out = append(out, domain.Profile{ID: p.ID, Role: role, DisplayName: p.DisplayName})
	}
	return out, nil
}

// DomainOrders converts the seeded orders. Display names are joined from the
// seeded profiles the same way the SQL stores join them.
func (f *File) DomainOrders(now time.Time) ([]domain.Order, error) {
	names := make(map[string]string, len(f.Profiles))
	for _, p := range f.Profiles {
		names[p.ID] = p.DisplayName
	}

	out := make([]domain.Order, 0, len(f.Orders))
	for _, o := range f.Orders {
		if o.ID == "" {
			return nil, fmt.Errorf("seeded order without id")
		}
		status, err := domain.ParseStatus(o.Status)
		if err != nil {
			return nil, fmt.Errorf("order %s: %w", o.ID, err)
		}

		items := make([]domain.OrderItem, len(o.Items))
		for i, item := range o.Items {
			items[i] = domain.OrderItem{
				ProductID: item.ProductID,
				Name:      item.Name,
				UnitPrice: item.UnitPrice,
				Quantity:  item.Quantity,
			}
		}

		created := now.Add(-time.Duration(o.AgeMinutes) * time.Minute)
		order := domain.Order{
			ID:           o.ID,
			CustomerID:   o.CustomerID,
			VendorID:     o.VendorID,
			Status:       status,
			Items:        items,
			TotalPrice:   domain.ItemsTotal(items),
			DeliveryFee:  o.DeliveryFee,
			CreatedAt:    created,
			UpdatedAt:    created,
			VendorName:   names[o.VendorID],
			CustomerName: names[o.CustomerID],
		}
		if o.DelivererID != "" {
			order.DelivererID = domain.StringPtr(o.DelivererID)
		}
		if o.Address != "" {
			order.DeliveryAddress = domain.StringPtr(o.Address)
		}
		out = append(out, order)
	}
	return out, nil
}
