package cart

import (
	"time"

	"github.com/noah-isme/mall-cart/internal/money"
	"github.com/noah-isme/mall-cart/internal/pricing"
)

// SampleOrders is the demo order set shown when the order service cannot be
// reached and no snapshot is cached.
func SampleOrders(currency string) []pricing.Order {
	price := func(major string) money.Money {
		m, err := money.ParseMajor(major, currency)
		if err != nil {
			panic(err)
		}
		return m
	}
	return []pricing.Order{
		{
			ID:           "O-1001",
			ShopID:       "M1-S1",
			MallID:       "M1",
			CustomerName: "Thila",
			CreatedAt:    time.Date(2025, 8, 18, 0, 0, 0, 0, time.UTC),
			Items: []pricing.LineItem{
				{ProductID: "p1", Name: "Underwear", UnitPrice: price("25"), Quantity: 3},
				{ProductID: "p2", Name: "Socks", UnitPrice: price("10"), Quantity: 2},
			},
		},
		{
			ID:           "O-1002",
			ShopID:       "M1-S2",
			MallID:       "M1",
			CustomerName: "Thila",
			CreatedAt:    time.Date(2025, 8, 19, 10, 15, 0, 0, time.UTC),
			Items: []pricing.LineItem{
				{ProductID: "p3", Name: "Chicken Biryani", UnitPrice: price("1200"), Quantity: 1},
				{ProductID: "p4", Name: "Gulab Jamun", UnitPrice: price("400"), Quantity: 2},
			},
		},
	}
}
