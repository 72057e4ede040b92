package handler

import (
	"time"

	"github.com/sneha1789/timeless-tribe-checkout/internal/domain/order"
	"github.com/sneha1789/timeless-tribe-checkout/internal/domain/pricing"
)

// Response shapes. Monetary values are rendered as floats for JSON clients;
// all arithmetic stays decimal internally.

type orderItemView struct {
	ProductID     string  `json:"productId"`
	Name          string  `json:"name"`
	Image         string  `json:"image"`
	VariantName   string  `json:"variantName"`
	Size          string  `json:"size"`
	Price         float64 `json:"price"`
	OriginalPrice float64 `json:"originalPrice"`
	Quantity      int     `json:"quantity"`
}

type addressView struct {
	FullName string `json:"fullName"`
	Phone    string `json:"phone"`
	Street   string `json:"street"`
	Area     string `json:"area"`
	City     string `json:"city"`
}

type orderView struct {
	ID              string          `json:"id"`
	Items           []orderItemView `json:"items"`
	ShippingAddress addressView     `json:"shippingAddress"`
	ItemsPrice      float64         `json:"itemsPrice"`
	DiscountOnMRP   float64         `json:"discountOnMRP"`
	CouponDiscount  float64         `json:"couponDiscount"`
	CouponCode      string          `json:"couponCode,omitempty"`
	ShippingPrice   float64         `json:"shippingPrice"`
	TotalPrice      float64         `json:"totalPrice"`
	PaymentMethod   string          `json:"paymentMethod,omitempty"`
	PaymentStatus   string          `json:"paymentStatus"`
	PaidAt          *time.Time      `json:"paidAt,omitempty"`
	OrderStatus     string          `json:"orderStatus"`
	CreatedAt       time.Time       `json:"createdAt"`
	DeliveredAt     *time.Time      `json:"deliveredAt,omitempty"`
}

type breakdownView struct {
	ItemsPrice     float64 `json:"itemsPrice"`
	DiscountOnMRP  float64 `json:"discountOnMRP"`
	CouponDiscount float64 `json:"couponDiscount"`
	CouponCode     string  `json:"couponCode,omitempty"`
	ShippingPrice  float64 `json:"shippingPrice"`
	TotalPrice     float64 `json:"totalPrice"`
}

func toOrderView(o *order.Order) orderView {
	items := make([]orderItemView, len(o.Items))
	for i, it := range o.Items {
		items[i] = orderItemView{
			ProductID:     it.ProductID,
			Name:          it.Name,
			Image:         it.Image,
			VariantName:   it.VariantName,
			Size:          it.Size,
			Price:         it.Price.InexactFloat64(),
			OriginalPrice: it.OriginalPrice.InexactFloat64(),
			Quantity:      it.Quantity,
		}
	}
	return orderView{
		ID:    o.ID,
		Items: items,
		ShippingAddress: addressView{
			FullName: o.ShippingAddress.FullName,
			Phone:    o.ShippingAddress.Phone,
			Street:   o.ShippingAddress.Street,
			Area:     o.ShippingAddress.Area,
			City:     o.ShippingAddress.City,
		},
		ItemsPrice:     o.ItemsPrice.InexactFloat64(),
		DiscountOnMRP:  o.DiscountOnMRP.InexactFloat64(),
		CouponDiscount: o.CouponDiscount.InexactFloat64(),
		CouponCode:     o.CouponCode,
		ShippingPrice:  o.ShippingPrice.InexactFloat64(),
		TotalPrice:     o.TotalPrice.InexactFloat64(),
		PaymentMethod:  string(o.PaymentMethod),
		PaymentStatus:  string(o.PaymentStatus),
		PaidAt:         o.PaidAt,
		OrderStatus:    string(o.Status),
		CreatedAt:      o.CreatedAt,
		DeliveredAt:    o.DeliveredAt,
	}
}

func toBreakdownView(b *pricing.Breakdown) breakdownView {
	return breakdownView{
		ItemsPrice:     b.ItemsPrice.InexactFloat64(),
		DiscountOnMRP:  b.DiscountOnMRP.InexactFloat64(),
		CouponDiscount: b.CouponDiscount.InexactFloat64(),
		CouponCode:     b.CouponCode,
		ShippingPrice:  b.ShippingPrice.InexactFloat64(),
		TotalPrice:     b.TotalPrice.InexactFloat64(),
	}
}
