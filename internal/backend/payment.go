package backend

import (
	"context"
	"net/http"

	"github.com/xenking/mandir-kart/internal/payment"
)

type createdOrderDTO struct {
	RemoteOrderID   string `json:"remoteOrderId"`
	InternalOrderID string `json:"internalOrderId"`
}

type orderNumberDTO struct {
	OrderNumber string `json:"orderNumber"`
}

// CreatePaymentOrder creates a remote prepaid order ready for the gateway
// handoff.
func (c *Client) CreatePaymentOrder(ctx context.Context, addressID, couponCode string) (payment.CreatedOrder, error) {
	body := struct {
		AddressID  string `json:"addressId"`
		CouponCode string `json:"couponCode,omitempty"`
	}{AddressID: addressID, CouponCode: couponCode}

	var dto createdOrderDTO
	if err := c.do(ctx, http.MethodPost, "/payments/create-order", body, &dto); err != nil {
		return payment.CreatedOrder{}, err
	}
	return payment.CreatedOrder{
		RemoteOrderID:   dto.RemoteOrderID,
		InternalOrderID: dto.InternalOrderID,
	}, nil
}

// VerifyPayment submits a gateway success callback for signature
// verification and order finalization in a single round trip. Safe to retry
// with the same (PaymentReference, InternalOrderID) pair.
func (c *Client) VerifyPayment(ctx context.Context, req payment.VerifyRequest) (payment.VerifiedOrder, error) {
	body := struct {
		PaymentReference string `json:"paymentReference"`
		GatewayOrderID   string `json:"gatewayOrderId"`
		GatewaySignature string `json:"gatewaySignature"`
		InternalOrderID  string `json:"internalOrderId"`
	}{
		PaymentReference: req.PaymentReference,
		GatewayOrderID:   req.GatewayOrderID,
		GatewaySignature: req.GatewaySignature,
		InternalOrderID:  req.InternalOrderID,
	}

	var dto struct {
		Order orderNumberDTO `json:"order"`
	}
	if err := c.do(ctx, http.MethodPost, "/payments/callback", body, &dto); err != nil {
		return payment.VerifiedOrder{}, err
	}
	return payment.VerifiedOrder{OrderNumber: dto.Order.OrderNumber}, nil
}

// PlaceOrder places a cash-on-delivery order in one backend call.
func (c *Client) PlaceOrder(ctx context.Context, req payment.PlaceOrderRequest) (payment.PlacedOrder, error) {
	body := struct {
		AddressID     string `json:"addressId"`
		PaymentMethod string `json:"paymentMethod"`
		CouponCode    string `json:"couponCode,omitempty"`
	}{
		AddressID:     req.AddressID,
		PaymentMethod: string(req.Method),
		CouponCode:    req.CouponCode,
	}

	var dto orderNumberDTO
	if err := c.do(ctx, http.MethodPost, "/orders", body, &dto); err != nil {
		return payment.PlacedOrder{}, err
	}
	return payment.PlacedOrder{OrderNumber: dto.OrderNumber}, nil
}
