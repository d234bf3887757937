package ports

import "context"

type GatewayPayment struct {
	ImpUID      string
	MerchantUID string
	Amount      int64
	Status      string
}

func (p *GatewayPayment) IsPaid() bool {
	return p.Status == "paid"
}

type PaymentGateway interface {
	Verify(ctx context.Context, impUID string) (*GatewayPayment, error)
	// FindByMerchantUID returns domain.ErrPaymentNotFound when the gateway
	// has no record of the order yet.
	FindByMerchantUID(ctx context.Context, merchantUID string) (*GatewayPayment, error)
	Cancel(ctx context.Context, impUID string, amount int64, reason string) error
}

type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
}
