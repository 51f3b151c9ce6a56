// Package payments cria sessões de Checkout da Stripe para cobrança avulsa de
// sessões e para a assinatura do plano.
package payments

import (
	"context"
	"errors"
	"strings"

	"github.com/consultorio/backend/internal/money"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
)

// DefaultAmount é cobrado quando o pedido não informa valor.
const DefaultAmount = money.Cents(15000)

var ErrNotConfigured = errors.New("stripe não configurado")

// Gateway é a parte da Stripe que usamos; permite fake nos testes.
type Gateway interface {
	FindCustomerByEmail(ctx context.Context, email string) (string, error)
	CreateCheckoutSession(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

type stripeGateway struct {
	api *client.API
}

// NewStripeGateway devolve nil quando a chave está vazia.
func NewStripeGateway(secretKey string) Gateway {
	if secretKey == "" {
		return nil
	}
	api := &client.API{}
	api.Init(secretKey, nil)
	return &stripeGateway{api: api}
}

func (g *stripeGateway) FindCustomerByEmail(ctx context.Context, email string) (string, error) {
	params := &stripe.CustomerListParams{Email: stripe.String(email)}
	params.Context = ctx
	params.Limit = stripe.Int64(1)
	it := g.api.Customers.List(params)
	if it.Next() {
		return it.Customer().ID, nil
	}
	return "", it.Err()
}

func (g *stripeGateway) CreateCheckoutSession(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	params.Context = ctx
	return g.api.CheckoutSessions.New(params)
}

type CheckoutRequest struct {
	PatientName  string      `json:"patientName"`
	PatientEmail string      `json:"patientEmail"`
	Amount       money.Cents `json:"amount"`
	Description  string      `json:"description"`
}

type SubscriptionRequest struct {
	PatientName  string `json:"patientName"`
	PatientEmail string `json:"patientEmail"`
	PriceID      string `json:"priceId"`
}

type Session struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

type Service struct {
	Gateway        Gateway
	DefaultPriceID string
}

// Checkout cria uma cobrança avulsa em BRL. Origin é a URL do front que recebe o retorno.
func (s *Service) Checkout(ctx context.Context, therapistID, origin string, req CheckoutRequest) (*Session, error) {
	if s == nil || s.Gateway == nil {
		return nil, ErrNotConfigured
	}
	params := CheckoutParams(therapistID, origin, req)
	if err := s.attachCustomer(ctx, params, req.PatientEmail); err != nil {
		return nil, err
	}
	return s.create(ctx, params)
}

// Subscription cria a assinatura com o price informado ou o padrão configurado.
func (s *Service) Subscription(ctx context.Context, therapistID, origin string, req SubscriptionRequest) (*Session, error) {
	if s == nil || s.Gateway == nil {
		return nil, ErrNotConfigured
	}
	priceID := strings.TrimSpace(req.PriceID)
	if priceID == "" {
		priceID = s.DefaultPriceID
	}
	params := SubscriptionParams(therapistID, origin, priceID, req)
	if err := s.attachCustomer(ctx, params, req.PatientEmail); err != nil {
		return nil, err
	}
	return s.create(ctx, params)
}

func (s *Service) create(ctx context.Context, params *stripe.CheckoutSessionParams) (*Session, error) {
	cs, err := s.Gateway.CreateCheckoutSession(ctx, params)
	if err != nil {
		return nil, err
	}
	return &Session{ID: cs.ID, URL: cs.URL}, nil
}

// attachCustomer reaproveita o cliente Stripe com o mesmo e-mail; sem cliente, manda o e-mail.
func (s *Service) attachCustomer(ctx context.Context, params *stripe.CheckoutSessionParams, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil
	}
	id, err := s.Gateway.FindCustomerByEmail(ctx, email)
	if err != nil {
		return err
	}
	if id != "" {
		params.Customer = stripe.String(id)
	} else {
		params.CustomerEmail = stripe.String(email)
	}
	return nil
}

// CheckoutParams monta a sessão de pagamento único (sem consultar a Stripe).
func CheckoutParams(therapistID, origin string, req CheckoutRequest) *stripe.CheckoutSessionParams {
	amount := req.Amount
	if amount <= 0 {
		amount = DefaultAmount
	}
	name := strings.TrimSpace(req.Description)
	if name == "" {
		patient := strings.TrimSpace(req.PatientName)
		if patient == "" {
			patient = "Paciente"
		}
		name = "Sessão - " + patient
	}
	base := strings.TrimRight(origin, "/")
	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String("brl"),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{Name: stripe.String(name)},
				UnitAmount:  stripe.Int64(int64(amount)),
			},
			Quantity: stripe.Int64(1),
		}},
		SuccessURL: stripe.String(base + "/financial?payment=success"),
		CancelURL:  stripe.String(base + "/financial?payment=canceled"),
	}
	params.AddMetadata("patientName", req.PatientName)
	params.AddMetadata("therapistId", therapistID)
	return params
}

func SubscriptionParams(therapistID, origin, priceID string, req SubscriptionRequest) *stripe.CheckoutSessionParams {
	base := strings.TrimRight(origin, "/")
	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			Price:    stripe.String(priceID),
			Quantity: stripe.Int64(1),
		}},
		SuccessURL: stripe.String(base + "/financial?subscription=success"),
		CancelURL:  stripe.String(base + "/financial?subscription=canceled"),
	}
	params.AddMetadata("patientName", req.PatientName)
	params.AddMetadata("therapistId", therapistID)
	return params
}
