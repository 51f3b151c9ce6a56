package payments

import (
	"context"
	"errors"
	"testing"

	"github.com/consultorio/backend/internal/money"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v79"
)

type fakeGateway struct {
	customers map[string]string
	findErr   error
	got       *stripe.CheckoutSessionParams
}

func (f *fakeGateway) FindCustomerByEmail(_ context.Context, email string) (string, error) {
	if f.findErr != nil {
		return "", f.findErr
	}
	return f.customers[email], nil
}

func (f *fakeGateway) CreateCheckoutSession(_ context.Context, p *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	f.got = p
	return &stripe.CheckoutSession{ID: "cs_test_1", URL: "https://checkout.stripe.com/c/cs_test_1"}, nil
}

func TestCheckoutNotConfigured(t *testing.T) {
	var s *Service
	_, err := s.Checkout(context.Background(), "t", "https://app", CheckoutRequest{})
	assert.ErrorIs(t, err, ErrNotConfigured)
	_, err = (&Service{}).Subscription(context.Background(), "t", "https://app", SubscriptionRequest{})
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.Nil(t, NewStripeGateway(""))
}

func TestCheckoutDefaults(t *testing.T) {
	gw := &fakeGateway{}
	s := &Service{Gateway: gw}
	sess, err := s.Checkout(context.Background(), "therapist-1", "https://app.example/", CheckoutRequest{PatientName: "Ana"})
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.stripe.com/c/cs_test_1", sess.URL)

	p := gw.got
	require.NotNil(t, p)
	assert.Equal(t, "payment", *p.Mode)
	require.Len(t, p.LineItems, 1)
	pd := p.LineItems[0].PriceData
	assert.Equal(t, "brl", *pd.Currency)
	assert.Equal(t, int64(15000), *pd.UnitAmount)
	assert.Equal(t, "Sessão - Ana", *pd.ProductData.Name)
	assert.Equal(t, "https://app.example/financial?payment=success", *p.SuccessURL)
	assert.Equal(t, "https://app.example/financial?payment=canceled", *p.CancelURL)
	assert.Equal(t, "therapist-1", p.Metadata["therapistId"])
	assert.Equal(t, "Ana", p.Metadata["patientName"])
	assert.Nil(t, p.Customer)
	assert.Nil(t, p.CustomerEmail)
}

func TestCheckoutReusesCustomer(t *testing.T) {
	gw := &fakeGateway{customers: map[string]string{"ana@x.com": "cus_1"}}
	s := &Service{Gateway: gw}
	_, err := s.Checkout(context.Background(), "t", "https://app", CheckoutRequest{PatientEmail: "ana@x.com", Amount: money.Cents(20000), Description: "Pacote"})
	require.NoError(t, err)
	assert.Equal(t, "cus_1", *gw.got.Customer)
	assert.Nil(t, gw.got.CustomerEmail)
	assert.Equal(t, "Pacote", *gw.got.LineItems[0].PriceData.ProductData.Name)
	assert.Equal(t, int64(20000), *gw.got.LineItems[0].PriceData.UnitAmount)

	_, err = s.Checkout(context.Background(), "t", "https://app", CheckoutRequest{PatientEmail: "novo@x.com"})
	require.NoError(t, err)
	assert.Nil(t, gw.got.Customer)
	assert.Equal(t, "novo@x.com", *gw.got.CustomerEmail)
	assert.Equal(t, "Sessão - Paciente", *gw.got.LineItems[0].PriceData.ProductData.Name)
}

func TestCheckoutCustomerLookupError(t *testing.T) {
	s := &Service{Gateway: &fakeGateway{findErr: errors.New("stripe down")}}
	_, err := s.Checkout(context.Background(), "t", "https://app", CheckoutRequest{PatientEmail: "a@b.c"})
	assert.Error(t, err)
}

func TestSubscription(t *testing.T) {
	gw := &fakeGateway{}
	s := &Service{Gateway: gw, DefaultPriceID: "price_default"}
	_, err := s.Subscription(context.Background(), "t", "https://app", SubscriptionRequest{})
	require.NoError(t, err)
	assert.Equal(t, "subscription", *gw.got.Mode)
	assert.Equal(t, "price_default", *gw.got.LineItems[0].Price)
	assert.Equal(t, "https://app/financial?subscription=success", *gw.got.SuccessURL)

	_, err = s.Subscription(context.Background(), "t", "https://app", SubscriptionRequest{PriceID: "price_x"})
	require.NoError(t, err)
	assert.Equal(t, "price_x", *gw.got.LineItems[0].Price)
}
