package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// CurrenciesService reads the currency reference data.
type CurrenciesService struct {
	d Doer
}

func (s *CurrenciesService) List(ctx context.Context) ([]Currency, error) {
	var out []Currency
	if err := s.d.Request(ctx, http.MethodGet, "/api/currencies", nil, &out); err != nil {
		return nil, fmt.Errorf("list currencies: %w", err)
	}
	return out, nil
}

func (s *CurrenciesService) Get(ctx context.Context, code string) (*Currency, error) {
	var out Currency
	if err := s.d.Request(ctx, http.MethodGet, "/api/currencies/"+url.PathEscape(code), nil, &out); err != nil {
		return nil, fmt.Errorf("get currency %q: %w", code, err)
	}
	return &out, nil
}

// Rate returns the exchange rate between two currency codes.
func (s *CurrenciesService) Rate(ctx context.Context, from, to string) (*ExchangeRate, error) {
	q := url.Values{}
	q.Set("from_currency", from)
	q.Set("to_currency", to)

	var out ExchangeRate
	if err := s.d.Request(ctx, http.MethodGet, "/api/currencies/rate?"+q.Encode(), nil, &out); err != nil {
		return nil, fmt.Errorf("get rate %s->%s: %w", from, to, err)
	}
	return &out, nil
}
