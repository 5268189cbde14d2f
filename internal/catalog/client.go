package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/mbeoliero/kit/log"
	"github.com/sony/gobreaker"

	"marketchat/internal/entity"
	"marketchat/pkg/errcode"
)

// Provider resolves product ids into snapshots. The snapshot is captured
// once at send time and stored with the message.
type Provider interface {
	GetProduct(ctx context.Context, productId string) (*entity.ProductSnapshot, error)
}

// HTTPProvider fetches products from the marketplace catalog service.
// A circuit breaker shields the send path from a struggling catalog.
type HTTPProvider struct {
	baseURL string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
}

// NewHTTPProvider creates a new HTTPProvider
func NewHTTPProvider(baseURL string, timeout time.Duration) *HTTPProvider {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "catalog",
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("catalog breaker state change: %s -> %s", from, to)
		},
	})

	return &HTTPProvider{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		breaker: breaker,
	}
}

type productResponse struct {
	Id       string `json:"id"`
	Title    string `json:"title"`
	Price    int64  `json:"price"`
	ImageUrl string `json:"image_url"`
}

// GetProduct fetches a product snapshot by id
func (p *HTTPProvider) GetProduct(ctx context.Context, productId string) (*entity.ProductSnapshot, error) {
	result, err := p.breaker.Execute(func() (interface{}, error) {
		return p.fetch(ctx, productId)
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return nil, errcode.ErrCatalogUnavailable
		}
		return nil, err
	}
	return result.(*entity.ProductSnapshot), nil
}

func (p *HTTPProvider) fetch(ctx context.Context, productId string) (*entity.ProductSnapshot, error) {
	url := fmt.Sprintf("%s/products/%s", p.baseURL, productId)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, errcode.ErrCatalogUnavailable.Wrap(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, errcode.ErrProductNotFound
	case resp.StatusCode != http.StatusOK:
		return nil, errcode.ErrCatalogUnavailable.Wrap(fmt.Errorf("status %d", resp.StatusCode))
	}

	var pr productResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return nil, errcode.ErrCatalogUnavailable.Wrap(err)
	}

	return &entity.ProductSnapshot{
		ProductId: pr.Id,
		Title:     pr.Title,
		Price:     pr.Price,
		ImageUrl:  pr.ImageUrl,
	}, nil
}

// StaticProvider serves products from a fixed map. Used by tests and
// local development without a catalog service.
type StaticProvider struct {
	products map[string]*entity.ProductSnapshot
}

// NewStaticProvider creates a StaticProvider from the given snapshots
func NewStaticProvider(products ...*entity.ProductSnapshot) *StaticProvider {
	m := make(map[string]*entity.ProductSnapshot, len(products))
	for _, p := range products {
		m[p.ProductId] = p
	}
	return &StaticProvider{products: m}
}

// GetProduct resolves a product from the static map
func (p *StaticProvider) GetProduct(ctx context.Context, productId string) (*entity.ProductSnapshot, error) {
	snap, ok := p.products[productId]
	if !ok {
		return nil, errcode.ErrProductNotFound
	}
	cp := *snap
	return &cp, nil
}
