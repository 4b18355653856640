package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront/internal/auth"
	"github.com/utafrali/storefront/internal/catalog"
	"github.com/utafrali/storefront/internal/client"
	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/event"
	handler "github.com/utafrali/storefront/internal/handler/http"
	"github.com/utafrali/storefront/internal/kv/memory"
	redisrepo "github.com/utafrali/storefront/internal/repository/redis"
	"github.com/utafrali/storefront/internal/service"
	"github.com/utafrali/storefront/internal/shopper"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/health"
	pkgkafka "github.com/utafrali/storefront/pkg/kafka"
	"github.com/utafrali/storefront/pkg/logger"
	"github.com/utafrali/storefront/pkg/middleware"
)

type memUsers struct {
	mu    sync.Mutex
	users map[string]domain.User
}

func (m *memUsers) Create(_ context.Context, u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return apperrors.AlreadyExists("user", "email", u.Email)
		}
	}
	m.users[u.ID] = *u
	return nil
}

func (m *memUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, apperrors.NotFound("user", id)
	}
	return &u, nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, apperrors.NotFound("user", email)
}

func (m *memUsers) UpdateLastLogin(context.Context, string, time.Time) error { return nil }

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, string, *pkgkafka.Event) error { return nil }

type fixedCatalog []domain.Product

func (c fixedCatalog) ListProducts(context.Context) ([]domain.Product, error) { return c, nil }

// newServer starts the real API over miniredis and an in-memory user
// store.
func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	l := logger.Discard()
	producer := event.NewProducer(nopPublisher{}, l)
	store := catalog.NewStore(fixedCatalog{
		{ID: "1", Name: "Cotton Casual Shirt", Brand: "ZARA", Price: 1299, Rating: 4.2, Category: "Men",
			Sizes: []string{"S", "M"}, Colors: []string{"White", "Light Blue"}, InStock: true},
		{ID: "8", Name: "Silk Scarf", Brand: "Hermès", Price: 15999, Rating: 4.8, Category: "Women",
			Colors: []string{"Pink"}, InStock: true},
	}, time.Minute, l)

	svc := handler.Services{
		Auth: service.NewAuthService(&memUsers{users: map[string]domain.User{}}, redisrepo.NewTokenDenylist(rdb),
			auth.NewJWTManager("repl-test-secret", time.Hour), producer, l),
		Catalog:        service.NewCatalogService(store, l),
		Cart:           service.NewCartService(redisrepo.NewCartRepository(rdb, time.Hour), store, producer, l, time.Hour),
		RecentlyViewed: service.NewRecentlyViewedService(redisrepo.NewRecentlyViewedRepository(rdb), store, l),
	}
	router := handler.NewRouter(svc, health.NewHandler(), handler.RouterConfig{
		ServiceName:    "repl-test",
		CORS:           middleware.DefaultCORSConfig(),
		AuthRateLimit:  100,
		AuthRateWindow: time.Minute,
	}, l)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func runScript(t *testing.T, srv *httptest.Server, script ...string) string {
	t.Helper()
	ctx := context.Background()
	sess := shopper.New(memory.New(), client.NewDefault(srv.URL, logger.Discard()), logger.Discard())
	require.NoError(t, sess.Start(ctx))

	var out bytes.Buffer
	newREPL(sess, &out).run(ctx, strings.NewReader(strings.Join(script, "\n")))
	return out.String()
}

func TestREPL_GuestBrowseAndCart(t *testing.T) {
	srv := newServer(t)

	out := runScript(t, srv,
		"browse scarf",
		"sort price-high",
		"add 1 2 M Light Blue",
		"save 1 M Light Blue",
		"whoami",
	)

	assert.Contains(t, out, "Silk Scarf")
	assert.Contains(t, out, "2 x Cotton Casual Shirt")
	assert.Contains(t, out, "total ₹2598")
	assert.Contains(t, out, "0 items, total ₹0")
	assert.Contains(t, out, "guest")
}

func TestREPL_SignedInFlow(t *testing.T) {
	srv := newServer(t)

	out := runScript(t, srv,
		"signup Priya priya@example.com hunter2hunter2",
		"whoami",
		"show 8",
		"recent",
		"add 8 1 - Pink",
		"logout",
		"whoami",
	)

	assert.Contains(t, out, "welcome, Priya")
	assert.Contains(t, out, "Priya <priya@example.com>")
	assert.Contains(t, out, "colors: Pink")
	assert.Contains(t, out, "signed out")
	assert.NotContains(t, out, "error:")
}

func TestREPL_Errors(t *testing.T) {
	srv := newServer(t)

	out := runScript(t, srv,
		"frobnicate",
		"add 1",
		"recent",
		"filter min=900 max=100",
		"show 404",
	)

	assert.Contains(t, out, `unknown command "frobnicate"`)
	assert.Contains(t, out, "usage: add <id> <qty> [size] [color]")
	assert.Equal(t, 3, strings.Count(out, "error:"), out)
}

func TestParseKey(t *testing.T) {
	assert.Equal(t, domain.LineKey{ProductID: "1"}, parseKey("1", nil))
	assert.Equal(t, domain.LineKey{ProductID: "1", Size: "M"}, parseKey("1", []string{"M"}))
	assert.Equal(t, domain.LineKey{ProductID: "1", Size: "M", Color: "Light Blue"}, parseKey("1", []string{"M", "Light", "Blue"}))
}

func TestParseCriteria(t *testing.T) {
	c, err := parseCriteria([]string{"category=Men,Women", "brand=ZARA", "min=100", "max=2000", "rating=4"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Men", "Women"}, c.Categories)
	assert.Equal(t, []string{"ZARA"}, c.Brands)
	assert.Equal(t, domain.PriceRange{Min: 100, Max: 2000}, c.PriceRange)
	assert.Equal(t, 4.0, c.Rating)
	assert.Equal(t, 4, c.ActiveCount())

	_, err = parseCriteria([]string{"colour=red"})
	assert.ErrorIs(t, err, errUsage)

	_, err = parseCriteria([]string{"min=abc"})
	assert.Error(t, err)
}
