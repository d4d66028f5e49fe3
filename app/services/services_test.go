package services_test

import (
	"context"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/orderly/app/apperr"
	"github.com/shashiranjanraj/orderly/app/models"
	"github.com/shashiranjanraj/orderly/app/repositories"
	"github.com/shashiranjanraj/orderly/app/resources"
	"github.com/shashiranjanraj/orderly/app/services"
	"github.com/shashiranjanraj/orderly/internal/testutil"
	"github.com/shashiranjanraj/orderly/pkg/auth"
	"github.com/shashiranjanraj/orderly/pkg/cache"
	"github.com/shashiranjanraj/orderly/pkg/event"
)

type fixture struct {
	svc   *services.Services
	store *repositories.Store
	cache *cache.MemoryStore
}

func setup(t *testing.T) fixture {
	t.Helper()
	store := repositories.NewStore(testutil.NewDB(t))
	mem, err := cache.NewMemory(128)
	require.NoError(t, err)
	t.Cleanup(event.Flush)
	return fixture{
		svc: services.New(store, services.Options{
			Cache:    mem,
			CacheTTL: time.Minute,
			Auth:     services.AuthConfig{Username: "admin", Password: "s3cret"},
		}),
		store: store,
		cache: mem,
	}
}

func (f fixture) customer(t *testing.T, email string) resources.Customer {
	t.Helper()
	c, err := f.svc.Customers.Create(context.Background(), services.CreateCustomerInput{Name: "Ana", Email: email})
	require.NoError(t, err)
	return c
}

func (f fixture) product(t *testing.T, name, price string, stock int) resources.Product {
	t.Helper()
	p, err := f.svc.Products.Create(context.Background(), services.CreateProductInput{
		Name:          name,
		Price:         decimal.RequireFromString(price),
		StockQuantity: stock,
	})
	require.NoError(t, err)
	return p
}

func (f fixture) stock(t *testing.T, id uuid.UUID) int {
	t.Helper()
	p, err := f.store.Products.FindByID(context.Background(), id)
	require.NoError(t, err)
	return p.StockQuantity
}

func (f fixture) orderCount(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.store.DB().Model(&models.Order{}).Count(&n).Error)
	return n
}

// ── customers ────────────────────────────────────────────────────────────

func TestCreateCustomer(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	c, err := f.svc.Customers.Create(ctx, services.CreateCustomerInput{
		Name: " Ana ", Email: "ana@example.com", PhoneNumber: "555-0100",
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, c.ID)
	assert.Equal(t, "Ana", c.Name)
	require.NotNil(t, c.PhoneNumber)
	assert.Equal(t, "555-0100", *c.PhoneNumber)
	assert.NotNil(t, c.Orders)

	got, ok, err := f.svc.Customers.Find(ctx, c.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "ana@example.com", got.Email)
}

func TestCreateCustomerRejectsBadEmail(t *testing.T) {
	f := setup(t)
	for _, email := range []string{"", "not-an-email", "Ana <ana@example.com>"} {
		_, err := f.svc.Customers.Create(context.Background(), services.CreateCustomerInput{Name: "Ana", Email: email})
		require.Error(t, err, email)
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err), email)
	}
}

func TestCreateCustomerEnforcesLengthLimits(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.Customers.Create(ctx, services.CreateCustomerInput{
		Name:        strings.Repeat("n", models.MaxNameLength+1),
		Email:       "ana@example.com",
		PhoneNumber: strings.Repeat("5", models.MaxPhoneLength+1),
	})
	require.Error(t, err)
	e := apperr.As(err)
	assert.Equal(t, apperr.KindValidation, e.Kind)
	assert.Equal(t, []string{"name", "phoneNumber"}, e.FieldNames())
	assert.Equal(t, []string{"Name must not exceed 200 characters."}, e.Fields["name"])
	assert.Equal(t, []string{"Phone number must not exceed 20 characters."}, e.Fields["phoneNumber"])

	c, err := f.svc.Customers.Create(ctx, services.CreateCustomerInput{
		Name:        strings.Repeat("é", models.MaxNameLength),
		Email:       "ana@example.com",
		PhoneNumber: strings.Repeat("5", models.MaxPhoneLength),
	})
	require.NoError(t, err)
	assert.Equal(t, models.MaxNameLength, utf8.RuneCountInString(c.Name))
}

func TestCreateCustomerDuplicateEmail(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.customer(t, "ana@example.com")

	_, err := f.svc.Customers.Create(ctx, services.CreateCustomerInput{Name: "Other", Email: "ana@example.com"})
	require.Error(t, err)
	assert.Equal(t, apperr.KindBusinessRule, apperr.KindOf(err))
	assert.Equal(t, "Customer with email 'ana@example.com' already exists.", err.Error())

	all, err := f.svc.Customers.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	// Uniqueness is exact.
	_, err = f.svc.Customers.Create(ctx, services.CreateCustomerInput{Name: "Upper", Email: "ANA@example.com"})
	assert.NoError(t, err)
}

func TestFindMissingCustomer(t *testing.T) {
	f := setup(t)
	_, ok, err := f.svc.Customers.Find(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = f.svc.Customers.Get(context.Background(), uuid.New())
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestCustomerListSeesNewCustomers(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	all, err := f.svc.Customers.All(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	f.customer(t, "ana@example.com")
	all, err = f.svc.Customers.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

// ── products ─────────────────────────────────────────────────────────────

func TestCreateProductValidation(t *testing.T) {
	f := setup(t)
	_, err := f.svc.Products.Create(context.Background(), services.CreateProductInput{
		Name:          "",
		Price:         decimal.RequireFromString("-1"),
		StockQuantity: -2,
	})
	require.Error(t, err)
	e := apperr.As(err)
	assert.Equal(t, apperr.KindValidation, e.Kind)
	assert.Equal(t, []string{"name", "price", "stockQuantity"}, e.FieldNames())

	_, err = f.svc.Products.Create(context.Background(), services.CreateProductInput{
		Name: "Tea", Price: decimal.RequireFromString("1.999"),
	})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestCreateProductEnforcesNameLength(t *testing.T) {
	f := setup(t)
	_, err := f.svc.Products.Create(context.Background(), services.CreateProductInput{
		Name: strings.Repeat("p", models.MaxNameLength+1), Price: decimal.NewFromInt(1),
	})
	require.Error(t, err)
	e := apperr.As(err)
	assert.Equal(t, []string{"name"}, e.FieldNames())
	assert.Equal(t, []string{"Name must not exceed 200 characters."}, e.Fields["name"])
}

func TestProductsListedByName(t *testing.T) {
	f := setup(t)
	f.product(t, "Tiramisu", "6.99", 1)
	f.product(t, "Caesar Salad", "8.99", 1)

	all, err := f.svc.Products.All(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Caesar Salad", all[0].Name)
	assert.Equal(t, "6.99", all[1].Price.StringFixed(2))
}

// ── orders ───────────────────────────────────────────────────────────────

func TestCreateOrder(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	c := f.customer(t, "ana@example.com")
	a := f.product(t, "Pizza", "10.00", 10)
	b := f.product(t, "Pasta", "17.50", 5)

	var placed []services.OrderPlaced
	event.Listen(services.EventOrderPlaced, func(p interface{}) {
		placed = append(placed, p.(services.OrderPlaced))
	})

	before := time.Now().UTC().Add(-time.Second)
	o, err := f.svc.Orders.Create(ctx, services.CreateOrderInput{
		CustomerID: c.ID,
		Items: []services.OrderLine{
			{ProductID: a.ID, Quantity: 3},
			{ProductID: b.ID, Quantity: 2},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "65.00", o.TotalAmount.StringFixed(2))
	assert.Equal(t, models.StatusPending, o.Status)
	assert.Equal(t, c.ID, o.CustomerID)
	assert.True(t, o.CreatedAt.After(before))
	assert.Equal(t, time.UTC, o.CreatedAt.Location())
	require.Len(t, o.OrderItems, 2)
	assert.Equal(t, "10.00", o.OrderItems[0].UnitPrice.StringFixed(2))
	assert.Equal(t, o.ID, o.OrderItems[0].OrderID)

	assert.Equal(t, 7, f.stock(t, a.ID))
	assert.Equal(t, 3, f.stock(t, b.ID))

	require.Len(t, placed, 1)
	assert.Equal(t, o.ID, placed[0].OrderID)
	assert.Equal(t, 2, placed[0].Lines)

	got, err := f.svc.Orders.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, "65.00", got.TotalAmount.StringFixed(2))
	require.NotNil(t, got.OrderItems[0].Product)
}

func TestCreateOrderSnapshotsPrice(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	c := f.customer(t, "ana@example.com")
	p := f.product(t, "Tea", "2.00", 10)

	o, err := f.svc.Orders.Create(ctx, services.CreateOrderInput{
		CustomerID: c.ID, Items: []services.OrderLine{{ProductID: p.ID, Quantity: 1}},
	})
	require.NoError(t, err)

	require.NoError(t, f.store.DB().Model(&models.Product{}).
		Where("id = ?", p.ID).Update("price", decimal.RequireFromString("9.00")).Error)

	got, err := f.svc.Orders.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, "2.00", got.OrderItems[0].UnitPrice.StringFixed(2))
	assert.Equal(t, "2.00", got.TotalAmount.StringFixed(2))
}

func TestCreateOrderInsufficientStock(t *testing.T) {
	f := setup(t)
	c := f.customer(t, "ana@example.com")
	p := f.product(t, "Pizza", "10.00", 5)

	var rejected []services.OrderRejected
	event.Listen(services.EventOrderRejected, func(v interface{}) {
		rejected = append(rejected, v.(services.OrderRejected))
	})

	_, err := f.svc.Orders.Create(context.Background(), services.CreateOrderInput{
		CustomerID: c.ID, Items: []services.OrderLine{{ProductID: p.ID, Quantity: 6}},
	})
	require.Error(t, err)
	assert.Equal(t, apperr.KindBusinessRule, apperr.KindOf(err))
	assert.Equal(t, "Insufficient stock for product 'Pizza'. Available: 5, Requested: 6", err.Error())

	assert.Equal(t, 5, f.stock(t, p.ID))
	assert.EqualValues(t, 0, f.orderCount(t))
	require.Len(t, rejected, 1)
	assert.Equal(t, services.ReasonInsufficientStock, rejected[0].Reason)
}

func TestCreateOrderRollsBackEarlierLines(t *testing.T) {
	f := setup(t)
	c := f.customer(t, "ana@example.com")
	a := f.product(t, "Pizza", "10.00", 10)
	b := f.product(t, "Pasta", "17.50", 1)

	_, err := f.svc.Orders.Create(context.Background(), services.CreateOrderInput{
		CustomerID: c.ID,
		Items: []services.OrderLine{
			{ProductID: a.ID, Quantity: 4},
			{ProductID: b.ID, Quantity: 2},
		},
	})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindBusinessRule))

	assert.Equal(t, 10, f.stock(t, a.ID))
	assert.Equal(t, 1, f.stock(t, b.ID))
	assert.EqualValues(t, 0, f.orderCount(t))
}

func TestCreateOrderErrors(t *testing.T) {
	f := setup(t)
	c := f.customer(t, "ana@example.com")
	p := f.product(t, "Pizza", "10.00", 5)
	ctx := context.Background()

	missing := uuid.New()
	_, err := f.svc.Orders.Create(ctx, services.CreateOrderInput{
		CustomerID: missing, Items: []services.OrderLine{{ProductID: p.ID, Quantity: 1}},
	})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	assert.Equal(t, "Entity 'Customer' with key '"+missing.String()+"' was not found.", err.Error())

	_, err = f.svc.Orders.Create(ctx, services.CreateOrderInput{CustomerID: c.ID})
	assert.True(t, apperr.Is(err, apperr.KindBusinessRule))
	assert.Equal(t, "Order must contain at least one item.", err.Error())

	_, err = f.svc.Orders.Create(ctx, services.CreateOrderInput{
		CustomerID: c.ID, Items: []services.OrderLine{{ProductID: uuid.New(), Quantity: 1}},
	})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	_, err = f.svc.Orders.Create(ctx, services.CreateOrderInput{
		CustomerID: c.ID, Items: []services.OrderLine{{ProductID: p.ID, Quantity: 0}},
	})
	require.True(t, apperr.Is(err, apperr.KindValidation))
	assert.Equal(t, []string{"items[0].quantity"}, apperr.As(err).FieldNames())

	assert.Equal(t, 5, f.stock(t, p.ID))
	assert.EqualValues(t, 0, f.orderCount(t))
}

func TestConcurrentOrdersNeverOversell(t *testing.T) {
	f := setup(t)
	c := f.customer(t, "ana@example.com")
	p := f.product(t, "Pizza", "10.00", 5)

	const buyers = 12
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		ok, fail int
	)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Orders.Create(context.Background(), services.CreateOrderInput{
				CustomerID: c.ID, Items: []services.OrderLine{{ProductID: p.ID, Quantity: 1}},
			})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				ok++
			} else if apperr.Is(err, apperr.KindBusinessRule) {
				fail++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, ok)
	assert.Equal(t, buyers-5, fail)
	assert.Equal(t, 0, f.stock(t, p.ID))
	assert.EqualValues(t, 5, f.orderCount(t))
}

func TestUpdateStatus(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	c := f.customer(t, "ana@example.com")
	p := f.product(t, "Pizza", "10.00", 5)
	o, err := f.svc.Orders.Create(ctx, services.CreateOrderInput{
		CustomerID: c.ID, Items: []services.OrderLine{{ProductID: p.ID, Quantity: 2}},
	})
	require.NoError(t, err)

	// Prime the cache so the update must invalidate it.
	_, err = f.svc.Orders.Get(ctx, o.ID)
	require.NoError(t, err)

	var changes []services.OrderStatusChanged
	event.Listen(services.EventOrderStatusChanged, func(v interface{}) {
		changes = append(changes, v.(services.OrderStatusChanged))
	})

	updated, err := f.svc.Orders.UpdateStatus(ctx, o.ID, models.StatusPaid)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPaid, updated.Status)
	assert.Equal(t, o.TotalAmount.StringFixed(2), updated.TotalAmount.StringFixed(2))
	assert.True(t, o.CreatedAt.Equal(updated.CreatedAt))

	got, err := f.svc.Orders.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPaid, got.Status)
	require.Len(t, changes, 1)
	assert.Equal(t, "Pending", changes[0].From)
	assert.Equal(t, "Paid", changes[0].To)

	_, err = f.svc.Orders.UpdateStatus(ctx, o.ID, models.StatusPending)
	require.Error(t, err)
	assert.Equal(t, "Invalid status transition from 'Paid' to 'Pending'.", err.Error())

	_, err = f.svc.Orders.UpdateStatus(ctx, o.ID, models.StatusCancelled)
	require.NoError(t, err)
	// Cancelling keeps the stock where it was.
	assert.Equal(t, 3, f.stock(t, p.ID))

	_, err = f.svc.Orders.UpdateStatus(ctx, o.ID, models.StatusShipped)
	assert.True(t, apperr.Is(err, apperr.KindBusinessRule))

	_, err = f.svc.Orders.UpdateStatus(ctx, uuid.New(), models.StatusPaid)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	_, err = f.svc.Orders.UpdateStatus(ctx, o.ID, models.OrderStatus("Lost"))
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = f.svc.Orders.UpdateStatus(ctx, o.ID, models.OrderStatus("paid"))
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

type itemView struct {
	ID, ProductID uuid.UUID
	Quantity      int
	UnitPrice     string
}

func items(o resources.Order) []itemView {
	out := make([]itemView, len(o.OrderItems))
	for i, it := range o.OrderItems {
		out[i] = itemView{ID: it.ID, ProductID: it.ProductID, Quantity: it.Quantity, UnitPrice: it.UnitPrice.StringFixed(2)}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out
}

// assertOnlyStatusChanged checks that every field other than the status
// survived a transition.
func assertOnlyStatusChanged(t *testing.T, before, after resources.Order, want models.OrderStatus) {
	t.Helper()
	assert.Equal(t, want, after.Status)
	assert.Equal(t, before.ID, after.ID)
	assert.Equal(t, before.CustomerID, after.CustomerID)
	assert.Equal(t, before.TotalAmount.StringFixed(2), after.TotalAmount.StringFixed(2))
	assert.True(t, before.CreatedAt.Equal(after.CreatedAt), "createdAt %s != %s", before.CreatedAt, after.CreatedAt)
	assert.Equal(t, items(before), items(after))
}

func TestUpdateStatusKeepsOrderFields(t *testing.T) {
	edges := [][2]models.OrderStatus{
		{models.StatusPending, models.StatusPaid},
		{models.StatusPending, models.StatusCancelled},
		{models.StatusPaid, models.StatusShipped},
		{models.StatusPaid, models.StatusCancelled},
		{models.StatusShipped, models.StatusDelivered},
	}
	// Walk from Pending to the edge's source first.
	path := map[models.OrderStatus][]models.OrderStatus{
		models.StatusPending: nil,
		models.StatusPaid:    {models.StatusPaid},
		models.StatusShipped: {models.StatusPaid, models.StatusShipped},
	}

	for _, e := range edges {
		from, to := e[0], e[1]
		t.Run(from.String()+"->"+to.String(), func(t *testing.T) {
			f := setup(t)
			ctx := context.Background()
			c := f.customer(t, "ana@example.com")
			tea := f.product(t, "Tea", "2.50", 10)
			cake := f.product(t, "Cake", "4.25", 10)
			o, err := f.svc.Orders.Create(ctx, services.CreateOrderInput{
				CustomerID: c.ID,
				Items: []services.OrderLine{
					{ProductID: tea.ID, Quantity: 2},
					{ProductID: cake.ID, Quantity: 1},
				},
			})
			require.NoError(t, err)
			require.Len(t, o.OrderItems, 2)

			for _, step := range path[from] {
				_, err := f.svc.Orders.UpdateStatus(ctx, o.ID, step)
				require.NoError(t, err)
			}

			before, err := f.svc.Orders.Get(ctx, o.ID)
			require.NoError(t, err)
			assert.Equal(t, from, before.Status)
			assertOnlyStatusChanged(t, o, before, from)

			updated, err := f.svc.Orders.UpdateStatus(ctx, o.ID, to)
			require.NoError(t, err)
			assertOnlyStatusChanged(t, before, updated, to)

			after, err := f.svc.Orders.Get(ctx, o.ID)
			require.NoError(t, err)
			assertOnlyStatusChanged(t, before, after, to)
			assert.Equal(t, c.ID, after.CustomerID)
			assert.Equal(t, "9.25", after.TotalAmount.StringFixed(2))
			assert.Equal(t, 8, f.stock(t, tea.ID))
			assert.Equal(t, 9, f.stock(t, cake.ID))
		})
	}
}

func TestOrdersForCustomer(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	c := f.customer(t, "ana@example.com")
	p := f.product(t, "Pizza", "10.00", 10)

	empty, err := f.svc.Orders.ForCustomer(ctx, c.ID)
	require.NoError(t, err)
	assert.Empty(t, empty)

	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		o, err := f.svc.Orders.Create(ctx, services.CreateOrderInput{
			CustomerID: c.ID, Items: []services.OrderLine{{ProductID: p.ID, Quantity: 1}},
		})
		require.NoError(t, err)
		ids = append(ids, o.ID)
		time.Sleep(5 * time.Millisecond)
	}

	got, err := f.svc.Orders.ForCustomer(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, ids[2], got[0].ID)
	assert.Equal(t, ids[0], got[2].ID)

	cust, err := f.svc.Customers.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Len(t, cust.Orders, 3)

	none, err := f.svc.Orders.ForCustomer(ctx, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, none)
}

// ── auth ─────────────────────────────────────────────────────────────────

func TestLogin(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	tok, err := f.svc.Auth.Login(ctx, "admin", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "Bearer", tok.TokenType)
	assert.Equal(t, 60, tok.ExpiresIn)

	claims, err := auth.ValidateToken(tok.Token)
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.Subject)

	_, err = f.svc.Auth.Login(ctx, "admin", "wrong")
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))
	_, err = f.svc.Auth.Login(ctx, "root", "s3cret")
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))
}

func TestLoginWithHashedPassword(t *testing.T) {
	hash, err := auth.HashPassword("s3cret")
	require.NoError(t, err)
	svc := services.NewAuthService(services.AuthConfig{Username: "admin", Password: hash})

	_, err = svc.Login(context.Background(), "admin", "s3cret")
	assert.NoError(t, err)
	_, err = svc.Login(context.Background(), "admin", hash)
	assert.Error(t, err)
}
