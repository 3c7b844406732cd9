package http

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"gitlab.com/timkado/web/storefront-state/internal/application"
	"gitlab.com/timkado/web/storefront-state/internal/domain"
	"gitlab.com/timkado/web/storefront-state/pkg/contextkeys"
	"gitlab.com/timkado/web/storefront-state/pkg/crypto"
	"gitlab.com/timkado/web/storefront-state/pkg/eventloop"
)

// Handlers exposes the state layer as a JSON API. Every touch of a store goes through the
// event loop; catalog reads run on the request goroutine.
type Handlers struct {
	loop     *eventloop.Loop
	catalog  *application.CatalogService
	cart     *application.Cart
	wishlist *application.Wishlist
	orders   *application.OrderService
	session  *application.SessionManager
	logger   domain.Logger
}

// NewHandlers wires the API to the services.
func NewHandlers(
	loop *eventloop.Loop,
	catalog *application.CatalogService,
	cart *application.Cart,
	wishlist *application.Wishlist,
	orders *application.OrderService,
	session *application.SessionManager,
	logger domain.Logger,
) *Handlers {
	if loop == nil {
		panic("event loop cannot be nil in NewHandlers")
	}
	return &Handlers{
		loop:     loop,
		catalog:  catalog,
		cart:     cart,
		wishlist: wishlist,
		orders:   orders,
		session:  session,
		logger:   logger,
	}
}

// Register mounts the API routes on mux.
func (h *Handlers) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /products", h.listProducts)
	mux.HandleFunc("GET /products/{id}", h.getProduct)
	mux.HandleFunc("GET /categories", h.listCategories)
	mux.HandleFunc("POST /catalog/refresh", h.refreshCatalog)

	mux.HandleFunc("GET /cart", h.getCart)
	mux.HandleFunc("POST /cart/items", h.addCartItem)
	mux.HandleFunc("PATCH /cart/items/{id}", h.updateCartItem)
	mux.HandleFunc("DELETE /cart/items/{id}", h.removeCartItem)
	mux.HandleFunc("DELETE /cart", h.clearCart)

	mux.HandleFunc("GET /wishlist", h.getWishlist)
	mux.HandleFunc("POST /wishlist/items", h.addWishlistItem)
	mux.HandleFunc("DELETE /wishlist/items/{id}", h.removeWishlistItem)
	mux.HandleFunc("POST /wishlist/items/{id}/move-to-cart", h.moveWishlistItem)

	mux.HandleFunc("GET /orders", h.listOrders)
	mux.HandleFunc("GET /orders/quote", h.quote)
	mux.HandleFunc("POST /orders", h.createOrder)
	mux.HandleFunc("POST /checkout", h.checkout)
	mux.HandleFunc("PATCH /orders/{id}/status", h.updateOrderStatus)

	mux.HandleFunc("GET /session", h.getSession)
	mux.HandleFunc("POST /session", h.login)
	mux.HandleFunc("DELETE /session", h.logout)
}

// onLoop runs fn on the event loop and returns its error.
func (h *Handlers) onLoop(ctx context.Context, fn func() error) error {
	var err error
	if loopErr := h.loop.Do(ctx, func() { err = fn() }); loopErr != nil {
		return loopErr
	}
	return err
}

func withOperation(r *http.Request, op string) context.Context {
	return context.WithValue(r.Context(), contextkeys.OperationKey, op)
}

// --- catalog ---

func (h *Handlers) listProducts(w http.ResponseWriter, r *http.Request) {
	q, err := parseProductQuery(r.URL.Query())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	page, err := h.catalog.Query(withOperation(r, "catalog.query"), q)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, page)
}

func (h *Handlers) getProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.catalog.Product(withOperation(r, "catalog.product"), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, p)
}

func (h *Handlers) listCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.catalog.Categories(withOperation(r, "catalog.categories"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, map[string]any{"categories": append([]string{domain.CategoryAll}, categories...)})
}

func (h *Handlers) refreshCatalog(w http.ResponseWriter, r *http.Request) {
	h.catalog.Refresh(withOperation(r, "catalog.refresh"))
	w.WriteHeader(http.StatusNoContent)
}

func parseProductQuery(values url.Values) (domain.ProductQuery, error) {
	q := domain.ProductQuery{
		FilterCriteria: domain.FilterCriteria{
			Query:    values.Get("query"),
			Category: values.Get("category"),
			SortBy:   domain.SortOption(values.Get("sortBy")),
		},
	}
	switch q.SortBy {
	case "", domain.SortNewest, domain.SortName, domain.SortPrice, domain.SortRating:
	default:
		return q, badRequest("unknown sortBy %q", q.SortBy)
	}

	var err error
	if q.MinPrice, err = optionalDecimal(values, "minPrice"); err != nil {
		return q, err
	}
	if q.MaxPrice, err = optionalDecimal(values, "maxPrice"); err != nil {
		return q, err
	}
	if q.InStockOnly, err = optionalBool(values, "inStock"); err != nil {
		return q, err
	}
	if q.OutOfStockOnly, err = optionalBool(values, "outOfStock"); err != nil {
		return q, err
	}
	if raw := values.Get("minRating"); raw != "" {
		if q.MinRating, err = strconv.ParseFloat(raw, 64); err != nil {
			return q, badRequest("minRating must be a number")
		}
	}
	if q.Page, err = optionalInt(values, "page"); err != nil {
		return q, err
	}
	if q.Limit, err = optionalInt(values, "limit"); err != nil {
		return q, err
	}
	return q, nil
}

func optionalDecimal(values url.Values, name string) (*decimal.Decimal, error) {
	raw := values.Get(name)
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, badRequest("%s must be a decimal number", name)
	}
	return &d, nil
}

func optionalBool(values url.Values, name string) (bool, error) {
	raw := values.Get(name)
	if raw == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, badRequest("%s must be true or false", name)
	}
	return b, nil
}

func optionalInt(values url.Values, name string) (int, error) {
	raw := values.Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, badRequest("%s must be an integer", name)
	}
	return n, nil
}

// --- cart ---

type cartView struct {
	Items     []domain.CartLine `json:"items"`
	ItemCount int               `json:"itemCount"`
	Subtotal  decimal.Decimal   `json:"subtotal"`
}

func (h *Handlers) cartSnapshot() cartView {
	return cartView{Items: h.cart.Lines(), ItemCount: h.cart.ItemCount(), Subtotal: h.cart.Subtotal()}
}

func (h *Handlers) getCart(w http.ResponseWriter, r *http.Request) {
	var view cartView
	if err := h.onLoop(r.Context(), func() error { view = h.cartSnapshot(); return nil }); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, view)
}

type addCartItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

func (h *Handlers) addCartItem(w http.ResponseWriter, r *http.Request) {
	var req addCartItemRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	ctx := withOperation(r, "cart.add")
	product, err := h.catalog.Product(ctx, req.ProductID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var view cartView
	err = h.onLoop(ctx, func() error {
		if err := h.cart.Add(ctx, product.Ref(), req.Quantity); err != nil {
			return err
		}
		view = h.cartSnapshot()
		return nil
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, view)
}

type updateCartItemRequest struct {
	Quantity int `json:"quantity"`
}

func (h *Handlers) updateCartItem(w http.ResponseWriter, r *http.Request) {
	var req updateCartItemRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	ctx := withOperation(r, "cart.update")
	var view cartView
	err := h.onLoop(ctx, func() error {
		if err := h.cart.Update(ctx, r.PathValue("id"), req.Quantity); err != nil {
			return err
		}
		view = h.cartSnapshot()
		return nil
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, view)
}

func (h *Handlers) removeCartItem(w http.ResponseWriter, r *http.Request) {
	ctx := withOperation(r, "cart.remove")
	var view cartView
	err := h.onLoop(ctx, func() error {
		h.cart.Remove(ctx, r.PathValue("id"))
		view = h.cartSnapshot()
		return nil
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, view)
}

func (h *Handlers) clearCart(w http.ResponseWriter, r *http.Request) {
	ctx := withOperation(r, "cart.clear")
	if err := h.onLoop(ctx, func() error { h.cart.Clear(ctx); return nil }); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- wishlist ---

func (h *Handlers) getWishlist(w http.ResponseWriter, r *http.Request) {
	var entries []domain.WishlistEntry
	if err := h.onLoop(r.Context(), func() error { entries = h.wishlist.Entries(); return nil }); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, map[string]any{"items": entries})
}

type addWishlistItemRequest struct {
	ProductID string `json:"productId"`
}

func (h *Handlers) addWishlistItem(w http.ResponseWriter, r *http.Request) {
	var req addWishlistItemRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	ctx := withOperation(r, "wishlist.add")
	product, err := h.catalog.Product(ctx, req.ProductID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var (
		entry domain.WishlistEntry
		added bool
	)
	err = h.onLoop(ctx, func() error {
		var err error
		entry, added, err = h.wishlist.Add(ctx, product.Ref())
		return err
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	status := http.StatusOK
	if added {
		status = http.StatusCreated
	}
	h.respond(w, r, status, map[string]any{"entry": entry, "added": added})
}

func (h *Handlers) removeWishlistItem(w http.ResponseWriter, r *http.Request) {
	ctx := withOperation(r, "wishlist.remove")
	if err := h.onLoop(ctx, func() error { h.wishlist.Remove(ctx, r.PathValue("id")); return nil }); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) moveWishlistItem(w http.ResponseWriter, r *http.Request) {
	ctx := withOperation(r, "wishlist.move_to_cart")
	var view cartView
	err := h.onLoop(ctx, func() error {
		if err := h.wishlist.MoveToCart(ctx, r.PathValue("id"), h.cart); err != nil {
			return err
		}
		view = h.cartSnapshot()
		return nil
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, view)
}

// --- orders ---

func (h *Handlers) listOrders(w http.ResponseWriter, r *http.Request) {
	var orders []domain.Order
	if err := h.onLoop(r.Context(), func() error { orders = h.orders.Orders(); return nil }); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, map[string]any{"orders": orders})
}

func (h *Handlers) quote(w http.ResponseWriter, r *http.Request) {
	discount, err := optionalDecimal(r.URL.Query(), "discount")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	d := decimal.Zero
	if discount != nil {
		d = *discount
	}
	var totals domain.OrderTotals
	if err := h.onLoop(r.Context(), func() error { totals = h.orders.Quote(d); return nil }); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, totals)
}

func (h *Handlers) createOrder(w http.ResponseWriter, r *http.Request) {
	var req domain.OrderRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	ctx := withOperation(r, "orders.create")
	// the order service hops onto the loop itself around the gateway call
	order, err := h.orders.CreateOrder(ctx, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respond(w, r, http.StatusCreated, order)
}

type checkoutRequest struct {
	Addresses     domain.AddressSelection `json:"addresses"`
	PaymentMethod string                  `json:"paymentMethod"`
	Discount      decimal.Decimal         `json:"discount"`
}

func (h *Handlers) checkout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	ctx := withOperation(r, "orders.checkout")
	order, err := h.orders.CheckoutCart(ctx, req.Addresses, req.PaymentMethod, req.Discount)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respond(w, r, http.StatusCreated, order)
}

type updateStatusRequest struct {
	Status domain.OrderStatus `json:"status"`
}

func (h *Handlers) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	ctx := withOperation(r, "orders.update_status")
	order, err := h.orders.UpdateStatus(ctx, r.PathValue("id"), req.Status)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, order)
}

// --- session ---

type sessionView struct {
	Authenticated bool         `json:"authenticated"`
	User          *domain.User `json:"user,omitempty"`
	ExpiresAt     *time.Time   `json:"expiresAt,omitempty"`
}

func viewOf(s domain.Session) sessionView {
	if !s.Authenticated() {
		return sessionView{}
	}
	user, exp := s.User, s.ExpiresAt
	return sessionView{Authenticated: true, User: &user, ExpiresAt: &exp}
}

func (h *Handlers) getSession(w http.ResponseWriter, r *http.Request) {
	var s domain.Session
	if err := h.onLoop(r.Context(), func() error { s = h.session.Current(); return nil }); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, viewOf(s))
}

type loginRequest struct {
	User             domain.User `json:"user"`
	Token            string      `json:"token"`
	ExpiresInSeconds int         `json:"expiresInSeconds"`
}

func (h *Handlers) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	ctx := withOperation(r, "session.login")
	ctx = context.WithValue(ctx, contextkeys.UserIDKey, req.User.ID)
	if strings.TrimSpace(req.Token) != "" {
		ctx = context.WithValue(ctx, contextkeys.TokenFingerprintKey, crypto.Fingerprint(req.Token))
	}
	var s domain.Session
	err := h.onLoop(ctx, func() error {
		var err error
		s, err = h.session.Login(ctx, req.User, req.Token, time.Duration(req.ExpiresInSeconds)*time.Second)
		return err
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, viewOf(s))
}

func (h *Handlers) logout(w http.ResponseWriter, r *http.Request) {
	ctx := withOperation(r, "session.logout")
	if err := h.onLoop(ctx, func() error { h.session.Logout(ctx); return nil }); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
