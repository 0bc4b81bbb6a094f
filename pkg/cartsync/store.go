package cartsync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

var (
	// ErrOperationInFlight is reported when an action targets a product
	// that already has an authoritative request outstanding.
	ErrOperationInFlight = errors.New("operation already in flight")
	// ErrPromotionInFlight is reported when a promotion mutation is
	// requested while another one is reconciling.
	ErrPromotionInFlight = errors.New("promotion mutation already in flight")
)

const (
	defaultAddDelay    = 200 * time.Millisecond
	defaultUpdateDelay = 300 * time.Millisecond
)

// ProductSummary is the minimal catalog information the store needs for a
// speculative local add. Authoritative prices always come from the server.
type ProductSummary struct {
	ProductID    uint
	Name         string
	Price        float64
	CategoryID   uint
	CategoryName string
}

// ChangeFunc observes every cart transition: optimistic applies, commits
// and rollbacks. The cart passed is a private copy.
type ChangeFunc func(cart *Cart)

// ErrorFunc observes reconciliation failures after the rollback has been
// applied.
type ErrorFunc func(op string, err error)

// Option configures a Store.
type Option func(*Store)

func WithAddDelay(d time.Duration) Option {
	return func(s *Store) { s.addDelay = d }
}

func WithUpdateDelay(d time.Duration) Option {
	return func(s *Store) { s.updateDelay = d }
}

func WithOnChange(fn ChangeFunc) Option {
	return func(s *Store) { s.onChange = fn }
}

func WithOnError(fn ErrorFunc) Option {
	return func(s *Store) { s.onError = fn }
}

// Store is the client-side optimistic cart cache. User actions mutate the
// local cart immediately, then reconcile against the authoritative pricing
// response: commit replaces the whole cart, failure restores the exact
// pre-mutation snapshot.
//
// Per product at most one authoritative request is outstanding. Adds and
// quantity updates for a product share one debounced slot carrying the
// intended final quantity, so a burst of mixed actions produces a single
// request; a flush that comes due while an earlier request for the product
// is still outstanding waits for it to settle. A second action on an
// in-flight product is a no-op. Promotion mutations are serialized. Across
// different products there is no ordering guarantee.
type Store struct {
	api       CartAPI
	debouncer *Debouncer

	addDelay    time.Duration
	updateDelay time.Duration

	mu   sync.Mutex
	cart *Cart
	// Pre-optimistic snapshot per product burst, captured before the
	// first speculative mutation and held until commit or rollback.
	snapshots map[uint]*Cart
	// Intended final line quantity per product with an unsent burst.
	pending  map[uint]int
	inFlight map[uint]bool

	promoInFlight bool
	promoSnapshot *Cart

	onChange ChangeFunc
	onError  ErrorFunc
}

func NewStore(api CartAPI, opts ...Option) *Store {
	s := &Store{
		api:         api,
		debouncer:   NewDebouncer(),
		addDelay:    defaultAddDelay,
		updateDelay: defaultUpdateDelay,
		cart:        &Cart{},
		snapshots:   make(map[uint]*Cart),
		pending:     make(map[uint]int),
		inFlight:    make(map[uint]bool),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load fetches the authoritative cart and replaces the local cache.
func (s *Store) Load(ctx context.Context) error {
	cart, err := s.api.GetCart(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.commitLocked(cart)
	s.mu.Unlock()
	return nil
}

// Cart returns a copy of the currently displayed cart.
func (s *Store) Cart() *Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Clone()
}

// IsInFlight reports whether productID has an outstanding request.
func (s *Store) IsInFlight(productID uint) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight[productID]
}

// Close cancels all pending debounced operations.
func (s *Store) Close() {
	s.debouncer.Stop()
}

// AddItem speculatively adds quantity units of the product and schedules
// the authoritative request. Rapid adds and quantity updates for the same
// product within the debounce window coalesce into one request carrying
// the final intended quantity.
func (s *Store) AddItem(ctx context.Context, product ProductSummary, quantity int) error {
	if quantity <= 0 {
		return fmt.Errorf("quantity must be positive")
	}

	s.mu.Lock()
	if s.inFlight[product.ProductID] {
		s.mu.Unlock()
		return ErrOperationInFlight
	}
	s.ensureSnapshotLocked(product.ProductID)
	s.applyLocalAdd(product, quantity)
	if item := s.cart.FindItem(product.ProductID); item != nil {
		s.pending[product.ProductID] = item.Quantity
	}
	cartCopy := s.cart.Clone()
	s.mu.Unlock()

	s.notifyChange(cartCopy)

	s.scheduleFlush(ctx, product.ProductID, s.addDelay)
	return nil
}

// UpdateQuantity speculatively sets the line quantity and schedules the
// authoritative request. Successive actions within the debounce window
// collapse into one request carrying only the final quantity; quantity
// zero removes the line.
func (s *Store) UpdateQuantity(ctx context.Context, productID uint, quantity int) error {
	if quantity < 0 {
		return fmt.Errorf("quantity must not be negative")
	}

	s.mu.Lock()
	if s.inFlight[productID] {
		s.mu.Unlock()
		return ErrOperationInFlight
	}
	if _, burst := s.pending[productID]; !burst && s.cart.FindItem(productID) == nil {
		// No such line and nothing pending for it.
		s.mu.Unlock()
		return nil
	}
	s.ensureSnapshotLocked(productID)
	s.applyLocalQuantity(productID, quantity)
	s.pending[productID] = quantity
	cartCopy := s.cart.Clone()
	s.mu.Unlock()

	s.notifyChange(cartCopy)

	s.scheduleFlush(ctx, productID, s.updateDelay)
	return nil
}

// RemoveItem speculatively drops the line and reconciles immediately.
// Removal is deliberate enough that it is not debounced.
func (s *Store) RemoveItem(ctx context.Context, productID uint) error {
	s.mu.Lock()
	if s.inFlight[productID] {
		s.mu.Unlock()
		return ErrOperationInFlight
	}
	// A pending debounced op for this product is superseded.
	s.debouncer.Cancel(opKey(productID))
	delete(s.pending, productID)

	s.ensureSnapshotLocked(productID)
	s.applyLocalQuantity(productID, 0)
	s.inFlight[productID] = true
	cartCopy := s.cart.Clone()
	s.mu.Unlock()

	s.notifyChange(cartCopy)

	go s.reconcile(productID, "remove_item", func() (*Cart, error) {
		return s.api.RemoveItem(ctx, productID)
	})
	return nil
}

// ApplyPromotion speculatively marks the promotion as applied and
// reconciles immediately. Only one promotion mutation may be in flight;
// a concurrent request is rejected, not queued.
func (s *Store) ApplyPromotion(ctx context.Context, code string) error {
	s.mu.Lock()
	if s.promoInFlight {
		s.mu.Unlock()
		return ErrPromotionInFlight
	}
	s.promoInFlight = true
	s.promoSnapshot = s.cart.Clone()

	// Savings are unknown until the server answers; only the gating
	// flags flip speculatively.
	s.cart.PromotionCode = code
	s.cart.HasPromotionApplied = true
	s.cart.CanApplyPromotion = false
	cartCopy := s.cart.Clone()
	s.mu.Unlock()

	s.notifyChange(cartCopy)

	go func() {
		cart, _, err := s.api.ApplyPromotion(ctx, code)
		s.finishPromotion("apply_promotion", cart, err)
	}()
	return nil
}

// RemovePromotion speculatively clears the promotion and reconciles
// immediately.
func (s *Store) RemovePromotion(ctx context.Context) error {
	s.mu.Lock()
	if s.promoInFlight {
		s.mu.Unlock()
		return ErrPromotionInFlight
	}
	s.promoInFlight = true
	s.promoSnapshot = s.cart.Clone()

	s.cart.PromotionCode = ""
	s.cart.PromotionName = ""
	s.cart.HasPromotionApplied = false
	s.cart.PromotionDiscount = 0
	s.cart.CanApplyPromotion = len(s.cart.Items) > 0
	s.recalcLocalLocked()
	cartCopy := s.cart.Clone()
	s.mu.Unlock()

	s.notifyChange(cartCopy)

	go func() {
		cart, err := s.api.RemovePromotion(ctx)
		s.finishPromotion("remove_promotion", cart, err)
	}()
	return nil
}

// Refresh re-derives prices against the current catalog and replaces the
// local cart.
func (s *Store) Refresh(ctx context.Context) error {
	cart, err := s.api.RefreshPrices(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.commitLocked(cart)
	cartCopy := s.cart.Clone()
	s.mu.Unlock()
	s.notifyChange(cartCopy)
	return nil
}

// ReplaceCart installs an authoritative cart pushed by the server (e.g.
// over the cart sync WebSocket).
func (s *Store) ReplaceCart(cart *Cart) {
	if cart == nil {
		return
	}
	s.mu.Lock()
	s.commitLocked(cart)
	cartCopy := s.cart.Clone()
	s.mu.Unlock()
	s.notifyChange(cartCopy)
}

func (s *Store) scheduleFlush(ctx context.Context, productID uint, delay time.Duration) {
	s.debouncer.Do(opKey(productID), delay, func() {
		s.flush(ctx, productID, delay)
	})
}

// flush sends the pending intent for a product. A flush that comes due
// while an earlier request for the product is still outstanding re-arms
// itself and runs once that request has settled.
func (s *Store) flush(ctx context.Context, productID uint, delay time.Duration) {
	s.mu.Lock()
	if s.inFlight[productID] {
		s.mu.Unlock()
		s.scheduleFlush(ctx, productID, delay)
		return
	}
	quantity, ok := s.pending[productID]
	if !ok {
		s.mu.Unlock()
		return
	}
	delete(s.pending, productID)

	snapshot := s.snapshots[productID]
	lineExisted := snapshot != nil && snapshot.FindItem(productID) != nil
	if quantity == 0 && !lineExisted {
		// The line never reached the server; nothing to reconcile.
		delete(s.snapshots, productID)
		s.mu.Unlock()
		return
	}
	s.inFlight[productID] = true
	s.mu.Unlock()

	if lineExisted {
		s.reconcile(productID, "update_quantity", func() (*Cart, error) {
			return s.api.UpdateItem(ctx, productID, quantity)
		})
	} else {
		s.reconcile(productID, "add_to_cart", func() (*Cart, error) {
			return s.api.AddToCart(ctx, productID, quantity)
		})
	}
}

// reconcile runs the authoritative call for a product outside the store
// mutex, then commits or rolls back. The caller has already marked the
// product in flight.
func (s *Store) reconcile(productID uint, op string, call func() (*Cart, error)) {
	cart, err := call()

	s.mu.Lock()
	delete(s.inFlight, productID)
	if err != nil {
		if snapshot, ok := s.snapshots[productID]; ok {
			s.cart = snapshot
		}
		delete(s.snapshots, productID)
		cartCopy := s.cart.Clone()
		s.mu.Unlock()

		s.notifyError(op, err)
		s.notifyChange(cartCopy)
		return
	}

	delete(s.snapshots, productID)
	s.commitLocked(cart)
	cartCopy := s.cart.Clone()
	s.mu.Unlock()

	s.notifyChange(cartCopy)
}

func (s *Store) finishPromotion(op string, cart *Cart, err error) {
	s.mu.Lock()
	s.promoInFlight = false
	if err != nil {
		if s.promoSnapshot != nil {
			s.cart = s.promoSnapshot
		}
		s.promoSnapshot = nil
		cartCopy := s.cart.Clone()
		s.mu.Unlock()

		s.notifyError(op, err)
		s.notifyChange(cartCopy)
		return
	}

	s.promoSnapshot = nil
	s.commitLocked(cart)
	cartCopy := s.cart.Clone()
	s.mu.Unlock()

	s.notifyChange(cartCopy)
}

// commitLocked wholesale-replaces the local cart with the authoritative
// one. Never merges.
func (s *Store) commitLocked(cart *Cart) {
	if cart == nil {
		cart = &Cart{}
	}
	s.cart = cart.Clone()
}

// ensureSnapshotLocked captures the pre-mutation cart for a product burst.
// Later actions in the same burst keep the original snapshot so a rollback
// restores the cart from before the first speculative change.
func (s *Store) ensureSnapshotLocked(productID uint) {
	if _, ok := s.snapshots[productID]; !ok {
		s.snapshots[productID] = s.cart.Clone()
	}
}

// applyLocalAdd is the speculative add. Exact discount math is not
// reproduced client-side; existing savings are carried and the new units
// are priced at the catalog rate until the server answers.
func (s *Store) applyLocalAdd(product ProductSummary, quantity int) {
	if item := s.cart.FindItem(product.ProductID); item != nil {
		item.Quantity += quantity
		item.PaidQuantity = item.Quantity - item.FreeFromMembership
	} else {
		s.cart.Items = append(s.cart.Items, Item{
			ProductID:       product.ProductID,
			ProductName:     product.Name,
			Quantity:        quantity,
			OriginalPrice:   product.Price,
			RegularPrice:    product.Price,
			MembershipPrice: product.Price,
			PromotionPrice:  product.Price,
			FinalPrice:      product.Price,
			PaidQuantity:    quantity,
			CategoryID:      product.CategoryID,
			CategoryName:    product.CategoryName,
		})
	}
	s.recalcLocalLocked()
}

// applyLocalQuantity is the speculative set-quantity; zero removes the
// line.
func (s *Store) applyLocalQuantity(productID uint, quantity int) {
	if quantity == 0 {
		items := s.cart.Items[:0]
		for _, item := range s.cart.Items {
			if item.ProductID != productID {
				items = append(items, item)
			}
		}
		s.cart.Items = items
	} else if item := s.cart.FindItem(productID); item != nil {
		item.Quantity = quantity
		if item.FreeFromMembership > quantity {
			item.FreeFromMembership = quantity
		}
		item.PaidQuantity = quantity - item.FreeFromMembership
	}
	s.recalcLocalLocked()
}

// recalcLocalLocked recomputes the aggregates a user watches while a
// mutation is in flight. Aggregate discounts are carried from the last
// authoritative cart; the server response replaces everything shortly.
func (s *Store) recalcLocalLocked() {
	cart := s.cart

	var subtotal float64
	totalItems, freeItems := 0, 0
	for i := range cart.Items {
		item := &cart.Items[i]
		subtotal += item.RegularPrice * float64(item.Quantity)
		totalItems += item.Quantity
		freeItems += item.FreeFromMembership
	}
	cart.Subtotal = subtotal
	cart.TotalItems = totalItems
	cart.FreeItems = freeItems
	cart.PaidItems = totalItems - freeItems

	total := subtotal - cart.MembershipDiscount - cart.PromotionDiscount +
		cart.ShippingAmount + cart.TaxAmount
	if total < 0 {
		total = 0
	}
	cart.FinalTotal = total
}

func (s *Store) notifyChange(cart *Cart) {
	if s.onChange != nil {
		s.onChange(cart)
	}
}

func (s *Store) notifyError(op string, err error) {
	if s.onError != nil {
		s.onError(op, err)
	}
}

func opKey(productID uint) string {
	return fmt.Sprintf("op:%d", productID)
}
