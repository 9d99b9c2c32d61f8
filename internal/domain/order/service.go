package order

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/thacbaonguyen/neki-ecommerce-sub000/internal/domain/cart"
	"github.com/thacbaonguyen/neki-ecommerce-sub000/internal/domain/catalog"
	"github.com/thacbaonguyen/neki-ecommerce-sub000/internal/domain/discount"
	"github.com/thacbaonguyen/neki-ecommerce-sub000/internal/domain/inventory"
	"github.com/thacbaonguyen/neki-ecommerce-sub000/internal/domain/shipping"
)

// MaxReorderQuantity caps line quantities on the re-order path. The
// checkout paths use inventory.MaxLineQuantity; the two bounds are distinct
// on purpose.
const MaxReorderQuantity = 10

// maxNumberAttempts bounds the generate-and-retry loop for order numbers.
const maxNumberAttempts = 5

// ErrItemNotInCart is returned when a selected-items checkout references a
// variant that is not in the caller's cart.
var ErrItemNotInCart = errors.New("item is not in the cart")

// ItemRequest is one requested (variant, quantity) pair.
type ItemRequest struct {
	VariantID int64
	Quantity  int
}

// CheckoutRequest carries the caller-supplied order parameters shared by
// every checkout path.
type CheckoutRequest struct {
	UserID          int64
	Address         Address
	PaymentMethodID int64
	DiscountCode    string
	Note            string
}

// CheckoutResult is a successfully placed order plus the gateway checkout
// link for gateway-based payment methods (empty for COD).
type CheckoutResult struct {
	Order       *Order
	PaymentLink string
}

// Service is the checkout orchestrator. It composes the catalog, cart,
// inventory ledger, discount engine, shipping policy, and payment boundary
// into the order-creation unit of work.
type Service struct {
	uow       UnitOfWork
	orders    Repository
	carts     cart.Repository
	catalog   catalog.Repository
	ledger    inventory.Ledger
	discounts *discount.Engine
	shipping  shipping.FeeCalculator
	payments  PaymentBoundary
	sm        *StateMachine

	// gatewayMethods lists payment method IDs that require a checkout link
	// from the external gateway; everything else is treated as COD.
	gatewayMethods map[int64]struct{}

	now func() time.Time
}

// NewService wires the checkout orchestrator.
func NewService(
	uow UnitOfWork,
	orders Repository,
	carts cart.Repository,
	cat catalog.Repository,
	ledger inventory.Ledger,
	discounts *discount.Engine,
	ship shipping.FeeCalculator,
	payments PaymentBoundary,
	sm *StateMachine,
	gatewayMethodIDs []int64,
) *Service {
	gw := make(map[int64]struct{}, len(gatewayMethodIDs))
	for _, id := range gatewayMethodIDs {
		gw[id] = struct{}{}
	}
	return &Service{
		uow:            uow,
		orders:         orders,
		carts:          carts,
		catalog:        cat,
		ledger:         ledger,
		discounts:      discounts,
		shipping:       ship,
		payments:       payments,
		sm:             sm,
		gatewayMethods: gw,
		now:            time.Now,
	}
}

// CreateFromCart builds an order from every line of the caller's cart and
// clears the cart in the same unit of work.
func (s *Service) CreateFromCart(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error) {
	items, err := s.carts.ItemsByUser(ctx, req.UserID)
	if err != nil {
		return nil, errors.Wrap(err, "load cart")
	}
	if len(items) == 0 {
		return nil, ErrCartEmpty
	}

	lines := make([]ItemRequest, len(items))
	for i, it := range items {
		lines[i] = ItemRequest{VariantID: it.VariantID, Quantity: it.Quantity}
	}

	return s.checkout(ctx, req, lines, inventory.MaxLineQuantity, func(ctx context.Context) error {
		return s.carts.Clear(ctx, req.UserID)
	})
}

// CreateFromSelectedItems builds an order from a caller-supplied subset of
// cart lines. Each requested variant must currently be in the cart. Only
// the ordered variants are removed from the cart afterwards.
func (s *Service) CreateFromSelectedItems(ctx context.Context, req CheckoutRequest, items []ItemRequest) (*CheckoutResult, error) {
	if len(items) == 0 {
		return nil, ErrCartEmpty
	}

	inCart, err := s.carts.ItemsByUser(ctx, req.UserID)
	if err != nil {
		return nil, errors.Wrap(err, "load cart")
	}
	cartVariants := make(map[int64]struct{}, len(inCart))
	for _, it := range inCart {
		cartVariants[it.VariantID] = struct{}{}
	}

	ordered := make([]int64, len(items))
	for i, it := range items {
		if _, ok := cartVariants[it.VariantID]; !ok {
			return nil, errors.Wrapf(ErrItemNotInCart, "variant %d", it.VariantID)
		}
		ordered[i] = it.VariantID
	}

	return s.checkout(ctx, req, items, inventory.MaxLineQuantity, func(ctx context.Context) error {
		return s.carts.RemoveVariants(ctx, req.UserID, ordered)
	})
}

// BuyNow builds a single-item order bypassing the cart entirely.
func (s *Service) BuyNow(ctx context.Context, req CheckoutRequest, item ItemRequest) (*CheckoutResult, error) {
	return s.checkout(ctx, req, []ItemRequest{item}, inventory.MaxLineQuantity, nil)
}

// ReOrder re-validates availability for every item of a prior order owned
// by the caller and places a new order with the same delivery address and
// payment method. Discounts are not re-applied.
func (s *Service) ReOrder(ctx context.Context, userID, orderID int64) (*CheckoutResult, error) {
	prev, err := s.OrderForUser(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}

	lines := make([]ItemRequest, len(prev.Items))
	for i, it := range prev.Items {
		lines[i] = ItemRequest{VariantID: it.VariantID, Quantity: it.Quantity}
	}

	req := CheckoutRequest{
		UserID:          userID,
		Address:         prev.Address,
		PaymentMethodID: prev.PaymentMethodID,
	}
	return s.checkout(ctx, req, lines, MaxReorderQuantity, nil)
}

// CancelOrder cancels an order still in a cancellable status, returning its
// stock and appending the reason to the order note. A second cancel attempt
// fails with ErrInvalidTransition via the state machine.
func (s *Service) CancelOrder(ctx context.Context, userID, orderID int64, reason string) error {
	o, err := s.OrderForUser(ctx, userID, orderID)
	if err != nil {
		return err
	}
	if !o.CanCancel() {
		if o.Status == StatusCancelled {
			return &InvalidTransitionError{From: o.Status, To: StatusCancelled}
		}
		return ErrNotCancellable
	}

	return s.uow.WithinTx(ctx, func(ctx context.Context) error {
		if reason != "" {
			note := fmt.Sprintf("cancelled: %s", reason)
			if err := s.orders.AppendNote(ctx, o.ID, note); err != nil {
				return errors.Wrap(err, "append cancellation note")
			}
		}
		return s.sm.Apply(ctx, o, StatusCancelled)
	})
}

// UpdateStatus applies an operator-driven transition. The COD confirmation
// path (PENDING -> CONFIRMED) deducts stock through the state machine
// exactly like the gateway success path.
func (s *Service) UpdateStatus(ctx context.Context, orderID int64, to Status) error {
	o, err := s.orders.ByID(ctx, orderID)
	if err != nil {
		return err
	}
	return s.uow.WithinTx(ctx, func(ctx context.Context) error {
		return s.sm.Apply(ctx, o, to)
	})
}

// BulkUpdateStatus applies the same transition to many orders, skipping any
// order whose current status does not permit it. Returns the updated IDs.
func (s *Service) BulkUpdateStatus(ctx context.Context, ids []int64, to Status) ([]int64, error) {
	return s.sm.ApplyBulk(ctx, ids, to)
}

// OrderForUser loads an order and enforces ownership.
func (s *Service) OrderForUser(ctx context.Context, userID, orderID int64) (*Order, error) {
	o, err := s.orders.ByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		return nil, ErrAccessDenied
	}
	return o, nil
}

// GenerateOrderNumber produces a numeric order identifier: a minute-coarse
// timestamp widened by a six-digit random suffix. Collisions are possible
// and are handled by the checkout retry loop, never surfaced to callers.
func (s *Service) GenerateOrderNumber() int64 {
	return s.now().Unix()/60*1_000_000 + rand.Int64N(1_000_000)
}

type pricedLine struct {
	variantID int64
	quantity  int
	unitPrice decimal.Decimal
}

// price loads and validates every requested line, capturing unit prices.
func (s *Service) price(ctx context.Context, lines []ItemRequest, qtyLimit int) ([]pricedLine, decimal.Decimal, error) {
	priced := make([]pricedLine, len(lines))
	total := decimal.Zero

	for i, line := range lines {
		if err := inventory.CheckQuantity(line.Quantity, qtyLimit); err != nil {
			return nil, decimal.Zero, err
		}

		v, err := s.catalog.VariantByID(ctx, line.VariantID)
		if err != nil {
			return nil, decimal.Zero, errors.Wrapf(err, "variant %d", line.VariantID)
		}
		p, err := s.catalog.ProductByID(ctx, v.ProductID)
		if err != nil {
			return nil, decimal.Zero, errors.Wrapf(err, "product %d", v.ProductID)
		}
		if !p.IsActive {
			return nil, decimal.Zero, &InactiveProductError{ProductID: p.ID}
		}

		// Early availability check. The authoritative guard is the atomic
		// reserve inside the transaction; this only fails obvious cases
		// before any work is done.
		rec, err := s.ledger.Get(ctx, line.VariantID)
		if err != nil {
			return nil, decimal.Zero, errors.Wrapf(err, "stock for variant %d", line.VariantID)
		}
		if rec.Available() < line.Quantity {
			return nil, decimal.Zero, &inventory.InsufficientStockError{
				VariantID: line.VariantID,
				Requested: line.Quantity,
				Available: rec.Available(),
			}
		}

		unit := v.UnitPrice(*p)
		priced[i] = pricedLine{variantID: line.VariantID, quantity: line.Quantity, unitPrice: unit}
		total = total.Add(unit.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}

	return priced, total, nil
}

// checkout is the shared order-construction core: price, fee, discount,
// persist, reserve, record usage, create payment. Everything after pricing
// runs inside one unit of work; a failure reserving line k rolls back the
// order, its items, earlier reservations, and the discount usage.
func (s *Service) checkout(
	ctx context.Context,
	req CheckoutRequest,
	lines []ItemRequest,
	qtyLimit int,
	postPersist func(ctx context.Context) error,
) (*CheckoutResult, error) {
	priced, total, err := s.price(ctx, lines, qtyLimit)
	if err != nil {
		return nil, err
	}

	fee := s.shipping.Calculate(req.Address.District, req.Address.Ward, total)

	for attempt := 0; attempt < maxNumberAttempts; attempt++ {
		o := &Order{
			Number:          s.GenerateOrderNumber(),
			UserID:          req.UserID,
			Status:          StatusPending,
			Address:         req.Address,
			PaymentMethodID: req.PaymentMethodID,
			Note:            req.Note,
		}
		o.Items = make([]Item, len(priced))
		for i, pl := range priced {
			o.Items[i] = Item{VariantID: pl.variantID, Quantity: pl.quantity, UnitPrice: pl.unitPrice}
		}

		var link string
		err = s.uow.WithinTx(ctx, func(ctx context.Context) error {
			var d *discount.Discount
			discountAmount := decimal.Zero
			shipFee := fee

			if req.DiscountCode != "" {
				// Row-locked validation: racing requests for the last usage
				// slot serialize here.
				d, err = s.discounts.ValidateAndGet(ctx, req.DiscountCode, req.UserID, total)
				if err != nil {
					return err
				}
				val, err := s.discounts.Compute(d, total, fee)
				if err != nil {
					return err
				}
				discountAmount = val.AmountOff
				shipFee = fee.Sub(val.ShipOff)
				if shipFee.IsNegative() {
					shipFee = decimal.Zero
				}
			}

			o.TotalAmount = total
			o.ShippingFee = shipFee
			o.DiscountAmount = discountAmount
			o.FinalAmount = total.Add(shipFee).Sub(discountAmount)

			if err := s.orders.Create(ctx, o); err != nil {
				return err
			}

			for _, it := range o.Items {
				if err := s.ledger.Reserve(ctx, it.VariantID, it.Quantity); err != nil {
					return errors.Wrapf(err, "reserve variant %d", it.VariantID)
				}
			}

			if d != nil {
				if err := s.discounts.RecordUsage(ctx, d, req.UserID, o.ID); err != nil {
					return err
				}
			}

			if postPersist != nil {
				if err := postPersist(ctx); err != nil {
					return err
				}
			}

			_, wantLink := s.gatewayMethods[req.PaymentMethodID]
			link, err = s.payments.Create(ctx, o, wantLink)
			if err != nil {
				return errors.Wrap(err, "create payment")
			}
			return nil
		})
		if errors.Is(err, ErrNumberConflict) {
			continue
		}
		if err != nil {
			return nil, err
		}

		return &CheckoutResult{Order: o, PaymentLink: link}, nil
	}

	return nil, errors.Wrap(ErrNumberConflict, "order number generation exhausted retries")
}
