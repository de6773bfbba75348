package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"stockino/internal/model"
	"stockino/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StockEventPublisher fans a payload out to the live clients of one organization.
type StockEventPublisher interface {
	PublishToOrganization(orgID string, payload []byte)
}

// InventoryEvent is the websocket payload.
type InventoryEvent struct {
	Event string                 `json:"event"`
	Data  map[string]interface{} `json:"data"`
}

const EventStockUpdated = "stock.updated"

// LedgerSettings configures how quantities map to statuses.
type LedgerSettings struct {
	LowStockThreshold int
	StickyArchived    bool
}

func (s LedgerSettings) rule() repository.StockRule {
	threshold := s.LowStockThreshold
	if threshold < 1 {
		threshold = model.DefaultLowStockThreshold
	}
	return repository.StockRule{LowStockThreshold: threshold, StickyArchived: s.StickyArchived}
}

// stockLedger is the only writer of product quantities.
type stockLedger struct {
	productRepo  repository.ProductRepository
	movementRepo repository.StockMovementRepository
	settings     LedgerSettings
	publisher    StockEventPublisher
}

func newStockLedger(productRepo repository.ProductRepository, movementRepo repository.StockMovementRepository, settings LedgerSettings, publisher StockEventPublisher) *stockLedger {
	return &stockLedger{productRepo: productRepo, movementRepo: movementRepo, settings: settings, publisher: publisher}
}

// apply changes one product's quantity by delta and records the movement. It must
// run inside the caller's transaction so a later failure undoes it.
func (l *stockLedger) apply(ctx context.Context, orgID, productID uuid.UUID, delta int, sourceType string, sourceID uuid.UUID) (*model.Product, error) {
	product, applied, err := l.productRepo.ApplyDelta(ctx, orgID, productID, delta, l.settings.rule())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("product", productID)
		}
		return nil, fmt.Errorf("failed to update stock: %w", err)
	}
	if !applied {
		return nil, &InsufficientStockError{
			ProductID:   product.ID,
			ProductName: product.Name,
			Requested:   -delta,
			Available:   product.Quantity,
		}
	}

	if err := l.record(ctx, product, delta, sourceType, sourceID); err != nil {
		return nil, err
	}
	return product, nil
}

// adjustTo sets a product to target, provided its stored quantity is still the
// expected value the caller based the edit on. A stale expectation is rejected
// rather than overwriting stock that moved in between.
func (l *stockLedger) adjustTo(ctx context.Context, orgID, productID uuid.UUID, expected, target int) (*model.Product, error) {
	product, applied, err := l.productRepo.SetQuantity(ctx, orgID, productID, expected, target, l.settings.rule())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("product", productID)
		}
		return nil, fmt.Errorf("failed to update stock: %w", err)
	}
	if !applied {
		return nil, invalid("stock for %s is now %d, not %d; reload the product and retry", product.Name, product.Quantity, expected)
	}
	if err := l.record(ctx, product, target-expected, model.SourceAdjustment, productID); err != nil {
		return nil, err
	}
	return product, nil
}

func (l *stockLedger) record(ctx context.Context, product *model.Product, delta int, sourceType string, sourceID uuid.UUID) error {
	movement := &model.StockMovement{
		OrganizationID:  product.OrganizationID,
		ProductID:       product.ID,
		SourceType:      sourceType,
		SourceID:        sourceID,
		Direction:       directionOf(delta),
		QuantityChanged: delta,
		StockAfter:      product.Quantity,
	}
	if err := l.movementRepo.Create(ctx, movement); err != nil {
		return fmt.Errorf("failed to record stock movement: %w", err)
	}
	return nil
}

// publish announces committed stock changes. It never fails the caller.
func (l *stockLedger) publish(orgID uuid.UUID, products []*model.Product) {
	if l.publisher == nil {
		return
	}
	for _, p := range products {
		payload, err := json.Marshal(InventoryEvent{
			Event: EventStockUpdated,
			Data: map[string]interface{}{
				"product_id": p.ID.String(),
				"quantity":   p.Quantity,
				"status":     p.Status,
			},
		})
		if err != nil {
			log.Printf("stock event marshal failed: %v", err)
			continue
		}
		l.publisher.PublishToOrganization(orgID.String(), payload)
	}
}

// demand sums requested quantities per product so duplicate lines are checked together.
func demand(lines []lineInput) (map[uuid.UUID]int, []uuid.UUID) {
	totals := make(map[uuid.UUID]int, len(lines))
	order := make([]uuid.UUID, 0, len(lines))
	for _, l := range lines {
		if _, seen := totals[l.productID]; !seen {
			order = append(order, l.productID)
		}
		totals[l.productID] += l.quantity
	}
	return totals, order
}

// lineInput is a parsed item line shared by sales and receipts.
type lineInput struct {
	productID uuid.UUID
	quantity  int
}

// loadOwnedProducts returns the requested products keyed by id, failing with a
// ValidationError when any id is unknown or belongs to another organization.
func loadOwnedProducts(ctx context.Context, repo repository.ProductRepository, orgID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]model.Product, error) {
	products, err := repo.FindByIDs(ctx, orgID, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}
	byID := make(map[uuid.UUID]model.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	if len(byID) != len(ids) {
		return nil, invalid("one or more products were not found or do not belong to your organization")
	}
	return byID, nil
}

// checkAvailability is the early, snapshot-based sufficiency check. The atomic
// update in apply re-checks it under concurrency.
func checkAvailability(products map[uuid.UUID]model.Product, totals map[uuid.UUID]int, order []uuid.UUID) error {
	for _, id := range order {
		p := products[id]
		if p.Quantity < totals[id] {
			return &InsufficientStockError{ProductID: id, ProductName: p.Name, Requested: totals[id], Available: p.Quantity}
		}
	}
	return nil
}
