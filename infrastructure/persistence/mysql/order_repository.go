package mysql

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"orderlife/domain/order"
	"orderlife/infrastructure/persistence"
	"orderlife/infrastructure/persistence/mysql/po"
)

// OrderRepository MySQL/GORM implementation of the order repository
// DDD principle: Repository is only responsible for persistence of aggregate roots, not event publishing
// GORM usage specification: Association features are prohibited to maintain DDD aggregate boundaries
type OrderRepository struct {
	db *gorm.DB
}

// NewOrderRepository Create order repository
func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) getDB(ctx context.Context) *gorm.DB {
	return persistence.Session(ctx, r.db)
}

func isDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "Duplicate entry") ||
		strings.Contains(errStr, "1062")
}

// NextIdentity Generate new order ID
func (r *OrderRepository) NextIdentity() string {
	return "order-" + uuid.New().String()
}

// Save Save order (create or update)
// Note: Manually manage saving of the order row and its child rows, do not use GORM associations
// When called within UoW.Execute(), it uses the transaction from context
// When called standalone, it creates its own transaction for atomicity
func (r *OrderRepository) Save(ctx context.Context, o *order.Order) error {
	if tx := persistence.TxFromContext(ctx); tx != nil {
		return r.saveWithTx(tx, o)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return r.saveWithTx(tx, o)
	})
}

func (r *OrderRepository) saveWithTx(tx *gorm.DB, o *order.Order) error {
	orderPO, productPOs, pricePOs, payPO := po.FromOrderDomain(o)

	if o.IsNew() {
		if err := tx.Create(orderPO).Error; err != nil {
			if isDuplicateKeyError(err) {
				return order.NewDuplicateSerialError(o.Serial())
			}
			return err
		}
		if err := r.saveChildren(tx, o.ID(), productPOs, pricePOs, payPO); err != nil {
			return err
		}
		o.ClearNewFlag()
		return nil
	}

	expectedVersion := o.Version()

	// Strict optimistic lock: the aggregate's loaded version is the
	// update condition, so a concurrent writer can never be silently
	// overwritten.
	result := tx.Model(&po.OrderPO{}).
		Where("id = ? AND lock_version = ?", o.ID(), expectedVersion).
		Updates(map[string]interface{}{
			"state":               orderPO.State,
			"cancel_reason":       orderPO.CancelReason,
			"auto_cancel_time":    orderPO.AutoCancelTime,
			"expire_receive_time": orderPO.ExpireReceiveTime,
			"total_amount":        orderPO.TotalAmount,
			"total_currency":      orderPO.TotalCurrency,
			"lock_version":        expectedVersion + 1,
			"updated_at":          orderPO.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := tx.Model(&po.OrderPO{}).Where("id = ?", o.ID()).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return order.NewOrderNotFoundError(o.ID())
		}
		return order.NewConcurrentModificationError(o.ID())
	}

	if err := r.saveChildren(tx, o.ID(), productPOs, pricePOs, payPO); err != nil {
		return err
	}

	o.IncrementVersionForSave()
	return nil
}

// saveChildren replaces the child rows (simple strategy: delete then insert)
func (r *OrderRepository) saveChildren(tx *gorm.DB, orderID string, productPOs []po.OrderProductPO, pricePOs []po.OrderPricePO, payPO *po.PayOrderPO) error {
	if err := tx.Where("order_id = ?", orderID).Delete(&po.OrderProductPO{}).Error; err != nil {
		return err
	}
	if len(productPOs) > 0 {
		if err := tx.Create(&productPOs).Error; err != nil {
			return err
		}
	}

	if err := tx.Where("order_id = ?", orderID).Delete(&po.OrderPricePO{}).Error; err != nil {
		return err
	}
	if len(pricePOs) > 0 {
		if err := tx.Create(&pricePOs).Error; err != nil {
			return err
		}
	}

	if payPO != nil {
		if err := tx.Where("order_id = ?", orderID).Delete(&po.PayOrderPO{}).Error; err != nil {
			return err
		}
		if err := tx.Create(payPO).Error; err != nil {
			return err
		}
	}
	return nil
}

// FindByID Find order by ID
func (r *OrderRepository) FindByID(ctx context.Context, id string) (*order.Order, error) {
	db := r.getDB(ctx)
	var orderPO po.OrderPO

	result := db.First(&orderPO, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, order.NewOrderNotFoundError(id)
		}
		return nil, result.Error
	}

	return r.loadAggregate(db, &orderPO)
}

// FindBySerial Find order by its human-facing serial
func (r *OrderRepository) FindBySerial(ctx context.Context, serial string) (*order.Order, error) {
	db := r.getDB(ctx)
	var orderPO po.OrderPO

	result := db.First(&orderPO, "serial = ?", serial)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, order.NewOrderNotFoundError(serial)
		}
		return nil, result.Error
	}

	return r.loadAggregate(db, &orderPO)
}

// loadAggregate manually queries child rows (do not use GORM's Preload to keep aggregate boundaries clear)
func (r *OrderRepository) loadAggregate(db *gorm.DB, orderPO *po.OrderPO) (*order.Order, error) {
	var productPOs []po.OrderProductPO
	if err := db.Where("order_id = ?", orderPO.ID).Find(&productPOs).Error; err != nil {
		return nil, err
	}

	var pricePOs []po.OrderPricePO
	if err := db.Where("order_id = ?", orderPO.ID).Find(&pricePOs).Error; err != nil {
		return nil, err
	}

	var payPO po.PayOrderPO
	payResult := db.First(&payPO, "order_id = ?", orderPO.ID)
	var pay *po.PayOrderPO
	if payResult.Error == nil {
		pay = &payPO
	} else if !errors.Is(payResult.Error, gorm.ErrRecordNotFound) {
		return nil, payResult.Error
	}

	return orderPO.ToDomain(productPOs, pricePOs, pay)
}

func eligibleForCancel(db *gorm.DB, cutoff time.Time) *gorm.DB {
	states := order.CancellableStates()
	strs := make([]string, len(states))
	for i, s := range states {
		strs[i] = string(s)
	}
	return db.Model(&po.OrderPO{}).
		Where("state IN ?", strs).
		Where("auto_cancel_time IS NOT NULL AND auto_cancel_time <= ?", cutoff)
}

// FindEligibleForCancel Page through unpaid orders past their auto-cancel deadline
// The query runs live against current rows; the offset exists so a
// caller can skip past orders that stayed eligible after a failed pass
func (r *OrderRepository) FindEligibleForCancel(ctx context.Context, cutoff time.Time, offset, limit int) ([]*order.Order, error) {
	db := r.getDB(ctx)

	var orderPOs []po.OrderPO
	if err := eligibleForCancel(db, cutoff).
		Order("auto_cancel_time ASC").
		Offset(offset).
		Limit(limit).
		Find(&orderPOs).Error; err != nil {
		return nil, err
	}

	orders := make([]*order.Order, 0, len(orderPOs))
	for i := range orderPOs {
		o, err := r.loadAggregate(db, &orderPOs[i])
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, nil
}

// CountEligibleForCancel Count what FindEligibleForCancel would return at offset zero
func (r *OrderRepository) CountEligibleForCancel(ctx context.Context, cutoff time.Time) (int64, error) {
	var count int64
	if err := eligibleForCancel(r.getDB(ctx), cutoff).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ForEachEligibleReceiptExpiry Stream orders past their receipt deadline in id-keyset batches
// The receipt deadline is armed at payment and only meaningful while
// the order still sits in StatePaid; shipped orders wait for an
// explicit receipt confirmation instead
func (r *OrderRepository) ForEachEligibleReceiptExpiry(ctx context.Context, cutoff time.Time, batchSize int, fn func(*order.Order) error) error {
	db := r.getDB(ctx)
	lastID := ""

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		var orderPOs []po.OrderPO
		if err := db.Model(&po.OrderPO{}).
			Where("state = ?", string(order.StatePaid)).
			Where("expire_receive_time IS NOT NULL AND expire_receive_time <= ?", cutoff).
			Where("id > ?", lastID).
			Order("id ASC").
			Limit(batchSize).
			Find(&orderPOs).Error; err != nil {
			return err
		}
		if len(orderPOs) == 0 {
			return nil
		}

		for i := range orderPOs {
			lastID = orderPOs[i].ID
			o, err := r.loadAggregate(db, &orderPOs[i])
			if err != nil {
				return err
			}
			if err := fn(o); err != nil {
				return err
			}
		}
	}
}

// soldStates count toward real-sales totals.
var soldStates = []string{
	string(order.StatePaid),
	string(order.StatePartShipped),
	string(order.StateShipped),
	string(order.StateReceived),
}

// RealSalesBySKU Aggregate sold quantities per SKU across paid and later-stage orders
func (r *OrderRepository) RealSalesBySKU(ctx context.Context) ([]order.SKUSales, error) {
	var rows []struct {
		SKUID    string `gorm:"column:sku_id"`
		Quantity int64  `gorm:"column:quantity"`
	}
	err := r.getDB(ctx).
		Model(&po.OrderProductPO{}).
		Select("order_products.sku_id AS sku_id, SUM(order_products.quantity) AS quantity").
		Joins("JOIN orders ON orders.id = order_products.order_id").
		Where("orders.state IN ?", soldStates).
		Where("order_products.valid = ?", true).
		Group("order_products.sku_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	totals := make([]order.SKUSales, 0, len(rows))
	for _, row := range rows {
		totals = append(totals, order.SKUSales{SKUID: row.SKUID, Quantity: row.Quantity})
	}
	return totals, nil
}

// ClearSession Drop prepared statement/session state between sweep batches
func (r *OrderRepository) ClearSession() {
	r.db = r.db.Session(&gorm.Session{NewDB: true})
}

// Compile-time interface implementation checks
var (
	_ order.Repository = (*OrderRepository)(nil)
	_ order.SalesQuery = (*OrderRepository)(nil)
)
