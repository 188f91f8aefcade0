package workflow

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/mmdatafocus/retail_ledger_backend/models"
	"github.com/mmdatafocus/retail_ledger_backend/utils"
	"github.com/shopspring/decimal"
)

type SellLine struct {
	InventoryId uuid.UUID `json:"inventory_id" validate:"required"`
	Quantity    int       `json:"quantity" validate:"gt=0,lte=1000000000"`
}

type SellRequest struct {
	Items []SellLine `json:"items" validate:"required,min=1,dive"`
}

type SellResult struct {
	SaleId uuid.UUID    `json:"sale_id"`
	Sale   *models.Sale `json:"sale"`
}

type RestockRequest struct {
	InventoryId uuid.UUID `json:"inventory_id" validate:"required"`
	Quantity    int       `json:"quantity" validate:"gt=0,lte=1000000000"`
}

type RestockResult struct {
	Item    *models.InventoryItem `json:"item"`
	Expense *models.Expense       `json:"expense"`
}

type AddExpenseRequest struct {
	Amount      decimal.Decimal    `json:"amount" validate:"gt=0"`
	ExpenseType models.ExpenseType `json:"expense_type" validate:"required,oneof=operating stock_purchase"`
	CategoryId  *uuid.UUID         `json:"category_id"`
	Note        string             `json:"note" validate:"max=2000"`
}

type DistributeProfitRequest struct {
	Amount        decimal.Decimal `json:"amount" validate:"gt=0"`
	DistributedTo string          `json:"distributed_to" validate:"required,max=255"`
}

type ReverseSaleRequest struct {
	SaleId uuid.UUID `json:"sale_id" validate:"required"`
	Reason string    `json:"reason" validate:"required,max=2000"`
}

type ReverseSaleResult struct {
	Sale    *models.Sale         `json:"sale"`
	Archive *models.SalesArchive `json:"archive"`
}

type AddInventoryItemRequest struct {
	Sku          string          `json:"sku" validate:"required,max=100"`
	Name         string          `json:"name" validate:"required,max=255"`
	CostPrice    decimal.Decimal `json:"cost_price" validate:"gte=0"`
	SellingPrice decimal.Decimal `json:"selling_price" validate:"gte=0"`
	MinimumStock int             `json:"minimum_stock" validate:"gte=0,lte=1000000000"`
	CategoryId   uuid.UUID       `json:"category_id" validate:"required"`
}

type CreateCategoryRequest struct {
	Name             string          `json:"name" validate:"required,max=255"`
	AllocatedCapital decimal.Decimal `json:"allocated_capital" validate:"gte=0"`
}

func newValidator() *validator.Validate {
	v := validator.New()
	// Report json field names, e.g. items[0].quantity.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	// Money is compared as float64 by gt/gte; the engine itself never uses the float.
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	// The nil UUID counts as missing for "required".
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if id, ok := field.Interface().(uuid.UUID); ok && id != uuid.Nil {
			return id.String()
		}
		return ""
	}, uuid.UUID{})
	return v
}

func (e *Engine) validateStruct(req any) error {
	err := e.validate.Struct(req)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		msgs := make([]string, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			msgs = append(msgs, describeFieldError(fe))
		}
		return utils.NewValidationError("%s", strings.Join(msgs, "; "))
	}
	return utils.NewValidationError("invalid request: %v", err)
}

func describeFieldError(fe validator.FieldError) string {
	field := fe.Namespace()
	// drop the request type name
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s must contain at least %s entries", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	}
	return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
}

// mergeSellLines sums quantities per inventory item and orders the lines by
// item id, which is also the lock order. A merged quantity is held to the
// same bound as a single line.
func mergeSellLines(lines []SellLine) ([]SellLine, error) {
	byId := make(map[uuid.UUID]int, len(lines))
	for _, l := range lines {
		if l.Quantity <= 0 || l.Quantity > models.MaxQuantity-byId[l.InventoryId] {
			return nil, utils.NewValidationError("quantity for inventory item %s must be between 1 and %d",
				l.InventoryId, models.MaxQuantity)
		}
		byId[l.InventoryId] += l.Quantity
	}
	merged := make([]SellLine, 0, len(byId))
	for _, id := range utils.SortedKeys(byId, compareIds) {
		merged = append(merged, SellLine{InventoryId: id, Quantity: byId[id]})
	}
	return merged, nil
}
