package workflow

import (
	"bytes"
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/mmdatafocus/retail_ledger_backend/config"
	"github.com/mmdatafocus/retail_ledger_backend/models"
	"github.com/mmdatafocus/retail_ledger_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/mmdatafocus/retail_ledger_backend/workflow")

type Operation string

const (
	OpSell             Operation = "Sell"
	OpRestock          Operation = "Restock"
	OpAddExpense       Operation = "AddExpense"
	OpDistributeProfit Operation = "DistributeProfit"
	OpReverseSale      Operation = "ReverseSale"
	OpAddInventoryItem Operation = "AddInventoryItem"
	OpCreateCategory   Operation = "CreateCategory"
)

// CommitHook runs after an operation has committed. Hooks must not fail the
// operation; they are used for cache invalidation and the like.
type CommitHook func(ctx context.Context, op Operation)

// Engine is the only writer of inventory, category pools, the capital
// structure and the ledger. Every operation validates its request, then runs
// in a single store transaction that locks the rows it touches in the order
// sale, inventory items, categories, capital structure.
type Engine struct {
	store    models.LedgerStore
	logger   *logrus.Logger
	validate *validator.Validate
	newId    func() uuid.UUID
	hooks    []CommitHook
}

type Option func(*Engine)

func WithLogger(logger *logrus.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

func WithCommitHook(hook CommitHook) Option {
	return func(e *Engine) { e.hooks = append(e.hooks, hook) }
}

func WithIdGenerator(fn func() uuid.UUID) Option {
	return func(e *Engine) { e.newId = fn }
}

func NewEngine(store models.LedgerStore, opts ...Option) *Engine {
	e := &Engine{
		store:    store,
		logger:   config.GetLogger(),
		validate: newValidator(),
		newId:    uuid.New,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Store() models.LedgerStore {
	return e.store
}

// EnsureCapitalStructure creates the capital structure row on first start.
func (e *Engine) EnsureCapitalStructure(ctx context.Context, ownerEquity decimal.Decimal) (*models.CapitalStructure, error) {
	if ownerEquity.IsNegative() {
		return nil, utils.NewValidationError("owner equity must not be negative")
	}
	if err := utils.CheckAmount("owner equity", ownerEquity); err != nil {
		return nil, err
	}
	cs, err := e.store.EnsureCapitalStructure(ctx, ownerEquity)
	if err != nil {
		appErr := utils.AsAppError(err, "ensure capital structure")
		config.LogError(e.logger, "workflow", "EnsureCapitalStructure", "EnsureCapitalStructure", ownerEquity.String(), appErr)
		return nil, appErr
	}
	return cs, nil
}

func (e *Engine) execute(ctx context.Context, op Operation, attrs []attribute.KeyValue, fn func(ctx context.Context, tx models.LedgerTx) error) error {
	ctx, correlationId := utils.EnsureCorrelationId(ctx)
	ctx, span := tracer.Start(ctx, "ledger."+string(op), trace.WithAttributes(attrs...))
	defer span.End()

	err := e.store.Atomic(ctx, func(tx models.LedgerTx) error {
		return fn(ctx, tx)
	})
	if err != nil {
		appErr := utils.AsAppError(err, string(op)+" transaction failed")
		span.RecordError(appErr)
		span.SetStatus(codes.Error, appErr.Error())
		e.logFailure(op, correlationId, appErr)
		return appErr
	}
	span.SetStatus(codes.Ok, "")

	for _, hook := range e.hooks {
		hook(ctx, op)
	}
	return nil
}

func (e *Engine) logFailure(op Operation, correlationId string, err *utils.AppError) {
	if e.logger == nil {
		return
	}
	if err.Kind == utils.KindStore {
		config.LogError(e.logger, "workflow", string(op), "Atomic", correlationId, err)
		return
	}
	e.logger.WithFields(logrus.Fields{
		"module":         "workflow",
		"funcName":       string(op),
		"kind":           err.Kind,
		"code":           err.Code,
		"correlation_id": correlationId,
	}).Warn(err.Error())
}

type ledgerEvent struct {
	EventType      models.OutboxEventType `json:"event_type"`
	ReferenceId    string                 `json:"reference_id"`
	Source         string                 `json:"source"`
	CorrelationId  string                 `json:"correlation_id"`
	IdempotencyKey string                 `json:"idempotency_key,omitempty"`
	Data           any                    `json:"data"`
}

// enqueueEvent writes the integration event in the operation's transaction.
func enqueueEvent(ctx context.Context, tx models.LedgerTx, eventType models.OutboxEventType, referenceId string, data any) error {
	correlationId, _ := utils.GetCorrelationIdFromContext(ctx)
	idempotencyKey, _ := utils.GetIdempotencyKeyFromContext(ctx)
	payload, err := utils.MarshalToJSON(ledgerEvent{
		EventType:      eventType,
		ReferenceId:    referenceId,
		Source:         utils.GetRequestSourceFromContext(ctx),
		CorrelationId:  correlationId,
		IdempotencyKey: idempotencyKey,
		Data:           data,
	})
	if err != nil {
		return err
	}
	return tx.EnqueueOutboxEvent(&models.OutboxEvent{
		EventType:     eventType,
		ReferenceId:   referenceId,
		Payload:       payload,
		PublishStatus: models.OutboxPublishStatusPending,
		CorrelationId: correlationId,
	})
}

func compareIds(a, b uuid.UUID) int {
	return bytes.Compare(a[:], b[:])
}

// categoryDelta accumulates the revenue and profit one operation moves into
// or out of a category.
type categoryDelta struct {
	revenue decimal.Decimal
	profit  decimal.Decimal
}

func (d *categoryDelta) add(revenue, profit decimal.Decimal) {
	d.revenue = d.revenue.Add(revenue)
	d.profit = d.profit.Add(profit)
}

func addCategoryDelta(deltas map[uuid.UUID]*categoryDelta, id uuid.UUID, revenue, profit decimal.Decimal) {
	d, ok := deltas[id]
	if !ok {
		d = &categoryDelta{revenue: decimal.Zero, profit: decimal.Zero}
		deltas[id] = d
	}
	d.add(revenue, profit)
}
