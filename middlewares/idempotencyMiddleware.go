package middlewares

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/bsm/redislock"
	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/retail_ledger_backend/config"
	"github.com/mmdatafocus/retail_ledger_backend/utils"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	IdempotencyKeyHeader    = "Idempotency-Key"
	IdempotentReplayHeader  = "Idempotent-Replayed"
	maxIdempotencyKeyLength = 255
)

var ErrRequestInProgress = errors.New("request with this idempotency key is in progress")

// StoredResponse is what gets replayed for a repeated idempotency key.
type StoredResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

type IdempotencyStore interface {
	// Lock returns ErrRequestInProgress when another request holds key.
	Lock(ctx context.Context, key string) (unlock func(), err error)
	Load(ctx context.Context, key string) (*StoredResponse, bool, error)
	Save(ctx context.Context, key string, resp StoredResponse) error
}

// RedisIdempotencyStore keeps responses in Redis and serialises requests
// with a redislock lock per key.
type RedisIdempotencyStore struct {
	Client  *redis.Client
	Locker  *redislock.Client
	TTL     time.Duration
	LockTTL time.Duration
}

func NewRedisIdempotencyStore(client *redis.Client, locker *redislock.Client) *RedisIdempotencyStore {
	return &RedisIdempotencyStore{
		Client:  client,
		Locker:  locker,
		TTL:     24 * time.Hour,
		LockTTL: 30 * time.Second,
	}
}

func (s *RedisIdempotencyStore) Lock(ctx context.Context, key string) (func(), error) {
	lock, err := s.Locker.Obtain(ctx, "IdempotencyLock:"+key, s.LockTTL, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, ErrRequestInProgress
	}
	if err != nil {
		return nil, err
	}
	return func() {
		_ = lock.Release(context.Background())
	}, nil
}

func (s *RedisIdempotencyStore) Load(ctx context.Context, key string) (*StoredResponse, bool, error) {
	data, err := s.Client.Get(ctx, "Idempotency:"+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var resp StoredResponse
	if err := utils.UnmarshalFromJSON(data, &resp); err != nil {
		return nil, false, err
	}
	return &resp, true, nil
}

func (s *RedisIdempotencyStore) Save(ctx context.Context, key string, resp StoredResponse) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return s.Client.Set(ctx, "Idempotency:"+key, data, s.TTL).Err()
}

type bodyCaptureWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *bodyCaptureWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *bodyCaptureWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// IdempotencyMiddleware makes POST requests carrying an Idempotency-Key
// header run at most once. Responses below 500 are stored and replayed;
// server errors are not, so the caller may retry them.
func IdempotencyMiddleware(store IdempotencyStore, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if store == nil || c.Request.Method != http.MethodPost {
			c.Next()
			return
		}
		key := strings.TrimSpace(c.GetHeader(IdempotencyKeyHeader))
		if key == "" {
			c.Next()
			return
		}
		if len(key) > maxIdempotencyKeyLength {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error": "Idempotency-Key must be at most 255 characters",
				"code":  utils.KindValidation,
			})
			return
		}
		ctx := c.Request.Context()
		scoped := c.Request.Method + ":" + c.Request.URL.Path + ":" + key

		unlock, err := store.Lock(ctx, scoped)
		if errors.Is(err, ErrRequestInProgress) {
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{
				"error": "request in progress",
				"code":  utils.KindConflict,
			})
			return
		}
		if err != nil {
			config.LogError(logger, "middlewares", "IdempotencyMiddleware", "Lock", scoped, err)
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
				"error": "idempotency store unavailable",
				"code":  utils.KindStore,
			})
			return
		}
		defer unlock()

		stored, ok, err := store.Load(ctx, scoped)
		if err != nil {
			config.LogError(logger, "middlewares", "IdempotencyMiddleware", "Load", scoped, err)
		} else if ok {
			c.Header(IdempotentReplayHeader, "true")
			c.Data(stored.Status, stored.ContentType, stored.Body)
			c.Abort()
			return
		}

		c.Request = c.Request.WithContext(utils.SetIdempotencyKeyInContext(ctx, key))
		w := &bodyCaptureWriter{ResponseWriter: c.Writer, body: &bytes.Buffer{}}
		c.Writer = w
		c.Next()

		status := w.Status()
		if status >= http.StatusInternalServerError {
			return
		}
		resp := StoredResponse{
			Status:      status,
			ContentType: w.Header().Get("Content-Type"),
			Body:        w.body.Bytes(),
		}
		if err := store.Save(ctx, scoped, resp); err != nil {
			config.LogError(logger, "middlewares", "IdempotencyMiddleware", "Save", scoped, err)
		}
	}
}
