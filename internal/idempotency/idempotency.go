package idempotency

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"erp-service/internal/models"
	"erp-service/internal/store"
	"erp-service/internal/util"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// HeaderKey is the client-supplied token header.
const HeaderKey = "Idempotency-Key"

// MaxKeyLength bounds the client token.
const MaxKeyLength = 255

// How long a racing call waits for the claim winner's response before
// giving up with a conflict.
var (
	pendingWaitMax  = 2 * time.Second
	pendingWaitStep = 50 * time.Millisecond
)

// CanonicalHash returns the sha256 of the canonical form of a request body.
// JSON bodies are re-marshalled with sorted keys so that key order and
// insignificant whitespace do not change the hash; numbers are kept as their
// literal tokens so large integers survive intact. Anything else hashes as
// raw bytes.
func CanonicalHash(body []byte) string {
	canonical := body
	if len(body) > 0 {
		dec := json.NewDecoder(bytes.NewReader(body))
		dec.UseNumber()
		var decoded interface{}
		if err := dec.Decode(&decoded); err == nil {
			if remarshalled, err := json.Marshal(decoded); err == nil {
				canonical = remarshalled
			}
		}
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:])
}

// bodyCapture buffers the response so it can be stored for replay.
type bodyCapture struct {
	gin.ResponseWriter
	buf bytes.Buffer
}

func (w *bodyCapture) Write(b []byte) (int, error) {
	w.buf.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *bodyCapture) WriteString(s string) (int, error) {
	w.buf.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Middleware makes mutating endpoints safe under at-least-once delivery.
// Before the handler runs the key is claimed with a unique insert, so N
// concurrent first calls execute the mutation exactly once: the winner
// stores its response under (key, route, method), the losers wait for it and
// replay it verbatim, error envelopes included. A replay with the same body
// hash returns the stored response; the same key with a different body is
// rejected. Requests without the header bypass the layer entirely, and a
// missing storage table degrades to uncached execution with a warning.
func Middleware(st *store.Store, ttl time.Duration) gin.HandlerFunc {
	logger := util.GetLogger()

	return func(c *gin.Context) {
		key := c.GetHeader(HeaderKey)
		if key == "" {
			c.Next()
			return
		}
		if len(key) > MaxKeyLength {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error": "idempotency key exceeds 255 characters",
			})
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		rec := &models.IdempotencyRecord{
			Key:       key,
			Route:     c.FullPath(),
			Method:    c.Request.Method,
			BodyHash:  CanonicalHash(body),
			ExpiresAt: time.Now().Add(ttl),
		}

		won, err := st.ReserveIdempotencyRecord(c.Request.Context(), rec)
		if err != nil {
			if errors.Is(err, store.ErrNoIdempotencyTable) {
				logger.Warn("Idempotency table missing, executing uncached",
					zap.String("route", rec.Route))
				c.Next()
				return
			}
			logger.Error("Idempotency claim failed", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "idempotency claim failed"})
			return
		}
		if !won {
			replayStored(c, st, rec, logger)
			return
		}

		capture := &bodyCapture{ResponseWriter: c.Writer}
		c.Writer = capture
		c.Next()

		rec.Status = capture.Status()
		rec.Response = capture.buf.Bytes()
		if err := st.CompleteIdempotencyRecord(c.Request.Context(), rec); err != nil {
			if errors.Is(err, store.ErrNoIdempotencyTable) {
				logger.Warn("Idempotency table missing, response not cached",
					zap.String("route", rec.Route))
				return
			}
			logger.Error("Failed to store idempotency record",
				zap.String("key", rec.Key),
				zap.Error(err))
		}
	}
}

// replayStored serves the response held under an already claimed key,
// waiting out a still-pending claim up to pendingWaitMax.
func replayStored(c *gin.Context, st *store.Store, rec *models.IdempotencyRecord, logger *zap.Logger) {
	deadline := time.Now().Add(pendingWaitMax)
	for {
		record, err := st.GetIdempotencyRecord(c.Request.Context(), rec.Key, rec.Route, rec.Method)
		if err != nil {
			logger.Error("Idempotency lookup failed", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "idempotency lookup failed"})
			return
		}
		if record != nil {
			if record.BodyHash != rec.BodyHash {
				c.AbortWithStatusJSON(http.StatusConflict, gin.H{
					"error": "idempotency key reused with a different request body",
				})
				return
			}
			if record.Status != 0 {
				util.IdempotentReplaysTotal.Inc()
				logger.Info("Idempotent replay",
					zap.String("key", rec.Key),
					zap.String("route", rec.Route))
				c.Data(record.Status, "application/json", record.Response)
				c.Abort()
				return
			}
		}
		if time.Now().After(deadline) {
			break
		}
		select {
		case <-c.Request.Context().Done():
			c.AbortWithStatus(http.StatusRequestTimeout)
			return
		case <-time.After(pendingWaitStep):
		}
	}
	c.AbortWithStatusJSON(http.StatusConflict, gin.H{
		"error": "a request with this idempotency key is still executing",
	})
}
