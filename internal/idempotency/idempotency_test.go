package idempotency

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestCanonicalHashIgnoresKeyOrder(t *testing.T) {
	a := []byte(`{"customer_id": 1, "items": [{"variant_id": 2, "quantity": "3"}]}`)
	b := []byte(`{"items": [{"quantity": "3", "variant_id": 2}], "customer_id": 1}`)

	assert.Equal(t, CanonicalHash(a), CanonicalHash(b))
}

func TestCanonicalHashIgnoresWhitespace(t *testing.T) {
	a := []byte(`{"x":1}`)
	b := []byte("{\n  \"x\": 1\n}")

	assert.Equal(t, CanonicalHash(a), CanonicalHash(b))
}

func TestCanonicalHashDiscriminatesBodies(t *testing.T) {
	a := []byte(`{"amount": "10.00"}`)
	b := []byte(`{"amount": "10.01"}`)

	assert.NotEqual(t, CanonicalHash(a), CanonicalHash(b))
}

func TestCanonicalHashPreservesLargeIntegers(t *testing.T) {
	// Integers past 2^53 must not collapse to the same float64; adjacent
	// values have to hash differently.
	a := []byte(`{"amount": 9007199254740992}`)
	b := []byte(`{"amount": 9007199254740993}`)

	assert.NotEqual(t, CanonicalHash(a), CanonicalHash(b))
}

func TestCanonicalHashNonJSON(t *testing.T) {
	// Invalid JSON hashes as raw bytes without panicking.
	a := CanonicalHash([]byte("not json at all"))
	b := CanonicalHash([]byte("not json at all"))
	c := CanonicalHash([]byte("different"))

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
}

func TestCanonicalHashEmptyBody(t *testing.T) {
	assert.Equal(t, CanonicalHash(nil), CanonicalHash([]byte{}))
}

// Five concurrent first calls with the same key must execute the mutation
// exactly once: one claims the key and runs, the others wait and replay the
// stored response, all carrying the same created id.
func TestConcurrentFirstCallsExecuteOnce(t *testing.T) {
	t.Skip("Integration test - requires database")
}

func TestMiddlewareBypassesWithoutKey(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Middleware(nil, time.Hour))
	router.POST("/orders", func(c *gin.Context) {
		c.JSON(http.StatusCreated, gin.H{"id": 1})
	})

	req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(`{}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestMiddlewareRejectsOverlongKey(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var handlerRan bool
	router := gin.New()
	router.Use(Middleware(nil, time.Hour))
	router.POST("/orders", func(c *gin.Context) {
		handlerRan = true
		c.JSON(http.StatusCreated, gin.H{"id": 1})
	})

	req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(`{}`))
	req.Header.Set(HeaderKey, strings.Repeat("k", MaxKeyLength+1))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, handlerRan)
}
