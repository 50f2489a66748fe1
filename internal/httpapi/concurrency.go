package httpapi

import (
	"time"

	"billingledger/internal/apperror"
	"billingledger/internal/auth"
	"billingledger/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// concurrencyCapTTL bounds how long a leaked slot (process crash between
// acquire and release) survives before Redis expires it.
const concurrencyCapTTL = 30 * time.Second

// ConcurrencyCapMiddleware caps the number of in-flight requests per
// tenant on the routes it is mounted on, ahead of the ledger row lock: a
// tenant issuing a burst of concurrent consume/refund calls queues up
// behind the same locked row regardless, so admission control here
// rejects the overflow early instead of letting it pile up waiting on the
// lock. It counts every request passing through it, reads included.
func ConcurrencyCapMiddleware(rdb *redis.Client, limit int) gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID, err := auth.TenantIDFromGin(c)
		if err != nil {
			c.Next()
			return
		}

		key := "concurrency_cap:billing:" + tenantID
		ok, err := utils.AcquireConcurrencyCap(c.Request.Context(), rdb, key, limit, concurrencyCapTTL)
		if err != nil {
			// Redis unavailable: fail open rather than block billing
			// traffic on an admission-control outage.
			c.Next()
			return
		}
		if !ok {
			writeError(c, apperror.New(apperror.TooManyConcurrentRequests,
				"too many concurrent billing requests for this tenant"))
			return
		}
		defer func() { _ = utils.ReleaseConcurrencyCap(c.Request.Context(), rdb, key) }()

		c.Next()
	}
}
