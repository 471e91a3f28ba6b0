package server

import (
	"math"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/bursary/internal/tenantcontext"
	"github.com/smallbiznis/bursary/pkg/apperr"
)

const (
	HeaderTenant = "X-Tenant-ID"
	HeaderActor  = "X-Actor"
)

// TenantContext scopes the request to the tenant named by X-Tenant-ID and
// records the caller from X-Actor. Identity is resolved upstream.
func TenantContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(HeaderTenant))
		tenantID, err := snowflake.ParseString(raw)
		if raw == "" || err != nil || tenantID <= 0 {
			AbortWithError(c, apperr.ErrInvalidTenant)
			return
		}

		ctx := tenantcontext.WithTenantID(c.Request.Context(), tenantID)
		if actor := strings.TrimSpace(c.GetHeader(HeaderActor)); actor != "" {
			ctx = tenantcontext.WithActor(ctx, actor)
		}
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// BatchRateLimit throttles per-tenant starts of operation. Rejected requests
// carry Retry-After in whole seconds.
func (s *Server) BatchRateLimit(operation string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.limiter == nil {
			c.Next()
			return
		}
		ctx := c.Request.Context()
		tenantID, ok := tenantcontext.TenantIDFromContext(ctx)
		if !ok {
			AbortWithError(c, apperr.ErrInvalidTenant)
			return
		}

		res, err := s.limiter.Allow(ctx, tenantID, operation)
		c.Header("X-RateLimit-Limit", strconv.Itoa(res.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		if err != nil {
			if res.RetryAfter > 0 {
				c.Header("Retry-After", strconv.Itoa(int(math.Ceil(res.RetryAfter.Seconds()))))
			}
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}
