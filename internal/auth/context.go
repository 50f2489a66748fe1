package auth

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
)

type ctxKey int

const (
	ctxUserID ctxKey = iota
	ctxTenantID
	ctxRole
)

func WithIdentity(ctx context.Context, userID, workspaceID, role string) context.Context {
	ctx = context.WithValue(ctx, ctxUserID, userID)
	ctx = context.WithValue(ctx, ctxTenantID, workspaceID)
	ctx = context.WithValue(ctx, ctxRole, role)
	return ctx
}

func UserID(ctx context.Context) (string, error) {
	v := ctx.Value(ctxUserID)
	if s, ok := v.(string); ok && s != "" {
		return s, nil
	}
	return "", errors.New("user_id not in context")
}

func TenantID(ctx context.Context) (string, error) {
	v := ctx.Value(ctxTenantID)
	if s, ok := v.(string); ok && s != "" {
		return s, nil
	}
	return "", errors.New("tenant_id not in context")
}

func Role(ctx context.Context) (string, error) {
	v := ctx.Value(ctxRole)
	if s, ok := v.(string); ok && s != "" {
		return s, nil
	}
	return "", errors.New("role not in context")
}

// The *FromGin helpers read identity off gin.Context's own key/value
// store (RequireAccessToken sets these alongside the request context),
// for middleware that only has *gin.Context, not the request's
// context.Context, at hand.

func UserIDFromGin(c *gin.Context) (string, error) {
	return ginString(c, "user_id")
}

func TenantIDFromGin(c *gin.Context) (string, error) {
	return ginString(c, "tenant_id")
}

func RoleFromGin(c *gin.Context) (string, error) {
	return ginString(c, "role")
}

func ginString(c *gin.Context, key string) (string, error) {
	v, ok := c.Get(key)
	if !ok {
		return "", errors.New(key + " not in context")
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", errors.New(key + " not in context")
	}
	return s, nil
}
