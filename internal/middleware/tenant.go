package middleware

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"eventhub/internal/model"
	"eventhub/internal/store"
	"eventhub/internal/tenancy"
	"eventhub/pkg/logger"
	"eventhub/prometheus"
)

// Tenant hint headers and path prefix
const (
	HeaderTenantID   = "X-Tenant-ID"
	HeaderTenantSlug = "X-Tenant-Slug"
	TenantPathPrefix = "/tenant/"
	SuperAdminPrefix = "/superadmin"
)

// Hint sources, in resolution order
const (
	SourceHeaderID   = "header_id"
	SourceHeaderSlug = "header_slug"
	SourcePath       = "path"
	SourceSubdomain  = "subdomain"
	SourceNone       = "none"
)

const tenantKey = "tenant"

// ErrInvalidTenantHint is returned for a malformed tenant id header
var ErrInvalidTenantHint = errors.New("invalid tenant id")

// TenantHint is the tenant reference found on a request
type TenantHint struct {
	Source string
	ID     uint
	Value  string

	// Rest is the request path without the /tenant/{slug} prefix. Empty
	// when the request carries no prefix.
	Rest string
}

// ParseTenantHint extracts the tenant reference from a request. The first
// present source wins: id header, slug header, path prefix, subdomain.
func ParseTenantHint(req *http.Request, baseDomain string) (TenantHint, error) {
	var hint TenantHint
	slug, rest, hasPrefix := pathSlug(req.URL.Path)
	if hasPrefix {
		hint.Rest = rest
	}

	if raw := strings.TrimSpace(req.Header.Get(HeaderTenantID)); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 0)
		if err != nil || id == 0 {
			return hint, fmt.Errorf("%w: %q", ErrInvalidTenantHint, raw)
		}
		hint.Source, hint.ID = SourceHeaderID, uint(id)
		return hint, nil
	}
	if raw := strings.TrimSpace(req.Header.Get(HeaderTenantSlug)); raw != "" {
		hint.Source, hint.Value = SourceHeaderSlug, strings.ToLower(raw)
		return hint, nil
	}
	if hasPrefix {
		hint.Source, hint.Value = SourcePath, slug
		return hint, nil
	}
	if sub := subdomain(req.Host, baseDomain); sub != "" {
		hint.Source, hint.Value = SourceSubdomain, sub
		return hint, nil
	}

	hint.Source = SourceNone
	return hint, nil
}

func pathSlug(path string) (slug, rest string, ok bool) {
	if !strings.HasPrefix(path, TenantPathPrefix) {
		return "", "", false
	}
	tail := strings.TrimPrefix(path, TenantPathPrefix)
	slug, rest, _ = strings.Cut(tail, "/")
	if slug == "" {
		return "", "", false
	}
	return strings.ToLower(slug), "/" + rest, true
}

func subdomain(host, baseDomain string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	if host == "" || net.ParseIP(host) != nil {
		return ""
	}

	var label string
	if baseDomain != "" {
		baseDomain = strings.ToLower(baseDomain)
		if !strings.HasSuffix(host, "."+baseDomain) {
			return ""
		}
		label, _, _ = strings.Cut(strings.TrimSuffix(host, "."+baseDomain), ".")
	} else {
		labels := strings.Split(host, ".")
		if len(labels) < 3 {
			return ""
		}
		label = labels[0]
	}

	if label == "www" {
		return ""
	}
	return label
}

// TenantLookup finds tenants by each kind of hint
type TenantLookup interface {
	FindByID(ctx context.Context, id uint) (*model.Tenant, error)
	FindBySlug(ctx context.Context, slug string) (*model.Tenant, error)
	FindBySubdomain(ctx context.Context, subdomain string) (*model.Tenant, error)
}

// TenantResolverConfig configures TenantResolver
type TenantResolverConfig struct {
	Lookup      TenantLookup
	BaseDomain  string
	PublicPaths []string
	Skipper     echomw.Skipper
}

// TenantResolver resolves the request's tenant before routing and binds it
// to the request context. It must be registered with e.Pre so that the
// /tenant/{slug} prefix is removed before the router sees the path.
func TenantResolver(config TenantResolverConfig) echo.MiddlewareFunc {
	if config.Skipper == nil {
		config.Skipper = echomw.DefaultSkipper
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if config.Skipper(c) || isUnscopedPath(req.URL.Path, config.PublicPaths) {
				return next(c)
			}
			log := logger.FromEcho(c)

			hint, err := ParseTenantHint(req, config.BaseDomain)
			if err != nil {
				log.Warn("Invalid tenant hint", zap.Error(err))
				prometheus.RecordTenantResolution(SourceHeaderID, "invalid")
				return Fail(c, http.StatusBadRequest, "invalid tenant id")
			}
			if hint.Source == SourceNone {
				prometheus.RecordTenantResolution(SourceNone, "missing")
				return Fail(c, http.StatusBadRequest, "tenant not specified")
			}
			// Unscoped routes are never served under a tenant prefix.
			if hint.Rest != "" && isUnscopedPath(hint.Rest, config.PublicPaths) {
				log.Warn("Tenant prefix on unscoped path",
					zap.Bool("security_violation", true),
					zap.String("path", req.URL.Path))
				prometheus.RecordTenantResolution(hint.Source, "unscoped_path")
				return Fail(c, http.StatusNotFound, "not found")
			}

			tenant, err := lookupTenant(req.Context(), config.Lookup, hint)
			if err != nil {
				if errors.Is(err, store.ErrNotFound) {
					log.Info("Tenant not found", zap.String("source", hint.Source), zap.String("hint", hintValue(hint)))
					prometheus.RecordTenantResolution(hint.Source, "not_found")
					return Fail(c, http.StatusNotFound, "tenant not found")
				}
				log.Error("Tenant resolution failed", zap.String("source", hint.Source), zap.Error(err))
				prometheus.RecordTenantResolution(hint.Source, "error")
				return Fail(c, http.StatusInternalServerError, "tenant resolution failed")
			}
			if !tenant.IsActive() {
				log.Info("Tenant not active", zap.Uint("tenant_id", tenant.ID), zap.String("status", tenant.Status))
				prometheus.RecordTenantResolution(hint.Source, "inactive")
				return Fail(c, http.StatusNotFound, "tenant not active")
			}

			if hint.Rest != "" {
				if slug, _, _ := pathSlug(req.URL.Path); !strings.EqualFold(slug, tenant.Slug) {
					log.Warn("Conflicting tenant hints",
						zap.Bool("security_violation", true),
						zap.String("path_slug", slug),
						zap.Uint("tenant_id", tenant.ID))
					prometheus.RecordTenantResolution(hint.Source, "conflict")
					return Fail(c, http.StatusBadRequest, "conflicting tenant hints")
				}
				req.URL.Path = hint.Rest
				req.URL.RawPath = ""
			}

			ctx, err := tenancy.WithTenantID(req.Context(), tenant.ID)
			if err != nil {
				log.Error("Failed to bind tenant to request", zap.Uint("tenant_id", tenant.ID), zap.Error(err))
				return Fail(c, http.StatusInternalServerError, "tenant resolution failed")
			}
			c.SetRequest(req.WithContext(ctx))
			c.Set(tenantKey, tenant)
			logger.Attach(c, log.With(zap.Uint("tenant_id", tenant.ID)))

			prometheus.RecordTenantResolution(hint.Source, "resolved")
			return next(c)
		}
	}
}

func lookupTenant(ctx context.Context, lookup TenantLookup, hint TenantHint) (*model.Tenant, error) {
	switch hint.Source {
	case SourceHeaderID:
		return lookup.FindByID(ctx, hint.ID)
	case SourceHeaderSlug, SourcePath:
		return lookup.FindBySlug(ctx, hint.Value)
	case SourceSubdomain:
		return lookup.FindBySubdomain(ctx, hint.Value)
	}
	return nil, store.ErrNotFound
}

func hintValue(h TenantHint) string {
	if h.Source == SourceHeaderID {
		return strconv.FormatUint(uint64(h.ID), 10)
	}
	return h.Value
}

func isUnscopedPath(path string, public []string) bool {
	if path == SuperAdminPrefix || strings.HasPrefix(path, SuperAdminPrefix+"/") {
		return true
	}
	for _, p := range public {
		if p != "" && (path == p || strings.HasPrefix(path, strings.TrimSuffix(p, "/")+"/")) {
			return true
		}
	}
	return false
}

// TenantFromEcho returns the tenant resolved for the request
func TenantFromEcho(c echo.Context) (*model.Tenant, bool) {
	t, ok := c.Get(tenantKey).(*model.Tenant)
	return t, ok && t != nil
}
