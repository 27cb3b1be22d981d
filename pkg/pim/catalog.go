package pim

import (
	"context"
	"log/slog"
)

// builtInRoleDefinitionPrefix is the tenant-level path under which built-in
// role definitions are addressable regardless of the scope an eligibility
// references them through.
const builtInRoleDefinitionPrefix = "/providers/Microsoft.Authorization/roleDefinitions/"

// Catalog resolves role-definition identifiers to display names. Results are
// cached per process, keyed by the full roleDefinitionId; the sequential
// execution model needs no locking around the map.
type Catalog struct {
	roleDefs RoleDefinitionGetter
	cache    map[string]string
	logger   *slog.Logger
}

// NewCatalog builds a resolver around the given role-definition getter. The
// cache is owned by the catalog instance, not ambient, so tests and parallel
// variants get isolation for free.
func NewCatalog(roleDefs RoleDefinitionGetter, logger *slog.Logger) *Catalog {
	if logger == nil {
		logger = slog.Default()
	}
	return &Catalog{
		roleDefs: roleDefs,
		cache:    make(map[string]string),
		logger:   logger,
	}
}

// Resolve maps a role-definition identifier to its display name. It tries the
// exact resource path first, then the generic built-in path using the trailing
// GUID, and finally falls back to the raw trailing segment. Resolution failure
// is degraded, never fatal.
func (c *Catalog) Resolve(ctx context.Context, scope, roleDefinitionID string) string {
	if name, ok := c.cache[roleDefinitionID]; ok {
		return name
	}

	name := c.lookup(ctx, scope, roleDefinitionID)
	c.cache[roleDefinitionID] = name
	return name
}

func (c *Catalog) lookup(ctx context.Context, scope, roleDefinitionID string) string {
	suffix := lastSegment(roleDefinitionID)

	def, err := c.roleDefs.GetRoleDefinition(ctx, scope, suffix)
	if err == nil && def.Properties != nil && def.Properties.RoleName != nil {
		return *def.Properties.RoleName
	}

	// Built-in roles referenced via a scoped alias resolve at the tenant path.
	def, err = c.roleDefs.GetRoleDefinitionByID(ctx, builtInRoleDefinitionPrefix+suffix)
	if err == nil && def.Properties != nil && def.Properties.RoleName != nil {
		return *def.Properties.RoleName
	}

	c.logger.Debug("role definition lookup failed, using raw identifier",
		"roleDefinitionId", roleDefinitionID, "error", err)
	return suffix
}
