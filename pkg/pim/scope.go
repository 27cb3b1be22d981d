package pim

import "strings"

// ScopeMatches reports whether scope equals filter or is a strict descendant
// path of it. Matching is on path segments: "/subscriptions/S11" is not a
// descendant of "/subscriptions/S1" even though it shares the string prefix.
func ScopeMatches(scope, filter string) bool {
	filter = strings.TrimSuffix(filter, "/")
	if strings.EqualFold(scope, filter) {
		return true
	}
	return len(scope) > len(filter) &&
		strings.EqualFold(scope[:len(filter)], filter) &&
		scope[len(filter)] == '/'
}

// scopeParts holds the decomposition of a hierarchical scope path.
type scopeParts struct {
	Level             ScopeLevel
	SubscriptionID    string
	ResourceGroupName string
	ResourceName      string
}

// decomposeScope splits a scope of the form
// /subscriptions/{id}[/resourceGroups/{rg}[/providers/{p}/{type}/{name}]]
// into its components. A missing suffix leaves the decomposition at the
// highest resolved level; anything that does not start with /subscriptions
// (management groups, the tenant root) comes back as Unknown.
func decomposeScope(scope string) scopeParts {
	parts := strings.Split(strings.Trim(scope, "/"), "/")
	if len(parts) < 2 || !strings.EqualFold(parts[0], "subscriptions") {
		return scopeParts{Level: ScopeLevelUnknown}
	}

	out := scopeParts{
		Level:          ScopeLevelSubscription,
		SubscriptionID: parts[1],
	}
	if len(parts) < 4 || !strings.EqualFold(parts[2], "resourceGroups") {
		return out
	}

	out.Level = ScopeLevelResourceGroup
	out.ResourceGroupName = parts[3]
	if len(parts) < 8 || !strings.EqualFold(parts[4], "providers") {
		return out
	}

	// providers/{provider}/{type}/{name}; nested types keep the final segment.
	out.Level = ScopeLevelResource
	out.ResourceName = parts[len(parts)-1]
	return out
}

// lastSegment returns the final path segment of an ARM resource identifier.
func lastSegment(id string) string {
	id = strings.TrimSuffix(id, "/")
	if i := strings.LastIndex(id, "/"); i >= 0 {
		return id[i+1:]
	}
	return id
}
