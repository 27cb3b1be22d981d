package pim

// MembershipType describes how the principal holds an eligibility.
type MembershipType string

const (
	MembershipDirect MembershipType = "Direct"
	MembershipGroup  MembershipType = "Group"
)

// ScopeLevel identifies how deep in the resource hierarchy a scope points.
type ScopeLevel string

const (
	ScopeLevelSubscription  ScopeLevel = "Subscription"
	ScopeLevelResourceGroup ScopeLevel = "ResourceGroup"
	ScopeLevelResource      ScopeLevel = "Resource"
	ScopeLevelUnknown       ScopeLevel = "Unknown"
)

// EligibleRoleAssignment is one (principal, role definition, scope) eligibility
// grant. Uniqueness key is (RoleName, Scope); records arriving via multiple
// group memberships are duplicates and must be collapsed before activation.
type EligibleRoleAssignment struct {
	RoleName              string         `json:"roleName"`
	RoleDefinitionID      string         `json:"roleDefinitionId"`
	Scope                 string         `json:"scope"`
	EligibilityScheduleID string         `json:"eligibilityScheduleId,omitempty"`
	PolicyID              string         `json:"policyId,omitempty"`
	PrincipalID           string         `json:"principalId,omitempty"`
	MembershipType        MembershipType `json:"membershipType,omitempty"`

	// Scope decomposition, populated when the scanner is asked for details.
	ScopeLevel        ScopeLevel `json:"scopeLevel,omitempty"`
	SubscriptionName  string     `json:"subscriptionName,omitempty"`
	SubscriptionID    string     `json:"subscriptionId,omitempty"`
	ResourceGroupName string     `json:"resourceGroupName,omitempty"`
	ResourceName      string     `json:"resourceName,omitempty"`

	// MaxHours is the policy-resolved activation ceiling, populated by the
	// list entry point.
	MaxHours int `json:"maxHours,omitempty"`
}

// Key returns the deduplication key for the assignment.
func (e EligibleRoleAssignment) Key() string {
	return e.RoleName + "|" + e.Scope
}

// ActivationStatus is the terminal state of one activation attempt.
type ActivationStatus string

const (
	StatusSuccess         ActivationStatus = "Success"
	StatusPendingApproval ActivationStatus = "PendingApproval"
	StatusSkipped         ActivationStatus = "Skipped"
	StatusFailed          ActivationStatus = "Failed"
)

// ActivationResult is the outcome of one activation attempt. Results live only
// for the duration of a single batch run and are never persisted.
type ActivationResult struct {
	RoleName  string           `json:"roleName"`
	Scope     string           `json:"scope"`
	Status    ActivationStatus `json:"status"`
	Message   string           `json:"message"`
	Duration  string           `json:"durationIso8601,omitempty"`
	RequestID string           `json:"requestId,omitempty"`
}

// Summary tallies a batch of activation attempts. PendingApproval counts as
// successful: the submission was accepted even though the grant is deferred.
type Summary struct {
	Total      int    `json:"total"`
	Successful int    `json:"successful"`
	Skipped    int    `json:"skipped"`
	Failed     int    `json:"failed"`
	Message    string `json:"message,omitempty"`
}

// BatchReport is the caller-facing result of a batch activation run.
type BatchReport struct {
	Summary     Summary            `json:"summary"`
	Activations []ActivationResult `json:"activations"`
}
