package core

import "fmt"

// Role identifies the fixed identity an agent acts under. The set is closed:
// roles are never created at runtime.
type Role string

const (
	// RoleCoordinator is the distinguished entry role that receives user messages.
	RoleCoordinator Role = "coordinator"

	// Planning specialists.
	RoleRequirementsAnalyst Role = "requirements_analyst"
	RoleDataArchitect       Role = "data_architect"
	RoleUXDesigner          Role = "ux_designer"

	// Generation specialists.
	RoleFrontendEngineer Role = "frontend_engineer"
	RoleBackendEngineer  Role = "backend_engineer"

	// Evaluation specialists.
	RoleCodeReviewer Role = "code_reviewer"
	RoleQAEngineer   Role = "qa_engineer"
)

// RoleCategory groups roles by the part of the generation pipeline they serve.
type RoleCategory string

const (
	CategoryCoordination RoleCategory = "coordination"
	CategoryPlanning     RoleCategory = "planning"
	CategoryGeneration   RoleCategory = "generation"
	CategoryEvaluation   RoleCategory = "evaluation"
)

var roleCategories = map[Role]RoleCategory{
	RoleCoordinator:         CategoryCoordination,
	RoleRequirementsAnalyst: CategoryPlanning,
	RoleDataArchitect:       CategoryPlanning,
	RoleUXDesigner:          CategoryPlanning,
	RoleFrontendEngineer:    CategoryGeneration,
	RoleBackendEngineer:     CategoryGeneration,
	RoleCodeReviewer:        CategoryEvaluation,
	RoleQAEngineer:          CategoryEvaluation,
}

// Roles returns every role of the closed set in a stable order.
func Roles() []Role {
	return []Role{
		RoleCoordinator,
		RoleRequirementsAnalyst,
		RoleDataArchitect,
		RoleUXDesigner,
		RoleFrontendEngineer,
		RoleBackendEngineer,
		RoleCodeReviewer,
		RoleQAEngineer,
	}
}

// Valid reports whether r belongs to the closed role set.
func (r Role) Valid() bool {
	_, ok := roleCategories[r]
	return ok
}

// Category returns the pipeline category of the role ("" for unknown roles).
func (r Role) Category() RoleCategory { return roleCategories[r] }

// IsCoordinator reports whether r is the coordinator role.
func (r Role) IsCoordinator() bool { return r == RoleCoordinator }

// String implements fmt.Stringer.
func (r Role) String() string { return string(r) }

// ParseRole converts an identifier into a Role, rejecting values outside the set.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
	}
	return r, nil
}
