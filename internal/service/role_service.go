package service

import (
	"context"
	"fmt"

	"carcatalog/internal/model"
	"carcatalog/internal/repository"

	"github.com/google/uuid"
)

// --- DTOs ---

type CreateRoleRequest struct {
	Name        string   `json:"name" binding:"required"`
	Description string   `json:"description"`
	Permissions []string `json:"permissions"` // Permission UUIDs
}

type PermissionResponse struct {
	ID          string `json:"id"`
	Resource    string `json:"resource"`
	Action      string `json:"action"`
	Code        string `json:"code"`
	Description string `json:"description"`
}

type RoleResponse struct {
	ID          string               `json:"id"`
	Name        string               `json:"name"`
	Description string               `json:"description"`
	IsSystem    bool                 `json:"is_system"`
	Permissions []PermissionResponse `json:"permissions"`
}

// MatrixCell is one toggle of the role x permission grant matrix.
type MatrixCell struct {
	RoleID       string `json:"role_id" binding:"required"`
	PermissionID string `json:"permission_id" binding:"required"`
	Granted      bool   `json:"granted"`
}

type UpdateMatrixRequest struct {
	Cells []MatrixCell `json:"cells" binding:"required"`
}

// MatrixRow is one role's row in the matrix response: permission ID -> granted.
type MatrixRow struct {
	RoleID   string          `json:"role_id"`
	RoleName string          `json:"role_name"`
	Granted  map[string]bool `json:"granted"`
}

// --- Interface ---

type RoleService interface {
	ListRoles(ctx context.Context) ([]RoleResponse, error)
	CreateRole(ctx context.Context, req CreateRoleRequest) (*RoleResponse, error)
	DeleteRole(ctx context.Context, id string) error
	ListPermissions(ctx context.Context) ([]PermissionResponse, error)
	GetMatrix(ctx context.Context) ([]MatrixRow, error)
	UpdateMatrix(ctx context.Context, req UpdateMatrixRequest) ([]MatrixRow, error)
	GetPermissionCodesByRoleName(ctx context.Context, roleName string) ([]string, error)
	SeedDefaults(ctx context.Context) error
}

type roleService struct {
	roleRepo  repository.RoleRepository
	txManager repository.TransactionManager
	// invalidate clears the middleware permission cache after matrix changes
	invalidate func(roleName string)
}

func NewRoleService(roleRepo repository.RoleRepository, txManager repository.TransactionManager, invalidate func(roleName string)) RoleService {
	return &roleService{roleRepo: roleRepo, txManager: txManager, invalidate: invalidate}
}

// --- Implementation ---

func (s *roleService) ListRoles(ctx context.Context) ([]RoleResponse, error) {
	roles, err := s.roleRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch roles: %w", err)
	}

	res := make([]RoleResponse, 0, len(roles))
	for _, r := range roles {
		res = append(res, toRoleResponse(r))
	}
	return res, nil
}

func (s *roleService) CreateRole(ctx context.Context, req CreateRoleRequest) (*RoleResponse, error) {
	role := model.Role{
		Name:        req.Name,
		Description: req.Description,
		IsSystem:    false,
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if createErr := s.roleRepo.Create(txCtx, &role); createErr != nil {
			return fmt.Errorf("failed to create role: %w", createErr)
		}

		if len(req.Permissions) > 0 {
			permIDs := make([]uuid.UUID, 0, len(req.Permissions))
			for _, pid := range req.Permissions {
				parsed, parseErr := uuid.Parse(pid)
				if parseErr != nil {
					return fmt.Errorf("invalid permission id '%s': %w", pid, parseErr)
				}
				permIDs = append(permIDs, parsed)
			}
			if assocErr := s.roleRepo.ReplacePermissions(txCtx, role.ID, permIDs); assocErr != nil {
				return fmt.Errorf("failed to assign permissions: %w", assocErr)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	reloaded, err := s.roleRepo.FindByIDWithPermissions(ctx, role.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload role: %w", err)
	}
	resp := toRoleResponse(*reloaded)
	return &resp, nil
}

func (s *roleService) DeleteRole(ctx context.Context, id string) error {
	roleID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid role id: %w", err)
	}

	role, err := s.roleRepo.FindByID(ctx, roleID)
	if err != nil {
		return fmt.Errorf("role not found: %w", err)
	}
	if role.IsSystem {
		return fmt.Errorf("system role '%s' cannot be deleted", role.Name)
	}

	if err := s.roleRepo.Delete(ctx, roleID); err != nil {
		return fmt.Errorf("failed to delete role: %w", err)
	}

	if s.invalidate != nil {
		s.invalidate(role.Name)
	}
	return nil
}

func (s *roleService) ListPermissions(ctx context.Context) ([]PermissionResponse, error) {
	perms, err := s.roleRepo.ListPermissions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch permissions: %w", err)
	}

	res := make([]PermissionResponse, 0, len(perms))
	for _, p := range perms {
		res = append(res, toPermissionResponse(p))
	}
	return res, nil
}

func (s *roleService) GetMatrix(ctx context.Context) ([]MatrixRow, error) {
	roles, err := s.roleRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch roles: %w", err)
	}
	perms, err := s.roleRepo.ListPermissions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch permissions: %w", err)
	}

	rows := make([]MatrixRow, 0, len(roles))
	for _, role := range roles {
		granted := make(map[string]bool, len(perms))
		for _, p := range perms {
			granted[p.ID.String()] = false
		}
		for _, p := range role.Permissions {
			granted[p.ID.String()] = true
		}
		rows = append(rows, MatrixRow{
			RoleID:   role.ID.String(),
			RoleName: role.Name,
			Granted:  granted,
		})
	}
	return rows, nil
}

// UpdateMatrix applies a batch of grant/revoke toggles. Each touched role's
// permission set is replaced wholesale and its cache entry cleared.
func (s *roleService) UpdateMatrix(ctx context.Context, req UpdateMatrixRequest) ([]MatrixRow, error) {
	// Group cells by role
	byRole := make(map[uuid.UUID]map[uuid.UUID]bool)
	for _, cell := range req.Cells {
		roleID, err := uuid.Parse(cell.RoleID)
		if err != nil {
			return nil, fmt.Errorf("invalid role id '%s': %w", cell.RoleID, err)
		}
		permID, err := uuid.Parse(cell.PermissionID)
		if err != nil {
			return nil, fmt.Errorf("invalid permission id '%s': %w", cell.PermissionID, err)
		}
		if byRole[roleID] == nil {
			byRole[roleID] = make(map[uuid.UUID]bool)
		}
		byRole[roleID][permID] = cell.Granted
	}

	touched := make([]string, 0, len(byRole))
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		for roleID, toggles := range byRole {
			role, findErr := s.roleRepo.FindByIDWithPermissions(txCtx, roleID)
			if findErr != nil {
				return fmt.Errorf("role not found: %w", findErr)
			}

			// Start from the current set, then apply toggles
			next := make(map[uuid.UUID]bool, len(role.Permissions))
			for _, p := range role.Permissions {
				next[p.ID] = true
			}
			for permID, granted := range toggles {
				if granted {
					next[permID] = true
				} else {
					delete(next, permID)
				}
			}

			permIDs := make([]uuid.UUID, 0, len(next))
			for permID := range next {
				permIDs = append(permIDs, permID)
			}
			if replaceErr := s.roleRepo.ReplacePermissions(txCtx, roleID, permIDs); replaceErr != nil {
				return fmt.Errorf("failed to update role permissions: %w", replaceErr)
			}
			touched = append(touched, role.Name)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.invalidate != nil {
		for _, name := range touched {
			s.invalidate(name)
		}
	}

	return s.GetMatrix(ctx)
}

func (s *roleService) GetPermissionCodesByRoleName(ctx context.Context, roleName string) ([]string, error) {
	return s.roleRepo.GetPermissionCodesByRoleName(ctx, roleName)
}

// SeedDefaults creates the built-in roles and the permission catalog on
// startup. Idempotent.
func (s *roleService) SeedDefaults(ctx context.Context) error {
	seedPerms := []model.Permission{
		{Resource: "versions", Action: "read", Description: "List and inspect catalog versions"},
		{Resource: "versions", Action: "write", Description: "Create and delete catalog versions"},
		{Resource: "staging", Action: "read", Description: "Read staging catalog data"},
		{Resource: "staging", Action: "write", Description: "Edit staging catalog data"},
		{Resource: "maindb", Action: "read", Description: "Read the main database mirror"},
		{Resource: "maindb", Action: "sync", Description: "Run staging/main sync operations"},
		{Resource: "discount", Action: "read", Description: "Read discount policies"},
		{Resource: "discount", Action: "write", Description: "Edit discount policies"},
		{Resource: "users", Action: "read", Description: "List users"},
		{Resource: "users", Action: "write", Description: "Manage users"},
		{Resource: "permissions", Action: "read", Description: "Read the permission matrix"},
		{Resource: "permissions", Action: "write", Description: "Edit the permission matrix"},
		{Resource: "statistics", Action: "read", Description: "Read dashboard statistics"},
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		permIDs := make([]uuid.UUID, 0, len(seedPerms))
		readIDs := make([]uuid.UUID, 0, len(seedPerms))
		for i := range seedPerms {
			if err := s.roleRepo.FindOrCreatePermission(txCtx, &seedPerms[i]); err != nil {
				return fmt.Errorf("failed to seed permission %s: %w", seedPerms[i].Code(), err)
			}
			permIDs = append(permIDs, seedPerms[i].ID)
			if seedPerms[i].Action == "read" {
				readIDs = append(readIDs, seedPerms[i].ID)
			}
		}

		admin, err := s.ensureRole(txCtx, model.RoleAdmin, "Full administrative access", true)
		if err != nil {
			return err
		}
		if err := s.roleRepo.ReplacePermissions(txCtx, admin.ID, permIDs); err != nil {
			return fmt.Errorf("failed to grant admin permissions: %w", err)
		}

		user, err := s.ensureRole(txCtx, model.RoleUser, "Read-only dashboard access", true)
		if err != nil {
			return err
		}
		user, err = s.roleRepo.FindByIDWithPermissions(txCtx, user.ID)
		if err != nil {
			return fmt.Errorf("failed to reload role %s: %w", model.RoleUser, err)
		}
		if len(user.Permissions) == 0 {
			if err := s.roleRepo.ReplacePermissions(txCtx, user.ID, readIDs); err != nil {
				return fmt.Errorf("failed to grant user permissions: %w", err)
			}
		}
		return nil
	})
}

func (s *roleService) ensureRole(ctx context.Context, name, description string, system bool) (*model.Role, error) {
	if existing, err := s.roleRepo.FindByName(ctx, name); err == nil {
		return existing, nil
	}
	role := model.Role{Name: name, Description: description, IsSystem: system}
	if err := s.roleRepo.Create(ctx, &role); err != nil {
		return nil, fmt.Errorf("failed to create role %s: %w", name, err)
	}
	return &role, nil
}

// --- Helpers ---

func toRoleResponse(r model.Role) RoleResponse {
	perms := make([]PermissionResponse, 0, len(r.Permissions))
	for _, p := range r.Permissions {
		perms = append(perms, toPermissionResponse(p))
	}
	return RoleResponse{
		ID:          r.ID.String(),
		Name:        r.Name,
		Description: r.Description,
		IsSystem:    r.IsSystem,
		Permissions: perms,
	}
}

func toPermissionResponse(p model.Permission) PermissionResponse {
	return PermissionResponse{
		ID:          p.ID.String(),
		Resource:    p.Resource,
		Action:      p.Action,
		Code:        p.Code(),
		Description: p.Description,
	}
}
