package registry

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"sevensons/internal/config"
	"sevensons/internal/models"
)

// ErrRoleNotFound is returned when a lookup matches no role.
var ErrRoleNotFound = errors.New("role not found")

// Registry is the persona catalog backed by the ai_roles table.
type Registry struct {
	db        *sql.DB
	demoMode  bool
	providers map[string]config.ProviderConfig
}

// New constructs a registry. The config is captured at construction so
// credential resolution stays a pure function of role + config.
func New(db *sql.DB, cfg *config.Config) *Registry {
	r := &Registry{db: db, providers: map[string]config.ProviderConfig{}}
	if cfg != nil {
		r.demoMode = cfg.BasicConfig.DemoMode
		for name, p := range cfg.Providers {
			r.providers[name] = p
		}
	}
	return r
}

// Seed inserts the default roster when the table is empty.
func (r *Registry) Seed(ctx context.Context) error {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM ai_roles`).Scan(&count); err != nil {
		return fmt.Errorf("count roles: %w", err)
	}
	if count > 0 {
		return nil
	}
	for _, role := range DefaultRoles {
		if _, err := r.Create(ctx, role); err != nil {
			return fmt.Errorf("seed role %s: %w", role.Name, err)
		}
	}
	return nil
}

// ListParticipants returns the active roles ordered by name. This is the
// participant set for a group round.
func (r *Registry) ListParticipants(ctx context.Context) ([]models.Role, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, description, avatar_url, personality, specialties, api_config, is_active, created_at, updated_at
		 FROM ai_roles WHERE is_active = 1 ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	defer rows.Close()

	var roles []models.Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

// GetByName returns one role, active or not.
func (r *Registry) GetByName(ctx context.Context, name string) (*models.Role, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, description, avatar_url, personality, specialties, api_config, is_active, created_at, updated_at
		 FROM ai_roles WHERE name = ?`, name)
	role, err := scanRole(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRoleNotFound
		}
		return nil, err
	}
	return &role, nil
}

// Create inserts a new role and returns it with its assigned id.
func (r *Registry) Create(ctx context.Context, role models.Role) (*models.Role, error) {
	role.Name = strings.TrimSpace(role.Name)
	if role.Name == "" {
		return nil, errors.New("role name is required")
	}
	specialties, apiConfig, err := encodeRole(role)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO ai_roles (name, description, avatar_url, personality, specialties, api_config, is_active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		role.Name, role.Description, role.AvatarURL, role.Personality,
		specialties, apiConfig, role.IsActive, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("create role: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("role id: %w", err)
	}
	role.ID = id
	role.CreatedAt = now
	role.UpdatedAt = now
	return &role, nil
}

// Update overwrites the mutable fields of the named role.
func (r *Registry) Update(ctx context.Context, name string, role models.Role) (*models.Role, error) {
	existing, err := r.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	specialties, apiConfig, err := encodeRole(role)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	_, err = r.db.ExecContext(ctx,
		`UPDATE ai_roles SET description = ?, avatar_url = ?, personality = ?, specialties = ?, api_config = ?, is_active = ?, updated_at = ?
		 WHERE id = ?`,
		role.Description, role.AvatarURL, role.Personality,
		specialties, apiConfig, role.IsActive, now, existing.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("update role: %w", err)
	}
	role.ID = existing.ID
	role.Name = existing.Name
	role.CreatedAt = existing.CreatedAt
	role.UpdatedAt = now
	return &role, nil
}

func encodeRole(role models.Role) (specialties string, apiConfig sql.NullString, err error) {
	if role.Specialties == nil {
		role.Specialties = []string{}
	}
	raw, err := json.Marshal(role.Specialties)
	if err != nil {
		return "", sql.NullString{}, fmt.Errorf("encode specialties: %w", err)
	}
	specialties = string(raw)
	if role.Completion != nil {
		raw, err := json.Marshal(role.Completion)
		if err != nil {
			return "", sql.NullString{}, fmt.Errorf("encode api config: %w", err)
		}
		apiConfig = sql.NullString{String: string(raw), Valid: true}
	}
	return specialties, apiConfig, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRole(row rowScanner) (models.Role, error) {
	var (
		role        models.Role
		specialties string
		apiConfig   sql.NullString
	)
	err := row.Scan(&role.ID, &role.Name, &role.Description, &role.AvatarURL,
		&role.Personality, &specialties, &apiConfig, &role.IsActive,
		&role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		return role, err
	}
	if specialties != "" {
		if err := json.Unmarshal([]byte(specialties), &role.Specialties); err != nil {
			return role, fmt.Errorf("decode specialties for %s: %w", role.Name, err)
		}
	}
	if apiConfig.Valid && apiConfig.String != "" {
		var cc models.CompletionConfig
		if err := json.Unmarshal([]byte(apiConfig.String), &cc); err != nil {
			return role, fmt.Errorf("decode api config for %s: %w", role.Name, err)
		}
		role.Completion = &cc
	}
	return role, nil
}
