package pg

import (
	"context"
	"database/sql"
	"errors"

	"identra.org/internal/authz"
)

// Catalog exposes the role-permission tables as an authz.CatalogStore.
type Catalog struct {
	store *Store
}

var _ authz.CatalogStore = (*Catalog)(nil)

func NewCatalog(store *Store) *Catalog { return &Catalog{store: store} }

func (c *Catalog) RoleByID(ctx context.Context, id int) (authz.Role, error) {
	var r authz.Role
	err := c.store.db.QueryRowContext(ctx, `
		select id, name, kind from roles where id = $1
	`, id).Scan(&r.ID, &r.Name, &r.Kind)
	if errors.Is(err, sql.ErrNoRows) {
		return authz.Role{}, authz.ErrNotFound
	}
	return r, err
}

func (c *Catalog) RoleByName(ctx context.Context, name string) (authz.Role, error) {
	var r authz.Role
	err := c.store.db.QueryRowContext(ctx, `
		select id, name, kind from roles where name = $1
	`, name).Scan(&r.ID, &r.Name, &r.Kind)
	if errors.Is(err, sql.ErrNoRows) {
		return authz.Role{}, authz.ErrNotFound
	}
	return r, err
}

func (c *Catalog) Roles(ctx context.Context) ([]authz.Role, error) {
	rows, err := c.store.db.QueryContext(ctx, `select id, name, kind from roles order by id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []authz.Role
	for rows.Next() {
		var r authz.Role
		if err := rows.Scan(&r.ID, &r.Name, &r.Kind); err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

func (c *Catalog) CreateRole(ctx context.Context, name string, kind authz.RoleKind) (authz.Role, error) {
	var r authz.Role
	err := c.store.db.QueryRowContext(ctx, `
		insert into roles (name, kind) values ($1, $2)
		returning id, name, kind
	`, name, string(kind)).Scan(&r.ID, &r.Name, &r.Kind)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return authz.Role{}, authz.ErrConflict
		}
		return authz.Role{}, err
	}
	return r, nil
}

func (c *Catalog) DeleteRole(ctx context.Context, id int) error {
	res, err := c.store.db.ExecContext(ctx, `delete from roles where id = $1`, id)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrForeignKeyViolation {
			return authz.ErrConflict
		}
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return authz.ErrNotFound
	}
	return nil
}

func (c *Catalog) Permissions(ctx context.Context) ([]authz.Permission, error) {
	rows, err := c.store.db.QueryContext(ctx, `select id, name from permissions order by id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []authz.Permission
	for rows.Next() {
		var p authz.Permission
		if err := rows.Scan(&p.ID, &p.Name); err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

func (c *Catalog) CreatePermission(ctx context.Context, name string) (authz.Permission, error) {
	var p authz.Permission
	err := c.store.db.QueryRowContext(ctx, `
		insert into permissions (name) values ($1)
		returning id, name
	`, name).Scan(&p.ID, &p.Name)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return authz.Permission{}, authz.ErrConflict
		}
		return authz.Permission{}, err
	}
	return p, nil
}

func (c *Catalog) DeletePermission(ctx context.Context, id int) error {
	res, err := c.store.db.ExecContext(ctx, `delete from permissions where id = $1`, id)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrForeignKeyViolation {
			return authz.ErrConflict
		}
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return authz.ErrNotFound
	}
	return nil
}

func (c *Catalog) PermissionsForRole(ctx context.Context, roleID int) ([]authz.Permission, error) {
	rows, err := c.store.db.QueryContext(ctx, `
		select p.id, p.name
		from permissions p
		join role_permissions rp on rp.permission_id = p.id
		where rp.role_id = $1
		order by p.id
	`, roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []authz.Permission
	for rows.Next() {
		var p authz.Permission
		if err := rows.Scan(&p.ID, &p.Name); err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

func (c *Catalog) Grants(ctx context.Context) ([]authz.Grant, error) {
	rows, err := c.store.db.QueryContext(ctx, `
		select rp.id, rp.role_id, rp.permission_id, r.name, p.name, coalesce(rp.description, '')
		from role_permissions rp
		join roles r on r.id = rp.role_id
		join permissions p on p.id = rp.permission_id
		order by rp.id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []authz.Grant
	for rows.Next() {
		var g authz.Grant
		if err := rows.Scan(&g.ID, &g.RoleID, &g.PermissionID, &g.RoleName, &g.PermissionName, &g.Description); err != nil {
			return nil, err
		}
		result = append(result, g)
	}
	return result, rows.Err()
}

func (c *Catalog) Grant(ctx context.Context, roleID, permissionID int, description string) (authz.Grant, error) {
	var g authz.Grant
	err := c.store.db.QueryRowContext(ctx, `
		with inserted as (
			insert into role_permissions (role_id, permission_id, description)
			values ($1, $2, nullif($3, ''))
			returning id, role_id, permission_id, description
		)
		select i.id, i.role_id, i.permission_id, r.name, p.name, coalesce(i.description, '')
		from inserted i
		join roles r on r.id = i.role_id
		join permissions p on p.id = i.permission_id
	`, roleID, permissionID, description).Scan(
		&g.ID, &g.RoleID, &g.PermissionID, &g.RoleName, &g.PermissionName, &g.Description,
	)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok {
			switch pgErr.Code {
			case pgErrUniqueViolation:
				return authz.Grant{}, authz.ErrConflict
			case pgErrForeignKeyViolation:
				return authz.Grant{}, authz.ErrNotFound
			}
		}
		return authz.Grant{}, err
	}
	return g, nil
}

func (c *Catalog) RevokeGrant(ctx context.Context, id int) error {
	res, err := c.store.db.ExecContext(ctx, `delete from role_permissions where id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return authz.ErrNotFound
	}
	return nil
}
