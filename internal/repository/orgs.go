package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/madhav-v/Pseudonymous-College-Platform/internal/model"
)

const orgColumns = `id, name, address, phone, email, website, details, logo, main_pic, other_pics, orgs_video`

func scanOrg(row pgx.Row) (model.Org, error) {
	var org model.Org
	err := row.Scan(
		&org.ID,
		&org.Name,
		&org.Address,
		&org.Phone,
		&org.Email,
		&org.Website,
		&org.Details,
		&org.Logo,
		&org.MainPic,
		&org.OtherPics,
		&org.OrgsVideo,
	)
	if org.OtherPics == nil {
		org.OtherPics = []string{}
	}
	return org, mapErr(err)
}

// CreateOrg returns ErrConflict when the name is already used.
func (s *Store) CreateOrg(ctx context.Context, org model.Org) (model.Org, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO orgs (name, address, phone, email, website, details)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+orgColumns, org.Name, org.Address, org.Phone, org.Email, org.Website, org.Details)
	return scanOrg(row)
}

func (s *Store) GetOrg(ctx context.Context, id int64) (model.Org, error) {
	return scanOrg(s.pool.QueryRow(ctx, `SELECT `+orgColumns+` FROM orgs WHERE id = $1`, id))
}

func (s *Store) ListOrgs(ctx context.Context) ([]model.Org, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+orgColumns+` FROM orgs ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orgs := []model.Org{}
	for rows.Next() {
		org, err := scanOrg(rows)
		if err != nil {
			return nil, err
		}
		orgs = append(orgs, org)
	}
	return orgs, rows.Err()
}

func (s *Store) SetOrgLogo(ctx context.Context, id int64, url string) (model.Org, error) {
	return s.setOrgColumn(ctx, `logo`, id, url)
}

func (s *Store) SetOrgMainPic(ctx context.Context, id int64, url string) (model.Org, error) {
	return s.setOrgColumn(ctx, `main_pic`, id, url)
}

func (s *Store) SetOrgVideo(ctx context.Context, id int64, url string) (model.Org, error) {
	return s.setOrgColumn(ctx, `orgs_video`, id, url)
}

// column is always one of the constants above, never caller input.
func (s *Store) setOrgColumn(ctx context.Context, column string, id int64, url string) (model.Org, error) {
	row := s.pool.QueryRow(ctx, `UPDATE orgs SET `+column+` = $1 WHERE id = $2 RETURNING `+orgColumns, url, id)
	return scanOrg(row)
}

func (s *Store) AppendOrgOtherPics(ctx context.Context, id int64, urls []string) (model.Org, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE orgs SET other_pics = other_pics || $1::text[]
		WHERE id = $2
		RETURNING `+orgColumns, urls, id)
	return scanOrg(row)
}

func (s *Store) DeleteOrg(ctx context.Context, id int64) error {
	return affected(s.pool.Exec(ctx, `DELETE FROM orgs WHERE id = $1`, id))
}
