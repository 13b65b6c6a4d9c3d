package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/madhav-v/Pseudonymous-College-Platform/internal/model"
)

func scanMaterial(row pgx.Row) (model.Material, error) {
	var material model.Material
	err := row.Scan(&material.ID, &material.Title, &material.Description, &material.File)
	return material, mapErr(err)
}

func (s *Store) CreateMaterial(ctx context.Context, material model.Material) (model.Material, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO materials (title, description, file)
		VALUES ($1, $2, $3)
		RETURNING id, title, description, file
	`, material.Title, material.Description, material.File)
	return scanMaterial(row)
}

func (s *Store) GetMaterial(ctx context.Context, id int64) (model.Material, error) {
	return scanMaterial(s.pool.QueryRow(ctx, `SELECT id, title, description, file FROM materials WHERE id = $1`, id))
}

func (s *Store) ListMaterials(ctx context.Context) ([]model.Material, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, title, description, file FROM materials ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	materials := []model.Material{}
	for rows.Next() {
		material, err := scanMaterial(rows)
		if err != nil {
			return nil, err
		}
		materials = append(materials, material)
	}
	return materials, rows.Err()
}

func (s *Store) UpdateMaterial(ctx context.Context, material model.Material) (model.Material, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE materials SET title = $1, description = $2, file = $3
		WHERE id = $4
		RETURNING id, title, description, file
	`, material.Title, material.Description, material.File, material.ID)
	return scanMaterial(row)
}

func (s *Store) DeleteMaterial(ctx context.Context, id int64) error {
	return affected(s.pool.Exec(ctx, `DELETE FROM materials WHERE id = $1`, id))
}
