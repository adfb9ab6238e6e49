package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

func (s *Store) AddPlant(ctx context.Context, p *Plant) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO plants (name, scientific_name, family, common_names, description, taxonomy_id)
		VALUES (?, ?, ?, ?, ?, ?)
	`, p.Name, p.ScientificName, p.Family, jsonList(p.CommonNames), p.Description, p.TaxonomyID)
	if err != nil {
		return 0, fmt.Errorf("add plant %q: %w", p.Name, err)
	}
	return res.LastInsertId()
}

func (s *Store) GetPlant(ctx context.Context, id int64) (*Plant, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, scientific_name, family, common_names, description, taxonomy_id
		FROM plants WHERE id = ?
	`, id)
	return scanPlant(row)
}

// SearchPlants runs a ranked full-text query over the plant catalog.
func (s *Store) SearchPlants(ctx context.Context, query string, limit int) ([]*Plant, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, p.name, p.scientific_name, p.family, p.common_names, p.description, p.taxonomy_id
		FROM plants p JOIN fts_plants fts ON p.id = fts.rowid
		WHERE fts_plants MATCH ? ORDER BY rank LIMIT ?
	`, query, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("search plants: %w", err)
	}
	defer rows.Close()

	var out []*Plant
	for rows.Next() {
		p, err := scanPlant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanPlant(row scanner) (*Plant, error) {
	p := &Plant{}
	var commonNames string
	err := row.Scan(&p.ID, &p.Name, &p.ScientificName, &p.Family, &commonNames, &p.Description, &p.TaxonomyID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan plant: %w", err)
	}
	p.CommonNames = unmarshalList(commonNames)
	return p, nil
}

func (s *Store) AddIngredient(ctx context.Context, i *Ingredient) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO ingredients
			(name, synonyms, cas_number, pubchem_cid, inchi_key, smiles, molecular_formula, molecular_weight, description)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, i.Name, jsonList(i.Synonyms), i.CASNumber, i.PubChemCID, i.InChIKey,
		i.SMILES, i.MolecularFormula, i.MolecularWeight, i.Description)
	if err != nil {
		return 0, fmt.Errorf("add ingredient %q: %w", i.Name, err)
	}
	return res.LastInsertId()
}

func (s *Store) GetIngredient(ctx context.Context, id int64) (*Ingredient, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, synonyms, cas_number, pubchem_cid, inchi_key, smiles, molecular_formula, molecular_weight, description
		FROM ingredients WHERE id = ?
	`, id)
	return scanIngredient(row)
}

func (s *Store) SearchIngredients(ctx context.Context, query string, limit int) ([]*Ingredient, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT i.id, i.name, i.synonyms, i.cas_number, i.pubchem_cid, i.inchi_key,
		       i.smiles, i.molecular_formula, i.molecular_weight, i.description
		FROM ingredients i JOIN fts_ingredients fts ON i.id = fts.rowid
		WHERE fts_ingredients MATCH ? ORDER BY rank LIMIT ?
	`, query, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("search ingredients: %w", err)
	}
	defer rows.Close()

	var out []*Ingredient
	for rows.Next() {
		i, err := scanIngredient(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, i)
	}
	return out, rows.Err()
}

func scanIngredient(row scanner) (*Ingredient, error) {
	i := &Ingredient{}
	var synonyms string
	err := row.Scan(&i.ID, &i.Name, &synonyms, &i.CASNumber, &i.PubChemCID, &i.InChIKey,
		&i.SMILES, &i.MolecularFormula, &i.MolecularWeight, &i.Description)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan ingredient: %w", err)
	}
	i.Synonyms = unmarshalList(synonyms)
	return i, nil
}

func (s *Store) AddAilment(ctx context.Context, a *Ailment) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO ailments (name, synonyms, icd10_code, mesh_id, category, description)
		VALUES (?, ?, ?, ?, ?, ?)
	`, a.Name, jsonList(a.Synonyms), a.ICD10Code, a.MeSHID, a.Category, a.Description)
	if err != nil {
		return 0, fmt.Errorf("add ailment %q: %w", a.Name, err)
	}
	return res.LastInsertId()
}

func (s *Store) GetAilment(ctx context.Context, id int64) (*Ailment, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, synonyms, icd10_code, mesh_id, category, description
		FROM ailments WHERE id = ?
	`, id)
	return scanAilment(row)
}

func (s *Store) SearchAilments(ctx context.Context, query string, limit int) ([]*Ailment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT a.id, a.name, a.synonyms, a.icd10_code, a.mesh_id, a.category, a.description
		FROM ailments a JOIN fts_ailments fts ON a.id = fts.rowid
		WHERE fts_ailments MATCH ? ORDER BY rank LIMIT ?
	`, query, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("search ailments: %w", err)
	}
	defer rows.Close()

	var out []*Ailment
	for rows.Next() {
		a, err := scanAilment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func scanAilment(row scanner) (*Ailment, error) {
	a := &Ailment{}
	var synonyms string
	err := row.Scan(&a.ID, &a.Name, &synonyms, &a.ICD10Code, &a.MeSHID, &a.Category, &a.Description)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan ailment: %w", err)
	}
	a.Synonyms = unmarshalList(synonyms)
	return a, nil
}

func (s *Store) AddRecipe(ctx context.Context, r *Recipe) (int64, error) {
	var sourceID any
	if r.SourceID != 0 {
		sourceID = r.SourceID
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO recipes (name, tradition, description, preparation, dosage, source_id)
		VALUES (?, ?, ?, ?, ?, ?)
	`, r.Name, r.Tradition, r.Description, r.Preparation, r.Dosage, sourceID)
	if err != nil {
		return 0, fmt.Errorf("add recipe %q: %w", r.Name, err)
	}
	return res.LastInsertId()
}

func (s *Store) GetRecipe(ctx context.Context, id int64) (*Recipe, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, tradition, description, preparation, dosage, source_id
		FROM recipes WHERE id = ?
	`, id)
	return scanRecipe(row)
}

func (s *Store) SearchRecipes(ctx context.Context, query string, limit int) ([]*Recipe, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.name, r.tradition, r.description, r.preparation, r.dosage, r.source_id
		FROM recipes r JOIN fts_recipes fts ON r.id = fts.rowid
		WHERE fts_recipes MATCH ? ORDER BY rank LIMIT ?
	`, query, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("search recipes: %w", err)
	}
	defer rows.Close()

	var out []*Recipe
	for rows.Next() {
		r, err := scanRecipe(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func scanRecipe(row scanner) (*Recipe, error) {
	r := &Recipe{}
	var sourceID sql.NullInt64
	err := row.Scan(&r.ID, &r.Name, &r.Tradition, &r.Description, &r.Preparation, &r.Dosage, &sourceID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan recipe: %w", err)
	}
	if sourceID.Valid {
		r.SourceID = sourceID.Int64
	}
	return r, nil
}

func (s *Store) AddSource(ctx context.Context, name, url, sourceType string, priority int, config map[string]any) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO sources (name, url, source_type, priority, enabled, config)
		VALUES (?, ?, ?, ?, 1, ?)
	`, name, url, sourceType, priority, jsonText(config))
	if err != nil {
		return 0, fmt.Errorf("add source %q: %w", name, err)
	}
	return res.LastInsertId()
}

// GetSources lists sources ordered by priority, highest first.
func (s *Store) GetSources(ctx context.Context, enabledOnly bool) ([]*Source, error) {
	q := `SELECT id, name, url, source_type, priority, enabled, last_scraped, config, created_at FROM sources`
	if enabledOnly {
		q += ` WHERE enabled = 1`
	}
	q += ` ORDER BY priority DESC`

	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	defer rows.Close()

	var out []*Source
	for rows.Next() {
		src := &Source{}
		var enabled int
		var lastScraped sql.NullTime
		var config sql.NullString
		if err := rows.Scan(&src.ID, &src.Name, &src.URL, &src.SourceType, &src.Priority,
			&enabled, &lastScraped, &config, &src.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}
		src.Enabled = enabled != 0
		if lastScraped.Valid {
			t := lastScraped.Time
			src.LastScraped = &t
		}
		if config.Valid {
			src.Config = []byte(config.String)
		}
		out = append(out, src)
	}
	return out, rows.Err()
}

func (s *Store) EnableSource(ctx context.Context, id int64) error {
	return s.setSourceEnabled(ctx, id, 1)
}

func (s *Store) DisableSource(ctx context.Context, id int64) error {
	return s.setSourceEnabled(ctx, id, 0)
}

func (s *Store) setSourceEnabled(ctx context.Context, id int64, enabled int) error {
	_, err := s.db.ExecContext(ctx, `UPDATE sources SET enabled = ? WHERE id = ?`, enabled, id)
	if err != nil {
		return fmt.Errorf("set source %d enabled=%d: %w", id, enabled, err)
	}
	return nil
}

// MarkSourceScraped stamps the source's last-scraped timestamp.
func (s *Store) MarkSourceScraped(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `UPDATE sources SET last_scraped = ? WHERE id = ?`, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("mark source %d scraped: %w", id, err)
	}
	return nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return 20
	}
	if limit > 100 {
		return 100
	}
	return limit
}
