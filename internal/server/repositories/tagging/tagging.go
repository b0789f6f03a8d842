// Package tagging holds the join-table helpers shared by every repository
// whose rows carry tags.
package tagging

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/stavros/internal/common"
	"github.com/dmitrijs2005/stavros/internal/dbx"
	"github.com/dmitrijs2005/stavros/internal/server/models"
)

// Subquery returns a SELECT expression that aggregates the tags of the row
// referenced by ownerRef as a JSON array, ordered by name.
func Subquery(joinTable, ownerCol, ownerRef string) string {
	return fmt.Sprintf(`COALESCE((SELECT json_agg(json_build_object('id', t.id, 'name', t.name) ORDER BY t.name)
		FROM %[1]s jt JOIN tags t ON t.id = jt.tag_id
		WHERE jt.%[2]s = %[3]s), '[]')`, joinTable, ownerCol, ownerRef)
}

// Decode parses the output of Subquery.
func Decode(raw []byte) ([]models.Tag, error) {
	tags := []models.Tag{}
	if len(raw) == 0 {
		return tags, nil
	}
	if err := json.Unmarshal(raw, &tags); err != nil {
		return nil, fmt.Errorf("decode tags: %w", err)
	}
	return tags, nil
}

// Attach links ownerID to every tag in tagIDs. Unknown tags yield
// common.ErrorNotFound; duplicates are ignored.
func Attach(ctx context.Context, db dbx.DBTX, joinTable, ownerCol, ownerID string, tagIDs []string) error {
	query := fmt.Sprintf(`INSERT INTO %s (%s, tag_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, joinTable, ownerCol)
	for _, tagID := range tagIDs {
		if _, err := db.ExecContext(ctx, query, ownerID, tagID); err != nil {
			if dbx.IsForeignKeyViolation(err) {
				return fmt.Errorf("tag %s: %w", tagID, common.ErrorNotFound)
			}
			return fmt.Errorf("db error: %w", err)
		}
	}
	return nil
}
