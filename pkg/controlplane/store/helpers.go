package store

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Shared CRUD plumbing for the store implementation files. These operate
// on the raw *gorm.DB rather than GORMStore and fold in context
// propagation plus the standard error conversions.

// getByField loads the single record of type T where field=value,
// mapping gorm.ErrRecordNotFound to notFoundErr.
func getByField[T any](db *gorm.DB, ctx context.Context, field string, value any, notFoundErr error) (*T, error) {
	var result T
	if err := db.WithContext(ctx).Where(field+" = ?", value).First(&result).Error; err != nil {
		return nil, convertNotFoundError(err, notFoundErr)
	}
	return &result, nil
}

// createWithID inserts entity, minting a UUID through idSetter when
// currentID is empty. A unique constraint violation becomes dupErr. The
// effective id is returned either way.
func createWithID[T any](db *gorm.DB, ctx context.Context, entity *T, idSetter func(*T, string), currentID string, dupErr error) (string, error) {
	id := currentID
	if id == "" {
		id = uuid.New().String()
		idSetter(entity, id)
	}
	if err := db.WithContext(ctx).Create(entity).Error; err != nil {
		if isUniqueConstraintError(err) {
			return "", dupErr
		}
		return "", err
	}
	return id, nil
}
