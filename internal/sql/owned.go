package sql

import (
	"errors"
	"net/http"

	apierrors "easemyday/internal/errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// getOwned loads a row by id, scoped to its owner. Rows of other users answer
// NOT_FOUND like missing ones.
func getOwned[T any](db *gorm.DB, id uuid.UUID, userID string) (T, error) {
	var row T
	if err := db.Where("id = ? AND user_id = ?", id, userID).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return row, apierrors.NewAPIError(http.StatusNotFound, apierrors.ErrNotFound)
		}
		return row, err
	}
	return row, nil
}

func deleteOwned[T any](db *gorm.DB, id uuid.UUID, userID string) error {
	result := db.Where("id = ? AND user_id = ?", id, userID).Delete(new(T))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apierrors.NewAPIError(http.StatusNotFound, apierrors.ErrNotFound)
	}
	return nil
}
