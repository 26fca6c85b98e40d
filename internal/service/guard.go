package service

import (
	"fsanano/item-catalog/internal/model"
	"fsanano/item-catalog/internal/session"
)

// CanMutate reports whether sess may edit or delete item: only the
// authenticated owner may.
func CanMutate(sess *session.Session, item model.Item) bool {
	return sess.IsAuthenticated() && sess.UserID == item.UserID
}
