package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/tigerroll/recordhub/internal/domain/model"
	"github.com/tigerroll/recordhub/internal/support/exception"
)

// first loads one row into dest, mapping a missing row to ErrNotFound.
func first(db *gorm.DB, op, what string, dest interface{}) error {
	err := db.First(dest).Error
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return exception.NewBatchError(op, "failed to load "+what, err, true)
}

// FindUser looks a person up by e-mail (case-insensitive) or ORCID iD.
func (s *GormStore) FindUser(ctx context.Context, p model.Person) (*model.User, error) {
	email := strings.ToLower(strings.TrimSpace(p.Email))
	orcid := strings.TrimSpace(p.ORCID)
	if email == "" && orcid == "" {
		return nil, fmt.Errorf("user without identity: %w", ErrNotFound)
	}
	q := s.db(ctx)
	switch {
	case email != "" && orcid != "":
		q = q.Where("lower(email) = ? OR orcid = ?", email, orcid)
	case email != "":
		q = q.Where("lower(email) = ?", email)
	default:
		q = q.Where("orcid = ?", orcid)
	}
	var u model.User
	if err := first(q.Order("id"), "GormStore.FindUser", "user "+p.Key(), &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *GormStore) GetUser(ctx context.Context, id uint) (*model.User, error) {
	var u model.User
	if err := first(s.db(ctx).Where("id = ?", id), "GormStore.GetUser", fmt.Sprintf("user %d", id), &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *GormStore) FindOrganisation(ctx context.Context, id uint) (*model.Organisation, error) {
	var o model.Organisation
	if err := first(s.db(ctx).Where("id = ?", id), "GormStore.FindOrganisation", fmt.Sprintf("organisation %d", id), &o); err != nil {
		return nil, err
	}
	return &o, nil
}

// FindCredential returns the most recently granted credential of the user for the organisation.
func (s *GormStore) FindCredential(ctx context.Context, userID, orgID uint) (*model.Credential, error) {
	var c model.Credential
	q := s.db(ctx).Where("user_id = ? AND org_id = ?", userID, orgID).Order("created_at DESC, id DESC")
	if err := first(q, "GormStore.FindCredential", fmt.Sprintf("credential of user %d", userID), &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *GormStore) LastInvitation(ctx context.Context, orgID uint, email string) (*model.Invitation, error) {
	var inv model.Invitation
	q := s.db(ctx).Where("org_id = ? AND lower(email) = ?", orgID, strings.ToLower(strings.TrimSpace(email))).
		Order("sent_at DESC, id DESC")
	if err := first(q, "GormStore.LastInvitation", "invitation of "+email, &inv); err != nil {
		return nil, err
	}
	return &inv, nil
}

func (s *GormStore) SaveInvitation(ctx context.Context, inv *model.Invitation) error {
	if inv.SentAt.IsZero() {
		inv.SentAt = s.now()
	}
	if err := s.db(ctx).Create(inv).Error; err != nil {
		return exception.NewBatchError("GormStore.SaveInvitation", "failed to save invitation of "+inv.Email, err, true)
	}
	return nil
}

// ResolvePutCodeOwner searches the records and invitees of the organisation's tasks of kind
// for one that carries putCode and a known identity.
func (s *GormStore) ResolvePutCodeOwner(ctx context.Context, orgID uint, kind model.Kind, putCode string) (*model.Person, error) {
	const op = "GormStore.ResolvePutCodeOwner"
	db := s.db(ctx)
	tasks := db.Session(&gorm.Session{NewDB: true}).Model(&model.Task{}).Select("id").
		Where("org_id = ? AND kind = ?", orgID, kind)
	identified := "((email IS NOT NULL AND email <> '') OR (orcid IS NOT NULL AND orcid <> ''))"

	var p model.Person
	var q *gorm.DB
	if kind.MultiPerson() {
		owners := db.Session(&gorm.Session{NewDB: true}).Table(kind.Table()).Select("id").Where("task_id IN (?)", tasks)
		q = db.Session(&gorm.Session{NewDB: true}).Model(&model.Invitee{}).
			Where("record_type = ? AND record_id IN (?) AND put_code = ?", string(kind), owners, putCode)
	} else {
		q = db.Session(&gorm.Session{NewDB: true}).Table(kind.Table()).
			Where("task_id IN (?) AND put_code = ?", tasks, putCode)
	}
	err := q.Where(identified).Select("email, orcid, first_name, last_name").Order("id DESC").Limit(1).Scan(&p).Error
	if err != nil {
		return nil, exception.NewBatchError(op, "failed to resolve put-code "+putCode, err, true)
	}
	if p.IsEmpty() {
		return nil, fmt.Errorf("owner of put-code %s: %w", putCode, ErrNotFound)
	}
	return &p, nil
}
