package auth

import (
	"context"
	"strings"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/nyaruka/phonenumbers"
	"github.com/uptrace/bun"
)

// DefaultPhoneRegion is used to parse organization phones without a
// country prefix
const DefaultPhoneRegion = "US"

// Organizations is the credential store for tenants
type Organizations interface {
	repository.Repository[*Organization]

	FindByID(ctx context.Context, id uuid.UUID) (*Organization, error)
	FindByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*Organization, error)
	FindByJoinCode(ctx context.Context, code string) (*Organization, error)
	FindByJoinCodeTx(ctx context.Context, tx bun.IDB, code string) (*Organization, error)

	Create(ctx context.Context, record *Organization, criteria ...repository.InsertCriteria) (*Organization, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *Organization, criteria ...repository.InsertCriteria) (*Organization, error)
}

type organizations struct {
	repository.Repository[*Organization]
	db          *bun.DB
	driver      string
	phoneRegion string
}

var _ Organizations = (*organizations)(nil)

// OrganizationsOption configures the organizations repository
type OrganizationsOption func(*organizations)

// WithPhoneRegion sets the region used to parse local phone numbers
func WithPhoneRegion(region string) OrganizationsOption {
	return func(o *organizations) {
		if region != "" {
			o.phoneRegion = strings.ToUpper(region)
		}
	}
}

// NewOrganizationsRepository returns the bun backed Organizations store
func NewOrganizationsRepository(db *bun.DB, opts ...OrganizationsOption) Organizations {
	repo := repository.NewRepository[*Organization](db, repository.ModelHandlers[*Organization]{
		NewRecord: func() *Organization { return &Organization{} },
		GetID: func(o *Organization) uuid.UUID {
			if o == nil {
				return uuid.Nil
			}
			return o.ID
		},
		SetID: func(o *Organization, id uuid.UUID) {
			if o != nil {
				o.ID = id
			}
		},
		GetIdentifier: func() string {
			return "join_code"
		},
	})

	out := &organizations{
		Repository:  repo,
		db:          db,
		driver:      repository.DetectDriver(db),
		phoneRegion: DefaultPhoneRegion,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(out)
		}
	}
	return out
}

func (o *organizations) FindByID(ctx context.Context, id uuid.UUID) (*Organization, error) {
	return o.FindByIDTx(ctx, o.db, id)
}

// FindByIDTx returns ErrRecordNotFound when no organization has id
func (o *organizations) FindByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*Organization, error) {
	if id == uuid.Nil {
		return nil, ErrRecordNotFound
	}
	return o.findOne(ctx, tx, "id", id)
}

func (o *organizations) FindByJoinCode(ctx context.Context, code string) (*Organization, error) {
	return o.FindByJoinCodeTx(ctx, o.db, code)
}

func (o *organizations) FindByJoinCodeTx(ctx context.Context, tx bun.IDB, code string) (*Organization, error) {
	code = NormalizeJoinCode(code)
	if code == "" {
		return nil, ErrRecordNotFound
	}
	return o.findOne(ctx, tx, "join_code", code)
}

func (o *organizations) findOne(ctx context.Context, tx bun.IDB, column string, value any) (*Organization, error) {
	record := &Organization{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.? = ?", bun.Ident(column), value).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrRecordNotFound
		}
		return nil, errors.Wrap(
			repository.MapDatabaseError(err, o.driver),
			errors.CategoryInternal,
			"failed to load organization",
		)
	}
	return record, nil
}

func (o *organizations) Create(ctx context.Context, record *Organization, criteria ...repository.InsertCriteria) (*Organization, error) {
	return o.CreateTx(ctx, o.db, record, criteria...)
}

// CreateTx validates and inserts a new organization
func (o *organizations) CreateTx(ctx context.Context, tx bun.IDB, record *Organization, criteria ...repository.InsertCriteria) (*Organization, error) {
	if record == nil {
		return nil, errors.New("organization must not be nil", errors.CategoryInternal)
	}
	if err := o.prepare(record); err != nil {
		return nil, err
	}

	created, err := o.Repository.CreateTx(ctx, tx, record, criteria...)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to create organization")
	}
	return created, nil
}

func (o *organizations) prepare(record *Organization) error {
	record.Name = strings.TrimSpace(record.Name)
	record.Email = NormalizeEmail(record.Email)
	record.Address = strings.TrimSpace(record.Address)

	if record.Name == "" {
		return errors.New("organization name is required", errors.CategoryValidation).
			WithCode(errors.CodeBadRequest)
	}
	if !record.Type.IsValid() {
		return errors.New("organization type is not valid", errors.CategoryValidation).
			WithCode(errors.CodeBadRequest)
	}

	phone, err := NormalizePhone(record.Phone, o.phoneRegion)
	if err != nil {
		return err
	}
	record.Phone = phone

	record.JoinCode = NormalizeJoinCode(record.JoinCode)
	if record.JoinCode == "" {
		identity, err := newOrganizationIdentity()
		if err != nil {
			return err
		}
		if record.ID == uuid.Nil {
			record.ID = identity.ID
		}
		record.JoinCode = identity.JoinCode
		return nil
	}

	if record.ID == uuid.Nil {
		id, err := hashid.NewUUID(record.JoinCode)
		if err != nil {
			return errors.Wrap(err, errors.CategoryInternal, "failed to derive organization id")
		}
		record.ID = id
	}
	return nil
}

// NormalizePhone formats phone as E.164. An empty phone stays empty.
func NormalizePhone(phone, region string) (string, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return "", nil
	}
	if region == "" {
		region = DefaultPhoneRegion
	}

	num, err := phonenumbers.Parse(phone, region)
	if err != nil || !phonenumbers.IsValidNumber(num) {
		return "", errors.New("organization phone is not valid", errors.CategoryValidation).
			WithCode(errors.CodeBadRequest).
			WithMetadata(map[string]any{"phone": phone})
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}
