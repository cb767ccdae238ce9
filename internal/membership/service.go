package membership

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"

	"libdesk/internal/domain"
	"libdesk/internal/libapi"
	"libdesk/internal/platform/apierr"
	"libdesk/internal/platform/logging"
	"libdesk/internal/platform/paging"
	"libdesk/internal/platform/validate"
)

const (
	PageSize    = 15
	DefaultRole = "Student"
)

type Service struct {
	store    *Store
	api      MemberAPI
	validate *validator.Validate
	password func() (string, error)
}

func NewService(store *Store, api MemberAPI) *Service {
	return &Service{
		store:    store,
		api:      api,
		validate: validate.New(),
		password: GeneratePassword,
	}
}

func (s *Service) Store() *Store { return s.store }

func (s *Service) ensureLoaded(ctx context.Context) error {
	if s.store.Loaded() {
		return nil
	}
	return s.Refresh(ctx)
}

// POST /members/refresh
func (s *Service) Refresh(ctx context.Context) error {
	if err := s.store.Refresh(ctx); err != nil {
		return apierr.ErrUpstream("could not load members", err)
	}
	return nil
}

// GET /members
// 一覧は毎回バックエンドから取り直す
func (s *Service) List(ctx context.Context, search string, p paging.Page) (paging.Result[domain.Member], error) {
	if err := s.Refresh(ctx); err != nil {
		return paging.Result[domain.Member]{}, err
	}
	return paging.Paginate(Search(s.store.Members(), search), p), nil
}

// Search keeps members whose name, role or email contains term, ignoring case.
func Search(members []domain.Member, term string) []domain.Member {
	term = strings.TrimSpace(term)
	if term == "" {
		return members
	}
	out := make([]domain.Member, 0, len(members))
	for _, m := range members {
		if domain.ContainsFold(m.Name, term) ||
			domain.ContainsFold(m.Role, term) ||
			domain.ContainsFold(m.Email, term) {
			out = append(out, m)
		}
	}
	return out
}

// POST /members
func (s *Service) Add(ctx context.Context, in AddMemberRequest) (AddMemberResponse, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.PhoneNumber = strings.TrimSpace(in.PhoneNumber)
	if err := validate.Struct(s.validate, in); err != nil {
		return AddMemberResponse{}, err
	}

	// 初期パスワードはここで生成し、レスポンスで一度だけ返す
	pw, err := s.password()
	if err != nil {
		return AddMemberResponse{}, apierr.ErrInternal("could not generate password")
	}
	m := domain.Member{
		Name:        in.Name,
		Email:       in.Email,
		PhoneNumber: in.PhoneNumber,
		Address:     strings.TrimSpace(in.Address),
		NIC:         strings.TrimSpace(in.NIC),
		DateOfBirth: in.DateOfBirth,
		Gender:      in.Gender,
		Role:        strings.TrimSpace(in.Role),
	}
	if m.Role == "" {
		m.Role = DefaultRole
	}

	created, err := s.api.AddMember(ctx, m, pw)
	if err != nil {
		return AddMemberResponse{}, apierr.ErrUpstream("could not add member", err)
	}
	if created.ID != 0 {
		s.store.put(created)
	} else if err := s.store.Refresh(ctx); err != nil {
		logging.FromContext(ctx).Warn("member refresh after add failed", "err", err)
	}
	logging.FromContext(ctx).Info("member added", "member_id", created.ID)
	return AddMemberResponse{Member: created, InitialPassword: pw}, nil
}

// PUT /members/:member_id
func (s *Service) Update(ctx context.Context, id int64, in UpdateMemberRequest) (domain.Member, error) {
	if id <= 0 {
		return domain.Member{}, apierr.ErrInvalid("member_id must be positive")
	}
	if err := validate.Struct(s.validate, in); err != nil {
		return domain.Member{}, err
	}
	for name, v := range map[string]*string{"name": in.Name, "email": in.Email, "phoneNumber": in.PhoneNumber} {
		if v != nil && strings.TrimSpace(*v) == "" {
			return domain.Member{}, apierr.ErrInvalid(name + " cannot be empty")
		}
	}
	if err := s.ensureLoaded(ctx); err != nil {
		return domain.Member{}, err
	}
	m, ok := s.store.Member(id)
	if !ok {
		return domain.Member{}, apierr.ErrNotFound("member not found")
	}

	// 部分更新: nil の項目は現状のまま
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = strings.TrimSpace(*v)
		}
	}
	set(&m.Name, in.Name)
	set(&m.Email, in.Email)
	set(&m.PhoneNumber, in.PhoneNumber)
	set(&m.Address, in.Address)
	set(&m.NIC, in.NIC)
	set(&m.DateOfBirth, in.DateOfBirth)
	set(&m.Gender, in.Gender)
	set(&m.Role, in.Role)

	updated, err := s.api.UpdateMember(ctx, m)
	if err != nil {
		if libapi.IsNotFound(err) {
			return domain.Member{}, apierr.ErrNotFound("member not found")
		}
		return domain.Member{}, apierr.ErrUpstream("could not update member", err)
	}
	s.store.put(updated)
	return updated, nil
}

// DELETE /members/:member_id
func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return apierr.ErrInvalid("member_id must be positive")
	}
	if err := s.api.DeleteMember(ctx, id); err != nil {
		// backend に無いならスナップショットからも消す
		if libapi.IsNotFound(err) {
			s.store.remove(id)
			return apierr.ErrNotFound("member not found")
		}
		return apierr.ErrUpstream("could not delete member", err)
	}
	s.store.remove(id)
	logging.FromContext(ctx).Info("member deleted", "member_id", id)
	return nil
}

// Lookup finds a member in the snapshot, loading it first if needed.
func (s *Service) Lookup(ctx context.Context, id int64) (domain.Member, bool, error) {
	if err := s.ensureLoaded(ctx); err != nil {
		return domain.Member{}, false, err
	}
	m, ok := s.store.Member(id)
	return m, ok, nil
}

func (s *Service) Warm(ctx context.Context) error { return s.ensureLoaded(ctx) }

func (s *Service) Members() []domain.Member { return s.store.Members() }

func (s *Service) ResolveMemberDisplay(id int64) domain.MemberDisplay {
	return s.store.ResolveMemberDisplay(id)
}

func (s *Service) Display(ctx context.Context, id int64) domain.MemberDisplay {
	if err := s.ensureLoaded(ctx); err != nil {
		logging.FromContext(ctx).Warn("members unavailable for display lookup", "member_id", id, "err", err)
	}
	return s.store.ResolveMemberDisplay(id)
}
