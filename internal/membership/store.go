package membership

import (
	"context"
	"slices"
	"sync"
	"time"

	"libdesk/internal/domain"
)

// MemberAPI is the part of the backend the membership store talks to.
type MemberAPI interface {
	ListMembers(ctx context.Context) ([]domain.Member, error)
	AddMember(ctx context.Context, m domain.Member, password string) (domain.Member, error)
	UpdateMember(ctx context.Context, m domain.Member) (domain.Member, error)
	DeleteMember(ctx context.Context, id int64) error
}

// Store: 会員一覧のスナップショット（一覧表示と名前解決用）
type Store struct {
	api MemberAPI

	mu       sync.RWMutex
	members  []domain.Member
	loadedAt time.Time
}

func NewStore(api MemberAPI) *Store { return &Store{api: api} }

// Refresh: 全件取り直して丸ごと置き換える
func (s *Store) Refresh(ctx context.Context) error {
	members, err := s.api.ListMembers(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.members = members
	s.loadedAt = time.Now()
	s.mu.Unlock()
	return nil
}

func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.loadedAt.IsZero()
}

func (s *Store) Members() []domain.Member {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.members)
}

func (s *Store) Member(id int64) (domain.Member, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.members {
		if m.ID == id {
			return m, true
		}
	}
	return domain.Member{}, false
}

func (s *Store) put(m domain.Member) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.members {
		if s.members[i].ID == m.ID {
			s.members[i] = m
			return
		}
	}
	s.members = append(s.members, m)
}

func (s *Store) remove(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.members = slices.DeleteFunc(s.members, func(m domain.Member) bool { return m.ID == id })
}

// ResolveMemberDisplay never fails; unknown ids get placeholder text.
func (s *Store) ResolveMemberDisplay(id int64) domain.MemberDisplay {
	m, ok := s.Member(id)
	if !ok {
		return domain.MemberDisplay{Name: domain.UnknownMember, Email: domain.NotAvailable, PhoneNumber: domain.NotAvailable}
	}
	d := domain.MemberDisplay{Name: m.Name, Email: m.Email, PhoneNumber: m.PhoneNumber}
	// 空欄も未登録と同じ表示にする
	if d.Name == "" {
		d.Name = domain.UnknownMember
	}
	if d.Email == "" {
		d.Email = domain.NotAvailable
	}
	if d.PhoneNumber == "" {
		d.PhoneNumber = domain.NotAvailable
	}
	return d
}
