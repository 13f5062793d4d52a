package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"kycgate/internal/roles/models"
	"kycgate/pkg/domain"
)

type RoleStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func TestRoleStoreSuite(t *testing.T) {
	suite.Run(t, new(RoleStoreSuite))
}

func (s *RoleStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

var (
	first  = domain.MustParseIdentity("0x0000000000000000000000000000000000000001")
	second = domain.MustParseIdentity("0x0000000000000000000000000000000000000002")
)

func (s *RoleStoreSuite) TestGrantIsIdempotent() {
	a := models.Assignment{Identity: first, Capability: domain.CapabilityVerifier, GrantedAt: time.Now()}
	changed, err := s.store.Grant(s.ctx, a)
	s.Require().NoError(err)
	s.True(changed)

	changed, err = s.store.Grant(s.ctx, a)
	s.Require().NoError(err)
	s.False(changed)

	held, err := s.store.Has(s.ctx, first, domain.CapabilityVerifier)
	s.Require().NoError(err)
	s.True(held)
}

func (s *RoleStoreSuite) TestRevokeUnheldIsNoop() {
	changed, err := s.store.Revoke(s.ctx, first, domain.CapabilityAdmin)
	s.Require().NoError(err)
	s.False(changed)
}

func (s *RoleStoreSuite) TestMembersOrderedByGrantTime() {
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := s.store.Grant(s.ctx, models.Assignment{Identity: second, Capability: domain.CapabilityThresholdSigner, GrantedAt: t0})
	s.Require().NoError(err)
	_, err = s.store.Grant(s.ctx, models.Assignment{Identity: first, Capability: domain.CapabilityThresholdSigner, GrantedAt: t0.Add(time.Second)})
	s.Require().NoError(err)

	members, err := s.store.Members(s.ctx, domain.CapabilityThresholdSigner)
	s.Require().NoError(err)
	s.Equal([]domain.Identity{second, first}, members)
}

func (s *RoleStoreSuite) TestListCanonicalOrder() {
	for _, c := range []domain.Capability{domain.CapabilityThresholdSigner, domain.CapabilityAdmin} {
		_, err := s.store.Grant(s.ctx, models.Assignment{Identity: first, Capability: c, GrantedAt: time.Now()})
		s.Require().NoError(err)
	}
	caps, err := s.store.List(s.ctx, first)
	s.Require().NoError(err)
	s.Equal([]domain.Capability{domain.CapabilityAdmin, domain.CapabilityThresholdSigner}, caps)

	none, err := s.store.List(s.ctx, second)
	s.Require().NoError(err)
	s.Empty(none)
}
