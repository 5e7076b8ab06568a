package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/suite"

	"github.com/zulandar/spellbook/internal/cache"
	"github.com/zulandar/spellbook/internal/catalog"
	"github.com/zulandar/spellbook/internal/testutil"
)

type CacheTestSuite struct {
	suite.Suite
	miniRedis *miniredis.Miniredis
	cache     *cache.Cache
	ctx       context.Context
}

func (s *CacheTestSuite) SetupTest() {
	client, mr := testutil.OpenRedis(s.T())
	s.miniRedis = mr

	c, err := cache.New(&cache.Config{Client: client, TTL: time.Minute})
	s.Require().NoError(err)
	s.cache = c
	s.ctx = context.Background()
}

func (s *CacheTestSuite) sample() []catalog.Spell {
	return []catalog.Spell{
		{ID: 1, Name: "Luce", Level: 0, Known: true},
		{ID: 2, Name: "Scudo", Level: 1, Range: "Personale"},
	}
}

func (s *CacheTestSuite) key(f catalog.Filters) string {
	key, err := s.cache.Key(s.ctx, f)
	s.Require().NoError(err)
	return key
}

func (s *CacheTestSuite) TestNew() {
	testCases := []struct {
		name   string
		config *cache.Config
		errMsg string
	}{
		{name: "nil config", config: nil, errMsg: "config cannot be nil"},
		{name: "nil client", config: &cache.Config{}, errMsg: "client cannot be nil"},
	}
	for _, tc := range testCases {
		s.Run(tc.name, func() {
			c, err := cache.New(tc.config)
			s.Error(err)
			s.Contains(err.Error(), tc.errMsg)
			s.Nil(c)
		})
	}
}

func (s *CacheTestSuite) TestMissThenHit() {
	f := catalog.Filters{Query: "luce"}

	spells, key, ok, err := s.cache.GetSpells(s.ctx, f)
	s.Require().NoError(err)
	s.False(ok)
	s.Nil(spells)
	s.Equal("spellbook:spells:0:q=luce", key)

	s.Require().NoError(s.cache.SetSpells(s.ctx, key, s.sample()))

	spells, _, ok, err = s.cache.GetSpells(s.ctx, f)
	s.Require().NoError(err)
	s.True(ok)
	s.Equal(s.sample(), spells)

	other, _, ok, err := s.cache.GetSpells(s.ctx, catalog.Filters{Query: "scudo"})
	s.Require().NoError(err)
	s.False(ok)
	s.Nil(other)
}

func (s *CacheTestSuite) TestEmptyListingIsCached() {
	f := catalog.Filters{Class: "barbaro"}
	s.Require().NoError(s.cache.SetSpells(s.ctx, s.key(f), nil))

	spells, _, ok, err := s.cache.GetSpells(s.ctx, f)
	s.Require().NoError(err)
	s.True(ok)
	s.Empty(spells)
}

func (s *CacheTestSuite) TestInvalidate() {
	f := catalog.Filters{}
	s.Require().NoError(s.cache.SetSpells(s.ctx, s.key(f), s.sample()))

	s.Require().NoError(s.cache.Invalidate(s.ctx))

	_, _, ok, err := s.cache.GetSpells(s.ctx, f)
	s.Require().NoError(err)
	s.False(ok)

	gen, err := s.miniRedis.Get("spellbook:spells:gen")
	s.Require().NoError(err)
	s.Equal("1", gen)

	key, err := s.cache.Key(s.ctx, catalog.Filters{Query: "a"})
	s.Require().NoError(err)
	s.Equal("spellbook:spells:1:q=a", key)
}

func (s *CacheTestSuite) TestInvalidateBetweenMissAndFill() {
	f := catalog.Filters{}
	stale := s.sample()
	stale[0].Known = false

	_, key, ok, err := s.cache.GetSpells(s.ctx, f)
	s.Require().NoError(err)
	s.False(ok)

	// A status change lands after the listing was read from the database.
	s.Require().NoError(s.cache.Invalidate(s.ctx))
	s.Require().NoError(s.cache.SetSpells(s.ctx, key, stale))

	spells, fresh, ok, err := s.cache.GetSpells(s.ctx, f)
	s.Require().NoError(err)
	s.False(ok, "listing read before the invalidation must not be served")
	s.Nil(spells)
	s.NotEqual(key, fresh)
}

func (s *CacheTestSuite) TestEmptyKeyIsNoop() {
	s.Require().NoError(s.cache.SetSpells(s.ctx, "", s.sample()))
	s.Empty(s.miniRedis.Keys())
}

func (s *CacheTestSuite) TestTTL() {
	f := catalog.Filters{}
	key := s.key(f)
	s.Require().NoError(s.cache.SetSpells(s.ctx, key, s.sample()))
	s.Equal(time.Minute, s.miniRedis.TTL(key))

	s.miniRedis.FastForward(2 * time.Minute)
	_, _, ok, err := s.cache.GetSpells(s.ctx, f)
	s.Require().NoError(err)
	s.False(ok)
}

func (s *CacheTestSuite) TestCorruptEntry() {
	f := catalog.Filters{}
	key, err := s.cache.Key(s.ctx, f)
	s.Require().NoError(err)
	s.Require().NoError(s.miniRedis.Set(key, "{not json"))

	_, _, ok, err := s.cache.GetSpells(s.ctx, f)
	s.Error(err)
	s.False(ok)
}

func (s *CacheTestSuite) TestDial() {
	client, err := cache.Dial(s.ctx, s.miniRedis.Addr())
	s.Require().NoError(err)
	defer client.Close()

	_, err = cache.Dial(s.ctx, "")
	s.Error(err)
}

func TestCacheTestSuite(t *testing.T) {
	suite.Run(t, new(CacheTestSuite))
}

func TestNilCacheIsDisabled(t *testing.T) {
	var c *cache.Cache
	ctx := context.Background()

	if c.Enabled() {
		t.Fatal("nil cache reports enabled")
	}
	if _, key, ok, err := c.GetSpells(ctx, catalog.Filters{}); ok || key != "" || err != nil {
		t.Errorf("GetSpells = %q, %v, %v", key, ok, err)
	}
	if err := c.SetSpells(ctx, "spellbook:spells:0:", nil); err != nil {
		t.Errorf("SetSpells: %v", err)
	}
	if err := c.Invalidate(ctx); err != nil {
		t.Errorf("Invalidate: %v", err)
	}
}
