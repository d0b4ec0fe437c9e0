package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"
)

type YAMLSourceTestSuite struct {
	suite.Suite
}

func TestYAMLSourceSuite(t *testing.T) {
	suite.Run(t, new(YAMLSourceTestSuite))
}

const fixture = `
strategies:
  - user_id: u1
    symbol: 600000.SH
    strategy_key: turtle
    engine: vnpy
    enabled: true
    params:
      threshold: 5
  - user_id: u1
    symbol: 000001.SZ
    strategy_key: hidden_dragon
    engine: vnpy
    enabled: true
  - user_id: u2
    symbol: 000002.SZ
    strategy_key: hidden_dragon
    engine: vnpy
    enabled: false
accounts:
  u1:
    broker: citic
    account_id: acc-1
    securities_account_id: sec-1
`

func (s *YAMLSourceTestSuite) writeFixture() string {
	dir := s.T().TempDir()
	path := filepath.Join(dir, "strategies.yaml")
	s.Require().NoError(os.WriteFile(path, []byte(fixture), 0o644))

	return path
}

func (s *YAMLSourceTestSuite) TestLoadSkipsDisabled() {
	src := NewYAMLSource(s.writeFixture())

	got, err := src.Load(context.Background(), Filter{})
	s.Require().NoError(err)
	s.Len(got, 2)
	s.Contains(got, "u1_600000.SH_turtle")
	s.Contains(got, "u1_000001.SZ_hidden_dragon")
	s.NotContains(got, "u2_000002.SZ_hidden_dragon")
}

func (s *YAMLSourceTestSuite) TestLoadFiltersByUser() {
	src := NewYAMLSource(s.writeFixture())

	got, err := src.Load(context.Background(), Filter{UserID: "u2"})
	s.Require().NoError(err)
	s.Empty(got)
}

func (s *YAMLSourceTestSuite) TestResolveAccount() {
	src := NewYAMLSource(s.writeFixture())

	acc, ok, err := src.ResolveAccount(context.Background(), "u1")
	s.Require().NoError(err)
	s.True(ok)
	s.Equal("citic", acc.Broker)

	_, ok, err = src.ResolveAccount(context.Background(), "nobody")
	s.Require().NoError(err)
	s.False(ok)
}

func (s *YAMLSourceTestSuite) TestLoadMissingFile() {
	src := NewYAMLSource(filepath.Join(s.T().TempDir(), "missing.yaml"))

	got, err := src.Load(context.Background(), Filter{})
	s.Error(err)
	s.Empty(got)
}
