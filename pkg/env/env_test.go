package env

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type EnvTestSuite struct {
	suite.Suite
}

func (s *EnvTestSuite) SetupTest() {
	variables = new(Environment)
}

func (s *EnvTestSuite) TestProcessDefaults() {
	assert.Nil(s.T(), Process())
	vars := Variables()
	assert.Equal(s.T(), "info", vars.LogLevel)
	assert.Equal(s.T(), "local", vars.StorageType)
	assert.Equal(s.T(), 2*time.Second, vars.AckTimeout)
	assert.Equal(s.T(), Keywords{"?", "help"}, vars.HelpKeywords)
}

func (s *EnvTestSuite) TestProcessInvalidTypeFailure() {
	s.T().Setenv("SNAPNGO_PORT", "not_a_port")
	assert.NotNil(s.T(), Process())
}

func (s *EnvTestSuite) TestProcessInvalidLogLevelFailure() {
	s.T().Setenv("SNAPNGO_LOG_LEVEL", "bogus")
	assert.NotNil(s.T(), Process())
}

func (s *EnvTestSuite) TestProcessUnknownStorageFailure() {
	s.T().Setenv("SNAPNGO_STORAGE_TYPE", "ftp")
	assert.NotNil(s.T(), Process())
}

func (s *EnvTestSuite) TestProcessS3RequiresBucket() {
	s.T().Setenv("SNAPNGO_STORAGE_TYPE", "s3")
	assert.NotNil(s.T(), Process())

	s.T().Setenv("SNAPNGO_S3_BUCKET", "proofs")
	assert.Nil(s.T(), Process())
	assert.Equal(s.T(), "proofs", Variables().S3Bucket)
}

func (s *EnvTestSuite) TestKeywords() {
	var kw Keywords
	s.Require().NoError(kw.Decode(" Help, ?,, INFO "))
	s.Equal(Keywords{"help", "?", "info"}, kw)
	s.True(kw.Contains("  HELP "))
	s.False(kw.Contains("7"))
}

func TestEnvTestSuite(t *testing.T) {
	suite.Run(t, new(EnvTestSuite))
}
