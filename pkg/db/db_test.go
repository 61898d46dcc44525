package db

import (
	"testing"

	"github.com/snapngo/snapngo/internal/models"
	"github.com/stretchr/testify/suite"
)

type DBTestSuite struct {
	suite.Suite
}

func (s *DBTestSuite) TestOpenSqliteMigrates() {
	gdb, err := Open("sqlite", "file::memory:")
	s.Require().NoError(err)

	sqlDB, err := gdb.DB()
	s.Require().NoError(err)
	defer sqlDB.Close()

	s.Equal(1, sqlDB.Stats().MaxOpenConnections)
	s.Require().NoError(gdb.AutoMigrate(models.All...))

	for _, model := range models.All {
		s.True(gdb.Migrator().HasTable(model))
	}
}

func (s *DBTestSuite) TestOpenDefaultsToSqlite() {
	gdb, err := Open("", "file::memory:")
	s.Require().NoError(err)

	sqlDB, err := gdb.DB()
	s.Require().NoError(err)
	s.NoError(sqlDB.Close())
}

func (s *DBTestSuite) TestOpenUnsupported() {
	_, err := Open("oracle", "")
	s.Error(err)
}

func TestDBTestSuite(t *testing.T) {
	suite.Run(t, new(DBTestSuite))
}
