package log

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type LogTestSuite struct {
	suite.Suite
}

func (s *LogTestSuite) TearDownTest() {
	s.Require().NoError(SetLevel("info"))
}

func (s *LogTestSuite) TestLevels() {
	emitters := []func(string, ...interface{}){Debug, Info, Warn, Error}

	for _, tc := range []struct {
		level   string
		want    zapcore.Level
		enabled int
	}{
		{level: "debug", want: zapcore.DebugLevel, enabled: 4},
		{level: "INFO", want: zapcore.InfoLevel, enabled: 3},
		{level: " warn ", want: zapcore.WarnLevel, enabled: 2},
		{level: "error", want: zapcore.ErrorLevel, enabled: 1},
		{level: "panic", want: zapcore.PanicLevel, enabled: 0},
	} {
		s.Require().NoError(SetLevel(tc.level), tc.level)
		s.Equal(tc.want, GetLevel())

		written := 0
		for _, emit := range emitters {
			if capture(emit, "msg", "task_id", 7) != "" {
				written++
			}
		}
		s.Equal(tc.enabled, written, tc.level)
		assert.Panics(s.T(), func() { Panic("panic msg", "worker_id", "U1") })
	}
}

func (s *LogTestSuite) TestInvalidLevel() {
	s.Error(SetLevel("bogus"))
}

func (s *LogTestSuite) TestSetLevelIgnoresCaseAndSpace() {
	s.Require().NoError(SetLevel("  WARN\n"))
	s.Equal(zapcore.WarnLevel, GetLevel())
}

func capture(logFunc func(string, ...interface{}), msg string, kv ...interface{}) string {
	var buffer bytes.Buffer

	oldLogger := zap.S()
	writer := bufio.NewWriter(&buffer)

	zap.ReplaceGlobals(zap.New(
		zapcore.NewCore(
			zapcore.NewJSONEncoder(config()),
			zapcore.AddSync(writer),
			logLevel,
		),
	))

	logFunc(msg, kv...)
	if err := writer.Flush(); err != nil {
		panic(err)
	}

	zap.ReplaceGlobals(oldLogger.Desugar())

	return buffer.String()
}

func TestLogTestSuite(t *testing.T) {
	suite.Run(t, new(LogTestSuite))
}
