package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
	"go.viam.com/test"
)

func TestLevelParsing(t *testing.T) {
	for _, tc := range []struct {
		input    string
		expected Level
	}{
		{"debug", DEBUG},
		{"INFO", INFO},
		{"Warn", WARN},
		{"warning", WARN},
		{"error", ERROR},
	} {
		level, err := LevelFromString(tc.input)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, level, test.ShouldEqual, tc.expected)
	}

	_, err := LevelFromString("loud")
	test.That(t, err, test.ShouldNotBeNil)

	var level Level
	test.That(t, level.UnmarshalJSON([]byte(`"warn"`)), test.ShouldBeNil)
	test.That(t, level, test.ShouldEqual, WARN)
	test.That(t, level.AsZap(), test.ShouldEqual, zapcore.WarnLevel)

	out, err := ERROR.MarshalJSON()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(out), test.ShouldEqual, `"Error"`)
}

func TestObservedLogger(t *testing.T) {
	logger, logs := NewObservedTestLogger(t)
	logger.Debugw("tick", "velocity", 12.5, "curvature", -0.1)
	logger.Infof("following %d segments", 3)

	test.That(t, logs.Len(), test.ShouldEqual, 2)
	tick := logs.All()[0]
	test.That(t, tick.Message, test.ShouldEqual, "tick")
	test.That(t, tick.ContextMap()["velocity"], test.ShouldEqual, 12.5)
	test.That(t, logs.FilterMessageSnippet("following 3").Len(), test.ShouldEqual, 1)

	logger.SetLevel(WARN)
	logger.Info("dropped")
	logger.Warn("kept")
	test.That(t, logs.Len(), test.ShouldEqual, 3)
	test.That(t, logger.GetLevel(), test.ShouldEqual, WARN)
}

func TestSublogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewBlankLogger("purepursuit")
	logger.AddAppender(NewWriterAppender(&buf))

	sub := logger.Sublogger("controller")
	sub.Infow("started", "segments", 2, "dangling")
	test.That(t, sub.Sync(), test.ShouldBeNil)

	line := buf.String()
	test.That(t, line, test.ShouldContainSubstring, "purepursuit.controller")
	test.That(t, line, test.ShouldContainSubstring, "started")
	test.That(t, line, test.ShouldContainSubstring, `"segments": 2`)
	test.That(t, line, test.ShouldContainSubstring, "unpaired log key")
	test.That(t, strings.Count(line, "\n"), test.ShouldEqual, 1)
}

func TestGlobalLogger(t *testing.T) {
	prev := Global()
	defer ReplaceGlobal(prev)

	logger, logs := NewObservedTestLogger(t)
	ReplaceGlobal(logger)
	Global().Error("boom")
	test.That(t, logs.FilterLevelExact(zapcore.ErrorLevel).Len(), test.ShouldEqual, 1)
}

func TestFileAppender(t *testing.T) {
	file := filepath.Join(t.TempDir(), "follow.log")
	appender, closer := NewFileAppender(file, 1)

	logger := NewBlankLogger("file")
	logger.AddAppender(appender)
	logger.Infow("finished path", "run", "abc")
	test.That(t, logger.Sync(), test.ShouldBeNil)
	test.That(t, closer.Close(), test.ShouldBeNil)

	contents, err := os.ReadFile(file)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(contents), test.ShouldContainSubstring, "finished path")
	test.That(t, string(contents), test.ShouldContainSubstring, "INFO")
}
