package logging

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestNew_LevelParsing(t *testing.T) {
	tests := []struct {
		level string
		want  logrus.Level
	}{
		{"debug", logrus.DebugLevel},
		{"INFO", logrus.InfoLevel},
		{"warning", logrus.WarnLevel},
		{"error", logrus.ErrorLevel},
		{"bogus", logrus.InfoLevel},
		{"", logrus.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			logger := New(tt.level, "development")
			assert.Equal(t, tt.want, logger.GetLevel())
		})
	}
}

func TestNew_ProductionUsesJSON(t *testing.T) {
	logger := New("info", "production")
	assert.IsType(t, &logrus.JSONFormatter{}, logger.Formatter)

	logger = New("info", "development")
	assert.IsType(t, &logrus.TextFormatter{}, logger.Formatter)
}

func TestWithComponent(t *testing.T) {
	entry := WithComponent(New("info", "development"), "scanner")
	assert.Equal(t, "scanner", entry.Data["component"])
}
