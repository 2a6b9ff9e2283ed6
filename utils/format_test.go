package utils

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormat_Time(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("1.50s", FormatTime(1500*time.Millisecond))
	assert.Equal("2m 5.00s", FormatTime(125*time.Second))
	assert.Equal("1h 1m 1.00s", FormatTime(time.Hour+time.Minute+time.Second))
	assert.Equal("2d 3h 0m 0.00s", FormatTime(51*time.Hour))
}

func TestFormat_Size(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("512B", FormatSize(512))
	assert.Equal("1.00KB", FormatSize(1024))
	assert.Equal("1.50MB", FormatSize(3<<19))
}

func TestFormat_DecorateText(t *testing.T) {
	assert := assert.New(t)

	decorated := DecorateText("done", SuccessMessage)
	assert.True(strings.HasPrefix(decorated, SuccessColor))
	assert.True(strings.HasSuffix(decorated, DefaultColor))
	assert.Contains(decorated, "done")
}

func TestMath_MinMaxAbs(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(3, Min(3, 7))
	assert.Equal(7, Max(3, 7))
	assert.Equal(2.5, Abs(-2.5))
}
