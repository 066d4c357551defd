package omitnilpointers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOmitNilPointers(t *testing.T) {
	videoId := int64(7)
	var position *float64

	got := OmitNilPointers(map[string]any{
		"current_video_id":  &videoId,
		"playback_position": position,
		"is_playing":        true,
		"note":              nil,
	})

	assert.Equal(t, map[string]any{
		"current_video_id": int64(7),
		"is_playing":       true,
	}, got)
}
