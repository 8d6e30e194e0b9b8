package platform_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vixomaix/reel-to-recipe-api/internal/platform"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://www.instagram.com/reel/Cx123/", platform.Instagram},
		{"https://instagr.am/p/abc", platform.Instagram},
		{"https://www.tiktok.com/@chef/video/729", platform.TikTok},
		{"https://vm.tiktok.com/ZM123/", platform.TikTok},
		{"https://www.youtube.com/shorts/dQw4w9WgXcQ", platform.YouTubeShorts},
		{"https://youtu.be/dQw4w9WgXcQ", platform.YouTubeShorts},
		{"https://example.com/video/1", platform.Unknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, platform.Detect(tt.url), tt.url)
	}
}

func TestValidate(t *testing.T) {
	p, err := platform.Validate("https://tiktok.com/@x/video/1")
	require.NoError(t, err)
	assert.Equal(t, platform.TikTok, p)

	_, err = platform.Validate("ftp://tiktok.com/@x/video/1")
	assert.Error(t, err)

	_, err = platform.Validate("https://example.com/watch?v=1")
	assert.Error(t, err)

	_, err = platform.Validate("://not-a-url")
	assert.Error(t, err)
}
