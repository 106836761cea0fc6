package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVoiceCatalogResolve(t *testing.T) {
	catalog := NewVoiceCatalog()

	p, handle, err := catalog.Resolve(ProviderGoogle, "minh-anh")
	require.NoError(t, err)
	assert.Equal(t, "Minh Anh", p.Name)
	assert.Equal(t, "vi-VN-Chirp3-HD-Aoede", handle)

	_, vitsHandle, err := catalog.Resolve(ProviderVITS, "minh-anh")
	require.NoError(t, err)
	assert.NotEqual(t, handle, vitsHandle)
}

func TestVoiceCatalogResolveUnknownPersonality(t *testing.T) {
	catalog := NewVoiceCatalog()

	_, _, err := catalog.Resolve(ProviderGoogle, "khong-ton-tai")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "khong-ton-tai")
}

func TestVoiceCatalogResolveUnknownProvider(t *testing.T) {
	catalog := NewVoiceCatalog()

	_, _, err := catalog.Resolve("elevenlabs", "minh-anh")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "elevenlabs")
}

func TestVoiceCatalogList(t *testing.T) {
	catalog := NewVoiceCatalog()

	list := catalog.List(ProviderGoogle)
	require.Len(t, list, 4)
	for _, v := range list {
		assert.NotEmpty(t, v.VoiceHandle)
		assert.Contains(t, v.VoiceHandle, "vi-VN")
	}
}

func TestVoiceCatalogListMemoInvalidatedOnProviderChange(t *testing.T) {
	catalog := NewVoiceCatalog()

	google := catalog.List(ProviderGoogle)
	require.NotEmpty(t, google)

	// Đổi provider thì memo phải tính lại chứ không trả kết quả cũ
	vits := catalog.List(ProviderVITS)
	require.NotEmpty(t, vits)
	assert.NotEqual(t, google[0].VoiceHandle, vits[0].VoiceHandle)

	again := catalog.List(ProviderGoogle)
	assert.Equal(t, google, again)
}
