package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAvatarStore struct {
	objects map[string]ObjectInfo
	signed  []string
}

func (f *fakeAvatarStore) PresignDownload(ctx context.Context, key string, duration time.Duration) (string, error) {
	f.signed = append(f.signed, key)
	return "https://bucket.example/" + key + "?expires=" + duration.String(), nil
}

func (f *fakeAvatarStore) Stat(ctx context.Context, key string) (ObjectInfo, error) {
	info, ok := f.objects[key]
	if !ok {
		return ObjectInfo{}, ErrNotFound
	}
	return info, nil
}

func TestValidateKey(t *testing.T) {
	tests := []struct {
		key   string
		valid bool
	}{
		{"avatars/u1.png", true},
		{"u1.png", true},
		{"", false},
		{"/avatars/u1.png", false},
		{"../secrets", false},
		{"avatars/../../secrets", false},
		{"avatars//u1.png", false},
		{"avatars\\u1.png", false},
		{".", false},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			err := ValidateKey(tt.key)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidKey)
			}
		})
	}
}

func TestResolveAvatar(t *testing.T) {
	ctx := context.Background()
	st := &fakeAvatarStore{objects: map[string]ObjectInfo{
		"avatars/u1.png": {ContentType: "image/png", ContentLength: 10},
	}}

	url, err := ResolveAvatar(ctx, st, "", time.Minute)
	require.NoError(t, err)
	assert.Empty(t, url)

	url, err = ResolveAvatar(ctx, st, "https://cdn.example/a.png", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/a.png", url)
	assert.Empty(t, st.signed)

	url, err = ResolveAvatar(ctx, st, "avatars/u1.png", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "https://bucket.example/avatars/u1.png?expires=1m0s", url)

	_, err = ResolveAvatar(ctx, st, "avatars/missing.png", time.Minute)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = ResolveAvatar(ctx, nil, "avatars/u1.png", time.Minute)
	assert.Error(t, err)
}
