package handler

import (
	"encoding/base64"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stagehand-music/stagehand/internal/domain"
)

func TestRackIfMatch(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		want    *int
		wantErr bool
	}{
		{name: "absent", header: ""},
		{name: "wildcard", header: "*"},
		{name: "strong", header: `"rack-r1-7"`, want: intPtr(7)},
		{name: "weak", header: `W/"rack-r1-3"`, want: intPtr(3)},
		{name: "other rack", header: `"rack-r2-7"`, wantErr: true},
		{name: "garbage version", header: `"rack-r1-x"`, wantErr: true},
		{name: "unrelated", header: `"abc"`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("PUT", "/", nil)
			if tt.header != "" {
				r.Header.Set("If-Match", tt.header)
			}
			got, err := RackIfMatch(r, "r1")
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrPreconditionFailed)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGenerateETagRoundTrip(t *testing.T) {
	r := httptest.NewRequest("PUT", "/", nil)
	r.Header.Set("If-Match", GenerateETag("rack", "abc-123", 42))

	got, err := RackIfMatch(r, "abc-123")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 42, *got)
}

func TestDecodeFileData(t *testing.T) {
	payload := []byte("hello rack")
	std := base64.StdEncoding.EncodeToString(payload)
	raw := base64.RawStdEncoding.EncodeToString(payload)

	ct, data, err := decodeFileData("text/plain", std)
	require.NoError(t, err)
	assert.Equal(t, "text/plain", ct)
	assert.Equal(t, payload, data)

	_, data, err = decodeFileData("", raw)
	require.NoError(t, err)
	assert.Equal(t, payload, data)

	ct, data, err = decodeFileData("", "data:image/png;base64,"+std)
	require.NoError(t, err)
	assert.Equal(t, "image/png", ct)
	assert.Equal(t, payload, data)

	// An explicit type wins over the data URL.
	ct, _, err = decodeFileData("image/webp", "data:image/png;base64,"+std)
	require.NoError(t, err)
	assert.Equal(t, "image/webp", ct)

	_, _, err = decodeFileData("", "data:text/plain,hello")
	assert.Error(t, err)

	_, _, err = decodeFileData("", "not base64 at all!")
	assert.Error(t, err)
}

func TestSafeReturnTo(t *testing.T) {
	tests := map[string]string{
		"":                     "",
		"/admin/racks":         "/admin/racks",
		"/admin?tab=gear":      "/admin?tab=gear",
		"//evil.example/":      "",
		"/\\evil.example":      "",
		"https://evil.example": "",
		"admin":                "",
	}
	for in, want := range tests {
		assert.Equal(t, want, safeReturnTo(in), "input %q", in)
	}
}

func TestGenerateAPIKey(t *testing.T) {
	key, hash, prefix, err := generateAPIKey()
	require.NoError(t, err)
	assert.Len(t, key, len(APIKeyPrefix)+64)
	assert.Equal(t, key[:len(APIKeyPrefix)+8], prefix)
	assert.Equal(t, hashKey(key), hash)
	assert.Len(t, hash, 64)
}

func intPtr(v int) *int { return &v }
