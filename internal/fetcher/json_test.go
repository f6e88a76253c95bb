package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testOrg struct {
	Slug string `json:"slug"`
	Name string `json:"name"`
}

func TestDecodeJSONArray(t *testing.T) {
	input := `[{"slug":"kodi","name":"Kodi"},{"slug":"debian","name":"Debian"}]`

	ch, errCh := DecodeJSONArray[testOrg](context.Background(), strings.NewReader(input))

	var orgs []testOrg
	for o := range ch {
		orgs = append(orgs, o)
	}
	for err := range errCh {
		require.NoError(t, err)
	}

	require.Len(t, orgs, 2)
	assert.Equal(t, "kodi", orgs[0].Slug)
	assert.Equal(t, "Debian", orgs[1].Name)
}

func TestDecodeJSONArray_NotArray(t *testing.T) {
	_, err := CollectJSONArray[testOrg](context.Background(), strings.NewReader(`{"slug":"kodi"}`))
	assert.Error(t, err)
}

func TestDecodeJSONArray_Malformed(t *testing.T) {
	orgs, err := CollectJSONArray[testOrg](context.Background(), strings.NewReader(`[{"slug":"kodi"},{"slug":`))
	assert.Error(t, err)
	assert.Len(t, orgs, 1)
}

func TestCollectJSONArray_Empty(t *testing.T) {
	orgs, err := CollectJSONArray[testOrg](context.Background(), strings.NewReader(`[]`))
	require.NoError(t, err)
	assert.Empty(t, orgs)

	orgs, err = CollectJSONArray[testOrg](context.Background(), strings.NewReader(``))
	require.NoError(t, err)
	assert.Empty(t, orgs)
}

func TestDecodeJSONObject(t *testing.T) {
	org, err := DecodeJSONObject[testOrg](strings.NewReader(`{"slug":"kodi","name":"Kodi"}`))
	require.NoError(t, err)
	assert.Equal(t, "Kodi", org.Name)

	_, err = DecodeJSONObject[testOrg](strings.NewReader(`not json`))
	assert.Error(t, err)
}

func TestGetJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"slug":"kodi","name":"Kodi"}`))
	}))
	defer srv.Close()

	org, err := GetJSON[testOrg](context.Background(), newTestFetcher(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "kodi", org.Slug)
}
