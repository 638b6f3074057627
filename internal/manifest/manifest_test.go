package manifest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoad_EmbeddedDefaultWhenNoURL(t *testing.T) {
	proposals, err := Load(context.Background(), nil, "", NetworkMainnet)
	require.NoError(t, err)
	require.NotNil(t, proposals)
}

func TestLoad_FetchesAndFiltersByNetwork(t *testing.T) {
	hash := "abc123"
	doc := document{Proposals: []Proposal{
		{ID: 1, Key: "cftest-2", Network: NetworkMainnet, LedgerHash: &hash, Version: VersionV1},
		{ID: 2, Key: "devnet-only", Network: NetworkDevnet},
	}}
	body, err := json.Marshal(doc)
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(body)
	}))
	defer srv.Close()

	proposals, err := Load(context.Background(), srv.Client(), srv.URL, NetworkMainnet)
	require.NoError(t, err)
	require.Len(t, proposals, 1)
	require.Equal(t, "cftest-2", proposals[0].Key)
}

func TestLoad_NonOKStatusIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := Load(context.Background(), srv.Client(), srv.URL, NetworkMainnet)
	require.Error(t, err)
}

func TestFind(t *testing.T) {
	proposals := []Proposal{{ID: 1, Key: "a"}, {ID: 2, Key: "b"}}
	p, ok := Find(proposals, 2)
	require.True(t, ok)
	require.Equal(t, "b", p.Key)

	_, ok = Find(proposals, 99)
	require.False(t, ok)
}
