package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/recordhub/internal/config"
	"github.com/tigerroll/recordhub/internal/domain/model"
	"github.com/tigerroll/recordhub/internal/support/exception"
	"github.com/tigerroll/recordhub/internal/support/tree"
)

const orcid = "0000-0002-1825-0097"

func newRegistry(t *testing.T, h http.HandlerFunc) Registry {
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	cfg := config.NewConfig()
	cfg.RecordHub.Remote.BaseURL = srv.URL + "/"
	return NewHTTPRegistry(cfg)
}

func TestGetRemoteRecord(t *testing.T) {
	reg := newRegistry(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v3.0/"+orcid+"/record", r.URL.Path)
		if r.Header.Get("Authorization") != "Bearer good" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"orcid-identifier":{"path":"` + orcid + `"}}`))
	})
	ctx := context.Background()

	doc, err := reg.GetRemoteRecord(ctx, Identity{ORCID: orcid, AccessToken: "good"})
	require.NoError(t, err)
	assert.Equal(t, orcid, doc.Path("orcid-identifier", "path").String())

	doc, err = reg.GetRemoteRecord(ctx, Identity{ORCID: orcid, AccessToken: "revoked"})
	require.NoError(t, err)
	assert.True(t, doc.Missing())

	doc, err = reg.GetRemoteRecord(ctx, Identity{Email: "a@example.com"})
	require.NoError(t, err)
	assert.Nil(t, doc)
}

func TestCreateOrUpdateEntry_Create(t *testing.T) {
	reg := newRegistry(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v3.0/"+orcid+"/researcher-urls", r.URL.Path)
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Blog", body["url-name"])
		assert.NotContains(t, body, "put-code")
		w.Header().Set("Location", "http://registry/v3.0/"+orcid+"/researcher-urls/4711")
		w.WriteHeader(http.StatusCreated)
	})
	res, err := reg.CreateOrUpdateEntry(context.Background(), Identity{ORCID: orcid, AccessToken: "t"}, Entry{
		Kind:    model.KindProperty,
		Section: "researcher-url",
		Payload: tree.Map{"url-name": "Blog"},
	})
	require.NoError(t, err)
	assert.Equal(t, WriteResult{PutCode: "4711", ORCID: orcid, Created: true}, res)
}

func TestCreateOrUpdateEntry_Update(t *testing.T) {
	reg := newRegistry(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/v3.0/"+orcid+"/employment/11", r.URL.Path)
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "11", body["put-code"])
		w.WriteHeader(http.StatusOK)
	})
	res, err := reg.CreateOrUpdateEntry(context.Background(), Identity{ORCID: orcid}, Entry{
		Kind:    model.KindAffiliation,
		Section: "employment",
		PutCode: "11",
		Payload: tree.Map{"department-name": "Physics"},
	})
	require.NoError(t, err)
	assert.False(t, res.Created)
	assert.Equal(t, "11", res.PutCode)
}

func TestCreateOrUpdateEntry_Errors(t *testing.T) {
	status := http.StatusBadRequest
	reg := newRegistry(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte("invalid funding type"))
	})
	ctx := context.Background()
	e := Entry{Kind: model.KindFunding, Section: "funding", Payload: tree.Map{}}

	_, err := reg.CreateOrUpdateEntry(ctx, Identity{ORCID: orcid}, e)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid funding type")
	assert.False(t, exception.IsTemporary(err))

	status = http.StatusServiceUnavailable
	_, err = reg.CreateOrUpdateEntry(ctx, Identity{ORCID: orcid}, e)
	require.Error(t, err)
	assert.True(t, exception.IsTemporary(err))

	_, err = reg.CreateOrUpdateEntry(ctx, Identity{Email: "a@example.com"}, e)
	assert.Error(t, err)
}

func TestDeleteEntry(t *testing.T) {
	var calls int
	reg := newRegistry(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/v3.0/"+orcid+"/other-names/9", r.URL.Path)
		if calls > 1 {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	id := Identity{ORCID: orcid, AccessToken: "t"}
	require.NoError(t, reg.DeleteEntry(context.Background(), id, "other-name", "9"))
	require.NoError(t, reg.DeleteEntry(context.Background(), id, "other-name", "9"))
	assert.Error(t, reg.DeleteEntry(context.Background(), id, "other-name", ""))
}
