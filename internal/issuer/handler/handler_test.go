package handler

import (
	"context"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attestor/internal/audit"
	authorityService "attestor/internal/authority/service"
	authorityStore "attestor/internal/authority/store"
	issuerService "attestor/internal/issuer/service"
	issuerStore "attestor/internal/issuer/store"
	"attestor/pkg/testutil"
)

const (
	adminAddr    = "0x00000000000000000000000000000000000000a1"
	strangerAddr = "0x00000000000000000000000000000000000000b2"
	issuerAddr   = "0x00000000000000000000000000000000000000c3"
)

func newRouter(t *testing.T) chi.Router {
	t.Helper()

	ctx := context.Background()
	authority := authorityService.New(authorityStore.NewInMemory())
	require.NoError(t, authority.Initialize(ctx, adminAddr, "v1"))

	service := issuerService.New(issuerStore.NewInMemory(), authority,
		issuerService.WithAuditPublisher(audit.NewPublisher(audit.NewInMemoryStore())),
	)
	h := New(service, slog.New(slog.DiscardHandler))

	r := chi.NewRouter()
	h.Register(r)
	h.RegisterPublic(r)
	return r
}

func TestAddIssuer(t *testing.T) {
	router := newRouter(t)

	t.Run("admin adds an issuer", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/admin/issuers", map[string]string{"identity": issuerAddr})
		rec := testutil.DoRequest(router, testutil.WithCaller(req, adminAddr))

		testutil.AssertStatus(t, rec, http.StatusCreated)

		check := testutil.NewRequest(t, http.MethodGet, "/issuers/"+issuerAddr)
		checkRec := testutil.DoRequest(router, check)
		testutil.AssertStatus(t, checkRec, http.StatusOK)
		testutil.AssertJSONContains(t, checkRec, "authorized", true)
	})

	t.Run("duplicate add conflicts", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/admin/issuers", map[string]string{"identity": issuerAddr})
		rec := testutil.DoRequest(router, testutil.WithCaller(req, adminAddr))

		testutil.AssertStatusAndError(t, rec, http.StatusConflict, "issuer_already_exists")
	})

	t.Run("non-admin is forbidden", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/admin/issuers", map[string]string{"identity": strangerAddr})
		rec := testutil.DoRequest(router, testutil.WithCaller(req, strangerAddr))

		testutil.AssertStatusAndError(t, rec, http.StatusForbidden, "not_protocol_admin")
	})

	t.Run("malformed identity is a bad request", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/admin/issuers", map[string]string{"identity": "0x1234"})
		rec := testutil.DoRequest(router, testutil.WithCaller(req, adminAddr))

		testutil.AssertStatusAndError(t, rec, http.StatusBadRequest, "invalid_address")
	})
}

func TestRemoveIssuer(t *testing.T) {
	router := newRouter(t)

	add := testutil.NewJSONRequest(t, http.MethodPost, "/admin/issuers", map[string]string{"identity": issuerAddr})
	require.Equal(t, http.StatusCreated, testutil.DoRequest(router, testutil.WithCaller(add, adminAddr)).Code)

	t.Run("admin removes the issuer", func(t *testing.T) {
		req := testutil.NewRequest(t, http.MethodDelete, "/admin/issuers/"+issuerAddr)
		rec := testutil.DoRequest(router, testutil.WithCaller(req, adminAddr))

		testutil.AssertStatus(t, rec, http.StatusNoContent)

		check := testutil.NewRequest(t, http.MethodGet, "/issuers/"+issuerAddr)
		checkRec := testutil.DoRequest(router, check)
		testutil.AssertJSONContains(t, checkRec, "authorized", false)
	})

	t.Run("removing again is forbidden", func(t *testing.T) {
		req := testutil.NewRequest(t, http.MethodDelete, "/admin/issuers/"+issuerAddr)
		rec := testutil.DoRequest(router, testutil.WithCaller(req, adminAddr))

		testutil.AssertStatusAndError(t, rec, http.StatusForbidden, "not_authorized_issuer")
	})
}

func TestCheckIssuerIsTotal(t *testing.T) {
	router := newRouter(t)

	t.Run("unknown identity reports unauthorized", func(t *testing.T) {
		req := testutil.NewRequest(t, http.MethodGet, "/issuers/"+strangerAddr)
		rec := testutil.DoRequest(router, req)

		testutil.AssertStatus(t, rec, http.StatusOK)
		testutil.AssertJSONContains(t, rec, "authorized", false)
	})

	t.Run("malformed identity reports unauthorized too", func(t *testing.T) {
		req := testutil.NewRequest(t, http.MethodGet, "/issuers/0x1234")
		rec := testutil.DoRequest(router, req)

		testutil.AssertStatus(t, rec, http.StatusOK)
		testutil.AssertJSONContains(t, rec, "authorized", false)
	})
}

func TestListIssuers(t *testing.T) {
	router := newRouter(t)

	add := testutil.NewJSONRequest(t, http.MethodPost, "/admin/issuers", map[string]string{"identity": issuerAddr})
	require.Equal(t, http.StatusCreated, testutil.DoRequest(router, testutil.WithCaller(add, adminAddr)).Code)

	req := testutil.NewRequest(t, http.MethodGet, "/admin/issuers")
	rec := testutil.DoRequest(router, testutil.WithCaller(req, adminAddr))
	testutil.AssertStatus(t, rec, http.StatusOK)

	resp := testutil.UnmarshalResponse[struct {
		Issuers []struct {
			Identity   string `json:"identity"`
			Authorized bool   `json:"authorized"`
		} `json:"issuers"`
	}](t, rec)
	require.Len(t, resp.Issuers, 1)
	assert.Equal(t, issuerAddr, resp.Issuers[0].Identity)
	assert.True(t, resp.Issuers[0].Authorized)
}
