package handler

import (
	"context"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	authorityService "attestor/internal/authority/service"
	authorityStore "attestor/internal/authority/store"
	"attestor/pkg/testutil"
)

const (
	adminAddr    = "0x00000000000000000000000000000000000000a1"
	strangerAddr = "0x00000000000000000000000000000000000000b2"
	successor    = "0x00000000000000000000000000000000000000c3"
)

func newRouter(t *testing.T, initialized bool) chi.Router {
	t.Helper()

	service := authorityService.New(authorityStore.NewInMemory())
	if initialized {
		require.NoError(t, service.Initialize(context.Background(), adminAddr, "v1"))
	}

	h := New(service, slog.New(slog.DiscardHandler))
	r := chi.NewRouter()
	h.Register(r)
	h.RegisterPublic(r)
	return r
}

func TestActivateLogic(t *testing.T) {
	router := newRouter(t, true)

	t.Run("admin swaps the pointer", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/admin/logic", map[string]string{"logic": "v2"})
		rec := testutil.DoRequest(router, testutil.WithCaller(req, adminAddr))

		testutil.AssertStatus(t, rec, http.StatusOK)
		testutil.AssertJSONContains(t, rec, "active_logic", "v2")

		check := testutil.NewRequest(t, http.MethodGet, "/admin/logic")
		checkRec := testutil.DoRequest(router, check)
		testutil.AssertJSONContains(t, checkRec, "active_logic", "v2")
	})

	t.Run("non-admin is forbidden and nothing changes", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/admin/logic", map[string]string{"logic": "v3"})
		rec := testutil.DoRequest(router, testutil.WithCaller(req, strangerAddr))

		testutil.AssertStatusAndError(t, rec, http.StatusForbidden, "not_protocol_admin")

		check := testutil.NewRequest(t, http.MethodGet, "/admin/logic")
		checkRec := testutil.DoRequest(router, check)
		testutil.AssertJSONContains(t, checkRec, "active_logic", "v2")
	})

	t.Run("empty logic ref is a bad request", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/admin/logic", map[string]string{"logic": "  "})
		rec := testutil.DoRequest(router, testutil.WithCaller(req, adminAddr))

		testutil.AssertStatusAndError(t, rec, http.StatusBadRequest, "bad_request")
	})
}

func TestTransferAdmin(t *testing.T) {
	router := newRouter(t, true)

	req := testutil.NewJSONRequest(t, http.MethodPost, "/admin/transfer", map[string]string{"new_admin": successor})
	rec := testutil.DoRequest(router, testutil.WithCaller(req, adminAddr))
	testutil.AssertStatus(t, rec, http.StatusNoContent)

	check := testutil.NewRequest(t, http.MethodGet, "/admin")
	checkRec := testutil.DoRequest(router, check)
	testutil.AssertJSONContains(t, checkRec, "admin", successor)

	// The previous admin lost the role.
	again := testutil.NewJSONRequest(t, http.MethodPost, "/admin/transfer", map[string]string{"new_admin": adminAddr})
	againRec := testutil.DoRequest(router, testutil.WithCaller(again, adminAddr))
	testutil.AssertStatusAndError(t, againRec, http.StatusForbidden, "not_protocol_admin")
}

func TestReadsBeforeInitialization(t *testing.T) {
	router := newRouter(t, false)

	logicRec := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/admin/logic"))
	testutil.AssertStatus(t, logicRec, http.StatusOK)
	testutil.AssertJSONContains(t, logicRec, "active_logic", "")

	adminRec := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/admin"))
	testutil.AssertStatus(t, adminRec, http.StatusOK)
	testutil.AssertJSONContains(t, adminRec, "admin", "")
}
