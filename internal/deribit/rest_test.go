package deribit

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/betbot/dbtrader/internal/domain"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRESTClient_ServerTime(t *testing.T) {
	serverMs := time.Now().Add(-2 * time.Second).UnixMilli()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/public/get_time", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"jsonrpc":"2.0","result":%d,"usIn":1,"usOut":2}`, serverMs)
	}))
	defer srv.Close()

	skew, err := NewRESTClient(srv.URL+"/", time.Second).ServerTime(context.Background())
	require.NoError(t, err)
	assert.Equal(t, serverMs, skew.ServerTime.UnixMilli())
	assert.Greater(t, skew.Skew, time.Second, "本地时钟快约 2 秒")
	assert.Less(t, skew.Skew, 3*time.Second)
}

func TestRESTClient_ServerTimeRPCError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"jsonrpc":"2.0","error":{"code":10028,"message":"too_many_requests"}}`)
	}))
	defer srv.Close()

	_, err := NewRESTClient(srv.URL, time.Second).ServerTime(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrProtocol))
	var rpcErr *domain.RPCError
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, 10028, rpcErr.Code)
}
