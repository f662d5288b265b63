package prediction

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/fleetops-dev/duty-roster/backend/internal/config"
)

func testClient(t *testing.T, baseURL string) (*Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := &config.Config{}
	cfg.Prediction.BaseURL = baseURL
	cfg.Prediction.RequestTimeout = 5
	cfg.Prediction.CacheTTL = 600

	return NewClient(cfg, rdb), mr
}

func predictionServer(t *testing.T, hits *int) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/v1/predictions/batch", r.URL.Path)

		var req batchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		*hits++

		resp := batchResponse{}
		for _, id := range req.DriverIDs {
			for _, slot := range req.SlotKeys {
				resp.Scores = append(resp.Scores, struct {
					DriverID  int64   `json:"driverId"`
					SlotKey   string  `json:"slotKey"`
					Ownership float64 `json:"ownership"`
				}{DriverID: id, SlotKey: slot, Ownership: 0.75})
			}
			resp.Confidence = append(resp.Confidence, struct {
				DriverID   int64   `json:"driverId"`
				Confidence float64 `json:"confidence"`
			}{DriverID: id, Confidence: 0.9})
		}

		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	t.Cleanup(srv.Close)

	return srv
}

func TestFetchBatch(t *testing.T) {
	hits := 0
	srv := predictionServer(t, &hits)
	client, _ := testClient(t, srv.URL)

	result, err := client.FetchBatch(context.Background(),
		[]int64{1, 2}, []string{"sunWed|3|06:00", "sunWed|3|08:00"})
	require.NoError(t, err)
	require.Equal(t, 1, hits)

	require.Equal(t, 0.75, result.Ownership["1|sunWed|3|06:00"])
	require.Equal(t, 0.75, result.Ownership["2|sunWed|3|08:00"])
	require.Equal(t, 0.9, result.Confidence[1])
	require.Equal(t, 0.9, result.Confidence[2])
}

func TestFetchBatch_CacheHit(t *testing.T) {
	hits := 0
	srv := predictionServer(t, &hits)
	client, _ := testClient(t, srv.URL)

	first, err := client.FetchBatch(context.Background(), []int64{1}, []string{"sunWed|3|06:00"})
	require.NoError(t, err)

	// 第二次应该完全命中缓存，不再请求预测服务
	second, err := client.FetchBatch(context.Background(), []int64{1}, []string{"sunWed|3|06:00"})
	require.NoError(t, err)
	require.Equal(t, 1, hits)
	require.Equal(t, first, second)
}

func TestFetchBatch_CacheExpiry(t *testing.T) {
	hits := 0
	srv := predictionServer(t, &hits)
	client, mr := testClient(t, srv.URL)

	_, err := client.FetchBatch(context.Background(), []int64{1}, []string{"sunWed|3|06:00"})
	require.NoError(t, err)

	mr.FastForward(601 * time.Second)

	_, err = client.FetchBatch(context.Background(), []int64{1}, []string{"sunWed|3|06:00"})
	require.NoError(t, err)
	require.Equal(t, 2, hits)
}

func TestFetchBatch_PartialCacheMiss(t *testing.T) {
	hits := 0
	srv := predictionServer(t, &hits)
	client, _ := testClient(t, srv.URL)

	_, err := client.FetchBatch(context.Background(), []int64{1}, []string{"sunWed|3|06:00"})
	require.NoError(t, err)

	// 多了一个没缓存过的司机，整批重新请求
	result, err := client.FetchBatch(context.Background(), []int64{1, 2}, []string{"sunWed|3|06:00"})
	require.NoError(t, err)
	require.Equal(t, 2, hits)
	require.Equal(t, 0.75, result.Ownership["2|sunWed|3|06:00"])
}

func TestFetchBatch_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	client, _ := testClient(t, srv.URL)

	_, err := client.FetchBatch(context.Background(), []int64{1}, []string{"sunWed|3|06:00"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "异常状态码")
}

func TestFetchBatch_ServiceDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	client, _ := testClient(t, srv.URL)

	_, err := client.FetchBatch(context.Background(), []int64{1}, []string{"sunWed|3|06:00"})
	require.Error(t, err)
}
