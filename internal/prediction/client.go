package prediction

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fleetops-dev/duty-roster/backend/internal/config"
)

// Client 封装对预测服务的批量调用。预测服务离线训练司机的历史模式，
// 在线只做查表，所以单次批量请求就能拿到一次匹配需要的全部分数。
// 结果写入 redis 缓存，避免调度员反复试跑参数时重复请求
type Client struct {
	httpClient  *http.Client
	baseURL     string
	redisClient *redis.Client
	cacheTTL    time.Duration
}

func NewClient(cfg *config.Config, redisClient *redis.Client) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Prediction.RequestTimeout) * time.Second,
		},
		baseURL:     cfg.Prediction.BaseURL,
		redisClient: redisClient,
		cacheTTL:    time.Duration(cfg.Prediction.CacheTTL) * time.Second,
	}
}

// BatchResult 是一次批量预测的结果。
// Ownership 的键为 "司机 id|slot key"，与匹配器的 OwnershipKey 一致
type BatchResult struct {
	Ownership  map[string]float64
	Confidence map[int64]float64
}

type batchRequest struct {
	DriverIDs []int64  `json:"driverIds"`
	SlotKeys  []string `json:"slotKeys"`
}

type batchResponse struct {
	Scores []struct {
		DriverID  int64   `json:"driverId"`
		SlotKey   string  `json:"slotKey"`
		Ownership float64 `json:"ownership"`
	} `json:"scores"`
	Confidence []struct {
		DriverID   int64   `json:"driverId"`
		Confidence float64 `json:"confidence"`
	} `json:"confidence"`
}

// FetchBatch 返回给定司机在给定时段上的归属分和每个司机的模式置信度。
// 先查 redis 缓存，只有缓存不全时才请求预测服务；任何错误都原样返回，
// 由调用方决定是否退化运行
func (c *Client) FetchBatch(ctx context.Context, driverIDs []int64, slotKeys []string) (*BatchResult, error) {
	if cached, ok := c.loadCache(ctx, driverIDs, slotKeys); ok {
		return cached, nil
	}

	body, err := json.Marshal(batchRequest{DriverIDs: driverIDs, SlotKeys: slotKeys})
	if err != nil {
		return nil, fmt.Errorf("序列化预测请求失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/predictions/batch", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("构造预测请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("请求预测服务失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("预测服务返回异常状态码: %d", resp.StatusCode)
	}

	var decoded batchResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("解析预测服务响应失败: %w", err)
	}

	result := &BatchResult{
		Ownership:  make(map[string]float64, len(decoded.Scores)),
		Confidence: make(map[int64]float64, len(decoded.Confidence)),
	}
	for _, s := range decoded.Scores {
		result.Ownership[fmt.Sprintf("%d|%s", s.DriverID, s.SlotKey)] = s.Ownership
	}
	for _, cf := range decoded.Confidence {
		result.Confidence[cf.DriverID] = cf.Confidence
	}

	c.storeCache(ctx, decoded)

	return result, nil
}

func ownershipCacheKey(driverID int64, slotKey string) string {
	return fmt.Sprintf("pred_ownership_%d_%s", driverID, slotKey)
}

func confidenceCacheKey(driverID int64) string {
	return fmt.Sprintf("pred_confidence_%d", driverID)
}

// loadCache 只有在所有键都命中时才返回结果：
// 部分命中直接整批重新请求，省掉合并两个来源的麻烦
func (c *Client) loadCache(ctx context.Context, driverIDs []int64, slotKeys []string) (*BatchResult, bool) {
	if c.redisClient == nil {
		return nil, false
	}

	result := &BatchResult{
		Ownership:  make(map[string]float64, len(driverIDs)*len(slotKeys)),
		Confidence: make(map[int64]float64, len(driverIDs)),
	}

	for _, id := range driverIDs {
		raw, err := c.redisClient.Get(ctx, confidenceCacheKey(id)).Result()
		if err != nil {
			return nil, false
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, false
		}
		result.Confidence[id] = v

		for _, slot := range slotKeys {
			raw, err := c.redisClient.Get(ctx, ownershipCacheKey(id, slot)).Result()
			if err != nil {
				return nil, false
			}
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, false
			}
			result.Ownership[fmt.Sprintf("%d|%s", id, slot)] = v
		}
	}

	return result, true
}

// storeCache 尽力写入，写失败不影响本次结果
func (c *Client) storeCache(ctx context.Context, decoded batchResponse) {
	if c.redisClient == nil {
		return
	}

	for _, s := range decoded.Scores {
		c.redisClient.Set(ctx, ownershipCacheKey(s.DriverID, s.SlotKey),
			strconv.FormatFloat(s.Ownership, 'f', -1, 64), c.cacheTTL)
	}
	for _, cf := range decoded.Confidence {
		c.redisClient.Set(ctx, confidenceCacheKey(cf.DriverID),
			strconv.FormatFloat(cf.Confidence, 'f', -1, 64), c.cacheTTL)
	}
}
