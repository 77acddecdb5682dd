// Package lorapi は外部キャラクターAPIのHTTPクライアントを提供する。
// Bearerトークン認証とページネーション走査を扱い、取得したデータを
// ドメインモデルに変換して返す。
package lorapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hitoshi/lorebook/internal/model"
)

// maxResponseSize はレスポンスボディの読み取り上限（10MB）。
const maxResponseSize = 10 * 1024 * 1024

// CharacterFetcher は全キャラクターの取得インターフェース。
type CharacterFetcher interface {
	// FetchAll は外部APIの全ページを走査し、全キャラクターを返す。
	FetchAll(ctx context.Context) ([]model.ExternalCharacter, error)
}

// page は外部APIのページレスポンス。
type page struct {
	Docs  []model.ExternalCharacter `json:"docs"`
	Total int                       `json:"total"`
	Limit int                       `json:"limit"`
	Page  int                       `json:"page"`
	Pages int                       `json:"pages"`
}

// Client は外部キャラクターAPIのHTTPクライアント。
// 1リクエストごとにタイムアウトを適用し、全ページの取得が
// 1ページでも失敗した場合は部分結果を返さずエラーとする。
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient はClientを生成する。
// baseURLは末尾スラッシュの有無を正規化する。
func NewClient(baseURL, apiKey string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// FetchAll は外部APIの全ページを走査し、全キャラクターを返す。
// ページ数はレスポンスのpagesフィールドに従う。途中のページで失敗した
// 場合、それまでの部分結果は破棄されエラーを返す（呼び出し元のUPSERTを
// 部分データで汚さないため）。
func (c *Client) FetchAll(ctx context.Context) ([]model.ExternalCharacter, error) {
	var all []model.ExternalCharacter

	pageNum := 1
	for {
		p, err := c.fetchPage(ctx, pageNum)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch page %d: %w", pageNum, err)
		}

		all = append(all, p.Docs...)

		c.logger.Info("キャラクターページを取得しました",
			slog.Int("page", p.Page),
			slog.Int("pages", p.Pages),
			slog.Int("docs", len(p.Docs)),
		)

		if pageNum >= p.Pages || len(p.Docs) == 0 {
			break
		}
		pageNum++
	}

	return all, nil
}

// fetchPage は1ページ分を取得する。
func (c *Client) fetchPage(ctx context.Context, pageNum int) (*page, error) {
	endpoint := fmt.Sprintf("%s/character?page=%d", c.baseURL, pageNum)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var p page
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &p, nil
}

// compile-time interface check
var _ CharacterFetcher = (*Client)(nil)
