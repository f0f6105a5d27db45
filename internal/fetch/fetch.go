// 包 fetch 封装 HTTP 客户端（代理/超时/请求头/状态码重试），用于抓取榜单页。
// 重试耗尽后返回最后一次响应而非报错，成败由调用方判定。
package fetch

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/net/html/charset"
)

// 响应体读取上限，防止异常页面拖垮内存。
const bodyLimit = 4 << 20

// Policy 描述瞬时失败的自动重试规则。
type Policy struct {
	MaxAttempts int           // 总尝试次数（含首次）
	Backoff     time.Duration // 退避基数，第 n 次重试前等待 Backoff·2^(n-1)
	Statuses    []int         // 触发重试的响应状态码
	Methods     []string      // 允许重试的无副作用方法
}

// DefaultPolicy 返回与目标站点匹配的缺省策略。
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 5,
		Backoff:     600 * time.Millisecond,
		Statuses:    []int{429, 500, 502, 503, 504},
		Methods:     []string{http.MethodGet, http.MethodHead, http.MethodOptions},
	}
}

func (p Policy) retryStatus(status int) bool {
	for _, s := range p.Statuses {
		if s == status {
			return true
		}
	}
	return false
}

func (p Policy) retryMethod(method string) bool {
	for _, m := range p.Methods {
		if strings.EqualFold(m, method) {
			return true
		}
	}
	return false
}

// wait 返回第 attempt 次尝试失败后的退避时长（逐次翻倍）。
func (p Policy) wait(attempt int) time.Duration {
	d := p.Backoff
	for i := 1; i < attempt; i++ {
		d *= 2
	}
	return d
}

// Client 为带重试的 HTTP 客户端。
type Client struct {
	http    *http.Client
	headers map[string]string
	policy  Policy
}

// Options 为客户端构造参数。
type Options struct {
	ProxyHTTP  string
	ProxyHTTPS string
	Timeout    time.Duration
	Headers    map[string]string
	Retry      Policy
}

// New 创建客户端，支持 http/https 代理、固定请求头与基础超时配置。
func New(opts Options) (*Client, error) {
	transport := &http.Transport{
		Proxy: func(req *http.Request) (*url.URL, error) {
			if req.URL.Scheme == "https" && opts.ProxyHTTPS != "" {
				return url.Parse(opts.ProxyHTTPS)
			}
			if req.URL.Scheme == "http" && opts.ProxyHTTP != "" {
				return url.Parse(opts.ProxyHTTP)
			}
			return http.ProxyFromEnvironment(req)
		},
		DialContext:           (&net.Dialer{Timeout: 10 * time.Second}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	p := opts.Retry
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.Backoff < 0 {
		p.Backoff = 0
	}
	if len(p.Statuses) == 0 {
		p.Statuses = DefaultPolicy().Statuses
	}
	if len(p.Methods) == 0 {
		p.Methods = DefaultPolicy().Methods
	}
	headers := make(map[string]string, len(opts.Headers))
	for k, v := range opts.Headers {
		headers[k] = v
	}
	cl := &http.Client{Transport: transport, Timeout: opts.Timeout}
	return &Client{http: cl, headers: headers, policy: p}, nil
}

// Do 执行一次带自动重试的请求：
// - 命中策略状态码且方法无副作用时，关闭响应并按指数退避重试
// - 重试耗尽后返回最后一次响应（不视为错误），由调用方判定状态
// - 传输层错误同样按策略重试，耗尽后返回最后一次错误
func (c *Client) Do(ctx context.Context, method, rawURL string) (*http.Response, error) {
	var lastErr error
	for attempt := 1; attempt <= c.policy.MaxAttempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
		if err != nil {
			return nil, fmt.Errorf("new request: %w", err)
		}
		for k, v := range c.headers {
			req.Header.Set(k, v)
		}
		resp, err := c.http.Do(req)
		if err == nil {
			if attempt == c.policy.MaxAttempts || !c.policy.retryMethod(method) || !c.policy.retryStatus(resp.StatusCode) {
				return resp, nil
			}
			resp.Body.Close()
			lastErr = fmt.Errorf("http status: %s", resp.Status)
		} else {
			lastErr = err
			if attempt == c.policy.MaxAttempts || !c.policy.retryMethod(method) {
				return nil, lastErr
			}
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.policy.wait(attempt)):
		}
	}
	return nil, lastErr
}

// Get 发起 GET 请求，内部按策略重试。
func (c *Client) Get(ctx context.Context, rawURL string) (*http.Response, error) {
	return c.Do(ctx, http.MethodGet, rawURL)
}

// StatusError 表示重试耗尽后最终响应仍为非 2xx。
type StatusError struct {
	URL        string
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http status %s: %s", e.Status, e.URL)
}

// Text 抓取页面并以 UTF-8 文本返回：
// - 最终状态非 2xx 时返回 *StatusError，不输出残缺内容
// - 依据响应头与内容嗅探编码并统一转码（老站点常见 GBK）
func (c *Client) Text(ctx context.Context, rawURL string) (string, error) {
	resp, err := c.Get(ctx, rawURL)
	if err != nil {
		return "", fmt.Errorf("GET %s: %w", rawURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &StatusError{URL: rawURL, StatusCode: resp.StatusCode, Status: resp.Status}
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, bodyLimit))
	if err != nil {
		return "", fmt.Errorf("read body %s: %w", rawURL, err)
	}
	enc, _, _ := charset.DetermineEncoding(b, resp.Header.Get("Content-Type"))
	decoded, err := enc.NewDecoder().Bytes(b)
	if err != nil {
		// 转码失败时若本身已是合法 UTF-8 则直接使用
		if !utf8.Valid(b) {
			return "", fmt.Errorf("decode body %s: %w", rawURL, err)
		}
		decoded = b
	}
	return string(decoded), nil
}
