package fetch_test

import (
    "context"
    "errors"
    "net"
    "net/http"
    "net/http/httptest"
    "strings"
    "sync/atomic"
    "testing"
    "time"

    "go-baidu-hotboard/internal/fetch"
)

func TestFetch_HeadersApplied(t *testing.T) {
    var gotUA, gotLang, gotCache string
    srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        gotUA = r.Header.Get("User-Agent")
        gotLang = r.Header.Get("Accept-Language")
        gotCache = r.Header.Get("Cache-Control")
        w.WriteHeader(http.StatusOK)
        _, _ = w.Write([]byte("ok"))
    }))
    defer srv.Close()

    cl, err := fetch.New(fetch.Options{
        Timeout: 2 * time.Second,
        Headers: map[string]string{
            "User-Agent":      "test-agent/1.0",
            "Accept-Language": "zh-CN,zh;q=0.9",
            "Cache-Control":   "no-cache",
        },
    })
    if err != nil { t.Fatalf("new client: %v", err) }
    resp, err := cl.Get(context.Background(), srv.URL)
    if err != nil { t.Fatalf("get: %v", err) }
    _ = resp.Body.Close()
    if gotUA != "test-agent/1.0" || gotLang != "zh-CN,zh;q=0.9" || gotCache != "no-cache" {
        t.Fatalf("headers = %q %q %q", gotUA, gotLang, gotCache)
    }
}

func TestFetch_RetryOnStatusThenSuccess(t *testing.T) {
    var calls int32
    srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        if atomic.AddInt32(&calls, 1) <= 2 {
            w.WriteHeader(http.StatusServiceUnavailable)
            return
        }
        w.WriteHeader(http.StatusOK)
        _, _ = w.Write([]byte("ok"))
    }))
    defer srv.Close()

    cl, err := fetch.New(fetch.Options{Timeout: 2 * time.Second, Retry: fetch.Policy{MaxAttempts: 5, Backoff: time.Millisecond}})
    if err != nil { t.Fatalf("new client: %v", err) }
    resp, err := cl.Get(context.Background(), srv.URL)
    if err != nil { t.Fatalf("get: %v", err) }
    _ = resp.Body.Close()
    if resp.StatusCode != http.StatusOK { t.Fatalf("status=%d want=200", resp.StatusCode) }
    if n := atomic.LoadInt32(&calls); n != 3 { t.Fatalf("calls = %d, want 3", n) }
}

func TestFetch_ReturnsLastResponseAfterExhaustion(t *testing.T) {
    var calls int32
    srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        atomic.AddInt32(&calls, 1)
        w.WriteHeader(http.StatusServiceUnavailable)
    }))
    defer srv.Close()

    cl, err := fetch.New(fetch.Options{Timeout: 2 * time.Second, Retry: fetch.Policy{MaxAttempts: 5, Backoff: time.Millisecond}})
    if err != nil { t.Fatalf("new client: %v", err) }
    // 重试耗尽后不报错，返回最后一次响应，成败由调用方判定
    resp, err := cl.Get(context.Background(), srv.URL)
    if err != nil { t.Fatalf("get should not error on final status: %v", err) }
    _ = resp.Body.Close()
    if resp.StatusCode != http.StatusServiceUnavailable { t.Fatalf("status=%d want=503", resp.StatusCode) }
    if n := atomic.LoadInt32(&calls); n != 5 { t.Fatalf("calls = %d, want 5", n) }

    // Text 将最终非 2xx 转成 StatusError
    atomic.StoreInt32(&calls, 0)
    _, err = cl.Text(context.Background(), srv.URL)
    var se *fetch.StatusError
    if !errors.As(err, &se) { t.Fatalf("want StatusError, got %v", err) }
    if se.StatusCode != http.StatusServiceUnavailable { t.Fatalf("status=%d want=503", se.StatusCode) }
    if n := atomic.LoadInt32(&calls); n != 5 { t.Fatalf("calls = %d, want 5", n) }
}

func TestFetch_NoRetryOnNonListedStatus(t *testing.T) {
    var calls int32
    srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        atomic.AddInt32(&calls, 1)
        w.WriteHeader(http.StatusNotFound)
    }))
    defer srv.Close()

    cl, _ := fetch.New(fetch.Options{Timeout: 2 * time.Second, Retry: fetch.Policy{MaxAttempts: 5, Backoff: time.Millisecond}})
    resp, err := cl.Get(context.Background(), srv.URL)
    if err != nil { t.Fatalf("get: %v", err) }
    _ = resp.Body.Close()
    if n := atomic.LoadInt32(&calls); n != 1 { t.Fatalf("404 should not retry, calls = %d", n) }
}

func TestFetch_NonIdempotentSingleAttempt(t *testing.T) {
    var calls int32
    srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        atomic.AddInt32(&calls, 1)
        w.WriteHeader(http.StatusServiceUnavailable)
    }))
    defer srv.Close()

    cl, _ := fetch.New(fetch.Options{Timeout: 2 * time.Second, Retry: fetch.Policy{MaxAttempts: 5, Backoff: time.Millisecond}})
    resp, err := cl.Do(context.Background(), http.MethodPost, srv.URL)
    if err != nil { t.Fatalf("do: %v", err) }
    _ = resp.Body.Close()
    if n := atomic.LoadInt32(&calls); n != 1 { t.Fatalf("POST should not retry, calls = %d", n) }
}

func TestFetch_TransportErrorRetries(t *testing.T) {
    var calls int32
    srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        atomic.AddInt32(&calls, 1)
        // 直接断开连接，制造传输层错误
        conn, _, _ := w.(http.Hijacker).Hijack()
        _ = conn.Close()
    }))
    defer srv.Close()

    cl, _ := fetch.New(fetch.Options{Timeout: 2 * time.Second, Retry: fetch.Policy{MaxAttempts: 3, Backoff: time.Millisecond}})
    _, err := cl.Get(context.Background(), srv.URL)
    if err == nil { t.Fatal("expect transport error after retries") }
    if n := atomic.LoadInt32(&calls); n != 3 { t.Fatalf("calls = %d, want 3", n) }
}

func TestFetch_Timeout(t *testing.T) {
    srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        time.Sleep(300 * time.Millisecond)
        w.WriteHeader(http.StatusOK)
    }))
    defer srv.Close()

    cl, err := fetch.New(fetch.Options{Timeout: 100 * time.Millisecond, Retry: fetch.Policy{MaxAttempts: 1}})
    if err != nil { t.Fatalf("new client: %v", err) }
    _, err = cl.Get(context.Background(), srv.URL)
    if err == nil { t.Fatal("expected timeout error, got nil") }
    if ne, ok := err.(net.Error); ok && ne.Timeout() { return }
    if !errors.Is(err, context.DeadlineExceeded) {
        t.Fatalf("unexpected error: %v", err)
    }
}

func TestFetch_TextDecodesGBK(t *testing.T) {
    srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        w.Header().Set("Content-Type", "text/html; charset=gbk")
        // "百度" 的 GBK 编码
        _, _ = w.Write([]byte{0xB0, 0xD9, 0xB6, 0xC8})
    }))
    defer srv.Close()

    cl, _ := fetch.New(fetch.Options{Timeout: 2 * time.Second})
    text, err := cl.Text(context.Background(), srv.URL)
    if err != nil { t.Fatalf("text: %v", err) }
    if !strings.Contains(text, "百度") { t.Fatalf("gbk not decoded: %q", text) }
}
