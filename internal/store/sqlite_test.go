package store_test

import (
    "context"
    "path/filepath"
    "testing"

    "github.com/stretchr/testify/require"

    "go-baidu-hotboard/internal/model"
    "go-baidu-hotboard/internal/store"
)

func rec(rank int, title string) model.Record {
    return model.Record{Rank: rank, Title: title, Heat: "10万", Brief: "摘要",
        FetchedAt: "2025-08-23 12:00:00 +0800", Source: "https://top.baidu.com/board?tab=realtime"}
}

func TestHistory_SaveAndListRuns(t *testing.T) {
    h, err := store.Open(filepath.Join(t.TempDir(), "history.db"))
    require.NoError(t, err)
    defer h.Close()

    ctx := context.Background()
    require.NoError(t, h.SaveRun(ctx, "20250823_120000", []model.Record{rec(1, "甲"), rec(2, "乙")}))
    require.NoError(t, h.SaveRun(ctx, "20250823_130000", []model.Record{rec(1, "丙")}))

    runs, err := h.Runs(ctx, 10)
    require.NoError(t, err)
    require.Len(t, runs, 2)
    // 按时间戳倒序
    require.Equal(t, store.RunInfo{Stamp: "20250823_130000", Count: 1}, runs[0])
    require.Equal(t, store.RunInfo{Stamp: "20250823_120000", Count: 2}, runs[1])

    latest, err := h.Runs(ctx, 1)
    require.NoError(t, err)
    require.Len(t, latest, 1)
    require.Equal(t, "20250823_130000", latest[0].Stamp)
}

func TestHistory_RunRecordsRoundTrip(t *testing.T) {
    h, err := store.Open(filepath.Join(t.TempDir(), "history.db"))
    require.NoError(t, err)
    defer h.Close()

    ctx := context.Background()
    in := []model.Record{rec(2, "乙"), rec(1, "甲")}
    require.NoError(t, h.SaveRun(ctx, "20250823_120000", in))
    out, err := h.RunRecords(ctx, "20250823_120000")
    require.NoError(t, err)
    require.Len(t, out, 2)
    // 读取按 rank 升序
    require.Equal(t, rec(1, "甲"), out[0])
    require.Equal(t, rec(2, "乙"), out[1])
}

func TestHistory_CleanOldKeepsFreshRuns(t *testing.T) {
    h, err := store.Open(filepath.Join(t.TempDir(), "history.db"))
    require.NoError(t, err)
    defer h.Close()

    ctx := context.Background()
    require.NoError(t, h.SaveRun(ctx, "20250823_120000", []model.Record{rec(1, "甲")}))
    // 刚写入的数据不受阈值清理影响；非正阈值为显式空操作
    require.NoError(t, h.CleanOld(ctx, 30))
    require.NoError(t, h.CleanOld(ctx, 0))
    runs, err := h.Runs(ctx, 10)
    require.NoError(t, err)
    require.Len(t, runs, 1)
}

func TestHistory_OpenMigratesIdempotently(t *testing.T) {
    path := filepath.Join(t.TempDir(), "history.db")
    h1, err := store.Open(path)
    require.NoError(t, err)
    require.NoError(t, h1.SaveRun(context.Background(), "20250823_120000", []model.Record{rec(1, "甲")}))
    require.NoError(t, h1.Close())
    // 再次打开复用已有表结构与数据
    h2, err := store.Open(path)
    require.NoError(t, err)
    defer h2.Close()
    runs, err := h2.Runs(context.Background(), 10)
    require.NoError(t, err)
    require.Len(t, runs, 1)
}
