// Package worker - Test tổng hợp thống kê node theo ngày: bucket runtime,
// resolve city, reconcile và chọn ngày bắt đầu.
package worker

import (
	"context"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	nodemodels "fleet_platform/internal/api/node/models"
)

type fakeGroupQuerier struct {
	groupsByField map[string][]nodemodels.NodeMetricsGroup
}

func (f *fakeGroupQuerier) GroupMetricsByField(_ context.Context, field string, _, _, _, _ int64) ([]nodemodels.NodeMetricsGroup, error) {
	return f.groupsByField[field], nil
}

type fakeStatStore struct {
	rows map[string]nodemodels.NodeStat // key: category|date|key
}

func newFakeStatStore() *fakeStatStore {
	return &fakeStatStore{rows: make(map[string]nodemodels.NodeStat)}
}

func statKey(category, date, key string) string {
	return category + "|" + date + "|" + key
}

func (f *fakeStatStore) FindAllByCategoryDate(_ context.Context, category string, date string) ([]nodemodels.NodeStat, error) {
	var result []nodemodels.NodeStat
	for _, row := range f.rows {
		if row.Category == category && row.Date == date {
			result = append(result, row)
		}
	}
	return result, nil
}

func (f *fakeStatStore) UpsertMetrics(_ context.Context, category string, date string, key string, m nodemodels.NodeMetricsGroup) error {
	k := statKey(category, date, key)
	row, ok := f.rows[k]
	if !ok {
		row = nodemodels.NodeStat{ID: primitive.NewObjectID(), Category: category, Date: date, Key: key}
	}
	row.Total = m.Total
	row.Actives = m.ActivesT1
	row.ActivesT7 = m.ActivesT7
	row.ActivesT30 = m.ActivesT30
	row.News = m.NewsT1
	row.NewsT7 = m.NewsT7
	row.NewsT30 = m.NewsT30
	f.rows[k] = row
	return nil
}

func (f *fakeStatStore) DeleteByIDs(_ context.Context, ids []primitive.ObjectID) (int64, error) {
	deleted := int64(0)
	for _, id := range ids {
		for k, row := range f.rows {
			if row.ID == id {
				delete(f.rows, k)
				deleted++
			}
		}
	}
	return deleted, nil
}

// seed chèn sẵn một dòng thống kê, trả về id để kiểm tra việc xóa
func (f *fakeStatStore) seed(category, date, key string) primitive.ObjectID {
	id := primitive.NewObjectID()
	f.rows[statKey(category, date, key)] = nodemodels.NodeStat{
		ID: id, Category: category, Date: date, Key: key, Total: 99,
	}
	return id
}

type fakeAreaResolver struct {
	paths map[int32]string
}

func (f *fakeAreaResolver) BatchResolve(_ context.Context, ids []int32) (map[int32]string, error) {
	result := make(map[int32]string)
	for _, id := range ids {
		if path, ok := f.paths[id]; ok {
			result[id] = path
		}
	}
	return result, nil
}

func newStatTestWorker(querier *fakeGroupQuerier, store *fakeStatStore, areas *fakeAreaResolver) *NodeStatWorker {
	return NewNodeStatWorker(querier, store, areas, 10*time.Minute, 0)
}

func TestStatStartDate(t *testing.T) {
	loc := time.UTC
	cases := []struct {
		name     string
		now      time.Time
		wantDate string
	}{
		{"giua_ngay", time.Date(2026, 8, 29, 12, 0, 0, 0, loc), "2026-08-29"},
		{"vua_qua_nua_dem", time.Date(2026, 8, 29, 0, 5, 0, 0, loc), "2026-08-28"},
		{"phut_thu_10", time.Date(2026, 8, 29, 0, 10, 59, 0, loc), "2026-08-28"},
		{"phut_thu_11", time.Date(2026, 8, 29, 0, 11, 0, 0, loc), "2026-08-29"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := statStartDate(tc.now).Format("2006-01-02")
			if got != tc.wantDate {
				t.Errorf("statStartDate(%v) = %s, muốn %s", tc.now, got, tc.wantDate)
			}
		})
	}
}

func TestAggregateDay_GopRuntimeTheoBucket(t *testing.T) {
	querier := &fakeGroupQuerier{groupsByField: map[string][]nodemodels.NodeMetricsGroup{
		"runtime": {
			{Key: "3.1.5", Total: 1, ActivesT1: 1},
			{Key: "3.1.9", Total: 1, ActivesT1: 0},
			{Key: "8", Total: 2, ActivesT1: 2},
		},
	}}
	store := newFakeStatStore()
	w := newStatTestWorker(querier, store, &fakeAreaResolver{})

	day := time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)
	if err := w.AggregateDay(context.Background(), day); err != nil {
		t.Fatalf("AggregateDay trả về lỗi: %v", err)
	}

	row, ok := store.rows[statKey("Runtime", "2026-08-29", "3.1")]
	if !ok {
		t.Fatal("Thiếu dòng thống kê Runtime với bucket '3.1'")
	}
	if row.Total != 2 {
		t.Errorf("Bucket '3.1' phải gộp Total = 2, nhận được %d", row.Total)
	}
	if row.Actives != 1 {
		t.Errorf("Bucket '3.1' phải gộp Actives = 1, nhận được %d", row.Actives)
	}

	if _, ok := store.rows[statKey("Runtime", "2026-08-29", "8")]; !ok {
		t.Error("Key ngắn hơn 3 ký tự phải giữ nguyên, thiếu dòng '8'")
	}
	if _, ok := store.rows[statKey("Runtime", "2026-08-29", "3.1.5")]; ok {
		t.Error("Không được giữ key runtime đầy đủ '3.1.5' sau khi bucket")
	}
}

func TestAggregateDay_DoiCityIdSangPath(t *testing.T) {
	querier := &fakeGroupQuerier{groupsByField: map[string][]nodemodels.NodeMetricsGroup{
		"cityId": {
			{Key: "10", Total: 3},
			{Key: "99", Total: 1},
		},
	}}
	store := newFakeStatStore()
	areas := &fakeAreaResolver{paths: map[int32]string{10: "Việt Nam/Hà Nội"}}
	w := newStatTestWorker(querier, store, areas)

	day := time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)
	if err := w.AggregateDay(context.Background(), day); err != nil {
		t.Fatalf("AggregateDay trả về lỗi: %v", err)
	}

	row, ok := store.rows[statKey("City", "2026-08-29", "Việt Nam/Hà Nội")]
	if !ok {
		t.Fatal("Thiếu dòng thống kê City với path đã resolve")
	}
	if row.Total != 3 {
		t.Errorf("Dòng city resolve được phải có Total = 3, nhận được %d", row.Total)
	}

	if _, ok := store.rows[statKey("City", "2026-08-29", "")]; !ok {
		t.Error("cityId không resolve được phải chuyển thành key rỗng")
	}
	if _, ok := store.rows[statKey("City", "2026-08-29", "99")]; ok {
		t.Error("Không được giữ key cityId thô sau khi resolve")
	}
}

func TestAggregateDay_XoaDongThua(t *testing.T) {
	querier := &fakeGroupQuerier{groupsByField: map[string][]nodemodels.NodeMetricsGroup{
		"osKind": {
			{Key: "Linux", Total: 5},
		},
	}}
	store := newFakeStatStore()
	staleID := store.seed("OS", "2026-08-29", "Windows")
	otherDayID := store.seed("OS", "2026-08-28", "Windows")
	w := newStatTestWorker(querier, store, &fakeAreaResolver{})

	day := time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)
	if err := w.AggregateDay(context.Background(), day); err != nil {
		t.Fatalf("AggregateDay trả về lỗi: %v", err)
	}

	for _, row := range store.rows {
		if row.ID == staleID {
			t.Error("Dòng 'Windows' của ngày 2026-08-29 không còn key tương ứng, phải bị xóa")
		}
	}
	foundOtherDay := false
	for _, row := range store.rows {
		if row.ID == otherDayID {
			foundOtherDay = true
		}
	}
	if !foundOtherDay {
		t.Error("Reconcile chỉ được đụng đến dòng của đúng (category, date), ngày khác phải giữ nguyên")
	}
	if _, ok := store.rows[statKey("OS", "2026-08-29", "Linux")]; !ok {
		t.Error("Thiếu dòng thống kê OS 'Linux' vừa tính")
	}
}

func TestAggregateDay_ChayLaiKhongDoiKetQua(t *testing.T) {
	querier := &fakeGroupQuerier{groupsByField: map[string][]nodemodels.NodeMetricsGroup{
		"osKind":      {{Key: "Linux", Total: 5, ActivesT1: 2, ActivesT7: 3, ActivesT30: 5}},
		"productCode": {{Key: "edge-agent", Total: 5}},
	}}
	store := newFakeStatStore()
	w := newStatTestWorker(querier, store, &fakeAreaResolver{})

	day := time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		if err := w.AggregateDay(context.Background(), day); err != nil {
			t.Fatalf("AggregateDay lần %d trả về lỗi: %v", i+1, err)
		}
	}

	if len(store.rows) != 2 {
		t.Fatalf("Chạy lại nhiều lần phải cho đúng 2 dòng, nhận được %d", len(store.rows))
	}
	row := store.rows[statKey("OS", "2026-08-29", "Linux")]
	if row.Actives != 2 || row.ActivesT7 != 3 || row.ActivesT30 != 5 {
		t.Errorf("Chỉ số cửa sổ sai sau khi chạy lại: %+v", row)
	}
	if !(row.Actives <= row.ActivesT7 && row.ActivesT7 <= row.ActivesT30) {
		t.Errorf("Cửa sổ phải đơn điệu T1 <= T7 <= T30, nhận được %d/%d/%d", row.Actives, row.ActivesT7, row.ActivesT30)
	}
}

// cancellingStatStore hủy context của vòng lặp ngay sau lần upsert đầu tiên
// và từ chối mọi thao tác trên context đã chết, giống hành vi của mongo driver.
type cancellingStatStore struct {
	*fakeStatStore
	cancel  context.CancelFunc
	upserts int
}

func (f *cancellingStatStore) UpsertMetrics(ctx context.Context, category string, date string, key string, m nodemodels.NodeMetricsGroup) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.upserts++
	if f.upserts == 1 {
		f.cancel()
	}
	return f.fakeStatStore.UpsertMetrics(ctx, category, date, key, m)
}

func TestRunOnce_LuotTinhChayTronVenKhiShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	querier := &fakeGroupQuerier{groupsByField: map[string][]nodemodels.NodeMetricsGroup{
		"osKind": {{Key: "Linux", Total: 1}},
	}}
	store := &cancellingStatStore{fakeStatStore: newFakeStatStore(), cancel: cancel}
	w := NewNodeStatWorker(querier, store, &fakeAreaResolver{}, 10*time.Minute, 0)
	// 00:05 nên lượt tính phải gồm cả hôm qua lẫn hôm nay
	w.now = func() time.Time { return time.Date(2026, 8, 29, 0, 5, 0, 0, time.UTC) }

	w.runOnce(ctx)

	if _, ok := store.rows[statKey("OS", "2026-08-28", "Linux")]; !ok {
		t.Error("Thiếu dòng thống kê của ngày 2026-08-28")
	}
	if _, ok := store.rows[statKey("OS", "2026-08-29", "Linux")]; !ok {
		t.Error("Hủy context sau ngày đầu tiên không được bỏ dở ngày còn lại, thiếu dòng 2026-08-29")
	}
}

func TestAggregateRange_TinhDuCacNgay(t *testing.T) {
	querier := &fakeGroupQuerier{groupsByField: map[string][]nodemodels.NodeMetricsGroup{
		"osKind": {{Key: "Linux", Total: 1}},
	}}
	store := newFakeStatStore()
	w := newStatTestWorker(querier, store, &fakeAreaResolver{})

	start := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 8, 29, 0, 5, 0, 0, time.UTC)
	if err := w.AggregateRange(context.Background(), start, end); err != nil {
		t.Fatalf("AggregateRange trả về lỗi: %v", err)
	}

	if _, ok := store.rows[statKey("OS", "2026-08-28", "Linux")]; !ok {
		t.Error("Thiếu dòng thống kê của ngày 2026-08-28")
	}
	if _, ok := store.rows[statKey("OS", "2026-08-29", "Linux")]; !ok {
		t.Error("Thiếu dòng thống kê của ngày 2026-08-29")
	}
}
