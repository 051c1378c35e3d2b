package worker

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	nodemodels "fleet_platform/internal/api/node/models"
	"fleet_platform/internal/logger"
)

// NodeGroupQuerier gom nhóm node theo một trường và đếm các cửa sổ hoạt động
type NodeGroupQuerier interface {
	GroupMetricsByField(ctx context.Context, field string, t1, t7, t30, createdAfter int64) ([]nodemodels.NodeMetricsGroup, error)
}

// StatStore là phần kho thống kê mà worker cần dùng
type StatStore interface {
	FindAllByCategoryDate(ctx context.Context, category string, date string) ([]nodemodels.NodeStat, error)
	UpsertMetrics(ctx context.Context, category string, date string, key string, m nodemodels.NodeMetricsGroup) error
	DeleteByIDs(ctx context.Context, ids []primitive.ObjectID) (int64, error)
}

// AreaResolver tra cứu một lượt areaId -> path khu vực
type AreaResolver interface {
	BatchResolve(ctx context.Context, ids []int32) (map[int32]string, error)
}

// statDateLayout là định dạng ngày của một dòng thống kê
const statDateLayout = "2006-01-02"

// statDimension mô tả một chiều thống kê: trường gom nhóm trên collection nodes
// và cách biến đổi key sau khi gom nhóm.
type statDimension struct {
	Category  string // Tên dimension ghi vào node_stats
	Field     string // Trường gom nhóm trên collection nodes
	Transform func(ctx context.Context, w *NodeStatWorker, groups []nodemodels.NodeMetricsGroup) ([]nodemodels.NodeMetricsGroup, error)
}

// NodeStatWorker tính thống kê node theo ngày cho từng dimension.
// Mỗi chu kỳ tính lại từ ngày bắt đầu (xem statStartDate) đến hôm nay,
// ghi đè dòng đã có và xóa dòng thừa nên chạy lại nhiều lần cho cùng kết quả.
type NodeStatWorker struct {
	nodes      NodeGroupQuerier
	stats      StatStore
	areas      AreaResolver
	dimensions []statDimension

	interval     time.Duration // Khoảng thời gian giữa các lần chạy
	initialDelay time.Duration // Độ trễ trước lần chạy đầu tiên
	now          func() time.Time
}

// NewNodeStatWorker tạo mới NodeStatWorker với đủ bảy dimension chuẩn.
// Tham số:
//   - interval: Khoảng thời gian giữa các lần chạy (mặc định: 10 phút)
//   - initialDelay: Độ trễ trước lần chạy đầu tiên (mặc định: 5 giây)
func NewNodeStatWorker(nodes NodeGroupQuerier, stats StatStore, areas AreaResolver, interval, initialDelay time.Duration) *NodeStatWorker {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	if initialDelay < 0 {
		initialDelay = 5 * time.Second
	}
	w := &NodeStatWorker{
		nodes:        nodes,
		stats:        stats,
		areas:        areas,
		interval:     interval,
		initialDelay: initialDelay,
		now:          time.Now,
	}
	w.dimensions = []statDimension{
		{Category: "OS", Field: "osKind"},
		{Category: "Product", Field: "productCode"},
		{Category: "Version", Field: "version"},
		{Category: "Runtime", Field: "runtime", Transform: transformRuntime},
		{Category: "Framework", Field: "framework"},
		{Category: "City", Field: "cityId", Transform: transformCity},
		{Category: "Architecture", Field: "architecture"},
	}
	return w
}

// Start chạy worker trong vòng lặp cho tới khi ctx bị hủy
func (w *NodeStatWorker) Start(ctx context.Context) {
	log := logger.GetAppLogger()

	log.WithFields(map[string]interface{}{
		"interval":     w.interval.String(),
		"initialDelay": w.initialDelay.String(),
		"dimensions":   len(w.dimensions),
	}).Info("📈 [NODE_STAT] Starting Node Stat Worker...")

	select {
	case <-ctx.Done():
		return
	case <-time.After(w.initialDelay):
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		w.runOnce(ctx)

		select {
		case <-ctx.Done():
			log.Info("📈 [NODE_STAT] Node Stat Worker stopped")
			return
		case <-ticker.C:
		}
	}
}

// runOnce chạy một lượt tính thống kê, nuốt panic để không giết vòng lặp
func (w *NodeStatWorker) runOnce(ctx context.Context) {
	log := logger.GetAppLogger()

	defer func() {
		if r := recover(); r != nil {
			log.WithFields(map[string]interface{}{
				"panic": r,
			}).Error("📈 [NODE_STAT] Panic khi tính thống kê, sẽ tiếp tục ở lần chạy tiếp theo")
		}
	}()

	// ctx của vòng lặp chỉ dùng để dừng lịch chạy. Lượt tính đã bắt đầu
	// phải chạy trọn vẹn, không bị bỏ dở giữa chừng khi shutdown.
	now := w.now()
	if err := w.AggregateRange(context.WithoutCancel(ctx), statStartDate(now), now); err != nil {
		log.WithError(err).Error("📈 [NODE_STAT] Lỗi tính thống kê node")
	}
}

// statStartDate trả về ngày bắt đầu tính thống kê.
// Trong 10 phút đầu sau nửa đêm tính lại từ hôm qua để chốt nốt số liệu
// của ngày vừa kết thúc, ngoài ra chỉ tính hôm nay.
func statStartDate(now time.Time) time.Time {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if now.Hour() == 0 && now.Minute() <= 10 {
		return day.AddDate(0, 0, -1)
	}
	return day
}

// AggregateRange tính thống kê cho từng ngày từ start đến ngày chứa end
func (w *NodeStatWorker) AggregateRange(ctx context.Context, start time.Time, end time.Time) error {
	endDay := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, end.Location())
	for day := start; !day.After(endDay); day = day.AddDate(0, 0, 1) {
		if err := w.AggregateDay(ctx, day); err != nil {
			return fmt.Errorf("aggregate stats for %s: %w", day.Format(statDateLayout), err)
		}
	}
	return nil
}

// AggregateDay tính lại toàn bộ bảy dimension cho một ngày
func (w *NodeStatWorker) AggregateDay(ctx context.Context, day time.Time) error {
	date := day.Format(statDateLayout)
	t1 := day.Unix()
	t7 := day.AddDate(0, 0, -7).Unix()
	t30 := day.AddDate(0, 0, -30).Unix()
	createdAfter := day.AddDate(-1, 0, 0).Unix()

	for _, dim := range w.dimensions {
		groups, err := w.nodes.GroupMetricsByField(ctx, dim.Field, t1, t7, t30, createdAfter)
		if err != nil {
			return fmt.Errorf("dimension %s: group query: %w", dim.Category, err)
		}

		if dim.Transform != nil {
			groups, err = dim.Transform(ctx, w, groups)
			if err != nil {
				return fmt.Errorf("dimension %s: transform keys: %w", dim.Category, err)
			}
		}

		if err := w.reconcile(ctx, dim.Category, date, groups); err != nil {
			return fmt.Errorf("dimension %s: reconcile: %w", dim.Category, err)
		}
	}
	return nil
}

// reconcile đồng bộ các dòng thống kê của (category, date) với kết quả vừa tính:
// ghi đè hoặc tạo mới từng key, sau đó xóa các dòng không còn key tương ứng.
func (w *NodeStatWorker) reconcile(ctx context.Context, category string, date string, groups []nodemodels.NodeMetricsGroup) error {
	existing, err := w.stats.FindAllByCategoryDate(ctx, category, date)
	if err != nil {
		return fmt.Errorf("load existing rows: %w", err)
	}

	leftovers := make(map[string]primitive.ObjectID, len(existing))
	for _, row := range existing {
		leftovers[row.Key] = row.ID
	}

	for _, group := range groups {
		if err := w.stats.UpsertMetrics(ctx, category, date, group.Key, group); err != nil {
			return fmt.Errorf("upsert key %q: %w", group.Key, err)
		}
		delete(leftovers, group.Key)
	}

	if len(leftovers) == 0 {
		return nil
	}
	staleIDs := make([]primitive.ObjectID, 0, len(leftovers))
	for _, id := range leftovers {
		staleIDs = append(staleIDs, id)
	}
	if _, err := w.stats.DeleteByIDs(ctx, staleIDs); err != nil {
		return fmt.Errorf("delete stale rows: %w", err)
	}
	return nil
}

// transformRuntime gộp các phiên bản runtime theo 3 ký tự đầu (vd: "3.1.5" -> "3.1")
// và cộng dồn chỉ số của các nhóm trùng bucket.
func transformRuntime(_ context.Context, _ *NodeStatWorker, groups []nodemodels.NodeMetricsGroup) ([]nodemodels.NodeMetricsGroup, error) {
	merged := make(map[string]*nodemodels.NodeMetricsGroup, len(groups))
	order := make([]string, 0, len(groups))

	for _, group := range groups {
		bucket := group.Key
		if len(bucket) > 3 {
			bucket = bucket[:3]
		}
		if existing, ok := merged[bucket]; ok {
			existing.Total += group.Total
			existing.ActivesT1 += group.ActivesT1
			existing.ActivesT7 += group.ActivesT7
			existing.ActivesT30 += group.ActivesT30
			existing.NewsT1 += group.NewsT1
			existing.NewsT7 += group.NewsT7
			existing.NewsT30 += group.NewsT30
			continue
		}
		bucketed := group
		bucketed.Key = bucket
		merged[bucket] = &bucketed
		order = append(order, bucket)
	}

	result := make([]nodemodels.NodeMetricsGroup, 0, len(merged))
	for _, bucket := range order {
		result = append(result, *merged[bucket])
	}
	return result, nil
}

// transformCity đổi key cityId dạng số sang path khu vực hành chính.
// cityId không tra được (hoặc không phải số) chuyển thành key rỗng.
// Hai nhóm cùng path thì nhóm sau ghi đè nhóm trước khi upsert.
func transformCity(ctx context.Context, w *NodeStatWorker, groups []nodemodels.NodeMetricsGroup) ([]nodemodels.NodeMetricsGroup, error) {
	ids := make([]int32, 0, len(groups))
	for _, group := range groups {
		if id, err := strconv.ParseInt(group.Key, 10, 32); err == nil {
			ids = append(ids, int32(id))
		}
	}

	paths, err := w.areas.BatchResolve(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolve area paths: %w", err)
	}

	result := make([]nodemodels.NodeMetricsGroup, 0, len(groups))
	for _, group := range groups {
		resolved := group
		resolved.Key = ""
		if id, err := strconv.ParseInt(group.Key, 10, 32); err == nil {
			if path, ok := paths[int32(id)]; ok {
				resolved.Key = path
			}
		}
		result = append(result, resolved)
	}
	return result, nil
}
