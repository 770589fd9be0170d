package model

import (
	"strconv"
	"strings"
	"sync"
	"time"
)

// 行车时间分析的时间阈值（分钟）限制
// 策略性上限，并非路网求解器的硬限制
const (
	BreakpointMin = 1.0
	BreakpointMax = 15.0
)

// DefaultBreakpoints 默认时间阈值
func DefaultBreakpoints() []float64 {
	return []float64{5, 10, 15}
}

// BreakpointSet 有序的时间阈值集合
// 下标即展示顺序，也是渲染分层的依据；只能通过 Set 按下标修改，
// 任何操作都不会隐式重排
type BreakpointSet struct {
	mu     sync.RWMutex
	values []float64
}

// NewBreakpointSet 创建时间阈值集合，未给定时使用默认值 [5, 10, 15]
func NewBreakpointSet(values ...float64) *BreakpointSet {
	if len(values) == 0 {
		values = DefaultBreakpoints()
	}
	vs := make([]float64, len(values))
	copy(vs, values)
	return &BreakpointSet{values: vs}
}

// Get 返回当前阈值的快照
// 调用方持有副本，之后的编辑不会影响进行中的分析
func (s *BreakpointSet) Get() []float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	vs := make([]float64, len(s.values))
	copy(vs, s.values)
	return vs
}

// Len 返回阈值个数
func (s *BreakpointSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.values)
}

// Set 修改指定下标的阈值
// 越界或超出 [1,15] 时返回 ValidationError，集合保持不变
func (s *BreakpointSet) Set(index int, value float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.values) {
		return &ValidationError{Field: "index", Value: index, Reason: "out of range"}
	}
	if value < BreakpointMin || value > BreakpointMax {
		return &ValidationError{Field: "value", Value: value, Reason: "minutes must be in [1,15]"}
	}
	s.values[index] = value
	return nil
}

// JoinBreakpoints 将阈值序列化为逗号分隔串（服务区请求的 defaultBreaks 参数）
func JoinBreakpoints(values []float64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return strings.Join(parts, ",")
}

// AnalyzeRequest 分析请求（一次地图点击）
// 坐标用指针绑定：0 是合法坐标（本初子午线、赤道），
// 只有字段缺失才算绑定失败
type AnalyzeRequest struct {
	// 点击点经度
	Lng *float64 `json:"lng" binding:"required"`
	// 点击点纬度
	Lat *float64 `json:"lat" binding:"required"`
}

// NewAnalyzeRequest 构造分析请求
func NewAnalyzeRequest(lng, lat float64) *AnalyzeRequest {
	return &AnalyzeRequest{Lng: &lng, Lat: &lat}
}

// Validate 验证请求参数
func (r *AnalyzeRequest) Validate() error {
	if r.Lng == nil {
		return &ValidationError{Field: "lng", Value: nil, Reason: "longitude is required"}
	}
	if r.Lat == nil {
		return &ValidationError{Field: "lat", Value: nil, Reason: "latitude is required"}
	}
	if *r.Lng < -180 || *r.Lng > 180 {
		return &ValidationError{Field: "lng", Value: *r.Lng, Reason: "longitude must be in [-180,180]"}
	}
	if *r.Lat < -90 || *r.Lat > 90 {
		return &ValidationError{Field: "lat", Value: *r.Lat, Reason: "latitude must be in [-90,90]"}
	}
	return nil
}

// Point 返回点击点坐标（须先通过 Validate）
func (r *AnalyzeRequest) Point() Point {
	return Point{*r.Lng, *r.Lat}
}

// Credential 服务区请求使用的访问令牌
// 每次分析临时获取，不跨分析缓存
type Credential struct {
	Token     string
	Authority string
	ExpiresAt time.Time
}

// PolygonGeometry 归一化后的多边形几何
// 远端返回的两种几何形态（现成多边形对象或裸环坐标）
// 在客户端边界统一成这一种表示
type PolygonGeometry struct {
	Rings []Ring `json:"rings"`
}

// AreaPolygon 单个服务区多边形
// 每个多边形必须唯一归属到一个时间阈值
type AreaPolygon struct {
	// 时间阈值（分钟）
	BreakMinutes float64 `json:"break_minutes"`
	// 归一化几何
	Geometry PolygonGeometry `json:"geometry"`
}

// ServiceAreaResult 服务区计算结果，至少包含一个多边形
type ServiceAreaResult struct {
	// 分析起点
	Origin Point `json:"origin"`
	// 各阈值对应的多边形
	Polygons []AreaPolygon `json:"polygons"`
}

// RunPhase 分析状态机所处阶段
type RunPhase string

const (
	PhaseIdle               RunPhase = "idle"
	PhasePointCaptured      RunPhase = "point_captured"
	PhaseAwaitingCredential RunPhase = "awaiting_credential"
	PhaseAwaitingResult     RunPhase = "awaiting_result"
	PhaseRendered           RunPhase = "rendered"
	PhaseFailed             RunPhase = "failed"
)

// AnalysisRun 一次分析的瞬态状态
// 点击时创建，进入 Rendered 或 Failed 即为终态
type AnalysisRun struct {
	// 点击点
	Point Point `json:"point"`
	// 点击时刻的阈值快照
	Breakpoints []float64 `json:"breakpoints"`
	// 当前阶段
	Phase RunPhase `json:"phase"`
	// 渲染的多边形数量
	PolygonCount int `json:"polygon_count"`
	// 本次分析追加的覆盖物（标记 + 多边形）
	Graphics []OverlayGraphic `json:"-"`
	// 失败原因（终态为 Failed 时非空）
	Err error `json:"-"`
	// 开始时刻
	StartedAt time.Time `json:"started_at"`
	// 总耗时
	Duration time.Duration `json:"-"`
}

// ErrorText 失败原因的文本形式（用于 JSON 输出与入库）
func (r *AnalysisRun) ErrorText() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// RunRecord 落库后的分析记录
type RunRecord struct {
	ID           int64     `json:"id"`
	Lng          float64   `json:"lng"`
	Lat          float64   `json:"lat"`
	Breakpoints  []float64 `json:"breakpoints"`
	Phase        string    `json:"phase"`
	PolygonCount int       `json:"polygon_count"`
	ErrorText    string    `json:"error,omitempty"`
	DurationMs   int64     `json:"duration_ms"`
	CreatedAt    time.Time `json:"created_at"`
}
