package service

import (
	"sync"

	"github.com/BrandonCHaha/DriveTimeAnalysis/internal/model"
)

// OverlayService 覆盖物存储
// 只追加，追加顺序就是前端的叠放顺序（后画在上）。
// Clear 是唯一的破坏性操作，由用户显式触发，不支持按批次的部分清除
type OverlayService struct {
	mu       sync.Mutex
	graphics []model.OverlayGraphic
}

// NewOverlayService 创建覆盖物存储
func NewOverlayService() *OverlayService {
	return &OverlayService{
		graphics: []model.OverlayGraphic{},
	}
}

// Append 追加一批覆盖物
// 一次持锁完成，同一次分析的覆盖物之间不会插入其他分析的覆盖物
func (s *OverlayService) Append(graphics ...model.OverlayGraphic) {
	if len(graphics) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.graphics = append(s.graphics, graphics...)
}

// Clear 清空全部覆盖物，对空存储调用是无害的空操作
func (s *OverlayService) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.graphics = s.graphics[:0]
}

// Len 返回覆盖物数量
func (s *OverlayService) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.graphics)
}

// Snapshot 返回当前覆盖物的副本
func (s *OverlayService) Snapshot() []model.OverlayGraphic {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.OverlayGraphic, len(s.graphics))
	copy(out, s.graphics)
	return out
}

// ToGeoJSON 将当前覆盖物导出为 FeatureCollection
func (s *OverlayService) ToGeoJSON() *model.FeatureCollection {
	fc := model.NewFeatureCollection()
	for _, g := range s.Snapshot() {
		fc.AddFeature(g.ToFeature())
	}
	return fc
}
