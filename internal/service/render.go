package service

import (
	"sort"

	"github.com/BrandonCHaha/DriveTimeAnalysis/internal/model"
)

// RenderPolicy 渲染策略
// 把服务区结果确定性地映射为覆盖物序列：
// 颜色只取决于多边形在阈值升序中的位置，入栈顺序保证小圈盖在大圈上
type RenderPolicy struct {
	palette []model.LayerColor
}

// NewRenderPolicy 创建渲染策略，未给定色带时使用默认色带
func NewRenderPolicy(palette ...model.LayerColor) *RenderPolicy {
	if len(palette) == 0 {
		palette = model.DefaultPalette()
	}
	return &RenderPolicy{palette: palette}
}

// MarkerGraphic 点击点标记
// 在发起远端请求之前就上图，成败都不回滚
func (p *RenderPolicy) MarkerGraphic(pt model.Point) model.OverlayGraphic {
	return model.OverlayGraphic{
		Type:  model.GraphicMarker,
		Point: pt,
	}
}

// PolygonGraphics 将服务区多边形映射为覆盖物序列
// 先按阈值升序着色（升序位置对色带长度取模，任意数量的阈值都有确定配色），
// 再按时间从大到小入栈，小圈后画盖在大圈上，与远端返回顺序无关
func (p *RenderPolicy) PolygonGraphics(result *model.ServiceAreaResult) []model.OverlayGraphic {
	polygons := make([]model.AreaPolygon, len(result.Polygons))
	copy(polygons, result.Polygons)
	sort.SliceStable(polygons, func(i, j int) bool {
		return polygons[i].BreakMinutes < polygons[j].BreakMinutes
	})

	graphics := make([]model.OverlayGraphic, len(polygons))
	for i, poly := range polygons {
		g := model.OverlayGraphic{
			Type:         model.GraphicPolygon,
			Polygon:      poly.Geometry,
			BreakMinutes: poly.BreakMinutes,
			Fill:         p.palette[i%len(p.palette)],
			Outline:      model.OutlineColor,
			OutlineWidth: model.OutlineWidth,
		}
		// 倒序写入：graphics[0] 是最大阈值
		graphics[len(polygons)-1-i] = g
	}
	return graphics
}
