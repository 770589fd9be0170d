package model

import "fmt"

// LayerColor 图层颜色 (RGBA)
type LayerColor struct {
	R, G, B uint8
	// 不透明度 0-1
	A float64
}

// CSS 返回 rgba(...) 形式，供前端直接使用
func (c LayerColor) CSS() string {
	return fmt.Sprintf("rgba(%d,%d,%d,%.2f)", c.R, c.G, c.B, c.A)
}

// DefaultPalette 默认的半透明图层色带：绿 → 黄 → 红
// 多边形数量超过色带长度时按取模循环
func DefaultPalette() []LayerColor {
	return []LayerColor{
		{R: 0, G: 160, B: 60, A: 0.35},
		{R: 230, G: 190, B: 0, A: 0.35},
		{R: 210, G: 50, B: 40, A: 0.35},
	}
}

// 多边形统一使用的深色描边
var (
	OutlineColor = LayerColor{R: 40, G: 40, B: 40, A: 1}
)

// OutlineWidth 描边宽度（像素），与填充色无关
const OutlineWidth = 2.0

// GraphicType 覆盖物类型
type GraphicType string

const (
	GraphicMarker  GraphicType = "marker"
	GraphicPolygon GraphicType = "polygon"
)

// OverlayGraphic 覆盖物
// 要么是点击点的标记，要么是一个带填充色的服务区多边形；
// 仅由覆盖物存储持有
type OverlayGraphic struct {
	Type GraphicType `json:"type"`
	// 标记点坐标（Type 为 marker 时有效）
	Point Point `json:"point,omitempty"`
	// 多边形几何（Type 为 polygon 时有效）
	Polygon PolygonGeometry `json:"polygon,omitempty"`
	// 多边形对应的时间阈值
	BreakMinutes float64 `json:"break_minutes,omitempty"`
	// 填充色
	Fill LayerColor `json:"-"`
	// 描边
	Outline      LayerColor `json:"-"`
	OutlineWidth float64    `json:"-"`
}

// ToFeature 转为 GeoJSON 要素（附带渲染属性）
func (g OverlayGraphic) ToFeature() Feature {
	switch g.Type {
	case GraphicPolygon:
		return NewPolygonFeature(g.Polygon.Rings, map[string]interface{}{
			"type":          string(GraphicPolygon),
			"minutes":       g.BreakMinutes,
			"fill":          g.Fill.CSS(),
			"outline":       g.Outline.CSS(),
			"outline_width": g.OutlineWidth,
		})
	default:
		return NewPointFeature(g.Point.Lng(), g.Point.Lat(), map[string]interface{}{
			"type": string(GraphicMarker),
		})
	}
}
