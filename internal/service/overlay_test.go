package service

import (
	"testing"

	"github.com/BrandonCHaha/DriveTimeAnalysis/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestOverlayAppendPreservesOrder(t *testing.T) {
	s := NewOverlayService()

	s.Append(model.OverlayGraphic{Type: model.GraphicMarker, Point: model.Point{1, 1}})
	s.Append(
		model.OverlayGraphic{Type: model.GraphicPolygon, BreakMinutes: 15},
		model.OverlayGraphic{Type: model.GraphicPolygon, BreakMinutes: 5},
	)

	got := s.Snapshot()
	assert.Len(t, got, 3)
	assert.Equal(t, model.GraphicMarker, got[0].Type)
	assert.Equal(t, 15.0, got[1].BreakMinutes)
	assert.Equal(t, 5.0, got[2].BreakMinutes)
}

func TestOverlayClearIdempotent(t *testing.T) {
	s := NewOverlayService()

	// 空存储上清空是无害的空操作
	s.Clear()
	assert.Equal(t, 0, s.Len())

	s.Append(model.OverlayGraphic{Type: model.GraphicMarker})
	s.Clear()
	assert.Equal(t, 0, s.Len())

	s.Clear()
	assert.Equal(t, 0, s.Len())
}

func TestOverlaySnapshotIsCopy(t *testing.T) {
	s := NewOverlayService()
	s.Append(model.OverlayGraphic{Type: model.GraphicMarker, Point: model.Point{1, 2}})

	snap := s.Snapshot()
	snap[0].Point = model.Point{9, 9}

	assert.Equal(t, model.Point{1, 2}, s.Snapshot()[0].Point)
}

func TestOverlayToGeoJSON(t *testing.T) {
	s := NewOverlayService()
	s.Append(
		model.OverlayGraphic{Type: model.GraphicMarker, Point: model.Point{120, 30}},
		model.OverlayGraphic{
			Type:         model.GraphicPolygon,
			BreakMinutes: 5,
			Polygon:      model.PolygonGeometry{Rings: []model.Ring{{{0, 0}, {0, 1}, {1, 1}, {0, 0}}}},
			Fill:         model.DefaultPalette()[0],
			Outline:      model.OutlineColor,
			OutlineWidth: model.OutlineWidth,
		},
	)

	fc := s.ToGeoJSON()
	assert.Equal(t, "FeatureCollection", fc.Type)
	assert.Len(t, fc.Features, 2)
	assert.Equal(t, "Point", fc.Features[0].Geometry.Type)
	assert.Equal(t, "Polygon", fc.Features[1].Geometry.Type)
	assert.Equal(t, 5.0, fc.Features[1].Properties["minutes"])
}
