package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/BrandonCHaha/DriveTimeAnalysis/internal/config"
	"github.com/BrandonCHaha/DriveTimeAnalysis/internal/model"
)

// ServiceAreaSolver 服务区求解方
type ServiceAreaSolver interface {
	Solve(ctx context.Context, origin model.Point, breaks []float64, cred *model.Credential) (*model.ServiceAreaResult, error)
}

// ArcGISServiceAreaService ArcGIS 服务区求解服务
// 负责把 {起点, 阈值序列, 令牌} 翻译成远端请求，并把响应归一化成结果。
// 本层不做重试，重试策略在编排层
type ArcGISServiceAreaService struct {
	endpoint string
	client   *http.Client
}

// NewArcGISServiceAreaService 创建服务区求解服务
func NewArcGISServiceAreaService(cfg config.ArcGISConfig) *ArcGISServiceAreaService {
	return &ArcGISServiceAreaService{
		endpoint: cfg.ServiceAreaURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// flexibleGeometry 处理远端返回的两种几何形态：
// 现成的多边形对象 {"rings": [...]}，或未包装的环坐标数组。
// 歧义在此处消化，不会泄漏到上层
type flexibleGeometry struct {
	Rings []model.Ring
}

func (g *flexibleGeometry) UnmarshalJSON(data []byte) error {
	// 先尝试解析为多边形对象
	var obj struct {
		Rings []model.Ring `json:"rings"`
	}
	if err := json.Unmarshal(data, &obj); err == nil && len(obj.Rings) > 0 {
		g.Rings = obj.Rings
		return nil
	}

	// 再尝试多环裸坐标
	var rings []model.Ring
	if err := json.Unmarshal(data, &rings); err == nil && len(rings) > 0 {
		g.Rings = rings
		return nil
	}

	// 最后尝试单环
	var ring model.Ring
	if err := json.Unmarshal(data, &ring); err == nil && len(ring) > 0 {
		g.Rings = []model.Ring{ring}
		return nil
	}

	return fmt.Errorf("unrecognized geometry shape")
}

// saFeature 响应中的单个服务区要素
type saFeature struct {
	Attributes map[string]interface{} `json:"attributes"`
	Geometry   flexibleGeometry       `json:"geometry"`
}

// serviceAreaResponse 服务区接口响应
type serviceAreaResponse struct {
	SAPolygons *struct {
		Features []saFeature `json:"features"`
	} `json:"saPolygons"`
	Error *arcgisError `json:"error"`
}

// Solve 发起服务区计算
// 要素按响应顺序与阈值下标一一对应；零要素按 EmptyResultError 处理
func (s *ArcGISServiceAreaService) Solve(ctx context.Context, origin model.Point, breaks []float64, cred *model.Credential) (*model.ServiceAreaResult, error) {
	params := url.Values{}
	params.Set("facilities", fmt.Sprintf("%.6f,%.6f", origin.Lng(), origin.Lat()))
	params.Set("defaultBreaks", model.JoinBreakpoints(breaks))
	params.Set("outSpatialReference", `{"wkid":4326}`)
	params.Set("f", "json")
	params.Set("token", cred.Token)

	reqURL := s.endpoint + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, &model.RemoteServiceError{Cause: err}
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &model.RemoteServiceError{Cause: fmt.Errorf("service area request failed: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &model.RemoteServiceError{Cause: fmt.Errorf("read response failed: %w", err)}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &model.RemoteServiceError{
			StatusCode: resp.StatusCode,
			Message:    http.StatusText(resp.StatusCode),
		}
	}

	var result serviceAreaResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, &model.RemoteServiceError{Cause: fmt.Errorf("parse response failed: %w", err)}
	}
	if result.Error != nil {
		return nil, &model.RemoteServiceError{Code: result.Error.Code, Message: result.Error.String()}
	}
	if result.SAPolygons == nil || len(result.SAPolygons.Features) == 0 {
		return nil, &model.EmptyResultError{Origin: origin}
	}
	if len(result.SAPolygons.Features) > len(breaks) {
		return nil, &model.RemoteServiceError{
			Cause: fmt.Errorf("got %d polygons for %d breaks", len(result.SAPolygons.Features), len(breaks)),
		}
	}

	// 转换为内部结果格式
	out := &model.ServiceAreaResult{
		Origin:   origin,
		Polygons: make([]model.AreaPolygon, 0, len(result.SAPolygons.Features)),
	}
	for i, f := range result.SAPolygons.Features {
		if len(f.Geometry.Rings) == 0 {
			return nil, &model.RemoteServiceError{Cause: fmt.Errorf("feature %d has no geometry", i)}
		}
		out.Polygons = append(out.Polygons, model.AreaPolygon{
			BreakMinutes: breaks[i],
			Geometry:     model.PolygonGeometry{Rings: f.Geometry.Rings},
		})
	}

	return out, nil
}
