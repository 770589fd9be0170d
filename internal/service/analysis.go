package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/BrandonCHaha/DriveTimeAnalysis/internal/config"
	"github.com/BrandonCHaha/DriveTimeAnalysis/internal/model"
	"github.com/cenkalti/backoff/v4"
)

// AnalysisService 分析编排
// 状态机：PointCaptured → AwaitingCredential → AwaitingResult → Rendered | Failed。
// 默认允许多次点击的分析并发进行，各自独立追加覆盖物；
// CancelSuperseded 打开时，新点击会取消仍在进行中的旧分析
type AnalysisService struct {
	breakpoints *model.BreakpointSet
	tokens      TokenProvider
	solver      ServiceAreaSolver
	render      *RenderPolicy
	overlay     *OverlayService
	history     *HistoryService

	maxRetries       int
	cancelSuperseded bool

	mu       sync.Mutex
	inFlight int
	nextID   int64
	cancels  map[int64]context.CancelFunc
}

// NewAnalysisService 创建分析编排服务
func NewAnalysisService(
	breakpoints *model.BreakpointSet,
	tokens TokenProvider,
	solver ServiceAreaSolver,
	render *RenderPolicy,
	overlay *OverlayService,
	history *HistoryService,
	cfg config.ArcGISConfig,
) *AnalysisService {
	// 环境变量可能给出负数，按不重试处理
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &AnalysisService{
		breakpoints:      breakpoints,
		tokens:           tokens,
		solver:           solver,
		render:           render,
		overlay:          overlay,
		history:          history,
		maxRetries:       maxRetries,
		cancelSuperseded: cfg.CancelSuperseded,
		cancels:          make(map[int64]context.CancelFunc),
	}
}

// InFlight 返回进行中的分析数量（前端加载指示）
func (s *AnalysisService) InFlight() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight
}

// Analyze 执行一次完整分析
// 点击点标记立即上图；凭证获取与服务区计算是仅有的两个阻塞点；
// 失败时标记保留、不渲染任何多边形，进行中计数在所有退出路径上都会清除
func (s *AnalysisService) Analyze(ctx context.Context, req *model.AnalyzeRequest) (*model.AnalysisRun, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	run := &model.AnalysisRun{
		Point: req.Point(),
		// 快照：此后对阈值的编辑不影响本次分析
		Breakpoints: s.breakpoints.Get(),
		Phase:       model.PhasePointCaptured,
		StartedAt:   time.Now(),
	}

	ctx, finish := s.begin(ctx)
	defer finish()

	marker := s.render.MarkerGraphic(run.Point)
	s.overlay.Append(marker)
	run.Graphics = append(run.Graphics, marker)

	run.Phase = model.PhaseAwaitingCredential
	cred, err := s.tokens.Fetch(ctx)
	if err != nil {
		return s.fail(run, err)
	}

	run.Phase = model.PhaseAwaitingResult
	result, err := s.solveWithRetry(ctx, run, cred)
	if err != nil {
		return s.fail(run, err)
	}

	// 渲染按一个批次追加，不与并发分析的覆盖物交错
	polygons := s.render.PolygonGraphics(result)
	s.overlay.Append(polygons...)
	run.Graphics = append(run.Graphics, polygons...)
	run.PolygonCount = len(polygons)
	run.Phase = model.PhaseRendered
	run.Duration = time.Since(run.StartedAt)

	s.record(run)
	return run, nil
}

// solveWithRetry 调用服务区求解，传输类错误按配置做有限的指数退避重试
// EmptyResultError 不重试：空结果是服务端的确定回答，重发请求没有意义
func (s *AnalysisService) solveWithRetry(ctx context.Context, run *model.AnalysisRun, cred *model.Credential) (*model.ServiceAreaResult, error) {
	op := func() (*model.ServiceAreaResult, error) {
		result, err := s.solver.Solve(ctx, run.Point, run.Breakpoints, cred)
		if err != nil {
			var remote *model.RemoteServiceError
			if errors.As(err, &remote) {
				return nil, err
			}
			return nil, backoff.Permanent(err)
		}
		return result, nil
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(s.maxRetries)),
		ctx,
	)
	return backoff.RetryWithData(op, b)
}

// fail 进入 Failed 终态，标记保留在图上
func (s *AnalysisService) fail(run *model.AnalysisRun, err error) (*model.AnalysisRun, error) {
	run.Phase = model.PhaseFailed
	run.Err = err
	run.Duration = time.Since(run.StartedAt)
	s.record(run)
	return run, err
}

// begin 登记一次分析：计数加一，必要时取消被取代的旧分析
// 返回的 finish 在任何退出路径上执行，保证计数归零
func (s *AnalysisService) begin(parent context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancel(parent)

	s.mu.Lock()
	if s.cancelSuperseded {
		for id, c := range s.cancels {
			c()
			delete(s.cancels, id)
		}
	}
	s.nextID++
	id := s.nextID
	s.cancels[id] = cancel
	s.inFlight++
	s.mu.Unlock()

	return ctx, func() {
		s.mu.Lock()
		delete(s.cancels, id)
		s.inFlight--
		s.mu.Unlock()
		cancel()
	}
}

// record 落库（尽力而为，失败不影响分析结果）
func (s *AnalysisService) record(run *model.AnalysisRun) {
	if !s.history.Enabled() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.history.Record(ctx, run)
}
