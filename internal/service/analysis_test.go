package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/BrandonCHaha/DriveTimeAnalysis/internal/config"
	"github.com/BrandonCHaha/DriveTimeAnalysis/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubTokens 测试用凭证提供方
type stubTokens struct {
	cred  *model.Credential
	err   error
	calls int32
}

func (s *stubTokens) Fetch(ctx context.Context) (*model.Credential, error) {
	atomic.AddInt32(&s.calls, 1)
	if s.err != nil {
		return nil, s.err
	}
	return s.cred, nil
}

// stubSolver 测试用服务区求解方
// errs 依次返回，耗尽后返回 result；block 非 nil 时阻塞到关闭或 ctx 取消
type stubSolver struct {
	result  *model.ServiceAreaResult
	errs    []error
	calls   int32
	block   chan struct{}
	started chan struct{}
}

func (s *stubSolver) Solve(ctx context.Context, origin model.Point, breaks []float64, cred *model.Credential) (*model.ServiceAreaResult, error) {
	n := atomic.AddInt32(&s.calls, 1)
	if s.started != nil {
		s.started <- struct{}{}
	}
	if s.block != nil {
		select {
		case <-ctx.Done():
			return nil, &model.RemoteServiceError{Cause: ctx.Err()}
		case <-s.block:
		}
	}
	if int(n) <= len(s.errs) {
		return nil, s.errs[n-1]
	}
	return s.result, nil
}

func okTokens() *stubTokens {
	return &stubTokens{cred: &model.Credential{Token: "abc123", Authority: "https://portal.test"}}
}

func newTestAnalysis(tokens TokenProvider, solver ServiceAreaSolver, cfg config.ArcGISConfig) (*AnalysisService, *OverlayService) {
	breakpoints := model.NewBreakpointSet()
	overlay := NewOverlayService()
	svc := NewAnalysisService(breakpoints, tokens, solver, NewRenderPolicy(), overlay, nil, cfg)
	return svc, overlay
}

// 场景 A：三个多边形乱序返回，覆盖物为 1 标记 + 按 [15,10,5] 入栈的 3 个多边形
func TestAnalyzeScenarioA(t *testing.T) {
	solver := &stubSolver{result: areaResult(10, 15, 5)}
	svc, overlay := newTestAnalysis(okTokens(), solver, config.ArcGISConfig{})

	run, err := svc.Analyze(context.Background(), model.NewAnalyzeRequest(120.15, 30.28))

	require.NoError(t, err)
	assert.Equal(t, model.PhaseRendered, run.Phase)
	assert.Equal(t, 3, run.PolygonCount)
	assert.Equal(t, []float64{5, 10, 15}, run.Breakpoints)

	got := overlay.Snapshot()
	require.Len(t, got, 4)
	assert.Equal(t, model.GraphicMarker, got[0].Type)
	assert.Equal(t, 15.0, got[1].BreakMinutes)
	assert.Equal(t, 10.0, got[2].BreakMinutes)
	assert.Equal(t, 5.0, got[3].BreakMinutes)

	assert.Equal(t, 0, svc.InFlight(), "加载指示已清除")
}

// 场景 B：零要素按失败处理，只留下点击标记
func TestAnalyzeScenarioBEmptyResult(t *testing.T) {
	solver := &stubSolver{errs: []error{&model.EmptyResultError{Origin: model.Point{120, 30}}}}
	svc, overlay := newTestAnalysis(okTokens(), solver, config.ArcGISConfig{})

	run, err := svc.Analyze(context.Background(), model.NewAnalyzeRequest(120, 30))

	var empty *model.EmptyResultError
	require.ErrorAs(t, err, &empty)
	assert.Equal(t, model.PhaseFailed, run.Phase)
	assert.Equal(t, 0, run.PolygonCount)

	got := overlay.Snapshot()
	require.Len(t, got, 1, "失败时不渲染任何多边形，标记不回滚")
	assert.Equal(t, model.GraphicMarker, got[0].Type)
	assert.Equal(t, 0, svc.InFlight())
}

// 场景 C：凭证获取失败，求解方从未被调用
func TestAnalyzeScenarioCAuthFailure(t *testing.T) {
	tokens := &stubTokens{err: &model.AuthError{Authority: "https://portal.test"}}
	solver := &stubSolver{result: areaResult(5, 10, 15)}
	svc, overlay := newTestAnalysis(tokens, solver, config.ArcGISConfig{})

	run, err := svc.Analyze(context.Background(), model.NewAnalyzeRequest(120, 30))

	var auth *model.AuthError
	require.ErrorAs(t, err, &auth)
	assert.Equal(t, model.PhaseFailed, run.Phase)
	assert.Equal(t, int32(0), atomic.LoadInt32(&solver.calls))

	require.Len(t, overlay.Snapshot(), 1)
	assert.Equal(t, 0, svc.InFlight())
}

// 场景 D：两次点击并发进行，互不丢失、互不覆盖
func TestAnalyzeScenarioDOverlappingRuns(t *testing.T) {
	solver := &stubSolver{
		result:  areaResult(5, 10, 15),
		block:   make(chan struct{}),
		started: make(chan struct{}, 2),
	}
	svc, overlay := newTestAnalysis(okTokens(), solver, config.ArcGISConfig{})

	var wg sync.WaitGroup
	runs := make([]*model.AnalysisRun, 2)
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			runs[i], errs[i] = svc.Analyze(context.Background(),
				model.NewAnalyzeRequest(120+float64(i), 30))
		}(i)
	}

	// 两次分析都进入阻塞点后，加载指示为 2
	<-solver.started
	<-solver.started
	assert.Equal(t, 2, svc.InFlight())

	close(solver.block)
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.Equal(t, model.PhaseRendered, runs[0].Phase)
	assert.Equal(t, model.PhaseRendered, runs[1].Phase)
	assert.Equal(t, 8, overlay.Len(), "2 个标记 + 两次各 3 个多边形")
	assert.Equal(t, 0, svc.InFlight())
}

func TestAnalyzeRejectsInvalidPoint(t *testing.T) {
	svc, overlay := newTestAnalysis(okTokens(), &stubSolver{}, config.ArcGISConfig{})

	run, err := svc.Analyze(context.Background(), model.NewAnalyzeRequest(999, 30))

	var verr *model.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Nil(t, run)
	assert.Equal(t, 0, overlay.Len(), "校验失败不触碰共享状态")
}

// 默认不重试：一次传输失败即终止
func TestAnalyzeNoRetryByDefault(t *testing.T) {
	solver := &stubSolver{
		result: areaResult(5, 10, 15),
		errs:   []error{&model.RemoteServiceError{StatusCode: 502}},
	}
	svc, _ := newTestAnalysis(okTokens(), solver, config.ArcGISConfig{MaxRetries: 0})

	run, err := svc.Analyze(context.Background(), model.NewAnalyzeRequest(120, 30))

	var remote *model.RemoteServiceError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, model.PhaseFailed, run.Phase)
	assert.Equal(t, int32(1), atomic.LoadInt32(&solver.calls))
}

// 负的重试配置按不重试处理，不会变成近乎无限的重试
func TestAnalyzeNegativeRetriesTreatedAsZero(t *testing.T) {
	solver := &stubSolver{
		result: areaResult(5, 10, 15),
		errs:   []error{&model.RemoteServiceError{StatusCode: 502}},
	}
	svc, _ := newTestAnalysis(okTokens(), solver, config.ArcGISConfig{MaxRetries: -1})

	run, err := svc.Analyze(context.Background(), model.NewAnalyzeRequest(120, 30))

	var remote *model.RemoteServiceError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, model.PhaseFailed, run.Phase)
	assert.Equal(t, int32(1), atomic.LoadInt32(&solver.calls))
}

// 打开重试后，传输类错误在限定次数内重试直至成功
func TestAnalyzeRetriesRemoteServiceError(t *testing.T) {
	solver := &stubSolver{
		result: areaResult(5, 10, 15),
		errs: []error{
			&model.RemoteServiceError{StatusCode: 502},
			&model.RemoteServiceError{StatusCode: 503},
		},
	}
	svc, _ := newTestAnalysis(okTokens(), solver, config.ArcGISConfig{MaxRetries: 3})

	run, err := svc.Analyze(context.Background(), model.NewAnalyzeRequest(120, 30))

	require.NoError(t, err)
	assert.Equal(t, model.PhaseRendered, run.Phase)
	assert.Equal(t, int32(3), atomic.LoadInt32(&solver.calls))
}

// 空结果是确定回答，开了重试也不重发
func TestAnalyzeNeverRetriesEmptyResult(t *testing.T) {
	solver := &stubSolver{
		result: areaResult(5, 10, 15),
		errs:   []error{&model.EmptyResultError{Origin: model.Point{120, 30}}},
	}
	svc, _ := newTestAnalysis(okTokens(), solver, config.ArcGISConfig{MaxRetries: 3})

	_, err := svc.Analyze(context.Background(), model.NewAnalyzeRequest(120, 30))

	var empty *model.EmptyResultError
	require.ErrorAs(t, err, &empty)
	assert.Equal(t, int32(1), atomic.LoadInt32(&solver.calls))
}

// 新点击取代旧分析：旧分析的上下文被取消，新分析正常完成
func TestAnalyzeCancelSuperseded(t *testing.T) {
	solver := &stubSolver{
		result:  areaResult(5, 10, 15),
		block:   make(chan struct{}),
		started: make(chan struct{}, 2),
	}
	svc, overlay := newTestAnalysis(okTokens(), solver, config.ArcGISConfig{CancelSuperseded: true})

	firstDone := make(chan struct{})
	var firstErr error
	go func() {
		defer close(firstDone)
		_, firstErr = svc.Analyze(context.Background(), model.NewAnalyzeRequest(120, 30))
	}()
	<-solver.started

	secondDone := make(chan struct{})
	var second *model.AnalysisRun
	go func() {
		defer close(secondDone)
		second, _ = svc.Analyze(context.Background(), model.NewAnalyzeRequest(121, 30))
	}()
	<-solver.started

	// 第一次分析应因被取代而失败，无需等待 block
	select {
	case <-firstDone:
	case <-time.After(2 * time.Second):
		t.Fatal("superseded run did not finish")
	}
	require.Error(t, firstErr)

	close(solver.block)
	<-secondDone
	require.NotNil(t, second)
	assert.Equal(t, model.PhaseRendered, second.Phase)

	// 两个标记都在，旧分析没有渲染多边形
	assert.Equal(t, 5, overlay.Len())
	assert.Equal(t, 0, svc.InFlight())
}
